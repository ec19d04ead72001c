package intake

import (
	"regexp"
	"strings"

	"github.com/inbucket/html2text"
	"github.com/microcosm-cc/bluemonday"
)

// htmlTagRE detects markup worth sanitizing. Plain text with a stray "<"
// does not qualify.
var htmlTagRE = regexp.MustCompile(`(?i)<\s*(!doctype|html|body|head|p|br|div|span|a|img|table|ul|ol|li|h[1-6])\b`)

var (
	ugcPolicy    = bluemonday.UGCPolicy()
	strictPolicy = bluemonday.StrictPolicy()
)

// Sanitize converts an HTML payload to plain text. Mail-gateway producers
// post full HTML bodies; script and style content must never reach the
// pipeline. Plain text passes through unchanged.
func Sanitize(s string) string {
	if !htmlTagRE.MatchString(s) {
		return s
	}

	clean := ugcPolicy.Sanitize(s)
	text, err := html2text.FromString(clean, html2text.Options{OmitLinks: false})
	if err != nil {
		// converter choked, fall back to tag stripping
		return strings.TrimSpace(strictPolicy.Sanitize(s))
	}
	return strings.TrimSpace(text)
}

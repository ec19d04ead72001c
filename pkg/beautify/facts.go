package beautify

import (
	"regexp"
	"sort"
	"strings"
)

// facts are the tokens an LLM rewrite is not allowed to invent or lose:
// numbers, hostnames and filesystem paths. The fingerprint is order-insensitive
// so a reworded message with the same facts still passes the guard.
var factREs = []*regexp.Regexp{
	regexp.MustCompile(`\d+(?:[.,:]\d+)*`),                      // numbers, versions, times
	regexp.MustCompile(`\b[a-z0-9][a-z0-9-]*(?:\.[a-z0-9-]+)+\b`), // hostnames, domains
	regexp.MustCompile(`(?:^|\s)(/[\w./-]{2,})`),                // unix paths
}

// Facts extracts the sorted, de-duplicated fact fingerprint of the text
func Facts(text string) []string {
	lower := strings.ToLower(text)
	seen := make(map[string]bool)
	for _, re := range factREs {
		for _, m := range re.FindAllStringSubmatch(lower, -1) {
			tok := m[len(m)-1]
			tok = strings.Trim(tok, ".,:")
			if tok == "" || seen[tok] {
				continue
			}
			seen[tok] = true
		}
	}

	facts := make([]string, 0, len(seen))
	for tok := range seen {
		facts = append(facts, tok)
	}
	sort.Strings(facts)
	return facts
}

// SameFacts reports whether two fingerprints are identical. Used as the
// hallucination guard: a rewrite that changes the facts is discarded.
func SameFacts(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

package beautify

import (
	"regexp"
	"sort"
	"strings"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/notigate/pkg/domain"
)

// Normalizer cleans up raw notification text: strips noise, harvests images
// into detached attachments, drops repeated lines and truncates safely.
// Every step degrades to a pass-through of the previous stage on failure,
// the caller always gets usable text back.
type Normalizer struct {
	budget         int
	protectMessage bool
}

// Options configures the normalizer
type Options struct {
	Budget         int  // truncation budget in characters, default 3500
	ProtectMessage bool // pass a "Message"-marked block through untouched
}

const defaultBudget = 3500

// New creates a normalizer with the given options
func New(opts Options) *Normalizer {
	if opts.Budget <= 0 {
		opts.Budget = defaultBudget
	}
	return &Normalizer{budget: opts.Budget, protectMessage: opts.ProtectMessage}
}

// Normalize runs the full pipeline over the message body and returns the
// cleaned text with harvested images and the facts fingerprint.
func (n *Normalizer) Normalize(title, body string) domain.Normalized {
	text := body

	text = safeStep("strip noise", text, stripNoise)
	text = safeStep("normalize whitespace", text, normalizeWhitespace)

	var images, alts []string
	text = safeStep("harvest images", text, func(s string) string {
		var out string
		out, images, alts = harvestImages(s)
		return out
	})

	text = safeStep("dedup lines", text, func(s string) string {
		return dedupLines(s, n.protectMessage)
	})
	text = safeStep("normalize whitespace", text, normalizeWhitespace)
	text = safeStep("truncate", text, func(s string) string {
		return safeTruncate(s, n.budget)
	})

	return domain.Normalized{
		CleanText: text,
		Images:    images,
		ImageAlts: alts,
		Facts:     Facts(title + "\n" + text),
	}
}

// safeStep runs one normalization step, falling back to the input on panic.
// A malformed message must never take down the processing loop.
func safeStep(name, in string, fn func(string) string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			lgr.Printf("[WARN] beautify step %s failed, passing through: %v", name, r)
			out = in
		}
	}()
	return fn(in)
}

var (
	emojiRE = regexp.MustCompile(`[\x{1F000}-\x{1FAFF}\x{2600}-\x{27BF}\x{2B00}-\x{2BFF}\x{FE00}-\x{FE0F}\x{200D}]`)

	boilerplateREs = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^\s*sent from\b`),
		regexp.MustCompile(`(?i)\bvia\s+\S+\s+api\b`),
		regexp.MustCompile(`(?i)\bautomated message\b`),
		regexp.MustCompile(`(?i)\bdo not reply\b`),
	}
)

// stripNoise removes emoji and boilerplate lines
func stripNoise(text string) string {
	text = emojiRE.ReplaceAllString(text, "")

	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, line := range lines {
		if isBoilerplate(line) {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func isBoilerplate(line string) bool {
	for _, re := range boilerplateREs {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// normalizeWhitespace trims trailing spaces per line, collapses runs of blank
// lines to a single blank line and trims the document.
func normalizeWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blanks := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			blanks++
			if blanks > 1 {
				continue
			}
		} else {
			blanks = 0
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

var (
	mdImageRE  = regexp.MustCompile(`!\[([^\]]*)\]\(\s*([^)\s]+)(?:\s+"[^"]*")?\s*\)`)
	bareImgRE  = regexp.MustCompile(`(?i)https?://[^\s<>()\[\]]+\.(?:png|jpe?g|gif|webp)(?:\?[^\s<>()\[\]]*)?`)
	posterHost = []string{"image.tmdb.org", "artworks.thetvdb.com", "assets.fanart.tv", "i.imgur.com", "imgur.com"}
)

// harvestImages pulls markdown images and bare image URLs out of the text,
// substituting self-describing placeholders. Returned URLs keep original order
// but known poster/image hosts sort first so the caller can pick the best
// attachment cheaply.
func harvestImages(text string) (clean string, urls, alts []string) {
	type img struct {
		url string
		alt string
	}
	var found []img

	clean = mdImageRE.ReplaceAllStringFunc(text, func(m string) string {
		sub := mdImageRE.FindStringSubmatch(m)
		alt, url := sub[1], sub[2]
		found = append(found, img{url: url, alt: alt})
		if alt != "" {
			return "[image: " + alt + "]"
		}
		return "[image]"
	})

	clean = bareImgRE.ReplaceAllStringFunc(clean, func(url string) string {
		found = append(found, img{url: url})
		return "[image]"
	})

	// dedup preserving first occurrence order
	seen := make(map[string]bool)
	deduped := found[:0]
	for _, im := range found {
		if seen[im.url] {
			continue
		}
		seen[im.url] = true
		deduped = append(deduped, im)
	}

	// preferred hosts first, original order otherwise
	sort.SliceStable(deduped, func(i, j int) bool {
		return hostRank(deduped[i].url) < hostRank(deduped[j].url)
	})

	for _, im := range deduped {
		urls = append(urls, im.url)
		alts = append(alts, im.alt)
	}
	return clean, urls, alts
}

func hostRank(url string) int {
	for _, h := range posterHost {
		if strings.Contains(url, h) {
			return 0
		}
	}
	return 1
}

var (
	messageMarkerRE = regexp.MustCompile(`(?i)^\s*(?:#{1,6}\s*)?\**message\**:?\s*$`)
	sectionHeaderRE = regexp.MustCompile(`^\s*(?:#{1,6}\s+\S|\*\*[^*]+\*\*\s*$)`)
)

// dedupLines drops a line when a whitespace-normalized, case-folded copy was
// already emitted. Code fence regions pass through verbatim. With protect on,
// a block starting at a "Message" marker is passed untouched until the next
// section header.
func dedupLines(text string, protectMessage bool) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	emitted := make(map[string]bool)

	// lines in verbatim regions are always emitted but their keys are still
	// recorded, so a later plain duplicate is dropped
	record := func(line string) {
		if key := strings.ToLower(strings.Join(strings.Fields(line), " ")); key != "" {
			emitted[key] = true
		}
	}

	inFence := false
	inMessage := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			record(line)
			out = append(out, line)
			continue
		}
		if inFence {
			record(line)
			out = append(out, line)
			continue
		}

		if protectMessage {
			if inMessage && sectionHeaderRE.MatchString(line) && !messageMarkerRE.MatchString(line) {
				inMessage = false
			}
			if messageMarkerRE.MatchString(line) {
				inMessage = true
				record(line)
				out = append(out, line)
				continue
			}
			if inMessage {
				record(line)
				out = append(out, line)
				continue
			}
		}

		if trimmed == "" {
			out = append(out, line)
			continue
		}

		key := strings.ToLower(strings.Join(strings.Fields(line), " "))
		if emitted[key] {
			continue
		}
		emitted[key] = true
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

var mdLinkRE = regexp.MustCompile(`!?\[[^\]]*\]\([^)]*\)`)

const ellipsis = "…"

// safeTruncate cuts the text down to roughly the budget without ever splitting
// a protected span (code fence, markdown link/image, raw image URL). Protected
// spans are copied atomically even when that exceeds the nominal budget; cuts
// in plain text happen at the last whitespace before the limit.
func safeTruncate(text string, budget int) string {
	if len(text) <= budget {
		return text
	}

	spans := protectedSpans(text)

	var b strings.Builder
	pos := 0
	for _, sp := range spans {
		if pos < sp[0] {
			chunk := text[pos:sp[0]]
			if b.Len()+len(chunk) > budget {
				return cutAndClose(&b, chunk, budget)
			}
			b.WriteString(chunk)
		}
		// protected span goes in whole, never split
		b.WriteString(text[sp[0]:sp[1]])
		pos = sp[1]
	}

	if pos < len(text) {
		chunk := text[pos:]
		if b.Len()+len(chunk) > budget {
			return cutAndClose(&b, chunk, budget)
		}
		b.WriteString(chunk)
	}
	return b.String()
}

// cutAndClose writes as much of chunk as the remaining budget allows, cutting
// at the last whitespace, and appends the ellipsis marker. Room is reserved
// for the marker itself so a truncated result stays within budget and a second
// pass leaves it untouched.
func cutAndClose(b *strings.Builder, chunk string, budget int) string {
	room := budget - b.Len() - len(ellipsis)
	if room < 0 {
		room = 0
	}
	if room > len(chunk) {
		room = len(chunk)
	}
	cut := chunk[:room]
	if idx := strings.LastIndexAny(cut, " \t\n"); idx >= 0 {
		cut = cut[:idx]
	} else if room < len(chunk) {
		cut = "" // no safe cut point, drop the partial word
	}
	b.WriteString(strings.TrimRight(cut, " \t\n"))
	b.WriteString(ellipsis)
	return b.String()
}

// protectedSpans returns merged, sorted [start,end) byte ranges that must not
// be split: code fences, markdown links/images and raw image URLs.
func protectedSpans(text string) [][2]int {
	var spans [][2]int

	// code fences, opening ``` to closing ``` inclusive
	fenceStart := -1
	offset := 0
	for _, line := range strings.SplitAfter(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			if fenceStart < 0 {
				fenceStart = offset
			} else {
				spans = append(spans, [2]int{fenceStart, offset + len(line)})
				fenceStart = -1
			}
		}
		offset += len(line)
	}
	if fenceStart >= 0 { // unterminated fence protects to the end
		spans = append(spans, [2]int{fenceStart, len(text)})
	}

	for _, m := range mdLinkRE.FindAllStringIndex(text, -1) {
		spans = append(spans, [2]int{m[0], m[1]})
	}
	for _, m := range bareImgRE.FindAllStringIndex(text, -1) {
		spans = append(spans, [2]int{m[0], m[1]})
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i][0] < spans[j][0] })

	// merge overlaps, fences can contain links
	merged := spans[:0]
	for _, sp := range spans {
		if len(merged) > 0 && sp[0] < merged[len(merged)-1][1] {
			if sp[1] > merged[len(merged)-1][1] {
				merged[len(merged)-1][1] = sp[1]
			}
			continue
		}
		merged = append(merged, sp)
	}
	return merged
}

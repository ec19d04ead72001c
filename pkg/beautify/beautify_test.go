package beautify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_NoiseStrip(t *testing.T) {
	n := New(Options{})

	res := n.Normalize("Alert", "disk full 🔥 on nas01\nSent from my iPhone\nthis is an automated message\ncheck /var/log")
	assert.Equal(t, "disk full  on nas01\ncheck /var/log", res.CleanText)
}

func TestNormalize_WhitespaceCollapse(t *testing.T) {
	n := New(Options{})

	res := n.Normalize("t", "line one   \n\n\n\n\nline two\t\n\n\nline three\n\n")
	assert.Equal(t, "line one\n\nline two\n\nline three", res.CleanText)
}

func TestNormalize_ImageHarvest(t *testing.T) {
	n := New(Options{})

	t.Run("markdown image with alt", func(t *testing.T) {
		res := n.Normalize("t", "new episode ![poster](https://example.com/ep.png) out now")
		assert.Equal(t, "new episode [image: poster] out now", res.CleanText)
		require.Len(t, res.Images, 1)
		assert.Equal(t, "https://example.com/ep.png", res.Images[0])
		assert.Equal(t, "poster", res.ImageAlts[0])
	})

	t.Run("markdown image without alt", func(t *testing.T) {
		res := n.Normalize("t", "look ![](https://example.com/x.jpg)")
		assert.Equal(t, "look [image]", res.CleanText)
		require.Len(t, res.Images, 1)
	})

	t.Run("bare url with query string", func(t *testing.T) {
		res := n.Normalize("t", "see https://cdn.example.com/shot.jpeg?w=800&h=600 here")
		assert.Equal(t, "see [image] here", res.CleanText)
		require.Len(t, res.Images, 1)
		assert.Equal(t, "https://cdn.example.com/shot.jpeg?w=800&h=600", res.Images[0])
	})

	t.Run("poster hosts sort first", func(t *testing.T) {
		body := "a https://random.host/one.png b https://image.tmdb.org/t/p/poster.jpg c"
		res := n.Normalize("t", body)
		require.Len(t, res.Images, 2)
		assert.Equal(t, "https://image.tmdb.org/t/p/poster.jpg", res.Images[0])
		assert.Equal(t, "https://random.host/one.png", res.Images[1])
	})

	t.Run("duplicate urls collected once", func(t *testing.T) {
		body := "x https://h.io/a.png y https://h.io/a.png z"
		res := n.Normalize("t", body)
		assert.Len(t, res.Images, 1)
		assert.Equal(t, "x [image] y [image] z", res.CleanText)
	})
}

func TestNormalize_LineDedup(t *testing.T) {
	n := New(Options{})

	t.Run("case folded whitespace normalized key", func(t *testing.T) {
		res := n.Normalize("t", "Backup done\nbackup   DONE\nBackup done\nnext line")
		assert.Equal(t, "Backup done\nnext line", res.CleanText)
	})

	t.Run("code fences pass verbatim", func(t *testing.T) {
		body := "result\n```\nsame line\nsame line\n```\nresult"
		res := n.Normalize("t", body)
		assert.Equal(t, "result\n```\nsame line\nsame line\n```", res.CleanText,
			"fence content keeps duplicates, outside dedup still applies")
	})

	t.Run("protected message block", func(t *testing.T) {
		n := New(Options{ProtectMessage: true})
		body := "intro\n**Message**\nrepeat me\nrepeat me\n# Next section\nrepeat me"
		res := n.Normalize("t", body)
		assert.Equal(t, "intro\n**Message**\nrepeat me\nrepeat me\n# Next section", res.CleanText,
			"block after marker kept verbatim until next header, dedup resumes after")
	})
}

func TestNormalize_Idempotence(t *testing.T) {
	inputs := []string{
		"hello 🔥 world\n\n\n\nrepeat\nrepeat\nSent from my phone",
		"pic ![a](https://x.io/a.png)\npic two https://x.io/b.jpg",
		"```\ncode\ncode\n```\ntext\ntext",
		strings.Repeat("long line with many words in it ", 200),
		"",
	}

	for _, in := range inputs {
		n := New(Options{})
		first := n.Normalize("t", in)
		second := n.Normalize("t", first.CleanText)
		assert.Equal(t, first.CleanText, second.CleanText, "normalize must be idempotent")
	}
}

func TestSafeTruncate(t *testing.T) {
	t.Run("under budget untouched", func(t *testing.T) {
		assert.Equal(t, "short text", safeTruncate("short text", 100))
	})

	t.Run("cut at whitespace with ellipsis", func(t *testing.T) {
		text := strings.Repeat("word ", 100)
		out := safeTruncate(text, 50)
		assert.LessOrEqual(t, len(out), 50+len(ellipsis))
		assert.True(t, strings.HasSuffix(out, ellipsis))
		assert.NotContains(t, out, "wor"+ellipsis, "no mid-word cut")
	})

	t.Run("code fence never split", func(t *testing.T) {
		fence := "```\n" + strings.Repeat("fenced content line\n", 30) + "```"
		text := "prefix\n" + fence + "\nsuffix that will not fit " + strings.Repeat("x ", 50)
		out := safeTruncate(text, 100)
		assert.Contains(t, out, fence, "fence kept whole even over budget")
	})

	t.Run("markdown link never split", func(t *testing.T) {
		link := "[release notes](https://example.com/releases/v2.4.1)"
		text := strings.Repeat("a ", 40) + link + strings.Repeat(" b", 40)
		out := safeTruncate(text, 90)
		if strings.Contains(out, "[release") {
			assert.Contains(t, out, link, "link is atomic")
		}
	})

	t.Run("oversized protected span alone", func(t *testing.T) {
		fence := "```\n" + strings.Repeat("data\n", 100) + "```"
		out := safeTruncate("x\n"+fence, 50)
		assert.Contains(t, out, fence)
	})
}

func TestNormalize_StepFailureFallsThrough(t *testing.T) {
	// normalize must never panic to the caller regardless of input shape
	n := New(Options{})
	inputs := []string{"\x00\xff broken \xfe utf8", "```\nunterminated fence", "![([]("}
	for _, in := range inputs {
		assert.NotPanics(t, func() { n.Normalize("t", in) })
	}
}

func TestFacts(t *testing.T) {
	t.Run("extracts numbers hosts and paths", func(t *testing.T) {
		facts := Facts("backup of nas01.local finished in 42 min, wrote /mnt/backup/2025")
		assert.Contains(t, facts, "42")
		assert.Contains(t, facts, "nas01.local")
		assert.Contains(t, facts, "/mnt/backup/2025")
	})

	t.Run("order insensitive", func(t *testing.T) {
		a := Facts("42 errors on nas01.local")
		b := Facts("nas01.local reported errors: 42")
		assert.True(t, SameFacts(a, b))
	})

	t.Run("diverging facts detected", func(t *testing.T) {
		a := Facts("42 errors")
		b := Facts("43 errors")
		assert.False(t, SameFacts(a, b))
	})
}

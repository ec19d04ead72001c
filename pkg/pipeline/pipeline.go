package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/notigate/pkg/beautify"
	"github.com/umputun/notigate/pkg/domain"
	"github.com/umputun/notigate/pkg/store"
)

//go:generate moq -out mocks/enricher.go -pkg mocks -skip-ensure -fmt goimports . Enricher
//go:generate moq -out mocks/poster.go -pkg mocks -skip-ensure -fmt goimports . Poster
//go:generate moq -out mocks/saver.go -pkg mocks -skip-ensure -fmt goimports . Saver

// Engine applies filtering rules to a message
type Engine interface {
	Apply(title, message string, priority int) domain.Outcome
}

// Deduper tracks recently posted messages
type Deduper interface {
	IsRecentlyPosted(title, message string) bool
	MarkPosted(title, message string)
}

// Quieter suppresses low-priority messages during quiet hours
type Quieter interface {
	Suppressed(t time.Time, priority int) bool
}

// Enricher is the LLM worker surface the pipeline needs
type Enricher interface {
	Ready() bool
	Start(ctx context.Context) error
	Generate(ctx context.Context, prompt string) (string, error)
}

// Poster delivers processed messages to the upstream gateway
type Poster interface {
	Post(ctx context.Context, title, message string, priority int) error
	Delete(ctx context.Context, id int64) error
	CanDelete() bool
}

// Saver persists delivered messages to the local inbox
type Saver interface {
	Save(ctx context.Context, msg *store.Message) error
}

// Config holds pipeline settings
type Config struct {
	Enrich            bool
	Mood              string // tone hint for the rewrite prompt
	MaxLines          int    // final line cap, default 30
	MaxChars          int    // final char cap, default 4000
	DeleteAfterRepost bool   // replace instead of duplicate when admin token allows
}

// Pipeline runs each intercepted message through dedup, quiet hours, rules,
// normalization, optional enrichment and egress. Per-message failures are
// logged and absorbed; a bad message never takes down an intake loop.
type Pipeline struct {
	cfg        Config
	dedup      Deduper
	quiet      Quieter
	engine     Engine
	normalizer *beautify.Normalizer
	enricher   Enricher
	poster     Poster
	saver      Saver
	nowFn      func() time.Time

	restartMu   sync.Mutex // guards the worker restart throttle
	lastRestart time.Time
}

// a dead worker is respawned at most once per window, messages in between
// pass through unenriched
const enricherRestartEvery = 30 * time.Second

// New creates a pipeline. Saver may be nil when inbox persistence is off.
func New(cfg Config, dedup Deduper, quiet Quieter, engine Engine, normalizer *beautify.Normalizer,
	enricher Enricher, poster Poster, saver Saver) *Pipeline {
	if cfg.MaxLines == 0 {
		cfg.MaxLines = 30
	}
	if cfg.MaxChars == 0 {
		cfg.MaxChars = 4000
	}
	return &Pipeline{
		cfg:        cfg,
		dedup:      dedup,
		quiet:      quiet,
		engine:     engine,
		normalizer: normalizer,
		enricher:   enricher,
		poster:     poster,
		saver:      saver,
		nowFn:      time.Now,
	}
}

// Process runs one message through the full chain. Returns an error only for
// egress delivery failure; every suppression path is a silent nil.
func (p *Pipeline) Process(ctx context.Context, msg domain.Message) error {
	if p.dedup.IsRecentlyPosted(msg.Title, msg.Body) {
		lgr.Printf("[DEBUG] pipeline: duplicate dropped, title=%q source=%s", msg.Title, msg.Source)
		return nil
	}

	if p.quiet != nil && p.quiet.Suppressed(p.nowFn(), msg.Priority) {
		lgr.Printf("[DEBUG] pipeline: quiet hours, suppressed title=%q priority=%d", msg.Title, msg.Priority)
		return nil
	}

	outcome := p.engine.Apply(msg.Title, msg.Body, msg.Priority)
	if outcome.Kind == domain.OutcomeSuppressed {
		lgr.Printf("[INFO] pipeline: rule suppressed title=%q source=%s", msg.Title, msg.Source)
		return nil
	}

	title, priority := msg.Title, msg.Priority
	if outcome.Kind == domain.OutcomeReposted {
		title, priority = outcome.Title, outcome.Priority
	}

	norm := p.normalizer.Normalize(title, msg.Body)
	text := norm.CleanText

	enriched := false
	if p.cfg.Enrich && p.enricher != nil {
		if !p.enricher.Ready() {
			p.reviveEnricher(ctx)
		}
		if p.enricher.Ready() {
			if rewritten, ok := p.enrich(ctx, title, norm); ok {
				text = rewritten
				enriched = true
			}
		}
	}

	text = appendImages(text, norm.Images)
	text = applyCaps(text, p.cfg.MaxLines, p.cfg.MaxChars)

	if err := p.poster.Post(ctx, title, text, priority); err != nil {
		return fmt.Errorf("post message: %w", err)
	}

	// the incoming pair catches producer retries, the final pair catches the
	// copy echoed back on the gateway stream
	p.dedup.MarkPosted(msg.Title, msg.Body)
	if title != msg.Title || text != msg.Body {
		p.dedup.MarkPosted(title, text)
	}

	if p.saver != nil {
		rec := store.Message{App: msg.App, Title: title, Body: text, Priority: priority}
		if err := p.saver.Save(ctx, &rec); err != nil {
			lgr.Printf("[WARN] pipeline: save to inbox failed: %v", err)
		}
	}

	// replace semantics: drop the original from the gateway once the
	// processed copy is delivered
	if outcome.Kind == domain.OutcomeReposted && p.cfg.DeleteAfterRepost &&
		msg.Source == domain.SourceStream && msg.ID != 0 && p.poster.CanDelete() {
		if err := p.poster.Delete(ctx, msg.ID); err != nil {
			lgr.Printf("[WARN] pipeline: delete original %d failed: %v", msg.ID, err)
		}
	}

	lgr.Printf("[INFO] pipeline: posted title=%q priority=%d enriched=%v source=%s", title, priority, enriched, msg.Source)
	return nil
}

// reviveEnricher respawns a crashed or never-started worker so a child death
// degrades enrichment only until the next attempt, not for the rest of the
// process lifetime
func (p *Pipeline) reviveEnricher(ctx context.Context) {
	p.restartMu.Lock()
	if !p.lastRestart.IsZero() && p.nowFn().Sub(p.lastRestart) < enricherRestartEvery {
		p.restartMu.Unlock()
		return
	}
	p.lastRestart = p.nowFn()
	p.restartMu.Unlock()

	if err := p.enricher.Start(ctx); err != nil {
		lgr.Printf("[WARN] pipeline: worker restart failed: %v", err)
	}
}

// enrich asks the worker to rewrite the normalized text and verifies the
// rewrite kept every number, host and path intact. A rewrite that changes the
// facts fingerprint is hallucination and gets discarded.
func (p *Pipeline) enrich(ctx context.Context, title string, norm domain.Normalized) (string, bool) {
	prompt := buildPrompt(title, norm.CleanText, p.cfg.Mood)

	rewritten, err := p.enricher.Generate(ctx, prompt)
	if err != nil {
		lgr.Printf("[WARN] pipeline: enrichment failed, using normalized text: %v", err)
		return "", false
	}
	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" {
		return "", false
	}

	// fingerprint covers title and text, same as the normalizer computes it
	if !beautify.SameFacts(norm.Facts, beautify.Facts(title+"\n"+rewritten)) {
		lgr.Printf("[WARN] pipeline: enrichment dropped, rewrite altered facts for title=%q", title)
		return "", false
	}
	return rewritten, true
}

func buildPrompt(title, text, mood string) string {
	var b strings.Builder
	b.WriteString("Rewrite the notification below as a short, clear message.\n")
	b.WriteString("Keep every number, hostname and file path exactly as written. Do not invent details.\n")
	if mood != "" {
		fmt.Fprintf(&b, "Tone: %s.\n", mood)
	}
	fmt.Fprintf(&b, "\nTitle: %s\n\n%s", title, text)
	return b.String()
}

// appendImages puts harvested image URLs back at the end of the message so
// gateway clients can render them
func appendImages(text string, images []string) string {
	if len(images) == 0 {
		return text
	}
	const maxImages = 3
	if len(images) > maxImages {
		images = images[:maxImages]
	}
	return strings.TrimRight(text, "\n") + "\n\n" + strings.Join(images, "\n")
}

// applyCaps enforces the final line and char limits regardless of which path
// produced the text
func applyCaps(text string, maxLines, maxChars int) string {
	lines := strings.Split(text, "\n")
	if len(lines) > maxLines {
		lines = lines[:maxLines]
		text = strings.Join(lines, "\n")
	}

	if len(text) <= maxChars {
		return text
	}

	const ellipsis = "…"
	cut := maxChars - len(ellipsis)
	if cut < 0 {
		cut = 0
	}
	truncated := text[:cut]
	for len(truncated) > 0 { // back off a split rune
		if r, size := utf8.DecodeLastRuneInString(truncated); r != utf8.RuneError || size != 1 {
			break
		}
		truncated = truncated[:len(truncated)-1]
	}
	if idx := strings.LastIndexAny(truncated, " \n\t"); idx > 0 {
		truncated = truncated[:idx]
	}
	return strings.TrimRight(truncated, " \n\t") + ellipsis
}

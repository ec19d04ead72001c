package intake

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/mmcdole/gofeed"

	"github.com/umputun/notigate/pkg/domain"
)

// FeedSource is one RSS/Atom producer
type FeedSource struct {
	Name string
	URL  string
}

// FeedConfig holds feed poller settings
type FeedConfig struct {
	Feeds    []FeedSource
	Interval time.Duration // default 5m
	Timeout  time.Duration // per-feed fetch timeout, default 30s
	Priority int           // priority assigned to feed messages, default 4
}

// FeedPoller converts new feed entries into messages. The first successful
// poll of each feed only seeds the seen set, so a restart does not replay
// the whole backlog.
type FeedPoller struct {
	cfg       FeedConfig
	parser    *gofeed.Parser
	processor Processor

	mu     sync.Mutex
	seen   map[string]struct{}
	primed map[string]bool // feed name -> first poll done
}

// NewFeedPoller creates a feed poller feeding the processor
func NewFeedPoller(cfg FeedConfig, processor Processor) *FeedPoller {
	if cfg.Interval == 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Priority == 0 {
		cfg.Priority = 4
	}
	return &FeedPoller{
		cfg:       cfg,
		parser:    gofeed.NewParser(),
		processor: processor,
		seen:      make(map[string]struct{}),
		primed:    make(map[string]bool),
	}
}

// Run polls all feeds on the configured interval until ctx is canceled
func (p *FeedPoller) Run(ctx context.Context) error {
	lgr.Printf("[INFO] feed poller started, %d feeds, interval %v", len(p.cfg.Feeds), p.cfg.Interval)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			lgr.Printf("[INFO] feed poller stopped")
			return ctx.Err()
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// Poll runs one pass over all configured feeds
func (p *FeedPoller) Poll(ctx context.Context) {
	for _, src := range p.cfg.Feeds {
		if err := p.pollFeed(ctx, src); err != nil {
			lgr.Printf("[WARN] feed %s: %v", src.Name, err)
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// pollFeed fetches one feed and emits messages for unseen entries
func (p *FeedPoller) pollFeed(ctx context.Context, src FeedSource) error {
	fetchCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	feed, err := p.parser.ParseURLWithContext(src.URL, fetchCtx)
	if err != nil {
		return fmt.Errorf("parse feed %s: %w", src.URL, err)
	}

	p.mu.Lock()
	priming := !p.primed[src.Name]
	p.primed[src.Name] = true
	p.mu.Unlock()

	emitted := 0
	for _, item := range feed.Items {
		guid := item.GUID
		if guid == "" {
			guid = item.Link
		}
		if guid == "" {
			guid = fmt.Sprintf("%s-%s", src.Name, item.Title)
		}
		key := src.Name + "|" + guid

		p.mu.Lock()
		_, dup := p.seen[key]
		p.seen[key] = struct{}{}
		p.mu.Unlock()
		if dup || priming {
			continue
		}

		body := item.Description
		if body == "" {
			body = item.Content
		}

		msg := domain.Message{
			Title:     item.Title,
			Body:      Sanitize(body),
			Priority:  p.cfg.Priority,
			App:       src.Name,
			Source:    domain.SourceFeed,
			Timestamp: time.Now(),
		}
		if item.PublishedParsed != nil {
			msg.Timestamp = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			msg.Timestamp = *item.UpdatedParsed
		}

		if err := p.processor.Process(ctx, msg); err != nil {
			lgr.Printf("[WARN] feed %s: process entry %q failed: %v", src.Name, item.Title, err)
			continue
		}
		emitted++
	}

	if priming {
		lgr.Printf("[INFO] feed %s primed with %d entries", src.Name, len(feed.Items))
		return nil
	}
	if emitted > 0 {
		lgr.Printf("[DEBUG] feed %s emitted %d new entries", src.Name, emitted)
	}
	return nil
}

package sweeper

import (
	"context"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/notigate/pkg/store"
)

//go:generate moq -out mocks/store.go -pkg mocks -skip-ensure -fmt goimports . Store

// Store interface for sweeper operations
type Store interface {
	ListMessages(ctx context.Context, olderThanHours int) ([]store.Message, error)
	Delete(ctx context.Context, id int64) error
	TotalSizeMB(ctx context.Context) (float64, error)
}

// RetentionPolicy controls the simple age-based pruning pass
type RetentionPolicy struct {
	MaxAgeHours     int
	MinPriorityKeep int      // messages at or above this priority survive
	KeepApps        []string // messages from these apps survive
	DryRun          bool     // compute and log the deletion set, delete nothing
}

// ArchivePolicy is the tiered TTL lattice for long-term pruning. The longest
// matching tier wins: keep-apps over high-priority over default.
type ArchivePolicy struct {
	MaxStorageMB         float64 // 0 disables the size cap
	TTLDefaultHours      int
	TTLHighPriorityHours int
	TTLKeepAppsHours     int
	HighPriority         int // priority threshold for the high tier
	KeepApps             []string
}

// Config holds sweeper configuration
type Config struct {
	Retention         RetentionPolicy
	Archive           ArchivePolicy
	RetentionEnabled  bool
	ArchiveEnabled    bool
	RetentionInterval time.Duration // default 900s
	PruneInterval     time.Duration
}

// Sweeper periodically prunes persisted messages by age, priority and app
// allowlist. One instance per loop; a pass never runs concurrently with itself.
type Sweeper struct {
	store  Store
	cfg    Config
	nowFn  func() time.Time
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New creates a sweeper
func New(st Store, cfg Config) *Sweeper {
	if cfg.RetentionInterval == 0 {
		cfg.RetentionInterval = 900 * time.Second
	}
	if cfg.PruneInterval == 0 {
		cfg.PruneInterval = time.Hour
	}
	if cfg.Archive.HighPriority == 0 {
		cfg.Archive.HighPriority = 8
	}
	return &Sweeper{store: st, cfg: cfg, nowFn: time.Now}
}

// Start launches the enabled background loops
func (s *Sweeper) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	if s.cfg.RetentionEnabled {
		s.wg.Add(1)
		go s.loop(ctx, s.cfg.RetentionInterval, s.RetentionPass)
	}
	if s.cfg.ArchiveEnabled {
		s.wg.Add(1)
		go s.loop(ctx, s.cfg.PruneInterval, s.ArchivePass)
	}
	lgr.Printf("[INFO] sweeper started, retention=%v interval=%v, archive=%v prune-interval=%v",
		s.cfg.RetentionEnabled, s.cfg.RetentionInterval, s.cfg.ArchiveEnabled, s.cfg.PruneInterval)
}

// Stop gracefully stops the sweeper loops
func (s *Sweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	lgr.Printf("[INFO] sweeper stopped")
}

func (s *Sweeper) loop(ctx context.Context, interval time.Duration, pass func(context.Context) int) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pass(ctx)
		}
	}
}

// RetentionPass deletes messages older than MaxAgeHours unless kept by
// priority or app allowlist. Returns the number of messages deleted, or the
// size of the deletion set in dry-run mode.
func (s *Sweeper) RetentionPass(ctx context.Context) int {
	p := s.cfg.Retention
	if p.MaxAgeHours <= 0 {
		return 0
	}

	msgs, err := s.store.ListMessages(ctx, p.MaxAgeHours)
	if err != nil {
		lgr.Printf("[ERROR] retention: list messages failed: %v", err)
		return 0
	}

	deleted := 0
	for _, m := range msgs {
		if p.MinPriorityKeep > 0 && m.Priority >= p.MinPriorityKeep {
			continue
		}
		if inList(m.App, p.KeepApps) {
			continue
		}

		if p.DryRun {
			lgr.Printf("[INFO] retention dry-run: would delete message %d (app=%s, priority=%d, age=%v)",
				m.ID, m.App, m.Priority, s.nowFn().Sub(m.CreatedAt).Round(time.Hour))
			deleted++
			continue
		}

		if err := s.store.Delete(ctx, m.ID); err != nil {
			lgr.Printf("[WARN] retention: delete message %d failed: %v", m.ID, err)
			continue
		}
		deleted++
	}

	if deleted > 0 {
		lgr.Printf("[INFO] retention pass done, %d messages in deletion set (dry-run=%v)", deleted, p.DryRun)
	}
	return deleted
}

// ArchivePass prunes messages whose tier TTL elapsed, then enforces the
// storage cap with an oldest-first eviction independent of TTL.
func (s *Sweeper) ArchivePass(ctx context.Context) int {
	p := s.cfg.Archive
	if p.TTLDefaultHours <= 0 {
		return 0
	}

	msgs, err := s.store.ListMessages(ctx, 0)
	if err != nil {
		lgr.Printf("[ERROR] archive: list messages failed: %v", err)
		return 0
	}

	now := s.nowFn()
	deleted := 0
	remaining := msgs[:0]
	for _, m := range msgs {
		ttl := s.effectiveTTL(m)
		if now.Sub(m.CreatedAt) <= ttl {
			remaining = append(remaining, m)
			continue
		}
		if err := s.store.Delete(ctx, m.ID); err != nil {
			lgr.Printf("[WARN] archive: delete message %d failed: %v", m.ID, err)
			remaining = append(remaining, m)
			continue
		}
		deleted++
	}

	deleted += s.enforceSizeCap(ctx, remaining)

	if deleted > 0 {
		lgr.Printf("[INFO] archive pass done, %d messages pruned", deleted)
	}
	return deleted
}

// effectiveTTL picks the longest tier whose predicate matches the message
func (s *Sweeper) effectiveTTL(m store.Message) time.Duration {
	p := s.cfg.Archive
	ttlHours := p.TTLDefaultHours
	if m.Priority >= p.HighPriority && p.TTLHighPriorityHours > ttlHours {
		ttlHours = p.TTLHighPriorityHours
	}
	if inList(m.App, p.KeepApps) && p.TTLKeepAppsHours > ttlHours {
		ttlHours = p.TTLKeepAppsHours
	}
	return time.Duration(ttlHours) * time.Hour
}

// enforceSizeCap evicts oldest messages until total size fits the cap.
// Messages are already oldest-first from ListMessages.
func (s *Sweeper) enforceSizeCap(ctx context.Context, msgs []store.Message) int {
	if s.cfg.Archive.MaxStorageMB <= 0 {
		return 0
	}

	total, err := s.store.TotalSizeMB(ctx)
	if err != nil {
		lgr.Printf("[ERROR] archive: total size failed: %v", err)
		return 0
	}
	if total <= s.cfg.Archive.MaxStorageMB {
		return 0
	}

	lgr.Printf("[INFO] archive: storage %.1fMB over cap %.1fMB, evicting oldest",
		total, s.cfg.Archive.MaxStorageMB)

	deleted := 0
	for _, m := range msgs {
		if total <= s.cfg.Archive.MaxStorageMB {
			break
		}
		if err := s.store.Delete(ctx, m.ID); err != nil {
			lgr.Printf("[WARN] archive: evict message %d failed: %v", m.ID, err)
			continue
		}
		total -= float64(m.SizeBytes) / (1024 * 1024)
		deleted++
	}
	return deleted
}

func inList(s string, list []string) bool {
	for _, item := range list {
		if s == item {
			return true
		}
	}
	return false
}

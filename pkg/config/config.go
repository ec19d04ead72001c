package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/umputun/notigate/pkg/filter"
	"github.com/umputun/notigate/pkg/intake"
	"github.com/umputun/notigate/pkg/rules"
)

//go:generate go run ../../cmd/schema/main.go schema.json

// Config holds the application configuration
type Config struct {
	Server struct {
		Listen       string        `yaml:"listen" json:"listen" jsonschema:"default=:8080,description=HTTP server listen address"`
		Timeout      time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=HTTP server timeout"`
		WebhookToken string        `yaml:"webhook_token" json:"webhook_token" jsonschema:"description=Token required on webhook intake when set"`
		PageSize     int           `yaml:"page_size" json:"page_size" jsonschema:"default=50,description=Page size for the inbox API"`
	} `yaml:"server" json:"server" jsonschema:"description=Server configuration"`

	Database struct {
		DSN             string `yaml:"dsn" json:"dsn" jsonschema:"default=file:notigate.db?cache=shared&mode=rwc,description=Database connection string"`
		MaxOpenConns    int    `yaml:"max_open_conns" json:"max_open_conns" jsonschema:"default=10,description=Maximum number of open connections"`
		MaxIdleConns    int    `yaml:"max_idle_conns" json:"max_idle_conns" jsonschema:"default=5,description=Maximum number of idle connections"`
		ConnMaxLifetime int    `yaml:"conn_max_lifetime" json:"conn_max_lifetime" jsonschema:"default=3600,description=Connection maximum lifetime in seconds"`
	} `yaml:"database" json:"database" jsonschema:"description=Database configuration"`

	Upstream struct {
		URL        string        `yaml:"url" json:"url" jsonschema:"required,description=Push gateway base URL"`
		AppToken   string        `yaml:"app_token" json:"app_token" jsonschema:"required,description=Application token for posting messages"`
		AdminToken string        `yaml:"admin_token" json:"admin_token" jsonschema:"description=Admin token enabling replace semantics (delete originals)"`
		Timeout    time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=10s,description=Gateway request timeout"`
	} `yaml:"upstream" json:"upstream" jsonschema:"description=Upstream push gateway configuration"`

	Stream struct {
		Enabled      bool          `yaml:"enabled" json:"enabled" jsonschema:"default=false,description=Enable gateway stream intake"`
		URL          string        `yaml:"url" json:"url" jsonschema:"description=Websocket URL (derived from upstream.url when empty)"`
		ClientToken  string        `yaml:"client_token" json:"client_token" jsonschema:"description=Client token for the stream connection"`
		ReconnectMin time.Duration `yaml:"reconnect_min" json:"reconnect_min" jsonschema:"default=1s,description=Initial reconnect backoff"`
		ReconnectMax time.Duration `yaml:"reconnect_max" json:"reconnect_max" jsonschema:"default=30s,description=Reconnect backoff cap"`
		RateLimit    float64       `yaml:"rate_limit" json:"rate_limit" jsonschema:"description=Messages per second fed to the pipeline (0 unlimited)"`
		RateBurst    int           `yaml:"rate_burst" json:"rate_burst" jsonschema:"default=1,description=Rate limiter burst"`
	} `yaml:"stream" json:"stream" jsonschema:"description=Gateway stream intake configuration"`

	Feeds struct {
		Enabled  bool               `yaml:"enabled" json:"enabled" jsonschema:"default=false,description=Enable RSS/Atom feed intake"`
		Sources  []FeedSourceConfig `yaml:"sources" json:"sources" jsonschema:"description=Feed sources"`
		Interval time.Duration      `yaml:"interval" json:"interval" jsonschema:"default=5m,description=Poll interval"`
		Priority int                `yaml:"priority" json:"priority" jsonschema:"default=4,description=Priority assigned to feed messages"`
	} `yaml:"feeds" json:"feeds" jsonschema:"description=Feed intake configuration"`

	Dedup struct {
		Window   time.Duration `yaml:"window" json:"window" jsonschema:"default=5m,description=Duplicate suppression window"`
		Capacity int           `yaml:"capacity" json:"capacity" jsonschema:"default=200,description=Entries kept in the dedup ring"`
	} `yaml:"dedup" json:"dedup" jsonschema:"description=Duplicate suppression configuration"`

	Quiet struct {
		Hours       string `yaml:"hours" json:"hours" jsonschema:"description=Quiet window as HH-HH in 24h form; empty disables"`
		MinPriority int    `yaml:"min_priority" json:"min_priority" jsonschema:"default=9,description=Priority that always passes the quiet window"`
	} `yaml:"quiet" json:"quiet" jsonschema:"description=Quiet hours configuration"`

	Rules struct {
		File       string          `yaml:"file" json:"file" jsonschema:"description=YAML rules file path"`
		RaiseRegex []string        `yaml:"raise_regex" json:"raise_regex" jsonschema:"description=Patterns raising priority to at least 9"`
		LowerRegex []string        `yaml:"lower_regex" json:"lower_regex" jsonschema:"description=Patterns capping priority at 3"`
		TagRules   []rules.TagRule `yaml:"tag_rules" json:"tag_rules" jsonschema:"description=Cumulative title tag rules"`
	} `yaml:"rules" json:"rules" jsonschema:"description=Filtering rules configuration"`

	Retention struct {
		Enabled         bool          `yaml:"enabled" json:"enabled" jsonschema:"default=false,description=Enable the retention sweep"`
		MaxAgeHours     int           `yaml:"max_age_hours" json:"max_age_hours" jsonschema:"description=Delete messages older than this many hours"`
		MinPriorityKeep int           `yaml:"min_priority_keep" json:"min_priority_keep" jsonschema:"description=Messages at or above this priority survive"`
		KeepApps        []string      `yaml:"keep_apps" json:"keep_apps" jsonschema:"description=Apps whose messages survive"`
		DryRun          bool          `yaml:"dry_run" json:"dry_run" jsonschema:"default=false,description=Log the deletion set without deleting"`
		Interval        time.Duration `yaml:"interval" json:"interval" jsonschema:"default=15m,description=Retention pass interval"`
	} `yaml:"retention" json:"retention" jsonschema:"description=Retention sweep configuration"`

	Archive struct {
		Enabled              bool          `yaml:"enabled" json:"enabled" jsonschema:"default=false,description=Enable tiered TTL pruning"`
		MaxStorageMB         float64       `yaml:"max_storage_mb" json:"max_storage_mb" jsonschema:"description=Storage cap in MB (0 disables)"`
		TTLDefaultHours      int           `yaml:"ttl_default_hours" json:"ttl_default_hours" jsonschema:"default=168,description=Default message TTL"`
		TTLHighPriorityHours int           `yaml:"ttl_high_priority_hours" json:"ttl_high_priority_hours" jsonschema:"description=TTL for high-priority messages"`
		TTLKeepAppsHours     int           `yaml:"ttl_keep_apps_hours" json:"ttl_keep_apps_hours" jsonschema:"description=TTL for keep-list apps"`
		HighPriority         int           `yaml:"high_priority" json:"high_priority" jsonschema:"default=8,description=Priority threshold for the high tier"`
		KeepApps             []string      `yaml:"keep_apps" json:"keep_apps" jsonschema:"description=Apps on the long-TTL tier"`
		PruneInterval        time.Duration `yaml:"prune_interval" json:"prune_interval" jsonschema:"default=1h,description=Archive pass interval"`
	} `yaml:"archive" json:"archive" jsonschema:"description=Archive pruning configuration"`

	Worker struct {
		Enabled         bool          `yaml:"enabled" json:"enabled" jsonschema:"default=false,description=Enable the LLM worker child"`
		Binary          string        `yaml:"binary" json:"binary" jsonschema:"default=notigate-worker,description=Worker executable"`
		Args            []string      `yaml:"args" json:"args" jsonschema:"description=Extra worker arguments"`
		Model           string        `yaml:"model" json:"model" jsonschema:"description=Model name loaded into the worker"`
		CtxTokens       int           `yaml:"ctx_tokens" json:"ctx_tokens" jsonschema:"default=4096,description=Context window in tokens"`
		Threads         int           `yaml:"threads" json:"threads" jsonschema:"default=4,description=Inference threads"`
		PingTimeout     time.Duration `yaml:"ping_timeout" json:"ping_timeout" jsonschema:"default=5s,description=Ping timeout"`
		LoadTimeout     time.Duration `yaml:"load_timeout" json:"load_timeout" jsonschema:"default=60s,description=Model load timeout"`
		GenerateTimeout time.Duration `yaml:"generate_timeout" json:"generate_timeout" jsonschema:"default=30s,description=Generation timeout"`
	} `yaml:"worker" json:"worker" jsonschema:"description=LLM worker configuration"`

	Enrich struct {
		Enabled           bool   `yaml:"enabled" json:"enabled" jsonschema:"default=false,description=Enable LLM enrichment of messages"`
		Mood              string `yaml:"mood" json:"mood" jsonschema:"description=Tone hint for the rewrite prompt"`
		MaxLines          int    `yaml:"max_lines" json:"max_lines" jsonschema:"default=30,description=Final line cap"`
		MaxChars          int    `yaml:"max_chars" json:"max_chars" jsonschema:"default=4000,description=Final char cap"`
		Budget            int    `yaml:"budget" json:"budget" jsonschema:"default=3500,description=Normalizer truncation budget"`
		ProtectMessage    bool   `yaml:"protect_message" json:"protect_message" jsonschema:"default=false,description=Pass a Message-marked block through untouched"`
		DeleteAfterRepost bool   `yaml:"delete_after_repost" json:"delete_after_repost" jsonschema:"default=false,description=Delete the original after reposting (needs admin token)"`
	} `yaml:"enrich" json:"enrich" jsonschema:"description=Message processing configuration"`
}

// FeedSourceConfig is one RSS/Atom producer entry
type FeedSourceConfig struct {
	Name string `yaml:"name" json:"name" jsonschema:"required,description=Source name used as the app field"`
	URL  string `yaml:"url" json:"url" jsonschema:"required,description=Feed URL"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	setDefaults(&cfg)

	// validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	// verify against embedded schema
	if err := VerifyAgainstEmbeddedSchema(&cfg); err != nil {
		// log warning but don't fail - schema validation is supplementary
		fmt.Printf("warning: schema validation failed: %v\n", err)
	}

	return &cfg, nil
}

func setDefaults(cfg *Config) {
	// server
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8080"
	}
	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = 30 * time.Second
	}
	if cfg.Server.PageSize == 0 {
		cfg.Server.PageSize = 50
	}

	// database
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "file:notigate.db?cache=shared&mode=rwc&_txlock=immediate"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 3600
	}

	// upstream
	if cfg.Upstream.Timeout == 0 {
		cfg.Upstream.Timeout = 10 * time.Second
	}

	// stream
	if cfg.Stream.ReconnectMin == 0 {
		cfg.Stream.ReconnectMin = time.Second
	}
	if cfg.Stream.ReconnectMax == 0 {
		cfg.Stream.ReconnectMax = 30 * time.Second
	}
	if cfg.Stream.RateBurst == 0 {
		cfg.Stream.RateBurst = 1
	}

	// feeds
	if cfg.Feeds.Interval == 0 {
		cfg.Feeds.Interval = 5 * time.Minute
	}
	if cfg.Feeds.Priority == 0 {
		cfg.Feeds.Priority = 4
	}

	// filters
	if cfg.Dedup.Window == 0 {
		cfg.Dedup.Window = 5 * time.Minute
	}
	if cfg.Dedup.Capacity == 0 {
		cfg.Dedup.Capacity = 200
	}
	if cfg.Quiet.MinPriority == 0 {
		cfg.Quiet.MinPriority = 9
	}

	// sweeps
	if cfg.Retention.Interval == 0 {
		cfg.Retention.Interval = 15 * time.Minute
	}
	if cfg.Archive.TTLDefaultHours == 0 {
		cfg.Archive.TTLDefaultHours = 168
	}
	if cfg.Archive.HighPriority == 0 {
		cfg.Archive.HighPriority = 8
	}
	if cfg.Archive.PruneInterval == 0 {
		cfg.Archive.PruneInterval = time.Hour
	}

	// worker
	if cfg.Worker.Binary == "" {
		cfg.Worker.Binary = "notigate-worker"
	}
	if cfg.Worker.CtxTokens == 0 {
		cfg.Worker.CtxTokens = 4096
	}
	if cfg.Worker.Threads == 0 {
		cfg.Worker.Threads = 4
	}
	if cfg.Worker.PingTimeout == 0 {
		cfg.Worker.PingTimeout = 5 * time.Second
	}
	if cfg.Worker.LoadTimeout == 0 {
		cfg.Worker.LoadTimeout = 60 * time.Second
	}
	if cfg.Worker.GenerateTimeout == 0 {
		cfg.Worker.GenerateTimeout = 30 * time.Second
	}

	// processing
	if cfg.Enrich.MaxLines == 0 {
		cfg.Enrich.MaxLines = 30
	}
	if cfg.Enrich.MaxChars == 0 {
		cfg.Enrich.MaxChars = 4000
	}
	if cfg.Enrich.Budget == 0 {
		cfg.Enrich.Budget = 3500
	}
}

// validate checks configuration for correctness
func validate(cfg *Config) error {
	if cfg.Upstream.URL == "" {
		return fmt.Errorf("upstream.url is required")
	}
	if cfg.Upstream.AppToken == "" {
		return fmt.Errorf("upstream.app_token is required")
	}

	if cfg.Server.Timeout < time.Second {
		return fmt.Errorf("server timeout must be at least 1 second")
	}

	if _, err := filter.ParseQuietHours(cfg.Quiet.Hours, cfg.Quiet.MinPriority); err != nil {
		return fmt.Errorf("quiet hours: %w", err)
	}

	if cfg.Stream.Enabled && cfg.Stream.ClientToken == "" {
		return fmt.Errorf("stream.client_token is required when stream intake is enabled")
	}

	if cfg.Feeds.Enabled && len(cfg.Feeds.Sources) == 0 {
		return fmt.Errorf("feeds.sources is required when feed intake is enabled")
	}
	for _, src := range cfg.Feeds.Sources {
		if src.Name == "" || src.URL == "" {
			return fmt.Errorf("feed source needs both name and url")
		}
	}

	if cfg.Retention.Enabled && cfg.Retention.MaxAgeHours <= 0 {
		return fmt.Errorf("retention.max_age_hours must be positive when retention is enabled")
	}

	if cfg.Worker.Enabled && cfg.Worker.Model == "" {
		return fmt.Errorf("worker.model is required when the worker is enabled")
	}
	if cfg.Enrich.Enabled && !cfg.Worker.Enabled {
		return fmt.Errorf("enrich requires the worker to be enabled")
	}

	if cfg.Enrich.DeleteAfterRepost && cfg.Upstream.AdminToken == "" {
		return fmt.Errorf("enrich.delete_after_repost requires upstream.admin_token")
	}

	return nil
}

// GetServerConfig returns server configuration
func (c *Config) GetServerConfig() (listen string, timeout time.Duration) {
	return c.Server.Listen, c.Server.Timeout
}

// GetFeeds returns the configured feed sources in intake form
func (c *Config) GetFeeds() []intake.FeedSource {
	res := make([]intake.FeedSource, 0, len(c.Feeds.Sources))
	for _, src := range c.Feeds.Sources {
		res = append(res, intake.FeedSource{Name: src.Name, URL: src.URL})
	}
	return res
}

// StreamURL returns the websocket URL, derived from the upstream base when
// not set explicitly
func (c *Config) StreamURL() string {
	if c.Stream.URL != "" {
		return c.Stream.URL
	}
	u := c.Upstream.URL
	switch {
	case strings.HasPrefix(u, "https://"):
		return "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		return "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u
}

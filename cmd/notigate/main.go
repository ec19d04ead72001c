package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/umputun/notigate/pkg/beautify"
	"github.com/umputun/notigate/pkg/config"
	"github.com/umputun/notigate/pkg/egress"
	"github.com/umputun/notigate/pkg/filter"
	"github.com/umputun/notigate/pkg/intake"
	"github.com/umputun/notigate/pkg/pipeline"
	"github.com/umputun/notigate/pkg/rules"
	"github.com/umputun/notigate/pkg/store"
	"github.com/umputun/notigate/pkg/sweeper"
	"github.com/umputun/notigate/pkg/worker"
	"github.com/umputun/notigate/server"
)

// Opts with all CLI options
type Opts struct {
	Config string `short:"c" long:"config" env:"CONFIG" default:"config.yml" description:"config file"`
	Listen string `short:"l" long:"listen" env:"LISTEN" description:"listen address, overrides config"`

	// Common options
	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
	NoColor bool `long:"no-color" env:"NO_COLOR" description:"disable color output"`
}

var revision = "unknown"

func main() {
	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}

	setupLog(opts.Debug, opts.NoColor)

	log.Printf("[INFO] starting notigate version %s", revision)

	cfg, err := config.Load(opts.Config)
	if err != nil {
		log.Printf("[ERROR] can't load config: %v", err)
		os.Exit(1)
	}
	if opts.Listen != "" {
		cfg.Server.Listen = opts.Listen
	}

	// mask tokens in logs now that they are known
	setupLog(opts.Debug, opts.NoColor,
		cfg.Upstream.AppToken, cfg.Upstream.AdminToken, cfg.Stream.ClientToken, cfg.Server.WebhookToken)

	ctx, cancel := context.WithCancel(context.Background())

	// handle termination signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Print("[INFO] termination signal received")
		cancel()
	}()

	if err := run(ctx, cfg, opts.Debug); err != nil {
		log.Printf("[ERROR] notigate failed: %v", err)
		cancel()
		os.Exit(1)
	}
	cancel()

	log.Print("[INFO] shutdown complete")
}

// run wires all components and blocks until ctx is canceled
func run(ctx context.Context, cfg *config.Config, debug bool) error {
	st, err := store.New(store.Config{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetime) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Printf("[WARN] store close failed: %v", err)
		}
	}()

	poster := egress.New(egress.Config{
		BaseURL:    cfg.Upstream.URL,
		AppToken:   cfg.Upstream.AppToken,
		AdminToken: cfg.Upstream.AdminToken,
		Timeout:    cfg.Upstream.Timeout,
	})

	engine, err := makeEngine(cfg)
	if err != nil {
		return err
	}

	quiet, err := filter.ParseQuietHours(cfg.Quiet.Hours, cfg.Quiet.MinPriority)
	if err != nil {
		return fmt.Errorf("quiet hours: %w", err)
	}
	dedup := filter.NewDedup(cfg.Dedup.Window, cfg.Dedup.Capacity)

	var mgr *worker.Manager
	var enricher pipeline.Enricher
	var workerInfo server.WorkerInfo
	if cfg.Worker.Enabled {
		mgr = worker.NewManager(worker.Config{
			Binary:          cfg.Worker.Binary,
			Args:            cfg.Worker.Args,
			ModelPath:       cfg.Worker.Model,
			CtxTokens:       cfg.Worker.CtxTokens,
			Threads:         cfg.Worker.Threads,
			PingTimeout:     cfg.Worker.PingTimeout,
			LoadTimeout:     cfg.Worker.LoadTimeout,
			GenerateTimeout: cfg.Worker.GenerateTimeout,
		})
		if err := mgr.Start(ctx); err != nil {
			// enrichment degrades to pass-through until the next start attempt
			log.Printf("[WARN] worker start failed: %v", err)
		}
		defer mgr.Stop()
		enricher, workerInfo = mgr, mgr
	}

	normalizer := beautify.New(beautify.Options{
		Budget:         cfg.Enrich.Budget,
		ProtectMessage: cfg.Enrich.ProtectMessage,
	})

	pl := pipeline.New(pipeline.Config{
		Enrich:            cfg.Enrich.Enabled,
		Mood:              cfg.Enrich.Mood,
		MaxLines:          cfg.Enrich.MaxLines,
		MaxChars:          cfg.Enrich.MaxChars,
		DeleteAfterRepost: cfg.Enrich.DeleteAfterRepost,
	}, dedup, quiet, engine, normalizer, enricher, poster, st)

	sw := sweeper.New(st, sweeper.Config{
		Retention: sweeper.RetentionPolicy{
			MaxAgeHours:     cfg.Retention.MaxAgeHours,
			MinPriorityKeep: cfg.Retention.MinPriorityKeep,
			KeepApps:        cfg.Retention.KeepApps,
			DryRun:          cfg.Retention.DryRun,
		},
		Archive: sweeper.ArchivePolicy{
			MaxStorageMB:         cfg.Archive.MaxStorageMB,
			TTLDefaultHours:      cfg.Archive.TTLDefaultHours,
			TTLHighPriorityHours: cfg.Archive.TTLHighPriorityHours,
			TTLKeepAppsHours:     cfg.Archive.TTLKeepAppsHours,
			HighPriority:         cfg.Archive.HighPriority,
			KeepApps:             cfg.Archive.KeepApps,
		},
		RetentionEnabled:  cfg.Retention.Enabled,
		ArchiveEnabled:    cfg.Archive.Enabled,
		RetentionInterval: cfg.Retention.Interval,
		PruneInterval:     cfg.Archive.PruneInterval,
	})
	sw.Start(ctx)
	defer sw.Stop()

	srv := server.New(server.Config{
		Listen:       cfg.Server.Listen,
		Timeout:      cfg.Server.Timeout,
		WebhookToken: cfg.Server.WebhookToken,
		PageSize:     cfg.Server.PageSize,
		Version:      revision,
		Debug:        debug,
	}, pl, st, workerInfo)

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error { return srv.Run(gctx) })

	if cfg.Stream.Enabled {
		stream := intake.NewStream(intake.StreamConfig{
			URL:          cfg.StreamURL(),
			Token:        cfg.Stream.ClientToken,
			ReconnectMin: cfg.Stream.ReconnectMin,
			ReconnectMax: cfg.Stream.ReconnectMax,
			RateLimit:    rate.Limit(cfg.Stream.RateLimit),
			RateBurst:    cfg.Stream.RateBurst,
		}, pl)
		group.Go(func() error { return ignoreCanceled(stream.Run(gctx)) })
	}

	if cfg.Feeds.Enabled {
		poller := intake.NewFeedPoller(intake.FeedConfig{
			Feeds:    cfg.GetFeeds(),
			Interval: cfg.Feeds.Interval,
			Priority: cfg.Feeds.Priority,
		}, pl)
		group.Go(func() error { return ignoreCanceled(poller.Run(gctx)) })
	}

	return group.Wait()
}

// makeEngine builds the rule engine from the config and optional rules file
func makeEngine(cfg *config.Config) (*rules.Engine, error) {
	var ruleList []rules.Rule
	if cfg.Rules.File != "" {
		var err error
		if ruleList, err = rules.LoadRules(cfg.Rules.File); err != nil {
			return nil, fmt.Errorf("load rules: %w", err)
		}
		log.Printf("[INFO] loaded %d rules from %s", len(ruleList), cfg.Rules.File)
	}
	return rules.NewEngine(rules.Params{
		Rules:      ruleList,
		RaiseRegex: cfg.Rules.RaiseRegex,
		LowerRegex: cfg.Rules.LowerRegex,
		TagRules:   cfg.Rules.TagRules,
	}), nil
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func setupLog(dbg, noColor bool, secs ...string) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.CallerFile, lgr.CallerFunc, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	if !noColor {
		colorizer := lgr.Mapper{
			ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
			WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
			InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
			DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
			CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
			TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
		}
		logOpts = append(logOpts, lgr.Map(colorizer))
	}

	for _, s := range secs {
		if s != "" {
			logOpts = append(logOpts, lgr.Secret(s))
		}
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}

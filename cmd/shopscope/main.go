package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"

	"github.com/shopscope/shopscope/pkg/aggregator"
	"github.com/shopscope/shopscope/pkg/config"
	"github.com/shopscope/shopscope/pkg/db"
	"github.com/shopscope/shopscope/pkg/feedback"
	"github.com/shopscope/shopscope/pkg/llm"
	"github.com/shopscope/shopscope/pkg/service"
	"github.com/shopscope/shopscope/pkg/source"
	"github.com/shopscope/shopscope/pkg/source/rssfeed"
	"github.com/shopscope/shopscope/server"
)

// Opts with all CLI options
type Opts struct {
	Config string `short:"f" long:"config" env:"CONFIG" default:"config.yml" description:"config file path"`
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

	lgr.Printf("[INFO] starting shopscope version %s", revision)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// handle termination signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		lgr.Printf("[INFO] termination signal received")
		cancel()
	}()

	if err := run(ctx, opts); err != nil {
		lgr.Printf("[ERROR] shopscope failed: %v", err)
		os.Exit(1)
	}

	lgr.Printf("[INFO] shutdown complete")
}

// run wires all components together and starts the server
func run(ctx context.Context, opts Opts) error {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if opts.Listen != "" {
		cfg.Server.Listen = opts.Listen
	}

	database, err := db.New(ctx, db.Config{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetime) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := database.Close(); closeErr != nil {
			lgr.Printf("[WARN] failed to close database: %v", closeErr)
		}
	}()

	fbManager := feedback.NewManager(database, cfg.Feedback.ProfileWindowDays, cfg.Feedback.TrendingWindowDays)

	registry := source.NewRegistry()
	for name, src := range cfg.Sources {
		if !src.Enabled {
			continue
		}
		registry.Register(rssfeed.New(name, src.Feeds, src.Timeout, src.UserAgent), src.CacheTTL)
		lgr.Printf("[INFO] registered source %s with %d feeds", name, len(src.Feeds))
	}
	if len(registry.Names()) == 0 {
		lgr.Printf("[WARN] no sources enabled, searches will return nothing")
	}

	agg := aggregator.New(aggregator.Config{
		Registry:         registry,
		Cache:            source.NewCache(),
		Limiter:          source.NewLimiter(cfg.RateLimit.Interval, cfg.RateLimit.Jitter),
		PerSourceTimeout: cfg.Search.PerSourceTimeout,
		PerSourceLimit:   cfg.Search.PerSourceLimit,
	})

	params := service.Params{
		Aggregator:    agg,
		Feedback:      fbManager,
		Preferences:   cfg.Preferences,
		PriceRanges:   cfg.PriceRanges,
		MaxResults:    cfg.Search.MaxResults,
		ViewRecordTop: cfg.Feedback.ViewRecordTop,
	}
	if cfg.RewriterEnabled() {
		params.Rewriter = llm.NewRewriter(cfg.GetLLMConfig())
		lgr.Printf("[INFO] llm query rewriter enabled, model %s", cfg.LLM.Model)
	}

	srv := server.New(cfg, service.NewSearch(params), revision, opts.Debug)
	return srv.Run(ctx)
}

func setupLog(dbg, noColor bool, secs ...string) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces}
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

	if len(secs) > 0 {
		logOpts = append(logOpts, lgr.Secret(secs...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}

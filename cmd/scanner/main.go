package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/koiX69420/scanner-sub000/pkg/analyzer"
	"github.com/koiX69420/scanner-sub000/pkg/budget"
	"github.com/koiX69420/scanner-sub000/pkg/cache"
	"github.com/koiX69420/scanner-sub000/pkg/config"
	"github.com/koiX69420/scanner-sub000/pkg/gateway"
	"github.com/koiX69420/scanner-sub000/pkg/queue"
	"github.com/koiX69420/scanner-sub000/pkg/report"
	"github.com/koiX69420/scanner-sub000/pkg/scanner"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).With().Timestamp().Logger()

	modeFlag := flag.String("mode", string(config.ModeQuick), "analysis depth: quick or deep")
	userFlag := flag.String("user", "cli", "caller id for the per-user cooldown")
	watchFlag := flag.Duration("watch", 0, "re-run the analysis on this interval (0 = once)")
	verboseFlag := flag.Bool("v", false, "debug logging")
	flag.Parse()

	if *verboseFlag {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	mints := flag.Args()
	if len(mints) == 0 {
		fmt.Fprintln(os.Stderr, "usage: scanner [-mode quick|deep] [-watch 30s] <token-address> [more...]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config invalid")
	}

	gw := gateway.New(cfg)
	sc := scanner.New(cfg, gw)
	bucket := budget.New(cfg.BudgetMaxPerMinute)
	q := queue.New(bucket, cfg.QueuePollInterval, cfg.UserCooldown)
	reportCache := cache.New(cfg.CacheTTL)
	svc := analyzer.New(cfg, sc, gw, reportCache, q, bucket)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() { <-sigCh; log.Info().Msg("shutting down..."); cancel() }()

	go func() { _ = bucket.Run(ctx) }()
	go func() { _ = q.Run(ctx) }()

	sweeper := cron.New()
	if _, err := sweeper.AddFunc(fmt.Sprintf("@every %s", cfg.SweepInterval), reportCache.Sweep); err != nil {
		log.Fatal().Err(err).Msg("sweep schedule invalid")
	}
	sweeper.Start()
	defer sweeper.Stop()

	mode := config.Mode(*modeFlag)
	analyzeAll(ctx, svc, cfg, mints, mode, *userFlag)

	if *watchFlag > 0 {
		t := time.NewTicker(*watchFlag)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				analyzeAll(ctx, svc, cfg, mints, mode, *userFlag)
			}
		}
	}
}

func analyzeAll(ctx context.Context, svc *analyzer.Service, cfg *config.Config, mints []string, mode config.Mode, user string) {
	for _, mint := range mints {
		res, err := svc.Analyze(ctx, mint, mode, user)
		if err != nil {
			if err == queue.ErrCooldown {
				log.Warn().Str("mint", mint).Msg("cooldown active, skipped")
				continue
			}
			log.Error().Err(err).Str("mint", mint).Msg("analysis failed")
			continue
		}
		report.Render(os.Stdout, res, cfg.FreshTxThreshold)
	}
}

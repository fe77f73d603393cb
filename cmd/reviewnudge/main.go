package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	githubadapter "github.com/ericfisherdev/reviewnudge/internal/adapter/driven/github"
	"github.com/ericfisherdev/reviewnudge/internal/adapter/driving/report"
	"github.com/ericfisherdev/reviewnudge/internal/application"
	"github.com/ericfisherdev/reviewnudge/internal/config"
	"github.com/ericfisherdev/reviewnudge/internal/domain/model"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	membersPath := flag.String("members", "", "path to the members roster (JSON or YAML); overrides REVIEWNUDGE_MEMBERS_FILE")
	formatName := flag.String("format", string(report.FormatMarkdown), "output format: markdown, json or html")
	outPath := flag.String("out", "", "write the digest to this file instead of stdout")
	dryRun := flag.Bool("dry-run", false, "tolerate quota and remote failures and mark the digest partial")
	envFile := flag.String("env-file", ".env", "optional .env file; never overrides variables already set")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	format, err := report.ParseFormat(*formatName)
	if err != nil {
		return err
	}

	// 1. Load configuration (fail fast on missing required env vars).
	if err := config.LoadDotEnv(*envFile); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.LogLevel, *verbose)

	if *membersPath != "" {
		cfg.MembersFile = *membersPath
	}
	members, err := config.LoadMembers(cfg.MembersFile)
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"members", len(members),
		"org", cfg.GitHubOrg,
		"since_days", cfg.SinceDays,
		"holiday_region", cfg.HolidayRegion,
		"batch_details", cfg.BatchDetails,
		"dry_run", *dryRun,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Wire the GitHub adapter and the staleness engine.
	client := githubadapter.NewClient(cfg.GitHubToken)

	calendar, err := application.NewBusinessCalendar(cfg.HolidayRegion, cfg.ExtraHolidays, cfg.Location)
	if err != nil {
		return err
	}
	engine := application.NewStalenessEngine(calendar, model.StalenessThresholds{
		FreshMaxDays:  cfg.FreshMaxDays,
		RottenMinDays: cfg.RottenMinDays,
	}, slog.Default())

	// 4. Run the pipeline.
	svc := application.NewDigestService(client, digestConfig(cfg), engine)
	digest, err := svc.Run(ctx, members, *dryRun)
	if err != nil {
		return err
	}

	// 5. Render.
	var out io.Writer = os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			return fmt.Errorf("creating %s: %w", *outPath, err)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil {
				slog.Error("error closing output file", "error", closeErr)
			}
		}()
		out = f
	}

	if err := report.Render(out, format, digest); err != nil {
		return fmt.Errorf("rendering digest: %w", err)
	}

	slog.Info("digest written",
		"run_id", digest.RunID,
		"shown", len(digest.Results),
		"truncated", digest.TruncatedCount,
		"partial", digest.Partial,
	)
	return nil
}

func digestConfig(cfg *config.Config) application.DigestConfig {
	return application.DigestConfig{
		Retry: application.RetryConfig{
			MaxRetries:  cfg.MaxRetries,
			BackoffBase: cfg.BackoffBase,
			MaxDelay:    cfg.WaitThreshold,
		},
		WaitThreshold: cfg.WaitThreshold,
		Search: application.SearchConfig{
			Org:    cfg.GitHubOrg,
			Limit:  cfg.SearchLimit,
			Pacing: cfg.Pacing,
		},
		Detail: application.DetailConfig{
			Batch:  cfg.BatchDetails,
			Pacing: cfg.Pacing,
		},
		SinceDays:     cfg.SinceDays,
		GroupSizeCap:  cfg.GroupSizeCap,
		DisplayBudget: cfg.DisplayBudget,
	}
}

func setupLogging(level string, verbose bool) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	githubadapter "github.com/ericfisherdev/reviewnudge/internal/adapter/driven/github"
	"github.com/ericfisherdev/reviewnudge/internal/application"
	"github.com/ericfisherdev/reviewnudge/internal/config"
)

// quotacheck exits 0 when a digest run could start now and 1 otherwise, so an external
// scheduler can skip or delay a run.
func main() {
	os.Exit(check())
}

func check() int {
	if err := config.LoadDotEnv(".env"); err != nil {
		slog.Error("loading .env", "error", err)
		return 1
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := githubadapter.NewClient(cfg.GitHubToken)
	guard := application.NewRateLimitGuard(client, cfg.WaitThreshold)

	run := application.NewRunContext(false)
	exec := application.NewRetryExecutor(application.RetryConfig{
		MaxRetries:  cfg.MaxRetries,
		BackoffBase: cfg.BackoffBase,
		MaxDelay:    cfg.WaitThreshold,
	}, run)

	state, err := guard.Check(ctx, run, exec)
	if err != nil {
		slog.Error("quota check failed", "error", err)
		return 1
	}

	decision, until := guard.Decide(state)
	fmt.Printf("decision=%s remaining=%d limit=%d reset_in=%s\n",
		decision, state.Remaining, state.Limit, until.Round(time.Second))

	if decision != application.QuotaProceed {
		return 1
	}
	return 0
}

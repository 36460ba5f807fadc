package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/noah-isme/campus-admin-agent/internal/agent"
	"github.com/noah-isme/campus-admin-agent/internal/app"
	"github.com/noah-isme/campus-admin-agent/internal/cli"
	"github.com/noah-isme/campus-admin-agent/internal/config"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		return 1
	}

	logger := app.NewLogger(os.Stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to start campus admin assistant")
		return 1
	}
	defer application.Close()

	profile, err := agent.LookupProfile(cfg.AgentProfile)
	if err != nil {
		logger.Error().Err(err).Msg("invalid agent profile")
		return 1
	}

	session := agent.NewSession(
		application.Runner,
		agent.NewInMemory(cfg.MemoryWindow),
		profile,
		agent.SessionKey("cli", uuid.NewString()),
		logger,
	)

	repl := cli.New(session, application.Registry.Tools(profile.Groups...), logger)
	if err := repl.Run(ctx, os.Stdin, os.Stdout); err != nil {
		logger.Error().Err(err).Msg("input stream failed")
		return 1
	}
	return 0
}

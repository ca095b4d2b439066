package main

import (
	"context"
	"os"

	"github.com/ivymeadows/finmirror/internal/provider"
	"github.com/ivymeadows/finmirror/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config.toml, using defaults", "error", err)
		}
	}

	var monarch provider.Provider
	if config.Provider.Token != "" {
		client, err := provider.NewClient(provider.ClientOpts{
			BaseURL:   config.Provider.BaseURL,
			Token:     config.Provider.Token,
			RateLimit: config.Provider.RateLimit,
		})
		if err != nil {
			logger.Warn("provider client unavailable", "error", err)
		} else {
			monarch = client
		}
	}

	runner := NewRunner(RunnerOpts{
		Config:   config,
		Provider: monarch,
		Logger:   logger,
	})

	app := &cli.Command{
		Name:     "finmirror",
		Usage:    "Mirror Monarch Money data into a local dashboard",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}

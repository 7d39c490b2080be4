// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// handset bridges a Telegram bot to a coding agent CLI running on this
// machine. Each authorized user gets a session with a working
// directory; messages start agent tasks whose progress is shown as a
// handful of continuously edited chat messages.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/handset/lib/config"
	"github.com/bureau-foundation/handset/lib/dispatch"
	"github.com/bureau-foundation/handset/lib/process"
	"github.com/bureau-foundation/handset/lib/session"
	"github.com/bureau-foundation/handset/lib/telegram"
	"github.com/bureau-foundation/handset/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var configPath string
	var verbose bool
	var showVersion bool

	flagSet := pflag.NewFlagSet("handset", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "config file (default: $"+config.EnvironmentVariable+")")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
	flagSet.BoolVar(&showVersion, "version", false, "print version and exit")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if showVersion {
		fmt.Println(version.Info())
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	level, _ := cfg.Logging.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	logger := newLogger(level)
	slog.SetDefault(logger)

	token, err := cfg.TakeToken()
	if err != nil {
		return err
	}
	defer token.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := telegram.NewClient(telegram.ClientConfig{
		APIURL: cfg.Telegram.APIURL,
		Token:  token,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	me, err := client.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("checking bot token: %w", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("finding home directory: %w", err)
	}
	bot, err := dispatch.New(dispatch.Config{
		Transport:     client,
		NewAgent:      agentFactory(cfg.Agent),
		AgentOptions:  agentOptions(cfg.Agent, logger),
		Registry:      session.NewRegistry(cfg.Agent.ProjectRoot, home),
		AllowedUsers:  cfg.Telegram.AllowedUsers,
		Home:          home,
		Summary:       summaryFunc(cfg.Agent, logger),
		TranscriptDir: cfg.Agent.TranscriptDir,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	defer bot.Close()

	poller := telegram.NewPoller(telegram.PollerConfig{
		Client:      client,
		Handler:     bot,
		PollTimeout: cfg.Telegram.PollTimeout,
		Logger:      logger,
	})

	logger.Info("handset started",
		"version", version.Info(),
		"bot", me.Username,
		"backend", cfg.Agent.Backend,
		"allowed_users", len(cfg.Telegram.AllowedUsers),
	)
	err = poller.Run(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info("shutting down")
		return nil
	}
	return err
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `handset - drive a local coding agent from Telegram

Usage:
  handset [--config FILE] [--verbose]

The config file is taken from --config or $%s.

Flags:
%s`, config.EnvironmentVariable, flagSet.FlagUsages())
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"log/slog"

	"github.com/bureau-foundation/handset/lib/agentdriver"
	"github.com/bureau-foundation/handset/lib/agentdriver/claude"
	"github.com/bureau-foundation/handset/lib/agentdriver/opencode"
	"github.com/bureau-foundation/handset/lib/config"
	"github.com/bureau-foundation/handset/lib/dispatch"
)

// agentFactory returns the constructor for the configured backend.
// Validate has already rejected unknown backends.
func agentFactory(cfg config.AgentConfig) dispatch.AgentFactory {
	if cfg.Backend == config.BackendOpenCode {
		return func(options agentdriver.Options) agentdriver.Agent { return opencode.New(options) }
	}
	return func(options agentdriver.Options) agentdriver.Agent { return claude.New(options) }
}

func agentOptions(cfg config.AgentConfig, logger *slog.Logger) agentdriver.Options {
	return agentdriver.Options{
		Binary:         cfg.Binary,
		PermissionMode: cfg.PermissionMode,
		ExtraEnv:       cfg.OriginEnv(),
		TurnTimeout:    cfg.TurnTimeout,
		Logger:         logger,
	}
}

// summaryFunc reads the last conversation summary from Claude Code's
// session logs. OpenCode keeps no comparable log, so it has none.
func summaryFunc(cfg config.AgentConfig, logger *slog.Logger) dispatch.SummaryFunc {
	if cfg.Backend != config.BackendClaude || cfg.ClaudeProjectsDir == "" {
		return nil
	}
	return func(cwd string) (string, bool) {
		summary, found, err := claude.LastSummary(cfg.ClaudeProjectsDir, cwd)
		if err != nil {
			logger.Debug("reading conversation summary failed", "directory", cwd, "error", err)
			return "", false
		}
		return summary, found
	}
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	if cfg.Agent.Backend != BackendClaude {
		t.Errorf("backend = %q, want claude", cfg.Agent.Backend)
	}
	if cfg.Telegram.PollTimeout != 30*time.Second {
		t.Errorf("poll_timeout = %v, want 30s", cfg.Telegram.PollTimeout)
	}
	if got := cfg.Agent.OriginEnv(); len(got) != 1 || got[0] != "HANDSET_ORIGIN=telegram" {
		t.Errorf("origin env = %q", got)
	}
}

func TestLoadFileYAML(t *testing.T) {
	t.Setenv("HANDSET_TEST_TOKEN", "123:abc")
	t.Setenv("HANDSET_TEST_ROOT", "")

	path := writeConfig(t, "handset.yaml", `
telegram:
  token: ${HANDSET_TEST_TOKEN}
  allowed_users: [12345, 678]
  poll_timeout: 45s
agent:
  backend: opencode
  project_root: ${HANDSET_TEST_ROOT:-~/src}
  turn_timeout: 2m
  transcript_dir: /var/log/handset
logging:
  level: debug
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.Telegram.Token != "123:abc" {
		t.Errorf("token = %q", cfg.Telegram.Token)
	}
	if len(cfg.Telegram.AllowedUsers) != 2 || cfg.Telegram.AllowedUsers[1] != 678 {
		t.Errorf("allowed_users = %v", cfg.Telegram.AllowedUsers)
	}
	if cfg.Telegram.PollTimeout != 45*time.Second {
		t.Errorf("poll_timeout = %v", cfg.Telegram.PollTimeout)
	}
	if cfg.Agent.Backend != BackendOpenCode || cfg.Agent.TurnTimeout != 2*time.Minute {
		t.Errorf("agent = %+v", cfg.Agent)
	}
	if cfg.Agent.ProjectRoot != "~/src" {
		t.Errorf("project_root = %q, want the default", cfg.Agent.ProjectRoot)
	}
	// Unset fields keep their defaults.
	if cfg.Agent.PermissionMode != "acceptEdits" || cfg.Telegram.APIURL != "https://api.telegram.org" {
		t.Errorf("defaults lost: %+v", cfg)
	}
	if level, _ := cfg.Logging.SlogLevel(); level != slog.LevelDebug {
		t.Errorf("level = %v", level)
	}
}

func TestLoadFileJSONC(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "handset.jsonc", `{
  // Bot connection.
  "telegram": {
    "token": "123:abc",
    "allowed_users": [1],
    "poll_timeout": "10s",
  },
  /* Agent. */
  "agent": {"backend": "claude", "binary": "/opt/claude/bin/claude"},
}`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Telegram.PollTimeout != 10*time.Second || cfg.Agent.Binary != "/opt/claude/bin/claude" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadFileExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := writeConfig(t, "handset.yaml", "agent:\n  transcript_dir: ~/transcripts\n")
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if want := filepath.Join(home, "transcripts"); cfg.Agent.TranscriptDir != want {
		t.Errorf("transcript_dir = %q, want %q", cfg.Agent.TranscriptDir, want)
	}
	if want := filepath.Join(home, ".claude", "projects"); cfg.Agent.ClaudeProjectsDir != want {
		t.Errorf("claude_projects_dir = %q, want %q", cfg.Agent.ClaudeProjectsDir, want)
	}
}

func TestLoadFileErrors(t *testing.T) {
	t.Parallel()

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file loaded")
	}
	path := writeConfig(t, "bad.yaml", "telegram: [unclosed\n")
	if _, err := LoadFile(path); err == nil || !strings.Contains(err.Error(), "parsing config") {
		t.Errorf("err = %v, want a parse error", err)
	}
}

func TestLoadRequiresEnvironmentVariable(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")

	_, err := Load()
	if err == nil || !strings.HasPrefix(err.Error(), "HANDSET_CONFIG environment variable not set") {
		t.Fatalf("err = %v", err)
	}
}

func TestLoadUsesEnvironmentVariable(t *testing.T) {
	path := writeConfig(t, "handset.yml", "telegram:\n  token: t\n  allowed_users: [5]\n")
	t.Setenv(EnvironmentVariable, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "t" {
		t.Errorf("token = %q", cfg.Telegram.Token)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		cfg := Default()
		cfg.Telegram.Token = "123:abc"
		cfg.Telegram.AllowedUsers = []int64{1}
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "no token", mutate: func(c *Config) { c.Telegram.Token = "" }, want: "telegram.token or telegram.token_file"},
		{name: "both tokens", mutate: func(c *Config) { c.Telegram.TokenFile = "/run/token" }, want: "mutually exclusive"},
		{name: "no users", mutate: func(c *Config) { c.Telegram.AllowedUsers = nil }, want: "telegram.allowed_users"},
		{name: "poll too long", mutate: func(c *Config) { c.Telegram.PollTimeout = time.Minute }, want: "telegram.poll_timeout"},
		{name: "unknown backend", mutate: func(c *Config) { c.Agent.Backend = "aider" }, want: "agent.backend"},
		{name: "negative turn timeout", mutate: func(c *Config) { c.Agent.TurnTimeout = -time.Second }, want: "agent.turn_timeout"},
		{name: "bad origin variable", mutate: func(c *Config) { c.Agent.OriginVariable = "A=B" }, want: "agent.origin_variable"},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "loud" }, want: "logging.level"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid()
			test.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), test.want) {
				t.Errorf("Validate = %v, want it to mention %q", err, test.want)
			}
		})
	}

	if err := valid().Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	cfg := valid()
	cfg.Telegram.AllowedUsers = nil
	cfg.Agent.Backend = ""
	if err := cfg.Validate(); err == nil || strings.Count(err.Error(), "\n") != 1 {
		t.Errorf("Validate = %v, want both problems reported", err)
	}
}

func TestTakeToken(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Telegram.Token = " 123:abc\n"
	buffer, err := cfg.TakeToken()
	if err != nil {
		t.Fatalf("TakeToken: %v", err)
	}
	defer buffer.Close()
	if buffer.String() != "123:abc" {
		t.Errorf("token = %q", buffer.String())
	}
	if cfg.Telegram.Token != "" {
		t.Error("config still holds the token")
	}

	fromFile := Default()
	fromFile.Telegram.TokenFile = writeConfig(t, "token", "456:def\n")
	fileBuffer, err := fromFile.TakeToken()
	if err != nil {
		t.Fatalf("TakeToken from file: %v", err)
	}
	defer fileBuffer.Close()
	if fileBuffer.String() != "456:def" {
		t.Errorf("token = %q", fileBuffer.String())
	}
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/handset/lib/secret"
)

// EnvironmentVariable names the config file when --config is not given.
const EnvironmentVariable = "HANDSET_CONFIG"

// Agent backends.
const (
	BackendClaude   = "claude"
	BackendOpenCode = "opencode"
)

// maxPollTimeout is the longest getUpdates wait Telegram honors.
const maxPollTimeout = 50 * time.Second

// Config is the handset configuration.
type Config struct {
	// Telegram configures the bot connection.
	Telegram TelegramConfig `yaml:"telegram"`

	// Agent configures the coding agent started for each task.
	Agent AgentConfig `yaml:"agent"`

	// Logging configures the process logger.
	Logging LoggingConfig `yaml:"logging"`
}

// TelegramConfig configures the bot connection.
type TelegramConfig struct {
	// Token is the bot token. Usually "${HANDSET_TELEGRAM_TOKEN}".
	// Mutually exclusive with TokenFile.
	Token string `yaml:"token"`

	// TokenFile is a file holding the bot token, or "-" for stdin.
	TokenFile string `yaml:"token_file"`

	// AllowedUsers lists the Telegram user IDs the bot answers.
	AllowedUsers []int64 `yaml:"allowed_users"`

	// PollTimeout is the long-poll wait per getUpdates call.
	// Default: 30s
	PollTimeout time.Duration `yaml:"poll_timeout"`

	// APIURL is the Bot API base URL.
	// Default: https://api.telegram.org
	APIURL string `yaml:"api_url"`
}

// AgentConfig configures the coding agent.
type AgentConfig struct {
	// Backend selects the agent CLI: "claude" or "opencode".
	// Default: claude
	Backend string `yaml:"backend"`

	// Binary overrides the executable. Empty uses the backend's name.
	Binary string `yaml:"binary"`

	// PermissionMode is passed to Claude Code.
	// Default: acceptEdits
	PermissionMode string `yaml:"permission_mode"`

	// ProjectRoot is the initial working directory of new sessions.
	// Empty uses the home directory.
	ProjectRoot string `yaml:"project_root"`

	// OriginVariable and OriginValue form the environment marker that
	// tells agent hooks a task came from chat. An empty variable
	// disables the marker.
	// Default: HANDSET_ORIGIN=telegram
	OriginVariable string `yaml:"origin_variable"`
	OriginValue    string `yaml:"origin_value"`

	// TranscriptDir receives one JSONL transcript per task. Empty
	// disables transcripts.
	TranscriptDir string `yaml:"transcript_dir"`

	// TurnTimeout bounds how long a queued OpenCode turn waits for the
	// previous one. Zero waits forever.
	TurnTimeout time.Duration `yaml:"turn_timeout"`

	// ClaudeProjectsDir is where Claude Code keeps session logs, read by
	// /resume for the last conversation summary.
	// Default: ~/.claude/projects
	ClaudeProjectsDir string `yaml:"claude_projects_dir"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	// Default: info
	Level string `yaml:"level"`
}

// Default returns the configuration every file is loaded over.
func Default() *Config {
	return &Config{
		Telegram: TelegramConfig{
			PollTimeout: 30 * time.Second,
			APIURL:      "https://api.telegram.org",
		},
		Agent: AgentConfig{
			Backend:           BackendClaude,
			PermissionMode:    "acceptEdits",
			OriginVariable:    "HANDSET_ORIGIN",
			OriginValue:       "telegram",
			ClaudeProjectsDir: "~/.claude/projects",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads the file named by HANDSET_CONFIG. There is no search path:
// if the variable is unset, Load fails.
func Load() (*Config, error) {
	path := os.Getenv(EnvironmentVariable)
	if path == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your handset config file, or use --config", EnvironmentVariable)
	}
	return LoadFile(path)
}

// LoadFile loads configuration from path over Default. Files ending in
// .json or .jsonc may carry comments and trailing commas; anything else
// is YAML. ${VAR} and ${VAR:-default} are expanded in string fields and
// a leading "~" in directory fields is replaced by the home directory.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	cfg.expandVariables()
	if err := cfg.expandHome(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		// JSON is YAML, so the stripped document shares the decoder and
		// its duration handling.
		data = jsonc.ToJSON(data)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns.
func (c *Config) expandVariables() {
	for _, field := range []*string{
		&c.Telegram.Token,
		&c.Telegram.TokenFile,
		&c.Telegram.APIURL,
		&c.Agent.Binary,
		&c.Agent.PermissionMode,
		&c.Agent.ProjectRoot,
		&c.Agent.OriginValue,
		&c.Agent.TranscriptDir,
		&c.Agent.ClaudeProjectsDir,
	} {
		*field = expandVars(*field)
	}
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// expandHome resolves "~" in the directory fields the agent layer uses
// as-is. ProjectRoot is resolved by the session registry.
func (c *Config) expandHome() error {
	for _, field := range []*string{&c.Agent.TranscriptDir, &c.Agent.ClaudeProjectsDir, &c.Telegram.TokenFile} {
		if *field != "~" && !strings.HasPrefix(*field, "~/") {
			continue
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("expanding %s: %w", *field, err)
		}
		*field = filepath.Join(home, strings.TrimPrefix(*field, "~"))
	}
	return nil
}

// Validate checks the configuration for errors. Every problem is
// reported, each naming its field.
func (c *Config) Validate() error {
	var errs []error

	switch {
	case c.Telegram.Token == "" && c.Telegram.TokenFile == "":
		errs = append(errs, errors.New("telegram.token or telegram.token_file is required"))
	case c.Telegram.Token != "" && c.Telegram.TokenFile != "":
		errs = append(errs, errors.New("telegram.token and telegram.token_file are mutually exclusive"))
	}
	if len(c.Telegram.AllowedUsers) == 0 {
		errs = append(errs, errors.New("telegram.allowed_users must list at least one user ID"))
	}
	if c.Telegram.PollTimeout <= 0 || c.Telegram.PollTimeout > maxPollTimeout {
		errs = append(errs, fmt.Errorf("telegram.poll_timeout must be between 1s and %s", maxPollTimeout))
	}
	if c.Telegram.APIURL == "" {
		errs = append(errs, errors.New("telegram.api_url is required"))
	}

	if c.Agent.Backend != BackendClaude && c.Agent.Backend != BackendOpenCode {
		errs = append(errs, fmt.Errorf("agent.backend must be %q or %q, got %q", BackendClaude, BackendOpenCode, c.Agent.Backend))
	}
	if c.Agent.TurnTimeout < 0 {
		errs = append(errs, errors.New("agent.turn_timeout must not be negative"))
	}
	if strings.ContainsAny(c.Agent.OriginVariable, "= ") {
		errs = append(errs, fmt.Errorf("agent.origin_variable %q is not a valid variable name", c.Agent.OriginVariable))
	}

	if _, err := c.Logging.SlogLevel(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// TakeToken moves the bot token into a secret buffer and clears it from
// the config. The caller owns the buffer.
func (c *Config) TakeToken() (*secret.Buffer, error) {
	if c.Telegram.TokenFile != "" {
		buffer, err := secret.ReadFromPath(c.Telegram.TokenFile)
		if err != nil {
			return nil, fmt.Errorf("reading telegram.token_file: %w", err)
		}
		return buffer, nil
	}

	token := []byte(strings.TrimSpace(c.Telegram.Token))
	c.Telegram.Token = ""
	buffer, err := secret.NewFromBytes(token)
	if err != nil {
		return nil, fmt.Errorf("protecting telegram.token: %w", err)
	}
	return buffer, nil
}

// OriginEnv returns the origin marker in KEY=VALUE form, or nil when the
// marker is disabled.
func (c AgentConfig) OriginEnv() []string {
	if c.OriginVariable == "" {
		return nil
	}
	return []string{c.OriginVariable + "=" + c.OriginValue}
}

// SlogLevel parses Level.
func (c LoggingConfig) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Level)
	}
}

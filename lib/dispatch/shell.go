// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/bureau-foundation/handset/lib/presenter"
)

// ShellOutputLimit bounds shell escape output, in characters.
const ShellOutputLimit = 4000

// shellEscape handles "!command". A cd moves the session like /cd;
// anything else runs off the lane so a long command never delays the
// session's agent events.
func (lane *lane) shellEscape(command string) {
	if command == "" {
		lane.notice("Usage: !<command>")
		return
	}
	if command == "cd" || strings.HasPrefix(command, "cd ") || strings.HasPrefix(command, "cd\t") {
		lane.changeDirectory(strings.TrimSpace(command[len("cd"):]))
		return
	}

	bot := lane.bot
	chatID := lane.session.ChatID
	directory := lane.session.Cwd
	bot.logger.Info("running shell escape", "user_id", lane.session.UserID, "directory", directory)

	bot.workers.Add(1)
	go func() {
		defer bot.workers.Done()
		result := RunShell(bot.ctx, bot.shell, directory, command)
		bot.presenter.Preformatted(bot.ctx, chatID, result)
	}()
}

// RunShell runs command with shell -c in directory and returns the
// displayable result: combined output without terminal escapes, cut to
// ShellOutputLimit, followed by "[exit N]" when the command failed.
func RunShell(ctx context.Context, shell, directory, command string) string {
	cmd := exec.CommandContext(ctx, shell, "-c", command)
	cmd.Dir = directory
	output, err := cmd.CombinedOutput()

	text := strings.TrimRight(ansi.Strip(string(output)), "\n")
	if head, truncated := presenter.Truncate(text, ShellOutputLimit); truncated {
		text = head + presenter.TruncationMarker
	}

	var marker string
	var exitError *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitError):
		marker = fmt.Sprintf("[exit %d]", exitError.ExitCode())
	default:
		marker = fmt.Sprintf("[error: %v]", err)
	}

	switch {
	case text == "" && marker == "":
		return "(no output)"
	case text == "":
		return marker
	case marker == "":
		return text
	default:
		return text + "\n" + marker
	}
}

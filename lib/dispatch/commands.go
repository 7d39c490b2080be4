// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"fmt"
	"strings"

	"github.com/bureau-foundation/handset/lib/agentdriver"
	"github.com/bureau-foundation/handset/lib/chat"
	"github.com/bureau-foundation/handset/lib/session"
)

// DefaultImagePrompt accompanies a photo sent without a caption.
const DefaultImagePrompt = "Describe this image."

// ShellPrefix marks a shell escape.
const ShellPrefix = "!"

const helpText = `Send a message to start a task. Messages sent while a task runs are passed to it.

/new - stop the task and start a new conversation
/stop - stop the running task
/resume - continue the most recent conversation in this directory
/cd <path> - change the working directory
/pwd - show the working directory
!<command> - run a shell command in the working directory`

// handleMessage is the lane's entry point for inbound chat messages.
func (lane *lane) handleMessage(message chat.Message) {
	text := strings.TrimSpace(message.Text)

	if message.ImagePath == "" && message.ImageID == "" {
		if name, argument, ok := parseCommand(text); ok && lane.runCommand(name, argument) {
			return
		}
		if command, ok := strings.CutPrefix(text, ShellPrefix); ok {
			lane.shellEscape(strings.TrimSpace(command))
			return
		}
	}

	if message.ImagePath == "" && message.ImageID != "" {
		message.ImagePath = lane.fetchImage(message.ImageID)
	}
	if text == "" {
		if message.ImagePath == "" {
			return
		}
		text = DefaultImagePrompt
	}
	if lane.session.Busy && lane.session.Agent != nil {
		lane.forward(text, message.ImagePath)
		return
	}
	lane.startTask(text, message.ImagePath)
}

// parseCommand splits "/name@bot argument" into its name and argument.
func parseCommand(text string) (name, argument string, ok bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	head, argument, _ := strings.Cut(text[1:], " ")
	head, _, _ = strings.Cut(head, "@")
	if head == "" {
		return "", "", false
	}
	return strings.ToLower(head), strings.TrimSpace(argument), true
}

// runCommand handles the bot's own commands. Anything else is left for
// the agent, which has slash commands of its own.
func (lane *lane) runCommand(name, argument string) bool {
	switch name {
	case "start", "help":
		lane.notice(helpText)
	case "new":
		lane.stopTask()
		lane.session.Resume = agentdriver.ResumeToken{}
		lane.notice("Started a new conversation.")
	case "stop":
		if !lane.stopTask() {
			lane.notice("Nothing to stop.")
		}
	case "resume":
		lane.resume()
	case "cd":
		lane.changeDirectory(argument)
	case "pwd":
		lane.notice(fmt.Sprintf("%s\nResume: %s", lane.session.Cwd, lane.session.Resume))
	default:
		return false
	}
	return true
}

func (lane *lane) resume() {
	lane.stopTask()
	lane.session.Resume = agentdriver.ContinueMostRecent

	reply := "The next message continues the most recent conversation in " + lane.session.Cwd + "."
	if lane.bot.summary != nil {
		if summary, ok := lane.bot.summary(lane.session.Cwd); ok {
			reply += "\n\nLast conversation: " + summary
		}
	}
	lane.notice(reply)
}

// changeDirectory stops any task, clears the resume token and moves the
// session. The path is resolved lexically and not checked for
// existence.
func (lane *lane) changeDirectory(argument string) {
	path := session.ResolvePath(lane.session.Cwd, lane.bot.home, argument)
	lane.stopTask()
	lane.session.ChangeDirectory(path)
	lane.notice("Working directory: " + path)
}

// fetchImage downloads an attached photo. On failure the user is told
// and "" is returned, so a caption still reaches the agent as text.
func (lane *lane) fetchImage(imageID string) string {
	bot := lane.bot
	if bot.images == nil {
		bot.logger.Warn("dropping photo, transport cannot download images", "user_id", lane.session.UserID)
		lane.notice("Photos are not supported here.")
		return ""
	}
	path, err := bot.images.FetchImage(bot.ctx, imageID)
	if err != nil {
		bot.logger.Error("downloading photo failed", "user_id", lane.session.UserID, "error", err)
		lane.notice("Could not download the photo: " + err.Error())
		return ""
	}
	return path
}

func (lane *lane) notice(text string) {
	lane.bot.presenter.Notice(lane.bot.ctx, lane.session.ChatID, text)
}

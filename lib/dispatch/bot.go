// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/bureau-foundation/handset/lib/agentdriver"
	"github.com/bureau-foundation/handset/lib/chat"
	"github.com/bureau-foundation/handset/lib/clock"
	"github.com/bureau-foundation/handset/lib/presenter"
	"github.com/bureau-foundation/handset/lib/session"
)

// DefaultShell runs shell escapes.
const DefaultShell = "sh"

// AgentFactory constructs the adapter for one task. options carries the
// session's working directory, resume token and event channel on top
// of Config.AgentOptions.
type AgentFactory func(options agentdriver.Options) agentdriver.Agent

// SummaryFunc looks up the last known conversation summary for a
// working directory. ok is false when none is found.
type SummaryFunc func(cwd string) (summary string, ok bool)

// Config configures a Bot.
type Config struct {
	// Transport sends and edits chat messages. Required.
	Transport chat.Transport

	// NewAgent constructs task adapters. Required.
	NewAgent AgentFactory

	// Images downloads photos sent by authorized users. Nil uses
	// Transport when it implements chat.ImageFetcher, and otherwise
	// photos are refused.
	Images chat.ImageFetcher

	// AgentOptions is the template for every adapter. WorkingDirectory,
	// Resume and Events are set per task.
	AgentOptions agentdriver.Options

	// Registry holds sessions. Nil creates one rooted at Home.
	Registry *session.Registry

	// Presenter displays tasks. Nil creates one over Transport.
	Presenter *presenter.Presenter

	// AllowedUsers lists the user IDs whose input is handled. Empty
	// allows every user.
	AllowedUsers []int64

	// Home expands "~" in /cd paths. Empty means the process's home
	// directory.
	Home string

	// Summary is consulted by /resume. Nil disables summaries.
	Summary SummaryFunc

	// TranscriptDir receives one JSONL transcript per task. Empty
	// disables transcripts.
	TranscriptDir string

	// Shell runs shell escapes. Empty means DefaultShell.
	Shell string

	// Clock is used for transcript timing. Nil means clock.Real().
	Clock clock.Clock

	// Logger receives lifecycle logs. Nil means slog.Default().
	Logger *slog.Logger
}

// Bot routes inbound chat input to session lanes. It implements the
// telegram poller's Handler interface.
type Bot struct {
	transport    chat.Transport
	images       chat.ImageFetcher
	newAgent     AgentFactory
	agentOptions agentdriver.Options
	registry     *session.Registry
	presenter    *presenter.Presenter
	allowed      map[int64]bool
	home         string
	summary      SummaryFunc
	transcripts  string
	shell        string
	clock        clock.Clock
	logger       *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mutex  sync.Mutex
	lanes  map[int64]*lane
	closed bool

	// workers counts lane and shell goroutines.
	workers sync.WaitGroup
}

// New validates config and returns a Bot. Call Close to stop its lanes
// and any running agents.
func New(config Config) (*Bot, error) {
	if config.Transport == nil {
		return nil, errors.New("dispatch: Transport is required")
	}
	if config.NewAgent == nil {
		return nil, errors.New("dispatch: NewAgent is required")
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Home == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.New("dispatch: Home is required when the home directory is unknown")
		}
		config.Home = home
	}
	if config.Registry == nil {
		config.Registry = session.NewRegistry("", config.Home)
	}
	if config.Presenter == nil {
		config.Presenter = presenter.New(presenter.Config{
			Transport: config.Transport,
			Logger:    config.Logger,
		})
	}
	if config.Shell == "" {
		config.Shell = DefaultShell
	}
	if config.Images == nil {
		if fetcher, ok := config.Transport.(chat.ImageFetcher); ok {
			config.Images = fetcher
		}
	}

	allowed := make(map[int64]bool, len(config.AllowedUsers))
	for _, userID := range config.AllowedUsers {
		allowed[userID] = true
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Bot{
		transport:    config.Transport,
		images:       config.Images,
		newAgent:     config.NewAgent,
		agentOptions: config.AgentOptions,
		registry:     config.Registry,
		presenter:    config.Presenter,
		allowed:      allowed,
		home:         config.Home,
		summary:      config.Summary,
		transcripts:  config.TranscriptDir,
		shell:        config.Shell,
		clock:        config.Clock,
		logger:       config.Logger,
		ctx:          ctx,
		cancel:       cancel,
		lanes:        make(map[int64]*lane),
	}, nil
}

// HandleMessage queues message on its sender's lane. It never waits for
// the message to be handled.
func (bot *Bot) HandleMessage(_ context.Context, message chat.Message) {
	if !bot.authorized(message.UserID) {
		bot.logger.Warn("ignoring message from unauthorized user",
			"user_id", message.UserID,
			"chat_id", message.ChatID,
		)
		removeAttachment(bot.logger, message.ImagePath)
		return
	}
	lane := bot.laneFor(message.UserID, message.ChatID)
	if lane == nil {
		removeAttachment(bot.logger, message.ImagePath)
		return
	}
	lane.enqueue(func() { lane.handleMessage(message) })
}

// HandleCallback queues a button press on its sender's lane.
func (bot *Bot) HandleCallback(ctx context.Context, callback chat.Callback) {
	if !bot.authorized(callback.UserID) {
		bot.logger.Warn("ignoring callback from unauthorized user", "user_id", callback.UserID)
		return
	}
	if !strings.HasPrefix(callback.Data, presenter.ExpandPrefix) {
		if err := bot.transport.AnswerCallback(ctx, callback.ID, ""); err != nil {
			bot.logger.Debug("answering unknown callback failed", "error", err)
		}
		return
	}
	lane := bot.laneFor(callback.UserID, callback.ChatID)
	if lane == nil {
		return
	}
	lane.enqueue(func() { bot.presenter.HandleExpand(bot.ctx, callback) })
}

// Close stops every lane, terminating running agents, and waits for
// lanes and shell escapes to finish.
func (bot *Bot) Close() {
	bot.mutex.Lock()
	bot.closed = true
	bot.mutex.Unlock()

	bot.cancel()
	bot.workers.Wait()
}

func (bot *Bot) authorized(userID int64) bool {
	return len(bot.allowed) == 0 || bot.allowed[userID]
}

// laneFor returns the user's lane, starting it on first use. Returns
// nil once the Bot is closed.
func (bot *Bot) laneFor(userID, chatID int64) *lane {
	bot.mutex.Lock()
	defer bot.mutex.Unlock()
	if bot.closed {
		return nil
	}
	if existing, ok := bot.lanes[userID]; ok {
		existing.enqueue(func() { existing.session.ChatID = chatID })
		return existing
	}

	created := newLane(bot, bot.registry.GetOrCreate(userID, chatID))
	bot.lanes[userID] = created
	bot.workers.Add(1)
	go func() {
		defer bot.workers.Done()
		created.run()
	}()
	return created
}

// barrier returns once every item queued on the user's lane before the
// call has been handled.
func (bot *Bot) barrier(userID int64) {
	bot.mutex.Lock()
	lane := bot.lanes[userID]
	bot.mutex.Unlock()
	if lane == nil {
		return
	}
	reached := make(chan struct{})
	lane.enqueue(func() { close(reached) })
	select {
	case <-reached:
	case <-bot.ctx.Done():
	}
}

func removeAttachment(logger *slog.Logger, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("removing attachment failed", "path", path, "error", err)
	}
}

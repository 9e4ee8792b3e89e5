/*
 * Copyright 2025 ESPDeck Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package dashboard assembles the application: it owns the config
// surface, wires the registry, relay client, channel manager, command
// controller, and notification center together, and runs the terminal
// UI on top of them.
package dashboard

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/espdeck/espdeck/pkg/control"
	"github.com/espdeck/espdeck/pkg/logger"
	"github.com/espdeck/espdeck/pkg/notify"
	"github.com/espdeck/espdeck/pkg/registry"
	"github.com/espdeck/espdeck/pkg/relay"
	"github.com/espdeck/espdeck/pkg/stream"
	"github.com/espdeck/espdeck/pkg/tui"
)

// The terminal UI owns stdout, so logs default to a file next to the
// working directory instead of the console.
const defaultLogFile = "espdeck.log"

// Config is the top-level dashboard configuration, loaded by
// pkg/config from a JSON file or the environment.
type Config struct {
	Relay   relay.Config   `json:"relay"`
	Stream  stream.Config  `json:"stream"`
	Logging *logger.Config `json:"logging"`
}

// Validate applies defaults and checks the sections that carry their
// own constraints. pkg/config calls this after loading.
func (c *Config) Validate() error {
	c.applyDefaults()

	if err := c.Relay.Validate(); err != nil {
		return fmt.Errorf("relay config: %w", err)
	}

	if err := c.Stream.Validate(); err != nil {
		return fmt.Errorf("stream config: %w", err)
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.Logging == nil {
		c.Logging = &logger.Config{Level: "info", Output: defaultLogFile}
	} else if c.Logging.Output == "" {
		c.Logging.Output = defaultLogFile
	}
}

// App is the assembled dashboard. Build it with New, run it with Run,
// and release the logger with Close when done.
type App struct {
	config     *Config
	logger     *logger.LoggerImpl
	store      *registry.Registry
	center     *notify.Center
	client     *relay.Client
	channel    *stream.Manager
	controller *control.Controller
}

// New wires the dashboard components from a validated config. The
// context bounds logger setup (the OTel exporter dials inside it).
func New(ctx context.Context, cfg *Config) (*App, error) {
	cfg.applyDefaults()

	root, err := logger.NewLoggerImpl(ctx, cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	store := registry.New(logger.ComponentLogger(root, "registry"))
	center := notify.NewCenter(logger.ComponentLogger(root, "notify"))
	client := relay.NewClient(&cfg.Relay, logger.ComponentLogger(root, "relay"))
	channel := stream.New(cfg.Stream, cfg.Relay, store, center, logger.ComponentLogger(root, "stream"))
	controller := control.NewController(store, client, channel, center, logger.ComponentLogger(root, "control"))

	root.Info().
		Str("relay", cfg.Relay.Address()).
		Str("stream_path", channel.Path()).
		Msg("Dashboard assembled")

	return &App{
		config:     cfg,
		logger:     root,
		store:      store,
		center:     center,
		client:     client,
		channel:    channel,
		controller: controller,
	}, nil
}

// Run starts the channel manager and the terminal UI and blocks until
// the user quits or ctx is canceled. The channel giving up does not end
// the session; the UI keeps running and shows the terminal state.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := tui.New(runCtx, a.store, a.center, a.channel, a.controller,
		logger.ComponentLogger(a.logger, "tui"))

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(runCtx))

	// Mutations land on goroutines the UI never sees; the hooks forward
	// them into the program's message queue, which is safe to feed from
	// any goroutine.
	a.store.SetOnChange(func(registry.Change) {
		program.Send(tui.DevicesChangedMsg{})
	})
	a.center.SetOnChange(func() {
		program.Send(tui.NotificationsChangedMsg{})
	})
	a.channel.SetOnStateChange(func(state stream.State) {
		program.Send(tui.ChannelStateMsg{State: state})
	})

	channelDone := make(chan error, 1)

	go func() {
		channelDone <- a.channel.Run(runCtx)
	}()

	_, runErr := program.Run()

	// Stop the channel manager and any pending reconnect timer before
	// reporting; a reconnect that fires after teardown must not happen.
	cancel()

	if err := <-channelDone; err != nil && !errors.Is(err, stream.ErrReconnectsExhausted) {
		a.logger.Warn().Err(err).Msg("Channel manager stopped with error")
	}

	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) && !errors.Is(runErr, tea.ErrInterrupted) {
		return fmt.Errorf("dashboard terminated: %w", runErr)
	}

	a.logger.Info().Msg("Dashboard stopped")

	return nil
}

// Close releases resources held by the app's logger (log file handle,
// OTel pipeline).
func (a *App) Close() error {
	return a.logger.Close()
}

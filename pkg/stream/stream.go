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

// Package stream maintains the WebSocket channel to the relay. It owns
// the connection, dispatches inbound device frames into the registry,
// and runs the single reconnect task that revives the channel after a
// closure.
package stream

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/espdeck/espdeck/pkg/logger"
	"github.com/espdeck/espdeck/pkg/notify"
	"github.com/espdeck/espdeck/pkg/registry"
	"github.com/espdeck/espdeck/pkg/relay"
)

const (
	defaultPath             = "/ws/mqtt"
	defaultReconnectDelay   = 5 * time.Second
	defaultMaxAttempts      = 5
	defaultHandshakeTimeout = 10 * time.Second

	closeGracePeriod = time.Second
	maxLoggedFrame   = 256
)

var (
	// ErrNotConnected is returned when an outbound command is attempted
	// while the channel is not open.
	ErrNotConnected = errors.New("streaming channel is not open")

	// ErrReconnectsExhausted is returned by Run when the channel closed
	// MaxAttempts times in a row without a successful connection in
	// between.
	ErrReconnectsExhausted = errors.New("reconnect attempts exhausted")

	errUndecodableFrame = errors.New("frame is not valid JSON")
	errMissingDeviceID  = errors.New("frame is missing deviceId")

	errStreamPathInvalid     = errors.New("stream path must start with /")
	errStreamAttemptsInvalid = errors.New("stream max_attempts cannot be negative")
)

// Config holds the streaming channel settings.
type Config struct {
	Path             string          `json:"path"`
	ReconnectDelay   logger.Duration `json:"reconnect_delay"`
	MaxAttempts      int             `json:"max_attempts"`
	HandshakeTimeout logger.Duration `json:"handshake_timeout"`
}

// Validate checks the channel settings.
func (c *Config) Validate() error {
	if c.Path != "" && !strings.HasPrefix(c.Path, "/") {
		return errStreamPathInvalid
	}

	if c.MaxAttempts < 0 {
		return errStreamAttemptsInvalid
	}

	return nil
}

// Counters is a snapshot of channel traffic since startup.
type Counters struct {
	Frames     uint64
	Heartbeats uint64
	Upserts    uint64
	Deletes    uint64
	Malformed  uint64
	Closures   uint64
}

// Manager owns the channel connection and its reconnect schedule. All
// state transitions happen on the Run goroutine; state and counters can
// be read from any goroutine.
type Manager struct {
	config   Config
	relayCfg relay.Config
	store    registry.Store
	notifier notify.Notifier
	logger   logger.Logger

	mu       sync.RWMutex
	conn     *websocket.Conn
	state    State
	closures int
	counters Counters
	connNote string
	onState  func(State)

	writeMu sync.Mutex
}

// New builds a channel manager. Zero config values fall back to the
// package defaults.
func New(config Config, relayCfg relay.Config, store registry.Store, notifier notify.Notifier, log logger.Logger) *Manager {
	if config.Path == "" {
		config.Path = defaultPath
	}

	if config.ReconnectDelay <= 0 {
		config.ReconnectDelay = logger.Duration(defaultReconnectDelay)
	}

	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaultMaxAttempts
	}

	if config.HandshakeTimeout <= 0 {
		config.HandshakeTimeout = logger.Duration(defaultHandshakeTimeout)
	}

	return &Manager{
		config:   config,
		relayCfg: relayCfg,
		store:    store,
		notifier: notifier,
		logger:   log,
		state:    StateIdle,
	}
}

// SetOnStateChange registers a hook invoked after every state
// transition. Set it before calling Run.
func (m *Manager) SetOnStateChange(hook func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.onState = hook
}

// State returns the current channel state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.state
}

// Path returns the websocket path the manager dials, after defaulting.
func (m *Manager) Path() string {
	return m.config.Path
}

// Counters returns a snapshot of the traffic counters.
func (m *Manager) Counters() Counters {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.counters
}

// ConsecutiveClosures returns how many times the channel has closed
// since it was last open.
func (m *Manager) ConsecutiveClosures() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.closures
}

// Run drives the channel until ctx is canceled or the retry budget is
// spent. A successful connection resets the budget; MaxAttempts
// consecutive closures without one end the loop with
// ErrReconnectsExhausted. Run returns nil on cancellation.
func (m *Manager) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			m.setState(StateIdle)
			return nil
		}

		m.setState(StateConnecting)

		conn, err := m.dial(ctx)
		if err == nil {
			m.opened(conn)
			err = m.serve(ctx, conn)
			m.dropConn(conn)
		}

		if ctx.Err() != nil {
			m.setState(StateIdle)
			return nil
		}

		m.setState(StateClosed)

		closures, exhausted := m.recordClosure()

		m.logger.Warn().
			Err(err).
			Int("consecutive_closures", closures).
			Int("max_attempts", m.config.MaxAttempts).
			Str("relay", m.relayCfg.Address()).
			Msg("Channel closed")

		if exhausted {
			m.setState(StateGivenUp)
			m.replaceConnNote(notify.Error,
				fmt.Sprintf("Streaming channel gave up after %d failed attempts", closures))
			m.logger.Error().
				Int("attempts", closures).
				Msg("Channel retry budget exhausted")

			return ErrReconnectsExhausted
		}

		m.replaceConnNote(notify.Warning,
			fmt.Sprintf("Connection lost, retrying (%d/%d)", closures, m.config.MaxAttempts))

		if !m.awaitReconnect(ctx) {
			m.setState(StateIdle)
			return nil
		}
	}
}

// SendDelete asks the relay to drop a device. The registry entry is
// left alone here; it goes away when the relay echoes the removal back
// on the channel.
func (m *Manager) SendDelete(deviceID string) error {
	m.mu.RLock()
	conn := m.conn
	state := m.state
	m.mu.RUnlock()

	if state != StateOpen || conn == nil {
		return fmt.Errorf("%w: channel is %s", ErrNotConnected, state)
	}

	m.writeMu.Lock()
	err := conn.WriteJSON(deleteCommand{Type: frameTypeDelete, DeviceID: deviceID})
	m.writeMu.Unlock()

	if err != nil {
		return fmt.Errorf("send delete for %s: %w", deviceID, err)
	}

	m.logger.Info().Str("device_id", deviceID).Msg("Delete command sent")

	return nil
}

func (m *Manager) dial(ctx context.Context) (*websocket.Conn, error) {
	u := url.URL{Scheme: m.scheme(), Host: m.relayCfg.Address(), Path: m.config.Path}

	dialer := websocket.Dialer{
		HandshakeTimeout: time.Duration(m.config.HandshakeTimeout),
	}

	if m.relayCfg.Secure && m.relayCfg.InsecureSkipVerify {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // operator opt-in for self-signed relays
	}

	m.logger.Debug().Str("url", u.String()).Msg("Dialing channel")

	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.String(), err)
	}

	return conn, nil
}

func (m *Manager) scheme() string {
	if m.relayCfg.Secure {
		return "wss"
	}

	return "ws"
}

// serve pumps frames off the connection until it closes or ctx ends.
// On cancellation it attempts the clean close handshake before the
// caller drops the connection.
func (m *Manager) serve(ctx context.Context, conn *websocket.Conn) error {
	done := make(chan error, 1)

	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					m.logger.Warn().Err(err).Msg("Channel closed unexpectedly")
				}

				done <- err

				return
			}

			m.handleFrame(data)
		}
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
	}

	deadline := time.Now().Add(closeGracePeriod)

	err := conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	if err != nil {
		return ctx.Err()
	}

	select {
	case <-done:
	case <-time.After(closeGracePeriod):
	}

	return ctx.Err()
}

// handleFrame dispatches one inbound frame. Malformed frames are logged
// and surfaced as a notification; they never take the channel down.
func (m *Manager) handleFrame(data []byte) {
	m.mu.Lock()
	m.counters.Frames++
	m.mu.Unlock()

	frame, err := decodeFrame(data)
	if err != nil {
		m.rejectFrame(data, err)
		return
	}

	switch frame.Type {
	case frameTypeHeartbeat:
		m.mu.Lock()
		m.counters.Heartbeats++
		m.mu.Unlock()

		m.logger.Trace().Msg("Heartbeat")

	case frameTypeDelete:
		if frame.DeviceID == "" {
			m.rejectFrame(data, errMissingDeviceID)
			return
		}

		removed := m.store.Remove(frame.DeviceID)

		m.mu.Lock()
		m.counters.Deletes++
		m.mu.Unlock()

		m.logger.Info().
			Str("device_id", frame.DeviceID).
			Bool("removed", removed).
			Msg("Device removal frame")

	default:
		if frame.DeviceID == "" {
			m.rejectFrame(data, errMissingDeviceID)
			return
		}

		_, created := m.store.Upsert(frame.DeviceID, frame.toUpdate())

		m.mu.Lock()
		m.counters.Upserts++
		m.mu.Unlock()

		m.logger.Debug().
			Str("device_id", frame.DeviceID).
			Bool("created", created).
			Msg("Device update frame")
	}
}

func (m *Manager) rejectFrame(data []byte, err error) {
	m.mu.Lock()
	m.counters.Malformed++
	m.mu.Unlock()

	m.logger.Warn().
		Err(err).
		Str("frame", truncateFrame(data)).
		Msg("Dropping malformed frame")

	m.notifier.Push(notify.Warning, "Dropped a malformed frame from the relay")
}

// opened records a successful handshake: the consecutive-closure budget
// resets and any outstanding connectivity notification is cleared.
func (m *Manager) opened(conn *websocket.Conn) {
	m.mu.Lock()
	m.conn = conn
	m.closures = 0
	note := m.connNote
	m.connNote = ""
	m.mu.Unlock()

	m.setState(StateOpen)

	if note != "" {
		m.notifier.Dismiss(note)
	}

	m.logger.Info().
		Str("relay", m.relayCfg.Address()).
		Str("path", m.config.Path).
		Msg("Channel open")
}

func (m *Manager) dropConn(conn *websocket.Conn) {
	m.mu.Lock()
	m.conn = nil
	m.mu.Unlock()

	_ = conn.Close()
}

func (m *Manager) recordClosure() (closures int, exhausted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closures++
	m.counters.Closures++

	return m.closures, m.closures >= m.config.MaxAttempts
}

// replaceConnNote keeps at most one connectivity notification alive.
func (m *Manager) replaceConnNote(level notify.Level, message string) {
	m.mu.Lock()
	prev := m.connNote
	m.mu.Unlock()

	if prev != "" {
		m.notifier.Dismiss(prev)
	}

	id := m.notifier.Push(level, message)

	m.mu.Lock()
	m.connNote = id
	m.mu.Unlock()
}

// awaitReconnect parks the loop for the fixed reconnect delay. The
// timer is canceled by ctx, and the state is read again when it fires
// so a teardown that raced the timer wins.
func (m *Manager) awaitReconnect(ctx context.Context) bool {
	m.setState(StateReconnecting)

	delay := time.Duration(m.config.ReconnectDelay)

	m.logger.Info().Dur("delay", delay).Msg("Channel reconnect scheduled")

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
	}

	return m.State() == StateReconnecting
}

func (m *Manager) setState(next State) {
	m.mu.Lock()
	prev := m.state
	m.state = next
	hook := m.onState
	m.mu.Unlock()

	if prev == next {
		return
	}

	m.logger.Debug().
		Str("from", prev.String()).
		Str("to", next.String()).
		Msg("Channel state changed")

	if hook != nil {
		hook(next)
	}
}

func truncateFrame(data []byte) string {
	if len(data) > maxLoggedFrame {
		return string(data[:maxLoggedFrame]) + "..."
	}

	return string(data)
}

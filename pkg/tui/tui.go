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

// Package tui renders the device dashboard: a table of tracked
// devices, a channel status line, and the dismissible notification
// panel. All mutations flow through the command orchestrator; the
// model itself never writes to the registry.
package tui

import (
	"context"
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/espdeck/espdeck/pkg/logger"
	"github.com/espdeck/espdeck/pkg/models"
	"github.com/espdeck/espdeck/pkg/registry"
)

// Dracula theme colors.
const (
	draculaForeground = "#F8F8F2"
	draculaCyan       = "#8BE9FD"
	draculaGreen      = "#50FA7B"
	draculaOrange     = "#FFB86C"
	draculaPink       = "#FF79C6"
	draculaPurple     = "#BD93F9"
	draculaRed        = "#FF5555"
	draculaYellow     = "#F1FA8C"
	draculaComment    = "#6272A4"
)

const (
	defaultTableHeight  = 10
	minTableHeight      = 3
	chromeHeight        = 12
	maxVisibleNotes     = 4
	columnWidthName     = 20
	columnWidthDeviceID = 16
	columnWidthPower    = 7
	columnWidthColor    = 7
	columnWidthTopic    = 28
)

// Styling with lipgloss.
func newStyles() styles {
	return styles{
		title: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaPink)).
			Bold(true),
		muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaComment)),
		good: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaGreen)),
		warn: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaOrange)),
		bad: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaRed)).
			Bold(true),
		info: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaCyan)),
		flash: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaGreen)),
		modal: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaRed)).
			Bold(true),
		app: lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color(draculaForeground)),
	}
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		TogglePower: key.NewBinding(key.WithKeys(" ", "enter"), key.WithHelp("space", "toggle power")),
		ToggleColor: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "toggle color mode")),
		Delete:      key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete device")),
		Confirm:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "confirm delete")),
		Cancel:      key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "cancel delete")),
		CopyID:      key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy device id")),
		CopyTopic:   key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "copy topic")),
		Refetch:     key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "refetch devices")),
		Dismiss:     key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "dismiss notification")),
		DismissAll:  key.NewBinding(key.WithKeys("X"), key.WithHelp("X", "dismiss all")),
		Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func newTable() table.Model {
	columns := []table.Column{
		{Title: "Name", Width: columnWidthName},
		{Title: "Device ID", Width: columnWidthDeviceID},
		{Title: "Power", Width: columnWidthPower},
		{Title: "Color", Width: columnWidthColor},
		{Title: "Topic", Width: columnWidthTopic},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(defaultTableHeight),
	)

	st := table.DefaultStyles()
	st.Header = st.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(draculaComment)).
		BorderBottom(true).
		Bold(true).
		Foreground(lipgloss.Color(draculaCyan))
	st.Selected = st.Selected.
		Foreground(lipgloss.Color(draculaForeground)).
		Background(lipgloss.Color(draculaPurple)).
		Bold(false)
	t.SetStyles(st)

	return t
}

// New builds the dashboard model. The context bounds the commands the
// model issues; cancel it to stop in-flight fetches and publishes.
func New(
	ctx context.Context,
	store registry.Store,
	feed NotificationFeed,
	channel ChannelStatus,
	commander Commander,
	log logger.Logger,
) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(draculaOrange))

	canCopy := true
	if err := clipboard.WriteAll(""); err != nil {
		canCopy = false
	}

	m := &Model{
		ctx:          ctx,
		store:        store,
		feed:         feed,
		channel:      channel,
		commander:    commander,
		logger:       log,
		table:        newTable(),
		spinner:      sp,
		help:         help.New(),
		keys:         defaultKeyMap(),
		styles:       newStyles(),
		channelState: channel.State(),
		canCopy:      canCopy,
	}
	m.reloadDevices()

	return m
}

// Init kicks off the spinner and the initial device fetch.
func (m *Model) Init() tea.Cmd {
	m.refreshing = true

	return tea.Batch(m.spinner.Tick, m.refreshCmd())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd
	case DevicesChangedMsg:
		m.reloadDevices()
		return m, nil
	case NotificationsChangedMsg:
		// The view reads the feed directly; receiving the message is
		// enough to trigger a repaint.
		return m, nil
	case ChannelStateMsg:
		m.channelState = msg.State
		return m, nil
	case refreshDoneMsg:
		m.refreshing = false

		if msg.err != nil {
			m.logger.Debug().Err(msg.err).Msg("Device refetch failed")
		}

		return m, nil
	case commandDoneMsg:
		if msg.err != nil {
			m.logger.Debug().
				Str("action", msg.action).
				Str("device_id", msg.deviceID).
				Err(msg.err).
				Msg("Device command failed")
		}

		return m, nil
	}

	return m, nil
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.copyMessage = ""

	if m.pendingDelete != nil {
		return m.handleConfirmKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.TogglePower):
		if dev, ok := m.selectedDevice(); ok {
			return m, m.togglePowerCmd(dev.DeviceID)
		}

		return m, nil
	case key.Matches(msg, m.keys.ToggleColor):
		if dev, ok := m.selectedDevice(); ok {
			return m, m.toggleColorCmd(dev.DeviceID)
		}

		return m, nil
	case key.Matches(msg, m.keys.Delete):
		if dev, ok := m.selectedDevice(); ok {
			pending := dev
			m.pendingDelete = &pending
		}

		return m, nil
	case key.Matches(msg, m.keys.CopyID):
		if dev, ok := m.selectedDevice(); ok {
			m.copyToClipboard("device id", dev.DeviceID)
		}

		return m, nil
	case key.Matches(msg, m.keys.CopyTopic):
		if dev, ok := m.selectedDevice(); ok {
			m.copyToClipboard("command topic", dev.CommandTopic)
		}

		return m, nil
	case key.Matches(msg, m.keys.Refetch):
		if m.refreshing {
			return m, nil
		}

		m.refreshing = true

		return m, m.refreshCmd()
	case key.Matches(msg, m.keys.Dismiss):
		if list := m.feed.List(); len(list) > 0 {
			m.feed.Dismiss(list[0].ID)
		}

		return m, nil
	case key.Matches(msg, m.keys.DismissAll):
		m.feed.DismissAll()
		return m, nil
	default:
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)

		return m, cmd
	}
}

func (m *Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		deviceID := m.pendingDelete.DeviceID
		m.pendingDelete = nil

		return m, m.deleteCmd(deviceID)
	case key.Matches(msg, m.keys.Cancel):
		m.pendingDelete = nil
		return m, nil
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m *Model) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		return refreshDoneMsg{err: m.commander.Refresh(m.ctx)}
	}
}

func (m *Model) togglePowerCmd(deviceID string) tea.Cmd {
	return func() tea.Msg {
		return commandDoneMsg{
			action:   "toggle power",
			deviceID: deviceID,
			err:      m.commander.TogglePower(m.ctx, deviceID),
		}
	}
}

func (m *Model) toggleColorCmd(deviceID string) tea.Cmd {
	return func() tea.Msg {
		return commandDoneMsg{
			action:   "toggle color mode",
			deviceID: deviceID,
			err:      m.commander.ToggleColorMode(m.ctx, deviceID),
		}
	}
}

func (m *Model) deleteCmd(deviceID string) tea.Cmd {
	return func() tea.Msg {
		return commandDoneMsg{
			action:   "delete",
			deviceID: deviceID,
			err:      m.commander.Delete(deviceID),
		}
	}
}

// reloadDevices re-reads the registry snapshot and rebuilds the table
// rows, keeping the cursor on a valid row.
func (m *Model) reloadDevices() {
	m.devices = m.store.Snapshot()

	rows := make([]table.Row, 0, len(m.devices))
	for i := range m.devices {
		rows = append(rows, deviceRow(&m.devices[i]))
	}

	m.table.SetRows(rows)

	if cursor := m.table.Cursor(); cursor >= len(rows) && len(rows) > 0 {
		m.table.SetCursor(len(rows) - 1)
	}
}

func deviceRow(d *models.Device) table.Row {
	power := "○ off"
	if d.PowerOn {
		power = "● on"
	}

	color := "n/a"

	if d.HasColorMode() {
		color = "-"
		if d.ColorModeEnabled() {
			color = "rgb"
		}
	}

	return table.Row{d.Name, d.DeviceID, power, color, d.CommandTopic}
}

func (m *Model) selectedDevice() (models.Device, bool) {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.devices) {
		return models.Device{}, false
	}

	return m.devices[idx], true
}

func (m *Model) copyToClipboard(what, value string) {
	if !m.canCopy {
		m.copyMessage = "Clipboard unavailable in this terminal"
		return
	}

	if err := clipboard.WriteAll(value); err != nil {
		m.copyMessage = fmt.Sprintf("Failed to copy %s", what)
		return
	}

	m.copyMessage = fmt.Sprintf("Copied %s to clipboard", what)
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width

	tableHeight := height - chromeHeight
	if tableHeight < minTableHeight {
		tableHeight = minTableHeight
	}

	m.table.SetHeight(tableHeight)
}

package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/espdeck/espdeck/pkg/logger"
	"github.com/espdeck/espdeck/pkg/models"
	"github.com/espdeck/espdeck/pkg/notify"
	"github.com/espdeck/espdeck/pkg/registry"
	"github.com/espdeck/espdeck/pkg/stream"
)

// Commander is the slice of the command orchestrator the dashboard
// drives. Errors are already logged and surfaced as notifications by
// the orchestrator, so the model only uses them for trace logging.
type Commander interface {
	Refresh(ctx context.Context) error
	TogglePower(ctx context.Context, deviceID string) error
	ToggleColorMode(ctx context.Context, deviceID string) error
	Delete(deviceID string) error
}

// NotificationFeed is the read-and-dismiss side of the notification
// center.
type NotificationFeed interface {
	List() []notify.Notification
	Dismiss(id string) bool
	DismissAll()
}

// ChannelStatus exposes the streaming channel state for the status
// line.
type ChannelStatus interface {
	State() stream.State
	Counters() stream.Counters
	ConsecutiveClosures() int
}

// DevicesChangedMsg tells the model to re-read the registry snapshot.
type DevicesChangedMsg struct{}

// NotificationsChangedMsg triggers a re-render of the notification
// panel; the list itself is read at render time.
type NotificationsChangedMsg struct{}

// ChannelStateMsg carries a streaming channel state transition.
type ChannelStateMsg struct {
	State stream.State
}

type refreshDoneMsg struct {
	err error
}

type commandDoneMsg struct {
	action   string
	deviceID string
	err      error
}

type keyMap struct {
	Up          key.Binding
	Down        key.Binding
	TogglePower key.Binding
	ToggleColor key.Binding
	Delete      key.Binding
	Confirm     key.Binding
	Cancel      key.Binding
	CopyID      key.Binding
	CopyTopic   key.Binding
	Refetch     key.Binding
	Dismiss     key.Binding
	DismissAll  key.Binding
	Help        key.Binding
	Quit        key.Binding
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.TogglePower, k.ToggleColor, k.Delete, k.Refetch, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.TogglePower, k.ToggleColor, k.Delete},
		{k.CopyID, k.CopyTopic, k.Refetch, k.Dismiss, k.DismissAll},
		{k.Confirm, k.Cancel, k.Help, k.Quit},
	}
}

// styles groups the lipgloss styles used by the dashboard views.
type styles struct {
	title lipgloss.Style
	muted lipgloss.Style
	good  lipgloss.Style
	warn  lipgloss.Style
	bad   lipgloss.Style
	info  lipgloss.Style
	flash lipgloss.Style
	modal lipgloss.Style
	app   lipgloss.Style
}

// Model is the bubbletea model for the device dashboard.
type Model struct {
	ctx       context.Context
	store     registry.Store
	feed      NotificationFeed
	channel   ChannelStatus
	commander Commander
	logger    logger.Logger

	table   table.Model
	spinner spinner.Model
	help    help.Model
	keys    keyMap
	styles  styles

	devices       []models.Device
	channelState  stream.State
	pendingDelete *models.Device
	refreshing    bool
	copyMessage   string
	canCopy       bool
	width         int
	height        int
	quitting      bool
}

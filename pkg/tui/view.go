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

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/espdeck/espdeck/pkg/notify"
	"github.com/espdeck/espdeck/pkg/stream"
)

func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var content strings.Builder

	content.WriteString(m.renderTitle() + "\n\n")
	content.WriteString(m.table.View() + "\n")

	if len(m.devices) == 0 {
		content.WriteString(m.styles.muted.Render("No devices tracked. Press R to refetch.") + "\n")
	}

	content.WriteString("\n" + m.renderStatusLine() + "\n")

	if notes := m.renderNotifications(); notes != "" {
		content.WriteString("\n" + notes + "\n")
	}

	if m.pendingDelete != nil {
		content.WriteString("\n" + m.renderConfirm() + "\n")
	}

	if m.copyMessage != "" {
		content.WriteString("\n" + m.styles.flash.Render(m.copyMessage) + "\n")
	}

	content.WriteString("\n" + m.help.View(m.keys))

	return m.styles.app.Render(content.String())
}

func (m *Model) renderTitle() string {
	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		lipgloss.NewStyle().Foreground(lipgloss.Color(draculaPurple)).Render("⚡ "),
		m.styles.title.Render("ESPDeck"),
	)
}

func (m *Model) renderStatusLine() string {
	var state string

	switch m.channelState {
	case stream.StateOpen:
		state = m.styles.good.Render("● " + m.channelState.String())
	case stream.StateConnecting, stream.StateReconnecting:
		state = m.styles.warn.Render(m.spinner.View() + " " + m.channelState.String())
	case stream.StateGivenUp:
		state = m.styles.bad.Render("✖ " + m.channelState.String())
	case stream.StateIdle, stream.StateClosed:
		state = m.styles.muted.Render("○ " + m.channelState.String())
	default:
		state = m.styles.muted.Render(m.channelState.String())
	}

	counters := m.channel.Counters()

	detail := fmt.Sprintf(" · %d devices · %d frames · %d dropped",
		len(m.devices), counters.Frames, counters.Malformed)

	if closures := m.channel.ConsecutiveClosures(); closures > 0 {
		detail += fmt.Sprintf(" · retry %d", closures)
	}

	if m.refreshing {
		detail += " · fetching"
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.styles.muted.Render("channel "),
		state,
		m.styles.muted.Render(detail),
	)
}

func (m *Model) renderNotifications() string {
	list := m.feed.List()
	if len(list) == 0 {
		return ""
	}

	shown := list
	if len(shown) > maxVisibleNotes {
		shown = shown[:maxVisibleNotes]
	}

	lines := make([]string, 0, len(shown)+1)

	for _, note := range shown {
		var line string

		switch note.Level {
		case notify.Error:
			line = m.styles.bad.Render("✖ " + note.Message)
		case notify.Warning:
			line = m.styles.warn.Render("▲ " + note.Message)
		case notify.Info:
			line = m.styles.info.Render("● " + note.Message)
		default:
			line = note.Message
		}

		lines = append(lines, line)
	}

	if hidden := len(list) - len(shown); hidden > 0 {
		lines = append(lines, m.styles.muted.Render(fmt.Sprintf("… and %d more", hidden)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m *Model) renderConfirm() string {
	return m.styles.modal.Render(fmt.Sprintf(
		"Delete %s (%s)? Press y to confirm, n to cancel.",
		m.pendingDelete.Name, m.pendingDelete.DeviceID,
	))
}

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

// Package notify is the user-visible notification surface. Every error
// boundary in the dashboard converts its failure into exactly one
// dismissible notification here instead of propagating upward.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/espdeck/espdeck/pkg/logger"
)

type Level string

const (
	Info    Level = "info"
	Warning Level = "warning"
	Error   Level = "error"
)

// Notification is one dismissible message shown to the user.
type Notification struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Notifier is the write side of the notification center. Components
// hold on to the returned id when they intend to dismiss their own
// notification later (the channel manager clears its connection error
// once a reconnect succeeds).
type Notifier interface {
	Push(level Level, message string) string
	Dismiss(id string) bool
}

// maxNotifications bounds the retained list; the oldest entries are
// dropped first once the cap is hit.
const maxNotifications = 50

// Center is an in-memory, mutex-guarded notification list.
type Center struct {
	mu            sync.RWMutex
	notifications []Notification
	onChange      func()
	logger        logger.Logger
}

func NewCenter(log logger.Logger) *Center {
	return &Center{logger: log}
}

// SetOnChange installs the change hook, invoked outside the lock after
// every push or dismissal. Set it once at wiring time.
func (c *Center) SetOnChange(hook func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.onChange = hook
}

func (c *Center) Push(level Level, message string) string {
	notification := Notification{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		CreatedAt: time.Now(),
	}

	c.mu.Lock()

	c.notifications = append(c.notifications, notification)
	if len(c.notifications) > maxNotifications {
		c.notifications = c.notifications[len(c.notifications)-maxNotifications:]
	}

	hook := c.onChange
	c.mu.Unlock()

	c.logger.Debug().
		Str("notification_id", notification.ID).
		Str("level", string(level)).
		Str("message", message).
		Msg("Notification raised")

	if hook != nil {
		hook()
	}

	return notification.ID
}

func (c *Center) Dismiss(id string) bool {
	c.mu.Lock()

	dismissed := false

	for i := range c.notifications {
		if c.notifications[i].ID == id {
			c.notifications = append(c.notifications[:i], c.notifications[i+1:]...)
			dismissed = true

			break
		}
	}

	hook := c.onChange
	c.mu.Unlock()

	if dismissed && hook != nil {
		hook()
	}

	return dismissed
}

func (c *Center) DismissAll() {
	c.mu.Lock()
	c.notifications = nil
	hook := c.onChange
	c.mu.Unlock()

	if hook != nil {
		hook()
	}
}

// List returns the notifications newest first, as the UI displays
// them.
func (c *Center) List() []Notification {
	c.mu.RLock()
	defer c.mu.RUnlock()

	list := make([]Notification, 0, len(c.notifications))
	for i := len(c.notifications) - 1; i >= 0; i-- {
		list = append(list, c.notifications[i])
	}

	return list
}

func (c *Center) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.notifications)
}

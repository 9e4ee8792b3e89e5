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

// Package registry holds the in-memory device registry: an ordered,
// mutex-guarded collection of device records keyed by device id. It is
// the single shared mutable resource of the dashboard; the streaming
// channel, the command orchestrator, and the initial fetch all write
// through it, and every mutation is one atomic merge step.
package registry

import (
	"sync"

	"github.com/espdeck/espdeck/pkg/logger"
	"github.com/espdeck/espdeck/pkg/models"
)

// ChangeKind classifies a registry mutation for change listeners.
type ChangeKind int

const (
	ChangeUpserted ChangeKind = iota
	ChangeRemoved
	ChangeReplaced
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeUpserted:
		return "upserted"
	case ChangeRemoved:
		return "removed"
	case ChangeReplaced:
		return "replaced"
	default:
		return "unknown"
	}
}

// Change describes one applied mutation. DeviceID is empty for
// whole-registry replacements.
type Change struct {
	Kind     ChangeKind
	DeviceID string
}

// Registry implements Store with insertion-ordered records. A record
// created by Upsert is appended to the order; updating it in place
// keeps its original position.
type Registry struct {
	mu       sync.RWMutex
	devices  map[string]*models.Device
	order    []string
	onChange func(Change)
	logger   logger.Logger
}

// New creates an empty registry.
func New(log logger.Logger) *Registry {
	return &Registry{
		devices: make(map[string]*models.Device),
		logger:  log,
	}
}

// SetOnChange installs the change hook. It must be set before any
// writer runs; the hook is invoked after the mutation, outside the
// registry lock.
func (r *Registry) SetOnChange(hook func(Change)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.onChange = hook
}

func (r *Registry) Upsert(deviceID string, update models.DeviceUpdate) (*models.Device, bool) {
	r.mu.Lock()
	device, created := r.upsertLocked(deviceID, update)
	result := device.Clone()
	hook := r.onChange
	r.mu.Unlock()

	r.logger.Debug().
		Str("device_id", deviceID).
		Bool("created", created).
		Msg("Device upserted")

	if hook != nil {
		hook(Change{Kind: ChangeUpserted, DeviceID: deviceID})
	}

	return result, created
}

// upsertLocked applies the merge under the caller's lock and returns
// the live record.
func (r *Registry) upsertLocked(deviceID string, update models.DeviceUpdate) (*models.Device, bool) {
	device, exists := r.devices[deviceID]

	if !exists {
		name := models.DefaultDeviceName(deviceID)
		if update.Name != nil && *update.Name != "" {
			name = *update.Name
		}

		device = &models.Device{DeviceID: deviceID, Name: name}
		r.devices[deviceID] = device
		r.order = append(r.order, deviceID)
	} else if update.Name != nil && *update.Name != "" {
		device.Name = *update.Name
	}

	if update.PowerOn != nil {
		device.PowerOn = *update.PowerOn
	}

	if update.ColorModeOn != nil {
		v := *update.ColorModeOn
		device.ColorModeOn = &v
	}

	if update.CommandTopic != nil {
		device.CommandTopic = *update.CommandTopic
	}

	return device, !exists
}

func (r *Registry) Remove(deviceID string) bool {
	r.mu.Lock()

	_, exists := r.devices[deviceID]
	if exists {
		delete(r.devices, deviceID)

		for i, id := range r.order {
			if id == deviceID {
				r.order = append(r.order[:i], r.order[i+1:]...)
				break
			}
		}
	}

	hook := r.onChange
	r.mu.Unlock()

	if !exists {
		return false
	}

	r.logger.Debug().
		Str("device_id", deviceID).
		Msg("Device removed")

	if hook != nil {
		hook(Change{Kind: ChangeRemoved, DeviceID: deviceID})
	}

	return true
}

func (r *Registry) Get(deviceID string) (*models.Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	device, ok := r.devices[deviceID]
	if !ok {
		return nil, false
	}

	return device.Clone(), true
}

func (r *Registry) Snapshot() []models.Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make([]models.Device, 0, len(r.order))
	for _, id := range r.order {
		snapshot = append(snapshot, *r.devices[id].Clone())
	}

	return snapshot
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.devices)
}

// ReplaceAll resets the registry to the given devices. Folding each
// device through the usual upsert keeps the semantics identical to
// replaying them as individual events: the first occurrence of an id
// fixes its position, later duplicates merge in place.
func (r *Registry) ReplaceAll(devices []models.Device) {
	r.mu.Lock()

	r.devices = make(map[string]*models.Device, len(devices))
	r.order = r.order[:0]

	for i := range devices {
		r.upsertLocked(devices[i].DeviceID, updateFromDevice(&devices[i]))
	}

	count := len(r.order)
	hook := r.onChange
	r.mu.Unlock()

	r.logger.Debug().
		Int("devices", count).
		Msg("Registry replaced")

	if hook != nil {
		hook(Change{Kind: ChangeReplaced})
	}
}

// updateFromDevice widens a full record into the merge form used by
// upsert.
func updateFromDevice(d *models.Device) models.DeviceUpdate {
	update := models.DeviceUpdate{
		PowerOn:      &d.PowerOn,
		CommandTopic: &d.CommandTopic,
	}

	if d.Name != "" {
		update.Name = &d.Name
	}

	if d.ColorModeOn != nil {
		update.ColorModeOn = d.ColorModeOn
	}

	return update
}

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

package registry

//go:generate mockgen -destination=mock_registry.go -package=registry github.com/espdeck/espdeck/pkg/registry Store

import (
	"github.com/espdeck/espdeck/pkg/models"
)

// Store is the interface for the device registry. Both the streaming
// channel and the command orchestrator write through it; the terminal
// UI reads snapshots from it.
type Store interface {
	// Upsert merges the non-nil fields of update into the record for
	// deviceID, creating the record when it does not exist yet. It
	// returns a copy of the post-merge record and whether a new record
	// was created.
	Upsert(deviceID string, update models.DeviceUpdate) (*models.Device, bool)

	// Remove deletes the record for deviceID, reporting whether a
	// record was actually removed. Removing an absent id is not an
	// error.
	Remove(deviceID string) bool

	// Get returns a copy of the record for deviceID.
	Get(deviceID string) (*models.Device, bool)

	// Snapshot returns copies of all records in insertion order.
	Snapshot() []models.Device

	// Len returns the number of tracked devices.
	Len() int

	// ReplaceAll resets the registry to exactly the given devices,
	// preserving their order. Used by the initial full fetch.
	ReplaceAll(devices []models.Device)
}

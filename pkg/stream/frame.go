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

package stream

import (
	"encoding/json"
	"fmt"

	"github.com/espdeck/espdeck/pkg/models"
)

// Frame type discriminators understood by the dispatcher. Frames with
// any other type, or no type at all, are treated as device updates.
const (
	frameTypeHeartbeat = "heartbeat"
	frameTypeDelete    = "delete"
)

// wireFrame is the superset of fields the relay emits on the channel.
// Older firmware publishes powerOn and colorModeOn instead of the
// lightOn and rgbMode names used by the REST payloads; both spellings
// are accepted and folded into the canonical ones before they reach the
// registry. encoding/json matches names case-insensitively, so the
// rgbMode tag also covers the all-lowercase rgbmode variant.
type wireFrame struct {
	Type         string  `json:"type"`
	DeviceID     string  `json:"deviceId"`
	Name         *string `json:"name"`
	LightOn      *bool   `json:"lightOn"`
	PowerOn      *bool   `json:"powerOn"`
	RGBMode      *bool   `json:"rgbMode"`
	ColorModeOn  *bool   `json:"colorModeOn"`
	CommandTopic *string `json:"commandTopic"`
}

func decodeFrame(data []byte) (*wireFrame, error) {
	var frame wireFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("%w: %v", errUndecodableFrame, err)
	}

	return &frame, nil
}

// toUpdate maps the frame onto a registry update. When a frame carries
// both spellings of a field, the canonical one wins.
func (f *wireFrame) toUpdate() models.DeviceUpdate {
	update := models.DeviceUpdate{
		Name:         f.Name,
		PowerOn:      f.LightOn,
		ColorModeOn:  f.RGBMode,
		CommandTopic: f.CommandTopic,
	}

	if update.PowerOn == nil {
		update.PowerOn = f.PowerOn
	}

	if update.ColorModeOn == nil {
		update.ColorModeOn = f.ColorModeOn
	}

	return update
}

// deleteCommand is the outbound removal request written to the channel.
// The relay confirms it by echoing a delete frame back, which is what
// actually drops the device from the registry.
type deleteCommand struct {
	Type     string `json:"type"`
	DeviceID string `json:"deviceId"`
}

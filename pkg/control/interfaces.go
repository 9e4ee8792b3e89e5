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

package control

//go:generate mockgen -destination=mock_control.go -package=control github.com/espdeck/espdeck/pkg/control Relay,DeleteSender

import (
	"context"

	"github.com/espdeck/espdeck/pkg/models"
)

// Relay is the REST surface commands are issued against.
type Relay interface {
	// FetchDevices returns the relay's full device list.
	FetchDevices(ctx context.Context) ([]models.Device, error)

	// Publish sends a command message to an MQTT topic and returns the
	// relay's acknowledgment.
	Publish(ctx context.Context, message, topic string) (string, error)
}

// DeleteSender issues device removals over the streaming channel.
type DeleteSender interface {
	SendDelete(deviceID string) error
}

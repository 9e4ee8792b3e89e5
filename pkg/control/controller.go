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

// Package control implements the optimistic command path: the registry
// is mutated up front so the UI reacts instantly, the relay command is
// issued after, and the mutation is undone when the command fails.
package control

import (
	"context"
	"errors"
	"fmt"

	"github.com/espdeck/espdeck/pkg/logger"
	"github.com/espdeck/espdeck/pkg/models"
	"github.com/espdeck/espdeck/pkg/notify"
	"github.com/espdeck/espdeck/pkg/registry"
)

// Command messages understood by the device firmware.
const (
	cmdPowerOn  = "on"
	cmdPowerOff = "off"
	cmdColorOn  = "onRGB"
	cmdColorOff = "offRGB"
)

var (
	// ErrUnknownDevice is returned when a command targets a device that
	// is no longer in the registry.
	ErrUnknownDevice = errors.New("device is not in the registry")

	// ErrNoColorMode is returned when a color mode toggle targets a
	// device that does not report the capability.
	ErrNoColorMode = errors.New("device does not support color mode")
)

// Controller issues device commands against the relay. Every failure
// surfaces as exactly one dismissible notification; none of them is
// allowed to reach the UI as a crash.
type Controller struct {
	store    registry.Store
	relay    Relay
	deleter  DeleteSender
	notifier notify.Notifier
	logger   logger.Logger
}

// NewController builds a command controller on top of the given store
// and transports.
func NewController(store registry.Store, relayClient Relay, deleter DeleteSender, notifier notify.Notifier, log logger.Logger) *Controller {
	return &Controller{
		store:    store,
		relay:    relayClient,
		deleter:  deleter,
		notifier: notifier,
		logger:   log,
	}
}

// Refresh replaces the registry contents with the relay's current
// device list. The registry is left untouched when the fetch fails.
func (c *Controller) Refresh(ctx context.Context) error {
	devices, err := c.relay.FetchDevices(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("Device fetch failed")
		c.notifier.Push(notify.Error, "Could not fetch devices from the relay")

		return fmt.Errorf("refresh devices: %w", err)
	}

	c.store.ReplaceAll(devices)

	c.logger.Info().Int("devices", len(devices)).Msg("Device list refreshed")

	return nil
}

// TogglePower flips a device's power state optimistically and issues
// the matching command. Turning power on while color mode is active
// also cancels color mode, both locally and on the broker. A failed
// command restores the captured pre-toggle state.
func (c *Controller) TogglePower(ctx context.Context, deviceID string) error {
	device, err := c.lookup(deviceID)
	if err != nil {
		return err
	}

	prior := device.Clone()
	target := !prior.PowerOn
	cancelColor := target && prior.ColorModeEnabled()

	update := models.DeviceUpdate{PowerOn: &target}

	if cancelColor {
		off := false
		update.ColorModeOn = &off
	}

	c.store.Upsert(deviceID, update)

	message := cmdPowerOff
	if target {
		message = cmdPowerOn
	}

	if err := c.command(ctx, prior, message); err != nil {
		return err
	}

	if cancelColor {
		if err := c.command(ctx, prior, cmdColorOff); err != nil {
			return err
		}
	}

	c.logger.Info().
		Str("device_id", deviceID).
		Bool("power_on", target).
		Msg("Power toggled")

	return nil
}

// ToggleColorMode flips a device's RGB mode optimistically. Enabling it
// while the plain light is on forces the power field off in the local
// view; disabling it while the light was on also sends the plain off
// command. A failed command restores the captured pre-toggle state.
func (c *Controller) ToggleColorMode(ctx context.Context, deviceID string) error {
	device, err := c.lookup(deviceID)
	if err != nil {
		return err
	}

	if !device.HasColorMode() {
		c.notifier.Push(notify.Warning, fmt.Sprintf("%s does not support color mode", device.Name))
		return fmt.Errorf("%w: %s", ErrNoColorMode, deviceID)
	}

	prior := device.Clone()
	target := !prior.ColorModeEnabled()

	update := models.DeviceUpdate{ColorModeOn: &target}

	if target && prior.PowerOn {
		off := false
		update.PowerOn = &off
	}

	c.store.Upsert(deviceID, update)

	message := cmdColorOff
	if target {
		message = cmdColorOn
	}

	if err := c.command(ctx, prior, message); err != nil {
		return err
	}

	if !target && prior.PowerOn {
		if err := c.command(ctx, prior, cmdPowerOff); err != nil {
			return err
		}
	}

	c.logger.Info().
		Str("device_id", deviceID).
		Bool("color_mode_on", target).
		Msg("Color mode toggled")

	return nil
}

// Delete asks the relay to remove a device. The registry entry stays
// until the relay confirms with a delete frame on the channel, so a
// failed send leaves the device visible.
func (c *Controller) Delete(deviceID string) error {
	device, err := c.lookup(deviceID)
	if err != nil {
		return err
	}

	if err := c.deleter.SendDelete(deviceID); err != nil {
		c.logger.Error().Err(err).Str("device_id", deviceID).Msg("Delete command failed")
		c.notifier.Push(notify.Error, fmt.Sprintf("Could not delete %s: %v", device.Name, err))

		return fmt.Errorf("delete %s: %w", deviceID, err)
	}

	c.logger.Info().Str("device_id", deviceID).Msg("Delete requested, awaiting relay confirmation")

	return nil
}

func (c *Controller) lookup(deviceID string) (*models.Device, error) {
	device, ok := c.store.Get(deviceID)
	if !ok {
		c.notifier.Push(notify.Warning, fmt.Sprintf("Device %s is no longer tracked", deviceID))
		return nil, fmt.Errorf("%w: %s", ErrUnknownDevice, deviceID)
	}

	return device, nil
}

// command publishes one message to the device's topic. On failure the
// toggled fields are restored from the snapshot taken before the
// optimistic mutation, so a frame that arrived in between is clobbered
// on those fields only.
func (c *Controller) command(ctx context.Context, prior *models.Device, message string) error {
	_, err := c.relay.Publish(ctx, message, prior.CommandTopic)
	if err == nil {
		return nil
	}

	c.store.Upsert(prior.DeviceID, models.DeviceUpdate{
		PowerOn:     &prior.PowerOn,
		ColorModeOn: prior.ColorModeOn,
	})

	c.logger.Error().
		Err(err).
		Str("device_id", prior.DeviceID).
		Str("message", message).
		Msg("Command failed, optimistic update rolled back")

	c.notifier.Push(notify.Error, fmt.Sprintf("Command %q to %s failed", message, prior.Name))

	return fmt.Errorf("publish %q to %s: %w", message, prior.CommandTopic, err)
}

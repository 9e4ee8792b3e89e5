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

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/espdeck/espdeck/pkg/logger"
	"github.com/espdeck/espdeck/pkg/models"
	"github.com/espdeck/espdeck/pkg/notify"
	"github.com/espdeck/espdeck/pkg/registry"
)

var errRelayDown = errors.New("relay rejected the command")

func newTestController(t *testing.T) (*Controller, *MockRelay, *MockDeleteSender, *registry.Registry, *notify.Center) {
	t.Helper()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	log := logger.NewTestLogger()
	store := registry.New(log)
	center := notify.NewCenter(log)
	relayMock := NewMockRelay(ctrl)
	deleter := NewMockDeleteSender(ctrl)

	return NewController(store, relayMock, deleter, center, log), relayMock, deleter, store, center
}

func seedDevice(t *testing.T, store *registry.Registry, device models.Device) {
	t.Helper()

	store.Upsert(device.DeviceID, models.DeviceUpdate{
		Name:         &device.Name,
		PowerOn:      &device.PowerOn,
		ColorModeOn:  device.ColorModeOn,
		CommandTopic: &device.CommandTopic,
	})
}

func boolPtr(b bool) *bool { return &b }

func TestTogglePowerRoundTrip(t *testing.T) {
	controller, relayMock, _, store, center := newTestController(t)

	seedDevice(t, store, models.Device{
		DeviceID:     "esp-1",
		Name:         "Lamp",
		PowerOn:      false,
		ColorModeOn:  boolPtr(false),
		CommandTopic: "esp/1/cmd",
	})

	gomock.InOrder(
		relayMock.EXPECT().Publish(gomock.Any(), "on", "esp/1/cmd").Return("sent", nil),
		relayMock.EXPECT().Publish(gomock.Any(), "off", "esp/1/cmd").Return("sent", nil),
	)

	require.NoError(t, controller.TogglePower(context.Background(), "esp-1"))

	device, ok := store.Get("esp-1")
	require.True(t, ok)
	assert.True(t, device.PowerOn)

	require.NoError(t, controller.TogglePower(context.Background(), "esp-1"))

	device, ok = store.Get("esp-1")
	require.True(t, ok)
	assert.False(t, device.PowerOn, "two successful toggles must restore the original power state")
	assert.False(t, device.ColorModeEnabled(), "color mode must be back to its original value")
	assert.Zero(t, center.Len(), "successful commands raise no notifications")
}

func TestTogglePowerRollbackOnFailure(t *testing.T) {
	controller, relayMock, _, store, center := newTestController(t)

	seedDevice(t, store, models.Device{
		DeviceID:     "esp-1",
		Name:         "Lamp",
		PowerOn:      false,
		CommandTopic: "esp/1/cmd",
	})

	relayMock.EXPECT().Publish(gomock.Any(), "on", "esp/1/cmd").Return("", errRelayDown)

	err := controller.TogglePower(context.Background(), "esp-1")
	require.ErrorIs(t, err, errRelayDown)

	device, ok := store.Get("esp-1")
	require.True(t, ok)
	assert.False(t, device.PowerOn, "failed command must roll the optimistic flip back")

	require.Equal(t, 1, center.Len(), "a failed command raises exactly one notification")
	assert.Equal(t, notify.Error, center.List()[0].Level)
}

func TestTogglePowerCancelsActiveColorMode(t *testing.T) {
	controller, relayMock, _, store, _ := newTestController(t)

	seedDevice(t, store, models.Device{
		DeviceID:     "esp-2",
		Name:         "Strip",
		PowerOn:      false,
		ColorModeOn:  boolPtr(true),
		CommandTopic: "esp/2/cmd",
	})

	gomock.InOrder(
		relayMock.EXPECT().Publish(gomock.Any(), "on", "esp/2/cmd").Return("sent", nil),
		relayMock.EXPECT().Publish(gomock.Any(), "offRGB", "esp/2/cmd").Return("sent", nil),
	)

	require.NoError(t, controller.TogglePower(context.Background(), "esp-2"))

	device, ok := store.Get("esp-2")
	require.True(t, ok)
	assert.True(t, device.PowerOn)
	assert.False(t, device.ColorModeEnabled(), "enabling power must force color mode off")
}

func TestTogglePowerRollsBackWhenCancelFails(t *testing.T) {
	controller, relayMock, _, store, center := newTestController(t)

	seedDevice(t, store, models.Device{
		DeviceID:     "esp-2",
		Name:         "Strip",
		PowerOn:      false,
		ColorModeOn:  boolPtr(true),
		CommandTopic: "esp/2/cmd",
	})

	gomock.InOrder(
		relayMock.EXPECT().Publish(gomock.Any(), "on", "esp/2/cmd").Return("sent", nil),
		relayMock.EXPECT().Publish(gomock.Any(), "offRGB", "esp/2/cmd").Return("", errRelayDown),
	)

	err := controller.TogglePower(context.Background(), "esp-2")
	require.ErrorIs(t, err, errRelayDown)

	device, ok := store.Get("esp-2")
	require.True(t, ok)
	assert.False(t, device.PowerOn, "rollback must restore the captured power state")
	assert.True(t, device.ColorModeEnabled(), "rollback must restore the forced color mode field too")
	assert.Equal(t, 1, center.Len())
}

func TestToggleColorModeForcesPowerOff(t *testing.T) {
	controller, relayMock, _, store, _ := newTestController(t)

	seedDevice(t, store, models.Device{
		DeviceID:     "esp-3",
		Name:         "Strip",
		PowerOn:      true,
		ColorModeOn:  boolPtr(false),
		CommandTopic: "esp/3/cmd",
	})

	relayMock.EXPECT().Publish(gomock.Any(), "onRGB", "esp/3/cmd").Return("sent", nil)

	require.NoError(t, controller.ToggleColorMode(context.Background(), "esp-3"))

	device, ok := store.Get("esp-3")
	require.True(t, ok)
	assert.True(t, device.ColorModeEnabled())
	assert.False(t, device.PowerOn, "enabling color mode must force power off in the local view")
}

func TestToggleColorModeDisableAlsoTurnsOff(t *testing.T) {
	controller, relayMock, _, store, _ := newTestController(t)

	seedDevice(t, store, models.Device{
		DeviceID:     "esp-3",
		Name:         "Strip",
		PowerOn:      true,
		ColorModeOn:  boolPtr(true),
		CommandTopic: "esp/3/cmd",
	})

	gomock.InOrder(
		relayMock.EXPECT().Publish(gomock.Any(), "offRGB", "esp/3/cmd").Return("sent", nil),
		relayMock.EXPECT().Publish(gomock.Any(), "off", "esp/3/cmd").Return("sent", nil),
	)

	require.NoError(t, controller.ToggleColorMode(context.Background(), "esp-3"))

	device, ok := store.Get("esp-3")
	require.True(t, ok)
	assert.False(t, device.ColorModeEnabled())
	// The plain off command reaches the broker, but the local power
	// field is only updated when the device reports back on the channel.
	assert.True(t, device.PowerOn)
}

func TestToggleColorModeWithoutCapability(t *testing.T) {
	controller, _, _, store, center := newTestController(t)

	seedDevice(t, store, models.Device{
		DeviceID:     "esp-4",
		Name:         "Plain bulb",
		PowerOn:      true,
		CommandTopic: "esp/4/cmd",
	})

	err := controller.ToggleColorMode(context.Background(), "esp-4")
	require.ErrorIs(t, err, ErrNoColorMode)

	device, ok := store.Get("esp-4")
	require.True(t, ok)
	assert.True(t, device.PowerOn, "a rejected toggle must not touch the registry")
	assert.Equal(t, 1, center.Len())
}

func TestCommandsForUnknownDevice(t *testing.T) {
	controller, _, _, _, center := newTestController(t)

	require.ErrorIs(t, controller.TogglePower(context.Background(), "ghost"), ErrUnknownDevice)
	require.ErrorIs(t, controller.ToggleColorMode(context.Background(), "ghost"), ErrUnknownDevice)
	require.ErrorIs(t, controller.Delete("ghost"), ErrUnknownDevice)

	assert.Equal(t, 3, center.Len())
}

func TestDeleteAwaitsConfirmation(t *testing.T) {
	controller, _, deleter, store, center := newTestController(t)

	seedDevice(t, store, models.Device{
		DeviceID:     "esp-9",
		Name:         "Old lamp",
		CommandTopic: "esp/9/cmd",
	})

	deleter.EXPECT().SendDelete("esp-9").Return(nil)

	require.NoError(t, controller.Delete("esp-9"))

	_, ok := store.Get("esp-9")
	assert.True(t, ok, "the device stays until the relay confirms over the channel")
	assert.Zero(t, center.Len())
}

func TestDeleteFailureKeepsDevice(t *testing.T) {
	controller, _, deleter, store, center := newTestController(t)

	seedDevice(t, store, models.Device{
		DeviceID:     "esp-9",
		Name:         "Old lamp",
		CommandTopic: "esp/9/cmd",
	})

	deleter.EXPECT().SendDelete("esp-9").Return(errRelayDown)

	err := controller.Delete("esp-9")
	require.ErrorIs(t, err, errRelayDown)

	_, ok := store.Get("esp-9")
	assert.True(t, ok)
	require.Equal(t, 1, center.Len())
	assert.Equal(t, notify.Error, center.List()[0].Level)
}

func TestRefreshReplacesRegistry(t *testing.T) {
	controller, relayMock, _, store, _ := newTestController(t)

	seedDevice(t, store, models.Device{DeviceID: "stale", Name: "Gone"})

	relayMock.EXPECT().FetchDevices(gomock.Any()).Return([]models.Device{
		{DeviceID: "esp-a", Name: "Porch", CommandTopic: "esp/a/cmd"},
		{DeviceID: "esp-b", Name: "Hall", CommandTopic: "esp/b/cmd"},
	}, nil)

	require.NoError(t, controller.Refresh(context.Background()))

	snapshot := store.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, "esp-a", snapshot[0].DeviceID)
	assert.Equal(t, "esp-b", snapshot[1].DeviceID)
}

func TestRefreshFailureLeavesRegistry(t *testing.T) {
	controller, relayMock, _, store, center := newTestController(t)

	seedDevice(t, store, models.Device{DeviceID: "esp-a", Name: "Porch"})

	relayMock.EXPECT().FetchDevices(gomock.Any()).Return(nil, errRelayDown)

	err := controller.Refresh(context.Background())
	require.ErrorIs(t, err, errRelayDown)

	assert.Equal(t, 1, store.Len(), "a failed fetch must leave the registry untouched")
	assert.Equal(t, 1, center.Len())
}

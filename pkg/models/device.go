package models

// DeviceNamePrefix is prepended to a device id when the relay supplies
// no display name for a device.
const DeviceNamePrefix = "ESP_"

// Device represents one tracked endpoint light. The JSON tags follow
// the relay's query payload: power is `lightOn` and color mode is
// `rgbMode` on the wire.
type Device struct {
	DeviceID     string `json:"deviceId"`
	Name         string `json:"name"`
	PowerOn      bool   `json:"lightOn"`
	ColorModeOn  *bool  `json:"rgbMode,omitempty"`
	CommandTopic string `json:"commandTopic"`
}

// DefaultDeviceName synthesizes the display name used when the relay
// never supplied one.
func DefaultDeviceName(deviceID string) string {
	return DeviceNamePrefix + deviceID
}

// HasColorMode reports whether color mode applies to this device at
// all; devices without an RGB channel never carry the field.
func (d *Device) HasColorMode() bool {
	return d.ColorModeOn != nil
}

// ColorModeEnabled is a nil-safe read of ColorModeOn.
func (d *Device) ColorModeEnabled() bool {
	return d.ColorModeOn != nil && *d.ColorModeOn
}

// Clone returns a copy that shares no pointers with the receiver, so
// registry snapshots never alias registry internals.
func (d *Device) Clone() *Device {
	if d == nil {
		return nil
	}

	clone := *d

	if d.ColorModeOn != nil {
		v := *d.ColorModeOn
		clone.ColorModeOn = &v
	}

	return &clone
}

// DeviceUpdate is a partial merge against a device record; nil fields
// are left unchanged by the registry.
type DeviceUpdate struct {
	Name         *string
	PowerOn      *bool
	ColorModeOn  *bool
	CommandTopic *string
}

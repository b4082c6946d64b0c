package models

// Real-time message types.
const (
	MessageStatusUpdate = "status_update"
	MessageDevice       = "device"
	MessageCommand      = "command"
)

// Controllable devices.
const (
	DeviceLight = "light"
	DeviceFan   = "fan"
)

// StatusUpdate carries the full snapshot, flattened next to the type tag.
type StatusUpdate struct {
	Type string `json:"type"`
	DeviceState
}

// NewStatusUpdate tags a snapshot as a status update.
func NewStatusUpdate(st DeviceState) StatusUpdate {
	return StatusUpdate{Type: MessageStatusUpdate, DeviceState: st}
}

// DeviceUpdate announces a single light or fan change.
type DeviceUpdate struct {
	Type   string `json:"type"`
	Device string `json:"device"`
	State  *bool  `json:"state,omitempty"` // light only
	Speed  *int   `json:"speed,omitempty"` // fan only
}

// LightUpdate builds the device message for a light change.
func LightUpdate(on bool) DeviceUpdate {
	return DeviceUpdate{Type: MessageDevice, Device: DeviceLight, State: &on}
}

// FanUpdate builds the device message for a fan change.
func FanUpdate(speed int) DeviceUpdate {
	return DeviceUpdate{Type: MessageDevice, Device: DeviceFan, Speed: &speed}
}

// Command is an inbound control message from a dashboard client.
type Command struct {
	Type   string   `json:"type"`
	Device string   `json:"device"`
	State  *bool    `json:"state,omitempty"`
	Speed  *float64 `json:"speed,omitempty"`
}

// ESP switch states.
const (
	SwitchOn  = "ON"
	SwitchOff = "OFF"
)

// EspCommand is the view of the controllable devices an ESP board polls for.
type EspCommand struct {
	LightStatus string `json:"lightStatus"`
	FanStatus   string `json:"fanStatus"`
	FanSpeed    int    `json:"fanSpeed"`
}

// NewEspCommand derives the board-facing command from a snapshot.
func NewEspCommand(st DeviceState) EspCommand {
	return EspCommand{
		LightStatus: switchStatus(st.LightOn),
		FanStatus:   switchStatus(st.FanSpeed > 0),
		FanSpeed:    st.FanSpeed,
	}
}

func switchStatus(on bool) string {
	if on {
		return SwitchOn
	}
	return SwitchOff
}

package models

import (
	"bytes"
	"encoding/json"
)

// Telemetry is a partial update reported by the ESP board. Absent fields are left unchanged.
type Telemetry struct {
	TankLevel     Optional[float64]
	PumpOn        Optional[bool]
	SmokeDetected Optional[bool]
}

// Empty reports whether no field is present.
func (t Telemetry) Empty() bool {
	return !t.TankLevel.Set && !t.PumpOn.Set && !t.SmokeDetected.Set
}

// ParseTelemetry decodes a telemetry body field by field. Boards send noisy payloads,
// so a malformed field (or a malformed body) is dropped instead of failing the update.
func ParseTelemetry(raw []byte) Telemetry {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Telemetry{}
	}

	return Telemetry{
		TankLevel:     decodeField[float64](fields, "tankLevel"),
		PumpOn:        decodeField[bool](fields, "pumpOn"),
		SmokeDetected: decodeField[bool](fields, "smokeDetected"),
	}
}

func decodeField[T any](fields map[string]json.RawMessage, key string) Optional[T] {
	raw, ok := fields[key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), jsonNull) {
		return None[T]()
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return None[T]()
	}
	return Some(v)
}

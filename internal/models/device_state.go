package models

import "time"

// Fan and tank bounds.
const (
	MinFanSpeed  = 0
	MaxFanSpeed  = 5
	MinTankLevel = 0
	MaxTankLevel = 100

	DefaultTankLevel = 60
)

// Condition is a coarse weather classification derived from temperature and humidity.
type Condition string

const (
	ConditionClear        Condition = "Clear"
	ConditionPartlyCloudy Condition = "Partly Cloudy"
	ConditionCloudy       Condition = "Cloudy"
	ConditionRain         Condition = "Rain"
	ConditionSnow         Condition = "Snow"
	ConditionUnknown      Condition = "Unknown"
)

// ClimateSnapshot is the weather part of the device state.
type ClimateSnapshot struct {
	TempC      Optional[int]       `json:"tempC"`      // °C, rounded
	Humidity   Optional[int]       `json:"humidity"`   // %
	FeelsLike  Optional[int]       `json:"feelsLike"`  // °C
	Pressure   Optional[int]       `json:"pressure"`   // hPa
	Visibility Optional[int]       `json:"visibility"` // km
	Condition  Condition           `json:"condition"`
	UpdatedAt  Optional[time.Time] `json:"updatedAt"`
}

// DeviceState is the full device/environment snapshot shared with every client.
// It only holds values, so a copy is an immutable snapshot.
type DeviceState struct {
	LightOn       bool            `json:"lightOn"`
	FanSpeed      int             `json:"fanSpeed"`  // 0..5
	TankLevel     int             `json:"tankLevel"` // 0..100 %
	PumpOn        bool            `json:"pumpOn"`
	SmokeDetected bool            `json:"smokeDetected"`
	Climate       ClimateSnapshot `json:"climate"`
}

// DefaultDeviceState is the state a fresh process starts with.
func DefaultDeviceState() DeviceState {
	return DeviceState{
		LightOn:       false,
		FanSpeed:      MinFanSpeed,
		TankLevel:     DefaultTankLevel,
		PumpOn:        false,
		SmokeDetected: false,
		Climate:       ClimateSnapshot{Condition: ConditionUnknown},
	}
}

package weather

import (
	"math"
	"strings"
	"time"

	"smart_home/internal/models"
)

// hourPrefixLayout matches the first 13 characters of an ISO-8601 timestamp ("2024-01-01T10").
const hourPrefixLayout = "2006-01-02T15"

// Heat index applies strictly above this temperature.
const heatIndexThresholdC = 27

// Humidity thresholds used by Classify, in %.
const (
	rainHumidity         = 85
	cloudyHumidity       = 70
	partlyCloudyHumidity = 40
)

var timestampLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02T15",
}

// parseTimestamp reads a forecast timestamp. Zone-less values are UTC.
func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// SampleIndex returns the index of the sample to use for now. A timestamp in the
// same UTC hour wins even when a later one is numerically closer; otherwise the
// parseable timestamp nearest to now is used. It returns -1 when no timestamp
// parses, so no reading is taken from an hour that cannot be identified.
func SampleIndex(times []string, now time.Time) int {
	prefix := now.UTC().Truncate(time.Hour).Format(hourPrefixLayout)
	for i, ts := range times {
		if strings.HasPrefix(ts, prefix) {
			return i
		}
	}

	best := -1
	var bestDiff time.Duration
	for i, ts := range times {
		t, ok := parseTimestamp(ts)
		if !ok {
			continue
		}
		// Distance is measured from now itself, not from the start of its hour.
		diff := t.Sub(now)
		if diff < 0 {
			diff = -diff
		}
		if best == -1 || diff < bestDiff {
			best, bestDiff = i, diff
		}
	}
	return best
}

// Sample is the hourly reading picked for the current hour.
type Sample struct {
	Humidity   models.Optional[int] // %
	Pressure   models.Optional[int] // hPa
	Visibility models.Optional[int] // km
}

// SampleAt reads the hourly arrays at idx. Pressure and visibility are only read
// when idx is within all three arrays.
func SampleAt(f Forecast, idx int) Sample {
	var s Sample
	if idx < 0 {
		return s
	}
	if idx < len(f.Humidity) {
		s.Humidity = roundValue(f.Humidity[idx], 1)
	}
	if idx < len(f.Humidity) && idx < len(f.Pressure) && idx < len(f.Visibility) {
		s.Pressure = roundValue(f.Pressure[idx], 1)
		s.Visibility = roundValue(f.Visibility[idx], 1000) // m -> km
	}
	return s
}

func roundValue(v *float64, divisor float64) models.Optional[int] {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return models.None[int]()
	}
	return models.Some(models.RoundHalfUp(*v / divisor))
}

// FeelsLike equals tempC unless it is above 27 °C with a known humidity, in which
// case a simple heat-index approximation is used.
func FeelsLike(tempC, humidity models.Optional[int]) models.Optional[int] {
	t, ok := tempC.Get()
	if !ok {
		return models.None[int]()
	}
	h, ok := humidity.Get()
	if !ok || t <= heatIndexThresholdC {
		return tempC
	}
	tf, hf := float64(t), float64(h)
	return models.Some(models.RoundHalfUp(tf + 0.348*hf - 0.7*tf*hf/100 - 5.666 + 0.0036*hf*hf))
}

// Classify derives a coarse condition. Freezing temperatures win over humidity.
func Classify(tempC, humidity models.Optional[int]) models.Condition {
	t, okT := tempC.Get()
	h, okH := humidity.Get()
	if !okT || !okH {
		return models.ConditionUnknown
	}
	switch {
	case t <= 0:
		return models.ConditionSnow
	case h > rainHumidity:
		return models.ConditionRain
	case h > cloudyHumidity:
		return models.ConditionCloudy
	case h > partlyCloudyHumidity:
		return models.ConditionPartlyCloudy
	default:
		return models.ConditionClear
	}
}

// Derive builds the climate snapshot for now. When the forecast carries no current
// temperature the previous tempC is kept.
func Derive(f Forecast, prevTempC models.Optional[int], now time.Time) models.ClimateSnapshot {
	tempC := prevTempC
	if t := roundValue(f.Temperature, 1); t.Set {
		tempC = t
	}

	sample := SampleAt(f, SampleIndex(f.Times, now))
	return models.ClimateSnapshot{
		TempC:      tempC,
		Humidity:   sample.Humidity,
		FeelsLike:  FeelsLike(tempC, sample.Humidity),
		Pressure:   sample.Pressure,
		Visibility: sample.Visibility,
		Condition:  Classify(tempC, sample.Humidity),
		UpdatedAt:  models.Some(now.UTC()),
	}
}

// Package weather fetches hourly forecasts and turns them into a single
// "current" climate reading.
//
// The sampling rules are pure functions over the forecast arrays so they can be
// tested without a network:
//   - SampleIndex picks the hour to read (exact hour first, nearest timestamp otherwise).
//   - SampleAt reads humidity, pressure and visibility at that hour.
//   - FeelsLike and Classify derive the auxiliary metrics.
package weather

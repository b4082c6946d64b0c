package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// DefaultOpenMeteoURL is the public Open-Meteo forecast endpoint.
const DefaultOpenMeteoURL = "https://api.open-meteo.com/v1/forecast"

const (
	hourlyFields = "relativehumidity_2m,pressure_msl,visibility"
	maxBodyBytes = 4 << 20 // 4 MB
)

// OpenMeteo fetches forecasts from the Open-Meteo API.
type OpenMeteo struct {
	baseURL   string
	latitude  float64
	longitude float64
	client    *http.Client
}

// NewOpenMeteo builds a provider for the given location. An empty baseURL uses
// DefaultOpenMeteoURL, a nil client uses http.DefaultClient.
func NewOpenMeteo(baseURL string, latitude, longitude float64, client *http.Client) *OpenMeteo {
	if baseURL == "" {
		baseURL = DefaultOpenMeteoURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &OpenMeteo{baseURL: baseURL, latitude: latitude, longitude: longitude, client: client}
}

type openMeteoResponse struct {
	CurrentWeather *struct {
		Temperature *float64 `json:"temperature"`
	} `json:"current_weather"`
	Hourly struct {
		Time       []string   `json:"time"`
		Humidity   []*float64 `json:"relativehumidity_2m"`
		Pressure   []*float64 `json:"pressure_msl"`
		Visibility []*float64 `json:"visibility"`
	} `json:"hourly"`
}

// requestURL builds the forecast query for the configured location.
func (p *OpenMeteo) requestURL() (string, error) {
	u, err := url.Parse(p.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url %q: %w", p.baseURL, err)
	}
	q := u.Query()
	q.Set("latitude", strconv.FormatFloat(p.latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(p.longitude, 'f', -1, 64))
	q.Set("current_weather", "true")
	q.Set("hourly", hourlyFields)
	q.Set("timezone", "UTC")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Fetch downloads and decodes the forecast. All failures wrap ErrUpstreamUnavailable.
func (p *OpenMeteo) Fetch(ctx context.Context) (Forecast, error) {
	endpoint, err := p.requestURL()
	if err != nil {
		return Forecast{}, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Forecast{}, fmt.Errorf("%w: build request: %w", ErrUpstreamUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return Forecast{}, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Forecast{}, fmt.Errorf("%w: HTTP %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	var body openMeteoResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		return Forecast{}, fmt.Errorf("%w: decode forecast: %w", ErrUpstreamUnavailable, err)
	}

	f := Forecast{
		Times:      body.Hourly.Time,
		Humidity:   body.Hourly.Humidity,
		Pressure:   body.Hourly.Pressure,
		Visibility: body.Hourly.Visibility,
	}
	if body.CurrentWeather != nil {
		f.Temperature = body.CurrentWeather.Temperature
	}
	return f, nil
}

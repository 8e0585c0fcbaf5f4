package irradiance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultSolcastURL is the public Solcast API endpoint.
const DefaultSolcastURL = "https://api.solcast.com.au"

// maxForecastHours is the longest forecast Solcast serves.
const maxForecastHours = 168

// Solcast fetches GHI forecasts from the Solcast world radiation API. A route is split
// into at most Locations contiguous legs and one forecast is fetched at the middle of
// each leg.
type Solcast struct {
	BaseURL   string
	APIKey    string
	Locations int
	Client    *http.Client
}

// NewSolcast returns a client for the public API.
func NewSolcast(apiKey string) *Solcast {
	return &Solcast{
		BaseURL:   DefaultSolcastURL,
		APIKey:    apiKey,
		Locations: 8,
		Client:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Forecast is one forecast period.
type Forecast struct {
	GHI       float64   `json:"ghi"`
	PeriodEnd time.Time `json:"period_end"`
	Period    string    `json:"period"`
}

// Start returns the beginning of the period.
func (f Forecast) Start() time.Time {
	return f.PeriodEnd.Add(-parsePeriod(f.Period))
}

type forecastResponse struct {
	Forecasts []Forecast `json:"forecasts"`
}

// parsePeriod reads the ISO 8601 durations Solcast uses (PT30M, PT1H, PT5M).
// Anything else is taken as thirty minutes.
func parsePeriod(p string) time.Duration {
	d, err := time.ParseDuration(strings.ToLower(strings.TrimPrefix(strings.ToUpper(p), "PT")))
	if err != nil || d <= 0 {
		return 30 * time.Minute
	}
	return d
}

// Fetch returns the forecast at loc for the next hours.
func (s *Solcast) Fetch(ctx context.Context, loc Location, hours int) ([]Forecast, error) {
	base := s.BaseURL
	if base == "" {
		base = DefaultSolcastURL
	}
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(loc.Lat, 'f', 6, 64))
	q.Set("longitude", strconv.FormatFloat(loc.Lon, 'f', 6, 64))
	q.Set("hours", strconv.Itoa(hours))
	q.Set("format", "json")
	endpoint := strings.TrimRight(base, "/") + "/world_radiation/forecasts?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.APIKey)
	req.Header.Set("Accept", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching forecast: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	var fr forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&fr); err != nil {
		return nil, fmt.Errorf("decoding forecast: %w", err)
	}
	if len(fr.Forecasts) == 0 {
		return nil, fmt.Errorf("empty forecast for %.4f,%.4f", loc.Lat, loc.Lon)
	}
	return fr.Forecasts, nil
}

// sample returns the GHI of the period containing t.
func sample(fcs []Forecast, t time.Time) (float64, error) {
	for _, f := range fcs {
		if !t.Before(f.Start()) && !t.After(f.PeriodEnd) {
			return f.GHI, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrNotCovered, t.UTC().Format(time.RFC3339))
}

// GHI implements Provider.
func (s *Solcast) GHI(ctx context.Context, req Request) ([]float64, error) {
	n := len(req.Points)
	if n == 0 {
		return []float64{}, nil
	}
	legs := s.Locations
	if legs <= 0 || legs > n {
		legs = n
	}
	hours := int(math.Ceil(time.Until(req.End()).Hours())) + 1
	if hours < 1 {
		hours = 1
	}
	if hours > maxForecastHours {
		hours = maxForecastHours
	}

	out := make([]float64, n)
	per := int(math.Ceil(float64(n) / float64(legs)))
	for lo := 0; lo < n; lo += per {
		hi := lo + per
		if hi > n {
			hi = n
		}
		fcs, err := s.Fetch(ctx, req.Points[(lo+hi-1)/2], hours)
		if err != nil {
			return nil, err
		}
		for i := lo; i < hi; i++ {
			if out[i], err = sample(fcs, req.At(i)); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

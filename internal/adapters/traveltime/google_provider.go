package traveltime

import (
	"commute-eta-service/internal/platform/obs"
	"commute-eta-service/internal/ports"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const googleBaseURL = "https://maps.googleapis.com"

// GoogleProvider queries the Google Distance Matrix API for driving times
// with the best-guess traffic model at the current departure time.
type GoogleProvider struct {
	client  *retryingClient
	apiKey  string
	baseURL string
}

type GoogleOption func(*GoogleProvider)

// WithGoogleBaseURL points the provider at another host, e.g. an
// httptest server.
func WithGoogleBaseURL(u string) GoogleOption {
	return func(g *GoogleProvider) { g.baseURL = u }
}

func NewGoogleProvider(apiKey string, opts ...GoogleOption) (*GoogleProvider, error) {
	if apiKey == "" {
		return nil, errors.New("google maps api key is empty")
	}

	g := &GoogleProvider{
		client:  newRetryingClient(10 * time.Second),
		apiKey:  apiKey,
		baseURL: googleBaseURL,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

type googleValue struct {
	Value int    `json:"value"`
	Text  string `json:"text"`
}

type distanceMatrixResponse struct {
	Status               string   `json:"status"`
	ErrorMessage         string   `json:"error_message"`
	OriginAddresses      []string `json:"origin_addresses"`
	DestinationAddresses []string `json:"destination_addresses"`
	Rows                 []struct {
		Elements []struct {
			Status            string       `json:"status"`
			Duration          googleValue  `json:"duration"`
			DurationInTraffic *googleValue `json:"duration_in_traffic"`
			Distance          googleValue  `json:"distance"`
		} `json:"elements"`
	} `json:"rows"`
}

func (g *GoogleProvider) TravelTime(
	ctx context.Context,
	origin string,
	destination string,
) (_ ports.TravelTime, err error) {
	defer obs.Time(ctx, "google.TravelTime")(&err)

	origin = normalize(origin)
	destination = normalize(destination)
	if origin == "" || destination == "" {
		return ports.TravelTime{}, fmt.Errorf("google travel time: %w", ErrEmptyLocation)
	}

	endpoint := g.baseURL + "/maps/api/distancematrix/json"

	resp, err := g.client.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		q := req.URL.Query()
		q.Set("origins", origin)
		q.Set("destinations", destination)
		q.Set("mode", "driving")
		q.Set("units", "imperial")
		q.Set("departure_time", "now")
		q.Set("traffic_model", "best_guess")
		q.Set("key", g.apiKey)
		req.URL.RawQuery = q.Encode()
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return ports.TravelTime{}, fmt.Errorf("distance matrix request: %w", err)
	}
	defer resp.Body.Close()

	var dm distanceMatrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&dm); err != nil {
		return ports.TravelTime{}, fmt.Errorf("decode distance matrix response: %w", err)
	}

	if dm.Status != "OK" {
		return ports.TravelTime{}, fmt.Errorf("distance matrix status %s: %s", dm.Status, dm.ErrorMessage)
	}
	if len(dm.Rows) == 0 || len(dm.Rows[0].Elements) == 0 {
		return ports.TravelTime{}, fmt.Errorf("distance matrix returned no elements: %w", ErrNoRoute)
	}

	el := dm.Rows[0].Elements[0]
	if el.Status != "OK" {
		return ports.TravelTime{}, fmt.Errorf("distance matrix element status %s: %w", el.Status, ErrNoRoute)
	}

	tt := ports.TravelTime{
		DistanceMeters:           el.Distance.Value,
		DurationSeconds:          el.Duration.Value,
		DurationInTrafficSeconds: el.Duration.Value,
		StartAddress:             origin,
		EndAddress:               destination,
	}
	if el.DurationInTraffic != nil {
		tt.DurationInTrafficSeconds = el.DurationInTraffic.Value
	}
	if len(dm.OriginAddresses) > 0 && dm.OriginAddresses[0] != "" {
		tt.StartAddress = dm.OriginAddresses[0]
	}
	if len(dm.DestinationAddresses) > 0 && dm.DestinationAddresses[0] != "" {
		tt.EndAddress = dm.DestinationAddresses[0]
	}

	return tt, nil
}

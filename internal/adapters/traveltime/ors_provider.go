package traveltime

import (
	"commute-eta-service/internal/domain"
	"commute-eta-service/internal/platform/log"
	"commute-eta-service/internal/platform/obs"
	"commute-eta-service/internal/ports"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ORSProvider implements TravelTimeProvider using OpenRouteService.
//
// It coordinates:
//   - Address normalization
//   - Persistent geocode caching
//   - A single-cell matrix request per origin/destination pair
//   - External API calls with retry/backoff
//
// ORS has no traffic model, so the traffic-adjusted duration equals the
// free-flow duration. The provider is safe for concurrent use.
type ORSProvider struct {
	client       *retryingClient
	apiKey       string
	baseURL      string
	profile      string
	country      string
	geocodeCache ports.GeocodeCache
}

type ORSOption func(*ORSProvider)

func WithORSBaseURL(u string) ORSOption {
	return func(o *ORSProvider) { o.baseURL = u }
}

func NewORSProvider(apiKey string, geocodeCache ports.GeocodeCache, opts ...ORSOption) (*ORSProvider, error) {
	if apiKey == "" {
		return nil, errors.New("ORS api key is empty")
	}

	o := &ORSProvider{
		client:       newRetryingClient(10 * time.Second),
		apiKey:       apiKey,
		baseURL:      "https://api.openrouteservice.org",
		profile:      "driving-car",
		country:      "US",
		geocodeCache: geocodeCache,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

func (o *ORSProvider) TravelTime(
	ctx context.Context,
	origin string,
	destination string,
) (_ ports.TravelTime, err error) {
	defer obs.Time(ctx, "ors.TravelTime")(&err)

	normOrigin := normalize(origin)
	normDestination := normalize(destination)
	if normOrigin == "" || normDestination == "" {
		return ports.TravelTime{}, fmt.Errorf("ORS travel time: %w", ErrEmptyLocation)
	}

	coords, err := o.resolve(ctx, []string{normOrigin, normDestination})
	if err != nil {
		return ports.TravelTime{}, fmt.Errorf("ORS travel time %q -> %q: %w", normOrigin, normDestination, err)
	}

	originCoord, ok := coords[normOrigin]
	if !ok {
		return ports.TravelTime{}, fmt.Errorf("missing coordinate for origin %q", normOrigin)
	}
	destinationCoord, ok := coords[normDestination]
	if !ok {
		return ports.TravelTime{}, fmt.Errorf("missing coordinate for destination %q", normDestination)
	}

	cell, err := o.fetchMatrixCell(ctx, originCoord, destinationCoord)
	if err != nil {
		return ports.TravelTime{}, fmt.Errorf("fetching matrix cell: %w", err)
	}

	return ports.TravelTime{
		DistanceMeters:           cell.DistanceMeters,
		DurationSeconds:          cell.DurationSeconds,
		DurationInTrafficSeconds: cell.DurationSeconds,
		StartAddress:             normOrigin,
		EndAddress:               normDestination,
	}, nil
}

// resolve returns coordinates for every address, consulting the geocode
// cache before calling ORS.
func (o *ORSProvider) resolve(ctx context.Context, addresses []string) (map[string]domain.Coordinates, error) {
	hits := make(map[string]domain.Coordinates)
	if o.geocodeCache != nil {
		var err error
		hits, err = o.geocodeCache.GetMany(ctx, addresses)
		if err != nil {
			return nil, fmt.Errorf("ORS get geocode cache: %w", err)
		}
	}

	misses := make([]string, 0, len(addresses))
	for _, a := range addresses {
		if _, ok := hits[a]; !ok {
			misses = append(misses, a)
		}
	}

	if len(misses) == 0 {
		return hits, nil
	}

	fresh, err := o.geocodeMany(ctx, misses)
	if err != nil {
		return nil, fmt.Errorf("retrieving coordinates: %w", err)
	}

	if o.geocodeCache != nil && len(fresh) > 0 {
		if err := o.geocodeCache.PutMany(ctx, fresh); err != nil {
			log.Warn("geocode cache write failed", "err", err)
		}
	}

	out := make(map[string]domain.Coordinates, len(hits)+len(fresh))
	for k, v := range hits {
		out[k] = v
	}
	for k, v := range fresh {
		out[k] = v
	}
	return out, nil
}

func (o *ORSProvider) newRequest(
	ctx context.Context,
	method string,
	url string,
	body io.Reader,
) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", o.apiKey)
	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

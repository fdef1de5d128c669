package traveltime

import (
	"bytes"
	"commute-eta-service/internal/domain"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
)

type matrixRequest struct {
	Locations    [][]float64 `json:"locations"`
	Destinations []int       `json:"destinations"`
	Metrics      []string    `json:"metrics"`
	Sources      []int       `json:"sources"`
}

type matrixResponse struct {
	Distances [][]*float64 `json:"distances"`
	Durations [][]*float64 `json:"durations"`
}

type matrixCell struct {
	DistanceMeters  int
	DurationSeconds int
}

// fetchMatrixCell retrieves distance and duration for one origin and one
// destination from the ORS matrix endpoint.
func (o *ORSProvider) fetchMatrixCell(
	ctx context.Context,
	originCoord domain.Coordinates,
	destinationCoord domain.Coordinates,
) (matrixCell, error) {
	endpoint := fmt.Sprintf("%s/v2/matrix/%s", o.baseURL, o.profile)

	payload, err := json.Marshal(matrixRequest{
		Locations:    [][]float64{originCoord.LonLat(), destinationCoord.LonLat()},
		Destinations: []int{1},
		Metrics:      []string{"distance", "duration"},
		Sources:      []int{0},
	})
	if err != nil {
		return matrixCell{}, fmt.Errorf("marshal matrix request: %w", err)
	}

	resp, err := o.client.doWithRetry(ctx, func() (*http.Request, error) {
		return o.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	})
	if err != nil {
		return matrixCell{}, fmt.Errorf("matrix request failed: %w", err)
	}
	defer resp.Body.Close()

	var mr matrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return matrixCell{}, fmt.Errorf("decode matrix response: %w", err)
	}

	if len(mr.Distances) != 1 || len(mr.Durations) != 1 ||
		len(mr.Distances[0]) != 1 || len(mr.Durations[0]) != 1 {
		return matrixCell{}, fmt.Errorf(
			"expected a 1x1 matrix; got distances=%d durations=%d",
			len(mr.Distances), len(mr.Durations),
		)
	}

	meters := mr.Distances[0][0]
	seconds := mr.Durations[0][0]
	if meters == nil || seconds == nil {
		// ORS reports unroutable pairs as null cells.
		return matrixCell{}, fmt.Errorf("matrix returned empty cell: %w", ErrNoRoute)
	}

	return matrixCell{
		DistanceMeters:  int(math.Round(*meters)),
		DurationSeconds: int(math.Round(*seconds)),
	}, nil
}

package cache

import (
	"commute-eta-service/internal/platform/db"
	"commute-eta-service/internal/platform/obs"
	"commute-eta-service/internal/ports"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Fixed-width UTC layout so fetched_at orders lexically.
const fetchedAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

var travelColumns = []string{
	"distance_meters",
	"duration_seconds",
	"duration_in_traffic_seconds",
	"start_address",
	"end_address",
	"fetched_at",
}

// SQLTravelCache is a SQL-backed cache of travel times keyed by
// normalized origin and destination. Entries older than TTL are misses.
type SQLTravelCache struct {
	DB      *sql.DB
	Dialect db.Dialect
	TTL     time.Duration

	now func() time.Time
}

func NewSQLTravelCache(conn *sql.DB, dialect db.Dialect, ttl time.Duration) *SQLTravelCache {
	return &SQLTravelCache{DB: conn, Dialect: dialect, TTL: ttl, now: time.Now}
}

func (s *SQLTravelCache) Get(
	ctx context.Context,
	origin string,
	destination string,
) (_ ports.TravelTime, _ bool, err error) {
	defer obs.Time(ctx, "travel.cache.Get")(&err)

	if s.DB == nil {
		return ports.TravelTime{}, false, errors.New("travel cache: db is nil")
	}

	q := db.Rebind(s.Dialect, `
	SELECT distance_meters, duration_seconds, duration_in_traffic_seconds,
		start_address, end_address, fetched_at
	FROM travel_cache
	WHERE origin = ? AND destination = ?;
	`)

	var tt ports.TravelTime
	var fetchedAt string
	err = s.DB.QueryRowContext(ctx, q, origin, destination).Scan(
		&tt.DistanceMeters,
		&tt.DurationSeconds,
		&tt.DurationInTrafficSeconds,
		&tt.StartAddress,
		&tt.EndAddress,
		&fetchedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.TravelTime{}, false, nil
	}
	if err != nil {
		return ports.TravelTime{}, false, fmt.Errorf("get travel cache: %w", err)
	}

	at, err := time.Parse(time.RFC3339Nano, fetchedAt)
	if err != nil {
		return ports.TravelTime{}, false, fmt.Errorf("get travel cache: parse fetched_at %q: %w", fetchedAt, err)
	}
	if s.TTL > 0 && s.now().Sub(at) > s.TTL {
		return ports.TravelTime{}, false, nil
	}

	return tt, true, nil
}

func (s *SQLTravelCache) Put(
	ctx context.Context,
	origin string,
	destination string,
	tt ports.TravelTime,
) (err error) {
	defer obs.Time(ctx, "travel.cache.Put")(&err)

	if s.DB == nil {
		return errors.New("travel cache: db is nil")
	}
	if origin == "" || destination == "" {
		return errors.New("insert travel cache: origin and destination must not be empty")
	}

	q := upsertQuery(s.Dialect, "travel_cache", []string{"origin", "destination"}, travelColumns, 1)

	_, err = s.DB.ExecContext(ctx, q,
		origin,
		destination,
		tt.DistanceMeters,
		tt.DurationSeconds,
		tt.DurationInTrafficSeconds,
		tt.StartAddress,
		tt.EndAddress,
		s.now().UTC().Format(fetchedAtLayout),
	)
	if err != nil {
		return fmt.Errorf("insert travel cache %q -> %q: %w", origin, destination, err)
	}
	return nil
}

// Purge deletes entries older than TTL and reports how many were removed.
func (s *SQLTravelCache) Purge(ctx context.Context) (int64, error) {
	if s.DB == nil {
		return 0, errors.New("travel cache: db is nil")
	}
	if s.TTL <= 0 {
		return 0, nil
	}

	cutoff := s.now().Add(-s.TTL).UTC().Format(fetchedAtLayout)
	res, err := s.DB.ExecContext(ctx, db.Rebind(s.Dialect, `DELETE FROM travel_cache WHERE fetched_at < ?;`), cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge travel cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge travel cache: rows affected: %w", err)
	}
	return n, nil
}

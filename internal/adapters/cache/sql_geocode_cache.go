package cache

import (
	"commute-eta-service/internal/domain"
	"commute-eta-service/internal/platform/db"
	"commute-eta-service/internal/platform/obs"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

var geocodeColumns = []string{"lon", "lat"}

// SQLGeocodeCache maps addresses to coordinates in the geocode_cache
// table. Callers normalize addresses; blank ones are never stored.
type SQLGeocodeCache struct {
	DB      *sql.DB
	Dialect db.Dialect
}

func NewSQLGeocodeCache(conn *sql.DB, dialect db.Dialect) *SQLGeocodeCache {
	return &SQLGeocodeCache{DB: conn, Dialect: dialect}
}

// GetMany returns the cached subset of addresses. Misses are absent from
// the map.
func (s *SQLGeocodeCache) GetMany(ctx context.Context, addresses []string) (_ map[string]domain.Coordinates, err error) {
	defer obs.Time(ctx, "geocode.cache.GetMany")(&err)

	if s.DB == nil {
		return nil, errors.New("geocode cache: db is nil")
	}

	keys := make(map[string]bool, len(addresses))
	for _, a := range addresses {
		if a = strings.TrimSpace(a); a != "" {
			keys[a] = true
		}
	}
	found := make(map[string]domain.Coordinates, len(keys))
	if len(keys) == 0 {
		return found, nil
	}

	args := make([]any, 0, len(keys))
	for _, k := range slices.Sorted(maps.Keys(keys)) {
		args = append(args, k)
	}
	q := db.Rebind(s.Dialect,
		"SELECT address, lon, lat FROM geocode_cache WHERE address IN ("+placeholders(len(args))+")")

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("geocode cache lookup: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var addr string
		var c domain.Coordinates
		if err := rows.Scan(&addr, &c.Lon, &c.Lat); err != nil {
			return nil, fmt.Errorf("geocode cache lookup: %w", err)
		}
		found[addr] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("geocode cache lookup: %w", err)
	}
	return found, nil
}

// PutMany upserts every entry in one statement. A blank address rejects
// the whole batch.
func (s *SQLGeocodeCache) PutMany(ctx context.Context, coords map[string]domain.Coordinates) (err error) {
	defer obs.Time(ctx, "geocode.cache.PutMany")(&err)

	if s.DB == nil {
		return errors.New("geocode cache: db is nil")
	}
	if len(coords) == 0 {
		return nil
	}

	args := make([]any, 0, 3*len(coords))
	for _, addr := range slices.Sorted(maps.Keys(coords)) {
		if strings.TrimSpace(addr) == "" {
			return errors.New("geocode cache store: empty address")
		}
		c := coords[addr]
		args = append(args, addr, c.Lon, c.Lat)
	}

	q := upsertQuery(s.Dialect, "geocode_cache", []string{"address"}, geocodeColumns, len(coords))
	if _, err := s.DB.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("geocode cache store %d addresses: %w", len(coords), err)
	}
	return nil
}

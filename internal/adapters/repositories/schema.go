package repositories

import (
	"commute-eta-service/internal/platform/db"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// InitSchema creates the tables used by the repositories and caches.
// Statements are idempotent.
func InitSchema(conn *sql.DB, dialect db.Dialect) error {
	if conn == nil {
		return errors.New("init schema: DB is nil")
	}

	float := "REAL"
	boolean := "INTEGER"
	if dialect == db.Postgres {
		float = "DOUBLE PRECISION"
		boolean = "BOOLEAN"
	}

	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createUsersQuery := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	`

	createRoutesQuery := `
	CREATE TABLE IF NOT EXISTS routes (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		from_location TEXT NOT NULL,
		to_location TEXT NOT NULL,
		target_arrival_time TEXT NOT NULL,
		notifications_enabled {{bool}} NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT,
		imported_at TEXT
	);
	`

	createRoutesIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_routes_user_created
	ON routes(user_id, created_at);
	`

	createTravelCacheQuery := `
	CREATE TABLE IF NOT EXISTS travel_cache (
		origin TEXT NOT NULL,
		destination TEXT NOT NULL,
		distance_meters INTEGER NOT NULL,
		duration_seconds INTEGER NOT NULL,
		duration_in_traffic_seconds INTEGER NOT NULL,
		start_address TEXT NOT NULL,
		end_address TEXT NOT NULL,
		fetched_at TEXT NOT NULL,
		PRIMARY KEY (origin, destination)
	);
	`

	createGeocodeCacheQuery := `
	CREATE TABLE IF NOT EXISTS geocode_cache (
		address TEXT PRIMARY KEY,
		lon {{float}} NOT NULL,
		lat {{float}} NOT NULL
	);
	`

	r := strings.NewReplacer("{{bool}}", boolean, "{{float}}", float)

	statements := []string{
		createUsersQuery,
		createRoutesQuery,
		createRoutesIndexQuery,
		createTravelCacheQuery,
		createGeocodeCacheQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(r.Replace(stmt)); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

package cache

import (
	"commute-eta-service/internal/adapters/repositories"
	"commute-eta-service/internal/domain"
	"commute-eta-service/internal/platform/db"
	"commute-eta-service/internal/ports"
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.OpenSQLite(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := repositories.InitSchema(conn, db.SQLite); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	return conn
}

func TestSQLTravelCacheExpiresEntries(t *testing.T) {
	ctx := context.Background()
	c := NewSQLTravelCache(openTestDB(t), db.SQLite, 2*time.Minute)

	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	want := ports.TravelTime{
		DistanceMeters:           16093,
		DurationSeconds:          1500,
		DurationInTrafficSeconds: 1800,
		StartAddress:             "home",
		EndAddress:               "office",
	}
	if err := c.Put(ctx, "home", "office", want); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, ok, err := c.Get(ctx, "home", "office")
	if err != nil || !ok {
		t.Fatalf("get = %v, %v; want hit", ok, err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	now = now.Add(3 * time.Minute)
	if _, ok, err := c.Get(ctx, "home", "office"); err != nil || ok {
		t.Fatalf("get after ttl = %v, %v; want miss", ok, err)
	}

	n, err := c.Purge(ctx)
	if err != nil || n != 1 {
		t.Fatalf("purge = %d, %v; want 1", n, err)
	}
}

func TestSQLTravelCacheUpsert(t *testing.T) {
	ctx := context.Background()
	c := NewSQLTravelCache(openTestDB(t), db.SQLite, time.Hour)

	if err := c.Put(ctx, "a", "b", ports.TravelTime{DurationSeconds: 60}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := c.Put(ctx, "a", "b", ports.TravelTime{DurationSeconds: 120}); err != nil {
		t.Fatalf("second put: %v", err)
	}

	got, ok, err := c.Get(ctx, "a", "b")
	if err != nil || !ok || got.DurationSeconds != 120 {
		t.Fatalf("get = %+v, %v, %v; want 120s hit", got, ok, err)
	}

	if _, ok, _ := c.Get(ctx, "b", "a"); ok {
		t.Fatal("reverse direction should miss")
	}
}

func TestSQLGeocodeCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewSQLGeocodeCache(openTestDB(t), db.SQLite)

	in := map[string]domain.Coordinates{
		"123 main st": {Lon: -73.98, Lat: 40.75},
		"456 oak ave": {Lon: -74.01, Lat: 40.70},
	}
	if err := c.PutMany(ctx, in); err != nil {
		t.Fatalf("put many: %v", err)
	}

	got, err := c.GetMany(ctx, []string{"123 main st", "456 oak ave", "missing", "123 main st", " "})
	if err != nil {
		t.Fatalf("get many: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2: %v", len(got), got)
	}
	for k, v := range in {
		if got[k] != v {
			t.Errorf("%s = %v, want %v", k, got[k], v)
		}
	}
}

func TestSQLGeocodeCacheOverwritesAndRejectsBlank(t *testing.T) {
	ctx := context.Background()
	c := NewSQLGeocodeCache(openTestDB(t), db.SQLite)

	if err := c.PutMany(ctx, map[string]domain.Coordinates{"1 elm st": {Lon: 1, Lat: 2}}); err != nil {
		t.Fatal(err)
	}
	if err := c.PutMany(ctx, map[string]domain.Coordinates{"1 elm st": {Lon: 3, Lat: 4}, "2 elm st": {Lon: 5, Lat: 6}}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if err := c.PutMany(ctx, map[string]domain.Coordinates{"3 elm st": {Lon: 7, Lat: 8}, "  ": {}}); err == nil {
		t.Fatal("blank address accepted")
	}

	got, err := c.GetMany(ctx, []string{"1 elm st", "2 elm st", "3 elm st"})
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]domain.Coordinates{"1 elm st": {Lon: 3, Lat: 4}, "2 elm st": {Lon: 5, Lat: 6}}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %v, want %v", k, got[k], v)
		}
	}
}

func TestUpsertQuery(t *testing.T) {
	tests := []struct {
		name    string
		dialect db.Dialect
		rows    int
		want    string
	}{
		{
			name:    "sqlite single row",
			dialect: db.SQLite,
			rows:    1,
			want:    "INSERT INTO t (k, a, b) VALUES (?, ?, ?) ON CONFLICT (k) DO UPDATE SET a = excluded.a, b = excluded.b",
		},
		{
			name:    "postgres two rows",
			dialect: db.Postgres,
			rows:    2,
			want:    "INSERT INTO t (k, a, b) VALUES ($1, $2, $3), ($4, $5, $6) ON CONFLICT (k) DO UPDATE SET a = excluded.a, b = excluded.b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := upsertQuery(tt.dialect, "t", []string{"k"}, []string{"a", "b"}, tt.rows); got != tt.want {
				t.Fatalf("query =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

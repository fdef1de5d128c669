package repositories

import (
	"commute-eta-service/internal/domain"
	"commute-eta-service/internal/platform/db"
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.OpenSQLite(filepath.Join(t.TempDir(), "routes.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := InitSchema(conn, db.SQLite); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	// Idempotent.
	if err := InitSchema(conn, db.SQLite); err != nil {
		t.Fatalf("init schema twice: %v", err)
	}
	return conn
}

func newRoute(userID, name string) *domain.Route {
	return &domain.Route{
		UserID:            userID,
		Name:              name,
		FromLocation:      "Home",
		ToLocation:        name + " Street",
		TargetArrivalTime: domain.TimeOfDay{Hour: 9, Minute: 0},
	}
}

func TestRouteRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLRouteRepository(openTestDB(t), db.SQLite)

	clock := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	repo.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	work, err := repo.Create(ctx, newRoute("u1", "Work"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if work.ID == "" || work.CreatedAt.IsZero() {
		t.Fatalf("id/created not assigned: %+v", work)
	}
	gym, err := repo.Create(ctx, newRoute("u1", "Gym"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.Create(ctx, newRoute("u2", "Other")); err != nil {
		t.Fatalf("create: %v", err)
	}

	routes, err := repo.List(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(routes) != 2 || routes[0].ID != work.ID || routes[1].ID != gym.ID {
		t.Fatalf("list = %v, want [work gym] in creation order", routes)
	}

	got, err := repo.Get(ctx, "u1", work.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TargetArrivalTime != (domain.TimeOfDay{Hour: 9}) || got.NotificationsEnabled {
		t.Fatalf("unexpected route: %+v", got)
	}

	if _, err := repo.Get(ctx, "u2", work.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("get other user's route: err = %v, want ErrNotFound", err)
	}

	got.NotificationsEnabled = true
	got.TargetArrivalTime = domain.TimeOfDay{Hour: 8, Minute: 30}
	updated, err := repo.Update(ctx, got)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.UpdatedAt == nil {
		t.Fatal("update did not stamp UpdatedAt")
	}

	reloaded, _ := repo.Get(ctx, "u1", work.ID)
	if !reloaded.NotificationsEnabled || reloaded.TargetArrivalTime.String() != "08:30" || reloaded.UpdatedAt == nil {
		t.Fatalf("update not persisted: %+v", reloaded)
	}

	missing := *got
	missing.ID = "nope"
	if _, err := repo.Update(ctx, &missing); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("update missing: err = %v, want ErrNotFound", err)
	}

	ok, err := repo.Delete(ctx, "u1", gym.ID)
	if err != nil || !ok {
		t.Fatalf("delete = %v, %v; want true", ok, err)
	}
	ok, err = repo.Delete(ctx, "u1", gym.ID)
	if err != nil || ok {
		t.Fatalf("second delete = %v, %v; want false", ok, err)
	}

	if err := repo.Clear(ctx, "u1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if routes, _ := repo.List(ctx, "u1"); len(routes) != 0 {
		t.Fatalf("list after clear = %d routes", len(routes))
	}
	if routes, _ := repo.List(ctx, "u2"); len(routes) != 1 {
		t.Fatalf("clear removed another user's routes")
	}
}

func TestRouteRepositoryImportReplacesRoutes(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)
	repo := NewSQLRouteRepository(conn, db.SQLite)

	if _, err := repo.Create(ctx, newRoute("u1", "Old")); err != nil {
		t.Fatalf("create: %v", err)
	}

	incoming := []*domain.Route{
		{ID: "r1", UserID: "someone-else", Name: "Work", FromLocation: "A", ToLocation: "B", TargetArrivalTime: domain.TimeOfDay{Hour: 9}},
		{ID: "r2", UserID: "someone-else", Name: "Gym", FromLocation: "B", ToLocation: "C", TargetArrivalTime: domain.TimeOfDay{Hour: 18}},
	}

	imported, err := repo.ImportAll(ctx, "u1", incoming)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(imported) != 2 {
		t.Fatalf("imported %d routes, want 2", len(imported))
	}
	for i, r := range imported {
		if r.ID == "r1" || r.ID == "r2" || r.ID == "" {
			t.Errorf("route %d kept its id %q", i, r.ID)
		}
		if r.UserID != "u1" || r.ImportedAt == nil {
			t.Errorf("route %d not reassigned/stamped: %+v", i, r)
		}
	}
	if incoming[0].ID != "r1" {
		t.Fatal("import mutated its input")
	}

	routes, err := repo.List(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(routes) != 2 {
		t.Fatalf("list = %d routes, want 2 (old route replaced)", len(routes))
	}
	for _, r := range routes {
		if r.Name == "Old" {
			t.Fatal("old route survived import")
		}
		if r.ImportedAt == nil {
			t.Fatalf("ImportedAt not persisted: %+v", r)
		}
	}
}

func TestRouteRepositoryExportIncludesUser(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)
	users := NewSQLUserRepository(conn, db.SQLite)
	repo := NewSQLRouteRepository(conn, db.SQLite)

	u, err := users.EnsureUser(ctx, "Alex@Example.com")
	if err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	if _, err := repo.Create(ctx, newRoute(u.ID, "Work")); err != nil {
		t.Fatalf("create: %v", err)
	}

	exp, err := repo.ExportAll(ctx, u.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if exp.User == nil || exp.User.Email != "alex@example.com" || exp.User.Name != "alex" {
		t.Fatalf("unexpected export user: %+v", exp.User)
	}
	if len(exp.Routes) != 1 || exp.ExportedAt == "" {
		t.Fatalf("unexpected export: %+v", exp)
	}
	if _, err := time.Parse(time.RFC3339, exp.ExportedAt); err != nil {
		t.Fatalf("exportedAt not RFC 3339: %v", err)
	}
}

package repositories

import (
	"commute-eta-service/internal/domain"
	"commute-eta-service/internal/platform/db"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Fixed-width UTC layout so stored timestamps order lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t, nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// SQLRouteRepository implements the RouteStore port on SQLite or Postgres.
type SQLRouteRepository struct {
	DB      *sql.DB
	Dialect db.Dialect

	now func() time.Time
}

func NewSQLRouteRepository(conn *sql.DB, dialect db.Dialect) *SQLRouteRepository {
	return &SQLRouteRepository{DB: conn, Dialect: dialect, now: time.Now}
}

const routeColumns = `
		id,
		user_id,
		name,
		from_location,
		to_location,
		target_arrival_time,
		notifications_enabled,
		created_at,
		updated_at,
		imported_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoute(row rowScanner) (*domain.Route, error) {
	var (
		r                    domain.Route
		target, created      string
		updated, imported    sql.NullString
		notificationsEnabled bool
	)
	if err := row.Scan(
		&r.ID,
		&r.UserID,
		&r.Name,
		&r.FromLocation,
		&r.ToLocation,
		&target,
		&notificationsEnabled,
		&created,
		&updated,
		&imported,
	); err != nil {
		return nil, err
	}

	tod, err := domain.ParseTimeOfDay(target)
	if err != nil {
		return nil, fmt.Errorf("route %s: %w", r.ID, err)
	}
	r.TargetArrivalTime = tod
	r.NotificationsEnabled = notificationsEnabled

	if r.CreatedAt, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("route %s: %w", r.ID, err)
	}
	if r.UpdatedAt, err = parseNullTime(updated); err != nil {
		return nil, fmt.Errorf("route %s: %w", r.ID, err)
	}
	if r.ImportedAt, err = parseNullTime(imported); err != nil {
		return nil, fmt.Errorf("route %s: %w", r.ID, err)
	}
	return &r, nil
}

// Return the user's routes in creation order.
func (s *SQLRouteRepository) List(ctx context.Context, userID string) ([]*domain.Route, error) {
	if s.DB == nil {
		return nil, errors.New("route repository: DB is nil")
	}

	query := db.Rebind(s.Dialect, `
	SELECT`+routeColumns+`
	FROM routes
	WHERE user_id = ?
	ORDER BY created_at, id;
	`)
	rows, err := s.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list routes: query routes table: %w", err)
	}
	defer rows.Close()

	routes := make([]*domain.Route, 0, 16)
	for rows.Next() {
		r, err := scanRoute(rows)
		if err != nil {
			return nil, fmt.Errorf("list routes: scan row: %w", err)
		}
		routes = append(routes, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list routes: row iteration: %w", err)
	}

	return routes, nil
}

func (s *SQLRouteRepository) Get(ctx context.Context, userID string, id string) (*domain.Route, error) {
	if s.DB == nil {
		return nil, errors.New("route repository: DB is nil")
	}

	query := db.Rebind(s.Dialect, `
	SELECT`+routeColumns+`
	FROM routes
	WHERE user_id = ? AND id = ?;
	`)
	r, err := scanRoute(s.DB.QueryRowContext(ctx, query, userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get route %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get route %s: %w", id, err)
	}
	return r, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLRouteRepository) insert(ctx context.Context, ex execer, r *domain.Route) error {
	query := db.Rebind(s.Dialect, `
	INSERT INTO routes (`+routeColumns+`
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`)
	_, err := ex.ExecContext(ctx, query,
		r.ID,
		r.UserID,
		r.Name,
		r.FromLocation,
		r.ToLocation,
		r.TargetArrivalTime.String(),
		r.NotificationsEnabled,
		formatTime(r.CreatedAt),
		nullTime(r.UpdatedAt),
		nullTime(r.ImportedAt),
	)
	return err
}

// Persist a new route. ID and CreatedAt are assigned when empty.
func (s *SQLRouteRepository) Create(ctx context.Context, route *domain.Route) (*domain.Route, error) {
	if s.DB == nil {
		return nil, errors.New("route repository: DB is nil")
	}
	if route.UserID == "" {
		return nil, errors.New("create route: user id must not be empty")
	}

	r := *route
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}

	if err := s.insert(ctx, s.DB, &r); err != nil {
		return nil, fmt.Errorf("create route: insert: %w", err)
	}
	return &r, nil
}

// Replace a stored route's fields and stamp UpdatedAt.
func (s *SQLRouteRepository) Update(ctx context.Context, route *domain.Route) (*domain.Route, error) {
	if s.DB == nil {
		return nil, errors.New("route repository: DB is nil")
	}

	r := *route
	now := s.now()
	r.UpdatedAt = &now

	query := db.Rebind(s.Dialect, `
	UPDATE routes
	SET name = ?,
		from_location = ?,
		to_location = ?,
		target_arrival_time = ?,
		notifications_enabled = ?,
		updated_at = ?
	WHERE user_id = ? AND id = ?;
	`)
	res, err := s.DB.ExecContext(ctx, query,
		r.Name,
		r.FromLocation,
		r.ToLocation,
		r.TargetArrivalTime.String(),
		r.NotificationsEnabled,
		nullTime(r.UpdatedAt),
		r.UserID,
		r.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update route %s: %w", r.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update route %s: rows affected: %w", r.ID, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("update route %s: %w", r.ID, domain.ErrNotFound)
	}
	return &r, nil
}

func (s *SQLRouteRepository) Delete(ctx context.Context, userID string, id string) (bool, error) {
	if s.DB == nil {
		return false, errors.New("route repository: DB is nil")
	}

	res, err := s.DB.ExecContext(ctx, db.Rebind(s.Dialect, `DELETE FROM routes WHERE user_id = ? AND id = ?;`), userID, id)
	if err != nil {
		return false, fmt.Errorf("delete route %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete route %s: rows affected: %w", id, err)
	}
	return n > 0, nil
}

func (s *SQLRouteRepository) Clear(ctx context.Context, userID string) error {
	if s.DB == nil {
		return errors.New("route repository: DB is nil")
	}

	if _, err := s.DB.ExecContext(ctx, db.Rebind(s.Dialect, `DELETE FROM routes WHERE user_id = ?;`), userID); err != nil {
		return fmt.Errorf("clear routes: %w", err)
	}
	return nil
}

// Return the user together with all of their routes. User is nil when no
// user row exists.
func (s *SQLRouteRepository) ExportAll(ctx context.Context, userID string) (*domain.Export, error) {
	routes, err := s.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}

	user, err := getUser(ctx, s.DB, s.Dialect, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("export: %w", err)
	}

	return &domain.Export{
		User:       user,
		Routes:     routes,
		ExportedAt: s.now().UTC().Format(time.RFC3339),
	}, nil
}

// Replace the user's routes with freshly identified copies of routes in a
// single transaction. Original creation times are kept when present.
func (s *SQLRouteRepository) ImportAll(ctx context.Context, userID string, routes []*domain.Route) ([]*domain.Route, error) {
	if s.DB == nil {
		return nil, errors.New("route repository: DB is nil")
	}
	if userID == "" {
		return nil, errors.New("import routes: user id must not be empty")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("import routes: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, db.Rebind(s.Dialect, `DELETE FROM routes WHERE user_id = ?;`), userID); err != nil {
		return nil, fmt.Errorf("import routes: clear existing: %w", err)
	}

	now := s.now()
	out := make([]*domain.Route, 0, len(routes))
	for i, in := range routes {
		r := *in
		r.ID = uuid.NewString()
		r.UserID = userID
		r.ImportedAt = &now
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}

		if err := s.insert(ctx, tx, &r); err != nil {
			return nil, fmt.Errorf("import routes: insert #%d: %w", i, err)
		}
		out = append(out, &r)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("import routes: commit tx: %w", err)
	}

	return out, nil
}

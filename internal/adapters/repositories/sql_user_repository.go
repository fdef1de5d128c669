package repositories

import (
	"commute-eta-service/internal/domain"
	"commute-eta-service/internal/platform/db"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SQLUserRepository implements the UserStore port.
type SQLUserRepository struct {
	DB      *sql.DB
	Dialect db.Dialect

	now func() time.Time
}

func NewSQLUserRepository(conn *sql.DB, dialect db.Dialect) *SQLUserRepository {
	return &SQLUserRepository{DB: conn, Dialect: dialect, now: time.Now}
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	var created string
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &created); err != nil {
		return nil, err
	}
	t, err := parseTime(created)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", u.ID, err)
	}
	u.CreatedAt = t
	return &u, nil
}

func getUser(ctx context.Context, q queryRower, dialect db.Dialect, id string) (*domain.User, error) {
	query := db.Rebind(dialect, `SELECT id, email, name, created_at FROM users WHERE id = ?;`)
	u, err := scanUser(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return u, nil
}

func (s *SQLUserRepository) GetUser(ctx context.Context, id string) (*domain.User, error) {
	if s.DB == nil {
		return nil, errors.New("user repository: DB is nil")
	}
	return getUser(ctx, s.DB, s.Dialect, id)
}

// Return the user with this email, creating it on first use. Emails are
// compared case-insensitively.
func (s *SQLUserRepository) EnsureUser(ctx context.Context, email string) (*domain.User, error) {
	if s.DB == nil {
		return nil, errors.New("user repository: DB is nil")
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, errors.New("ensure user: email must not be empty")
	}

	insert := db.Rebind(s.Dialect, `
	INSERT INTO users (id, email, name, created_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (email) DO NOTHING;
	`)
	if _, err := s.DB.ExecContext(ctx, insert,
		uuid.NewString(),
		email,
		domain.NameFromEmail(email),
		formatTime(s.now()),
	); err != nil {
		return nil, fmt.Errorf("ensure user %s: insert: %w", email, err)
	}

	query := db.Rebind(s.Dialect, `SELECT id, email, name, created_at FROM users WHERE email = ?;`)
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, email))
	if err != nil {
		return nil, fmt.Errorf("ensure user %s: select: %w", email, err)
	}
	return u, nil
}

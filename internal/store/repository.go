package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"dailyattend/internal/model"
)

var (
	// ErrDuplicate is returned when an insert hits a uniqueness constraint.
	ErrDuplicate = errors.New("duplicate key")
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
)

// Repository persists users and attendance records.
type Repository struct {
	db *DB
}

// NewRepository creates a repo.
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// CreateUser inserts a user and returns its id. A taken username yields ErrDuplicate.
func (r *Repository) CreateUser(ctx context.Context, username, passwordHash string, role model.Role) (int64, error) {
	var id int64
	err := r.db.Client.QueryRowContext(ctx, r.db.rebind(`
		INSERT INTO users (username, password_hash, role)
		VALUES (?, ?, ?)
		RETURNING id
	`), username, passwordHash, string(role)).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	return id, nil
}

// FindUserByName returns the user with the exact (case-sensitive) username.
func (r *Repository) FindUserByName(ctx context.Context, username string) (model.User, error) {
	var u model.User
	var role string
	err := r.db.Client.QueryRowContext(ctx, r.db.rebind(`
		SELECT id, username, password_hash, role FROM users WHERE username = ?
	`), username).Scan(&u.ID, &u.Username, &u.PasswordHash, &role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, err
	}
	u.Role = model.Role(role)
	return u, nil
}

// ListUsers returns every user ordered by id.
func (r *Repository) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := r.db.Client.QueryContext(ctx, `SELECT id, username, role FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []model.User
	for rows.Next() {
		var u model.User
		var role string
		if err := rows.Scan(&u.ID, &u.Username, &role); err != nil {
			return nil, err
		}
		u.Role = model.Role(role)
		res = append(res, u)
	}
	return res, rows.Err()
}

// InsertAttendanceIfAbsent writes the record unless one exists for (userID, day).
// It reports whether a row was inserted; a conflict is not an error.
func (r *Repository) InsertAttendanceIfAbsent(ctx context.Context, userID int64, day, status string) (bool, error) {
	res, err := r.db.Client.ExecContext(ctx, r.db.rebind(`
		INSERT INTO attendance (user_id, day, status)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id, day) DO NOTHING
	`), userID, day, status)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListAttendance returns the user's records, most recent day first.
func (r *Repository) ListAttendance(ctx context.Context, userID int64) ([]model.Record, error) {
	rows, err := r.db.Client.QueryContext(ctx, r.db.rebind(`
		SELECT day, status FROM attendance WHERE user_id = ? ORDER BY day DESC
	`), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []model.Record{}
	for rows.Next() {
		var rec model.Record
		if err := rows.Scan(&rec.Date, &rec.Status); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			return strings.Contains(liteErr.Error(), "UNIQUE")
		}
	}
	return false
}

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"workmatch/internal/domain"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

var _ domain.UserRepository = (*UserRepo)(nil)

const userColumns = `id, role, fullname, governorate, district, specialty, is_available, needed_specialists, created_at`

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	needed, err := encodeNeeded(u.NeededSpecialists)
	if err != nil {
		return err
	}
	var id int64
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
		RETURNING id
	`, u.ID, u.Role, u.FullName, u.Governorate, u.District, u.Specialty,
		u.IsAvailable, needed, u.CreatedAt,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *UserRepo) List(ctx context.Context, f domain.UserFilter) ([]*domain.User, error) {
	var (
		where []string
		args  []any
	)
	if f.Role != "" {
		where = append(where, "role = ?")
		args = append(args, f.Role)
	}
	if f.Specialty != "" {
		where = append(where, "specialty = ? COLLATE NOCASE")
		args = append(args, f.Specialty)
	}
	if f.Governorate != "" {
		where = append(where, "governorate = ? COLLATE NOCASE")
		args = append(args, f.Governorate)
	}
	if f.District != "" {
		where = append(where, "district = ? COLLATE NOCASE")
		args = append(args, f.District)
	}
	if f.Available != nil {
		where = append(where, "is_available = ?")
		args = append(args, *f.Available)
	}

	query := `SELECT ` + userColumns + ` FROM users`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY id`
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *UserRepo) SetAvailability(ctx context.Context, id int64, available bool) (*domain.User, error) {
	return r.update(ctx, id, "is_available", available)
}

func (r *UserRepo) SetNeededSpecialists(ctx context.Context, id int64, needed []domain.NeededSpecialist) (*domain.User, error) {
	encoded, err := encodeNeeded(needed)
	if err != nil {
		return nil, err
	}
	return r.update(ctx, id, "needed_specialists", encoded)
}

// update sets one column and re-reads the row. RETURNING drops column types
// in SQLite, which created_at needs to decode.
func (r *UserRepo) update(ctx context.Context, id int64, column string, value any) (*domain.User, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET `+column+` = ? WHERE id = ?`, value, id)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update user rows: %w", err)
	}
	if n == 0 {
		return nil, domain.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (*domain.User, error) {
	var (
		u         domain.User
		specialty sql.NullString
		needed    sql.NullString
	)
	if err := s.Scan(&u.ID, &u.Role, &u.FullName, &u.Governorate, &u.District,
		&specialty, &u.IsAvailable, &needed, &u.CreatedAt); err != nil {
		return nil, err
	}
	if specialty.Valid {
		u.Specialty = &specialty.String
	}
	if needed.Valid && needed.String != "" {
		if err := json.Unmarshal([]byte(needed.String), &u.NeededSpecialists); err != nil {
			return nil, fmt.Errorf("decode needed specialists: %w", err)
		}
	}
	return &u, nil
}

func encodeNeeded(list []domain.NeededSpecialist) (sql.NullString, error) {
	if len(list) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(list)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode needed specialists: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

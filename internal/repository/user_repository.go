package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/ucampus/lab-reservation/internal/model"
	"github.com/ucampus/lab-reservation/internal/utils"
)

// UserRepo provides access to the users table.
type UserRepo struct{ DB *sql.DB }

// NewUserRepo returns a UserRepo bound to the given database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `id, email, password_hash, full_name, role, is_active, created_at, updated_at`

// Create inserts a user with a bcrypt-hashed password and returns its ID.
// A duplicate email maps MySQL error 1062 to ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, email, password, fullName, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, full_name, role, is_active) VALUES (?,?,?,?,1)",
		email, hash, fullName, role)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanOne(ctx, "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.scanOne(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
}

func (r *UserRepo) scanOne(ctx context.Context, q string, arg any) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, q, arg))
}

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Role,
		&u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	return u, nil
}

// UserFilter narrows List results.  Zero values mean "no filter"; Active is
// a pointer so both states can be selected explicitly.
type UserFilter struct {
	Query  string
	Role   string
	Active *bool
	Limit  int
	Offset int
}

// List returns users matching the filter, newest first.  The free-text
// query matches name and email case-insensitively.
func (r *UserRepo) List(ctx context.Context, f UserFilter) ([]model.User, error) {
	where := make([]string, 0, 3)
	args := make([]any, 0, 5)
	if q := strings.TrimSpace(f.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		where = append(where, "(LOWER(full_name) LIKE ? OR LOWER(email) LIKE ?)")
		args = append(args, like, like)
	}
	if f.Role != "" {
		where = append(where, "role = ?")
		args = append(args, f.Role)
	}
	if f.Active != nil {
		where = append(where, "is_active = ?")
		args = append(args, *f.Active)
	}
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	q := "SELECT " + userColumns + " FROM users"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// SetRole changes a user's role.  Returns ErrUserNotFound for an unknown id.
func (r *UserRepo) SetRole(ctx context.Context, id uint64, role string) (model.User, error) {
	return r.update(ctx, id, "role = ?", role)
}

// SetActive toggles a user's activation flag.  Deactivated users keep their
// row and history but can no longer log in.
func (r *UserRepo) SetActive(ctx context.Context, id uint64, active bool) (model.User, error) {
	return r.update(ctx, id, "is_active = ?", active)
}

func (r *UserRepo) update(ctx context.Context, id uint64, set string, arg any) (model.User, error) {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET "+set+", updated_at = UTC_TIMESTAMP() WHERE id = ?", arg, id)
	if err != nil {
		return model.User{}, err
	}
	u, err := r.GetByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrUserNotFound
	}
	return u, err
}

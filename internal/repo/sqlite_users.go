package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pgup-sistemas/Titanium-clinic/internal/model"
)

type SQLiteUserRepo struct {
	db *sql.DB
}

func NewSQLiteUserRepo(db *sql.DB) *SQLiteUserRepo {
	return &SQLiteUserRepo{db: db}
}

func (r *SQLiteUserRepo) Create(ctx context.Context, u model.User) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, full_name, email, role, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, u.Username, u.PasswordHash, u.FullName, u.Email, string(u.Role), boolToInt(u.Active), fmtTime(time.Now()))
	if err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}
	return res.LastInsertId()
}

func (r *SQLiteUserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	return r.get(ctx, `WHERE username = ?`, username)
}

func (r *SQLiteUserRepo) GetByID(ctx context.Context, id int64) (model.User, error) {
	return r.get(ctx, `WHERE id = ?`, id)
}

func (r *SQLiteUserRepo) get(ctx context.Context, where string, arg any) (model.User, error) {
	var u model.User
	var role, createdAt string
	var email, lastLogin sql.NullString
	var active int

	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, full_name, email, role, active, created_at, last_login_at
		FROM users `+where, arg,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FullName, &email, &role, &active, &createdAt, &lastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("get user: %w", err)
	}

	u.Email = strPtr(email)
	u.Role = model.Role(role)
	u.Active = active != 0
	if t, err := parseTime(createdAt); err == nil {
		u.CreatedAt = t
	}
	u.LastLoginAt = parseTimePtr(lastLogin)
	return u, nil
}

func (r *SQLiteUserRepo) TouchLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET last_login_at = ? WHERE id = ?
	`, fmtTime(at), id)
	if err != nil {
		return fmt.Errorf("touch login %d: %w", id, err)
	}
	return nil
}

func (r *SQLiteUserRepo) CreateSession(ctx context.Context, s model.Session) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (user_id, token, login_at, active)
		VALUES (?, ?, ?, 1)
	`, s.UserID, s.Token, fmtTime(s.LoginAt))
	if err != nil {
		return 0, fmt.Errorf("create session: %w", err)
	}
	return res.LastInsertId()
}

func (r *SQLiteUserRepo) GetSessionByToken(ctx context.Context, token string) (model.Session, error) {
	var s model.Session
	var loginAt string
	var logoutAt sql.NullString
	var active int

	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, token, login_at, logout_at, active
		FROM sessions WHERE token = ?
	`, token).Scan(&s.ID, &s.UserID, &s.Token, &loginAt, &logoutAt, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, ErrNotFound
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("get session: %w", err)
	}

	if t, err := parseTime(loginAt); err == nil {
		s.LoginAt = t
	}
	s.LogoutAt = parseTimePtr(logoutAt)
	s.Active = active != 0
	return s, nil
}

func (r *SQLiteUserRepo) CloseSession(ctx context.Context, token string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET logout_at = ?, active = 0 WHERE token = ?
	`, fmtTime(at), token)
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}

package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/LeventeLantos/weekly-quiz-bot/internal/model"
)

// Expected table:
//
//	users(id bigserial pk, phone_number text unique, is_active bool, is_blacklisted bool,
//	      preferred_day int null, preferred_hour int null, last_question_id bigint null,
//	      last_message_sent timestamptz null, created_at timestamptz, updated_at timestamptz)
const userColumns = `id, phone_number, is_active, is_blacklisted, preferred_day, preferred_hour,
	last_question_id, last_message_sent, created_at, updated_at`

type PostgresUserRepo struct {
	db *sqlx.DB
}

func NewPostgresUserRepo(db *sqlx.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// OpenPostgres connects through the pgx stdlib driver and verifies the connection.
func OpenPostgres(ctx context.Context, url string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", url)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func (r *PostgresUserRepo) GetByPhone(ctx context.Context, phone string) (*model.User, error) {
	var u model.User
	err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE phone_number = $1`, phone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *PostgresUserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new active user. A concurrent insert for the same phone
// returns the existing row instead of failing.
func (r *PostgresUserRepo) Create(ctx context.Context, phone string) (*model.User, error) {
	var u model.User
	err := r.db.GetContext(ctx, &u, `
		INSERT INTO users (phone_number, is_active, is_blacklisted, created_at, updated_at)
		VALUES ($1, true, false, now(), now())
		ON CONFLICT (phone_number) DO UPDATE
		SET phone_number = EXCLUDED.phone_number
		RETURNING `+userColumns, phone)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *PostgresUserRepo) Deactivate(ctx context.Context, id int64) error {
	return r.exec(ctx, `
		UPDATE users
		SET is_active = false, updated_at = now()
		WHERE id = $1
	`, id)
}

func (r *PostgresUserRepo) Blacklist(ctx context.Context, id int64) error {
	return r.exec(ctx, `
		UPDATE users
		SET is_blacklisted = true, is_active = false, updated_at = now()
		WHERE id = $1
	`, id)
}

func (r *PostgresUserRepo) UpdatePreferences(ctx context.Context, id int64, prefs model.Preferences) error {
	return r.exec(ctx, `
		UPDATE users
		SET preferred_day = $2,
		    preferred_hour = $3,
		    is_active = true,
		    updated_at = now()
		WHERE id = $1
	`, id, prefs.Day, prefs.Hour)
}

func (r *PostgresUserRepo) RecordQuestion(ctx context.Context, id int64, questionID int64, sentAt time.Time) error {
	return r.exec(ctx, `
		UPDATE users
		SET last_question_id = $2,
		    last_message_sent = $3,
		    updated_at = now()
		WHERE id = $1
	`, id, questionID, sentAt.UTC())
}

func (r *PostgresUserRepo) ListDue(ctx context.Context, day, hour int, sentBefore time.Time) ([]model.User, error) {
	var out []model.User
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+userColumns+`
		FROM users
		WHERE is_active AND NOT is_blacklisted
		  AND preferred_day = $1
		  AND preferred_hour = $2
		  AND (last_message_sent IS NULL OR last_message_sent < $3)
		ORDER BY id ASC
	`, day, hour, sentBefore.UTC())
	return out, err
}

func (r *PostgresUserRepo) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

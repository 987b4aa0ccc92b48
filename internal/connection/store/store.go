package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrJamesThe3rd/smsledger/internal/connection"
)

const uniqueViolation = "23505"

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const selectConnectionColumns = `
	user_id, phone_number, is_active, permissions, settings,
	last_sync_time, total_processed, created_at, updated_at
`

func scanConnection(row *sql.Row) (*connection.Connection, error) {
	var c connection.Connection

	var perms, settings []byte

	if err := row.Scan(
		&c.UserID, &c.PhoneNumber, &c.IsActive, &perms, &settings,
		&c.LastSyncTime, &c.TotalProcessed, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(perms, &c.Permissions); err != nil {
		return nil, fmt.Errorf("decoding permissions: %w", err)
	}

	if err := json.Unmarshal(settings, &c.Settings); err != nil {
		return nil, fmt.Errorf("decoding settings: %w", err)
	}

	return &c, nil
}

func (s *Store) Get(ctx context.Context, userID uuid.UUID) (*connection.Connection, error) {
	query := `SELECT ` + selectConnectionColumns + ` FROM sms_connections WHERE user_id = $1`

	c, err := scanConnection(s.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, connection.ErrNotFound
		}

		return nil, fmt.Errorf("getting connection: %w", err)
	}

	return c, nil
}

func (s *Store) FindActiveByPhone(ctx context.Context, phone string) (*connection.Connection, error) {
	query := `SELECT ` + selectConnectionColumns + ` FROM sms_connections WHERE phone_number = $1 AND is_active`

	c, err := scanConnection(s.db.QueryRowContext(ctx, query, phone))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, connection.ErrNotFound
		}

		return nil, fmt.Errorf("finding connection by phone: %w", err)
	}

	return c, nil
}

// Put upserts by user. The partial unique index on active phone numbers
// rejects a second active claim.
func (s *Store) Put(ctx context.Context, c *connection.Connection) error {
	perms, err := json.Marshal(c.Permissions)
	if err != nil {
		return fmt.Errorf("encoding permissions: %w", err)
	}

	settings, err := json.Marshal(c.Settings)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}

	query := `
		INSERT INTO sms_connections (
			user_id, phone_number, is_active, permissions, settings,
			last_sync_time, total_processed, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE SET
			phone_number = EXCLUDED.phone_number,
			is_active = EXCLUDED.is_active,
			permissions = EXCLUDED.permissions,
			settings = EXCLUDED.settings,
			last_sync_time = EXCLUDED.last_sync_time,
			total_processed = EXCLUDED.total_processed,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err = s.db.ExecContext(ctx, query,
		c.UserID,
		c.PhoneNumber,
		c.IsActive,
		string(perms),
		string(settings),
		c.LastSyncTime,
		c.TotalProcessed,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return connection.ErrPhoneClaimed
		}

		return fmt.Errorf("saving connection: %w", err)
	}

	return nil
}

func (s *Store) IncrementProcessed(ctx context.Context, userID uuid.UUID, at time.Time) error {
	query := `
		UPDATE sms_connections
		SET total_processed = total_processed + 1, last_sync_time = $2, updated_at = NOW()
		WHERE user_id = $1
	`

	res, err := s.db.ExecContext(ctx, query, userID, at)
	if err != nil {
		return fmt.Errorf("incrementing processed: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}

	if n == 0 {
		return connection.ErrNotFound
	}

	return nil
}

func (s *Store) UpdateSettings(
	ctx context.Context, userID uuid.UUID, settings connection.Settings, at time.Time,
) (*connection.Connection, error) {
	encoded, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("encoding settings: %w", err)
	}

	query := `
		UPDATE sms_connections
		SET settings = $2, updated_at = $3
		WHERE user_id = $1
		RETURNING ` + selectConnectionColumns

	c, err := scanConnection(s.db.QueryRowContext(ctx, query, userID, string(encoded), at))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, connection.ErrNotFound
		}

		return nil, fmt.Errorf("updating settings: %w", err)
	}

	return c, nil
}

func (s *Store) SetActive(ctx context.Context, userID uuid.UUID, active bool, at time.Time) error {
	query := `UPDATE sms_connections SET is_active = $2, updated_at = $3 WHERE user_id = $1`

	res, err := s.db.ExecContext(ctx, query, userID, active, at)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return connection.ErrPhoneClaimed
		}

		return fmt.Errorf("setting active: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}

	if n == 0 {
		return connection.ErrNotFound
	}

	return nil
}

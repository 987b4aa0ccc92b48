package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrJamesThe3rd/smsledger/internal/transaction"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// execer is satisfied by *sql.DB and *sql.Conn.
type execer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanTransaction reads a transaction row from the scanner and returns a populated Transaction.
// Expected column order matches selectTransactionColumns.
func scanTransaction(s scanner) (*transaction.Transaction, error) {
	var tx transaction.Transaction

	var typeStr, sourceStr string

	var confidence sql.NullFloat64

	var originalSMS sql.NullString

	if err := s.Scan(
		&tx.ID, &tx.UserID, &tx.Title, &tx.Amount, &typeStr, &tx.Category, &tx.PaymentMethod,
		&tx.Date, &tx.Description, &tx.Notes, &sourceStr, &confidence, &originalSMS,
		&tx.CreatedAt, &tx.UpdatedAt, &tx.DeletedAt,
	); err != nil {
		return nil, err
	}

	tx.Type = transaction.Type(typeStr)
	tx.Source = transaction.Source(sourceStr)

	if confidence.Valid {
		tx.Confidence = &confidence.Float64
	}

	if originalSMS.Valid {
		tx.OriginalSMS = &originalSMS.String
	}

	return &tx, nil
}

const selectTransactionColumns = `
	t.id, t.user_id, t.title, t.amount, t.type, t.category, t.payment_method,
	t.date, t.description, t.notes, t.source, t.confidence, t.original_sms,
	t.created_at, t.updated_at, t.deleted_at
`

func sourceStrings(sources []transaction.Source) []string {
	out := make([]string, len(sources))
	for i, s := range sources {
		out[i] = string(s)
	}

	return out
}

func (s *Store) CreateTransaction(ctx context.Context, tx *transaction.Transaction) error {
	return createTransaction(ctx, s.db, tx)
}

func createTransaction(ctx context.Context, db execer, tx *transaction.Transaction) error {
	query := `
		INSERT INTO transactions (
			user_id, title, amount, type, category, payment_method, date,
			description, notes, source, confidence, original_sms, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		RETURNING id, created_at
	`

	err := db.QueryRowContext(ctx, query,
		tx.UserID,
		tx.Title,
		tx.Amount,
		tx.Type,
		tx.Category,
		tx.PaymentMethod,
		tx.Date,
		tx.Description,
		tx.Notes,
		tx.Source,
		tx.Confidence,
		tx.OriginalSMS,
	).Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("creating transaction: %w", transaction.ErrDuplicate)
		}

		return fmt.Errorf("creating transaction: %w", err)
	}

	return nil
}

func (s *Store) GetTransaction(ctx context.Context, userID, id uuid.UUID) (*transaction.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions t
		WHERE t.id = $1 AND t.user_id = $2 AND t.deleted_at IS NULL`

	tx, err := scanTransaction(s.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, transaction.ErrNotFound
		}

		return nil, fmt.Errorf("getting transaction: %w", err)
	}

	return tx, nil
}

func (s *Store) ListTransactions(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions t
		WHERE t.deleted_at IS NULL AND t.user_id = $1`

	args := []any{filter.UserID}

	argIdx := 2

	if len(filter.Sources) > 0 {
		query += fmt.Sprintf(" AND t.source = ANY($%d)", argIdx)

		args = append(args, sourceStrings(filter.Sources))
		argIdx++
	}

	if filter.StartDate != nil {
		query += fmt.Sprintf(" AND t.date >= $%d", argIdx)

		args = append(args, *filter.StartDate)
		argIdx++
	}

	if filter.EndDate != nil {
		query += fmt.Sprintf(" AND t.date <= $%d", argIdx)

		args = append(args, *filter.EndDate)
		argIdx++
	}

	query += " ORDER BY t.date DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var txs []*transaction.Transaction

	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transactions: %w", err)
	}

	return txs, nil
}

func (s *Store) UpdateSource(ctx context.Context, userID, id uuid.UUID, from, to transaction.Source) error {
	query := `
		UPDATE transactions
		SET source = $1, updated_at = NOW()
		WHERE id = $2 AND user_id = $3 AND source = $4 AND deleted_at IS NULL
	`

	res, err := s.db.ExecContext(ctx, query, to, id, userID, from)
	if err != nil {
		return fmt.Errorf("updating source: %w", err)
	}

	return expectOneRow(res)
}

func (s *Store) DeleteTransaction(ctx context.Context, userID, id uuid.UUID) error {
	query := `
		UPDATE transactions
		SET deleted_at = NOW()
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
	`

	res, err := s.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("deleting transaction: %w", err)
	}

	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}

	if n == 0 {
		return transaction.ErrNotFound
	}

	return nil
}

func (s *Store) Stats(ctx context.Context, userID uuid.UUID, sources []transaction.Source, monthStart time.Time) (*transaction.Stats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE date >= $3),
			COALESCE(SUM(amount) FILTER (WHERE type = $4), 0),
			COALESCE(SUM(amount) FILTER (WHERE type = $5), 0)
		FROM transactions
		WHERE user_id = $1 AND source = ANY($2) AND deleted_at IS NULL
	`

	var st transaction.Stats

	err := s.db.QueryRowContext(ctx, query, userID, sourceStrings(sources), monthStart,
		string(transaction.TypeExpense), string(transaction.TypeIncome)).
		Scan(&st.TotalImported, &st.ThisMonth, &st.TotalSpent, &st.TotalReceived)
	if err != nil {
		return nil, fmt.Errorf("computing stats: %w", err)
	}

	return &st, nil
}

func importLockKey(userID uuid.UUID) int64 {
	h := fnv.New64a()
	h.Write([]byte("sms-import"))
	h.Write([]byte{0})
	h.Write(userID[:])

	return int64(h.Sum64())
}

type importSession struct {
	conn *sql.Conn
	key  int64
}

// BeginImport pins a connection and takes a session-level advisory lock for
// userID. Each write on the session commits on its own.
func (s *Store) BeginImport(ctx context.Context, userID uuid.UUID) (transaction.ImportSession, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring import connection: %w", err)
	}

	key := importLockKey(userID)
	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_lock($1)", key); err != nil {
		conn.Close()
		return nil, fmt.Errorf("acquiring import lock: %w", err)
	}

	return &importSession{conn: conn, key: key}, nil
}

func (is *importSession) Close() error {
	// The caller's context may already be cancelled; the unlock must still run.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := is.conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", is.key); err != nil {
		// The lock lives as long as the session, so the connection must not
		// go back to the pool.
		_ = is.conn.Raw(func(any) error { return driver.ErrBadConn })
		return fmt.Errorf("releasing import lock: %w", err)
	}

	if err := is.conn.Close(); err != nil {
		return fmt.Errorf("closing import connection: %w", err)
	}

	return nil
}

func (is *importSession) FindDuplicate(
	ctx context.Context, userID uuid.UUID, amount int64, description string, from, to time.Time,
) (*transaction.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions t
		WHERE t.deleted_at IS NULL
			AND t.user_id = $1 AND t.amount = $2 AND t.description = $3
			AND t.date >= $4 AND t.date <= $5
		ORDER BY t.date DESC
		LIMIT 1`

	tx, err := scanTransaction(is.conn.QueryRowContext(ctx, query, userID, amount, description, from, to))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("finding duplicate: %w", err)
	}

	return tx, nil
}

func (is *importSession) CreateTransaction(ctx context.Context, tx *transaction.Transaction) error {
	return createTransaction(ctx, is.conn, tx)
}

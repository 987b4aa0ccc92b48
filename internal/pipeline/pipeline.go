package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/MrJamesThe3rd/smsledger/internal/logger"
	"github.com/MrJamesThe3rd/smsledger/internal/parser"
	"github.com/MrJamesThe3rd/smsledger/internal/transaction"
)

const (
	// AutoApproveFloor is the confidence a candidate needs to be written
	// without review, independent of the caller's MinConfidence.
	AutoApproveFloor = 0.8
	// DuplicateWindow is how far apart two otherwise equal transactions may
	// be dated and still count as the same one.
	DuplicateWindow = 24 * time.Hour

	DefaultMinConfidence = 0.7
)

type Outcome string

const (
	OutcomeImported         Outcome = "imported"
	OutcomePendingReview    Outcome = "pending_review"
	OutcomeSkippedDuplicate Outcome = "skipped_duplicate"
)

// Message is an SMS body with the time it was delivered. A zero ReceivedAt
// means unknown; undated messages then fall back to the parser clock.
type Message struct {
	Body       string
	ReceivedAt time.Time
}

type Options struct {
	MinConfidence float64
	AutoApprove   bool
}

// Candidate is a parsed transaction tagged with what the import did with it.
type Candidate struct {
	Transaction *parser.ParsedTransaction
	Outcome     Outcome
	LedgerID    *uuid.UUID
	Error       string
}

type Result struct {
	Total          int
	HighConfidence int
	Imported       int
	Skipped        int
	Errors         []string
	Transactions   []Candidate
}

//go:generate mockgen -source=pipeline.go -destination=pipeline_mock.go -package=pipeline
type Ledger interface {
	BeginImport(ctx context.Context, userID uuid.UUID) (transaction.ImportSession, error)
}

// Categorizer overrides the static category of a candidate with a
// user-specific one.
type Categorizer interface {
	Apply(ctx context.Context, userID uuid.UUID, tx *parser.ParsedTransaction) (*parser.ParsedTransaction, error)
}

type Service struct {
	parser      *parser.Parser
	ledger      Ledger
	categorizer Categorizer
	workers     int
}

type Option func(*Service)

func WithCategorizer(c Categorizer) Option {
	return func(s *Service) {
		s.categorizer = c
	}
}

// WithWorkers bounds the number of messages parsed concurrently.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

func NewService(p *parser.Parser, ledger Ledger, opts ...Option) *Service {
	s := &Service{
		parser:  p,
		ledger:  ledger,
		workers: runtime.GOMAXPROCS(0),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// ImportBatch parses messages and routes every candidate at or above
// opts.MinConfidence, newest first, to imported, pending_review or
// skipped_duplicate. Ledger failures on a single candidate are reported in
// Result.Errors and do not stop the batch. When ctx is cancelled the
// candidates handled so far are returned together with ctx.Err().
func (s *Service) ImportBatch(ctx context.Context, userID uuid.UUID, messages []string, opts Options) (*Result, error) {
	msgs := make([]Message, len(messages))
	for i, body := range messages {
		msgs[i] = Message{Body: body}
	}

	return s.ImportMessages(ctx, userID, msgs, opts)
}

// ImportMessages is ImportBatch for messages with a known delivery time, as
// read from a phone backup. ReceivedAt dates messages that carry no date of
// their own.
func (s *Service) ImportMessages(ctx context.Context, userID uuid.UUID, messages []Message, opts Options) (*Result, error) {
	candidates, err := s.parseAll(ctx, messages)
	if err != nil {
		return &Result{}, err
	}

	result := &Result{Total: len(candidates)}

	eligible := make([]*parser.ParsedTransaction, 0, len(candidates))

	for _, c := range candidates {
		if c.Confidence < opts.MinConfidence {
			continue
		}

		eligible = append(eligible, c)
	}

	result.HighConfidence = len(eligible)

	for i, c := range eligible {
		eligible[i] = s.categorize(ctx, userID, c)
	}

	autoImport := func(c *parser.ParsedTransaction) bool {
		return opts.AutoApprove && c.Confidence >= AutoApproveFloor
	}

	err = s.route(ctx, userID, eligible, autoImport, result)

	logger.FromContext(ctx).Info("sms batch imported",
		"user_id", userID,
		"messages", len(messages),
		"total", result.Total,
		"high_confidence", result.HighConfidence,
		"imported", result.Imported,
		"skipped", result.Skipped,
		"errors", len(result.Errors),
	)

	return result, err
}

// ConfirmPending writes candidates a user reviewed. Duplicates are still
// skipped; everything else is imported regardless of confidence, with the
// category the user left on it.
func (s *Service) ConfirmPending(ctx context.Context, userID uuid.UUID, reviewed []*parser.ParsedTransaction) (*Result, error) {
	candidates := append([]*parser.ParsedTransaction(nil), reviewed...)
	parser.SortNewestFirst(candidates)

	result := &Result{Total: len(candidates), HighConfidence: len(candidates)}

	err := s.route(ctx, userID, candidates, func(*parser.ParsedTransaction) bool { return true }, result)

	return result, err
}

func (s *Service) parseAll(ctx context.Context, messages []Message) ([]*parser.ParsedTransaction, error) {
	parsed := make([]*parser.ParsedTransaction, len(messages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, msg := range messages {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			p := s.parser
			if !msg.ReceivedAt.IsZero() {
				p = p.ReceivedAt(msg.ReceivedAt)
			}

			if tx, ok := p.Parse(msg.Body); ok {
				parsed[i] = tx
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("parse messages: %w", err)
	}

	out := make([]*parser.ParsedTransaction, 0, len(parsed))

	for _, tx := range parsed {
		if tx != nil {
			out = append(out, tx)
		}
	}

	parser.SortNewestFirst(out)

	return out, nil
}

// route runs the duplicate check and the write for each candidate in order
// while holding the user's import lock.
func (s *Service) route(
	ctx context.Context,
	userID uuid.UUID,
	candidates []*parser.ParsedTransaction,
	autoImport func(*parser.ParsedTransaction) bool,
	result *Result,
) error {
	if len(candidates) == 0 {
		return nil
	}

	log := logger.FromContext(ctx)

	sess, err := s.ledger.BeginImport(ctx, userID)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}

	defer func() {
		if err := sess.Close(); err != nil {
			log.Error("failed to close import session", "error", err)
		}
	}()

	seen := make([]*parser.ParsedTransaction, 0, len(candidates))

	for i, c := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}

		if isDuplicateOfAny(c, seen) {
			result.Skipped++
			result.Transactions = append(result.Transactions, Candidate{Transaction: c, Outcome: OutcomeSkippedDuplicate})

			continue
		}

		seen = append(seen, c)

		existing, err := sess.FindDuplicate(ctx, userID, c.Paise(), c.Description,
			c.OccurredAt.Add(-DuplicateWindow), c.OccurredAt.Add(DuplicateWindow))
		if err != nil {
			result.addError(i, c, fmt.Errorf("find duplicate: %w", err))
			continue
		}

		if existing != nil {
			result.Skipped++
			result.Transactions = append(result.Transactions, Candidate{Transaction: c, Outcome: OutcomeSkippedDuplicate})

			continue
		}

		if !autoImport(c) {
			result.Transactions = append(result.Transactions, Candidate{Transaction: c, Outcome: OutcomePendingReview})
			continue
		}

		tx := transaction.NewTransaction(LedgerParams(userID, c, transaction.SourceSMSImport))

		err = sess.CreateTransaction(ctx, tx)

		switch {
		case errors.Is(err, transaction.ErrDuplicate):
			result.Skipped++
			result.Transactions = append(result.Transactions, Candidate{Transaction: c, Outcome: OutcomeSkippedDuplicate})
		case err != nil:
			result.addError(i, c, fmt.Errorf("create transaction: %w", err))
		default:
			id := tx.ID
			result.Imported++
			result.Transactions = append(result.Transactions, Candidate{Transaction: c, Outcome: OutcomeImported, LedgerID: &id})
		}
	}

	return nil
}

func (s *Service) categorize(ctx context.Context, userID uuid.UUID, c *parser.ParsedTransaction) *parser.ParsedTransaction {
	if s.categorizer == nil {
		return c
	}

	applied, err := s.categorizer.Apply(ctx, userID, c)
	if err != nil {
		logger.FromContext(ctx).Warn("category rules unavailable", "error", err)
		return c
	}

	return applied
}

// addError records a failed candidate. It stays in the result as pending
// review so the user can still approve it by hand.
func (r *Result) addError(i int, c *parser.ParsedTransaction, err error) {
	msg := fmt.Sprintf("candidate %d (%s): %v", i, c.Description, err)

	r.Errors = append(r.Errors, msg)
	r.Transactions = append(r.Transactions, Candidate{Transaction: c, Outcome: OutcomePendingReview, Error: err.Error()})
}

func isDuplicateOfAny(c *parser.ParsedTransaction, seen []*parser.ParsedTransaction) bool {
	for _, s := range seen {
		if IsDuplicate(c, s) {
			return true
		}
	}

	return false
}

// IsDuplicate reports whether a and b describe the same real-world
// transaction: equal amount and description, dated within DuplicateWindow.
func IsDuplicate(a, b *parser.ParsedTransaction) bool {
	if a.Paise() != b.Paise() || a.Description != b.Description {
		return false
	}

	d := a.OccurredAt.Sub(b.OccurredAt)
	if d < 0 {
		d = -d
	}

	return d <= DuplicateWindow
}

// LedgerParams maps a candidate onto a ledger row for userID.
func LedgerParams(userID uuid.UUID, c *parser.ParsedTransaction, source transaction.Source) transaction.CreateParams {
	txType := transaction.TypeExpense
	if c.Direction == parser.DirectionCredit {
		txType = transaction.TypeIncome
	}

	title := c.Merchant
	if title == "" {
		title = c.Description
	}

	confidence := c.Confidence
	raw := c.RawText

	return transaction.CreateParams{
		UserID:        userID,
		Title:         title,
		Amount:        c.Paise(),
		Type:          txType,
		Category:      c.Category,
		PaymentMethod: c.PaymentMethod,
		Date:          c.OccurredAt,
		Description:   c.Description,
		Notes:         "Imported from SMS (" + c.Bank + ")",
		Source:        source,
		Confidence:    &confidence,
		OriginalSMS:   &raw,
	}
}

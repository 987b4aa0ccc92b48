package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=transaction
type Repository interface {
	CreateTransaction(ctx context.Context, tx *Transaction) error
	GetTransaction(ctx context.Context, userID, id uuid.UUID) (*Transaction, error)
	ListTransactions(ctx context.Context, filter ListFilter) ([]*Transaction, error)
	UpdateSource(ctx context.Context, userID, id uuid.UUID, from, to Source) error
	DeleteTransaction(ctx context.Context, userID, id uuid.UUID) error
	Stats(ctx context.Context, userID uuid.UUID, sources []Source, monthStart time.Time) (*Stats, error)

	BeginImport(ctx context.Context, userID uuid.UUID) (ImportSession, error)
}

// ImportSession holds a user's import lock until Close. Writes made through
// it are committed one by one, so work done before a failure or a
// cancellation stays in the ledger.
type ImportSession interface {
	// FindDuplicate returns a live row for userID with the same amount and
	// description dated within [from, to], or nil when there is none.
	FindDuplicate(ctx context.Context, userID uuid.UUID, amount int64, description string, from, to time.Time) (*Transaction, error)
	CreateTransaction(ctx context.Context, tx *Transaction) error
	Close() error
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

type CreateParams struct {
	UserID        uuid.UUID
	Title         string
	Amount        int64
	Type          Type
	Category      string
	PaymentMethod string
	Date          time.Time
	Description   string
	Notes         string
	Source        Source
	Confidence    *float64
	OriginalSMS   *string
}

type ListFilter struct {
	UserID    uuid.UUID
	Sources   []Source
	StartDate *time.Time
	EndDate   *time.Time
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Transaction, error) {
	tx := NewTransaction(params)
	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return nil, err
	}

	return tx, nil
}

func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*Transaction, error) {
	return s.repo.GetTransaction(ctx, userID, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Transaction, error) {
	return s.repo.ListTransactions(ctx, filter)
}

// Approve moves a pending SMS transaction into the ledger proper.
func (s *Service) Approve(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.UpdateSource(ctx, userID, id, SourceSMSPending, SourceSMSImport)
}

func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.DeleteTransaction(ctx, userID, id)
}

// SMSStats summarizes the SMS transactions userID has approved or that were
// auto-imported. Rows still pending review are not counted.
func (s *Service) SMSStats(ctx context.Context, userID uuid.UUID) (*Stats, error) {
	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	stats, err := s.repo.Stats(ctx, userID, []Source{SourceSMSImport}, monthStart)
	if err != nil {
		return nil, fmt.Errorf("sms stats: %w", err)
	}

	stats.TotalAmount = stats.TotalReceived - stats.TotalSpent

	return stats, nil
}

func (s *Service) BeginImport(ctx context.Context, userID uuid.UUID) (ImportSession, error) {
	sess, err := s.repo.BeginImport(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}

	return sess, nil
}

// NewTransaction builds an unsaved ledger row. An empty title falls back to
// the description and an empty source to manual.
func NewTransaction(p CreateParams) *Transaction {
	title := p.Title
	if title == "" {
		title = p.Description
	}

	source := p.Source
	if source == "" {
		source = SourceManual
	}

	return &Transaction{
		UserID:        p.UserID,
		Title:         title,
		Amount:        p.Amount,
		Type:          p.Type,
		Category:      p.Category,
		PaymentMethod: p.PaymentMethod,
		Date:          p.Date,
		Description:   p.Description,
		Notes:         p.Notes,
		Source:        source,
		Confidence:    p.Confidence,
		OriginalSMS:   p.OriginalSMS,
	}
}

package connection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/smsledger/internal/logger"
	"github.com/MrJamesThe3rd/smsledger/internal/parser"
	"github.com/MrJamesThe3rd/smsledger/internal/pipeline"
	"github.com/MrJamesThe3rd/smsledger/internal/transaction"
)

//go:generate mockgen -source=manager.go -destination=manager_mock.go -package=connection
type Store interface {
	// Get returns ErrNotFound when userID never registered.
	Get(ctx context.Context, userID uuid.UUID) (*Connection, error)
	// Put creates or replaces the user's connection, counters included. It
	// fails with ErrPhoneClaimed when conn is active and another user's
	// active connection holds the same phone number.
	Put(ctx context.Context, conn *Connection) error
	// UpdateSettings and SetActive change only their own columns and leave
	// the processing counters alone. Both return ErrNotFound for unknown
	// users.
	UpdateSettings(ctx context.Context, userID uuid.UUID, settings Settings, at time.Time) (*Connection, error)
	SetActive(ctx context.Context, userID uuid.UUID, active bool, at time.Time) error
	FindActiveByPhone(ctx context.Context, phone string) (*Connection, error)
	IncrementProcessed(ctx context.Context, userID uuid.UUID, at time.Time) error
}

type Ledger interface {
	Create(ctx context.Context, params transaction.CreateParams) (*transaction.Transaction, error)
}

type InboundStatus string

const (
	StatusUnregistered     InboundStatus = "unregistered"
	StatusIgnored          InboundStatus = "ignored"
	StatusUnparsed         InboundStatus = "unparsed"
	StatusBelowThreshold   InboundStatus = "below_threshold"
	StatusImported         InboundStatus = "imported"
	StatusPendingReview    InboundStatus = "pending_review"
	StatusSkippedDuplicate InboundStatus = "skipped_duplicate"
)

type InboundSMS struct {
	PhoneNumber string
	Message     string
	Sender      string
	Timestamp   time.Time
	MessageID   string
}

type InboundResult struct {
	Status        InboundStatus
	Reason        string
	TransactionID *uuid.UUID
	Confidence    float64
}

type Manager struct {
	store       Store
	ledger      Ledger
	parser      *parser.Parser
	categorizer pipeline.Categorizer
	now         func() time.Time
}

type Option func(*Manager)

// WithCategorizer applies the user's learned category rules to inbound
// messages, the same way batch imports do.
func WithCategorizer(c pipeline.Categorizer) Option {
	return func(m *Manager) {
		m.categorizer = c
	}
}

func NewManager(store Store, ledger Ledger, p *parser.Parser, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		ledger: ledger,
		parser: p,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Register activates monitoring of phone for userID, replacing any previous
// registration of the same user and resetting its counters.
func (m *Manager) Register(
	ctx context.Context, userID uuid.UUID, phone string, perms Permissions, settings Settings,
) (*Connection, error) {
	normalized, err := NormalizePhone(phone)
	if err != nil {
		return nil, err
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	now := m.now()

	conn := &Connection{
		UserID:      userID,
		PhoneNumber: normalized,
		IsActive:    true,
		Permissions: perms,
		Settings:    settings,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := m.store.Put(ctx, conn); err != nil {
		return nil, fmt.Errorf("register connection: %w", err)
	}

	logger.FromContext(ctx).Info("sms connection registered", "user_id", userID)

	return conn, nil
}

func (m *Manager) GetStatus(ctx context.Context, userID uuid.UUID) (*Connection, error) {
	return m.store.Get(ctx, userID)
}

func (m *Manager) UpdateSettings(ctx context.Context, userID uuid.UUID, patch SettingsPatch) (*Connection, error) {
	conn, err := m.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	settings := patch.Apply(conn.Settings)
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	updated, err := m.store.UpdateSettings(ctx, userID, settings, m.now())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}

		return nil, fmt.Errorf("update settings: %w", err)
	}

	return updated, nil
}

// Deactivate stops monitoring for userID. The record is kept.
func (m *Manager) Deactivate(ctx context.Context, userID uuid.UUID) error {
	if err := m.store.SetActive(ctx, userID, false, m.now()); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}

		return fmt.Errorf("deactivate connection: %w", err)
	}

	return nil
}

// HandleInboundSMS processes one message delivered for a monitored number.
// Non-bank traffic, unparseable text and low confidence are reported through
// the result status; the error return is reserved for store and ledger
// failures.
func (m *Manager) HandleInboundSMS(ctx context.Context, in InboundSMS) (*InboundResult, error) {
	log := logger.FromContext(ctx)

	phone, err := NormalizePhone(in.PhoneNumber)
	if err != nil {
		return &InboundResult{Status: StatusUnregistered, Reason: "invalid phone number"}, nil
	}

	conn, err := m.store.FindActiveByPhone(ctx, phone)
	if errors.Is(err, ErrNotFound) {
		return &InboundResult{Status: StatusUnregistered, Reason: "no active connection for phone number"}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("find connection: %w", err)
	}

	if !conn.Permissions.RealTimeSync {
		return &InboundResult{Status: StatusIgnored, Reason: "real-time sync disabled"}, nil
	}

	if !parser.LooksLikeBankSMS(in.Sender, in.Message) {
		return &InboundResult{Status: StatusIgnored, Reason: "not a bank message"}, nil
	}

	if conn.Settings.excludes(in.Message) {
		return &InboundResult{Status: StatusIgnored, Reason: "matched excluded keyword"}, nil
	}

	p := m.parser
	if !in.Timestamp.IsZero() {
		p = p.ReceivedAt(in.Timestamp)
	}

	tx, ok := p.Parse(in.Message)
	if !ok {
		return &InboundResult{Status: StatusUnparsed}, nil
	}

	if tx.Confidence < conn.Settings.MinConfidence {
		return &InboundResult{Status: StatusBelowThreshold, Confidence: tx.Confidence}, nil
	}

	tx = m.categorize(ctx, conn.UserID, tx)

	status := StatusPendingReview
	source := transaction.SourceSMSPending

	if m.autoImports(conn, tx) {
		status = StatusImported
		source = transaction.SourceSMSImport
	}

	created, err := m.ledger.Create(ctx, pipeline.LedgerParams(conn.UserID, tx, source))
	if errors.Is(err, transaction.ErrDuplicate) {
		return &InboundResult{Status: StatusSkippedDuplicate, Confidence: tx.Confidence}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	if err := m.store.IncrementProcessed(ctx, conn.UserID, m.now()); err != nil {
		log.Warn("failed to update sms connection counters", "user_id", conn.UserID, "error", err)
	}

	log.Info("inbound sms processed",
		"user_id", conn.UserID,
		"message_id", in.MessageID,
		"status", status,
		"confidence", tx.Confidence,
	)

	id := created.ID

	return &InboundResult{Status: status, TransactionID: &id, Confidence: tx.Confidence}, nil
}

func (m *Manager) categorize(ctx context.Context, userID uuid.UUID, tx *parser.ParsedTransaction) *parser.ParsedTransaction {
	if m.categorizer == nil {
		return tx
	}

	applied, err := m.categorizer.Apply(ctx, userID, tx)
	if err != nil {
		logger.FromContext(ctx).Warn("category rules unavailable", "user_id", userID, "error", err)
		return tx
	}

	return applied
}

func (m *Manager) autoImports(conn *Connection, tx *parser.ParsedTransaction) bool {
	return conn.Settings.AutoApprove &&
		conn.Permissions.AutoProcess &&
		tx.Confidence >= pipeline.AutoApproveFloor &&
		conn.Settings.allowsCategory(tx.Category)
}

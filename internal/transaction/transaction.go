package transaction

import (
	"time"

	"github.com/google/uuid"
)

// Type represents the type of transaction (income or expense).
type Type string

const (
	TypeIncome  Type = "income"
	TypeExpense Type = "expense"
)

// Source records which path wrote a ledger row.
type Source string

const (
	SourceManual     Source = "manual"
	SourceSMSImport  Source = "sms_import"
	SourceSMSPending Source = "sms_pending"
	SourceAPI        Source = "api"
	SourceRecurring  Source = "recurring"
)

// SMSSources are the sources written by the SMS import paths.
var SMSSources = []Source{SourceSMSImport, SourceSMSPending}

func (s Source) Valid() bool {
	switch s {
	case SourceManual, SourceSMSImport, SourceSMSPending, SourceAPI, SourceRecurring:
		return true
	}

	return false
}

// Transaction represents a ledger entry.
type Transaction struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Title         string
	Amount        int64 // Amount in paise
	Type          Type
	Category      string
	PaymentMethod string
	Date          time.Time
	Description   string
	Notes         string
	Source        Source
	Confidence    *float64
	OriginalSMS   *string
	CreatedAt     time.Time
	UpdatedAt     *time.Time
	DeletedAt     *time.Time
}

// Stats aggregates a user's SMS-sourced transactions. Amounts are paise;
// TotalAmount is the net of TotalReceived less TotalSpent.
type Stats struct {
	TotalImported int64
	ThisMonth     int64
	TotalSpent    int64
	TotalReceived int64
	TotalAmount   int64
}

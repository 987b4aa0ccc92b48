package transaction

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/smsledger/internal/transaction"
)

type Response struct {
	ID            uuid.UUID          `json:"id"`
	Title         string             `json:"title"`
	Amount        int64              `json:"amount"`
	Type          transaction.Type   `json:"type"`
	Category      string             `json:"category,omitempty"`
	PaymentMethod string             `json:"paymentMethod,omitempty"`
	Date          time.Time          `json:"date"`
	Description   string             `json:"description"`
	Notes         string             `json:"notes,omitempty"`
	Source        transaction.Source `json:"source"`
	Confidence    *float64           `json:"confidence,omitempty"`
	OriginalSMS   *string            `json:"originalSms,omitempty"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     *time.Time         `json:"updatedAt,omitempty"`
}

func ToResponse(tx *transaction.Transaction) Response {
	return Response{
		ID:            tx.ID,
		Title:         tx.Title,
		Amount:        tx.Amount,
		Type:          tx.Type,
		Category:      tx.Category,
		PaymentMethod: tx.PaymentMethod,
		Date:          tx.Date,
		Description:   tx.Description,
		Notes:         tx.Notes,
		Source:        tx.Source,
		Confidence:    tx.Confidence,
		OriginalSMS:   tx.OriginalSMS,
		CreatedAt:     tx.CreatedAt,
		UpdatedAt:     tx.UpdatedAt,
	}
}

func ToResponseList(txs []*transaction.Transaction) []Response {
	resp := make([]Response, len(txs))
	for i, tx := range txs {
		resp[i] = ToResponse(tx)
	}

	return resp
}

package smsimport

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	txhttp "github.com/MrJamesThe3rd/smsledger/internal/http/transaction"
	"github.com/MrJamesThe3rd/smsledger/internal/parser"
	"github.com/MrJamesThe3rd/smsledger/internal/pipeline"
	"github.com/MrJamesThe3rd/smsledger/internal/transaction"
)

// candidateDTO is a parsed SMS as sent to and received back from the client.
type candidateDTO struct {
	Amount        decimal.Decimal  `json:"amount"`
	Type          parser.Direction `json:"type" validate:"oneof=debit credit"`
	Merchant      string           `json:"merchant,omitempty"`
	Category      string           `json:"category"`
	PaymentMethod string           `json:"paymentMethod"`
	Date          time.Time        `json:"date" validate:"required"`
	Description   string           `json:"description" validate:"required"`
	RawText       string           `json:"rawText"`
	Confidence    float64          `json:"confidence" validate:"gte=0,lte=1"`
	Bank          string           `json:"bank"`
}

type candidateResponse struct {
	candidateDTO
	Outcome       pipeline.Outcome `json:"outcome"`
	TransactionID *uuid.UUID       `json:"transactionId,omitempty"`
	Error         string           `json:"error,omitempty"`
}

type importResponse struct {
	Total          int                 `json:"total"`
	HighConfidence int                 `json:"highConfidence"`
	Imported       int                 `json:"imported"`
	Skipped        int                 `json:"skipped"`
	Errors         []string            `json:"errors"`
	Transactions   []candidateResponse `json:"transactions"`
	Message        string              `json:"message"`
}

type historyResponse struct {
	Transactions  []txhttp.Response `json:"transactions"`
	TotalImported int64             `json:"totalImported"`
	ThisMonth     int64             `json:"thisMonth"`
	TotalAmount   int64             `json:"totalAmount"`
	TotalSpent    int64             `json:"totalSpent"`
	TotalReceived int64             `json:"totalReceived"`
}

func toDTO(tx *parser.ParsedTransaction) candidateDTO {
	return candidateDTO{
		Amount:        tx.Amount,
		Type:          tx.Direction,
		Merchant:      tx.Merchant,
		Category:      tx.Category,
		PaymentMethod: tx.PaymentMethod,
		Date:          tx.OccurredAt,
		Description:   tx.Description,
		RawText:       tx.RawText,
		Confidence:    tx.Confidence,
		Bank:          tx.Bank,
	}
}

func (d candidateDTO) toParsed() *parser.ParsedTransaction {
	return &parser.ParsedTransaction{
		Amount:        d.Amount,
		Direction:     d.Type,
		Merchant:      d.Merchant,
		Category:      d.Category,
		PaymentMethod: d.PaymentMethod,
		OccurredAt:    d.Date,
		Description:   d.Description,
		RawText:       d.RawText,
		Confidence:    d.Confidence,
		Bank:          d.Bank,
	}
}

func toImportResponse(res *pipeline.Result) importResponse {
	resp := importResponse{
		Total:          res.Total,
		HighConfidence: res.HighConfidence,
		Imported:       res.Imported,
		Skipped:        res.Skipped,
		Errors:         res.Errors,
		Transactions:   make([]candidateResponse, len(res.Transactions)),
	}

	if resp.Errors == nil {
		resp.Errors = []string{}
	}

	pending := 0

	for i, c := range res.Transactions {
		resp.Transactions[i] = candidateResponse{
			candidateDTO:  toDTO(c.Transaction),
			Outcome:       c.Outcome,
			TransactionID: c.LedgerID,
			Error:         c.Error,
		}

		if c.Outcome == pipeline.OutcomePendingReview {
			pending++
		}
	}

	resp.Message = fmt.Sprintf("Found %d transactions: %d imported, %d pending review, %d skipped as duplicates",
		res.Total, res.Imported, pending, res.Skipped)

	return resp
}

func toHistoryResponse(txs []*transaction.Transaction, stats *transaction.Stats) historyResponse {
	return historyResponse{
		Transactions:  txhttp.ToResponseList(txs),
		TotalImported: stats.TotalImported,
		ThisMonth:     stats.ThisMonth,
		TotalAmount:   stats.TotalAmount,
		TotalSpent:    stats.TotalSpent,
		TotalReceived: stats.TotalReceived,
	}
}

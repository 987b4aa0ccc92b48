package webhook

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/smsledger/internal/connection"
	"github.com/MrJamesThe3rd/smsledger/internal/http/render"
	"github.com/MrJamesThe3rd/smsledger/internal/logger"
)

const SecretHeader = "X-Webhook-Secret"

type Handler struct {
	mgr    *connection.Manager
	secret string
}

// NewHandler serves inbound SMS deliveries. When secret is non-empty every
// delivery must carry it in SecretHeader.
func NewHandler(mgr *connection.Manager, secret string) *Handler {
	return &Handler{mgr: mgr, secret: secret}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.receive)
}

type inboundRequest struct {
	PhoneNumber string     `json:"phoneNumber" validate:"required"`
	Message     string     `json:"message" validate:"required"`
	Sender      string     `json:"sender"`
	Timestamp   *time.Time `json:"timestamp"`
	MessageID   string     `json:"messageId"`
}

type inboundResponse struct {
	Status        connection.InboundStatus `json:"status"`
	Reason        string                   `json:"reason,omitempty"`
	TransactionID *uuid.UUID               `json:"transactionId,omitempty"`
	Confidence    float64                  `json:"confidence,omitempty"`
}

func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	if h.secret != "" &&
		subtle.ConstantTimeCompare([]byte(r.Header.Get(SecretHeader)), []byte(h.secret)) != 1 {
		render.Error(w, r, http.StatusUnauthorized, "invalid webhook secret")
		return
	}

	var req inboundRequest
	if !render.Decode(w, r, &req) {
		return
	}

	in := connection.InboundSMS{
		PhoneNumber: req.PhoneNumber,
		Message:     req.Message,
		Sender:      req.Sender,
		MessageID:   req.MessageID,
	}
	if req.Timestamp != nil {
		in.Timestamp = *req.Timestamp
	}

	res, err := h.mgr.HandleInboundSMS(r.Context(), in)
	if err != nil {
		logger.FromContext(r.Context()).Error("inbound sms failed", "message_id", req.MessageID, "error", err)
		render.Error(w, r, http.StatusInternalServerError, "internal error")

		return
	}

	status := http.StatusOK
	if res.Status == connection.StatusUnregistered {
		status = http.StatusNotFound
	}

	render.JSON(w, r, status, inboundResponse{
		Status:        res.Status,
		Reason:        res.Reason,
		TransactionID: res.TransactionID,
		Confidence:    res.Confidence,
	})
}

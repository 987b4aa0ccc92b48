package transaction

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/smsledger/internal/auth"
	"github.com/MrJamesThe3rd/smsledger/internal/http/render"
	"github.com/MrJamesThe3rd/smsledger/internal/logger"
	"github.com/MrJamesThe3rd/smsledger/internal/transaction"
)

type Handler struct {
	svc *transaction.Service
}

func NewHandler(svc *transaction.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Post("/{id}/approve", h.approve)
	r.Delete("/{id}", h.delete)
}

type createTransactionRequest struct {
	Title         string           `json:"title"`
	Amount        int64            `json:"amount" validate:"gt=0"`
	Type          transaction.Type `json:"type" validate:"oneof=income expense"`
	Category      string           `json:"category"`
	PaymentMethod string           `json:"paymentMethod"`
	Description   string           `json:"description" validate:"required"`
	Notes         string           `json:"notes"`
	Date          time.Time        `json:"date" validate:"required"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		render.Error(w, r, http.StatusUnauthorized, err.Error())
		return
	}

	var req createTransactionRequest
	if !render.Decode(w, r, &req) {
		return
	}

	tx, err := h.svc.Create(r.Context(), transaction.CreateParams{
		UserID:        userID,
		Title:         req.Title,
		Amount:        req.Amount,
		Type:          req.Type,
		Category:      req.Category,
		PaymentMethod: req.PaymentMethod,
		Date:          req.Date,
		Description:   req.Description,
		Notes:         req.Notes,
		Source:        transaction.SourceAPI,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	render.JSON(w, r, http.StatusCreated, ToResponse(tx))
}

// list accepts a comma separated source filter, e.g. ?source=sms_import,sms_pending.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		render.Error(w, r, http.StatusUnauthorized, err.Error())
		return
	}

	filter := transaction.ListFilter{UserID: userID}

	if s := r.URL.Query().Get("source"); s != "" {
		for _, part := range strings.Split(s, ",") {
			src := transaction.Source(strings.TrimSpace(part))
			if !src.Valid() {
				render.Error(w, r, http.StatusBadRequest, "unknown source: "+string(src))
				return
			}

			filter.Sources = append(filter.Sources, src)
		}
	}

	if s := r.URL.Query().Get("start_date"); s != "" {
		if t, err := time.Parse(time.DateOnly, s); err == nil {
			filter.StartDate = &t
		}
	}

	if s := r.URL.Query().Get("end_date"); s != "" {
		if t, err := time.Parse(time.DateOnly, s); err == nil {
			filter.EndDate = &t
		}
	}

	txs, err := h.svc.List(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	render.JSON(w, r, http.StatusOK, ToResponseList(txs))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.ids(w, r)
	if !ok {
		return
	}

	tx, err := h.svc.Get(r.Context(), userID, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	render.JSON(w, r, http.StatusOK, ToResponse(tx))
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.ids(w, r)
	if !ok {
		return
	}

	if err := h.svc.Approve(r.Context(), userID, id); err != nil {
		h.fail(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.ids(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), userID, id); err != nil {
		h.fail(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ids(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		render.Error(w, r, http.StatusUnauthorized, err.Error())
		return uuid.Nil, uuid.Nil, false
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		render.Error(w, r, http.StatusBadRequest, "invalid id")
		return uuid.Nil, uuid.Nil, false
	}

	return userID, id, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, transaction.ErrNotFound):
		render.Error(w, r, http.StatusNotFound, "transaction not found")
	case errors.Is(err, transaction.ErrDuplicate):
		render.Error(w, r, http.StatusConflict, "duplicate transaction")
	default:
		logger.FromContext(r.Context()).Error("transaction request failed", "error", err)
		render.Error(w, r, http.StatusInternalServerError, "internal error")
	}
}

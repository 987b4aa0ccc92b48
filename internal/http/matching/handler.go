package matching

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/smsledger/internal/auth"
	"github.com/MrJamesThe3rd/smsledger/internal/http/render"
	"github.com/MrJamesThe3rd/smsledger/internal/logger"
	"github.com/MrJamesThe3rd/smsledger/internal/matching"
)

type Handler struct {
	svc *matching.Service
}

func NewHandler(svc *matching.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/suggest", h.suggest)
	r.Post("/", h.learn)
}

type suggestResponse struct {
	Merchant string `json:"merchant"`
	Category string `json:"category,omitempty"`
	Found    bool   `json:"found"`
}

func (h *Handler) suggest(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		render.Error(w, r, http.StatusUnauthorized, err.Error())
		return
	}

	merchant := r.URL.Query().Get("merchant")
	if merchant == "" {
		render.Error(w, r, http.StatusBadRequest, "merchant query parameter is required")
		return
	}

	category, err := h.svc.Suggest(r.Context(), userID, merchant)
	if err != nil {
		logger.FromContext(r.Context()).Error("category suggestion failed", "error", err)
		render.Error(w, r, http.StatusInternalServerError, "internal error")

		return
	}

	render.JSON(w, r, http.StatusOK, suggestResponse{
		Merchant: merchant,
		Category: category,
		Found:    category != "",
	})
}

type learnRequest struct {
	Pattern  string `json:"pattern" validate:"required"`
	Category string `json:"category" validate:"required"`
}

func (h *Handler) learn(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		render.Error(w, r, http.StatusUnauthorized, err.Error())
		return
	}

	var req learnRequest
	if !render.Decode(w, r, &req) {
		return
	}

	if err := h.svc.Learn(r.Context(), userID, req.Pattern, req.Category); err != nil {
		if errors.Is(err, matching.ErrEmptyRule) {
			render.Error(w, r, http.StatusBadRequest, err.Error())
			return
		}

		logger.FromContext(r.Context()).Error("learning category rule failed", "error", err)
		render.Error(w, r, http.StatusInternalServerError, "internal error")

		return
	}

	w.WriteHeader(http.StatusCreated)
}

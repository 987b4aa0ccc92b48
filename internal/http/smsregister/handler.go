package smsregister

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/smsledger/internal/auth"
	"github.com/MrJamesThe3rd/smsledger/internal/connection"
	"github.com/MrJamesThe3rd/smsledger/internal/http/render"
	"github.com/MrJamesThe3rd/smsledger/internal/logger"
	"github.com/MrJamesThe3rd/smsledger/internal/pipeline"
)

// WebhookPath is where inbound SMS deliveries are routed, relative to the
// public base URL.
const WebhookPath = "/api/v1/sms/webhook"

type Handler struct {
	mgr        *connection.Manager
	webhookURL string
}

func NewHandler(mgr *connection.Manager, baseURL string) *Handler {
	return &Handler{
		mgr:        mgr,
		webhookURL: strings.TrimRight(baseURL, "/") + WebhookPath,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.register)
	r.Get("/", h.status)
	r.Put("/", h.updateSettings)
	r.Delete("/", h.deactivate)
}

type settingsRequest struct {
	AutoApprove     bool     `json:"autoApprove"`
	MinConfidence   *float64 `json:"minConfidence" validate:"omitempty,gte=0.5,lte=1"`
	Categories      []string `json:"categories" validate:"omitempty,dive,required"`
	ExcludeKeywords []string `json:"excludeKeywords" validate:"omitempty,dive,required"`
}

type registerRequest struct {
	PhoneNumber string                 `json:"phoneNumber" validate:"required,min=10,max=15"`
	Permissions connection.Permissions `json:"permissions"`
	Settings    settingsRequest        `json:"settings"`
}

type patchRequest struct {
	AutoApprove     *bool     `json:"autoApprove"`
	MinConfidence   *float64  `json:"minConfidence" validate:"omitempty,gte=0.5,lte=1"`
	Categories      *[]string `json:"categories"`
	ExcludeKeywords *[]string `json:"excludeKeywords"`
}

type connectionResponse struct {
	UserID         uuid.UUID              `json:"userId"`
	PhoneNumber    string                 `json:"phoneNumber"`
	IsActive       bool                   `json:"isActive"`
	Permissions    connection.Permissions `json:"permissions"`
	Settings       connection.Settings    `json:"settings"`
	LastSyncTime   *time.Time             `json:"lastSyncTime"`
	TotalProcessed int64                  `json:"totalProcessed"`
	CreatedAt      time.Time              `json:"createdAt"`
	UpdatedAt      time.Time              `json:"updatedAt"`
}

type registerResponse struct {
	WebhookURL string             `json:"webhookUrl"`
	Connection connectionResponse `json:"connection"`
}

func toResponse(c *connection.Connection) connectionResponse {
	return connectionResponse{
		UserID:         c.UserID,
		PhoneNumber:    c.PhoneNumber,
		IsActive:       c.IsActive,
		Permissions:    c.Permissions,
		Settings:       c.Settings,
		LastSyncTime:   c.LastSyncTime,
		TotalProcessed: c.TotalProcessed,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		render.Error(w, r, http.StatusUnauthorized, err.Error())
		return
	}

	var req registerRequest
	if !render.Decode(w, r, &req) {
		return
	}

	settings := connection.Settings{
		AutoApprove:     req.Settings.AutoApprove,
		MinConfidence:   pipeline.DefaultMinConfidence,
		Categories:      req.Settings.Categories,
		ExcludeKeywords: req.Settings.ExcludeKeywords,
	}
	if req.Settings.MinConfidence != nil {
		settings.MinConfidence = *req.Settings.MinConfidence
	}

	conn, err := h.mgr.Register(r.Context(), userID, req.PhoneNumber, req.Permissions, settings)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	render.JSON(w, r, http.StatusCreated, registerResponse{
		WebhookURL: h.webhookURL,
		Connection: toResponse(conn),
	})
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		render.Error(w, r, http.StatusUnauthorized, err.Error())
		return
	}

	conn, err := h.mgr.GetStatus(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	render.JSON(w, r, http.StatusOK, registerResponse{
		WebhookURL: h.webhookURL,
		Connection: toResponse(conn),
	})
}

func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		render.Error(w, r, http.StatusUnauthorized, err.Error())
		return
	}

	var req patchRequest
	if !render.Decode(w, r, &req) {
		return
	}

	conn, err := h.mgr.UpdateSettings(r.Context(), userID, connection.SettingsPatch{
		AutoApprove:     req.AutoApprove,
		MinConfidence:   req.MinConfidence,
		Categories:      req.Categories,
		ExcludeKeywords: req.ExcludeKeywords,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	render.JSON(w, r, http.StatusOK, toResponse(conn))
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		render.Error(w, r, http.StatusUnauthorized, err.Error())
		return
	}

	if err := h.mgr.Deactivate(r.Context(), userID); err != nil {
		h.fail(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, connection.ErrInvalidPhone), errors.Is(err, connection.ErrInvalidSettings):
		render.Error(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, connection.ErrPhoneClaimed):
		render.Error(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, connection.ErrNotFound):
		render.Error(w, r, http.StatusNotFound, err.Error())
	default:
		logger.FromContext(r.Context()).Error("sms connection request failed", "error", err)
		render.Error(w, r, http.StatusInternalServerError, "internal error")
	}
}

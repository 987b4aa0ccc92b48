package smsimport

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/smsledger/internal/auth"
	"github.com/MrJamesThe3rd/smsledger/internal/http/render"
	"github.com/MrJamesThe3rd/smsledger/internal/importer"
	"github.com/MrJamesThe3rd/smsledger/internal/importer/backup"
	"github.com/MrJamesThe3rd/smsledger/internal/logger"
	"github.com/MrJamesThe3rd/smsledger/internal/parser"
	"github.com/MrJamesThe3rd/smsledger/internal/pipeline"
	"github.com/MrJamesThe3rd/smsledger/internal/transaction"
)

const maxBackupBytes = 32 << 20

type Handler struct {
	pipeline      *pipeline.Service
	txSvc         *transaction.Service
	importSvc     *importer.Service
	minConfidence float64
}

// NewHandler builds the SMS import endpoints. minConfidence applies when a
// request does not set one.
func NewHandler(p *pipeline.Service, txSvc *transaction.Service, importSvc *importer.Service, minConfidence float64) *Handler {
	return &Handler{
		pipeline:      p,
		txSvc:         txSvc,
		importSvc:     importSvc,
		minConfidence: minConfidence,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.importMessages)
	r.Get("/", h.history)
	r.Post("/backup", h.importBackup)
	r.Post("/confirm", h.confirm)
}

type importRequest struct {
	Messages      []string `json:"messages" validate:"required,min=1,max=100,dive,required"`
	AutoApprove   bool     `json:"autoApprove"`
	MinConfidence *float64 `json:"minConfidence" validate:"omitempty,gte=0,lte=1"`
}

func (h *Handler) importMessages(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		render.Error(w, r, http.StatusUnauthorized, err.Error())
		return
	}

	var req importRequest
	if !render.Decode(w, r, &req) {
		return
	}

	opts := pipeline.Options{AutoApprove: req.AutoApprove, MinConfidence: h.minConfidence}
	if req.MinConfidence != nil {
		opts.MinConfidence = *req.MinConfidence
	}

	res, err := h.pipeline.ImportBatch(r.Context(), userID, req.Messages, opts)
	h.respond(w, r, res, err)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		render.Error(w, r, http.StatusUnauthorized, err.Error())
		return
	}

	txs, err := h.txSvc.List(r.Context(), transaction.ListFilter{UserID: userID, Sources: transaction.SMSSources})
	if err != nil {
		h.internal(w, r, "listing sms transactions failed", err)
		return
	}

	stats, err := h.txSvc.SMSStats(r.Context(), userID)
	if err != nil {
		h.internal(w, r, "sms stats failed", err)
		return
	}

	render.JSON(w, r, http.StatusOK, toHistoryResponse(txs, stats))
}

// importBackup takes a multipart upload: "file" plus optional "format",
// "sender", "autoApprove" and "minConfidence" form values.
func (h *Handler) importBackup(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		render.Error(w, r, http.StatusUnauthorized, err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBackupBytes)

	if err := r.ParseMultipartForm(maxBackupBytes); err != nil {
		render.Error(w, r, http.StatusBadRequest, "failed to parse form: "+err.Error())
		return
	}

	opts, ok := h.formOptions(w, r)
	if !ok {
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		render.Error(w, r, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	msgs, err := h.importSvc.Import(importer.Format(r.FormValue("format")), file)
	if err != nil {
		render.Error(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if sender := strings.ToLower(strings.TrimSpace(r.FormValue("sender"))); sender != "" {
		msgs = filterSender(msgs, sender)
	}

	logger.FromContext(r.Context()).Info("sms backup read", "user_id", userID, "messages", len(msgs))

	res, err := h.pipeline.ImportMessages(r.Context(), userID, toPipelineMessages(msgs), opts)
	h.respond(w, r, res, err)
}

type confirmRequest struct {
	Transactions []candidateDTO `json:"transactions" validate:"required,min=1,max=100,dive"`
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		render.Error(w, r, http.StatusUnauthorized, err.Error())
		return
	}

	var req confirmRequest
	if !render.Decode(w, r, &req) {
		return
	}

	reviewed := make([]*parser.ParsedTransaction, len(req.Transactions))

	for i, c := range req.Transactions {
		if !c.Amount.IsPositive() {
			render.JSON(w, r, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": map[string]string{"transactions[" + strconv.Itoa(i) + "].amount": "gt=0"},
			})

			return
		}

		reviewed[i] = c.toParsed()
	}

	res, err := h.pipeline.ConfirmPending(r.Context(), userID, reviewed)
	h.respond(w, r, res, err)
}

func (h *Handler) formOptions(w http.ResponseWriter, r *http.Request) (pipeline.Options, bool) {
	opts := pipeline.Options{MinConfidence: h.minConfidence}

	if s := r.FormValue("autoApprove"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			render.Error(w, r, http.StatusBadRequest, "autoApprove must be a boolean")
			return opts, false
		}

		opts.AutoApprove = v
	}

	if s := r.FormValue("minConfidence"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v < 0 || v > 1 {
			render.Error(w, r, http.StatusBadRequest, "minConfidence must be a number within [0,1]")
			return opts, false
		}

		opts.MinConfidence = v
	}

	return opts, true
}

// respond writes a pipeline result. An interrupted import still reports the
// candidates it got through, since those writes are committed.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, res *pipeline.Result, err error) {
	switch {
	case err == nil:
		render.JSON(w, r, http.StatusOK, toImportResponse(res))
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		logger.FromContext(r.Context()).Warn("sms import interrupted", "error", err)
		render.JSON(w, r, http.StatusServiceUnavailable, toImportResponse(res))
	default:
		h.internal(w, r, "sms import failed", err)
	}
}

func (h *Handler) internal(w http.ResponseWriter, r *http.Request, msg string, err error) {
	logger.FromContext(r.Context()).Error(msg, "error", err)
	render.Error(w, r, http.StatusInternalServerError, "internal error")
}

func filterSender(msgs []backup.Message, sender string) []backup.Message {
	out := msgs[:0:0]

	for _, m := range msgs {
		if strings.Contains(strings.ToLower(m.Sender), sender) {
			out = append(out, m)
		}
	}

	return out
}

func toPipelineMessages(msgs []backup.Message) []pipeline.Message {
	out := make([]pipeline.Message, len(msgs))
	for i, m := range msgs {
		out[i] = pipeline.Message{Body: m.Body, ReceivedAt: m.ReceivedAt}
	}

	return out
}

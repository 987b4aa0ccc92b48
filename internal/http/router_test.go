package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/smsledger/internal/auth"
	"github.com/MrJamesThe3rd/smsledger/internal/connection"
	apihttp "github.com/MrJamesThe3rd/smsledger/internal/http"
	matchingHandler "github.com/MrJamesThe3rd/smsledger/internal/http/matching"
	"github.com/MrJamesThe3rd/smsledger/internal/http/smsimport"
	"github.com/MrJamesThe3rd/smsledger/internal/http/smsregister"
	txHandler "github.com/MrJamesThe3rd/smsledger/internal/http/transaction"
	"github.com/MrJamesThe3rd/smsledger/internal/http/webhook"
	"github.com/MrJamesThe3rd/smsledger/internal/importer"
	"github.com/MrJamesThe3rd/smsledger/internal/matching"
	"github.com/MrJamesThe3rd/smsledger/internal/parser"
	"github.com/MrJamesThe3rd/smsledger/internal/pipeline"
	"github.com/MrJamesThe3rd/smsledger/internal/transaction"
)

const (
	hdfcMsg       = "HDFC Bank: Rs.500.00 debited from A/C **1234 on 15-Dec-23 at SWIGGY. Avl Bal: Rs.10,000.00"
	webhookSecret = "s3cret"
)

type fixture struct {
	router http.Handler
	txRepo *transaction.MockRepository
	rules  *matching.MockRepository
	conns  *connection.MemoryStore
	tokens *auth.Tokens
	userID uuid.UUID
	bearer string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)

	f := &fixture{
		txRepo: transaction.NewMockRepository(ctrl),
		rules:  matching.NewMockRepository(ctrl),
		conns:  connection.NewMemoryStore(),
		tokens: auth.NewTokens("test-secret", time.Hour),
		userID: uuid.New(),
	}

	token, err := f.tokens.Issue(f.userID)
	require.NoError(t, err)

	f.bearer = "Bearer " + token

	p := parser.New()

	var (
		txSvc       = transaction.NewService(f.txRepo)
		matchingSvc = matching.NewService(f.rules)
		pipelineSvc = pipeline.NewService(p, txSvc, pipeline.WithCategorizer(matchingSvc))
		manager     = connection.NewManager(f.conns, txSvc, p, connection.WithCategorizer(matchingSvc))
	)

	f.router = apihttp.New(f.tokens, apihttp.Handlers{
		Transactions: txHandler.NewHandler(txSvc),
		Matching:     matchingHandler.NewHandler(matchingSvc),
		SMSImport:    smsimport.NewHandler(pipelineSvc, txSvc, importer.NewService(100), pipeline.DefaultMinConfidence),
		SMSRegister:  smsregister.NewHandler(manager, "https://ledger.example.com/"),
		Webhook:      webhook.NewHandler(manager, webhookSecret),
	}, apihttp.Options{Timeout: 5 * time.Second, CORSOrigins: []string{"*"}})

	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any, authed bool) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)

		r = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if authed {
		req.Header.Set("Authorization", f.bearer)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))

	return v
}

type importBody struct {
	Total          int      `json:"total"`
	HighConfidence int      `json:"highConfidence"`
	Imported       int      `json:"imported"`
	Skipped        int      `json:"skipped"`
	Errors         []string `json:"errors"`
	Message        string   `json:"message"`
	Transactions   []struct {
		Amount        string     `json:"amount"`
		Type          string     `json:"type"`
		Merchant      string     `json:"merchant"`
		Category      string     `json:"category"`
		Outcome       string     `json:"outcome"`
		TransactionID *uuid.UUID `json:"transactionId"`
	} `json:"transactions"`
}

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

func TestRouter_Healthz(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/healthz", nil, false)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestRouter_RequiresAuth(t *testing.T) {
	f := newFixture(t)

	paths := []struct{ method, path string }{
		{http.MethodPost, "/api/v1/sms/import"},
		{http.MethodGet, "/api/v1/sms/import"},
		{http.MethodGet, "/api/v1/sms/register"},
		{http.MethodGet, "/api/v1/transactions"},
		{http.MethodGet, "/api/v1/matching/suggest?merchant=x"},
	}

	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			rec := f.do(t, p.method, p.path, nil, false)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestSMSImport_Validation(t *testing.T) {
	f := newFixture(t)

	tooMany := make([]string, 101)
	for i := range tooMany {
		tooMany[i] = "x"
	}

	type testCase struct {
		name      string
		body      map[string]any
		wantField string
	}

	tests := []testCase{
		{name: "no messages", body: map[string]any{"messages": []string{}}, wantField: "messages"},
		{name: "too many messages", body: map[string]any{"messages": tooMany}, wantField: "messages"},
		{name: "confidence above one", body: map[string]any{"messages": []string{"x"}, "minConfidence": 1.5}, wantField: "minConfidence"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/v1/sms/import", tt.body, true)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			body := decode[errorBody](t, rec)
			assert.Contains(t, body.Fields, tt.wantField)
		})
	}
}

func TestSMSImport_AutoApprove(t *testing.T) {
	f := newFixture(t)

	sess := transaction.NewMockImportSession(gomock.NewController(t))

	f.rules.EXPECT().FindMatch(gomock.Any(), f.userID, "SWIGGY").Return("", nil)
	f.txRepo.EXPECT().BeginImport(gomock.Any(), f.userID).Return(sess, nil)
	sess.EXPECT().FindDuplicate(gomock.Any(), f.userID, int64(50000), "Payment of ₹500.00 at SWIGGY", gomock.Any(), gomock.Any()).
		Return(nil, nil)
	sess.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, tx *transaction.Transaction) error {
			assert.Equal(t, transaction.SourceSMSImport, tx.Source)
			assert.Equal(t, transaction.TypeExpense, tx.Type)
			assert.Equal(t, "SWIGGY", tx.Title)

			return nil
		})
	sess.EXPECT().Close().Return(nil)

	rec := f.do(t, http.MethodPost, "/api/v1/sms/import", map[string]any{
		"messages":    []string{hdfcMsg, "Your OTP is 123456"},
		"autoApprove": true,
	}, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode[importBody](t, rec)
	assert.Equal(t, 1, body.Total)
	assert.Equal(t, 1, body.HighConfidence)
	assert.Equal(t, 1, body.Imported)
	assert.Empty(t, body.Errors)
	require.Len(t, body.Transactions, 1)
	assert.Equal(t, "imported", body.Transactions[0].Outcome)
	assert.Equal(t, "debit", body.Transactions[0].Type)
	assert.Equal(t, "500", body.Transactions[0].Amount)
	assert.NotNil(t, body.Transactions[0].TransactionID)
	assert.Contains(t, body.Message, "1 imported")
}

func TestSMSImport_Backup(t *testing.T) {
	f := newFixture(t)

	sess := transaction.NewMockImportSession(gomock.NewController(t))

	f.rules.EXPECT().FindMatch(gomock.Any(), f.userID, "SWIGGY").Return("Takeaway", nil)
	f.txRepo.EXPECT().BeginImport(gomock.Any(), f.userID).Return(sess, nil)
	sess.EXPECT().FindDuplicate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, nil)
	sess.EXPECT().Close().Return(nil)

	xml := `<smses>
  <sms address="VM-HDFCBK" type="1" date="1702600000000" body="` + hdfcMsg + `" />
  <sms address="AX-ICICIB" type="1" date="1702600000000" body="Rs 10 debited from a/c XX1 at SHOP" />
  <sms address="MOM" type="1" date="1702600000000" body="call me" />
</smses>`

	var buf bytes.Buffer

	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("sender", "hdfc"))
	part, err := mw.CreateFormFile("file", "sms.xml")
	require.NoError(t, err)
	_, err = part.Write([]byte(xml))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sms/import/backup", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", f.bearer)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode[importBody](t, rec)
	require.Len(t, body.Transactions, 1)
	assert.Equal(t, "pending_review", body.Transactions[0].Outcome)
	assert.Equal(t, "Takeaway", body.Transactions[0].Category)
}

func TestSMSImport_History(t *testing.T) {
	f := newFixture(t)

	conf := 0.9
	f.txRepo.EXPECT().ListTransactions(gomock.Any(), transaction.ListFilter{UserID: f.userID, Sources: transaction.SMSSources}).
		Return([]*transaction.Transaction{{ID: uuid.New(), UserID: f.userID, Amount: 50000, Source: transaction.SourceSMSImport, Confidence: &conf}}, nil)
	f.txRepo.EXPECT().Stats(gomock.Any(), f.userID, []transaction.Source{transaction.SourceSMSImport}, gomock.Any()).
		Return(&transaction.Stats{TotalImported: 3, ThisMonth: 1, TotalSpent: 30000, TotalReceived: 150000}, nil)

	rec := f.do(t, http.MethodGet, "/api/v1/sms/import", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[struct {
		Transactions  []map[string]any `json:"transactions"`
		TotalImported int64            `json:"totalImported"`
		ThisMonth     int64            `json:"thisMonth"`
		TotalAmount   int64            `json:"totalAmount"`
		TotalSpent    int64            `json:"totalSpent"`
	}](t, rec)

	assert.Len(t, body.Transactions, 1)
	assert.Equal(t, int64(3), body.TotalImported)
	assert.Equal(t, int64(1), body.ThisMonth)
	assert.Equal(t, int64(120000), body.TotalAmount)
	assert.Equal(t, int64(30000), body.TotalSpent)
}

func TestSMSRegister_Lifecycle(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/sms/register", nil, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/sms/register", map[string]any{
		"phoneNumber": "+919876543210",
		"permissions": map[string]bool{"readSMS": true, "autoProcess": true, "realTimeSync": true},
		"settings":    map[string]any{"autoApprove": true, "minConfidence": 0.8},
	}, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	reg := decode[struct {
		WebhookURL string `json:"webhookUrl"`
		Connection struct {
			PhoneNumber string `json:"phoneNumber"`
			IsActive    bool   `json:"isActive"`
		} `json:"connection"`
	}](t, rec)
	assert.Equal(t, "https://ledger.example.com/api/v1/sms/webhook", reg.WebhookURL)
	assert.Equal(t, "+919876543210", reg.Connection.PhoneNumber)
	assert.True(t, reg.Connection.IsActive)

	rec = f.do(t, http.MethodPut, "/api/v1/sms/register", map[string]any{"minConfidence": 0.9}, true)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPut, "/api/v1/sms/register", map[string]any{"minConfidence": 0.2}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/v1/sms/register", nil, true)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	conn, err := f.conns.Get(t.Context(), f.userID)
	require.NoError(t, err)
	assert.False(t, conn.IsActive)
	assert.InDelta(t, 0.9, conn.Settings.MinConfidence, 1e-9)
}

func TestSMSRegister_PhoneClaimed(t *testing.T) {
	f := newFixture(t)

	_, err := connection.NewManager(f.conns, nil, parser.New()).Register(t.Context(), uuid.New(), "+919876543210",
		connection.Permissions{RealTimeSync: true}, connection.Settings{MinConfidence: 0.7})
	require.NoError(t, err)

	rec := f.do(t, http.MethodPost, "/api/v1/sms/register", map[string]any{
		"phoneNumber": "+919876543210",
		"settings":    map[string]any{},
	}, true)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestWebhook(t *testing.T) {
	f := newFixture(t)

	_, err := connection.NewManager(f.conns, nil, parser.New()).Register(t.Context(), f.userID, "+919876543210",
		connection.Permissions{RealTimeSync: true, AutoProcess: true}, connection.Settings{MinConfidence: 0.7, AutoApprove: true})
	require.NoError(t, err)

	post := func(secret string, body map[string]any) *httptest.ResponseRecorder {
		b, err := json.Marshal(body)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/sms/webhook", bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(webhook.SecretHeader, secret)

		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)

		return rec
	}

	t.Run("wrong secret", func(t *testing.T) {
		rec := post("nope", map[string]any{"phoneNumber": "+919876543210", "message": hdfcMsg})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unregistered phone", func(t *testing.T) {
		rec := post(webhookSecret, map[string]any{"phoneNumber": "+919000000000", "message": hdfcMsg})
		require.Equal(t, http.StatusNotFound, rec.Code)

		body := decode[map[string]any](t, rec)
		assert.Equal(t, "unregistered", body["status"])
	})

	t.Run("non-bank message", func(t *testing.T) {
		rec := post(webhookSecret, map[string]any{"phoneNumber": "+919876543210", "message": "dinner at 8?", "sender": "FRIEND"})
		require.Equal(t, http.StatusOK, rec.Code)

		body := decode[map[string]any](t, rec)
		assert.Equal(t, "ignored", body["status"])
	})

	t.Run("imported", func(t *testing.T) {
		f.rules.EXPECT().FindMatch(gomock.Any(), f.userID, "SWIGGY").Return("Takeaway", nil)
		f.txRepo.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, tx *transaction.Transaction) error {
				assert.Equal(t, "Takeaway", tx.Category)
				return nil
			})

		rec := post(webhookSecret, map[string]any{
			"phoneNumber": "+91 98765 43210",
			"message":     hdfcMsg,
			"sender":      "VM-HDFCBK",
			"timestamp":   "2023-12-15T10:00:00+05:30",
			"messageId":   "m-1",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		body := decode[map[string]any](t, rec)
		assert.Equal(t, "imported", body["status"])
		assert.NotEmpty(t, body["transactionId"])

		conn, err := f.conns.Get(t.Context(), f.userID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), conn.TotalProcessed)
	})
}

func TestTransactions(t *testing.T) {
	f := newFixture(t)

	id := uuid.New()

	t.Run("list with source filter", func(t *testing.T) {
		f.txRepo.EXPECT().ListTransactions(gomock.Any(), transaction.ListFilter{
			UserID:  f.userID,
			Sources: []transaction.Source{transaction.SourceSMSPending},
		}).Return([]*transaction.Transaction{}, nil)

		rec := f.do(t, http.MethodGet, "/api/v1/transactions?source=sms_pending", nil, true)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unknown source", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/transactions?source=bogus", nil, true)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("approve", func(t *testing.T) {
		f.txRepo.EXPECT().UpdateSource(gomock.Any(), f.userID, id, transaction.SourceSMSPending, transaction.SourceSMSImport).
			Return(nil)

		rec := f.do(t, http.MethodPost, "/api/v1/transactions/"+id.String()+"/approve", nil, true)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("approve missing", func(t *testing.T) {
		f.txRepo.EXPECT().UpdateSource(gomock.Any(), f.userID, id, gomock.Any(), gomock.Any()).
			Return(transaction.ErrNotFound)

		rec := f.do(t, http.MethodPost, "/api/v1/transactions/"+id.String()+"/approve", nil, true)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("delete with bad id", func(t *testing.T) {
		rec := f.do(t, http.MethodDelete, "/api/v1/transactions/nope", nil, true)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestMatching(t *testing.T) {
	f := newFixture(t)

	f.rules.EXPECT().CreateRule(gomock.Any(), f.userID, "swiggy", "Takeaway").Return(nil)
	f.rules.EXPECT().FindMatch(gomock.Any(), f.userID, "SWIGGY BLR").Return("Takeaway", nil)

	rec := f.do(t, http.MethodPost, "/api/v1/matching", map[string]string{"pattern": "swiggy", "category": "Takeaway"}, true)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/matching", map[string]string{"pattern": "swiggy"}, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "required", decode[errorBody](t, rec).Fields["category"])

	rec = f.do(t, http.MethodGet, "/api/v1/matching/suggest?merchant=SWIGGY+BLR", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]any](t, rec)
	assert.Equal(t, "Takeaway", body["category"])
	assert.Equal(t, true, body["found"])
}

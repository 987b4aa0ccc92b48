package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/smsledger/internal/auth"
	"github.com/MrJamesThe3rd/smsledger/internal/http/matching"
	"github.com/MrJamesThe3rd/smsledger/internal/http/smsimport"
	"github.com/MrJamesThe3rd/smsledger/internal/http/smsregister"
	"github.com/MrJamesThe3rd/smsledger/internal/http/transaction"
	"github.com/MrJamesThe3rd/smsledger/internal/http/webhook"
	"github.com/MrJamesThe3rd/smsledger/internal/logger"
)

type Options struct {
	Timeout     time.Duration
	CORSOrigins []string
}

type Handlers struct {
	Transactions *transaction.Handler
	Matching     *matching.Handler
	SMSImport    *smsimport.Handler
	SMSRegister  *smsregister.Handler
	Webhook      *webhook.Handler
}

func New(tokens *auth.Tokens, h Handlers, opts Options) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(logger.Middleware)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", webhook.SecretHeader},
		MaxAge:         300,
	}))

	if opts.Timeout > 0 {
		router.Use(middleware.Timeout(opts.Timeout))
	}

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/sms/webhook", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			h.Webhook.Routes(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(tokens.Middleware)

			r.Route("/sms/import", func(r chi.Router) {
				r.Use(middleware.AllowContentType("application/json", "multipart/form-data"))
				h.SMSImport.Routes(r)
			})

			r.Route("/sms/register", func(r chi.Router) {
				r.Use(middleware.AllowContentType("application/json"))
				h.SMSRegister.Routes(r)
			})

			r.Route("/transactions", func(r chi.Router) {
				r.Use(middleware.AllowContentType("application/json"))
				h.Transactions.Routes(r)
			})

			r.Route("/matching", h.Matching.Routes)
		})
	})

	return router
}

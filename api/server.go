/*
Package api exposes the ledger over HTTP.

PURPOSE:
  JSON REST surface in front of the reconciliation engine. Every route is
  scoped to the user resolved by requireUser; the router carries request
  IDs, structured request logging, panic recovery, and permissive CORS for
  the browser frontend.
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/warp/finance-engine/ledger"
)

type Server struct {
	engine   *ledger.Engine
	store    ledger.TxStore
	validate *validator.Validate
	log      logrus.FieldLogger
	router   chi.Router
}

func NewServer(engine *ledger.Engine, store ledger.TxStore, log logrus.FieldLogger) *Server {
	s := &Server{
		engine:   engine,
		store:    store,
		validate: validator.New(),
		log:      log,
	}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-User-ID"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(requireUser)

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", s.handleListAccounts)
			r.Post("/", s.handleCreateAccount)
		})

		r.Route("/cards", func(r chi.Router) {
			r.Get("/", s.handleListCards)
			r.Post("/", s.handleCreateCard)
			r.Get("/{id}/balance", s.handleCardBalance)
		})

		r.Route("/loans", func(r chi.Router) {
			r.Get("/", s.handleListLoans)
			r.Post("/", s.handleCreateLoan)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", s.handleListCategories)
			r.Post("/", s.handleCreateCategory)
		})

		r.Route("/income-sources", func(r chi.Router) {
			r.Get("/", s.handleListIncomeSources)
			r.Post("/", s.handleCreateIncomeSource)
		})

		r.Route("/budgets", func(r chi.Router) {
			r.Get("/", s.handleListBudgets)
			r.Post("/", s.handleCreateBudget)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", s.handleListTransactions)
			r.Post("/", s.handleCreateTransaction)
			r.Put("/{id}", s.handleUpdateTransaction)
			r.Delete("/{id}", s.handleDeleteTransaction)
		})

		r.Route("/installments", func(r chi.Router) {
			r.Get("/", s.handleListInstallments)
			r.Post("/", s.handleCreateInstallment)
			r.Post("/{id}/pay", s.handlePayInstallment)
		})
	})

	return r
}

package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"wedlock-server/internal/matchmaking"
	"wedlock-server/internal/payments"
	"wedlock-server/internal/profile"
)

// Ranker is the ranking pipeline entry point consumed by the matches
// handler.
type Ranker interface {
	Rank(ctx context.Context, requesterKey string) ([]matchmaking.Match, error)
}

// PaymentService covers the payment operations exposed over HTTP.
type PaymentService interface {
	CreateUpgradeOrder() (map[string]interface{}, error)
	VerifyAndUpgrade(ctx context.Context, req payments.VerificationRequest) error
}

// Server wires the HTTP API for registration, matching, payments and admin
// access.
type Server struct {
	router   *mux.Router
	store    profile.Store
	ranker   Ranker
	payments PaymentService
	admin    *AdminAuth
	logger   *zap.Logger
}

// New assembles the router with all API routes registered.
func New(store profile.Store, ranker Ranker, paymentSvc PaymentService, admin *AdminAuth, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		router:   mux.NewRouter(),
		store:    store,
		ranker:   ranker,
		payments: paymentSvc,
		admin:    admin,
		logger:   logger,
	}

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/api/register", s.handleRegister).Methods(http.MethodPost)
	s.router.HandleFunc("/api/matches", s.handleMatches).Methods(http.MethodPost)
	s.router.HandleFunc("/api/create-order", s.handleCreateOrder).Methods(http.MethodPost)
	s.router.HandleFunc("/api/verify-payment", s.handleVerifyPayment).Methods(http.MethodPost)
	s.router.HandleFunc("/api/admin-login", s.handleAdminLogin).Methods(http.MethodPost)
	s.router.HandleFunc("/api/admin-stats", s.handleAdminStats).Methods(http.MethodGet)

	return s
}

// Handler returns the CORS-wrapped root handler.
func (s *Server) Handler() http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(s.router)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("writing response failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

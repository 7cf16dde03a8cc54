package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"wedlock-server/internal/matchmaking"
	"wedlock-server/internal/payments"
	"wedlock-server/internal/profile"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleRegister accepts a loosely-typed profile document and upserts it
// keyed by phone.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var doc map[string]any
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := profile.FromDocument(doc)
	if err != nil {
		s.logger.Debug("rejecting registration document", zap.Error(err))
		s.writeError(w, http.StatusBadRequest, "invalid profile document")
		return
	}

	if err := p.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, "Missing fields")
		return
	}

	if err := s.store.Upsert(r.Context(), p); err != nil {
		s.logger.Error("profile upsert failed", zap.String("phone", p.Phone), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "could not save profile")
		return
	}

	s.logger.Info("profile registered", zap.String("phone", p.Phone))
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "msg": "Profile Created!"})
}

func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	matches, err := s.ranker.Rank(r.Context(), req.Phone)
	if err != nil {
		switch {
		case errors.Is(err, matchmaking.ErrUnauthenticated):
			s.writeError(w, http.StatusUnauthorized, "Not logged in")
		case errors.Is(err, profile.ErrNotFound):
			s.writeError(w, http.StatusNotFound, "User not found")
		default:
			s.logger.Error("ranking failed", zap.String("phone", req.Phone), zap.Error(err))
			s.writeError(w, http.StatusInternalServerError, "could not rank matches")
		}
		return
	}

	s.writeJSON(w, http.StatusOK, matches)
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, _ *http.Request) {
	order, err := s.payments.CreateUpgradeOrder()
	if err != nil {
		s.logger.Error("order creation failed", zap.Error(err))
		s.writeError(w, http.StatusBadGateway, "could not create order")
		return
	}

	s.writeJSON(w, http.StatusOK, order)
}

func (s *Server) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req payments.VerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.payments.VerifyAndUpgrade(r.Context(), req); err != nil {
		if !errors.Is(err, payments.ErrSignatureMismatch) {
			s.logger.Error("payment upgrade failed", zap.String("phone", req.Phone), zap.Error(err))
		}
		s.writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"msg":     "Payment Verification Failed",
		})
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "msg": "Upgraded to Gold!"})
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := s.admin.Login(req.Password)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, "Wrong Password")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "token": token})
}

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	if err := s.admin.Verify(bearerToken(r)); err != nil {
		s.writeError(w, http.StatusForbidden, "Unauthorized")
		return
	}

	users, err := s.store.All(r.Context())
	if err != nil {
		s.logger.Error("listing profiles failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "could not list users")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"count": len(users),
		"users": users,
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}

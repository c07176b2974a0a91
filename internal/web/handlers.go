package web

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/vitos/okx_trade_hook/internal/usecase"
)

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	var sig usecase.Signal
	if err := json.NewDecoder(r.Body).Decode(&sig); err != nil {
		s.logger.Warn("Failed to decode signal", zap.Error(err))
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	svc := s.fallback
	if sig.APIKey != "" {
		selected, ok := s.services[sig.APIKey]
		if !ok {
			s.logger.Warn("Signal for unknown api_key",
				zap.String("symbol", sig.Symbol))
			http.Error(w, "Unknown api_key", http.StatusForbidden)
			return
		}
		svc = selected
	}
	if svc == nil {
		http.Error(w, "No account configured", http.StatusServiceUnavailable)
		return
	}

	resp := svc.HandleSignal(r.Context(), sig)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

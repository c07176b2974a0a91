package web

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vitos/okx_trade_hook/internal/usecase"
)

// Server receives webhook alerts and routes them to the matching
// account's order service. Accounts are selected by the api_key field
// of the payload; a payload without one goes to the default (first
// configured) account.
type Server struct {
	router   *http.ServeMux
	server   *http.Server
	services map[string]*usecase.OrderService
	fallback *usecase.OrderService
	allowed  []string
	logger   *zap.Logger
}

func NewServer(
	host string,
	port int,
	services map[string]*usecase.OrderService,
	fallback *usecase.OrderService,
	ipWhitelist []string,
	logger *zap.Logger,
) *Server {
	s := &Server{
		router:   http.NewServeMux(),
		services: services,
		fallback: fallback,
		allowed:  ipWhitelist,
		logger:   logger,
	}
	s.routes()
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		Handler:           s.guard(s.router),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	// Webhook entrypoint
	s.router.HandleFunc("POST /order", s.handleOrder)

	// Liveness
	s.router.HandleFunc("GET /ping", s.handlePing)

	// Prometheus scrape endpoint
	s.router.Handle("GET /metrics", promhttp.Handler())
}

// guard rejects callers outside the IP whitelist. An empty whitelist
// allows everyone.
func (s *Server) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.allowed) > 0 {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			if !s.allowedIP(ip) {
				s.logger.Warn("Rejected request from non-whitelisted IP",
					zap.String("ip", ip),
					zap.String("path", r.URL.Path))
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) allowedIP(ip string) bool {
	for _, a := range s.allowed {
		if a == ip {
			return true
		}
	}
	return false
}

// Handler exposes the routed and guarded handler chain.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start() error {
	s.logger.Info("Starting web server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

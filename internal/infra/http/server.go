package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nRudzy/medicandle-sub000/internal/engine"
)

type Server struct {
	srv *http.Server
}

func New(addr string, exposeMetrics bool, mgr *engine.Manager, log *slog.Logger) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	if exposeMetrics {
		mux.Handle("/metrics", promhttp.Handler())
	}

	h := &handlers{mgr: mgr, log: log}
	mux.HandleFunc("GET /api/materials", h.listMaterials)
	mux.HandleFunc("GET /api/materials/{id}/movements", h.materialMovements)
	mux.HandleFunc("POST /api/materials/{id}/adjustments", h.recordAdjustment)
	mux.HandleFunc("GET /api/orders/{id}/feasibility", h.orderFeasibility)
	mux.HandleFunc("GET /api/orders/{id}/movements", h.orderMovements)
	mux.HandleFunc("POST /api/orders/{id}/reserve", h.reserveOrder)
	mux.HandleFunc("POST /api/orders/{id}/release", h.releaseOrder)
	mux.HandleFunc("POST /api/orders/{id}/consume", h.consumeOrder)

	return &Server{srv: &http.Server{Addr: addr, Handler: mux}}
}

func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

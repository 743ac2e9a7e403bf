// Package http expone el status listener opcional durante un run: progreso
// del plan en curso (desde el buffer en memoria) y /metrics (Prometheus).
// Solo lectura: no permite mutar el plan.
package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/mailmaint/internal/observability/logger"
	"github.com/dropDatabas3/mailmaint/internal/progress"
)

// StatusServer sirve /status, /healthz y /metrics mientras corre el plan.
type StatusServer struct {
	Addr string
	// Sink es el buffer de eventos del run en curso.
	Sink *progress.MemorySink
}

func (s *StatusServer) routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		evs := s.Sink.Events()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"events": evs,
			"count":  len(evs),
		})
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

// Run levanta el listener y lo baja limpio cuando ctx se cancela (el plan
// terminó). Bloquea hasta el shutdown.
func (s *StatusServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	log := logger.Named("status")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("status listener up", logger.String("addr", s.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
	return g.Wait()
}

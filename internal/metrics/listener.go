package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/armazcape/armazd/internal/logfields"
)

// Listener serves /metrics and /healthz on a dedicated HTTP endpoint.
type Listener struct {
	server *http.Server
}

// NewListener builds the metrics endpoint for the given registry.
func NewListener(addr string, reg *prom.Registry) *Listener {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	return &Listener{
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start serves in a background goroutine until Stop is called.
func (l *Listener) Start() {
	slog.Info("Starting metrics listener", logfields.Address(l.server.Addr))
	go func() {
		if err := l.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics listener failed", logfields.Error(err))
		}
	}()
}

// Stop shuts the endpoint down, honoring the context deadline.
func (l *Listener) Stop(ctx context.Context) error {
	slog.Info("Stopping metrics listener")
	return l.server.Shutdown(ctx)
}

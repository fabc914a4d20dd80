package common

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// OpsServer exposes the metrics and health endpoints every service carries.
type OpsServer struct {
	srv   *http.Server
	ready atomic.Bool
}

func StartOpsServer(port int) *OpsServer {
	ops := &OpsServer{}

	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if !ops.ready.Load() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	ops.srv = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: r,
	}
	go func() {
		if err := ops.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			panic(err)
		}
	}()
	return ops
}

func (o *OpsServer) SetReady(ready bool) { o.ready.Store(ready) }

func (o *OpsServer) Shutdown(ctx context.Context) error { return o.srv.Shutdown(ctx) }

// Package httptransport assembles the HTTP surface: the common middleware
// chain, module routers, and operational endpoints.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	attendancehandler "pramaan/internal/attendance/handler"
	enrollmenthandler "pramaan/internal/enrollment/handler"
	"pramaan/internal/platform/metrics"
	"pramaan/internal/platform/middleware"
)

const requestTimeout = 15 * time.Second

// Deps carries everything the router mounts.
type Deps struct {
	Enrollment *enrollmenthandler.Handler
	Attendance *attendancehandler.Handler
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

// NewRouter wires the middleware chain and mounts every module under
// /api/v1. Operational endpoints stay outside the API prefix.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.ContentTypeJSON)
	if deps.Metrics != nil {
		r.Use(middleware.Latency(deps.Metrics))
	}

	r.Route("/api/v1", func(api chi.Router) {
		deps.Enrollment.Register(api)
		deps.Attendance.Register(api)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

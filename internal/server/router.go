// Package server wires handlers, middleware and the HTTP listener.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/groundline-systems/sourcegate/internal/handlers"
	"github.com/groundline-systems/sourcegate/internal/middleware"
	"github.com/groundline-systems/sourcegate/internal/ratelimit"
	sharedmw "github.com/groundline-systems/sourcegate/pkg/middleware"
)

// Options collects everything the router mounts.
type Options struct {
	Sources *handlers.SourceHandler
	Types   *handlers.TypesHandler
	Health  *handlers.HealthHandler

	// Auth is nil when authentication is disabled.
	Auth    *middleware.Authenticator
	Limiter ratelimit.RateLimiter
}

// NewRouter builds the gateway's route table. Upload routes sit behind
// rate limiting and, when configured, bearer-token auth; probes and
// metrics stay open.
func NewRouter(opts Options) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", opts.Health.Health)
	mux.HandleFunc("GET /readyz", opts.Health.Ready)
	mux.Handle("GET /metrics", promhttp.Handler())

	limiter := opts.Limiter
	if limiter == nil {
		limiter = &ratelimit.NoOpRateLimiter{}
	}

	uploadSource := middleware.RateLimit(limiter, "sources", opts.Sources.Upload)
	uploadTypes := middleware.RateLimit(limiter, "source-types", opts.Types.Upload)
	if opts.Auth != nil {
		uploadSource = opts.Auth.RequireAuth(uploadSource)
		uploadTypes = opts.Auth.RequireAuth(uploadTypes)
	}

	mux.HandleFunc("POST /api/v1/sources", uploadSource)
	mux.HandleFunc("POST /api/v1/source-types", uploadTypes)

	return sharedmw.RequestID(mux)
}

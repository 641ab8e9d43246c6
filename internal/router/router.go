// Package router mounts the HTTP API on the standard library's ServeMux.
package router

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-task-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-task-go/internal/config"
	"github.com/ovaphlow/pitchfork/service-task-go/internal/httpx"
	"github.com/ovaphlow/pitchfork/service-task-go/internal/metrics"
	"github.com/ovaphlow/pitchfork/service-task-go/internal/ratelimit"
	"github.com/ovaphlow/pitchfork/service-task-go/internal/store"
	"github.com/ovaphlow/pitchfork/service-task-go/internal/task"
	"github.com/ovaphlow/pitchfork/service-task-go/internal/user"
)

// Deps is everything the routes need. Started defaults to now.
type Deps struct {
	Logger  *zap.SugaredLogger
	HTTP    config.HTTPConfig
	Store   *store.Store
	Tokens  *auth.TokenManager
	Hasher  auth.PasswordHasher
	Limiter ratelimit.Limiter
	Metrics *metrics.Metrics
	Started time.Time
}

type health struct {
	Success bool    `json:"success"`
	Status  string  `json:"status"`
	Uptime  float64 `json:"uptime"`
}

// RegisterRoutes builds the services on top of d.Store and returns the fully
// wrapped handler.
func RegisterRoutes(d Deps) http.Handler {
	logger := d.Logger
	if d.Started.IsZero() {
		d.Started = time.Now()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	prefix := d.HTTP.APIPrefix

	authSvc := auth.NewService(d.Store.Users, d.Hasher, d.Tokens, logger)
	authHandler := auth.NewHandler(authSvc, logger)
	profileHandler := user.NewHandler(user.NewProfileService(d.Store.Users, logger), logger)
	taskHandler := task.NewHandler(task.NewService(d.Store.Tasks, logger), logger)

	protect := auth.Middleware(d.Tokens, d.Store.Users, logger)
	private := func(h http.HandlerFunc) http.Handler { return protect(h) }

	mux := http.NewServeMux()

	// health
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, health{
			Success: true,
			Status:  "ok",
			Uptime:  time.Since(d.Started).Seconds(),
		})
	})
	mux.Handle("GET /metrics", d.Metrics.Handler())

	// auth routes
	mux.HandleFunc("POST "+prefix+"/auth/register", authHandler.Register)
	mux.HandleFunc("POST "+prefix+"/auth/login", authHandler.Login)
	mux.Handle("POST "+prefix+"/auth/logout", private(authHandler.Logout))

	// profile routes
	mux.Handle("GET "+prefix+"/profile", private(profileHandler.Get))
	mux.Handle("PUT "+prefix+"/profile", private(profileHandler.Update))

	// task routes
	mux.Handle("GET "+prefix+"/tasks", private(taskHandler.List))
	mux.Handle("POST "+prefix+"/tasks", private(taskHandler.Create))
	mux.Handle("GET "+prefix+"/tasks/{id}", private(taskHandler.Get))
	mux.Handle("PUT "+prefix+"/tasks/{id}", private(taskHandler.Update))
	mux.Handle("DELETE "+prefix+"/tasks/{id}", private(taskHandler.Delete))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		httpx.Fail(w, http.StatusNotFound, "Route not found")
	})

	mws := []Middleware{
		RecoverMiddleware(logger),
		RequestIDMiddleware(),
		LoggingMiddleware(logger),
		SecurityHeadersMiddleware(),
		CORSMiddleware(d.HTTP.CORSOrigin),
	}
	if d.Limiter != nil {
		mws = append(mws, PrefixMiddleware(prefix, ratelimit.Middleware(d.Limiter, logger)))
	}
	mws = append(mws,
		BodyLimitMiddleware(d.HTTP.BodyLimitBytes),
		MetricsMiddleware(d.Metrics),
	)
	return Chain(mux, mws...)
}

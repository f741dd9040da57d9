package main

import (
	"log/slog"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mmynk/budgetwise/internal/auth"
	"github.com/mmynk/budgetwise/internal/middleware"
	"github.com/mmynk/budgetwise/pkg/api"
)

type routerDeps struct {
	ledgerService api.LedgerServiceHandler
	authService   api.AuthServiceHandler
	jwtManager    *auth.JWTManager
	sockets       http.Handler
	gatherer      prometheus.Gatherer
	logger        *slog.Logger
}

func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger(d.logger), cors)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(d.gatherer, promhttp.HandlerOpts{}))
	r.Handle("/ws", d.sockets)

	authPath, authHandler := api.NewAuthServiceHandler(
		d.authService,
		connect.WithInterceptors(middleware.LoggingInterceptor(d.logger)),
	)
	r.Mount(authPath, authHandler)

	ledgerPath, ledgerHandler := api.NewLedgerServiceHandler(
		d.ledgerService,
		connect.WithInterceptors(middleware.RequireAuth(d.jwtManager), middleware.LoggingInterceptor(d.logger)),
	)
	r.Mount(ledgerPath, ledgerHandler)

	return r
}

// requestLogger logs each HTTP request at debug level. RPC outcomes are
// logged by the connect interceptor.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("Request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

// cors allows browser clients to call the Connect endpoints.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

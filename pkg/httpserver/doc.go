// Package httpserver provides a lightweight wrapper around net/http that adds
// graceful shutdown, configurable server timeouts, health-check handlers, and
// structured logging via slog. It hosts the webhook endpoint and the
// liveness/readiness probes of the credit service.
//
// The core type is Server which embeds *http.Server behaviour and augments it
// with:
//
//   - Graceful Shutdown – Run blocks until the context is cancelled or an
//     interrupt/TERM signal is received and then shuts the server down using
//     http.Server.Shutdown with a configurable deadline.
//
//   - Functional Options – Construction is done through New or NewFromConfig
//     together with Option helpers such as WithAddr, WithReadTimeout and
//     WithLogger.
//
//   - Hooks – WithStartHook and WithStopHook let callers execute side-effects
//     around the server life-cycle.
//
//   - Health Checks – HealthCheckHandler returns an http.HandlerFunc that can
//     be mounted as both liveness and readiness probes, with dependency
//     checkers from pkg/redis and pkg/mongo.
//
// # Usage
//
//	import (
//		"context"
//		"log/slog"
//
//		"github.com/go-chi/chi/v5"
//
//		"github.com/dmitrymomot/creditkit/pkg/httpserver"
//		"github.com/dmitrymomot/creditkit/pkg/redis"
//	)
//
//	func main() {
//		r := chi.NewRouter()
//		r.Get("/health/live", httpserver.HealthCheckHandler(ctx, slog.Default()))
//		r.Get("/health/ready", httpserver.HealthCheckHandler(ctx, slog.Default(),
//			redis.Healthcheck(redisClient),
//		))
//		r.Mount("/", webhookHandler.Router())
//
//		srv := httpserver.New(
//			httpserver.WithAddr(":8080"),
//			httpserver.WithShutdownTimeout(10*time.Second),
//		)
//
//		if err := srv.Run(context.Background(), r); err != nil {
//			slog.Error("server stopped", "err", err)
//		}
//	}
//
// # Errors
//
// Run wraps all listen errors with ErrStart, while Shutdown wraps underlying
// shutdown errors with ErrShutdown. Use errors.Is to distinguish them.
package httpserver

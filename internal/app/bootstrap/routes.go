// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	healthfeature "github.com/dalemusser/filescout/internal/app/features/health"
	metricsstore "github.com/dalemusser/filescout/internal/app/store/metrics"
	"github.com/dalemusser/filescout/internal/app/system/metrics"
	"github.com/dalemusser/filescout/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. The gateway talks to its users over
// Telegram, so HTTP only carries operational endpoints plus the webhook
// receiver when running in webhook mode.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	rt := deps.Runtime
	r := chi.NewRouter()

	// Health check endpoint for load balancers and orchestrators
	var pg healthfeature.Pinger
	if deps.Postgres != nil {
		pg = deps.Postgres
	}
	healthHandler := healthfeature.NewHandler(healthfeature.Mongo(deps.MongoClient), pg, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Prometheus scrape endpoint
	r.Handle("/metrics", metricsHandler(rt, logger))

	// Telegram webhook receiver
	if rt.Webhook != nil {
		r.Mount("/telegram", rt.Webhook.Routes())
	}

	return r, nil
}

// metricsHandler refreshes the inventory gauges before each scrape.
func metricsHandler(rt *Runtime, logger *zap.Logger) http.Handler {
	prom := promhttp.HandlerFor(rt.Registry, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Store(), logger, "metrics.inventory")
		var sessions metricsstore.SessionCounter
		if rt.Sessions != nil {
			sessions = rt.Sessions
		}
		counts := metricsstore.FetchCounts(ctx, rt.Accounts, sessions)
		cancel()

		rt.Metrics.SetInventory(metrics.InventoryGroups, counts.Groups)
		rt.Metrics.SetInventory(metrics.InventoryAdmins, counts.Admins)
		rt.Metrics.SetInventory(metrics.InventoryMembers, counts.Members)
		rt.Metrics.SetInventory(metrics.InventoryBoundMembers, counts.BoundMembers)
		rt.Metrics.SetInventory(metrics.InventoryAuthenticated, counts.Authenticated)

		prom.ServeHTTP(w, r)
	})
}

package api

import (
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"fleet-telemetry-backend/config"
	"fleet-telemetry-backend/internal/auth"
	"fleet-telemetry-backend/internal/mw"
	"fleet-telemetry-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg *config.Config, s store.Store, webpushOptions *webpush.Options, alerts AlertDispatcher) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(s, webpushOptions, alerts)
	classifier := auth.NewClassifier(s, cfg.Auth.AdminToken)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)

	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)
	invalidating := mw.CacheInvalidate(cacheStore)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.POST("/login", handler.Login)

		// Fleet reads: any recognized operator. The response cache sits
		// behind the auth gate so classification stays per-request.
		api.GET("/machines",
			mw.Require(classifier, auth.ReadFleet, "Invalid token"), caching, handler.ListMachines)
		api.GET("/machines/:id/comments",
			mw.Require(classifier, auth.ReadFleet, "Invalid token"), handler.GetComments)
		api.GET("/machines/:id/history",
			mw.Require(classifier, auth.ReadFleet, "Invalid token"), handler.GetHistory)

		// Record management: admin only. Machine writes feed the cached
		// fleet list, so they flush it.
		api.POST("/machines",
			mw.Require(classifier, auth.AdminOnly, "Admin access required"), invalidating, handler.CreateMachine)
		api.PUT("/machines/:id",
			mw.Require(classifier, auth.AdminOnly, "Admin access required"), invalidating, handler.UpdateMachine)
		api.GET("/users",
			mw.Require(classifier, auth.AdminOnly, "Admin access required"), handler.ListUsers)
		api.POST("/users",
			mw.Require(classifier, auth.AdminOnly, "Admin access required"), handler.CreateUser)
		api.PUT("/users/:id",
			mw.Require(classifier, auth.AdminOnly, "Admin access required"), handler.UpdateUser)

		// Telemetry ingestion: machine API keys only.
		api.POST("/machines/update",
			mw.Require(classifier, auth.WriteTelemetry, "Invalid machine API key"), invalidating, handler.ReportSpeed)

		// Comments: any recognized operator.
		api.POST("/machines/:id/comments",
			mw.Require(classifier, auth.WriteComment, "Invalid token"), handler.AddComment)

		// Push subscription management.
		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	return r
}

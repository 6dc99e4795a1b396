package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/oplens/stockcast/internal/api/handlers"
	"github.com/oplens/stockcast/internal/database"
	"github.com/oplens/stockcast/internal/telemetry"
)

// HealthResponse reports the overall service status and the status of
// each dependency.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Services  Services  `json:"services"`
}

// Services holds the per-dependency health status ("up" or "down").
type Services struct {
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

// SetupRoutes registers the health endpoints and the v1 demand API.
func SetupRoutes(router *gin.Engine, db *database.PostgresDB, redis *database.RedisClient, demandHandler *handlers.DemandHandler) {
	router.GET("/health", healthCheck(db, redis))
	router.HEAD("/health", healthCheck(db, redis))

	v1 := router.Group("/api/v1")
	v1.Use(otelgin.Middleware(telemetry.ServiceName))
	{
		demand := v1.Group("/demand")
		{
			demand.POST("/series", demandHandler.GetSeries)
			demand.POST("/export", demandHandler.ExportSeries)
			demand.GET("/defaults", demandHandler.GetDefaults)
		}
	}
}

func healthCheck(db *database.PostgresDB, redis *database.RedisClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		resp := HealthResponse{
			Status:    "ok",
			Timestamp: time.Now().UTC(),
			Version:   telemetry.ServiceVersion,
			Services:  Services{Database: "up", Redis: "up"},
		}

		if db == nil || db.HealthCheck(ctx) != nil {
			resp.Services.Database = "down"
			resp.Status = "degraded"
		}
		if redis == nil || redis.HealthCheck(ctx) != nil {
			resp.Services.Redis = "down"
			resp.Status = "degraded"
		}

		status := http.StatusOK
		if resp.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, resp)
	}
}

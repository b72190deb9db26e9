package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/Samoxive/modbot/internal/http/handler"
	"github.com/Samoxive/modbot/internal/http/middleware"
)

type RouterConfig struct {
	ServiceName  string // enables otelgin tracing when set
	IsProduction bool
	Readiness    handler.ReadinessChecker
	Metrics      http.Handler
}

// New builds the admin engine: health probes and the Prometheus endpoint.
func New(cfg RouterConfig) *gin.Engine {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.ServiceName != "" {
		router.Use(otelgin.Middleware(cfg.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger("/health", "/ready", "/metrics"))

	SetupRoutes(router, cfg)
	return router
}

func SetupRoutes(router *gin.Engine, cfg RouterConfig) {
	healthHandler := handler.NewHealthHandler(cfg.Readiness)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics))
	}
}

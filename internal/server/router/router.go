package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mamadbah2/ranch/internal/server/handlers"
)

// New wires the Gin engine with required routes and middlewares. Metrics are
// served from gatherer when it is not nil.
func New(sales *handlers.SalesHandler, health *handlers.HealthHandler, gatherer prometheus.Gatherer, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", health.Check)
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")

	lots := api.Group("/lotes")
	lots.POST("", sales.RegisterLot)
	lots.GET("/disponibles", sales.AvailableLots)

	ventas := api.Group("/ventas")
	ventas.POST("", sales.Schedule)
	ventas.GET("", sales.List)
	ventas.GET("/completadas", sales.ListCompleted)
	ventas.POST("/completadas/exportar", sales.ExportCompleted)
	ventas.GET("/:id", sales.Get)
	ventas.PUT("/:id", sales.Amend)
	ventas.DELETE("/:id", sales.Cancel)
	ventas.DELETE("/:id/completada", sales.UndoCompleted)

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if user := c.GetHeader("X-User-ID"); user != "" {
			fields = append(fields, zap.String("user_id", user))
		}

		switch {
		case c.Writer.Status() >= 500:
			logger.Error("request completed", fields...)
		case c.Writer.Status() >= 400:
			logger.Warn("request completed", fields...)
		default:
			logger.Info("request completed", fields...)
		}
	}
}

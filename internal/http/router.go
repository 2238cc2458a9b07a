package http

import (
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter creates and configures the Gin router. The metrics registry
// may be nil, in which case /metrics is not exposed.
func SetupRouter(handler *Handler, metrics *prometheus.Registry) *gin.Engine {
	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
	if allowedOrigins != "" {
		corsConfig.AllowOrigins = strings.Split(allowedOrigins, ",")
	} else {
		corsConfig.AllowAllOrigins = true
	}
	router.Use(cors.New(corsConfig))

	v1 := router.Group("/v1")
	retrievals := v1.Group("/retrievals")
	retrievals.POST("", handler.CreateRetrieval)
	retrievals.GET("", handler.ListRetrievals)

	router.GET("/health", handler.HealthCheck)
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics, promhttp.HandlerOpts{})))
	}
	return router
}

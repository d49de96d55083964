package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sentri/retail-security/internal/application"
	"github.com/sentri/retail-security/internal/ports"
	"go.uber.org/zap"
)

// maxBodyBytes caps request bodies (1 MB).
const maxBodyBytes = 1 << 20

// RouterConfig holds the transport settings of the HTTP API.
type RouterConfig struct {
	CORSOrigins  []string
	RateLimitRPS int

	// MailReader enables POST /api/v1/scans/eml when set
	MailReader ports.MailReader
}

// NewRouter builds the gin engine serving /healthz, /metrics and /api/v1.
// Background work started for the router stops when ctx is done.
func NewRouter(ctx context.Context, cfg RouterConfig, scans *application.ScanService, chat *application.ChatService, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		// cors panics on an empty origin list
		origins = []string{"*"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", RequestIDHeader},
		AllowCredentials: !containsWildcard(origins),
		MaxAge:           12 * time.Hour,
	}))

	router.Use(securityHeaders())
	router.Use(bodyLimit(maxBodyBytes))

	if cfg.RateLimitRPS > 0 {
		router.Use(RateLimiter(ctx, cfg.RateLimitRPS, cfg.RateLimitRPS*2))
	}

	router.Use(RequestID())
	router.Use(PrometheusMiddleware())
	router.Use(RequestLogger(logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", MetricsHandler())

	v1 := router.Group("/api/v1")
	scanHandler := NewScanHandler(scans, chat, logger)
	if cfg.MailReader != nil {
		scanHandler.SetMailReader(cfg.MailReader)
	}
	scanHandler.Register(v1)
	NewChatHandler(chat, logger).Register(v1)

	return router
}

// containsWildcard returns true if origins includes "*".
func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}

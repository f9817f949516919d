package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"poppang-auth/internal/domain"
)

const requestIDHeader = "X-Request-ID"

var providers = []domain.Provider{domain.ProviderApple, domain.ProviderGoogle, domain.ProviderKakao}

// NewRouter configura el router de Gin con middlewares y rutas base.
// metricsHandler puede ser nil.
func NewRouter(
	logger *zap.Logger,
	authH *AuthHandler,
	userH *UserHandler,
	metricsHandler http.Handler,
) *gin.Engine {
	r := gin.New()

	r.Use(requestIDMiddleware(), zapLoggerMiddleware(logger), gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(metricsHandler))
	}

	api := r.Group("/api/v1", jsonContentTypeMiddleware())

	auth := api.Group("/auth")
	for _, p := range providers {
		name := p.Lower()
		auth.GET("/"+name+"/login", authH.WebLogin(p))
		auth.POST("/"+name+"/mobile/login", authH.MobileLogin(p))
		auth.POST("/"+name+"/signup", authH.Signup(p))
	}
	auth.POST("/autoLogin", authH.AutoLogin)

	api.GET("/user/nickname/duplicated", userH.NicknameDuplicated)

	return r
}

// requestIDMiddleware propaga X-Request-ID o genera uno nuevo.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(requestIDHeader, id)
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("request_id", c.GetString(requestIDHeader)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}

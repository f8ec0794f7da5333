package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	authservice "github.com/papertrade/funds/internal/application/auth"
)

type Middleware struct {
	AuthSvc authservice.IAuthService
	logger  zerolog.Logger
}

func NewMiddleware(AuthSvc authservice.IAuthService, logger zerolog.Logger) *Middleware {
	return &Middleware{
		logger:  logger,
		AuthSvc: AuthSvc,
	}
}

func (m *Middleware) SetupMiddleware(router *gin.Engine) {
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, Idempotency-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	router.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		log.Info().
			Str("method", param.Method).
			Str("path", param.Path).
			Int("status", param.StatusCode).
			Dur("latency", param.Latency).
			Str("client_ip", param.ClientIP).
			Msg("HTTP Request")
		return ""
	}))

	router.Use(gin.Recovery())

	router.Use(func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Next()
	})
}

// AuthMiddleware resolves the caller to an account through a verified bearer
// token. The websocket endpoint passes the token as a query parameter since
// browsers cannot set headers on websocket upgrades.
func (m *Middleware) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenString string

		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.JSON(http.StatusUnauthorized, gin.H{
					"message": "Invalid Authorization header format, expected 'Bearer <token>'",
				})
				c.Abort()
				return
			}
			tokenString = parts[1]
		} else {
			tokenString = c.Query("token")
			if tokenString == "" {
				c.JSON(http.StatusUnauthorized, gin.H{
					"message": "Authorization token required",
				})
				c.Abort()
				return
			}
		}

		claims, err := m.AuthSvc.VerifyToken(c.Request.Context(), tokenString)
		if err != nil {
			m.logger.Warn().Err(err).Msg("Token verification failed")
			c.JSON(http.StatusUnauthorized, gin.H{
				"message": "Invalid or expired token",
			})
			c.Abort()
			return
		}

		c.Set("account_id", claims.UserID.String())
		c.Set("claims", claims)

		c.Next()
	}
}

package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"order-service/internal/session"
	"order-service/pkg/jwtutil"
	"order-service/pkg/logger"
	"order-service/prometheus"
)

// TokenValidator checks a bearer token and returns its claims
type TokenValidator interface {
	ValidateToken(tokenString string) (*jwtutil.UserClaims, error)
}

// Auth validates the JWT token and attaches the caller's session. Tokens
// without a tenant are refused: every order, product and customer belongs to one.
func Auth(validator TokenValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromEcho(c)
			recordAuthAttempt()

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				log.Warn("Missing Authorization header")
				return unauthorized(c, http.StatusUnauthorized, "missing authorization token")
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				log.Warn("Invalid Authorization header format")
				return unauthorized(c, http.StatusUnauthorized, "invalid authorization format, expected Bearer token")
			}

			claims, err := validator.ValidateToken(parts[1])
			if err != nil {
				log.Warn("Invalid JWT token", zap.Error(err))
				return unauthorized(c, http.StatusUnauthorized, "invalid or expired token")
			}

			if claims.TenantID == nil || *claims.TenantID == 0 {
				log.Warn("JWT token does not contain tenant_id", zap.Uint("user_id", claims.UserID))
				return unauthorized(c, http.StatusForbidden, "tenant_id is required in the token")
			}

			sess := session.Session{
				UserID:   claims.UserID,
				TenantID: *claims.TenantID,
				Email:    claims.Email,
				Role:     claims.Role,
			}
			session.Attach(c, sess)

			reqLog := log.With(zap.Uint("tenant_id", sess.TenantID), zap.Uint("user_id", sess.UserID))
			c.Set(logger.EchoKey, reqLog)
			c.SetRequest(c.Request().WithContext(logger.WithContext(c.Request().Context(), reqLog)))
			reqLog.Debug("Request authenticated", zap.String("role", sess.Role))

			return next(c)
		}
	}
}

func unauthorized(c echo.Context, status int, message string) error {
	if prometheus.AuthErrorsCounter != nil {
		prometheus.AuthErrorsCounter.Inc()
	}
	return c.JSON(status, echo.Map{"success": false, "error": message, "code": "unauthorized"})
}

func recordAuthAttempt() {
	if prometheus.AuthAttemptsCounter != nil {
		prometheus.AuthAttemptsCounter.Inc()
	}
}

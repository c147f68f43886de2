package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/townsquare/internal/common"
	"github.com/dmitrijs2005/townsquare/internal/logging"
)

const (
	userIDKey       = "user_id"
	requestIDKey    = "request_id"
	RequestIDHeader = "X-Request-ID"
)

// Validator resolves a session token to its owning user id. Both
// services.AuthService and sessionclient.Client satisfy it.
type Validator interface {
	Validate(ctx context.Context, token string) (string, error)
}

// RequireSession rejects requests without a valid session token and stores
// the owning user id for UserID.
func RequireSession(v Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader(common.SessionTokenHeaderName))
		if token == "" {
			respondError(c, http.StatusUnauthorized, common.ErrorInvalidSession.Error())
			return
		}

		userID, err := v.Validate(c.Request.Context(), token)
		if err != nil {
			code, msg := statusFor(err)
			respondError(c, code, msg)
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// UserID returns the id stored by RequireSession.
func UserID(c *gin.Context) (string, bool) {
	id := c.GetString(userIDKey)
	return id, id != ""
}

// RequestID reuses an incoming X-Request-ID or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// HTTPObserver records request metrics. *metrics.Metrics satisfies it.
type HTTPObserver interface {
	ObserveHTTP(method, route string, status int, elapsed time.Duration)
}

// AccessLog logs each request once it completes and feeds the observer when
// one is given.
func AccessLog(log logging.Logger, obs HTTPObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		if obs != nil {
			obs.ObserveHTTP(c.Request.Method, route, c.Writer.Status(), elapsed)
		}

		log.Info(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"route", route,
			"status", c.Writer.Status(),
			"duration", elapsed,
			"request_id", c.GetString(requestIDKey),
		)
	}
}

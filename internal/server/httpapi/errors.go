package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/townsquare/internal/common"
)

// statusFor maps a service error to its HTTP status and the message shown to
// the client. Validation, conflict and forbidden errors carry their own
// message; everything else gets a fixed one.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrorValidation), errors.Is(err, common.ErrorConflict):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized, common.ErrorUnauthorized.Error()
	case errors.Is(err, common.ErrorInvalidSession):
		return http.StatusUnauthorized, common.ErrorInvalidSession.Error()
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, common.ErrorNotFound.Error()
	case errors.Is(err, common.ErrorTooManyAttempts):
		return http.StatusTooManyRequests, common.ErrorTooManyAttempts.Error()
	default:
		return http.StatusInternalServerError, common.ErrorInternal.Error()
	}
}

func outcomeFor(code int) string {
	switch code {
	case http.StatusBadRequest:
		return "rejected"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusTooManyRequests:
		return "throttled"
	default:
		return "error"
	}
}

func respondError(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(code, gin.H{"error": msg})
}

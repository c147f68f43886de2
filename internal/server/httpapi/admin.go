package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/townsquare/internal/common"
	"github.com/dmitrijs2005/townsquare/internal/logging"
	"github.com/dmitrijs2005/townsquare/internal/server/auth"
	"github.com/dmitrijs2005/townsquare/internal/server/models"
)

const adminIDKey = "admin_id"

// AdminService is the moderation surface reachable with an admin token.
type AdminService interface {
	ListSessions(ctx context.Context, userID string) ([]*models.Session, error)
	Suspend(ctx context.Context, userID string) (int, error)
}

// RequireAdmin accepts "Authorization: Bearer <token>" where the token was
// issued by admin_validate and still carries the admin role.
func RequireAdmin(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			respondError(c, http.StatusUnauthorized, "missing admin token")
			return
		}

		claims, err := auth.ParseAdminToken(strings.TrimSpace(token), secret)
		if err != nil {
			if errors.Is(err, common.ErrTokenExpired) {
				respondError(c, http.StatusUnauthorized, "admin token expired")
				return
			}
			respondError(c, http.StatusUnauthorized, "invalid admin token")
			return
		}
		if !claims.HasRole(common.RoleAdmin) {
			respondError(c, http.StatusForbidden, "admin role required")
			return
		}

		c.Set(adminIDKey, claims.UserID)
		c.Next()
	}
}

// SessionView is a session as shown to admins. The token itself is never
// returned.
type SessionView struct {
	ID        string    `json:"id"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type AdminHandler struct {
	svc AdminService
	now func() time.Time
	log logging.Logger
}

func NewAdminHandler(svc AdminService, log logging.Logger) *AdminHandler {
	return &AdminHandler{svc: svc, now: time.Now, log: log.With("module", "httpapi.admin")}
}

// Sessions serves GET /api/v1/admin/users/:id/sessions.
func (h *AdminHandler) Sessions(c *gin.Context) {
	list, err := h.svc.ListSessions(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}

	now := h.now()
	views := make([]SessionView, 0, len(list))
	for _, s := range list {
		views = append(views, SessionView{
			ID:        s.ID,
			State:     string(s.State(now)),
			CreatedAt: s.CreatedAt,
			ExpiresAt: s.ExpiresAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"sessions": views})
}

// Suspend serves POST /api/v1/admin/users/:id/suspend.
func (h *AdminHandler) Suspend(c *gin.Context) {
	userID := c.Param("id")
	n, err := h.svc.Suspend(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.log.Info(c.Request.Context(), "user suspended by admin", "admin_id", c.GetString(adminIDKey), "user_id", userID)
	c.JSON(http.StatusOK, gin.H{"ended_sessions": n})
}

func (h *AdminHandler) fail(c *gin.Context, err error) {
	code, msg := statusFor(err)
	if code == http.StatusInternalServerError && !errors.Is(err, common.ErrorInternal) {
		h.log.Error(c.Request.Context(), "admin request failed", "error", err)
	}
	respondError(c, code, msg)
}

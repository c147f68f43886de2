// Package httpapi exposes the auth service over a gin JSON API: one action
// endpoint plus REST aliases for each action.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/townsquare/internal/common"
	"github.com/dmitrijs2005/townsquare/internal/logging"
	"github.com/dmitrijs2005/townsquare/internal/server/services"
)

// Actions accepted by the action endpoint.
const (
	ActionSignup          = "signup"
	ActionSignin          = "signin"
	ActionValidateSession = "validate_session"
	ActionRefresh         = "refresh"
	ActionLogout          = "logout"
	ActionAdminValidate   = "admin_validate"
)

// AuthService is what the handlers need from services.AuthService.
type AuthService interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.AuthResult, error)
	Authenticate(ctx context.Context, mobileNumber, password string) (*services.AuthResult, error)
	Validate(ctx context.Context, token string) (string, error)
	Refresh(ctx context.Context, token string) (bool, error)
	Logout(ctx context.Context, token string) (bool, error)
	AdminValidate(ctx context.Context, token string) (*services.AdminResult, error)
}

type AvatarService interface {
	UploadURL(ctx context.Context, userID string) (*services.AvatarUpload, error)
}

// Recorder counts auth outcomes. *metrics.Metrics satisfies it.
type Recorder interface {
	AuthOutcome(action, outcome string)
}

// AuthRequest is the body of every auth call. Only the fields the action
// needs are read.
type AuthRequest struct {
	Action       string `json:"action"`
	MobileNumber string `json:"mobile_number"`
	Password     string `json:"password"`
	FullName     string `json:"full_name"`
	Username     string `json:"username"`
	SessionToken string `json:"session_token"`
}

// SignupUser is the reduced user returned by signup.
type SignupUser struct {
	ID           string `json:"id"`
	MobileNumber string `json:"mobile_number"`
	FullName     string `json:"full_name"`
	Username     string `json:"username"`
}

type AuthHandler struct {
	auth    AuthService
	avatars AvatarService
	rec     Recorder
	log     logging.Logger
}

func NewAuthHandler(auth AuthService, avatars AvatarService, rec Recorder, log logging.Logger) *AuthHandler {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &AuthHandler{auth: auth, avatars: avatars, rec: rec, log: log.With("module", "httpapi")}
}

// Dispatch serves POST /api/v1/auth, routing on the "action" field.
func (h *AuthHandler) Dispatch(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}

	switch req.Action {
	case ActionSignup:
		h.signup(c, req)
	case ActionSignin:
		h.signin(c, req)
	case ActionValidateSession:
		h.validate(c, req)
	case ActionRefresh:
		h.refresh(c, req)
	case ActionLogout:
		h.logout(c, req)
	case ActionAdminValidate:
		h.adminValidate(c, req)
	default:
		respondError(c, http.StatusBadRequest, "unknown action")
	}
}

func (h *AuthHandler) Signup(c *gin.Context) {
	if req, ok := h.bind(c); ok {
		h.signup(c, req)
	}
}

func (h *AuthHandler) Signin(c *gin.Context) {
	if req, ok := h.bind(c); ok {
		h.signin(c, req)
	}
}

// ValidateSession serves GET /api/v1/auth/session. The token comes from the
// session header only.
func (h *AuthHandler) ValidateSession(c *gin.Context) {
	h.validate(c, AuthRequest{})
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	if req, ok := h.bind(c); ok {
		h.refresh(c, req)
	}
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if req, ok := h.bind(c); ok {
		h.logout(c, req)
	}
}

func (h *AuthHandler) AdminValidate(c *gin.Context) {
	if req, ok := h.bind(c); ok {
		h.adminValidate(c, req)
	}
}

// AvatarUploadURL serves POST /api/v1/profile/avatar. It must run behind
// RequireSession.
func (h *AuthHandler) AvatarUploadURL(c *gin.Context) {
	userID, ok := UserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, common.ErrorInvalidSession.Error())
		return
	}

	upload, err := h.avatars.UploadURL(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, "avatar_upload_url", err)
		return
	}
	h.rec.AuthOutcome("avatar_upload_url", "ok")
	c.JSON(http.StatusOK, upload)
}

func (h *AuthHandler) signup(c *gin.Context, req AuthRequest) {
	res, err := h.auth.Register(c.Request.Context(), services.RegisterInput{
		MobileNumber: req.MobileNumber,
		Password:     req.Password,
		FullName:     req.FullName,
		Username:     req.Username,
	})
	if err != nil {
		h.fail(c, ActionSignup, err)
		return
	}

	h.rec.AuthOutcome(ActionSignup, "ok")
	c.JSON(http.StatusOK, gin.H{
		"user": SignupUser{
			ID:           res.User.ID,
			MobileNumber: res.User.MobileNumber,
			FullName:     res.User.FullName,
			Username:     res.User.Username,
		},
		"session_token": res.SessionToken,
	})
}

func (h *AuthHandler) signin(c *gin.Context, req AuthRequest) {
	res, err := h.auth.Authenticate(c.Request.Context(), strings.TrimSpace(req.MobileNumber), req.Password)
	if err != nil {
		h.fail(c, ActionSignin, err)
		return
	}

	h.rec.AuthOutcome(ActionSignin, "ok")
	c.JSON(http.StatusOK, gin.H{"user": res.User, "session_token": res.SessionToken})
}

func (h *AuthHandler) validate(c *gin.Context, req AuthRequest) {
	userID, err := h.auth.Validate(c.Request.Context(), sessionToken(c, req))
	if err != nil {
		h.fail(c, ActionValidateSession, err)
		return
	}

	h.rec.AuthOutcome(ActionValidateSession, "ok")
	c.JSON(http.StatusOK, gin.H{"valid": true, "user_id": userID})
}

func (h *AuthHandler) refresh(c *gin.Context, req AuthRequest) {
	ok, err := h.auth.Refresh(c.Request.Context(), sessionToken(c, req))
	if err != nil {
		h.fail(c, ActionRefresh, err)
		return
	}

	h.rec.AuthOutcome(ActionRefresh, outcomeOf(ok))
	c.JSON(http.StatusOK, gin.H{"refreshed": ok})
}

func (h *AuthHandler) logout(c *gin.Context, req AuthRequest) {
	ok, err := h.auth.Logout(c.Request.Context(), sessionToken(c, req))
	if err != nil {
		h.fail(c, ActionLogout, err)
		return
	}

	h.rec.AuthOutcome(ActionLogout, outcomeOf(ok))
	c.JSON(http.StatusOK, gin.H{"logged_out": ok})
}

func (h *AuthHandler) adminValidate(c *gin.Context, req AuthRequest) {
	res, err := h.auth.AdminValidate(c.Request.Context(), sessionToken(c, req))
	if err != nil {
		h.fail(c, ActionAdminValidate, err)
		return
	}

	h.rec.AuthOutcome(ActionAdminValidate, "ok")
	c.JSON(http.StatusOK, gin.H{"roles": res.Roles, "user": res.User, "admin_token": res.AdminToken})
}

// bind decodes the JSON body. An empty body is treated as an empty request.
func (h *AuthHandler) bind(c *gin.Context) (AuthRequest, bool) {
	var req AuthRequest
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return req, true
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	return req, true
}

func (h *AuthHandler) fail(c *gin.Context, action string, err error) {
	code, msg := statusFor(err)
	h.rec.AuthOutcome(action, outcomeFor(code))
	if code == http.StatusInternalServerError && !errors.Is(err, common.ErrorInternal) {
		h.log.Error(c.Request.Context(), "request failed", "action", action, "error", err)
	}
	respondError(c, code, msg)
}

// sessionToken prefers the session header over the body field.
func sessionToken(c *gin.Context, req AuthRequest) string {
	if tok := strings.TrimSpace(c.GetHeader(common.SessionTokenHeaderName)); tok != "" {
		return tok
	}
	return strings.TrimSpace(req.SessionToken)
}

func outcomeOf(ok bool) string {
	if ok {
		return "ok"
	}
	return "noop"
}

type nopRecorder struct{}

func (nopRecorder) AuthOutcome(string, string) {}

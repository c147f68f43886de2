package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Setup registers every route on router.
func Setup(router *gin.Engine, auth *AuthHandler, health *HealthHandler, validator Validator, metricsHandler http.Handler) {
	router.GET("/health", health.Check)
	if metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}

	v1 := router.Group("/api/v1")

	authGroup := v1.Group("/auth")
	{
		authGroup.POST("", auth.Dispatch)
		authGroup.POST("/signup", auth.Signup)
		authGroup.POST("/signin", auth.Signin)
		authGroup.GET("/session", auth.ValidateSession)
		authGroup.POST("/refresh", auth.Refresh)
		authGroup.POST("/logout", auth.Logout)
		authGroup.POST("/admin/validate", auth.AdminValidate)
	}

	profile := v1.Group("/profile", RequireSession(validator))
	{
		profile.POST("/avatar", auth.AvatarUploadURL)
	}
}

// SetupAdmin registers the moderation routes behind RequireAdmin.
func SetupAdmin(router *gin.Engine, admin *AdminHandler, secret []byte) {
	group := router.Group("/api/v1/admin", RequireAdmin(secret))
	{
		group.GET("/users/:id/sessions", admin.Sessions)
		group.POST("/users/:id/suspend", admin.Suspend)
	}
}

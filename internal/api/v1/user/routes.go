package user

import "github.com/gin-gonic/gin"

func RegisterRoutes(r *gin.RouterGroup) {
	// Mounted behind the auth middleware. The topup return page polls this
	// endpoint, so the balance it reports has to be fresh.
	auth := r.Group("/auth")
	auth.GET("/user", CurrentUser)
}

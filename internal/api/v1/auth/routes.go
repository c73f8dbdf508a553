package auth

import (
	"github.com/PalmTamino/Xboard/internal/middleware"
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.RouterGroup) {
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/login", Login)
		// Logout runs behind the auth middleware so it always sees a
		// well-formed bearer token to denylist.
		authGroup.POST("/logout", middleware.AuthMiddleware(), Logout)
	}
}

package user

import "github.com/gin-gonic/gin"

func RegisterRoutes(r *gin.RouterGroup) {
	userGroup := r.Group("/users")
	{
		userGroup.GET("", ListUsers)
		// Balance changes go through the audited adjustment path only.
		userGroup.POST("/:id/balance", AdjustBalance)
	}
}

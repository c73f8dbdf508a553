package order

import "github.com/gin-gonic/gin"

func RegisterRoutes(r *gin.RouterGroup) {
	h := NewHandler()

	orderGroup := r.Group("/orders")
	{
		orderGroup.GET("", h.ListOrders)
		orderGroup.GET("/:trade_no", h.GetOrder)
		orderGroup.POST("", h.CreateOrder)
		orderGroup.POST("/:trade_no/complete", h.CompleteOrder)
		orderGroup.POST("/:trade_no/cancel", h.CancelOrder)
	}
}

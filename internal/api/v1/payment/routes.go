package payment

import (
	"github.com/PalmTamino/Xboard/internal/middleware"
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.RouterGroup) {
	h := NewHandler()

	// Public notify routes. The gateway method always rides in the path;
	// the channel UUID is optional for URLs configured without one.
	// /api/v1/payment/notify/:method
	// /api/v1/payment/notify/:method/:uuid
	r.Any("/payment/notify/:method", h.Notify)
	r.Any("/payment/notify/:method/:uuid", h.Notify)

	// Protected payment routes
	auth := r.Group("/payment")
	auth.Use(middleware.AuthMiddleware())
	{
		auth.GET("/methods", h.GetPaymentMethods)
		auth.POST("/create", h.CreatePayment)
	}
}

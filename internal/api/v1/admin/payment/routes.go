package payment

import "github.com/gin-gonic/gin"

func RegisterRoutes(r *gin.RouterGroup) {
	h := NewHandler()

	paymentGroup := r.Group("/payment")
	{
		paymentGroup.GET("/methods", h.ListPaymentMethods)
		paymentGroup.GET("/config", h.ListPaymentChannels)
		paymentGroup.POST("/config", h.CreatePaymentChannel)
		paymentGroup.PUT("/config/:id", h.UpdatePaymentChannel)
		paymentGroup.DELETE("/config/:id", h.DeletePaymentChannel)
		paymentGroup.GET("/callbacks", h.ListCallbacks)
	}
}

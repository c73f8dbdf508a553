package transaction

import "github.com/gin-gonic/gin"

func RegisterRoutes(r *gin.RouterGroup) {
	txGroup := r.Group("/transactions")
	{
		txGroup.GET("", ListTransactions)
		txGroup.GET("/export", ExportTransactions)
		txGroup.GET("/:id/verify", VerifyTransaction)
	}
}

package api

import (
	"github.com/PalmTamino/Xboard/config"
	adminOrder "github.com/PalmTamino/Xboard/internal/api/v1/admin/order"
	adminPayment "github.com/PalmTamino/Xboard/internal/api/v1/admin/payment"
	adminTransaction "github.com/PalmTamino/Xboard/internal/api/v1/admin/transaction"
	adminUser "github.com/PalmTamino/Xboard/internal/api/v1/admin/user"
	"github.com/PalmTamino/Xboard/internal/api/v1/auth"
	"github.com/PalmTamino/Xboard/internal/api/v1/payment"
	userRoutes "github.com/PalmTamino/Xboard/internal/api/v1/user"
	"github.com/PalmTamino/Xboard/internal/database"
	"github.com/PalmTamino/Xboard/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func NewRouter() (*gin.Engine, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	_, err = database.Connect(cfg.DSN())
	if err != nil {
		return nil, err
	}

	err = database.ConnectRedis(cfg)
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(middleware.Logger(), gin.Recovery())

	// Configure CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://localhost:8080"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum age for preflight requests
	}))

	// API v1
	v1 := router.Group("/api/v1")
	{
		auth.RegisterRoutes(v1)

		// Gateway callbacks plus the authenticated topup surface
		payment.RegisterRoutes(v1)

		authorized := v1.Group("/")
		authorized.Use(middleware.AuthMiddleware())
		{
			userRoutes.RegisterRoutes(authorized)
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AdminAuthMiddleware())
		{
			adminUser.RegisterRoutes(admin)
			adminOrder.RegisterRoutes(admin)
			adminPayment.RegisterRoutes(admin)
			adminTransaction.RegisterRoutes(admin)
		}
	}

	return router, nil
}

package routes

import (
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"coffret_back_end/internal/handlers"
	"coffret_back_end/internal/middleware"
)

func RegisterRoutes(r *gin.Engine) {
	r.Use(corsConfig())
	r.Use(middleware.APIRateLimit())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	// Panier (Redis, identité requise)
	cart := api.Group("/cart", middleware.RequireUser())
	{
		cart.GET("", handlers.GetCart)
		cart.POST("/add", middleware.CartRateLimit(), handlers.AddToCart)
		cart.POST("/check", handlers.CheckCart)
		cart.DELETE("", handlers.ClearCart)
	}

	// Checkout
	checkout := api.Group("/checkout", middleware.RequireUser(), middleware.CheckoutRateLimit())
	{
		checkout.POST("", handlers.Checkout)
	}

	// Commandes
	orders := api.Group("/orders", middleware.RequireUser())
	{
		orders.GET("/my", handlers.GetMyOrders)
		orders.GET("/:id", handlers.GetOrderByID)
	}

	// Coupons
	coupons := api.Group("/coupons")
	{
		coupons.GET("/validate", middleware.RequireUser(), handlers.ValidateCouponDetailed)

		admin := coupons.Group("", middleware.RequireUser(), middleware.RequireAdmin())
		{
			admin.POST("", handlers.CreateCoupon)
			admin.GET("", handlers.GetAllCoupons)
			admin.PATCH("/:id", handlers.UpdateCoupon)
			admin.DELETE("/:id", handlers.DeleteCoupon)
		}
	}

	// Inventaire
	inventoryGroup := api.Group("/inventory")
	{
		inventoryGroup.POST("/check", handlers.CheckAvailability)

		admin := inventoryGroup.Group("", middleware.RequireUser(), middleware.RequireAdmin())
		{
			admin.PUT("/stock/:id", handlers.UpdateStock)
			admin.GET("/movements", handlers.GetStockMovements)
			admin.GET("/low-stock", handlers.GetLowStockProducts)
			admin.GET("/out-of-stock", handlers.GetOutOfStockProducts)
			admin.GET("/alerts", handlers.GetStockAlerts)
			admin.PATCH("/alerts/:id/resolve", handlers.ResolveStockAlert)
		}
	}
}

func corsConfig() gin.HandlerFunc {
	origins := []string{"http://localhost:3000"}
	if env := os.Getenv("CORS_ALLOWED_ORIGINS"); env != "" {
		origins = strings.Split(env, ",")
	}

	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-User-ID", "X-User-Email", "X-User-Role", "X-Idempotency-Key"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

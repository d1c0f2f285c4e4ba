package router

import (
	"github.com/gin-gonic/gin"
	"github.com/mduc/storefront-backend/config"
	"github.com/mduc/storefront-backend/internal/app/controller"
	"github.com/mduc/storefront-backend/internal/middleware"
)

type Router struct {
	authController      *controller.AuthController
	productController   *controller.ProductController
	orderController     *controller.OrderController
	promotionController *controller.PromotionController
	uploadController    *controller.UploadController
	authMiddleware      *middleware.AuthMiddleware
	config              *config.Config
}

func NewRouter(
	authController *controller.AuthController,
	productController *controller.ProductController,
	orderController *controller.OrderController,
	promotionController *controller.PromotionController,
	uploadController *controller.UploadController,
	authMiddleware *middleware.AuthMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		authController:      authController,
		productController:   productController,
		orderController:     orderController,
		promotionController: promotionController,
		uploadController:    uploadController,
		authMiddleware:      authMiddleware,
		config:              cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"message": "Storefront API is running",
		})
	})

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", r.authController.Register)
			auth.POST("/login", r.authController.Login)
			auth.POST("/logout", r.authMiddleware.Authenticate(), r.authController.Logout)
			auth.GET("/me", r.authMiddleware.Authenticate(), r.authController.GetProfile)
			auth.PUT("/me", r.authMiddleware.Authenticate(), r.authController.UpdateProfile)
		}

		products := v1.Group("/products")
		{
			products.GET("", r.productController.GetProducts)
			products.GET("/:id", r.productController.GetProductByID)
		}

		orders := v1.Group("/orders")
		{
			// Public guest surface: the order code is the credential.
			orders.POST("/guest", r.orderController.CreateGuestOrder)
			orders.GET("/track/:code", r.orderController.TrackByCode)

			orders.GET("", r.authMiddleware.Authenticate(), r.orderController.GetOrders)
			orders.GET("/my-cart", r.authMiddleware.Authenticate(), r.orderController.GetMyCart)

			// Item and lifecycle operations serve both owners and
			// guests holding an ownerless order ID; the service layer
			// decides who may act.
			orders.GET("/:id", r.authMiddleware.OptionalAuthenticate(), r.orderController.GetOrderByID)
			orders.POST("/:id/items", r.authMiddleware.OptionalAuthenticate(), r.orderController.UpsertItem)
			orders.DELETE("/:id/items/:productId", r.authMiddleware.OptionalAuthenticate(), r.orderController.RemoveItem)
			orders.POST("/:id/checkout", r.authMiddleware.OptionalAuthenticate(), r.orderController.Checkout)
			orders.POST("/:id/pay", r.authMiddleware.OptionalAuthenticate(), r.orderController.Pay)
		}

		promotions := v1.Group("/promotions")
		{
			promotions.POST("/validate",
				r.authMiddleware.OptionalAuthenticate(),
				r.promotionController.ValidatePromotion,
			)
		}

		admin := v1.Group("/admin")
		admin.Use(r.authMiddleware.Authenticate())
		{
			adminOrders := admin.Group("/orders")
			adminOrders.Use(r.authMiddleware.RequireRole("staff", "admin"))
			{
				adminOrders.GET("", r.orderController.ListOrders)
				adminOrders.PATCH("/:id/status", r.orderController.UpdateStatus)
			}

			adminProducts := admin.Group("/products")
			adminProducts.Use(r.authMiddleware.RequireRole("admin"))
			{
				adminProducts.POST("", r.productController.CreateProduct)
				adminProducts.PUT("/:id", r.productController.UpdateProduct)
				adminProducts.DELETE("/:id", r.productController.DeleteProduct)
			}

			adminPromotions := admin.Group("/promotions")
			adminPromotions.Use(r.authMiddleware.RequireRole("admin"))
			{
				adminPromotions.GET("", r.promotionController.GetPromotions)
				adminPromotions.POST("", r.promotionController.CreatePromotion)
				adminPromotions.PUT("/:id", r.promotionController.UpdatePromotion)
				adminPromotions.DELETE("/:id", r.promotionController.DeactivatePromotion)
			}

			adminUploads := admin.Group("/uploads")
			adminUploads.Use(r.authMiddleware.RequireRole("admin"))
			{
				adminUploads.POST("/presigned-url", r.uploadController.GeneratePresignedURL)
			}
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

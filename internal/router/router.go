package router

import (
	"github.com/gin-gonic/gin"

	"github.com/hmlee/shopcart-backend/config"
	"github.com/hmlee/shopcart-backend/internal/app/controller"
	"github.com/hmlee/shopcart-backend/internal/middleware"
)

type Router struct {
	cartController    *controller.CartController
	productController *controller.ProductController
	authMiddleware    *middleware.AuthMiddleware
	config            *config.Config
}

func NewRouter(
	cartController *controller.CartController,
	productController *controller.ProductController,
	authMiddleware *middleware.AuthMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		cartController:    cartController,
		productController: productController,
		authMiddleware:    authMiddleware,
		config:            cfg,
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
			"message": "Shopcart API is running",
		})
	})

	api := router.Group("/api")
	{
		cart := api.Group("/cart")
		{
			cart.GET("/:userId", r.cartController.GetCart)
			cart.DELETE("/:userId", r.cartController.ClearCart)
			cart.POST("/:userId/items", r.cartController.AddItem)
			cart.PUT("/:userId/items/:productId", r.cartController.UpdateItemQuantity)
			cart.DELETE("/:userId/items/:productId", r.cartController.RemoveItem)
		}

		products := api.Group("/products")
		{
			products.GET("", r.productController.GetAllProducts)
			products.GET("/:id", r.productController.GetProductByID)
			products.GET("/category/:category", r.productController.GetProductsByCategory)

			products.POST("",
				r.authMiddleware.Authenticate(),
				r.authMiddleware.RequireAdmin(),
				r.productController.CreateProduct,
			)
			products.PUT("/:id",
				r.authMiddleware.Authenticate(),
				r.authMiddleware.RequireAdmin(),
				r.productController.UpdateProduct,
			)
			products.DELETE("/:id",
				r.authMiddleware.Authenticate(),
				r.authMiddleware.RequireAdmin(),
				r.productController.DeleteProduct,
			)
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
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hmlee/shopcart-backend/internal/app/model"
	"github.com/hmlee/shopcart-backend/internal/app/service"
	apperrors "github.com/hmlee/shopcart-backend/internal/errors"
	"github.com/hmlee/shopcart-backend/internal/middleware"
)

type ProductController struct {
	productService service.ProductService
}

func NewProductController(productService service.ProductService) *ProductController {
	return &ProductController{
		productService: productService,
	}
}

type ProductRequest struct {
	Category      string  `json:"category" binding:"required"`
	Name          string  `json:"name" binding:"required"`
	Description   string  `json:"description"`
	Price         float64 `json:"price" binding:"gte=0"`
	StockQuantity int     `json:"stockQuantity" binding:"gte=0"`
}

func (r *ProductRequest) toModel() *model.Product {
	return &model.Product{
		Category:      r.Category,
		Name:          r.Name,
		Description:   r.Description,
		Price:         r.Price,
		StockQuantity: r.StockQuantity,
	}
}

// CreateProduct creates a catalog entry.
// POST /api/products
func (ctrl *ProductController) CreateProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid create product request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request data")
		return
	}

	created, err := ctrl.productService.CreateProduct(c.Request.Context(), req.toModel())
	if err != nil {
		log.Error("Failed to create product", err)
		apperrors.RespondWithParsedError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// GetAllProducts lists the catalog.
// GET /api/products
func (ctrl *ProductController) GetAllProducts(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	products, err := ctrl.productService.GetAllProducts(c.Request.Context())
	if err != nil {
		log.Error("Failed to list products", err)
		apperrors.RespondWithParsedError(c, err)
		return
	}

	c.JSON(http.StatusOK, products)
}

// GetProductByID returns one product.
// GET /api/products/:id
func (ctrl *ProductController) GetProductByID(c *gin.Context) {
	id := c.Param("id")

	product, err := ctrl.productService.GetProductByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			apperrors.NotFound(c, apperrors.ProductNotFound, "Product not found")
			return
		}
		middleware.GetLoggerFromContext(c).Error("Failed to fetch product", err, map[string]interface{}{
			"product_id": id,
		})
		apperrors.RespondWithParsedError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// GetProductsByCategory lists products in one category partition.
// GET /api/products/category/:category
func (ctrl *ProductController) GetProductsByCategory(c *gin.Context) {
	category := c.Param("category")

	products, err := ctrl.productService.GetProductsByCategory(c.Request.Context(), category)
	if err != nil {
		middleware.GetLoggerFromContext(c).Error("Failed to list products by category", err, map[string]interface{}{
			"category": category,
		})
		apperrors.RespondWithParsedError(c, err)
		return
	}

	c.JSON(http.StatusOK, products)
}

// UpdateProduct replaces a catalog entry.
// PUT /api/products/:id
func (ctrl *ProductController) UpdateProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	id := c.Param("id")

	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid update product request", map[string]interface{}{
			"product_id": id,
			"error":      err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request data")
		return
	}

	updated, err := ctrl.productService.UpdateProduct(c.Request.Context(), id, req.toModel())
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			apperrors.NotFound(c, apperrors.ProductNotFound, "Product not found")
			return
		}
		log.Error("Failed to update product", err, map[string]interface{}{
			"product_id": id,
		})
		apperrors.RespondWithParsedError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// DeleteProduct removes a catalog entry.
// DELETE /api/products/:id
func (ctrl *ProductController) DeleteProduct(c *gin.Context) {
	id := c.Param("id")

	if err := ctrl.productService.DeleteProduct(c.Request.Context(), id); err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			apperrors.NotFound(c, apperrors.ProductNotFound, "Product not found")
			return
		}
		middleware.GetLoggerFromContext(c).Error("Failed to delete product", err, map[string]interface{}{
			"product_id": id,
		})
		apperrors.RespondWithParsedError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

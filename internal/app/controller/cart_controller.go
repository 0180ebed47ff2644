package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hmlee/shopcart-backend/internal/app/model"
	"github.com/hmlee/shopcart-backend/internal/app/service"
	apperrors "github.com/hmlee/shopcart-backend/internal/errors"
	"github.com/hmlee/shopcart-backend/internal/middleware"
)

type CartController struct {
	cartService service.CartService
}

func NewCartController(cartService service.CartService) *CartController {
	return &CartController{
		cartService: cartService,
	}
}

// CartResponse is the API shape of a cart: the persisted document plus the
// totals, which are derived on every read.
type CartResponse struct {
	ID          string           `json:"id"`
	UserID      string           `json:"userId"`
	Items       []model.CartItem `json:"items"`
	TotalAmount float64          `json:"totalAmount"`
	TotalItems  int              `json:"totalItems"`
}

func toCartResponse(cart *model.Cart) CartResponse {
	totalAmount, totalItems := cart.Totals()
	items := cart.Items
	if items == nil {
		items = []model.CartItem{}
	}
	return CartResponse{
		ID:          cart.ID,
		UserID:      cart.UserID,
		Items:       items,
		TotalAmount: totalAmount,
		TotalItems:  totalItems,
	}
}

// GetCart returns the user's cart, creating an empty one on first access.
// GET /api/cart/:userId
func (ctrl *CartController) GetCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	userID := c.Param("userId")

	cart, err := ctrl.cartService.GetCart(c.Request.Context(), userID)
	if err != nil {
		log.Error("Failed to fetch cart", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.RespondWithParsedError(c, err)
		return
	}

	c.JSON(http.StatusOK, toCartResponse(cart))
}

// AddItem adds a product to the cart, merging quantities for a product that
// is already in it.
// POST /api/cart/:userId/items?productId=&quantity=
func (ctrl *CartController) AddItem(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	userID := c.Param("userId")

	productID := c.Query("productId")
	if productID == "" {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "productId is required")
		return
	}
	quantity, ok := parseQuantity(c)
	if !ok {
		return
	}

	cart, err := ctrl.cartService.AddItem(c.Request.Context(), userID, productID, quantity)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			log.Warn("Product not found for cart", map[string]interface{}{
				"user_id":    userID,
				"product_id": productID,
			})
			apperrors.NotFound(c, apperrors.ProductNotFound, "Product not found")
			return
		}
		ctrl.respondCartError(c, userID, err)
		return
	}

	c.JSON(http.StatusOK, toCartResponse(cart))
}

// UpdateItemQuantity overwrites the quantity of a cart item. A product that
// is not in the cart leaves the cart unchanged.
// PUT /api/cart/:userId/items/:productId?quantity=
func (ctrl *CartController) UpdateItemQuantity(c *gin.Context) {
	userID := c.Param("userId")
	productID := c.Param("productId")

	quantity, ok := parseQuantity(c)
	if !ok {
		return
	}

	cart, err := ctrl.cartService.UpdateItemQuantity(c.Request.Context(), userID, productID, quantity)
	if err != nil {
		ctrl.respondCartError(c, userID, err)
		return
	}

	c.JSON(http.StatusOK, toCartResponse(cart))
}

// RemoveItem deletes a product from the cart; removing an absent product is
// a no-op.
// DELETE /api/cart/:userId/items/:productId
func (ctrl *CartController) RemoveItem(c *gin.Context) {
	userID := c.Param("userId")
	productID := c.Param("productId")

	cart, err := ctrl.cartService.RemoveItem(c.Request.Context(), userID, productID)
	if err != nil {
		ctrl.respondCartError(c, userID, err)
		return
	}

	c.JSON(http.StatusOK, toCartResponse(cart))
}

// ClearCart empties the cart.
// DELETE /api/cart/:userId
func (ctrl *CartController) ClearCart(c *gin.Context) {
	userID := c.Param("userId")

	if err := ctrl.cartService.ClearCart(c.Request.Context(), userID); err != nil {
		ctrl.respondCartError(c, userID, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func parseQuantity(c *gin.Context) (int, bool) {
	quantityStr := c.Query("quantity")
	if quantityStr == "" {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "quantity is required")
		return 0, false
	}
	quantity, err := strconv.Atoi(quantityStr)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "quantity must be an integer")
		return 0, false
	}
	return quantity, true
}

func (ctrl *CartController) respondCartError(c *gin.Context, userID string, err error) {
	log := middleware.GetLoggerFromContext(c)

	switch {
	case errors.Is(err, model.ErrInvalidQuantity):
		apperrors.BadRequest(c, apperrors.ValidationInvalidQuantity, "Quantity must be at least 1")
	case errors.Is(err, service.ErrCartConflict):
		log.Warn("Cart mutation lost the concurrency race", map[string]interface{}{
			"user_id": userID,
		})
		apperrors.Conflict(c, apperrors.CartConflict, "Cart was modified concurrently, please retry")
	default:
		log.Error("Cart operation failed", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.RespondWithParsedError(c, err)
	}
}

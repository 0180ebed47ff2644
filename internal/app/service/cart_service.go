package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hmlee/shopcart-backend/internal/app/model"
	"github.com/hmlee/shopcart-backend/internal/app/repository"
	"github.com/hmlee/shopcart-backend/internal/cache"
	"github.com/hmlee/shopcart-backend/pkg/logger"
	"golang.org/x/sync/singleflight"
)

var (
	ErrProductNotFound = errors.New("product not found")
	// ErrCartConflict is surfaced when a mutation kept losing the
	// optimistic-concurrency race and ran out of attempts.
	ErrCartConflict = errors.New("cart was modified concurrently")
)

// upsertAttempts bounds the reload-on-conflict loop of every mutation.
const upsertAttempts = 3

// CartService sequences the get-or-create, mutate, persist protocol against
// the cart and product stores. Reading a cart creates one when the user has
// none yet; there is no separate create operation.
type CartService interface {
	GetCart(ctx context.Context, userID string) (*model.Cart, error)
	AddItem(ctx context.Context, userID, productID string, quantity int) (*model.Cart, error)
	UpdateItemQuantity(ctx context.Context, userID, productID string, quantity int) (*model.Cart, error)
	RemoveItem(ctx context.Context, userID, productID string) (*model.Cart, error)
	ClearCart(ctx context.Context, userID string) error
}

type cartService struct {
	cartRepo     repository.CartRepository
	productRepo  repository.ProductRepository
	cartCache    cache.CartCache // nil disables caching
	storeTimeout time.Duration
	sfg          singleflight.Group // prevents cache stampede on cart reads
}

func NewCartService(
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	cartCache cache.CartCache,
	storeTimeout time.Duration,
) CartService {
	return &cartService{
		cartRepo:     cartRepo,
		productRepo:  productRepo,
		cartCache:    cartCache,
		storeTimeout: storeTimeout,
	}
}

func (s *cartService) GetCart(ctx context.Context, userID string) (*model.Cart, error) {
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {
		if s.cartCache != nil {
			cached, err := s.cartCache.Get(ctx, userID)
			if err == nil {
				return cached, nil
			}
			if !errors.Is(err, cache.ErrCacheMiss) {
				logger.Warn("Cart cache read failed", map[string]interface{}{
					"user_id": userID,
					"error":   err.Error(),
				})
			}
		}

		cart, err := s.getOrCreateCart(ctx, userID)
		if err != nil {
			return nil, err
		}

		s.fillCache(userID, cart)
		return cart, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*model.Cart), nil
}

func (s *cartService) AddItem(ctx context.Context, userID, productID string, quantity int) (*model.Cart, error) {
	logger.Info("Adding item to cart", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
		"quantity":   quantity,
	})

	if quantity < 1 {
		return nil, model.ErrInvalidQuantity
	}

	// The cart is created on first access even when the add itself fails
	// later; a missing product aborts before any mutation, not before the
	// get-or-create.
	if _, err := s.getOrCreateCart(ctx, userID); err != nil {
		return nil, err
	}

	tctx, cancel := s.storeContext(ctx)
	product, err := s.productRepo.FindByID(tctx, productID)
	cancel()
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			logger.Warn("Cannot add to cart: product not found", map[string]interface{}{
				"user_id":    userID,
				"product_id": productID,
			})
			return nil, ErrProductNotFound
		}
		logger.Error("Failed to fetch product", err, map[string]interface{}{
			"product_id": productID,
		})
		return nil, err
	}

	return s.mutate(ctx, userID, func(cart *model.Cart) error {
		return cart.MergeOrAddItem(product, quantity)
	})
}

func (s *cartService) UpdateItemQuantity(ctx context.Context, userID, productID string, quantity int) (*model.Cart, error) {
	logger.Info("Updating cart item quantity", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
		"quantity":   quantity,
	})

	return s.mutate(ctx, userID, func(cart *model.Cart) error {
		return cart.SetItemQuantity(productID, quantity)
	})
}

func (s *cartService) RemoveItem(ctx context.Context, userID, productID string) (*model.Cart, error) {
	logger.Info("Removing cart item", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
	})

	return s.mutate(ctx, userID, func(cart *model.Cart) error {
		cart.RemoveItem(productID)
		return nil
	})
}

func (s *cartService) ClearCart(ctx context.Context, userID string) error {
	logger.Info("Clearing user cart", map[string]interface{}{
		"user_id": userID,
	})

	_, err := s.mutate(ctx, userID, func(cart *model.Cart) error {
		cart.Clear()
		return nil
	})
	return err
}

// getOrCreateCart looks up the user's cart by its partition key, creating and
// persisting an empty one on first access. A concurrent first access is
// resolved by re-reading: whoever inserted first wins and both callers see
// the same cart.
func (s *cartService) getOrCreateCart(ctx context.Context, userID string) (*model.Cart, error) {
	tctx, cancel := s.storeContext(ctx)
	cart, err := s.cartRepo.FindByUserID(tctx, userID)
	cancel()
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, repository.ErrCartNotFound) {
		logger.Error("Failed to fetch cart", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	newCart := &model.Cart{
		ID:     uuid.NewString(),
		UserID: userID,
		Items:  []model.CartItem{},
	}

	tctx, cancel = s.storeContext(ctx)
	saved, err := s.cartRepo.Upsert(tctx, newCart)
	cancel()
	if err == nil {
		logger.Info("Created cart for user", map[string]interface{}{
			"user_id": userID,
			"cart_id": saved.ID,
		})
		return saved, nil
	}
	if !errors.Is(err, repository.ErrVersionConflict) {
		logger.Error("Failed to create cart", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	tctx, cancel = s.storeContext(ctx)
	defer cancel()
	return s.cartRepo.FindByUserID(tctx, userID)
}

// mutate runs the load-apply-persist cycle, reloading the cart and retrying
// when the persisted version moved underneath us. Aggregate errors abort
// before anything is written.
func (s *cartService) mutate(ctx context.Context, userID string, apply func(*model.Cart) error) (*model.Cart, error) {
	for attempt := 1; attempt <= upsertAttempts; attempt++ {
		cart, err := s.getOrCreateCart(ctx, userID)
		if err != nil {
			return nil, err
		}

		if err := apply(cart); err != nil {
			return nil, err
		}

		tctx, cancel := s.storeContext(ctx)
		saved, err := s.cartRepo.Upsert(tctx, cart)
		cancel()
		if err == nil {
			s.invalidateCache(userID)
			return saved, nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			logger.Error("Failed to persist cart", err, map[string]interface{}{
				"user_id": userID,
				"cart_id": cart.ID,
			})
			return nil, err
		}

		logger.Warn("Cart write conflict, retrying", map[string]interface{}{
			"user_id": userID,
			"attempt": attempt,
		})
	}

	return nil, ErrCartConflict
}

func (s *cartService) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.storeTimeout)
}

func (s *cartService) fillCache(userID string, cart *model.Cart) {
	if s.cartCache == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := s.cartCache.Set(ctx, userID, cart); err != nil {
			logger.Warn("Cart cache write failed", map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			})
		}
	}()
}

func (s *cartService) invalidateCache(userID string) {
	if s.cartCache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cartCache.Delete(ctx, userID); err != nil {
		logger.Warn("Cart cache invalidation failed", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
	}
}

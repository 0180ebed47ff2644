package cache

import (
	"context"
	"errors"

	"github.com/hmlee/shopcart-backend/internal/app/model"
)

// CartCache fronts cart reads. Misses are expected and reported via
// ErrCacheMiss; every other error means the cache backend misbehaved.
type CartCache interface {
	Get(ctx context.Context, userID string) (*model.Cart, error)
	Set(ctx context.Context, userID string, cart *model.Cart) error
	Delete(ctx context.Context, userID string) error
}

var ErrCacheMiss = errors.New("cache miss")

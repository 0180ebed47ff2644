package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hmlee/shopcart-backend/internal/app/model"
	"github.com/hmlee/shopcart-backend/internal/app/repository"
	"github.com/hmlee/shopcart-backend/pkg/logger"
)

type ProductService interface {
	CreateProduct(ctx context.Context, product *model.Product) (*model.Product, error)
	GetAllProducts(ctx context.Context) ([]model.Product, error)
	GetProductByID(ctx context.Context, id string) (*model.Product, error)
	GetProductsByCategory(ctx context.Context, category string) ([]model.Product, error)
	UpdateProduct(ctx context.Context, id string, product *model.Product) (*model.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

type productService struct {
	productRepo  repository.ProductRepository
	storeTimeout time.Duration
}

func NewProductService(productRepo repository.ProductRepository, storeTimeout time.Duration) ProductService {
	return &productService{
		productRepo:  productRepo,
		storeTimeout: storeTimeout,
	}
}

func (s *productService) CreateProduct(ctx context.Context, product *model.Product) (*model.Product, error) {
	if product.ID == "" {
		product.ID = uuid.NewString()
	}

	tctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.productRepo.Create(tctx, product); err != nil {
		logger.Error("Failed to create product", err, map[string]interface{}{
			"product_id": product.ID,
		})
		return nil, err
	}

	logger.Info("Product created", map[string]interface{}{
		"product_id": product.ID,
		"category":   product.Category,
	})
	return product, nil
}

func (s *productService) GetAllProducts(ctx context.Context) ([]model.Product, error) {
	tctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	return s.productRepo.FindAll(tctx)
}

func (s *productService) GetProductByID(ctx context.Context, id string) (*model.Product, error) {
	tctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	product, err := s.productRepo.FindByID(tctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

func (s *productService) GetProductsByCategory(ctx context.Context, category string) ([]model.Product, error) {
	tctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	return s.productRepo.FindByCategory(tctx, category)
}

func (s *productService) UpdateProduct(ctx context.Context, id string, product *model.Product) (*model.Product, error) {
	product.ID = id

	tctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.productRepo.Update(tctx, product); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		logger.Error("Failed to update product", err, map[string]interface{}{
			"product_id": id,
		})
		return nil, err
	}

	logger.Info("Product updated", map[string]interface{}{
		"product_id": id,
	})
	return product, nil
}

func (s *productService) DeleteProduct(ctx context.Context, id string) error {
	tctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.productRepo.Delete(tctx, id); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return ErrProductNotFound
		}
		logger.Error("Failed to delete product", err, map[string]interface{}{
			"product_id": id,
		})
		return err
	}

	logger.Info("Product deleted", map[string]interface{}{
		"product_id": id,
	})
	return nil
}

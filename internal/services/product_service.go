package services

import (
	"context"
	"errors"
	"fmt"

	"gudang/internal/models"
	"gudang/internal/repositories"
)

// ProductService handles business logic related to products. Stock writes
// go through the same atomic-unit discipline as the inventory ledger, so
// there is never a second, weaker path to mutate stock.
type ProductService struct {
	store       repositories.Store
	maxAttempts int
}

// NewProductService creates a new ProductService.
func NewProductService(store repositories.Store) *ProductService {
	return &ProductService{
		store:       store,
		maxAttempts: defaultMaxAttempts,
	}
}

// UpdateProductInput carries a partial edit; nil fields are unchanged.
// Stock, when present, is an absolute value.
type UpdateProductInput struct {
	Name  *string
	Type  *string
	Stock *int
}

// ListProducts retrieves products matching the filter.
func (s *ProductService) ListProducts(ctx context.Context, filter repositories.ProductFilter, sort repositories.ProductSort) ([]models.Product, error) {
	return s.store.Products().List(ctx, filter, sort)
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	product, err := s.store.Products().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("product %s: %w", id, ErrProductNotFound)
		}
		return nil, err
	}
	return product, nil
}

// CreateProduct creates a new product.
func (s *ProductService) CreateProduct(ctx context.Context, product *models.Product) error {
	if product.Stock < 0 {
		return fmt.Errorf("stock %d: %w", product.Stock, ErrInvalidStock)
	}
	return s.store.Products().Create(ctx, product)
}

// UpdateProduct applies a partial edit to a product. All fields, including
// an absolute stock value, are written in one atomic unit under the
// product's row lock.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, input UpdateProductInput) (*models.Product, error) {
	if input.Stock != nil && *input.Stock < 0 {
		return nil, fmt.Errorf("stock %d: %w", *input.Stock, ErrInvalidStock)
	}

	var updated *models.Product
	err := runAtomicWithRetry(ctx, s.store, s.maxAttempts, defaultRetryBackoff, func(store repositories.Store) error {
		product, err := store.Products().GetByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return fmt.Errorf("product %s: %w", id, ErrProductNotFound)
			}
			return err
		}

		if input.Name != nil {
			product.Name = *input.Name
		}
		if input.Type != nil {
			product.Type = *input.Type
		}
		if input.Stock != nil {
			product.Stock = *input.Stock
		}
		if err := store.Products().Update(ctx, product); err != nil {
			return err
		}
		updated = product
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteProduct deletes a product. Deletion is rejected while any
// transaction still references the product; the reference check and the
// delete share one atomic unit so a concurrent RecordTransaction cannot
// slip in between them.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	return runAtomicWithRetry(ctx, s.store, s.maxAttempts, defaultRetryBackoff, func(store repositories.Store) error {
		if _, err := store.Products().GetByIDForUpdate(ctx, id); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return fmt.Errorf("product %s: %w", id, ErrProductNotFound)
			}
			return err
		}

		count, err := store.Transactions().CountByProductID(ctx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("product %s has %d recorded transactions: %w", id, count, ErrProductHasTransactions)
		}

		return store.Products().Delete(ctx, id)
	})
}

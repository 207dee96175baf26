package repositories

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gudang/internal/models"

	"github.com/google/uuid"
)

// MockProductRepository is an in-memory implementation of ProductRepository.
type MockProductRepository struct {
	products map[string]models.Product
	mu       sync.RWMutex
}

// NewMockProductRepository creates a new instance of MockProductRepository.
func NewMockProductRepository() *MockProductRepository {
	return &MockProductRepository{
		products: make(map[string]models.Product),
	}
}

// List returns products matching the filter, ordered per the sort option.
func (r *MockProductRepository) List(_ context.Context, filter ProductFilter, sortSpec ProductSort) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	productList := make([]models.Product, 0, len(r.products))
	for _, p := range r.products {
		if !matchProduct(p, filter) {
			continue
		}
		productList = append(productList, p)
	}

	switch sortSpec.ByName {
	case SortAsc:
		sort.Slice(productList, func(i, j int) bool { return productList[i].Name < productList[j].Name })
	case SortDesc:
		sort.Slice(productList, func(i, j int) bool { return productList[i].Name > productList[j].Name })
	}
	return productList, nil
}

func matchProduct(p models.Product, filter ProductFilter) bool {
	nameSet := filter.NameContains != ""
	typeSet := filter.TypeContains != ""
	if !nameSet && !typeSet {
		return true
	}
	nameHit := nameSet && strings.Contains(p.Name, filter.NameContains)
	typeHit := typeSet && strings.Contains(p.Type, filter.TypeContains)
	return nameHit || typeHit
}

// GetByID returns a product by its ID.
func (r *MockProductRepository) GetByID(_ context.Context, id string) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.products[id]
	if !ok {
		return nil, fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
	}
	return &product, nil
}

// GetByIDForUpdate returns a product by its ID. Isolation is provided by
// the enclosing MockStore.RunAtomic, which serializes atomic units.
func (r *MockProductRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Product, error) {
	return r.GetByID(ctx, id)
}

// Create adds a new product.
func (r *MockProductRepository) Create(_ context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	r.products[product.ID] = *product
	return nil
}

// Update modifies an existing product.
func (r *MockProductRepository) Update(_ context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.products[product.ID]
	if !ok {
		return fmt.Errorf("product with ID %s: %w", product.ID, ErrNotFound)
	}
	r.products[product.ID] = *product
	return nil
}

// Delete removes a product by its ID.
func (r *MockProductRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.products[id]
	if !ok {
		return fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
	}
	delete(r.products, id)
	return nil
}

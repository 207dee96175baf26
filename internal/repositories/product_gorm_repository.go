package repositories

import (
	"context"
	"fmt"

	"gudang/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

// List retrieves products matching the filter, ordered per the sort option.
func (r *GORMProductRepository) List(ctx context.Context, filter ProductFilter, sort ProductSort) ([]models.Product, error) {
	q := r.db.WithContext(ctx)

	switch {
	case filter.NameContains != "" && filter.TypeContains != "":
		q = q.Where("name LIKE ? OR type LIKE ?", "%"+filter.NameContains+"%", "%"+filter.TypeContains+"%")
	case filter.NameContains != "":
		q = q.Where("name LIKE ?", "%"+filter.NameContains+"%")
	case filter.TypeContains != "":
		q = q.Where("type LIKE ?", "%"+filter.TypeContains+"%")
	}

	switch sort.ByName {
	case SortAsc:
		q = q.Order("name asc")
	case SortDesc:
		q = q.Order("name desc")
	}

	var products []models.Product
	if err := q.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", mapStorageError(err))
	}
	return products, nil
}

// GetByID retrieves a single product by its ID from the database.
func (r *GORMProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get product by ID %s: %w", id, mapStorageError(err))
	}
	return &product, nil
}

// GetByIDForUpdate retrieves a product holding a row-level write lock for
// the remainder of the enclosing transaction. SQLite rejects the locking
// clause and serializes writers on its own, so it is applied only on
// dialects that support it.
func (r *GORMProductRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Product, error) {
	q := r.db.WithContext(ctx)
	if r.db.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var product models.Product
	if err := q.First(&product, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to lock product %s: %w", id, mapStorageError(err))
	}
	return &product, nil
}

// Create creates a new product in the database.
func (r *GORMProductRepository) Create(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", mapStorageError(err))
	}
	return nil
}

// Update updates an existing product in the database.
func (r *GORMProductRepository) Update(ctx context.Context, product *models.Product) error {
	res := r.db.WithContext(ctx).Save(product) // Save will update all fields, including zero values
	if res.Error != nil {
		return fmt.Errorf("failed to update product: %w", mapStorageError(res.Error))
	}
	if res.RowsAffected == 0 {
		// GORM's Save doesn't return ErrRecordNotFound if no rows matched
		// an update, so we check RowsAffected.
		return fmt.Errorf("product with ID %s: %w", product.ID, ErrNotFound)
	}
	return nil
}

// Delete deletes a product by its ID from the database.
func (r *GORMProductRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete product: %w", mapStorageError(res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
	}
	return nil
}

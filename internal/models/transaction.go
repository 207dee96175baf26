package models

import (
	"time"

	"gorm.io/gorm"
)

// Transaction is a recorded sale event. Recording one decrements the
// referenced product's stock by Quantity as a single atomic unit; reversing
// (deleting) one restores it. The row itself references the product by ID
// only, never owns it.
type Transaction struct {
	ID              string    `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	ProductID       string    `json:"product_id" gorm:"index;type:varchar(36)" validate:"required,uuid"`
	Quantity        int       `json:"quantity" validate:"required,gt=0"`
	TransactionDate time.Time `json:"transaction_date" validate:"required"`
	gorm.Model                // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}

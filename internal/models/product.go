package models

import "gorm.io/gorm"

// Product represents a tracked inventory item.
// Stock is the single source of truth for remaining units; it is only
// mutated through the inventory ledger and never goes negative at rest.
type Product struct {
	ID         string `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Name       string `json:"name" validate:"required,min=1,max=100"`
	Type       string `json:"type" validate:"required,min=1,max=100"`
	Stock      int    `json:"stock" validate:"gte=0"`
	gorm.Model        // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}

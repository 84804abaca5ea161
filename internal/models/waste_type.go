package models

import (
	"time"
)

// WasteType is a catalog entry. Deposits reference it by id so renames
// never need to propagate into historical rows.
type WasteType struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

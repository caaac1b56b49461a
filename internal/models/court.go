// internal/models/court.go
package models

import "time"

// Court is one entry of the portal's Κατάστημα dropdown, synced by the
// court-sync tool.
type Court struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Slug      string    `json:"slug" db:"slug"`
	SolonCode string    `json:"solonCode,omitempty" db:"solon_code"`
	IsActive  bool      `json:"isActive" db:"is_active"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

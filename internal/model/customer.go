package model

import (
	"time"

	"github.com/google/uuid"
)

// Customer is a lightweight directory entry keyed by DNI, linked to sales on a
// best-effort basis — a failed upsert never blocks a sale.
type Customer struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Dni       string    `gorm:"uniqueIndex;not null"`
	Name      *string
	Phone     *string
	Active    bool `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

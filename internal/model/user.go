package model

import (
	"time"

	"github.com/google/uuid"
)

// UserRole: "admin" | "cashier"
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleCashier UserRole = "cashier"
)

// User is an operator account. PasswordHash is bcrypt.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Username     string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	FullName     *string
	Role         UserRole `gorm:"type:varchar(20);not null;default:'cashier'"`
	Active       bool     `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

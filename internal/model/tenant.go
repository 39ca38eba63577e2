package model

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is the isolation boundary: every other row carries its TenantID.
type Tenant struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

package domain

import "time"

type PermissionType string

const (
	PermissionTypeMenu      PermissionType = "menu"
	PermissionTypeOperation PermissionType = "operation"
	PermissionTypeData      PermissionType = "data"
)

type PermissionStatus string

const (
	PermissionStatusActive   PermissionStatus = "active"
	PermissionStatusInactive PermissionStatus = "inactive"
)

// Permission names follow the "resource:action" convention, e.g. "users:read".
type Permission struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	Name        string           `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Description string           `gorm:"size:255" json:"description"`
	Type        PermissionType   `gorm:"size:32;not null;default:operation" json:"type"`
	Status      PermissionStatus `gorm:"size:32;not null;default:active" json:"status"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

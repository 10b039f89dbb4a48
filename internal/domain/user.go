package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
	UserStatusBanned   UserStatus = "banned"
)

func (s UserStatus) Valid() bool {
	switch s {
	case UserStatusActive, UserStatusInactive, UserStatusBanned:
		return true
	default:
		return false
	}
}

// User is an account managed by the user center. DeletedAt is a plain nullable
// column: deletes remove the row, they do not stamp it.
type User struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	Name        string     `gorm:"size:255;not null;index" json:"name"`
	Email       string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Avatar      string     `gorm:"size:1024" json:"avatar"`
	Status      UserStatus `gorm:"size:32;not null;default:active;index:idx_users_status" json:"status"`
	LastLoginAt *time.Time `json:"lastLoginAt"`
	LastLoginIP string     `gorm:"column:last_login_ip;size:64" json:"lastLoginIp"`
	CreatedAt   time.Time  `gorm:"index:idx_users_created_at" json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	DeletedAt   *time.Time `json:"deletedAt"`
	Roles       []Role     `gorm:"many2many:user_roles" json:"roles,omitempty"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Status == "" {
		u.Status = UserStatusActive
	}
	return nil
}

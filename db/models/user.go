package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	AdminRole    Role = "admin"
	OperatorRole Role = "operator"
	ViewerRole   Role = "viewer"
)

// User is a back-office account allowed to run uploads.
type User struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;" json:"id"`
	FullName   string    `gorm:"not null" json:"full_name"`
	Email      string    `gorm:"unique;not null" json:"email"`
	Password   string    `json:"-"`
	TOTPSecret string    `json:"-" gorm:"column:totp_secret"`
	Role       Role      `gorm:"type:varchar(30);not null" json:"role"`

	Active      bool       `gorm:"default:true" json:"active"`
	LastLoginAt *time.Time `json:"last_login_at"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

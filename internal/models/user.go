package models

import (
	"gorm.io/gorm"

	"github.com/classtrack-dev/classtrack/internal/authz"
)

type User struct {
	gorm.Model

	Username     string     `gorm:"uniqueIndex;not null"`
	Email        string     `gorm:"uniqueIndex;not null"`
	PasswordHash string     `gorm:"not null"`
	Name         string     `gorm:"not null"`
	Role         authz.Role `gorm:"type:varchar(16);not null;index"`

	// Set on accounts created through registration approval; cleared once the
	// owner picks their own password.
	MustChangePassword bool    `gorm:"not null;default:false"`
	PasswordResetToken *string `gorm:"index"`
}

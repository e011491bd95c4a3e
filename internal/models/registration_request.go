package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/classtrack-dev/classtrack/internal/authz"
)

type RegistrationStatus string

const (
	RegistrationPending  RegistrationStatus = "pending"
	RegistrationApproved RegistrationStatus = "approved"
	RegistrationRejected RegistrationStatus = "rejected"
)

// RegistrationRequest moves pending -> approved|rejected exactly once.
// Approval creates the matching User row. A partial unique index (created in
// db.Migrate) keeps at most one pending request per username and per email.
type RegistrationRequest struct {
	gorm.Model

	Username    string             `gorm:"not null;index"`
	Email       string             `gorm:"not null;index"`
	Name        string             `gorm:"not null"`
	Role        authz.Role         `gorm:"type:varchar(16);not null"`
	Status      RegistrationStatus `gorm:"type:varchar(16);not null;default:pending;index"`
	RequestedAt time.Time          `gorm:"not null"`
	ProcessedAt *time.Time
}

package models

import (
	"time"

	"gorm.io/gorm"
)

// ClassNameAll is the wildcard class: assignments carrying it match every
// student-supplied class filter.
const ClassNameAll = "all"

type Assignment struct {
	gorm.Model

	Title       string `gorm:"not null"`
	Description string
	Subject     string    `gorm:"not null;index"`
	ClassName   string    `gorm:"not null;index"`
	DueDate     time.Time `gorm:"not null"`
	CreatedByID uint      `gorm:"not null;index"`
}

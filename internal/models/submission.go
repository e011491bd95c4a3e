package models

import (
	"time"

	"gorm.io/gorm"
)

// AssignmentSubmission holds one student's answer to one assignment. The
// composite unique index is the authority on the one-submission-per-student
// rule; handlers treat a duplicate-key error on insert as a conflict.
type AssignmentSubmission struct {
	gorm.Model

	AssignmentID uint      `gorm:"not null;uniqueIndex:idx_assignment_student"`
	StudentID    uint      `gorm:"not null;uniqueIndex:idx_assignment_student"`
	Content      string    `gorm:"not null"`
	SubmittedAt  time.Time `gorm:"not null"`
	Grade        *string
	Feedback     *string
}

package models

import (
	"time"

	"gorm.io/gorm"
)

// MessageTypeDefault is the type stamped on a message when the sender
// does not pick one.
const MessageTypeDefault = "message"

type Message struct {
	gorm.Model

	SenderID    uint      `gorm:"not null;index"`
	ReceiverID  uint      `gorm:"not null;index"`
	Subject     string    `gorm:"not null"`
	Content     string    `gorm:"not null"`
	MessageType string    `gorm:"not null;default:message"`
	SentAt      time.Time `gorm:"not null;index"`
	IsRead      bool      `gorm:"not null;default:false"`
}

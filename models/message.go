package models

import (
	"time"
)

// Message is one entry of a customer's conversation with staff. Staff
// replies and booking notices carry IsAdmin=true.
type Message struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	Email          string     `gorm:"type:varchar(255);not null;index:idx_messages_email_created,priority:1" json:"email"`
	Title          *string    `gorm:"type:varchar(100)" json:"title,omitempty"`
	Content        string     `gorm:"type:text;not null" json:"content"`
	Read           bool       `gorm:"column:is_read;not null;index" json:"read"`
	IsAdmin        bool       `gorm:"not null;index" json:"is_admin"`
	OriginClientID string     `gorm:"type:varchar(64)" json:"origin_client_id,omitempty"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	CreatedAt      time.Time  `gorm:"not null;index:idx_messages_email_created,priority:2" json:"created_at"`
}

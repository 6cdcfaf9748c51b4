package models

import (
	"time"
)

const (
	ActionInsert = "INSERT"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
)

// Entity names used in the change feed.
const (
	EntityBookings = "bookings"
	EntityMessages = "messages"
	EntityTables   = "tables"
	EntityAdmins   = "admins"
)

// DBChange is an outbox row written in the same transaction as the change
// it describes. Email scopes the change to one customer when relevant.
type DBChange struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Entity    string    `gorm:"type:varchar(50);not null;index:idx_entity_action" json:"entity"`
	RecordID  uint      `gorm:"not null" json:"record_id"`
	Action    string    `gorm:"type:varchar(10);not null;index:idx_entity_action" json:"action"`
	Email     string    `gorm:"type:varchar(255)" json:"email,omitempty"`
	ChangedAt time.Time `gorm:"not null;index" json:"changed_at"`
	Processed bool      `gorm:"not null;index:idx_processed" json:"processed"`
}

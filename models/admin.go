package models

import "time"

// Admin is an entry of the staff allow-list. A user whose email appears
// here is resolved to the admin role.
type Admin struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

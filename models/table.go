package models

import (
	"strings"
	"time"
)

type TableStatus string

const (
	TableAvailable TableStatus = "Available"
	TableReserved  TableStatus = "Reserved"
	TableOccupied  TableStatus = "Occupied"
)

var TableStatuses = []TableStatus{TableAvailable, TableReserved, TableOccupied}

// Floors in display order. New tables default to the first one.
var Floors = []string{"Ground", "First", "Second", "Third"}

func (s TableStatus) Valid() bool {
	for _, v := range TableStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// ParseTableStatus accepts any casing ("occupied", "OCCUPIED").
func ParseTableStatus(raw string) (TableStatus, bool) {
	raw = strings.TrimSpace(raw)
	for _, s := range TableStatuses {
		if strings.EqualFold(string(s), raw) {
			return s, true
		}
	}
	return "", false
}

func ValidFloor(floor string) bool {
	for _, f := range Floors {
		if f == floor {
			return true
		}
	}
	return false
}

type Table struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	Number    int         `gorm:"not null;uniqueIndex" json:"number"`
	Name      string      `gorm:"type:varchar(100);not null" json:"name"`
	Floor     string      `gorm:"type:varchar(20);not null;index" json:"floor"`
	Seats     int         `gorm:"not null" json:"seats"`
	Status    TableStatus `gorm:"type:varchar(20);not null" json:"status"`
	CreatedAt time.Time   `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time   `gorm:"not null" json:"updated_at"`
}

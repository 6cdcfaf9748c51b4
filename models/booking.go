package models

import (
	"fmt"
	"strings"
	"time"
)

type BookingStatus string

const (
	BookingPending  BookingStatus = "Pending"
	BookingApproved BookingStatus = "Approved"
	BookingRejected BookingStatus = "Rejected"
)

// validNext lists the only transitions a booking may take. Approved and
// Rejected are terminal.
var validNext = map[BookingStatus]map[BookingStatus]bool{
	BookingPending:  {BookingApproved: true, BookingRejected: true},
	BookingApproved: {},
	BookingRejected: {},
}

func (s BookingStatus) Valid() bool {
	_, ok := validNext[s]
	return ok
}

func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	return validNext[s][next]
}

// ParseBookingStatus accepts any casing ("approved", "APPROVED").
func ParseBookingStatus(raw string) (BookingStatus, bool) {
	for s := range validNext {
		if strings.EqualFold(string(s), strings.TrimSpace(raw)) {
			return s, true
		}
	}
	return "", false
}

type Booking struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	Email     string        `gorm:"type:varchar(255);not null;index" json:"email"`
	Name      string        `gorm:"type:varchar(255);not null" json:"name"`
	Date      string        `gorm:"type:varchar(10);not null;index" json:"date"`
	Time      string        `gorm:"type:varchar(5);not null" json:"time"`
	People    int           `gorm:"not null" json:"people"`
	Phone     string        `gorm:"type:varchar(32);not null" json:"phone"`
	Status    BookingStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	CreatedAt time.Time     `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time     `gorm:"not null" json:"updated_at"`
}

// ReviewNotice builds the message a customer receives when an admin
// approves or rejects their booking.
func ReviewNotice(b Booking, status BookingStatus) Message {
	title := fmt.Sprintf("Booking %s!", status)
	return Message{
		Email: b.Email,
		Title: &title,
		Content: fmt.Sprintf("Hi %s, your table for %d pax on %s at %s has been %s.",
			b.Name, b.People, b.Date, b.Time, strings.ToLower(string(status))),
		Read:    false,
		IsAdmin: true,
	}
}

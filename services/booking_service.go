package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yeremiapane/restaurant-booking/metrics"
	"github.com/yeremiapane/restaurant-booking/models"
	"github.com/yeremiapane/restaurant-booking/utils"
	"gorm.io/gorm"
)

const (
	MinPartySize = 1
	MaxPartySize = 20

	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// BookingNotifier is told about new bookings after they are stored.
type BookingNotifier interface {
	NotifyBookingSubmitted(ctx context.Context, b models.Booking) error
}

// Customer identifies who is booking. Name falls back to "Guest".
type Customer struct {
	Email string
	Name  string
}

type BookingInput struct {
	Date   string `json:"date"`
	Time   string `json:"time"`
	People int    `json:"people"`
	Phone  string `json:"phone"`
}

type BookingFilter struct {
	Search string
	Status string
}

type DashboardStats struct {
	Total          int64       `json:"total"`
	Today          int64       `json:"today"`
	Pending        int64       `json:"pending"`
	Approved       int64       `json:"approved"`
	Rejected       int64       `json:"rejected"`
	Tables         TableCounts `json:"tables"`
	UnreadMessages int64       `json:"unread_messages"`
}

type TableCounts struct {
	Available int64 `json:"available"`
	Reserved  int64 `json:"reserved"`
	Occupied  int64 `json:"occupied"`
}

type BookingService struct {
	DB       *gorm.DB
	notifier BookingNotifier
	idem     IdempotencyStore
	metrics  *metrics.Metrics
}

// NewBookingService wires the booking store. notifier, idem and m may be
// nil.
func NewBookingService(db *gorm.DB, notifier BookingNotifier, idem IdempotencyStore, m *metrics.Metrics) *BookingService {
	return &BookingService{DB: db, notifier: notifier, idem: idem, metrics: m}
}

func (in BookingInput) validate() error {
	if _, err := time.Parse(dateLayout, strings.TrimSpace(in.Date)); err != nil {
		return fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}
	if _, err := time.Parse(timeLayout, strings.TrimSpace(in.Time)); err != nil {
		return fmt.Errorf("%w: time must be HH:MM", ErrValidation)
	}
	if in.People < MinPartySize || in.People > MaxPartySize {
		return fmt.Errorf("%w: people must be between %d and %d", ErrValidation, MinPartySize, MaxPartySize)
	}
	if strings.TrimSpace(in.Phone) == "" {
		return fmt.Errorf("%w: phone is required", ErrValidation)
	}
	return nil
}

// Submit stores a Pending booking. When idemKey is set and an idempotency
// store is configured, a repeated key returns the first booking with
// replayed=true.
func (s *BookingService) Submit(ctx context.Context, cust Customer, in BookingInput, idemKey string) (*models.Booking, bool, error) {
	email := normalizeEmail(cust.Email)
	if email == "" {
		return nil, false, fmt.Errorf("%w: email is required", ErrValidation)
	}
	if err := in.validate(); err != nil {
		return nil, false, err
	}

	idemKey = strings.TrimSpace(idemKey)
	useIdem := s.idem != nil && idemKey != ""
	if useIdem {
		if id, ok, err := s.idem.Lookup(ctx, email, idemKey); err != nil {
			utils.ErrorLogger.Warnf("idempotency lookup failed: %v", err)
		} else if ok {
			if existing, err := s.Get(ctx, id); err == nil {
				return existing, true, nil
			}
		}
	}

	name := strings.TrimSpace(cust.Name)
	if name == "" {
		name = "Guest"
	}
	booking := models.Booking{
		Email:  email,
		Name:   name,
		Date:   strings.TrimSpace(in.Date),
		Time:   strings.TrimSpace(in.Time),
		People: in.People,
		Phone:  strings.TrimSpace(in.Phone),
		Status: models.BookingPending,
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&booking).Error; err != nil {
			return err
		}
		return RecordChange(tx, models.EntityBookings, booking.ID, models.ActionInsert, booking.Email)
	})
	if err != nil {
		return nil, false, fmt.Errorf("create booking: %w", err)
	}

	if useIdem {
		if err := s.idem.Remember(ctx, email, idemKey, booking.ID); err != nil {
			utils.ErrorLogger.Warnf("idempotency remember failed: %v", err)
		}
	}

	s.metrics.IncBookingSubmitted()
	utils.InfoLogger.Infof("Booking %d submitted by %s for %s %s", booking.ID, booking.Email, booking.Date, booking.Time)

	if s.notifier != nil {
		go func(ctx context.Context, b models.Booking) {
			if err := s.notifier.NotifyBookingSubmitted(ctx, b); err != nil {
				utils.ErrorLogger.Errorf("notify booking %d: %v", b.ID, err)
			}
		}(context.WithoutCancel(ctx), booking)
	}

	return &booking, false, nil
}

func (s *BookingService) Get(ctx context.Context, id uint) (*models.Booking, error) {
	var b models.Booking
	if err := s.DB.WithContext(ctx).First(&b, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &b, nil
}

// ListForCustomer returns the caller's bookings, newest first.
func (s *BookingService) ListForCustomer(ctx context.Context, email string) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.DB.WithContext(ctx).
		Where("email = ?", normalizeEmail(email)).
		Order("created_at DESC, id DESC").
		Find(&bookings).Error
	return bookings, err
}

// ListAll is the admin view. Search matches name or email ignoring case;
// an empty status or "All" disables the status filter.
func (s *BookingService) ListAll(ctx context.Context, f BookingFilter) ([]models.Booking, error) {
	q := s.DB.WithContext(ctx).Model(&models.Booking{})

	if status := strings.TrimSpace(f.Status); status != "" && !strings.EqualFold(status, "all") {
		parsed, ok := models.ParseBookingStatus(status)
		if !ok {
			return nil, ErrInvalidStatus
		}
		q = q.Where("status = ?", parsed)
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		like := containsPattern(search)
		q = q.Where("LOWER(name) LIKE ? ESCAPE '!' OR LOWER(email) LIKE ? ESCAPE '!'", like, like)
	}

	var bookings []models.Booking
	err := q.Order("created_at DESC, id DESC").Find(&bookings).Error
	return bookings, err
}

// Review moves a Pending booking to Approved or Rejected and writes the
// customer notice in the same transaction. Repeating the status a booking
// already has is a no-op and returns a nil message.
func (s *BookingService) Review(ctx context.Context, id uint, target models.BookingStatus) (*models.Booking, *models.Message, error) {
	if target != models.BookingApproved && target != models.BookingRejected {
		return nil, nil, ErrInvalidStatus
	}

	var (
		booking models.Booking
		notice  *models.Message
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&booking, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		if booking.Status == target {
			return nil
		}
		if !booking.Status.CanTransitionTo(target) {
			return ErrBookingNotPending
		}

		res := tx.Model(&models.Booking{}).
			Where("id = ? AND status = ?", id, models.BookingPending).
			Updates(map[string]interface{}{"status": target, "updated_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Another reviewer got there first.
			if err := tx.First(&booking, id).Error; err != nil {
				return err
			}
			if booking.Status == target {
				return nil
			}
			return ErrBookingNotPending
		}
		booking.Status = target

		msg := models.ReviewNotice(booking, target)
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
		notice = &msg

		if err := RecordChange(tx, models.EntityBookings, booking.ID, models.ActionUpdate, booking.Email); err != nil {
			return err
		}
		return RecordChange(tx, models.EntityMessages, msg.ID, models.ActionInsert, msg.Email)
	})
	if err != nil {
		return nil, nil, err
	}

	if notice != nil {
		s.metrics.IncBookingReviewed(string(target))
		utils.InfoLogger.Infof("Booking %d reviewed: %s", booking.ID, target)
	}
	return &booking, notice, nil
}

// Delete removes a booking. A non-empty ownerEmail restricts deletion to
// that customer's bookings.
func (s *BookingService) Delete(ctx context.Context, id uint, ownerEmail string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var b models.Booking
		if err := tx.First(&b, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		if ownerEmail != "" && b.Email != normalizeEmail(ownerEmail) {
			return ErrForbidden
		}
		if err := tx.Delete(&b).Error; err != nil {
			return err
		}
		return RecordChange(tx, models.EntityBookings, b.ID, models.ActionDelete, b.Email)
	})
}

// ClearHistory deletes every booking of one customer.
func (s *BookingService) ClearHistory(ctx context.Context, email string) (int, error) {
	email = normalizeEmail(email)
	var removed int
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := tx.Model(&models.Booking{}).Where("email = ?", email).Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Where("id IN ?", ids).Delete(&models.Booking{}).Error; err != nil {
			return err
		}
		for _, id := range ids {
			if err := RecordChange(tx, models.EntityBookings, id, models.ActionDelete, email); err != nil {
				return err
			}
		}
		removed = len(ids)
		return nil
	})
	return removed, err
}

// Stats feeds the admin dashboard. today is a YYYY-MM-DD date.
func (s *BookingService) Stats(ctx context.Context, today string) (DashboardStats, error) {
	var stats DashboardStats
	db := s.DB.WithContext(ctx)

	type statusCount struct {
		Status string
		Count  int64
	}
	var byStatus []statusCount
	if err := db.Model(&models.Booking{}).Select("status, COUNT(*) AS count").Group("status").Scan(&byStatus).Error; err != nil {
		return stats, err
	}
	for _, row := range byStatus {
		stats.Total += row.Count
		switch models.BookingStatus(row.Status) {
		case models.BookingPending:
			stats.Pending = row.Count
		case models.BookingApproved:
			stats.Approved = row.Count
		case models.BookingRejected:
			stats.Rejected = row.Count
		}
	}

	if err := db.Model(&models.Booking{}).Where("date = ?", today).Count(&stats.Today).Error; err != nil {
		return stats, err
	}

	var byTable []statusCount
	if err := db.Model(&models.Table{}).Select("status, COUNT(*) AS count").Group("status").Scan(&byTable).Error; err != nil {
		return stats, err
	}
	for _, row := range byTable {
		switch models.TableStatus(row.Status) {
		case models.TableAvailable:
			stats.Tables.Available = row.Count
		case models.TableReserved:
			stats.Tables.Reserved = row.Count
		case models.TableOccupied:
			stats.Tables.Occupied = row.Count
		}
	}

	err := db.Model(&models.Message{}).
		Where("is_admin = ? AND is_read = ?", false, false).
		Count(&stats.UnreadMessages).Error
	return stats, err
}

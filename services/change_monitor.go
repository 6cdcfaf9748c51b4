package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yeremiapane/restaurant-booking/events"
	"github.com/yeremiapane/restaurant-booking/metrics"
	"github.com/yeremiapane/restaurant-booking/models"
	"github.com/yeremiapane/restaurant-booking/utils"
	"gorm.io/gorm"
)

const (
	defaultBatchSize = 100
	defaultRetention = 24 * time.Hour
	pruneEvery       = time.Hour

	defaultPublishTimeout = 5 * time.Second
)

// ChangeSink receives claimed change-feed rows.
type ChangeSink interface {
	Dispatch(ctx context.Context, change models.DBChange) error
}

// BookingEvent is the payload of booking lifecycle events on the stream.
type BookingEvent struct {
	ID     uint                 `json:"id"`
	Email  string               `json:"email"`
	Name   string               `json:"name,omitempty"`
	Date   string               `json:"date,omitempty"`
	Time   string               `json:"time,omitempty"`
	People int                  `json:"people,omitempty"`
	Status models.BookingStatus `json:"status,omitempty"`
}

// ChangeMonitor polls the db_changes outbox and hands new rows to Sink.
// Bookings are additionally published to Events.
type ChangeMonitor struct {
	DB        *gorm.DB
	Sink      ChangeSink
	Events    events.Publisher
	Metrics   *metrics.Metrics
	Interval  time.Duration
	BatchSize int
	Retention time.Duration
	// PublishTimeout bounds each Events.Publish call so a stalled broker
	// cannot hold up outbox dispatch.
	PublishTimeout time.Duration
	StopChan       chan struct{}

	wg       sync.WaitGroup
	stopOnce sync.Once
}

func NewChangeMonitor(db *gorm.DB, sink ChangeSink, pub events.Publisher, m *metrics.Metrics, interval time.Duration) *ChangeMonitor {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &ChangeMonitor{
		DB:        db,
		Sink:      sink,
		Events:    pub,
		Metrics:   m,
		Interval:  interval,
		BatchSize: defaultBatchSize,
		Retention: defaultRetention,
		StopChan:  make(chan struct{}),

		PublishTimeout: defaultPublishTimeout,
	}
}

func (cm *ChangeMonitor) Start() {
	cm.wg.Add(1)
	go func() {
		defer cm.wg.Done()
		ticker := time.NewTicker(cm.Interval)
		defer ticker.Stop()
		lastPrune := time.Now()

		for {
			select {
			case <-ticker.C:
				ctx := context.Background()
				if _, err := cm.ProcessPending(ctx); err != nil {
					utils.ErrorLogger.Errorf("Error processing changes: %v", err)
				}
				if time.Since(lastPrune) >= pruneEvery {
					lastPrune = time.Now()
					if n, err := cm.Prune(ctx, time.Now().Add(-cm.Retention)); err != nil {
						utils.ErrorLogger.Errorf("Error pruning changes: %v", err)
					} else if n > 0 {
						utils.InfoLogger.Infof("Pruned %d processed changes", n)
					}
				}
			case <-cm.StopChan:
				return
			}
		}
	}()
}

// Stop ends polling and waits for an in-flight batch to finish.
func (cm *ChangeMonitor) Stop() {
	cm.stopOnce.Do(func() { close(cm.StopChan) })
	cm.wg.Wait()
}

// ProcessPending claims up to BatchSize unprocessed rows in order and
// dispatches the ones this instance won. A row is claimed by flipping
// processed in a conditional update, so concurrent monitors never
// dispatch the same row twice.
func (cm *ChangeMonitor) ProcessPending(ctx context.Context) (int, error) {
	var claimed []models.DBChange

	err := cm.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pending []models.DBChange
		if err := tx.Where("processed = ?", false).
			Order("id ASC").
			Limit(cm.BatchSize).
			Find(&pending).Error; err != nil {
			return fmt.Errorf("fetch changes: %w", err)
		}

		for _, change := range pending {
			res := tx.Model(&models.DBChange{}).
				Where("id = ? AND processed = ?", change.ID, false).
				Update("processed", true)
			if res.Error != nil {
				return fmt.Errorf("claim change %d: %w", change.ID, res.Error)
			}
			if res.RowsAffected == 1 {
				claimed = append(claimed, change)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, change := range claimed {
		err := cm.Sink.Dispatch(ctx, change)
		cm.Metrics.IncChangeDispatched(change.Entity, err)
		if err != nil {
			utils.ErrorLogger.Errorf("Dispatching change %s/%d (%s): %v", change.Entity, change.RecordID, change.Action, err)
		}
		if change.Entity == models.EntityBookings {
			cm.publishBooking(ctx, change)
		}
	}
	return len(claimed), nil
}

func (cm *ChangeMonitor) publishBooking(ctx context.Context, change models.DBChange) {
	eventType := map[string]string{
		models.ActionInsert: events.EventBookingSubmitted,
		models.ActionUpdate: events.EventBookingReviewed,
		models.ActionDelete: events.EventBookingDeleted,
	}[change.Action]
	if eventType == "" {
		return
	}

	payload := BookingEvent{ID: change.RecordID, Email: change.Email}
	if change.Action != models.ActionDelete {
		var b models.Booking
		err := cm.DB.WithContext(ctx).First(&b, change.RecordID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			eventType = events.EventBookingDeleted
		case err != nil:
			utils.ErrorLogger.Errorf("Loading booking %d for event: %v", change.RecordID, err)
			return
		default:
			payload = BookingEvent{ID: b.ID, Email: b.Email, Name: b.Name, Date: b.Date, Time: b.Time, People: b.People, Status: b.Status}
		}
	}

	env, err := events.NewEnvelope(eventType, fmt.Sprintf("booking-%d", change.RecordID), payload)
	if err != nil {
		utils.ErrorLogger.Errorf("Building %s event: %v", eventType, err)
		return
	}
	timeout := cm.PublishTimeout
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := cm.Events.Publish(pctx, fmt.Sprintf("%d", change.RecordID), env); err != nil {
		utils.ErrorLogger.Errorf("Publishing %s for booking %d: %v", eventType, change.RecordID, err)
	}
}

// Prune deletes processed rows older than before.
func (cm *ChangeMonitor) Prune(ctx context.Context, before time.Time) (int64, error) {
	res := cm.DB.WithContext(ctx).
		Where("processed = ? AND changed_at < ?", true, before).
		Delete(&models.DBChange{})
	return res.RowsAffected, res.Error
}

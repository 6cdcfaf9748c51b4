package services

import (
	"context"
	"errors"
	"time"

	"github.com/yeremiapane/restaurant-booking/models"
	"github.com/yeremiapane/restaurant-booking/realtime"
	"github.com/yeremiapane/restaurant-booking/utils"
	"gorm.io/gorm"
)

// Broadcaster is the part of the realtime hub the relay needs.
type Broadcaster interface {
	SendToEmail(email string, evt realtime.Event, skipClientID string) int
	SendToAdmins(evt realtime.Event) int
	SendToClient(clientID string, evt realtime.Event) bool
}

type MessagesSnapshot struct {
	Email    string           `json:"email"`
	Messages []models.Message `json:"messages"`
}

type UnreadCount struct {
	Count int64 `json:"count"`
}

type Toast struct {
	MessageID uint   `json:"message_id"`
	Title     string `json:"title,omitempty"`
	Content   string `json:"content"`
	TTLMillis int    `json:"ttl_ms"`
}

// EntityUpdate tells admins that a row changed. Record is nil on delete.
type EntityUpdate struct {
	Action   string      `json:"action"`
	RecordID uint        `json:"record_id"`
	Record   interface{} `json:"record,omitempty"`
}

// Relay turns change-feed rows into realtime events.
type Relay struct {
	Hub      Broadcaster
	Bookings *BookingService
	Messages *MessageService
	Tables   *TableService

	// Today returns the dashboard's notion of the current date.
	Today func() string
}

func NewRelay(hub Broadcaster, bookings *BookingService, messages *MessageService, tables *TableService) *Relay {
	return &Relay{
		Hub:      hub,
		Bookings: bookings,
		Messages: messages,
		Tables:   tables,
		Today:    func() string { return time.Now().Format(dateLayout) },
	}
}

// Dispatch lets the relay sit directly behind the change monitor.
func (r *Relay) Dispatch(ctx context.Context, change models.DBChange) error {
	return r.Handle(ctx, change)
}

func (r *Relay) Handle(ctx context.Context, change models.DBChange) error {
	switch change.Entity {
	case models.EntityMessages:
		return r.handleMessage(ctx, change)
	case models.EntityBookings:
		return r.handleBooking(ctx, change)
	case models.EntityTables:
		return r.handleTable(ctx, change)
	case models.EntityAdmins:
		r.Hub.SendToAdmins(realtime.Event{
			Event: realtime.EventAdminUpdate,
			Data:  EntityUpdate{Action: change.Action, RecordID: change.RecordID},
		})
		return nil
	default:
		utils.ErrorLogger.Warnf("Ignoring change for unknown entity %q", change.Entity)
		return nil
	}
}

func (r *Relay) handleMessage(ctx context.Context, change models.DBChange) error {
	if change.Email == "" {
		return nil
	}
	conv, err := r.pushConversation(ctx, change.Email, "")
	if err != nil {
		return err
	}

	if change.Action == models.ActionInsert && change.RecordID != 0 {
		var msg models.Message
		err := r.Messages.DB.WithContext(ctx).First(&msg, change.RecordID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
		case err != nil:
			return err
		case msg.IsAdmin:
			toast := Toast{MessageID: msg.ID, Content: msg.Content, TTLMillis: realtime.ToastTTLMillis}
			if msg.Title != nil {
				toast.Title = *msg.Title
			}
			r.Hub.SendToEmail(msg.Email, realtime.Event{Event: realtime.EventToast, Data: toast}, msg.OriginClientID)
		}
	}

	r.Hub.SendToAdmins(realtime.Event{Event: realtime.EventConversationUpdate, Data: conv})
	return r.pushDashboard(ctx)
}

// pushConversation sends the full conversation and unread badge to the
// customer's connections and stamps delivery when at least one received
// it. onlyClient restricts the push to a single connection.
func (r *Relay) pushConversation(ctx context.Context, email, onlyClient string) (MessagesSnapshot, error) {
	msgs, err := r.Messages.Conversation(ctx, email)
	if err != nil {
		return MessagesSnapshot{}, err
	}
	unread, err := r.Messages.UnreadCount(ctx, email)
	if err != nil {
		return MessagesSnapshot{}, err
	}

	snapshot := MessagesSnapshot{Email: email, Messages: msgs}
	snapEvt := realtime.Event{Event: realtime.EventMessagesSnapshot, Data: snapshot}
	unreadEvt := realtime.Event{Event: realtime.EventUnreadCount, Data: UnreadCount{Count: unread}}

	var delivered int
	if onlyClient != "" {
		if r.Hub.SendToClient(onlyClient, snapEvt) {
			delivered = 1
		}
		r.Hub.SendToClient(onlyClient, unreadEvt)
	} else {
		delivered = r.Hub.SendToEmail(email, snapEvt, "")
		r.Hub.SendToEmail(email, unreadEvt, "")
	}

	if delivered > 0 && len(msgs) > 0 {
		if _, err := r.Messages.MarkDelivered(ctx, email, newestID(msgs)); err != nil {
			utils.ErrorLogger.Errorf("Marking messages delivered for %s: %v", email, err)
		}
	}
	return snapshot, nil
}

func newestID(msgs []models.Message) uint {
	var newest uint
	for _, m := range msgs {
		if m.ID > newest {
			newest = m.ID
		}
	}
	return newest
}

func (r *Relay) handleBooking(ctx context.Context, change models.DBChange) error {
	update := EntityUpdate{Action: change.Action, RecordID: change.RecordID}
	if change.Action != models.ActionDelete {
		b, err := r.Bookings.Get(ctx, change.RecordID)
		switch {
		case errors.Is(err, ErrBookingNotFound):
			// Deleted before the change was dispatched.
			update.Action = models.ActionDelete
		case err != nil:
			return err
		default:
			update.Record = b
		}
	}

	evt := realtime.Event{Event: realtime.EventBookingUpdate, Data: update}
	r.Hub.SendToAdmins(evt)
	if change.Email != "" {
		r.Hub.SendToEmail(change.Email, evt, "")
	}
	return r.pushDashboard(ctx)
}

func (r *Relay) handleTable(ctx context.Context, change models.DBChange) error {
	update := EntityUpdate{Action: change.Action, RecordID: change.RecordID}
	if change.Action != models.ActionDelete {
		t, err := r.Tables.Get(ctx, change.RecordID)
		switch {
		case errors.Is(err, ErrTableNotFound):
			update.Action = models.ActionDelete
		case err != nil:
			return err
		default:
			update.Record = t
		}
	}
	r.Hub.SendToAdmins(realtime.Event{Event: realtime.EventTableUpdate, Data: update})
	return r.pushDashboard(ctx)
}

func (r *Relay) pushDashboard(ctx context.Context) error {
	stats, err := r.Bookings.Stats(ctx, r.Today())
	if err != nil {
		return err
	}
	r.Hub.SendToAdmins(realtime.Event{Event: realtime.EventDashboardUpdate, Data: stats})
	return nil
}

// SyncClient brings a freshly connected client up to date.
func (r *Relay) SyncClient(ctx context.Context, clientID, email, role string) error {
	if role == models.RoleAdmin {
		stats, err := r.Bookings.Stats(ctx, r.Today())
		if err != nil {
			return err
		}
		r.Hub.SendToClient(clientID, realtime.Event{Event: realtime.EventDashboardUpdate, Data: stats})
		return nil
	}
	_, err := r.pushConversation(ctx, email, clientID)
	return err
}

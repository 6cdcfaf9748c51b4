package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-booking/database"
	"github.com/yeremiapane/restaurant-booking/events"
	"github.com/yeremiapane/restaurant-booking/models"
	"github.com/yeremiapane/restaurant-booking/realtime"
	"github.com/yeremiapane/restaurant-booking/utils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	utils.SilenceLoggers()
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// createUser inserts a customer account directly.
func createUser(t *testing.T, db *gorm.DB, email string) models.User {
	t.Helper()
	user := models.User{Name: "Staff", Email: email, Password: "x", Role: models.RoleCustomer}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func pendingChanges(t *testing.T, db *gorm.DB) []models.DBChange {
	t.Helper()
	var changes []models.DBChange
	require.NoError(t, db.Where("processed = ?", false).Order("id ASC").Find(&changes).Error)
	return changes
}

type sentEvent struct {
	Target string
	Skip   string
	Event  realtime.Event
}

// fakeHub records every send. connected lists client ids (for
// SendToClient) and emails (for SendToEmail) that count as delivered.
type fakeHub struct {
	mu        sync.Mutex
	sent      []sentEvent
	connected map[string]bool
}

func newFakeHub(connected ...string) *fakeHub {
	h := &fakeHub{connected: map[string]bool{}}
	for _, c := range connected {
		h.connected[c] = true
	}
	return h
}

func (h *fakeHub) SendToEmail(email string, evt realtime.Event, skip string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, sentEvent{Target: "email:" + email, Skip: skip, Event: evt})
	if h.connected[email] {
		return 1
	}
	return 0
}

func (h *fakeHub) SendToAdmins(evt realtime.Event) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, sentEvent{Target: "admins", Event: evt})
	return 1
}

func (h *fakeHub) SendToClient(id string, evt realtime.Event) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, sentEvent{Target: "client:" + id, Event: evt})
	return h.connected[id]
}

func (h *fakeHub) named(name string) []sentEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []sentEvent
	for _, s := range h.sent {
		if s.Event.Event == name {
			out = append(out, s)
		}
	}
	return out
}

type fakeNotifier struct {
	got chan models.Booking
}

func (n *fakeNotifier) NotifyBookingSubmitted(_ context.Context, b models.Booking) error {
	n.got <- b
	return nil
}

type recordingPublisher struct {
	mu   sync.Mutex
	envs []events.Envelope
	keys []string
}

func (p *recordingPublisher) Publish(_ context.Context, key string, env events.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	p.envs = append(p.envs, env)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type recordingSink struct {
	changes []models.DBChange
}

func (s *recordingSink) Dispatch(_ context.Context, c models.DBChange) error {
	s.changes = append(s.changes, c)
	return nil
}

var validInput = BookingInput{Date: "2026-03-14", Time: "19:30", People: 4, Phone: "+1 555 0100"}

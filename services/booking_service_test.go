package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-booking/models"
)

func TestSubmitCreatesPendingBooking(t *testing.T) {
	db := openTestDB(t)
	notifier := &fakeNotifier{got: make(chan models.Booking, 1)}
	svc := NewBookingService(db, notifier, nil, nil)

	b, replayed, err := svc.Submit(context.Background(), Customer{Email: "Ann@Example.com"}, validInput, "")
	require.NoError(t, err)

	assert.False(t, replayed)
	assert.NotZero(t, b.ID)
	assert.Equal(t, models.BookingPending, b.Status)
	assert.Equal(t, "ann@example.com", b.Email)
	assert.Equal(t, "Guest", b.Name)
	assert.False(t, b.CreatedAt.IsZero())

	changes := pendingChanges(t, db)
	require.Len(t, changes, 1)
	assert.Equal(t, models.EntityBookings, changes[0].Entity)
	assert.Equal(t, models.ActionInsert, changes[0].Action)
	assert.Equal(t, b.ID, changes[0].RecordID)

	select {
	case got := <-notifier.got:
		assert.Equal(t, b.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("notifier was not called")
	}
}

func TestSubmitValidation(t *testing.T) {
	db := openTestDB(t)
	svc := NewBookingService(db, nil, nil, nil)
	cust := Customer{Email: "ann@example.com", Name: "Ann"}

	cases := map[string]BookingInput{
		"bad date":    {Date: "14/03/2026", Time: "19:30", People: 2, Phone: "1"},
		"bad time":    {Date: "2026-03-14", Time: "7pm", People: 2, Phone: "1"},
		"zero people": {Date: "2026-03-14", Time: "19:30", People: 0, Phone: "1"},
		"too many":    {Date: "2026-03-14", Time: "19:30", People: 21, Phone: "1"},
		"no phone":    {Date: "2026-03-14", Time: "19:30", People: 2, Phone: "  "},
	}
	for name, in := range cases {
		_, _, err := svc.Submit(context.Background(), cust, in, "")
		assert.ErrorIs(t, err, ErrValidation, name)
	}

	_, _, err := svc.Submit(context.Background(), Customer{}, validInput, "")
	assert.ErrorIs(t, err, ErrValidation)

	var n int64
	db.Model(&models.Booking{}).Count(&n)
	assert.Zero(t, n)
}

func TestSubmitAcceptsPartySizeBounds(t *testing.T) {
	db := openTestDB(t)
	svc := NewBookingService(db, nil, nil, nil)

	for _, people := range []int{1, 20} {
		in := validInput
		in.People = people
		_, _, err := svc.Submit(context.Background(), Customer{Email: "a@example.com"}, in, "")
		assert.NoError(t, err)
	}
}

func TestSubmitWithoutKeyDoesNotDeduplicate(t *testing.T) {
	db := openTestDB(t)
	svc := NewBookingService(db, nil, nil, nil)
	cust := Customer{Email: "ann@example.com", Name: "Ann"}

	first, _, err := svc.Submit(context.Background(), cust, validInput, "")
	require.NoError(t, err)
	second, _, err := svc.Submit(context.Background(), cust, validInput, "")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
}

func TestSubmitIdempotencyKeyReplays(t *testing.T) {
	db := openTestDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	svc := NewBookingService(db, nil, NewRedisIdempotency(rdb, time.Hour), nil)
	cust := Customer{Email: "ann@example.com", Name: "Ann"}

	first, replayed, err := svc.Submit(context.Background(), cust, validInput, "key-1")
	require.NoError(t, err)
	assert.False(t, replayed)

	again, replayed, err := svc.Submit(context.Background(), cust, validInput, "key-1")
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, first.ID, again.ID)

	other, _, err := svc.Submit(context.Background(), cust, validInput, "key-2")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)

	assert.True(t, mr.Exists("idem:booking:create:ann@example.com:key-1"))
	assert.Equal(t, time.Hour, mr.TTL("idem:booking:create:ann@example.com:key-1"))
}

func seedBooking(t *testing.T, svc *BookingService, email, name string) *models.Booking {
	t.Helper()
	b, _, err := svc.Submit(context.Background(), Customer{Email: email, Name: name}, validInput, "")
	require.NoError(t, err)
	return b
}

func TestReviewApprovesAndNotifiesInOneStep(t *testing.T) {
	db := openTestDB(t)
	svc := NewBookingService(db, nil, nil, nil)
	b := seedBooking(t, svc, "dana@example.com", "Dana")

	updated, msg, err := svc.Review(context.Background(), b.ID, models.BookingApproved)
	require.NoError(t, err)
	require.NotNil(t, msg)

	assert.Equal(t, models.BookingApproved, updated.Status)
	assert.Equal(t, "dana@example.com", msg.Email)
	assert.True(t, msg.IsAdmin)
	assert.False(t, msg.Read)
	assert.Equal(t, "Booking Approved!", *msg.Title)
	assert.Equal(t, "Hi Dana, your table for 4 pax on 2026-03-14 at 19:30 has been approved.", msg.Content)

	var stored models.Booking
	require.NoError(t, db.First(&stored, b.ID).Error)
	assert.Equal(t, models.BookingApproved, stored.Status)

	var entities []string
	for _, c := range pendingChanges(t, db) {
		entities = append(entities, c.Entity+":"+c.Action)
	}
	assert.Equal(t, []string{"bookings:INSERT", "bookings:UPDATE", "messages:INSERT"}, entities)
}

func TestReviewSameStatusTwiceCreatesOneMessage(t *testing.T) {
	db := openTestDB(t)
	svc := NewBookingService(db, nil, nil, nil)
	b := seedBooking(t, svc, "dana@example.com", "Dana")

	_, first, err := svc.Review(context.Background(), b.ID, models.BookingRejected)
	require.NoError(t, err)
	require.NotNil(t, first)

	again, second, err := svc.Review(context.Background(), b.ID, models.BookingRejected)
	require.NoError(t, err)
	assert.Nil(t, second)
	assert.Equal(t, models.BookingRejected, again.Status)

	var n int64
	db.Model(&models.Message{}).Where("email = ?", "dana@example.com").Count(&n)
	assert.Equal(t, int64(1), n)
}

func TestReviewConflictingTransition(t *testing.T) {
	db := openTestDB(t)
	svc := NewBookingService(db, nil, nil, nil)
	b := seedBooking(t, svc, "dana@example.com", "Dana")

	_, _, err := svc.Review(context.Background(), b.ID, models.BookingApproved)
	require.NoError(t, err)

	_, _, err = svc.Review(context.Background(), b.ID, models.BookingRejected)
	assert.ErrorIs(t, err, ErrBookingNotPending)

	var stored models.Booking
	require.NoError(t, db.First(&stored, b.ID).Error)
	assert.Equal(t, models.BookingApproved, stored.Status)
}

func TestReviewErrors(t *testing.T) {
	db := openTestDB(t)
	svc := NewBookingService(db, nil, nil, nil)
	b := seedBooking(t, svc, "dana@example.com", "Dana")

	_, _, err := svc.Review(context.Background(), 999, models.BookingApproved)
	assert.ErrorIs(t, err, ErrBookingNotFound)

	_, _, err = svc.Review(context.Background(), b.ID, models.BookingPending)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestReviewRollsBackWhenMessageInsertFails(t *testing.T) {
	db := openTestDB(t)
	svc := NewBookingService(db, nil, nil, nil)
	b := seedBooking(t, svc, "dana@example.com", "Dana")

	require.NoError(t, db.Migrator().DropTable(&models.Message{}))

	_, _, err := svc.Review(context.Background(), b.ID, models.BookingApproved)
	require.Error(t, err)

	var stored models.Booking
	require.NoError(t, db.First(&stored, b.ID).Error)
	assert.Equal(t, models.BookingPending, stored.Status)
}

func TestListForCustomerNewestFirst(t *testing.T) {
	db := openTestDB(t)
	svc := NewBookingService(db, nil, nil, nil)
	older := seedBooking(t, svc, "ann@example.com", "Ann")
	newer := seedBooking(t, svc, "ann@example.com", "Ann")
	seedBooking(t, svc, "bob@example.com", "Bob")

	list, err := svc.ListForCustomer(context.Background(), "ANN@example.com")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)
}

func TestListAllFilters(t *testing.T) {
	db := openTestDB(t)
	svc := NewBookingService(db, nil, nil, nil)
	ann := seedBooking(t, svc, "ann@example.com", "Ann Lee")
	seedBooking(t, svc, "bob@example.com", "Bob")
	_, _, err := svc.Review(context.Background(), ann.ID, models.BookingApproved)
	require.NoError(t, err)

	all, err := svc.ListAll(context.Background(), BookingFilter{Status: "All"})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	approved, err := svc.ListAll(context.Background(), BookingFilter{Status: "approved"})
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, ann.ID, approved[0].ID)

	byName, err := svc.ListAll(context.Background(), BookingFilter{Search: "LEE"})
	require.NoError(t, err)
	assert.Len(t, byName, 1)

	byEmail, err := svc.ListAll(context.Background(), BookingFilter{Search: "bob@"})
	require.NoError(t, err)
	assert.Len(t, byEmail, 1)

	_, err = svc.ListAll(context.Background(), BookingFilter{Status: "Cancelled"})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestListAllSearchMatchesWildcardsLiterally(t *testing.T) {
	db := openTestDB(t)
	svc := NewBookingService(db, nil, nil, nil)
	under := seedBooking(t, svc, "ann_lee@example.com", "Ann")
	seedBooking(t, svc, "bob@example.com", "Bob")
	pct := seedBooking(t, svc, "cat@example.com", "Cat 100%")

	underscore, err := svc.ListAll(context.Background(), BookingFilter{Search: "_"})
	require.NoError(t, err)
	require.Len(t, underscore, 1)
	assert.Equal(t, under.ID, underscore[0].ID)

	percent, err := svc.ListAll(context.Background(), BookingFilter{Search: "%"})
	require.NoError(t, err)
	require.Len(t, percent, 1)
	assert.Equal(t, pct.ID, percent[0].ID)

	none, err := svc.ListAll(context.Background(), BookingFilter{Search: "b_b"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDeleteChecksOwner(t *testing.T) {
	db := openTestDB(t)
	svc := NewBookingService(db, nil, nil, nil)
	b := seedBooking(t, svc, "ann@example.com", "Ann")

	assert.ErrorIs(t, svc.Delete(context.Background(), b.ID, "bob@example.com"), ErrForbidden)
	require.NoError(t, svc.Delete(context.Background(), b.ID, "ann@example.com"))
	assert.ErrorIs(t, svc.Delete(context.Background(), b.ID, ""), ErrBookingNotFound)

	changes := pendingChanges(t, db)
	last := changes[len(changes)-1]
	assert.Equal(t, models.ActionDelete, last.Action)
	assert.Equal(t, "ann@example.com", last.Email)
}

func TestClearHistoryOnlyTouchesCaller(t *testing.T) {
	db := openTestDB(t)
	svc := NewBookingService(db, nil, nil, nil)
	seedBooking(t, svc, "ann@example.com", "Ann")
	seedBooking(t, svc, "ann@example.com", "Ann")
	seedBooking(t, svc, "bob@example.com", "Bob")

	n, err := svc.ClearHistory(context.Background(), "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var left []models.Booking
	require.NoError(t, db.Find(&left).Error)
	require.Len(t, left, 1)
	assert.Equal(t, "bob@example.com", left[0].Email)

	n, err = svc.ClearHistory(context.Background(), "ann@example.com")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStats(t *testing.T) {
	db := openTestDB(t)
	svc := NewBookingService(db, nil, nil, nil)
	a := seedBooking(t, svc, "ann@example.com", "Ann")
	seedBooking(t, svc, "bob@example.com", "Bob")
	_, _, err := svc.Review(context.Background(), a.ID, models.BookingApproved)
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.Table{Number: 1, Name: "T1", Floor: "Ground", Seats: 2, Status: models.TableOccupied}).Error)
	require.NoError(t, db.Create(&models.Message{Email: "bob@example.com", Content: "hello"}).Error)

	stats, err := svc.Stats(context.Background(), validInput.Date)
	require.NoError(t, err)

	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(2), stats.Today)
	assert.Equal(t, int64(1), stats.Pending)
	assert.Equal(t, int64(1), stats.Approved)
	assert.Zero(t, stats.Rejected)
	assert.Equal(t, int64(1), stats.Tables.Occupied)
	assert.Equal(t, int64(1), stats.UnreadMessages)
}

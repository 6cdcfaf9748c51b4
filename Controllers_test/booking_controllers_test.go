package Controllers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/restaurant-booking/models"
	"github.com/yeremiapane/restaurant-booking/services"
)

func submitBooking(t *testing.T, app *testApp, token string) models.Booking {
	t.Helper()
	w := app.do(http.MethodPost, "/bookings", token, bookingBody)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var booking models.Booking
	decodeEnvelope(t, w, &booking)
	return booking
}

func TestCreateBooking(t *testing.T) {
	app := setupApp(t)
	token := app.register("Lina", "lina@example.com")

	booking := submitBooking(t, app, token)
	assert.NotZero(t, booking.ID)
	assert.Equal(t, models.BookingPending, booking.Status)
	assert.Equal(t, "lina@example.com", booking.Email)
	assert.Equal(t, "Lina", booking.Name)
	assert.Equal(t, 4, booking.People)
	assert.False(t, booking.CreatedAt.IsZero())

	var stored models.Booking
	require.NoError(t, app.DB.First(&stored, booking.ID).Error)
	assert.Equal(t, models.BookingPending, stored.Status)
}

func TestCreateBookingValidation(t *testing.T) {
	app := setupApp(t)
	token := app.register("Lina", "lina@example.com")

	invalid := []map[string]interface{}{
		{"date": "2026-03-14", "time": "19:30", "people": 0, "phone": "1"},
		{"date": "2026-03-14", "time": "19:30", "people": 21, "phone": "1"},
		{"date": "14/03/2026", "time": "19:30", "people": 2, "phone": "1"},
		{"date": "2026-03-14", "time": "7pm", "people": 2, "phone": "1"},
		{"date": "2026-03-14", "time": "19:30", "people": 2, "phone": ""},
	}
	for _, body := range invalid {
		w := app.do(http.MethodPost, "/bookings", token, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}

	var count int64
	app.DB.Model(&models.Booking{}).Count(&count)
	assert.Zero(t, count)
}

func TestBookingsRequireLogin(t *testing.T) {
	app := setupApp(t)

	w := app.do(http.MethodPost, "/bookings", "", bookingBody)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	var data struct {
		LoginURL string `json:"login_url"`
	}
	decodeEnvelope(t, w, &data)
	assert.Equal(t, "/auth/login?next=/booking", data.LoginURL)
}

func TestCreateBookingWithoutIdempotencyDuplicates(t *testing.T) {
	app := setupApp(t)
	token := app.register("Lina", "lina@example.com")

	first := submitBooking(t, app, token)
	second := submitBooking(t, app, token)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestCreateBookingIdempotencyKey(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	app := setupApp(t, withIdempotency(services.NewRedisIdempotency(rdb, time.Hour)))
	token := app.register("Lina", "lina@example.com")

	w := app.do(http.MethodPost, "/bookings", token, bookingBody, "Idempotency-Key", "abc-123")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var first models.Booking
	decodeEnvelope(t, w, &first)

	w = app.do(http.MethodPost, "/bookings", token, bookingBody, "Idempotency-Key", "abc-123")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var replay models.Booking
	decodeEnvelope(t, w, &replay)
	assert.Equal(t, first.ID, replay.ID)

	w = app.do(http.MethodPost, "/bookings", token, bookingBody, "Idempotency-Key", "other")
	assert.Equal(t, http.StatusCreated, w.Code)

	var count int64
	app.DB.Model(&models.Booking{}).Count(&count)
	assert.Equal(t, int64(2), count)
}

func TestGetMyBookingsNewestFirst(t *testing.T) {
	app := setupApp(t)
	lina := app.register("Lina", "lina@example.com")
	other := app.register("Omar", "omar@example.com")

	first := submitBooking(t, app, lina)
	second := submitBooking(t, app, lina)
	submitBooking(t, app, other)

	w := app.do(http.MethodGet, "/bookings", lina, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var bookings []models.Booking
	decodeEnvelope(t, w, &bookings)
	require.Len(t, bookings, 2)
	assert.Equal(t, second.ID, bookings[0].ID)
	assert.Equal(t, first.ID, bookings[1].ID)
}

func TestDeleteBookingOwnerOnly(t *testing.T) {
	app := setupApp(t)
	lina := app.register("Lina", "lina@example.com")
	other := app.register("Omar", "omar@example.com")
	booking := submitBooking(t, app, lina)

	w := app.do(http.MethodDelete, "/bookings/"+itoa(booking.ID), other, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.do(http.MethodDelete, "/bookings/"+itoa(booking.ID), lina, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = app.do(http.MethodDelete, "/bookings/"+itoa(booking.ID), lina, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(http.MethodDelete, "/bookings/abc", lina, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClearHistory(t *testing.T) {
	app := setupApp(t)
	lina := app.register("Lina", "lina@example.com")
	other := app.register("Omar", "omar@example.com")
	submitBooking(t, app, lina)
	submitBooking(t, app, lina)
	submitBooking(t, app, other)

	w := app.do(http.MethodDelete, "/bookings", lina, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var data struct {
		Deleted int `json:"deleted"`
	}
	decodeEnvelope(t, w, &data)
	assert.Equal(t, 2, data.Deleted)

	var remaining int64
	app.DB.Model(&models.Booking{}).Count(&remaining)
	assert.Equal(t, int64(1), remaining)
}

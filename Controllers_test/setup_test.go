package Controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeremiapane/restaurant-booking/catalog"
	"github.com/yeremiapane/restaurant-booking/database"
	"github.com/yeremiapane/restaurant-booking/metrics"
	"github.com/yeremiapane/restaurant-booking/middlewares"
	"github.com/yeremiapane/restaurant-booking/realtime"
	"github.com/yeremiapane/restaurant-booking/router"
	"github.com/yeremiapane/restaurant-booking/services"
	"github.com/yeremiapane/restaurant-booking/utils"
)

const (
	adminEmail    = "admin@restaurant.test"
	adminPassword = "admin-secret"
)

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testApp struct {
	t       *testing.T
	DB      *gorm.DB
	Router  *gin.Engine
	Hub     *realtime.Hub
	Monitor *services.ChangeMonitor
	Deps    router.Dependencies
}

type appOption func(*router.Dependencies)

func withIdempotency(store services.IdempotencyStore) appOption {
	return func(d *router.Dependencies) {
		d.Bookings = services.NewBookingService(d.Bookings.DB, nil, store, d.Metrics)
	}
}

// setupApp wires the full router on a private in-memory database with the
// bootstrap admin seeded.
func setupApp(t *testing.T, opts ...appOption) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	utils.SilenceLoggers()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection serialises concurrent writers instead of failing
	// with a locked table.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.SeedAdmin(db, adminEmail, "Admin", adminPassword))

	m := metrics.New(prometheus.NewRegistry(), "test")
	menu, err := catalog.Default()
	require.NoError(t, err)

	deps := router.Dependencies{
		Users:       services.NewUserService(db),
		Admins:      services.NewAdminService(db),
		Bookings:    services.NewBookingService(db, nil, nil, m),
		Messages:    services.NewMessageService(db, m),
		Tables:      services.NewTableService(db),
		Hub:         realtime.NewHub(),
		Catalog:     menu,
		Metrics:     m,
		CORSOrigins: []string{"http://localhost:3000"},
		AuthLimiter: middlewares.NewRateLimiter(1000, time.Second),
	}
	for _, opt := range opts {
		opt(&deps)
	}
	deps.Relay = services.NewRelay(deps.Hub, deps.Bookings, deps.Messages, deps.Tables)

	return &testApp{
		t:       t,
		DB:      db,
		Router:  router.SetupRouter(deps),
		Hub:     deps.Hub,
		Monitor: services.NewChangeMonitor(db, deps.Relay, nil, m, time.Millisecond),
		Deps:    deps,
	}
}

func (a *testApp) do(method, path, token string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(a.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if data != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

// register creates a customer and returns its token.
func (a *testApp) register(name, email string) string {
	a.t.Helper()
	w := a.do(http.MethodPost, "/register", "", map[string]string{
		"name": name, "email": email, "password": "password1",
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	var data struct {
		Token string `json:"token"`
	}
	decodeEnvelope(a.t, w, &data)
	return data.Token
}

func (a *testApp) adminToken() string {
	a.t.Helper()
	w := a.do(http.MethodPost, "/login", "", map[string]string{"email": adminEmail, "password": adminPassword})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	var data struct {
		Token string `json:"token"`
	}
	decodeEnvelope(a.t, w, &data)
	return data.Token
}

func (a *testApp) flushChanges() {
	a.t.Helper()
	_, err := a.Monitor.ProcessPending(a.t.Context())
	require.NoError(a.t, err)
}

var bookingBody = map[string]interface{}{
	"date": "2026-03-14", "time": "19:30", "people": 4, "phone": "+1 555 0100",
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

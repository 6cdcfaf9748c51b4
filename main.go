package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/yeremiapane/restaurant-booking/catalog"
	"github.com/yeremiapane/restaurant-booking/config"
	"github.com/yeremiapane/restaurant-booking/database"
	"github.com/yeremiapane/restaurant-booking/events"
	"github.com/yeremiapane/restaurant-booking/metrics"
	"github.com/yeremiapane/restaurant-booking/middlewares"
	"github.com/yeremiapane/restaurant-booking/notification"
	"github.com/yeremiapane/restaurant-booking/realtime"
	"github.com/yeremiapane/restaurant-booking/router"
	"github.com/yeremiapane/restaurant-booking/services"
	"github.com/yeremiapane/restaurant-booking/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		utils.InfoLogger.Println("Warning: .env file not found")
	}

	cfg := config.Load()
	utils.SetLogLevel(cfg.LogLevel)
	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
		if cfg.JWTSecret == "" {
			utils.ErrorLogger.Fatal("JWT_SECRET must be set in release mode")
		}
	}
	utils.ConfigureJWT(cfg.JWTSecret, cfg.JWTTTL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := config.InitDB(cfg)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
	}
	if err := database.SeedAdmin(db, cfg.AdminEmail, cfg.AdminName, cfg.AdminPassword); err != nil {
		utils.ErrorLogger.Fatalf("Failed to seed admin: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg, "restaurant_booking")

	rdb, err := config.InitRedis(ctx, cfg)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to redis: %v", err)
	}

	publisher := events.New(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer publisher.Close()

	var notifier services.BookingNotifier
	if tg, err := notification.NewFromToken(cfg.TelegramBotToken, cfg.TelegramChatID); err != nil {
		utils.ErrorLogger.Errorf("Telegram notifier disabled: %v", err)
	} else if tg != nil {
		notifier = tg
	}

	var idem services.IdempotencyStore
	if rdb != nil {
		idem = services.NewRedisIdempotency(rdb, cfg.IdempotencyTTL)
	}

	users := services.NewUserService(db)
	admins := services.NewAdminService(db)
	bookings := services.NewBookingService(db, notifier, idem, m)
	messages := services.NewMessageService(db, m)
	tables := services.NewTableService(db)

	hub := realtime.NewHub()
	hub.OnCountChange = m.SetWebsocketClients
	relay := services.NewRelay(hub, bookings, messages, tables)

	// With redis every instance receives every change and pushes to its
	// own clients; without it the monitor feeds the local hub directly.
	var sink services.ChangeSink = relay
	if rdb != nil {
		bridge := realtime.NewRedisBridge(rdb)
		ps, err := bridge.Subscribe(ctx)
		if err != nil {
			utils.ErrorLogger.Fatalf("Failed to subscribe to change channel: %v", err)
		}
		go bridge.Serve(ctx, ps, relay.Handle)
		sink = bridge
	}

	monitor := services.NewChangeMonitor(db, sink, publisher, m, cfg.ChangePollInterval)
	monitor.Start()
	defer monitor.Stop()

	menu, err := catalog.Default()
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to load menu: %v", err)
	}

	authLimiter := middlewares.NewStrictRateLimiter()
	apiLimiter := middlewares.NewRateLimiter(50, time.Second)
	go authLimiter.Cleanup(time.Minute, ctx.Done())
	go apiLimiter.Cleanup(time.Minute, ctx.Done())
	go utils.CleanupBlacklist(time.Hour, ctx.Done())

	r := router.SetupRouter(router.Dependencies{
		Users:       users,
		Admins:      admins,
		Bookings:    bookings,
		Messages:    messages,
		Tables:      tables,
		Relay:       relay,
		Hub:         hub,
		Catalog:     menu,
		Metrics:     m,
		CORSOrigins: cfg.CORSOrigins,
		AuthLimiter: authLimiter,
		APILimiter:  apiLimiter,
	})
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		utils.ErrorLogger.Warnf("Setting trusted proxies: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		utils.InfoLogger.Printf("Listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.ErrorLogger.Fatal(err)
		}
	}()

	<-ctx.Done()
	utils.InfoLogger.Println("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.ErrorLogger.Errorf("Server shutdown: %v", err)
	}
	if rdb != nil {
		rdb.Close()
	}
}

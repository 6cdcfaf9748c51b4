package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-booking/catalog"
	"github.com/yeremiapane/restaurant-booking/controllers"
	"github.com/yeremiapane/restaurant-booking/metrics"
	"github.com/yeremiapane/restaurant-booking/middlewares"
	"github.com/yeremiapane/restaurant-booking/models"
	"github.com/yeremiapane/restaurant-booking/realtime"
	"github.com/yeremiapane/restaurant-booking/services"
)

// Dependencies are the wired services the HTTP layer serves.
type Dependencies struct {
	Users    *services.UserService
	Admins   *services.AdminService
	Bookings *services.BookingService
	Messages *services.MessageService
	Tables   *services.TableService
	Relay    *services.Relay
	Hub      *realtime.Hub
	Catalog  *catalog.Catalog
	Metrics  *metrics.Metrics

	CORSOrigins []string

	// AuthLimiter guards login and register. Nil uses the strict default.
	AuthLimiter *middlewares.RateLimiter
	// APILimiter applies to every route. Nil disables it.
	APILimiter *middlewares.RateLimiter
}

func SetupRouter(d Dependencies) *gin.Engine {
	r := gin.New()

	r.Use(middlewares.LoggerMiddleware(d.Metrics))
	r.Use(middlewares.RecoveryMiddleware())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(d.CORSOrigins))
	if d.APILimiter != nil {
		r.Use(d.APILimiter.RateLimit())
	}

	userCtrl := controllers.NewUserController(d.Users)
	bookingCtrl := controllers.NewBookingController(d.Bookings)
	adminCtrl := controllers.NewAdminController(d.Bookings, d.Admins)
	tableCtrl := controllers.NewTableController(d.Tables)
	messageCtrl := controllers.NewMessageController(d.Messages)
	menuCtrl := controllers.NewMenuController(d.Catalog)
	realtimeCtrl := controllers.NewRealtimeController(d.Hub, d.Relay, d.CORSOrigins)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	authLimiter := d.AuthLimiter
	if authLimiter == nil {
		authLimiter = middlewares.NewStrictRateLimiter()
	}
	public := r.Group("/")
	public.Use(authLimiter.RateLimit())
	{
		public.POST("/register", userCtrl.Register)
		public.POST("/login", userCtrl.Login)
	}

	r.GET("/menus", menuCtrl.GetMenus)
	r.GET("/menus/categories", menuCtrl.GetCategories)
	r.GET("/menus/:menu_id", menuCtrl.GetMenuByID)

	r.GET("/ws", middlewares.WebSocketAuthMiddleware(d.Users), realtimeCtrl.Connect)

	// ----------------------------------------------------------------
	//                      AUTHENTICATED ROUTES
	// ----------------------------------------------------------------
	auth := r.Group("/")
	auth.Use(middlewares.AuthMiddleware(d.Users, ""))
	{
		auth.POST("/logout", userCtrl.Logout)
		auth.GET("/profile", userCtrl.GetProfile)
		auth.PATCH("/profile", userCtrl.UpdateProfile)

		auth.GET("/messages", messageCtrl.GetMyMessages)
		auth.POST("/messages", messageCtrl.SendMessage)
		auth.POST("/messages/read", messageCtrl.MarkRead)
		auth.GET("/messages/unread-count", messageCtrl.GetUnreadCount)
	}

	// Booking pages send visitors back to /booking after login.
	bookings := r.Group("/bookings")
	bookings.Use(middlewares.AuthMiddleware(d.Users, "/booking"))
	{
		bookings.POST("", bookingCtrl.CreateBooking)
		bookings.GET("", bookingCtrl.GetMyBookings)
		bookings.DELETE("", bookingCtrl.ClearHistory)
		bookings.DELETE("/:id", bookingCtrl.DeleteBooking)
	}

	// ----------------------------------------------------------------
	//                      ADMIN ROUTES
	// ----------------------------------------------------------------
	admin := r.Group("/admin")
	admin.Use(middlewares.AuthMiddleware(d.Users, "/admin"), middlewares.RequireRole(models.RoleAdmin))
	{
		admin.GET("/bookings", adminCtrl.GetAllBookings)
		admin.GET("/bookings/:id", adminCtrl.GetBookingByID)
		admin.PATCH("/bookings/:id/status", middlewares.ReviewLoggerMiddleware(), adminCtrl.ReviewBooking)
		admin.DELETE("/bookings/:id", adminCtrl.DeleteBooking)

		admin.GET("/dashboard/stats", adminCtrl.GetDashboardStats)
		admin.GET("/reports/bookings.xlsx", adminCtrl.ExportBookings)

		admin.GET("/tables", tableCtrl.GetAllTables)
		admin.POST("/tables", tableCtrl.CreateTable)
		admin.GET("/tables/:table_id", tableCtrl.GetTableByID)
		admin.PUT("/tables/:table_id", tableCtrl.UpdateTable)
		admin.PATCH("/tables/:table_id/status", tableCtrl.UpdateTableStatus)
		admin.DELETE("/tables/:table_id", tableCtrl.DeleteTable)

		admin.GET("/admins", adminCtrl.GetAdmins)
		admin.POST("/admins", adminCtrl.AddAdmin)
		admin.DELETE("/admins/:id", adminCtrl.RemoveAdmin)

		admin.GET("/messages/conversations", messageCtrl.GetConversations)
		admin.GET("/messages/:email", messageCtrl.GetConversation)
		admin.POST("/messages/:email", messageCtrl.Reply)
		admin.POST("/messages/:email/read", messageCtrl.MarkConversationRead)
	}

	return r
}

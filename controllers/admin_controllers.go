package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-booking/models"
	"github.com/yeremiapane/restaurant-booking/services"
	"github.com/yeremiapane/restaurant-booking/utils"
)

// AdminController serves booking review, the dashboard and the admin
// allow-list.
type AdminController struct {
	Bookings *services.BookingService
	Admins   *services.AdminService

	// Now is replaceable in tests.
	Now func() time.Time
}

func NewAdminController(bookings *services.BookingService, admins *services.AdminService) *AdminController {
	return &AdminController{Bookings: bookings, Admins: admins, Now: time.Now}
}

func (ac *AdminController) GetAllBookings(c *gin.Context) {
	bookings, err := ac.Bookings.ListAll(c.Request.Context(), services.BookingFilter{
		Search: c.Query("search"),
		Status: c.Query("status"),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of bookings", bookings)
}

func (ac *AdminController) GetBookingByID(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	booking, err := ac.Bookings.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Booking detail", booking)
}

// ReviewBooking approves or rejects a pending booking. The customer notice
// is written in the same transaction.
func (ac *AdminController) ReviewBooking(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var body struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	status, ok := models.ParseBookingStatus(body.Status)
	if !ok {
		utils.RespondError(c, http.StatusBadRequest, services.ErrInvalidStatus)
		return
	}

	booking, notice, err := ac.Bookings.Review(c.Request.Context(), id, status)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	message := "Booking " + strings.ToLower(string(booking.Status))
	if notice == nil {
		message = "Booking already " + strings.ToLower(string(booking.Status))
	}
	utils.RespondJSON(c, http.StatusOK, message, gin.H{
		"booking": booking,
		"message": notice,
	})
}

func (ac *AdminController) DeleteBooking(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := ac.Bookings.Delete(c.Request.Context(), id, ""); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Booking deleted", gin.H{"id": id})
}

func (ac *AdminController) GetDashboardStats(c *gin.Context) {
	today := ac.Now().Format("2006-01-02")
	stats, err := ac.Bookings.Stats(c.Request.Context(), today)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Dashboard stats", stats)
}

// ExportBookings streams the filtered booking list as an xlsx file.
func (ac *AdminController) ExportBookings(c *gin.Context) {
	bookings, err := ac.Bookings.ListAll(c.Request.Context(), services.BookingFilter{
		Search: c.Query("search"),
		Status: c.Query("status"),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	f, err := services.BookingsWorkbook(bookings)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	defer f.Close()

	filename := fmt.Sprintf("bookings-%s.xlsx", ac.Now().Format("20060102"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		utils.ErrorLogger.Errorf("Writing bookings export: %v", err)
	}
}

func (ac *AdminController) GetAdmins(c *gin.Context) {
	admins, err := ac.Admins.List(c.Request.Context(), c.Query("search"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of admins", admins)
}

func (ac *AdminController) AddAdmin(c *gin.Context) {
	var body struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	admin, err := ac.Admins.Add(c.Request.Context(), body.Email)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.InfoLogger.Printf("Admin added: %s by %s", admin.Email, currentEmail(c))
	utils.RespondJSON(c, http.StatusCreated, "Admin added", admin)
}

func (ac *AdminController) RemoveAdmin(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := ac.Admins.Remove(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Admin removed", gin.H{"id": id})
}

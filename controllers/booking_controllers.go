package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-booking/middlewares"
	"github.com/yeremiapane/restaurant-booking/services"
	"github.com/yeremiapane/restaurant-booking/utils"
)

const HeaderIdempotencyKey = "Idempotency-Key"

// BookingController serves the customer's own bookings.
type BookingController struct {
	Bookings *services.BookingService
}

func NewBookingController(bookings *services.BookingService) *BookingController {
	return &BookingController{Bookings: bookings}
}

func (bc *BookingController) CreateBooking(c *gin.Context) {
	var req services.BookingInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	cust := services.Customer{Email: currentEmail(c)}
	if user, ok := middlewares.CurrentUser(c); ok {
		cust.Name = user.Name
	}

	booking, replayed, err := bc.Bookings.Submit(c.Request.Context(), cust, req, c.GetHeader(HeaderIdempotencyKey))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if replayed {
		utils.RespondJSON(c, http.StatusOK, "Booking already submitted", booking)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Booking submitted", booking)
}

func (bc *BookingController) GetMyBookings(c *gin.Context) {
	bookings, err := bc.Bookings.ListForCustomer(c.Request.Context(), currentEmail(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Your bookings", bookings)
}

func (bc *BookingController) DeleteBooking(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := bc.Bookings.Delete(c.Request.Context(), id, currentEmail(c)); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Booking deleted", gin.H{"id": id})
}

// ClearHistory deletes every booking of the caller.
func (bc *BookingController) ClearHistory(c *gin.Context) {
	n, err := bc.Bookings.ClearHistory(c.Request.Context(), currentEmail(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Booking history cleared", gin.H{"deleted": n})
}

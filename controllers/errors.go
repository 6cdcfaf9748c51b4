package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-booking/services"
	"github.com/yeremiapane/restaurant-booking/utils"
)

var (
	errInternal     = errors.New("internal server error")
	errMenuNotFound = errors.New("menu not found")
)

// respondServiceError maps service errors to status codes. Unknown errors
// are logged and hidden behind a generic 500.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrInvalidStatus):
		utils.RespondError(c, http.StatusBadRequest, err)
	case errors.Is(err, services.ErrInvalidCredentials):
		utils.RespondError(c, http.StatusUnauthorized, err)
	case errors.Is(err, services.ErrForbidden):
		utils.RespondError(c, http.StatusForbidden, err)
	case errors.Is(err, services.ErrBookingNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrAdminNotFound),
		errors.Is(err, services.ErrTableNotFound):
		utils.RespondError(c, http.StatusNotFound, err)
	case errors.Is(err, services.ErrBookingNotPending),
		errors.Is(err, services.ErrDuplicateAdmin),
		errors.Is(err, services.ErrDuplicateTable),
		errors.Is(err, services.ErrEmailTaken):
		utils.RespondError(c, http.StatusConflict, err)
	default:
		utils.ErrorLogger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		utils.RespondError(c, http.StatusInternalServerError, errInternal)
	}
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid "+name))
		return 0, false
	}
	return uint(id), true
}

package services

import "errors"

var (
	ErrValidation         = errors.New("validation failed")
	ErrBookingNotFound    = errors.New("booking not found")
	ErrBookingNotPending  = errors.New("booking is not pending")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrForbidden          = errors.New("forbidden")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAdminNotFound      = errors.New("admin not found")
	ErrDuplicateAdmin     = errors.New("admin already exists")
	ErrTableNotFound      = errors.New("table not found")
	ErrDuplicateTable     = errors.New("table number already exists")
)

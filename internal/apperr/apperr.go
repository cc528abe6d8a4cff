// Package apperr defines the operational error kinds returned by the domain
// services. Each kind maps to one HTTP status in the transport layer.
package apperr

import (
	"errors"
	"net/http"
)

// Kind names a caller-correctable failure.
type Kind string

const (
	KindUserNotFound              Kind = "USER_NOT_FOUND"
	KindSpotNotFound              Kind = "SPOT_NOT_FOUND"
	KindSpotNotAvailable          Kind = "SPOT_NOT_AVAILABLE"
	KindInvalidDateRange          Kind = "INVALID_DATE_RANGE"
	KindStartInPast               Kind = "START_IN_PAST"
	KindTimeConflict              Kind = "TIME_CONFLICT"
	KindBookingNotFound           Kind = "BOOKING_NOT_FOUND"
	KindClaimNotFound             Kind = "CLAIM_NOT_FOUND"
	KindBookingCannotBeUpdated    Kind = "BOOKING_CANNOT_BE_UPDATED"
	KindBookingNotConfirmed       Kind = "BOOKING_NOT_CONFIRMED"
	KindBookingNotStartedYet      Kind = "BOOKING_NOT_STARTED_YET"
	KindCannotCancelActiveBooking Kind = "CANNOT_CANCEL_ACTIVE_BOOKING"
	KindInvalidStatusTransition   Kind = "INVALID_STATUS_TRANSITION"
	KindForbidden                 Kind = "FORBIDDEN"
	KindUnauthorized              Kind = "UNAUTHORIZED"
	KindDuplicateClaim            Kind = "DUPLICATE_CLAIM"
	KindSpotAlreadyClaimed        Kind = "SPOT_ALREADY_CLAIMED"
	KindAlreadyProcessed          Kind = "ALREADY_PROCESSED"
	KindInvalidClaim              Kind = "INVALID_CLAIM"
	KindInvalidRate               Kind = "INVALID_RATE"
	KindInvalidInput              Kind = "INVALID_INPUT"
	KindBuildingNotFound          Kind = "BUILDING_NOT_FOUND"
	KindSpotNotApproved           Kind = "SPOT_NOT_APPROVED"
	KindSpotAlreadyApproved       Kind = "SPOT_ALREADY_APPROVED"
	KindSpotNumberTaken           Kind = "SPOT_NUMBER_TAKEN"
	KindSpotHasOpenBookings       Kind = "SPOT_HAS_OPEN_BOOKINGS"
	KindEmailTaken                Kind = "EMAIL_TAKEN"
	KindInvalidCredentials        Kind = "INVALID_CREDENTIALS"
)

// Error is a domain error carrying its kind and a human readable message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches any *Error of the same kind, so a sentinel compares equal to an
// error built with New and a more specific message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// New returns an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

var (
	ErrUserNotFound              = New(KindUserNotFound, "user not found")
	ErrSpotNotFound              = New(KindSpotNotFound, "parking spot not found")
	ErrSpotNotAvailable          = New(KindSpotNotAvailable, "parking spot is not available for booking")
	ErrInvalidDateRange          = New(KindInvalidDateRange, "start time must be before end time")
	ErrStartInPast               = New(KindStartInPast, "cannot create booking in the past")
	ErrTimeConflict              = New(KindTimeConflict, "time slot already booked")
	ErrBookingNotFound           = New(KindBookingNotFound, "booking not found")
	ErrClaimNotFound             = New(KindClaimNotFound, "parking claim not found")
	ErrBookingCannotBeUpdated    = New(KindBookingCannotBeUpdated, "only pending or confirmed bookings can be updated")
	ErrBookingNotConfirmed       = New(KindBookingNotConfirmed, "booking must be confirmed before it can start")
	ErrBookingNotStartedYet      = New(KindBookingNotStartedYet, "booking start time has not been reached")
	ErrCannotCancelActiveBooking = New(KindCannotCancelActiveBooking, "cannot cancel an active booking")
	ErrInvalidStatusTransition   = New(KindInvalidStatusTransition, "invalid booking status transition")
	ErrForbidden                 = New(KindForbidden, "permission denied")
	ErrUnauthorized              = New(KindUnauthorized, "authentication required")
	ErrDuplicateClaim            = New(KindDuplicateClaim, "you already have a pending parking claim")
	ErrSpotAlreadyClaimed        = New(KindSpotAlreadyClaimed, "this parking spot has already been claimed")
	ErrAlreadyProcessed          = New(KindAlreadyProcessed, "parking claim has already been processed")
	ErrInvalidClaim              = New(KindInvalidClaim, "floor and spot number are required")
	ErrInvalidRate               = New(KindInvalidRate, "rates must be positive")
	ErrInvalidInput              = New(KindInvalidInput, "invalid input parameters")
	ErrBuildingNotFound          = New(KindBuildingNotFound, "building not found")
	ErrSpotNotApproved           = New(KindSpotNotApproved, "parking spot must be approved before it can be made available")
	ErrSpotAlreadyApproved       = New(KindSpotAlreadyApproved, "parking spot is already approved")
	ErrSpotNumberTaken           = New(KindSpotNumberTaken, "spot number already exists in this building")
	ErrSpotHasOpenBookings       = New(KindSpotHasOpenBookings, "cannot delete parking spot with active bookings")
	ErrEmailTaken                = New(KindEmailTaken, "email is already registered")
	ErrInvalidCredentials        = New(KindInvalidCredentials, "invalid email or password")
)

// KindOf extracts the kind of a domain error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

var statusByKind = map[Kind]int{
	KindUserNotFound:              http.StatusNotFound,
	KindSpotNotFound:              http.StatusNotFound,
	KindBookingNotFound:           http.StatusNotFound,
	KindClaimNotFound:             http.StatusNotFound,
	KindBuildingNotFound:          http.StatusNotFound,
	KindSpotNotAvailable:          http.StatusBadRequest,
	KindInvalidDateRange:          http.StatusBadRequest,
	KindStartInPast:               http.StatusBadRequest,
	KindInvalidClaim:              http.StatusBadRequest,
	KindInvalidRate:               http.StatusBadRequest,
	KindInvalidInput:              http.StatusBadRequest,
	KindBookingCannotBeUpdated:    http.StatusBadRequest,
	KindBookingNotConfirmed:       http.StatusBadRequest,
	KindBookingNotStartedYet:      http.StatusBadRequest,
	KindCannotCancelActiveBooking: http.StatusBadRequest,
	KindInvalidStatusTransition:   http.StatusBadRequest,
	KindSpotNotApproved:           http.StatusBadRequest,
	KindAlreadyProcessed:          http.StatusBadRequest,
	KindTimeConflict:              http.StatusConflict,
	KindDuplicateClaim:            http.StatusConflict,
	KindSpotAlreadyClaimed:        http.StatusConflict,
	KindSpotAlreadyApproved:       http.StatusConflict,
	KindSpotNumberTaken:           http.StatusConflict,
	KindSpotHasOpenBookings:       http.StatusConflict,
	KindEmailTaken:                http.StatusConflict,
	KindForbidden:                 http.StatusForbidden,
	KindUnauthorized:              http.StatusUnauthorized,
	KindInvalidCredentials:        http.StatusUnauthorized,
}

// HTTPStatus maps err to a response status. Errors outside the domain
// taxonomy are infrastructure faults and map to 500.
func HTTPStatus(err error) int {
	kind, ok := KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	if status, found := statusByKind[kind]; found {
		return status
	}
	return http.StatusInternalServerError
}

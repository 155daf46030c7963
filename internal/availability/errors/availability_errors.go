package availabilityerrors

import (
	"net/http"

	"github.com/msdp-platform/msdp-flexstaff/internal/shared/apperror"
)

var (
	ErrSlotNotFound = apperror.New(
		apperror.CodeNotFound,
		"availability slot not found",
		http.StatusNotFound,
	)
	ErrWorkerNotFound = apperror.New(
		apperror.CodeNotFound,
		"worker profile not found",
		http.StatusNotFound,
	)
	ErrInvalidSlotID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid availability slot id",
		http.StatusBadRequest,
	)
	ErrInvalidDateFormat = apperror.New(
		apperror.CodeInvalidInput,
		"date must be YYYY-MM-DD",
		http.StatusBadRequest,
	)
	ErrInvalidTimeFormat = apperror.New(
		apperror.CodeInvalidInput,
		"time must be HH:MM",
		http.StatusBadRequest,
	)
	ErrInvalidTimeRange = apperror.New(
		apperror.CodeInvalidInput,
		"end time must be after start time",
		http.StatusBadRequest,
	)
	ErrInvalidRate = apperror.New(
		apperror.CodeInvalidInput,
		"hourly rate must be greater than zero",
		http.StatusBadRequest,
	)
	ErrInvalidRecurrence = apperror.New(
		apperror.CodeInvalidInput,
		"invalid recurrence rule",
		http.StatusBadRequest,
	)
	ErrRecurrenceUnbounded = apperror.New(
		apperror.CodeInvalidInput,
		"recurrence rule needs COUNT or UNTIL",
		http.StatusBadRequest,
	)
	ErrTooManyOccurrences = apperror.New(
		apperror.CodeInvalidInput,
		"recurrence expands to more than 52 slots",
		http.StatusBadRequest,
	)
	ErrRecurrenceTooLong = apperror.New(
		apperror.CodeInvalidInput,
		"recurrence must end within 180 days",
		http.StatusBadRequest,
	)
	ErrInvalidStatus = apperror.New(
		apperror.CodeInvalidInput,
		"status must be available or cancelled",
		http.StatusBadRequest,
	)
	ErrOverlap = apperror.New(
		apperror.CodeOverlapConflict,
		"this time slot overlaps with existing availability",
		http.StatusConflict,
	)
	ErrSlotBooked = apperror.New(
		apperror.CodeInvalidState,
		"a booked slot can only be cancelled",
		http.StatusBadRequest,
	)
	ErrCannotDeleteBooked = apperror.New(
		apperror.CodeInvalidState,
		"a booked slot cannot be deleted, cancel it instead",
		http.StatusBadRequest,
	)
	ErrSlotNotAvailable = apperror.New(
		apperror.CodeSlotNotAvailable,
		"this slot is not available for booking",
		http.StatusConflict,
	)
)

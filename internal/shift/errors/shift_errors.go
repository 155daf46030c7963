package shifterrors

import (
	"net/http"

	"github.com/msdp-platform/msdp-flexstaff/internal/shared/apperror"
)

var (
	ErrShiftNotFound = apperror.New(
		apperror.CodeNotFound,
		"shift not found",
		http.StatusNotFound,
	)
	ErrInvalidShiftID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid shift id",
		http.StatusBadRequest,
	)
	ErrInvalidEmployerID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid employer id",
		http.StatusBadRequest,
	)
	ErrInvalidDateFormat = apperror.New(
		apperror.CodeInvalidInput,
		"invalid date format, expected YYYY-MM-DD",
		http.StatusBadRequest,
	)
	ErrInvalidTimeFormat = apperror.New(
		apperror.CodeInvalidInput,
		"invalid time format, expected HH:MM",
		http.StatusBadRequest,
	)
	ErrInvalidTimeRange = apperror.New(
		apperror.CodeInvalidInput,
		"start_time and end_time must differ",
		http.StatusBadRequest,
	)
	ErrInvalidStatusFilter = apperror.New(
		apperror.CodeInvalidInput,
		"invalid status filter",
		http.StatusBadRequest,
	)
	ErrPositionsBelowFilled = apperror.New(
		apperror.CodeInvalidInput,
		"total_positions cannot be lower than filled_positions",
		http.StatusBadRequest,
	)
	ErrInvalidStatusTransition = apperror.New(
		apperror.CodeInvalidState,
		"invalid shift status transition",
		http.StatusBadRequest,
	)
	ErrShiftNotEditable = apperror.New(
		apperror.CodeInvalidState,
		"shift can only be edited while draft or open",
		http.StatusBadRequest,
	)
	ErrShiftHasAssignments = apperror.New(
		apperror.CodeConflict,
		"shift has filled positions and cannot be deleted",
		http.StatusConflict,
	)
	ErrDuplicateReference = apperror.New(
		apperror.CodeConflict,
		"shift reference already exists",
		http.StatusConflict,
	)
)

package timesheeterrors

import (
	"net/http"

	"github.com/msdp-platform/msdp-flexstaff/internal/shared/apperror"
)

var (
	ErrTimesheetNotFound = apperror.New(
		apperror.CodeNotFound,
		"timesheet not found",
		http.StatusNotFound,
	)
	ErrAssignmentNotFound = apperror.New(
		apperror.CodeNotFound,
		"assignment not found",
		http.StatusNotFound,
	)
	ErrShiftNotFound = apperror.New(
		apperror.CodeNotFound,
		"shift not found",
		http.StatusNotFound,
	)
	ErrInvalidTimesheetID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid timesheet id",
		http.StatusBadRequest,
	)
	ErrInvalidStatusFilter = apperror.New(
		apperror.CodeInvalidInput,
		"invalid timesheet status filter",
		http.StatusBadRequest,
	)
	ErrNotesRequired = apperror.New(
		apperror.CodeInvalidInput,
		"rejection notes are required",
		http.StatusBadRequest,
	)
	ErrDisputeReasonRequired = apperror.New(
		apperror.CodeInvalidInput,
		"dispute reason is required",
		http.StatusBadRequest,
	)
	ErrNegativeBreak = apperror.New(
		apperror.CodeInvalidInput,
		"break minutes must not be negative",
		http.StatusBadRequest,
	)
	ErrTimesheetExists = apperror.New(
		apperror.CodeConflict,
		"a timesheet already exists for this assignment",
		http.StatusConflict,
	)
	ErrAlreadyClockedIn = apperror.New(
		apperror.CodeInvalidState,
		"already clocked in",
		http.StatusBadRequest,
	)
	ErrNotClockedIn = apperror.New(
		apperror.CodeInvalidState,
		"not clocked in",
		http.StatusBadRequest,
	)
	ErrAlreadyClockedOut = apperror.New(
		apperror.CodeInvalidState,
		"already clocked out",
		http.StatusBadRequest,
	)
	ErrNotClockedOut = apperror.New(
		apperror.CodeInvalidState,
		"timesheet must be clocked out before submission",
		http.StatusBadRequest,
	)
	ErrAlreadySubmitted = apperror.New(
		apperror.CodeInvalidState,
		"timesheet already submitted",
		http.StatusBadRequest,
	)
	ErrNotSubmitted = apperror.New(
		apperror.CodeInvalidState,
		"timesheet is not submitted",
		http.StatusBadRequest,
	)
	ErrNotPending = apperror.New(
		apperror.CodeInvalidState,
		"timesheet is no longer open for time tracking",
		http.StatusBadRequest,
	)
	ErrInvalidStatusTransition = apperror.New(
		apperror.CodeInvalidState,
		"invalid timesheet status transition",
		http.StatusBadRequest,
	)
	ErrAlreadyDisputed = apperror.New(
		apperror.CodeInvalidState,
		"timesheet already disputed",
		http.StatusBadRequest,
	)
)

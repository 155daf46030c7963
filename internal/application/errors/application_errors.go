package applicationerrors

import (
	"net/http"

	"github.com/msdp-platform/msdp-flexstaff/internal/shared/apperror"
)

var (
	ErrApplicationNotFound = apperror.New(
		apperror.CodeNotFound,
		"application not found",
		http.StatusNotFound,
	)
	ErrShiftNotFound = apperror.New(
		apperror.CodeNotFound,
		"shift not found",
		http.StatusNotFound,
	)
	ErrAssignmentNotFound = apperror.New(
		apperror.CodeNotFound,
		"assignment not found",
		http.StatusNotFound,
	)
	ErrInvalidApplicationID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid application id",
		http.StatusBadRequest,
	)
	ErrInvalidShiftID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid shift id",
		http.StatusBadRequest,
	)
	ErrInvalidWorkerID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid worker id",
		http.StatusBadRequest,
	)
	ErrShiftNotOpen = apperror.New(
		apperror.CodeInvalidState,
		"shift is not open for applications",
		http.StatusBadRequest,
	)
	ErrInvalidStatusTransition = apperror.New(
		apperror.CodeInvalidState,
		"application is no longer pending",
		http.StatusBadRequest,
	)
	ErrAssignmentAlreadyConfirmed = apperror.New(
		apperror.CodeInvalidState,
		"assignment already confirmed",
		http.StatusBadRequest,
	)
	ErrCapacityExceeded = apperror.New(
		apperror.CodeCapacityExceeded,
		"shift is fully booked",
		http.StatusConflict,
	)
	ErrDuplicateApplication = apperror.New(
		apperror.CodeDuplicateApplication,
		"already applied to this shift",
		http.StatusConflict,
	)
	ErrAssignmentExists = apperror.New(
		apperror.CodeConflict,
		"assignment already exists for this application",
		http.StatusConflict,
	)
)

package notificationerrors

import (
	"net/http"

	"github.com/msdp-platform/msdp-flexstaff/internal/shared/apperror"
)

var (
	ErrNotificationNotFound = apperror.New(
		apperror.CodeNotFound,
		"notification not found",
		http.StatusNotFound,
	)
	ErrInvalidNotificationID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid notification id",
		http.StatusBadRequest,
	)
	ErrInvalidEvent = apperror.New(
		apperror.CodeInvalidInput,
		"event has no id or recipients",
		http.StatusBadRequest,
	)
)

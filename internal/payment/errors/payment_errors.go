package paymenterrors

import (
	"net/http"

	"github.com/msdp-platform/msdp-flexstaff/internal/shared/apperror"
)

var (
	ErrPaymentNotFound = apperror.New(
		apperror.CodeNotFound,
		"payment not found",
		http.StatusNotFound,
	)
	ErrTimesheetNotFound = apperror.New(
		apperror.CodeNotFound,
		"timesheet not found",
		http.StatusNotFound,
	)
	ErrProfileNotFound = apperror.New(
		apperror.CodeNotFound,
		"profile not found",
		http.StatusNotFound,
	)
	ErrInvalidTimesheetID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid timesheet id",
		http.StatusBadRequest,
	)
	ErrInvalidPaymentID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid payment id",
		http.StatusBadRequest,
	)
	ErrInvalidStatusFilter = apperror.New(
		apperror.CodeInvalidInput,
		"invalid status filter",
		http.StatusBadRequest,
	)
	ErrPayoutRoleNotSupported = apperror.New(
		apperror.CodeInvalidInput,
		"payout accounts are only available to employers and workers",
		http.StatusBadRequest,
	)
	ErrTimesheetNotApproved = apperror.New(
		apperror.CodeInvalidState,
		"timesheet is not approved",
		http.StatusBadRequest,
	)
	ErrNotRefundable = apperror.New(
		apperror.CodeInvalidState,
		"only completed payments can be refunded",
		http.StatusBadRequest,
	)
	ErrAlreadyProcessing = apperror.New(
		apperror.CodeConflict,
		"payment is already processing for this timesheet",
		http.StatusConflict,
	)
	ErrAlreadySettled = apperror.New(
		apperror.CodeConflict,
		"timesheet has already been paid",
		http.StatusConflict,
	)
	ErrEmployerPayoutMissing = apperror.New(
		apperror.CodePayoutAccountMissing,
		"employer has no payout account",
		http.StatusUnprocessableEntity,
	)
	ErrWorkerPayoutMissing = apperror.New(
		apperror.CodePayoutAccountMissing,
		"worker has no payout account",
		http.StatusUnprocessableEntity,
	)
	ErrNoPayoutAccount = apperror.New(
		apperror.CodeNotFound,
		"no payout account set up",
		http.StatusNotFound,
	)
	ErrProcessor = apperror.New(
		apperror.CodeProcessorError,
		"payment processor request failed",
		http.StatusBadGateway,
	)
	ErrTransferSourceMissing = apperror.New(
		apperror.CodeInvalidState,
		"worker transfer needs a captured charge",
		http.StatusConflict,
	)
	ErrWebhookPaymentUnknown = apperror.New(
		apperror.CodeConflict,
		"no payment recorded for this intent yet",
		http.StatusConflict,
	)
	ErrInvalidSignature = apperror.New(
		apperror.CodeInvalidSignature,
		"invalid webhook signature",
		http.StatusBadRequest,
	)
)

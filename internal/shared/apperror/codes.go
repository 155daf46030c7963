package apperror

const (
	// 4xx
	CodeInvalidInput         = "INVALID_INPUT"
	CodeValidation           = "VALIDATION_ERROR"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeForbidden            = "FORBIDDEN"
	CodeNotFound             = "NOT_FOUND"
	CodeConflict             = "CONFLICT"
	CodeInvalidState         = "INVALID_STATE"
	CodeCapacityExceeded     = "CAPACITY_EXCEEDED"
	CodeDuplicateApplication = "DUPLICATE_APPLICATION"
	CodeOverlapConflict      = "OVERLAP_CONFLICT"
	CodePayoutAccountMissing = "PAYOUT_ACCOUNT_MISSING"
	CodeInvalidSignature     = "INVALID_SIGNATURE"
	CodeSlotNotAvailable     = "SLOT_NOT_AVAILABLE"
	CodeTooManyRequests      = "TOO_MANY_REQUESTS"

	// 5xx
	CodeInternalError      = "INTERNAL_ERROR"
	CodeProcessorError     = "PAYMENT_PROCESSOR_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

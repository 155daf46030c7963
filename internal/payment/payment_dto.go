package payment

type ProcessPaymentRequest struct {
	TimesheetID string `json:"timesheet_id" binding:"required,uuid"`
}

type ProcessPaymentResponse struct {
	PaymentID    string `json:"payment_id"`
	Reference    string `json:"reference"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
	PlatformFee  int64  `json:"platform_fee"`
	NetAmount    int64  `json:"net_amount"`
	Currency     string `json:"currency"`
	Attempts     int    `json:"attempts"`
	ClientSecret string `json:"client_secret,omitempty"`
}

type RefundRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

type CreatePayoutAccountRequest struct {
	Email   string `json:"email" binding:"required,email"`
	Country string `json:"country" binding:"omitempty,len=2"`
}

type PayoutAccountResponse struct {
	AccountID        string `json:"account_id"`
	OnboardingURL    string `json:"onboarding_url,omitempty"`
	ChargesEnabled   bool   `json:"charges_enabled"`
	PayoutsEnabled   bool   `json:"payouts_enabled"`
	DetailsSubmitted bool   `json:"details_submitted"`
}

type ListFilter struct {
	Status string `form:"status"`
	Page   int    `form:"-"`
	Limit  int    `form:"-"`
}

type PaymentResponse struct {
	ID                  string  `json:"id"`
	Reference           string  `json:"reference"`
	TimesheetID         string  `json:"timesheet_id"`
	EmployerID          string  `json:"employer_id"`
	WorkerID            string  `json:"worker_id"`
	Amount              int64   `json:"amount"`
	PlatformFee         int64   `json:"platform_fee"`
	NetAmount           int64   `json:"net_amount"`
	FeeBasisPoints      int64   `json:"fee_basis_points"`
	Currency            string  `json:"currency"`
	Status              string  `json:"status"`
	Attempts            int     `json:"attempts"`
	FailureReason       *string `json:"failure_reason,omitempty"`
	PaymentMethod       string  `json:"payment_method"`
	ProcessorIntentID   string  `json:"processor_intent_id,omitempty"`
	ProcessorTransferID *string `json:"processor_transfer_id,omitempty"`
	ProcessorRefundID   *string `json:"processor_refund_id,omitempty"`
	PaidAt              *string `json:"paid_at,omitempty"`
	RefundedAt          *string `json:"refunded_at,omitempty"`
	CreatedAt           string  `json:"created_at"`
}

package timesheet

type CreateTimesheetRequest struct {
	AssignmentID string `json:"assignment_id" binding:"required,uuid"`
}

type ClockOutRequest struct {
	BreakMinutes int `json:"break_minutes" binding:"min=0,max=1440"`
}

type RejectTimesheetRequest struct {
	Notes string `json:"notes" binding:"required,max=2000"`
}

type DisputeTimesheetRequest struct {
	Reason string `json:"reason" binding:"required,max=2000"`
}

type ListFilter struct {
	Status string `form:"status"`
	Page   int    `form:"-"`
	Limit  int    `form:"-"`
}

type TimesheetResponse struct {
	ID             string  `json:"id"`
	AssignmentID   string  `json:"assignment_id"`
	ShiftID        string  `json:"shift_id"`
	WorkerID       string  `json:"worker_id"`
	EmployerID     string  `json:"employer_id"`
	ClockInTime    *string `json:"clock_in_time"`
	ClockOutTime   *string `json:"clock_out_time"`
	BreakMinutes   int     `json:"break_minutes"`
	TotalHours     float64 `json:"total_hours"`
	HourlyRate     int64   `json:"hourly_rate"`
	TotalAmount    int64   `json:"total_amount"`
	Status         string  `json:"status"`
	SubmittedAt    *string `json:"submitted_at,omitempty"`
	ApprovedAt     *string `json:"approved_at,omitempty"`
	RejectedAt     *string `json:"rejected_at,omitempty"`
	Notes          *string `json:"notes,omitempty"`
	DisputedAt     *string `json:"disputed_at,omitempty"`
	DisputeReason  *string `json:"dispute_reason,omitempty"`
	DisputedByRole *string `json:"disputed_by_role,omitempty"`
}

// SettlementResult reports what happened when approval handed the timesheet
// to payment settlement. Error is set when settlement failed; the approval
// itself still stands.
type SettlementResult struct {
	PaymentID   string `json:"payment_id,omitempty"`
	Reference   string `json:"reference,omitempty"`
	Status      string `json:"status,omitempty"`
	Amount      int64  `json:"amount,omitempty"`
	PlatformFee int64  `json:"platform_fee,omitempty"`
	NetAmount   int64  `json:"net_amount,omitempty"`
	ErrorCode   string `json:"error_code,omitempty"`
	Error       string `json:"error,omitempty"`
}

type ApproveResponse struct {
	Timesheet  TimesheetResponse `json:"timesheet"`
	Settlement *SettlementResult `json:"settlement,omitempty"`
}

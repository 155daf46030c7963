package application

type ApplyRequest struct {
	Message string `json:"message" binding:"max=2000"`
}

type RejectRequest struct {
	Reason string `json:"reason" binding:"max=1000"`
}

type ApplicationResponse struct {
	ID              string  `json:"id"`
	ShiftID         string  `json:"shift_id"`
	WorkerID        string  `json:"worker_id"`
	Status          string  `json:"status"`
	Message         string  `json:"message,omitempty"`
	RejectionReason *string `json:"rejection_reason,omitempty"`
	AppliedAt       string  `json:"applied_at"`
	RespondedAt     *string `json:"responded_at,omitempty"`
}

type AssignmentResponse struct {
	ID                string  `json:"id"`
	ShiftID           string  `json:"shift_id"`
	WorkerID          string  `json:"worker_id"`
	EmployerID        string  `json:"employer_id"`
	ApplicationID     string  `json:"application_id"`
	AssignedAt        string  `json:"assigned_at"`
	ConfirmedByWorker bool    `json:"confirmed_by_worker"`
	ConfirmedAt       *string `json:"confirmed_at,omitempty"`
}

type AcceptResponse struct {
	Application     ApplicationResponse `json:"application"`
	Assignment      AssignmentResponse  `json:"assignment"`
	FilledPositions int                 `json:"filled_positions"`
	TotalPositions  int                 `json:"total_positions"`
	IsFullyBooked   bool                `json:"is_fully_booked"`
}

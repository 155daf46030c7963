package shift

type CreateShiftRequest struct {
	Title          string `json:"title" binding:"required,max=255"`
	Description    string `json:"description"`
	Industry       string `json:"industry" binding:"required,oneof=hospitality retail healthcare events logistics construction office other"`
	RoleType       string `json:"role_type" binding:"required,max=100"`
	LocationName   string `json:"location_name"`
	AddressLine1   string `json:"address_line1"`
	City           string `json:"city"`
	Postcode       string `json:"postcode" binding:"max=20"`
	ShiftDate      string `json:"shift_date" binding:"required"`
	StartTime      string `json:"start_time" binding:"required"`
	EndTime        string `json:"end_time" binding:"required"`
	HourlyRate     int64  `json:"hourly_rate" binding:"required,gt=0"`
	TotalPositions int    `json:"total_positions" binding:"omitempty,min=1"`
	Requirements   string `json:"requirements"`
	DurationType   string `json:"duration_type" binding:"omitempty,oneof=quick day multi_day"`
}

// UpdateShiftRequest carries a partial update; nil fields are left as they are.
type UpdateShiftRequest struct {
	Title          *string `json:"title" binding:"omitempty,max=255"`
	Description    *string `json:"description"`
	Industry       *string `json:"industry" binding:"omitempty,oneof=hospitality retail healthcare events logistics construction office other"`
	RoleType       *string `json:"role_type" binding:"omitempty,max=100"`
	LocationName   *string `json:"location_name"`
	AddressLine1   *string `json:"address_line1"`
	City           *string `json:"city"`
	Postcode       *string `json:"postcode" binding:"omitempty,max=20"`
	ShiftDate      *string `json:"shift_date"`
	StartTime      *string `json:"start_time"`
	EndTime        *string `json:"end_time"`
	HourlyRate     *int64  `json:"hourly_rate" binding:"omitempty,gt=0"`
	TotalPositions *int    `json:"total_positions" binding:"omitempty,min=1"`
	Requirements   *string `json:"requirements"`
	DurationType   *string `json:"duration_type" binding:"omitempty,oneof=quick day multi_day"`
}

type ListFilter struct {
	Status     string `form:"status"`
	Industry   string `form:"industry"`
	City       string `form:"city"`
	DateFrom   string `form:"date_from"`
	DateTo     string `form:"date_to"`
	EmployerID string `form:"employer_id"`
	Page       int    `form:"-"`
	Limit      int    `form:"-"`
}

type ShiftResponse struct {
	ID                 string  `json:"id"`
	EmployerID         string  `json:"employer_id"`
	Reference          string  `json:"reference"`
	Title              string  `json:"title"`
	Description        string  `json:"description,omitempty"`
	Industry           string  `json:"industry"`
	RoleType           string  `json:"role_type"`
	LocationName       string  `json:"location_name,omitempty"`
	AddressLine1       string  `json:"address_line1,omitempty"`
	City               string  `json:"city,omitempty"`
	Postcode           string  `json:"postcode,omitempty"`
	ShiftDate          string  `json:"shift_date"`
	StartTime          string  `json:"start_time"`
	EndTime            string  `json:"end_time"`
	TotalHours         float64 `json:"total_hours"`
	HourlyRate         int64   `json:"hourly_rate"`
	TotalPositions     int     `json:"total_positions"`
	FilledPositions    int     `json:"filled_positions"`
	AvailablePositions int     `json:"available_positions"`
	IsFullyBooked      bool    `json:"is_fully_booked"`
	Requirements       string  `json:"requirements,omitempty"`
	Status             string  `json:"status"`
	DurationType       string  `json:"duration_type"`
	CreatedAt          string  `json:"created_at,omitempty"`
	UpdatedAt          string  `json:"updated_at,omitempty"`
}

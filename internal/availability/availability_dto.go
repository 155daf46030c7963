package availability

type CreateAvailabilityRequest struct {
	Date       string `json:"date" binding:"required"`
	StartTime  string `json:"start_time" binding:"required"`
	EndTime    string `json:"end_time" binding:"required"`
	HourlyRate *int64 `json:"hourly_rate" binding:"omitempty,gt=0"`
	Notes      string `json:"notes" binding:"max=1000"`
	// Recurrence is an RFC 5545 RRULE such as FREQ=WEEKLY;BYDAY=MO,WE;COUNT=8.
	// Occurrences are counted from Date.
	Recurrence string `json:"recurrence" binding:"max=255"`
}

// UpdateAvailabilityRequest carries a partial update; nil fields are left as they are.
type UpdateAvailabilityRequest struct {
	Date       *string `json:"date"`
	StartTime  *string `json:"start_time"`
	EndTime    *string `json:"end_time"`
	HourlyRate *int64  `json:"hourly_rate" binding:"omitempty,gt=0"`
	Notes      *string `json:"notes" binding:"omitempty,max=1000"`
	Status     *string `json:"status" binding:"omitempty,oneof=available cancelled"`
}

type ListMineFilter struct {
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
}

type SearchFilter struct {
	Date      string `form:"date"`
	StartTime string `form:"start_time"`
	EndTime   string `form:"end_time"`
	Page      int    `form:"-"`
	Limit     int    `form:"-"`
}

type SlotResponse struct {
	ID                 string  `json:"id"`
	WorkerID           string  `json:"worker_id"`
	Date               string  `json:"date"`
	StartTime          string  `json:"start_time"`
	EndTime            string  `json:"end_time"`
	HourlyRate         int64   `json:"hourly_rate"`
	Notes              string  `json:"notes,omitempty"`
	Status             string  `json:"status"`
	BookedByEmployerID *string `json:"booked_by_employer_id,omitempty"`
	BookedAt           *string `json:"booked_at,omitempty"`
	SeriesID           *string `json:"series_id,omitempty"`
}

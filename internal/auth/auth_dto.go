package auth

type RegisterRequest struct {
	Email         string `json:"email" binding:"required,email"`
	Name          string `json:"name" binding:"required"`
	Password      string `json:"password" binding:"required,min=8"`
	Role          string `json:"role" binding:"required,oneof=EMPLOYER WORKER"`
	CompanyName   string `json:"company_name"`
	Phone         string `json:"phone"`
	MinHourlyRate int64  `json:"min_hourly_rate" binding:"omitempty,min=0"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	ID              string  `json:"id"`
	Email           string  `json:"email"`
	Name            string  `json:"name"`
	Role            string  `json:"role"`
	ProfileID       string  `json:"profile_id"`
	CompanyName     string  `json:"company_name,omitempty"`
	MinHourlyRate   int64   `json:"min_hourly_rate,omitempty"`
	PayoutAccountID *string `json:"payout_account_id,omitempty"`
}

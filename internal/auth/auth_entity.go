package auth

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string    `gorm:"type:varchar(255);not null"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex:uq_users_email;not null"`
	Password  string    `gorm:"type:varchar(255);not null"`
	Role      string    `gorm:"type:varchar(20);not null"`
	IsActive  bool      `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// Employer is the hiring profile attached to an EMPLOYER user.
type Employer struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID          uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_employers_user"`
	CompanyName     string    `gorm:"type:varchar(255);not null"`
	ContactPhone    string    `gorm:"type:varchar(40)"`
	PayoutAccountID *string   `gorm:"type:varchar(64)"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Worker is the profile attached to a WORKER user. MinHourlyRate is in pence.
type Worker struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID          uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_workers_user"`
	FullName        string    `gorm:"type:varchar(255);not null"`
	Phone           string    `gorm:"type:varchar(40)"`
	MinHourlyRate   int64     `gorm:"not null;default:0"`
	PayoutAccountID *string   `gorm:"type:varchar(64)"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

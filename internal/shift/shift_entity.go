package shift

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Shift struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	EmployerID uuid.UUID `gorm:"type:uuid;not null;index:idx_shifts_employer_status;uniqueIndex:uq_shifts_employer_reference"`
	Reference  string    `gorm:"type:varchar(20);not null;uniqueIndex:uq_shifts_employer_reference"`

	Title        string `gorm:"type:varchar(255);not null"`
	Description  string `gorm:"type:text"`
	Industry     string `gorm:"type:varchar(30);not null;index:idx_shifts_industry"`
	RoleType     string `gorm:"type:varchar(100);not null"`
	LocationName string `gorm:"type:varchar(255)"`
	AddressLine1 string `gorm:"type:varchar(255)"`
	City         string `gorm:"type:varchar(100);index:idx_shifts_city"`
	Postcode     string `gorm:"type:varchar(20)"`

	ShiftDate    time.Time `gorm:"type:date;not null;index:idx_shifts_status_date"`
	StartTime    string    `gorm:"type:varchar(5);not null"`
	EndTime      string    `gorm:"type:varchar(5);not null"`
	TotalMinutes int       `gorm:"type:int;not null"`

	HourlyRate      int64 `gorm:"type:bigint;not null"`
	TotalPositions  int   `gorm:"type:int;not null;default:1"`
	FilledPositions int   `gorm:"type:int;not null;default:0"`

	Requirements string `gorm:"type:text"`
	Status       string `gorm:"type:varchar(20);not null;default:'draft';index:idx_shifts_status_date;index:idx_shifts_employer_status"`
	DurationType string `gorm:"type:varchar(20);not null;default:'day'"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index:idx_shifts_deleted_at"`
}

func (s Shift) IsFullyBooked() bool {
	return s.FilledPositions >= s.TotalPositions
}

func (s Shift) AvailablePositions() int {
	if s.FilledPositions >= s.TotalPositions {
		return 0
	}
	return s.TotalPositions - s.FilledPositions
}

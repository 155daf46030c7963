package payment

import (
	"time"

	"github.com/google/uuid"
)

// Payment is the settlement of one approved timesheet. Amounts are pence;
// PlatformFee + NetAmount always equals Amount.
type Payment struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Reference   string    `gorm:"type:varchar(40);not null;uniqueIndex:uq_payments_reference"`
	TimesheetID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_payments_timesheet"`
	EmployerID  uuid.UUID `gorm:"type:uuid;not null;index:idx_payments_employer_status"`
	WorkerID    uuid.UUID `gorm:"type:uuid;not null;index:idx_payments_worker_status"`

	Amount         int64  `gorm:"type:bigint;not null"`
	PlatformFee    int64  `gorm:"type:bigint;not null"`
	NetAmount      int64  `gorm:"type:bigint;not null"`
	FeeBasisPoints int64  `gorm:"type:bigint;not null"`
	Currency       string `gorm:"type:varchar(3);not null;default:'gbp'"`

	ProcessorIntentID   string  `gorm:"type:varchar(255);index:idx_payments_intent"`
	ProcessorChargeID   *string `gorm:"type:varchar(255)"`
	ProcessorTransferID *string `gorm:"type:varchar(255)"`
	ProcessorRefundID   *string `gorm:"type:varchar(255)"`

	Status        string  `gorm:"type:varchar(20);not null;index:idx_payments_employer_status;index:idx_payments_worker_status"`
	Attempts      int     `gorm:"type:int;not null;default:1"`
	FailureReason *string `gorm:"type:text"`
	PaymentMethod string  `gorm:"type:varchar(40);not null;default:'card'"`
	PaidAt        *time.Time
	RefundedAt    *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SettlementSource is everything Process needs to know about a timesheet
// before charging: its status, amount, parties and their payout accounts.
type SettlementSource struct {
	TimesheetID             uuid.UUID
	EmployerID              uuid.UUID
	WorkerID                uuid.UUID
	Status                  string
	TotalAmount             int64
	EmployerPayoutAccountID *string
	WorkerPayoutAccountID   *string
}

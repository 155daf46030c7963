package payment

import (
	"context"
	"database/sql"
	"time"

	"github.com/msdp-platform/msdp-flexstaff/internal/auth"
	"github.com/msdp-platform/msdp-flexstaff/internal/shared/actor"
	"github.com/msdp-platform/msdp-flexstaff/internal/shared/dbtx"
	"github.com/msdp-platform/msdp-flexstaff/internal/shared/scope"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ListQuery struct {
	WorkerID   string
	EmployerID string
	Status     string
	Page       int
	Limit      int
}

//go:generate mockgen -source=payment_repo.go -destination=mock/payment_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository

	LoadSettlementSource(ctx context.Context, employerID, timesheetID string) (*SettlementSource, error)

	FindByID(ctx context.Context, id string) (*Payment, error)
	FindByTimesheet(ctx context.Context, timesheetID string) (*Payment, error)
	FindByIntent(ctx context.Context, intentID string) (*Payment, error)
	Create(ctx context.Context, p *Payment) error
	Retry(ctx context.Context, p *Payment) (bool, error)
	TransitionByIntent(ctx context.Context, intentID, from, to string, fields map[string]any) (bool, error)
	SetRefundID(ctx context.Context, id, refundID string) error
	List(ctx context.Context, q ListQuery) ([]Payment, int64, error)

	PayoutAccount(ctx context.Context, role, profileID string) (*string, error)
	SetPayoutAccount(ctx context.Context, role, profileID, accountID string) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{db: dbtx.Bind(r.db, tx)}
}

// LoadSettlementSource reads the timesheet together with both payout
// accounts. The employer id is part of the filter so another employer's
// timesheet reads as not found.
func (r *repository) LoadSettlementSource(ctx context.Context, employerID, timesheetID string) (*SettlementSource, error) {
	var src SettlementSource
	err := r.db.WithContext(ctx).
		Table("timesheets AS t").
		Select(
			"t.id AS timesheet_id",
			"t.employer_id",
			"t.worker_id",
			"t.status",
			"t.total_amount",
			"e.payout_account_id AS employer_payout_account_id",
			"w.payout_account_id AS worker_payout_account_id",
		).
		Joins("JOIN employers AS e ON e.id = t.employer_id").
		Joins("JOIN workers AS w ON w.id = t.worker_id").
		Where("t.id = ? AND t.employer_id = ?", timesheetID, employerID).
		Take(&src).Error
	return &src, err
}

func (r *repository) FindByID(ctx context.Context, id string) (*Payment, error) {
	var p Payment
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	return &p, err
}

func (r *repository) FindByTimesheet(ctx context.Context, timesheetID string) (*Payment, error) {
	var p Payment
	err := r.db.WithContext(ctx).First(&p, "timesheet_id = ?", timesheetID).Error
	return &p, err
}

func (r *repository) FindByIntent(ctx context.Context, intentID string) (*Payment, error) {
	var p Payment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&p, "processor_intent_id = ?", intentID).Error
	return &p, err
}

func (r *repository) Create(ctx context.Context, p *Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// Retry moves a failed payment back to processing with the new attempt's
// processor ids. It reports false when the row is no longer failed.
func (r *repository) Retry(ctx context.Context, p *Payment) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&Payment{}).
		Where("id = ? AND status = ?", p.ID, StatusFailed).
		Updates(map[string]any{
			"status":                p.Status,
			"attempts":              p.Attempts,
			"amount":                p.Amount,
			"platform_fee":          p.PlatformFee,
			"net_amount":            p.NetAmount,
			"fee_basis_points":      p.FeeBasisPoints,
			"processor_intent_id":   p.ProcessorIntentID,
			"processor_charge_id":   p.ProcessorChargeID,
			"processor_transfer_id": p.ProcessorTransferID,
			"failure_reason":        nil,
			"updated_at":            p.UpdatedAt,
		})
	return res.RowsAffected > 0, res.Error
}

// TransitionByIntent applies a status change only when the payment is still
// in the from status. A redelivered webhook affects no rows.
func (r *repository) TransitionByIntent(ctx context.Context, intentID, from, to string, fields map[string]any) (bool, error) {
	updates := map[string]any{"status": to, "updated_at": time.Now().UTC()}
	for k, v := range fields {
		updates[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&Payment{}).
		Where("processor_intent_id = ? AND status = ?", intentID, from).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}

func (r *repository) SetRefundID(ctx context.Context, id, refundID string) error {
	return r.db.WithContext(ctx).
		Model(&Payment{}).
		Where("id = ?", id).
		Updates(map[string]any{"processor_refund_id": refundID, "updated_at": time.Now().UTC()}).Error
}

func (r *repository) List(ctx context.Context, q ListQuery) ([]Payment, int64, error) {
	db := r.db.WithContext(ctx).Model(&Payment{})
	if q.WorkerID != "" {
		db = db.Scopes(scope.Owner("worker_id", q.WorkerID))
	}
	if q.EmployerID != "" {
		db = db.Scopes(scope.Owner("employer_id", q.EmployerID))
	}
	if q.Status != "" {
		db = db.Where("status = ?", q.Status)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []Payment
	err := db.Order("created_at DESC").
		Scopes(scope.Paginate(q.Page, q.Limit)).
		Find(&rows).Error
	return rows, total, err
}

func (r *repository) PayoutAccount(ctx context.Context, role, profileID string) (*string, error) {
	model, err := profileModel(role)
	if err != nil {
		return nil, err
	}
	var row struct {
		PayoutAccountID *string
	}
	err = r.db.WithContext(ctx).
		Model(model).
		Select("payout_account_id").
		Where("id = ?", profileID).
		Take(&row).Error
	return row.PayoutAccountID, err
}

func (r *repository) SetPayoutAccount(ctx context.Context, role, profileID, accountID string) error {
	model, err := profileModel(role)
	if err != nil {
		return err
	}
	res := r.db.WithContext(ctx).
		Model(model).
		Where("id = ?", profileID).
		Updates(map[string]any{"payout_account_id": accountID, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func profileModel(role string) (any, error) {
	switch role {
	case actor.RoleEmployer:
		return &auth.Employer{}, nil
	case actor.RoleWorker:
		return &auth.Worker{}, nil
	}
	return nil, gorm.ErrRecordNotFound
}

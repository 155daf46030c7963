package application

import (
	"context"
	"database/sql"
	"time"

	"github.com/msdp-platform/msdp-flexstaff/internal/shared/dbtx"
	"github.com/msdp-platform/msdp-flexstaff/internal/shared/scope"
	"github.com/msdp-platform/msdp-flexstaff/internal/shift"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:generate mockgen -source=application_repo.go -destination=mock/application_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository

	FindShift(ctx context.Context, shiftID string) (*shift.Shift, error)
	FindShiftForEmployer(ctx context.Context, employerID, shiftID string) (*shift.Shift, error)
	LockShiftForEmployer(ctx context.Context, employerID, shiftID string) (*shift.Shift, error)
	IncrementFilled(ctx context.Context, shiftID string) (bool, error)

	Create(ctx context.Context, a *Application) error
	FindByID(ctx context.Context, id string) (*Application, error)
	LockByID(ctx context.Context, id string) (*Application, error)
	HasActiveApplication(ctx context.Context, shiftID, workerID string) (bool, error)
	Update(ctx context.Context, a *Application) error
	ListByShift(ctx context.Context, shiftID string) ([]Application, error)
	ListByWorker(ctx context.Context, workerID string) ([]Application, error)

	CreateAssignment(ctx context.Context, a *Assignment) error
	LockAssignmentForWorker(ctx context.Context, workerID, id string) (*Assignment, error)
	ConfirmAssignment(ctx context.Context, id string, at time.Time) error
	ListAssignmentsByWorker(ctx context.Context, workerID string) ([]Assignment, error)
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

func (r *repository) FindShift(ctx context.Context, shiftID string) (*shift.Shift, error) {
	var sh shift.Shift
	err := r.db.WithContext(ctx).First(&sh, "id = ?", shiftID).Error
	return &sh, err
}

func (r *repository) FindShiftForEmployer(ctx context.Context, employerID, shiftID string) (*shift.Shift, error) {
	var sh shift.Shift
	err := r.db.WithContext(ctx).
		Scopes(scope.Owner("employer_id", employerID)).
		First(&sh, "id = ?", shiftID).Error
	return &sh, err
}

func (r *repository) LockShiftForEmployer(ctx context.Context, employerID, shiftID string) (*shift.Shift, error) {
	var sh shift.Shift
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Scopes(scope.Owner("employer_id", employerID)).
		First(&sh, "id = ?", shiftID).Error
	return &sh, err
}

// IncrementFilled consumes one position. It reports false, and changes
// nothing, when the shift is already full.
func (r *repository) IncrementFilled(ctx context.Context, shiftID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&shift.Shift{}).
		Where("id = ? AND filled_positions < total_positions", shiftID).
		Updates(map[string]any{
			"filled_positions": gorm.Expr("filled_positions + 1"),
			"updated_at":       time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) Create(ctx context.Context, a *Application) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *repository) FindByID(ctx context.Context, id string) (*Application, error) {
	var a Application
	err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error
	return &a, err
}

func (r *repository) LockByID(ctx context.Context, id string) (*Application, error) {
	var a Application
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&a, "id = ?", id).Error
	return &a, err
}

func (r *repository) HasActiveApplication(ctx context.Context, shiftID, workerID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Application{}).
		Where("shift_id = ? AND worker_id = ?", shiftID, workerID).
		Where("status <> ?", StatusWithdrawn).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) Update(ctx context.Context, a *Application) error {
	return r.db.WithContext(ctx).
		Model(a).
		Select("status", "rejection_reason", "responded_at", "updated_at").
		Updates(a).Error
}

func (r *repository) ListByShift(ctx context.Context, shiftID string) ([]Application, error) {
	var apps []Application
	err := r.db.WithContext(ctx).
		Where("shift_id = ?", shiftID).
		Order("applied_at ASC").
		Find(&apps).Error
	return apps, err
}

func (r *repository) ListByWorker(ctx context.Context, workerID string) ([]Application, error) {
	var apps []Application
	err := r.db.WithContext(ctx).
		Scopes(scope.Owner("worker_id", workerID)).
		Order("applied_at DESC").
		Find(&apps).Error
	return apps, err
}

func (r *repository) CreateAssignment(ctx context.Context, a *Assignment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *repository) LockAssignmentForWorker(ctx context.Context, workerID, id string) (*Assignment, error) {
	var a Assignment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Scopes(scope.Owner("worker_id", workerID)).
		First(&a, "id = ?", id).Error
	return &a, err
}

func (r *repository) ConfirmAssignment(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&Assignment{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"confirmed_by_worker": true,
			"confirmed_at":        at,
			"updated_at":          at,
		}).Error
}

func (r *repository) ListAssignmentsByWorker(ctx context.Context, workerID string) ([]Assignment, error) {
	var out []Assignment
	err := r.db.WithContext(ctx).
		Scopes(scope.Owner("worker_id", workerID)).
		Order("assigned_at DESC").
		Find(&out).Error
	return out, err
}

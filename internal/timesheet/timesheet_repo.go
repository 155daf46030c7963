package timesheet

import (
	"context"
	"database/sql"

	"github.com/msdp-platform/msdp-flexstaff/internal/application"
	"github.com/msdp-platform/msdp-flexstaff/internal/shared/dbtx"
	"github.com/msdp-platform/msdp-flexstaff/internal/shared/scope"
	"github.com/msdp-platform/msdp-flexstaff/internal/shift"

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

//go:generate mockgen -source=timesheet_repo.go -destination=mock/timesheet_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository

	FindAssignmentForWorker(ctx context.Context, workerID, assignmentID string) (*application.Assignment, error)
	ExistsForAssignment(ctx context.Context, assignmentID string) (bool, error)
	ShiftRate(ctx context.Context, shiftID string) (int64, error)

	Create(ctx context.Context, t *Timesheet) error
	FindByID(ctx context.Context, id string) (*Timesheet, error)
	LockByID(ctx context.Context, id string) (*Timesheet, error)
	Update(ctx context.Context, t *Timesheet) error
	List(ctx context.Context, q ListQuery) ([]Timesheet, int64, error)
	ListDisputed(ctx context.Context, page, limit int) ([]Timesheet, int64, error)
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

func (r *repository) FindAssignmentForWorker(ctx context.Context, workerID, assignmentID string) (*application.Assignment, error) {
	var a application.Assignment
	err := r.db.WithContext(ctx).
		Scopes(scope.Owner("worker_id", workerID)).
		First(&a, "id = ?", assignmentID).Error
	return &a, err
}

func (r *repository) ExistsForAssignment(ctx context.Context, assignmentID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Timesheet{}).
		Where("assignment_id = ?", assignmentID).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) ShiftRate(ctx context.Context, shiftID string) (int64, error) {
	var sh shift.Shift
	err := r.db.WithContext(ctx).
		Select("id", "hourly_rate").
		First(&sh, "id = ?", shiftID).Error
	return sh.HourlyRate, err
}

func (r *repository) Create(ctx context.Context, t *Timesheet) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *repository) FindByID(ctx context.Context, id string) (*Timesheet, error) {
	var t Timesheet
	err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error
	return &t, err
}

func (r *repository) LockByID(ctx context.Context, id string) (*Timesheet, error) {
	var t Timesheet
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&t, "id = ?", id).Error
	return &t, err
}

// Update writes the mutable lifecycle columns. Identity columns and the
// assignment link never change after creation.
func (r *repository) Update(ctx context.Context, t *Timesheet) error {
	return r.db.WithContext(ctx).
		Model(t).
		Select(
			"clock_in_time", "clock_out_time", "break_minutes",
			"total_hours_centi", "hourly_rate", "total_amount",
			"status", "submitted_at", "approved_at", "rejected_at", "notes",
			"disputed_at", "dispute_reason", "disputed_by_role",
			"updated_at",
		).
		Updates(t).Error
}

func (r *repository) List(ctx context.Context, q ListQuery) ([]Timesheet, int64, error) {
	db := r.db.WithContext(ctx).Model(&Timesheet{})
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

	var rows []Timesheet
	err := db.Order("created_at DESC").
		Scopes(scope.Paginate(q.Page, q.Limit)).
		Find(&rows).Error
	return rows, total, err
}

func (r *repository) ListDisputed(ctx context.Context, page, limit int) ([]Timesheet, int64, error) {
	db := r.db.WithContext(ctx).Model(&Timesheet{}).Where("status = ?", StatusDisputed)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []Timesheet
	err := db.Order("disputed_at DESC").
		Scopes(scope.Paginate(page, limit)).
		Find(&rows).Error
	return rows, total, err
}

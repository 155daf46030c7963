package shift

import (
	"context"
	"database/sql"
	"time"

	"github.com/msdp-platform/msdp-flexstaff/internal/shared/dbtx"
	"github.com/msdp-platform/msdp-flexstaff/internal/shared/scope"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ListQuery is a ListFilter with parsed dates and normalised paging.
type ListQuery struct {
	Status     string
	Industry   string
	City       string
	EmployerID string
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	Limit      int
}

//go:generate mockgen -source=shift_repo.go -destination=mock/shift_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, s *Shift) error
	FindByID(ctx context.Context, id string) (*Shift, error)
	FindByIDAndEmployer(ctx context.Context, employerID, id string) (*Shift, error)
	LockByIDAndEmployer(ctx context.Context, employerID, id string) (*Shift, error)
	List(ctx context.Context, q ListQuery) ([]Shift, int64, error)
	Update(ctx context.Context, s *Shift) error
	UpdateStatus(ctx context.Context, id, status string) error
	Delete(ctx context.Context, employerID, id string) error
	AssignedWorkerIDs(ctx context.Context, shiftID string) ([]string, error)
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

func (r *repository) Create(ctx context.Context, s *Shift) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *repository) FindByID(ctx context.Context, id string) (*Shift, error) {
	var s Shift
	err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error
	return &s, err
}

func (r *repository) FindByIDAndEmployer(ctx context.Context, employerID, id string) (*Shift, error) {
	var s Shift
	err := r.db.WithContext(ctx).
		Scopes(scope.Owner("employer_id", employerID)).
		First(&s, "id = ?", id).Error
	return &s, err
}

// LockByIDAndEmployer reads the shift with SELECT ... FOR UPDATE. It only
// locks when the repository is bound to a transaction.
func (r *repository) LockByIDAndEmployer(ctx context.Context, employerID, id string) (*Shift, error) {
	var s Shift
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Scopes(scope.Owner("employer_id", employerID)).
		First(&s, "id = ?", id).Error
	return &s, err
}

func (r *repository) List(ctx context.Context, q ListQuery) ([]Shift, int64, error) {
	db := r.db.WithContext(ctx).Model(&Shift{})
	if q.Status != "" {
		db = db.Where("status = ?", q.Status)
	}
	if q.Industry != "" {
		db = db.Where("industry = ?", q.Industry)
	}
	if q.City != "" {
		db = db.Where("LOWER(city) = LOWER(?)", q.City)
	}
	if q.EmployerID != "" {
		db = db.Scopes(scope.Owner("employer_id", q.EmployerID))
	}
	if q.DateFrom != nil {
		db = db.Where("shift_date >= ?", *q.DateFrom)
	}
	if q.DateTo != nil {
		db = db.Where("shift_date <= ?", *q.DateTo)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var shifts []Shift
	err := db.
		Order("shift_date ASC").
		Order("start_time ASC").
		Scopes(scope.Paginate(q.Page, q.Limit)).
		Find(&shifts).Error
	return shifts, total, err
}

// Update writes the editable columns only; filled_positions is owned by the
// accept flow and never written from here.
func (r *repository) Update(ctx context.Context, s *Shift) error {
	return r.db.WithContext(ctx).
		Model(s).
		Select(
			"title", "description", "industry", "role_type",
			"location_name", "address_line1", "city", "postcode",
			"shift_date", "start_time", "end_time", "total_minutes",
			"hourly_rate", "total_positions", "requirements", "duration_type",
			"updated_at",
		).
		Updates(s).Error
}

func (r *repository) UpdateStatus(ctx context.Context, id, status string) error {
	return r.db.WithContext(ctx).
		Model(&Shift{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()}).Error
}

func (r *repository) Delete(ctx context.Context, employerID, id string) error {
	return r.db.WithContext(ctx).
		Scopes(scope.Owner("employer_id", employerID)).
		Delete(&Shift{}, "id = ?", id).Error
}

func (r *repository) AssignedWorkerIDs(ctx context.Context, shiftID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Table("shift_assignments").
		Where("shift_id = ?", shiftID).
		Pluck("worker_id", &ids).Error
	return ids, err
}

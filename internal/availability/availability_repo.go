package availability

import (
	"context"
	"database/sql"
	"time"

	"github.com/msdp-platform/msdp-flexstaff/internal/auth"
	"github.com/msdp-platform/msdp-flexstaff/internal/shared/dbtx"
	"github.com/msdp-platform/msdp-flexstaff/internal/shared/scope"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SearchQuery struct {
	DateFrom    time.Time
	Date        *time.Time
	StartMinute *int
	EndMinute   *int
	Page        int
	Limit       int
}

//go:generate mockgen -source=availability_repo.go -destination=mock/availability_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository

	LockWorker(ctx context.Context, workerID string) (*auth.Worker, error)
	HasOverlap(ctx context.Context, workerID string, date time.Time, start, end int, excludeID string) (bool, error)

	CreateBatch(ctx context.Context, slots []Slot) error
	FindForWorker(ctx context.Context, workerID, id string) (*Slot, error)
	LockByID(ctx context.Context, id string) (*Slot, error)
	Update(ctx context.Context, slot *Slot) error
	Delete(ctx context.Context, workerID, id string) error
	MarkBooked(ctx context.Context, id, employerID string, at time.Time) (bool, error)

	ListByWorker(ctx context.Context, workerID string, from, to *time.Time) ([]Slot, error)
	ListBookedBy(ctx context.Context, employerID string) ([]Slot, error)
	SearchAvailable(ctx context.Context, q SearchQuery) ([]Slot, int64, error)
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

// LockWorker takes the worker row lock so concurrent slot writes for the
// same worker run one after another and see each other's rows.
func (r *repository) LockWorker(ctx context.Context, workerID string) (*auth.Worker, error) {
	var w auth.Worker
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&w, "id = ?", workerID).Error
	return &w, err
}

func (r *repository) HasOverlap(ctx context.Context, workerID string, date time.Time, start, end int, excludeID string) (bool, error) {
	db := r.db.WithContext(ctx).
		Model(&Slot{}).
		Where("worker_id = ? AND date = ? AND status <> ?", workerID, date, StatusCancelled).
		Where("start_minute < ? AND end_minute > ?", end, start)
	if excludeID != "" {
		db = db.Where("id <> ?", excludeID)
	}
	var count int64
	err := db.Count(&count).Error
	return count > 0, err
}

func (r *repository) CreateBatch(ctx context.Context, slots []Slot) error {
	return r.db.WithContext(ctx).Create(&slots).Error
}

func (r *repository) FindForWorker(ctx context.Context, workerID, id string) (*Slot, error) {
	var s Slot
	err := r.db.WithContext(ctx).
		Scopes(scope.Owner("worker_id", workerID)).
		First(&s, "id = ?", id).Error
	return &s, err
}

func (r *repository) LockByID(ctx context.Context, id string) (*Slot, error) {
	var s Slot
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&s, "id = ?", id).Error
	return &s, err
}

func (r *repository) Update(ctx context.Context, slot *Slot) error {
	return r.db.WithContext(ctx).
		Model(slot).
		Select("date", "start_minute", "end_minute", "hourly_rate", "notes", "status", "updated_at").
		Updates(slot).Error
}

func (r *repository) Delete(ctx context.Context, workerID, id string) error {
	res := r.db.WithContext(ctx).
		Scopes(scope.Owner("worker_id", workerID)).
		Where("id = ? AND status <> ?", id, StatusBooked).
		Delete(&Slot{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkBooked flips an available slot to booked. It reports false when the
// slot was no longer available.
func (r *repository) MarkBooked(ctx context.Context, id, employerID string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&Slot{}).
		Where("id = ? AND status = ?", id, StatusAvailable).
		Updates(map[string]any{
			"status":                StatusBooked,
			"booked_by_employer_id": employerID,
			"booked_at":             at,
			"updated_at":            at,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *repository) ListByWorker(ctx context.Context, workerID string, from, to *time.Time) ([]Slot, error) {
	db := r.db.WithContext(ctx).Scopes(scope.Owner("worker_id", workerID))
	if from != nil {
		db = db.Where("date >= ?", *from)
	}
	if to != nil {
		db = db.Where("date <= ?", *to)
	}
	var rows []Slot
	err := db.Order("date ASC").Order("start_minute ASC").Find(&rows).Error
	return rows, err
}

func (r *repository) ListBookedBy(ctx context.Context, employerID string) ([]Slot, error) {
	var rows []Slot
	err := r.db.WithContext(ctx).
		Where("booked_by_employer_id = ? AND status = ?", employerID, StatusBooked).
		Order("date ASC").Order("start_minute ASC").
		Find(&rows).Error
	return rows, err
}

// SearchAvailable finds open slots that cover the requested window.
func (r *repository) SearchAvailable(ctx context.Context, q SearchQuery) ([]Slot, int64, error) {
	db := r.db.WithContext(ctx).Model(&Slot{}).Where("status = ?", StatusAvailable)
	if q.Date != nil {
		db = db.Where("date = ?", *q.Date)
	} else {
		db = db.Where("date >= ?", q.DateFrom)
	}
	if q.StartMinute != nil {
		db = db.Where("start_minute <= ?", *q.StartMinute)
	}
	if q.EndMinute != nil {
		db = db.Where("end_minute >= ?", *q.EndMinute)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []Slot
	err := db.Order("date ASC").Order("start_minute ASC").
		Scopes(scope.Paginate(q.Page, q.Limit)).
		Find(&rows).Error
	return rows, total, err
}

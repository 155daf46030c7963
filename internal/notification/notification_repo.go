package notification

import (
	"context"
	"time"

	"github.com/msdp-platform/msdp-flexstaff/internal/shared/scope"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ListQuery struct {
	RecipientRole string
	RecipientID   string
	UnreadOnly    bool
	Page          int
	Limit         int
}

//go:generate mockgen -source=notification_repo.go -destination=mock/notification_repo_mock.go -package=mock
type Repository interface {
	// CreateMany inserts rows and skips any that already exist. It returns
	// the number of rows actually inserted.
	CreateMany(ctx context.Context, rows []Notification) (int64, error)
	List(ctx context.Context, q ListQuery) ([]Notification, int64, error)
	MarkRead(ctx context.Context, role, recipientID, id string, at time.Time) (*Notification, error)
	MarkAllRead(ctx context.Context, role, recipientID string, at time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateMany(ctx context.Context, rows []Notification) (int64, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows)
	return res.RowsAffected, res.Error
}

func (r *repository) recipient(ctx context.Context, role, recipientID string) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&Notification{}).
		Where("recipient_role = ?", role).
		Scopes(scope.Owner("recipient_id", recipientID))
}

func (r *repository) List(ctx context.Context, q ListQuery) ([]Notification, int64, error) {
	db := r.recipient(ctx, q.RecipientRole, q.RecipientID)
	if q.UnreadOnly {
		db = db.Where("read_at IS NULL")
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []Notification
	err := db.Order("created_at DESC").
		Scopes(scope.Paginate(q.Page, q.Limit)).
		Find(&rows).Error
	return rows, total, err
}

// MarkRead stamps read_at once; reading an already read notification keeps
// the first timestamp.
func (r *repository) MarkRead(ctx context.Context, role, recipientID, id string, at time.Time) (*Notification, error) {
	res := r.recipient(ctx, role, recipientID).
		Where("id = ?", id).
		Update("read_at", gorm.Expr("COALESCE(read_at, ?)", at))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	var n Notification
	err := r.recipient(ctx, role, recipientID).First(&n, "id = ?", id).Error
	return &n, err
}

func (r *repository) MarkAllRead(ctx context.Context, role, recipientID string, at time.Time) (int64, error) {
	res := r.recipient(ctx, role, recipientID).
		Where("read_at IS NULL").
		Update("read_at", at)
	return res.RowsAffected, res.Error
}

package auth

import (
	"context"
	"database/sql"

	"github.com/msdp-platform/msdp-flexstaff/internal/shared/dbtx"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

//go:generate mockgen -source=auth_repo.go -destination=mock/auth_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	CreateUser(ctx context.Context, user *User) error
	CreateEmployer(ctx context.Context, employer *Employer) error
	CreateWorker(ctx context.Context, worker *Worker) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetEmployerByUserID(ctx context.Context, userID uuid.UUID) (*Employer, error)
	GetWorkerByUserID(ctx context.Context, userID uuid.UUID) (*Worker, error)
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

func (r *repository) CreateUser(ctx context.Context, user *User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *repository) CreateEmployer(ctx context.Context, employer *Employer) error {
	return r.db.WithContext(ctx).Create(employer).Error
}

func (r *repository) CreateWorker(ctx context.Context, worker *Worker) error {
	return r.db.WithContext(ctx).Create(worker).Error
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := r.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&user).Error
	return &user, err
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	var user User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	return &user, err
}

func (r *repository) GetEmployerByUserID(ctx context.Context, userID uuid.UUID) (*Employer, error) {
	var e Employer
	err := r.db.WithContext(ctx).First(&e, "user_id = ?", userID).Error
	return &e, err
}

func (r *repository) GetWorkerByUserID(ctx context.Context, userID uuid.UUID) (*Worker, error) {
	var w Worker
	err := r.db.WithContext(ctx).First(&w, "user_id = ?", userID).Error
	return &w, err
}

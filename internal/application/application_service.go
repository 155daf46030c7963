package application

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	applicationerrors "github.com/msdp-platform/msdp-flexstaff/internal/application/errors"
	"github.com/msdp-platform/msdp-flexstaff/internal/events"
	"github.com/msdp-platform/msdp-flexstaff/internal/messaging/kafka"
	"github.com/msdp-platform/msdp-flexstaff/internal/obs"
	"github.com/msdp-platform/msdp-flexstaff/internal/shared/actor"
	"github.com/msdp-platform/msdp-flexstaff/internal/shift"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	StatusPending   = "pending"
	StatusAccepted  = "accepted"
	StatusRejected  = "rejected"
	StatusWithdrawn = "withdrawn"
)

// ShiftCache is the part of the shift detail cache that accepting an
// application has to invalidate.
type ShiftCache interface {
	Invalidate(ctx context.Context, shiftID string)
}

//go:generate mockgen -source=application_service.go -destination=mock/application_service_mock.go -package=mock
type Service interface {
	Apply(ctx context.Context, workerID, shiftID string, req ApplyRequest) (ApplicationResponse, error)
	Accept(ctx context.Context, employerID, id string) (AcceptResponse, error)
	Reject(ctx context.Context, employerID, id, reason string) (ApplicationResponse, error)
	Withdraw(ctx context.Context, workerID, id string) (ApplicationResponse, error)
	ListForShift(ctx context.Context, employerID, shiftID string) ([]ApplicationResponse, error)
	ListMine(ctx context.Context, workerID string) ([]ApplicationResponse, error)
	ListMyAssignments(ctx context.Context, workerID string) ([]AssignmentResponse, error)
	ConfirmAssignment(ctx context.Context, workerID, assignmentID string) (AssignmentResponse, error)
}

type service struct {
	db     *sql.DB
	repo   Repository
	outbox kafka.OutboxRepository
	cache  ShiftCache
	logger *zap.Logger
}

func NewService(db *sql.DB, repo Repository, outbox kafka.OutboxRepository, cache ShiftCache, logger ...*zap.Logger) Service {
	l := zap.L().Named("application.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("application.service")
	}
	return &service{db: db, repo: repo, outbox: outbox, cache: cache, logger: l}
}

func (s *service) Apply(ctx context.Context, workerID, shiftID string, req ApplyRequest) (ApplicationResponse, error) {
	s.logger.Debug("apply for shift requested",
		zap.String("worker_id", workerID),
		zap.String("shift_id", shiftID),
	)

	workerUUID, err := uuid.Parse(workerID)
	if err != nil {
		return ApplicationResponse{}, applicationerrors.ErrInvalidWorkerID
	}
	shiftUUID, err := uuid.Parse(shiftID)
	if err != nil {
		return ApplicationResponse{}, applicationerrors.ErrInvalidShiftID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("apply for shift begin tx failed", zap.Error(err))
		return ApplicationResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	sh, err := qtx.FindShift(ctx, shiftID)
	if err != nil {
		return ApplicationResponse{}, mapShiftError(err)
	}
	if sh.Status != shift.StatusOpen {
		s.logger.Warn("apply for shift not open", zap.String("shift_id", shiftID), zap.String("status", sh.Status))
		return ApplicationResponse{}, applicationerrors.ErrShiftNotOpen
	}
	if sh.IsFullyBooked() {
		obs.CapacityRejected()
		s.logger.Warn("apply for shift fully booked", zap.String("shift_id", shiftID))
		return ApplicationResponse{}, applicationerrors.ErrCapacityExceeded
	}

	exists, err := qtx.HasActiveApplication(ctx, shiftID, workerID)
	if err != nil {
		s.logger.Error("apply for shift duplicate check failed", zap.Error(err))
		return ApplicationResponse{}, err
	}
	if exists {
		s.logger.Warn("apply for shift duplicate", zap.String("shift_id", shiftID), zap.String("worker_id", workerID))
		return ApplicationResponse{}, applicationerrors.ErrDuplicateApplication
	}

	app := &Application{
		ID:        uuid.New(),
		ShiftID:   shiftUUID,
		WorkerID:  workerUUID,
		Status:    StatusPending,
		Message:   strings.TrimSpace(req.Message),
		AppliedAt: time.Now().UTC(),
	}
	if err := qtx.Create(ctx, app); err != nil {
		if isUniqueViolation(err) {
			return ApplicationResponse{}, applicationerrors.ErrDuplicateApplication
		}
		s.logger.Error("apply for shift persist failed", zap.Error(err))
		return ApplicationResponse{}, err
	}

	if err := events.PublishTx(ctx, s.outbox, tx, events.MarketplaceEvent{
		EventType:     events.ApplicationSubmitted,
		AggregateType: "application",
		AggregateID:   app.ID.String(),
		Recipients:    []events.Recipient{{Role: actor.RoleEmployer, ID: sh.EmployerID.String()}},
		Title:         "New application",
		Message:       fmt.Sprintf("A worker applied for %s (%s)", sh.Title, sh.Reference),
		Data:          map[string]any{"application_id": app.ID.String(), "shift_id": shiftID},
	}); err != nil {
		s.logger.Error("apply for shift outbox failed", zap.Error(err))
		return ApplicationResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("apply for shift commit failed", zap.Error(err))
		return ApplicationResponse{}, err
	}
	s.logger.Info("apply for shift success",
		zap.String("application_id", app.ID.String()),
		zap.String("shift_id", shiftID),
		zap.String("worker_id", workerID),
	)
	return mapToResponse(*app), nil
}

// Accept consumes one shift position. The application and shift rows are
// locked, the increment is guarded by filled_positions < total_positions,
// and the status change, assignment and outbox row commit together.
func (s *service) Accept(ctx context.Context, employerID, id string) (AcceptResponse, error) {
	s.logger.Debug("accept application requested",
		zap.String("application_id", id),
		zap.String("employer_id", employerID),
	)

	employerUUID, err := uuid.Parse(employerID)
	if err != nil {
		return AcceptResponse{}, applicationerrors.ErrApplicationNotFound
	}
	if _, err := uuid.Parse(id); err != nil {
		return AcceptResponse{}, applicationerrors.ErrInvalidApplicationID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("accept application begin tx failed", zap.Error(err))
		return AcceptResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	app, err := qtx.LockByID(ctx, id)
	if err != nil {
		return AcceptResponse{}, mapApplicationError(err)
	}
	sh, err := qtx.LockShiftForEmployer(ctx, employerID, app.ShiftID.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return AcceptResponse{}, applicationerrors.ErrApplicationNotFound
		}
		return AcceptResponse{}, err
	}
	if app.Status != StatusPending {
		s.logger.Warn("accept application invalid status",
			zap.String("application_id", id),
			zap.String("status", app.Status),
		)
		return AcceptResponse{}, applicationerrors.ErrInvalidStatusTransition
	}
	if sh.Status != shift.StatusOpen && sh.Status != shift.StatusInProgress {
		s.logger.Warn("accept application shift closed",
			zap.String("shift_id", sh.ID.String()),
			zap.String("status", sh.Status),
		)
		return AcceptResponse{}, applicationerrors.ErrShiftNotOpen
	}

	ok, err := qtx.IncrementFilled(ctx, sh.ID.String())
	if err != nil {
		s.logger.Error("accept application increment failed", zap.Error(err))
		return AcceptResponse{}, err
	}
	if !ok {
		obs.CapacityRejected()
		s.logger.Warn("accept application capacity exceeded",
			zap.String("application_id", id),
			zap.String("shift_id", sh.ID.String()),
			zap.Int("filled_positions", sh.FilledPositions),
			zap.Int("total_positions", sh.TotalPositions),
		)
		return AcceptResponse{}, applicationerrors.ErrCapacityExceeded
	}
	sh.FilledPositions++

	now := time.Now().UTC()
	app.Status = StatusAccepted
	app.RespondedAt = &now
	app.RejectionReason = nil
	if err := qtx.Update(ctx, app); err != nil {
		s.logger.Error("accept application persist failed", zap.Error(err))
		return AcceptResponse{}, err
	}

	assignment := &Assignment{
		ID:            uuid.New(),
		ShiftID:       sh.ID,
		WorkerID:      app.WorkerID,
		EmployerID:    employerUUID,
		ApplicationID: app.ID,
		AssignedAt:    now,
	}
	if err := qtx.CreateAssignment(ctx, assignment); err != nil {
		if isUniqueViolation(err) {
			return AcceptResponse{}, applicationerrors.ErrAssignmentExists
		}
		s.logger.Error("accept application assignment failed", zap.Error(err))
		return AcceptResponse{}, err
	}

	if err := events.PublishTx(ctx, s.outbox, tx, events.MarketplaceEvent{
		EventType:     events.ApplicationAccepted,
		AggregateType: "application",
		AggregateID:   app.ID.String(),
		Recipients:    []events.Recipient{{Role: actor.RoleWorker, ID: app.WorkerID.String()}},
		Title:         "Application accepted",
		Message:       fmt.Sprintf("You have been booked for %s on %s", sh.Title, sh.ShiftDate.Format("2006-01-02")),
		Data: map[string]any{
			"application_id": app.ID.String(),
			"assignment_id":  assignment.ID.String(),
			"shift_id":       sh.ID.String(),
		},
	}); err != nil {
		s.logger.Error("accept application outbox failed", zap.Error(err))
		return AcceptResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("accept application commit failed", zap.Error(err))
		return AcceptResponse{}, err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, sh.ID.String())
	}
	s.logger.Info("accept application success",
		zap.String("application_id", id),
		zap.String("assignment_id", assignment.ID.String()),
		zap.Int("filled_positions", sh.FilledPositions),
	)

	return AcceptResponse{
		Application:     mapToResponse(*app),
		Assignment:      mapAssignmentToResponse(*assignment),
		FilledPositions: sh.FilledPositions,
		TotalPositions:  sh.TotalPositions,
		IsFullyBooked:   sh.IsFullyBooked(),
	}, nil
}

func (s *service) Reject(ctx context.Context, employerID, id, reason string) (ApplicationResponse, error) {
	s.logger.Debug("reject application requested",
		zap.String("application_id", id),
		zap.String("employer_id", employerID),
	)

	if _, err := uuid.Parse(id); err != nil {
		return ApplicationResponse{}, applicationerrors.ErrInvalidApplicationID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("reject application begin tx failed", zap.Error(err))
		return ApplicationResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	app, err := qtx.LockByID(ctx, id)
	if err != nil {
		return ApplicationResponse{}, mapApplicationError(err)
	}
	sh, err := qtx.FindShiftForEmployer(ctx, employerID, app.ShiftID.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ApplicationResponse{}, applicationerrors.ErrApplicationNotFound
		}
		return ApplicationResponse{}, err
	}
	if app.Status != StatusPending {
		s.logger.Warn("reject application invalid status",
			zap.String("application_id", id),
			zap.String("status", app.Status),
		)
		return ApplicationResponse{}, applicationerrors.ErrInvalidStatusTransition
	}

	now := time.Now().UTC()
	app.Status = StatusRejected
	app.RespondedAt = &now
	if r := strings.TrimSpace(reason); r != "" {
		app.RejectionReason = &r
	}
	if err := qtx.Update(ctx, app); err != nil {
		s.logger.Error("reject application persist failed", zap.Error(err))
		return ApplicationResponse{}, err
	}

	if err := events.PublishTx(ctx, s.outbox, tx, events.MarketplaceEvent{
		EventType:     events.ApplicationRejected,
		AggregateType: "application",
		AggregateID:   app.ID.String(),
		Recipients:    []events.Recipient{{Role: actor.RoleWorker, ID: app.WorkerID.String()}},
		Title:         "Application not successful",
		Message:       fmt.Sprintf("Your application for %s was not successful", sh.Title),
		Data:          map[string]any{"application_id": app.ID.String(), "shift_id": sh.ID.String()},
	}); err != nil {
		s.logger.Error("reject application outbox failed", zap.Error(err))
		return ApplicationResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("reject application commit failed", zap.Error(err))
		return ApplicationResponse{}, err
	}
	s.logger.Info("reject application success", zap.String("application_id", id))
	return mapToResponse(*app), nil
}

func (s *service) Withdraw(ctx context.Context, workerID, id string) (ApplicationResponse, error) {
	s.logger.Debug("withdraw application requested",
		zap.String("application_id", id),
		zap.String("worker_id", workerID),
	)

	if _, err := uuid.Parse(id); err != nil {
		return ApplicationResponse{}, applicationerrors.ErrInvalidApplicationID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("withdraw application begin tx failed", zap.Error(err))
		return ApplicationResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	app, err := qtx.LockByID(ctx, id)
	if err != nil {
		return ApplicationResponse{}, mapApplicationError(err)
	}
	if app.WorkerID.String() != workerID {
		return ApplicationResponse{}, applicationerrors.ErrApplicationNotFound
	}
	if app.Status != StatusPending {
		s.logger.Warn("withdraw application invalid status",
			zap.String("application_id", id),
			zap.String("status", app.Status),
		)
		return ApplicationResponse{}, applicationerrors.ErrInvalidStatusTransition
	}

	sh, err := qtx.FindShift(ctx, app.ShiftID.String())
	if err != nil {
		return ApplicationResponse{}, mapShiftError(err)
	}

	now := time.Now().UTC()
	app.Status = StatusWithdrawn
	app.RespondedAt = &now
	if err := qtx.Update(ctx, app); err != nil {
		s.logger.Error("withdraw application persist failed", zap.Error(err))
		return ApplicationResponse{}, err
	}

	if err := events.PublishTx(ctx, s.outbox, tx, events.MarketplaceEvent{
		EventType:     events.ApplicationWithdrawn,
		AggregateType: "application",
		AggregateID:   app.ID.String(),
		Recipients:    []events.Recipient{{Role: actor.RoleEmployer, ID: sh.EmployerID.String()}},
		Title:         "Application withdrawn",
		Message:       fmt.Sprintf("An application for %s was withdrawn", sh.Title),
		Data:          map[string]any{"application_id": app.ID.String(), "shift_id": sh.ID.String()},
	}); err != nil {
		s.logger.Error("withdraw application outbox failed", zap.Error(err))
		return ApplicationResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("withdraw application commit failed", zap.Error(err))
		return ApplicationResponse{}, err
	}
	s.logger.Info("withdraw application success", zap.String("application_id", id))
	return mapToResponse(*app), nil
}

func (s *service) ListForShift(ctx context.Context, employerID, shiftID string) ([]ApplicationResponse, error) {
	if _, err := uuid.Parse(shiftID); err != nil {
		return nil, applicationerrors.ErrInvalidShiftID
	}
	if _, err := s.repo.FindShiftForEmployer(ctx, employerID, shiftID); err != nil {
		return nil, mapShiftError(err)
	}
	apps, err := s.repo.ListByShift(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	return mapToListResponse(apps), nil
}

func (s *service) ListMine(ctx context.Context, workerID string) ([]ApplicationResponse, error) {
	apps, err := s.repo.ListByWorker(ctx, workerID)
	if err != nil {
		return nil, err
	}
	return mapToListResponse(apps), nil
}

func (s *service) ListMyAssignments(ctx context.Context, workerID string) ([]AssignmentResponse, error) {
	rows, err := s.repo.ListAssignmentsByWorker(ctx, workerID)
	if err != nil {
		return nil, err
	}
	resp := make([]AssignmentResponse, len(rows))
	for i, a := range rows {
		resp[i] = mapAssignmentToResponse(a)
	}
	return resp, nil
}

func (s *service) ConfirmAssignment(ctx context.Context, workerID, assignmentID string) (AssignmentResponse, error) {
	s.logger.Debug("confirm assignment requested",
		zap.String("assignment_id", assignmentID),
		zap.String("worker_id", workerID),
	)

	if _, err := uuid.Parse(assignmentID); err != nil {
		return AssignmentResponse{}, applicationerrors.ErrAssignmentNotFound
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return AssignmentResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	a, err := qtx.LockAssignmentForWorker(ctx, workerID, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return AssignmentResponse{}, applicationerrors.ErrAssignmentNotFound
		}
		return AssignmentResponse{}, err
	}
	if a.ConfirmedByWorker {
		return AssignmentResponse{}, applicationerrors.ErrAssignmentAlreadyConfirmed
	}

	now := time.Now().UTC()
	if err := qtx.ConfirmAssignment(ctx, assignmentID, now); err != nil {
		s.logger.Error("confirm assignment persist failed", zap.Error(err))
		return AssignmentResponse{}, err
	}
	a.ConfirmedByWorker = true
	a.ConfirmedAt = &now

	if err := events.PublishTx(ctx, s.outbox, tx, events.MarketplaceEvent{
		EventType:     events.AssignmentConfirmed,
		AggregateType: "assignment",
		AggregateID:   a.ID.String(),
		Recipients:    []events.Recipient{{Role: actor.RoleEmployer, ID: a.EmployerID.String()}},
		Title:         "Assignment confirmed",
		Message:       "A booked worker confirmed their shift",
		Data:          map[string]any{"assignment_id": a.ID.String(), "shift_id": a.ShiftID.String()},
	}); err != nil {
		s.logger.Error("confirm assignment outbox failed", zap.Error(err))
		return AssignmentResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		return AssignmentResponse{}, err
	}
	s.logger.Info("confirm assignment success", zap.String("assignment_id", assignmentID))
	return mapAssignmentToResponse(*a), nil
}

func mapApplicationError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return applicationerrors.ErrApplicationNotFound
	}
	return err
}

func mapShiftError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return applicationerrors.ErrShiftNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.Format(time.RFC3339)
	return &v
}

func mapToResponse(a Application) ApplicationResponse {
	return ApplicationResponse{
		ID:              a.ID.String(),
		ShiftID:         a.ShiftID.String(),
		WorkerID:        a.WorkerID.String(),
		Status:          a.Status,
		Message:         a.Message,
		RejectionReason: a.RejectionReason,
		AppliedAt:       a.AppliedAt.Format(time.RFC3339),
		RespondedAt:     formatTime(a.RespondedAt),
	}
}

func mapToListResponse(apps []Application) []ApplicationResponse {
	resp := make([]ApplicationResponse, len(apps))
	for i, a := range apps {
		resp[i] = mapToResponse(a)
	}
	return resp
}

func mapAssignmentToResponse(a Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:                a.ID.String(),
		ShiftID:           a.ShiftID.String(),
		WorkerID:          a.WorkerID.String(),
		EmployerID:        a.EmployerID.String(),
		ApplicationID:     a.ApplicationID.String(),
		AssignedAt:        a.AssignedAt.Format(time.RFC3339),
		ConfirmedByWorker: a.ConfirmedByWorker,
		ConfirmedAt:       formatTime(a.ConfirmedAt),
	}
}

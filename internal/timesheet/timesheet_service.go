package timesheet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/msdp-platform/msdp-flexstaff/internal/events"
	"github.com/msdp-platform/msdp-flexstaff/internal/messaging/kafka"
	"github.com/msdp-platform/msdp-flexstaff/internal/shared/actor"
	"github.com/msdp-platform/msdp-flexstaff/internal/shared/apperror"
	"github.com/msdp-platform/msdp-flexstaff/internal/shared/money"
	timesheeterrors "github.com/msdp-platform/msdp-flexstaff/internal/timesheet/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	StatusPending   = "pending"
	StatusSubmitted = "submitted"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusDisputed  = "disputed"

	defaultPageLimit = 20
	maxPageLimit     = 100
)

// Settler starts payment settlement for an approved timesheet.
type Settler interface {
	Settle(ctx context.Context, employerID, timesheetID string) (SettlementResult, error)
}

//go:generate mockgen -source=timesheet_service.go -destination=mock/timesheet_service_mock.go -package=mock
type Service interface {
	Create(ctx context.Context, workerID string, req CreateTimesheetRequest) (TimesheetResponse, error)
	ClockIn(ctx context.Context, workerID, id string) (TimesheetResponse, error)
	ClockOut(ctx context.Context, workerID, id string, breakMinutes int) (TimesheetResponse, error)
	Submit(ctx context.Context, workerID, id string) (TimesheetResponse, error)
	Approve(ctx context.Context, employerID, id string) (ApproveResponse, error)
	Reject(ctx context.Context, employerID, id, notes string) (TimesheetResponse, error)
	Dispute(ctx context.Context, a actor.Actor, id, reason string) (TimesheetResponse, error)
	List(ctx context.Context, a actor.Actor, filter ListFilter) ([]TimesheetResponse, int64, error)
	ListDisputes(ctx context.Context, page, limit int) ([]TimesheetResponse, int64, error)
	GetByID(ctx context.Context, a actor.Actor, id string) (TimesheetResponse, error)
}

type service struct {
	db      *sql.DB
	repo    Repository
	outbox  kafka.OutboxRepository
	settler Settler
	logger  *zap.Logger
}

func NewService(db *sql.DB, repo Repository, outbox kafka.OutboxRepository, settler Settler, logger ...*zap.Logger) Service {
	l := zap.L().Named("timesheet.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("timesheet.service")
	}
	return &service{db: db, repo: repo, outbox: outbox, settler: settler, logger: l}
}

func (s *service) Create(ctx context.Context, workerID string, req CreateTimesheetRequest) (TimesheetResponse, error) {
	s.logger.Debug("create timesheet requested",
		zap.String("worker_id", workerID),
		zap.String("assignment_id", req.AssignmentID),
	)

	if _, err := uuid.Parse(req.AssignmentID); err != nil {
		return TimesheetResponse{}, timesheeterrors.ErrAssignmentNotFound
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("create timesheet begin tx failed", zap.Error(err))
		return TimesheetResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	a, err := qtx.FindAssignmentForWorker(ctx, workerID, req.AssignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return TimesheetResponse{}, timesheeterrors.ErrAssignmentNotFound
		}
		return TimesheetResponse{}, err
	}

	exists, err := qtx.ExistsForAssignment(ctx, req.AssignmentID)
	if err != nil {
		return TimesheetResponse{}, err
	}
	if exists {
		s.logger.Warn("create timesheet duplicate", zap.String("assignment_id", req.AssignmentID))
		return TimesheetResponse{}, timesheeterrors.ErrTimesheetExists
	}

	t := &Timesheet{
		ID:           uuid.New(),
		AssignmentID: a.ID,
		ShiftID:      a.ShiftID,
		WorkerID:     a.WorkerID,
		EmployerID:   a.EmployerID,
		Status:       StatusPending,
	}
	if err := qtx.Create(ctx, t); err != nil {
		if isUniqueViolation(err) {
			return TimesheetResponse{}, timesheeterrors.ErrTimesheetExists
		}
		s.logger.Error("create timesheet persist failed", zap.Error(err))
		return TimesheetResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("create timesheet commit failed", zap.Error(err))
		return TimesheetResponse{}, err
	}
	s.logger.Info("create timesheet success",
		zap.String("timesheet_id", t.ID.String()),
		zap.String("assignment_id", req.AssignmentID),
	)
	return mapToResponse(*t), nil
}

func (s *service) ClockIn(ctx context.Context, workerID, id string) (TimesheetResponse, error) {
	t, err := s.mutate(ctx, "clock in", id, workerParty(workerID), func(_ Repository, t *Timesheet, now time.Time) (*events.MarketplaceEvent, error) {
		if t.IsClockedIn() {
			return nil, timesheeterrors.ErrAlreadyClockedIn
		}
		if t.Status != StatusPending {
			return nil, timesheeterrors.ErrNotPending
		}
		t.ClockInTime = &now
		return nil, nil
	})
	if err != nil {
		return TimesheetResponse{}, err
	}
	return mapToResponse(*t), nil
}

// ClockOut stamps the end time, snapshots the shift's current hourly rate and
// derives hours and pay. Worked time never goes below zero.
func (s *service) ClockOut(ctx context.Context, workerID, id string, breakMinutes int) (TimesheetResponse, error) {
	if breakMinutes < 0 {
		return TimesheetResponse{}, timesheeterrors.ErrNegativeBreak
	}

	t, err := s.mutate(ctx, "clock out", id, workerParty(workerID), func(qtx Repository, t *Timesheet, now time.Time) (*events.MarketplaceEvent, error) {
		if !t.IsClockedIn() {
			return nil, timesheeterrors.ErrNotClockedIn
		}
		if t.IsClockedOut() {
			return nil, timesheeterrors.ErrAlreadyClockedOut
		}
		if t.Status != StatusPending {
			return nil, timesheeterrors.ErrNotPending
		}

		rate, err := qtx.ShiftRate(ctx, t.ShiftID.String())
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, timesheeterrors.ErrShiftNotFound
			}
			return nil, err
		}

		elapsed := int64(math.Round(now.Sub(*t.ClockInTime).Minutes()))
		if elapsed < 0 {
			elapsed = 0
		}

		t.ClockOutTime = &now
		t.BreakMinutes = breakMinutes
		t.HourlyRate = rate
		t.TotalHoursCenti = money.WorkedCentiHours(elapsed, int64(breakMinutes))
		t.TotalAmount = money.AmountForHours(t.TotalHoursCenti, rate)
		return nil, nil
	})
	if err != nil {
		return TimesheetResponse{}, err
	}
	return mapToResponse(*t), nil
}

func (s *service) Submit(ctx context.Context, workerID, id string) (TimesheetResponse, error) {
	t, err := s.mutate(ctx, "submit timesheet", id, workerParty(workerID), func(_ Repository, t *Timesheet, now time.Time) (*events.MarketplaceEvent, error) {
		if !t.IsClockedOut() {
			return nil, timesheeterrors.ErrNotClockedOut
		}
		if t.Status != StatusPending {
			return nil, timesheeterrors.ErrAlreadySubmitted
		}
		t.Status = StatusSubmitted
		t.SubmittedAt = &now
		return &events.MarketplaceEvent{
			EventType:  events.TimesheetSubmitted,
			Recipients: []events.Recipient{{Role: actor.RoleEmployer, ID: t.EmployerID.String()}},
			Title:      "Timesheet submitted",
			Message:    fmt.Sprintf("A timesheet for %.2f hours is waiting for approval", money.CentiHoursToHours(t.TotalHoursCenti)),
		}, nil
	})
	if err != nil {
		return TimesheetResponse{}, err
	}
	return mapToResponse(*t), nil
}

// Approve commits the approval first and then hands the timesheet to the
// settler. A settlement failure is reported in the response and leaves the
// approval in place so settlement can be retried.
func (s *service) Approve(ctx context.Context, employerID, id string) (ApproveResponse, error) {
	t, err := s.mutate(ctx, "approve timesheet", id, employerParty(employerID), func(_ Repository, t *Timesheet, now time.Time) (*events.MarketplaceEvent, error) {
		if t.Status != StatusSubmitted {
			return nil, timesheeterrors.ErrNotSubmitted
		}
		t.Status = StatusApproved
		t.ApprovedAt = &now
		return &events.MarketplaceEvent{
			EventType:  events.TimesheetApproved,
			Recipients: []events.Recipient{{Role: actor.RoleWorker, ID: t.WorkerID.String()}},
			Title:      "Timesheet approved",
			Message:    fmt.Sprintf("Your timesheet for £%s was approved", money.FormatPence(t.TotalAmount)),
		}, nil
	})
	if err != nil {
		return ApproveResponse{}, err
	}

	resp := ApproveResponse{Timesheet: mapToResponse(*t)}
	if s.settler == nil {
		return resp, nil
	}

	result, err := s.settler.Settle(ctx, employerID, id)
	if err != nil {
		httpErr := apperror.ToHTTP(err)
		s.logger.Error("approve timesheet settlement failed",
			zap.String("timesheet_id", id),
			zap.String("code", httpErr.Code),
			zap.Error(err),
		)
		result = SettlementResult{ErrorCode: httpErr.Code, Error: httpErr.Message}
	}
	resp.Settlement = &result
	return resp, nil
}

func (s *service) Reject(ctx context.Context, employerID, id, notes string) (TimesheetResponse, error) {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return TimesheetResponse{}, timesheeterrors.ErrNotesRequired
	}

	t, err := s.mutate(ctx, "reject timesheet", id, employerParty(employerID), func(_ Repository, t *Timesheet, now time.Time) (*events.MarketplaceEvent, error) {
		if t.Status != StatusSubmitted {
			return nil, timesheeterrors.ErrNotSubmitted
		}
		t.Status = StatusRejected
		t.RejectedAt = &now
		t.Notes = &notes
		return &events.MarketplaceEvent{
			EventType:  events.TimesheetRejected,
			Recipients: []events.Recipient{{Role: actor.RoleWorker, ID: t.WorkerID.String()}},
			Title:      "Timesheet rejected",
			Message:    notes,
		}, nil
	})
	if err != nil {
		return TimesheetResponse{}, err
	}
	return mapToResponse(*t), nil
}

// Dispute flags a timesheet from any status except disputed. Either party
// may raise it and the other party is notified.
func (s *service) Dispute(ctx context.Context, a actor.Actor, id, reason string) (TimesheetResponse, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return TimesheetResponse{}, timesheeterrors.ErrDisputeReasonRequired
	}

	t, err := s.mutate(ctx, "dispute timesheet", id, anyParty(a), func(_ Repository, t *Timesheet, now time.Time) (*events.MarketplaceEvent, error) {
		if t.Status == StatusDisputed {
			return nil, timesheeterrors.ErrAlreadyDisputed
		}
		role := a.Role
		t.Status = StatusDisputed
		t.DisputedAt = &now
		t.DisputeReason = &reason
		t.DisputedByRole = &role

		other := events.Recipient{Role: actor.RoleEmployer, ID: t.EmployerID.String()}
		if a.IsEmployer() {
			other = events.Recipient{Role: actor.RoleWorker, ID: t.WorkerID.String()}
		}
		return &events.MarketplaceEvent{
			EventType:  events.TimesheetDisputed,
			Recipients: []events.Recipient{other},
			Title:      "Timesheet disputed",
			Message:    reason,
			Data:       map[string]any{"disputed_by_role": role},
		}, nil
	})
	if err != nil {
		return TimesheetResponse{}, err
	}
	return mapToResponse(*t), nil
}

func (s *service) List(ctx context.Context, a actor.Actor, filter ListFilter) ([]TimesheetResponse, int64, error) {
	q, err := buildListQuery(filter)
	if err != nil {
		return nil, 0, err
	}
	switch {
	case a.IsWorker():
		q.WorkerID = a.ProfileID
	case a.IsEmployer():
		q.EmployerID = a.ProfileID
	case a.IsAdmin():
	default:
		return []TimesheetResponse{}, 0, nil
	}

	rows, total, err := s.repo.List(ctx, q)
	if err != nil {
		s.logger.Error("list timesheets failed", zap.Error(err))
		return nil, 0, err
	}
	return mapToListResponse(rows), total, nil
}

func (s *service) ListDisputes(ctx context.Context, page, limit int) ([]TimesheetResponse, int64, error) {
	page, limit = normalizePage(page, limit)
	rows, total, err := s.repo.ListDisputed(ctx, page, limit)
	if err != nil {
		s.logger.Error("list disputed timesheets failed", zap.Error(err))
		return nil, 0, err
	}
	return mapToListResponse(rows), total, nil
}

func (s *service) GetByID(ctx context.Context, a actor.Actor, id string) (TimesheetResponse, error) {
	if _, err := uuid.Parse(id); err != nil {
		return TimesheetResponse{}, timesheeterrors.ErrInvalidTimesheetID
	}
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return TimesheetResponse{}, mapRepositoryError(err)
	}
	if !a.IsAdmin() && !anyParty(a)(t) {
		return TimesheetResponse{}, timesheeterrors.ErrTimesheetNotFound
	}
	return mapToResponse(*t), nil
}

type partyCheck func(t *Timesheet) bool

func workerParty(workerID string) partyCheck {
	return func(t *Timesheet) bool { return t.WorkerID.String() == workerID }
}

func employerParty(employerID string) partyCheck {
	return func(t *Timesheet) bool { return t.EmployerID.String() == employerID }
}

func anyParty(a actor.Actor) partyCheck {
	return func(t *Timesheet) bool {
		switch {
		case a.IsWorker():
			return t.WorkerID.String() == a.ProfileID
		case a.IsEmployer():
			return t.EmployerID.String() == a.ProfileID
		default:
			return false
		}
	}
}

type changeFunc func(qtx Repository, t *Timesheet, now time.Time) (*events.MarketplaceEvent, error)

// mutate runs one lifecycle step: lock the row, check the caller is the
// right party, apply the change, persist it and write its event in the same
// transaction.
func (s *service) mutate(ctx context.Context, op, id string, party partyCheck, change changeFunc) (*Timesheet, error) {
	s.logger.Debug(op+" requested", zap.String("timesheet_id", id))

	if _, err := uuid.Parse(id); err != nil {
		return nil, timesheeterrors.ErrInvalidTimesheetID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error(op+" begin tx failed", zap.Error(err))
		return nil, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	t, err := qtx.LockByID(ctx, id)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	if !party(t) {
		return nil, timesheeterrors.ErrTimesheetNotFound
	}

	prevStatus := t.Status
	now := time.Now().UTC()
	ev, err := change(qtx, t, now)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			s.logger.Warn(op+" rejected",
				zap.String("timesheet_id", id),
				zap.String("status", prevStatus),
				zap.String("reason", appErr.Message),
			)
		} else {
			s.logger.Error(op+" failed", zap.String("timesheet_id", id), zap.Error(err))
		}
		return nil, err
	}
	if t.Status != prevStatus && !isAllowedStatusTransition(prevStatus, t.Status) {
		return nil, timesheeterrors.ErrInvalidStatusTransition
	}
	t.UpdatedAt = now

	if err := qtx.Update(ctx, t); err != nil {
		s.logger.Error(op+" persist failed", zap.String("timesheet_id", id), zap.Error(err))
		return nil, err
	}

	if ev != nil {
		ev.AggregateType = "timesheet"
		ev.AggregateID = t.ID.String()
		if ev.Data == nil {
			ev.Data = map[string]any{}
		}
		ev.Data["timesheet_id"] = t.ID.String()
		if err := events.PublishTx(ctx, s.outbox, tx, *ev); err != nil {
			s.logger.Error(op+" outbox failed", zap.Error(err))
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error(op+" commit failed", zap.Error(err))
		return nil, err
	}
	s.logger.Info(op+" success",
		zap.String("timesheet_id", id),
		zap.String("status", t.Status),
	)
	return t, nil
}

func isAllowedStatusTransition(currentStatus, targetStatus string) bool {
	if targetStatus == StatusDisputed {
		return currentStatus != StatusDisputed
	}
	switch currentStatus {
	case StatusPending:
		return targetStatus == StatusSubmitted
	case StatusSubmitted:
		return targetStatus == StatusApproved || targetStatus == StatusRejected
	default:
		return false
	}
}

func buildListQuery(filter ListFilter) (ListQuery, error) {
	status := strings.TrimSpace(filter.Status)
	switch status {
	case "", StatusPending, StatusSubmitted, StatusApproved, StatusRejected, StatusDisputed:
	default:
		return ListQuery{}, timesheeterrors.ErrInvalidStatusFilter
	}
	page, limit := normalizePage(filter.Page, filter.Limit)
	return ListQuery{Status: status, Page: page, Limit: limit}, nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}

func mapRepositoryError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return timesheeterrors.ErrTimesheetNotFound
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
	v := t.UTC().Format(time.RFC3339)
	return &v
}

func mapToResponse(t Timesheet) TimesheetResponse {
	return TimesheetResponse{
		ID:             t.ID.String(),
		AssignmentID:   t.AssignmentID.String(),
		ShiftID:        t.ShiftID.String(),
		WorkerID:       t.WorkerID.String(),
		EmployerID:     t.EmployerID.String(),
		ClockInTime:    formatTime(t.ClockInTime),
		ClockOutTime:   formatTime(t.ClockOutTime),
		BreakMinutes:   t.BreakMinutes,
		TotalHours:     money.CentiHoursToHours(t.TotalHoursCenti),
		HourlyRate:     t.HourlyRate,
		TotalAmount:    t.TotalAmount,
		Status:         t.Status,
		SubmittedAt:    formatTime(t.SubmittedAt),
		ApprovedAt:     formatTime(t.ApprovedAt),
		RejectedAt:     formatTime(t.RejectedAt),
		Notes:          t.Notes,
		DisputedAt:     formatTime(t.DisputedAt),
		DisputeReason:  t.DisputeReason,
		DisputedByRole: t.DisputedByRole,
	}
}

func mapToListResponse(rows []Timesheet) []TimesheetResponse {
	resp := make([]TimesheetResponse, len(rows))
	for i, t := range rows {
		resp[i] = mapToResponse(t)
	}
	return resp
}

package shift

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/msdp-platform/msdp-flexstaff/internal/events"
	"github.com/msdp-platform/msdp-flexstaff/internal/messaging/kafka"
	shifterrors "github.com/msdp-platform/msdp-flexstaff/internal/shift/errors"
	"github.com/msdp-platform/msdp-flexstaff/internal/shared/actor"
	"github.com/msdp-platform/msdp-flexstaff/internal/shared/counter"
	"github.com/msdp-platform/msdp-flexstaff/internal/shared/money"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

const (
	StatusDraft      = "draft"
	StatusOpen       = "open"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"

	DurationQuick    = "quick"
	DurationDay      = "day"
	DurationMultiDay = "multi_day"

	defaultPageLimit = 20
	maxPageLimit     = 100
	minutesPerDay    = 24 * 60
)

//go:generate mockgen -source=shift_service.go -destination=mock/shift_service_mock.go -package=mock
type Service interface {
	Create(ctx context.Context, employerID string, req CreateShiftRequest) (ShiftResponse, error)
	List(ctx context.Context, filter ListFilter) ([]ShiftResponse, int64, error)
	ListMine(ctx context.Context, employerID string, filter ListFilter) ([]ShiftResponse, int64, error)
	GetByID(ctx context.Context, id string) (ShiftResponse, error)
	Update(ctx context.Context, employerID, id string, req UpdateShiftRequest) (ShiftResponse, error)
	Delete(ctx context.Context, employerID, id string) error
	Publish(ctx context.Context, employerID, id string) (ShiftResponse, error)
	Start(ctx context.Context, employerID, id string) (ShiftResponse, error)
	Complete(ctx context.Context, employerID, id string) (ShiftResponse, error)
	Cancel(ctx context.Context, employerID, id string) (ShiftResponse, error)
}

type service struct {
	db       *sql.DB
	repo     Repository
	counters counter.Repository
	cache    *Cache
	outbox   kafka.OutboxRepository
	sf       *singleflight.Group
	logger   *zap.Logger
}

func NewService(
	db *sql.DB,
	repo Repository,
	counters counter.Repository,
	cache *Cache,
	outbox kafka.OutboxRepository,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("shift.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("shift.service")
	}
	return &service{
		db:       db,
		repo:     repo,
		counters: counters,
		cache:    cache,
		outbox:   outbox,
		sf:       &singleflight.Group{},
		logger:   l,
	}
}

func (s *service) Create(ctx context.Context, employerID string, req CreateShiftRequest) (ShiftResponse, error) {
	s.logger.Debug("create shift requested",
		zap.String("employer_id", employerID),
		zap.String("shift_date", req.ShiftDate),
	)

	employerUUID, err := uuid.Parse(employerID)
	if err != nil {
		return ShiftResponse{}, shifterrors.ErrInvalidEmployerID
	}
	shiftDate, err := parseDate(req.ShiftDate)
	if err != nil {
		return ShiftResponse{}, err
	}
	totalMinutes, err := shiftMinutes(req.StartTime, req.EndTime)
	if err != nil {
		s.logger.Warn("create shift validation failed", zap.Error(err))
		return ShiftResponse{}, err
	}

	positions := req.TotalPositions
	if positions == 0 {
		positions = 1
	}
	durationType := req.DurationType
	if durationType == "" {
		durationType = DurationDay
	}

	seq, err := s.counters.GetNextValue(ctx, employerID, counter.TypeShift)
	if err != nil {
		s.logger.Error("create shift reference failed", zap.Error(err))
		return ShiftResponse{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("create shift begin tx failed", zap.Error(err))
		return ShiftResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	sh := &Shift{
		ID:              uuid.New(),
		EmployerID:      employerUUID,
		Reference:       counter.ShiftReference(seq),
		Title:           strings.TrimSpace(req.Title),
		Description:     req.Description,
		Industry:        req.Industry,
		RoleType:        req.RoleType,
		LocationName:    req.LocationName,
		AddressLine1:    req.AddressLine1,
		City:            req.City,
		Postcode:        req.Postcode,
		ShiftDate:       shiftDate,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		TotalMinutes:    totalMinutes,
		HourlyRate:      req.HourlyRate,
		TotalPositions:  positions,
		FilledPositions: 0,
		Requirements:    req.Requirements,
		Status:          StatusDraft,
		DurationType:    durationType,
	}

	if err := qtx.Create(ctx, sh); err != nil {
		s.logger.Error("create shift persist failed", zap.Error(err))
		return ShiftResponse{}, mapRepositoryError(err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("create shift commit failed", zap.Error(err))
		return ShiftResponse{}, err
	}
	s.logger.Info("create shift success",
		zap.String("shift_id", sh.ID.String()),
		zap.String("reference", sh.Reference),
		zap.String("employer_id", employerID),
	)

	return mapToResponse(*sh), nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]ShiftResponse, int64, error) {
	if filter.Status == "" {
		filter.Status = StatusOpen
	}
	return s.list(ctx, filter)
}

func (s *service) ListMine(ctx context.Context, employerID string, filter ListFilter) ([]ShiftResponse, int64, error) {
	if _, err := uuid.Parse(employerID); err != nil {
		return nil, 0, shifterrors.ErrInvalidEmployerID
	}
	filter.EmployerID = employerID
	return s.list(ctx, filter)
}

func (s *service) list(ctx context.Context, filter ListFilter) ([]ShiftResponse, int64, error) {
	q, err := buildListQuery(filter)
	if err != nil {
		return nil, 0, err
	}

	shifts, total, err := s.repo.List(ctx, q)
	if err != nil {
		s.logger.Error("list shifts failed", zap.Error(err))
		return nil, 0, err
	}
	return mapToListResponse(shifts), total, nil
}

// GetByID reads through the detail cache. Concurrent misses for the same id
// share one database read.
func (s *service) GetByID(ctx context.Context, id string) (ShiftResponse, error) {
	if _, err := uuid.Parse(id); err != nil {
		return ShiftResponse{}, shifterrors.ErrInvalidShiftID
	}

	if resp, ok := s.cache.Get(ctx, id); ok {
		return resp, nil
	}

	v, err, _ := s.sf.Do(DetailKey(id), func() (interface{}, error) {
		sh, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, mapRepositoryError(err)
		}
		resp := mapToResponse(*sh)
		s.cache.Set(ctx, resp)
		return resp, nil
	})
	if err != nil {
		return ShiftResponse{}, err
	}
	return v.(ShiftResponse), nil
}

func (s *service) Update(ctx context.Context, employerID, id string, req UpdateShiftRequest) (ShiftResponse, error) {
	s.logger.Debug("update shift requested",
		zap.String("shift_id", id),
		zap.String("employer_id", employerID),
	)

	if _, err := uuid.Parse(id); err != nil {
		return ShiftResponse{}, shifterrors.ErrInvalidShiftID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("update shift begin tx failed", zap.Error(err))
		return ShiftResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	sh, err := qtx.LockByIDAndEmployer(ctx, employerID, id)
	if err != nil {
		return ShiftResponse{}, mapRepositoryError(err)
	}
	if sh.Status != StatusDraft && sh.Status != StatusOpen {
		s.logger.Warn("update shift not editable",
			zap.String("shift_id", id),
			zap.String("status", sh.Status),
		)
		return ShiftResponse{}, shifterrors.ErrShiftNotEditable
	}

	if err := applyUpdate(sh, req); err != nil {
		s.logger.Warn("update shift validation failed", zap.String("shift_id", id), zap.Error(err))
		return ShiftResponse{}, err
	}

	if err := qtx.Update(ctx, sh); err != nil {
		s.logger.Error("update shift persist failed", zap.String("shift_id", id), zap.Error(err))
		return ShiftResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("update shift commit failed", zap.String("shift_id", id), zap.Error(err))
		return ShiftResponse{}, err
	}
	s.cache.Invalidate(ctx, id)
	s.logger.Info("update shift success", zap.String("shift_id", id))

	return mapToResponse(*sh), nil
}

func (s *service) Delete(ctx context.Context, employerID, id string) error {
	s.logger.Debug("delete shift requested", zap.String("shift_id", id), zap.String("employer_id", employerID))

	if _, err := uuid.Parse(id); err != nil {
		return shifterrors.ErrInvalidShiftID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	sh, err := qtx.LockByIDAndEmployer(ctx, employerID, id)
	if err != nil {
		return mapRepositoryError(err)
	}
	if sh.FilledPositions > 0 {
		s.logger.Warn("delete shift refused, positions filled",
			zap.String("shift_id", id),
			zap.Int("filled_positions", sh.FilledPositions),
		)
		return shifterrors.ErrShiftHasAssignments
	}

	if err := qtx.Delete(ctx, employerID, id); err != nil {
		s.logger.Error("delete shift persist failed", zap.String("shift_id", id), zap.Error(err))
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, id)
	s.logger.Info("delete shift success", zap.String("shift_id", id))
	return nil
}

func isAllowedStatusTransition(currentStatus, targetStatus string) bool {
	switch currentStatus {
	case StatusDraft:
		return targetStatus == StatusOpen || targetStatus == StatusCancelled
	case StatusOpen:
		return targetStatus == StatusInProgress || targetStatus == StatusCancelled
	case StatusInProgress:
		return targetStatus == StatusCompleted
	default:
		return false
	}
}

func (s *service) Publish(ctx context.Context, employerID, id string) (ShiftResponse, error) {
	return s.transitionShiftStatus(ctx, employerID, id, StatusOpen)
}

func (s *service) Start(ctx context.Context, employerID, id string) (ShiftResponse, error) {
	return s.transitionShiftStatus(ctx, employerID, id, StatusInProgress)
}

func (s *service) Complete(ctx context.Context, employerID, id string) (ShiftResponse, error) {
	return s.transitionShiftStatus(ctx, employerID, id, StatusCompleted)
}

func (s *service) Cancel(ctx context.Context, employerID, id string) (ShiftResponse, error) {
	return s.transitionShiftStatus(ctx, employerID, id, StatusCancelled)
}

func (s *service) transitionShiftStatus(ctx context.Context, employerID, id, targetStatus string) (ShiftResponse, error) {
	s.logger.Debug("transition shift status requested",
		zap.String("shift_id", id),
		zap.String("employer_id", employerID),
		zap.String("target_status", targetStatus),
	)

	if _, err := uuid.Parse(id); err != nil {
		return ShiftResponse{}, shifterrors.ErrInvalidShiftID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("transition shift status begin tx failed", zap.Error(err))
		return ShiftResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	sh, err := qtx.LockByIDAndEmployer(ctx, employerID, id)
	if err != nil {
		return ShiftResponse{}, mapRepositoryError(err)
	}
	if !isAllowedStatusTransition(sh.Status, targetStatus) {
		s.logger.Warn("transition shift status invalid",
			zap.String("shift_id", id),
			zap.String("from_status", sh.Status),
			zap.String("to_status", targetStatus),
		)
		return ShiftResponse{}, shifterrors.ErrInvalidStatusTransition
	}

	if err := qtx.UpdateStatus(ctx, id, targetStatus); err != nil {
		s.logger.Error("transition shift status persist failed",
			zap.String("shift_id", id),
			zap.String("target_status", targetStatus),
			zap.Error(err),
		)
		return ShiftResponse{}, err
	}
	sh.Status = targetStatus

	if err := s.publishStatusEvent(ctx, qtx, tx, sh); err != nil {
		s.logger.Error("transition shift status outbox failed", zap.String("shift_id", id), zap.Error(err))
		return ShiftResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("transition shift status commit failed", zap.String("shift_id", id), zap.Error(err))
		return ShiftResponse{}, err
	}
	s.cache.Invalidate(ctx, id)
	s.logger.Info("transition shift status success",
		zap.String("shift_id", id),
		zap.String("status", targetStatus),
	)
	return mapToResponse(*sh), nil
}

func (s *service) publishStatusEvent(ctx context.Context, qtx Repository, tx *sql.Tx, sh *Shift) error {
	switch sh.Status {
	case StatusOpen:
		return events.PublishTx(ctx, s.outbox, tx, events.MarketplaceEvent{
			EventType:     events.ShiftPublished,
			AggregateType: "shift",
			AggregateID:   sh.ID.String(),
			Recipients:    []events.Recipient{{Role: actor.RoleEmployer, ID: sh.EmployerID.String()}},
			Title:         "Shift published",
			Message:       fmt.Sprintf("%s (%s) is now open for applications", sh.Title, sh.Reference),
			Data:          map[string]any{"shift_id": sh.ID.String(), "reference": sh.Reference},
		})
	case StatusCancelled:
		workerIDs, err := qtx.AssignedWorkerIDs(ctx, sh.ID.String())
		if err != nil {
			return err
		}
		recipients := make([]events.Recipient, 0, len(workerIDs))
		for _, w := range workerIDs {
			recipients = append(recipients, events.Recipient{Role: actor.RoleWorker, ID: w})
		}
		return events.PublishTx(ctx, s.outbox, tx, events.MarketplaceEvent{
			EventType:     events.ShiftCancelled,
			AggregateType: "shift",
			AggregateID:   sh.ID.String(),
			Recipients:    recipients,
			Title:         "Shift cancelled",
			Message:       fmt.Sprintf("%s on %s has been cancelled", sh.Title, sh.ShiftDate.Format("2006-01-02")),
			Data:          map[string]any{"shift_id": sh.ID.String(), "reference": sh.Reference},
		})
	}
	return nil
}

func applyUpdate(sh *Shift, req UpdateShiftRequest) error {
	if req.Title != nil {
		sh.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		sh.Description = *req.Description
	}
	if req.Industry != nil {
		sh.Industry = *req.Industry
	}
	if req.RoleType != nil {
		sh.RoleType = *req.RoleType
	}
	if req.LocationName != nil {
		sh.LocationName = *req.LocationName
	}
	if req.AddressLine1 != nil {
		sh.AddressLine1 = *req.AddressLine1
	}
	if req.City != nil {
		sh.City = *req.City
	}
	if req.Postcode != nil {
		sh.Postcode = *req.Postcode
	}
	if req.ShiftDate != nil {
		d, err := parseDate(*req.ShiftDate)
		if err != nil {
			return err
		}
		sh.ShiftDate = d
	}
	if req.StartTime != nil {
		sh.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		sh.EndTime = *req.EndTime
	}
	if req.StartTime != nil || req.EndTime != nil {
		minutes, err := shiftMinutes(sh.StartTime, sh.EndTime)
		if err != nil {
			return err
		}
		sh.TotalMinutes = minutes
	}
	if req.HourlyRate != nil {
		sh.HourlyRate = *req.HourlyRate
	}
	if req.TotalPositions != nil {
		if *req.TotalPositions < sh.FilledPositions {
			return shifterrors.ErrPositionsBelowFilled
		}
		sh.TotalPositions = *req.TotalPositions
	}
	if req.Requirements != nil {
		sh.Requirements = *req.Requirements
	}
	if req.DurationType != nil {
		sh.DurationType = *req.DurationType
	}
	return nil
}

func buildListQuery(filter ListFilter) (ListQuery, error) {
	q := ListQuery{
		Status:     filter.Status,
		Industry:   filter.Industry,
		City:       strings.TrimSpace(filter.City),
		EmployerID: filter.EmployerID,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}
	if q.Status != "" && !isKnownStatus(q.Status) {
		return ListQuery{}, shifterrors.ErrInvalidStatusFilter
	}
	if filter.DateFrom != "" {
		d, err := parseDate(filter.DateFrom)
		if err != nil {
			return ListQuery{}, err
		}
		q.DateFrom = &d
	}
	if filter.DateTo != "" {
		d, err := parseDate(filter.DateTo)
		if err != nil {
			return ListQuery{}, err
		}
		q.DateTo = &d
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = defaultPageLimit
	}
	if q.Limit > maxPageLimit {
		q.Limit = maxPageLimit
	}
	return q, nil
}

func isKnownStatus(status string) bool {
	switch status {
	case StatusDraft, StatusOpen, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func parseDate(v string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, shifterrors.ErrInvalidDateFormat
	}
	return t, nil
}

// shiftMinutes returns the scheduled length. An end time at or before the
// start time is read as finishing the next day.
func shiftMinutes(start, end string) (int, error) {
	st, err := time.Parse("15:04", start)
	if err != nil {
		return 0, shifterrors.ErrInvalidTimeFormat
	}
	et, err := time.Parse("15:04", end)
	if err != nil {
		return 0, shifterrors.ErrInvalidTimeFormat
	}
	if st.Equal(et) {
		return 0, shifterrors.ErrInvalidTimeRange
	}
	minutes := int(et.Sub(st).Minutes())
	if minutes < 0 {
		minutes += minutesPerDay
	}
	return minutes, nil
}

func mapRepositoryError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shifterrors.ErrShiftNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return shifterrors.ErrDuplicateReference
	}
	return err
}

func mapToResponse(sh Shift) ShiftResponse {
	resp := ShiftResponse{
		ID:                 sh.ID.String(),
		EmployerID:         sh.EmployerID.String(),
		Reference:          sh.Reference,
		Title:              sh.Title,
		Description:        sh.Description,
		Industry:           sh.Industry,
		RoleType:           sh.RoleType,
		LocationName:       sh.LocationName,
		AddressLine1:       sh.AddressLine1,
		City:               sh.City,
		Postcode:           sh.Postcode,
		ShiftDate:          sh.ShiftDate.Format("2006-01-02"),
		StartTime:          sh.StartTime,
		EndTime:            sh.EndTime,
		TotalHours:         money.CentiHoursToHours(money.WorkedCentiHours(int64(sh.TotalMinutes), 0)),
		HourlyRate:         sh.HourlyRate,
		TotalPositions:     sh.TotalPositions,
		FilledPositions:    sh.FilledPositions,
		AvailablePositions: sh.AvailablePositions(),
		IsFullyBooked:      sh.IsFullyBooked(),
		Requirements:       sh.Requirements,
		Status:             sh.Status,
		DurationType:       sh.DurationType,
	}
	if !sh.CreatedAt.IsZero() {
		resp.CreatedAt = sh.CreatedAt.Format(time.RFC3339)
	}
	if !sh.UpdatedAt.IsZero() {
		resp.UpdatedAt = sh.UpdatedAt.Format(time.RFC3339)
	}
	return resp
}

func mapToListResponse(shifts []Shift) []ShiftResponse {
	resp := make([]ShiftResponse, len(shifts))
	for i, sh := range shifts {
		resp[i] = mapToResponse(sh)
	}
	return resp
}

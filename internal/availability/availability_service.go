package availability

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	availabilityerrors "github.com/msdp-platform/msdp-flexstaff/internal/availability/errors"
	"github.com/msdp-platform/msdp-flexstaff/internal/events"
	"github.com/msdp-platform/msdp-flexstaff/internal/messaging/kafka"
	"github.com/msdp-platform/msdp-flexstaff/internal/obs"
	"github.com/msdp-platform/msdp-flexstaff/internal/shared/actor"

	"github.com/google/uuid"
	"github.com/teambition/rrule-go"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	StatusAvailable = "available"
	StatusBooked    = "booked"
	StatusCancelled = "cancelled"

	MaxOccurrences    = 52
	MaxRecurrenceDays = 180

	dateLayout       = "2006-01-02"
	timeLayout       = "15:04"
	defaultPageLimit = 20
	maxPageLimit     = 100
)

//go:generate mockgen -source=availability_service.go -destination=mock/availability_service_mock.go -package=mock
type Service interface {
	Create(ctx context.Context, workerID string, req CreateAvailabilityRequest) ([]SlotResponse, error)
	Update(ctx context.Context, workerID, id string, req UpdateAvailabilityRequest) (SlotResponse, error)
	Delete(ctx context.Context, workerID, id string) error
	Book(ctx context.Context, employerID, id string) (SlotResponse, error)
	ListMine(ctx context.Context, workerID string, filter ListMineFilter) ([]SlotResponse, error)
	ListBookings(ctx context.Context, employerID string) ([]SlotResponse, error)
	SearchAvailable(ctx context.Context, filter SearchFilter) ([]SlotResponse, int64, error)
}

type service struct {
	db     *sql.DB
	repo   Repository
	outbox kafka.OutboxRepository
	logger *zap.Logger
}

func NewService(db *sql.DB, repo Repository, outbox kafka.OutboxRepository, logger ...*zap.Logger) Service {
	l := zap.L().Named("availability.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("availability.service")
	}
	return &service{db: db, repo: repo, outbox: outbox, logger: l}
}

// Create inserts one slot, or one per occurrence when a recurrence rule is
// given. Every slot is checked against the worker's non-cancelled slots on
// the same date and a single overlap rejects the whole request.
func (s *service) Create(ctx context.Context, workerID string, req CreateAvailabilityRequest) ([]SlotResponse, error) {
	s.logger.Debug("create availability requested",
		zap.String("worker_id", workerID),
		zap.String("date", req.Date),
		zap.String("recurrence", req.Recurrence),
	)

	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	start, end, err := parseWindow(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	dates := []time.Time{date}
	var seriesID *uuid.UUID
	if strings.TrimSpace(req.Recurrence) != "" {
		dates, err = expandRecurrence(date, req.Recurrence)
		if err != nil {
			s.logger.Warn("create availability invalid recurrence", zap.String("recurrence", req.Recurrence), zap.Error(err))
			return nil, err
		}
		id := uuid.New()
		seriesID = &id
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("create availability begin tx failed", zap.Error(err))
		return nil, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	w, err := qtx.LockWorker(ctx, workerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, availabilityerrors.ErrWorkerNotFound
		}
		return nil, err
	}

	rate := w.MinHourlyRate
	if req.HourlyRate != nil {
		rate = *req.HourlyRate
	}
	if rate <= 0 {
		return nil, availabilityerrors.ErrInvalidRate
	}

	seen := make(map[string]bool, len(dates))
	slots := make([]Slot, 0, len(dates))
	for _, d := range dates {
		key := d.Format(dateLayout)
		if seen[key] {
			return nil, availabilityerrors.ErrOverlap.WithDetails(map[string]string{"date": key})
		}
		seen[key] = true

		overlap, err := qtx.HasOverlap(ctx, workerID, d, start, end, "")
		if err != nil {
			return nil, err
		}
		if overlap {
			s.logger.Warn("create availability overlap",
				zap.String("worker_id", workerID),
				zap.String("date", key),
			)
			return nil, availabilityerrors.ErrOverlap.WithDetails(map[string]string{"date": key})
		}

		slots = append(slots, Slot{
			ID:          uuid.New(),
			WorkerID:    w.ID,
			Date:        d,
			StartMinute: start,
			EndMinute:   end,
			HourlyRate:  rate,
			Notes:       strings.TrimSpace(req.Notes),
			Status:      StatusAvailable,
			SeriesID:    seriesID,
		})
	}

	if err := qtx.CreateBatch(ctx, slots); err != nil {
		s.logger.Error("create availability persist failed", zap.Error(err))
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("create availability commit failed", zap.Error(err))
		return nil, err
	}
	s.logger.Info("create availability success",
		zap.String("worker_id", workerID),
		zap.Int("slots", len(slots)),
	)
	return mapToListResponse(slots), nil
}

// Update edits a slot. A booked slot may only be cancelled, which tells the
// employer who booked it.
func (s *service) Update(ctx context.Context, workerID, id string, req UpdateAvailabilityRequest) (SlotResponse, error) {
	s.logger.Debug("update availability requested", zap.String("worker_id", workerID), zap.String("slot_id", id))

	if _, err := uuid.Parse(id); err != nil {
		return SlotResponse{}, availabilityerrors.ErrInvalidSlotID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("update availability begin tx failed", zap.Error(err))
		return SlotResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	if _, err := qtx.LockWorker(ctx, workerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SlotResponse{}, availabilityerrors.ErrWorkerNotFound
		}
		return SlotResponse{}, err
	}
	slot, err := qtx.LockByID(ctx, id)
	if err != nil {
		return SlotResponse{}, mapRepositoryError(err)
	}
	if slot.WorkerID.String() != workerID {
		return SlotResponse{}, availabilityerrors.ErrSlotNotFound
	}

	now := time.Now().UTC()
	if slot.Status == StatusBooked {
		if req.Status == nil || *req.Status != StatusCancelled {
			s.logger.Warn("update availability rejected", zap.String("slot_id", id), zap.String("status", slot.Status))
			return SlotResponse{}, availabilityerrors.ErrSlotBooked
		}
		slot.Status = StatusCancelled
		slot.UpdatedAt = now
		if err := qtx.Update(ctx, slot); err != nil {
			s.logger.Error("update availability persist failed", zap.Error(err))
			return SlotResponse{}, err
		}
		if slot.BookedByEmployerID != nil {
			if err := events.PublishTx(ctx, s.outbox, tx, events.MarketplaceEvent{
				EventType:     events.AvailabilityCancelled,
				AggregateType: "availability",
				AggregateID:   slot.ID.String(),
				Recipients:    []events.Recipient{{Role: actor.RoleEmployer, ID: slot.BookedByEmployerID.String()}},
				Title:         "Booking cancelled",
				Message:       "The worker cancelled the slot on " + describeSlot(*slot),
				Data:          map[string]any{"slot_id": slot.ID.String()},
			}); err != nil {
				s.logger.Error("update availability outbox failed", zap.Error(err))
				return SlotResponse{}, err
			}
		}
	} else {
		if err := applyUpdate(slot, req); err != nil {
			return SlotResponse{}, err
		}
		if slot.Status != StatusCancelled {
			overlap, err := qtx.HasOverlap(ctx, workerID, slot.Date, slot.StartMinute, slot.EndMinute, id)
			if err != nil {
				return SlotResponse{}, err
			}
			if overlap {
				s.logger.Warn("update availability overlap", zap.String("slot_id", id))
				return SlotResponse{}, availabilityerrors.ErrOverlap
			}
		}
		slot.UpdatedAt = now
		if err := qtx.Update(ctx, slot); err != nil {
			s.logger.Error("update availability persist failed", zap.Error(err))
			return SlotResponse{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("update availability commit failed", zap.Error(err))
		return SlotResponse{}, err
	}
	s.logger.Info("update availability success", zap.String("slot_id", id), zap.String("status", slot.Status))
	return mapToResponse(*slot), nil
}

func (s *service) Delete(ctx context.Context, workerID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return availabilityerrors.ErrInvalidSlotID
	}

	slot, err := s.repo.FindForWorker(ctx, workerID, id)
	if err != nil {
		return mapRepositoryError(err)
	}
	if slot.Status == StatusBooked {
		return availabilityerrors.ErrCannotDeleteBooked
	}

	if err := s.repo.Delete(ctx, workerID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// booked between the read and the delete
			return availabilityerrors.ErrCannotDeleteBooked
		}
		s.logger.Error("delete availability failed", zap.String("slot_id", id), zap.Error(err))
		return err
	}
	s.logger.Info("delete availability success", zap.String("slot_id", id))
	return nil
}

// Book reserves an available slot for the employer. The row lock and the
// status-guarded update make sure only one of several concurrent bookings
// wins; the rest get SlotNotAvailable.
func (s *service) Book(ctx context.Context, employerID, id string) (SlotResponse, error) {
	s.logger.Debug("book availability requested", zap.String("employer_id", employerID), zap.String("slot_id", id))

	if _, err := uuid.Parse(id); err != nil {
		return SlotResponse{}, availabilityerrors.ErrInvalidSlotID
	}
	employerUUID, err := uuid.Parse(employerID)
	if err != nil {
		return SlotResponse{}, availabilityerrors.ErrSlotNotFound
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("book availability begin tx failed", zap.Error(err))
		return SlotResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	slot, err := qtx.LockByID(ctx, id)
	if err != nil {
		return SlotResponse{}, mapRepositoryError(err)
	}
	if slot.Status != StatusAvailable {
		obs.BookingConflict()
		s.logger.Warn("book availability rejected", zap.String("slot_id", id), zap.String("status", slot.Status))
		return SlotResponse{}, availabilityerrors.ErrSlotNotAvailable
	}

	now := time.Now().UTC()
	ok, err := qtx.MarkBooked(ctx, id, employerID, now)
	if err != nil {
		s.logger.Error("book availability persist failed", zap.Error(err))
		return SlotResponse{}, err
	}
	if !ok {
		obs.BookingConflict()
		return SlotResponse{}, availabilityerrors.ErrSlotNotAvailable
	}
	slot.Status = StatusBooked
	slot.BookedByEmployerID = &employerUUID
	slot.BookedAt = &now

	if err := events.PublishTx(ctx, s.outbox, tx, events.MarketplaceEvent{
		EventType:     events.AvailabilityBooked,
		AggregateType: "availability",
		AggregateID:   slot.ID.String(),
		Recipients: []events.Recipient{
			{Role: actor.RoleWorker, ID: slot.WorkerID.String()},
			{Role: actor.RoleEmployer, ID: employerID},
		},
		Title:   "Availability booked",
		Message: "Booked for " + describeSlot(*slot),
		Data: map[string]any{
			"slot_id":     slot.ID.String(),
			"employer_id": employerID,
			"worker_id":   slot.WorkerID.String(),
		},
	}); err != nil {
		s.logger.Error("book availability outbox failed", zap.Error(err))
		return SlotResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("book availability commit failed", zap.Error(err))
		return SlotResponse{}, err
	}
	s.logger.Info("book availability success", zap.String("slot_id", id), zap.String("employer_id", employerID))
	return mapToResponse(*slot), nil
}

func (s *service) ListMine(ctx context.Context, workerID string, filter ListMineFilter) ([]SlotResponse, error) {
	var from, to *time.Time
	if filter.StartDate != "" {
		d, err := parseDate(filter.StartDate)
		if err != nil {
			return nil, err
		}
		from = &d
	}
	if filter.EndDate != "" {
		d, err := parseDate(filter.EndDate)
		if err != nil {
			return nil, err
		}
		to = &d
	}

	rows, err := s.repo.ListByWorker(ctx, workerID, from, to)
	if err != nil {
		s.logger.Error("list availability failed", zap.Error(err))
		return nil, err
	}
	return mapToListResponse(rows), nil
}

func (s *service) ListBookings(ctx context.Context, employerID string) ([]SlotResponse, error) {
	rows, err := s.repo.ListBookedBy(ctx, employerID)
	if err != nil {
		s.logger.Error("list bookings failed", zap.Error(err))
		return nil, err
	}
	return mapToListResponse(rows), nil
}

// SearchAvailable lists open slots covering the requested window. Without a
// date it searches from today on.
func (s *service) SearchAvailable(ctx context.Context, filter SearchFilter) ([]SlotResponse, int64, error) {
	page, limit := normalizePage(filter.Page, filter.Limit)
	q := SearchQuery{
		DateFrom: time.Now().UTC().Truncate(24 * time.Hour),
		Page:     page,
		Limit:    limit,
	}
	if filter.Date != "" {
		d, err := parseDate(filter.Date)
		if err != nil {
			return nil, 0, err
		}
		q.Date = &d
	}
	if filter.StartTime != "" {
		m, err := parseMinute(filter.StartTime)
		if err != nil {
			return nil, 0, err
		}
		q.StartMinute = &m
	}
	if filter.EndTime != "" {
		m, err := parseMinute(filter.EndTime)
		if err != nil {
			return nil, 0, err
		}
		q.EndMinute = &m
	}
	if q.StartMinute != nil && q.EndMinute != nil && *q.EndMinute <= *q.StartMinute {
		return nil, 0, availabilityerrors.ErrInvalidTimeRange
	}

	rows, total, err := s.repo.SearchAvailable(ctx, q)
	if err != nil {
		s.logger.Error("search availability failed", zap.Error(err))
		return nil, 0, err
	}
	return mapToListResponse(rows), total, nil
}

// expandRecurrence turns an RRULE into the slot dates, starting at first.
// The rule has to be bounded by COUNT or UNTIL, produce at most
// MaxOccurrences dates and end within MaxRecurrenceDays.
func expandRecurrence(first time.Time, rule string) ([]time.Time, error) {
	rule = strings.TrimPrefix(strings.TrimSpace(rule), "RRULE:")
	opt, err := rrule.StrToROption(rule)
	if err != nil {
		return nil, availabilityerrors.ErrInvalidRecurrence.WithCause(err)
	}
	if opt.Count == 0 && opt.Until.IsZero() {
		return nil, availabilityerrors.ErrRecurrenceUnbounded
	}
	if opt.Count > MaxOccurrences {
		return nil, availabilityerrors.ErrTooManyOccurrences
	}
	windowEnd := first.AddDate(0, 0, MaxRecurrenceDays)
	if !opt.Until.IsZero() && opt.Until.After(windowEnd) {
		return nil, availabilityerrors.ErrRecurrenceTooLong
	}

	opt.Dtstart = first
	r, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, availabilityerrors.ErrInvalidRecurrence.WithCause(err)
	}
	occurrences := r.All()
	if len(occurrences) == 0 {
		return nil, availabilityerrors.ErrInvalidRecurrence
	}
	if len(occurrences) > MaxOccurrences {
		return nil, availabilityerrors.ErrTooManyOccurrences
	}

	dates := make([]time.Time, len(occurrences))
	for i, o := range occurrences {
		d := time.Date(o.Year(), o.Month(), o.Day(), 0, 0, 0, 0, time.UTC)
		if d.After(windowEnd) {
			return nil, availabilityerrors.ErrRecurrenceTooLong
		}
		dates[i] = d
	}
	return dates, nil
}

func applyUpdate(slot *Slot, req UpdateAvailabilityRequest) error {
	if req.Date != nil {
		d, err := parseDate(*req.Date)
		if err != nil {
			return err
		}
		slot.Date = d
	}
	if req.StartTime != nil {
		m, err := parseMinute(*req.StartTime)
		if err != nil {
			return err
		}
		slot.StartMinute = m
	}
	if req.EndTime != nil {
		m, err := parseMinute(*req.EndTime)
		if err != nil {
			return err
		}
		slot.EndMinute = m
	}
	if slot.EndMinute <= slot.StartMinute {
		return availabilityerrors.ErrInvalidTimeRange
	}
	if req.HourlyRate != nil {
		if *req.HourlyRate <= 0 {
			return availabilityerrors.ErrInvalidRate
		}
		slot.HourlyRate = *req.HourlyRate
	}
	if req.Notes != nil {
		slot.Notes = strings.TrimSpace(*req.Notes)
	}
	if req.Status != nil {
		switch *req.Status {
		case StatusAvailable, StatusCancelled:
			slot.Status = *req.Status
		default:
			return availabilityerrors.ErrInvalidStatus
		}
	}
	return nil
}

func parseDate(v string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(v))
	if err != nil {
		return time.Time{}, availabilityerrors.ErrInvalidDateFormat
	}
	return t, nil
}

func parseMinute(v string) (int, error) {
	t, err := time.Parse(timeLayout, strings.TrimSpace(v))
	if err != nil {
		return 0, availabilityerrors.ErrInvalidTimeFormat
	}
	return t.Hour()*60 + t.Minute(), nil
}

// parseWindow reads a same-day window. Slots do not run past midnight.
func parseWindow(start, end string) (int, int, error) {
	st, err := parseMinute(start)
	if err != nil {
		return 0, 0, err
	}
	et, err := parseMinute(end)
	if err != nil {
		return 0, 0, err
	}
	if et <= st {
		return 0, 0, availabilityerrors.ErrInvalidTimeRange
	}
	return st, et, nil
}

func formatMinute(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

func describeSlot(s Slot) string {
	return fmt.Sprintf("%s from %s to %s", s.Date.Format(dateLayout), formatMinute(s.StartMinute), formatMinute(s.EndMinute))
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
		return availabilityerrors.ErrSlotNotFound
	}
	return err
}

func optionalString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	v := id.String()
	return &v
}

func mapToResponse(s Slot) SlotResponse {
	resp := SlotResponse{
		ID:                 s.ID.String(),
		WorkerID:           s.WorkerID.String(),
		Date:               s.Date.Format(dateLayout),
		StartTime:          formatMinute(s.StartMinute),
		EndTime:            formatMinute(s.EndMinute),
		HourlyRate:         s.HourlyRate,
		Notes:              s.Notes,
		Status:             s.Status,
		BookedByEmployerID: optionalString(s.BookedByEmployerID),
		SeriesID:           optionalString(s.SeriesID),
	}
	if s.BookedAt != nil {
		v := s.BookedAt.UTC().Format(time.RFC3339)
		resp.BookedAt = &v
	}
	return resp
}

func mapToListResponse(rows []Slot) []SlotResponse {
	resp := make([]SlotResponse, len(rows))
	for i, s := range rows {
		resp[i] = mapToResponse(s)
	}
	return resp
}

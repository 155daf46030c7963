package notification

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/msdp-platform/msdp-flexstaff/internal/events"
	notificationerrors "github.com/msdp-platform/msdp-flexstaff/internal/notification/errors"
	"github.com/msdp-platform/msdp-flexstaff/internal/shared/actor"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

//go:generate mockgen -source=notification_service.go -destination=mock/notification_service_mock.go -package=mock
type Service interface {
	Deliver(ctx context.Context, ev events.MarketplaceEvent) (int64, error)
	List(ctx context.Context, a actor.Actor, filter ListFilter) ([]NotificationResponse, int64, error)
	MarkRead(ctx context.Context, a actor.Actor, id string) (NotificationResponse, error)
	MarkAllRead(ctx context.Context, a actor.Actor) (int64, error)
}

type service struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger ...*zap.Logger) Service {
	l := zap.L().Named("notification.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("notification.service")
	}
	return &service{repo: repo, logger: l}
}

// Deliver stores one notification per recipient of ev. Recipients already
// holding this event are skipped, so redelivery returns 0.
func (s *service) Deliver(ctx context.Context, ev events.MarketplaceEvent) (int64, error) {
	if ev.EventID == "" || len(ev.Recipients) == 0 {
		return 0, notificationerrors.ErrInvalidEvent
	}

	var data json.RawMessage
	if len(ev.Data) > 0 {
		raw, err := json.Marshal(ev.Data)
		if err != nil {
			return 0, err
		}
		data = raw
	}

	createdAt := ev.OccurredAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	rows := make([]Notification, 0, len(ev.Recipients))
	for _, rcpt := range ev.Recipients {
		recipientID, err := uuid.Parse(rcpt.ID)
		if err != nil {
			s.logger.Warn("deliver notification skipped recipient",
				zap.String("event_id", ev.EventID),
				zap.String("recipient_id", rcpt.ID),
			)
			continue
		}
		rows = append(rows, Notification{
			ID:            uuid.New(),
			EventID:       ev.EventID,
			RecipientRole: rcpt.Role,
			RecipientID:   recipientID,
			EventType:     ev.EventType,
			Title:         ev.Title,
			Message:       ev.Message,
			Data:          data,
			CreatedAt:     createdAt,
		})
	}
	if len(rows) == 0 {
		return 0, notificationerrors.ErrInvalidEvent
	}

	inserted, err := s.repo.CreateMany(ctx, rows)
	if err != nil {
		s.logger.Error("deliver notification persist failed", zap.String("event_id", ev.EventID), zap.Error(err))
		return 0, err
	}
	s.logger.Debug("deliver notification success",
		zap.String("event_id", ev.EventID),
		zap.String("event_type", ev.EventType),
		zap.Int64("inserted", inserted),
	)
	return inserted, nil
}

func (s *service) List(ctx context.Context, a actor.Actor, filter ListFilter) ([]NotificationResponse, int64, error) {
	page, limit := normalizePage(filter.Page, filter.Limit)
	rows, total, err := s.repo.List(ctx, ListQuery{
		RecipientRole: a.Role,
		RecipientID:   a.ProfileID,
		UnreadOnly:    filter.UnreadOnly,
		Page:          page,
		Limit:         limit,
	})
	if err != nil {
		s.logger.Error("list notifications failed", zap.Error(err))
		return nil, 0, err
	}

	resp := make([]NotificationResponse, len(rows))
	for i, n := range rows {
		resp[i] = mapToResponse(n)
	}
	return resp, total, nil
}

func (s *service) MarkRead(ctx context.Context, a actor.Actor, id string) (NotificationResponse, error) {
	if _, err := uuid.Parse(id); err != nil {
		return NotificationResponse{}, notificationerrors.ErrInvalidNotificationID
	}

	n, err := s.repo.MarkRead(ctx, a.Role, a.ProfileID, id, time.Now().UTC())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NotificationResponse{}, notificationerrors.ErrNotificationNotFound
		}
		s.logger.Error("mark notification read failed", zap.String("notification_id", id), zap.Error(err))
		return NotificationResponse{}, err
	}
	return mapToResponse(*n), nil
}

func (s *service) MarkAllRead(ctx context.Context, a actor.Actor) (int64, error) {
	updated, err := s.repo.MarkAllRead(ctx, a.Role, a.ProfileID, time.Now().UTC())
	if err != nil {
		s.logger.Error("mark all notifications read failed", zap.Error(err))
		return 0, err
	}
	return updated, nil
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

func mapToResponse(n Notification) NotificationResponse {
	resp := NotificationResponse{
		ID:        n.ID.String(),
		EventType: n.EventType,
		Title:     n.Title,
		Message:   n.Message,
		Data:      n.Data,
		Read:      n.ReadAt != nil,
		CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339),
	}
	if n.ReadAt != nil {
		v := n.ReadAt.UTC().Format(time.RFC3339)
		resp.ReadAt = &v
	}
	return resp
}

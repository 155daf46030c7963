package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/msdp-platform/msdp-flexstaff/internal/messaging/kafka"
	"github.com/msdp-platform/msdp-flexstaff/internal/shared/contextutil"

	"github.com/google/uuid"
)

const MarketplaceTopic = "flexstaff.marketplace.events.v1"

const (
	ApplicationSubmitted  = "application.submitted"
	ApplicationAccepted   = "application.accepted"
	ApplicationRejected   = "application.rejected"
	ApplicationWithdrawn  = "application.withdrawn"
	AssignmentConfirmed   = "assignment.confirmed"
	ShiftPublished        = "shift.published"
	ShiftCancelled        = "shift.cancelled"
	TimesheetSubmitted    = "timesheet.submitted"
	TimesheetApproved     = "timesheet.approved"
	TimesheetRejected     = "timesheet.rejected"
	TimesheetDisputed     = "timesheet.disputed"
	PaymentProcessing     = "payment.processing"
	PaymentCompleted      = "payment.completed"
	PaymentFailed         = "payment.failed"
	PaymentRefunded       = "payment.refunded"
	AvailabilityBooked    = "availability.booked"
	AvailabilityCancelled = "availability.cancelled"
)

// Recipient addresses a notification to one side of the marketplace. ID is
// the employer or worker profile id.
type Recipient struct {
	Role string `json:"role"`
	ID   string `json:"id"`
}

type MarketplaceEvent struct {
	EventID       string         `json:"event_id"`
	EventType     string         `json:"event_type"`
	AggregateType string         `json:"aggregate_type"`
	AggregateID   string         `json:"aggregate_id"`
	Recipients    []Recipient    `json:"recipients"`
	Title         string         `json:"title"`
	Message       string         `json:"message"`
	Data          map[string]any `json:"data,omitempty"`
	OccurredAt    time.Time      `json:"occurred_at"`
}

// NewOutboxEvent wraps ev in a pending outbox row on MarketplaceTopic. The
// event id and occurrence time are filled in when empty.
func NewOutboxEvent(ctx context.Context, ev MarketplaceEvent) (kafka.OutboxEvent, error) {
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return kafka.OutboxEvent{}, err
	}

	return kafka.OutboxEvent{
		ID:            ev.EventID,
		RequestID:     contextutil.GetRequestID(ctx),
		AggregateType: ev.AggregateType,
		AggregateID:   ev.AggregateID,
		EventType:     ev.EventType,
		Topic:         MarketplaceTopic,
		Payload:       payload,
		Status:        kafka.OutboxStatusPending,
	}, nil
}

// Publish writes ev through repo, which is expected to be bound to the
// caller's transaction.
func Publish(ctx context.Context, repo kafka.OutboxRepository, ev MarketplaceEvent) error {
	if repo == nil {
		return nil
	}
	row, err := NewOutboxEvent(ctx, ev)
	if err != nil {
		return err
	}
	return repo.Create(ctx, row)
}

// PublishTx binds repo to tx and writes ev. A nil repo is a no-op.
func PublishTx(ctx context.Context, repo kafka.OutboxRepository, tx *sql.Tx, ev MarketplaceEvent) error {
	if repo == nil {
		return nil
	}
	return Publish(ctx, repo.WithTx(tx), ev)
}

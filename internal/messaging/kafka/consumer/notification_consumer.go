package consumer

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/msdp-platform/msdp-flexstaff/internal/events"
	"github.com/msdp-platform/msdp-flexstaff/internal/notification"
	notificationerrors "github.com/msdp-platform/msdp-flexstaff/internal/notification/errors"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageReader is the part of *kafkago.Reader the consumers use.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// ConsumeMarketplaceEvents turns every marketplace event into notifications
// for its recipients. Undecodable and already delivered messages are
// committed; a storage failure leaves the message uncommitted for retry.
func ConsumeMarketplaceEvents(
	ctx context.Context,
	reader MessageReader,
	notificationService notification.Service,
	logger *zap.Logger,
) {
	log := logger.Named("kafka.consumer.marketplace_notifications")
	log.Info("marketplace notification consumer started")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("marketplace notification consumer stopped")
				return
			}
			log.Error("fetch marketplace message failed", zap.Error(err))
			continue
		}

		var event events.MarketplaceEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.Error("decode marketplace event failed", zap.Int64("offset", msg.Offset), zap.Error(err))
			_ = reader.CommitMessages(ctx, msg)
			continue
		}

		inserted, err := notificationService.Deliver(ctx, event)
		if err != nil {
			if errors.Is(err, notificationerrors.ErrInvalidEvent) {
				log.Warn("marketplace event has no deliverable recipients, skipping",
					zap.String("event_id", event.EventID),
					zap.String("event_type", event.EventType),
				)
				_ = reader.CommitMessages(ctx, msg)
				continue
			}

			log.Error("deliver marketplace event failed",
				zap.String("event_id", event.EventID),
				zap.String("event_type", event.EventType),
				zap.Error(err),
			)
			continue
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit marketplace message failed", zap.Error(err))
			continue
		}

		if inserted == 0 {
			log.Warn("marketplace event already delivered, skipping", zap.String("event_id", event.EventID))
			continue
		}
		log.Info("notifications created from marketplace event",
			zap.String("event_id", event.EventID),
			zap.String("event_type", event.EventType),
			zap.Int64("inserted", inserted),
		)
	}
}

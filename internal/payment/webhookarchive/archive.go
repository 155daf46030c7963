// Package webhookarchive keeps the raw body of every processor event once it
// has been applied. Redeliveries of a known event id can then be
// acknowledged without touching the database.
package webhookarchive

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/msdp-platform/msdp-flexstaff/internal/payment/gateway"
	"github.com/msdp-platform/msdp-flexstaff/internal/shared/connection"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// Archive records processor events. Record reports false when the event id
// was already stored.
type Archive interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Record(ctx context.Context, ev gateway.Event) (bool, error)
}

// TableAPI is the slice of the DynamoDB client the archive needs.
type TableAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

type eventItem struct {
	EventID    string `dynamodbav:"event_id"`
	Type       string `dynamodbav:"type"`
	IntentID   string `dynamodbav:"intent_id,omitempty"`
	ChargeID   string `dynamodbav:"charge_id,omitempty"`
	Payload    string `dynamodbav:"payload"`
	ReceivedAt string `dynamodbav:"received_at"`
}

// DynamoArchive stores events in a table keyed by event_id (string).
type DynamoArchive struct {
	ddb       TableAPI
	tableName string
	now       func() time.Time
	logger    *zap.Logger
}

var _ Archive = (*DynamoArchive)(nil)

func NewDynamoArchive(ddb TableAPI, tableName string, logger ...*zap.Logger) *DynamoArchive {
	l := zap.L().Named("payment.webhook_archive")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("payment.webhook_archive")
	}
	return &DynamoArchive{
		ddb:       ddb,
		tableName: tableName,
		now:       time.Now,
		logger:    l,
	}
}

func (a *DynamoArchive) Seen(ctx context.Context, eventID string) (bool, error) {
	out, err := a.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(a.tableName),
		Key: map[string]types.AttributeValue{
			"event_id": &types.AttributeValueMemberS{Value: eventID},
		},
		ConsistentRead:       aws.Bool(true),
		ProjectionExpression: aws.String("event_id"),
	})
	if err != nil {
		return false, err
	}
	return len(out.Item) > 0, nil
}

func (a *DynamoArchive) Record(ctx context.Context, ev gateway.Event) (bool, error) {
	item, err := attributevalue.MarshalMap(eventItem{
		EventID:    ev.ID,
		Type:       ev.Type,
		IntentID:   ev.IntentID,
		ChargeID:   ev.ChargeID,
		Payload:    string(ev.Raw),
		ReceivedAt: a.now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return false, err
	}

	_, err = a.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(a.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{
			"#id": "event_id",
		},
	})
	if err != nil {
		var conflict *types.ConditionalCheckFailedException
		if errors.As(err, &conflict) {
			a.logger.Debug("webhook event already archived",
				zap.String("event_id", ev.ID),
				zap.String("type", ev.Type),
			)
			return false, nil
		}
		a.logger.Error("webhook archive write failed", zap.String("event_id", ev.ID), zap.Error(err))
		return false, err
	}
	return true, nil
}

// NewFromEnv builds a DynamoArchive on WEBHOOK_ARCHIVE_TABLE with the
// shared DynamoDB client settings. It returns nil when no table is
// configured.
func NewFromEnv(ctx context.Context, logger ...*zap.Logger) (*DynamoArchive, error) {
	table := os.Getenv("WEBHOOK_ARCHIVE_TABLE")
	if table == "" {
		return nil, nil
	}

	client, err := connection.NewDynamoDBClient(ctx)
	if err != nil {
		return nil, err
	}
	return NewDynamoArchive(client, table, logger...), nil
}

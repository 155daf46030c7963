package webhookarchive_test

import (
	"context"
	"errors"
	"testing"

	"github.com/msdp-platform/msdp-flexstaff/internal/payment/gateway"
	"github.com/msdp-platform/msdp-flexstaff/internal/payment/webhookarchive"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
)

type fakeTable struct {
	items map[string]map[string]types.AttributeValue
	err   error
	input *dynamodb.PutItemInput
}

func (f *fakeTable) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	id := in.Item["event_id"].(*types.AttributeValueMemberS).Value
	if _, ok := f.items[id]; ok {
		return nil, &types.ConditionalCheckFailedException{Message: stringPtr("exists")}
	}
	f.items[id] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeTable) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	id := in.Key["event_id"].(*types.AttributeValueMemberS).Value
	return &dynamodb.GetItemOutput{Item: f.items[id]}, nil
}

func stringPtr(s string) *string { return &s }

func TestDynamoArchive_FirstWriteWins(t *testing.T) {
	table := &fakeTable{items: map[string]map[string]types.AttributeValue{}}
	archive := webhookarchive.NewDynamoArchive(table, "processor-events")
	ev := gateway.Event{ID: "evt_1", Type: gateway.EventIntentSucceeded, IntentID: "pi_1", Raw: []byte(`{"id":"evt_1"}`)}

	seen, err := archive.Seen(context.Background(), "evt_1")
	assert.NoError(t, err)
	assert.False(t, seen)

	first, err := archive.Record(context.Background(), ev)
	assert.NoError(t, err)
	assert.True(t, first)
	assert.Equal(t, "processor-events", *table.input.TableName)
	assert.Equal(t, "attribute_not_exists(#id)", *table.input.ConditionExpression)
	assert.Equal(t, `{"id":"evt_1"}`, table.items["evt_1"]["payload"].(*types.AttributeValueMemberS).Value)

	seen, err = archive.Seen(context.Background(), "evt_1")
	assert.NoError(t, err)
	assert.True(t, seen)

	again, err := archive.Record(context.Background(), ev)
	assert.NoError(t, err)
	assert.False(t, again)
}

func TestDynamoArchive_WriteError(t *testing.T) {
	table := &fakeTable{err: errors.New("throttled")}
	archive := webhookarchive.NewDynamoArchive(table, "processor-events")

	first, err := archive.Record(context.Background(), gateway.Event{ID: "evt_2"})
	assert.EqualError(t, err, "throttled")
	assert.False(t, first)

	_, err = archive.Seen(context.Background(), "evt_2")
	assert.EqualError(t, err, "throttled")
}

func TestNewFromEnv_Disabled(t *testing.T) {
	t.Setenv("WEBHOOK_ARCHIVE_TABLE", "")
	archive, err := webhookarchive.NewFromEnv(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, archive)
}

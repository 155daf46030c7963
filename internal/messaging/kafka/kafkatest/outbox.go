// Package kafkatest provides an in-memory outbox for service tests.
package kafkatest

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"

	"github.com/msdp-platform/msdp-flexstaff/internal/messaging/kafka"
)

// RecordingOutbox keeps every created row. CreateErr, when set, is returned
// from Create instead of recording.
type RecordingOutbox struct {
	mu        sync.Mutex
	Rows      []kafka.OutboxEvent
	CreateErr error
}

func (r *RecordingOutbox) WithTx(*sql.Tx) kafka.OutboxRepository { return r }

func (r *RecordingOutbox) Create(_ context.Context, e kafka.OutboxEvent) error {
	if r.CreateErr != nil {
		return r.CreateErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Rows = append(r.Rows, e)
	return nil
}

func (r *RecordingOutbox) ListPending(context.Context, int) ([]kafka.OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []kafka.OutboxEvent
	for _, e := range r.Rows {
		if e.Status == kafka.OutboxStatusPending {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *RecordingOutbox) MarkSent(context.Context, string) error           { return nil }
func (r *RecordingOutbox) MarkFailed(context.Context, string, string) error { return nil }

func (r *RecordingOutbox) CountByStatus(context.Context) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]int64{}
	for _, e := range r.Rows {
		out[e.Status]++
	}
	return out, nil
}

// EventTypes lists the event types recorded so far, in order.
func (r *RecordingOutbox) EventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.Rows))
	for i, e := range r.Rows {
		out[i] = e.EventType
	}
	return out
}

// Decode unmarshals the payload of row i into v.
func (r *RecordingOutbox) Decode(i int, v any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return json.Unmarshal(r.Rows[i].Payload, v)
}

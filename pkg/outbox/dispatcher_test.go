package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sitetrack/pkg/circuitbreaker"
	"sitetrack/pkg/trace"
)

type memStore struct {
	events map[int64]*Event
	order  []int64
}

func newMemStore(events ...*Event) *memStore {
	s := &memStore{events: map[int64]*Event{}}
	for _, e := range events {
		if e.Status == "" {
			e.Status = StatusPending
		}
		s.events[e.ID] = e
		s.order = append(s.order, e.ID)
	}
	return s
}

func (s *memStore) GetPendingEvents(_ context.Context, limit int) ([]*Event, error) {
	var out []*Event
	for _, id := range s.order {
		if e := s.events[id]; e.Status == StatusPending && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memStore) GetFailedEvents(_ context.Context, limit int) ([]*Event, error) {
	var out []*Event
	for _, id := range s.order {
		if e := s.events[id]; e.Status == StatusFailed && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memStore) GetEventByID(_ context.Context, id int64) (*Event, error) {
	e, ok := s.events[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrEventNotFound, id)
	}
	return e, nil
}

func (s *memStore) MarkAsSent(_ context.Context, id int64) error {
	s.events[id].Status = StatusSent
	return nil
}

func (s *memStore) MarkAsFailed(_ context.Context, id int64, maxRetries int) error {
	e := s.events[id]
	e.RetryCount++
	if e.RetryCount >= maxRetries {
		e.Status = StatusFailed
	}
	return nil
}

type published struct {
	key     string
	body    string
	traceID string
}

type fakePublisher struct {
	fail map[string]bool
	sent []published
}

func (p *fakePublisher) PublishRaw(ctx context.Context, key string, body []byte) error {
	if p.fail[key] {
		return errors.New("channel closed")
	}
	p.sent = append(p.sent, published{key: key, body: string(body), traceID: trace.FromContext(ctx)})
	return nil
}

func event(id int64, key string, payload any) *Event {
	b, _ := json.Marshal(payload)
	return &Event{ID: id, RoutingKey: key, Payload: b}
}

func TestDispatchOnce_PublishesAndMarksSent(t *testing.T) {
	store := newMemStore(
		event(1, "project.created", map[string]any{"project_id": 1, "trace_id": "t-1"}),
		event(2, "project.status_changed", map[string]any{"project_id": 1}),
	)
	pub := &fakePublisher{}
	d := NewDispatcher(store, pub, zap.NewNop())

	assert.Equal(t, 2, d.DispatchOnce(context.Background()))

	require.Len(t, pub.sent, 2)
	assert.Equal(t, "project.created", pub.sent[0].key)
	assert.Equal(t, "t-1", pub.sent[0].traceID)
	assert.Empty(t, pub.sent[1].traceID)
	assert.Equal(t, StatusSent, store.events[1].Status)
	assert.Equal(t, StatusSent, store.events[2].Status)
}

func TestDispatchOnce_FailureCountsRetries(t *testing.T) {
	store := newMemStore(event(1, "project.created", map[string]any{}))
	pub := &fakePublisher{fail: map[string]bool{"project.created": true}}
	d := NewDispatcher(store, pub, zap.NewNop()).WithMaxRetries(2)

	d.DispatchOnce(context.Background())
	assert.Equal(t, StatusPending, store.events[1].Status)
	d.DispatchOnce(context.Background())
	assert.Equal(t, StatusFailed, store.events[1].Status)
	assert.Equal(t, 2, store.events[1].RetryCount)
}

func TestDispatchOnce_OpenBreakerStopsBatch(t *testing.T) {
	var events []*Event
	for i := int64(1); i <= 4; i++ {
		events = append(events, event(i, "project.created", map[string]any{"n": i}))
	}
	store := newMemStore(events...)
	pub := &fakePublisher{fail: map[string]bool{"project.created": true}}
	cb := circuitbreaker.NewCircuitBreaker(circuitbreaker.Config{
		FailureThreshold:    2,
		SuccessThreshold:    1,
		Timeout:             time.Hour,
		HalfOpenMaxRequests: 1,
	})
	d := NewDispatcher(store, pub, zap.NewNop()).WithBreaker(cb)

	d.DispatchOnce(context.Background())

	assert.Equal(t, 1, store.events[1].RetryCount)
	assert.Equal(t, 1, store.events[2].RetryCount)
	assert.Zero(t, store.events[3].RetryCount, "events after the breaker opens are not charged a retry")
	assert.Zero(t, store.events[4].RetryCount)
	assert.Equal(t, circuitbreaker.StateOpen, cb.GetState())
}

func TestReplayService(t *testing.T) {
	failed := event(7, "project.progress_pinned", map[string]any{"trace_id": "t-7"})
	failed.Status = StatusFailed
	other := event(8, "project.created", map[string]any{})
	other.Status = StatusFailed
	store := newMemStore(failed, other)
	pub := &fakePublisher{fail: map[string]bool{"project.created": true}}
	svc := NewReplayService(store, pub, zap.NewNop())

	n, err := svc.ReplayFailedEvents(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, StatusSent, store.events[7].Status)
	assert.Equal(t, StatusFailed, store.events[8].Status)
	require.Len(t, pub.sent, 1)
	assert.Equal(t, "t-7", pub.sent[0].traceID)

	assert.ErrorIs(t, svc.ReplayEvent(context.Background(), 99), ErrEventNotFound)
}

package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"salescrm/internal/infra"
	"salescrm/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

type fakeSender struct {
	mu    sync.Mutex
	fail  error
	sent  []string
	calls int
}

func (s *fakeSender) Send(to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fail != nil {
		return s.fail
	}
	s.sent = append(s.sent, to+"|"+subject+"|"+body)
	return nil
}

func (s *fakeSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func sampleEntry() model.CRMEntry {
	return model.CRMEntry{
		ID: 7, PersonName: "Ana", CompanyName: "Acme", Case: "Renewal", Status: "open",
		SalePerson: "bob", SubmissionTime: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestDispatcher_EnqueueEntrySubmitted(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, NewDispatcher(rdb).EnqueueEntrySubmitted(ctx, sampleEntry()))

	raw, err := rdb.RPop(ctx, QueueNotifications).Result()
	require.NoError(t, err)
	var job Job
	require.NoError(t, json.Unmarshal([]byte(raw), &job))
	assert.Equal(t, JobEntrySubmitted, job.Type)
	assert.Equal(t, 0, job.Attempts)

	var p EntrySubmittedPayload
	require.NoError(t, json.Unmarshal(job.Payload, &p))
	assert.Equal(t, uint(7), p.EntryID)
	assert.Equal(t, "bob", p.SalePerson)
}

func TestProcessJob_RetriesThenDeadLetters(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()
	sender := &fakeSender{fail: errors.New("smtp: connection refused")}

	pool := NewPool(rdb)
	pool.Handle(JobEntrySubmitted, NewNotificationWorker(sender, "sales@example.com"))
	require.NoError(t, NewDispatcher(rdb).EnqueueEntrySubmitted(ctx, sampleEntry()))

	for i := 0; i < MaxAttempts; i++ {
		raw, err := rdb.RPop(ctx, QueueNotifications).Result()
		require.NoError(t, err, "attempt %d", i+1)
		pool.processJob(ctx, QueueNotifications, raw)
	}

	assert.Equal(t, MaxAttempts, sender.calls)
	n, err := rdb.LLen(ctx, QueueNotifications).Result()
	require.NoError(t, err)
	assert.Zero(t, n)

	length, err := DLQLength(ctx, rdb, QueueNotifications)
	require.NoError(t, err)
	assert.Equal(t, int64(1), length)

	entries, err := DLQEntries(ctx, rdb, QueueNotifications, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, JobEntrySubmitted, entries[0].JobType)
	assert.Equal(t, MaxAttempts, entries[0].Attempts)
	assert.Contains(t, entries[0].Reason, "connection refused")
}

func TestProcessJob_UnknownTypeAndMalformed(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()
	pool := NewPool(rdb)

	pool.processJob(ctx, QueueNotifications, `{"type":"mystery","payload":{}}`)
	pool.processJob(ctx, QueueNotifications, `not json`)

	length, err := DLQLength(ctx, rdb, QueueNotifications)
	require.NoError(t, err)
	assert.Equal(t, int64(2), length)
}

func TestPool_ConsumesQueue(t *testing.T) {
	rdb := newTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sender := &fakeSender{}
	pool := NewPool(rdb)
	pool.popTimeout = 100 * time.Millisecond
	pool.Handle(JobEntrySubmitted, NewNotificationWorker(sender, "sales@example.com"))
	pool.Start(ctx, 2)

	require.NoError(t, NewDispatcher(rdb).EnqueueEntrySubmitted(ctx, sampleEntry()))
	require.Eventually(t, func() bool { return sender.count() == 1 }, 3*time.Second, 20*time.Millisecond)

	cancel()
	pool.Wait()

	assert.Contains(t, sender.sent[0], "sales@example.com|New CRM entry #7 from bob|")
	assert.Contains(t, sender.sent[0], "Company: Acme")
}

func TestNotificationWorker_DropsBadPayload(t *testing.T) {
	sender := &fakeSender{}
	err := NewNotificationWorker(sender, "x@y.z").Process(context.Background(), json.RawMessage(`"oops"`))
	assert.NoError(t, err)
	assert.Zero(t, sender.calls)
}

func TestReplayDeadLetters(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()
	payload := json.RawMessage(`{"entry_id":1}`)

	SendToDLQ(ctx, rdb, QueueNotifications, Job{Type: JobEntrySubmitted, Payload: payload, Attempts: 3}, "smtp down")
	SendToDLQ(ctx, rdb, QueueNotifications, Job{Type: JobEntrySubmitted, Payload: payload, Attempts: 3, Replays: MaxReplays}, "smtp down")

	cfg := RetryCronConfig{RDB: rdb, Queue: QueueNotifications, CB: infra.NewCircuitBreaker(infra.DefaultCBConfig())}
	assert.Equal(t, 1, replayDeadLetters(ctx, cfg))

	raw, err := rdb.RPop(ctx, QueueNotifications).Result()
	require.NoError(t, err)
	var job Job
	require.NoError(t, json.Unmarshal([]byte(raw), &job))
	assert.Equal(t, JobEntrySubmitted, job.Type)
	assert.Equal(t, 0, job.Attempts)
	assert.Equal(t, 1, job.Replays)

	length, err := DLQLength(ctx, rdb, QueueNotifications)
	require.NoError(t, err)
	assert.Equal(t, int64(1), length, "exhausted job stays dead-lettered")
}

func TestReplayDeadLetters_SkipsWhileBreakerOpen(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()
	SendToDLQ(ctx, rdb, QueueNotifications, Job{Type: JobEntrySubmitted, Payload: json.RawMessage(`{}`)}, "smtp down")

	cb := infra.NewCircuitBreaker(infra.CircuitBreakerConfig{FailureThreshold: 1, SuccessThreshold: 1, OpenTimeout: time.Hour})
	_ = cb.Execute(func() error { return errors.New("dial tcp: refused") })
	require.Equal(t, infra.CBOpen, cb.State())

	assert.Zero(t, replayDeadLetters(ctx, RetryCronConfig{RDB: rdb, Queue: QueueNotifications, CB: cb}))
	length, err := DLQLength(ctx, rdb, QueueNotifications)
	require.NoError(t, err)
	assert.Equal(t, int64(1), length)
}

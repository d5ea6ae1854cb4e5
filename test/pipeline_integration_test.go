//go:build integration

// Package test contains integration tests that exercise the dispatch pipeline
// against a real Redis instance. These tests are skipped by default during
// `go test ./...` and must be run explicitly with the integration build tag:
//
//	go test -v -tags integration ./test/
//
// Prerequisites:
//   - Redis running on localhost:6379 (or REDIS_URL set)
package test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alertpipe/internal/dispatch"
	"alertpipe/internal/notify"
	"alertpipe/internal/queue"
	"alertpipe/internal/records"
	"alertpipe/internal/types"
	"alertpipe/internal/worker"
)

// nopLogger implements types.Logger as a no-op for tests.
type nopLogger struct{}

func (nopLogger) Info(string, ...any) {}
func (nopLogger) Error(string, ...any) {}
func (nopLogger) Warn(string, ...any) {}
func (nopLogger) Debug(string, ...any) {}
func (l nopLogger) With(...any) types.Logger { return l }

// recordingDeliverer captures delivered messages.
type recordingDeliverer struct {
	mu        sync.Mutex
	delivered []types.Message
}

func (d *recordingDeliverer) Deliver(_ context.Context, msg types.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.delivered = append(d.delivered, msg)
	return nil
}

func (d *recordingDeliverer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.delivered)
}

func redisURL() string {
	if url := os.Getenv("REDIS_URL"); url != "" {
		return url
	}
	return "redis://localhost:6379/0"
}

func connectRedis(t *testing.T) *queue.Transport {
	t.Helper()
	rdb, err := queue.Connect(context.Background(), queue.ConnectConfig{
		URL:            redisURL(),
		RetryAttempts:  2,
		RetryInterval:  500 * time.Millisecond,
		ConnectTimeout: 5 * time.Second,
	})
	require.NoError(t, err, "redis must be reachable for integration tests")
	t.Cleanup(func() { _ = rdb.Close() })
	return queue.NewTransport(queue.NewRedisLists(rdb), nopLogger{})
}

func seedStore() *records.MemoryStore {
	store := records.NewMemoryStore()
	store.PutCheck(&types.Check{ID: "check-1", EntityName: "web01", Name: "HTTP Port 80"})
	store.PutState(&types.CheckState{ID: "state-2", State: "critical", Summary: "down"})
	store.PutContact(&types.Contact{
		ID: "c1",
		Media: []types.Media{
			{Type: types.MediumEmail, Address: "a@x.com"},
		},
	})
	store.Subscribe("check-1", "c1")
	return store
}

// TestPipelineEndToEnd pushes a notification through a real Redis queue and
// verifies a running consumer resolves and delivers it.
func TestPipelineEndToEnd(t *testing.T) {
	// Per-test queue name so concurrent runs do not interfere.
	queueName := fmt.Sprintf("notifications-it-%s", uuid.New().String()[:8])

	transport := connectRedis(t)
	store := seedStore()
	deliverer := &recordingDeliverer{}

	engine := dispatch.NewEngine(store, dispatch.AllowAll{}, types.RealClock{}, nopLogger{})
	materializer := dispatch.NewMaterializer(engine, store, nopLogger{})
	consumer := worker.NewConsumer(queueName, transport, store, materializer,
		deliverer, nil, dispatch.Options{}, nopLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- consumer.Run(ctx) }()

	n := &notify.Notification{
		CheckID:  "check-1",
		StateID:  "state-2",
		Severity: types.SeverityCritical,
		Type:     types.NotificationProblem,
		Time:     time.Now().UTC(),
	}
	require.NoError(t, transport.Push(context.Background(), queueName, n))

	require.Eventually(t, func() bool {
		return deliverer.count() == 1
	}, 5*time.Second, 50*time.Millisecond)

	deliverer.mu.Lock()
	msg := deliverer.delivered[0]
	deliverer.mu.Unlock()
	assert.Equal(t, "c1", msg.ContactID)
	assert.Equal(t, types.MediumEmail, msg.MediumType)
	assert.Equal(t, "a@x.com", msg.Address)
	assert.Equal(t, "critical", msg.Content["state"])

	depth, err := transport.Depth(context.Background(), queueName)
	require.NoError(t, err)
	assert.Zero(t, depth)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not stop after cancellation")
	}
}

// TestPipelineBacklogSurvivesRestart verifies queued notifications persist in
// Redis while no consumer is running and are drained on startup.
func TestPipelineBacklogSurvivesRestart(t *testing.T) {
	queueName := fmt.Sprintf("notifications-it-%s", uuid.New().String()[:8])

	transport := connectRedis(t)
	store := seedStore()
	deliverer := &recordingDeliverer{}

	for i := 0; i < 3; i++ {
		n := &notify.Notification{
			CheckID:  "check-1",
			StateID:  "state-2",
			Severity: types.SeverityCritical,
			Type:     types.NotificationProblem,
			Time:     time.Now().UTC(),
		}
		require.NoError(t, transport.Push(context.Background(), queueName, n))
	}

	depth, err := transport.Depth(context.Background(), queueName)
	require.NoError(t, err)
	require.EqualValues(t, 3, depth)

	engine := dispatch.NewEngine(store, dispatch.AllowAll{}, types.RealClock{}, nopLogger{})
	materializer := dispatch.NewMaterializer(engine, store, nopLogger{})
	consumer := worker.NewConsumer(queueName, transport, store, materializer,
		deliverer, nil, dispatch.Options{}, nopLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = consumer.Run(ctx) }()

	require.Eventually(t, func() bool {
		return deliverer.count() == 3
	}, 5*time.Second, 50*time.Millisecond)
}

// TestIntervalPolicyAgainstRedis verifies the do-not-repeat markers round-trip
// through a real Redis instance and expire with their TTL.
func TestIntervalPolicyAgainstRedis(t *testing.T) {
	rdb, err := queue.Connect(context.Background(), queue.ConnectConfig{
		URL:            redisURL(),
		RetryAttempts:  2,
		RetryInterval:  500 * time.Millisecond,
		ConnectTimeout: 5 * time.Second,
	})
	require.NoError(t, err, "redis must be reachable for integration tests")
	t.Cleanup(func() { _ = rdb.Close() })

	// Unique contact id per run so stale markers from earlier runs are inert.
	contactID := fmt.Sprintf("c-it-%s", uuid.New().String()[:8])
	contact := &types.Contact{ID: contactID}
	check := &types.Check{ID: "check-1", EntityName: "web01", Name: "HTTP Port 80"}
	query := dispatch.DropQuery{Contact: contact, Medium: types.MediumEmail, Check: check}

	policy := dispatch.NewIntervalPolicy(rdb, 2*time.Second, nopLogger{})

	assert.False(t, policy.DropNotifications(context.Background(), query),
		"no marker outstanding before first delivery")

	require.NoError(t, policy.MarkNotified(context.Background(), contactID, check.ID, types.MediumEmail))
	assert.True(t, policy.DropNotifications(context.Background(), query),
		"marker suppresses repeat delivery")
	assert.False(t, policy.DropNotifications(context.Background(),
		dispatch.DropQuery{Contact: contact, Medium: types.MediumSMS, Check: check}),
		"suppression is per medium")

	require.Eventually(t, func() bool {
		return !policy.DropNotifications(context.Background(), query)
	}, 5*time.Second, 100*time.Millisecond, "marker expires with its TTL")
}

package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/studyon/course-market/internal/model"
	"github.com/studyon/course-market/pkg/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	// Use unique connection name per test to avoid global adapter caching issues
	connName := t.Name() + "-" + mr.Addr()
	adapter, err := redis.NewRedisAdapter(connName, "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, adapter
}

func noticeQueueConfig(name string) QueueConfig {
	return QueueConfig{
		Name:              name,
		ConsumerGroup:     "notifier-group",
		ConsumerName:      "notifier-consumer",
		MaxRetries:        3,
		VisibilityTimeout: 5 * time.Second,
		PollInterval:      100 * time.Millisecond,
		BatchSize:         10,
		MaxLen:            1000,
		EnableDLQ:         true,
	}
}

func TestQueue_PublishAndConsumeNotice(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	defer mr.Close()

	queue, err := NewQueue(adapter, noticeQueueConfig("test:notices"))
	require.NoError(t, err)

	ctx := context.Background()
	expires := time.Now().Add(12 * time.Hour).Truncate(time.Second).UTC()
	notice := model.RentExpiryNotice{
		TransactionID: 42,
		Email:         "student@example.com",
		CourseTitle:   "Основы Go",
		Expires:       expires,
	}

	_, err = queue.PublishNotice(ctx, notice)
	require.NoError(t, err)

	received := make(chan model.RentExpiryNotice, 1)
	handler := func(ctx context.Context, msg *Message) error {
		decoded, err := DecodeNotice(msg)
		assert.NoError(t, err)
		assert.Equal(t, "42", msg.Metadata["transaction_id"])
		received <- decoded
		return nil
	}

	require.NoError(t, queue.Consume(handler))

	select {
	case got := <-received:
		assert.Equal(t, int64(42), got.TransactionID)
		assert.Equal(t, "student@example.com", got.Email)
		assert.True(t, got.Expires.Equal(expires))
	case <-time.After(2 * time.Second):
		t.Fatal("notice not received")
	}

	queue.Stop(time.Second)
}

func TestDecodeNotice(t *testing.T) {
	t.Run("rejects foreign kind", func(t *testing.T) {
		msg := &Message{
			Data:     []byte(`{}`),
			Metadata: map[string]string{"kind": "something-else"},
		}
		_, err := DecodeNotice(msg)
		assert.Error(t, err)
	})

	t.Run("rejects malformed payload", func(t *testing.T) {
		msg := &Message{
			Data:     []byte(`not json`),
			Metadata: map[string]string{"kind": noticeKind},
		}
		_, err := DecodeNotice(msg)
		assert.Error(t, err)
	})

	t.Run("round-trips through JSON", func(t *testing.T) {
		notice := model.RentExpiryNotice{TransactionID: 7, Email: "a@b.c", CourseTitle: "SQL"}
		data, err := json.Marshal(notice)
		require.NoError(t, err)

		msg := &Message{Data: data, Metadata: map[string]string{"kind": noticeKind}}
		decoded, err := DecodeNotice(msg)
		require.NoError(t, err)
		assert.Equal(t, notice.TransactionID, decoded.TransactionID)
	})
}

func TestQueue_RetryMechanism(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	defer mr.Close()

	config := noticeQueueConfig("test:retry:notices")
	config.MaxRetries = 2
	config.VisibilityTimeout = time.Second

	queue, err := NewQueue(adapter, config)
	require.NoError(t, err)
	defer queue.Stop(time.Second)

	ctx := context.Background()
	_, err = queue.PublishNotice(ctx, model.RentExpiryNotice{TransactionID: 1})
	require.NoError(t, err)

	attempts := 0
	handler := func(ctx context.Context, msg *Message) error {
		attempts++
		if attempts <= 2 {
			return assert.AnError
		}
		return nil
	}

	err = queue.Consume(handler)
	require.NoError(t, err)

	time.Sleep(500 * time.Millisecond)
	assert.GreaterOrEqual(t, attempts, 1)
}

func TestQueue_GetStats(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	defer mr.Close()

	queue, err := NewQueue(adapter, noticeQueueConfig("test:stats:notices"))
	require.NoError(t, err)
	defer queue.Stop(time.Second)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := queue.PublishNotice(ctx, model.RentExpiryNotice{TransactionID: int64(i)})
		require.NoError(t, err)
	}

	stats, err := queue.GetStats()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.TotalMessages, int64(5))
}

func TestMessage_AckNack(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	defer mr.Close()

	queue, err := NewQueue(adapter, noticeQueueConfig("test:ack:notices"))
	require.NoError(t, err)
	defer queue.Stop(time.Second)

	t.Run("ack marks message as processed", func(t *testing.T) {
		msgID, err := queue.PublishNotice(context.Background(), model.RentExpiryNotice{TransactionID: 9})
		require.NoError(t, err)

		msg := &Message{
			ID:       msgID,
			Metadata: map[string]string{},
			queue:    queue,
		}

		err = msg.Ack()
		assert.NoError(t, err)
		assert.True(t, msg.acked)
	})

	t.Run("nack leaves message pending", func(t *testing.T) {
		msg := &Message{ID: "test-2", Metadata: map[string]string{}, queue: queue}

		err := msg.Nack()
		assert.NoError(t, err)
		assert.False(t, msg.acked)
		assert.True(t, msg.nacked)
	})

	t.Run("double ack is rejected", func(t *testing.T) {
		msg := &Message{ID: "test-3", acked: true}

		err := msg.Ack()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "already acknowledged")
	})
}

func TestQueue_RequiresName(t *testing.T) {
	_, adapter := setupTestRedis(t)

	_, err := NewQueue(adapter, QueueConfig{})
	assert.Error(t, err)
}

func TestQueue_ConcurrentPublish(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	defer mr.Close()

	queue, err := NewQueue(adapter, noticeQueueConfig("test:concurrent:notices"))
	require.NoError(t, err)
	defer queue.Stop(time.Second)

	ctx := context.Background()
	numGoroutines := 10
	done := make(chan bool, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(id int64) {
			_, err := queue.PublishNotice(ctx, model.RentExpiryNotice{TransactionID: id})
			assert.NoError(t, err)
			done <- true
		}(int64(i))
	}

	for i := 0; i < numGoroutines; i++ {
		<-done
	}

	stats, err := queue.GetStats()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.TotalMessages, int64(numGoroutines))
}

func TestQueue_Stop(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	defer mr.Close()

	queue, err := NewQueue(adapter, noticeQueueConfig("test:stop:notices"))
	require.NoError(t, err)

	handler := func(ctx context.Context, msg *Message) error {
		time.Sleep(100 * time.Millisecond)
		return nil
	}

	err = queue.Consume(handler)
	require.NoError(t, err)

	err = queue.Stop(2 * time.Second)
	assert.NoError(t, err)
}

package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	domainErrors "github.com/rmedeiros/payrouter/internal/domain/errors"
	"github.com/rmedeiros/payrouter/internal/domain/payment"
)

const (
	// RetryStream holds queue entries awaiting a settlement retry.
	RetryStream = "payrouter:retry"
	// ScheduledSet holds backoff-delayed entries keyed by their due time.
	ScheduledSet = "payrouter:retry:scheduled"

	entryField = "entry"
)

// moveDueScript atomically moves every due entry from the scheduled set
// onto the stream. Running inside Redis keeps concurrent schedulers from
// double-moving or dropping an entry.
var moveDueScript = redis.NewScript(`
	local due = redis.call("zrangebyscore", KEYS[1], "-inf", ARGV[1], "LIMIT", 0, tonumber(ARGV[2]))
	for _, entry in ipairs(due) do
		redis.call("xadd", KEYS[2], "*", ARGV[3], entry)
		redis.call("zrem", KEYS[1], entry)
	end
	return #due
`)

// RetryQueue is the durable retry work queue. Entries live on a Redis
// stream consumed through a consumer group, which gives each delivery to
// exactly one consumer; unacked deliveries are reclaimed after the lease
// idle time, so a dead worker's entry returns to circulation instead of
// being lost or double-processed.
type RetryQueue struct {
	client        *redis.Client
	group         string
	consumer      string
	batchSize     int64
	blockDuration time.Duration
}

func NewRetryQueue(
	client *redis.Client,
	group string,
	consumer string,
	batchSize int64,
	blockDuration time.Duration,
) *RetryQueue {
	return &RetryQueue{
		client:        client,
		group:         group,
		consumer:      consumer,
		batchSize:     batchSize,
		blockDuration: blockDuration,
	}
}

// CreateGroup ensures the consumer group exists.
func (q *RetryQueue) CreateGroup(ctx context.Context) error {
	const busyGroupMsg = "BUSYGROUP"
	err := q.client.XGroupCreateMkStream(ctx, RetryStream, q.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), busyGroupMsg) {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

// Enqueue appends an entry durably. It returns only after Redis has
// acknowledged the write; any failure here means the payment could be
// lost, so the error carries the queue-unavailable sentinel for the
// caller to surface as service-unavailable.
func (q *RetryQueue) Enqueue(ctx context.Context, entry payment.QueueEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal queue entry: %w", err)
	}

	err = q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: RetryStream,
		Values: map[string]any{entryField: string(payload)},
	}).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", domainErrors.ErrQueueUnavailable, err)
	}
	return nil
}

// Schedule parks an entry in the delay set until now+delay.
func (q *RetryQueue) Schedule(ctx context.Context, entry payment.QueueEntry, delay time.Duration) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal queue entry: %w", err)
	}

	dueAt := float64(time.Now().Add(delay).UnixMilli())
	err = q.client.ZAdd(ctx, ScheduledSet, redis.Z{Score: dueAt, Member: string(payload)}).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", domainErrors.ErrQueueUnavailable, err)
	}
	return nil
}

// MoveDue promotes entries whose backoff has elapsed back onto the
// stream. Safe to run from every worker instance concurrently.
func (q *RetryQueue) MoveDue(ctx context.Context) (int64, error) {
	now := time.Now().UnixMilli()
	result, err := moveDueScript.Run(ctx, q.client,
		[]string{ScheduledSet, RetryStream},
		now, q.batchSize, entryField,
	).Result()
	if err != nil {
		return 0, fmt.Errorf("move due entries: %w", err)
	}
	moved, _ := result.(int64)
	return moved, nil
}

// Delivery is one leased queue entry. The ID is the stream message ID
// used to ack the lease.
type Delivery struct {
	ID    string
	Entry payment.QueueEntry
}

// Read blocks up to the configured poll interval for new deliveries.
// Each delivery goes to exactly one consumer in the group.
func (q *RetryQueue) Read(ctx context.Context) ([]Delivery, error) {
	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.group,
		Consumer: q.consumer,
		Streams:  []string{RetryStream, ">"},
		Count:    q.batchSize,
		Block:    q.blockDuration,
	}).Result()

	if err != nil {
		if err == redis.Nil {
			// No new messages
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read from stream: %w", err)
	}

	var deliveries []Delivery
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			d, err := decodeDelivery(msg)
			if err != nil {
				// Poison message: drop it rather than wedge the queue.
				q.Ack(ctx, msg.ID)
				continue
			}
			deliveries = append(deliveries, d)
		}
	}
	return deliveries, nil
}

// Ack commits a terminal state for the delivery, ending its lease.
func (q *RetryQueue) Ack(ctx context.Context, messageID string) error {
	err := q.client.XAck(ctx, RetryStream, q.group, messageID).Err()
	if err != nil {
		return fmt.Errorf("failed to ack message: %w", err)
	}
	return nil
}

// Reclaim takes over deliveries whose lease expired because the owning
// worker died before acking.
func (q *RetryQueue) Reclaim(ctx context.Context, minIdle time.Duration) ([]Delivery, error) {
	messages, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   RetryStream,
		Group:    q.group,
		Consumer: q.consumer,
		MinIdle:  minIdle,
		Start:    "0-0",
		Count:    q.batchSize,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to reclaim messages: %w", err)
	}

	var deliveries []Delivery
	for _, msg := range messages {
		d, err := decodeDelivery(msg)
		if err != nil {
			q.Ack(ctx, msg.ID)
			continue
		}
		deliveries = append(deliveries, d)
	}
	return deliveries, nil
}

// Depth reports entries waiting on the stream and in the delay set.
func (q *RetryQueue) Depth(ctx context.Context) (pending int64, scheduled int64, err error) {
	pending, err = q.client.XLen(ctx, RetryStream).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("stream length: %w", err)
	}
	scheduled, err = q.client.ZCard(ctx, ScheduledSet).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("scheduled cardinality: %w", err)
	}
	return pending, scheduled, nil
}

func decodeDelivery(msg redis.XMessage) (Delivery, error) {
	raw, _ := msg.Values[entryField].(string)
	var entry payment.QueueEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return Delivery{}, fmt.Errorf("decode queue entry %s: %w", msg.ID, err)
	}
	return Delivery{ID: msg.ID, Entry: entry}, nil
}

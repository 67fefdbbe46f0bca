package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/cardexlabs/arbscan/internal/domain"
)

const defaultStreamMaxLen int64 = 10000

// streamField is the single hash field carrying the serialized payload of a
// stream entry.
const streamField = "data"

// SignalBus implements domain.SignalBus: Pub/Sub for live scan events,
// streams for the durable scan history. Streams are trimmed approximately on
// every append so history stays bounded without a separate janitor.
type SignalBus struct {
	rdb    *redis.Client
	maxLen int64
}

// NewSignalBus creates a SignalBus backed by the given Client. maxLen bounds
// the durable streams; zero uses the default.
func NewSignalBus(c *Client, maxLen int64) *SignalBus {
	if maxLen <= 0 {
		maxLen = defaultStreamMaxLen
	}
	return &SignalBus{rdb: c.Underlying(), maxLen: maxLen}
}

// Publish fans a payload out to every subscriber of channel. Fire and
// forget: a channel with no subscribers is not an error.
func (sb *SignalBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := sb.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	return nil
}

// StreamAppend adds one entry to stream, trimming it to roughly maxLen.
func (sb *SignalBus) StreamAppend(ctx context.Context, stream string, payload []byte) error {
	err := sb.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: sb.maxLen,
		Approx: true,
		Values: map[string]any{streamField: payload},
	}).Err()
	if err != nil {
		return fmt.Errorf("redis: xadd %s: %w", stream, err)
	}
	return nil
}

// StreamRead returns up to count entries of stream after lastID, oldest
// first. lastID "0" (or empty) starts from the beginning; an exhausted
// stream yields an empty slice.
func (sb *SignalBus) StreamRead(ctx context.Context, stream, lastID string, count int) ([]domain.StreamMessage, error) {
	start := "-"
	if lastID != "" && lastID != "0" && lastID != "0-0" {
		// Exclusive range start, so the caller's cursor entry is not
		// returned again.
		start = "(" + lastID
	}

	entries, err := sb.rdb.XRangeN(ctx, stream, start, "+", int64(count)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: xrange %s: %w", stream, err)
	}

	msgs := make([]domain.StreamMessage, 0, len(entries))
	for _, e := range entries {
		data, ok := entryPayload(e)
		if !ok {
			continue
		}
		msgs = append(msgs, domain.StreamMessage{ID: e.ID, Payload: data})
	}
	return msgs, nil
}

// entryPayload extracts the payload bytes from one stream entry. go-redis
// decodes hash values as strings.
func entryPayload(e redis.XMessage) ([]byte, bool) {
	v, ok := e.Values[streamField]
	if !ok {
		return nil, false
	}
	switch p := v.(type) {
	case string:
		return []byte(p), true
	case []byte:
		return p, true
	}
	return nil, false
}

var _ domain.SignalBus = (*SignalBus)(nil)

package messaging

import (
	"context"
)

// Broker is the pub/sub boundary for notification events. Publishers hand
// over pre-serialized payloads; consumers receive raw bytes per channel.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

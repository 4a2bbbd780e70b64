package interfaces

import (
	"context"
	"time"
)

type ProducerHandler interface {
	PublishMessage(ctx context.Context, key, value []byte) error
}

// Counter increments a key inside a fixed window and returns the new count.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

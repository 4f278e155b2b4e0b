package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"workmatch/internal/events"
	"workmatch/internal/metrics"
)

// Cipher seals message bodies at rest.
type Cipher interface {
	Encrypt(plain string) (string, error)
	Decrypt(sealed string) (string, error)
}

const publishTimeout = 3 * time.Second

// notifier publishes domain events once the change that produced them has
// committed. Failures are logged and counted, never returned.
type notifier struct {
	events events.Publisher
	log    *zap.Logger
}

func (n notifier) publish(ctx context.Context, ev events.Event) {
	if n.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := n.events.Publish(ctx, ev); err != nil {
		metrics.EventPublishFailures.WithLabelValues(ev.Type).Inc()
		n.log.Warn("publish event failed",
			zap.String("type", ev.Type),
			zap.Int64("actor_id", ev.ActorID),
			zap.Error(err),
		)
	}
}

func utcNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

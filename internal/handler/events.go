package handler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/blog-backend/internal/queue"
)

// publishAsync sends ev in the background so a slow or absent broker never
// holds up the response.  Failures are only logged.
func publishAsync(pub queue.Publisher, log *zap.Logger, ev queue.Event) {
	if pub == nil {
		return
	}
	ev.OccurredAt = time.Now().UTC()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := pub.Publish(ctx, ev); err != nil {
			log.Warn("publish event failed", zap.String("type", ev.Type), zap.Error(err))
		}
	}()
}

package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// SubscriptionExpirer flips lapsed active subscriptions to expired.
type SubscriptionExpirer interface {
	ExpireLapsed(ctx context.Context) (int64, error)
}

// StartExpiryCron runs ExpireLapsed once at start and then every interval
// until ctx is cancelled.
func StartExpiryCron(ctx context.Context, expirer SubscriptionExpirer, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		log.Info().Dur("interval", interval).Msg("expiry_cron: started")
		for {
			if _, err := expirer.ExpireLapsed(ctx); err != nil {
				log.Error().Err(err).Msg("expiry_cron: run failed")
			}
			select {
			case <-ctx.Done():
				log.Info().Msg("expiry_cron: shutting down")
				return
			case <-ticker.C:
			}
		}
	}()
}

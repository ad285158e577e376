package database

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const (
	pingTimeout  = 3 * time.Second
	initialDelay = 500 * time.Millisecond
	maxDelay     = 8 * time.Second
)

// waitReady pings until the dependency answers or attempts run out, doubling
// the delay between tries.
func waitReady(ctx context.Context, log zerolog.Logger, name string, attempts int, ping func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}

	delay := initialDelay
	var err error
	for i := 1; i <= attempts; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err = ping(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		if i == attempts {
			break
		}

		log.Warn().Err(err).
			Str("dependency", name).
			Int("attempt", i).
			Dur("retry_in", delay).
			Msg("Dependency not ready")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		if delay < maxDelay {
			delay *= 2
		}
	}
	return err
}

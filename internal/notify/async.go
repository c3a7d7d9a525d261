package notify

import (
	"context"
	"sync"
	"time"

	"comexiger-backend/internal/metrics"

	"github.com/rs/zerolog"
)

// Async hands events to the wrapped Notifier on a background goroutine so a
// slow or broken broker never delays or fails the committed mutation.
type Async struct {
	next    Notifier
	timeout time.Duration
	log     zerolog.Logger
	wg      sync.WaitGroup
}

func NewAsync(next Notifier, timeout time.Duration, l zerolog.Logger) *Async {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Async{next: next, timeout: timeout, log: l.With().Str("component", "notify").Logger()}
}

// Publish always returns nil; delivery errors are logged and counted.
func (a *Async) Publish(_ context.Context, channel string, ev Event) error {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()

		if err := a.next.Publish(ctx, channel, ev); err != nil {
			metrics.Notifications.WithLabelValues(channel, "error").Inc()
			a.log.Warn().Err(err).Str("channel", channel).Str("type", ev.Type).Msg("no se pudo publicar el evento")
			return
		}
		metrics.Notifications.WithLabelValues(channel, "ok").Inc()
	}()
	return nil
}

// Wait blocks until in-flight deliveries finish. Used on shutdown.
func (a *Async) Wait() {
	a.wg.Wait()
}

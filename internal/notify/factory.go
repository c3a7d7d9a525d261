package notify

import (
	"context"
	"io"
	"time"

	"comexiger-backend/internal/config"

	"github.com/rs/zerolog"
)

// FromConfig builds the configured backend wrapped in Async. The returned
// closer releases broker connections.
func FromConfig(cfg *config.Config, l zerolog.Logger) (*Async, io.Closer, error) {
	var (
		backend Notifier
		closer  io.Closer = nopCloser{}
	)

	switch cfg.NotifyBackend {
	case "redis":
		r := NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := r.Ping(ctx); err != nil {
			l.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis no responde, los eventos se reintentarán en cada publicación")
		}
		backend, closer = r, r
	case "amqp":
		a, err := NewAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return nil, nil, err
		}
		backend, closer = a, a
	default:
		backend = NewLog(l)
	}

	return NewAsync(backend, cfg.NotifyTimeout, l), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

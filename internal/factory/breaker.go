package factory

import (
	"context"
	"fmt"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/gnuru1/InboxWrangler/internal/config"
	"github.com/gnuru1/InboxWrangler/internal/core"
)

// breakerClassifier wraps a classifier in a circuit breaker so a failing
// remote backend degrades to the fallback quickly instead of timing out on
// every message.
type breakerClassifier struct {
	inner core.Classifier
	cb    *gobreaker.CircuitBreaker
}

func newBreakerClassifier(inner core.Classifier, cfg config.ClassifierConfig, logger *zap.Logger) *breakerClassifier {
	settings := gobreaker.Settings{
		Name:        inner.Name(),
		MaxRequests: cfg.BreakerMaxRequests,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Classifier circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}
	return &breakerClassifier{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker(settings),
	}
}

func (b *breakerClassifier) Classify(ctx context.Context, subject, body, sender string) (*core.Classification, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.Classify(ctx, subject, body, sender)
	})
	if err != nil {
		return nil, fmt.Errorf("classifier %s: %w", b.inner.Name(), err)
	}
	return result.(*core.Classification), nil
}

func (b *breakerClassifier) Name() string {
	return b.inner.Name()
}

package app

import (
	"log/slog"

	"github.com/dwikikusuma/cartflow/pkg/lock"
	"github.com/dwikikusuma/cartflow/pkg/metrics"
	"github.com/google/uuid"
)

const defaultMaxAttempts = 3

type options struct {
	locker      lock.Locker
	log         *slog.Logger
	metrics     *metrics.Recorder
	newID       func() string
	maxAttempts int
}

type Option func(*options)

func WithLocker(l lock.Locker) Option { return func(o *options) { o.locker = l } }

func WithLogger(l *slog.Logger) Option { return func(o *options) { o.log = l } }

func WithMetrics(m *metrics.Recorder) Option { return func(o *options) { o.metrics = m } }

func WithIDGenerator(fn func() string) Option { return func(o *options) { o.newID = fn } }

func WithMaxAttempts(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		locker:      lock.NewLocal(),
		log:         slog.Default(),
		newID:       uuid.NewString,
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

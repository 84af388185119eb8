package catalogsearch

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	addrs    []string
	password string

	signalLimit  int
	trigramFloor float64
	rrfK         int

	clickRetention time.Duration
	lookback       time.Duration
	minClicks      int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithFusionTuning overrides the fusion engine defaults: per-signal
// candidate cap (100), trigram similarity floor (0.15) and the RRF
// constant (60). Zero values keep the defaults.
func WithFusionTuning(signalLimit int, trigramFloor float64, rrfK int) Option {
	return optionFunc(func(c *clientConfig) {
		c.signalLimit = signalLimit
		c.trigramFloor = trigramFloor
		c.rrfK = rrfK
	})
}

// WithClickRetention sets how long click events are kept. Default: 90 days.
func WithClickRetention(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.clickRetention = d
	})
}

// WithLearning tunes the learning loop: the click aggregation window
// (default 30 days) and the bridge application threshold (default 3).
func WithLearning(lookback time.Duration, minClicks int) Option {
	return optionFunc(func(c *clientConfig) {
		c.lookback = lookback
		c.minClicks = minClicks
	})
}

// WithLogger enables structured logging for client operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers client metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}

package letterdesk

import (
	"context"
	"log/slog"
	"time"

	"github.com/rbaliyan/event/v3/transport"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/avirel/letterdesk/store"
)

// Default configuration values.
const (
	// DefaultInboxLimit caps the combined inbox/outbox listing.
	DefaultInboxLimit = 10

	// DefaultMaxConcurrentSends limits concurrent send operations per service.
	DefaultMaxConcurrentSends = 10

	// DefaultShutdownTimeout bounds the graceful drain on Close.
	DefaultShutdownTimeout = 30 * time.Second
	MinShutdownTimeout     = 1 * time.Second
)

// SignPolicy decides whether an account holding the given roles may sign a
// letter of the given type. The core enforces the sign-once state machine
// itself; which roles may sign which letter types is configuration, supplied
// through this predicate.
type SignPolicy func(signerRoles []store.Role, letterType store.LetterType) bool

// DefaultSignPolicy allows any account carrying at least one non-student
// role to sign any letter type.
func DefaultSignPolicy(signerRoles []store.Role, _ store.LetterType) bool {
	for _, r := range signerRoles {
		if r != store.RoleStudent {
			return true
		}
	}
	return false
}

// AttestationVerifier optionally checks the opaque attestation fields on a
// send request. Letterdesk itself never interprets them; when a verifier is
// configured it is called with the verbatim values and a non-nil error
// aborts the send with ErrUnauthorized.
type AttestationVerifier func(ctx context.Context, digitalSignature, publicKey string) error

// options holds letterdesk configuration.
type options struct {
	store  store.Store
	logger *slog.Logger

	signPolicy          SignPolicy
	attestationVerifier AttestationVerifier

	inboxLimit         int
	maxConcurrentSends int
	shutdownTimeout    time.Duration

	// OpenTelemetry
	tracingEnabled bool
	metricsEnabled bool
	serviceName    string
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider

	// Event handling
	eventTransport transport.Transport
	redisClient    redis.UniversalClient
}

// newOptions creates options with defaults and applies provided options.
func newOptions(opts ...Option) *options {
	o := &options{
		logger:             slog.Default(),
		signPolicy:         DefaultSignPolicy,
		inboxLimit:         DefaultInboxLimit,
		maxConcurrentSends: DefaultMaxConcurrentSends,
		shutdownTimeout:    DefaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option configures a letterdesk service.
type Option func(*options)

// WithStore sets the storage backend (required).
func WithStore(s store.Store) Option {
	return func(o *options) {
		if s != nil {
			o.store = s
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithSignPolicy sets the authorization predicate consulted on SignLetter.
func WithSignPolicy(p SignPolicy) Option {
	return func(o *options) {
		if p != nil {
			o.signPolicy = p
		}
	}
}

// WithAttestationVerifier sets an optional verifier for the opaque
// attestation fields on send requests. Without one, the fields are carried
// verbatim and never checked.
func WithAttestationVerifier(v AttestationVerifier) Option {
	return func(o *options) {
		o.attestationVerifier = v
	}
}

// WithInboxLimit overrides the combined inbox/outbox listing cap.
// Values below 1 are ignored.
func WithInboxLimit(limit int) Option {
	return func(o *options) {
		if limit >= 1 {
			o.inboxLimit = limit
		}
	}
}

// WithMaxConcurrentSends limits concurrent send operations.
// Values below 1 are ignored.
func WithMaxConcurrentSends(n int) Option {
	return func(o *options) {
		if n >= 1 {
			o.maxConcurrentSends = n
		}
	}
}

// WithShutdownTimeout sets the graceful shutdown timeout for Close.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *options) {
		if d >= MinShutdownTimeout {
			o.shutdownTimeout = d
		}
	}
}

// --- Observability Options ---

// WithTracing enables OpenTelemetry tracing.
func WithTracing(enabled bool) Option {
	return func(o *options) {
		o.tracingEnabled = enabled
	}
}

// WithMetrics enables OpenTelemetry metrics.
func WithMetrics(enabled bool) Option {
	return func(o *options) {
		o.metricsEnabled = enabled
	}
}

// WithServiceName sets the service name used in telemetry and event bus names.
func WithServiceName(name string) Option {
	return func(o *options) {
		o.serviceName = name
	}
}

// WithTracerProvider sets a custom tracer provider.
// Defaults to the global provider when tracing is enabled.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

// WithMeterProvider sets a custom meter provider.
// Defaults to the global provider when metrics are enabled.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}

// --- Event Options ---

// WithEventTransport sets a custom event transport.
func WithEventTransport(t transport.Transport) Option {
	return func(o *options) {
		o.eventTransport = t
	}
}

// WithRedisClient sets a Redis client used for the event transport.
func WithRedisClient(c redis.UniversalClient) Option {
	return func(o *options) {
		o.redisClient = c
	}
}

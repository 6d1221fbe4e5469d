package omf

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/rbaliyan/omf/auth"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Default configuration values.
const (
	// DefaultTimeout bounds each ingestion request when no HTTP client
	// is supplied.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxConcurrentSends limits concurrent SendValues calls per
	// client.
	DefaultMaxConcurrentSends = 10
)

// authScheme selects how the token is attached to requests.
type authScheme uint8

const (
	// authBearer sends the token as Authorization: Bearer.
	authBearer authScheme = iota
	// authProducerToken sends the token in the legacy producertoken
	// header used by relay endpoints.
	authProducerToken
)

// options holds client configuration.
type options struct {
	baseURL      string
	tenant       string
	namespace    string
	messagesPath string // override; empty means the tenant/namespace path

	tokens auth.TokenProvider
	scheme authScheme

	useCompression bool

	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger

	maxConcurrentSends int

	// OpenTelemetry
	tracingEnabled bool
	metricsEnabled bool
	serviceName    string
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// newOptions creates options with defaults and applies provided options.
func newOptions(opts ...Option) *options {
	o := &options{
		logger:             slog.Default(),
		timeout:            DefaultTimeout,
		maxConcurrentSends: DefaultMaxConcurrentSends,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option configures a client.
type Option func(*options)

// --- Endpoint Options ---

// WithBaseURL sets the service base URL (required).
func WithBaseURL(u string) Option {
	return func(o *options) {
		o.baseURL = u
	}
}

// WithTenant sets the tenant ID the client posts under (required
// unless WithMessagesPath is used).
func WithTenant(id string) Option {
	return func(o *options) {
		o.tenant = id
	}
}

// WithNamespace sets the namespace ID the client posts under (required
// unless WithMessagesPath is used).
func WithNamespace(id string) Option {
	return func(o *options) {
		o.namespace = id
	}
}

// WithMessagesPath overrides the REST suffix messages are posted to,
// replacing the tenant/namespace path entirely. Use this for relay
// endpoints such as "/ingress/messages".
func WithMessagesPath(path string) Option {
	return func(o *options) {
		o.messagesPath = path
	}
}

// --- Auth Options ---

// WithTokenProvider sets the bearer-token provider (required unless
// WithProducerToken is used).
func WithTokenProvider(tp auth.TokenProvider) Option {
	return func(o *options) {
		if tp != nil {
			o.tokens = tp
			o.scheme = authBearer
		}
	}
}

// WithProducerToken authenticates with a fixed producer token in the
// legacy producertoken header instead of a bearer token. Used by relay
// endpoints.
func WithProducerToken(token string) Option {
	return func(o *options) {
		if token != "" {
			o.tokens = auth.NewStatic(token)
			o.scheme = authProducerToken
		}
	}
}

// --- Transport Options ---

// WithCompression enables gzip compression of message bodies.
// Default is disabled.
func WithCompression(enabled bool) Option {
	return func(o *options) {
		o.useCompression = enabled
	}
}

// WithHTTPClient sets the HTTP client shared by all sends. The
// client's connection pool is reused across requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		if hc != nil {
			o.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout applied when no HTTP client
// is supplied. Default is 30 seconds.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
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

// --- Concurrency Options ---

// WithMaxConcurrentSends sets the maximum number of concurrent
// SendValues operations. This prevents pool exhaustion when a
// collection loop fans out many value messages. Default is 10.
func WithMaxConcurrentSends(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxConcurrentSends = n
		}
	}
}

// --- OTel Options ---

// WithTracing enables or disables OpenTelemetry tracing.
// When enabled, a span is created for every send.
// Default is disabled.
func WithTracing(enabled bool) Option {
	return func(o *options) {
		o.tracingEnabled = enabled
	}
}

// WithMetrics enables or disables OpenTelemetry metrics.
// When enabled, send and token-fetch metrics are collected.
// Default is disabled.
func WithMetrics(enabled bool) Option {
	return func(o *options) {
		o.metricsEnabled = enabled
	}
}

// WithOTel enables both OpenTelemetry tracing and metrics.
// This is a convenience function equivalent to calling
// WithTracing(true) and WithMetrics(true).
func WithOTel(enabled bool) Option {
	return func(o *options) {
		o.tracingEnabled = enabled
		o.metricsEnabled = enabled
	}
}

// WithServiceName sets the service name for OpenTelemetry telemetry.
// Default is "omf".
func WithServiceName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.serviceName = name
		}
	}
}

// WithTracerProvider sets a custom OpenTelemetry tracer provider.
// Default uses the global tracer provider from otel.GetTracerProvider().
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		if tp != nil {
			o.tracerProvider = tp
		}
	}
}

// WithMeterProvider sets a custom OpenTelemetry meter provider.
// Default uses the global meter provider from otel.GetMeterProvider().
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		if mp != nil {
			o.meterProvider = mp
		}
	}
}

package omf

import (
	"errors"
	"fmt"

	"github.com/rbaliyan/omf/auth"
)

// Sentinel errors for the omf package.
// Use errors.Is() to check for these errors.
var (
	// ErrUnsupportedCompression is returned when a compression kind
	// other than GZip is requested.
	ErrUnsupportedCompression = errors.New("omf: unsupported compression")

	// ErrAuth is returned when a bearer token cannot be obtained.
	// Wraps auth.ErrAuthentication for consistent error checking.
	ErrAuth = fmt.Errorf("omf: %w", auth.ErrAuthentication)

	// ErrIngestion is returned when the ingestion endpoint responds
	// with a non-2xx status. Inspect *IngestionError for details.
	ErrIngestion = errors.New("omf: ingestion rejected")

	// ErrTransport is returned for network-level failures: timeouts,
	// connection refused, DNS resolution.
	ErrTransport = errors.New("omf: transport failure")

	// ErrCancelled is returned when an in-flight request is aborted by
	// the caller's context.
	ErrCancelled = errors.New("omf: request cancelled")

	// ErrBaseURLRequired is returned when no base URL is configured.
	ErrBaseURLRequired = errors.New("omf: base URL is required")

	// ErrTenantRequired is returned when no tenant ID is configured.
	ErrTenantRequired = errors.New("omf: tenant is required")

	// ErrNamespaceRequired is returned when no namespace ID is configured.
	ErrNamespaceRequired = errors.New("omf: namespace is required")

	// ErrTokenProviderRequired is returned when no token provider is
	// configured.
	ErrTokenProviderRequired = errors.New("omf: token provider is required")

	// ErrEmptyPayload is returned when a send is attempted with no
	// records.
	ErrEmptyPayload = errors.New("omf: empty payload")
)

// IngestionError is returned when the ingestion endpoint rejects a
// message. It carries the response status and body text for
// diagnostics. Use errors.As() to extract the details.
type IngestionError struct {
	// StatusCode is the HTTP response status.
	StatusCode int
	// Body is the response body text, captured verbatim.
	Body string
	// MessageType is the kind of message that was rejected.
	MessageType MessageType
	// Action is the action header the message carried.
	Action Action
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("omf: ingestion rejected %s/%s (HTTP %d): %s",
		e.MessageType, e.Action, e.StatusCode, e.Body)
}

func (e *IngestionError) Unwrap() error {
	return ErrIngestion
}

// IsIngestionError checks if the error is an ingestion rejection and
// returns its details.
func IsIngestionError(err error) (*IngestionError, bool) {
	var ie *IngestionError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}

// IsRetryableError determines if an error is worth retrying.
// The library itself never retries; this classifier is for callers
// wrapping sends in their own retry policy.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// Caller-initiated cancellation and local misconfiguration are
	// deterministic; retrying reproduces them.
	permanentErrors := []error{
		ErrCancelled,
		ErrUnsupportedCompression,
		ErrEmptyPayload,
		ErrBaseURLRequired,
		ErrTenantRequired,
		ErrNamespaceRequired,
		ErrTokenProviderRequired,
		auth.ErrMissingAccessToken,
		auth.ErrMissingExpiry,
	}
	for _, permErr := range permanentErrors {
		if errors.Is(err, permErr) {
			return false
		}
	}

	// Ingestion rejections: server-side trouble and throttling can be
	// retried, anything else 4xx is a malformed message.
	if ie, ok := IsIngestionError(err); ok {
		return ie.StatusCode >= 500 || ie.StatusCode == 429
	}

	// Credential rejections are permanent; identity endpoint outages
	// are not.
	var ae *auth.Error
	if errors.As(err, &ae) {
		return ae.StatusCode == 0 || ae.StatusCode >= 500
	}

	// Transport failures and anything unclassified default to
	// retryable, as they are likely transient network conditions.
	return true
}

// Package auth provides bearer-token providers for the OMF ingestion
// client.
//
// ClientCredentials implements the OAuth2 client-credentials grant with
// a cached, lazily refreshed token. Static wraps a fixed token for
// legacy relay endpoints that authenticate with a producer token.
package auth

import "context"

// TokenProvider supplies a bearer token for outbound requests.
// Implementations must be safe for concurrent use.
type TokenProvider interface {
	// Token returns a token valid at the time of the call, refreshing
	// it first if necessary.
	Token(ctx context.Context) (string, error)
}

// Static is a TokenProvider returning a fixed token. It never expires
// and never fails. Use it for relay endpoints authenticated with a
// pre-issued producer token.
type Static struct {
	token string
}

// NewStatic returns a provider for the given fixed token.
func NewStatic(token string) *Static {
	return &Static{token: token}
}

// Token returns the fixed token.
func (s *Static) Token(context.Context) (string, error) {
	return s.token, nil
}

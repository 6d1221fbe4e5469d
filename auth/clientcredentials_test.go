package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// identityServer is a fake identity endpoint counting token requests.
type identityServer struct {
	mu        sync.Mutex
	requests  int
	expiresIn int64
	omitToken bool
	status    int
	delay     time.Duration
}

func (s *identityServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests++
		n := s.requests
		expiresIn := s.expiresIn
		omitToken := s.omitToken
		status := s.status
		delay := s.delay
		s.mu.Unlock()

		if delay > 0 {
			time.Sleep(delay)
		}

		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if r.PostForm.Get("grant_type") != "client_credentials" {
			http.Error(w, "unsupported_grant_type", http.StatusBadRequest)
			return
		}

		if status != 0 {
			w.WriteHeader(status)
			io.WriteString(w, `{"error":"invalid_client"}`)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if omitToken {
			fmt.Fprintf(w, `{"expires_in":%d}`, expiresIn)
			return
		}
		if expiresIn == 0 {
			fmt.Fprintf(w, `{"access_token":"token-%d"}`, n)
			return
		}
		fmt.Fprintf(w, `{"access_token":"token-%d","token_type":"Bearer","expires_in":%d}`, n, expiresIn)
	}
}

func (s *identityServer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

func newTestProvider(t *testing.T, serverURL string, opts ...Option) *ClientCredentials {
	t.Helper()
	p, err := NewClientCredentials(serverURL, "client-1", "secret-1", opts...)
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	return p
}

func TestNewClientCredentialsValidation(t *testing.T) {
	if _, err := NewClientCredentials("", "id", "secret"); !errors.Is(err, ErrBaseURLRequired) {
		t.Errorf("expected ErrBaseURLRequired, got %v", err)
	}
	if _, err := NewClientCredentials("http://x", "", "secret"); !errors.Is(err, ErrClientIDRequired) {
		t.Errorf("expected ErrClientIDRequired, got %v", err)
	}
	if _, err := NewClientCredentials("http://x", "id", ""); !errors.Is(err, ErrClientSecretRequired) {
		t.Errorf("expected ErrClientSecretRequired, got %v", err)
	}
}

func TestTokenCachedUntilSafetyMargin(t *testing.T) {
	identity := &identityServer{expiresIn: 3600}
	server := httptest.NewServer(identity.handler())
	defer server.Close()

	t0 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	now := t0
	p := newTestProvider(t, server.URL)
	p.now = func() time.Time { return now }

	ctx := context.Background()

	token, err := p.Token(ctx)
	if err != nil {
		t.Fatalf("first acquisition failed: %v", err)
	}
	if token != "token-1" {
		t.Errorf("token = %q, want token-1", token)
	}

	// Well within the lifetime: cached, no second identity call.
	now = t0.Add(10 * time.Second)
	token, err = p.Token(ctx)
	if err != nil {
		t.Fatalf("cached acquisition failed: %v", err)
	}
	if token != "token-1" {
		t.Errorf("token = %q, want cached token-1", token)
	}
	if identity.count() != 1 {
		t.Errorf("expected 1 identity request, got %d", identity.count())
	}

	// One second before the safety margin: still cached.
	now = t0.Add(3600*time.Second - DefaultSafetyMargin - time.Second)
	if _, err := p.Token(ctx); err != nil {
		t.Fatalf("acquisition failed: %v", err)
	}
	if identity.count() != 1 {
		t.Errorf("expected cache hit before safety margin, got %d requests", identity.count())
	}

	// At the safety margin the token is stale: fresh fetch.
	now = t0.Add(3600*time.Second - DefaultSafetyMargin)
	token, err = p.Token(ctx)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if token != "token-2" {
		t.Errorf("token = %q, want refreshed token-2", token)
	}
	if identity.count() != 2 {
		t.Errorf("expected 2 identity requests, got %d", identity.count())
	}
}

func TestTokenMissingAccessToken(t *testing.T) {
	identity := &identityServer{expiresIn: 3600, omitToken: true}
	server := httptest.NewServer(identity.handler())
	defer server.Close()

	p := newTestProvider(t, server.URL)

	token, err := p.Token(context.Background())
	if !errors.Is(err, ErrMissingAccessToken) {
		t.Errorf("expected ErrMissingAccessToken, got %v", err)
	}
	if !errors.Is(err, ErrAuthentication) {
		t.Errorf("expected error to match ErrAuthentication, got %v", err)
	}
	if token != "" {
		t.Errorf("expected empty token on failure, got %q", token)
	}
}

func TestTokenMissingExpiry(t *testing.T) {
	identity := &identityServer{}
	server := httptest.NewServer(identity.handler())
	defer server.Close()

	p := newTestProvider(t, server.URL)

	if _, err := p.Token(context.Background()); !errors.Is(err, ErrMissingExpiry) {
		t.Errorf("expected ErrMissingExpiry, got %v", err)
	}
}

func TestTokenCredentialsRejected(t *testing.T) {
	identity := &identityServer{status: http.StatusUnauthorized}
	server := httptest.NewServer(identity.handler())
	defer server.Close()

	p := newTestProvider(t, server.URL)

	_, err := p.Token(context.Background())
	var ae *Error
	if !errors.As(err, &ae) {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if ae.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", ae.StatusCode)
	}
	if ae.Body == "" {
		t.Error("expected response body to be captured")
	}

	// A failed refresh does not poison the provider.
	identity.mu.Lock()
	identity.status = 0
	identity.expiresIn = 3600
	identity.mu.Unlock()
	if _, err := p.Token(context.Background()); err != nil {
		t.Errorf("expected recovery on next call, got %v", err)
	}
}

func TestTokenSingleFlight(t *testing.T) {
	identity := &identityServer{expiresIn: 3600, delay: 50 * time.Millisecond}
	server := httptest.NewServer(identity.handler())
	defer server.Close()

	p := newTestProvider(t, server.URL)

	const callers = 10
	var wg sync.WaitGroup
	var failures atomic.Int64
	tokens := make([]string, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			token, err := p.Token(context.Background())
			if err != nil {
				failures.Add(1)
				return
			}
			tokens[n] = token
		}(i)
	}
	wg.Wait()

	if failures.Load() != 0 {
		t.Fatalf("%d concurrent acquisitions failed", failures.Load())
	}
	if identity.count() != 1 {
		t.Errorf("expected concurrent callers to coalesce into 1 identity request, got %d", identity.count())
	}
	for i, token := range tokens {
		if token != "token-1" {
			t.Errorf("caller %d got %q, want token-1", i, token)
		}
	}
}

func TestInvalidate(t *testing.T) {
	identity := &identityServer{expiresIn: 3600}
	server := httptest.NewServer(identity.handler())
	defer server.Close()

	p := newTestProvider(t, server.URL)

	if _, err := p.Token(context.Background()); err != nil {
		t.Fatalf("acquisition failed: %v", err)
	}
	if !p.HasValidToken() {
		t.Error("expected valid cached token")
	}
	if p.Expiry().IsZero() {
		t.Error("expected non-zero expiry")
	}

	p.Invalidate()
	if p.HasValidToken() {
		t.Error("expected no valid token after invalidate")
	}

	token, err := p.Token(context.Background())
	if err != nil {
		t.Fatalf("re-acquisition failed: %v", err)
	}
	if token != "token-2" {
		t.Errorf("token = %q, want fresh token-2", token)
	}
}

func TestStaticProvider(t *testing.T) {
	p := NewStatic("OMFv1")
	token, err := p.Token(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "OMFv1" {
		t.Errorf("token = %q, want OMFv1", token)
	}
}

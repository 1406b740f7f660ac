package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestUserStrategyParams(t *testing.T) {
	s := NewUserStrategy("alice")
	if got := s.Params().Get("user.name"); got != "alice" {
		t.Errorf("expected user.name=alice, got %q", got)
	}
}

func TestUserStrategyDefaultsToOSUser(t *testing.T) {
	s := NewUserStrategy("")
	if s.User == "" {
		t.Skip("no resolvable local user in this environment")
	}
	if got := s.Params().Get("user.name"); got != s.User {
		t.Errorf("expected user.name=%q, got %q", s.User, got)
	}
}

func TestTokenStrategyParams(t *testing.T) {
	s, err := NewTokenStrategy("abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.Params().Get("delegation"); got != "abc" {
		t.Errorf("expected delegation=abc, got %q", got)
	}
}

func TestTokenStrategyEmptyToken(t *testing.T) {
	_, err := NewTokenStrategy("")
	var ae *AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AuthError, got %v", err)
	}
}

func TestNegotiatedStrategyFirstUse(t *testing.T) {
	var calls atomic.Int32
	s := NewNegotiatedStrategy(NegotiatorFunc(func(ctx context.Context, challenge string) (string, error) {
		calls.Add(1)
		if challenge != "" {
			t.Errorf("initial handshake should carry no challenge, got %q", challenge)
		}
		return "cred", nil
	}))

	req := httptest.NewRequest("GET", "http://example/webhdfs/v1/?op=GETHOMEDIRECTORY", nil)
	if err := s.Apply(context.Background(), req); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := req.Header.Get("Authorization"); got != "Negotiate cred" {
		t.Errorf("expected negotiated header, got %q", got)
	}

	// Subsequent requests reuse the cached credential.
	req2 := httptest.NewRequest("GET", "http://example/", nil)
	if err := s.Apply(context.Background(), req2); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected a single negotiation, got %d", calls.Load())
	}
}

func unauthorizedResponse(used string) *http.Response {
	req := httptest.NewRequest("GET", "http://example/", nil)
	req.Header.Set("Authorization", "Negotiate "+used)
	return &http.Response{
		StatusCode: http.StatusUnauthorized,
		Header:     http.Header{"Www-Authenticate": []string{"Negotiate challenge-token"}},
		Request:    req,
	}
}

func TestNegotiatedStrategySingleFlight(t *testing.T) {
	var calls atomic.Int32
	s := NewNegotiatedStrategy(NegotiatorFunc(func(ctx context.Context, challenge string) (string, error) {
		n := calls.Add(1)
		if n > 1 {
			time.Sleep(10 * time.Millisecond) // widen the race window
		}
		return "cred-" + string(rune('0'+n)), nil
	}))

	// Prime the cache.
	req := httptest.NewRequest("GET", "http://example/", nil)
	if err := s.Apply(context.Background(), req); err != nil {
		t.Fatalf("apply: %v", err)
	}

	// Many workers observe a 401 with the same stale credential; only one
	// renegotiation may run, the rest reuse its result.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.HandleUnauthorized(context.Background(), unauthorizedResponse("cred-1"))
			if err != nil || !ok {
				t.Errorf("HandleUnauthorized: ok=%v err=%v", ok, err)
			}
		}()
	}
	wg.Wait()

	if calls.Load() != 2 {
		t.Errorf("expected exactly one renegotiation after priming, got %d total calls", calls.Load())
	}
}

func TestNegotiatedStrategyNegotiationFailure(t *testing.T) {
	s := NewNegotiatedStrategy(NegotiatorFunc(func(ctx context.Context, challenge string) (string, error) {
		return "", errors.New("no ticket")
	}))

	req := httptest.NewRequest("GET", "http://example/", nil)
	err := s.Apply(context.Background(), req)
	var ae *AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AuthError, got %v", err)
	}
}

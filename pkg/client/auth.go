package client

import (
	"context"
	"net/http"
	"net/url"
	"os/user"
	"strings"
	"sync"

	"github.com/politusanalytics/hdfs/pkg/logging"
)

// Strategy produces per-request authentication material. Params returns
// query parameters attached to every request; Apply sets per-request
// headers. HandleUnauthorized reacts to a 401 response and reports whether
// the request should be resent with refreshed credentials.
type Strategy interface {
	Params() url.Values
	Apply(ctx context.Context, req *http.Request) error
	HandleUnauthorized(ctx context.Context, resp *http.Response) (bool, error)
}

// UserStrategy authenticates by naming a user identity in the user.name
// query parameter. This is the insecure-cluster mode.
type UserStrategy struct {
	User string
}

// NewUserStrategy builds a UserStrategy, defaulting to the local OS user.
func NewUserStrategy(name string) *UserStrategy {
	if name == "" {
		if u, err := user.Current(); err == nil {
			name = u.Username
		}
	}
	return &UserStrategy{User: name}
}

func (s *UserStrategy) Params() url.Values {
	if s.User == "" {
		return nil
	}
	return url.Values{"user.name": []string{s.User}}
}

func (s *UserStrategy) Apply(ctx context.Context, req *http.Request) error {
	return nil
}

func (s *UserStrategy) HandleUnauthorized(ctx context.Context, resp *http.Response) (bool, error) {
	return false, nil
}

// TokenStrategy authenticates with a delegation token in the delegation
// query parameter.
type TokenStrategy struct {
	Token string
}

// NewTokenStrategy builds a TokenStrategy. An empty token is an AuthError.
func NewTokenStrategy(token string) (*TokenStrategy, error) {
	if token == "" {
		return nil, &AuthError{Reason: "empty delegation token"}
	}
	return &TokenStrategy{Token: token}, nil
}

func (s *TokenStrategy) Params() url.Values {
	return url.Values{"delegation": []string{s.Token}}
}

func (s *TokenStrategy) Apply(ctx context.Context, req *http.Request) error {
	return nil
}

func (s *TokenStrategy) HandleUnauthorized(ctx context.Context, resp *http.Response) (bool, error) {
	return false, nil
}

// Negotiator performs one credential negotiation round against the
// authentication service. The challenge is the server's WWW-Authenticate
// payload, empty on the initial handshake. Ticket acquisition mechanics
// (Kerberos, GSSAPI) live behind this interface.
type Negotiator interface {
	Negotiate(ctx context.Context, challenge string) (credential string, err error)
}

// NegotiatorFunc adapts a function to the Negotiator interface.
type NegotiatorFunc func(ctx context.Context, challenge string) (string, error)

func (f NegotiatorFunc) Negotiate(ctx context.Context, challenge string) (string, error) {
	return f(ctx, challenge)
}

const negotiateScheme = "Negotiate "

// NegotiatedStrategy authenticates via a challenge/response handshake and
// reuses the negotiated credential until the service rejects it. Only one
// re-negotiation runs at a time; a request that hit a 401 with an
// already-replaced credential resends with the fresh one instead of racing
// a second handshake.
type NegotiatedStrategy struct {
	negotiator Negotiator

	mu         sync.Mutex
	credential string
}

// NewNegotiatedStrategy builds a NegotiatedStrategy around a Negotiator.
func NewNegotiatedStrategy(n Negotiator) *NegotiatedStrategy {
	return &NegotiatedStrategy{negotiator: n}
}

func (s *NegotiatedStrategy) Params() url.Values {
	return nil
}

// Apply negotiates on first use, then attaches the cached credential.
func (s *NegotiatedStrategy) Apply(ctx context.Context, req *http.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.credential == "" {
		if err := s.negotiateLocked(ctx, ""); err != nil {
			return err
		}
	}
	req.Header.Set("Authorization", negotiateScheme+s.credential)
	return nil
}

// HandleUnauthorized re-negotiates once against the server challenge. The
// mutex serializes concurrent handlers; a handler whose request carried a
// credential that has since been replaced reuses the replacement.
func (s *NegotiatedStrategy) HandleUnauthorized(ctx context.Context, resp *http.Response) (bool, error) {
	var used string
	if resp.Request != nil {
		used = strings.TrimPrefix(resp.Request.Header.Get("Authorization"), negotiateScheme)
	}
	challenge := strings.TrimPrefix(resp.Header.Get("WWW-Authenticate"), negotiateScheme)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.credential != "" && s.credential != used {
		return true, nil
	}
	logging.Debug("renegotiating credentials")
	if err := s.negotiateLocked(ctx, challenge); err != nil {
		return false, err
	}
	return true, nil
}

func (s *NegotiatedStrategy) negotiateLocked(ctx context.Context, challenge string) error {
	cred, err := s.negotiator.Negotiate(ctx, challenge)
	if err != nil {
		return &AuthError{Reason: "negotiation failed", Err: err}
	}
	s.credential = cred
	return nil
}

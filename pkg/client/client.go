// Package client implements a WebHDFS client: an authenticated session with
// redirect handling and retry-on-failover, typed operations for each verb,
// root-relative path resolution, and a concurrent upload/download engine.
package client

import (
	"fmt"
	"net"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/politusanalytics/hdfs/pkg/retry"
)

// Config holds client configuration.
type Config struct {
	URLs       []string      // name-node endpoints, highest priority first
	Root       string        // remote root all paths resolve under, default "/"
	User       string        // user.name identity for insecure clusters
	Token      string        // delegation token; takes precedence over User
	Negotiator Negotiator    // challenge/response handshake for secure clusters
	Timeout    time.Duration // per-request timeout, default 30s
	Retry      retry.Config
}

// Client is the public surface of the library. It owns one session shared
// by every operation issued through it.
type Client struct {
	root    string
	session *session
}

// New creates a client. The auth strategy is selected from the config:
// delegation token, then negotiated handshake, then plain user identity.
func New(cfg Config) (*Client, error) {
	if len(cfg.URLs) == 0 {
		return nil, fmt.Errorf("%w: at least one name-node url required", ErrInvalidArgument)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultConfig()
	}

	root := "/"
	if cfg.Root != "" {
		if !strings.HasPrefix(cfg.Root, "/") {
			return nil, fmt.Errorf("%w: root must be absolute, got %q", ErrInvalidArgument, cfg.Root)
		}
		root = path.Clean(cfg.Root)
	}

	strategy, err := strategyFor(cfg)
	if err != nil {
		return nil, err
	}

	urls := make([]string, len(cfg.URLs))
	for i, u := range cfg.URLs {
		urls[i] = strings.TrimSuffix(u, "/")
	}

	return &Client{
		root: root,
		session: &session{
			urls:     urls,
			strategy: strategy,
			retry:    cfg.Retry,
			httpClient: &http.Client{
				Timeout: cfg.Timeout,
				// Redirects are part of the protocol; the session
				// follows them itself.
				CheckRedirect: func(req *http.Request, via []*http.Request) error {
					return http.ErrUseLastResponse
				},
				Transport: &http.Transport{
					DialContext: (&net.Dialer{
						Timeout:   10 * time.Second,
						KeepAlive: 30 * time.Second,
					}).DialContext,
					MaxIdleConns:        100,
					IdleConnTimeout:     90 * time.Second,
					TLSHandshakeTimeout: 10 * time.Second,
				},
			},
		},
	}, nil
}

// Root returns the configured remote root.
func (c *Client) Root() string {
	return c.root
}

func strategyFor(cfg Config) (Strategy, error) {
	switch {
	case cfg.Token != "":
		return NewTokenStrategy(cfg.Token)
	case cfg.Negotiator != nil:
		return NewNegotiatedStrategy(cfg.Negotiator), nil
	default:
		return NewUserStrategy(cfg.User), nil
	}
}

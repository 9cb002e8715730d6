// Package gallerycli is the Go client for the recognition daemon's
// JSON-RPC API.
package gallerycli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/jhttp"
	"github.com/warpdl/recognition/common"
)

const defaultTimeout = 30 * time.Second

// ErrNoSecret is returned when no RPC secret is configured.
var ErrNoSecret = errors.New("no RPC secret set (use --secret or " + common.RPCSecretEnv + ")")

type Client struct {
	base   string
	secret string
	http   *http.Client
	rpc    *jrpc2.Client
}

// NewClient creates a client for the daemon at addr, which may be a
// host:port or an http(s) URL.
func NewClient(addr, secret string) (*Client, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	base := baseURL(addr)
	hc := &http.Client{
		Timeout:   defaultTimeout,
		Transport: &authTransport{secret: secret, next: http.DefaultTransport},
	}
	ch := jhttp.NewChannel(base+common.RPCPath, &jhttp.ChannelOptions{Client: hc})
	return &Client{
		base:   base,
		secret: secret,
		http:   hc,
		rpc:    jrpc2.NewClient(ch, nil),
	}, nil
}

func baseURL(addr string) string {
	addr = strings.TrimRight(addr, "/")
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return addr
	}
	return "http://" + addr
}

// BaseURL returns the daemon's root URL.
func (c *Client) BaseURL() string {
	return c.base
}

// Close releases the underlying RPC client.
func (c *Client) Close() error {
	return c.rpc.Close()
}

type authTransport struct {
	secret string
	next   http.RoundTripper
}

func (t *authTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("Authorization", "Bearer "+t.secret)
	return t.next.RoundTrip(r)
}

func invoke[T any](ctx context.Context, c *Client, method common.Method, params any) (*T, error) {
	var out T
	if err := c.rpc.CallResult(ctx, string(method), params, &out); err != nil {
		return nil, fmt.Errorf("failed to invoke %s: %w", method, err)
	}
	return &out, nil
}

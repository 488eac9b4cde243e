package rsl_client

import (
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/rsl-live/arena-overlay/clients"
)

// Client reads tournament data from the RSL check-in service. All fetches
// are read-only and return either a normalized entity list or a
// *clients.FetchError.
type Client struct {
	*clients.BaseClient
	clock clockwork.Clock
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = BaseURL
	}
	client := &Client{
		BaseClient: clients.NewBaseClient(strings.TrimRight(baseURL, "/")),
		clock:      clockwork.NewRealClock(),
	}
	client.SetTimeout(DefaultTimeout)
	return client
}

// WithClock swaps the clock used for retry waits. Tests use a fake clock.
func (c *Client) WithClock(clock clockwork.Clock) *Client {
	c.clock = clock
	return c
}

// ImageURL resolves a relative image path from an operational record into an
// absolute URL on the service origin. Empty paths resolve to "".
func (c *Client) ImageURL(path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.BaseURL() + path
}

// Package notion appends lead journal rows to a Notion database. Only page
// creation is exposed; journal rows are never read back or edited.
package notion

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Notion allows roughly three requests per second per integration.
const defaultRequestsPerSecond = 3

// Client creates journal pages.
type Client interface {
	CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error)
}

// Option tunes a journal client.
type Option func(*journalClient)

// WithRateLimit caps journal writes at rps. Zero or less disables throttling,
// which is only useful against a fake API in tests.
func WithRateLimit(rps float64) Option {
	return func(c *journalClient) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
	}
}

// WithRetries sets how many times notionapi retries a 429 or 5xx response.
func WithRetries(n int) Option {
	return func(c *journalClient) {
		if n >= 0 {
			c.retries = n
		}
	}
}

type journalClient struct {
	inner   *notionapi.Client
	limiter *rate.Limiter
	retries int
}

// NewClient returns a Client authenticated with an integration token.
func NewClient(token string, opts ...Option) Client {
	c := &journalClient{
		limiter: rate.NewLimiter(defaultRequestsPerSecond, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	var apiOpts []notionapi.ClientOption
	if c.retries > 0 {
		apiOpts = append(apiOpts, notionapi.WithRetry(c.retries))
	}
	c.inner = notionapi.NewClient(notionapi.Token(token), apiOpts...)
	return c
}

func (c *journalClient) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "notion: journal throttle")
		}
	}
	page, err := c.inner.Page.Create(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "notion: create page")
	}
	return page, nil
}

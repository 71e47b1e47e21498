// Package httpcache fetches pages through a content-addressed disk cache.
// A cached entry is authoritative: it is returned without revalidation.
package httpcache

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/mensylisir/xmrecipe/common"
	"github.com/mensylisir/xmrecipe/errdefs"
	"github.com/mensylisir/xmrecipe/logger"
)

// Client is what steps use to reach the network.
type Client interface {
	// FetchHTML returns a decoded page, from the disk cache when present.
	FetchHTML(ctx context.Context, url string) (*Page, error)
	// FetchBytes downloads raw bytes (images). Responses are not cached.
	FetchBytes(ctx context.Context, url string) ([]byte, string, error)
}

// Page is a decoded HTML document.
type Page struct {
	URL         string    `json:"url"`
	HTML        string    `json:"-"`
	ContentType string    `json:"content_type,omitempty"`
	Status      int       `json:"status,omitempty"`
	FromCache   bool      `json:"from_cache"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// Options configures a CachingClient.
type Options struct {
	CacheDir  string
	MaxAge    time.Duration
	Timeout   time.Duration
	UserAgent string
	RateLimit time.Duration
	// Offline turns every cache miss into errdefs.ErrOffline.
	Offline bool
	// CacheErrors records failed fetches so they are not retried.
	CacheErrors bool
	// ForceFetch skips cache reads; successful fetches still refresh the cache.
	ForceFetch bool
	BuildID    string
}

// CachingClient implements Client on top of resty and a DiskCache.
type CachingClient struct {
	opts    Options
	http    *resty.Client
	cache   *DiskCache
	limiter *RateLimiter

	networkCalls atomic.Int64
}

var _ Client = (*CachingClient)(nil)

// NewCachingClient builds a client. Zero timeout and user agent take the
// package defaults.
func NewCachingClient(opts Options) *CachingClient {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = common.DefaultUserAgent
	}
	httpClient := resty.New().
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", opts.UserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml,*/*;q=0.8").
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))

	return &CachingClient{
		opts:    opts,
		http:    httpClient,
		cache:   NewDiskCache(opts.CacheDir, opts.MaxAge),
		limiter: NewRateLimiter(opts.RateLimit),
	}
}

func (c *CachingClient) Cache() *DiskCache { return c.cache }

// Close releases the rate limiter. The client must not be used afterwards.
func (c *CachingClient) Close() error {
	c.limiter.Close()
	return nil
}

// NetworkCalls counts requests that left the process.
func (c *CachingClient) NetworkCalls() int64 { return c.networkCalls.Load() }

// IsCached reports whether a usable entry exists for url.
func (c *CachingClient) IsCached(url string) bool {
	_, ok := c.cache.Get(url)
	return ok
}

// Put injects html for url as if it had been fetched.
func (c *CachingClient) Put(url string, html string) error {
	if _, err := ValidateURL(url); err != nil {
		return err
	}
	return c.cache.Put(url, []byte(html), Meta{
		Status:      http.StatusOK,
		ContentType: "text/html; charset=utf-8",
		BuildID:     c.opts.BuildID,
	})
}

func (c *CachingClient) FetchHTML(ctx context.Context, url string) (*Page, error) {
	if _, err := ValidateURL(url); err != nil {
		return nil, errdefs.NewFetchError(url, err)
	}

	if !c.opts.ForceFetch {
		if entry, ok := c.cache.Get(url); ok {
			if entry.Meta.Error != "" {
				logger.Log.DebugfURL(url, "cache hit (recorded error: %s)", entry.Meta.Error)
				return nil, errdefs.NewFetchError(url, errors.Errorf("cached error: %s", entry.Meta.Error))
			}
			html, err := DecodeHTML(entry.Body, entry.Meta.ContentType)
			if err != nil {
				return nil, errdefs.NewFetchError(url, err)
			}
			logger.Log.DebugfURL(url, "cache hit")
			return &Page{
				URL:         url,
				HTML:        html,
				ContentType: entry.Meta.ContentType,
				Status:      entry.Meta.Status,
				FromCache:   true,
				FetchedAt:   entry.Meta.FetchedAt,
			}, nil
		}
	}

	if c.opts.Offline {
		return nil, errdefs.NewFetchError(url, errdefs.ErrOffline)
	}

	body, contentType, status, err := c.get(ctx, url)
	if err != nil {
		if c.opts.CacheErrors && ctx.Err() == nil {
			if perr := c.cache.PutError(url, err.Error()); perr != nil {
				logger.Log.WarnfURL(url, "failed to record fetch error: %v", perr)
			}
		}
		return nil, errdefs.NewFetchError(url, err)
	}
	html, err := DecodeHTML(body, contentType)
	if err != nil {
		return nil, errdefs.NewFetchError(url, err)
	}

	fetchedAt := time.Now().UTC()
	meta := Meta{Status: status, ContentType: contentType, FetchedAt: fetchedAt, BuildID: c.opts.BuildID}
	if err := c.cache.Put(url, body, meta); err != nil {
		logger.Log.WarnfURL(url, "failed to write cache entry: %v", err)
	}
	return &Page{
		URL:         url,
		HTML:        html,
		ContentType: contentType,
		Status:      status,
		FetchedAt:   fetchedAt,
	}, nil
}

func (c *CachingClient) FetchBytes(ctx context.Context, url string) ([]byte, string, error) {
	if _, err := ValidateURL(url); err != nil {
		return nil, "", errdefs.NewFetchError(url, err)
	}
	if c.opts.Offline {
		return nil, "", errdefs.NewFetchError(url, errdefs.ErrOffline)
	}
	body, contentType, _, err := c.get(ctx, url)
	if err != nil {
		return nil, "", errdefs.NewFetchError(url, err)
	}
	return body, contentType, nil
}

func (c *CachingClient) get(ctx context.Context, url string) ([]byte, string, int, error) {
	parsed, _ := ValidateURL(url)
	if err := c.limiter.Wait(ctx, parsed.Host); err != nil {
		return nil, "", 0, errors.Wrap(err, "rate limiter")
	}

	c.networkCalls.Add(1)
	logger.Log.DebugfURL(url, "network fetch")
	resp, err := c.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, "", 0, errors.Wrap(err, "request failed")
	}
	if resp.IsError() || resp.StatusCode() >= http.StatusMultipleChoices {
		return nil, "", resp.StatusCode(), errors.Errorf("HTTP %d", resp.StatusCode())
	}
	return resp.Body(), resp.Header().Get("Content-Type"), resp.StatusCode(), nil
}

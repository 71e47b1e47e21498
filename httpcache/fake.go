package httpcache

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/mensylisir/xmrecipe/errdefs"
)

// FakeClient serves canned pages. It is safe for concurrent use and is meant
// for tests of code that depends on Client.
type FakeClient struct {
	mu    sync.Mutex
	pages map[string]string
	bytes map[string][]byte
	errs  map[string]error
	delay time.Duration
	calls map[string]int
}

var _ Client = (*FakeClient)(nil)

func NewFakeClient() *FakeClient {
	return &FakeClient{
		pages: map[string]string{},
		bytes: map[string][]byte{},
		errs:  map[string]error{},
		calls: map[string]int{},
	}
}

func (f *FakeClient) WithHTML(url, html string) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[url] = html
	return f
}

func (f *FakeClient) WithBytes(url string, data []byte) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bytes[url] = data
	return f
}

// WithError makes every fetch of url fail with err wrapped as a FetchError.
func (f *FakeClient) WithError(url string, err error) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[url] = err
	return f
}

// WithDelay makes every fetch sleep for d, honouring ctx.
func (f *FakeClient) WithDelay(d time.Duration) *FakeClient {
	f.delay = d
	return f
}

// Calls returns how often url was requested.
func (f *FakeClient) Calls(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

func (f *FakeClient) lookup(ctx context.Context, url string) (string, []byte, error) {
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return "", nil, errdefs.NewFetchError(url, ctx.Err())
		case <-time.After(f.delay):
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[url]++
	if err, ok := f.errs[url]; ok {
		return "", nil, errdefs.NewFetchError(url, err)
	}
	if html, ok := f.pages[url]; ok {
		return html, []byte(html), nil
	}
	if data, ok := f.bytes[url]; ok {
		return "", data, nil
	}
	return "", nil, errdefs.NewFetchError(url, errors.New("HTTP 404"))
}

func (f *FakeClient) FetchHTML(ctx context.Context, url string) (*Page, error) {
	if _, err := ValidateURL(url); err != nil {
		return nil, errdefs.NewFetchError(url, err)
	}
	html, _, err := f.lookup(ctx, url)
	if err != nil {
		return nil, err
	}
	return &Page{URL: url, HTML: html, Status: 200, ContentType: "text/html", FetchedAt: time.Now().UTC()}, nil
}

func (f *FakeClient) FetchBytes(ctx context.Context, url string) ([]byte, string, error) {
	_, data, err := f.lookup(ctx, url)
	if err != nil {
		return nil, "", err
	}
	return data, "application/octet-stream", nil
}

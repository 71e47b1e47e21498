package httpcache

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mensylisir/xmrecipe/errdefs"
)

const recipePage = `<html><head><title>Chili</title></head><body>best chili</body></html>`

const metaLatin1Page = "<html><head><meta charset=\"iso-8859-1\"></head><body>Cr\xe8me br\xfbl\xe9e</body></html>"

func newTestServer(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/recipe", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, recipePage)
	})
	mux.HandleFunc("/latin1", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.Write([]byte("<p>cr\xe8me br\xfbl\xe9e</p>"))
	})
	mux.HandleFunc("/latin1-meta", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(metaLatin1Page))
	})
	mux.HandleFunc("/binary", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte{0x80, 0x81, 0xc3, 0x28, 0xfd})
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		time.Sleep(200 * time.Millisecond)
		fmt.Fprint(w, recipePage)
	})
	mux.HandleFunc("/ua", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprintf(w, "<p>%s</p>", r.UserAgent())
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, mutate func(*Options)) *CachingClient {
	t.Helper()
	opts := Options{CacheDir: t.TempDir(), Timeout: 2 * time.Second, RateLimit: -1, BuildID: "test-build"}
	if mutate != nil {
		mutate(&opts)
	}
	return NewCachingClient(opts)
}

func TestFetchHTML_SecondCallServedFromCache(t *testing.T) {
	var hits atomic.Int64
	srv := newTestServer(t, &hits)
	client := newTestClient(t, nil)
	ctx := context.Background()

	first, err := client.FetchHTML(ctx, srv.URL+"/recipe")
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, recipePage, first.HTML)

	second, err := client.FetchHTML(ctx, srv.URL+"/recipe")
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.HTML, second.HTML, "cached content must be byte-identical")
	assert.Equal(t, int64(1), hits.Load(), "second fetch must not touch the network")
	assert.Equal(t, int64(1), client.NetworkCalls())
}

func TestFetchHTML_ForceFetchBypassesCacheRead(t *testing.T) {
	var hits atomic.Int64
	srv := newTestServer(t, &hits)
	dir := t.TempDir()
	ctx := context.Background()

	warm := newTestClient(t, func(o *Options) { o.CacheDir = dir })
	_, err := warm.FetchHTML(ctx, srv.URL+"/recipe")
	require.NoError(t, err)

	forced := newTestClient(t, func(o *Options) { o.CacheDir = dir; o.ForceFetch = true })
	page, err := forced.FetchHTML(ctx, srv.URL+"/recipe")
	require.NoError(t, err)
	assert.False(t, page.FromCache)
	assert.Equal(t, int64(2), hits.Load())
}

func TestFetchHTML_InvalidURL(t *testing.T) {
	client := newTestClient(t, nil)
	for _, raw := range []string{"not a url", "ftp://example.test/x", "https://", "://bad"} {
		_, err := client.FetchHTML(context.Background(), raw)
		require.Error(t, err, raw)
		assert.ErrorIs(t, err, errdefs.ErrFetchFailed, raw)
		assert.ErrorIs(t, err, errdefs.ErrInvalidURL, raw)
		assert.True(t, errdefs.IsChainFatal(err), raw)
	}
	assert.Zero(t, client.NetworkCalls())
}

func TestFetchHTML_HTTPErrorNotCached(t *testing.T) {
	var hits atomic.Int64
	srv := newTestServer(t, &hits)
	client := newTestClient(t, nil)

	for i := 0; i < 2; i++ {
		_, err := client.FetchHTML(context.Background(), srv.URL+"/missing")
		require.Error(t, err)
		assert.ErrorIs(t, err, errdefs.ErrFetchFailed)
		assert.Contains(t, err.Error(), "HTTP 404")
	}
	assert.Equal(t, int64(2), hits.Load())
	assert.False(t, client.IsCached(srv.URL+"/missing"))
}

func TestFetchHTML_NegativeCaching(t *testing.T) {
	var hits atomic.Int64
	srv := newTestServer(t, &hits)
	client := newTestClient(t, func(o *Options) { o.CacheErrors = true })

	_, err := client.FetchHTML(context.Background(), srv.URL+"/missing")
	require.Error(t, err)
	_, err = client.FetchHTML(context.Background(), srv.URL+"/missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cached error")
	assert.Equal(t, int64(1), hits.Load())

	stats, err := client.Cache().Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Errors)
	assert.Equal(t, 0, stats.Entries)
}

func TestFetchHTML_Encoding(t *testing.T) {
	var hits atomic.Int64
	srv := newTestServer(t, &hits)
	client := newTestClient(t, nil)

	page, err := client.FetchHTML(context.Background(), srv.URL+"/latin1")
	require.NoError(t, err)
	assert.Equal(t, "<p>crème brûlée</p>", page.HTML)

	_, err = client.FetchHTML(context.Background(), srv.URL+"/binary")
	require.Error(t, err)
	assert.ErrorIs(t, err, errdefs.ErrInvalidEncoding)
	assert.ErrorIs(t, err, errdefs.ErrFetchFailed)
	assert.False(t, client.IsCached(srv.URL+"/binary"), "undecodable bodies are not cached")
}

func TestFetchHTML_MetaCharset(t *testing.T) {
	var hits atomic.Int64
	srv := newTestServer(t, &hits)
	client := newTestClient(t, nil)

	page, err := client.FetchHTML(context.Background(), srv.URL+"/latin1-meta")
	require.NoError(t, err)
	assert.Contains(t, page.HTML, "Crème brûlée")

	again, err := client.FetchHTML(context.Background(), srv.URL+"/latin1-meta")
	require.NoError(t, err)
	assert.True(t, again.FromCache)
	assert.Equal(t, page.HTML, again.HTML)
	assert.Equal(t, int64(1), hits.Load())
}

func TestDecodeHTML(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		contentType string
		want        string
		wantErr     bool
	}{
		{name: "utf-8 without declaration", body: "<p>crème</p>", want: "<p>crème</p>"},
		{name: "meta charset", body: metaLatin1Page, contentType: "text/html", want: "Crème brûlée"},
		{name: "http-equiv charset", body: "<meta http-equiv=\"Content-Type\" content=\"text/html; charset=windows-1252\"><p>caf\xe9</p>", want: "café"},
		{name: "header beats meta", body: "<meta charset=\"iso-8859-1\"><p>crème</p>", contentType: "text/html; charset=utf-8", want: "crème"},
		{name: "meta utf-8", body: "<meta charset=\"utf-8\"><p>crème</p>", want: "crème"},
		{name: "undeclared latin-1", body: "<p>cr\xe8me</p>", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeHTML([]byte(tt.body), tt.contentType)
			if tt.wantErr {
				assert.ErrorIs(t, err, errdefs.ErrInvalidEncoding)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, got, tt.want)
		})
	}
}

func TestFetchHTML_Timeout(t *testing.T) {
	var hits atomic.Int64
	srv := newTestServer(t, &hits)
	client := newTestClient(t, func(o *Options) { o.Timeout = 50 * time.Millisecond })

	start := time.Now()
	_, err := client.FetchHTML(context.Background(), srv.URL+"/slow")
	require.Error(t, err)
	assert.ErrorIs(t, err, errdefs.ErrFetchFailed)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestFetchHTML_Offline(t *testing.T) {
	var hits atomic.Int64
	srv := newTestServer(t, &hits)
	dir := t.TempDir()

	online := newTestClient(t, func(o *Options) { o.CacheDir = dir })
	_, err := online.FetchHTML(context.Background(), srv.URL+"/recipe")
	require.NoError(t, err)

	offline := newTestClient(t, func(o *Options) { o.CacheDir = dir; o.Offline = true })
	page, err := offline.FetchHTML(context.Background(), srv.URL+"/recipe")
	require.NoError(t, err)
	assert.True(t, page.FromCache)

	_, err = offline.FetchHTML(context.Background(), srv.URL+"/ua")
	assert.ErrorIs(t, err, errdefs.ErrOffline)
	assert.Equal(t, int64(1), hits.Load())
}

func TestFetchHTML_UserAgent(t *testing.T) {
	var hits atomic.Int64
	srv := newTestServer(t, &hits)
	client := newTestClient(t, func(o *Options) { o.UserAgent = "xmrecipe-test/2.0" })

	page, err := client.FetchHTML(context.Background(), srv.URL+"/ua")
	require.NoError(t, err)
	assert.Equal(t, "<p>xmrecipe-test/2.0</p>", page.HTML)
}

func TestFetchHTML_ConcurrentSameURL(t *testing.T) {
	var hits atomic.Int64
	srv := newTestServer(t, &hits)
	client := newTestClient(t, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			page, err := client.FetchHTML(context.Background(), srv.URL+"/recipe")
			if assert.NoError(t, err) {
				assert.Equal(t, recipePage, page.HTML)
			}
		}()
	}
	wg.Wait()

	entry, ok := client.Cache().Get(srv.URL + "/recipe")
	require.True(t, ok)
	assert.Equal(t, recipePage, string(entry.Body))
	assert.Equal(t, "test-build", entry.Meta.BuildID)
}

func TestPutAndStatsAndClear(t *testing.T) {
	client := newTestClient(t, nil)
	require.NoError(t, client.Put("https://example.test/a", "<p>a</p>"))
	require.NoError(t, client.Put("https://example.test/b", "<p>bb</p>"))
	assert.Error(t, client.Put("nope", "<p/>"))

	page, err := client.FetchHTML(context.Background(), "https://example.test/a")
	require.NoError(t, err)
	assert.True(t, page.FromCache)

	stats, err := client.Cache().Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Entries)
	assert.Equal(t, int64(len("<p>a</p>")+len("<p>bb</p>")), stats.Bytes)

	n, err := client.Cache().Clear()
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.False(t, client.IsCached("https://example.test/a"))
}

func TestFetchBytes(t *testing.T) {
	var hits atomic.Int64
	srv := newTestServer(t, &hits)
	client := newTestClient(t, nil)

	data, ct, err := client.FetchBytes(context.Background(), srv.URL+"/binary")
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", ct)
	assert.Len(t, data, 5)

	_, _, err = client.FetchBytes(context.Background(), srv.URL+"/binary")
	require.NoError(t, err)
	assert.Equal(t, int64(2), hits.Load(), "raw downloads are not cached")
}

package remote

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"exchange-ledger/pkg/logger"

	"github.com/patrickmn/go-cache"
)

// CacheName versions the offline cache. Entries from other versions are never read.
const CacheName = "exchange-mini-cache-v1"

// OfflinePlaceholder is the body served for uncached requests while offline.
const OfflinePlaceholder = "Offline Mode Active"

// Header values set on responses the transport synthesizes.
const (
	CacheHeader  = "X-Offline-Cache"
	CacheHit     = "hit"
	CacheOffline = "placeholder"
)

type cachedResponse struct {
	status int
	header http.Header
	body   []byte
}

// OfflineTransport wraps a RoundTripper. Successful GET responses are kept in
// an in-memory cache; when the network fails, the cached copy is served, and
// requests with no cached copy get a 200 placeholder response.
type OfflineTransport struct {
	next   http.RoundTripper
	cache  *cache.Cache
	logger logger.Logger
}

// NewOfflineTransport creates an OfflineTransport whose entries expire after ttl.
func NewOfflineTransport(next http.RoundTripper, ttl time.Duration) *OfflineTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &OfflineTransport{
		next:   next,
		cache:  cache.New(ttl, 2*ttl),
		logger: logger.GetGlobalLogger().WithComponent("offline-cache"),
	}
}

// RoundTrip implements http.RoundTripper.
func (t *OfflineTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet {
		return t.next.RoundTrip(req)
	}

	key := cacheKey(req)

	resp, err := t.next.RoundTrip(req)
	if err == nil {
		if resp.StatusCode != http.StatusOK {
			return resp, nil
		}
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, readErr
		}
		t.cache.SetDefault(key, &cachedResponse{
			status: resp.StatusCode,
			header: resp.Header.Clone(),
			body:   body,
		})
		resp.Body = io.NopCloser(bytes.NewReader(body))
		return resp, nil
	}

	if req.Context().Err() != nil {
		return nil, err
	}

	if cached, found := t.cache.Get(key); found {
		t.logger.WithError(err).WithField("url", req.URL.String()).Warn("Network unavailable, serving cached response")
		return cached.(*cachedResponse).response(req, CacheHit), nil
	}

	t.logger.WithError(err).WithField("url", req.URL.String()).Warn("Network unavailable, no cached response")
	return (&cachedResponse{
		status: http.StatusOK,
		header: http.Header{"Content-Type": []string{"text/plain; charset=utf-8"}},
		body:   []byte(OfflinePlaceholder),
	}).response(req, CacheOffline), nil
}

// Flush drops every cached response.
func (t *OfflineTransport) Flush() {
	t.cache.Flush()
}

// Cached reports how many responses are held.
func (t *OfflineTransport) Cached() int {
	return t.cache.ItemCount()
}

func (c *cachedResponse) response(req *http.Request, source string) *http.Response {
	header := c.header.Clone()
	if header == nil {
		header = http.Header{}
	}
	header.Set(CacheHeader, source)
	header.Set("Content-Length", strconv.Itoa(len(c.body)))

	return &http.Response{
		Status:        fmt.Sprintf("%d %s", c.status, http.StatusText(c.status)),
		StatusCode:    c.status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(c.body)),
		ContentLength: int64(len(c.body)),
		Request:       req,
	}
}

func cacheKey(req *http.Request) string {
	return CacheName + " " + req.URL.String()
}

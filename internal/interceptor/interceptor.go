// Package interceptor caches a fixed allow-list of large assets in front of an origin.
//
// An Interceptor has three independent entry points. Install seeds the current
// cache store, Activate deletes every other store and Fetch serves allow-listed
// requests cache-first.
package interceptor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/huangsam/assetcache/internal/contract"
	"github.com/huangsam/assetcache/schema"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ErrBatchFailed is returned in InstallResult.Err when any seed asset could not be fetched.
var ErrBatchFailed = errors.New("install batch failed")

// InstallResult reports the outcome of Install. A failed batch does not fail
// the installation of the interceptor itself.
type InstallResult struct {
	// SkipWaiting asks the registration to activate this version immediately.
	SkipWaiting bool

	// Err is the reason the seed batch was not stored, if any.
	Err error
}

// Interceptor is one version of the asset cache.
type Interceptor struct {
	cacheName string
	origin    *url.URL
	allowList []string // fragments as configured
	patterns  []string // fragments used for substring matching
	storage   contract.CacheStorage
	fetcher   Fetcher
	log       logrus.FieldLogger

	writes sync.WaitGroup
}

// New builds an interceptor for cfg. The logger may be nil.
func New(cfg *contract.Config, storage contract.CacheStorage, fetcher Fetcher, logger logrus.FieldLogger) (*Interceptor, error) {
	if cfg == nil || cfg.Origin == nil {
		return nil, errors.New("interceptor requires an origin")
	}
	if storage == nil {
		return nil, errors.New("interceptor requires cache storage")
	}
	if fetcher == nil {
		fetcher = NewHTTPFetcher(cfg.Origin, cfg.FetchTimeout)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	patterns := make([]string, 0, len(cfg.AllowList))
	for _, fragment := range cfg.AllowList {
		// Intercepted URLs are absolute, so a relative "./" prefix can never match
		if p := strings.TrimPrefix(fragment, "./"); p != "" {
			patterns = append(patterns, p)
		}
	}

	return &Interceptor{
		cacheName: cfg.CacheName,
		origin:    cfg.Origin,
		allowList: append([]string(nil), cfg.AllowList...),
		patterns:  patterns,
		storage:   storage,
		fetcher:   fetcher,
		log:       logger.WithField("cache", cfg.CacheName),
	}, nil
}

// CacheName returns the namespace this version serves from.
func (ic *Interceptor) CacheName() string {
	return ic.cacheName
}

// Matches reports whether rawURL contains any allow-list fragment.
func (ic *Interceptor) Matches(rawURL string) bool {
	for _, p := range ic.patterns {
		if strings.Contains(rawURL, p) {
			return true
		}
	}
	return false
}

// SeedURLs resolves the allow-list against the origin.
func (ic *Interceptor) SeedURLs() ([]string, error) {
	urls := make([]string, 0, len(ic.allowList))
	for _, fragment := range ic.allowList {
		ref, err := url.Parse(fragment)
		if err != nil {
			return nil, fmt.Errorf("invalid allow-list entry %q: %w", fragment, err)
		}
		urls = append(urls, ic.origin.ResolveReference(ref).String())
	}
	return urls, nil
}

// Install opens the current store and seeds it with every allow-listed asset
// as one all-or-nothing batch.
func (ic *Interceptor) Install(ctx context.Context) InstallResult {
	ic.log.Info("Asset cache installing...")

	if err := ic.seed(ctx); err != nil {
		ic.log.WithError(err).Error("Failed to cache assets")
		return InstallResult{Err: err}
	}

	ic.log.Info("Assets cached successfully")
	return InstallResult{SkipWaiting: true}
}

func (ic *Interceptor) seed(ctx context.Context) error {
	cache, err := ic.storage.Open(ctx, ic.cacheName)
	if err != nil {
		return err
	}

	urls, err := ic.SeedURLs()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBatchFailed, err)
	}

	ic.log.WithField("assets", len(urls)).Info("Caching assets...")
	entries := make([]contract.CacheEntry, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	for i, rawURL := range urls {
		g.Go(func() error {
			entry, err := ic.fetchSeed(gctx, rawURL)
			if err != nil {
				return err
			}
			entries[i] = entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("%w: %w", ErrBatchFailed, err)
	}

	return cache.PutAll(ctx, entries)
}

func (ic *Interceptor) fetchSeed(ctx context.Context, rawURL string) (contract.CacheEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return contract.CacheEntry{}, err
	}
	resp, err := ic.fetcher.Fetch(ctx, req)
	if err != nil {
		return contract.CacheEntry{}, err
	}
	if !resp.OK() {
		if resp.Body != nil {
			_ = resp.Body.Close()
		}
		return contract.CacheEntry{}, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, rawURL)
	}
	stored, err := resp.toStored()
	if err != nil {
		return contract.CacheEntry{}, err
	}
	return contract.CacheEntry{Key: contract.NewRequestKey(req), Response: stored}, nil
}

// Activate deletes every cache store whose name differs from the current one.
func (ic *Interceptor) Activate(ctx context.Context) error {
	ic.log.Info("Asset cache activating...")

	names, err := ic.storage.Keys(ctx)
	if err != nil {
		return fmt.Errorf("failed to list caches: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		if name == ic.cacheName {
			continue
		}
		g.Go(func() error {
			ic.log.WithField("stale", name).Info("Deleting old cache")
			if _, err := ic.storage.Delete(gctx, name); err != nil {
				return fmt.Errorf("failed to delete cache %s: %w", name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Fetch serves an intercepted request cache-first. Callers check Matches first.
// On a miss, successful same-origin responses are stored in the background
// while the caller streams the body. The caller must read the body to EOF or
// close it.
func (ic *Interceptor) Fetch(ctx context.Context, req *http.Request) (*Response, error) {
	key := contract.NewRequestKey(req)
	log := ic.log.WithField("url", key.URL)

	cache, err := ic.storage.Open(ctx, ic.cacheName)
	if err != nil {
		log.WithError(err).Error("Fetch failed")
		return nil, err
	}

	stored, found, err := cache.Match(ctx, key)
	if err != nil {
		log.WithError(err).Error("Fetch failed")
		return nil, err
	}
	if found {
		log.Info("Serving from cache")
		return fromStored(stored), nil
	}

	resp, err := ic.fetcher.Fetch(ctx, req)
	if err != nil {
		log.WithError(err).Error("Fetch failed")
		return nil, err
	}
	if resp == nil || resp.StatusCode != http.StatusOK || resp.Type != schema.BasicResponse || !key.Cacheable() {
		return resp, nil
	}

	return ic.storeInBackground(cache, key, resp), nil
}

// storeInBackground splits the body of resp: the returned response streams
// it to the caller while a goroutine collects a copy and writes it to cache.
// The write outlives the request that triggered it, and a caller that stops
// reading early does not stop the copy.
func (ic *Interceptor) storeInBackground(cache contract.Cache, key contract.RequestKey, resp *Response) *Response {
	upstream := resp.Body
	if upstream == nil {
		upstream = http.NoBody
	}
	pr, pw := io.Pipe()
	out := *resp
	out.Header = resp.Header.Clone()
	out.Body = pr
	snapshot := *resp

	ic.writes.Add(1)
	go func() {
		defer ic.writes.Done()
		log := ic.log.WithField("url", key.URL)

		var buf bytes.Buffer
		_, err := io.Copy(io.MultiWriter(&buf, &detachedWriter{w: pw}), upstream)
		_ = upstream.Close()
		_ = pw.CloseWithError(err)
		if err != nil {
			log.WithError(err).Warn("Failed to buffer response for cache")
			return
		}

		snapshot.Body = io.NopCloser(&buf)
		stored, err := snapshot.toStored()
		if err != nil {
			log.WithError(err).Warn("Failed to buffer response for cache")
			return
		}
		if err := cache.Put(context.Background(), key, stored); err != nil {
			log.WithError(err).Warn("Failed to cache response")
			return
		}
		log.Debug("Cached response")
	}()
	return &out
}

// detachedWriter forwards to w until the first error, then discards.
type detachedWriter struct {
	w      io.Writer
	failed bool
}

func (d *detachedWriter) Write(p []byte) (int, error) {
	if !d.failed {
		if _, err := d.w.Write(p); err != nil {
			d.failed = true
		}
	}
	return len(p), nil
}

// Wait blocks until every background cache write has finished.
func (ic *Interceptor) Wait() {
	ic.writes.Wait()
}

package plugin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// maxManifestBytes caps a single bundle download.
const maxManifestBytes = 4 << 20

// Loader resolves a descriptor into the manifest its bundle publishes.
type Loader interface {
	Load(ctx context.Context, d Descriptor) (Manifest, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, d Descriptor) (Manifest, error)

// Load implements Loader.
func (f LoaderFunc) Load(ctx context.Context, d Descriptor) (Manifest, error) {
	return f(ctx, d)
}

// HTTPLoader fetches bundles from the descriptor URL.
type HTTPLoader struct {
	client *http.Client
	cache  *gocache.Cache
}

// HTTPLoaderOption customises an HTTPLoader.
type HTTPLoaderOption func(*HTTPLoader)

// WithHTTPClient overrides the HTTP client used for downloads.
func WithHTTPClient(client *http.Client) HTTPLoaderOption {
	return func(l *HTTPLoader) {
		if client != nil {
			l.client = client
		}
	}
}

// WithBundleCache keeps decoded manifests in process for ttl.
func WithBundleCache(ttl time.Duration) HTTPLoaderOption {
	return func(l *HTTPLoader) {
		if ttl > 0 {
			l.cache = gocache.New(ttl, ttl*2)
		}
	}
}

// NewHTTPLoader constructs a loader with a 15 second client timeout unless
// another client is supplied.
func NewHTTPLoader(opts ...HTTPLoaderOption) *HTTPLoader {
	l := &HTTPLoader{client: &http.Client{Timeout: 15 * time.Second}}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load downloads and decodes the bundle at d.URL.
func (l *HTTPLoader) Load(ctx context.Context, d Descriptor) (Manifest, error) {
	if d.URL == "" {
		return Manifest{}, fmt.Errorf("%w: plugin %s has no bundle url", ErrBundleUnavailable, d.Name)
	}
	if l.cache != nil {
		if cached, ok := l.cache.Get(d.URL); ok {
			return cached.(Manifest), nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.URL, nil)
	if err != nil {
		return Manifest{}, fmt.Errorf("%w: %v", ErrBundleUnavailable, err)
	}
	req.Header.Set("Accept", "application/json, application/yaml")

	resp, err := l.client.Do(req)
	if err != nil {
		return Manifest{}, fmt.Errorf("%w: fetch %s: %w", ErrBundleUnavailable, d.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Manifest{}, fmt.Errorf("%w: fetch %s: status %d", ErrBundleUnavailable, d.URL, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxManifestBytes+1))
	if err != nil {
		return Manifest{}, fmt.Errorf("%w: read %s: %v", ErrBundleUnavailable, d.URL, err)
	}
	if len(raw) > maxManifestBytes {
		return Manifest{}, fmt.Errorf("%w: %s exceeds %d bytes", ErrBundleMalformed, d.URL, maxManifestBytes)
	}

	m, err := DecodeManifest(raw)
	if err != nil {
		return Manifest{}, fmt.Errorf("decode %s: %w", d.URL, err)
	}
	if l.cache != nil {
		l.cache.Set(d.URL, m, gocache.DefaultExpiration)
	}
	return m, nil
}

// IsBundleError reports whether err came from fetching or decoding a bundle.
func IsBundleError(err error) bool {
	return errors.Is(err, ErrBundleUnavailable) || errors.Is(err, ErrBundleMalformed)
}

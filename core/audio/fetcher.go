package audio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxAudioBytes caps a single download.
const maxAudioBytes = 200 << 20

// HTTPFetcher downloads audio over HTTP(S).
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates an HTTP fetcher. No timeout is set on the client:
// cancellation comes from the caller's context.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ResponseHeaderTimeout: 30 * time.Second,
			IdleConnTimeout:       90 * time.Second,
		}}
	}
	return &HTTPFetcher{client: client}
}

// Fetch 下载音频文件到内存
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("下载音频失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("下载音频失败，状态码: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes+1))
	if err != nil {
		return nil, fmt.Errorf("读取音频数据失败: %w", err)
	}
	if len(data) > maxAudioBytes {
		return nil, fmt.Errorf("音频文件超过 %d 字节上限", maxAudioBytes)
	}
	return data, nil
}

// ObjectGetter is the slice of the object storage client the fetcher needs.
type ObjectGetter interface {
	GetObjectBytes(ctx context.Context, key string) ([]byte, error)
}

// ObjectFetcher reads audio from object storage by key. Accepts bare keys and
// "minio://<key>" URLs.
type ObjectFetcher struct {
	store ObjectGetter
}

func NewObjectFetcher(store ObjectGetter) *ObjectFetcher {
	return &ObjectFetcher{store: store}
}

func (f *ObjectFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if f.store == nil {
		return nil, fmt.Errorf("object storage not configured")
	}
	key := strings.TrimPrefix(url, ObjectScheme)
	key = strings.TrimPrefix(key, "/")
	if key == "" {
		return nil, fmt.Errorf("empty object key")
	}
	return f.store.GetObjectBytes(ctx, key)
}

// ObjectScheme prefixes audio URLs served from object storage.
const ObjectScheme = "minio://"

// RoutingFetcher picks a fetcher by URL scheme.
type RoutingFetcher struct {
	HTTP   Fetcher
	Object Fetcher
}

func (r *RoutingFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	switch {
	case strings.HasPrefix(url, ObjectScheme):
		if r.Object == nil {
			return nil, fmt.Errorf("no object fetcher for %s", url)
		}
		return r.Object.Fetch(ctx, url)
	case strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "https://"):
		if r.HTTP == nil {
			return nil, fmt.Errorf("no http fetcher for %s", url)
		}
		return r.HTTP.Fetch(ctx, url)
	default:
		return nil, fmt.Errorf("unsupported audio url %q", url)
	}
}

// Package maps renders activity routes as static map images.
package maps

import (
	"context"
	"fmt"
	"net/url"
)

const (
	StaticMapURL = "https://maps.googleapis.com/maps/api/staticmap"
	DefaultSize  = "640x640"
)

// Downloader fetches a URL to a local file
type Downloader interface {
	Download(ctx context.Context, rawURL string) (string, error)
}

// Renderer builds Google Static Maps images of encoded polylines
type Renderer struct {
	apiKey  string
	baseURL string
	size    string
	fetch   Downloader
}

func NewRenderer(apiKey string, fetch Downloader) *Renderer {
	return &Renderer{apiKey: apiKey, baseURL: StaticMapURL, size: DefaultSize, fetch: fetch}
}

// URL returns the static map URL drawing polyline as a blue path
func (r *Renderer) URL(polyline string) string {
	q := url.Values{}
	q.Set("size", r.size)
	q.Set("path", "weight:6|color:blue|enc:"+polyline)
	q.Set("key", r.apiKey)
	return r.baseURL + "?" + q.Encode()
}

// Render downloads the route image. Without an API key or a polyline there
// is nothing to render, and it returns "" with no error.
func (r *Renderer) Render(ctx context.Context, polyline string) (string, error) {
	if r.apiKey == "" || polyline == "" {
		return "", nil
	}
	p, err := r.fetch.Download(ctx, r.URL(polyline))
	if err != nil {
		return "", fmt.Errorf("rendering route map: %w", err)
	}
	return p, nil
}

// Package metadata fetches OpenGraph page metadata for newly shortened URLs.
package metadata

import (
	"context"
	"net/http"
	"time"

	opengraph "github.com/otiai10/opengraph/v2"
)

type PageMeta struct {
	Title       string
	SiteName    string
	Description string
	Image       string
}

type Fetcher struct {
	client  *http.Client
	timeout time.Duration
}

func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

// Fetch loads the target page and extracts its OpenGraph fields. Errors are
// expected (unreachable hosts, non-HTML targets) and the caller treats them
// as a warning, never a failure.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (PageMeta, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	og, err := opengraph.Fetch(pageURL, opengraph.Intent{
		Context:    ctx,
		HTTPClient: f.client,
	})
	if err != nil {
		return PageMeta{}, err
	}

	meta := PageMeta{
		Title:       og.Title,
		SiteName:    og.SiteName,
		Description: og.Description,
	}
	if len(og.Image) > 0 {
		meta.Image = og.Image[0].URL
	}
	return meta, nil
}

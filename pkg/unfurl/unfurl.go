package unfurl

import (
	"context"
	"fmt"
	"net/url"

	"github.com/flashmemo/flashmemo/pkg/linkurl"
	"github.com/flashmemo/flashmemo/pkg/storage"
)

// Unfurler produces metadata for a link.
type Unfurler interface {
	Unfurl(ctx context.Context, link storage.Link) (storage.Metadata, error)
}

// Unfurl fetches metadata for link. YouTube links go through the oEmbed
// endpoint first and fall back to the HTML page.
func (f *Fetcher) Unfurl(ctx context.Context, link storage.Link) (storage.Metadata, error) {
	if linkurl.Classify(link.URL) == linkurl.YouTube {
		if m, err := f.unfurlOEmbed(ctx, link.URL); err == nil && m.Title != "" {
			return m, nil
		}
	}

	page, err := f.Fetch(ctx, link.URL)
	if err != nil {
		return storage.Metadata{}, err
	}
	return Extract(page.Body, page.URL)
}

func (f *Fetcher) unfurlOEmbed(ctx context.Context, videoURL string) (storage.Metadata, error) {
	endpoint, err := url.Parse(f.oembed)
	if err != nil {
		return storage.Metadata{}, fmt.Errorf("invalid oembed endpoint: %w", err)
	}
	q := endpoint.Query()
	q.Set("format", "json")
	q.Set("url", videoURL)
	endpoint.RawQuery = q.Encode()

	page, err := f.Fetch(ctx, endpoint.String())
	if err != nil {
		return storage.Metadata{}, err
	}
	return ExtractOEmbed(page.Body), nil
}

package engine

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/GriffinCanCode/SessionRelay/backend/internal/providers/http/client"
)

// maxMediaSize caps one encrypted download.
const maxMediaSize = 64 << 20

// Fetcher downloads encrypted media from the chat network's CDN.
type Fetcher struct {
	http  *client.Client
	limit int
}

// NewFetcher creates a media fetcher.
func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{
		http: client.New(client.Options{
			Name:       "media",
			Timeout:    timeout,
			RetryCount: 2,
			RateLimit:  20,
		}),
		limit: maxMediaSize,
	}
}

// Fetch returns the raw body at url. Bodies over the size limit fail
// with resty.ErrResponseBodyTooLarge while being read.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	resp, err := f.http.Execute(ctx, func(req *resty.Request) (*resty.Response, error) {
		return req.SetResponseBodyLimit(f.limit).Get(url)
	})
	if err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

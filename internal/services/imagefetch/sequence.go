package imagefetch

import (
	"context"
	"iter"

	"github.com/ternarybob/roomathon/internal/interfaces"
	"github.com/ternarybob/roomathon/internal/models"
)

// Sequence yields one result per URL, in list order. Each download starts
// only when the consumer asks for the next value, so images are fetched one
// at a time and a consumer that stops early triggers no further requests.
// Once ctx is done the remaining URLs yield ctx.Err() without a request.
func Sequence(ctx context.Context, src interfaces.ImageFetcher, urls []string) iter.Seq[models.ImageResult] {
	return func(yield func(models.ImageResult) bool) {
		for _, url := range urls {
			var result models.ImageResult
			if err := ctx.Err(); err != nil {
				result = models.ImageResult{URL: url, Err: err}
			} else {
				data, err := src.Fetch(ctx, url)
				result = models.ImageResult{URL: url, Data: data, Err: err}
			}
			if !yield(result) {
				return
			}
		}
	}
}

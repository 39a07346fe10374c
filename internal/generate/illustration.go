package generate

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"picbook/internal/provider"
	"picbook/pkg/models"
)

// ProgressFunc is called once per page as its request settles, from the
// request's own goroutine.
type ProgressFunc func(pageIndex int, ok bool)

// Illustrator runs one image request per page, all concurrently, and
// merges results back by original index so output order always equals
// input order regardless of completion order.
type Illustrator struct {
	Image          provider.ImageClient
	PerPageTimeout time.Duration
	Concurrency    int
	RequestEvery   time.Duration // request pacing toward the provider
}

func NewIllustrator(image provider.ImageClient, perPageTimeout time.Duration) *Illustrator {
	return &Illustrator{
		Image:          image,
		PerPageTimeout: perPageTimeout,
		Concurrency:    4,
		RequestEvery:   500 * time.Millisecond,
	}
}

// Generate illustrates every page with the shared config and returns the
// merged page list plus the indexes of pages whose request failed. A
// failed page keeps whatever ImageURL it had before; partial success is a
// normal outcome, not an error. The call returns only once every per-page
// request has settled.
func (il *Illustrator) Generate(ctx context.Context, pages []models.Page, cfg models.IllustrationConfig, progress ProgressFunc) ([]models.Page, []int) {
	out := make([]models.Page, len(pages))
	copy(out, pages)
	if len(pages) == 0 {
		return out, nil
	}

	// Burst 2 lets the first requests start together, the rest pace out.
	limiter := rate.NewLimiter(rate.Every(il.RequestEvery), 2)

	var mu sync.Mutex
	var failed []int

	eg := &errgroup.Group{}
	if il.Concurrency > 0 {
		eg.SetLimit(il.Concurrency)
	}

	log.Printf("[illustrate] starting batch of %d pages, style=%s ratio=%s", len(pages), cfg.StyleID, cfg.AspectRatio)

	for i := range pages {
		i := i
		page := pages[i]

		eg.Go(func() error {
			fail := func(err error) error {
				log.Printf("[illustrate] page %d failed: %v", page.PageNumber, err)
				mu.Lock()
				failed = append(failed, i)
				mu.Unlock()
				if progress != nil {
					progress(i, false)
				}
				// per-page failure never aborts the batch
				return nil
			}

			if err := limiter.Wait(ctx); err != nil {
				return fail(err)
			}

			pageCtx := ctx
			if il.PerPageTimeout > 0 {
				var cancel context.CancelFunc
				pageCtx, cancel = context.WithTimeout(ctx, il.PerPageTimeout)
				defer cancel()
			}

			url, err := il.Image.Generate(pageCtx, provider.ImageRequest{
				Prompt:   illustrationPrompt(page),
				Style:    cfg.Style,
				Substyle: cfg.Substyle,
				Size:     cfg.Size,
			})
			if err != nil {
				return fail(err)
			}

			// write at the page's original index, never append-on-completion
			out[i].ImageURL = url
			if progress != nil {
				progress(i, true)
			}
			return nil
		})
	}

	_ = eg.Wait()
	sort.Ints(failed)

	log.Printf("[illustrate] batch settled: %d ok, %d failed", len(pages)-len(failed), len(failed))
	return out, failed
}

// illustrationPrompt prefers the English prompt when present since image
// models respond better to it, falling back to the primary one.
func illustrationPrompt(p models.Page) string {
	if p.IllustrationPromptTranslated != "" {
		return p.IllustrationPromptTranslated
	}
	return p.IllustrationPrompt
}

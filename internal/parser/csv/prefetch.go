package csv

import (
	"context"
	"io"

	"golang.org/x/sync/errgroup"

	"stopprep/internal/transformer"
)

// BatchSource is the part of Reader that Prefetch needs.
type BatchSource interface {
	Next(ctx context.Context) (*transformer.SourceBatch, error)
}

// Prefetch drives src on its own goroutine, keeping up to window batches
// read ahead of fn. Batches reach fn in source order. window <= 0 reads
// synchronously. The first error from either side stops both.
func Prefetch(ctx context.Context, src BatchSource, window int, fn func(*transformer.SourceBatch) error) error {
	if window <= 0 {
		for {
			b, err := src.Next(ctx)
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			if err := fn(b); err != nil {
				return err
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	ch := make(chan *transformer.SourceBatch, window)
	g.Go(func() error {
		defer close(ch)
		for {
			b, err := src.Next(gctx)
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			select {
			case ch <- b:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})
	g.Go(func() error {
		for b := range ch {
			if err := fn(b); err != nil {
				return err
			}
		}
		return nil
	})
	return g.Wait()
}

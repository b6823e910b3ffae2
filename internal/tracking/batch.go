package tracking

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// IssueBatch requests count tracking ids, fanning out at most batchSize
// concurrent calls at a time. Order within the result is stable so callers can
// zip ids against their submitted items. The caller must verify the returned
// count matches its item count before persisting anything.
func IssueBatch(ctx context.Context, issuer Issuer, count, batchSize int) ([]string, error) {
	if count <= 0 {
		return nil, nil
	}
	if batchSize <= 0 {
		batchSize = 1
	}

	ids := make([]string, count)
	for start := 0; start < count; start += batchSize {
		end := start + batchSize
		if end > count {
			end = count
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			g.Go(func() error {
				id, err := issuer.Next(gctx)
				if err != nil {
					return fmt.Errorf("issue tracking id %d of %d: %w", i+1, count, err)
				}
				ids[i] = id
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

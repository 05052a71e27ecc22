package loader

import (
	"cmp"
	"slices"

	"golang.org/x/sync/errgroup"
)

// chunkResult pairs a validated chunk's rows with its position in the TSV,
// so results collected from a worker pool can be restored to file order
// regardless of completion order.
type chunkResult struct {
	order int
	rows []validatedRow
}

// validateChunksConcurrently runs validate across chunks with one worker per
// chunk, bounded to concurrency workers at a time, and returns the results
// back in chunk order.
func validateChunksConcurrently(chunks [][]chunkRow, concurrency int, validate func([]chunkRow) ([]validatedRow, error)) ([][]validatedRow, error) {
	eg := errgroup.Group{}
	if concurrency > 0 {
		eg.SetLimit(concurrency)
	}

	results := make([]chunkResult, len(chunks))
	for i := range chunks {
		order := i
		chunk := chunks[i]
		eg.Go(func() error {
			rows, err := validate(chunk)
			if err != nil {
				return err
			}
			results[order] = chunkResult{order: order, rows: rows}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b chunkResult) int {
		return cmp.Compare(a.order, b.order)
	})

	out := make([][]validatedRow, len(results))
	for i, r := range results {
		out[i] = r.rows
	}
	return out, nil
}

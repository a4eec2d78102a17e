// Package segment fans work out over DynamoDB parallel scan segments.
package segment

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Max is the largest segment count accepted by Clamp.
const Max = 64

// Clamp bounds a configured segment count to [1, Max].
func Clamp(n int) int {
	if n < 1 {
		return 1
	}
	if n > Max {
		return Max
	}
	return n
}

// Collect runs fn once per segment concurrently and concatenates the results
// in segment order, so the output does not depend on goroutine scheduling.
//
// With limit > 0, remaining segments are canceled as soon as the completed
// leading segments hold at least limit items, and the output is truncated to
// limit.
func Collect[T any](ctx context.Context, total, limit int, fn func(ctx context.Context, segment int) ([]T, error)) ([]T, error) {
	total = Clamp(total)

	// Fast path for a single segment (default)
	if total == 1 {
		items, err := fn(ctx, 0)
		if err != nil {
			return nil, err
		}
		return truncate(items, limit), nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		satisfied bool
	)
	results := make([][]T, total)
	done := make([]bool, total)
	errs := make(chan error, total)

	for seg := 0; seg < total; seg++ {
		wg.Add(1)
		go func(seg int) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				errs <- fmt.Errorf("segment %02d: %w", seg, ctx.Err())
				return
			default:
			}

			items, err := fn(ctx, seg)
			if err != nil {
				errs <- fmt.Errorf("segment %02d: %w", seg, err)
				return
			}

			mu.Lock()
			defer mu.Unlock()
			results[seg] = items
			done[seg] = true
			if limit > 0 && !satisfied && prefixLen(results, done) >= limit {
				satisfied = true
				cancel()
			}
		}(seg)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		if satisfied && errors.Is(err, context.Canceled) {
			continue
		}
		return nil, err
	}

	var out []T
	for _, items := range results {
		out = append(out, items...)
	}
	return truncate(out, limit), nil
}

// Sum runs fn once per segment concurrently and adds up the results.
func Sum(ctx context.Context, total int, fn func(ctx context.Context, segment int) (int64, error)) (int64, error) {
	counts, err := Collect(ctx, total, 0, func(ctx context.Context, seg int) ([]int64, error) {
		n, err := fn(ctx, seg)
		if err != nil {
			return nil, err
		}
		return []int64{n}, nil
	})
	if err != nil {
		return 0, err
	}

	var sum int64
	for _, n := range counts {
		sum += n
	}
	return sum, nil
}

// prefixLen counts the items held by the leading run of completed segments.
func prefixLen[T any](results [][]T, done []bool) int {
	n := 0
	for i := range results {
		if !done[i] {
			break
		}
		n += len(results[i])
	}
	return n
}

func truncate[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

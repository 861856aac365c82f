package facts

import "context"

// Fetcher performs exactly one external fetch for one validated query.
// constants is the pattern's coerced constant map. Implementations may be
// slow and may fail; callers never retry. Must be safe for concurrent use.
type Fetcher interface {
	Fetch(ctx context.Context, constants map[string]any) (Record, error)
}

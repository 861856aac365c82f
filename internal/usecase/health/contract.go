package health

import "context"

// CachePinger checks record cache availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}

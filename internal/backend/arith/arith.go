// Package arith is the addition fact backend: z is bound to x + y. It is a
// backend in contract only; there is no network call.
package arith

import (
	"context"

	"github.com/factgrid/factserve/internal/facts"
)

// DomainSchema describes the addition predicate: numeric constants x and y,
// z as the single bindable property.
func DomainSchema() facts.Schema {
	return facts.MustSchema(
		[]facts.ConstantSpec{
			facts.RequiredConstant("x", facts.KindNumber),
			facts.RequiredConstant("y", facts.KindNumber),
		},
		[]string{"z"},
	)
}

// Backend computes sums locally.
type Backend struct{}

var _ facts.Fetcher = (*Backend)(nil)

// New creates an addition backend.
func New() *Backend { return &Backend{} }

// Fetch implements facts.Fetcher.
func (b *Backend) Fetch(_ context.Context, constants map[string]any) (facts.Record, error) {
	x, okX := constants["x"].(float64)
	y, okY := constants["y"].(float64)
	if !okX || !okY {
		return nil, &facts.BackendError{Detail: "addition needs numeric x and y constants"}
	}
	return facts.Record{"z": facts.Number(x + y)}, nil
}

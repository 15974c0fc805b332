package interfaces

import (
	"context"

	"invest-signals/internal/types"
)

// ComponentScorer scores one analysis dimension from a point-in-time context.
type ComponentScorer interface {
	Name() string
	Score(ctx context.Context, data *types.AsOfContext) (types.ComponentResult, error)
}

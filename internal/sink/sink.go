// Package sink persists generated data. The core hands each batch to a
// Sink exactly once, in emission order; a write error is fatal to the run
// and nothing is retried or rolled back here.
package sink

import (
	"context"

	"github.com/boxylabs/fraudgen/internal/ledger"
	"github.com/boxylabs/fraudgen/internal/population"
)

// Sink consumes a finished population and the transaction batch stream.
type Sink interface {
	// WritePopulation persists the static reference tables. Called once,
	// before any batch.
	WritePopulation(ctx context.Context, pop *population.Population) error
	// WriteBatch persists one batch of finalized transactions.
	WriteBatch(ctx context.Context, batch ledger.Batch) error
	// Close flushes and releases resources.
	Close() error
}

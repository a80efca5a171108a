package sink

import (
	"context"

	"github.com/boxylabs/fraudgen/internal/ledger"
	"github.com/boxylabs/fraudgen/internal/population"
)

// Memory retains everything written to it. Test double.
type Memory struct {
	Population *population.Population
	Batches    []ledger.Batch
}

// NewMemory creates an empty in-memory sink.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) WritePopulation(_ context.Context, pop *population.Population) error {
	m.Population = pop
	return nil
}

func (m *Memory) WriteBatch(_ context.Context, batch ledger.Batch) error {
	cp := make(ledger.Batch, len(batch))
	copy(cp, batch)
	m.Batches = append(m.Batches, cp)
	return nil
}

func (m *Memory) Close() error { return nil }

// Transactions returns all written transactions in emission order.
func (m *Memory) Transactions() ledger.Batch {
	var out ledger.Batch
	for _, b := range m.Batches {
		out = append(out, b...)
	}
	return out
}

package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/boxylabs/fraudgen/internal/ledger"
	"github.com/boxylabs/fraudgen/internal/metrics"
	"github.com/boxylabs/fraudgen/internal/population"
)

// JSONL writes one newline-delimited JSON file per table into a directory.
// Used for runs without a database.
type JSONL struct {
	dir     string
	txFile  *os.File
	txBuf   *bufio.Writer
	encoder *json.Encoder
}

// NewJSONL creates the output directory and opens transactions.jsonl.
func NewJSONL(dir string) (*JSONL, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("sink: create output dir: %w", err)
	}
	f, err := os.Create(filepath.Join(dir, "transactions.jsonl"))
	if err != nil {
		return nil, fmt.Errorf("sink: create transactions file: %w", err)
	}
	buf := bufio.NewWriterSize(f, 1<<20)
	return &JSONL{dir: dir, txFile: f, txBuf: buf, encoder: json.NewEncoder(buf)}, nil
}

func (s *JSONL) WritePopulation(_ context.Context, pop *population.Population) error {
	if err := writeLines(filepath.Join(s.dir, "users.jsonl"), pop.Users); err != nil {
		return err
	}
	if err := writeLines(filepath.Join(s.dir, "devices.jsonl"), pop.Devices); err != nil {
		return err
	}
	if err := writeLines(filepath.Join(s.dir, "kyc_submissions.jsonl"), pop.KYC); err != nil {
		return err
	}
	if err := writeLines(filepath.Join(s.dir, "accounts.jsonl"), pop.Accounts); err != nil {
		return err
	}
	return writeLines(filepath.Join(s.dir, "device_ip_history.jsonl"), pop.IPHistory)
}

func (s *JSONL) WriteBatch(_ context.Context, batch ledger.Batch) error {
	for i := range batch {
		if err := s.encoder.Encode(&batch[i]); err != nil {
			return fmt.Errorf("sink: encode transaction %d: %w", batch[i].ID, err)
		}
	}
	metrics.RowsWrittenTotal.WithLabelValues("transactions").Add(float64(len(batch)))
	return nil
}

func (s *JSONL) Close() error {
	if err := s.txBuf.Flush(); err != nil {
		_ = s.txFile.Close()
		return fmt.Errorf("sink: flush transactions file: %w", err)
	}
	return s.txFile.Close()
}

func writeLines[T any](path string, rows []T) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("sink: create %s: %w", filepath.Base(path), err)
	}
	buf := bufio.NewWriter(f)
	enc := json.NewEncoder(buf)
	for i := range rows {
		if err := enc.Encode(&rows[i]); err != nil {
			_ = f.Close()
			return fmt.Errorf("sink: encode %s row %d: %w", filepath.Base(path), i, err)
		}
	}
	if err := buf.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sink: flush %s: %w", filepath.Base(path), err)
	}
	metrics.RowsWrittenTotal.WithLabelValues(tableName(path)).Add(float64(len(rows)))
	return f.Close()
}

func tableName(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}

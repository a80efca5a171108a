package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boxylabs/fraudgen/internal/ledger"
	"github.com/boxylabs/fraudgen/internal/population"
	"github.com/boxylabs/fraudgen/internal/sample"
)

func testPopulation(t *testing.T) *population.Population {
	t.Helper()
	src := sample.New(7)
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 6, 30, 0, 0, 0, 0, time.UTC)
	b, err := population.NewBuilder(5, start, end, src)
	require.NoError(t, err)
	return b.Build()
}

func testBatch() ledger.Batch {
	ts := time.Date(2023, 2, 1, 10, 30, 0, 0, time.UTC)
	return ledger.Batch{
		{
			ID:            1,
			SourceAccount: 100,
			Type:          ledger.TypeDeposit,
			Amount:        250.75,
			Currency:      "EUR",
			Channel:       "mobile",
			Status:        ledger.StatusCompleted,
			DeviceIP:      "10.0.0.1",
			Lat:           52.52,
			Long:          13.40,
			Country:       "DE",
			AuthResult:    true,
			CreatedAt:     ts,
			ProcessedAt:   ts.Add(30 * time.Second),
		},
		{
			ID:                 2,
			SourceAccount:      100,
			BeneficiaryAccount: 200,
			Type:               ledger.TypeTransfer,
			Amount:             9500.00,
			Currency:           "EUR",
			Channel:            "web",
			Status:             ledger.StatusBlocked,
			DeviceIP:           "10.0.0.1",
			Lat:                52.52,
			Long:               13.40,
			Country:            "DE",
			AuthResult:         false,
			CreatedAt:          ts.Add(time.Minute),
			ProcessedAt:        ts.Add(90 * time.Second),
			IsFraud:            true,
			Reason:             "Structuring below reporting threshold",
		},
	}
}

func TestJSONLWritesAllTables(t *testing.T) {
	dir := t.TempDir()
	s, err := NewJSONL(dir)
	require.NoError(t, err)

	pop := testPopulation(t)
	require.NoError(t, s.WritePopulation(context.Background(), pop))
	require.NoError(t, s.WriteBatch(context.Background(), testBatch()))
	require.NoError(t, s.Close())

	assert.Equal(t, len(pop.Users), countLines(t, filepath.Join(dir, "users.jsonl")))
	assert.Equal(t, len(pop.Devices), countLines(t, filepath.Join(dir, "devices.jsonl")))
	assert.Equal(t, len(pop.KYC), countLines(t, filepath.Join(dir, "kyc_submissions.jsonl")))
	assert.Equal(t, len(pop.Accounts), countLines(t, filepath.Join(dir, "accounts.jsonl")))
	assert.Equal(t, len(pop.IPHistory), countLines(t, filepath.Join(dir, "device_ip_history.jsonl")))
	assert.Equal(t, 2, countLines(t, filepath.Join(dir, "transactions.jsonl")))
}

func TestJSONLTransactionRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := NewJSONL(dir)
	require.NoError(t, err)

	batch := testBatch()
	require.NoError(t, s.WriteBatch(context.Background(), batch))
	require.NoError(t, s.Close())

	f, err := os.Open(filepath.Join(dir, "transactions.jsonl"))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	var got []ledger.Transaction
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var tx ledger.Transaction
		require.NoError(t, json.Unmarshal(sc.Bytes(), &tx))
		got = append(got, tx)
	}
	require.NoError(t, sc.Err())
	require.Len(t, got, len(batch))

	assert.Equal(t, batch[0].ID, got[0].ID)
	assert.Equal(t, batch[0].Amount, got[0].Amount)
	assert.False(t, got[0].IsFraud)
	assert.Empty(t, got[0].Reason)

	assert.Equal(t, batch[1].BeneficiaryAccount, got[1].BeneficiaryAccount)
	assert.True(t, got[1].IsFraud)
	assert.Equal(t, batch[1].Reason, got[1].Reason)
	assert.Equal(t, ledger.StatusBlocked, got[1].Status)
}

func TestJSONLFieldNames(t *testing.T) {
	dir := t.TempDir()
	s, err := NewJSONL(dir)
	require.NoError(t, err)

	require.NoError(t, s.WriteBatch(context.Background(), testBatch()[:1]))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(filepath.Join(dir, "transactions.jsonl"))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"trx_id", "source_account", "device_ip", "auth_result", "is_fraud"} {
		assert.Contains(t, raw, key)
	}
	// clean transaction omits the optional fields
	assert.NotContains(t, raw, "reason")
	assert.NotContains(t, raw, "beneficiary_account")
}

func TestMemorySink(t *testing.T) {
	m := NewMemory()
	pop := testPopulation(t)

	require.NoError(t, m.WritePopulation(context.Background(), pop))
	require.NoError(t, m.WriteBatch(context.Background(), testBatch()))
	require.NoError(t, m.WriteBatch(context.Background(), testBatch()[:1]))
	require.NoError(t, m.Close())

	assert.Same(t, pop, m.Population)
	assert.Len(t, m.Batches, 2)
	assert.Len(t, m.Transactions(), 3)
}

func countLines(t *testing.T, path string) int {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	n := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		n++
	}
	require.NoError(t, sc.Err())
	return n
}

package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boxylabs/fraudgen/internal/ledger"
	"github.com/boxylabs/fraudgen/internal/population"
	"github.com/boxylabs/fraudgen/internal/sample"
)

var evalTime = time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)

// benignCtx returns a context that fires no rule as-is.
func benignCtx() *EvalContext {
	return &EvalContext{
		Draft: &ledger.Transaction{
			SourceAccount: 1,
			Type:          ledger.TypeTransfer,
			Amount:        50,
			Currency:      population.HomeCurrency,
			Country:       "DE",
			DeviceIP:      "10.1.2.3",
			CreatedAt:     evalTime,
		},
		Profile: &population.Profile{UserID: 1},
		KYC:     &population.KYCSubmission{UserID: 1, Status: population.KYCApproved, SelfiePassed: true},
		Account: population.Account{ID: 1, UserID: 1, OpenedAt: evalTime.AddDate(0, -1, 0)},
		Now:     evalTime,
	}
}

func history(n int, amount float64, txType ledger.TxType, step time.Duration) []ledger.Transaction {
	out := make([]ledger.Transaction, n)
	for i := range out {
		out[i] = ledger.Transaction{
			SourceAccount: 1,
			Type:          txType,
			Amount:        amount,
			CreatedAt:     evalTime.Add(-time.Duration(n-i) * step),
		}
	}
	return out
}

func TestBenignTransactionPasses(t *testing.T) {
	e := NewEngine(sample.New(1))
	ec := benignCtx()

	a := e.Evaluate(ec)
	assert.False(t, a.IsFraud)
	assert.Empty(t, a.Reason)
	assert.Equal(t, ledger.StatusCompleted, ec.Draft.Status)
	assert.True(t, ec.Draft.AuthResult)
}

func TestVelocityRule_SixthInHourFires(t *testing.T) {
	e := NewEngine(sample.New(1))

	ec := benignCtx()
	ec.Recent = history(4, 50, ledger.TypeTransfer, time.Minute)
	ec.Window = ec.Recent
	a := e.Evaluate(ec)
	assert.False(t, a.IsFraud, "the 5th in-hour transaction must not fire")

	// 5 prior entries: the draft is the account's 6th movement in the hour.
	ec = benignCtx()
	ec.Recent = history(5, 50, ledger.TypeTransfer, time.Minute)
	ec.Window = ec.Recent
	a = e.Evaluate(ec)
	require.True(t, a.IsFraud)
	assert.Equal(t, ReasonVelocity, a.Reason)
	assert.True(t, ec.Draft.IsFraud)
}

func TestAmountSpikeRule_ZScoreBoundary(t *testing.T) {
	// 5×900, 5×1100, 1×1000: mean 1000, population stddev ≈ 95.346.
	// With the +1 floor the rule fires above 1000 + 3·96.346 ≈ 1289.04.
	hist := make([]ledger.Transaction, 0, 11)
	for i, amt := range []float64{900, 1100, 900, 1100, 900, 1100, 900, 1100, 900, 1100, 1000} {
		hist = append(hist, ledger.Transaction{
			Amount:    amt,
			CreatedAt: evalTime.Add(-time.Duration(20-i) * time.Hour),
		})
	}

	e := NewEngine(sample.New(1))
	ec := benignCtx()
	ec.Window = hist
	ec.Draft.Amount = 1289
	a := e.Evaluate(ec)
	assert.False(t, a.IsFraud, "z just under 3 must not fire")

	e = NewEngine(sample.New(1))
	ec = benignCtx()
	ec.Window = hist
	ec.Draft.Amount = 1290
	a = e.Evaluate(ec)
	require.True(t, a.IsFraud)
	assert.Equal(t, ReasonAmountSpike, a.Reason)
}

func TestAmountSpikeRule_FlatHistoryNeverDividesByZero(t *testing.T) {
	e := NewEngine(sample.New(1))
	ec := benignCtx()
	ec.Window = history(11, 1000, ledger.TypeTransfer, time.Hour)

	ec.Draft.Amount = 1002 // z = 2 with the floored stddev of 1
	a := e.Evaluate(ec)
	assert.False(t, a.IsFraud)

	e = NewEngine(sample.New(1))
	ec = benignCtx()
	ec.Window = history(11, 1000, ledger.TypeTransfer, time.Hour)
	ec.Draft.Amount = 1004 // z = 4
	a = e.Evaluate(ec)
	assert.True(t, a.IsFraud)
}

func TestAmountSpikeRule_NeedsMoreThanTenPriorAmounts(t *testing.T) {
	e := NewEngine(sample.New(1))
	ec := benignCtx()
	ec.Window = history(10, 1000, ledger.TypeTransfer, time.Hour)
	ec.Draft.Amount = 1e6

	a := e.Evaluate(ec)
	assert.False(t, a.IsFraud, "10 prior amounts are not enough history")
}

func TestBlacklistedIPRule(t *testing.T) {
	e := NewEngine(sample.New(1))
	ec := benignCtx()
	ec.Blacklisted = true

	a := e.Evaluate(ec)
	require.True(t, a.IsFraud)
	assert.Equal(t, ReasonBlacklistedIP, a.Reason)
}

func TestFraudsterRule_FiresAtCoinFlipRateAndInflatesAmount(t *testing.T) {
	e := NewEngine(sample.New(42))

	const n = 2000
	fired := 0
	for i := 0; i < n; i++ {
		ec := benignCtx()
		ec.Profile.IsFraudster = true
		a := e.Evaluate(ec)
		if a.IsFraud {
			require.Equal(t, ReasonFraudster, a.Reason)
			fired++
			assert.GreaterOrEqual(t, ec.Draft.Amount, 100.0, "inflated by at least 2x")
			assert.LessOrEqual(t, ec.Draft.Amount, 250.0, "inflated by at most 5x")
		} else {
			assert.Equal(t, 50.0, ec.Draft.Amount, "amount untouched when the flip misses")
		}
	}

	rate := float64(fired) / n
	assert.InDelta(t, 0.40, rate, 0.05, "coin flip should fire near 40%%")
}

func TestStructuringRule(t *testing.T) {
	e := NewEngine(sample.New(1))
	ec := benignCtx()
	ec.Recent = history(3, 50, ledger.TypeTransfer, time.Minute)
	ec.Window = ec.Recent
	ec.Draft.Amount = 9500

	a := e.Evaluate(ec)
	require.True(t, a.IsFraud)
	assert.Equal(t, ReasonStructuring, a.Reason)

	// 10000 is outside the structuring band.
	e = NewEngine(sample.New(1))
	ec = benignCtx()
	ec.Recent = history(3, 50, ledger.TypeTransfer, time.Minute)
	ec.Window = ec.Recent
	ec.Draft.Amount = 10000
	a = e.Evaluate(ec)
	assert.NotEqual(t, ReasonStructuring, a.Reason)
}

func TestLargeMovementRule(t *testing.T) {
	e := NewEngine(sample.New(1))
	ec := benignCtx()
	ec.Window = history(3, 50, ledger.TypeTransfer, 2*time.Hour)
	ec.Draft.Amount = 47000

	a := e.Evaluate(ec)
	require.True(t, a.IsFraud)
	assert.Equal(t, ReasonLargeMovement, a.Reason)
}

func TestTurnaroundRule(t *testing.T) {
	e := NewEngine(sample.New(1))
	ec := benignCtx()
	ec.Window = []ledger.Transaction{
		{Type: ledger.TypeDeposit, Amount: 500, CreatedAt: evalTime.Add(-10 * time.Hour)},
		{Type: ledger.TypeWithdrawal, Amount: 480, CreatedAt: evalTime.Add(-2 * time.Hour)},
	}

	a := e.Evaluate(ec)
	require.True(t, a.IsFraud)
	assert.Equal(t, ReasonTurnaround, a.Reason)

	// Same pair 30 hours apart does not fire.
	e = NewEngine(sample.New(1))
	ec = benignCtx()
	ec.Window = []ledger.Transaction{
		{Type: ledger.TypeDeposit, Amount: 500, CreatedAt: evalTime.Add(-40 * time.Hour)},
		{Type: ledger.TypeWithdrawal, Amount: 480, CreatedAt: evalTime.Add(-2 * time.Hour)},
	}
	a = e.Evaluate(ec)
	assert.False(t, a.IsFraud)
}

func TestCrossBorderRule(t *testing.T) {
	e := NewEngine(sample.New(1))
	ec := benignCtx()
	ec.Draft.Country = "RU"
	ec.Draft.Amount = 10001

	a := e.Evaluate(ec)
	require.True(t, a.IsFraud)
	assert.Equal(t, ReasonCrossBorder, a.Reason)

	// Low-risk destination never fires regardless of amount.
	e = NewEngine(sample.New(1))
	ec = benignCtx()
	ec.Draft.Country = "CH"
	ec.Draft.Amount = 1e6
	a = e.Evaluate(ec)
	assert.NotEqual(t, ReasonCrossBorder, a.Reason)
}

func TestIPReuseRule(t *testing.T) {
	e := NewEngine(sample.New(1))
	ec := benignCtx()
	ec.IPOccurrences = 6

	a := e.Evaluate(ec)
	require.True(t, a.IsFraud)
	assert.Equal(t, ReasonIPReuse, a.Reason)

	e = NewEngine(sample.New(1))
	ec = benignCtx()
	ec.IPOccurrences = 5
	a = e.Evaluate(ec)
	assert.False(t, a.IsFraud)
}

func TestDormantRule(t *testing.T) {
	e := NewEngine(sample.New(1))
	ec := benignCtx()
	ec.Window = history(1, 50, ledger.TypeTransfer, time.Hour)
	ec.Account.OpenedAt = evalTime.AddDate(0, 0, -181)

	a := e.Evaluate(ec)
	require.True(t, a.IsFraud)
	assert.Equal(t, ReasonDormant, a.Reason)

	// Young account with one entry stays clean.
	e = NewEngine(sample.New(1))
	ec = benignCtx()
	ec.Window = history(1, 50, ledger.TypeTransfer, time.Hour)
	ec.Account.OpenedAt = evalTime.AddDate(0, 0, -30)
	a = e.Evaluate(ec)
	assert.False(t, a.IsFraud)
}

func TestFXAnomalyRule(t *testing.T) {
	e := NewEngine(sample.New(1))
	ec := benignCtx()
	ec.Draft.Currency = "USD"
	ec.Draft.Amount = 20001

	a := e.Evaluate(ec)
	require.True(t, a.IsFraud)
	assert.Equal(t, ReasonFXAnomaly, a.Reason)
}

func TestKYCFailureRule(t *testing.T) {
	e := NewEngine(sample.New(1))
	ec := benignCtx()
	ec.KYC.Status = population.KYCRejected

	a := e.Evaluate(ec)
	require.True(t, a.IsFraud)
	assert.Equal(t, ReasonKYCFailure, a.Reason)

	e = NewEngine(sample.New(1))
	ec = benignCtx()
	ec.KYC.SelfiePassed = false
	a = e.Evaluate(ec)
	require.True(t, a.IsFraud)
	assert.Equal(t, ReasonKYCFailure, a.Reason)
}

func TestFirstReasonWinsAndAllFiringsCollected(t *testing.T) {
	e := NewEngine(sample.New(1))
	ec := benignCtx()
	ec.Blacklisted = true
	ec.KYC.Status = population.KYCRejected

	a := e.Evaluate(ec)
	require.True(t, a.IsFraud)
	assert.Equal(t, ReasonBlacklistedIP, a.Reason, "earliest firing rule owns the reason")
	assert.Equal(t, []string{"blacklisted_ip", "kyc_failure"}, a.Fired)
}

func TestFraudsterInflationFeedsLaterRules(t *testing.T) {
	// A 9500 draft from a fraudster that gets inflated leaves the
	// structuring band, so structuring must evaluate the inflated amount.
	e := NewEngine(sample.New(42))

	sawInflated := false
	for i := 0; i < 500 && !sawInflated; i++ {
		ec := benignCtx()
		ec.Profile.IsFraudster = true
		ec.Recent = history(3, 50, ledger.TypeTransfer, time.Minute)
		ec.Window = ec.Recent
		ec.Draft.Amount = 9500

		a := e.Evaluate(ec)
		if a.IsFraud && a.Reason == ReasonFraudster {
			sawInflated = true
			assert.GreaterOrEqual(t, ec.Draft.Amount, 19000.0)
			assert.NotContains(t, a.Fired, "structuring",
				"inflated amount left the structuring band before rule 5 ran")
		}
	}
	require.True(t, sawInflated, "expected at least one fraudster firing in 500 draws")
}

func TestStatusAndAuthDerivation(t *testing.T) {
	e := NewEngine(sample.New(7))

	const n = 5000
	completed, authed := 0, 0
	for i := 0; i < n; i++ {
		ec := benignCtx()
		ec.Blacklisted = true
		e.Evaluate(ec)
		if ec.Draft.Status == ledger.StatusCompleted {
			completed++
		}
		if ec.Draft.AuthResult {
			authed++
		}
	}

	assert.InDelta(t, 0.70, float64(completed)/n, 0.03, "fraud completes ~70%% of the time")
	assert.InDelta(t, 0.30, float64(authed)/n, 0.03, "fraud authenticates ~30%% of the time")
}

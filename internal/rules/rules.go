// Package rules labels candidate transactions with the fraud heuristics the
// dataset is trained against.
//
// Rules run in a fixed, documented order. Every rule is evaluated — the
// final fraud flag is the OR of all firings — but the reported reason is
// the first firing rule's. The known-fraudster rule inflates the draft
// amount before later rules see it, so ordering is load-bearing.
package rules

import (
	"math"
	"time"

	"github.com/boxylabs/fraudgen/internal/ledger"
	"github.com/boxylabs/fraudgen/internal/population"
	"github.com/boxylabs/fraudgen/internal/sample"
)

// Reason strings attached to labeled transactions, one per rule.
const (
	ReasonVelocity      = "High transaction velocity within 1 hour"
	ReasonAmountSpike   = "Transaction amount spike vs account history"
	ReasonBlacklistedIP = "Device IP on blacklist"
	ReasonFraudster     = "Known fraudster account activity"
	ReasonStructuring   = "Structuring below reporting threshold"
	ReasonLargeMovement = "Large movement just below limit"
	ReasonTurnaround    = "Rapid deposit-withdrawal turnaround"
	ReasonCrossBorder   = "High-risk cross-border transfer"
	ReasonIPReuse       = "Device IP shared across many actors"
	ReasonDormant       = "Dormant account reactivation"
	ReasonFXAnomaly     = "Unusual foreign currency volume"
	ReasonKYCFailure    = "KYC rejected or failed selfie check"
)

// Destination countries considered low risk for cross-border movement.
var lowRiskCountries = map[string]struct{}{
	"DE": {}, "FR": {}, "NL": {}, "BE": {}, "AT": {}, "CH": {},
}

// EvalContext carries everything a rule may read: the mutable draft, the
// account's window snapshots, and the actor's static reference data.
type EvalContext struct {
	Draft   *ledger.Transaction
	Window  []ledger.Transaction // full account window, oldest first
	Recent  []ledger.Transaction // window entries in the trailing hour
	Profile *population.Profile
	KYC     *population.KYCSubmission
	Account population.Account

	Now           time.Time // the draft's timestamp
	IPOccurrences int       // distinct actors seen with the draft's IP
	Blacklisted   bool

	src *sample.Source
}

// Rule is a single labeling heuristic. Evaluate returns nil when the rule
// does not fire. Rules are total: every input yields a decision.
type Rule interface {
	Name() string
	Evaluate(ec *EvalContext) *Verdict
}

// Verdict is one rule firing.
type Verdict struct {
	Rule   string
	Reason string
}

// Assessment is the engine's combined decision for a draft.
type Assessment struct {
	IsFraud bool
	Reason  string   // first firing rule's reason
	Fired   []string // all firing rule names, in evaluation order
}

// Engine evaluates the fixed rule catalogue against drafts. The source
// feeds the fraudster coin-flip and the status/auth draws; it must be the
// same seeded source the rest of the generator shares.
type Engine struct {
	rules []Rule
	src   *sample.Source
}

// NewEngine creates an engine with the default rule order.
func NewEngine(src *sample.Source) *Engine {
	return &Engine{rules: DefaultRules(), src: src}
}

// DefaultRules returns the catalogue in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		&VelocityRule{},
		&AmountSpikeRule{},
		&BlacklistedIPRule{},
		&FraudsterRule{},
		&StructuringRule{},
		&LargeMovementRule{},
		&TurnaroundRule{},
		&CrossBorderRule{},
		&IPReuseRule{},
		&DormantRule{},
		&FXAnomalyRule{},
		&KYCFailureRule{},
	}
}

// Evaluate runs every rule in order and finalizes the draft in place: fraud
// flag, reason, status, and auth result. The fraud flag is the OR of all
// firings; the reason is the first firing rule's.
func (e *Engine) Evaluate(ec *EvalContext) Assessment {
	ec.src = e.src

	var a Assessment
	for _, r := range e.rules {
		v := r.Evaluate(ec)
		if v == nil {
			continue
		}
		if !a.IsFraud {
			a.Reason = v.Reason
		}
		a.IsFraud = true
		a.Fired = append(a.Fired, v.Rule)
	}

	e.finalize(ec.Draft, a)
	return a
}

// finalize derives status and auth result. Fraud slips through as completed
// 70% of the time; authentication succeeds on fraud only 30% of the time.
func (e *Engine) finalize(draft *ledger.Transaction, a Assessment) {
	draft.IsFraud = a.IsFraud
	draft.Reason = a.Reason
	draft.Status = ledger.StatusCompleted
	draft.AuthResult = true
	if a.IsFraud {
		if !e.src.Bool(0.70) {
			draft.Status = ledger.StatusBlocked
		}
		draft.AuthResult = e.src.Bool(0.30)
	}
}

// VelocityRule fires when the account moves more than 5 times in the
// trailing hour. The draft itself counts, so the sixth in-hour transaction
// is the first to fire.
type VelocityRule struct{}

func (r *VelocityRule) Name() string { return "velocity" }

func (r *VelocityRule) Evaluate(ec *EvalContext) *Verdict {
	if len(ec.Recent)+1 > 5 {
		return &Verdict{Rule: r.Name(), Reason: ReasonVelocity}
	}
	return nil
}

// AmountSpikeRule fires on a z-score above 3 against the account's window
// history. The standard deviation is floored by +1 so a flat history can
// never divide by zero.
type AmountSpikeRule struct{}

func (r *AmountSpikeRule) Name() string { return "amount_spike" }

func (r *AmountSpikeRule) Evaluate(ec *EvalContext) *Verdict {
	n := len(ec.Window)
	if n <= 10 {
		return nil
	}

	var sum float64
	for _, tx := range ec.Window {
		sum += tx.Amount
	}
	mean := sum / float64(n)

	var sq float64
	for _, tx := range ec.Window {
		d := tx.Amount - mean
		sq += d * d
	}
	stddev := math.Sqrt(sq / float64(n))

	z := (ec.Draft.Amount - mean) / (stddev + 1)
	if z > 3 {
		return &Verdict{Rule: r.Name(), Reason: ReasonAmountSpike}
	}
	return nil
}

// BlacklistedIPRule fires when the draft's device IP is on the startup
// blacklist.
type BlacklistedIPRule struct{}

func (r *BlacklistedIPRule) Name() string { return "blacklisted_ip" }

func (r *BlacklistedIPRule) Evaluate(ec *EvalContext) *Verdict {
	if ec.Blacklisted {
		return &Verdict{Rule: r.Name(), Reason: ReasonBlacklistedIP}
	}
	return nil
}

// FraudsterRule fires with 40% probability for users whose profile carries
// the fraudster flag, and inflates the amount by a factor in [2, 5) before
// the remaining rules run.
type FraudsterRule struct{}

func (r *FraudsterRule) Name() string { return "known_fraudster" }

func (r *FraudsterRule) Evaluate(ec *EvalContext) *Verdict {
	if ec.Profile == nil || !ec.Profile.IsFraudster {
		return nil
	}
	if !ec.src.Bool(0.40) {
		return nil
	}
	ec.Draft.Amount = math.Round(ec.Draft.Amount*ec.src.Range(2, 5)*100) / 100
	return &Verdict{Rule: r.Name(), Reason: ReasonFraudster}
}

// StructuringRule fires on amounts parked just under the 10k reporting
// threshold with at least 3 movements in the trailing hour.
type StructuringRule struct{}

func (r *StructuringRule) Name() string { return "structuring" }

func (r *StructuringRule) Evaluate(ec *EvalContext) *Verdict {
	amt := ec.Draft.Amount
	if amt >= 9000 && amt < 10000 && len(ec.Recent) >= 3 {
		return &Verdict{Rule: r.Name(), Reason: ReasonStructuring}
	}
	return nil
}

// LargeMovementRule fires on amounts just under the 50k limit from accounts
// with more than 2 window entries.
type LargeMovementRule struct{}

func (r *LargeMovementRule) Name() string { return "large_movement" }

func (r *LargeMovementRule) Evaluate(ec *EvalContext) *Verdict {
	amt := ec.Draft.Amount
	if amt >= 45000 && amt < 50000 && len(ec.Window) > 2 {
		return &Verdict{Rule: r.Name(), Reason: ReasonLargeMovement}
	}
	return nil
}

// TurnaroundRule fires when the two most recent window entries are a
// deposit followed by a withdrawal within 24 hours.
type TurnaroundRule struct{}

func (r *TurnaroundRule) Name() string { return "rapid_turnaround" }

func (r *TurnaroundRule) Evaluate(ec *EvalContext) *Verdict {
	n := len(ec.Window)
	if n < 2 {
		return nil
	}
	prev, last := ec.Window[n-2], ec.Window[n-1]
	if prev.Type == ledger.TypeDeposit && last.Type == ledger.TypeWithdrawal &&
		last.CreatedAt.Sub(prev.CreatedAt) <= 24*time.Hour {
		return &Verdict{Rule: r.Name(), Reason: ReasonTurnaround}
	}
	return nil
}

// CrossBorderRule fires on large amounts headed outside the low-risk
// country set.
type CrossBorderRule struct{}

func (r *CrossBorderRule) Name() string { return "cross_border" }

func (r *CrossBorderRule) Evaluate(ec *EvalContext) *Verdict {
	if _, ok := lowRiskCountries[ec.Draft.Country]; ok {
		return nil
	}
	if ec.Draft.Amount > 10000 {
		return &Verdict{Rule: r.Name(), Reason: ReasonCrossBorder}
	}
	return nil
}

// IPReuseRule fires when the draft's IP has been seen with more than 5
// distinct devices or accounts.
type IPReuseRule struct{}

func (r *IPReuseRule) Name() string { return "ip_reuse" }

func (r *IPReuseRule) Evaluate(ec *EvalContext) *Verdict {
	if ec.IPOccurrences > 5 {
		return &Verdict{Rule: r.Name(), Reason: ReasonIPReuse}
	}
	return nil
}

// DormantRule fires on the first recorded movement of an account older than
// 180 days.
type DormantRule struct{}

func (r *DormantRule) Name() string { return "dormant_reactivation" }

func (r *DormantRule) Evaluate(ec *EvalContext) *Verdict {
	if len(ec.Window) == 1 && ec.Now.Sub(ec.Account.OpenedAt) > 180*24*time.Hour {
		return &Verdict{Rule: r.Name(), Reason: ReasonDormant}
	}
	return nil
}

// FXAnomalyRule fires on large non-EUR volume.
type FXAnomalyRule struct{}

func (r *FXAnomalyRule) Name() string { return "fx_anomaly" }

func (r *FXAnomalyRule) Evaluate(ec *EvalContext) *Verdict {
	if ec.Draft.Currency != population.HomeCurrency && ec.Draft.Amount > 20000 {
		return &Verdict{Rule: r.Name(), Reason: ReasonFXAnomaly}
	}
	return nil
}

// KYCFailureRule fires when the user's KYC was rejected or the selfie check
// failed.
type KYCFailureRule struct{}

func (r *KYCFailureRule) Name() string { return "kyc_failure" }

func (r *KYCFailureRule) Evaluate(ec *EvalContext) *Verdict {
	if ec.KYC == nil {
		return nil
	}
	if ec.KYC.Status == population.KYCRejected || !ec.KYC.SelfiePassed {
		return &Verdict{Rule: r.Name(), Reason: ReasonKYCFailure}
	}
	return nil
}

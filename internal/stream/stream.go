// Package stream drives transaction generation: it advances a simulated
// clock, drafts transactions for randomly picked actors, runs the fraud
// rule catalogue over each draft, and hands finalized records to the sink
// in fixed-size batches.
//
// The stream is finite, single-pass, and non-restartable: consuming it
// advances the shared random source and the window state. Re-running with
// the same seed and config reproduces the exact same sequence.
package stream

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/boxylabs/fraudgen/internal/ledger"
	"github.com/boxylabs/fraudgen/internal/metrics"
	"github.com/boxylabs/fraudgen/internal/population"
	"github.com/boxylabs/fraudgen/internal/rules"
	"github.com/boxylabs/fraudgen/internal/sample"
	"github.com/boxylabs/fraudgen/internal/window"
)

// DefaultBatchSize matches the reference dataset's insert batching.
const DefaultBatchSize = 10000

// Probability that an iteration advances the simulated clock by one hour.
const clockAdvanceP = 0.10

// Emitter consumes finished batches in emission order. A write error is
// fatal to the run; the generator does not retry.
type Emitter interface {
	WriteBatch(ctx context.Context, batch ledger.Batch) error
}

// Config bounds one generation run.
type Config struct {
	TargetCount int64     // stop after this many transactions
	Start       time.Time // simulated clock start
	Horizon     time.Time // stop once the simulated clock passes this
	BatchSize   int
}

// Stats summarizes a finished run.
type Stats struct {
	Generated int64
	Fraud     int64
	Batches   int64
	Skipped   int64 // iterations dropped because the actor had no accounts
}

// Generator is the streaming control loop. Single-owner: it must not be
// shared across goroutines because the random source and window store are
// unsynchronized by design.
type Generator struct {
	cfg    Config
	pop    *population.Population
	store  *window.Store
	engine *rules.Engine
	src    *sample.Source
	log    *slog.Logger
}

// New wires a generator over an already-built population. The window store
// must be seeded with the population's device-IP history by the caller.
func New(cfg Config, pop *population.Population, store *window.Store, engine *rules.Engine, src *sample.Source, log *slog.Logger) *Generator {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if log == nil {
		log = slog.Default()
	}
	return &Generator{cfg: cfg, pop: pop, store: store, engine: engine, src: src, log: log}
}

// Hour-of-day weights for timestamp offsets. Daytime and evening hours
// carry most of the volume; the small night weights keep 3am activity rare
// but present.
var hourWeights = []float64{
	0.2, 0.1, 0.1, 0.1, 0.1, 0.2, // 00-05
	0.4, 0.6, 0.9, 1.0, 1.0, 1.0, // 06-11
	1.0, 1.0, 0.9, 0.9, 0.9, 1.0, // 12-17
	1.0, 1.0, 0.9, 0.7, 0.5, 0.3, // 18-23
}

// Destination countries and their draw weights. Domestic dominates; the
// tail includes destinations outside the low-risk set.
var (
	countries      = []string{"DE", "FR", "NL", "AT", "CH", "PL", "US", "GB", "TR", "RU"}
	countryWeights = []float64{0.86, 0.03, 0.02, 0.02, 0.02, 0.01, 0.01, 0.01, 0.01, 0.01}
)

var (
	currencies      = []string{"EUR", "USD", "GBP", "CHF", "PLN"}
	currencyWeights = []float64{0.94, 0.025, 0.015, 0.01, 0.01}
)

var (
	txTypes       = []ledger.TxType{ledger.TypeTransfer, ledger.TypeDeposit, ledger.TypeWithdrawal}
	txTypeWeights = []float64{0.50, 0.25, 0.25}
)

var (
	channels       = []string{"mobile", "web", "pos"}
	channelWeights = []float64{0.60, 0.30, 0.10}
)

// Run generates until the transaction target or the time horizon is
// reached, whichever comes first. Batches are handed to the emitter as they
// fill; the final partial batch is flushed at the end.
func (g *Generator) Run(ctx context.Context, out Emitter) (Stats, error) {
	var stats Stats
	if len(g.pop.Users) == 0 || len(g.pop.Accounts) == 0 {
		g.log.Warn("empty population, nothing to generate")
		return stats, nil
	}

	clock := g.cfg.Start
	lastTS := g.cfg.Start
	nextID := int64(1)
	batch := make(ledger.Batch, 0, g.cfg.BatchSize)

	for nextID <= g.cfg.TargetCount && !clock.After(g.cfg.Horizon) {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		user := g.pop.Users[g.src.IntN(len(g.pop.Users))]
		accounts := g.pop.AccountsOf(user.ID)
		if len(accounts) == 0 {
			// Exhaustion is not an error; the id is not consumed.
			stats.Skipped++
			continue
		}

		tx := g.draft(nextID, user, accounts, clock, lastTS)
		g.evaluate(&tx, user)

		g.store.Record(tx)
		lastTS = tx.CreatedAt
		nextID++
		stats.Generated++
		if tx.IsFraud {
			stats.Fraud++
			metrics.FraudLabelsTotal.WithLabelValues(tx.Reason).Inc()
		}
		metrics.TransactionsTotal.WithLabelValues(string(tx.Status)).Inc()

		batch = append(batch, tx)
		if len(batch) == g.cfg.BatchSize {
			if err := g.emit(ctx, out, batch); err != nil {
				return stats, err
			}
			stats.Batches++
			batch = make(ledger.Batch, 0, g.cfg.BatchSize)
		}

		if g.src.Bool(clockAdvanceP) {
			clock = clock.Add(time.Hour)
			metrics.SimulatedClock.Set(float64(clock.Unix()))
		}
	}

	if len(batch) > 0 {
		if err := g.emit(ctx, out, batch); err != nil {
			return stats, err
		}
		stats.Batches++
	}

	g.log.Info("stream finished",
		"generated", stats.Generated,
		"fraud", stats.Fraud,
		"batches", stats.Batches,
		"skipped", stats.Skipped,
	)
	return stats, nil
}

// draft assembles a candidate transaction. Draw order is fixed: account,
// device, timestamp, type, channel, amount, location, country, currency,
// beneficiary — changing it changes every downstream value for a seed.
func (g *Generator) draft(id int64, user population.User, accounts []population.Account, clock, lastTS time.Time) ledger.Transaction {
	account := accounts[g.src.IntN(len(accounts))]

	devices := g.pop.DevicesOf(user.ID)
	device := devices[g.src.IntN(len(devices))]

	ts := g.timestamp(clock, lastTS)
	txType := txTypes[g.src.WeightedIndex(txTypeWeights)]
	channel := channels[g.src.WeightedIndex(channelWeights)]

	profile := g.pop.ProfileOf(user.ID)
	amount := math.Round(g.src.LogNormal(profile.BaselineAmountMu)*100) / 100

	lat, long := g.location(profile)
	country := countries[g.src.WeightedIndex(countryWeights)]
	currency := currencies[g.src.WeightedIndex(currencyWeights)]

	var beneficiary int64
	if txType == ledger.TypeTransfer {
		beneficiary = g.pop.Accounts[g.src.IntN(len(g.pop.Accounts))].ID
	}

	return ledger.Transaction{
		ID:                 id,
		SourceAccount:      account.ID,
		BeneficiaryAccount: beneficiary,
		Type:               txType,
		Amount:             amount,
		Currency:           currency,
		Channel:            channel,
		DeviceIP:           device.IP,
		Lat:                lat,
		Long:               long,
		Country:            country,
		CreatedAt:          ts,
		ProcessedAt:        ts.Add(time.Duration(g.src.IntBetween(1, 120)) * time.Second),
	}
}

// timestamp applies an hour-of-day weighted offset to the simulated clock,
// clamped so emitted timestamps never run backwards.
func (g *Generator) timestamp(clock, lastTS time.Time) time.Time {
	hour := g.src.WeightedIndex(hourWeights)
	offset := time.Duration(hour)*time.Hour +
		time.Duration(g.src.IntN(60))*time.Minute +
		time.Duration(g.src.IntN(60))*time.Second
	ts := clock.Add(offset)
	if ts.Before(lastTS) {
		ts = lastTS
	}
	return ts
}

// location is near home 90% of the time, otherwise uniform in the national
// bounding box.
func (g *Generator) location(p *population.Profile) (lat, long float64) {
	if g.src.Bool(0.90) {
		return p.HomeLat + g.src.Range(-0.1, 0.1), p.HomeLong + g.src.Range(-0.1, 0.1)
	}
	return g.src.Range(population.LatMin, population.LatMax),
		g.src.Range(population.LongMin, population.LongMax)
}

// evaluate runs the rule catalogue over the draft, finalizing fraud label,
// status, and auth result in place.
func (g *Generator) evaluate(tx *ledger.Transaction, user population.User) {
	account := g.accountByID(tx.SourceAccount, user.ID)

	ec := &rules.EvalContext{
		Draft:         tx,
		Window:        g.store.Window(tx.SourceAccount),
		Recent:        g.store.Recent(tx.SourceAccount, time.Hour, tx.CreatedAt),
		Profile:       g.pop.ProfileOf(user.ID),
		KYC:           g.pop.KYCOf(user.ID),
		Account:       account,
		Now:           tx.CreatedAt,
		IPOccurrences: g.store.IPOccurrences(tx.DeviceIP),
		Blacklisted:   g.pop.IsBlacklisted(tx.DeviceIP),
	}
	g.engine.Evaluate(ec)
}

func (g *Generator) accountByID(id, userID int64) population.Account {
	for _, a := range g.pop.AccountsOf(userID) {
		if a.ID == id {
			return a
		}
	}
	return population.Account{ID: id, UserID: userID}
}

func (g *Generator) emit(ctx context.Context, out Emitter, batch ledger.Batch) error {
	timer := time.Now()
	if err := out.WriteBatch(ctx, batch); err != nil {
		return fmt.Errorf("stream: emit batch of %d: %w", len(batch), err)
	}
	metrics.SinkWriteDuration.Observe(time.Since(timer).Seconds())
	metrics.BatchesEmittedTotal.Inc()
	g.log.Debug("batch emitted", "size", len(batch))
	return nil
}

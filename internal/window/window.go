// Package window keeps the bounded per-account transaction history the rule
// engine reads, plus a global device/IP occurrence index for reuse
// detection.
//
// Each account owns a fixed-capacity ring buffer; recording evicts the
// oldest entry once full, in amortized O(1). The IP index is maintained
// incrementally on every Record so rules never rescan history.
package window

import (
	"time"

	"github.com/boxylabs/fraudgen/internal/ledger"
	"github.com/boxylabs/fraudgen/internal/population"
)

// DefaultCapacity is the per-account window size.
const DefaultCapacity = 100

// Store holds all account windows and the IP occurrence index. It is owned
// by a single generation loop and is not safe for concurrent use.
type Store struct {
	capacity int
	windows  map[int64]*ring
	ipActors map[string]map[ipActor]struct{}
}

// ipActor identifies one distinct device or account seen with an IP.
type ipActor struct {
	kind string // "device" or "account"
	id   int64
}

// NewStore creates a store with the given per-account capacity.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		capacity: capacity,
		windows:  make(map[int64]*ring),
		ipActors: make(map[string]map[ipActor]struct{}),
	}
}

// SeedIPHistory indexes the static device-IP reference table. Called once
// before streaming begins.
func (s *Store) SeedIPHistory(entries []population.DeviceIPEntry) {
	for _, e := range entries {
		s.observeIP(e.IP, ipActor{kind: "device", id: e.DeviceID})
	}
}

// Record appends tx to its source account's window, evicting the oldest
// entry past capacity, and indexes the transaction's device IP.
func (s *Store) Record(tx ledger.Transaction) {
	r := s.windows[tx.SourceAccount]
	if r == nil {
		r = newRing(s.capacity)
		s.windows[tx.SourceAccount] = r
	}
	r.push(tx)
	s.observeIP(tx.DeviceIP, ipActor{kind: "account", id: tx.SourceAccount})
}

// Window returns the account's full window, oldest first. The returned
// slice is a copy.
func (s *Store) Window(account int64) []ledger.Transaction {
	r := s.windows[account]
	if r == nil {
		return nil
	}
	return r.snapshot()
}

// Recent returns the account's window entries with CreatedAt within the
// given duration of now, oldest first.
func (s *Store) Recent(account int64, within time.Duration, now time.Time) []ledger.Transaction {
	r := s.windows[account]
	if r == nil {
		return nil
	}
	cutoff := now.Add(-within)
	var out []ledger.Transaction
	for i := 0; i < r.n; i++ {
		tx := r.at(i)
		if !tx.CreatedAt.Before(cutoff) {
			out = append(out, tx)
		}
	}
	return out
}

// Len returns the number of entries currently held for the account.
func (s *Store) Len(account int64) int {
	r := s.windows[account]
	if r == nil {
		return 0
	}
	return r.n
}

// IPOccurrences returns how many distinct devices and accounts have been
// observed with the IP, across the seeded history and all recorded
// transactions.
func (s *Store) IPOccurrences(ip string) int {
	return len(s.ipActors[ip])
}

func (s *Store) observeIP(ip string, actor ipActor) {
	set := s.ipActors[ip]
	if set == nil {
		set = make(map[ipActor]struct{})
		s.ipActors[ip] = set
	}
	set[actor] = struct{}{}
}

// ring is a fixed-capacity circular buffer.
type ring struct {
	buf   []ledger.Transaction
	start int
	n     int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]ledger.Transaction, capacity)}
}

func (r *ring) push(tx ledger.Transaction) {
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = tx
		r.n++
		return
	}
	r.buf[r.start] = tx
	r.start = (r.start + 1) % len(r.buf)
}

// at returns the i-th entry, oldest first.
func (r *ring) at(i int) ledger.Transaction {
	return r.buf[(r.start+i)%len(r.buf)]
}

func (r *ring) snapshot() []ledger.Transaction {
	out := make([]ledger.Transaction, r.n)
	for i := 0; i < r.n; i++ {
		out[i] = r.at(i)
	}
	return out
}

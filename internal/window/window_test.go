package window

import (
	"testing"
	"time"

	"github.com/boxylabs/fraudgen/internal/ledger"
	"github.com/boxylabs/fraudgen/internal/population"
)

func tx(account int64, ip string, at time.Time) ledger.Transaction {
	return ledger.Transaction{
		SourceAccount: account,
		DeviceIP:      ip,
		CreatedAt:     at,
		Amount:        10,
		Type:          ledger.TypeTransfer,
	}
}

func TestWindowBoundAndEvictionOrder(t *testing.T) {
	s := NewStore(5)
	base := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 12; i++ {
		e := tx(1, "10.0.0.1", base.Add(time.Duration(i)*time.Minute))
		e.ID = int64(i)
		s.Record(e)
	}

	got := s.Window(1)
	if len(got) != 5 {
		t.Fatalf("window holds %d entries, capacity is 5", len(got))
	}
	for i, e := range got {
		if want := int64(7 + i); e.ID != want {
			t.Errorf("entry %d has id %d, want %d (oldest evicted first)", i, e.ID, want)
		}
	}
	if s.Len(1) != 5 {
		t.Errorf("Len = %d, want 5", s.Len(1))
	}
}

func TestRecentFiltersByDuration(t *testing.T) {
	s := NewStore(10)
	now := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)

	s.Record(tx(1, "10.0.0.1", now.Add(-3*time.Hour)))
	s.Record(tx(1, "10.0.0.1", now.Add(-30*time.Minute)))
	s.Record(tx(1, "10.0.0.1", now.Add(-5*time.Minute)))

	got := s.Recent(1, time.Hour, now)
	if len(got) != 2 {
		t.Fatalf("got %d entries in trailing hour, want 2", len(got))
	}
	if !got[0].CreatedAt.Before(got[1].CreatedAt) {
		t.Error("Recent not ordered oldest first")
	}
}

func TestRecentUnknownAccount(t *testing.T) {
	s := NewStore(10)
	if got := s.Recent(99, time.Hour, time.Now()); got != nil {
		t.Errorf("Recent for unknown account = %v, want nil", got)
	}
}

func TestWindowsAreIndependentPerAccount(t *testing.T) {
	s := NewStore(3)
	now := time.Now()
	for i := 0; i < 3; i++ {
		s.Record(tx(1, "10.0.0.1", now))
	}
	s.Record(tx(2, "10.0.0.2", now))

	if s.Len(1) != 3 || s.Len(2) != 1 {
		t.Errorf("window lengths = %d, %d; want 3, 1", s.Len(1), s.Len(2))
	}
}

func TestIPOccurrencesCountsDistinctActors(t *testing.T) {
	s := NewStore(10)
	s.SeedIPHistory([]population.DeviceIPEntry{
		{DeviceID: 1, IP: "10.0.0.1"},
		{DeviceID: 1, IP: "10.0.0.1"}, // same device, counted once
		{DeviceID: 2, IP: "10.0.0.1"},
		{DeviceID: 3, IP: "10.0.0.2"},
	})

	if got := s.IPOccurrences("10.0.0.1"); got != 2 {
		t.Errorf("occurrences after seeding = %d, want 2", got)
	}

	now := time.Now()
	s.Record(tx(7, "10.0.0.1", now))
	s.Record(tx(7, "10.0.0.1", now)) // same account, counted once
	s.Record(tx(8, "10.0.0.1", now))

	if got := s.IPOccurrences("10.0.0.1"); got != 4 {
		t.Errorf("occurrences after transactions = %d, want 4", got)
	}
	if got := s.IPOccurrences("192.168.0.1"); got != 0 {
		t.Errorf("occurrences for unseen IP = %d, want 0", got)
	}
}

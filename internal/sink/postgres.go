package sink

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/boxylabs/fraudgen/internal/ledger"
	"github.com/boxylabs/fraudgen/internal/metrics"
	"github.com/boxylabs/fraudgen/internal/population"
)

// Postgres bulk-loads generated data with COPY. Schema is owned by the
// goose migrations under migrations/.
type Postgres struct {
	db *sql.DB
}

// NewPostgres creates a Postgres sink over an open connection pool.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// WritePopulation loads the five reference tables, each in its own
// transaction, in dependency order.
func (s *Postgres) WritePopulation(ctx context.Context, pop *population.Population) error {
	if err := s.copyUsers(ctx, pop.Users); err != nil {
		return fmt.Errorf("sink: load users: %w", err)
	}
	if err := s.copyDevices(ctx, pop.Devices); err != nil {
		return fmt.Errorf("sink: load devices: %w", err)
	}
	if err := s.copyKYC(ctx, pop.KYC); err != nil {
		return fmt.Errorf("sink: load kyc submissions: %w", err)
	}
	if err := s.copyAccounts(ctx, pop.Accounts); err != nil {
		return fmt.Errorf("sink: load accounts: %w", err)
	}
	if err := s.copyIPHistory(ctx, pop.IPHistory); err != nil {
		return fmt.Errorf("sink: load device ip history: %w", err)
	}
	return nil
}

// WriteBatch loads one transaction batch with COPY inside a transaction.
func (s *Postgres) WriteBatch(ctx context.Context, batch ledger.Batch) error {
	err := s.copyRows(ctx, "transactions", []string{
		"trx_id", "source_account", "beneficiary_account", "type", "amount",
		"currency", "channel", "status", "device_ip", "lat", "long",
		"country", "auth_result", "created_at", "processed_at", "is_fraud",
		"reason",
	}, len(batch), func(i int) []any {
		t := batch[i]
		var beneficiary sql.NullInt64
		if t.BeneficiaryAccount != 0 {
			beneficiary = sql.NullInt64{Int64: t.BeneficiaryAccount, Valid: true}
		}
		var reason sql.NullString
		if t.Reason != "" {
			reason = sql.NullString{String: t.Reason, Valid: true}
		}
		return []any{
			t.ID, t.SourceAccount, beneficiary, string(t.Type), t.Amount,
			t.Currency, t.Channel, string(t.Status), t.DeviceIP, t.Lat,
			t.Long, t.Country, t.AuthResult, t.CreatedAt, t.ProcessedAt,
			t.IsFraud, reason,
		}
	})
	if err != nil {
		return fmt.Errorf("sink: load transactions: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Postgres) Close() error { return s.db.Close() }

func (s *Postgres) copyUsers(ctx context.Context, users []population.User) error {
	return s.copyRows(ctx, "users", []string{
		"user_id", "first_name", "last_name", "email", "phone_number",
		"gender", "dob", "occupation", "address", "zipcode", "city",
		"state", "country", "signup_ts", "signup_device",
	}, len(users), func(i int) []any {
		u := users[i]
		return []any{
			u.ID, u.FirstName, u.LastName, u.Email, u.Phone, u.Gender,
			u.DOB, u.Occupation, u.Address, u.Zipcode, u.City, u.State,
			u.Country, u.SignupAt, u.SignupDevice,
		}
	})
}

func (s *Postgres) copyDevices(ctx context.Context, devices []population.Device) error {
	return s.copyRows(ctx, "devices", []string{
		"device_id", "user_id", "device_type", "os", "first_seen_ts",
		"last_seen_ts", "ip_address",
	}, len(devices), func(i int) []any {
		d := devices[i]
		return []any{d.ID, d.UserID, d.Type, d.OS, d.FirstSeen, d.LastSeen, d.IP}
	})
}

func (s *Postgres) copyKYC(ctx context.Context, subs []population.KYCSubmission) error {
	return s.copyRows(ctx, "kyc_submissions", []string{
		"kyc_id", "user_id", "risk_score", "credit_score_bucket", "status",
		"selfie_check", "submitted_at",
	}, len(subs), func(i int) []any {
		k := subs[i]
		return []any{
			k.ID, k.UserID, k.RiskScore, string(k.CreditBucket),
			string(k.Status), k.SelfiePassed, k.SubmittedAt,
		}
	})
}

func (s *Postgres) copyAccounts(ctx context.Context, accounts []population.Account) error {
	return s.copyRows(ctx, "accounts", []string{
		"account_id", "user_id", "balance", "status", "open_ts",
	}, len(accounts), func(i int) []any {
		a := accounts[i]
		return []any{a.ID, a.UserID, a.Balance, string(a.Status), a.OpenedAt}
	})
}

func (s *Postgres) copyIPHistory(ctx context.Context, entries []population.DeviceIPEntry) error {
	return s.copyRows(ctx, "device_ip_history", []string{
		"device_id", "ip_address", "seen_ts",
	}, len(entries), func(i int) []any {
		e := entries[i]
		return []any{e.DeviceID, e.IP, e.SeenAt}
	})
}

// copyRows streams n rows into table via COPY within one transaction.
func (s *Postgres) copyRows(ctx context.Context, table string, columns []string, n int, row func(i int) []any) error {
	if n == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(table, columns...))
	if err != nil {
		return fmt.Errorf("prepare copy: %w", err)
	}

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, row(i)...); err != nil {
			_ = stmt.Close()
			return fmt.Errorf("copy row %d: %w", i, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return fmt.Errorf("flush copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("close copy: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	metrics.RowsWrittenTotal.WithLabelValues(table).Add(float64(n))
	return nil
}

// Package ledger defines the transaction record emitted by the stream
// generator. Records are immutable once emitted and ordered by CreatedAt.
package ledger

import "time"

// TxType is the kind of money movement.
type TxType string

const (
	TypeTransfer   TxType = "transfer"
	TypeDeposit    TxType = "deposit"
	TypeWithdrawal TxType = "withdrawal"
)

// Status is the processing outcome of a transaction.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusBlocked   Status = "blocked"
)

// Transaction is one labeled synthetic transaction.
type Transaction struct {
	ID                 int64     `json:"trx_id"`
	SourceAccount      int64     `json:"source_account"`
	BeneficiaryAccount int64     `json:"beneficiary_account,omitempty"` // 0 when absent
	Type               TxType    `json:"type"`
	Amount             float64   `json:"amount"`
	Currency           string    `json:"currency"`
	Channel            string    `json:"channel"`
	Status             Status    `json:"status"`
	DeviceIP           string    `json:"device_ip"`
	Lat                float64   `json:"lat"`
	Long               float64   `json:"long"`
	Country            string    `json:"country"`
	AuthResult         bool      `json:"auth_result"`
	CreatedAt          time.Time `json:"created_at"`
	ProcessedAt        time.Time `json:"processed_at"`
	IsFraud            bool      `json:"is_fraud"`
	Reason             string    `json:"reason,omitempty"`
}

// Batch is an ordered group of finalized transactions handed to a sink as a
// unit.
type Batch []Transaction

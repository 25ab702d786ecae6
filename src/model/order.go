package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OperationType enumerates the venue operations a strategy may request.
type OperationType string

const (
	OpSupply    OperationType = "supply"
	OpWithdraw  OperationType = "withdraw"
	OpBorrow    OperationType = "borrow"
	OpRepay     OperationType = "repay"
	OpSpotTrade OperationType = "spot_trade"
	OpPerpTrade OperationType = "perp_trade"
	OpStake     OperationType = "stake"
	OpUnstake   OperationType = "unstake"
	OpTransfer  OperationType = "transfer"
)

// ExecutionMode controls how the router sequences an order relative to its peers.
type ExecutionMode string

const (
	ExecSequential  ExecutionMode = "sequential"
	ExecAtomicGroup ExecutionMode = "atomic_group"
)

// Order is one intended venue operation emitted by a strategy.
// Orders are immutable once emitted and are consumed exactly once by the
// execution router.
type Order struct {
	ID            string          `json:"id"`
	Operation     OperationType   `json:"operation"`
	Venue         string          `json:"venue"`
	Asset         string          `json:"asset"`
	Amount        decimal.Decimal `json:"amount"` // signed
	ExecutionMode ExecutionMode   `json:"execution_mode"`
	AtomicGroupID string          `json:"atomic_group_id,omitempty"` // set iff ExecutionMode == ExecAtomicGroup
	Reason        string          `json:"reason,omitempty"`
}

// Trade is the realized outcome of one Order. A trade with Success=false
// carries no position delta.
type Trade struct {
	ID             string                     `json:"id"`
	OrderID        string                     `json:"order_id"`
	Operation      OperationType              `json:"operation"`
	Venue          string                     `json:"venue"`
	Success        bool                       `json:"success"`
	PositionDelta  map[string]decimal.Decimal `json:"position_delta,omitempty"` // asset key -> signed amount, secondary effects included
	FeeUSD         decimal.Decimal            `json:"fee_usd"`
	VenueTimestamp time.Time                  `json:"venue_timestamp"`
	FailureReason  string                     `json:"failure_reason,omitempty"`
	Compensation   bool                       `json:"compensation,omitempty"` // rollback leg of a failed atomic group
}

package model

import "time"

// EngineEvent is one persisted audit record emitted by the engine: cycle
// boundaries, orders, trades, reconciliations, corrections, errors.
type EngineEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Kind      string    `gorm:"size:50;index" json:"kind"`
	Mode      string    `gorm:"size:50;index" json:"mode"`
	CycleTime time.Time `gorm:"index" json:"cycle_time"`
	Payload   string    `gorm:"type:jsonb" json:"payload"` // JSON-encoded event body
	CreatedAt time.Time `json:"created_at"`
}

func (EngineEvent) TableName() string {
	return "engine_events"
}

// Exception represents a system-level error that must be persisted
// for auditing, debugging, and monitoring purposes.
type Exception struct {
	ID uint `gorm:"primaryKey" json:"id"`

	// Where the error happened
	Service string `gorm:"size:100;index" json:"service"` // e.g. "yield_engine"
	Module  string `gorm:"size:100;index" json:"module"`  // e.g. "execution_router"
	Method  string `gorm:"size:100" json:"method"`        // e.g. "Route"

	// Error information
	Message string `gorm:"type:text" json:"message"`

	// Severity level
	Level string `gorm:"size:20;index" json:"level"` // low | medium | high | critical

	// Extra context stored as JSON (optional)
	Context string `gorm:"type:jsonb" json:"context,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (Exception) TableName() string {
	return "exceptions"
}

// ReconciliationLog is the audit trail entry kept after a reconciliation
// record is resolved. The in-memory record itself is not retained.
type ReconciliationLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Mode      string    `gorm:"size:50;index" json:"mode"`
	CycleTime time.Time `gorm:"index" json:"cycle_time"`
	Status    string    `gorm:"size:20;not null" json:"status"` // accepted | corrected
	MaxDrift  string    `gorm:"size:50" json:"max_drift"`
	Diffs     string    `gorm:"type:jsonb" json:"diffs,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (ReconciliationLog) TableName() string {
	return "reconciliation_logs"
}

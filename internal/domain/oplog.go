package domain

import "time"

type OperationType string

const (
	OperationDeltaCheck OperationType = "delta_check"
	OperationAiImport   OperationType = "ai_import"
	OperationGeoSync    OperationType = "geo_sync"
	OperationCommit     OperationType = "commit"
	OperationApprove    OperationType = "approve"
	OperationReject     OperationType = "reject"
)

type OperationStatus string

const (
	OperationStarted OperationStatus = "started"
	OperationSuccess OperationStatus = "success"
	OperationFailed  OperationStatus = "failed"
)

type Details map[string]interface{}

// OperationLogEntry is an append-only audit record. Every started entry gets
// exactly one terminal update unless the process dies mid-operation; a stale
// started row is a diagnosable anomaly, not a supported end state.
type OperationLogEntry struct {
	ID          int64           `db:"id" json:"id"`
	BatchID     string          `db:"batch_id" json:"batch_id"`
	Type        OperationType   `db:"operation_type" json:"operation_type"`
	Status      OperationStatus `db:"status" json:"status"`
	StartedAt   time.Time       `db:"started_at" json:"started_at"`
	CompletedAt *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
	Details     Details         `db:"details" json:"details,omitempty"`
}

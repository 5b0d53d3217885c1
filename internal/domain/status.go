package domain

type ActionType string

const (
	ActionCommit ActionType = "commit"
	ActionReview ActionType = "review"
	ActionImport ActionType = "import"
	ActionSync   ActionType = "sync"
	ActionNone   ActionType = "none"
)

type Urgency string

const (
	UrgencyHigh   Urgency = "high"
	UrgencyMedium Urgency = "medium"
	UrgencyLow    Urgency = "low"
)

type NextAction struct {
	Type    ActionType `json:"type"`
	Urgency Urgency    `json:"urgency"`
	Reason  string     `json:"reason"`
}

type StageCounts struct {
	SnapshotEntries  int64 `json:"snapshot_entries"`
	ProductionAreas  int64 `json:"production_areas"`
	StagingPending   int64 `json:"staging_pending"`
	StagingApproved  int64 `json:"staging_approved"`
	StagingCommitted int64 `json:"staging_committed"`
}

type PipelineStatus struct {
	Stages     StageCounts `json:"stages"`
	NextAction NextAction  `json:"next_action"`
}

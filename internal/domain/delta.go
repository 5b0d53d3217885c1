package domain

// DeltaResult is computed by the delta detector and never persisted beyond
// the operation that produced it.

type EntityRef struct {
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
}

type FieldChange struct {
	Field    string `json:"field"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}

type EntityChange struct {
	ExternalID string        `json:"external_id"`
	Name       string        `json:"name"`
	Changes    []FieldChange `json:"changes"`
}

type LevelDelta struct {
	Added   []EntityRef    `json:"added"`
	Changed []EntityChange `json:"changed"`
	Removed []EntityRef    `json:"removed"`
}

func (d LevelDelta) Empty() bool {
	return len(d.Added) == 0 && len(d.Changed) == 0 && len(d.Removed) == 0
}

type LevelCounts struct {
	Added   int `json:"added"`
	Changed int `json:"changed"`
	Removed int `json:"removed"`
}

func (d LevelDelta) Counts() LevelCounts {
	return LevelCounts{Added: len(d.Added), Changed: len(d.Changed), Removed: len(d.Removed)}
}

// RenameSuggestion pairs a removed entity with an added one whose slug looks
// alike. Best-effort hint for the reviewer, never applied automatically.
type RenameSuggestion struct {
	Level             string  `json:"level"`
	RemovedExternalID string  `json:"removed_external_id"`
	RemovedName       string  `json:"removed_name"`
	AddedExternalID   string  `json:"added_external_id"`
	AddedName         string  `json:"added_name"`
	Similarity        float64 `json:"similarity"`
}

type DeltaResult struct {
	BatchID           string             `json:"batch_id"`
	Cities            LevelDelta         `json:"cities"`
	Districts         LevelDelta         `json:"districts"`
	Areas             LevelDelta         `json:"areas"`
	RenameSuggestions []RenameSuggestion `json:"rename_suggestions,omitempty"`
	StagedCities      []string           `json:"staged_cities,omitempty"`
}

func (r *DeltaResult) Empty() bool {
	return r.Cities.Empty() && r.Districts.Empty() && r.Areas.Empty()
}

func (r *DeltaResult) Summary() map[string]LevelCounts {
	return map[string]LevelCounts{
		"cities":    r.Cities.Counts(),
		"districts": r.Districts.Counts(),
		"areas":     r.Areas.Counts(),
	}
}

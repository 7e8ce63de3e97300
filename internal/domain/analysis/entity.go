package analysis

import (
	"time"
)

// AnalysisID identifier type
type AnalysisID string

// Confidence enum
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Valid reports whether c is one of the three allowed literals.
func (c Confidence) Valid() bool {
	switch c {
	case ConfidenceLow, ConfidenceMedium, ConfidenceHigh:
		return true
	}
	return false
}

// Source enum: where a record came from
type Source string

const (
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
)

// Factor is one key observation about the ingredient list.
type Factor struct {
	Factor      string `json:"factor"`
	Explanation string `json:"explanation"`
}

// Aggregate Root: Analysis
// Records are immutable after creation: create, read, delete only.
type Analysis struct {
	ID          AnalysisID `json:"id"`
	OwnerID     string     `json:"owner_id"`
	InputText   string     `json:"input_text"`
	Judgment    string     `json:"judgment"`
	KeyFactors  []Factor   `json:"key_factors"`
	Tradeoffs   string     `json:"tradeoffs"`
	Uncertainty string     `json:"uncertainty"`
	Confidence  Confidence `json:"confidence"`
	Source      Source     `json:"source"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Result is the validated, canonical payload of one analysis run, before it
// is stamped with an identity and owner.
type Result struct {
	Judgment    string     `json:"judgment"`
	KeyFactors  []Factor   `json:"key_factors"`
	Tradeoffs   string     `json:"tradeoffs"`
	Uncertainty string     `json:"uncertainty"`
	Confidence  Confidence `json:"confidence"`
}

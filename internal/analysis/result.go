// Package analysis orchestrates the scoring engines into one group result.
package analysis

import (
	"time"

	"github.com/attunelabs/attune/internal/engine/compatibility"
	"github.com/attunelabs/attune/internal/engine/risks"
	"github.com/attunelabs/attune/internal/engine/strengths"
)

// AlgorithmVersion tags persisted results so stale payloads can be detected
// after a scoring change.
const AlgorithmVersion = "2.1.0"

// Options selects which insights an analysis run computes.
type Options struct {
	IncludeCompatibility bool
	IncludeStrengths     bool
	IncludeRisks         bool
	IncludeGoalAlignment bool
	IncludeSynthesis     bool

	// ForceRefresh bypasses the result cache.
	ForceRefresh bool
	// UseCache enables cache reads and writes for the run.
	UseCache bool

	// ConfidenceThreshold drops strengths scored below it. Zero means the
	// default of 0.7.
	ConfidenceThreshold float64
	// MinRiskProbability drops risks below it. Zero means the default of 0.3.
	MinRiskProbability float64
}

// DefaultOptions enables every insight with standard thresholds.
func DefaultOptions() Options {
	return Options{
		IncludeCompatibility: true,
		IncludeStrengths:     true,
		IncludeRisks:         true,
		IncludeGoalAlignment: true,
		IncludeSynthesis:     true,
		UseCache:             true,
		ConfidenceThreshold:  0.7,
		MinRiskProbability:   0.3,
	}
}

func (o Options) confidenceThreshold() float64 {
	if o.ConfidenceThreshold == 0 {
		return 0.7
	}
	return o.ConfidenceThreshold
}

func (o Options) minRiskProbability() float64 {
	if o.MinRiskProbability == 0 {
		return 0.3
	}
	return o.MinRiskProbability
}

// GoalAlignment measures how far group members share values and motivations.
type GoalAlignment struct {
	// Score is the mean pairwise overlap of values and drivers in [0,1].
	Score float64 `json:"score"`
	// SharedValues lists values held by a majority of members, sorted.
	SharedValues []string `json:"shared_values"`
	// SharedDrivers lists motivational drivers scored at or above 0.7 by a
	// majority of members, sorted.
	SharedDrivers []string `json:"shared_drivers"`
	// Divergent lists values held by exactly one member, sorted.
	Divergent []string `json:"divergent"`
	// Confidence reflects how many members contributed values data.
	Confidence float64 `json:"confidence"`
}

// Narrative is the human-readable synthesis of the numeric insights.
type Narrative struct {
	Overview        string   `json:"overview"`
	Compatibility   string   `json:"compatibility"`
	Strengths       string   `json:"strengths"`
	Challenges      string   `json:"challenges"`
	Opportunities   string   `json:"opportunities"`
	KeyInsights     []string `json:"key_insights"`
	Recommendations []string `json:"recommendations"`
	// Source records whether the narrative came from the remote model or the
	// deterministic fallback templates.
	Source string `json:"source"`
}

// Meta carries run bookkeeping alongside the insights.
type Meta struct {
	ProcessingTime    time.Duration     `json:"processing_time_ms"`
	AlgorithmVersions map[string]string `json:"algorithm_versions"`
	OverallConfidence float64           `json:"overall_confidence"`
}

// GroupAnalysisResult is the complete output of one analysis run.
type GroupAnalysisResult struct {
	GroupID          string    `json:"group_id"`
	AnalysisID       string    `json:"analysis_id"`
	GeneratedAt      time.Time `json:"generated_at"`
	MemberCount      int       `json:"member_count"`
	DataCompleteness float64   `json:"data_completeness"`

	Compatibility *compatibility.Result `json:"compatibility,omitempty"`
	Strengths     []strengths.Strength  `json:"strengths,omitempty"`
	Risks         []risks.ConflictRisk  `json:"risks,omitempty"`
	GoalAlignment *GoalAlignment        `json:"goal_alignment,omitempty"`
	Narrative     *Narrative            `json:"narrative,omitempty"`

	Meta Meta `json:"meta"`
}

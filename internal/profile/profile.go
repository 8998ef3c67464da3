// Package profile models member personality and behavioral profiles.
//
// Every sub-record is optional. A nil sub-record means "no data was collected"
// and must never be conflated with a zero value: scoring engines substitute an
// explicitly low-confidence neutral score for missing data instead.
package profile

import (
	"errors"
	"strings"
)

// CommunicationStyle is a declared pairwise communication preference.
type CommunicationStyle string

const (
	CommunicationDirect     CommunicationStyle = "direct"
	CommunicationAnalytical CommunicationStyle = "analytical"
	CommunicationSupportive CommunicationStyle = "supportive"
	CommunicationExpressive CommunicationStyle = "expressive"
)

// ConflictStyle is a declared conflict-resolution preference.
type ConflictStyle string

const (
	ConflictCompeting     ConflictStyle = "competing"
	ConflictCollaborating ConflictStyle = "collaborating"
	ConflictCompromising  ConflictStyle = "compromising"
	ConflictAvoiding      ConflictStyle = "avoiding"
	ConflictAccommodating ConflictStyle = "accommodating"
)

// ProblemSolvingStyle is a declared cognitive problem-solving preference.
type ProblemSolvingStyle string

const (
	ProblemSolvingAnalytical ProblemSolvingStyle = "analytical"
	ProblemSolvingCreative   ProblemSolvingStyle = "creative"
	ProblemSolvingPractical  ProblemSolvingStyle = "practical"
	ProblemSolvingStrategic  ProblemSolvingStyle = "strategic"
)

// DecisionStyle is a declared decision-making preference.
type DecisionStyle string

const (
	DecisionRational  DecisionStyle = "rational"
	DecisionIntuitive DecisionStyle = "intuitive"
	DecisionConsensus DecisionStyle = "consensus"
	DecisionDecisive  DecisionStyle = "decisive"
)

// LearningStyle is a declared learning preference.
type LearningStyle string

const (
	LearningVisual      LearningStyle = "visual"
	LearningAuditory    LearningStyle = "auditory"
	LearningKinesthetic LearningStyle = "kinesthetic"
	LearningReading     LearningStyle = "reading"
)

var (
	// ErrEmptyMemberID indicates a member ID is required.
	ErrEmptyMemberID = errors.New("member id is required")
)

// Personality holds embedding and style facts for one member.
type Personality struct {
	Embedding          []float64          `json:"embedding,omitempty"`
	Traits             map[string]float64 `json:"traits,omitempty"`
	CommunicationStyle CommunicationStyle `json:"communication_style,omitempty"`
	ConflictStyle      ConflictStyle      `json:"conflict_style,omitempty"`
}

// Tendency is one observed behavioral tendency with its likelihood.
type Tendency struct {
	Name       string  `json:"name"`
	Likelihood float64 `json:"likelihood"`
}

// Behavioral holds tendency and social-scalar facts for one member.
// SocialEnergy and Empathy are 0-100 scalars.
type Behavioral struct {
	Tendencies   []Tendency `json:"tendencies,omitempty"`
	SocialEnergy float64    `json:"social_energy"`
	Empathy      float64    `json:"empathy"`
}

// Cognitive holds declared cognitive-style facts for one member.
type Cognitive struct {
	ProblemSolving ProblemSolvingStyle `json:"problem_solving,omitempty"`
	Decision       DecisionStyle       `json:"decision,omitempty"`
	Learning       LearningStyle       `json:"learning,omitempty"`
}

// Driver is one motivation driver with its strength (0-1).
type Driver struct {
	Name     string  `json:"name"`
	Strength float64 `json:"strength"`
}

// Values holds core values and motivation drivers for one member.
type Values struct {
	CoreValues []string `json:"core_values,omitempty"`
	Drivers    []Driver `json:"drivers,omitempty"`
}

// MemberProfile is the full validated profile for one group member.
// It is owned by the orchestrator for the duration of one analysis run and is
// never mutated after fetch.
type MemberProfile struct {
	MemberID    string       `json:"member_id"`
	Personality *Personality `json:"personality,omitempty"`
	Behavioral  *Behavioral  `json:"behavioral,omitempty"`
	Cognitive   *Cognitive   `json:"cognitive,omitempty"`
	Values      *Values      `json:"values,omitempty"`
}

// Normalize canonicalizes the member ID and lowercases style enum values.
func (p MemberProfile) Normalize() (MemberProfile, error) {
	p.MemberID = strings.TrimSpace(p.MemberID)
	if p.MemberID == "" {
		return MemberProfile{}, ErrEmptyMemberID
	}
	if p.Personality != nil {
		personality := *p.Personality
		personality.CommunicationStyle = CommunicationStyle(canonicalStyle(string(personality.CommunicationStyle)))
		personality.ConflictStyle = ConflictStyle(canonicalStyle(string(personality.ConflictStyle)))
		p.Personality = &personality
	}
	if p.Cognitive != nil {
		cognitive := *p.Cognitive
		cognitive.ProblemSolving = ProblemSolvingStyle(canonicalStyle(string(cognitive.ProblemSolving)))
		cognitive.Decision = DecisionStyle(canonicalStyle(string(cognitive.Decision)))
		cognitive.Learning = LearningStyle(canonicalStyle(string(cognitive.Learning)))
		p.Cognitive = &cognitive
	}
	return p, nil
}

// Completeness returns the fraction of the four optional sub-records present.
func (p MemberProfile) Completeness() float64 {
	present := 0
	if p.Personality != nil {
		present++
	}
	if p.Behavioral != nil {
		present++
	}
	if p.Cognitive != nil {
		present++
	}
	if p.Values != nil {
		present++
	}
	return float64(present) / 4
}

// SetCompleteness returns the mean completeness across all supplied profiles.
// It returns 0 for an empty set.
func SetCompleteness(profiles []MemberProfile) float64 {
	if len(profiles) == 0 {
		return 0
	}
	total := 0.0
	for _, p := range profiles {
		total += p.Completeness()
	}
	return total / float64(len(profiles))
}

func canonicalStyle(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// Package risks predicts group friction areas from member profiles.
//
// Eight independent detection rules each populate probability and impact;
// severity is always derived from probability x impact and is never set by a
// rule directly, so the severity ordering is consistent across rule types.
package risks

import (
	"fmt"
	"math"
	"sort"

	"github.com/attunelabs/attune/internal/profile"
)

// Severity thresholds over probability x impact. They are configuration
// constants tuned upstream and are preserved as given.
const (
	criticalThreshold = 0.7
	highThreshold     = 0.5
	mediumThreshold   = 0.3
)

// probabilityCeiling caps rule-computed probabilities.
const probabilityCeiling = 0.95

// RiskType tags the rule that produced a risk.
type RiskType string

const (
	RiskResolutionMismatch      RiskType = "resolution_style_mismatch"
	RiskEmpathyGap              RiskType = "empathy_gap"
	RiskEnergyPolarization      RiskType = "energy_polarization"
	RiskCommunicationClash      RiskType = "communication_clash"
	RiskValueConflict           RiskType = "value_conflict"
	RiskParticipationDivergence RiskType = "participation_divergence"
	RiskLeadershipContention    RiskType = "leadership_contention"
	RiskWorkStyleFriction       RiskType = "work_style_friction"
)

// Severity is the ordinal risk classification.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ConflictRisk is one predicted friction area.
type ConflictRisk struct {
	Type        RiskType `json:"type"`
	Severity    Severity `json:"severity"`
	MemberIDs   []string `json:"member_ids"`
	Probability float64  `json:"probability"`
	Impact      float64  `json:"impact"`
	Triggers    []string `json:"triggers,omitempty"`
	Mitigations []string `json:"mitigations,omitempty"`
}

// Score returns the risk score used for severity and ordering.
func (r ConflictRisk) Score() float64 {
	return r.Probability * r.Impact
}

// SeverityFor derives the ordinal severity from probability x impact.
func SeverityFor(probability, impact float64) Severity {
	score := probability * impact
	switch {
	case score >= criticalThreshold:
		return SeverityCritical
	case score >= highThreshold:
		return SeverityHigh
	case score >= mediumThreshold:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Predictor runs all risk detection rules over a member profile set.
type Predictor struct{}

// New constructs a risk predictor.
func New() *Predictor {
	return &Predictor{}
}

type rule func(profiles []profile.MemberProfile) []ConflictRisk

// Predict runs every rule, derives severities, attaches mitigations, and
// returns risks sorted descending by risk score.
func (p *Predictor) Predict(profiles []profile.MemberProfile) []ConflictRisk {
	if len(profiles) < 2 {
		return []ConflictRisk{}
	}

	rules := []rule{
		detectResolutionMismatch,
		detectEmpathyGap,
		detectEnergyPolarization,
		detectCommunicationClash,
		detectValueConflicts,
		detectParticipationDivergence,
		detectLeadershipContention,
		detectWorkStyleFriction,
	}

	risks := make([]ConflictRisk, 0, len(rules))
	for _, detect := range rules {
		for _, risk := range detect(profiles) {
			risk.Probability = math.Min(risk.Probability, probabilityCeiling)
			risk.Severity = SeverityFor(risk.Probability, risk.Impact)
			risk.Mitigations = mitigationsFor(risk.Type)
			sort.Strings(risk.MemberIDs)
			risks = append(risks, risk)
		}
	}

	sort.SliceStable(risks, func(i, j int) bool {
		return risks[i].Score() > risks[j].Score()
	})
	return risks
}

// splitProbability rewards balanced group sizes on both sides of a divide:
// min(propA * propB * 2 * (1 - |propA - propB|), ceiling).
func splitProbability(countA, countB, total int) float64 {
	if total == 0 || countA == 0 || countB == 0 {
		return 0
	}
	propA := float64(countA) / float64(total)
	propB := float64(countB) / float64(total)
	return math.Min(propA*propB*2*(1-math.Abs(propA-propB)), probabilityCeiling)
}

// detectResolutionMismatch fires when assertive and withdrawing
// conflict-resolution styles coexist in the group.
func detectResolutionMismatch(profiles []profile.MemberProfile) []ConflictRisk {
	var assertive, withdrawing []string
	for _, p := range profiles {
		if p.Personality == nil {
			continue
		}
		switch p.Personality.ConflictStyle {
		case profile.ConflictCompeting:
			assertive = append(assertive, p.MemberID)
		case profile.ConflictAvoiding, profile.ConflictAccommodating:
			withdrawing = append(withdrawing, p.MemberID)
		}
	}
	if len(assertive) == 0 || len(withdrawing) == 0 {
		return nil
	}
	return []ConflictRisk{{
		Type:        RiskResolutionMismatch,
		MemberIDs:   append(append([]string{}, assertive...), withdrawing...),
		Probability: splitProbability(len(assertive), len(withdrawing), len(profiles)),
		Impact:      0.8,
		Triggers: []string{
			"decisions made under time pressure",
			"unresolved disagreements left to linger",
		},
	}}
}

// detectEmpathyGap flags members whose empathy is more than one standard
// deviation below the group mean.
func detectEmpathyGap(profiles []profile.MemberProfile) []ConflictRisk {
	var values []float64
	var ids []string
	for _, p := range profiles {
		if p.Behavioral == nil {
			continue
		}
		values = append(values, p.Behavioral.Empathy)
		ids = append(ids, p.MemberID)
	}
	if len(values) < 2 {
		return nil
	}
	mean, stddev := meanStddev(values)
	if stddev == 0 {
		return nil
	}
	var outliers []string
	for i, v := range values {
		if v < mean-stddev {
			outliers = append(outliers, ids[i])
		}
	}
	if len(outliers) == 0 {
		return nil
	}
	spread := math.Min(stddev/50, 1)
	return []ConflictRisk{{
		Type:        RiskEmpathyGap,
		MemberIDs:   outliers,
		Probability: math.Min(0.3+0.5*spread, probabilityCeiling),
		Impact:      0.6,
		Triggers: []string{
			"emotionally charged conversations",
			"feedback delivered without context",
		},
	}}
}

// detectEnergyPolarization fires when high-energy and low-energy members form
// distinct camps.
func detectEnergyPolarization(profiles []profile.MemberProfile) []ConflictRisk {
	var high, low []string
	for _, p := range profiles {
		if p.Behavioral == nil {
			continue
		}
		switch {
		case p.Behavioral.SocialEnergy >= 70:
			high = append(high, p.MemberID)
		case p.Behavioral.SocialEnergy <= 30:
			low = append(low, p.MemberID)
		}
	}
	if len(high) == 0 || len(low) == 0 {
		return nil
	}
	return []ConflictRisk{{
		Type:        RiskEnergyPolarization,
		MemberIDs:   append(append([]string{}, high...), low...),
		Probability: splitProbability(len(high), len(low), len(profiles)),
		Impact:      0.5,
		Triggers: []string{
			"planning shared activities",
			"long unstructured group sessions",
		},
	}}
}

// detectCommunicationClash fires on a split between direct and supportive
// communicators.
func detectCommunicationClash(profiles []profile.MemberProfile) []ConflictRisk {
	var direct, supportive []string
	for _, p := range profiles {
		if p.Personality == nil {
			continue
		}
		switch p.Personality.CommunicationStyle {
		case profile.CommunicationDirect:
			direct = append(direct, p.MemberID)
		case profile.CommunicationSupportive:
			supportive = append(supportive, p.MemberID)
		}
	}
	if len(direct) == 0 || len(supportive) == 0 {
		return nil
	}
	return []ConflictRisk{{
		Type:        RiskCommunicationClash,
		MemberIDs:   append(append([]string{}, direct...), supportive...),
		Probability: splitProbability(len(direct), len(supportive), len(profiles)),
		Impact:      0.6,
		Triggers: []string{
			"critical feedback exchanges",
			"fast-moving group chats",
		},
	}}
}

// antagonisticValuePairs is the fixed table of value pairs with known tension.
var antagonisticValuePairs = [][2]string{
	{"tradition", "innovation"},
	{"autonomy", "collaboration"},
	{"stability", "adventure"},
	{"achievement", "balance"},
	{"directness", "harmony"},
}

// detectValueConflicts fires once per antagonistic value pair held by
// different members.
func detectValueConflicts(profiles []profile.MemberProfile) []ConflictRisk {
	holders := make(map[string][]string)
	for _, p := range profiles {
		if p.Values == nil {
			continue
		}
		seen := make(map[string]bool)
		for _, value := range p.Values.CoreValues {
			if seen[value] {
				continue
			}
			seen[value] = true
			holders[value] = append(holders[value], p.MemberID)
		}
	}

	var risks []ConflictRisk
	for _, pair := range antagonisticValuePairs {
		sideA, sideB := holders[pair[0]], holders[pair[1]]
		if len(sideA) == 0 || len(sideB) == 0 {
			continue
		}
		risks = append(risks, ConflictRisk{
			Type:        RiskValueConflict,
			MemberIDs:   append(append([]string{}, sideA...), sideB...),
			Probability: splitProbability(len(sideA), len(sideB), len(profiles)),
			Impact:      0.7,
			Triggers: []string{
				fmt.Sprintf("decisions forcing a choice between %s and %s", pair[0], pair[1]),
			},
		})
	}
	return risks
}

// detectParticipationDivergence fires when declared participation expectations
// span both high and low extremes.
func detectParticipationDivergence(profiles []profile.MemberProfile) []ConflictRisk {
	var high, low []string
	for _, p := range profiles {
		likelihood, ok := tendencyLikelihood(p, "participation")
		if !ok {
			continue
		}
		switch {
		case likelihood >= 0.7:
			high = append(high, p.MemberID)
		case likelihood <= 0.3:
			low = append(low, p.MemberID)
		}
	}
	if len(high) == 0 || len(low) == 0 {
		return nil
	}
	return []ConflictRisk{{
		Type:        RiskParticipationDivergence,
		MemberIDs:   append(append([]string{}, high...), low...),
		Probability: splitProbability(len(high), len(low), len(profiles)),
		Impact:      0.5,
		Triggers: []string{
			"uneven workload distribution",
			"silent members in group decisions",
		},
	}}
}

// detectLeadershipContention fires when two or more members show a strong
// leadership tendency.
func detectLeadershipContention(profiles []profile.MemberProfile) []ConflictRisk {
	var leaders []string
	for _, p := range profiles {
		likelihood, ok := tendencyLikelihood(p, "leadership")
		if ok && likelihood >= 0.7 {
			leaders = append(leaders, p.MemberID)
		}
	}
	if len(leaders) < 2 {
		return nil
	}
	probability := math.Min(0.3+0.2*float64(len(leaders)-1), probabilityCeiling)
	return []ConflictRisk{{
		Type:        RiskLeadershipContention,
		MemberIDs:   leaders,
		Probability: probability,
		Impact:      0.7,
		Triggers: []string{
			"ambiguous ownership of group decisions",
			"competing visions for group direction",
		},
	}}
}

// detectWorkStyleFriction fires on a split between analytical and creative
// problem-solving styles.
func detectWorkStyleFriction(profiles []profile.MemberProfile) []ConflictRisk {
	var analytical, creative []string
	for _, p := range profiles {
		if p.Cognitive == nil {
			continue
		}
		switch p.Cognitive.ProblemSolving {
		case profile.ProblemSolvingAnalytical:
			analytical = append(analytical, p.MemberID)
		case profile.ProblemSolvingCreative:
			creative = append(creative, p.MemberID)
		}
	}
	if len(analytical) == 0 || len(creative) == 0 {
		return nil
	}
	return []ConflictRisk{{
		Type:        RiskWorkStyleFriction,
		MemberIDs:   append(append([]string{}, analytical...), creative...),
		Probability: splitProbability(len(analytical), len(creative), len(profiles)),
		Impact:      0.4,
		Triggers: []string{
			"choosing between exploration and execution",
			"estimating effort for shared work",
		},
	}}
}

func tendencyLikelihood(p profile.MemberProfile, name string) (float64, bool) {
	if p.Behavioral == nil {
		return 0, false
	}
	for _, tendency := range p.Behavioral.Tendencies {
		if tendency.Name == name {
			return tendency.Likelihood, true
		}
	}
	return 0, false
}

func meanStddev(values []float64) (float64, float64) {
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}

package compatibility

import (
	"fmt"

	"github.com/attunelabs/attune/internal/profile"
)

// communicationTable scores declared communication style pairings. The table
// is symmetric and self-pairs score 1.0. Values are configuration constants
// tuned upstream and are preserved as given.
var communicationTable = map[profile.CommunicationStyle]map[profile.CommunicationStyle]float64{
	profile.CommunicationDirect: {
		profile.CommunicationDirect:     1.0,
		profile.CommunicationAnalytical: 0.7,
		profile.CommunicationSupportive: 0.5,
		profile.CommunicationExpressive: 0.6,
	},
	profile.CommunicationAnalytical: {
		profile.CommunicationAnalytical: 1.0,
		profile.CommunicationSupportive: 0.65,
		profile.CommunicationExpressive: 0.45,
	},
	profile.CommunicationSupportive: {
		profile.CommunicationSupportive: 1.0,
		profile.CommunicationExpressive: 0.75,
	},
	profile.CommunicationExpressive: {
		profile.CommunicationExpressive: 1.0,
	},
}

// conflictTable scores conflict-resolution style pairings on known friction
// and synergy combinations: two collaborators resolve well, a competitor
// facing an avoider does not.
var conflictTable = map[profile.ConflictStyle]map[profile.ConflictStyle]float64{
	profile.ConflictCollaborating: {
		profile.ConflictCollaborating: 0.9,
		profile.ConflictCompromising:  0.8,
		profile.ConflictAccommodating: 0.75,
		profile.ConflictCompeting:     0.6,
		profile.ConflictAvoiding:      0.55,
	},
	profile.ConflictCompromising: {
		profile.ConflictCompromising:  0.8,
		profile.ConflictAccommodating: 0.7,
		profile.ConflictCompeting:     0.5,
		profile.ConflictAvoiding:      0.5,
	},
	profile.ConflictAccommodating: {
		profile.ConflictAccommodating: 0.65,
		profile.ConflictCompeting:     0.45,
		profile.ConflictAvoiding:      0.5,
	},
	profile.ConflictCompeting: {
		profile.ConflictCompeting: 0.35,
		profile.ConflictAvoiding:  0.2,
	},
	profile.ConflictAvoiding: {
		profile.ConflictAvoiding: 0.4,
	},
}

const unknownStyleScore = neutralScore

func communicationTableScore(a, b profile.CommunicationStyle) float64 {
	if score, ok := communicationTable[a][b]; ok {
		return score
	}
	if score, ok := communicationTable[b][a]; ok {
		return score
	}
	return unknownStyleScore
}

func conflictTableScore(a, b profile.ConflictStyle) float64 {
	if score, ok := conflictTable[a][b]; ok {
		return score
	}
	if score, ok := conflictTable[b][a]; ok {
		return score
	}
	return unknownStyleScore
}

type factorGuidance struct {
	name           string
	strength       string
	challenge      string
	recommendation string
}

var guidanceByFactor = []factorGuidance{
	{
		name:           "personality",
		strength:       "Closely aligned personalities make day-to-day collaboration feel natural.",
		challenge:      "Very different personalities can make each other's reactions hard to predict.",
		recommendation: "Set aside time to learn how the other person prefers to work.",
	},
	{
		name:           "communication",
		strength:       "Matching communication styles keep conversations efficient.",
		challenge:      "Mismatched communication styles risk messages landing differently than intended.",
		recommendation: "Agree on a shared medium and cadence for important updates.",
	},
	{
		name:           "conflict",
		strength:       "Compatible conflict-resolution styles help disagreements resolve quickly.",
		challenge:      "Clashing conflict styles can let small disagreements escalate.",
		recommendation: "Name a neutral tie-breaking process before conflicts arise.",
	},
	{
		name:           "energy",
		strength:       "Similar social energy levels make shared activities easy to plan.",
		challenge:      "A large social-energy gap can leave one person drained and the other restless.",
		recommendation: "Alternate between high-energy and low-key formats for shared time.",
	},
}

// describePair turns factor scores into short natural-language guidance using
// fixed per-factor thresholds.
func describePair(detail PairDetail) (strengths, challenges, recommendations []string) {
	factors := []FactorScore{detail.Personality, detail.Communication, detail.Conflict, detail.Energy}
	for i, factor := range factors {
		if !factor.HasData {
			continue
		}
		guidance := guidanceByFactor[i]
		if factor.Score > strongFactorThreshold {
			strengths = append(strengths, guidance.strength)
		}
		if factor.Score < weakFactorThreshold {
			challenges = append(challenges, guidance.challenge)
			recommendations = append(recommendations, guidance.recommendation)
		}
	}
	if len(strengths) == 0 && len(challenges) == 0 && detail.Confidence > 0 {
		recommendations = append(recommendations,
			fmt.Sprintf("Compatibility is moderate (%.0f%%); invest in shared routines to strengthen it.", detail.Score*100))
	}
	return strengths, challenges, recommendations
}

package profile

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// legacyEnvelope captures older stored payload shapes alongside the current
// one. Older collectors wrote raw personality trait scores without a
// precomputed embedding, and a flat cognitive "style" field.
type legacyEnvelope struct {
	MemberProfile
	LegacyTraitScores map[string]float64 `json:"trait_scores,omitempty"`
	LegacyStyle       string             `json:"cognitive_style,omitempty"`
}

// Decode parses a stored profile payload, upgrading legacy shapes to the
// current one.
//
// The legacy upgrade is best-effort and lossy: a pseudo-embedding derived from
// trait scores approximates, but does not reproduce, the collector-computed
// embedding. Fields the legacy shape never recorded (conflict style, decision
// and learning styles) are left absent rather than guessed, so downstream
// scoring treats them as missing data.
func Decode(data []byte) (MemberProfile, error) {
	var envelope legacyEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return MemberProfile{}, fmt.Errorf("decode profile payload: %w", err)
	}

	decoded := envelope.MemberProfile
	if len(envelope.LegacyTraitScores) > 0 {
		decoded = upgradeLegacyPersonality(decoded, envelope.LegacyTraitScores)
	}
	if envelope.LegacyStyle != "" && decoded.Cognitive == nil {
		decoded.Cognitive = &Cognitive{
			ProblemSolving: ProblemSolvingStyle(canonicalStyle(envelope.LegacyStyle)),
		}
	}

	return decoded.Normalize()
}

// upgradeLegacyPersonality fills a missing embedding from raw trait scores.
// Trait keys are sorted so the derived vector is deterministic.
func upgradeLegacyPersonality(p MemberProfile, traitScores map[string]float64) MemberProfile {
	var personality Personality
	if p.Personality != nil {
		personality = *p.Personality
	}
	if personality.Traits == nil {
		personality.Traits = traitScores
	}
	if len(personality.Embedding) == 0 {
		names := make([]string, 0, len(traitScores))
		for name := range traitScores {
			names = append(names, name)
		}
		sort.Strings(names)

		embedding := make([]float64, 0, len(names))
		for _, name := range names {
			embedding = append(embedding, normalizeTraitScore(traitScores[name]))
		}
		personality.Embedding = embedding
	}
	p.Personality = &personality
	return p
}

// normalizeTraitScore rescales a raw 0-100 trait score into [-1, 1].
func normalizeTraitScore(score float64) float64 {
	scaled := score/50 - 1
	return math.Max(-1, math.Min(1, scaled))
}

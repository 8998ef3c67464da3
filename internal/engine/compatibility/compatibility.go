// Package compatibility scores pairwise member compatibility.
//
// The engine is pure: it performs no I/O and, given identical inputs, its
// output is bit-for-bit reproducible. Missing data never fails a computation;
// each factor reports hasData=false with a neutral score instead, and the pair
// confidence reflects how many factors had real data.
package compatibility

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/attunelabs/attune/internal/profile"
)

// Factor weights. They are configuration constants tuned upstream and are
// preserved as given.
const (
	personalityWeight   = 0.4
	communicationWeight = 0.3
	conflictWeight      = 0.2
	energyWeight        = 0.1
)

// neutralScore substitutes for a factor whose underlying data is missing.
const neutralScore = 0.5

// clusterThreshold is the minimum mutual score for greedy cluster membership.
const clusterThreshold = 0.75

// lowConfidenceThreshold triggers a log line for thin-data pairs.
const lowConfidenceThreshold = 0.75

const (
	strongFactorThreshold = 0.7
	weakFactorThreshold   = 0.4
)

// ErrTooFewMembers indicates fewer than two member profiles were supplied.
var ErrTooFewMembers = errors.New("compatibility requires at least two members")

// FactorScore is one factor's contribution with its data provenance.
type FactorScore struct {
	Score   float64 `json:"score"`
	HasData bool    `json:"has_data"`
}

// PairKey identifies an unordered member pair. A is always the
// lexicographically smaller ID so lookups are order-independent.
type PairKey struct {
	A string `json:"a"`
	B string `json:"b"`
}

// NewPairKey canonicalizes two member IDs into a PairKey.
func NewPairKey(a, b string) PairKey {
	if b < a {
		a, b = b, a
	}
	return PairKey{A: a, B: b}
}

// PairDetail is the full scored breakdown for one member pair.
type PairDetail struct {
	Score           float64     `json:"score"`
	Confidence      float64     `json:"confidence"`
	Personality     FactorScore `json:"personality"`
	Communication   FactorScore `json:"communication"`
	Conflict        FactorScore `json:"conflict"`
	Energy          FactorScore `json:"energy"`
	Strengths       []string    `json:"strengths,omitempty"`
	Challenges      []string    `json:"challenges,omitempty"`
	Recommendations []string    `json:"recommendations,omitempty"`
}

// HeatmapCell is one flattened matrix cell for rendering.
type HeatmapCell struct {
	MemberA string  `json:"member_a"`
	MemberB string  `json:"member_b"`
	Score   float64 `json:"score"`
}

// Result is the complete compatibility insight block for one group.
type Result struct {
	MemberIDs  []string                `json:"member_ids"`
	Matrix     map[string]map[string]float64 `json:"matrix"`
	Pairs      map[PairKey]PairDetail  `json:"-"`
	PairList   []ScoredPair            `json:"pairs"`
	Heatmap    []HeatmapCell           `json:"heatmap"`
	Clusters   [][]string              `json:"clusters"`
	MeanScore  float64                 `json:"mean_score"`
	Confidence float64                 `json:"confidence"`
}

// ScoredPair is a serialization-friendly pair entry, ordered deterministically.
type ScoredPair struct {
	Key    PairKey    `json:"key"`
	Detail PairDetail `json:"detail"`
}

// Pair returns the detail for an unordered member pair.
func (r Result) Pair(a, b string) (PairDetail, bool) {
	detail, ok := r.Pairs[NewPairKey(a, b)]
	return detail, ok
}

// Engine computes pairwise compatibility over validated member profiles.
type Engine struct {
	logf func(format string, args ...any)
}

// New constructs a compatibility engine. logf may be nil to disable logging.
func New(logf func(format string, args ...any)) *Engine {
	return &Engine{logf: logf}
}

// Compute scores every unordered member pair and derives the matrix, heatmap,
// clusters, and per-pair guidance.
func (e *Engine) Compute(profiles []profile.MemberProfile) (Result, error) {
	if len(profiles) < 2 {
		return Result{}, ErrTooFewMembers
	}

	byID := make(map[string]profile.MemberProfile, len(profiles))
	ids := make([]string, 0, len(profiles))
	for _, p := range profiles {
		if p.MemberID == "" {
			return Result{}, profile.ErrEmptyMemberID
		}
		if _, dup := byID[p.MemberID]; dup {
			return Result{}, fmt.Errorf("duplicate member id %q", p.MemberID)
		}
		byID[p.MemberID] = p
		ids = append(ids, p.MemberID)
	}
	sort.Strings(ids)

	matrix := make(map[string]map[string]float64, len(ids))
	for _, id := range ids {
		matrix[id] = make(map[string]float64, len(ids))
		matrix[id][id] = 1.0
	}

	pairs := make(map[PairKey]PairDetail)
	pairList := make([]ScoredPair, 0, len(ids)*(len(ids)-1)/2)
	totalScore := 0.0
	totalConfidence := 0.0
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			key := NewPairKey(ids[i], ids[j])
			detail := scorePair(byID[key.A], byID[key.B])
			if detail.Confidence < lowConfidenceThreshold {
				e.logDebug("pair %s/%s scored with low confidence %.2f", key.A, key.B, detail.Confidence)
			}
			pairs[key] = detail
			pairList = append(pairList, ScoredPair{Key: key, Detail: detail})
			matrix[key.A][key.B] = detail.Score
			matrix[key.B][key.A] = detail.Score
			totalScore += detail.Score
			totalConfidence += detail.Confidence
		}
	}

	pairCount := float64(len(pairList))
	result := Result{
		MemberIDs:  ids,
		Matrix:     matrix,
		Pairs:      pairs,
		PairList:   pairList,
		Heatmap:    flattenHeatmap(ids, matrix),
		Clusters:   clusterMembers(ids, matrix),
		MeanScore:  totalScore / pairCount,
		Confidence: totalConfidence / pairCount,
	}
	return result, nil
}

func (e *Engine) logDebug(format string, args ...any) {
	if e == nil || e.logf == nil {
		return
	}
	e.logf(format, args...)
}

func scorePair(a, b profile.MemberProfile) PairDetail {
	detail := PairDetail{
		Personality:   personalityFactor(a, b),
		Communication: communicationFactor(a, b),
		Conflict:      conflictFactor(a, b),
		Energy:        energyFactor(a, b),
	}

	weighted := detail.Personality.Score*personalityWeight +
		detail.Communication.Score*communicationWeight +
		detail.Conflict.Score*conflictWeight +
		detail.Energy.Score*energyWeight
	detail.Score = clamp01(weighted)

	withData := 0
	for _, factor := range []FactorScore{detail.Personality, detail.Communication, detail.Conflict, detail.Energy} {
		if factor.HasData {
			withData++
		}
	}
	detail.Confidence = float64(withData) / 4

	detail.Strengths, detail.Challenges, detail.Recommendations = describePair(detail)
	return detail
}

// personalityFactor rescales embedding cosine similarity from [-1,1] to [0,1].
func personalityFactor(a, b profile.MemberProfile) FactorScore {
	if a.Personality == nil || b.Personality == nil ||
		len(a.Personality.Embedding) == 0 || len(b.Personality.Embedding) == 0 {
		return FactorScore{Score: neutralScore}
	}
	similarity, ok := cosineSimilarity(a.Personality.Embedding, b.Personality.Embedding)
	if !ok {
		return FactorScore{Score: neutralScore}
	}
	return FactorScore{Score: clamp01((similarity + 1) / 2), HasData: true}
}

func communicationFactor(a, b profile.MemberProfile) FactorScore {
	if a.Personality == nil || b.Personality == nil ||
		a.Personality.CommunicationStyle == "" || b.Personality.CommunicationStyle == "" {
		return FactorScore{Score: neutralScore}
	}
	return FactorScore{
		Score:   communicationTableScore(a.Personality.CommunicationStyle, b.Personality.CommunicationStyle),
		HasData: true,
	}
}

func conflictFactor(a, b profile.MemberProfile) FactorScore {
	if a.Personality == nil || b.Personality == nil ||
		a.Personality.ConflictStyle == "" || b.Personality.ConflictStyle == "" {
		return FactorScore{Score: neutralScore}
	}
	return FactorScore{
		Score:   conflictTableScore(a.Personality.ConflictStyle, b.Personality.ConflictStyle),
		HasData: true,
	}
}

// energyFactor steps down as the social-energy gap between two members widens.
func energyFactor(a, b profile.MemberProfile) FactorScore {
	if a.Behavioral == nil || b.Behavioral == nil {
		return FactorScore{Score: neutralScore}
	}
	gap := math.Abs(a.Behavioral.SocialEnergy - b.Behavioral.SocialEnergy)
	score := 0.4
	switch {
	case gap < 20:
		score = 1.0
	case gap < 40:
		score = 0.8
	case gap < 60:
		score = 0.6
	}
	return FactorScore{Score: score, HasData: true}
}

func cosineSimilarity(a, b []float64) (float64, bool) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0, false
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, false
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), true
}

func flattenHeatmap(ids []string, matrix map[string]map[string]float64) []HeatmapCell {
	cells := make([]HeatmapCell, 0, len(ids)*len(ids))
	for _, a := range ids {
		for _, b := range ids {
			cells = append(cells, HeatmapCell{MemberA: a, MemberB: b, Score: matrix[a][b]})
		}
	}
	return cells
}

// clusterMembers greedily groups members by mutual compatibility: a member
// joins the first cluster where its score with every existing cluster member
// exceeds the threshold. Member order is sorted ID order, so the outcome is
// deterministic.
func clusterMembers(ids []string, matrix map[string]map[string]float64) [][]string {
	var clusters [][]string
	for _, id := range ids {
		placed := false
		for ci, cluster := range clusters {
			mutual := true
			for _, member := range cluster {
				if matrix[id][member] <= clusterThreshold {
					mutual = false
					break
				}
			}
			if mutual {
				clusters[ci] = append(clusters[ci], id)
				placed = true
				break
			}
		}
		if !placed {
			clusters = append(clusters, []string{id})
		}
	}
	return clusters
}

func clamp01(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}

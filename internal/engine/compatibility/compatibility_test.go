package compatibility

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/attunelabs/attune/internal/profile"
)

func fullProfile(id string, embedding []float64, comm profile.CommunicationStyle, conflict profile.ConflictStyle, energy float64) profile.MemberProfile {
	return profile.MemberProfile{
		MemberID: id,
		Personality: &profile.Personality{
			Embedding:          embedding,
			CommunicationStyle: comm,
			ConflictStyle:      conflict,
		},
		Behavioral: &profile.Behavioral{SocialEnergy: energy},
	}
}

func TestComputeRequiresTwoMembers(t *testing.T) {
	engine := New(nil)
	if _, err := engine.Compute([]profile.MemberProfile{{MemberID: "m1"}}); err != ErrTooFewMembers {
		t.Fatalf("err = %v, want ErrTooFewMembers", err)
	}
}

func TestComputeRejectsDuplicateMembers(t *testing.T) {
	engine := New(nil)
	members := []profile.MemberProfile{{MemberID: "m1"}, {MemberID: "m1"}}
	if _, err := engine.Compute(members); err == nil {
		t.Fatal("expected duplicate member error")
	}
}

func TestMatrixSymmetryAndDiagonal(t *testing.T) {
	engine := New(nil)
	members := []profile.MemberProfile{
		fullProfile("m1", []float64{1, 0}, profile.CommunicationDirect, profile.ConflictCollaborating, 60),
		fullProfile("m2", []float64{0.5, 0.5}, profile.CommunicationAnalytical, profile.ConflictCompromising, 30),
		fullProfile("m3", []float64{-1, 0.2}, profile.CommunicationSupportive, profile.ConflictAvoiding, 90),
	}

	result, err := engine.Compute(members)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	for _, a := range result.MemberIDs {
		if result.Matrix[a][a] != 1.0 {
			t.Fatalf("diagonal [%s][%s] = %v, want 1.0", a, a, result.Matrix[a][a])
		}
		for _, b := range result.MemberIDs {
			if result.Matrix[a][b] != result.Matrix[b][a] {
				t.Fatalf("matrix[%s][%s] = %v, matrix[%s][%s] = %v; want symmetric",
					a, b, result.Matrix[a][b], b, a, result.Matrix[b][a])
			}
		}
	}
}

func TestScoresAndConfidenceInRange(t *testing.T) {
	engine := New(nil)
	members := []profile.MemberProfile{
		fullProfile("m1", []float64{1, 1}, profile.CommunicationDirect, profile.ConflictCompeting, 100),
		fullProfile("m2", []float64{-1, -1}, profile.CommunicationExpressive, profile.ConflictAvoiding, 0),
		{MemberID: "m3"},
	}

	result, err := engine.Compute(members)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	for _, pair := range result.PairList {
		d := pair.Detail
		for _, factor := range []FactorScore{d.Personality, d.Communication, d.Conflict, d.Energy} {
			if factor.Score < 0 || factor.Score > 1 {
				t.Fatalf("factor score %v out of range for pair %v", factor.Score, pair.Key)
			}
		}
		if d.Score < 0 || d.Score > 1 {
			t.Fatalf("pair score %v out of range for pair %v", d.Score, pair.Key)
		}
		if d.Confidence < 0 || d.Confidence > 1 {
			t.Fatalf("confidence %v out of range for pair %v", d.Confidence, pair.Key)
		}
	}
}

func TestMissingDataIsNeutralNotZero(t *testing.T) {
	engine := New(nil)
	members := []profile.MemberProfile{
		fullProfile("m1", []float64{1, 0}, profile.CommunicationDirect, profile.ConflictCollaborating, 50),
		{MemberID: "m2"},
	}

	result, err := engine.Compute(members)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	detail, ok := result.Pair("m2", "m1")
	if !ok {
		t.Fatal("pair lookup must be order-independent")
	}
	for name, factor := range map[string]FactorScore{
		"personality":   detail.Personality,
		"communication": detail.Communication,
		"conflict":      detail.Conflict,
		"energy":        detail.Energy,
	} {
		if factor.HasData {
			t.Fatalf("%s hasData = true, want false", name)
		}
		if factor.Score != 0.5 {
			t.Fatalf("%s score = %v, want neutral 0.5", name, factor.Score)
		}
	}
	if detail.Confidence != 0 {
		t.Fatalf("confidence = %v, want 0", detail.Confidence)
	}
}

func TestEnergyStepFunction(t *testing.T) {
	cases := []struct {
		gap  float64
		want float64
	}{
		{gap: 10, want: 1.0},
		{gap: 25, want: 0.8},
		{gap: 45, want: 0.6},
		{gap: 80, want: 0.4},
	}
	for _, tc := range cases {
		a := profile.MemberProfile{MemberID: "a", Behavioral: &profile.Behavioral{SocialEnergy: 0}}
		b := profile.MemberProfile{MemberID: "b", Behavioral: &profile.Behavioral{SocialEnergy: tc.gap}}
		factor := energyFactor(a, b)
		if !factor.HasData {
			t.Fatalf("gap %v: hasData = false, want true", tc.gap)
		}
		if factor.Score != tc.want {
			t.Fatalf("gap %v: score = %v, want %v", tc.gap, factor.Score, tc.want)
		}
	}
}

func TestSelfCommunicationPairsScoreFull(t *testing.T) {
	styles := []profile.CommunicationStyle{
		profile.CommunicationDirect,
		profile.CommunicationAnalytical,
		profile.CommunicationSupportive,
		profile.CommunicationExpressive,
	}
	for _, style := range styles {
		if got := communicationTableScore(style, style); got != 1.0 {
			t.Fatalf("self pair %q = %v, want 1.0", style, got)
		}
	}
}

func TestConflictTableEncodesKnownFriction(t *testing.T) {
	low := conflictTableScore(profile.ConflictCompeting, profile.ConflictAvoiding)
	high := conflictTableScore(profile.ConflictCollaborating, profile.ConflictCollaborating)
	if low >= high {
		t.Fatalf("competing+avoiding = %v should be below collaborating pair = %v", low, high)
	}
	// Table lookups must be symmetric.
	if conflictTableScore(profile.ConflictAvoiding, profile.ConflictCompeting) != low {
		t.Fatal("conflict table lookup is not symmetric")
	}
}

func TestComputeDeterministic(t *testing.T) {
	engine := New(nil)
	members := []profile.MemberProfile{
		fullProfile("m3", []float64{0.3, 0.7}, profile.CommunicationExpressive, profile.ConflictAccommodating, 70),
		fullProfile("m1", []float64{1, 0}, profile.CommunicationDirect, profile.ConflictCollaborating, 60),
		fullProfile("m2", []float64{0.5, 0.5}, profile.CommunicationAnalytical, profile.ConflictCompromising, 30),
	}

	first, err := engine.Compute(members)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	second, err := engine.Compute(members)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}

	firstJSON, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal first: %v", err)
	}
	secondJSON, err := json.Marshal(second)
	if err != nil {
		t.Fatalf("marshal second: %v", err)
	}
	if string(firstJSON) != string(secondJSON) {
		t.Fatal("identical inputs must produce byte-identical output")
	}
}

func TestClusteringMutualThreshold(t *testing.T) {
	// m1 and m2 are highly compatible; m3 is incompatible with both.
	matrix := map[string]map[string]float64{
		"m1": {"m1": 1, "m2": 0.9, "m3": 0.2},
		"m2": {"m1": 0.9, "m2": 1, "m3": 0.3},
		"m3": {"m1": 0.2, "m2": 0.3, "m3": 1},
	}
	clusters := clusterMembers([]string{"m1", "m2", "m3"}, matrix)
	want := [][]string{{"m1", "m2"}, {"m3"}}
	if !reflect.DeepEqual(clusters, want) {
		t.Fatalf("clusters = %v, want %v", clusters, want)
	}
}

func TestHeatmapCoversAllCells(t *testing.T) {
	engine := New(nil)
	members := []profile.MemberProfile{
		fullProfile("m1", []float64{1, 0}, profile.CommunicationDirect, profile.ConflictCollaborating, 60),
		fullProfile("m2", []float64{0, 1}, profile.CommunicationAnalytical, profile.ConflictCompromising, 30),
	}
	result, err := engine.Compute(members)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(result.Heatmap) != 4 {
		t.Fatalf("heatmap cells = %d, want 4", len(result.Heatmap))
	}
}

func TestDescribePairThresholds(t *testing.T) {
	detail := PairDetail{
		Personality:   FactorScore{Score: 0.9, HasData: true},
		Communication: FactorScore{Score: 0.2, HasData: true},
		Conflict:      FactorScore{Score: 0.5, HasData: true},
		Energy:        FactorScore{Score: 0.5},
		Confidence:    0.75,
	}
	strengths, challenges, recommendations := describePair(detail)
	if len(strengths) != 1 {
		t.Fatalf("strengths = %v, want one personality strength", strengths)
	}
	if len(challenges) != 1 {
		t.Fatalf("challenges = %v, want one communication challenge", challenges)
	}
	if len(recommendations) != 1 {
		t.Fatalf("recommendations = %v, want one communication recommendation", recommendations)
	}
}

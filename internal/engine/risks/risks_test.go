package risks

import (
	"math"
	"testing"

	"github.com/attunelabs/attune/internal/profile"
)

func TestSeverityDerivation(t *testing.T) {
	cases := []struct {
		probability float64
		impact      float64
		want        Severity
	}{
		{0.9, 0.9, SeverityCritical},  // 0.81
		{0.9, 0.6, SeverityHigh},      // 0.54
		{0.7, 0.5, SeverityMedium},    // 0.35
		{0.2, 0.5, SeverityLow},       // 0.10
		{1.0, 0.7, SeverityCritical},  // boundary 0.7
		{1.0, 0.5, SeverityHigh},      // boundary 0.5
		{1.0, 0.3, SeverityMedium},    // boundary 0.3
	}
	for _, tc := range cases {
		if got := SeverityFor(tc.probability, tc.impact); got != tc.want {
			t.Fatalf("SeverityFor(%v, %v) = %q, want %q", tc.probability, tc.impact, got, tc.want)
		}
	}
}

func TestSeverityMonotonicity(t *testing.T) {
	rank := map[Severity]int{SeverityLow: 0, SeverityMedium: 1, SeverityHigh: 2, SeverityCritical: 3}
	scores := []float64{0.05, 0.29, 0.3, 0.49, 0.5, 0.69, 0.7, 0.9}
	for i := 1; i < len(scores); i++ {
		a := SeverityFor(scores[i], 1.0)
		b := SeverityFor(scores[i-1], 1.0)
		if rank[a] < rank[b] {
			t.Fatalf("severity not monotone: score %v -> %q below score %v -> %q",
				scores[i], a, scores[i-1], b)
		}
	}
}

func TestSplitProbabilityRewardsBalance(t *testing.T) {
	balanced := splitProbability(3, 3, 6)
	lopsided := splitProbability(5, 1, 6)
	if balanced <= lopsided {
		t.Fatalf("balanced split %v should exceed lopsided split %v", balanced, lopsided)
	}
	// Balanced halves: 0.5*0.5*2*(1-0) = 0.5
	if math.Abs(balanced-0.5) > 1e-9 {
		t.Fatalf("balanced split = %v, want 0.5", balanced)
	}
	if splitProbability(0, 3, 6) != 0 {
		t.Fatal("empty side must produce zero probability")
	}
}

func TestResolutionMismatchRule(t *testing.T) {
	predictor := New()

	risks := predictor.Predict([]profile.MemberProfile{
		{MemberID: "m1", Personality: &profile.Personality{ConflictStyle: profile.ConflictCompeting}},
		{MemberID: "m2", Personality: &profile.Personality{ConflictStyle: profile.ConflictAvoiding}},
	})

	risk := findRisk(t, risks, RiskResolutionMismatch)
	if risk.Probability <= 0 {
		t.Fatalf("probability = %v, want > 0", risk.Probability)
	}
	if risk.Severity == "" {
		t.Fatal("severity must be derived")
	}
	if len(risk.Mitigations) == 0 {
		t.Fatal("expected mitigation strategies")
	}
	if len(risk.MemberIDs) != 2 {
		t.Fatalf("member ids = %v, want both members", risk.MemberIDs)
	}
}

func TestEmpathyGapOutlierDetection(t *testing.T) {
	predictor := New()

	risks := predictor.Predict([]profile.MemberProfile{
		{MemberID: "m1", Behavioral: &profile.Behavioral{Empathy: 80}},
		{MemberID: "m2", Behavioral: &profile.Behavioral{Empathy: 85}},
		{MemberID: "m3", Behavioral: &profile.Behavioral{Empathy: 90}},
		{MemberID: "m4", Behavioral: &profile.Behavioral{Empathy: 10}},
	})

	risk := findRisk(t, risks, RiskEmpathyGap)
	if len(risk.MemberIDs) != 1 || risk.MemberIDs[0] != "m4" {
		t.Fatalf("outliers = %v, want [m4]", risk.MemberIDs)
	}
}

func TestEmpathyGapSkipsUniformGroups(t *testing.T) {
	predictor := New()

	risks := predictor.Predict([]profile.MemberProfile{
		{MemberID: "m1", Behavioral: &profile.Behavioral{Empathy: 50}},
		{MemberID: "m2", Behavioral: &profile.Behavioral{Empathy: 50}},
	})
	for _, r := range risks {
		if r.Type == RiskEmpathyGap {
			t.Fatal("uniform empathy must not fire the gap rule")
		}
	}
}

func TestValueConflictUsesAntagonisticTable(t *testing.T) {
	predictor := New()

	risks := predictor.Predict([]profile.MemberProfile{
		{MemberID: "m1", Values: &profile.Values{CoreValues: []string{"tradition"}}},
		{MemberID: "m2", Values: &profile.Values{CoreValues: []string{"innovation"}}},
		{MemberID: "m3", Values: &profile.Values{CoreValues: []string{"balance"}}},
	})

	risk := findRisk(t, risks, RiskValueConflict)
	if len(risk.MemberIDs) != 2 {
		t.Fatalf("member ids = %v, want the two conflicting members", risk.MemberIDs)
	}
}

func TestLeadershipContentionNeedsTwoLeaders(t *testing.T) {
	predictor := New()

	leader := func(id string, likelihood float64) profile.MemberProfile {
		return profile.MemberProfile{
			MemberID: id,
			Behavioral: &profile.Behavioral{
				Tendencies: []profile.Tendency{{Name: "leadership", Likelihood: likelihood}},
			},
		}
	}

	single := predictor.Predict([]profile.MemberProfile{leader("m1", 0.9), leader("m2", 0.4)})
	for _, r := range single {
		if r.Type == RiskLeadershipContention {
			t.Fatal("one strong leader must not fire contention")
		}
	}

	double := predictor.Predict([]profile.MemberProfile{leader("m1", 0.9), leader("m2", 0.8)})
	risk := findRisk(t, double, RiskLeadershipContention)
	if len(risk.MemberIDs) != 2 {
		t.Fatalf("member ids = %v, want both leaders", risk.MemberIDs)
	}
}

func TestPredictSortedByRiskScore(t *testing.T) {
	predictor := New()

	risks := predictor.Predict([]profile.MemberProfile{
		{
			MemberID:    "m1",
			Personality: &profile.Personality{ConflictStyle: profile.ConflictCompeting, CommunicationStyle: profile.CommunicationDirect},
			Behavioral:  &profile.Behavioral{SocialEnergy: 90, Empathy: 80},
			Cognitive:   &profile.Cognitive{ProblemSolving: profile.ProblemSolvingAnalytical},
		},
		{
			MemberID:    "m2",
			Personality: &profile.Personality{ConflictStyle: profile.ConflictAvoiding, CommunicationStyle: profile.CommunicationSupportive},
			Behavioral:  &profile.Behavioral{SocialEnergy: 10, Empathy: 20},
			Cognitive:   &profile.Cognitive{ProblemSolving: profile.ProblemSolvingCreative},
		},
	})

	if len(risks) < 3 {
		t.Fatalf("expected several fired rules, got %d", len(risks))
	}
	for i := 1; i < len(risks); i++ {
		if risks[i-1].Score() < risks[i].Score() {
			t.Fatalf("risks not sorted by score at index %d", i)
		}
	}
}

func TestUnknownTypeGetsGenericMitigations(t *testing.T) {
	strategies := mitigationsFor(RiskType("unrecognized"))
	if len(strategies) != len(genericMitigations) {
		t.Fatalf("strategies = %v, want generic fallback", strategies)
	}
}

func TestPredictEmptyForSmallGroups(t *testing.T) {
	predictor := New()
	if got := predictor.Predict([]profile.MemberProfile{{MemberID: "m1"}}); len(got) != 0 {
		t.Fatalf("single member risks = %v, want empty", got)
	}
}

func findRisk(t *testing.T, risks []ConflictRisk, riskType RiskType) ConflictRisk {
	t.Helper()
	for _, r := range risks {
		if r.Type == riskType {
			return r
		}
	}
	t.Fatalf("risk type %q not found in %v", riskType, risks)
	return ConflictRisk{}
}

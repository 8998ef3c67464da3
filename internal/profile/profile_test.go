package profile

import (
	"encoding/json"
	"testing"
)

func TestNormalizeRequiresMemberID(t *testing.T) {
	if _, err := (MemberProfile{}).Normalize(); err != ErrEmptyMemberID {
		t.Fatalf("err = %v, want ErrEmptyMemberID", err)
	}
}

func TestNormalizeCanonicalizesStyles(t *testing.T) {
	p := MemberProfile{
		MemberID: " member-1 ",
		Personality: &Personality{
			CommunicationStyle: " Direct ",
			ConflictStyle:      "COLLABORATING",
		},
		Cognitive: &Cognitive{ProblemSolving: "Creative"},
	}

	normalized, err := p.Normalize()
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if normalized.MemberID != "member-1" {
		t.Fatalf("member id = %q, want %q", normalized.MemberID, "member-1")
	}
	if normalized.Personality.CommunicationStyle != CommunicationDirect {
		t.Fatalf("communication style = %q, want %q", normalized.Personality.CommunicationStyle, CommunicationDirect)
	}
	if normalized.Personality.ConflictStyle != ConflictCollaborating {
		t.Fatalf("conflict style = %q, want %q", normalized.Personality.ConflictStyle, ConflictCollaborating)
	}
	if normalized.Cognitive.ProblemSolving != ProblemSolvingCreative {
		t.Fatalf("problem solving = %q, want %q", normalized.Cognitive.ProblemSolving, ProblemSolvingCreative)
	}
	// Normalize must not mutate the input's sub-records.
	if p.Personality.CommunicationStyle != " Direct " {
		t.Fatal("normalize mutated input personality")
	}
}

func TestCompleteness(t *testing.T) {
	full := MemberProfile{
		MemberID:    "m1",
		Personality: &Personality{},
		Behavioral:  &Behavioral{},
		Cognitive:   &Cognitive{},
		Values:      &Values{},
	}
	if got := full.Completeness(); got != 1.0 {
		t.Fatalf("completeness = %v, want 1.0", got)
	}

	half := MemberProfile{MemberID: "m2", Personality: &Personality{}, Behavioral: &Behavioral{}}
	if got := half.Completeness(); got != 0.5 {
		t.Fatalf("completeness = %v, want 0.5", got)
	}

	if got := SetCompleteness([]MemberProfile{full, half}); got != 0.75 {
		t.Fatalf("set completeness = %v, want 0.75", got)
	}
	if got := SetCompleteness(nil); got != 0 {
		t.Fatalf("empty set completeness = %v, want 0", got)
	}
}

func TestDecodeCurrentShape(t *testing.T) {
	payload, err := json.Marshal(MemberProfile{
		MemberID: "m1",
		Personality: &Personality{
			Embedding:          []float64{0.1, 0.2},
			CommunicationStyle: CommunicationDirect,
		},
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	decoded, err := Decode(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded.Personality.Embedding) != 2 {
		t.Fatalf("embedding len = %d, want 2", len(decoded.Personality.Embedding))
	}
}

func TestDecodeLegacyTraitScores(t *testing.T) {
	payload := []byte(`{
		"member_id": "m1",
		"trait_scores": {"openness": 100, "agreeableness": 50, "neuroticism": 0}
	}`)

	decoded, err := Decode(payload)
	if err != nil {
		t.Fatalf("decode legacy: %v", err)
	}
	if decoded.Personality == nil {
		t.Fatal("expected derived personality sub-record")
	}
	// Sorted trait order: agreeableness, neuroticism, openness.
	want := []float64{0, -1, 1}
	if len(decoded.Personality.Embedding) != len(want) {
		t.Fatalf("embedding len = %d, want %d", len(decoded.Personality.Embedding), len(want))
	}
	for i, v := range want {
		if decoded.Personality.Embedding[i] != v {
			t.Fatalf("embedding[%d] = %v, want %v", i, decoded.Personality.Embedding[i], v)
		}
	}
	if decoded.Personality.ConflictStyle != "" {
		t.Fatalf("legacy conflict style = %q, want absent", decoded.Personality.ConflictStyle)
	}
}

func TestDecodeLegacyCognitiveStyle(t *testing.T) {
	payload := []byte(`{"member_id": "m1", "cognitive_style": "Analytical"}`)

	decoded, err := Decode(payload)
	if err != nil {
		t.Fatalf("decode legacy cognitive: %v", err)
	}
	if decoded.Cognitive == nil {
		t.Fatal("expected cognitive sub-record")
	}
	if decoded.Cognitive.ProblemSolving != ProblemSolvingAnalytical {
		t.Fatalf("problem solving = %q, want %q", decoded.Cognitive.ProblemSolving, ProblemSolvingAnalytical)
	}
	if decoded.Cognitive.Decision != "" {
		t.Fatalf("legacy decision style = %q, want absent", decoded.Cognitive.Decision)
	}
}

package synthesis

import (
	"context"
	"fmt"
	"strings"

	"github.com/attunelabs/attune/internal/analysis"
)

// SourceFallback marks narratives composed from local templates.
const SourceFallback = "fallback"

// Fallback composes a narrative purely from template rules over the numeric
// insights. Its output is deterministic for a given result.
type Fallback struct{}

// NewFallback constructs the template strategy.
func NewFallback() *Fallback {
	return &Fallback{}
}

// Synthesize renders the four narrative sections from the numeric insights.
func (f *Fallback) Synthesize(ctx context.Context, result *analysis.GroupAnalysisResult) (analysis.Narrative, error) {
	if err := ctx.Err(); err != nil {
		return analysis.Narrative{}, err
	}
	narrative := analysis.Narrative{
		Overview:      overviewText(result),
		Compatibility: compatibilityText(result),
		Strengths:     strengthsText(result),
		Challenges:    challengesText(result),
		Opportunities: opportunitiesText(result),
		Source:        SourceFallback,
	}
	narrative.KeyInsights = keyInsights(result)
	narrative.Recommendations = recommendations(result)
	return narrative, nil
}

var _ analysis.Synthesizer = (*Fallback)(nil)

func overviewText(result *analysis.GroupAnalysisResult) string {
	tone := "mixed"
	if compat := result.Compatibility; compat != nil {
		switch {
		case compat.MeanScore >= 0.7:
			tone = "strong"
		case compat.MeanScore >= 0.5:
			tone = "workable"
		default:
			tone = "strained"
		}
	}
	return fmt.Sprintf("This group of %d members shows %s overall chemistry, with %d notable strengths and %d areas of potential friction.",
		result.MemberCount, tone, len(result.Strengths), len(result.Risks))
}

func compatibilityText(result *analysis.GroupAnalysisResult) string {
	compat := result.Compatibility
	if compat == nil {
		return "Compatibility could not be assessed from the available data."
	}
	text := fmt.Sprintf("Average pairwise compatibility is %.0f%%.", compat.MeanScore*100)
	if len(compat.Clusters) > 0 {
		text += fmt.Sprintf(" %d highly compatible subgroup(s) emerged.", len(compat.Clusters))
	}
	if compat.Confidence < 0.5 {
		text += " Confidence in these scores is limited by incomplete profile data."
	}
	return text
}

func strengthsText(result *analysis.GroupAnalysisResult) string {
	if len(result.Strengths) == 0 {
		return "No group-wide strength patterns cleared the confidence threshold."
	}
	names := make([]string, 0, len(result.Strengths))
	for i, s := range result.Strengths {
		if i >= 3 {
			break
		}
		names = append(names, s.Name)
	}
	return fmt.Sprintf("The group's most pronounced strengths are %s.", strings.Join(names, ", "))
}

func challengesText(result *analysis.GroupAnalysisResult) string {
	if len(result.Risks) == 0 {
		return "No significant conflict risks were predicted."
	}
	top := result.Risks[0]
	return fmt.Sprintf("The leading challenge is %s (%s severity, %.0f%% probability) involving %d member(s).",
		strings.ReplaceAll(string(top.Type), "_", " "), top.Severity, top.Probability*100, len(top.MemberIDs))
}

func opportunitiesText(result *analysis.GroupAnalysisResult) string {
	if goals := result.GoalAlignment; goals != nil && len(goals.SharedValues) > 0 {
		return fmt.Sprintf("Shared commitment to %s gives the group a natural rallying point for joint goals.",
			strings.Join(goals.SharedValues, " and "))
	}
	if len(result.Strengths) > 0 {
		return fmt.Sprintf("Leaning into the %s strength would raise the group's ceiling.", result.Strengths[0].Name)
	}
	return "Collecting more complete member profiles would unlock sharper guidance."
}

func keyInsights(result *analysis.GroupAnalysisResult) []string {
	var insights []string
	if compat := result.Compatibility; compat != nil {
		insights = append(insights, fmt.Sprintf("Overall compatibility sits at %.0f%%.", compat.MeanScore*100))
	}
	for i, s := range result.Strengths {
		if i >= 2 {
			break
		}
		insights = append(insights, fmt.Sprintf("%.0f%% of members share the %s pattern.", s.Prevalence*100, s.Name))
	}
	for i, r := range result.Risks {
		if i >= 2 {
			break
		}
		insights = append(insights, fmt.Sprintf("Watch for %s (%s severity).",
			strings.ReplaceAll(string(r.Type), "_", " "), r.Severity))
	}
	if goals := result.GoalAlignment; goals != nil && len(goals.Divergent) > 0 {
		insights = append(insights, fmt.Sprintf("Values held by only one member: %s.", strings.Join(goals.Divergent, ", ")))
	}
	return insights
}

func recommendations(result *analysis.GroupAnalysisResult) []string {
	var recs []string
	for i, r := range result.Risks {
		if i >= 2 {
			break
		}
		if len(r.Mitigations) > 0 {
			recs = append(recs, r.Mitigations[0])
		}
	}
	for i, s := range result.Strengths {
		if i >= 2 {
			break
		}
		if len(s.Applications) > 0 {
			recs = append(recs, s.Applications[0])
		}
	}
	if len(recs) == 0 {
		recs = append(recs, "Schedule a kickoff conversation about working styles and expectations.")
	}
	return recs
}

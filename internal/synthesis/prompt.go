package synthesis

import (
	"fmt"
	"strings"

	"github.com/attunelabs/attune/internal/analysis"
)

// maxPromptItems caps how many strengths and risks the prompt enumerates.
const maxPromptItems = 5

const promptInstructions = `You are an expert in group dynamics. Using the metrics below, write a JSON object with exactly these string fields: "overview", "compatibility", "strengths", "challenges", "opportunities", plus string arrays "key_insights" and "recommendations". Ground every statement in the supplied numbers. Respond with JSON only.`

// buildPrompt renders the numeric insights into a natural-language prompt.
func buildPrompt(result *analysis.GroupAnalysisResult) string {
	var b strings.Builder
	b.WriteString(promptInstructions)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Group of %d members, data completeness %.0f%%.\n", result.MemberCount, result.DataCompleteness*100)

	if compat := result.Compatibility; compat != nil {
		fmt.Fprintf(&b, "Mean compatibility %.2f (confidence %.2f) across %d pairs.\n", compat.MeanScore, compat.Confidence, len(compat.PairList))
		for i, pair := range compat.PairList {
			if i >= maxPromptItems {
				break
			}
			fmt.Fprintf(&b, "- pair %s/%s scored %.2f\n", pair.Key.A, pair.Key.B, pair.Detail.Score)
		}
	}
	if len(result.Strengths) > 0 {
		b.WriteString("Detected strengths:\n")
		for i, s := range result.Strengths {
			if i >= maxPromptItems {
				break
			}
			fmt.Fprintf(&b, "- %s (%s, prevalence %.2f, confidence %.2f)\n", s.Name, s.Category, s.Prevalence, s.Confidence)
		}
	}
	if len(result.Risks) > 0 {
		b.WriteString("Predicted conflict risks:\n")
		for i, r := range result.Risks {
			if i >= maxPromptItems {
				break
			}
			fmt.Fprintf(&b, "- %s (%s severity, probability %.2f)\n", r.Type, r.Severity, r.Probability)
		}
	}
	if goals := result.GoalAlignment; goals != nil {
		fmt.Fprintf(&b, "Goal alignment %.2f", goals.Score)
		if len(goals.SharedValues) > 0 {
			fmt.Fprintf(&b, "; shared values: %s", strings.Join(goals.SharedValues, ", "))
		}
		if len(goals.Divergent) > 0 {
			fmt.Fprintf(&b, "; divergent values: %s", strings.Join(goals.Divergent, ", "))
		}
		b.WriteString(".\n")
	}
	return b.String()
}

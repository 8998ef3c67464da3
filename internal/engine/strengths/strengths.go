// Package strengths detects group-wide behavioral, cognitive, and value
// patterns.
//
// A pattern is only emitted when it clears both the prevalence threshold
// (fraction of members exhibiting it) and, for likelihood-bearing facts, the
// per-member likelihood threshold. Results are ephemeral: every detection run
// recomputes the full list from scratch.
package strengths

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/attunelabs/attune/internal/profile"
)

// Detection thresholds. They are configuration constants tuned upstream and
// are preserved as given.
const (
	prevalenceThreshold = 0.6
	likelihoodThreshold = 0.7
	confidenceCap       = 0.95
)

// Category classifies a detected pattern.
type Category string

const (
	CategoryBehavioral Category = "behavioral"
	CategoryCognitive  Category = "cognitive"
	CategoryValue      Category = "value"
	CategorySkill      Category = "skill"
)

// Strength is one detected group-wide pattern.
type Strength struct {
	Name         string   `json:"name"`
	Category     Category `json:"category"`
	Prevalence   float64  `json:"prevalence"`
	Strength     float64  `json:"strength"`
	MemberCount  int      `json:"member_count"`
	Confidence   float64  `json:"confidence"`
	Applications []string `json:"applications,omitempty"`
	Description  string   `json:"description"`
}

// Detector runs the four detection passes over a member profile set.
type Detector struct{}

// New constructs a strength detector.
func New() *Detector {
	return &Detector{}
}

// Detect returns every pattern clearing both thresholds, sorted descending by
// prevalence x strength x confidence. Fewer than two members yields an empty
// list, not an error.
func (d *Detector) Detect(profiles []profile.MemberProfile) []Strength {
	if len(profiles) < 2 {
		return []Strength{}
	}

	memberCount := len(profiles)
	detected := make([]Strength, 0, 8)
	detected = append(detected, detectBehavioral(profiles)...)
	detected = append(detected, detectStyleMajorities(profiles)...)
	detected = append(detected, detectSharedValues(profiles)...)
	detected = append(detected, detectEmergent(profiles, detected)...)

	for i := range detected {
		detected[i].Confidence = patternConfidence(detected[i], memberCount)
		detected[i].Description = describePattern(detected[i])
		detected[i].Applications = applicationsFor(detected[i].Category)
	}

	sort.SliceStable(detected, func(i, j int) bool {
		return rankScore(detected[i]) > rankScore(detected[j])
	})
	return detected
}

func rankScore(s Strength) float64 {
	return s.Prevalence * s.Strength * s.Confidence
}

// patternConfidence blends prevalence, mean strength, and group size.
func patternConfidence(s Strength, memberCount int) float64 {
	sizeFactor := math.Min(float64(memberCount)/10, 1)
	confidence := 0.4*s.Prevalence + 0.4*s.Strength + 0.2*sizeFactor
	return math.Min(confidence, confidenceCap)
}

// detectBehavioral finds tendencies exhibited at likelihood >= 0.7 by at
// least 60% of members.
func detectBehavioral(profiles []profile.MemberProfile) []Strength {
	type tally struct {
		count int
		sum   float64
	}
	tallies := make(map[string]*tally)
	for _, p := range profiles {
		if p.Behavioral == nil {
			continue
		}
		seen := make(map[string]bool)
		for _, tendency := range p.Behavioral.Tendencies {
			name := strings.ToLower(strings.TrimSpace(tendency.Name))
			if name == "" || seen[name] || tendency.Likelihood < likelihoodThreshold {
				continue
			}
			seen[name] = true
			entry := tallies[name]
			if entry == nil {
				entry = &tally{}
				tallies[name] = entry
			}
			entry.count++
			entry.sum += tendency.Likelihood
		}
	}

	names := make([]string, 0, len(tallies))
	for name := range tallies {
		names = append(names, name)
	}
	sort.Strings(names)

	memberCount := len(profiles)
	var results []Strength
	for _, name := range names {
		entry := tallies[name]
		prevalence := float64(entry.count) / float64(memberCount)
		if prevalence < prevalenceThreshold {
			continue
		}
		results = append(results, Strength{
			Name:        name,
			Category:    CategoryBehavioral,
			Prevalence:  prevalence,
			Strength:    entry.sum / float64(entry.count),
			MemberCount: entry.count,
		})
	}
	return results
}

// detectStyleMajorities finds declared style values shared by at least 60% of
// members, across communication and the three cognitive styles.
func detectStyleMajorities(profiles []profile.MemberProfile) []Strength {
	type styleFact struct {
		kind  string
		value string
	}
	tallies := make(map[styleFact]int)
	for _, p := range profiles {
		if p.Personality != nil && p.Personality.CommunicationStyle != "" {
			tallies[styleFact{"communication", string(p.Personality.CommunicationStyle)}]++
		}
		if p.Cognitive == nil {
			continue
		}
		if p.Cognitive.ProblemSolving != "" {
			tallies[styleFact{"problem-solving", string(p.Cognitive.ProblemSolving)}]++
		}
		if p.Cognitive.Decision != "" {
			tallies[styleFact{"decision-making", string(p.Cognitive.Decision)}]++
		}
		if p.Cognitive.Learning != "" {
			tallies[styleFact{"learning", string(p.Cognitive.Learning)}]++
		}
	}

	facts := make([]styleFact, 0, len(tallies))
	for fact := range tallies {
		facts = append(facts, fact)
	}
	sort.Slice(facts, func(i, j int) bool {
		if facts[i].kind != facts[j].kind {
			return facts[i].kind < facts[j].kind
		}
		return facts[i].value < facts[j].value
	})

	memberCount := len(profiles)
	var results []Strength
	for _, fact := range facts {
		count := tallies[fact]
		prevalence := float64(count) / float64(memberCount)
		if prevalence < prevalenceThreshold {
			continue
		}
		results = append(results, Strength{
			Name:        fmt.Sprintf("shared %s style: %s", fact.kind, fact.value),
			Category:    CategoryCognitive,
			Prevalence:  prevalence,
			Strength:    prevalence,
			MemberCount: count,
		})
	}
	return results
}

// detectSharedValues finds core values held by at least 60% of members, and
// motivation drivers held at strength >= 0.7 by at least 60% of members.
func detectSharedValues(profiles []profile.MemberProfile) []Strength {
	valueCounts := make(map[string]int)
	type driverTally struct {
		count int
		sum   float64
	}
	driverTallies := make(map[string]*driverTally)
	for _, p := range profiles {
		if p.Values == nil {
			continue
		}
		seenValues := make(map[string]bool)
		for _, value := range p.Values.CoreValues {
			name := strings.ToLower(strings.TrimSpace(value))
			if name == "" || seenValues[name] {
				continue
			}
			seenValues[name] = true
			valueCounts[name]++
		}
		seenDrivers := make(map[string]bool)
		for _, driver := range p.Values.Drivers {
			name := strings.ToLower(strings.TrimSpace(driver.Name))
			if name == "" || seenDrivers[name] || driver.Strength < likelihoodThreshold {
				continue
			}
			seenDrivers[name] = true
			entry := driverTallies[name]
			if entry == nil {
				entry = &driverTally{}
				driverTallies[name] = entry
			}
			entry.count++
			entry.sum += driver.Strength
		}
	}

	memberCount := len(profiles)
	var results []Strength

	valueNames := make([]string, 0, len(valueCounts))
	for name := range valueCounts {
		valueNames = append(valueNames, name)
	}
	sort.Strings(valueNames)
	for _, name := range valueNames {
		count := valueCounts[name]
		prevalence := float64(count) / float64(memberCount)
		if prevalence < prevalenceThreshold {
			continue
		}
		results = append(results, Strength{
			Name:        "shared value: " + name,
			Category:    CategoryValue,
			Prevalence:  prevalence,
			Strength:    prevalence,
			MemberCount: count,
		})
	}

	driverNames := make([]string, 0, len(driverTallies))
	for name := range driverTallies {
		driverNames = append(driverNames, name)
	}
	sort.Strings(driverNames)
	for _, name := range driverNames {
		entry := driverTallies[name]
		prevalence := float64(entry.count) / float64(memberCount)
		if prevalence < prevalenceThreshold {
			continue
		}
		results = append(results, Strength{
			Name:        "shared motivation: " + name,
			Category:    CategoryValue,
			Prevalence:  prevalence,
			Strength:    entry.sum / float64(entry.count),
			MemberCount: entry.count,
		})
	}
	return results
}

// detectEmergent evaluates the three fixed composite patterns as boolean
// combinations of the base detection signals.
func detectEmergent(profiles []profile.MemberProfile, base []Strength) []Strength {
	hasCategory := func(category Category) bool {
		for _, s := range base {
			if s.Category == category {
				return true
			}
		}
		return false
	}
	hasNameContaining := func(fragment string) bool {
		for _, s := range base {
			if strings.Contains(s.Name, fragment) {
				return true
			}
		}
		return false
	}

	memberCount := len(profiles)
	meanEmpathy, empathyKnown := meanEmpathy(profiles)
	baseStrength := func() float64 {
		if len(base) == 0 {
			return 0
		}
		total := 0.0
		for _, s := range base {
			total += s.Strength
		}
		return total / float64(len(base))
	}()

	var results []Strength
	if hasCategory(CategoryBehavioral) && hasCategory(CategoryCognitive) {
		results = append(results, Strength{
			Name:        "high-performing team",
			Category:    CategorySkill,
			Prevalence:  minPrevalence(base),
			Strength:    baseStrength,
			MemberCount: memberCount,
		})
	}
	if hasNameContaining("creative") {
		results = append(results, Strength{
			Name:        "creative collective",
			Category:    CategorySkill,
			Prevalence:  minPrevalence(base),
			Strength:    baseStrength,
			MemberCount: memberCount,
		})
	}
	if empathyKnown && meanEmpathy >= 65 && (hasNameContaining("supportive") || hasCategory(CategoryValue)) {
		results = append(results, Strength{
			Name:        "emotionally intelligent",
			Category:    CategorySkill,
			Prevalence:  1.0,
			Strength:    meanEmpathy / 100,
			MemberCount: memberCount,
		})
	}
	return results
}

func minPrevalence(base []Strength) float64 {
	lowest := 1.0
	for _, s := range base {
		if s.Prevalence < lowest {
			lowest = s.Prevalence
		}
	}
	return lowest
}

func meanEmpathy(profiles []profile.MemberProfile) (float64, bool) {
	total := 0.0
	count := 0
	for _, p := range profiles {
		if p.Behavioral == nil {
			continue
		}
		total += p.Behavioral.Empathy
		count++
	}
	if count == 0 {
		return 0, false
	}
	return total / float64(count), true
}

func describePattern(s Strength) string {
	percent := int(math.Round(s.Prevalence * 100))
	switch s.Category {
	case CategoryBehavioral:
		return fmt.Sprintf("%d%% of the group consistently shows %s, a dependable behavioral pattern to build on.", percent, s.Name)
	case CategoryCognitive:
		return fmt.Sprintf("The group thinks alike: %d%% report a %s, which speeds up alignment.", percent, strings.TrimPrefix(s.Name, "shared "))
	case CategoryValue:
		return fmt.Sprintf("A %s unites %d%% of members and anchors group decisions.", strings.TrimPrefix(s.Name, "shared "), percent)
	default:
		return fmt.Sprintf("Together the group forms a %s profile spanning %d members.", s.Name, s.MemberCount)
	}
}

func applicationsFor(category Category) []string {
	switch category {
	case CategoryBehavioral:
		return []string{
			"Assign work that leans on this shared tendency.",
			"Name it explicitly when planning group commitments.",
		}
	case CategoryCognitive:
		return []string{
			"Structure discussions around the shared thinking style.",
			"Bring in an outside perspective to offset blind spots.",
		}
	case CategoryValue:
		return []string{
			"Use the shared value as a tie-breaker in hard decisions.",
			"Celebrate milestones that reflect it.",
		}
	default:
		return []string{
			"Take on stretch goals that need this combined capability.",
		}
	}
}

package analysis

import (
	"sort"
	"strings"

	"github.com/attunelabs/attune/internal/profile"
)

// sharedDriverStrength is the minimum driver strength that counts toward a
// shared motivation.
const sharedDriverStrength = 0.7

// computeGoalAlignment measures value and motivation overlap across the group.
// Members without values data are excluded from counts and lower confidence.
func computeGoalAlignment(profiles []profile.MemberProfile) *GoalAlignment {
	contributing := 0
	valueCounts := make(map[string]int)
	driverCounts := make(map[string]int)
	for _, member := range profiles {
		if member.Values == nil {
			continue
		}
		contributing++
		seenValues := make(map[string]bool)
		for _, value := range member.Values.CoreValues {
			value = strings.ToLower(strings.TrimSpace(value))
			if value == "" || seenValues[value] {
				continue
			}
			seenValues[value] = true
			valueCounts[value]++
		}
		seenDrivers := make(map[string]bool)
		for _, driver := range member.Values.Drivers {
			name := strings.ToLower(strings.TrimSpace(driver.Name))
			if name == "" || seenDrivers[name] || driver.Strength < sharedDriverStrength {
				continue
			}
			seenDrivers[name] = true
			driverCounts[name]++
		}
	}
	if contributing == 0 {
		return &GoalAlignment{}
	}

	majority := contributing/2 + 1
	var shared, divergent, drivers []string
	overlapTotal := 0.0
	for value, count := range valueCounts {
		overlapTotal += float64(count) / float64(contributing)
		if count >= majority {
			shared = append(shared, value)
		}
		if count == 1 && contributing > 1 {
			divergent = append(divergent, value)
		}
	}
	for driver, count := range driverCounts {
		if count >= majority {
			drivers = append(drivers, driver)
		}
	}
	sort.Strings(shared)
	sort.Strings(divergent)
	sort.Strings(drivers)

	score := 0.0
	if len(valueCounts) > 0 {
		score = overlapTotal / float64(len(valueCounts))
	}
	return &GoalAlignment{
		Score:         clamp01(score),
		SharedValues:  shared,
		SharedDrivers: drivers,
		Divergent:     divergent,
		Confidence:    float64(contributing) / float64(len(profiles)),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

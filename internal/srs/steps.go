package srs

import (
	"regexp"
	"strconv"
	"strings"
)

var stepPattern = regexp.MustCompile(`^(\d+)([mhd])$`)

// ParseStepInterval converts a step string such as "1m", "10h" or "2d" to
// minutes. A malformed step is a data-quality issue, not an error: it falls
// back to one minute so scheduling never aborts on a bad config string.
func ParseStepInterval(step string) int {
	minutes, _ := parseStep(step)
	return minutes
}

func parseStep(step string) (int, bool) {
	step = strings.ToLower(strings.TrimSpace(step))

	m := stepPattern.FindStringSubmatch(step)
	if m == nil {
		return 1, false
	}

	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 1, false
	}

	switch m[2] {
	case "h":
		return n * 60, true
	case "d":
		return n * 24 * 60, true
	default:
		return n, true
	}
}

// ParseStepsString splits a comma separated list like "1m, 10m, 1d" into step
// strings, dropping entries that do not match the step format.
func ParseStepsString(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	var steps []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if stepPattern.MatchString(strings.ToLower(part)) {
			steps = append(steps, part)
		}
	}

	return steps
}

// stepAt returns the step string at index idx, falling back to the first step
// and then to def when the list is shorter than expected.
func stepAt(steps []string, idx int, def string) string {
	if idx >= 0 && idx < len(steps) {
		return steps[idx]
	}
	if len(steps) > 0 {
		return steps[0]
	}
	return def
}

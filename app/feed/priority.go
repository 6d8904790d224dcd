package feed

import (
	"strings"
)

// Priority is the coarse severity bucket assigned to a regulatory update.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Keyword families in precedence order: a critical keyword wins regardless
// of what else appears in the text. Best-effort domain vocabulary, not a
// correctness guarantee.
var priorityKeywords = []struct {
	priority Priority
	keywords []string
}{
	{PriorityCritical, []string{"recall", "safety alert", "urgent", "immediate action"}},
	{PriorityHigh, []string{"warning", "guidance", "approval", "clearance"}},
	{PriorityMedium, []string{"announcement", "update", "new", "change"}},
}

// ClassifyPriority is a pure function of (title, description).
func ClassifyPriority(title, description string) Priority {
	text := strings.ToLower(title + " " + description)

	for _, family := range priorityKeywords {
		for _, keyword := range family.keywords {
			if strings.Contains(text, keyword) {
				return family.priority
			}
		}
	}

	return PriorityLow
}

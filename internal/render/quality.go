package render

import (
	"fmt"
	"strings"

	"animlab/internal/scene"
)

// Quality selects the renderer's output resolution tier.
type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

// ParseQuality accepts low, medium, or high. An empty value means medium.
func ParseQuality(value string) (Quality, error) {
	switch q := Quality(strings.ToLower(strings.TrimSpace(value))); q {
	case "":
		return QualityMedium, nil
	case QualityLow, QualityMedium, QualityHigh:
		return q, nil
	default:
		return "", fmt.Errorf("%w: quality must be low, medium, or high, got %q", scene.ErrValidation, value)
	}
}

// Flag returns the renderer command-line flag for q.
func (q Quality) Flag() string {
	switch q {
	case QualityLow:
		return "-ql"
	case QualityHigh:
		return "-qh"
	default:
		return "-qm"
	}
}

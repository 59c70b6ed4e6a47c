// Package risk scores login attempts by comparing the current signal with the
// last recorded one and fusing a rule label with a classifier label.
package risk

import (
	"github.com/munai7/TrustGate/internal/models"
)

// maxScore caps the numeric score reported alongside the rule label
const maxScore = 3

// Engine is safe for concurrent use as long as its Classifier is.
type Engine struct {
	classifier Classifier
}

// NewEngine creates a risk engine. A nil classifier falls back to PopcountClassifier.
func NewEngine(classifier Classifier) *Engine {
	if classifier == nil {
		classifier = PopcountClassifier{}
	}
	return &Engine{classifier: classifier}
}

// Evaluate computes the assessment for one attempt. It has no side effects.
// The failed attempt count is part of the scorer contract but does not
// influence the labels.
func (e *Engine) Evaluate(current, last models.AttemptSignal, _ int) models.RiskAssessment {
	flags := DetectChanges(current, last)
	ruleLabel, score := RuleLabel(flags)
	mlLabel := e.classifier.Classify(flags)

	return models.RiskAssessment{
		RuleLabel:  ruleLabel,
		MLLabel:    mlLabel,
		FinalLabel: models.MaxRiskLabel(ruleLabel, mlLabel),
		Changes:    flags,
		Score:      min(score, maxScore),
	}
}

// DetectChanges flags every signal whose current value differs from the last
// one. A missing last value counts as a change when the current one is set.
func DetectChanges(current, last models.AttemptSignal) models.ChangeFlags {
	return models.ChangeFlags{
		IP:      current.SourceAddress != last.SourceAddress,
		Country: current.Country != last.Country,
		Device:  current.Device != last.Device,
	}
}

// RuleLabel applies the precedence rules and returns the label with the raw score.
func RuleLabel(flags models.ChangeFlags) (models.RiskLabel, int) {
	score := boolToInt(flags.IP) + boolToInt(flags.Device) + 2*boolToInt(flags.Country)

	switch {
	case flags.IP && flags.Country && flags.Device:
		return models.RiskCritical, score
	case flags.Country && !(flags.IP && flags.Device):
		return models.RiskHigh, score
	case flags.IP || flags.Device:
		return models.RiskMedium, score
	case score == 0:
		return models.RiskNormal, score
	default:
		// Unreachable with the current weights, kept so the order stays total.
		return models.RiskLow, score
	}
}

// ShouldBlock reports whether an assessment escalates to a block.
func ShouldBlock(final models.RiskLabel, failedAttemptCount, threshold int) bool {
	return final.AtLeast(models.RiskHigh) && failedAttemptCount >= threshold
}

// IsCriticalOverride reports whether an approved attempt still scored critical.
func IsCriticalOverride(final models.RiskLabel, approved bool) bool {
	return approved && final == models.RiskCritical
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

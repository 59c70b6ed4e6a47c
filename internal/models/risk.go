package models

import (
	"encoding/json"
	"fmt"
)

// RiskLabel is a severity label. Labels are totally ordered by Severity,
// never by their string form.
type RiskLabel string

const (
	RiskNormal   RiskLabel = "normal"
	RiskLow      RiskLabel = "low"
	RiskMedium   RiskLabel = "medium"
	RiskHigh     RiskLabel = "high"
	RiskCritical RiskLabel = "critical"
)

// LabelFailedAuth marks an attempt record written for a credential failure.
// It is not a severity label.
const LabelFailedAuth = "failed_auth"

var severityIndex = map[RiskLabel]int{
	RiskNormal:   0,
	RiskLow:      1,
	RiskMedium:   2,
	RiskHigh:     3,
	RiskCritical: 4,
}

// RiskLabels lists every label from least to most severe.
var RiskLabels = []RiskLabel{RiskNormal, RiskLow, RiskMedium, RiskHigh, RiskCritical}

// ParseRiskLabel converts a string into a known label.
func ParseRiskLabel(s string) (RiskLabel, error) {
	label := RiskLabel(s)
	if _, ok := severityIndex[label]; !ok {
		return "", fmt.Errorf("%w: unknown risk label %q", ErrValidation, s)
	}
	return label, nil
}

// Severity returns the position of the label in the total order.
// Unknown labels rank as normal.
func (l RiskLabel) Severity() int {
	return severityIndex[l]
}

// Valid reports whether l is one of the five known labels.
func (l RiskLabel) Valid() bool {
	_, ok := severityIndex[l]
	return ok
}

// AtLeast reports whether l is as severe as other or more.
func (l RiskLabel) AtLeast(other RiskLabel) bool {
	return l.Severity() >= other.Severity()
}

func (l RiskLabel) String() string {
	return string(l)
}

// MaxRiskLabel returns the more severe of a and b.
func MaxRiskLabel(a, b RiskLabel) RiskLabel {
	if b.Severity() > a.Severity() {
		return b
	}
	return a
}

// UnmarshalJSON rejects labels outside the known set.
func (l *RiskLabel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRiskLabel(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ChangeFlags records which signals differ from the last known baseline.
type ChangeFlags struct {
	IP      bool `json:"ip_change"`
	Country bool `json:"country_change"`
	Device  bool `json:"device_change"`
}

// Count returns how many flags are set.
func (c ChangeFlags) Count() int {
	n := 0
	for _, set := range []bool{c.IP, c.Country, c.Device} {
		if set {
			n++
		}
	}
	return n
}

// Vector returns the flags as a 0/1 feature vector ordered (ip, country, device).
func (c ChangeFlags) Vector() [3]int {
	var v [3]int
	if c.IP {
		v[0] = 1
	}
	if c.Country {
		v[1] = 1
	}
	if c.Device {
		v[2] = 1
	}
	return v
}

// RiskAssessment is the fused outcome of one evaluation. It is computed per
// resolution and only persisted as part of an AttemptRecord or Alert.
type RiskAssessment struct {
	RuleLabel  RiskLabel   `json:"rule_risk"`
	MLLabel    RiskLabel   `json:"ml_risk"`
	FinalLabel RiskLabel   `json:"final_risk"`
	Changes    ChangeFlags `json:"changes"`
	Score      int         `json:"score"`
}

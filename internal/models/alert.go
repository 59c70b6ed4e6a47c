package models

import (
	"time"

	"github.com/google/uuid"
)

// Alert reasons
const (
	AlertReasonEscalation       = "escalation"
	AlertReasonCriticalOverride = "critical_override"
	AlertReasonReportedAttempt  = "reported_attempt"
)

// Alert is a security-operations record for a high-severity outcome
type Alert struct {
	ID            uuid.UUID `db:"id" json:"id"`
	Username      string    `db:"username" json:"user"`
	SourceAddress string    `db:"source_address" json:"ip"`
	Country       string    `db:"country" json:"country"`
	Device        string    `db:"device" json:"device"`
	Outcome       string    `db:"outcome" json:"action"`
	RuleLabel     RiskLabel `db:"rule_label" json:"rule_risk"`
	MLLabel       RiskLabel `db:"ml_label" json:"ml_risk"`
	Reason        string    `db:"reason" json:"reason"`
	CreatedAt     time.Time `db:"created_at" json:"time"`
}

package models

import "time"

// AttemptSignal carries the out-of-band signals of a single login attempt
type AttemptSignal struct {
	Username      string `json:"username"`
	SourceAddress string `json:"ip"`
	Country       string `json:"country"`
	Device        string `json:"device"`
}

// AttemptRecord is one resolved login attempt. Records are append-only; the
// newest record for a username is the baseline for change detection.
type AttemptRecord struct {
	ID                 int64     `db:"id" json:"id"`
	Username           string    `db:"username" json:"username"`
	SourceAddress      string    `db:"source_address" json:"ip"`
	Country            string    `db:"country" json:"country"`
	Device             string    `db:"device" json:"device"`
	FailedAttemptCount int       `db:"failed_attempt_count" json:"failed_attempts"`
	LastRiskLabel      string    `db:"last_risk_label" json:"last_risk"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

// Signal returns the signal portion of the record
func (r *AttemptRecord) Signal() AttemptSignal {
	return AttemptSignal{
		Username:      r.Username,
		SourceAddress: r.SourceAddress,
		Country:       r.Country,
		Device:        r.Device,
	}
}

// NewAttemptRecord builds a record from a signal and its outcome
func NewAttemptRecord(signal AttemptSignal, failedAttempts int, label string) *AttemptRecord {
	return &AttemptRecord{
		Username:           signal.Username,
		SourceAddress:      signal.SourceAddress,
		Country:            signal.Country,
		Device:             signal.Device,
		FailedAttemptCount: failedAttempts,
		LastRiskLabel:      label,
	}
}

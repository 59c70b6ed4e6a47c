package models

import "time"

// ChallengeStatusPending is the only persisted challenge status; resolved
// challenges no longer exist.
const ChallengeStatusPending = "pending"

// Decision is the second-factor answer for a pending challenge
type Decision string

const (
	DecisionAllow Decision = "allow"
	DecisionDeny  Decision = "deny"
)

// Valid reports whether d is allow or deny
func (d Decision) Valid() bool {
	return d == DecisionAllow || d == DecisionDeny
}

// PendingChallenge is an outstanding second-factor request. It lives at most
// the configured push TTL and is consumed exactly once.
type PendingChallenge struct {
	ChallengeID        string    `json:"push_id"`
	Username           string    `json:"user"`
	Role               string    `json:"role,omitempty"`
	CurrentAddress     string    `json:"ip"`
	CurrentCountry     string    `json:"country"`
	CurrentDevice      string    `json:"device"`
	LastAddress        string    `json:"last_ip"`
	LastCountry        string    `json:"last_country"`
	LastDevice         string    `json:"last_device"`
	Status             string    `json:"status"`
	FailedAttemptCount int       `json:"failed_attempts"`
	CreatedAt          time.Time `json:"created_at"`
	ExpiresAt          time.Time `json:"expires_at"`
}

// Current returns the signal observed when the challenge was created
func (c *PendingChallenge) Current() AttemptSignal {
	return AttemptSignal{
		Username:      c.Username,
		SourceAddress: c.CurrentAddress,
		Country:       c.CurrentCountry,
		Device:        c.CurrentDevice,
	}
}

// Last returns the baseline signal captured from attempt history
func (c *PendingChallenge) Last() AttemptSignal {
	return AttemptSignal{
		Username:      c.Username,
		SourceAddress: c.LastAddress,
		Country:       c.LastCountry,
		Device:        c.LastDevice,
	}
}

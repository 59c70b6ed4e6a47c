package models

// DefaultReportedStatus is the alert outcome used when a report carries no status
const DefaultReportedStatus = "Suspicious"

// AttemptReport is a suspicious attempt pushed by an upstream service
// simulator. It is held in the TTL store and never written to the ledger.
type AttemptReport struct {
	AttemptID        string `json:"attemptId" validate:"required,max=128"`
	UserID           string `json:"userId" validate:"required,max=255"`
	ServiceName      string `json:"serviceName,omitempty"`
	Status           string `json:"status,omitempty"`
	RiskLevel        string `json:"riskLevel,omitempty"`
	RiskReason       string `json:"riskReason,omitempty"`
	RiskDetails      string `json:"riskDetails,omitempty"`
	PreviousLocation string `json:"previousLocation,omitempty"`
	CurrentLocation  string `json:"currentLocation,omitempty"`
	IPAddress        string `json:"ipAddress,omitempty"`
	DeviceInfo       string `json:"deviceInfo,omitempty"`
	CreatedAt        string `json:"createdAt,omitempty"`
	MatchingCode     string `json:"matchingCode,omitempty"`
}

// AlertOutcome is the status reported on the SOC alert
func (r *AttemptReport) AlertOutcome() string {
	if r.Status == "" {
		return DefaultReportedStatus
	}
	return r.Status
}

package services

// Recorder receives decision counters. *metrics.Metrics implements it.
type Recorder interface {
	IncDecision(stage, outcome string)
	IncAssessment(finalRisk string)
	IncBlock(risk string)
	IncAlert(reason string)
	IncAlertPublishFailure(sink string)
}

type noopRecorder struct{}

func (noopRecorder) IncDecision(string, string)    {}
func (noopRecorder) IncAssessment(string)          {}
func (noopRecorder) IncBlock(string)               {}
func (noopRecorder) IncAlert(string)               {}
func (noopRecorder) IncAlertPublishFailure(string) {}

func recorderOrNoop(r Recorder) Recorder {
	if r == nil {
		return noopRecorder{}
	}
	return r
}

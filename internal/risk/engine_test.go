package risk_test

import (
	"testing"

	"github.com/munai7/TrustGate/internal/models"
	"github.com/munai7/TrustGate/internal/risk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseline = models.AttemptSignal{
	Username:      "alice",
	SourceAddress: "10.0.0.1",
	Country:       "SA",
	Device:        "iphone-15",
}

func TestEngineEvaluate_Scenarios(t *testing.T) {
	engine := risk.NewEngine(risk.PopcountClassifier{})

	tests := []struct {
		name      string
		current   models.AttemptSignal
		wantRule  models.RiskLabel
		wantML    models.RiskLabel
		wantFinal models.RiskLabel
	}{
		{
			name:      "no change",
			current:   baseline,
			wantRule:  models.RiskNormal,
			wantML:    models.RiskNormal,
			wantFinal: models.RiskNormal,
		},
		{
			name:      "country only",
			current:   models.AttemptSignal{Username: "alice", SourceAddress: "10.0.0.1", Country: "US", Device: "iphone-15"},
			wantRule:  models.RiskHigh,
			wantML:    models.RiskMedium,
			wantFinal: models.RiskHigh,
		},
		{
			name:      "everything changed",
			current:   models.AttemptSignal{Username: "alice", SourceAddress: "203.0.113.7", Country: "RU", Device: "android"},
			wantRule:  models.RiskCritical,
			wantML:    models.RiskCritical,
			wantFinal: models.RiskCritical,
		},
		{
			name:      "address only",
			current:   models.AttemptSignal{Username: "alice", SourceAddress: "10.0.0.2", Country: "SA", Device: "iphone-15"},
			wantRule:  models.RiskMedium,
			wantML:    models.RiskMedium,
			wantFinal: models.RiskMedium,
		},
		{
			name:      "address and device",
			current:   models.AttemptSignal{Username: "alice", SourceAddress: "10.0.0.2", Country: "SA", Device: "pixel"},
			wantRule:  models.RiskMedium,
			wantML:    models.RiskHigh,
			wantFinal: models.RiskHigh,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.Evaluate(tt.current, baseline, 0)
			assert.Equal(t, tt.wantRule, got.RuleLabel)
			assert.Equal(t, tt.wantML, got.MLLabel)
			assert.Equal(t, tt.wantFinal, got.FinalLabel)
		})
	}
}

func TestEngineEvaluate_IsPure(t *testing.T) {
	engine := risk.NewEngine(nil)
	current := models.AttemptSignal{Username: "bob", SourceAddress: "198.51.100.4", Country: "DE", Device: "laptop"}

	first := engine.Evaluate(current, baseline, 3)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, engine.Evaluate(current, baseline, 3))
	}
}

func TestEngineEvaluate_FailedCountDoesNotChangeLabels(t *testing.T) {
	engine := risk.NewEngine(nil)
	current := models.AttemptSignal{Username: "bob", SourceAddress: "198.51.100.4", Country: "DE", Device: "laptop"}

	want := engine.Evaluate(current, baseline, 0)
	for _, failed := range []int{1, 5, 100} {
		assert.Equal(t, want, engine.Evaluate(current, baseline, failed))
	}
}

func TestEngineEvaluate_FinalNeverBelowEitherInput(t *testing.T) {
	engine := risk.NewEngine(nil)

	for v := 0; v < 8; v++ {
		current := baseline
		if v&4 != 0 {
			current.SourceAddress = "192.0.2.1"
		}
		if v&2 != 0 {
			current.Country = "FR"
		}
		if v&1 != 0 {
			current.Device = "tablet"
		}

		got := engine.Evaluate(current, baseline, 0)
		assert.True(t, got.FinalLabel.AtLeast(got.RuleLabel), "vector %03b", v)
		assert.True(t, got.FinalLabel.AtLeast(got.MLLabel), "vector %03b", v)
		assert.Contains(t, []models.RiskLabel{got.RuleLabel, got.MLLabel}, got.FinalLabel)
		assert.LessOrEqual(t, got.Score, 3)
	}
}

func TestDetectChanges_EmptyLastCountsAsChange(t *testing.T) {
	flags := risk.DetectChanges(baseline, models.AttemptSignal{})
	assert.Equal(t, models.ChangeFlags{IP: true, Country: true, Device: true}, flags)

	flags = risk.DetectChanges(models.AttemptSignal{}, models.AttemptSignal{})
	assert.Equal(t, models.ChangeFlags{}, flags)
}

func TestRuleLabel_Score(t *testing.T) {
	label, score := risk.RuleLabel(models.ChangeFlags{IP: true, Country: true, Device: true})
	assert.Equal(t, models.RiskCritical, label)
	assert.Equal(t, 4, score)

	label, score = risk.RuleLabel(models.ChangeFlags{Country: true})
	assert.Equal(t, models.RiskHigh, label)
	assert.Equal(t, 2, score)

	label, score = risk.RuleLabel(models.ChangeFlags{IP: true, Country: true})
	assert.Equal(t, models.RiskHigh, label)
	assert.Equal(t, 3, score)
}

func TestShouldBlock(t *testing.T) {
	assert.True(t, risk.ShouldBlock(models.RiskCritical, 5, 5))
	assert.True(t, risk.ShouldBlock(models.RiskHigh, 6, 5))
	assert.False(t, risk.ShouldBlock(models.RiskHigh, 4, 5))
	assert.False(t, risk.ShouldBlock(models.RiskMedium, 10, 5))
	assert.False(t, risk.ShouldBlock(models.RiskLow, 10, 5))
}

func TestIsCriticalOverride(t *testing.T) {
	assert.True(t, risk.IsCriticalOverride(models.RiskCritical, true))
	assert.False(t, risk.IsCriticalOverride(models.RiskCritical, false))
	assert.False(t, risk.IsCriticalOverride(models.RiskHigh, true))
}

func TestClassifiers_AgreeOnEveryVector(t *testing.T) {
	trained, err := risk.Train(risk.DefaultTrainingSet())
	require.NoError(t, err)

	popcount := risk.PopcountClassifier{}
	want := []models.RiskLabel{models.RiskNormal, models.RiskMedium, models.RiskHigh, models.RiskCritical}

	for v := 0; v < 8; v++ {
		flags := models.ChangeFlags{IP: v&4 != 0, Country: v&2 != 0, Device: v&1 != 0}
		assert.Equal(t, want[flags.Count()], popcount.Classify(flags), "vector %03b", v)
		assert.Equal(t, popcount.Classify(flags), trained.Classify(flags), "vector %03b", v)
	}
}

func TestTrain_UnseenVectorUsesNearestNeighbours(t *testing.T) {
	// Only the all-clear and all-set vectors are known; a single flag is closer to all-clear.
	samples := []risk.Sample{
		{Flags: models.ChangeFlags{}, Class: 0},
		{Flags: models.ChangeFlags{IP: true, Country: true, Device: true}, Class: 3},
	}

	c, err := risk.Train(samples)
	require.NoError(t, err)

	assert.Equal(t, models.RiskNormal, c.Classify(models.ChangeFlags{Device: true}))
	assert.Equal(t, models.RiskCritical, c.Classify(models.ChangeFlags{IP: true, Country: true}))
}

func TestTrain_RejectsBadInput(t *testing.T) {
	_, err := risk.Train(nil)
	assert.Error(t, err)

	_, err = risk.Train([]risk.Sample{{Class: 7}})
	assert.Error(t, err)
}

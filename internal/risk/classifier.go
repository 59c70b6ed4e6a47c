package risk

import (
	"fmt"
	"math/bits"

	"github.com/munai7/TrustGate/internal/models"
)

// Classifier maps a change-flag vector to a severity class.
// The classifier only ever produces normal, medium, high or critical.
type Classifier interface {
	Classify(flags models.ChangeFlags) models.RiskLabel
}

// classLabels maps classifier class indices to labels
var classLabels = [4]models.RiskLabel{
	models.RiskNormal,
	models.RiskMedium,
	models.RiskHigh,
	models.RiskCritical,
}

// PopcountClassifier labels a vector by the number of set flags
type PopcountClassifier struct{}

// Classify implements Classifier
func (PopcountClassifier) Classify(flags models.ChangeFlags) models.RiskLabel {
	return classLabels[flags.Count()]
}

// Sample is one labelled training example
type Sample struct {
	Flags models.ChangeFlags
	Class int // 0..3
}

// DefaultTrainingSet is the full 3-bit input space labelled by popcount
func DefaultTrainingSet() []Sample {
	samples := make([]Sample, 0, 8)
	for v := 0; v < 8; v++ {
		flags := flagsFromBits(uint(v))
		samples = append(samples, Sample{Flags: flags, Class: flags.Count()})
	}
	return samples
}

// TrainedClassifier is fitted from labelled samples. Each vector seen in
// training predicts the majority class observed for it; an unseen vector takes
// the majority class of its nearest seen neighbours by Hamming distance.
type TrainedClassifier struct {
	table [8]int
}

// Train fits a TrainedClassifier. It fails if samples is empty or a class is out of range.
func Train(samples []Sample) (*TrainedClassifier, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("training set is empty")
	}

	var votes [8][4]int
	var seen [8]bool
	for _, s := range samples {
		if s.Class < 0 || s.Class >= len(classLabels) {
			return nil, fmt.Errorf("class %d out of range", s.Class)
		}
		idx := bitsFromFlags(s.Flags)
		votes[idx][s.Class]++
		seen[idx] = true
	}

	c := &TrainedClassifier{}
	for v := uint(0); v < 8; v++ {
		if seen[v] {
			c.table[v] = argmax(votes[v])
			continue
		}

		var pooled [4]int
		for dist := 1; dist <= 3; dist++ {
			for u := uint(0); u < 8; u++ {
				if seen[u] && bits.OnesCount(v^u) == dist {
					for class, n := range votes[u] {
						pooled[class] += n
					}
				}
			}
			if pooled != [4]int{} {
				break
			}
		}
		c.table[v] = argmax(pooled)
	}

	return c, nil
}

// Classify implements Classifier
func (c *TrainedClassifier) Classify(flags models.ChangeFlags) models.RiskLabel {
	return classLabels[c.table[bitsFromFlags(flags)]]
}

// argmax returns the first index holding the maximum; ties resolve to the lower class.
func argmax(counts [4]int) int {
	best := 0
	for i := 1; i < len(counts); i++ {
		if counts[i] > counts[best] {
			best = i
		}
	}
	return best
}

func bitsFromFlags(flags models.ChangeFlags) uint {
	v := flags.Vector()
	return uint(v[0])<<2 | uint(v[1])<<1 | uint(v[2])
}

func flagsFromBits(v uint) models.ChangeFlags {
	return models.ChangeFlags{
		IP:      v&4 != 0,
		Country: v&2 != 0,
		Device:  v&1 != 0,
	}
}

package auth

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// TimingConfig controls how long failed credential checks are padded
type TimingConfig struct {
	BaseDelay      time.Duration
	Jitter         time.Duration
	DelayOnSuccess bool
}

// TimingDelay pads credential checks so unknown users, wrong passwords and
// store errors all take about the same time.
type TimingDelay struct {
	config TimingConfig
	sleep  func(time.Duration)
}

// NewTimingDelay creates a new TimingDelay instance
func NewTimingDelay(config TimingConfig) *TimingDelay {
	return &TimingDelay{config: config, sleep: time.Sleep}
}

// jitter returns a crypto-random duration in [0, max)
func jitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0
	}
	return time.Duration(binary.BigEndian.Uint64(b[:]) % uint64(max))
}

// WaitFrom sleeps until at least BaseDelay plus jitter has elapsed since start
func (td *TimingDelay) WaitFrom(start time.Time, success bool) {
	if td == nil || (success && !td.config.DelayOnSuccess) {
		return
	}

	target := td.config.BaseDelay + jitter(td.config.Jitter)
	if elapsed := time.Since(start); elapsed < target {
		td.sleep(target - elapsed)
	}
}

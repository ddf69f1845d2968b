package auth

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// TimingConfig holds configuration for the failed-login timing equalizer
type TimingConfig struct {
	BaseDelay      time.Duration // Minimum total duration of a failed login
	RandomDelay    time.Duration // Upper bound of the random jitter added to BaseDelay
	DelayOnSuccess bool          // If true, successful logins are padded too
}

// TimingDelay pads login responses so lockouts, unknown users and wrong
// passwords all take roughly the same wall time. A nil *TimingDelay is a no-op.
type TimingDelay struct {
	config TimingConfig
	sleep  func(time.Duration)
}

// NewTimingDelay creates a new TimingDelay instance
func NewTimingDelay(config TimingConfig) *TimingDelay {
	return &TimingDelay{
		config: config,
		sleep:  time.Sleep,
	}
}

// cryptoJitter returns a uniformly random duration in [0, max)
func cryptoJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}

	randomBytes := make([]byte, 8)
	if _, err := rand.Read(randomBytes); err != nil {
		return 0
	}

	return time.Duration(binary.BigEndian.Uint64(randomBytes) % uint64(max))
}

// target returns the padded duration for this outcome, or zero if none applies
func (td *TimingDelay) target(success bool) time.Duration {
	if td == nil {
		return 0
	}
	if success && !td.config.DelayOnSuccess {
		return 0
	}
	return td.config.BaseDelay + cryptoJitter(td.config.RandomDelay)
}

// WaitFrom sleeps until at least base+jitter has elapsed since start
func (td *TimingDelay) WaitFrom(start time.Time, success bool) {
	target := td.target(success)
	if target <= 0 {
		return
	}

	if elapsed := time.Since(start); elapsed < target {
		td.sleep(target - elapsed)
	}
}

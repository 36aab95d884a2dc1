package orchestrator

import "time"

// SessionConfig carries the tunable constants of a call session, with the
// same defaults as original_source's SessionConfig dataclass.
type SessionConfig struct {
	MaxDuration        time.Duration
	TargetLatency      time.Duration
	MaxRetryAttempts   int
	RetryDelay         time.Duration
	DefaultVoiceEN     string
	DefaultVoiceES     string
	AudioFormat        string
	BusinessName       string
}

// DefaultSessionConfig returns the receptionist's default tuning,
// grounded on original_source/vozbot/agent/orchestrator/core.py's
// SessionConfig defaults.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		MaxDuration:      300 * time.Second,
		TargetLatency:    2000 * time.Millisecond,
		MaxRetryAttempts: 3,
		RetryDelay:       500 * time.Millisecond,
		DefaultVoiceEN:   "aura-2-thalia-en",
		DefaultVoiceES:   "aura-2-estrella-es",
		AudioFormat:      "mp3",
		BusinessName:     "our office",
	}
}

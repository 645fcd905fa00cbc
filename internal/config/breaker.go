package config

import "time"

// BreakerConfig defines settings for the circuit breakers protecting
// cross-service calls. FailureThreshold counts consecutive failures
// before the circuit opens; RecoveryTimeout is how long the circuit
// stays open before a trial call is permitted; CallTimeout bounds each
// outbound request.
type BreakerConfig struct {
    FailureThreshold int
    RecoveryTimeout  time.Duration
    CallTimeout      time.Duration
}

// LoadBreakerConfig reads environment variables to build a
// BreakerConfig. Defaults are used when variables are not set.
func LoadBreakerConfig() BreakerConfig {
    return BreakerConfig{
        FailureThreshold: envInt("BREAKER_FAILURE_THRESHOLD", 5),
        RecoveryTimeout:  envDur("BREAKER_RECOVERY_TIMEOUT", 60*time.Second),
        CallTimeout:      envDur("BREAKER_CALL_TIMEOUT", 10*time.Second),
    }
}

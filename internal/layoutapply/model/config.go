package model

// RetryTarget matches a specific (statusCode, code) pair observed in a
// non-success response body and assigns it its own retry envelope, distinct
// from the per-kind default. See spec §3 and §4.1 step 2.
type RetryTarget struct {
	StatusCode int    `json:"statusCode" validate:"required"`
	Code       string `json:"code" validate:"required"`
	Interval   int    `json:"interval" validate:"gte=0,lte=60"`
	MaxCount   int    `json:"maxCount" validate:"gte=1,lte=10"`
}

// RetryDefault is the fallback retry envelope used when no configured
// RetryTarget matches a non-success response.
type RetryDefault struct {
	Interval int `json:"interval" validate:"gte=0,lte=60"`
	MaxCount int `json:"maxCount" validate:"gte=1,lte=10"`
}

// ConnectionRetry governs transport-level (connection-refused/unreachable)
// retries, performed beneath the per-kind retry ladder (spec §4.1 step 1).
type ConnectionRetry struct {
	Interval int `json:"interval" validate:"gte=0,lte=60"`
	MaxCount int `json:"maxCount" validate:"gte=1,lte=10"`
}

// Polling is a post-condition polling envelope (spec §3, §4.2).
type Polling struct {
	Count    int          `json:"count" validate:"gte=1,lte=240"`
	Interval int          `json:"interval" validate:"gte=0,lte=240"`
	Skip     []SkipTarget `json:"skip,omitempty" validate:"dive"`
}

// SkipTarget matches a (statusCode, code) pair that causes a post-condition
// check to be skipped entirely (spec §4.2 boot driver).
type SkipTarget struct {
	StatusCode int    `json:"statusCode" validate:"required"`
	Code       string `json:"code" validate:"required"`
}

// KindConfig is the per-kind configuration envelope: where to call, how long
// to wait, and how to retry.
type KindConfig struct {
	Host             string          `json:"host" validate:"required"`
	Port             int             `json:"port" validate:"gte=1,lte=65535"`
	PathPrefix       string          `json:"pathPrefix" validate:"required"`
	Timeout          int             `json:"timeout" validate:"gte=1,lte=600"`
	RetryTargets     []RetryTarget   `json:"retryTargets,omitempty" validate:"dive"`
	Default          RetryDefault    `json:"default"`
	ServerConnection ConnectionRetry `json:"serverConnection"`
	Polling          Polling         `json:"polling"`
}

// Config is the full set of per-kind envelopes plus the scheduler's
// concurrency bound. Validated wholesale at load time (go-playground/
// validator/v10 struct tags), never lazily at use — spec §3's admission-time
// bounds invariant.
type Config struct {
	Disconnect KindConfig `json:"disconnect" validate:"required"`
	Shutdown   KindConfig `json:"shutdown" validate:"required"`
	Connect    KindConfig `json:"connect" validate:"required"`
	Boot       KindConfig `json:"boot" validate:"required"`
	Start      KindConfig `json:"start" validate:"required"`
	Stop       KindConfig `json:"stop" validate:"required"`

	MaxWorkers int `json:"maxWorkers" validate:"gte=1,lte=128"`

	// RollbackOnFailure, when true, causes a plain FAILED apply (no explicit
	// cancel-with-rollback request) to also trigger rollback derivation.
	// Defaults to false, matching the literal reading of spec §4.4's table.
	RollbackOnFailure bool `json:"rollbackOnFailure"`
}

// ForKind returns the KindConfig envelope for k.
func (c *Config) ForKind(k Kind) KindConfig {
	switch k {
	case KindDisconnect:
		return c.Disconnect
	case KindShutdown:
		return c.Shutdown
	case KindConnect:
		return c.Connect
	case KindBoot:
		return c.Boot
	case KindStart:
		return c.Start
	case KindStop:
		return c.Stop
	}
	return KindConfig{}
}

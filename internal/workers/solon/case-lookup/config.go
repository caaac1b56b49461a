// internal/workers/solon/case-lookup/config.go
package caselookup

import "time"

// A full portal round trip (navigate, form, grid wait) can take well
// over a minute on bad days; the job timeout has to cover it.
type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 120 * time.Second,
	}
}

package config

import "time"

// Config holds runtime settings for the field capture client.
//
// Units: intervals and timeouts are time.Duration values; QuotaBytes is a
// byte count (0 disables the local storage quota).
type Config struct {
	ServerEndpointAddr  string
	DeviceToken         string
	DataDir             string
	QuotaBytes          int64
	OnlineCheckInterval time.Duration

	UploadConcurrency     int
	SlowUploadConcurrency int
	MaxAutoRetries        int
	RetryBackoffBase      time.Duration
	RetryBackoffMax       time.Duration
	RequestTimeout        time.Duration
	UploadTimeout         time.Duration
	ConfirmTimeout        time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://127.0.0.1:8080"
	c.DataDir = "fieldsync-data"
	c.QuotaBytes = 0
	c.OnlineCheckInterval = 3 * time.Second

	c.UploadConcurrency = 3
	c.SlowUploadConcurrency = 1
	c.MaxAutoRetries = 5
	c.RetryBackoffBase = 5 * time.Second
	c.RetryBackoffMax = 5 * time.Minute
	c.RequestTimeout = 10 * time.Second
	c.UploadTimeout = 10 * time.Minute
	c.ConfirmTimeout = 30 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}

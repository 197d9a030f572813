package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/flagx"
	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "3s"
// or as integer nanoseconds. After parsing, values are copied into the
// runtime Config (which uses time.Duration).
type JsonConfig struct {
	ServerEndpointAddr  string         `json:"server_endpoint_addr"`
	DeviceToken         string         `json:"device_token"`
	DataDir             string         `json:"data_dir"`
	QuotaBytes          int64          `json:"quota_bytes"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`

	UploadConcurrency     int            `json:"upload_concurrency"`
	SlowUploadConcurrency int            `json:"slow_upload_concurrency"`
	MaxAutoRetries        int            `json:"max_auto_retries"`
	RetryBackoffBase      timex.Duration `json:"retry_backoff_base"`
	RetryBackoffMax       timex.Duration `json:"retry_backoff_max"`
	RequestTimeout        timex.Duration `json:"request_timeout"`
	UploadTimeout         timex.Duration `json:"upload_timeout"`
	ConfirmTimeout        timex.Duration `json:"confirm_timeout"`
}

// parseJson overlays Config with values loaded from a JSON file.
//
// The file path comes from the -c / -config flags via flagx.JsonConfigFlags;
// when no path is given the function returns without touching cfg. Fields
// absent from the JSON keep their current values. Read and unmarshal errors
// panic (caller should recover if desired).
//
// Intended usage is: defaults -> parseJson -> parseFlags, where later stages
// override earlier ones.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerEndpointAddr != "" {
		cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	}
	if jc.DeviceToken != "" {
		cfg.DeviceToken = jc.DeviceToken
	}
	if jc.DataDir != "" {
		cfg.DataDir = jc.DataDir
	}
	if jc.QuotaBytes > 0 {
		cfg.QuotaBytes = jc.QuotaBytes
	}
	if jc.OnlineCheckInterval.Duration > 0 {
		cfg.OnlineCheckInterval = time.Duration(jc.OnlineCheckInterval.Duration)
	}
	if jc.UploadConcurrency > 0 {
		cfg.UploadConcurrency = jc.UploadConcurrency
	}
	if jc.SlowUploadConcurrency > 0 {
		cfg.SlowUploadConcurrency = jc.SlowUploadConcurrency
	}
	if jc.MaxAutoRetries > 0 {
		cfg.MaxAutoRetries = jc.MaxAutoRetries
	}
	if jc.RetryBackoffBase.Duration > 0 {
		cfg.RetryBackoffBase = time.Duration(jc.RetryBackoffBase.Duration)
	}
	if jc.RetryBackoffMax.Duration > 0 {
		cfg.RetryBackoffMax = time.Duration(jc.RetryBackoffMax.Duration)
	}
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = time.Duration(jc.RequestTimeout.Duration)
	}
	if jc.UploadTimeout.Duration > 0 {
		cfg.UploadTimeout = time.Duration(jc.UploadTimeout.Duration)
	}
	if jc.ConfirmTimeout.Duration > 0 {
		cfg.ConfirmTimeout = time.Duration(jc.ConfirmTimeout.Duration)
	}
}

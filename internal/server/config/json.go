package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/skillhub/internal/flagx"
	"github.com/dmitrijs2005/skillhub/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "1m" and integer nanoseconds are accepted.
type JsonConfig struct {
	EndpointAddrGRPC        string         `json:"endpoint_addr_grpc"`
	DatabaseDSN             string         `json:"database_dsn"`
	SecretKey               string         `json:"secret_key"`
	S3RootUser              string         `json:"s3_root_user"`
	S3RootPassword          string         `json:"s3_root_password"`
	S3Bucket                string         `json:"s3_bucket"`
	S3Region                string         `json:"s3_region"`
	S3BaseEndpoint          string         `json:"s3_base_endpoint"`
	StorageBreakerThreshold int64          `json:"storage_breaker_threshold"`
	LogLevel                string         `json:"log_level"`
	LogFormat               string         `json:"log_format"`
	CleanupWorkers          int            `json:"cleanup_workers"`
	CleanupQueueSize        int            `json:"cleanup_queue_size"`
	CleanupMaxElapsed       timex.Duration `json:"cleanup_max_elapsed"`
	CleanupSweepInterval    timex.Duration `json:"cleanup_sweep_interval"`
	FallbackScanWindow      int            `json:"fallback_scan_window"`
	ReservationTTL          timex.Duration `json:"reservation_ttl"`
	ModerationRulesFile     string         `json:"moderation_rules_file"`
}

// parseJson overlays values from the file named by -c/-config onto config.
// Keys absent from the file keep their current value. A missing or
// malformed file panics.
func parseJson(config *Config) {

	jsonConfigFile := flagx.ConfigFileFlag()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)
	setString(&config.ModerationRulesFile, c.ModerationRulesFile)

	if c.StorageBreakerThreshold > 0 {
		config.StorageBreakerThreshold = c.StorageBreakerThreshold
	}
	if c.CleanupWorkers > 0 {
		config.CleanupWorkers = c.CleanupWorkers
	}
	if c.CleanupQueueSize > 0 {
		config.CleanupQueueSize = c.CleanupQueueSize
	}
	if c.CleanupMaxElapsed.Duration > 0 {
		config.CleanupMaxElapsed = c.CleanupMaxElapsed.Duration
	}
	if c.CleanupSweepInterval.Duration > 0 {
		config.CleanupSweepInterval = c.CleanupSweepInterval.Duration
	}
	if c.FallbackScanWindow > 0 {
		config.FallbackScanWindow = c.FallbackScanWindow
	}
	if c.ReservationTTL.Duration > 0 {
		config.ReservationTTL = c.ReservationTTL.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

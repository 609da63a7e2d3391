// Package config loads the application configuration from a yaml file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

const bytesPerMB = 1024 * 1024

// Default values applied when the yaml file leaves a field unset.
const (
	DefaultPageSize            = 1000
	DefaultBatchSize           = 100
	DefaultMetadataMaxMB       = 5
	DefaultThumbnailMaxMB      = 30
	DefaultSyncThrottleSeconds = 30
	DefaultSyncWaitSeconds     = 120
	DefaultThumbnailMaxAgeDays = 30
	DefaultListenAddr          = ":8081"
)

// Config is the struct for the configuration.
type Config struct {
	S3endpoint    string     `yaml:"s3endpoint"`
	S3accessKey   string     `yaml:"accesskey"`
	S3secretKey   string     `yaml:"secretkey"`
	S3Region      string     `yaml:"s3region"`
	SsoAwsProfile string     `yaml:"ssoawsprofile"`
	Bucket        string     `yaml:"bucket"`
	Prefix        string     `yaml:"prefix"`
	DatabaseURL   string     `yaml:"dburl"`
	ListenAddr    string     `yaml:"listenaddr"`
	LogLevel      string     `yaml:"loglevel"`
	Scan          ScanConfig `yaml:"scan"`
}

// ScanConfig holds the tunables of the reconciliation engine.
type ScanConfig struct {
	PageSize             int    `yaml:"pagesize"`
	BatchSize            int    `yaml:"batchsize"`
	MetadataMaxMB        int    `yaml:"metadatamaxmb"`
	ThumbnailMaxMB       int    `yaml:"thumbnailmaxmb"`
	SyncThrottleSeconds  int    `yaml:"syncthrottleseconds"`
	SyncWaitSeconds      int    `yaml:"syncwaitseconds"`
	ThumbnailMaxAgeDays  int    `yaml:"thumbnailmaxagedays"`
	ThumbnailCacheDir    string `yaml:"thumbnailcachedir"`
	ScanCronSchedule     string `yaml:"scancronschedule"`
	EnableBackgroundScan bool   `yaml:"enablebackgroundscan"`
}

// ReadYamlCnxFile reads a yaml file and returns a Config struct.
func ReadYamlCnxFile(filename string) (Config, error) {
	var config Config

	yamlFile, err := os.ReadFile(filename)
	if err != nil {
		return config, fmt.Errorf("error reading yaml file: %w", err)
	}

	err = yaml.Unmarshal(yamlFile, &config)
	if err != nil {
		return config, fmt.Errorf("error parsing yaml file: %w", err)
	}
	config.ApplyDefaults()
	return config, nil
}

// ApplyDefaults fills unset fields with their default values.
func (c *Config) ApplyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.Scan.PageSize <= 0 {
		c.Scan.PageSize = DefaultPageSize
	}
	if c.Scan.BatchSize <= 0 {
		c.Scan.BatchSize = DefaultBatchSize
	}
	if c.Scan.MetadataMaxMB <= 0 {
		c.Scan.MetadataMaxMB = DefaultMetadataMaxMB
	}
	if c.Scan.ThumbnailMaxMB <= 0 {
		c.Scan.ThumbnailMaxMB = DefaultThumbnailMaxMB
	}
	if c.Scan.SyncThrottleSeconds <= 0 {
		c.Scan.SyncThrottleSeconds = DefaultSyncThrottleSeconds
	}
	if c.Scan.SyncWaitSeconds <= 0 {
		c.Scan.SyncWaitSeconds = DefaultSyncWaitSeconds
	}
	if c.Scan.ThumbnailMaxAgeDays <= 0 {
		c.Scan.ThumbnailMaxAgeDays = DefaultThumbnailMaxAgeDays
	}
}

// MetadataMaxBytes returns the metadata admission threshold in bytes.
func (s ScanConfig) MetadataMaxBytes() int64 {
	return int64(s.MetadataMaxMB) * bytesPerMB
}

// ThumbnailMaxBytes returns the thumbnail admission threshold in bytes.
func (s ScanConfig) ThumbnailMaxBytes() int64 {
	return int64(s.ThumbnailMaxMB) * bytesPerMB
}

// SyncThrottleWindow returns the per-folder sync throttle window.
func (s ScanConfig) SyncThrottleWindow() time.Duration {
	return time.Duration(s.SyncThrottleSeconds) * time.Second
}

// SyncWaitTimeout returns how long an on-demand sync caller waits for its job.
func (s ScanConfig) SyncWaitTimeout() time.Duration {
	return time.Duration(s.SyncWaitSeconds) * time.Second
}

// ThumbnailMaxAge returns the retention age for cached thumbnails.
func (s ScanConfig) ThumbnailMaxAge() time.Duration {
	return time.Duration(s.ThumbnailMaxAgeDays) * 24 * time.Hour
}

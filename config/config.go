package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"cotflow/models"
)

type Config struct {
	Cotflow     CotflowConfig       `yaml:"cotflow"`
	Metrics     MetricsConfig       `yaml:"metrics"`
	Fetcher     FetcherConfig       `yaml:"fetcher"`
	Pipeline    PipelineConfig      `yaml:"pipeline"`
	Writer      WriterConfig        `yaml:"writer"`
	Storage     StorageConfig       `yaml:"storage"`
	Logging     LoggingConfig       `yaml:"logging"`
	Schedule    ScheduleConfig      `yaml:"schedule"`
	Instruments []models.Instrument `yaml:"instruments"`
}

type CotflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type MetricsConfig struct {
	CloudWatch CloudWatchConfig `yaml:"cloudwatch"`
}

type CloudWatchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	Namespace string `yaml:"namespace"`
	Dashboard string `yaml:"dashboard"`
}

type FetcherConfig struct {
	Timeout          time.Duration        `yaml:"timeout"`
	MinResponseBytes int                  `yaml:"min_response_bytes"`
	YearsBack        int                  `yaml:"years_back"`
	UserAgent        string               `yaml:"user_agent"`
	RateLimit        RateLimitConfig      `yaml:"rate_limit"`
	ConnectionPool   ConnectionPoolConfig `yaml:"connection_pool"`
	Sources          []SourceConfig       `yaml:"sources"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second"`
	BurstSize         int `yaml:"burst_size"`
}

type ConnectionPoolConfig struct {
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxConnsPerHost int           `yaml:"max_conns_per_host"`
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

// SourceConfig names the candidate archive locations for one report
// family. Templates carry a {year} placeholder and are tried in order;
// the primary source is the one whose total absence fails the run.
type SourceConfig struct {
	Family       models.ReportFamily `yaml:"family"`
	URLTemplates []string            `yaml:"url_templates"`
	Primary      bool                `yaml:"primary"`
}

type PipelineConfig struct {
	MaxWorkers  int `yaml:"max_workers"`
	WindowWeeks int `yaml:"window_weeks"`
}

type WriterConfig struct {
	OutputPath string        `yaml:"output_path"`
	Parquet    ParquetConfig `yaml:"parquet"`
}

type ParquetConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Compression string `yaml:"compression"`
	ArchiveDir  string `yaml:"archive_dir"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	KeyPrefix       string `yaml:"key_prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

type ScheduleConfig struct {
	Cron       string `yaml:"cron"`
	RunOnStart bool   `yaml:"run_on_start"`
}

// DefaultConfigPath is where the configuration file lives unless a
// caller picks another location explicitly.
const DefaultConfigPath = "config/config.yml"

func LoadConfig(path string) (*Config, error) {
	path = resolveEnvSpecificPath(path, DefaultConfigPath)

	// Read configuration file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{
		Fetcher: FetcherConfig{
			MinResponseBytes: 1024,
			YearsBack:        1,
		},
		Pipeline: PipelineConfig{
			MaxWorkers:  4,
			WindowWeeks: 52,
		},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override S3 settings from environment variables if available
	if config.Storage.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			config.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}

	config.Storage.S3.Bucket = strings.TrimSpace(config.Storage.S3.Bucket)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// SourceFor returns the source configuration for a report family, or
// nil when the family has no configured candidate locations.
func (f *FetcherConfig) SourceFor(family models.ReportFamily) *SourceConfig {
	for i := range f.Sources {
		if f.Sources[i].Family == family {
			return &f.Sources[i]
		}
	}
	return nil
}

// PrimarySource returns the source flagged as primary, falling back to
// the first configured source when none carries the flag.
func (f *FetcherConfig) PrimarySource() *SourceConfig {
	for i := range f.Sources {
		if f.Sources[i].Primary {
			return &f.Sources[i]
		}
	}
	if len(f.Sources) > 0 {
		return &f.Sources[0]
	}
	return nil
}

func validateConfig(cfg *Config) error {
	if cfg.Cotflow.Name == "" {
		return fmt.Errorf("cotflow.name is required")
	}

	if cfg.Cotflow.Version == "" {
		return fmt.Errorf("cotflow.version is required")
	}

	if cfg.Fetcher.Timeout <= 0 {
		return fmt.Errorf("fetcher.timeout must be greater than 0")
	}

	if len(cfg.Fetcher.Sources) == 0 {
		return fmt.Errorf("fetcher.sources must name at least one report source")
	}
	for i, src := range cfg.Fetcher.Sources {
		switch src.Family {
		case models.FamilyLegacy, models.FamilyDisaggregated:
		default:
			return fmt.Errorf("fetcher.sources[%d].family '%s' is unknown", i, src.Family)
		}
		if len(src.URLTemplates) == 0 {
			return fmt.Errorf("fetcher.sources[%d].url_templates must not be empty", i)
		}
	}

	if cfg.Pipeline.MaxWorkers <= 0 {
		return fmt.Errorf("pipeline.max_workers must be greater than 0")
	}
	if cfg.Pipeline.WindowWeeks <= 0 {
		return fmt.Errorf("pipeline.window_weeks must be greater than 0")
	}

	if len(cfg.Instruments) == 0 {
		return fmt.Errorf("instruments must name at least one tracked instrument")
	}
	seen := make(map[string]struct{}, len(cfg.Instruments))
	for i, inst := range cfg.Instruments {
		if inst.Symbol == "" {
			return fmt.Errorf("instruments[%d].symbol is required", i)
		}
		if _, dup := seen[inst.Symbol]; dup {
			return fmt.Errorf("instruments[%d].symbol '%s' is duplicated", i, inst.Symbol)
		}
		seen[inst.Symbol] = struct{}{}
		if inst.MarketCode == "" && inst.NameFragment == "" {
			return fmt.Errorf("instruments[%d] needs a market_code or a name_fragment", i)
		}
		if cfg.Fetcher.SourceFor(inst.Family) == nil {
			return fmt.Errorf("instruments[%d].family '%s' has no configured source", i, inst.Family)
		}
	}

	if cfg.Writer.OutputPath == "" {
		return fmt.Errorf("writer.output_path is required")
	}

	if IsProductionLike(getAppEnvironment()) && cfg.Schedule.Cron == "" {
		return fmt.Errorf("schedule.cron is required in production-like environments")
	}

	if cfg.Writer.Parquet.Enabled && !cfg.Storage.S3.Enabled && cfg.Writer.Parquet.ArchiveDir == "" {
		return fmt.Errorf("writer.parquet.archive_dir is required when parquet archival runs without S3")
	}

	if cfg.Storage.S3.Enabled {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when S3 is enabled")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when S3 is enabled")
		}
		if cfg.Storage.S3.AccessKeyID == "" || cfg.Storage.S3.SecretAccessKey == "" {
			return fmt.Errorf("storage.s3.access_key_id and storage.s3.secret_access_key are required when S3 is enabled")
		}
		if !isValidS3Bucket(cfg.Storage.S3.Bucket) {
			return fmt.Errorf("storage.s3.bucket '%s' is invalid", cfg.Storage.S3.Bucket)
		}
	}

	return nil
}

var s3BucketRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func isValidS3Bucket(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	return s3BucketRegexp.MatchString(name)
}

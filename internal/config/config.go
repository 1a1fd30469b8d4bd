package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"github.com/solutionspelichet/library-un/pkg/contracts/domain"
)

// EnvPrefix namespaces every environment variable (RECONCILE_SINK_MODE, ...)
const EnvPrefix = "RECONCILE"

// Sink modes
const (
	SinkAppsScript = "apps_script"
	SinkSheets     = "sheets"
	SinkFile       = "file"
	SinkNone       = "none"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	Sink      SinkConfig      `yaml:"sink" envconfig:"SINK"`
	Pipeline  PipelineConfig  `yaml:"pipeline" envconfig:"PIPELINE"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int             `yaml:"port" envconfig:"PORT" default:"8080" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"60s" validate:"gt=0"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"120s" validate:"gt=0"`
	IdleTimeout     time.Duration   `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes  int             `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	AllowedOrigins  []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"10" validate:"gte=0"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"20" validate:"gte=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"stdout" validate:"oneof=stdout file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/reconcile.log"`
}

// TelemetryConfig toggles OpenTelemetry providers
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name" envconfig:"SERVICE_NAME" default:"library-un"`
	MetricsEnabled bool   `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED" default:"true"`
	TracingEnabled bool   `yaml:"tracing_enabled" envconfig:"TRACING_ENABLED" default:"false"`
	// TraceExporter is "stdout" or "none"
	TraceExporter string `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" default:"none" validate:"oneof=stdout none"`
}

// SinkConfig selects and configures where results are delivered
type SinkConfig struct {
	Mode            string        `yaml:"mode" envconfig:"MODE" default:"apps_script" validate:"oneof=apps_script sheets file none"`
	AppsScriptURL   string        `yaml:"apps_script_url" envconfig:"APPS_SCRIPT_URL"`
	SheetID         string        `yaml:"sheet_id" envconfig:"SHEET_ID"`
	Secret          string        `yaml:"secret" envconfig:"SECRET"`
	Timeout         time.Duration `yaml:"timeout" envconfig:"TIMEOUT" default:"45s" validate:"gt=0"`
	CredentialsFile string        `yaml:"credentials_file" envconfig:"CREDENTIALS_FILE"`
	ResultsSheet    string        `yaml:"results_sheet" envconfig:"RESULTS_SHEET" default:"resultats"`
	ScaledSheet     string        `yaml:"scaled_sheet" envconfig:"SCALED_SHEET" default:"ML"`
	ArchiveFolderID string        `yaml:"archive_folder_id" envconfig:"ARCHIVE_FOLDER_ID"`
	OutputFile      string        `yaml:"output_file" envconfig:"OUTPUT_FILE" default:"data/payload.json"`
}

// PipelineConfig holds the reconciliation parameters
type PipelineConfig struct {
	Multiplier        float64 `yaml:"multiplier" envconfig:"MULTIPLIER" default:"0.35"`
	MaxFileMB         int     `yaml:"max_file_mb" envconfig:"MAX_FILE_MB" default:"50" validate:"min=1"`
	ArchiveTracking   bool    `yaml:"archive_tracking" envconfig:"ARCHIVE_TRACKING" default:"true"`
	TrackingColumns   string  `yaml:"tracking_columns" envconfig:"TRACKING_COLUMNS" default:"A,B,C,D"`
	ExtractionColumns string  `yaml:"extraction_columns" envconfig:"EXTRACTION_COLUMNS" default:"A,B,C,D"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" default:"1024"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" default:"1024"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD" default:"30s"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT" default:"60s"`
}

// MaxFileBytes returns the upload limit in bytes
func (p PipelineConfig) MaxFileBytes() int64 {
	return int64(p.MaxFileMB) << 20
}

// Load loads configuration from environment variables and an optional YAML
// file. Values set in the environment win over the file.
func Load() (*Config, error) {
	return LoadFrom(getConfigFilePath())
}

// LoadFrom is Load with an explicit YAML file; an empty path skips the file
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		fileConfig, err := loadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = fileConfig
	}

	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// applyEnv overlays only the variables actually present in the environment.
// envconfig fills every field on a fresh struct; the explicit ones are then
// copied onto cfg.
func applyEnv(cfg *Config) error {
	var env Config
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return err
	}
	set := func(name string) bool {
		_, ok := os.LookupEnv(EnvPrefix + "_" + name)
		return ok
	}

	if set("SERVER_PORT") {
		cfg.Server.Port = env.Server.Port
	}
	if set("SERVER_READ_TIMEOUT") {
		cfg.Server.ReadTimeout = env.Server.ReadTimeout
	}
	if set("SERVER_WRITE_TIMEOUT") {
		cfg.Server.WriteTimeout = env.Server.WriteTimeout
	}
	if set("SERVER_ALLOWED_ORIGINS") {
		cfg.Server.AllowedOrigins = env.Server.AllowedOrigins
	}
	if set("SERVER_RATE_LIMIT_ENABLED") {
		cfg.Server.RateLimit.Enabled = env.Server.RateLimit.Enabled
	}
	if set("SERVER_RATE_LIMIT_RPS") {
		cfg.Server.RateLimit.RPS = env.Server.RateLimit.RPS
	}
	if set("SERVER_RATE_LIMIT_BURST") {
		cfg.Server.RateLimit.Burst = env.Server.RateLimit.Burst
	}

	if set("LOGGING_LEVEL") {
		cfg.Logging.Level = env.Logging.Level
	}
	if set("LOGGING_OUTPUT") {
		cfg.Logging.Output = env.Logging.Output
	}
	if set("LOGGING_FILE_PATH") {
		cfg.Logging.FilePath = env.Logging.FilePath
	}

	if set("TELEMETRY_METRICS_ENABLED") {
		cfg.Telemetry.MetricsEnabled = env.Telemetry.MetricsEnabled
	}
	if set("TELEMETRY_TRACING_ENABLED") {
		cfg.Telemetry.TracingEnabled = env.Telemetry.TracingEnabled
	}
	if set("TELEMETRY_TRACE_EXPORTER") {
		cfg.Telemetry.TraceExporter = env.Telemetry.TraceExporter
	}

	if set("SINK_MODE") {
		cfg.Sink.Mode = env.Sink.Mode
	}
	if set("SINK_APPS_SCRIPT_URL") {
		cfg.Sink.AppsScriptURL = env.Sink.AppsScriptURL
	}
	if set("SINK_SHEET_ID") {
		cfg.Sink.SheetID = env.Sink.SheetID
	}
	if set("SINK_SECRET") {
		cfg.Sink.Secret = env.Sink.Secret
	}
	if set("SINK_TIMEOUT") {
		cfg.Sink.Timeout = env.Sink.Timeout
	}
	if set("SINK_CREDENTIALS_FILE") {
		cfg.Sink.CredentialsFile = env.Sink.CredentialsFile
	}
	if set("SINK_RESULTS_SHEET") {
		cfg.Sink.ResultsSheet = env.Sink.ResultsSheet
	}
	if set("SINK_SCALED_SHEET") {
		cfg.Sink.ScaledSheet = env.Sink.ScaledSheet
	}
	if set("SINK_ARCHIVE_FOLDER_ID") {
		cfg.Sink.ArchiveFolderID = env.Sink.ArchiveFolderID
	}
	if set("SINK_OUTPUT_FILE") {
		cfg.Sink.OutputFile = env.Sink.OutputFile
	}

	if set("PIPELINE_MULTIPLIER") {
		cfg.Pipeline.Multiplier = env.Pipeline.Multiplier
	}
	if set("PIPELINE_MAX_FILE_MB") {
		cfg.Pipeline.MaxFileMB = env.Pipeline.MaxFileMB
	}
	if set("PIPELINE_ARCHIVE_TRACKING") {
		cfg.Pipeline.ArchiveTracking = env.Pipeline.ArchiveTracking
	}
	if set("PIPELINE_TRACKING_COLUMNS") {
		cfg.Pipeline.TrackingColumns = env.Pipeline.TrackingColumns
	}
	if set("PIPELINE_EXTRACTION_COLUMNS") {
		cfg.Pipeline.ExtractionColumns = env.Pipeline.ExtractionColumns
	}
	return nil
}

// loadFromFile reads a YAML file over the defaults
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct tags and the constraints that depend on the sink mode
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	for name, cols := range map[string]string{
		"tracking":   c.Pipeline.TrackingColumns,
		"extraction": c.Pipeline.ExtractionColumns,
	} {
		if _, err := ParseColumns(cols); err != nil {
			return fmt.Errorf("%s columns: %w", name, err)
		}
	}

	switch c.Sink.Mode {
	case SinkAppsScript:
		if c.Sink.AppsScriptURL == "" {
			return fmt.Errorf("sink mode %s requires an Apps Script URL", c.Sink.Mode)
		}
	case SinkSheets:
		if c.Sink.SheetID == "" {
			return fmt.Errorf("sink mode %s requires a sheet id", c.Sink.Mode)
		}
	case SinkFile:
		if c.Sink.OutputFile == "" {
			return fmt.Errorf("sink mode %s requires an output file", c.Sink.Mode)
		}
	}
	return nil
}

// ParseColumns reads "key,user,value,date" column letters, e.g. "A,B,C,D"
func ParseColumns(s string) (domain.ColumnMapping, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return domain.ColumnMapping{}, fmt.Errorf("expected 4 comma-separated column letters, got %q", s)
	}
	for i := range parts {
		parts[i] = strings.ToUpper(strings.TrimSpace(parts[i]))
	}
	m := domain.ColumnMapping{Key: parts[0], User: parts[1], Value: parts[2], Date: parts[3]}
	if err := validator.New().Struct(m); err != nil {
		return domain.ColumnMapping{}, fmt.Errorf("invalid column letters %q: %w", s, err)
	}
	return m, nil
}

// getConfigFilePath returns the path to the config file, or ""
func getConfigFilePath() string {
	if path := os.Getenv(EnvPrefix + "_CONFIG_FILE"); path != "" {
		return path
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     60 * time.Second,
			WriteTimeout:    120 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 30 * time.Second,
			AllowedOrigins:  []string{"http://localhost:8080"},
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     10,
				Burst:   20,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "stdout",
			FilePath: "logs/reconcile.log",
		},
		Telemetry: TelemetryConfig{
			ServiceName:    AppName,
			MetricsEnabled: true,
			TraceExporter:  "none",
		},
		Sink: SinkConfig{
			Mode:         SinkAppsScript,
			Timeout:      DefaultSinkTimeout,
			ResultsSheet: DefaultResultsSheet,
			ScaledSheet:  DefaultScaledSheet,
			OutputFile:   "data/payload.json",
		},
		Pipeline: PipelineConfig{
			Multiplier:        DefaultMultiplier,
			MaxFileMB:         DefaultMaxFileMB,
			ArchiveTracking:   true,
			TrackingColumns:   DefaultColumns,
			ExtractionColumns: DefaultColumns,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
		},
	}
}

// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for every environment variable override (e.g. PAGELOAD_LOGGER_LEVEL).
const EnvPrefix = "PAGELOAD"

// Config holds the entire application configuration. It describes the execution
// environment of the harness (where the browser, extension, artifact and resolver
// file live). The measurement itself is described by schemas.MeasurementRequest,
// which is built from CLI arguments.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Capture  CaptureConfig  `mapstructure:"capture" yaml:"capture"`
	Resolver ResolverConfig `mapstructure:"resolver" yaml:"resolver"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the instrumented browser process.
type BrowserConfig struct {
	// ExecPath is the browser binary. Empty lets chromedp search the usual locations.
	ExecPath string `mapstructure:"exec_path" yaml:"exec_path"`
	// ExtensionPath is the unpacked capture extension installed into every session.
	ExtensionPath string `mapstructure:"extension_path" yaml:"extension_path"`
	// ProfileRoot is the parent directory for session scoped profiles. Empty means os.TempDir.
	ProfileRoot string `mapstructure:"profile_root" yaml:"profile_root"`
	// Args are extra command line switches appended to the launch policy.
	Args           []string      `mapstructure:"args" yaml:"args"`
	LaunchTimeout  time.Duration `mapstructure:"launch_timeout" yaml:"launch_timeout"`
	InstallTimeout time.Duration `mapstructure:"install_timeout" yaml:"install_timeout"`
	QuitTimeout    time.Duration `mapstructure:"quit_timeout" yaml:"quit_timeout"`
	// Debug forwards the browser's CDP protocol log to the logger at debug level.
	Debug bool `mapstructure:"debug" yaml:"debug"`
}

// CaptureConfig describes where the out-of-band writer places the trace.
type CaptureConfig struct {
	ArtifactPath string        `mapstructure:"artifact_path" yaml:"artifact_path"`
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
}

// ResolverConfig describes the resolver file and the optional preflight probe.
type ResolverConfig struct {
	ConfPath         string        `mapstructure:"conf_path" yaml:"conf_path"`
	Preflight        bool          `mapstructure:"preflight" yaml:"preflight"`
	PreflightTimeout time.Duration `mapstructure:"preflight_timeout" yaml:"preflight_timeout"`
	Port             int           `mapstructure:"port" yaml:"port"`
}

// OutputConfig selects the artifact destination. "-" is standard output.
type OutputConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
	// ReportPath, when set, receives one result record per measurement.
	ReportPath   string `mapstructure:"report_path" yaml:"report_path"`
	ReportFormat string `mapstructure:"report_format" yaml:"report_format"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "pageload-measure")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.extension_path", "/home/seluser/measure/har-export-trigger")
	v.SetDefault("browser.profile_root", "")
	v.SetDefault("browser.args", []string{})
	v.SetDefault("browser.launch_timeout", "60s")
	v.SetDefault("browser.install_timeout", "10s")
	v.SetDefault("browser.quit_timeout", "10s")
	v.SetDefault("browser.debug", false)

	// -- Capture --
	v.SetDefault("capture.artifact_path", "/home/seluser/measure/har.json")
	v.SetDefault("capture.poll_interval", "1s")

	// -- Resolver --
	v.SetDefault("resolver.conf_path", "/etc/resolv.conf")
	v.SetDefault("resolver.preflight", false)
	v.SetDefault("resolver.preflight_timeout", "5s")
	v.SetDefault("resolver.port", 53)

	// -- Output --
	v.SetDefault("output.path", "-")
	v.SetDefault("output.report_path", "")
	v.SetDefault("output.report_format", "json")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// expandPaths resolves a leading "~" in every filesystem path.
func (c *Config) expandPaths() error {
	paths := []*string{
		&c.Logger.LogFile,
		&c.Browser.ExecPath,
		&c.Browser.ExtensionPath,
		&c.Browser.ProfileRoot,
		&c.Capture.ArtifactPath,
		&c.Resolver.ConfPath,
	}
	for _, p := range paths {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("failed to expand path %q: %w", *p, err)
		}
		*p = expanded
	}
	if c.Output.Path != "-" {
		expanded, err := homedir.Expand(c.Output.Path)
		if err != nil {
			return fmt.Errorf("failed to expand path %q: %w", c.Output.Path, err)
		}
		c.Output.Path = expanded
	}
	if c.Output.ReportPath != "stderr" {
		expanded, err := homedir.Expand(c.Output.ReportPath)
		if err != nil {
			return fmt.Errorf("failed to expand path %q: %w", c.Output.ReportPath, err)
		}
		c.Output.ReportPath = expanded
	}
	return nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Browser.ExtensionPath == "" {
		return fmt.Errorf("browser.extension_path is required")
	}
	if c.Browser.LaunchTimeout <= 0 {
		return fmt.Errorf("browser.launch_timeout must be a positive duration")
	}
	if c.Browser.InstallTimeout <= 0 {
		return fmt.Errorf("browser.install_timeout must be a positive duration")
	}
	if c.Browser.QuitTimeout <= 0 {
		return fmt.Errorf("browser.quit_timeout must be a positive duration")
	}
	if c.Capture.ArtifactPath == "" {
		return fmt.Errorf("capture.artifact_path is required")
	}
	if c.Capture.PollInterval <= 0 {
		return fmt.Errorf("capture.poll_interval must be a positive duration")
	}
	if c.Resolver.ConfPath == "" {
		return fmt.Errorf("resolver.conf_path is required")
	}
	if c.Resolver.Port <= 0 || c.Resolver.Port > 65535 {
		return fmt.Errorf("resolver.port must be between 1 and 65535")
	}
	if c.Resolver.Preflight && c.Resolver.PreflightTimeout <= 0 {
		return fmt.Errorf("resolver.preflight_timeout must be a positive duration")
	}
	if c.Output.Path == "" {
		return fmt.Errorf("output.path must be a file path or \"-\" for stdout")
	}
	if c.Output.ReportPath != "" && c.Output.ReportFormat != "json" && c.Output.ReportFormat != "csv" {
		return fmt.Errorf("output.report_format must be \"json\" or \"csv\"")
	}
	return nil
}

package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/oxygene76/drift-comparator/pkg/drift"
)

// EnvPrefix is prepended to environment overrides, e.g. DRIFT_MODEL_ALPHA.
const EnvPrefix = "DRIFT"

// DefaultProjectionDate is the date the residual trend is projected to.
const DefaultProjectionDate = "2026-03-01"

// Config represents the comparator configuration
type Config struct {
	Model      ModelConfig      `yaml:"model" mapstructure:"model"`
	Schema     SchemaConfig     `yaml:"schema" mapstructure:"schema"`
	Projection ProjectionConfig `yaml:"projection" mapstructure:"projection"`
	Output     OutputConfig     `yaml:"output" mapstructure:"output"`
	LogLevel   string           `yaml:"log_level" mapstructure:"log_level"`
}

// ModelConfig holds the corrected-model parameters
type ModelConfig struct {
	Alpha    float64 `yaml:"alpha" mapstructure:"alpha"`
	LambdaKm float64 `yaml:"lambda_km" mapstructure:"lambda_km"`
}

// SchemaConfig selects the required input columns
type SchemaConfig struct {
	Profile string `yaml:"profile" mapstructure:"profile"`
}

// ProjectionConfig sets the future date of the trend projection
type ProjectionConfig struct {
	Date string `yaml:"date" mapstructure:"date"`
}

// OutputConfig controls which artefacts are written and where.
// ShowTrend only affects rendering.
type OutputConfig struct {
	Dir         string `yaml:"dir" mapstructure:"dir"`
	PNG         bool   `yaml:"png" mapstructure:"png"`
	HTML        bool   `yaml:"html" mapstructure:"html"`
	ShowTrend   bool   `yaml:"show_trend" mapstructure:"show_trend"`
	PreviewRows int    `yaml:"preview_rows" mapstructure:"preview_rows"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			Alpha:    drift.DefaultAlpha,
			LambdaKm: drift.DefaultLambdaKm,
		},
		Schema: SchemaConfig{
			Profile: string(drift.ProfileStrict),
		},
		Projection: ProjectionConfig{
			Date: DefaultProjectionDate,
		},
		Output: OutputConfig{
			Dir:         "output",
			PNG:         true,
			HTML:        true,
			ShowTrend:   true,
			PreviewRows: 5,
		},
		LogLevel: "info",
	}
}

// SetDefaults registers every configuration key with v so that config
// files, environment variables and bound flags can all override it.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("model.alpha", d.Model.Alpha)
	v.SetDefault("model.lambda_km", d.Model.LambdaKm)
	v.SetDefault("schema.profile", d.Schema.Profile)
	v.SetDefault("projection.date", d.Projection.Date)
	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("output.png", d.Output.PNG)
	v.SetDefault("output.html", d.Output.HTML)
	v.SetDefault("output.show_trend", d.Output.ShowTrend)
	v.SetDefault("output.preview_rows", d.Output.PreviewRows)
	v.SetDefault("log_level", d.LogLevel)
}

// LoadConfig loads configuration into v and unmarshals it. When cfgFile is
// empty the default search path is used ($HOME/.drift-comparator, then the
// working directory); a missing file there is not an error.
func LoadConfig(v *viper.Viper, cfgFile string) (*Config, error) {
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if dir, err := ConfigDir(); err == nil {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// SaveConfig writes config as YAML to path, creating the directory.
func SaveConfig(config *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	if err := config.Params().Validate(); err != nil {
		return err
	}

	if _, err := drift.ParseProfile(config.Schema.Profile); err != nil {
		return err
	}

	if _, err := config.ProjectionDate(); err != nil {
		return err
	}

	switch strings.ToLower(config.LogLevel) {
	case "debug", "info", "warn":
	default:
		return fmt.Errorf("invalid log level: %s", config.LogLevel)
	}

	if config.Output.PreviewRows < 0 {
		return fmt.Errorf("preview rows cannot be negative")
	}

	return nil
}

// ConfigDir returns $HOME/.drift-comparator
func ConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".drift-comparator"), nil
}

// GetConfigPath returns the path to the default config file
func GetConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Params returns the model parameters.
func (c *Config) Params() drift.Params {
	return drift.Params{Alpha: c.Model.Alpha, LambdaKm: c.Model.LambdaKm}
}

// Profile returns the schema profile, defaulting to strict.
func (c *Config) Profile() drift.Profile {
	p, err := drift.ParseProfile(c.Schema.Profile)
	if err != nil {
		return drift.ProfileStrict
	}
	return p
}

// ProjectionDate parses the projection target.
func (c *Config) ProjectionDate() (time.Time, error) {
	t, err := drift.ParseTime(c.Projection.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid projection date: %w", err)
	}
	return t, nil
}

// IsDebug reports whether debug logging is selected.
func (c *Config) IsDebug() bool {
	return strings.EqualFold(c.LogLevel, "debug")
}

// IsQuiet reports whether only warnings are logged.
func (c *Config) IsQuiet() bool {
	return strings.EqualFold(c.LogLevel, "warn")
}

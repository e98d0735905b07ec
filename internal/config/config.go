package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	// schedule.timezone must resolve on hosts without a zoneinfo database
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/pratik-mahalle/stagingctl/internal/domain/environment"
	apperrors "github.com/pratik-mahalle/stagingctl/internal/pkg/errors"
	"github.com/pratik-mahalle/stagingctl/internal/pkg/validator"
)

// EnvPrefix prefixes every environment variable override, e.g. STAGINGCTL_AWS_REGION
const EnvPrefix = "STAGINGCTL"

// Config holds all application configuration
type Config struct {
	AWS       AWSConfig             `mapstructure:"aws"`
	Inventory environment.Inventory `mapstructure:"inventory"`
	Sequencer SequencerConfig       `mapstructure:"sequencer"`
	Atlas     AtlasConfig           `mapstructure:"atlas"`
	Logging   LoggingConfig         `mapstructure:"logging"`
	Metrics   MetricsConfig         `mapstructure:"metrics"`
	Schedule  ScheduleConfig        `mapstructure:"schedule"`
}

// AWSConfig selects the region and, optionally, explicit credentials.
// Without keys or a profile the SDK default credential chain is used.
type AWSConfig struct {
	Region          string `mapstructure:"region"`
	Profile         string `mapstructure:"profile"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	SessionToken    string `mapstructure:"session_token"`
}

// SequencerConfig controls waits and container submission concurrency
type SequencerConfig struct {
	Verification environment.VerificationMode `mapstructure:"verification" validate:"oneof=none basic extended"`
	Concurrency  int                          `mapstructure:"concurrency" validate:"gte=1,lte=64"`
	// SubmitRate caps container update requests per second; 0 disables the cap.
	SubmitRate float64 `mapstructure:"submit_rate" validate:"gte=0"`
	// Waits overrides the per-class poll budgets of the verification mode.
	Waits environment.WaitPolicies `mapstructure:"waits"`
}

// AtlasConfig configures the managed cluster CLI
type AtlasConfig struct {
	Binary        string        `mapstructure:"binary" validate:"required"`
	ProjectID     string        `mapstructure:"project_id"`
	Timeout       time.Duration `mapstructure:"timeout" validate:"gt=0"`
	WarnOnFailure bool          `mapstructure:"warn_on_failure"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=auto json console"`
}

// MetricsConfig contains metrics export configuration
type MetricsConfig struct {
	// Textfile, when set, receives the metrics registry after each one-shot run.
	Textfile string `mapstructure:"textfile"`
}

// ScheduleConfig configures the scheduler daemon
type ScheduleConfig struct {
	Start    string `mapstructure:"start" validate:"cron"`
	Stop     string `mapstructure:"stop" validate:"cron"`
	Timezone string `mapstructure:"timezone" validate:"omitempty,timezone"`
	Listen   string `mapstructure:"listen"`
}

// SetDefaults registers the defaults of every key on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("aws.region", "ap-southeast-1")
	v.SetDefault("aws.profile", "")
	v.SetDefault("aws.access_key_id", "")
	v.SetDefault("aws.secret_access_key", "")
	v.SetDefault("aws.session_token", "")

	v.SetDefault("sequencer.verification", string(environment.VerificationExtended))
	v.SetDefault("sequencer.concurrency", 4)
	v.SetDefault("sequencer.submit_rate", 0)

	v.SetDefault("atlas.binary", "atlas")
	v.SetDefault("atlas.project_id", "")
	v.SetDefault("atlas.timeout", 2*time.Minute)
	v.SetDefault("atlas.warn_on_failure", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "auto")

	v.SetDefault("metrics.textfile", "")

	v.SetDefault("schedule.start", "")
	v.SetDefault("schedule.stop", "")
	v.SetDefault("schedule.timezone", "UTC")
	v.SetDefault("schedule.listen", ":9090")
}

// New returns a viper instance with defaults, env overrides and the config
// search path set up. An explicit file wins over the search path.
func New(file string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		return v
	}

	v.SetConfigName("stagingctl")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".stagingctl"))
	}
	return v
}

// Load reads configuration from file and environment
func Load(file string) (*Config, error) {
	return Read(New(file), file != "")
}

// Read loads .env, reads v's config file and decodes the result. A missing
// file is only an error when it was named explicitly.
func Read(v *viper.Viper, explicit bool) (*Config, error) {
	// Load .env file if it exists (ignore errors as it's optional)
	_ = godotenv.Load()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidConfig, "failed to read config file")
		}
	}

	return Decode(v)
}

// Decode unmarshals and validates the configuration held by v
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidConfig, "failed to decode config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if errs := validator.New().Validate(c); len(errs) > 0 {
		msgs := make([]string, 0, len(errs))
		for _, e := range errs {
			msgs = append(msgs, e.Message)
		}
		return apperrors.InvalidConfig("invalid configuration: "+strings.Join(msgs, "; "), errs)
	}

	if c.Inventory.IsEmpty() {
		return apperrors.InvalidConfig("invalid configuration: inventory names no resources", nil)
	}

	seen := make(map[string]bool, len(c.Inventory.ContainerServices))
	for _, svc := range c.Inventory.ContainerServices {
		if seen[svc.ID()] {
			return apperrors.InvalidConfig(fmt.Sprintf("invalid configuration: container service %s listed twice", svc.ID()), nil)
		}
		seen[svc.ID()] = true
	}

	if c.Sequencer.Verification != environment.VerificationNone {
		waits := c.WaitPolicies()
		for _, w := range []struct {
			class  string
			policy environment.WaitPolicy
		}{
			{"database", waits.Database},
			{"compute", waits.Compute},
			{"container", waits.Container},
		} {
			if w.policy.Delay <= 0 || w.policy.MaxAttempts < 1 {
				return apperrors.InvalidConfig(fmt.Sprintf("invalid configuration: %s wait policy needs a positive delay and at least one attempt", w.class), w.policy)
			}
		}
	}

	return nil
}

// WaitPolicies returns the verification mode's poll budgets with any
// per-class overrides from the config file applied.
func (c *Config) WaitPolicies() environment.WaitPolicies {
	p := environment.DefaultWaitPolicies(c.Sequencer.Verification)
	override := func(dst *environment.WaitPolicy, src environment.WaitPolicy) {
		if src.Delay > 0 {
			dst.Delay = src.Delay
		}
		if src.MaxAttempts > 0 {
			dst.MaxAttempts = src.MaxAttempts
		}
	}
	override(&p.Database, c.Sequencer.Waits.Database)
	override(&p.Compute, c.Sequencer.Waits.Compute)
	override(&p.Container, c.Sequencer.Waits.Container)
	return p
}

// HasStaticCredentials reports whether explicit AWS keys are configured
func (c AWSConfig) HasStaticCredentials() bool {
	return c.AccessKeyID != "" && c.SecretAccessKey != ""
}

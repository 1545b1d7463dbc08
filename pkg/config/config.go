package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
)

// Config captures service-level configuration. It is built once at process start
// and handed to each component; nothing reads ambient globals.
type Config struct {
	Server      ServerConfig      `mapstructure:"server" json:"server" yaml:"server"`
	VAPID       VAPIDConfig       `mapstructure:"vapid" json:"vapid" yaml:"vapid"`
	WebPush     WebPushConfig     `mapstructure:"webpush" json:"webpush" yaml:"webpush"`
	Persistence PersistenceConfig `mapstructure:"persistence" json:"persistence" yaml:"persistence"`
	Dispatcher  DispatcherConfig  `mapstructure:"dispatcher" json:"dispatcher" yaml:"dispatcher"`
	Schedule    ScheduleConfig    `mapstructure:"schedule" json:"schedule" yaml:"schedule"`
	Logging     LoggingConfig     `mapstructure:"logging" json:"logging" yaml:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host string `mapstructure:"host" json:"host" yaml:"host"`
	Port string `mapstructure:"port" json:"port" yaml:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%s", s.Host, s.Port)
}

// VAPIDConfig identifies the application server to push services.
type VAPIDConfig struct {
	Subject    string `mapstructure:"subject" json:"subject" yaml:"subject"`
	PublicKey  string `mapstructure:"public_key" json:"public_key" yaml:"public_key"`
	PrivateKey string `mapstructure:"private_key" json:"private_key" yaml:"private_key"`
}

// WebPushConfig tunes the push transport.
type WebPushConfig struct {
	PayloadEncryption bool          `mapstructure:"payload_encryption" json:"payload_encryption" yaml:"payload_encryption"`
	AutomaticPadding  bool          `mapstructure:"automatic_padding" json:"automatic_padding" yaml:"automatic_padding"`
	TTL               int           `mapstructure:"ttl" json:"ttl" yaml:"ttl"`
	Urgency           string        `mapstructure:"urgency" json:"urgency" yaml:"urgency"`
	Timeout           time.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout"`
	Proxy             string        `mapstructure:"proxy" json:"proxy" yaml:"proxy"`
	// PruneGone deletes subscriptions the push service reports as 404/410.
	PruneGone bool `mapstructure:"prune_gone" json:"prune_gone" yaml:"prune_gone"`
	DryRun    bool `mapstructure:"dry_run" json:"dry_run" yaml:"dry_run"`
}

// PersistenceConfig selects the subscription store.
type PersistenceConfig struct {
	Driver    string `mapstructure:"driver" json:"driver" yaml:"driver"`
	DSN       string `mapstructure:"dsn" json:"dsn" yaml:"dsn"`
	TableName string `mapstructure:"table_name" json:"table_name" yaml:"table_name"`
}

// DispatcherConfig sizes the broadcast queue and the per-broadcast fan-out pool.
type DispatcherConfig struct {
	MaxWorkers   int `mapstructure:"max_workers" json:"max_workers" yaml:"max_workers"`
	QueueWorkers int `mapstructure:"queue_workers" json:"queue_workers" yaml:"queue_workers"`
	QueueSize    int `mapstructure:"queue_size" json:"queue_size" yaml:"queue_size"`
}

// ScheduleConfig enables the periodic demo broadcast.
type ScheduleConfig struct {
	Enabled  bool   `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	Spec     string `mapstructure:"spec" json:"spec" yaml:"spec"`
	Timezone string `mapstructure:"timezone" json:"timezone" yaml:"timezone"`
}

// LoggingConfig controls the zerolog sink.
type LoggingConfig struct {
	Level  string `mapstructure:"level" json:"level" yaml:"level"`
	Format string `mapstructure:"format" json:"format" yaml:"format"`
}

var validUrgencies = map[string]bool{
	"very-low": true,
	"low":      true,
	"normal":   true,
	"high":     true,
}

// Defaults returns the baseline configuration.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: "8480",
		},
		WebPush: WebPushConfig{
			PayloadEncryption: true,
			AutomaticPadding:  true,
			TTL:               24 * 60 * 60,
			Urgency:           "normal",
			Timeout:           30 * time.Second,
		},
		Persistence: PersistenceConfig{
			Driver:    "sqlite",
			DSN:       "file:webpush.db?cache=shared",
			TableName: "push_subscriptions",
		},
		Dispatcher: DispatcherConfig{
			MaxWorkers:   4,
			QueueWorkers: 1,
			QueueSize:    64,
		},
		Schedule: ScheduleConfig{
			Enabled: false,
			Spec:    "@hourly",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate ensures required fields are present and sane.
func (c *Config) Validate() error {
	if c.Dispatcher.MaxWorkers <= 0 {
		return fmt.Errorf("dispatcher.max_workers must be > 0")
	}
	if c.Dispatcher.QueueWorkers <= 0 {
		return fmt.Errorf("dispatcher.queue_workers must be > 0")
	}
	if c.Dispatcher.QueueSize <= 0 {
		return fmt.Errorf("dispatcher.queue_size must be > 0")
	}
	if c.WebPush.TTL < 0 {
		return fmt.Errorf("webpush.ttl must be >= 0")
	}
	if c.WebPush.Timeout < 0 {
		return fmt.Errorf("webpush.timeout must be >= 0")
	}
	if !validUrgencies[c.WebPush.Urgency] {
		return fmt.Errorf("webpush.urgency %q is not one of very-low, low, normal, high", c.WebPush.Urgency)
	}
	if subject := strings.TrimSpace(c.VAPID.Subject); subject != "" &&
		!strings.HasPrefix(subject, "mailto:") && !strings.HasPrefix(subject, "https:") {
		return fmt.Errorf("vapid.subject must be a mailto: or https: URI")
	}
	if c.Schedule.Enabled && strings.TrimSpace(c.Schedule.Spec) == "" {
		return errors.New("schedule.spec is required when the schedule is enabled")
	}
	return nil
}

// RequireVAPID reports missing VAPID material. Commands that sign requests call it.
func (c *Config) RequireVAPID() error {
	var missing []string
	if strings.TrimSpace(c.VAPID.Subject) == "" {
		missing = append(missing, "VAPID_SUBJECT")
	}
	if strings.TrimSpace(c.VAPID.PublicKey) == "" {
		missing = append(missing, "VAPID_PUBLIC_KEY")
	}
	if strings.TrimSpace(c.VAPID.PrivateKey) == "" {
		missing = append(missing, "VAPID_PRIVATE_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("vapid: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// Load decodes arbitrary input (struct, map, cfg struct) using cfgx helpers.
// When cfgx yields a zero value we decode over Defaults() so omitted keys keep
// their baseline values.
func Load(input any, opts ...LoadOption) (Config, error) {
	settings := loadOptions{}
	for _, opt := range opts {
		opt(&settings)
	}

	cfg, err := cfgx.Build(input, settings.buildOpts...)
	if err != nil {
		return Config{}, err
	}

	if isZero(cfg) {
		cfg = Defaults()
		if err := decodeFallback(input, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg = cfg.withDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadOption lets callers amend cfgx build options.
type LoadOption func(*loadOptions)

type loadOptions struct {
	buildOpts []cfgx.Option[Config]
}

// WithBuildOptions forwards cfgx options (duration hooks, preprocessors, etc.).
func WithBuildOptions(opts ...cfgx.Option[Config]) LoadOption {
	return func(lo *loadOptions) {
		lo.buildOpts = append(lo.buildOpts, opts...)
	}
}

// withDefaults fills zero strings and numbers. Booleans are left untouched.
func (c Config) withDefaults() Config {
	defaults := Defaults()

	if c.Server.Host == "" {
		c.Server.Host = defaults.Server.Host
	}
	if c.Server.Port == "" {
		c.Server.Port = defaults.Server.Port
	}
	if c.WebPush.Urgency == "" {
		c.WebPush.Urgency = defaults.WebPush.Urgency
	}
	if c.WebPush.Timeout == 0 {
		c.WebPush.Timeout = defaults.WebPush.Timeout
	}
	if c.Persistence.Driver == "" {
		c.Persistence.Driver = defaults.Persistence.Driver
	}
	if c.Persistence.DSN == "" {
		c.Persistence.DSN = defaults.Persistence.DSN
	}
	if c.Persistence.TableName == "" {
		c.Persistence.TableName = defaults.Persistence.TableName
	}
	if c.Dispatcher.MaxWorkers == 0 {
		c.Dispatcher.MaxWorkers = defaults.Dispatcher.MaxWorkers
	}
	if c.Dispatcher.QueueWorkers == 0 {
		c.Dispatcher.QueueWorkers = defaults.Dispatcher.QueueWorkers
	}
	if c.Dispatcher.QueueSize == 0 {
		c.Dispatcher.QueueSize = defaults.Dispatcher.QueueSize
	}
	if c.Schedule.Spec == "" {
		c.Schedule.Spec = defaults.Schedule.Spec
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = defaults.Logging.Format
	}
	return c
}

func isZero(cfg Config) bool {
	return reflect.DeepEqual(cfg, Config{})
}

func decodeFallback(input any, cfg *Config) error {
	switch v := input.(type) {
	case nil:
		return nil
	case Config:
		*cfg = v
		return nil
	case *Config:
		if v != nil {
			*cfg = *v
		}
		return nil
	case map[string]any:
		return decodeMap(v, cfg)
	default:
		return fmt.Errorf("unsupported config input type: %T", input)
	}
}

func decodeMap(input map[string]any, cfg *Config) error {
	if input == nil {
		return nil
	}
	payload, err := json.Marshal(input)
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, cfg)
}

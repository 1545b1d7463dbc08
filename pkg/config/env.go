package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "go.yaml.in/yaml/v3"
)

// Environment variables recognized by ApplyEnv.
const (
	EnvVAPIDSubject      = "VAPID_SUBJECT"
	EnvVAPIDPublicKey    = "VAPID_PUBLIC_KEY"
	EnvVAPIDPrivateKey   = "VAPID_PRIVATE_KEY"
	EnvPayloadEncryption = "WEBPUSH_PAYLOAD_ENCRYPTION"
	EnvAutomaticPadding  = "WEBPUSH_AUTOMATIC_PADDING"
	EnvTTL               = "WEBPUSH_TTL"
	EnvUrgency           = "WEBPUSH_URGENCY"
	EnvTimeout           = "WEBPUSH_TIMEOUT"
	EnvProxy             = "WEBPUSH_PROXY"
	EnvPruneGone         = "WEBPUSH_PRUNE_GONE"
	EnvDryRun            = "WEBPUSH_DRY_RUN"
	EnvDBDriver          = "WEBPUSH_DB_DRIVER"
	EnvDBConnection      = "WEBPUSH_DB_CONNECTION"
	EnvDBTable           = "WEBPUSH_DB_TABLE"
	EnvMaxWorkers        = "WEBPUSH_MAX_WORKERS"
	EnvQueueWorkers      = "WEBPUSH_QUEUE_WORKERS"
	EnvQueueSize         = "WEBPUSH_QUEUE_SIZE"
	EnvScheduleEnabled   = "WEBPUSH_SCHEDULE_ENABLED"
	EnvSchedule          = "WEBPUSH_SCHEDULE"
	EnvTimezone          = "WEBPUSH_TIMEZONE"
	EnvHTTPHost          = "HTTP_HOST"
	EnvHTTPPort          = "HTTP_PORT"
	EnvLogLevel          = "LOG_LEVEL"
	EnvLogFormat         = "LOG_FORMAT"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// FromEnv loads Defaults overlaid with the process environment.
func FromEnv() (Config, error) {
	cfg := Defaults()
	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	return Load(cfg)
}

// LoadFile reads a YAML file over Defaults, then overlays the environment.
func LoadFile(path string) (Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	return Load(cfg)
}

// ApplyEnv overrides cfg with any variables found through lookup.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	if cfg == nil || lookup == nil {
		return nil
	}
	e := envReader{lookup: lookup}

	e.str(EnvVAPIDSubject, &cfg.VAPID.Subject)
	e.str(EnvVAPIDPublicKey, &cfg.VAPID.PublicKey)
	e.str(EnvVAPIDPrivateKey, &cfg.VAPID.PrivateKey)

	e.boolean(EnvPayloadEncryption, &cfg.WebPush.PayloadEncryption)
	e.boolean(EnvAutomaticPadding, &cfg.WebPush.AutomaticPadding)
	e.integer(EnvTTL, &cfg.WebPush.TTL)
	e.str(EnvUrgency, &cfg.WebPush.Urgency)
	e.duration(EnvTimeout, &cfg.WebPush.Timeout)
	e.str(EnvProxy, &cfg.WebPush.Proxy)
	e.boolean(EnvPruneGone, &cfg.WebPush.PruneGone)
	e.boolean(EnvDryRun, &cfg.WebPush.DryRun)

	e.str(EnvDBDriver, &cfg.Persistence.Driver)
	e.str(EnvDBConnection, &cfg.Persistence.DSN)
	e.str(EnvDBTable, &cfg.Persistence.TableName)

	e.integer(EnvMaxWorkers, &cfg.Dispatcher.MaxWorkers)
	e.integer(EnvQueueWorkers, &cfg.Dispatcher.QueueWorkers)
	e.integer(EnvQueueSize, &cfg.Dispatcher.QueueSize)

	e.boolean(EnvScheduleEnabled, &cfg.Schedule.Enabled)
	e.str(EnvSchedule, &cfg.Schedule.Spec)
	e.str(EnvTimezone, &cfg.Schedule.Timezone)

	e.str(EnvHTTPHost, &cfg.Server.Host)
	e.str(EnvHTTPPort, &cfg.Server.Port)
	e.str(EnvLogLevel, &cfg.Logging.Level)
	e.str(EnvLogFormat, &cfg.Logging.Format)

	return e.err
}

type envReader struct {
	lookup LookupFunc
	err    error
}

func (e *envReader) value(key string) (string, bool) {
	if e.err != nil {
		return "", false
	}
	v, ok := e.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.value(key); ok {
		*dst = v
	}
}

func (e *envReader) boolean(key string, dst *bool) {
	v, ok := e.value(key)
	if !ok {
		return
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		e.err = fmt.Errorf("config: %s: %w", key, err)
		return
	}
	*dst = parsed
}

func (e *envReader) integer(key string, dst *int) {
	v, ok := e.value(key)
	if !ok {
		return
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		e.err = fmt.Errorf("config: %s: %w", key, err)
		return
	}
	*dst = parsed
}

func (e *envReader) duration(key string, dst *time.Duration) {
	v, ok := e.value(key)
	if !ok {
		return
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		e.err = fmt.Errorf("config: %s: %w", key, err)
		return
	}
	*dst = parsed
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/open-control-systems/ping-monitor/components/events/evmqtt"
	"github.com/open-control-systems/ping-monitor/components/events/evredis"
	"github.com/open-control-systems/ping-monitor/components/http/htcore"
	"github.com/open-control-systems/ping-monitor/components/ping/pingalert"
	"github.com/open-control-systems/ping-monitor/components/ping/pingprobe"
	"github.com/open-control-systems/ping-monitor/components/ping/pingsched"
	"github.com/open-control-systems/ping-monitor/components/status"
	"github.com/open-control-systems/ping-monitor/components/storage/stinfluxdb"
)

// EnvPrefix is the prefix of environment variables overriding the configuration.
const EnvPrefix = "PING_MONITOR_"

// Storage backends.
const (
	BackendBbolt    = "bbolt"
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Result store kinds.
const (
	ResultsKV       = "kv"
	ResultsSQL      = "sql"
	ResultsInfluxDB = "influxdb"
)

// Config is the complete service configuration.
type Config struct {
	Log     LogConfig             `yaml:"log"`
	HTTP    htcore.ServerParams   `yaml:"http"`
	Probe   ProbeConfig           `yaml:"probe"`
	Alert   pingalert.Thresholds  `yaml:"alert"`
	Retry   pingsched.RetryParams `yaml:"retry"`
	Storage StorageConfig         `yaml:"storage"`
	Redis   evredis.ClientParams  `yaml:"redis"`
	Events  EventsConfig          `yaml:"events"`
	Sync    SyncConfig            `yaml:"sync"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Path   string `yaml:"path"`
}

// ProbeConfig configures device probing.
type ProbeConfig struct {
	// Kind - "tcp" or "icmp".
	Kind string `yaml:"kind"`

	// TCPPort - port for TCP connect probes.
	TCPPort int `yaml:"tcp_port"`

	// Timeout - upper bound for a single probe.
	Timeout time.Duration `yaml:"timeout"`

	// DefaultInterval - probing interval for targets without an explicit one.
	DefaultInterval time.Duration `yaml:"default_interval"`

	// MaxInflight - global cap on concurrent probes, 0 disables the cap.
	MaxInflight int64 `yaml:"max_inflight"`

	// AcquireTimeout - how long a probe waits for a free slot before it's skipped.
	AcquireTimeout time.Duration `yaml:"acquire_timeout"`

	// BreakerFailures - consecutive local errors opening the circuit.
	BreakerFailures uint32 `yaml:"breaker_failures"`

	// BreakerCooldown - how long the circuit stays open.
	BreakerCooldown time.Duration `yaml:"breaker_cooldown"`

	// ICMPPrivileged - use raw ICMP sockets.
	ICMPPrivileged bool `yaml:"icmp_privileged"`

	// ResolveTTL - how long resolved hostnames are cached.
	ResolveTTL time.Duration `yaml:"resolve_ttl"`
}

// StorageConfig configures persistence.
type StorageConfig struct {
	// Backend - store for targets and alert states: bbolt, memory, sqlite, or postgres.
	Backend string `yaml:"backend"`

	// Results - store for probe results: kv, sql, or influxdb.
	Results string `yaml:"results"`

	BboltPath   string              `yaml:"bbolt_path"`
	SQLitePath  string              `yaml:"sqlite_path"`
	PostgresDSN string              `yaml:"postgres_dsn"`
	InfluxDB    stinfluxdb.DBParams `yaml:"influxdb"`
}

// EventsConfig configures event sinks.
type EventsConfig struct {
	// Log - write events to the service log.
	Log bool `yaml:"log"`

	Redis RedisEventsConfig `yaml:"redis"`
	MQTT  MQTTEventsConfig  `yaml:"mqtt"`
}

// RedisEventsConfig configures publishing to redis streams.
type RedisEventsConfig struct {
	Enabled bool                 `yaml:"enabled"`
	Streams evredis.StreamParams `yaml:"streams"`
}

// MQTTEventsConfig configures publishing to an MQTT broker.
type MQTTEventsConfig struct {
	Enabled bool          `yaml:"enabled"`
	Params  evmqtt.Params `yaml:",inline"`
}

// SyncConfig configures the device directory consumer.
type SyncConfig struct {
	Enabled     bool                   `yaml:"enabled"`
	AutoMonitor bool                   `yaml:"auto_monitor"`
	Consumer    evredis.ConsumerParams `yaml:"consumer"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		HTTP: htcore.ServerParams{
			Host:            "0.0.0.0",
			Port:            8080,
			ShutdownTimeout: time.Second * 5,
		},
		Probe: ProbeConfig{
			Kind:            string(pingprobe.KindTCP),
			TCPPort:         80,
			Timeout:         time.Second * 5,
			DefaultInterval: time.Second * 30,
			MaxInflight:     256,
			AcquireTimeout:  time.Second,
			BreakerFailures: 5,
			BreakerCooldown: time.Minute,
			ResolveTTL:      time.Minute,
		},
		Alert: pingalert.DefaultThresholds(),
		Retry: pingsched.DefaultRetryParams(),
		Storage: StorageConfig{
			Backend:    BackendBbolt,
			Results:    ResultsKV,
			BboltPath:  "ping-monitor.db",
			SQLitePath: "ping-monitor.sqlite",
		},
		Redis: evredis.ClientParams{
			Addr: "localhost:6379",
		},
		Events: EventsConfig{
			Log: true,
			Redis: RedisEventsConfig{
				Streams: evredis.DefaultStreamParams(),
			},
			MQTT: MQTTEventsConfig{
				Params: evmqtt.Params{
					Broker:      "tcp://localhost:1883",
					ClientID:    "ping-monitor",
					TopicPrefix: "ping-monitor",
					QoS:         1,
				},
			},
		},
		Sync: SyncConfig{
			AutoMonitor: true,
			Consumer:    evredis.DefaultConsumerParams(),
		},
	}
}

// Load builds the configuration.
//
// Parameters:
//   - path - optional YAML file, applied over Default().
//
// Remarks:
//   - Variables from the .env file in the working directory are loaded if the file exists,
//     already set variables aren't overridden.
//   - PING_MONITOR_* variables are applied over the file.
func Load(path string) (Config, error) {
	return load(path, ".env")
}

func load(path string, envFile string) (Config, error) {
	if err := LoadDotEnv(envFile); err != nil {
		return Config{}, err
	}

	cfg := Default()

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: failed to read: path=%s: %w", path, err)
		}

		if err := yaml.Unmarshal(content, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: failed to parse: path=%s: %v: %w",
				path, err, status.StatusInvalidArg)
		}
	}

	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadDotEnv loads environment variables from the file, a missing file is ignored.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: failed to load env file: path=%s: %w", path, err)
	}

	return nil
}

// ApplyEnv overrides configuration values from the environment.
//
// Parameters:
//   - lookup - returns the variable value and whether it is set.
func ApplyEnv(cfg *Config, lookup func(key string) (string, bool)) error {
	for _, ov := range envOverrides(cfg) {
		value, ok := lookup(EnvPrefix + ov.key)
		if !ok {
			continue
		}

		if err := ov.apply(value); err != nil {
			return fmt.Errorf("config: invalid %s%s=%q: %v: %w",
				EnvPrefix, ov.key, value, err, status.StatusInvalidArg)
		}
	}

	return nil
}

// Validate ensures the configuration is consistent.
func (c Config) Validate() error {
	if err := c.Alert.Validate(); err != nil {
		return err
	}

	switch pingprobe.Kind(c.Probe.Kind) {
	case pingprobe.KindTCP, pingprobe.KindICMP:
	default:
		return invalid("probe.kind", c.Probe.Kind)
	}

	if c.Probe.TCPPort < 1 || c.Probe.TCPPort > 65535 {
		return invalid("probe.tcp_port", c.Probe.TCPPort)
	}

	if c.Probe.Timeout <= 0 {
		return invalid("probe.timeout", c.Probe.Timeout)
	}

	if c.Probe.DefaultInterval < time.Second {
		return invalid("probe.default_interval", c.Probe.DefaultInterval)
	}

	if c.Probe.MaxInflight < 0 {
		return invalid("probe.max_inflight", c.Probe.MaxInflight)
	}

	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return invalid("http.port", c.HTTP.Port)
	}

	if err := c.validateStorage(); err != nil {
		return err
	}

	if c.Events.MQTT.Enabled && c.Events.MQTT.Params.Broker == "" {
		return invalid("events.mqtt.broker", "")
	}

	if c.Events.MQTT.Params.QoS > 2 {
		return invalid("events.mqtt.qos", c.Events.MQTT.Params.QoS)
	}

	if (c.Events.Redis.Enabled || c.Sync.Enabled) && c.Redis.Addr == "" {
		return invalid("redis.addr", "")
	}

	if c.Sync.Enabled && (c.Sync.Consumer.Stream == "" || c.Sync.Consumer.Group == "" ||
		c.Sync.Consumer.Consumer == "") {
		return invalid("sync.consumer", c.Sync.Consumer.Stream)
	}

	return nil
}

func (c Config) validateStorage() error {
	switch c.Storage.Backend {
	case BackendBbolt:
		if c.Storage.BboltPath == "" {
			return invalid("storage.bbolt_path", "")
		}
	case BackendSQLite:
		if c.Storage.SQLitePath == "" {
			return invalid("storage.sqlite_path", "")
		}
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			return invalid("storage.postgres_dsn", "")
		}
	case BackendMemory:
	default:
		return invalid("storage.backend", c.Storage.Backend)
	}

	switch c.Storage.Results {
	case ResultsKV:
		if c.Storage.Backend != BackendBbolt && c.Storage.Backend != BackendMemory {
			return invalid("storage.results", c.Storage.Results)
		}
	case ResultsSQL:
		if c.Storage.Backend != BackendSQLite && c.Storage.Backend != BackendPostgres {
			return invalid("storage.results", c.Storage.Results)
		}
	case ResultsInfluxDB:
		if c.Storage.InfluxDB.URL == "" || c.Storage.InfluxDB.Bucket == "" {
			return invalid("storage.influxdb", c.Storage.InfluxDB.URL)
		}
	default:
		return invalid("storage.results", c.Storage.Results)
	}

	return nil
}

func invalid(key string, value any) error {
	return fmt.Errorf("config: invalid %s=%v: %w", key, value, status.StatusInvalidArg)
}

type envOverride struct {
	key   string
	apply func(value string) error
}

func envOverrides(cfg *Config) []envOverride {
	return []envOverride{
		{"LOG_LEVEL", setString(&cfg.Log.Level)},
		{"LOG_FORMAT", setString(&cfg.Log.Format)},
		{"LOG_PATH", setString(&cfg.Log.Path)},
		{"HTTP_HOST", setString(&cfg.HTTP.Host)},
		{"HTTP_PORT", setInt(&cfg.HTTP.Port)},
		{"PROBE_KIND", setString(&cfg.Probe.Kind)},
		{"PROBE_TCP_PORT", setInt(&cfg.Probe.TCPPort)},
		{"PROBE_TIMEOUT", setDuration(&cfg.Probe.Timeout)},
		{"PROBE_DEFAULT_INTERVAL", setDuration(&cfg.Probe.DefaultInterval)},
		{"PROBE_ICMP_PRIVILEGED", setBool(&cfg.Probe.ICMPPrivileged)},
		{"ALERT_FAILURE_THRESHOLD", setInt(&cfg.Alert.Failure)},
		{"ALERT_RECOVERY_THRESHOLD", setInt(&cfg.Alert.Recovery)},
		{"STORAGE_BACKEND", setString(&cfg.Storage.Backend)},
		{"STORAGE_RESULTS", setString(&cfg.Storage.Results)},
		{"BBOLT_PATH", setString(&cfg.Storage.BboltPath)},
		{"SQLITE_PATH", setString(&cfg.Storage.SQLitePath)},
		{"POSTGRES_DSN", setString(&cfg.Storage.PostgresDSN)},
		{"INFLUXDB_URL", setString(&cfg.Storage.InfluxDB.URL)},
		{"INFLUXDB_ORG", setString(&cfg.Storage.InfluxDB.Org)},
		{"INFLUXDB_BUCKET", setString(&cfg.Storage.InfluxDB.Bucket)},
		{"INFLUXDB_API_TOKEN", setString(&cfg.Storage.InfluxDB.Token)},
		{"REDIS_ADDR", setString(&cfg.Redis.Addr)},
		{"REDIS_PASSWORD", setString(&cfg.Redis.Password)},
		{"EVENTS_REDIS_ENABLED", setBool(&cfg.Events.Redis.Enabled)},
		{"MQTT_ENABLED", setBool(&cfg.Events.MQTT.Enabled)},
		{"MQTT_BROKER", setString(&cfg.Events.MQTT.Params.Broker)},
		{"MQTT_USERNAME", setString(&cfg.Events.MQTT.Params.Username)},
		{"MQTT_PASSWORD", setString(&cfg.Events.MQTT.Params.Password)},
		{"SYNC_ENABLED", setBool(&cfg.Sync.Enabled)},
		{"SYNC_AUTO_MONITOR", setBool(&cfg.Sync.AutoMonitor)},
	}
}

func setString(dst *string) func(string) error {
	return func(value string) error {
		*dst = value
		return nil
	}
}

func setInt(dst *int) func(string) error {
	return func(value string) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}

		*dst = n

		return nil
	}
}

func setBool(dst *bool) func(string) error {
	return func(value string) error {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}

		*dst = b

		return nil
	}
}

func setDuration(dst *time.Duration) func(string) error {
	return func(value string) error {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}

		*dst = d

		return nil
	}
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/alarm-queue/internal/logger"
	"github.com/oshokin/alarm-queue/internal/queue"
)

// Config holds the settings shared by the alarm-queue commands.
type Config struct {
	// LogLevel is the level of the application logger.
	LogLevel string `yaml:"log_level"`
	// QueueLogLevel is the level of the queue's own logger.
	QueueLogLevel string `yaml:"queue_log_level"`
	// Discipline is "blocking" or "non-blocking".
	Discipline string `yaml:"discipline"`
	// ArenaSize bounds queue storage in bytes. Zero means unbounded.
	ArenaSize int `yaml:"arena_size"`
	// Stress configures the stress harness.
	Stress Stress `yaml:"stress"`
}

// Stress holds the parameters of the producer/consumer stress harness.
type Stress struct {
	// Producers is the number of concurrent senders.
	Producers int `yaml:"producers"`
	// Consumers is the number of concurrent receivers.
	Consumers int `yaml:"consumers"`
	// Messages is the number of messages each producer sends.
	Messages int `yaml:"messages"`
	// AlarmRatio is the probability of a message being an alarm.
	AlarmRatio float64 `yaml:"alarm_ratio"`
	// Seed makes kind selection reproducible. Zero picks a random seed.
	Seed uint64 `yaml:"seed"`
	// Timeout bounds the whole run.
	Timeout time.Duration `yaml:"timeout"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "alarm-queue-settings.yaml"

	// DefaultLogLevel is used when no level is configured.
	DefaultLogLevel = "info"

	// DefaultQueueLogLevel keeps the queue quiet unless something goes wrong.
	DefaultQueueLogLevel = "warn"

	// DefaultProducers is the default number of stress producers.
	DefaultProducers = 4

	// DefaultConsumers is the default number of stress consumers.
	DefaultConsumers = 2

	// DefaultMessages is the default number of messages per producer.
	DefaultMessages = 1000

	// DefaultAlarmRatio is the default share of alarm messages.
	DefaultAlarmRatio = 0.1

	// DefaultTimeout is the default bound of a stress run.
	DefaultTimeout = 30 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errInvalidLogLevel is returned for an unknown level name.
	errInvalidLogLevel = errors.New("invalid log level")
	// errNegativeArena is returned for a negative arena size.
	errNegativeArena = errors.New("arena size must not be negative")
	// errInvalidStress is returned for unusable stress parameters.
	errInvalidStress = errors.New("invalid stress settings")
)

// Default returns a validated configuration with every default applied.
func Default() *Config {
	cfg := new(Config)

	//nolint:errcheck // The zero configuration is always valid.
	_ = Validate(cfg)

	return cfg
}

// Load reads configuration from the provided path and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadOrDefault behaves like Load but returns Default when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}

	return cfg, err
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills defaults and rejects unusable values.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("%w: %q", errInvalidLogLevel, cfg.LogLevel)
	}

	if cfg.QueueLogLevel == "" {
		cfg.QueueLogLevel = DefaultQueueLogLevel
	}

	if _, ok := logger.ParseLogLevel(cfg.QueueLogLevel); !ok {
		return fmt.Errorf("%w: %q", errInvalidLogLevel, cfg.QueueLogLevel)
	}

	discipline, err := queue.ParseDiscipline(cfg.Discipline)
	if err != nil {
		return fmt.Errorf("invalid discipline: %w", err)
	}

	cfg.Discipline = discipline.String()

	if cfg.ArenaSize < 0 {
		return errNegativeArena
	}

	return validateStress(&cfg.Stress)
}

// validateStress fills stress defaults and checks ranges.
func validateStress(s *Stress) error {
	if s.Producers == 0 {
		s.Producers = DefaultProducers
	}

	if s.Consumers == 0 {
		s.Consumers = DefaultConsumers
	}

	if s.Messages == 0 {
		s.Messages = DefaultMessages
	}

	if s.Timeout <= 0 {
		s.Timeout = DefaultTimeout
	}

	switch {
	case s.Producers < 0 || s.Consumers < 0 || s.Messages < 0:
		return fmt.Errorf("%w: counts must be positive", errInvalidStress)
	case s.AlarmRatio < 0 || s.AlarmRatio > 1:
		return fmt.Errorf("%w: alarm ratio %v outside [0, 1]", errInvalidStress, s.AlarmRatio)
	}

	return nil
}

// QueueDiscipline returns the parsed discipline.
func (c *Config) QueueDiscipline() queue.Discipline {
	d, err := queue.ParseDiscipline(c.Discipline)
	if err != nil {
		return queue.Blocking
	}

	return d
}

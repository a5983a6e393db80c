package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"order-events/domain"
	"order-events/storage"
)

// ErrUsage marks errors caused by invalid command-line input.
var ErrUsage = errors.New("usage error")

// Config holds the generator settings.
type Config struct {
	Orders          int    `yaml:"num_of_orders"`
	BatchSize       int    `yaml:"batch_size"`
	IntervalSeconds int    `yaml:"interval_seconds"`
	OutputDirectory string `yaml:"output_directory"`
	IDVersion       string `yaml:"id_version"`

	Debug     bool       `yaml:"-"`
	LogFormat string     `yaml:"-"`
	Sinks     SinkConfig `yaml:"-"`
}

// SinkConfig carries broker connection settings; empty values disable a sink.
type SinkConfig struct {
	StorageConnectionString string
	EventsQueue             string
	RedisConnectionString   string
	EventsChannel           string
	KafkaBrokers            []string
	KafkaTopic              string
}

func (s SinkConfig) QueueEnabled() bool {
	return s.StorageConnectionString != "" && s.EventsQueue != ""
}

func (s SinkConfig) RedisEnabled() bool {
	return s.RedisConnectionString != "" && s.EventsChannel != ""
}

func (s SinkConfig) KafkaEnabled() bool {
	return len(s.KafkaBrokers) > 0 && s.KafkaTopic != ""
}

// Default returns the settings used when nothing else is supplied.
func Default() Config {
	return Config{
		Orders:          1000000,
		BatchSize:       5000,
		IntervalSeconds: 1,
		OutputDirectory: "./",
		IDVersion:       domain.UUIDv1,
	}
}

// Interval is the pause between two file writes.
func (c Config) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// Parse builds a Config from defaults, an optional YAML file named by
// --config, explicitly set flags (in increasing precedence) and getenv.
// flag.ErrHelp is returned unwrapped; every other input error wraps ErrUsage.
func Parse(name string, args []string, getenv func(string) string, output io.Writer) (Config, error) {
	def := Default()
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)

	var (
		configPath string
		flagged    = def
	)
	fs.StringVar(&configPath, "config", "", "YAML file with generator settings")
	fs.IntVar(&flagged.Orders, "num_of_orders", def.Orders, "Number of orders you would like to generate")
	fs.IntVar(&flagged.BatchSize, "batch_size", def.BatchSize, "Number of events per JSON file")
	fs.IntVar(&flagged.IntervalSeconds, "interval_seconds", def.IntervalSeconds, "Time interval in seconds between the creation of each JSON file")
	fs.StringVar(&flagged.OutputDirectory, "output_directory", def.OutputDirectory, "Output location of the JSON files")
	fs.StringVar(&flagged.IDVersion, "id_version", def.IDVersion, "UUID version for order ids (v1 or v4)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return Config{}, err
		}
		return Config{}, fmt.Errorf("%w: %w", ErrUsage, err)
	}
	if fs.NArg() > 0 {
		return Config{}, fmt.Errorf("%w: unexpected arguments %v", ErrUsage, fs.Args())
	}

	cfg := def
	if configPath != "" {
		loaded, err := LoadFile(configPath, def)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %w", ErrUsage, err)
		}
		cfg = loaded
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "num_of_orders":
			cfg.Orders = flagged.Orders
		case "batch_size":
			cfg.BatchSize = flagged.BatchSize
		case "interval_seconds":
			cfg.IntervalSeconds = flagged.IntervalSeconds
		case "output_directory":
			cfg.OutputDirectory = flagged.OutputDirectory
		case "id_version":
			cfg.IDVersion = flagged.IDVersion
		}
	})

	applyEnv(&cfg, getenv)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile overlays the YAML file at path onto base.
func LoadFile(path string, base Config) (Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := base
	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to decode config file: %w", err)
	}
	return cfg, nil
}

// Validate rejects settings the generator cannot run with. Order counts and
// intervals are not range-checked.
func (c Config) Validate() error {
	if c.BatchSize < 1 {
		return fmt.Errorf("%w: batch_size must be at least 1, got %d", ErrUsage, c.BatchSize)
	}
	if _, err := domain.NewUUIDSource(c.IDVersion); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}
	if err := storage.CheckDirectory(c.OutputDirectory); err != nil {
		return fmt.Errorf("%w: invalid output directory: %w", ErrUsage, err)
	}
	return nil
}

// LoadDotEnv seeds the process environment from the given files, skipping
// files that do not exist. Variables already set are left untouched.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) {
	if getenv == nil {
		return
	}
	if dbg, err := strconv.ParseBool(getenv("DEBUG")); err == nil {
		cfg.Debug = dbg
	}
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(getenv("LOG_FORMAT")))
	cfg.Sinks = SinkConfig{
		StorageConnectionString: getenv("STORAGE_CONNECTION_STRING"),
		EventsQueue:             getenv("EVENTS_QUEUE"),
		RedisConnectionString:   getenv("REDIS_CONNECTION_STRING"),
		EventsChannel:           getenv("EVENTS_CHANNEL"),
		KafkaBrokers:            splitList(getenv("KAFKA_BROKERS")),
		KafkaTopic:              getenv("KAFKA_TOPIC"),
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

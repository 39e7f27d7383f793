package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/sbl8/ramnet/core"
	"github.com/sbl8/ramnet/kernels"
	ramnet_runtime "github.com/sbl8/ramnet/runtime"
)

const (
	envConfigFile    = "RAMNET_CONFIG_FILE"
	defaultTupleSize = 8
	defaultLevels    = 8
)

type appConfig struct {
	logLevel slog.Level

	trainPath string
	testPath  string

	kernel kernels.Op
	levels int
	cut    float64

	tupleSize     int
	storage       core.StorageKind
	seed          uint64
	linear        bool
	maxDenseWidth int

	workers   int
	maxBleach uint64
	stats     bool
}

type fileConfig struct {
	LogLevel string           `json:"log_level"`
	Train    string           `json:"train"`
	Test     string           `json:"test"`
	Encoding fileEncoding     `json:"encoding"`
	Model    fileModelConfig  `json:"model"`
	Runtime  fileRuntimeEntry `json:"runtime"`
}

type fileEncoding struct {
	Kernel string   `json:"kernel"`
	Levels *int     `json:"levels"`
	Cut    *float64 `json:"cut"`
}

type fileModelConfig struct {
	TupleSize     *int    `json:"tuple_size"`
	Storage       string  `json:"storage"`
	Seed          *uint64 `json:"seed"`
	Linear        *bool   `json:"linear"`
	MaxDenseWidth *int    `json:"max_dense_width"`
}

type fileRuntimeEntry struct {
	Workers   *int    `json:"workers"`
	MaxBleach *uint64 `json:"max_bleach"`
	Stats     *bool   `json:"stats"`
}

func defaultAppConfig() appConfig {
	return appConfig{
		logLevel:      slog.LevelInfo,
		kernel:        kernels.OpThermometer,
		levels:        defaultLevels,
		tupleSize:     defaultTupleSize,
		storage:       core.Sparse,
		seed:          1,
		maxDenseWidth: core.DefaultMaxDenseWidth,
		workers:       runtime.NumCPU(),
		maxBleach:     ramnet_runtime.DefaultMaxBleach,
	}
}

// loadConfig layers defaults, the optional config file, then flags the
// user set explicitly.
func loadConfig(args []string, stderr io.Writer) (appConfig, error) {
	cfg := defaultAppConfig()

	fs := flag.NewFlagSet("ramnet", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath = fs.String("config", "", "JSON config file (overrides "+envConfigFile+")")
		logLevel   = fs.String("log-level", "info", "Log level: debug, info, warn, error")
		train      = fs.String("train", "", "Training CSV: label,v1,v2,...")
		test       = fs.String("test", "", "Test CSV, same layout as -train")
		kernel     = fs.String("kernel", cfg.kernel.String(), "Encoding kernel: threshold, thermometer, onehot, bytes")
		levels     = fs.Int("levels", cfg.levels, "Bits per value for thermometer and onehot")
		cut        = fs.Float64("cut", 0, "Cut point for the threshold kernel")
		tuple      = fs.Int("tuple", cfg.tupleSize, "Address width of every node")
		storage    = fs.String("storage", cfg.storage.String(), "Node storage: dense or sparse")
		seed       = fs.Uint64("seed", cfg.seed, "Mapping permutation seed")
		linear     = fs.Bool("linear", false, "Map consecutive input bits to each node")
		maxDense   = fs.Int("max-dense-width", cfg.maxDenseWidth, "Widest dense node allowed")
		workers    = fs.Int("workers", cfg.workers, "Number of worker goroutines")
		maxBleach  = fs.Uint64("max-bleach", cfg.maxBleach, "Highest bleach level tried on ties")
		stats      = fs.Bool("stats", false, "Log classification statistics")
	)
	if err := fs.Parse(args); err != nil {
		return appConfig{}, err
	}

	path := strings.TrimSpace(*configPath)
	if path == "" {
		path = strings.TrimSpace(os.Getenv(envConfigFile))
	}
	if path != "" {
		if err := applyConfigFile(&cfg, path); err != nil {
			return appConfig{}, err
		}
	}

	var flagErr error
	fs.Visit(func(f *flag.Flag) {
		if flagErr != nil {
			return
		}
		switch f.Name {
		case "log-level":
			cfg.logLevel, flagErr = parseLogLevel(*logLevel)
		case "train":
			cfg.trainPath = *train
		case "test":
			cfg.testPath = *test
		case "kernel":
			cfg.kernel, flagErr = kernels.Lookup(*kernel)
		case "levels":
			cfg.levels = *levels
		case "cut":
			cfg.cut = *cut
		case "tuple":
			cfg.tupleSize = *tuple
		case "storage":
			cfg.storage, flagErr = core.ParseStorageKind(*storage)
		case "seed":
			cfg.seed = *seed
		case "linear":
			cfg.linear = *linear
		case "max-dense-width":
			cfg.maxDenseWidth = *maxDense
		case "workers":
			cfg.workers = *workers
		case "max-bleach":
			cfg.maxBleach = *maxBleach
		case "stats":
			cfg.stats = *stats
		}
		if flagErr != nil {
			flagErr = fmt.Errorf("flag -%s: %w", f.Name, flagErr)
		}
	})
	if flagErr != nil {
		return appConfig{}, flagErr
	}

	if err := validateAppConfig(&cfg); err != nil {
		return appConfig{}, err
	}
	return cfg, nil
}

func applyConfigFile(cfg *appConfig, path string) error {
	if cfg == nil {
		return fmt.Errorf("apply config file: nil config")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var parsed fileConfig
	if err := json.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if rawLevel := strings.TrimSpace(parsed.LogLevel); rawLevel != "" {
		level, err := parseLogLevel(rawLevel)
		if err != nil {
			return fmt.Errorf("parse log_level: %w", err)
		}
		cfg.logLevel = level
	}
	if v := strings.TrimSpace(parsed.Train); v != "" {
		cfg.trainPath = v
	}
	if v := strings.TrimSpace(parsed.Test); v != "" {
		cfg.testPath = v
	}

	if raw := strings.TrimSpace(parsed.Encoding.Kernel); raw != "" {
		op, err := kernels.Lookup(raw)
		if err != nil {
			return fmt.Errorf("parse encoding.kernel: %w", err)
		}
		cfg.kernel = op
	}
	if parsed.Encoding.Levels != nil {
		cfg.levels = *parsed.Encoding.Levels
	}
	if parsed.Encoding.Cut != nil {
		cfg.cut = *parsed.Encoding.Cut
	}

	if parsed.Model.TupleSize != nil {
		cfg.tupleSize = *parsed.Model.TupleSize
	}
	if raw := strings.TrimSpace(parsed.Model.Storage); raw != "" {
		kind, err := core.ParseStorageKind(raw)
		if err != nil {
			return fmt.Errorf("parse model.storage: %w", err)
		}
		cfg.storage = kind
	}
	if parsed.Model.Seed != nil {
		cfg.seed = *parsed.Model.Seed
	}
	if parsed.Model.Linear != nil {
		cfg.linear = *parsed.Model.Linear
	}
	if parsed.Model.MaxDenseWidth != nil {
		cfg.maxDenseWidth = *parsed.Model.MaxDenseWidth
	}

	if parsed.Runtime.Workers != nil {
		cfg.workers = *parsed.Runtime.Workers
	}
	if parsed.Runtime.MaxBleach != nil {
		cfg.maxBleach = *parsed.Runtime.MaxBleach
	}
	if parsed.Runtime.Stats != nil {
		cfg.stats = *parsed.Runtime.Stats
	}

	return nil
}

func validateAppConfig(cfg *appConfig) error {
	if cfg.trainPath == "" {
		return errors.New("training data is required: set -train or train in the config file")
	}
	if cfg.tupleSize < 1 || cfg.tupleSize > core.MaxAddressWidth {
		return fmt.Errorf("tuple size %d not in [1, %d]", cfg.tupleSize, core.MaxAddressWidth)
	}
	if cfg.workers <= 0 {
		return fmt.Errorf("workers must be > 0, got %d", cfg.workers)
	}
	if (cfg.kernel == kernels.OpThermometer || cfg.kernel == kernels.OpOneHot) && cfg.levels < 1 {
		return fmt.Errorf("%s kernel needs levels > 0, got %d", cfg.kernel, cfg.levels)
	}
	return nil
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unsupported level %q", raw)
	}
}

package app

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/corey/treesync/internal/adapters/bbolt"
	fsw "github.com/corey/treesync/internal/adapters/fsnotify"
	"github.com/corey/treesync/internal/domain/paths"
	"github.com/corey/treesync/internal/domain/validator"
)

// Environment variables read by LoadConfig.
const (
	EnvDB              = "TREESYNC_DB"
	EnvHTTPPort        = "TREESYNC_HTTP_PORT"
	EnvDebounce        = "TREESYNC_DEBOUNCE"
	EnvMaxWait         = "TREESYNC_MAX_WAIT"
	EnvMaxBatch        = "TREESYNC_MAX_BATCH"
	EnvLogLevel        = "TREESYNC_LOG_LEVEL"
	EnvCaseInsensitive = "TREESYNC_CASE_INSENSITIVE"
	EnvWorkers         = "TREESYNC_WORKERS"
	EnvHistorySize     = "TREESYNC_HISTORY_SIZE"
	EnvRoots           = "TREESYNC_ROOTS"
)

// Config holds initialization parameters for the App.
type Config struct {
	ProjectRoot     string
	ExtraRoots      []string      // additional roots watched as projects
	DBPath          string        // path to bbolt file (default: .treesync/treesync.db)
	HTTPPort        int           // preferred HTTP port (default: computed from project root)
	Debounce        time.Duration // quiet period before a batch is delivered
	MaxWait         time.Duration // longest a pending change waits (default: 10x Debounce)
	MaxBatch        int           // distinct paths that force an early flush
	LogLevel        slog.Level
	CaseInsensitive bool // path comparison policy
	Workers         int  // filter fan-out (default: GOMAXPROCS)
	HistorySize     int  // journal entries kept per project

	// Sink receives every classified batch from the watcher. Optional.
	Sink func(validator.Result) `json:"-"`
	// Logger defaults to slog.Default().
	Logger *slog.Logger `json:"-"`
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig(projectRoot string) Config {
	return Config{
		ProjectRoot:     projectRoot,
		DBPath:          NewPaths(projectRoot).DB,
		Debounce:        fsw.DefaultDebounce,
		MaxBatch:        fsw.DefaultMaxBatch,
		LogLevel:        slog.LevelInfo,
		CaseInsensitive: paths.SystemComparer() == paths.CaseInsensitive,
		Workers:         runtime.GOMAXPROCS(0),
		HistorySize:     bbolt.DefaultMaxEntries,
	}
}

// Comparer returns the path comparison policy selected by the config.
func (c Config) Comparer() paths.Comparer {
	if c.CaseInsensitive {
		return paths.CaseInsensitive
	}
	return paths.CaseSensitive
}

// LoadConfig resolves configuration for projectRoot. Sources, lowest to
// highest precedence: defaults, .env in the project root,
// .treesync/treesync.env, the process environment.
func LoadConfig(projectRoot string) (Config, error) {
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		return Config{}, fmt.Errorf("resolve project root: %w", err)
	}

	env := make(map[string]string)
	for _, file := range []string{filepath.Join(abs, ".env"), NewPaths(abs).EnvFile} {
		vals, err := godotenv.Read(file)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Config{}, fmt.Errorf("read %s: %w", file, err)
		}
		for k, v := range vals {
			env[k] = v
		}
	}
	lookup := func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return env[key]
	}
	return configFromEnv(abs, lookup)
}

func configFromEnv(root string, getenv func(string) string) (Config, error) {
	cfg := DefaultConfig(root)

	if v := strings.TrimSpace(getenv(EnvDB)); v != "" {
		cfg.DBPath = v
	}
	if v := strings.TrimSpace(getenv(EnvHTTPPort)); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port < 0 || port > 65535 {
			return Config{}, fmt.Errorf("%s: invalid port %q", EnvHTTPPort, v)
		}
		cfg.HTTPPort = port
	}
	if v := strings.TrimSpace(getenv(EnvDebounce)); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("%s: invalid duration %q", EnvDebounce, v)
		}
		cfg.Debounce = d
	}
	if v := strings.TrimSpace(getenv(EnvMaxWait)); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("%s: invalid duration %q", EnvMaxWait, v)
		}
		cfg.MaxWait = d
	}
	if v := strings.TrimSpace(getenv(EnvMaxBatch)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("%s: invalid batch size %q", EnvMaxBatch, v)
		}
		cfg.MaxBatch = n
	}
	if v := strings.TrimSpace(getenv(EnvLogLevel)); v != "" {
		level, err := ParseLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvLogLevel, err)
		}
		cfg.LogLevel = level
	}
	if v := strings.TrimSpace(getenv(EnvCaseInsensitive)); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: invalid bool %q", EnvCaseInsensitive, v)
		}
		cfg.CaseInsensitive = b
	}
	if v := strings.TrimSpace(getenv(EnvWorkers)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("%s: invalid worker count %q", EnvWorkers, v)
		}
		cfg.Workers = n
	}
	if v := strings.TrimSpace(getenv(EnvHistorySize)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("%s: invalid history size %q", EnvHistorySize, v)
		}
		cfg.HistorySize = n
	}
	if v := strings.TrimSpace(getenv(EnvRoots)); v != "" {
		for _, r := range filepath.SplitList(v) {
			if r = strings.TrimSpace(r); r != "" {
				cfg.ExtraRoots = append(cfg.ExtraRoots, r)
			}
		}
	}
	return cfg, nil
}

// Package config loads stencil.toml, the configuration of the stencil
// command: which heap packed script data lives in, the cell budget, logging
// and finalization parallelism.
package config

import (
	"context"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/stencil"
	"github.com/wippyai/stencil/errors"
	"github.com/wippyai/stencil/gcheap"
	"github.com/wippyai/stencil/heap"
	"github.com/wippyai/stencil/script"
)

// Heap kinds.
const (
	HeapArena  = "arena"
	HeapLinear = "linear"
)

const (
	DefaultArenaLimit  = 64 << 20
	DefaultLinearPages = 256
)

// Config represents a stencil.toml file.
type Config struct {
	Heap     HeapConfig     `toml:"heap"`
	Cells    CellsConfig    `toml:"cells"`
	Log      LogConfig      `toml:"log"`
	Finalize FinalizeConfig `toml:"finalize"`
}

// HeapConfig selects the memory packed script data is allocated in.
type HeapConfig struct {
	Kind  string `toml:"kind"`
	Limit uint32 `toml:"limit"`
	Pages uint32 `toml:"pages"`
}

// CellsConfig bounds the runtime cell table. Zero means unlimited.
type CellsConfig struct {
	Limit int `toml:"limit"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

// FinalizeConfig configures tree finalization.
type FinalizeConfig struct {
	Workers int `toml:"workers"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Heap: HeapConfig{
			Kind:  HeapArena,
			Limit: DefaultArenaLimit,
			Pages: DefaultLinearPages,
		},
		Log:      LogConfig{Level: "info"},
		Finalize: FinalizeConfig{Workers: 1},
	}
}

// Load reads a configuration file. Keys absent from the file keep their
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindNotFound, err,
			fmt.Sprintf("cannot read %s", path))
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err,
			fmt.Sprintf("invalid config %s", path))
	}
	return cfg, nil
}

// Parse decodes and validates a configuration. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Value(undecoded).
			Detail("unknown key %s", undecoded[0]).
			Build()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var result *multierror.Error

	switch c.Heap.Kind {
	case HeapArena:
		if c.Heap.Limit == 0 {
			result = multierror.Append(result, errors.InvalidData(errors.PhaseConfig,
				[]string{"heap", "limit"}, "arena limit must be positive"))
		}
	case HeapLinear:
		if c.Heap.Pages == 0 || c.Heap.Pages > 65535 {
			result = multierror.Append(result, errors.InvalidData(errors.PhaseConfig,
				[]string{"heap", "pages"}, fmt.Sprintf("pages must be in 1..65535, got %d", c.Heap.Pages)))
		}
	default:
		result = multierror.Append(result, errors.InvalidData(errors.PhaseConfig,
			[]string{"heap", "kind"}, fmt.Sprintf("unknown heap kind %q", c.Heap.Kind)))
	}

	if c.Cells.Limit < 0 {
		result = multierror.Append(result, errors.InvalidData(errors.PhaseConfig,
			[]string{"cells", "limit"}, "cell limit must not be negative"))
	}

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		result = multierror.Append(result, errors.InvalidData(errors.PhaseConfig,
			[]string{"log", "level"}, err.Error()))
	}

	if c.Finalize.Workers < 1 {
		result = multierror.Append(result, errors.InvalidData(errors.PhaseConfig,
			[]string{"finalize", "workers"}, "workers must be at least 1"))
	}

	return result.ErrorOrNil()
}

// Logger builds the configured zap logger.
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// Heap is memory that packed script data can be allocated in.
type Heap interface {
	stencil.Memory
	stencil.Allocator
	Live() uint32
}

// OpenHeap creates the configured heap. The returned function releases it.
func (c *Config) OpenHeap(ctx context.Context) (Heap, func(context.Context) error, error) {
	switch c.Heap.Kind {
	case HeapLinear:
		lin, err := heap.NewLinear(ctx, c.Heap.Pages)
		if err != nil {
			return nil, nil, err
		}
		return lin, lin.Close, nil
	default:
		return heap.NewArena(c.Heap.Limit), func(context.Context) error { return nil }, nil
	}
}

// CellTable creates the runtime cell table.
func (c *Config) CellTable() *gcheap.Table {
	return gcheap.NewTableWithLimit(c.Cells.Limit)
}

// BuilderOptions returns builder options for the configuration.
func (c *Config) BuilderOptions(log *zap.Logger) script.Options {
	opts := script.DefaultOptions()
	opts.Logger = log
	opts.Workers = c.Finalize.Workers
	return opts
}

package ringqueue

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Allocators of the ring buffer
const (
	AllocatorHeap = "heap"
	AllocatorMmap = "mmap"
)

// Kinds of swap queue receiving items the ring cannot hold
const (
	SwapNone   = "none"
	SwapMemory = "memory"
	SwapFile   = "file"
	SwapSQLite = "sqlite"
)

// Config for Queue
type Config struct {
	// Size of the ring buffer in bytes. Every item takes 4 bytes of header on top of its payload.
	Capacity int `yaml:"capacity"`
	// Allocator of the ring buffer, heap or mmap. mmap keeps the buffer outside of the Go heap.
	Allocator string `yaml:"allocator"`
	// Swap queue used when the ring is full
	Swap SwapConfig `yaml:"swap"`
	// Verbose mode prints information about spills, drains and swap errors
	Verbose bool `yaml:"verbose"`
	// Logger is a logging interface and used in combination with `Verbose`
	// Defaults to `DefaultLogger()`
	Logger Logger `yaml:"-"`
}

// SwapConfig selects and configures the swap queue
type SwapConfig struct {
	// none, memory, file or sqlite
	Kind string `yaml:"kind"`
	// Data file or database path, required for file and sqlite
	Path string `yaml:"path"`
	// Index file of the file swap. The swap survives restarts when set.
	IndexPath string `yaml:"index_path"`
	// Max number of bytes kept in swap. 0 means no limit for memory swap and
	// the store default for file and sqlite.
	MaxBytes uint64 `yaml:"max_bytes"`
	// Compress file swap records with s2
	Compress bool `yaml:"compress"`
}

// DefaultConfig initializes config with default values.
// When load for Queue can be predicted in advance then it is better to use custom config.
func DefaultConfig() Config {
	return Config{
		Capacity:  1 << 20,
		Allocator: AllocatorHeap,
		Swap:      SwapConfig{Kind: SwapNone},
		Verbose:   true,
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := config.valid(); err != nil {
		return config, err
	}
	return config, nil
}

func (c Config) valid() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("capacity must be positive, got %d", c.Capacity)
	}
	switch c.Allocator {
	case "", AllocatorHeap, AllocatorMmap:
	default:
		return fmt.Errorf("unknown allocator %q", c.Allocator)
	}
	switch c.Swap.Kind {
	case "", SwapNone, SwapMemory:
	case SwapFile, SwapSQLite:
		if c.Swap.Path == "" {
			return fmt.Errorf("%s swap requires a path", c.Swap.Kind)
		}
	default:
		return fmt.Errorf("unknown swap kind %q", c.Swap.Kind)
	}
	return nil
}

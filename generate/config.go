package generate

import (
	"os"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// Config holds the codegen options that vary per target: the pointer width
// and the names of the runtime support routines.
type Config struct {
	// WordSize is the pointer width in bits.
	WordSize int `toml:"word-size"`

	// AllocRoutine is the default allocation routine: i8* (i64).
	AllocRoutine string `toml:"alloc-routine"`

	// FreeRoutine is the default deallocation routine: void (i8*).
	FreeRoutine string `toml:"free-routine"`

	// MemcmpRoutine is the raw memory comparison routine: i32 (i8*, i8*, i64).
	MemcmpRoutine string `toml:"memcmp-routine"`
}

// DefaultConfig returns the built-in codegen configuration.
func DefaultConfig() *Config {
	return &Config{
		WordSize:      64,
		AllocRoutine:  "__gnat_malloc",
		FreeRoutine:   "__gnat_free",
		MemcmpRoutine: "memcmp",
	}
}

// LoadConfig reads a TOML codegen configuration file.  Options absent from
// the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open codegen config %q", path)
	}
	defer f.Close()

	cfg := DefaultConfig()
	if err := toml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, errors.Wrapf(err, "unable to decode codegen config %q", path)
	}
	if cfg.WordSize != 32 && cfg.WordSize != 64 {
		return nil, errors.Errorf("unsupported word size %d in %q", cfg.WordSize, path)
	}
	return cfg, nil
}

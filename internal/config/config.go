// Package config decodes the engine's HCL configuration file into a
// Config value, and can render a Config back to canonical HCL text for
// loomctl's "config dump" subcommand.
package config

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	"github.com/loomstore/loom/internal/codec"
	"github.com/loomstore/loom/internal/dbadapter"
)

// Config is the engine's HCL-decoded configuration.
type Config struct {
	DBPath       string `hcl:"db_path"`
	Mode         string `hcl:"mode,optional"`
	CacheSize    int    `hcl:"cache_size,optional"`
	CodecVersion int    `hcl:"codec_version,optional"`
}

const (
	modeFile   = "file"
	modeMemory = "memory"
)

// defaults mirrors the zero-value behavior of the rest of the engine: an
// unbounded-looking clean-cache mirror size and the codec's current
// format version, so an HCL file that only sets db_path still works.
func defaults() Config {
	return Config{
		Mode:         modeFile,
		CacheSize:    10_000,
		CodecVersion: int(codec.Version),
	}
}

// Load decodes an HCL configuration file at path into a Config, filling
// in defaults for any optional attribute the file omits.
func Load(path string) (Config, error) {
	cfg := defaults()
	if err := hclsimple.DecodeFile(path, nil, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return cfg, validate(cfg)
}

// Parse decodes HCL source held in memory (filename is used only for
// diagnostics) — the path used by tests and by any caller that doesn't
// have the configuration as a file on disk.
func Parse(filename string, src []byte) (Config, error) {
	cfg := defaults()
	if err := hclsimple.Decode(filename, src, nil, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", filename, err)
	}
	return cfg, validate(cfg)
}

func validate(cfg Config) error {
	if cfg.DBPath == "" {
		return fmt.Errorf("config: db_path is required")
	}
	switch cfg.Mode {
	case modeFile, modeMemory:
	default:
		return fmt.Errorf("config: mode must be %q or %q, got %q", modeFile, modeMemory, cfg.Mode)
	}
	if cfg.CacheSize <= 0 {
		return fmt.Errorf("config: cache_size must be positive, got %d", cfg.CacheSize)
	}
	return nil
}

// DBMode translates the decoded mode string into the dbadapter.Mode the
// engine's adapter is opened with.
func (c Config) DBMode() dbadapter.Mode {
	if c.Mode == modeMemory {
		return dbadapter.Memory
	}
	return dbadapter.File
}

// Dump renders cfg back to canonical HCL text, formatted the same way
// the teacher's writeback package formats .hcl/.tf buffers: build the
// body programmatically, then run it through hclwrite.Format.
func Dump(cfg Config) []byte {
	f := hclwrite.NewEmptyFile()
	body := f.Body()
	body.SetAttributeValue("db_path", cty.StringVal(cfg.DBPath))
	body.SetAttributeValue("mode", cty.StringVal(cfg.Mode))
	body.SetAttributeValue("cache_size", cty.NumberIntVal(int64(cfg.CacheSize)))
	body.SetAttributeValue("codec_version", cty.NumberIntVal(int64(cfg.CodecVersion)))
	return hclwrite.Format(f.Bytes())
}

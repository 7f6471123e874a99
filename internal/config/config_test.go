package config_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loomstore/loom/internal/config"
	"github.com/loomstore/loom/internal/dbadapter"
)

func TestParseFillsDefaults(t *testing.T) {
	cfg, err := config.Parse("loom.hcl", []byte(`db_path = "loom.db"`))
	require.NoError(t, err)
	require.Equal(t, "loom.db", cfg.DBPath)
	require.Equal(t, "file", cfg.Mode)
	require.Equal(t, 10_000, cfg.CacheSize)
	require.Equal(t, dbadapter.File, cfg.DBMode())
}

func TestParseHonorsExplicitAttributes(t *testing.T) {
	src := []byte(`
db_path       = "loom.db"
mode          = "memory"
cache_size    = 256
codec_version = 1
`)
	cfg, err := config.Parse("loom.hcl", src)
	require.NoError(t, err)
	require.Equal(t, 256, cfg.CacheSize)
	require.Equal(t, dbadapter.Memory, cfg.DBMode())
}

func TestParseRejectsMissingDBPath(t *testing.T) {
	_, err := config.Parse("loom.hcl", []byte(`mode = "memory"`))
	require.Error(t, err)
}

func TestParseRejectsUnknownMode(t *testing.T) {
	_, err := config.Parse("loom.hcl", []byte(`
db_path = "loom.db"
mode    = "bogus"
`))
	require.Error(t, err)
}

func TestParseRejectsNonPositiveCacheSize(t *testing.T) {
	_, err := config.Parse("loom.hcl", []byte(`
db_path    = "loom.db"
cache_size = 0
`))
	require.Error(t, err)
}

func TestDumpRoundTrips(t *testing.T) {
	cfg, err := config.Parse("loom.hcl", []byte(`
db_path       = "loom.db"
mode          = "memory"
cache_size    = 512
codec_version = 1
`))
	require.NoError(t, err)

	dumped := config.Dump(cfg)
	reparsed, err := config.Parse("dumped.hcl", dumped)
	require.NoError(t, err)
	require.Equal(t, cfg, reparsed)
}

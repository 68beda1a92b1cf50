package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/certkeeper/core/config"
)

type storeConfig struct {
	Bucket        string  `env:"TEST_STORE_BUCKET,required"`
	Prefix        string  `env:"TEST_STORE_PREFIX" envDefault:"certkeeper"`
	ThresholdDays float64 `env:"TEST_THRESHOLD_DAYS" envDefault:"30"`
}

type missingConfig struct {
	Value string `env:"TEST_ABSENT_VALUE,required"`
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_STORE_BUCKET", "certs")

	var cfg storeConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "certs", cfg.Bucket)
	assert.Equal(t, "certkeeper", cfg.Prefix, "default applies when unset")
	assert.Equal(t, 30.0, cfg.ThresholdDays)
}

func TestLoadCachesPerType(t *testing.T) {
	t.Setenv("TEST_STORE_BUCKET", "certs")

	var first storeConfig
	require.NoError(t, config.Load(&first))

	// A changed environment does not invalidate the cached value.
	t.Setenv("TEST_STORE_BUCKET", "other")
	var second storeConfig
	require.NoError(t, config.Load(&second))
	assert.Equal(t, first.Bucket, second.Bucket)
}

func TestLoadMissingRequired(t *testing.T) {
	var cfg missingConfig
	err := config.Load(&cfg)
	require.ErrorIs(t, err, config.ErrParseFailed)
}

func TestLoadNil(t *testing.T) {
	t.Parallel()

	err := config.Load[storeConfig](nil)
	require.ErrorIs(t, err, config.ErrNilConfig)
}

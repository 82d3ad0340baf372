package gamedb_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/autom8ter/gamedb"
	"github.com/autom8ter/gamedb/errors"
)

func TestConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := gamedb.Config{Connection: "Memory", LogLevel: "WARN"}
		assert.NoError(t, cfg.Validate())
		assert.Equal(t, gamedb.DefaultMaxPendingJobs, cfg.MaxPendingJobs)
		assert.Equal(t, "warn", cfg.LogLevel)
		cfg = gamedb.Config{Connection: "Memory"}
		assert.NoError(t, cfg.Validate())
		assert.Equal(t, "info", cfg.LogLevel)
	})
	t.Run("invalid", func(t *testing.T) {
		for _, cfg := range []gamedb.Config{
			{},
			{Connection: "Memory", MaxPendingJobs: -1},
			{Connection: "Memory", LogLevel: "trace"},
		} {
			err := cfg.Validate()
			assert.True(t, errors.Is(err, errors.Validation), err)
		}
	})
}

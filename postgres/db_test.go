package postgres

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbkit/config"
	"dbkit/pkg/dberr"
)

func TestNewPoolWithConfig_RejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.PoolConfig)
	}{
		{name: "empty url", mutate: func(c *config.PoolConfig) { c.URL = "" }},
		{name: "min above max", mutate: func(c *config.PoolConfig) { c.MinConns = 50; c.MaxConns = 10 }},
		{name: "zero max conns", mutate: func(c *config.PoolConfig) { c.MaxConns = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New("postgres://localhost:5432/test")
			tt.mutate(&cfg)

			// Rejected before any network I/O: no dial, no hang.
			pool, err := NewPoolWithConfig(context.Background(), cfg, zerolog.Nop())
			require.Error(t, err)
			assert.Nil(t, pool)
			assert.True(t, dberr.IsKind(err, dberr.KindInvalidConfig))
		})
	}
}

func TestNewPoolWithConfig_RejectsUnparsableURL(t *testing.T) {
	cfg := config.New("postgres://user@host:notaport/db")

	pool, err := NewPoolWithConfig(context.Background(), cfg, zerolog.Nop())
	require.Error(t, err)
	assert.Nil(t, pool)
	assert.True(t, dberr.IsKind(err, dberr.KindInvalidConfig))
}

// Successful pool construction needs a reachable server and is covered by
// the integration tests.

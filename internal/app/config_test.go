package app

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigBind(t *testing.T) {
	cfg := NewConfig()
	fs := flag.NewFlagSet("td", flag.ContinueOnError)
	cfg.Bind(fs)
	require.NoError(t, fs.Parse([]string{"-scale", "8", "-level", "ember", "-hud", "0"}))

	assert.Equal(t, 8, cfg.Scale)
	assert.Equal(t, "ember", cfg.Level)
	assert.Zero(t, cfg.HUDWidth)
	assert.Zero(t, cfg.Seed)
	assert.Equal(t, "levels.json", cfg.Store)
}

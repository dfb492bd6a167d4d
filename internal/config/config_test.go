package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultStaticDir, cfg.StaticDir)
	assert.True(t, cfg.Features.Chat)
	assert.False(t, cfg.Features.Powerups)
	assert.True(t, cfg.Features.Accessibility)
}

func TestParseFlagsOverrideDefaults(t *testing.T) {
	cfg, err := Parse([]string{"--disable-chat", "--enable-powerups", "--disable-accessibility", "--static-dir", "./public"})
	require.NoError(t, err)
	assert.False(t, cfg.Features.Chat)
	assert.True(t, cfg.Features.Powerups)
	assert.False(t, cfg.Features.Accessibility)
	assert.Equal(t, "./public", cfg.StaticDir)
}

func TestParseEnvOverridesFlags(t *testing.T) {
	t.Setenv("PORT", "4000")
	t.Setenv("ENABLE_CHAT", "false")
	t.Setenv("ENABLE_POWERUPS", "true")

	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, "4000", cfg.Port)
	assert.False(t, cfg.Features.Chat)
	assert.True(t, cfg.Features.Powerups)
}

func TestParseInvalidFlagReturnsError(t *testing.T) {
	_, err := Parse([]string{"--not-a-real-flag"})
	assert.Error(t, err)
}

func TestListenAddrFormatsPort(t *testing.T) {
	assert.Equal(t, ":3000", Config{Port: "3000"}.ListenAddr())
	assert.Equal(t, ":4000", Config{Port: ":4000"}.ListenAddr())
}

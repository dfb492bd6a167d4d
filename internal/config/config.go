// Package config collects the server's CLI-flag/env-driven settings
// (§6), the same "one const block" shape as the teacher's config.go,
// extended with the feature-flag parsing the teacher never needed
// (slether ships a single always-on mode; this server's chat/powerups/
// accessibility flags are this repository's own addition).
package config

import (
	"flag"
	"os"
)

// Defaults per §6.
const (
	DefaultPort          = "3000"
	DefaultStaticDir     = "./client"
	DefaultWebSocketPath = "/ws"

	// IPCooldownSec bounds reconnect-storm abuse the same way the
	// teacher's ipRateLimiter does (main.go), reused verbatim here as
	// the gateway's connection throttle.
	IPCooldownSec = 5
	// MaxConnections caps concurrent connections server-wide, the same
	// "server full" guard as the teacher's MaxPlayers check.
	MaxConnections = 500
)

// Features is the §6 feature-flag set: chat(on), powerups(off),
// accessibility(on) by default.
type Features struct {
	Chat          bool
	Powerups      bool
	Accessibility bool
}

// Config is the fully resolved server configuration for one process.
type Config struct {
	Port      string
	StaticDir string
	Features  Features
}

// Parse resolves flags then env var overrides, exactly the precedence
// order §6 specifies (flags set the default, env vars override).
// args excludes the program name (os.Args[1:]), so tests can call this
// without depending on the process's actual argv.
func Parse(args []string) (Config, error) {
	fs := flag.NewFlagSet("snake-arena-server", flag.ContinueOnError)
	disableChat := fs.Bool("disable-chat", false, "disable the chat relay")
	enablePowerups := fs.Bool("enable-powerups", false, "enable the power-up module")
	disableAccessibility := fs.Bool("disable-accessibility", false, "disable the accessibility feature flag")
	staticDir := fs.String("static-dir", DefaultStaticDir, "directory to serve the client from")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:      DefaultPort,
		StaticDir: *staticDir,
		Features: Features{
			Chat:          !*disableChat,
			Powerups:      *enablePowerups,
			Accessibility: !*disableAccessibility,
		},
	}

	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v, ok := boolEnv("ENABLE_CHAT"); ok {
		cfg.Features.Chat = v
	}
	if v, ok := boolEnv("ENABLE_POWERUPS"); ok {
		cfg.Features.Powerups = v
	}
	if v, ok := boolEnv("ENABLE_ACCESSIBILITY"); ok {
		cfg.Features.Accessibility = v
	}
	return cfg, nil
}

func boolEnv(name string) (bool, bool) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return false, false
	}
	switch v {
	case "true":
		return true, true
	case "false":
		return false, true
	default:
		return false, false
	}
}

// ListenAddr formats the configured port as a net/http listen address.
func (c Config) ListenAddr() string {
	if len(c.Port) > 0 && c.Port[0] == ':' {
		return c.Port
	}
	return ":" + c.Port
}

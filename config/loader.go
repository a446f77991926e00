package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Defaults   (defaults.go)

import (
	"os"
	"strconv"
	"strings"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the GDBSTUB_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  Call it before flag parsing
// so that the values become the flag defaults.
func LoadFromEnv(cfg *Config) {
	// Target
	if v := os.Getenv("GDBSTUB_ARCH"); v != "" {
		cfg.Arch = strings.ToLower(v)
	}
	if envBool("GDBSTUB_SINGLE_STEP") {
		cfg.SingleStep = true
	}
	if envBool("GDBSTUB_GUARD_RAIL") {
		cfg.GuardRail = true
	}
	if v := envInt("GDBSTUB_POLL_INTERVAL"); v > 0 {
		cfg.PollInterval = v
	}

	// Listener
	if v := os.Getenv("GDBSTUB_HOST"); v != "" {
		cfg.Host = v
	}
	if v := envInt("GDBSTUB_PORT"); v > 0 {
		cfg.Port = v
	}

	// SSH gateway
	if v := os.Getenv("GDBSTUB_VIA"); v != "" {
		cfg.Via = v
	}
	if v := os.Getenv("GDBSTUB_SSH_KEY"); v != "" {
		cfg.SSHKeyPath = v
	}

	// Output
	if v := envInt("GDBSTUB_VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

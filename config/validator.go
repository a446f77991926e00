package config

import (
	"fmt"
	"math"
	"strings"

	"gdbstub/internal/arch"
	gserr "gdbstub/internal/errors"
)

// Validate checks that the configuration is internally consistent.  It
// also resolves Via, so callers see a spec error here rather than when
// the gateway is dialled.
func (c *Config) Validate() error {
	if _, ok := arch.Lookup(c.Arch); !ok {
		return &gserr.ConfigError{
			Field:   "arch",
			Value:   c.Arch,
			Message: "no recognized architecture",
			Hint:    fmt.Sprintf("choose one of: %s", strings.Join(arch.Names(), ", ")),
		}
	}

	if c.Port < 1 || c.Port > 65535 {
		return &gserr.ConfigError{
			Field:   "port",
			Value:   c.Port,
			Message: "port must be in range 1-65535",
		}
	}

	if c.PollInterval < 1 {
		return &gserr.ConfigError{
			Field:   "poll-interval",
			Value:   c.PollInterval,
			Message: "poll interval must be positive",
			Hint:    fmt.Sprintf("the default is %d units", DefaultPollInterval),
		}
	}
	if int64(c.PollInterval) > math.MaxUint32 {
		return &gserr.ConfigError{
			Field:   "poll-interval",
			Value:   c.PollInterval,
			Message: fmt.Sprintf("poll interval must not exceed %d units", uint32(math.MaxUint32)),
		}
	}

	if c.BindRetries < 0 {
		return &gserr.ConfigError{
			Field:   "bind-retries",
			Value:   c.BindRetries,
			Message: "must not be negative",
		}
	}

	if err := c.ApplyVia(); err != nil {
		return &gserr.ConfigError{
			Field:   "via",
			Value:   c.Via,
			Message: err.Error(),
			Hint:    "use -J user@gateway.example.com[:port]",
		}
	}

	if c.RemotePort < 0 || c.RemotePort > 65535 {
		return &gserr.ConfigError{
			Field:   "remote-port",
			Value:   c.RemotePort,
			Message: "port must be in range 0-65535",
		}
	}
	if c.RemotePort > 0 && !c.ViaEnabled() {
		return &gserr.ConfigError{
			Field:   "remote-port",
			Value:   c.RemotePort,
			Message: "only meaningful with an SSH gateway",
			Hint:    "add -J user@gateway to forward through SSH",
		}
	}

	if c.SSHKeyPath != "" && !c.ViaEnabled() {
		return &gserr.ConfigError{
			Field:   "ssh-key",
			Value:   c.SSHKeyPath,
			Message: "only meaningful with an SSH gateway",
			Hint:    "add -J user@gateway to forward through SSH",
		}
	}

	return nil
}

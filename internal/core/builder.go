package core

import (
	"time"

	"gdbstub/config"
	"gdbstub/internal/arch"
	"gdbstub/internal/emu"
	gserr "gdbstub/internal/errors"
	"gdbstub/internal/metrics"
	"gdbstub/internal/retry"
	"gdbstub/internal/target"
	"gdbstub/internal/transport"
	"gdbstub/tunnel"
	"gdbstub/util"
)

// maxBindBackoff caps the pause between two bind attempts.
const maxBindBackoff = 2 * time.Second

// Build constructs the serving mode for a validated configuration.
func Build(cfg *config.Config, logger *util.Logger) (Mode, error) {
	a, ok := arch.Lookup(cfg.Arch)
	if !ok {
		return nil, &gserr.ConfigError{Field: "arch", Value: cfg.Arch, Message: "no recognized architecture"}
	}

	m := metrics.New()
	return &ServeMode{
		Listener: buildListener(cfg, logger),
		Arch:     a,
		Target: target.Options{
			SingleStep: cfg.SingleStep,
			GuardRail:  cfg.GuardRail,
			Logger:     logger,
			Metrics:    m,
		},
		Emu:     emu.Config{PollInterval: cfg.PollInterval, Metrics: m},
		Budget:  cfg.Budget,
		Logger:  logger,
		Metrics: m,
	}, nil
}

// buildListener picks the debugger endpoint: a local port, or a port
// forwarded from the SSH gateway.
func buildListener(cfg *config.Config, logger *util.Logger) transport.Listener {
	if cfg.ViaEnabled() {
		user := cfg.ViaUser
		if user == "" {
			user = util.CurrentUser()
		}
		return transport.NewSSHListener(&tunnel.SSHConfig{
			User:          user,
			Host:          cfg.ViaHost,
			Port:          cfg.ViaPort,
			KeyPath:       cfg.SSHKeyPath,
			PromptPass:    cfg.SSHPassword,
			UseAgent:      cfg.UseSSHAgent,
			StrictHostKey: cfg.StrictHostKey,
			KnownHosts:    cfg.KnownHostsPath,
			ConnTimeout:   config.DefaultConnTimeout,
			KeepAlive:     config.DefaultKeepAlive,
		}, "", cfg.GatewayPort(), logger)
	}

	b := retry.DefaultBackoff()
	b.InitialDelay = config.DefaultBindBackoff
	b.MaxDelay = maxBindBackoff
	b.MaxAttempts = cfg.BindRetries + 1
	return &transport.TCPListener{
		Host:    cfg.Host,
		Port:    cfg.Port,
		Backoff: b,
		Logger:  logger,
	}
}

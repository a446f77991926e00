// Package config defines the runtime configuration for gdbstub and
// provides the helper that parses SSH gateway specifications.
package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Config holds every tuneable for a single gdbstub process.
type Config struct {
	// ── Target ───────────────────────────────────────────────────────
	Arch         string // generic, x86_64 or mips
	SingleStep   bool   // advertise the single-step capability
	GuardRail    bool   // report the architecture's single-step quirk
	PollInterval int    // units of work between connection polls
	Budget       uint64 // units before the synthetic target halts (0 = never)

	// ── Debugger listener ────────────────────────────────────────────
	Host        string
	Port        int
	BindRetries int

	// ── SSH gateway ──────────────────────────────────────────────────
	Via            string // raw [user@]host[:port] from --via
	ViaUser        string
	ViaHost        string
	ViaPort        int
	RemotePort     int // port opened on the gateway (0 = same as Port)
	SSHKeyPath     string
	SSHPassword    bool // true → prompt interactively
	UseSSHAgent    bool
	StrictHostKey  bool
	KnownHostsPath string

	// ── Output ───────────────────────────────────────────────────────
	Verbose int
	DryRun  bool
}

// Default returns a Config populated from defaults.go.
func Default() *Config {
	return &Config{
		Arch:         DefaultArch,
		PollInterval: DefaultPollInterval,
		Budget:       DefaultBudget,
		Host:         DefaultHost,
		Port:         DefaultPort,
		BindRetries:  DefaultBindRetries,
	}
}

// ViaEnabled reports whether the debugger reaches the stub through an
// SSH gateway.
func (c *Config) ViaEnabled() bool { return c.ViaHost != "" }

// GatewayPort is the port the gateway listens on for the debugger.
func (c *Config) GatewayPort() int {
	if c.RemotePort > 0 {
		return c.RemotePort
	}
	return c.Port
}

// ApplyVia parses Via into the ViaUser/ViaHost/ViaPort fields.  An
// empty Via clears them.
func (c *Config) ApplyVia() error {
	if c.Via == "" {
		c.ViaUser, c.ViaHost, c.ViaPort = "", "", 0
		return nil
	}
	user, host, port, err := ParseTunnelSpec(c.Via)
	if err != nil {
		return err
	}
	c.ViaUser, c.ViaHost, c.ViaPort = user, host, port
	return nil
}

// String summarises the configuration for --dry-run.
func (c *Config) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "arch:          %s\n", c.Arch)
	fmt.Fprintf(&b, "single-step:   %v\n", c.SingleStep)
	fmt.Fprintf(&b, "guard-rail:    %v\n", c.GuardRail)
	fmt.Fprintf(&b, "poll-interval: %d\n", c.PollInterval)
	if c.Budget == 0 {
		fmt.Fprintf(&b, "budget:        unlimited\n")
	} else {
		fmt.Fprintf(&b, "budget:        %d\n", c.Budget)
	}
	fmt.Fprintf(&b, "listen:        %s:%d\n", c.Host, c.Port)
	if c.ViaEnabled() {
		fmt.Fprintf(&b, "via:           %s@%s:%d (remote port %d)\n",
			c.ViaUser, c.ViaHost, c.ViaPort, c.GatewayPort())
	}
	return b.String()
}

// ── Tunnel-spec parser ───────────────────────────────────────────────

// tunnelRe matches [user@]host[:port].
var tunnelRe = regexp.MustCompile(`^(?:([^@]+)@)?([^:@]+)(?::(\d+))?$`)

// ParseTunnelSpec extracts user, host, and port from a string such as
// "admin@bastion.example.com:2222".  Port defaults to 22.
func ParseTunnelSpec(spec string) (user, host string, port int, err error) {
	m := tunnelRe.FindStringSubmatch(spec)
	if m == nil {
		return "", "", 0, fmt.Errorf("invalid gateway spec %q – expected [user@]host[:port]", spec)
	}
	user = m[1]
	host = m[2]
	port = DefaultSSHPort
	if m[3] != "" {
		port, err = strconv.Atoi(m[3])
		if err != nil || port < 1 || port > 65535 {
			return "", "", 0, fmt.Errorf("invalid gateway port %q", m[3])
		}
	}
	return user, host, port, nil
}

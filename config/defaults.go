package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so the CLI flags, the environment
// overlay and Default() agree.

const (
	// DefaultArch is the target architecture when none is given.
	DefaultArch = "x86_64"

	// DefaultHost is the address the debugger listener binds to.
	DefaultHost = "127.0.0.1"

	// DefaultPort is the debugger listener port.
	DefaultPort = 9001

	// DefaultPollInterval is the number of units of work between two
	// connection polls while the target runs.
	DefaultPollInterval = 1024

	// DefaultBudget is how many units the synthetic target runs before
	// it halts.
	DefaultBudget = 1 << 24

	// DefaultBindRetries is how many times binding the listener is
	// attempted while the address is still in use.
	DefaultBindRetries = 5

	// DefaultBindBackoff is the delay before the first bind retry.
	DefaultBindBackoff = 200 * time.Millisecond

	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22

	// DefaultConnTimeout is the SSH gateway connection timeout.
	DefaultConnTimeout = 30 * time.Second

	// DefaultKeepAlive is the interval between SSH keepalive requests.
	DefaultKeepAlive = 30 * time.Second
)

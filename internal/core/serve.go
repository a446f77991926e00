package core

import (
	"context"
	"fmt"
	"io"
	"net"

	"gdbstub/internal/arch"
	"gdbstub/internal/emu"
	"gdbstub/internal/metrics"
	"gdbstub/internal/session"
	"gdbstub/internal/target"
	"gdbstub/internal/transport"
	"gdbstub/util"
)

// ServeMode waits for one debugger and serves it a synthetic target of
// the configured architecture.
type ServeMode struct {
	Listener transport.Listener
	Arch     *arch.Arch
	Target   target.Options
	Emu      emu.Config
	// Budget is how many units the target runs before it halts.  Zero
	// never halts.
	Budget uint64

	// OnFreeRun is called once the debugger detaches, before the target
	// runs to its halt.
	OnFreeRun func()

	// Stdout receives the outcome line.  Nil selects os.Stdout.
	Stdout  io.Writer
	Logger  *util.Logger
	Metrics *metrics.Collector
}

// Run opens the endpoint, accepts a single debugger and serves it.
// Session outcomes, fatal protocol errors included, are reported on
// Stdout and return nil; only failing to reach a debugger is an error.
func (m *ServeMode) Run(ctx context.Context) error {
	if m.Logger == nil {
		m.Logger = util.NewLogger(0)
	}

	ln, err := m.Listener.Listen(ctx)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer m.Listener.Close()

	m.Logger.Info("Waiting for a GDB connection on %s...", ln.Addr())
	c, err := accept(ctx, ln)
	ln.Close()
	if err != nil {
		return err
	}
	m.Logger.Info("Debugger connected from %s", c.RemoteAddr())

	sess := session.New(c, m.Stdout, m.Logger, m.Metrics)
	defer sess.Close()

	// Interrupting the process drops the debugger, which ends the
	// session through a read error.
	stop := context.AfterFunc(ctx, func() { sess.Close() }) //nolint:errcheck
	defer stop()

	out := m.serve(sess)
	sess.Report("%s", out)

	if m.Logger.Enabled(util.LogVerbose) {
		m.Logger.Verbose("session: %d bytes in, %d bytes out, %d errors",
			m.Metrics.TotalBytesIn(), m.Metrics.TotalBytesOut(), m.Metrics.ErrorCount())
		m.Logger.Verbose("metrics: %s", m.Metrics.JSON())
	}
	return nil
}

// serve builds the target for Arch and runs the session against it.
func (m *ServeMode) serve(sess *session.Session) Outcome {
	ecfg := m.Emu
	if ecfg.Metrics == nil {
		ecfg.Metrics = m.Metrics
	}
	opts := m.Target
	if opts.Logger == nil {
		opts.Logger = m.Logger
	}
	if opts.Metrics == nil {
		opts.Metrics = m.Metrics
	}

	budget := emu.NewCountdown(m.Budget)
	e := emu.New(budget, ecfg)
	m.Logger.Verbose("target %s, single-step %v, guard rail %v, poll every %d units",
		m.Arch, opts.SingleStep, opts.GuardRail, e.PollInterval())

	var out Outcome
	if t, ok := target.New64(m.Arch, e, opts); ok {
		out = Serve(sess, t, m.freeRun)
	} else {
		out = Serve[uint32](sess, target.NewMIPS(e, opts), m.freeRun)
	}
	if m.Budget > 0 {
		m.Logger.Verbose("budget: %d of %d units left", budget.Remaining(), m.Budget)
	}
	return out
}

func (m *ServeMode) freeRun() {
	if m.Budget == 0 {
		m.Logger.Info("Debugger detached; the target now runs until the process is interrupted")
	}
	if m.OnFreeRun != nil {
		m.OnFreeRun()
	}
}

// accept waits for the first connection, giving up when ctx ends.
func accept(ctx context.Context, ln net.Listener) (net.Conn, error) {
	stop := context.AfterFunc(ctx, func() { ln.Close() }) //nolint:errcheck
	defer stop()

	c, err := ln.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("accept: %w", err)
	}
	return c, nil
}

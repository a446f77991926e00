// Package cmd wires up the CLI flags and hands the configuration to the
// serving core.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	semver "github.com/Masterminds/semver/v3"
	flag "github.com/spf13/pflag"

	"gdbstub/config"
	"gdbstub/internal/arch"
	"gdbstub/internal/core"
	"gdbstub/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X gdbstub/cmd.version=v0.2.0"
var version = "0.1.0" //nolint:gochecknoglobals

// Execute parses args and serves one debugger.
func Execute(ctx context.Context, args []string) error {
	return execute(ctx, args, os.Stdout, os.Stderr)
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg := config.Default()
	config.LoadFromEnv(cfg)

	fs := flag.NewFlagSet("gdbstub", flag.ContinueOnError)
	fs.SetOutput(stderr)

	// ── target ───────────────────────────────────────────────────
	fs.StringVarP(&cfg.Arch, "arch", "a", cfg.Arch, "Target architecture")
	fs.BoolVar(&cfg.SingleStep, "single-step", cfg.SingleStep, "Advertise single-step support")
	fs.BoolVar(&cfg.GuardRail, "guard-rail", cfg.GuardRail, "Report the architecture's single-step quirk")
	fs.IntVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "Units of work between connection polls")
	fs.Uint64Var(&cfg.Budget, "budget", cfg.Budget, "Units before the target halts (0 = never)")

	// ── debugger listener ────────────────────────────────────────
	fs.StringVar(&cfg.Host, "host", cfg.Host, "Address to listen on")
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "Port to listen on")
	fs.IntVar(&cfg.BindRetries, "bind-retries", cfg.BindRetries, "Bind retries while the port is in use")

	// ── SSH gateway ──────────────────────────────────────────────
	fs.StringVarP(&cfg.Via, "via", "J", cfg.Via, "Accept the debugger through an SSH gateway [user@]host[:port]")
	fs.IntVar(&cfg.RemotePort, "remote-port", cfg.RemotePort, "Port opened on the gateway (default: --port)")
	fs.StringVar(&cfg.SSHKeyPath, "ssh-key", cfg.SSHKeyPath, "SSH private key file")
	fs.BoolVar(&cfg.SSHPassword, "ssh-password", cfg.SSHPassword, "Prompt for SSH password")
	fs.BoolVar(&cfg.UseSSHAgent, "ssh-agent", cfg.UseSSHAgent, "Use SSH agent")
	fs.BoolVar(&cfg.StrictHostKey, "strict-hostkey", cfg.StrictHostKey, "Verify SSH host keys")
	fs.StringVar(&cfg.KnownHostsPath, "known-hosts", cfg.KnownHostsPath, "Custom known_hosts path")

	// ── output ───────────────────────────────────────────────────
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "Validate and print the configuration, then exit")

	var showVersion, showHelp bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs, stderr) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}
	if showHelp {
		printUsage(fs, stderr)
		return nil
	}
	if showVersion {
		fmt.Fprintf(stdout, "gdbstub %s\n", versionString())
		return nil
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v (use --help for usage)", fs.Args())
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.DryRun {
		fmt.Fprint(stdout, cfg.String())
		return nil
	}

	// ── run ──────────────────────────────────────────────────────
	logger := util.NewLogger(int(util.LogNormal) + cfg.Verbose)
	mode, err := core.Build(cfg, logger)
	if err != nil {
		return err
	}
	if sm, ok := mode.(*core.ServeMode); ok {
		sm.Stdout = stdout
		sm.OnFreeRun = restoreSignals
	}
	return mode.Run(ctx)
}

// restoreSignals hands SIGINT and SIGTERM back to the runtime.  Once the
// debugger detaches nothing watches the context any more, and a target
// without a budget would otherwise outlive Ctrl-C.
func restoreSignals() {
	signal.Reset(os.Interrupt, syscall.SIGTERM)
}

// versionString normalises the link-time version ("v1.2" → "1.2.0").
func versionString() string {
	v, err := semver.NewVersion(version)
	if err != nil {
		return version
	}
	return v.String()
}

func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintf(w, `gdbstub - GDB remote serial protocol stub v%s

Serves one GDB session against a synthetic target.

Usage:
  gdbstub [options]

Architectures: %v

Options:
`, versionString(), arch.Names())
	fs.PrintDefaults()
	fmt.Fprintf(w, `
Examples:
  gdbstub                                     x86_64 target on 127.0.0.1:9001
  gdbstub -a mips --single-step -p 1234       MIPS target with single-step
  gdbstub -J dev@bastion --remote-port 19001  Accept GDB through a gateway
  gdbstub --dry-run -a generic                Print the resolved configuration
`)
}

// Package target defines the capability contract between the stub and
// an emulated CPU, and provides one implementation per supported
// architecture.
//
// Every target offers the base operations (whole register set, address
// ranges).  Optional capabilities are negotiated rather than failed:
// a Support* accessor returns nil when the capability is absent, and
// the protocol engine leaves it out of what it advertises.
package target

import (
	"gdbstub/internal/arch"
	"gdbstub/internal/emu"
	gserr "gdbstub/internal/errors"
	"gdbstub/internal/metrics"
	"gdbstub/internal/stop"
	"gdbstub/util"
)

// Addr is the native address width of a target.
type Addr interface {
	~uint32 | ~uint64
}

// Target is the base capability set of a debuggable target with native
// address type U.
type Target[U Addr] interface {
	// Arch returns the architecture descriptor.
	Arch() *arch.Arch
	// Exec returns the execution core driving the target.
	Exec() *emu.Emu
	// GuardRails reports the protocol assumptions the debugger may make.
	GuardRails() GuardRails

	// ReadRegisters populates regs with the current register file.
	ReadRegisters(regs arch.Registers) error
	// WriteRegisters applies regs to the register file.
	WriteRegisters(regs arch.Registers) error

	// ReadAddrs fills data with target memory starting at start and
	// returns how many bytes are valid.  Reads never extend past the
	// top of the address space.
	ReadAddrs(start U, data []byte) (int, error)
	// WriteAddrs stores data at start.
	WriteAddrs(start U, data []byte) error

	// SupportResume returns the resume capability, or nil.
	SupportResume() Resumer
	// SupportSingleStep returns the single-step capability, or nil.
	SupportSingleStep() SingleStepper
	// SupportSingleRegisterAccess returns per-register access, or nil.
	SupportSingleRegisterAccess() RegisterAccessor
}

// Resumer resumes the target in continue mode.
type Resumer interface {
	// Resume sets continue mode.  A non-zero sig is rejected: the stub
	// does not inject signals into the target.
	Resume(sig stop.Signal) error
}

// SingleStepper resumes the target for exactly one unit of work.
type SingleStepper interface {
	// Step sets step mode, with the same signal rule as Resume.
	Step(sig stop.Signal) error
}

// RegisterAccessor reads and writes one register by debugger id.
// Ids the architecture does not map read as zeros and ignore writes, so
// that a debugger probing for optional registers is not punished.
type RegisterAccessor interface {
	ReadRegister(id int) ([]byte, error)
	WriteRegister(id int, val []byte) error
}

// GuardRails is the policy advertised to the debugger.
type GuardRails struct {
	// ImplicitSWBreakpoints means the debugger inserts software
	// breakpoints itself by patching memory.  Always true: no variant
	// implements breakpoint insertion.
	ImplicitSWBreakpoints bool
	// SingleStep is how the debugger must treat single-stepping.
	SingleStep arch.SingleStepBehavior
}

// Options are the per-session flags of a target handle.
type Options struct {
	// SingleStep exposes the single-step capability.
	SingleStep bool
	// GuardRail reports the architecture's single-step quirk instead
	// of Optional.
	GuardRail bool

	Logger  *util.Logger
	Metrics *metrics.Collector
}

// CheckGuardRails verifies that the target's single-step capability is
// consistent with what its guard rails tell the debugger.
func CheckGuardRails[U Addr](t Target[U]) error {
	rails := t.GuardRails()
	hasStep := t.SupportSingleStep() != nil

	switch rails.SingleStep {
	case arch.Required:
		if !hasStep {
			return &gserr.GuardRailError{Arch: t.Arch().Name, Behavior: rails.SingleStep.String()}
		}
	case arch.Ignored:
		if hasStep {
			return &gserr.GuardRailError{Arch: t.Arch().Name, Behavior: rails.SingleStep.String(), SingleStep: true}
		}
	}
	return nil
}

// New64 builds the 64-bit target for a.  It reports false for
// architectures with a narrower address type, which have their own
// constructors.
func New64(a *arch.Arch, e *emu.Emu, opts Options) (Target[uint64], bool) {
	switch a {
	case arch.Generic:
		return NewGeneric(e, opts), true
	case arch.X86_64:
		return NewX86(e, opts), true
	}
	return nil, false
}

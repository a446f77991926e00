// Package arch describes the architectures the stub can impersonate:
// address width, register-set layout and its canonical little-endian
// serialization, the mapping from the debugger's numeric register ids
// into that layout, and the architecture's single-step quirks.
//
// Descriptors are immutable values selected once at process start.
package arch

import (
	"fmt"
	"sort"
)

// SingleStepBehavior describes how the debugger expects an architecture
// to treat optional single-stepping.
type SingleStepBehavior int

const (
	// Optional means the debugger copes either way.
	Optional SingleStepBehavior = iota
	// Required means the debugger always issues hardware steps; a
	// target must implement single-step.
	Required
	// Ignored means the debugger always emulates stepping with
	// temporary breakpoints; a target must not advertise single-step.
	Ignored
	// Unknown means the quirk has not been established; treated as
	// Optional.
	Unknown
)

func (b SingleStepBehavior) String() string {
	switch b {
	case Optional:
		return "optional"
	case Required:
		return "required"
	case Ignored:
		return "ignored"
	default:
		return "unknown"
	}
}

// Arch is an architecture descriptor.
type Arch struct {
	Name     string
	AddrBits int // 32 or 64

	// Layout lists the serialized register fields in debugger register
	// number order.
	Layout Layout

	// SingleStep is the architecture's documented single-step quirk,
	// reported when the session enables guard rails.
	SingleStep SingleStepBehavior

	// Nop is the byte used to fill reads of synthetic memory; a run of
	// it disassembles to no-op instructions.
	Nop byte

	// FallbackRegSize is the width of the zero value returned for a
	// register id with no mapping.
	FallbackRegSize int

	newRegs func() Registers
}

// NewRegisters returns a zeroed register set for a.
func (a *Arch) NewRegisters() Registers { return a.newRegs() }

// RegsSize is the exact length of a serialized register set.
func (a *Arch) RegsSize() int { return a.Layout.Size() }

// AddrMask returns the largest representable address.
func (a *Arch) AddrMask() uint64 {
	if a.AddrBits >= 64 {
		return ^uint64(0)
	}
	return 1<<uint(a.AddrBits) - 1
}

func (a *Arch) String() string { return a.Name }

var registry = map[string]*Arch{}

func register(a *Arch) *Arch {
	if _, dup := registry[a.Name]; dup {
		panic("arch: duplicate registration of " + a.Name)
	}
	if got, want := a.newRegs().Size(), a.Layout.Size(); got != want {
		panic(fmt.Sprintf("arch: %s register set is %d bytes, layout says %d", a.Name, got, want))
	}
	registry[a.Name] = a
	return a
}

// Lookup returns the descriptor registered under name.
func Lookup(name string) (*Arch, bool) {
	a, ok := registry[name]
	return a, ok
}

// Names returns all registered architecture names, sorted.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

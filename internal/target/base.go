package target

import (
	"fmt"

	"gdbstub/internal/arch"
	"gdbstub/internal/emu"
	gserr "gdbstub/internal/errors"
	"gdbstub/internal/stop"
	"gdbstub/util"
)

// base holds what every variant shares: the execution core, the
// session flags, a register file and a sparse overlay of bytes the
// debugger wrote into otherwise synthetic memory.
type base[U Addr] struct {
	exec *emu.Emu
	arch *arch.Arch
	opts Options
	log  *util.Logger

	regs    arch.Registers
	written map[uint64]byte
}

func newBase[U Addr](a *arch.Arch, e *emu.Emu, opts Options) base[U] {
	logger := opts.Logger
	if logger == nil {
		logger = util.NewLogger(0)
	}
	return base[U]{
		exec:    e,
		arch:    a,
		opts:    opts,
		log:     logger.Named(a.Name),
		regs:    a.NewRegisters(),
		written: make(map[uint64]byte),
	}
}

func (b *base[U]) Arch() *arch.Arch { return b.arch }
func (b *base[U]) Exec() *emu.Emu   { return b.exec }

func (b *base[U]) GuardRails() GuardRails {
	rails := GuardRails{ImplicitSWBreakpoints: true, SingleStep: arch.Optional}
	if b.opts.GuardRail {
		rails.SingleStep = b.arch.SingleStep
	}
	return rails
}

func (b *base[U]) ReadRegisters(regs arch.Registers) error {
	b.log.Debug("read_registers")
	data, err := b.regs.MarshalBinary()
	if err != nil {
		return err
	}
	return regs.UnmarshalBinary(data)
}

func (b *base[U]) WriteRegisters(regs arch.Registers) error {
	data, err := regs.MarshalBinary()
	if err != nil {
		return err
	}
	if b.log.Enabled(util.LogDebug) {
		b.log.Debug("write_registers: % x", data)
	}
	if err := b.regs.UnmarshalBinary(data); err != nil {
		return gserr.Reject("write_registers", err)
	}
	return nil
}

// span returns how many of n bytes starting at start fit below the top
// of the address space.
func (b *base[U]) span(start U, n int) int {
	if n == 0 {
		return 0
	}
	room := b.arch.AddrMask() - uint64(start) // bytes above start
	if room < uint64(n-1) {
		return int(room) + 1
	}
	return n
}

func (b *base[U]) ReadAddrs(start U, data []byte) (int, error) {
	b.log.Debug("read_addrs: %#x,%d", uint64(start), len(data))
	n := b.span(start, len(data))
	for i := 0; i < n; i++ {
		addr := uint64(start) + uint64(i)
		if v, ok := b.written[addr]; ok {
			data[i] = v
		} else {
			data[i] = b.arch.Nop
		}
	}
	return n, nil
}

func (b *base[U]) WriteAddrs(start U, data []byte) error {
	if b.log.Enabled(util.LogDebug) {
		b.log.Debug("write_addrs: %#x,% x", uint64(start), data)
	}
	n := b.span(start, len(data))
	for i := 0; i < n; i++ {
		b.written[uint64(start)+uint64(i)] = data[i]
	}
	return nil
}

func (b *base[U]) SupportResume() Resumer { return b }

func (b *base[U]) SupportSingleStep() SingleStepper {
	if b.opts.SingleStep {
		return b
	}
	return nil
}

func (b *base[U]) Resume(sig stop.Signal) error {
	if sig != stop.NoSignal {
		b.opts.Metrics.Rejected()
		return gserr.Reject("resume", fmt.Errorf("%w (%s)", gserr.ErrSignalUnsupported, sig))
	}
	b.exec.SetMode(emu.Continue)
	return nil
}

func (b *base[U]) Step(sig stop.Signal) error {
	if sig != stop.NoSignal {
		b.opts.Metrics.Rejected()
		return gserr.Reject("step", fmt.Errorf("%w (%s)", gserr.ErrSignalUnsupported, sig))
	}
	b.exec.SetMode(emu.Step)
	return nil
}

// readMapped reads register id through the layout.  Unmapped ids read
// as zeros of the architecture's fallback width.
func (b *base[U]) readMapped(id int) ([]byte, error) {
	off, size, ok := b.arch.Layout.Locate(id)
	if !ok {
		b.log.Debug("read_register: unmapped id %d", id)
		return make([]byte, b.arch.FallbackRegSize), nil
	}
	data, err := b.regs.MarshalBinary()
	if err != nil {
		return nil, err
	}
	out := make([]byte, size)
	copy(out, data[off:off+size])
	return out, nil
}

// writeMapped patches register id in the register file.  Writes to
// unmapped ids are accepted and dropped.
func (b *base[U]) writeMapped(id int, val []byte) error {
	off, size, ok := b.arch.Layout.Locate(id)
	if !ok {
		b.log.Debug("write_register: unmapped id %d", id)
		return nil
	}
	if len(val) != size {
		return gserr.Reject("write_register",
			fmt.Errorf("%s is %d bytes, got %d", b.arch.Layout[id].Name, size, len(val)))
	}
	data, err := b.regs.MarshalBinary()
	if err != nil {
		return err
	}
	copy(data[off:], val)
	return b.regs.UnmarshalBinary(data)
}

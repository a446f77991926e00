package target

import (
	"gdbstub/internal/arch"
	"gdbstub/internal/emu"
)

// mipsResetPC is the synthetic program counter of a fresh target.
const mipsResetPC = 0x5555_0000

// MIPS is a 32-bit MIPS target.  Register ri holds i on reset.
//
// The debugger steps MIPS with temporary breakpoints; with guard rails
// enabled the session must not expose single-step.
type MIPS struct {
	base[uint32]
}

var _ Target[uint32] = (*MIPS)(nil)

// NewMIPS returns a MIPS target driven by e.
func NewMIPS(e *emu.Emu, opts Options) *MIPS {
	t := &MIPS{base: newBase[uint32](arch.MIPS, e, opts)}
	regs := t.regs.(*arch.MipsCoreRegs)
	for i := range regs.R {
		regs.R[i] = uint32(i)
	}
	regs.PCReg = mipsResetPC
	return t
}

func (t *MIPS) SupportSingleRegisterAccess() RegisterAccessor { return t }

func (t *MIPS) ReadRegister(id int) ([]byte, error) { return t.readMapped(id) }

func (t *MIPS) WriteRegister(id int, val []byte) error { return t.writeMapped(id, val) }

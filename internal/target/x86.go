package target

import (
	"gdbstub/internal/arch"
	"gdbstub/internal/emu"
)

// x86ResetRIP is the synthetic instruction pointer of a fresh target.
const x86ResetRIP = 0x5555_5555_0000_0000

// X86 is an x86-64 target.  Until an interpreter owns the register
// file, general purpose register i holds i and memory reads as NOPs.
type X86 struct {
	base[uint64]
}

var _ Target[uint64] = (*X86)(nil)

// NewX86 returns an X86 target driven by e.
func NewX86(e *emu.Emu, opts Options) *X86 {
	t := &X86{base: newBase[uint64](arch.X86_64, e, opts)}
	regs := t.regs.(*arch.X86_64CoreRegs)
	for i := range regs.Regs {
		regs.Regs[i] = uint64(i)
	}
	regs.RIP = x86ResetRIP
	return t
}

func (t *X86) SupportSingleRegisterAccess() RegisterAccessor { return t }

func (t *X86) ReadRegister(id int) ([]byte, error) { return t.readMapped(id) }

func (t *X86) WriteRegister(id int, val []byte) error { return t.writeMapped(id, val) }

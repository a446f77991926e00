package target

import (
	"gdbstub/internal/arch"
	"gdbstub/internal/emu"
)

// Generic is the placeholder 64-bit target.  Its only register is a
// scratch word, and every single-register read answers four zero bytes
// whatever the id, which is enough for a debugger to finish probing.
type Generic struct {
	base[uint64]
}

var _ Target[uint64] = (*Generic)(nil)

// NewGeneric returns a Generic target driven by e.
func NewGeneric(e *emu.Emu, opts Options) *Generic {
	return &Generic{base: newBase[uint64](arch.Generic, e, opts)}
}

func (g *Generic) SupportSingleRegisterAccess() RegisterAccessor { return g }

func (g *Generic) ReadRegister(id int) ([]byte, error) {
	g.log.Debug("read_register: %d", id)
	return make([]byte, g.arch.FallbackRegSize), nil
}

func (g *Generic) WriteRegister(id int, val []byte) error {
	g.log.Debug("write_register: %d = % x", id, val)
	return nil
}

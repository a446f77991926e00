package arch

// MipsCoreRegs is the 32-bit MIPS core register set including the FPU,
// in the order the debugger's "g" packet carries it.
type MipsCoreRegs struct {
	R        [32]uint32
	Status   uint32
	Lo       uint32
	Hi       uint32
	BadVAddr uint32
	Cause    uint32
	PCReg    uint32
	FPR      [32]uint32
	FCSR     uint32
	FIR      uint32
}

func (r *MipsCoreRegs) PC() uint64 { return uint64(r.PCReg) }
func (r *MipsCoreRegs) Size() int  { return 288 }

func (r *MipsCoreRegs) MarshalBinary() ([]byte, error) { return marshalLE(r) }

func (r *MipsCoreRegs) UnmarshalBinary(data []byte) error { return unmarshalLE(data, r) }

var mipsLayout = Layout{}.
	repeat("r", 32, 4).
	with(4, "status", "lo", "hi", "badvaddr", "cause", "pc").
	repeat("f", 32, 4).
	with(4, "fcsr", "fir")

// MIPS is 32-bit little-endian MIPS.  The debugger steps MIPS targets
// with temporary breakpoints, so guard rails forbid single-step.
var MIPS = register(&Arch{
	Name:            "mips",
	AddrBits:        32,
	Layout:          mipsLayout,
	SingleStep:      Ignored,
	Nop:             0x00, // sll $zero, $zero, 0
	FallbackRegSize: 4,
	newRegs:         func() Registers { return &MipsCoreRegs{} },
})

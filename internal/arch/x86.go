package arch

// X86_64CoreRegs is the x86-64 core register set with SSE state, in the
// order the debugger's "g" packet carries it.
type X86_64CoreRegs struct {
	// RAX, RBX, RCX, RDX, RSI, RDI, RBP, RSP, R8..R15
	Regs   [16]uint64
	RIP    uint64
	EFlags uint32
	// CS, SS, DS, ES, FS, GS
	Segments [6]uint32
	// ST0..ST7, 80-bit extended precision
	ST [8][10]byte
	// FCTRL, FSTAT, FTAG, FISEG, FIOFF, FOSEG, FOOFF, FOP
	FPU [8]uint32
	// XMM0..XMM15, 128-bit little-endian
	XMM   [16][16]byte
	MXCSR uint32
}

func (r *X86_64CoreRegs) PC() uint64 { return r.RIP }
func (r *X86_64CoreRegs) Size() int  { return 536 }

func (r *X86_64CoreRegs) MarshalBinary() ([]byte, error) { return marshalLE(r) }

func (r *X86_64CoreRegs) UnmarshalBinary(data []byte) error { return unmarshalLE(data, r) }

var x86_64Layout = Layout{}.
	with(8, "rax", "rbx", "rcx", "rdx", "rsi", "rdi", "rbp", "rsp").
	with(8, "r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15").
	with(8, "rip").
	with(4, "eflags", "cs", "ss", "ds", "es", "fs", "gs").
	repeat("st", 8, 10).
	with(4, "fctrl", "fstat", "ftag", "fiseg", "fioff", "foseg", "fooff", "fop").
	repeat("xmm", 16, 16).
	with(4, "mxcsr")

// X86_64 is the 64-bit x86 architecture with SSE registers.
var X86_64 = register(&Arch{
	Name:            "x86_64",
	AddrBits:        64,
	Layout:          x86_64Layout,
	SingleStep:      Required,
	Nop:             0x90,
	FallbackRegSize: 8,
	newRegs:         func() Registers { return &X86_64CoreRegs{} },
})

package arch

// GenericRegs is the register set of the placeholder architecture: a
// single 64-bit scratch register and no program counter.
type GenericRegs struct {
	Dummy uint64
}

func (r *GenericRegs) PC() uint64 { return 0 }
func (r *GenericRegs) Size() int  { return 8 }

func (r *GenericRegs) MarshalBinary() ([]byte, error) { return marshalLE(r) }

func (r *GenericRegs) UnmarshalBinary(data []byte) error { return unmarshalLE(data, r) }

// Generic is a 64-bit placeholder architecture for interpreters that do
// not (yet) model a real instruction set.
var Generic = register(&Arch{
	Name:            "generic",
	AddrBits:        64,
	Layout:          Layout{{Name: "dummy", Size: 8}},
	SingleStep:      Optional,
	Nop:             0x00,
	FallbackRegSize: 4,
	newRegs:         func() Registers { return &GenericRegs{} },
})

package rsp

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	gserr "gdbstub/internal/errors"
	"gdbstub/internal/stop"
)

// Error numbers used in Exx replies.
const (
	errFault   = 0x0e // EFAULT: nothing readable at the address
	errInvalid = 0x16 // EINVAL: malformed or unsupported request
)

func (e *Engine[U]) dispatch(pkt []byte) error {
	if len(pkt) == 0 {
		return e.reply("")
	}
	cmd, args := pkt[0], string(pkt[1:])

	switch cmd {
	case '?':
		return e.reply(stopReply(e.lastStop))
	case 'g':
		return e.readRegisters()
	case 'G':
		return e.writeRegisters(args)
	case 'p':
		return e.readRegister(args)
	case 'P':
		return e.writeRegister(args)
	case 'm':
		return e.readMemory(args)
	case 'M':
		return e.writeMemory(args)
	case 'c':
		return e.resume(stop.NoSignal)
	case 's':
		return e.step(stop.NoSignal)
	case 'C', 'S':
		sig, ok := parseSignal(args)
		if !ok {
			return e.errno(errInvalid, nil)
		}
		if cmd == 'C' {
			return e.resume(sig)
		}
		return e.step(sig)
	case 'H', 'T':
		return e.reply("OK")
	case 'D':
		if err := e.reply("OK"); err != nil {
			return err
		}
		e.end(Disconnect, stop.Reason{})
		return nil
	case 'k':
		e.end(Kill, stop.Reason{})
		return nil
	case 'v':
		return e.vPacket(args)
	case 'q':
		return e.query(args)
	case 'Q':
		if args == "StartNoAckMode" {
			if err := e.reply("OK"); err != nil {
				return err
			}
			e.noAck = true
			return nil
		}
	}
	// Z0/z0 included: with implicit software breakpoints the debugger
	// patches memory itself once the insert request comes back empty.
	return e.reply("")
}

// parseSignal reads the "sig[;addr]" argument of C and S.
func parseSignal(args string) (stop.Signal, bool) {
	if i := strings.IndexByte(args, ';'); i >= 0 {
		args = args[:i]
	}
	v, err := strconv.ParseUint(args, 16, 8)
	if err != nil {
		return 0, false
	}
	return stop.Signal(v), true
}

// ── execution ────────────────────────────────────────────────────────

func (e *Engine[U]) resume(sig stop.Signal) error {
	if err := e.t.SupportResume().Resume(sig); err != nil {
		return e.fail(err)
	}
	e.state = Running
	return nil
}

func (e *Engine[U]) step(sig stop.Signal) error {
	stepper := e.t.SupportSingleStep()
	if stepper == nil {
		e.metrics.Rejected()
		return e.errno(errInvalid, gserr.ErrSingleStepUnsupported)
	}
	if err := stepper.Step(sig); err != nil {
		return e.fail(err)
	}
	e.state = Running
	return nil
}

// fail answers a rejected resume and returns the rejection, which ends
// the session.
func (e *Engine[U]) fail(err error) error {
	if werr := e.errno(errInvalid, err); werr != nil {
		return werr
	}
	if rejected(err) {
		return err
	}
	return nil
}

func (e *Engine[U]) vPacket(args string) error {
	switch {
	case args == "Cont?":
		actions := "vCont;c;C"
		if e.t.SupportSingleStep() != nil {
			actions += ";s;S"
		}
		return e.reply(actions)
	case strings.HasPrefix(args, "Cont;"):
		return e.vCont(strings.TrimPrefix(args, "Cont;"))
	}
	return e.reply("")
}

// vCont applies the first action.  With a single thread every action
// names the same thread.
func (e *Engine[U]) vCont(actions string) error {
	action := actions
	if i := strings.IndexByte(action, ';'); i >= 0 {
		action = action[:i]
	}
	if i := strings.IndexByte(action, ':'); i >= 0 {
		action = action[:i]
	}
	if action == "" {
		return e.errno(errInvalid, nil)
	}

	sig := stop.NoSignal
	if len(action) > 1 {
		var ok bool
		if sig, ok = parseSignal(action[1:]); !ok {
			return e.errno(errInvalid, nil)
		}
	}
	switch action[0] {
	case 'c', 'C':
		return e.resume(sig)
	case 's', 'S':
		return e.step(sig)
	}
	return e.errno(errInvalid, nil)
}

// ── queries ──────────────────────────────────────────────────────────

func (e *Engine[U]) query(args string) error {
	name := args
	if i := strings.IndexAny(name, ":;"); i >= 0 {
		name = name[:i]
	}
	switch name {
	case "Supported":
		features := []string{
			fmt.Sprintf("PacketSize=%x", PacketSize),
			"QStartNoAckMode+",
			"vContSupported+",
		}
		if e.t.GuardRails().ImplicitSWBreakpoints {
			features = append(features, "swbreak+")
		}
		return e.reply(strings.Join(features, ";"))
	case "Attached":
		return e.reply("1")
	case "C":
		return e.reply("QC1")
	case "fThreadInfo":
		return e.reply("m1")
	case "sThreadInfo":
		return e.reply("l")
	}
	return e.reply("")
}

// ── registers ────────────────────────────────────────────────────────

func (e *Engine[U]) readRegisters() error {
	regs := e.t.Arch().NewRegisters()
	if err := e.t.ReadRegisters(regs); err != nil {
		return e.errno(errInvalid, err)
	}
	data, err := regs.MarshalBinary()
	if err != nil {
		return e.errno(errInvalid, err)
	}
	return e.reply(hex.EncodeToString(data))
}

func (e *Engine[U]) writeRegisters(args string) error {
	data, err := hex.DecodeString(args)
	if err != nil {
		return e.errno(errInvalid, err)
	}
	regs := e.t.Arch().NewRegisters()
	if err := regs.UnmarshalBinary(data); err != nil {
		return e.errno(errInvalid, err)
	}
	if err := e.t.WriteRegisters(regs); err != nil {
		return e.errno(errInvalid, err)
	}
	return e.reply("OK")
}

func (e *Engine[U]) readRegister(args string) error {
	acc := e.t.SupportSingleRegisterAccess()
	if acc == nil {
		return e.reply("")
	}
	id, err := strconv.ParseUint(args, 16, 31)
	if err != nil {
		return e.errno(errInvalid, err)
	}
	val, err := acc.ReadRegister(int(id))
	if err != nil {
		return e.errno(errInvalid, err)
	}
	return e.reply(hex.EncodeToString(val))
}

func (e *Engine[U]) writeRegister(args string) error {
	acc := e.t.SupportSingleRegisterAccess()
	if acc == nil {
		return e.reply("")
	}
	idStr, valStr, ok := strings.Cut(args, "=")
	if !ok {
		return e.errno(errInvalid, nil)
	}
	id, err := strconv.ParseUint(idStr, 16, 31)
	if err != nil {
		return e.errno(errInvalid, err)
	}
	val, err := hex.DecodeString(valStr)
	if err != nil {
		return e.errno(errInvalid, err)
	}
	if err := acc.WriteRegister(int(id), val); err != nil {
		return e.errno(errInvalid, err)
	}
	return e.reply("OK")
}

// ── memory ───────────────────────────────────────────────────────────

// parseRange reads "addr,length" with addr in the target's native
// width.
func (e *Engine[U]) parseRange(s string) (U, int, bool) {
	addrStr, lenStr, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0, false
	}
	addr, err := strconv.ParseUint(addrStr, 16, e.t.Arch().AddrBits)
	if err != nil {
		return 0, 0, false
	}
	n, err := strconv.ParseUint(lenStr, 16, 31)
	if err != nil {
		return 0, 0, false
	}
	return U(addr), int(n), true
}

func (e *Engine[U]) readMemory(args string) error {
	addr, n, ok := e.parseRange(args)
	if !ok {
		return e.errno(errInvalid, nil)
	}
	// Two hex digits per byte must fit in one packet.
	if n > PacketSize/2 {
		n = PacketSize / 2
	}
	buf := make([]byte, n)
	got, err := e.t.ReadAddrs(addr, buf)
	if err != nil {
		return e.errno(errFault, err)
	}
	if got == 0 && n > 0 {
		return e.errno(errFault, nil)
	}
	return e.reply(hex.EncodeToString(buf[:got]))
}

func (e *Engine[U]) writeMemory(args string) error {
	rng, dataStr, ok := strings.Cut(args, ":")
	if !ok {
		return e.errno(errInvalid, nil)
	}
	addr, n, ok := e.parseRange(rng)
	if !ok {
		return e.errno(errInvalid, nil)
	}
	data, err := hex.DecodeString(dataStr)
	if err != nil || len(data) != n {
		return e.errno(errInvalid, err)
	}
	if err := e.t.WriteAddrs(addr, data); err != nil {
		return e.errno(errFault, err)
	}
	return e.reply("OK")
}

package rsp

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"strings"
	"testing"

	"gdbstub/internal/emu"
	gserr "gdbstub/internal/errors"
	"gdbstub/internal/metrics"
	"gdbstub/internal/stop"
	"gdbstub/internal/target"
)

type buffer struct {
	bytes.Buffer
	flushes int
}

func (b *buffer) Flush() error { b.flushes++; return nil }

func frame(payload string) string {
	return "$" + payload + "#" + hex2(checksum([]byte(payload)))
}

// feed sends s byte by byte and returns the first error.
func feed[U target.Addr](e *Engine[U], s string) error {
	for i := 0; i < len(s); i++ {
		if err := e.Incoming(s[i]); err != nil {
			return err
		}
	}
	return nil
}

// exchange sends one packet and returns the reply payload.
func exchange[U target.Addr](t *testing.T, e *Engine[U], out *buffer, payload string) string {
	t.Helper()
	out.Reset()
	if err := feed(e, frame(payload)); err != nil {
		t.Fatalf("%s: %v", payload, err)
	}
	s := strings.TrimPrefix(out.String(), "+")
	if s == "" {
		return ""
	}
	if !strings.HasPrefix(s, "$") || len(s) < 4 || s[len(s)-3] != '#' {
		t.Fatalf("%s: malformed reply %q", payload, s)
	}
	return s[1 : len(s)-3]
}

func newX86(singleStep bool, m *metrics.Collector) (*Engine[uint64], *buffer, *target.X86) {
	tgt := target.NewX86(emu.New(emu.NewCountdown(0), emu.Config{}),
		target.Options{SingleStep: singleStep, Metrics: m})
	out := &buffer{}
	return New[uint64](tgt, out, Options{Metrics: m}), out, tgt
}

func TestEngine_AckAndStatus(t *testing.T) {
	e, out, _ := newX86(false, nil)
	if err := feed(e, "$?#3f"); err != nil {
		t.Fatal(err)
	}
	if out.String() != "+$S05#b8" {
		t.Errorf("got %q", out.String())
	}
	if out.flushes == 0 {
		t.Error("reply was not flushed")
	}
}

func TestEngine_BadChecksumNacks(t *testing.T) {
	e, out, _ := newX86(false, nil)
	feed(e, "$?#00") //nolint:errcheck
	if out.String() != "-" {
		t.Errorf("got %q, want -", out.String())
	}
}

func TestEngine_Retransmit(t *testing.T) {
	e, out, _ := newX86(false, nil)
	exchange(t, e, out, "qAttached")
	out.Reset()
	feed(e, "-") //nolint:errcheck
	if out.String() != frame("1") {
		t.Errorf("retransmit = %q", out.String())
	}
}

func TestEngine_NoAckMode(t *testing.T) {
	e, out, _ := newX86(false, nil)
	if got := exchange(t, e, out, "QStartNoAckMode"); got != "OK" {
		t.Fatalf("got %q", got)
	}
	if !e.NoAck() {
		t.Fatal("no-ack mode not enabled")
	}
	out.Reset()
	feed(e, frame("?")) //nolint:errcheck
	if out.String() != frame("S05") {
		t.Errorf("got %q, want no leading ack", out.String())
	}
}

func TestEngine_Negotiation(t *testing.T) {
	tests := []struct {
		singleStep bool
		vCont      string
	}{
		{false, "vCont;c;C"},
		{true, "vCont;c;C;s;S"},
	}
	for _, tt := range tests {
		e, out, _ := newX86(tt.singleStep, nil)
		sup := exchange(t, e, out, "qSupported:multiprocess+;swbreak+")
		for _, f := range []string{"PacketSize=1000", "QStartNoAckMode+", "vContSupported+", "swbreak+"} {
			if !strings.Contains(sup, f) {
				t.Errorf("qSupported %q lacks %s", sup, f)
			}
		}
		if got := exchange(t, e, out, "vCont?"); got != tt.vCont {
			t.Errorf("single-step=%v: vCont? = %q, want %q", tt.singleStep, got, tt.vCont)
		}
	}
}

func TestEngine_Queries(t *testing.T) {
	e, out, _ := newX86(false, nil)
	tests := map[string]string{
		"qAttached":       "1",
		"qC":              "QC1",
		"qfThreadInfo":    "m1",
		"qsThreadInfo":    "l",
		"Hg0":             "OK",
		"Z0,1000,1":       "",
		"qXfer:features":  "",
		"vMustReplyEmpty": "",
	}
	for pkt, want := range tests {
		if got := exchange(t, e, out, pkt); got != want {
			t.Errorf("%s -> %q, want %q", pkt, got, want)
		}
	}
}

func TestEngine_ReadRegisters(t *testing.T) {
	e, out, _ := newX86(false, nil)
	data, err := hex.DecodeString(exchange(t, e, out, "g"))
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 536 {
		t.Fatalf("register set is %d bytes, want 536", len(data))
	}
	if got := binary.LittleEndian.Uint64(data[8:]); got != 1 {
		t.Errorf("rbx = %d, want 1", got)
	}
	if got := binary.LittleEndian.Uint64(data[128:]); got != 0x5555_5555_0000_0000 {
		t.Errorf("rip = %#x", got)
	}
}

func TestEngine_WriteRegisters(t *testing.T) {
	e, out, _ := newX86(false, nil)
	data, _ := hex.DecodeString(exchange(t, e, out, "g"))
	binary.LittleEndian.PutUint64(data[0:], 0xdeadbeef)

	if got := exchange(t, e, out, "G"+hex.EncodeToString(data)); got != "OK" {
		t.Fatalf("G -> %q", got)
	}
	after, _ := hex.DecodeString(exchange(t, e, out, "g"))
	if !bytes.Equal(after, data) {
		t.Error("register write not reflected by the next read")
	}

	if got := exchange(t, e, out, "G00"); got != "E16" {
		t.Errorf("short G -> %q, want E16", got)
	}
	if e.State() != Idle {
		t.Error("a bad register write must not end the session")
	}
}

func TestEngine_SingleRegister(t *testing.T) {
	e, out, _ := newX86(false, nil)
	if got := exchange(t, e, out, "p10"); got != "0000000055555555" {
		t.Errorf("p10 (rip) = %q", got)
	}
	if got := exchange(t, e, out, "p3e8"); got != "0000000000000000" {
		t.Errorf("unknown id = %q, want zeros", got)
	}
	if got := exchange(t, e, out, "P0=0100000000000000"); got != "OK" {
		t.Fatalf("P0 -> %q", got)
	}
	if got := exchange(t, e, out, "p0"); got != "0100000000000000" {
		t.Errorf("p0 after write = %q", got)
	}
	if got := exchange(t, e, out, "P0=01"); got != "E16" {
		t.Errorf("short P0 -> %q, want E16", got)
	}
}

func TestEngine_Memory(t *testing.T) {
	e, out, _ := newX86(false, nil)
	if got := exchange(t, e, out, "m1000,4"); got != "90909090" {
		t.Errorf("m1000,4 = %q", got)
	}
	if got := exchange(t, e, out, "M1001,2:cccc"); got != "OK" {
		t.Fatalf("M -> %q", got)
	}
	if got := exchange(t, e, out, "m1000,4"); got != "90cccc90" {
		t.Errorf("after write = %q", got)
	}
	if got := exchange(t, e, out, "m1000"); got != "E16" {
		t.Errorf("malformed m -> %q", got)
	}
	if got := exchange(t, e, out, "M1000,2:cc"); got != "E16" {
		t.Errorf("length mismatch -> %q", got)
	}
}

func TestEngine_MemoryBoundaryMIPS(t *testing.T) {
	tgt := target.NewMIPS(emu.New(emu.NewCountdown(0), emu.Config{}), target.Options{})
	out := &buffer{}
	e := New[uint32](tgt, out, Options{})

	if got := exchange(t, e, out, "mfffffff0,40"); got != strings.Repeat("00", 16) {
		t.Errorf("read at top = %q", got)
	}
	if got := exchange(t, e, out, "m100000000,4"); got != "E16" {
		t.Errorf("address wider than 32 bits -> %q", got)
	}
}

func TestEngine_ContinueAndStop(t *testing.T) {
	m := metrics.New()
	e, out, tgt := newX86(false, m)
	tgt.Exec().SetMode(emu.Step)

	if got := exchange(t, e, out, "c"); got != "" {
		t.Errorf("continue replied %q", got)
	}
	if e.State() != Running || tgt.Exec().Mode() != emu.Continue {
		t.Fatalf("state %s, mode %s", e.State(), tgt.Exec().Mode())
	}

	out.Reset()
	if err := e.ReportStop(stop.FromEvent(emu.DoneStep)); err != nil {
		t.Fatal(err)
	}
	if out.String() != frame("S05") || e.State() != Idle {
		t.Errorf("stop reply %q, state %s", out.String(), e.State())
	}
	if m.Stops() != 1 {
		t.Errorf("stops = %d", m.Stops())
	}
}

func TestEngine_VContStep(t *testing.T) {
	e, out, _ := newX86(true, nil)
	exchange(t, e, out, "vCont;s:1")
	if e.State() != Running {
		t.Fatalf("state = %s", e.State())
	}
}

func TestEngine_StepWithoutSupport(t *testing.T) {
	m := metrics.New()
	e, out, tgt := newX86(false, m)

	if got := exchange(t, e, out, "s"); got != "E16" {
		t.Errorf("s -> %q, want E16", got)
	}
	if e.State() != Idle || tgt.Exec().Mode() != emu.Continue {
		t.Error("an unsupported step must leave the target untouched")
	}
	if m.Rejections() != 1 {
		t.Errorf("rejections = %d", m.Rejections())
	}
}

func TestEngine_SignalIsFatal(t *testing.T) {
	for _, pkt := range []string{"C05", "vCont;C05"} {
		e, out, _ := newX86(false, nil)
		out.Reset()
		err := feed(e, frame(pkt))
		if !gserr.IsTargetError(err) || !gserr.Is(err, gserr.ErrSignalUnsupported) {
			t.Fatalf("%s: err = %v, want signal rejection", pkt, err)
		}
		if !strings.Contains(out.String(), frame("E16")) {
			t.Errorf("%s: reply %q", pkt, out.String())
		}
	}
}

func TestEngine_Interrupt(t *testing.T) {
	e, out, _ := newX86(false, nil)
	exchange(t, e, out, "c")

	// A stray packet while running is ignored.
	exchange(t, e, out, "g")
	if e.State() != Running {
		t.Fatalf("state = %s", e.State())
	}

	if err := e.Incoming(InterruptByte); err != nil {
		t.Fatal(err)
	}
	if e.State() != Interrupted {
		t.Fatalf("state = %s, want interrupted", e.State())
	}
	out.Reset()
	e.ReportStop(stop.Interrupt()) //nolint:errcheck
	if out.String() != frame("S05") || e.State() != Idle {
		t.Errorf("reply %q, state %s", out.String(), e.State())
	}
}

func TestEngine_Endings(t *testing.T) {
	t.Run("detach", func(t *testing.T) {
		e, out, _ := newX86(false, nil)
		if got := exchange(t, e, out, "D"); got != "OK" {
			t.Errorf("D -> %q", got)
		}
		if e.State() != Disconnected || e.Ending().Reason != Disconnect {
			t.Errorf("state %s, ending %s", e.State(), e.Ending().Reason)
		}
	})

	t.Run("kill", func(t *testing.T) {
		e, out, _ := newX86(false, nil)
		if got := exchange(t, e, out, "k"); got != "" {
			t.Errorf("k replied %q", got)
		}
		if e.Ending().Reason != Kill {
			t.Errorf("ending = %s", e.Ending().Reason)
		}
	})

	t.Run("halted", func(t *testing.T) {
		e, out, _ := newX86(false, nil)
		exchange(t, e, out, "c")
		out.Reset()
		e.ReportStop(stop.FromEvent(emu.Halted)) //nolint:errcheck
		if out.String() != frame("X11") {
			t.Errorf("reply %q, want X11", out.String())
		}
		end := e.Ending()
		if e.State() != Disconnected || end.Reason != TargetTerminated || end.Stop.Signal != stop.SIGSTOP {
			t.Errorf("state %s, ending %+v", e.State(), end)
		}
	})

	t.Run("exited", func(t *testing.T) {
		e, out, _ := newX86(false, nil)
		exchange(t, e, out, "c")
		out.Reset()
		e.ReportStop(stop.Reason{Kind: stop.Exited, Code: 3}) //nolint:errcheck
		if out.String() != frame("W03") || e.Ending().Reason != TargetExited {
			t.Errorf("reply %q, ending %+v", out.String(), e.Ending())
		}
	})
}

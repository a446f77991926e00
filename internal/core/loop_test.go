package core

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"gdbstub/internal/conn"
	"gdbstub/internal/emu"
	"gdbstub/internal/metrics"
	"gdbstub/internal/rsp"
	"gdbstub/internal/stop"
	"gdbstub/internal/target"
)

// scriptConn replays a fixed input and records everything written.
type scriptConn struct {
	in      []byte
	out     bytes.Buffer
	readErr error
	peeks   int
}

func (c *scriptConn) Peek() (bool, error) {
	c.peeks++
	return len(c.in) > 0, nil
}

func (c *scriptConn) ReadByte() (byte, error) {
	if len(c.in) == 0 {
		if c.readErr != nil {
			return 0, c.readErr
		}
		return 0, io.EOF
	}
	b := c.in[0]
	c.in = c.in[1:]
	return b, nil
}

func (c *scriptConn) Write(p []byte) (int, error) { return c.out.Write(p) }
func (c *scriptConn) Flush() error                { return nil }
func (c *scriptConn) Close() error                { return nil }

// fakeLoop hands out scripted waits and refuses the first interrupt.
type fakeLoop struct {
	waits      []Wait
	refuse     int
	interrupts int
}

func (l *fakeLoop) WaitForStopReason(target.Target[uint64], conn.Connection) (Wait, error) {
	w := l.waits[0]
	l.waits = l.waits[1:]
	return w, nil
}

func (l *fakeLoop) OnInterrupt(target.Target[uint64]) (stop.Reason, bool) {
	l.interrupts++
	if l.interrupts <= l.refuse {
		return stop.Reason{}, false
	}
	return stop.Interrupt(), true
}

func newSession(budget uint64, input string) (*rsp.Engine[uint64], *target.X86, *scriptConn) {
	c := &scriptConn{in: []byte(input)}
	tgt := target.NewX86(emu.New(emu.NewCountdown(budget), emu.Config{}), target.Options{})
	return rsp.New[uint64](tgt, c, rsp.Options{}), tgt, c
}

func TestRunBlocking_Endings(t *testing.T) {
	tests := []struct {
		name   string
		budget uint64
		input  string
		reason rsp.DisconnectReason
		output string
	}{
		{
			name:   "detach",
			input:  "$?#3f$D#44",
			reason: rsp.Disconnect,
			output: "+$S05#b8+$OK#9a",
		},
		{
			name:   "kill",
			input:  "$k#6b",
			reason: rsp.Kill,
			output: "+",
		},
		{
			name:   "continue until halted",
			budget: 10,
			input:  "$c#63",
			reason: rsp.TargetTerminated,
			output: "+$X11#ba",
		},
		{
			name:   "interrupt while running",
			input:  "$c#63\x03$D#44",
			reason: rsp.Disconnect,
			output: "+$S05#b8+$OK#9a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng, tgt, c := newSession(tt.budget, tt.input)
			end, err := RunBlocking[uint64](eng, EmuLoop[uint64]{}, tgt, c, nil)
			if err != nil {
				t.Fatalf("RunBlocking: %v", err)
			}
			if end.Reason != tt.reason {
				t.Errorf("reason = %s, want %s", end.Reason, tt.reason)
			}
			if got := c.out.String(); got != tt.output {
				t.Errorf("output = %q, want %q", got, tt.output)
			}
		})
	}
}

func TestRunBlocking_TerminatedBySIGSTOP(t *testing.T) {
	eng, tgt, c := newSession(10, "$c#63")
	end, err := RunBlocking[uint64](eng, EmuLoop[uint64]{}, tgt, c, nil)
	if err != nil {
		t.Fatal(err)
	}
	if end.Stop.Kind != stop.Terminated || end.Stop.Signal != stop.SIGSTOP {
		t.Errorf("stop = %s, want terminated(SIGSTOP)", end.Stop)
	}
}

func TestRunBlocking_InterruptCounted(t *testing.T) {
	m := metrics.New()
	eng, tgt, c := newSession(0, "$c#63\x03$D#44")
	if _, err := RunBlocking[uint64](eng, EmuLoop[uint64]{}, tgt, c, m); err != nil {
		t.Fatal(err)
	}
	if m.Interrupts() != 1 {
		t.Errorf("interrupts = %d, want 1", m.Interrupts())
	}
}

func TestRunBlocking_ReadErrorIsFatal(t *testing.T) {
	errGone := errors.New("connection reset")
	eng, tgt, c := newSession(0, "$?#3f")
	c.readErr = errGone

	_, err := RunBlocking[uint64](eng, EmuLoop[uint64]{}, tgt, c, nil)
	if !errors.Is(err, errGone) {
		t.Fatalf("err = %v, want the read error", err)
	}
}

func TestRunBlocking_RejectedSignalIsFatal(t *testing.T) {
	eng, tgt, c := newSession(0, "$C05#a8")
	_, err := RunBlocking[uint64](eng, EmuLoop[uint64]{}, tgt, c, nil)
	if err == nil {
		t.Fatal("expected a fatal error")
	}
	if got := (Outcome{Err: err}).String(); !strings.Contains(got, "debugger request rejected") {
		t.Errorf("outcome = %q", got)
	}
	if got := c.out.String(); got != "+$E16#ac" {
		t.Errorf("output = %q", got)
	}
}

func TestRunBlocking_RefusedInterruptKeepsRunning(t *testing.T) {
	eng, tgt, c := newSession(0, "\x03$k#6b")
	loop := &fakeLoop{
		refuse: 1,
		waits:  []Wait{{Stop: stop.Reason{Kind: stop.DoneStep, Signal: stop.SIGTRAP}}},
	}

	end, err := RunBlocking[uint64](eng, loop, tgt, c, nil)
	if err != nil {
		t.Fatal(err)
	}
	if end.Reason != rsp.Kill {
		t.Errorf("reason = %s, want kill", end.Reason)
	}
	if loop.interrupts != 1 || len(loop.waits) != 0 {
		t.Errorf("interrupts = %d, waits left = %d", loop.interrupts, len(loop.waits))
	}
	if got := c.out.String(); got != "$S05#b8+" {
		t.Errorf("output = %q", got)
	}
}

func TestEmuLoop_PeekErrorMeansData(t *testing.T) {
	c := &failingPeek{err: errors.New("peek failed")}
	tgt := target.NewX86(emu.New(emu.NewCountdown(0), emu.Config{PollInterval: 4}), target.Options{})

	w, err := EmuLoop[uint64]{}.WaitForStopReason(tgt, c)
	if !errors.Is(err, c.err) {
		t.Fatalf("err = %v, want the read error after a failed peek", err)
	}
	if w.Incoming {
		t.Error("no byte should be reported")
	}
}

func TestEmuLoop_StepModeReportsDoneStep(t *testing.T) {
	tgt := target.NewX86(emu.New(emu.NewCountdown(0), emu.Config{}), target.Options{SingleStep: true})
	tgt.Exec().SetMode(emu.Step)

	w, err := EmuLoop[uint64]{}.WaitForStopReason(tgt, &scriptConn{})
	if err != nil {
		t.Fatal(err)
	}
	if w.Incoming || w.Stop.Kind != stop.DoneStep {
		t.Errorf("wait = %+v, want done-step", w)
	}
}

func TestEmuLoop_InterruptWhilePaused(t *testing.T) {
	tgt := target.NewX86(emu.New(emu.NewCountdown(0), emu.Config{}), target.Options{})
	r, ok := EmuLoop[uint64]{}.OnInterrupt(tgt)
	if !ok || r != stop.Interrupt() {
		t.Errorf("OnInterrupt = %s, %v", r, ok)
	}
}

// failingPeek fails both the peek and the read that follows it.
type failingPeek struct {
	scriptConn
	err error
}

func (c *failingPeek) Peek() (bool, error)     { return false, c.err }
func (c *failingPeek) ReadByte() (byte, error) { return 0, c.err }

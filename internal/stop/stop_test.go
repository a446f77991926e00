package stop

import (
	"testing"

	"gdbstub/internal/emu"
)

func TestFromEvent(t *testing.T) {
	tests := []struct {
		ev    emu.Event
		want  Reason
		final bool
	}{
		{emu.DoneStep, Reason{Kind: DoneStep, Signal: SIGTRAP}, false},
		{emu.Halted, Reason{Kind: Terminated, Signal: SIGSTOP}, true},
	}
	for _, tt := range tests {
		t.Run(tt.ev.String(), func(t *testing.T) {
			got := FromEvent(tt.ev)
			if got != tt.want {
				t.Errorf("FromEvent(%v) = %v, want %v", tt.ev, got, tt.want)
			}
			if got.Final() != tt.final {
				t.Errorf("Final() = %v, want %v", got.Final(), tt.final)
			}
		})
	}
}

func TestInterrupt(t *testing.T) {
	got := Interrupt()
	if got.Kind != SignalDelivered || got.Signal != SIGTRAP {
		t.Errorf("Interrupt() = %v", got)
	}
	if got.Final() {
		t.Error("an interrupted target can be resumed")
	}
}

func TestStrings(t *testing.T) {
	tests := []struct {
		r    Reason
		want string
	}{
		{Reason{Kind: DoneStep}, "done-step"},
		{Interrupt(), "signal(SIGTRAP)"},
		{Reason{Kind: Terminated, Signal: SIGSTOP}, "terminated(SIGSTOP)"},
		{Reason{Kind: Exited, Code: 3}, "exited(3)"},
		{Reason{Kind: SignalDelivered, Signal: 99}, "signal(SIG#99)"},
	}
	for _, tt := range tests {
		if got := tt.r.String(); got != tt.want {
			t.Errorf("got %q, want %q", got, tt.want)
		}
	}
}

// Package metrics provides lightweight, lock-free counters for tracking
// runtime statistics of a debugging session.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics for a debugging session.
// A nil Collector is safe to use: all methods become no-ops.
type Collector struct {
	units      atomic.Uint64
	polls      atomic.Uint64
	bytesIn    atomic.Int64
	bytesOut   atomic.Int64
	packets    atomic.Int64
	stops      atomic.Int64
	interrupts atomic.Int64
	rejections atomic.Int64
	errorsTot  atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastStop     string
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Execution metrics ────────────────────────────────────────────────

// UnitsExecuted records n units of target progress.
func (c *Collector) UnitsExecuted(n uint64) {
	if c == nil {
		return
	}
	c.units.Add(n)
}

// Polled records one connection poll from the execution core.
func (c *Collector) Polled() {
	if c == nil {
		return
	}
	c.polls.Add(1)
}

// Units returns the total units executed.
func (c *Collector) Units() uint64 {
	if c == nil {
		return 0
	}
	return c.units.Load()
}

// Polls returns the total number of connection polls.
func (c *Collector) Polls() uint64 {
	if c == nil {
		return 0
	}
	return c.polls.Load()
}

// ── I/O metrics ──────────────────────────────────────────────────────

// BytesReceived records n bytes read from the debugger.
func (c *Collector) BytesReceived(n int64) {
	if c == nil {
		return
	}
	c.bytesIn.Add(n)
}

// BytesSent records n bytes written to the debugger.
func (c *Collector) BytesSent(n int64) {
	if c == nil {
		return
	}
	c.bytesOut.Add(n)
}

// PacketHandled records one complete RSP command.
func (c *Collector) PacketHandled() {
	if c == nil {
		return
	}
	c.packets.Add(1)
}

// TotalBytesIn returns total bytes received.
func (c *Collector) TotalBytesIn() int64 {
	if c == nil {
		return 0
	}
	return c.bytesIn.Load()
}

// TotalBytesOut returns total bytes sent.
func (c *Collector) TotalBytesOut() int64 {
	if c == nil {
		return 0
	}
	return c.bytesOut.Load()
}

// ── Stop metrics ─────────────────────────────────────────────────────

// StopReported records a stop reply sent to the debugger.
func (c *Collector) StopReported(reason string) {
	if c == nil {
		return
	}
	c.stops.Add(1)
	c.mu.Lock()
	c.lastStop = reason
	c.mu.Unlock()
}

// InterruptServed records a debugger interrupt answered by the loop.
func (c *Collector) InterruptServed() {
	if c == nil {
		return
	}
	c.interrupts.Add(1)
}

// Stops returns the number of stop replies reported.
func (c *Collector) Stops() int64 {
	if c == nil {
		return 0
	}
	return c.stops.Load()
}

// Interrupts returns the number of interrupts served.
func (c *Collector) Interrupts() int64 {
	if c == nil {
		return 0
	}
	return c.interrupts.Load()
}

// ── Error metrics ────────────────────────────────────────────────────

// Rejected records a capability rejection.
func (c *Collector) Rejected() {
	if c == nil {
		return
	}
	c.rejections.Add(1)
}

// Rejections returns the number of capability rejections.
func (c *Collector) Rejections() int64 {
	if c == nil {
		return 0
	}
	return c.rejections.Load()
}

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTot.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTot.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime           string `json:"uptime"`
	Units            uint64 `json:"units"`
	Polls            uint64 `json:"polls"`
	BytesIn          int64  `json:"bytes_in"`
	BytesOut         int64  `json:"bytes_out"`
	Packets          int64  `json:"packets"`
	Stops            int64  `json:"stops"`
	Interrupts       int64  `json:"interrupts"`
	Rejections       int64  `json:"rejections"`
	ErrorsTotal      int64  `json:"errors_total"`
	LastStop         string `json:"last_stop,omitempty"`
	LastError        string `json:"last_error,omitempty"`
	LastErrorMessage string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:      time.Since(c.startTime).Truncate(time.Millisecond).String(),
		Units:       c.units.Load(),
		Polls:       c.polls.Load(),
		BytesIn:     c.bytesIn.Load(),
		BytesOut:    c.bytesOut.Load(),
		Packets:     c.packets.Load(),
		Stops:       c.stops.Load(),
		Interrupts:  c.interrupts.Load(),
		Rejections:  c.rejections.Load(),
		ErrorsTotal: c.errorsTot.Load(),
		LastStop:    c.lastStop,
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}

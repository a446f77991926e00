package rsp

import (
	"fmt"
	"io"
)

// Framing bytes of the remote serial protocol.
const (
	packetStart = '$'
	packetEnd   = '#'
	escapeByte  = '}'
	runLength   = '*'
	ack         = '+'
	nack        = '-'

	// InterruptByte is sent raw by the debugger to stop a running
	// target (Ctrl-C).
	InterruptByte = 0x03
)

// PacketSize is the largest packet the stub accepts, as advertised in
// qSupported.
const PacketSize = 0x1000

// checksum is the modulo-256 sum of the framed payload bytes.
func checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}

// unescape reverses "}x" escaping in a received payload.
func unescape(data []byte) []byte {
	out := data[:0]
	for i := 0; i < len(data); i++ {
		if data[i] == escapeByte && i+1 < len(data) {
			i++
			out = append(out, data[i]^0x20)
			continue
		}
		out = append(out, data[i])
	}
	return out
}

func needsEscape(b byte) bool {
	return b == packetStart || b == packetEnd || b == escapeByte || b == runLength
}

// writePacket frames payload as $payload#ck.  Replies are never
// run-length encoded.
func writePacket(w io.Writer, payload []byte) error {
	frame := make([]byte, 0, len(payload)+4)
	frame = append(frame, packetStart)
	body := len(frame)
	for _, b := range payload {
		if needsEscape(b) {
			frame = append(frame, escapeByte, b^0x20)
		} else {
			frame = append(frame, b)
		}
	}
	sum := checksum(frame[body:])
	frame = append(frame, packetEnd)
	frame = append(frame, fmt.Sprintf("%02x", sum)...)
	_, err := w.Write(frame)
	return err
}

// parseState tracks where the parser is within a frame.
type parseState int

const (
	waitStart parseState = iota
	inBody
	inChecksum
)

// parser reassembles packets one byte at a time.
type parser struct {
	state parseState
	body  []byte
	ck    [2]byte
	nck   int
}

// frameResult is what a byte fed to the parser produced.
type frameResult int

const (
	frameNone frameResult = iota
	frameOK
	frameBadChecksum
	frameOverflow
	frameAck
	frameNack
	frameInterrupt
)

// feed consumes b.  When it returns frameOK the payload is available
// from packet until the next call.
func (p *parser) feed(b byte) frameResult {
	switch p.state {
	case waitStart:
		switch b {
		case packetStart:
			p.state = inBody
			p.body = p.body[:0]
		case ack:
			return frameAck
		case nack:
			return frameNack
		case InterruptByte:
			return frameInterrupt
		}
		// Anything else between packets is line noise.
		return frameNone

	case inBody:
		if b == packetEnd {
			p.state = inChecksum
			p.nck = 0
			return frameNone
		}
		if len(p.body) >= PacketSize {
			p.state = waitStart
			return frameOverflow
		}
		p.body = append(p.body, b)
		return frameNone

	default:
		p.ck[p.nck] = b
		p.nck++
		if p.nck < 2 {
			return frameNone
		}
		p.state = waitStart
		want, ok := hexByte(p.ck[0], p.ck[1])
		if !ok || want != checksum(p.body) {
			return frameBadChecksum
		}
		return frameOK
	}
}

// packet returns the unescaped payload of the last complete frame.
func (p *parser) packet() []byte {
	return unescape(p.body)
}

func hexNibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func hexByte(hi, lo byte) (byte, bool) {
	h, ok1 := hexNibble(hi)
	l, ok2 := hexNibble(lo)
	return h<<4 | l, ok1 && ok2
}

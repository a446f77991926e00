package conn

import "io"

// pump drains a reader on its own goroutine so that readiness can be
// tested with a non-blocking channel receive.
type pump struct {
	ch   chan byte
	done chan struct{}
	err  error // set before ch is closed

	head    byte
	pending bool
}

func newPump(r io.Reader) *pump {
	p := &pump{
		ch:   make(chan byte, 4096),
		done: make(chan struct{}),
	}
	go p.run(r)
	return p
}

func (p *pump) run(r io.Reader) {
	defer close(p.ch)
	buf := make([]byte, 512)
	for {
		n, err := r.Read(buf)
		for _, b := range buf[:n] {
			select {
			case p.ch <- b:
			case <-p.done:
				p.err = io.ErrClosedPipe
				return
			}
		}
		if err != nil {
			p.err = err
			return
		}
	}
}

func (p *pump) stop() { close(p.done) }

// ready reports a byte as available once the pump has closed too, so
// that the following read surfaces the terminal error.
func (p *pump) ready() (bool, error) {
	if p.pending {
		return true, nil
	}
	select {
	case b, ok := <-p.ch:
		if ok {
			p.head, p.pending = b, true
		}
		return true, nil
	default:
		return false, nil
	}
}

func (p *pump) ReadByte() (byte, error) {
	if p.pending {
		p.pending = false
		return p.head, nil
	}
	b, ok := <-p.ch
	if !ok {
		return 0, p.err
	}
	return b, nil
}

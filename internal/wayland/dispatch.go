package wayland

import (
	"errors"
	"fmt"

	"github.com/rajveermalviya/go-wayland/wayland/client"
	"golang.org/x/sys/unix"

	"github.com/bnema/wayplat/internal/logger"
)

var errShortEvent = errors.New("event shorter than its signature")

// wireReader decodes the arguments of one event. The first error sticks:
// later reads return zero values.
type wireReader struct {
	data []byte
	off  int
	err  error
}

func (r *wireReader) u32() uint32 {
	if r.err != nil {
		return 0
	}
	if len(r.data)-r.off < 4 {
		r.err = errShortEvent
		return 0
	}
	v := client.Uint32(r.data[r.off:])
	r.off += 4
	return v
}

func (r *wireReader) i32() int32 {
	return int32(r.u32())
}

// fixed decodes a 24.8 wl_fixed.
func (r *wireReader) fixed() float64 {
	return float64(r.i32()) / 256
}

// object decodes an object or new_id argument. Zero is the null object.
func (r *wireReader) object() uint32 {
	return r.u32()
}

// array skips an array argument.
func (r *wireReader) array() {
	n := client.PaddedLen(int(r.u32()))
	if r.err != nil {
		return
	}
	if len(r.data)-r.off < n {
		r.err = errShortEvent
		return
	}
	r.off += n
}

// ok reports whether every read succeeded, logging the event otherwise.
func (r *wireReader) ok(event string) bool {
	if r.err != nil {
		logger.Warnf("Malformed %s event: %v", event, r.err)
		return false
	}
	return true
}

// eventFilter decodes some opcodes of an object itself and passes the rest
// to the go-wayland proxy. go-wayland resolves object arguments with an
// unchecked type assertion, which panics on ids it does not know.
type eventFilter struct {
	next client.Dispatcher
	ops  map[uint32]func(r *wireReader)
}

func (f *eventFilter) Dispatch(opcode uint32, fd int, data []byte) {
	if op, ok := f.ops[opcode]; ok {
		op(&wireReader{data: data})
		return
	}
	f.next.Dispatch(opcode, fd, data)
}

// route sends the events of object id to d instead of the proxy go-wayland
// has registered under that id.
func (c *Client) route(id uint32, d client.Dispatcher) {
	c.handlers[id] = d
}

func (c *Client) unroute(id uint32) {
	delete(c.handlers, id)
}

// dispatch reads one event and hands it to its receiver. Objects the
// compositor created are only known to our handler table. Events for
// objects neither side knows any more, such as a surface destroyed while
// the compositor was still describing it, are dropped.
func (c *Client) dispatch() error {
	ctx := c.display.Context()
	sender, opcode, fd, data, err := ctx.ReadMsg()
	if err != nil {
		return fmt.Errorf("failed to read event: %w", err)
	}
	if h, ok := c.handlers[sender]; ok {
		h.Dispatch(opcode, fd, data)
		return nil
	}
	if h, ok := ctx.GetProxy(sender).(client.Dispatcher); ok {
		h.Dispatch(opcode, fd, data)
		return nil
	}
	logger.Debugf("Dropping event %d for unknown object %d", opcode, sender)
	if fd >= 0 {
		unix.Close(fd)
	}
	return nil
}

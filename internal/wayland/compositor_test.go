package wayland

import (
	"bytes"
	"encoding/binary"
	"io"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/rajveermalviya/go-wayland/wayland/client"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/bnema/wayplat/internal/config"
)

// fixed marks a wl_fixed event argument.
type fixed float64

// wlArray marks an array event argument.
type wlArray []byte

// request is one message the client sent.
type request struct {
	sender uint32
	opcode uint32
	body   []byte
}

func (r request) u32(i int) uint32 {
	return binary.NativeEndian.Uint32(r.body[i*4:])
}

// str decodes the string argument starting at byte offset off.
func (r request) str(off int) string {
	n := int(binary.NativeEndian.Uint32(r.body[off:]))
	if n == 0 {
		return ""
	}
	s := r.body[off+4 : off+4+n]
	if i := bytes.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	return string(s)
}

// fakeCompositor is the server end of a client connection. It speaks raw
// wire messages and knows no protocol beyond that.
type fakeCompositor struct {
	t    *testing.T
	conn *net.UnixConn
}

// newTestClient connects a Client to a fake compositor over a socket pair
// in a temporary directory. Nothing is bound: tests create the proxies
// they need.
func newTestClient(t *testing.T) (*Client, *fakeCompositor) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wl")
	ln, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	require.NoError(t, err)
	defer ln.Close()

	display, err := client.Connect(path)
	require.NoError(t, err)
	conn, err := ln.AcceptUnix()
	require.NoError(t, err)

	cfg := config.DefaultConfig
	c := newClient(&cfg, display)
	t.Cleanup(func() {
		c.Close()
		conn.Close()
	})
	return c, &fakeCompositor{t: t, conn: conn}
}

// send writes one event from object sender.
func (f *fakeCompositor) send(sender, opcode uint32, args ...any) {
	f.t.Helper()
	var body []byte
	for _, a := range args {
		switch v := a.(type) {
		case uint32:
			body = binary.NativeEndian.AppendUint32(body, v)
		case int32:
			body = binary.NativeEndian.AppendUint32(body, uint32(v))
		case fixed:
			body = binary.NativeEndian.AppendUint32(body, uint32(int32(float64(v)*256)))
		case string:
			body = binary.NativeEndian.AppendUint32(body, uint32(len(v)+1))
			body = append(body, v...)
			body = append(body, make([]byte, client.PaddedLen(len(v)+1)-len(v))...)
		case wlArray:
			body = binary.NativeEndian.AppendUint32(body, uint32(len(v)))
			body = append(body, v...)
			body = append(body, make([]byte, client.PaddedLen(len(v))-len(v))...)
		default:
			f.t.Fatalf("unsupported argument %T", a)
		}
	}
	msg := binary.NativeEndian.AppendUint32(nil, sender)
	msg = binary.NativeEndian.AppendUint32(msg, uint32(8+len(body))<<16|opcode)
	_, err := f.conn.Write(append(msg, body...))
	require.NoError(f.t, err)
}

// next reads the next request. Descriptors passed with it are closed.
func (f *fakeCompositor) next() request {
	f.t.Helper()
	require.NoError(f.t, f.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	header := make([]byte, 8)
	oob := make([]byte, unix.CmsgSpace(4*4))
	n, oobn, _, _, err := f.conn.ReadMsgUnix(header, oob)
	require.NoError(f.t, err)
	require.Equal(f.t, 8, n)
	f.closeFds(oob[:oobn])

	req := request{
		sender: binary.NativeEndian.Uint32(header),
		opcode: binary.NativeEndian.Uint32(header[4:]) & 0xffff,
	}
	size := int(binary.NativeEndian.Uint32(header[4:]) >> 16)
	req.body = make([]byte, size-8)
	_, err = io.ReadFull(f.conn, req.body)
	require.NoError(f.t, err)
	return req
}

func (f *fakeCompositor) closeFds(oob []byte) {
	if len(oob) == 0 {
		return
	}
	msgs, err := unix.ParseSocketControlMessage(oob)
	require.NoError(f.t, err)
	for _, m := range msgs {
		fds, err := unix.ParseUnixRights(&m)
		require.NoError(f.t, err)
		for _, fd := range fds {
			unix.Close(fd)
		}
	}
}

// expect skips requests until one from sender with opcode arrives.
func (f *fakeCompositor) expect(sender, opcode uint32) request {
	f.t.Helper()
	for {
		req := f.next()
		if req.sender == sender && req.opcode == opcode {
			return req
		}
	}
}

// dispatchN dispatches n events on the client.
func dispatchN(t *testing.T, c *Client, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, c.dispatch())
	}
}

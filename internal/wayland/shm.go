package wayland

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/rajveermalviya/go-wayland/wayland/client"
	"golang.org/x/sys/unix"

	"github.com/bnema/wayplat/internal/geom"
	"github.com/bnema/wayplat/internal/logger"
	"github.com/bnema/wayplat/internal/window"
)

// ShmRenderer paints a window with a solid colour through wl_shm. Every
// paint allocates a fresh buffer that is destroyed once the compositor
// released it.
type ShmRenderer struct {
	c       *Client
	surface *surface
	size    geom.Size
	color   uint32
	live    int
}

// NewShmRenderer creates a renderer filling with an ARGB colour.
func (c *Client) NewShmRenderer(color uint32) *ShmRenderer {
	return &ShmRenderer{c: c, color: color}
}

// Factory binds the renderer to the window surface it is created for.
func (r *ShmRenderer) Factory() window.RenderFactory {
	return func(s window.Surface, size geom.Size) (window.RenderSurface, error) {
		ws, ok := s.(*surface)
		if !ok {
			return nil, errForeignSurface
		}
		r.surface = ws
		r.size = size
		return r, nil
	}
}

// Resize sets the buffer size in physical pixels.
func (r *ShmRenderer) Resize(size geom.Size) error {
	r.size = size
	return nil
}

func (r *ShmRenderer) Destroy() error {
	r.surface = nil
	return nil
}

// SetColor changes the fill colour for the next paint.
func (r *ShmRenderer) SetColor(color uint32) {
	r.color = color
}

func (r *ShmRenderer) Color() uint32 {
	return r.color
}

// Size is the current buffer size.
func (r *ShmRenderer) Size() geom.Size {
	return r.size
}

// Paint attaches a freshly filled buffer and commits the surface.
func (r *ShmRenderer) Paint() error {
	if r.surface == nil {
		return errors.New("renderer has no surface")
	}
	if r.size.Empty() {
		return nil
	}
	w, h := r.size.Width, r.size.Height
	stride := w * 4
	length := stride * h

	fd, err := unix.MemfdCreate("wayplat-shm", unix.MFD_CLOEXEC)
	if err != nil {
		return fmt.Errorf("failed to create shm file: %w", err)
	}
	defer unix.Close(fd)
	if err := unix.Ftruncate(fd, int64(length)); err != nil {
		return fmt.Errorf("failed to size shm file: %w", err)
	}
	data, err := unix.Mmap(fd, 0, int(length), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("failed to map shm file: %w", err)
	}
	fill(data, r.color)
	if err := unix.Munmap(data); err != nil {
		logger.Debugf("shm: unmap: %v", err)
	}

	pool, err := r.c.shm.CreatePool(fd, length)
	if err != nil {
		return fmt.Errorf("failed to create shm pool: %w", err)
	}
	buf, err := pool.CreateBuffer(0, w, h, stride, uint32(client.ShmFormatArgb8888))
	pool.Destroy()
	if err != nil {
		return fmt.Errorf("failed to create buffer: %w", err)
	}
	r.live++
	buf.SetReleaseHandler(func(client.BufferReleaseEvent) {
		r.live--
		buf.Destroy()
	})

	s := r.surface.s
	if err := s.Attach(buf, 0, 0); err != nil {
		return fmt.Errorf("failed to attach buffer: %w", err)
	}
	if err := s.DamageBuffer(0, 0, w, h); err != nil {
		return fmt.Errorf("failed to damage buffer: %w", err)
	}
	return s.Commit()
}

// LiveBuffers counts buffers the compositor still holds.
func (r *ShmRenderer) LiveBuffers() int {
	return r.live
}

func fill(data []byte, argb uint32) {
	for i := 0; i+4 <= len(data); i += 4 {
		binary.LittleEndian.PutUint32(data[i:], argb)
	}
}

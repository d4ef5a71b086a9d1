package wayland

import (
	"fmt"

	"github.com/rajveermalviya/go-wayland/wayland/client"
	"golang.org/x/sys/unix"

	"github.com/bnema/wayplat/internal/logger"
	"github.com/bnema/wayplat/internal/transfer"
	"github.com/bnema/wayplat/internal/wlproto"
)

// wl_data_device events.
const (
	dataDeviceDataOffer = iota
	dataDeviceEnter
	dataDeviceLeave
	dataDeviceMotion
	dataDeviceDrop
	dataDeviceSelection
)

const dataOfferAccept = 0

// offerProxy adapts a wl_data_offer to transfer.OfferProxy.
type offerProxy struct {
	c *Client
	o *client.DataOffer
}

func (p *offerProxy) Accept(serial uint32, mimeType string) error {
	if mimeType != "" {
		return p.o.Accept(serial, mimeType)
	}
	// go-wayland would send an empty string, which the compositor takes
	// as an accepted type. Rejecting needs a null one.
	const size = 16
	var buf [size]byte
	client.PutUint32(buf[0:4], p.o.ID())
	client.PutUint32(buf[4:8], size<<16|dataOfferAccept)
	client.PutUint32(buf[8:12], serial)
	client.PutUint32(buf[12:16], 0)
	return p.o.Context().WriteMsg(buf[:], nil)
}

func (p *offerProxy) SetActions(actions, preferred wlproto.DndAction) error {
	return p.o.SetActions(uint32(actions), uint32(preferred))
}

func (p *offerProxy) Receive(mimeType string, fd int) error {
	return p.o.Receive(mimeType, fd)
}

func (p *offerProxy) Finish() error {
	return p.o.Finish()
}

func (p *offerProxy) Destroy() error {
	p.c.unroute(p.o.ID())
	return p.o.Destroy()
}

// sourceProxy adapts a wl_data_source to transfer.SourceProxy.
type sourceProxy struct {
	s *client.DataSource
}

func (p *sourceProxy) Offer(mimeType string) error {
	return p.s.Offer(mimeType)
}

func (p *sourceProxy) SetActions(actions wlproto.DndAction) error {
	return p.s.SetActions(uint32(actions))
}

func (p *sourceProxy) Destroy() error {
	return p.s.Destroy()
}

// deviceProxy adapts the wl_data_device and its manager to
// transfer.DeviceProxy.
type deviceProxy struct {
	c *Client
}

func (d *deviceProxy) CreateSource(handle func(transfer.SourceEvent)) (transfer.SourceProxy, error) {
	src, err := d.c.ddm.CreateDataSource()
	if err != nil {
		return nil, fmt.Errorf("failed to create data source: %w", err)
	}
	src.SetSendHandler(func(e client.DataSourceSendEvent) {
		handle(transfer.Send{MimeType: e.MimeType, Fd: e.Fd})
	})
	src.SetCancelledHandler(func(client.DataSourceCancelledEvent) {
		handle(transfer.Cancelled{})
	})
	src.SetTargetHandler(func(e client.DataSourceTargetEvent) {
		handle(transfer.Target{MimeType: e.MimeType})
	})
	src.SetActionHandler(func(e client.DataSourceActionEvent) {
		handle(transfer.Action{Action: wlproto.DndAction(e.DndAction)})
	})
	src.SetDndDropPerformedHandler(func(client.DataSourceDndDropPerformedEvent) {
		handle(transfer.DropPerformed{})
	})
	src.SetDndFinishedHandler(func(client.DataSourceDndFinishedEvent) {
		handle(transfer.Finished{})
	})
	return &sourceProxy{s: src}, nil
}

func (d *deviceProxy) SetSelection(src transfer.SourceProxy, serial uint32) error {
	if src == nil {
		return d.c.dataDevice.SetSelection(nil, serial)
	}
	sp, ok := src.(*sourceProxy)
	if !ok {
		return fmt.Errorf("foreign data source %T", src)
	}
	return d.c.dataDevice.SetSelection(sp.s, serial)
}

func (d *deviceProxy) StartDrag(src transfer.SourceProxy, origin wlproto.SurfaceID, serial uint32) error {
	sp, ok := src.(*sourceProxy)
	if !ok {
		return fmt.Errorf("foreign data source %T", src)
	}
	s, ok := d.c.surfaces[origin]
	if !ok {
		return fmt.Errorf("unknown origin surface %d", origin)
	}
	return d.c.dataDevice.StartDrag(sp.s, s.s, nil, serial)
}

// dataDeviceEvents decodes wl_data_device events. go-wayland cannot: the
// data_offer event introduces an object the compositor allocated, and
// enter and selection refer to it.
type dataDeviceEvents struct {
	c   *Client
	dev *transfer.Device
}

func (h *dataDeviceEvents) Dispatch(opcode uint32, fd int, data []byte) {
	r := &wireReader{data: data}
	switch opcode {
	case dataDeviceDataOffer:
		id := r.object()
		if !r.ok("wl_data_device.data_offer") || id == 0 {
			return
		}
		h.c.newOffer(h.dev, id)
	case dataDeviceEnter:
		serial := r.u32()
		surface := r.object()
		x, y := r.fixed(), r.fixed()
		offer := r.object()
		if !r.ok("wl_data_device.enter") {
			return
		}
		h.dev.Handle(transfer.Enter{
			Serial:  serial,
			Surface: wlproto.SurfaceID(surface),
			X:       x,
			Y:       y,
			Offer:   wlproto.OfferID(offer),
		})
	case dataDeviceLeave:
		h.dev.Handle(transfer.Leave{})
	case dataDeviceMotion:
		t := r.u32()
		x, y := r.fixed(), r.fixed()
		if !r.ok("wl_data_device.motion") {
			return
		}
		h.dev.Handle(transfer.Motion{Time: t, X: x, Y: y})
	case dataDeviceDrop:
		h.dev.Handle(transfer.Drop{})
	case dataDeviceSelection:
		offer := r.object()
		if !r.ok("wl_data_device.selection") {
			return
		}
		h.dev.Handle(transfer.Selection{Offer: wlproto.OfferID(offer)})
	default:
		logger.Debugf("Unknown wl_data_device event %d", opcode)
	}
	if fd >= 0 {
		unix.Close(fd)
	}
}

// newOffer registers a wl_data_offer the compositor created and hands it
// to dev.
func (c *Client) newOffer(dev *transfer.Device, id uint32) {
	o := &client.DataOffer{}
	o.SetContext(c.display.Context())
	o.SetID(id)

	oid := wlproto.OfferID(id)
	o.SetOfferHandler(func(ev client.DataOfferOfferEvent) {
		dev.HandleOfferEvent(oid, transfer.OfferMime{MimeType: ev.MimeType})
	})
	o.SetSourceActionsHandler(func(ev client.DataOfferSourceActionsEvent) {
		dev.HandleOfferEvent(oid, transfer.OfferSourceActions{Actions: wlproto.DndAction(ev.SourceActions)})
	})
	o.SetActionHandler(func(ev client.DataOfferActionEvent) {
		dev.HandleOfferEvent(oid, transfer.OfferAction{Action: wlproto.DndAction(ev.DndAction)})
	})
	c.route(id, o)
	dev.Handle(transfer.DataOffer{ID: oid, Proxy: &offerProxy{c: c, o: o}})
}

// setupDataDevice creates the seat's data device and the transfer manager
// driving it.
func (c *Client) setupDataDevice() error {
	dd, err := c.ddm.GetDataDevice(c.seat)
	if err != nil {
		return fmt.Errorf("failed to get data device: %w", err)
	}
	c.dataDevice = dd
	c.transfer = transfer.NewManager(transfer.ManagerOptions{
		Proxy:   &deviceProxy{c: c},
		Screens: c.screens,
		Serials: &c.serials,
		Mods:    c,
		Cursor:  c,
		Config:  c.cfg.Transfer,
	})
	c.route(dd.ID(), &dataDeviceEvents{c: c, dev: c.transfer.Device()})
	logger.Debug("Data device ready")
	return nil
}

package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"golang.org/x/sys/unix"

	"github.com/bnema/wayplat/internal/input"
	"github.com/bnema/wayplat/internal/wlproto"
)

// ErrOfferGone is returned when reading from a disposed offer.
var ErrOfferGone = errors.New("offer disposed")

// ErrNoFormat is returned when the offer does not carry a requested format.
var ErrNoFormat = errors.New("format not offered")

// ReadResult is the outcome of ReadFormatAsync.
type ReadResult struct {
	Value any
	Err   error
}

// Offer is a peer's clipboard or drag payload. It implements
// input.DataObject; reads block for at most the configured read timeout.
// The drag offer of a drag this client started answers from the source
// data instead, since the source could only write once the dispatch
// goroutine is free again.
type Offer struct {
	id            wlproto.OfferID
	proxy         OfferProxy
	mimes         []string
	sourceActions wlproto.DndAction
	action        wlproto.DndAction
	readTimeout   time.Duration
	disposed      bool
	onDispose     func(id wlproto.OfferID)
	local         input.DataObject
}

func newOffer(id wlproto.OfferID, proxy OfferProxy, readTimeout time.Duration) *Offer {
	return &Offer{id: id, proxy: proxy, readTimeout: readTimeout}
}

func (o *Offer) ID() wlproto.OfferID {
	return o.id
}

// MimeTypes returns the advertised MIME types in advertisement order.
func (o *Offer) MimeTypes() []string {
	return slices.Clone(o.mimes)
}

func (o *Offer) SourceActions() wlproto.DndAction {
	return o.sourceActions
}

func (o *Offer) Action() wlproto.DndAction {
	return o.action
}

// OfferedEffects is what the drag source allows.
func (o *Offer) OfferedEffects() input.DragEffects {
	return actionsToEffects(o.sourceActions)
}

// MatchedEffects is what the compositor settled on.
func (o *Offer) MatchedEffects() input.DragEffects {
	return actionsToEffects(o.action)
}

func (o *Offer) Disposed() bool {
	return o.disposed
}

func (o *Offer) handle(ev OfferEvent) {
	switch e := ev.(type) {
	case OfferMime:
		if !slices.Contains(o.mimes, e.MimeType) {
			o.mimes = append(o.mimes, e.MimeType)
		}
	case OfferSourceActions:
		o.sourceActions = e.Actions
	case OfferAction:
		o.action = e.Action
	}
}

func (o *Offer) dispose() {
	if o.disposed {
		return
	}
	o.disposed = true
	if err := o.proxy.Destroy(); err != nil {
		log.Debugf("offer %d: destroy: %v", o.id, err)
	}
	if o.onDispose != nil {
		o.onDispose(o.id)
	}
}

// Receive asks the source for mimeType and returns the read end of the
// transfer pipe. The reader honours read deadlines.
func (o *Offer) Receive(mimeType string) (*os.File, error) {
	if o.disposed {
		return nil, ErrOfferGone
	}
	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_CLOEXEC); err != nil {
		return nil, fmt.Errorf("failed to create transfer pipe: %w", err)
	}
	if err := unix.SetNonblock(p[0], true); err != nil {
		unix.Close(p[0])
		unix.Close(p[1])
		return nil, fmt.Errorf("failed to set pipe non-blocking: %w", err)
	}
	err := o.proxy.Receive(mimeType, p[1])
	// The compositor holds its own copy once the request is sent.
	unix.Close(p[1])
	if err != nil {
		unix.Close(p[0])
		return nil, fmt.Errorf("failed to request %s: %w", mimeType, err)
	}
	return os.NewFile(uintptr(p[0]), "wl-offer-"+mimeType), nil
}

// Local reports whether the offer is our own drag coming back to us.
func (o *Offer) Local() bool {
	return o.local != nil
}

// Read receives the full payload for mimeType. Without a deadline on ctx
// the read is bounded by the offer's read timeout.
func (o *Offer) Read(ctx context.Context, mimeType string) ([]byte, error) {
	f, err := o.Receive(mimeType)
	if err != nil {
		return nil, err
	}
	return o.readAll(ctx, f, mimeType)
}

// readAll drains f and closes it. It only touches immutable offer state,
// so it may run off the dispatch goroutine.
func (o *Offer) readAll(ctx context.Context, f *os.File, mimeType string) ([]byte, error) {
	defer f.Close()

	deadline, ok := ctx.Deadline()
	if !ok && o.readTimeout > 0 {
		deadline = time.Now().Add(o.readTimeout)
	}
	if !deadline.IsZero() {
		_ = f.SetReadDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = f.SetReadDeadline(time.Now())
	})
	defer stop()

	data, err := io.ReadAll(f)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return data, ctxErr
		}
		return data, fmt.Errorf("failed to read %s: %w", mimeType, err)
	}
	return data, nil
}

// ReadText returns the offer as text, preferring UTF-8.
func (o *Offer) ReadText(ctx context.Context) (string, error) {
	mime := textMime(o.mimes)
	if mime == "" {
		return "", ErrNoFormat
	}
	data, err := o.Read(ctx, mime)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ReadFileNames returns the offer's URI list as paths.
func (o *Offer) ReadFileNames(ctx context.Context) ([]string, error) {
	if !slices.Contains(o.mimes, wlproto.MimeURIList) {
		return nil, ErrNoFormat
	}
	data, err := o.Read(ctx, wlproto.MimeURIList)
	if err != nil {
		return nil, err
	}
	return ParseURIList(data), nil
}

// ReadFormat reads a data object format, or raw bytes when format is one of
// the advertised MIME types.
func (o *Offer) ReadFormat(ctx context.Context, format string) (any, error) {
	switch format {
	case input.FormatText:
		return o.ReadText(ctx)
	case input.FormatFileNames:
		return o.ReadFileNames(ctx)
	}
	if !slices.Contains(o.mimes, format) {
		return nil, ErrNoFormat
	}
	return o.Read(ctx, format)
}

// ReadFormatAsync sends the receive request now and reads the payload on
// another goroutine, so it may be called from the dispatch goroutine. The
// offer may be disposed once it returns.
func (o *Offer) ReadFormatAsync(ctx context.Context, format string) <-chan ReadResult {
	res := make(chan ReadResult, 1)
	if o.local != nil {
		v, ok := o.local.Get(format)
		if !ok {
			res <- ReadResult{Err: ErrNoFormat}
		} else {
			res <- ReadResult{Value: v}
		}
		return res
	}

	mime, decode := o.formatMime(format)
	if mime == "" {
		res <- ReadResult{Err: ErrNoFormat}
		return res
	}
	f, err := o.Receive(mime)
	if err != nil {
		res <- ReadResult{Err: err}
		return res
	}
	go func() {
		data, err := o.readAll(ctx, f, mime)
		if err != nil {
			res <- ReadResult{Err: err}
			return
		}
		res <- ReadResult{Value: decode(data)}
	}()
	return res
}

// formatMime picks the MIME type serving format and the decoder for its
// payload. The MIME type is empty when the offer cannot produce format.
func (o *Offer) formatMime(format string) (string, func([]byte) any) {
	switch format {
	case input.FormatText:
		return textMime(o.mimes), func(b []byte) any { return string(b) }
	case input.FormatFileNames:
		if !slices.Contains(o.mimes, wlproto.MimeURIList) {
			return "", nil
		}
		return wlproto.MimeURIList, func(b []byte) any { return ParseURIList(b) }
	}
	if !slices.Contains(o.mimes, format) {
		return "", nil
	}
	return format, func(b []byte) any { return b }
}

// Formats lists the data object formats the offer can produce.
func (o *Offer) Formats() []string {
	if o.local != nil {
		return o.local.Formats()
	}
	return FormatsFor(o.mimes)
}

func (o *Offer) Get(format string) (any, bool) {
	if o.local != nil {
		return o.local.Get(format)
	}
	v, err := o.ReadFormat(context.Background(), format)
	if err != nil {
		log.Debugf("offer %d: read %s: %v", o.id, format, err)
		return nil, false
	}
	return v, true
}

func (o *Offer) Text() (string, bool) {
	if o.local != nil {
		return o.local.Text()
	}
	text, err := o.ReadText(context.Background())
	if err != nil {
		log.Debugf("offer %d: read text: %v", o.id, err)
		return "", false
	}
	return text, true
}

func (o *Offer) FileNames() ([]string, bool) {
	if o.local != nil {
		return o.local.FileNames()
	}
	names, err := o.ReadFileNames(context.Background())
	if err != nil {
		log.Debugf("offer %d: read file names: %v", o.id, err)
		return nil, false
	}
	return names, true
}

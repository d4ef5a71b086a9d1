package transfer

import (
	"bytes"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/bnema/wayplat/internal/input"
	"github.com/bnema/wayplat/internal/wlproto"
)

// textMimes are the MIME types read as text, most preferred first.
var textMimes = []string{wlproto.MimeTextUTF8, "UTF8_STRING", wlproto.MimeText, "TEXT", "STRING"}

// MimeTypesFor lists the MIME types a data object is offered as, in the
// order its formats were added.
func MimeTypesFor(data input.DataObject) []string {
	var mimes []string
	for _, format := range data.Formats() {
		switch format {
		case input.FormatText:
			mimes = append(mimes, wlproto.MimeText, wlproto.MimeTextUTF8)
		case input.FormatFileNames:
			mimes = append(mimes, wlproto.MimeURIList)
		}
	}
	return mimes
}

// FormatsFor maps offered MIME types back to data object formats.
func FormatsFor(mimes []string) []string {
	var formats []string
	if textMime(mimes) != "" {
		formats = append(formats, input.FormatText)
	}
	for _, m := range mimes {
		if m == wlproto.MimeURIList {
			formats = append(formats, input.FormatFileNames)
			break
		}
	}
	return formats
}

// textMime picks the best text MIME type among mimes.
func textMime(mimes []string) string {
	for _, want := range textMimes {
		for _, m := range mimes {
			if strings.EqualFold(m, want) {
				return m
			}
		}
	}
	return ""
}

// Payload serializes data for a requested MIME type. It returns nil when
// the data object has nothing for it.
func Payload(data input.DataObject, mimeType string) []byte {
	switch mimeType {
	case wlproto.MimeText, wlproto.MimeTextUTF8:
		if text, ok := data.Text(); ok {
			return []byte(text)
		}
	case wlproto.MimeURIList:
		if names, ok := data.FileNames(); ok {
			return EncodeURIList(names)
		}
	}
	return nil
}

// EncodeURIList writes one URI per line, each followed by a newline.
// Absolute paths become file URIs; anything with a scheme is kept as is.
func EncodeURIList(names []string) []byte {
	var buf bytes.Buffer
	for _, name := range names {
		buf.WriteString(toURI(name))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func toURI(name string) string {
	if filepath.IsAbs(name) {
		return (&url.URL{Scheme: "file", Path: name}).String()
	}
	return name
}

// ParseURIList reads a text/uri-list body. Comments and blank lines are
// skipped and file URIs are turned back into paths.
func ParseURIList(body []byte) []string {
	var names []string
	for _, raw := range bytes.Split(body, []byte("\n")) {
		line := strings.TrimSpace(string(raw))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, fromURI(line))
	}
	return names
}

func fromURI(line string) string {
	u, err := url.Parse(line)
	if err != nil || u.Scheme != "file" {
		return line
	}
	if u.Host != "" && u.Host != "localhost" {
		return line
	}
	return u.Path
}

// effectsToActions translates toolkit effects to the wire action mask.
// Link has no wire equivalent.
func effectsToActions(e input.DragEffects) wlproto.DndAction {
	var a wlproto.DndAction
	if e.Has(input.EffectCopy) {
		a |= wlproto.DndActionCopy
	}
	if e.Has(input.EffectMove) {
		a |= wlproto.DndActionMove
	}
	return a
}

func actionsToEffects(a wlproto.DndAction) input.DragEffects {
	var e input.DragEffects
	if a.Has(wlproto.DndActionCopy) {
		e |= input.EffectCopy
	}
	if a.Has(wlproto.DndActionMove) {
		e |= input.EffectMove
	}
	return e
}

// PreferredEffect picks the effect a drop target asks for. A single
// choice is returned unchanged; otherwise Control selects Copy when it is
// allowed and everything else prefers Move.
func PreferredEffect(effects input.DragEffects, mods input.Modifiers) input.DragEffects {
	switch effects {
	case input.EffectNone, input.EffectCopy, input.EffectMove:
		return effects
	}
	if effects.Has(input.EffectCopy) && mods.Has(input.ModControl) {
		return input.EffectCopy
	}
	return input.EffectMove
}

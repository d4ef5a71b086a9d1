package input

// Data formats understood by the platform.
const (
	FormatText      = "Text"
	FormatFileNames = "FileNames"
)

// DataObject is the toolkit's payload abstraction. The platform only reads it.
type DataObject interface {
	Formats() []string
	Get(format string) (any, bool)
	Text() (string, bool)
	FileNames() ([]string, bool)
}

// MemoryData is an in-memory DataObject keeping formats in insertion order.
type MemoryData struct {
	order  []string
	values map[string]any
}

// NewMemoryData creates an empty data object.
func NewMemoryData() *MemoryData {
	return &MemoryData{values: make(map[string]any)}
}

// TextData is a shortcut for a data object holding only text.
func TextData(text string) *MemoryData {
	d := NewMemoryData()
	d.Set(FormatText, text)
	return d
}

// FileData is a shortcut for a data object holding only file names.
func FileData(names ...string) *MemoryData {
	d := NewMemoryData()
	d.Set(FormatFileNames, names)
	return d
}

// Set stores a value for a format, replacing any previous one.
func (d *MemoryData) Set(format string, value any) {
	if _, ok := d.values[format]; !ok {
		d.order = append(d.order, format)
	}
	d.values[format] = value
}

func (d *MemoryData) Formats() []string {
	return append([]string(nil), d.order...)
}

func (d *MemoryData) Get(format string) (any, bool) {
	v, ok := d.values[format]
	return v, ok
}

func (d *MemoryData) Text() (string, bool) {
	v, ok := d.values[FormatText]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (d *MemoryData) FileNames() ([]string, bool) {
	v, ok := d.values[FormatFileNames]
	if !ok {
		return nil, false
	}
	names, ok := v.([]string)
	return names, ok
}

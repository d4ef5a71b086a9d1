package screens

// OutputEvent is a wl_output event.
type OutputEvent interface {
	isOutputEvent()
}

// Geometry is wl_output.geometry. Only the position is kept.
type Geometry struct {
	X, Y           int32
	PhysicalWidth  int32
	PhysicalHeight int32
	Make, Model    string
	Transform      int32
}

// Mode is wl_output.mode. Compositors may advertise several modes; only the
// one flagged current sizes the screen.
type Mode struct {
	Flags   uint32
	Width   int32
	Height  int32
	Refresh int32
}

// Scale is wl_output.scale.
type Scale struct {
	Factor int32
}

// Name is wl_output.name (version 4).
type Name struct {
	Name string
}

// Description is wl_output.description (version 4).
type Description struct {
	Description string
}

// Done is wl_output.done: everything sent since the previous Done is
// committed atomically.
type Done struct{}

func (Geometry) isOutputEvent()    {}
func (Mode) isOutputEvent()        {}
func (Scale) isOutputEvent()       {}
func (Name) isOutputEvent()        {}
func (Description) isOutputEvent() {}
func (Done) isOutputEvent()        {}

// Package diagram models the zoom and pan controls attached to rendered
// diagrams.
package diagram

import (
	"fmt"
	"math"

	"github.com/diplodoc-platform/testpack/internal/errs"
)

const (
	ZoomFactor = 1.25
	MinScale   = 0.25
	MaxScale   = 4.0
)

// Control actions as named by data-action attributes.
const (
	ActionZoomIn  = "zoomin"
	ActionZoomOut = "zoomout"
	ActionReset   = "reset"
)

// Viewer is the view state of one diagram.
type Viewer struct {
	ID string

	active bool
	scale  float64
	x, y   float64
}

// NewViewer returns an inactive viewer at identity transform.
func NewViewer(id string) *Viewer {
	return &Viewer{ID: id, scale: 1}
}

// Activate shows the zoom controls.
func (v *Viewer) Activate() { v.active = true }

// Deactivate hides the zoom controls. The transform is kept.
func (v *Viewer) Deactivate() { v.active = false }

// Active reports whether the controls are shown.
func (v *Viewer) Active() bool { return v.active }

// Scale returns the current zoom.
func (v *Viewer) Scale() float64 { return v.scale }

// Offset returns the current pan.
func (v *Viewer) Offset() (float64, float64) { return v.x, v.y }

func (v *Viewer) setScale(s float64) {
	v.scale = math.Min(MaxScale, math.Max(MinScale, s))
}

func (v *Viewer) ZoomIn()  { v.setScale(v.scale * ZoomFactor) }
func (v *Viewer) ZoomOut() { v.setScale(v.scale / ZoomFactor) }

// Reset restores scale 1 and no pan.
func (v *Viewer) Reset() {
	v.scale = 1
	v.x, v.y = 0, 0
}

// Pan moves the diagram by (dx, dy) pixels.
func (v *Viewer) Pan(dx, dy float64) {
	v.x += dx
	v.y += dy
}

// Action runs a named control. Controls only respond while active.
func (v *Viewer) Action(name string) error {
	if !v.active {
		return errs.New(errs.TargetNotFound, "zoom controls hidden for "+v.ID)
	}
	switch name {
	case ActionZoomIn:
		v.ZoomIn()
	case ActionZoomOut:
		v.ZoomOut()
	case ActionReset:
		v.Reset()
	default:
		return errs.New(errs.TargetNotFound, "unknown zoom action "+name)
	}
	return nil
}

// Transform renders the state as a CSS transform value.
func (v *Viewer) Transform() string {
	return fmt.Sprintf("translate(%spx, %spx) scale(%s)", num(v.x), num(v.y), num(v.scale))
}

func num(f float64) string {
	return fmt.Sprintf("%.4g", f)
}

package swipe

import "time"

// Terminal cells are mapped onto pixels with a fixed cell size so that drag
// gestures share the touch thresholds.
const (
	CellWidth  = 8.0
	CellHeight = 16.0

	// HorizontalWheelStep is the delta emitted per horizontal wheel click.
	HorizontalWheelStep = 40.0
)

// CellToPixels converts a terminal cell position to pixel coordinates.
func CellToPixels(col, row int) (float64, float64) {
	return float64(col) * CellWidth, float64(row) * CellHeight
}

// DragStart begins a mouse drag at a terminal cell.
func (n *Navigator) DragStart(col, row int, at time.Time) {
	x, y := CellToPixels(col, row)
	n.TouchStart(x, y, at)
}

// DragMove continues a mouse drag.
func (n *Navigator) DragMove(col, row int) {
	x, y := CellToPixels(col, row)
	n.TouchMove(x, y)
}

// DragEnd releases a mouse drag. It returns true if the index changed.
func (n *Navigator) DragEnd(col, row int, at time.Time) bool {
	x, y := CellToPixels(col, row)
	return n.TouchEnd(x, y, at)
}

// WheelLeft handles a horizontal wheel click to the left.
func (n *Navigator) WheelLeft() bool {
	return n.Wheel(-HorizontalWheelStep, 0)
}

// WheelRight handles a horizontal wheel click to the right.
func (n *Navigator) WheelRight() bool {
	return n.Wheel(HorizontalWheelStep, 0)
}

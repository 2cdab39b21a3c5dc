package swipe

import (
	"math"
	"time"
)

const (
	// SwipeDistance is the horizontal travel in pixels that completes a swipe.
	SwipeDistance = 40.0

	// SwipeVelocity is the horizontal speed in px/ms that completes a swipe.
	SwipeVelocity = 0.3

	// ScrollTolerance is how far vertical travel may exceed horizontal travel
	// before a touch counts as a page scroll.
	ScrollTolerance = 10.0

	// WheelThreshold is the horizontal wheel delta in pixels that navigates.
	WheelThreshold = 30.0
)

type touch struct {
	x0, y0    float64
	start     time.Time
	scrolling bool
}

// Gesturing reports whether a touch or drag is in progress.
func (n *Navigator) Gesturing() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.touch != nil
}

// TouchStart records the origin of a touch or drag.
func (n *Navigator) TouchStart(x, y float64, at time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.canMove() {
		n.touch = nil
		return
	}
	n.touch = &touch{x0: x, y0: y, start: at}
}

// TouchMove reclassifies the gesture as a page scroll once vertical travel
// dominates. A scroll stays a scroll until the touch ends.
func (n *Navigator) TouchMove(x, y float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.touch == nil {
		return
	}
	if isScroll(x-n.touch.x0, y-n.touch.y0) {
		n.touch.scrolling = true
	}
}

// TouchEnd finishes the gesture. Leftward travel advances, rightward travel
// goes back, provided the travel or the speed crosses its threshold.
// It returns true if the index changed.
func (n *Navigator) TouchEnd(x, y float64, at time.Time) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	t := n.touch
	n.touch = nil
	if t == nil {
		return false
	}

	dx, dy := x-t.x0, y-t.y0
	if t.scrolling || isScroll(dx, dy) {
		return false
	}

	elapsed := float64(at.Sub(t.start)) / float64(time.Millisecond)
	velocity := 0.0
	if elapsed > 0 {
		velocity = math.Abs(dx) / elapsed
	}
	if math.Abs(dx) <= SwipeDistance && velocity <= SwipeVelocity {
		return false
	}
	if dx < 0 {
		return n.step(1)
	}
	if dx > 0 {
		return n.step(-1)
	}
	return false
}

// TouchCancel abandons the gesture in progress.
func (n *Navigator) TouchCancel() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.touch = nil
}

// Wheel handles one wheel event. Vertically dominated deltas are page scrolls
// and ignored. A positive horizontal delta advances.
func (n *Navigator) Wheel(dx, dy float64) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if math.Abs(dy) >= math.Abs(dx) || math.Abs(dx) <= WheelThreshold {
		return false
	}
	if dx > 0 {
		return n.step(1)
	}
	return n.step(-1)
}

func isScroll(dx, dy float64) bool {
	return math.Abs(dy) > math.Abs(dx)+ScrollTolerance
}

// Package swipe tracks the position in the paper list and turns touch, drag
// and wheel input into navigation.
package swipe

import "sync"

// Direction is the direction of the last transition.
type Direction int

const (
	DirectionNone Direction = iota
	DirectionForward
	DirectionBackward
)

func (d Direction) String() string {
	switch d {
	case DirectionForward:
		return "forward"
	case DirectionBackward:
		return "backward"
	default:
		return "none"
	}
}

// Navigator is the index state machine over a list of N items. Every
// transition is a no-op while N is zero or the detail view is open.
type Navigator struct {
	mu         sync.Mutex
	count      int
	index      int
	direction  Direction
	wrapNotice bool
	detailOpen bool
	touch      *touch
}

// NewNavigator creates a navigator over count items.
func NewNavigator(count int) *Navigator {
	n := &Navigator{}
	n.SetItems(count)
	return n
}

// SetItems replaces the list length. The index is kept when still in range
// and reset to the first item otherwise.
func (n *Navigator) SetItems(count int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if count < 0 {
		count = 0
	}
	n.count = count
	if n.index >= count {
		n.index = 0
	}
	n.direction = DirectionNone
	n.wrapNotice = false
	n.touch = nil
}

// Len returns the number of items.
func (n *Navigator) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.count
}

// Index returns the current index. It is 0 for an empty list.
func (n *Navigator) Index() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.index
}

// Direction returns the direction of the last transition.
func (n *Navigator) Direction() Direction {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.direction
}

// Empty reports whether there is nothing to navigate.
func (n *Navigator) Empty() bool {
	return n.Len() == 0
}

// DetailOpen reports whether the detail view suppresses navigation.
func (n *Navigator) DetailOpen() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.detailOpen
}

// SetDetailOpen opens or closes the detail view. Opening it abandons any
// gesture in progress.
func (n *Navigator) SetDetailOpen(open bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.detailOpen = open
	if open {
		n.touch = nil
	}
}

// TakeWrapNotice reports whether the last transition wrapped around the end
// of the list and clears the notice.
func (n *Navigator) TakeWrapNotice() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	w := n.wrapNotice
	n.wrapNotice = false
	return w
}

// Next advances to (i+1) mod N.
func (n *Navigator) Next() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.step(1)
}

// Prev moves to (i-1+N) mod N.
func (n *Navigator) Prev() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.step(-1)
}

// JumpTo moves directly to index i.
func (n *Navigator) JumpTo(i int) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.canMove() || i < 0 || i >= n.count || i == n.index {
		return false
	}
	if i > n.index {
		n.direction = DirectionForward
	} else {
		n.direction = DirectionBackward
	}
	n.index = i
	n.wrapNotice = false
	return true
}

func (n *Navigator) canMove() bool {
	return n.count > 0 && !n.detailOpen
}

// step must be called with mu held.
func (n *Navigator) step(delta int) bool {
	if !n.canMove() {
		return false
	}
	prev := n.index
	n.index = ((n.index+delta)%n.count + n.count) % n.count
	if delta > 0 {
		n.direction = DirectionForward
		n.wrapNotice = n.count > 1 && prev == n.count-1
	} else {
		n.direction = DirectionBackward
		n.wrapNotice = n.count > 1 && prev == 0
	}
	return true
}

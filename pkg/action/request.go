// Package action turns action requests into device driver calls, falling back
// through alternative strategies until one works.
package action

import (
	"fmt"
	"strings"
	"time"
)

// Kind identifies an action type. Kinds feed loop detection.
type Kind string

// Action kinds.
const (
	KindTapCoords  Kind = "tap_coords"
	KindClick      Kind = "click"
	KindInput      Kind = "input"
	KindScrollDown Kind = "scroll_down"
	KindScrollUp   Kind = "scroll_up"
	KindSwipeLeft  Kind = "swipe_left"
	KindSwipeRight Kind = "swipe_right"
	KindBack       Kind = "back"
	KindInvalid    Kind = "invalid"
)

// Direction is the direction of a scroll or swipe.
type Direction string

// Directions. "down" reveals content below, i.e. the finger moves up.
const (
	Down  Direction = "down"
	Up    Direction = "up"
	Left  Direction = "left"
	Right Direction = "right"
)

// Valid reports whether d is one of the four directions.
func (d Direction) Valid() bool {
	switch d {
	case Down, Up, Left, Right:
		return true
	}
	return false
}

// Request is a normalized action ready for execution.
type Request interface {
	Kind() Kind
	// Describe is the action description recorded in transitions and
	// action history.
	Describe() string
}

// TapCoords taps absolute screen coordinates.
type TapCoords struct {
	X, Y     int
	Duration time.Duration // > 0 makes it a long press
	// Text, when set, is typed into whatever the tap focused.
	Text *string
}

// Kind implements Request.
func (TapCoords) Kind() Kind { return KindTapCoords }

// Describe implements Request.
func (r TapCoords) Describe() string {
	var b strings.Builder
	if r.Duration > 0 {
		fmt.Fprintf(&b, "long press (%d, %d) %s", r.X, r.Y, r.Duration)
	} else {
		fmt.Fprintf(&b, "tap (%d, %d)", r.X, r.Y)
	}
	if r.Text != nil {
		fmt.Fprintf(&b, " then type %q", *r.Text)
	}
	return b.String()
}

// Click clicks an element.
type Click struct {
	Target Element
	// BoundsAttr is the element's last-known "bounds" attribute from the
	// hierarchy, e.g. "[0,100][200,300]". Survives the element going stale.
	BoundsAttr string
	BBox       *BBox
}

// Kind implements Request.
func (Click) Kind() Kind { return KindClick }

// Describe implements Request.
func (r Click) Describe() string {
	return "click " + describeTarget(r.Target, r.BoundsAttr, r.BBox)
}

// Input types into an element. A nil Text clears the element instead.
type Input struct {
	Target     Element
	Text       *string
	BoundsAttr string
	BBox       *BBox
}

// Kind implements Request.
func (Input) Kind() Kind { return KindInput }

// Describe implements Request.
func (r Input) Describe() string {
	target := describeTarget(r.Target, r.BoundsAttr, r.BBox)
	if r.Text == nil {
		return "clear " + target
	}
	return fmt.Sprintf("input %q into %s", *r.Text, target)
}

// Swipe scrolls or swipes, scoped to Target or BBox when given.
type Swipe struct {
	Direction Direction
	Target    Element
	BBox      *BBox
}

// Kind implements Request.
func (r Swipe) Kind() Kind {
	switch r.Direction {
	case Down:
		return KindScrollDown
	case Up:
		return KindScrollUp
	case Left:
		return KindSwipeLeft
	case Right:
		return KindSwipeRight
	}
	return KindInvalid
}

// Describe implements Request.
func (r Swipe) Describe() string {
	verb := "scroll"
	if r.Direction == Left || r.Direction == Right {
		verb = "swipe"
	}
	s := fmt.Sprintf("%s %s", verb, r.Direction)
	if r.Target != nil || r.BBox != nil {
		s += " in " + describeTarget(r.Target, "", r.BBox)
	}
	return s
}

// Back presses the hardware back key.
type Back struct{}

// Kind implements Request.
func (Back) Kind() Kind { return KindBack }

// Describe implements Request.
func (Back) Describe() string { return "back" }

// Invalid stands in for a request that could not be built. Executing it
// fails validation and counts as a failure.
type Invalid struct {
	Err error
}

// Kind implements Request.
func (Invalid) Kind() Kind { return KindInvalid }

// Describe implements Request.
func (r Invalid) Describe() string {
	if r.Err == nil {
		return "invalid action"
	}
	return "invalid action: " + r.Err.Error()
}

func describeTarget(el Element, boundsAttr string, bbox *BBox) string {
	switch {
	case el != nil && el.Label() != "":
		return fmt.Sprintf("%q", el.Label())
	case boundsAttr != "":
		return boundsAttr
	case bbox != nil:
		return bbox.String()
	case el != nil:
		return "element " + el.ID()
	}
	return "screen"
}

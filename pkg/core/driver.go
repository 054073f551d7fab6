package core

import (
	"fmt"
	"regexp"
	"strconv"
)

// Bounds represents element position and size
type Bounds struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Center returns the center point of the bounds
func (b Bounds) Center() (int, int) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// Contains checks if a point is within the bounds
func (b Bounds) Contains(x, y int) bool {
	return x >= b.X && x < b.X+b.Width && y >= b.Y && y < b.Y+b.Height
}

// IsEmpty reports whether the bounds cover no area.
func (b Bounds) IsEmpty() bool {
	return b.Width <= 0 || b.Height <= 0
}

// Rect builds Bounds from two corners in any order.
func Rect(x1, y1, x2, y2 int) Bounds {
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	return Bounds{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// Android hierarchy bounds attribute: [x1,y1][x2,y2]
var boundsAttrRegex = regexp.MustCompile(`^\s*\[(-?\d+),(-?\d+)\]\[(-?\d+),(-?\d+)\]\s*$`)

// ParseBoundsAttr parses an Android "bounds" attribute string.
func ParseBoundsAttr(s string) (Bounds, error) {
	m := boundsAttrRegex.FindStringSubmatch(s)
	if m == nil {
		return Bounds{}, fmt.Errorf("invalid bounds attribute: %q", s)
	}
	var v [4]int
	for i := range v {
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return Bounds{}, fmt.Errorf("invalid bounds attribute: %q", s)
		}
		v[i] = n
	}
	return Rect(v[0], v[1], v[2], v[3]), nil
}

// WindowSize is the device screen size in pixels.
type WindowSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

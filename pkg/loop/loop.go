// Package loop detects when a crawl keeps repeating itself.
//
// Signals are advisory: the caller decides whether to change strategy.
package loop

// Default heuristic parameters.
const (
	DefaultRepeatThreshold = 3
	DefaultWindowSize      = 6
	DefaultVisitThreshold  = 3
)

// IsLooping reports whether the recent action kinds look like a loop.
//
// Only the last windowSize kinds are considered. The crawl is looping when the
// most recent kind occurs at least repeatThreshold times in that window, or
// when the last four kinds alternate as a, b, a, b with a != b.
// Non-positive parameters fall back to the defaults.
func IsLooping(kinds []string, repeatThreshold, windowSize int) bool {
	if repeatThreshold <= 0 {
		repeatThreshold = DefaultRepeatThreshold
	}
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	if len(kinds) == 0 {
		return false
	}
	if len(kinds) > windowSize {
		kinds = kinds[len(kinds)-windowSize:]
	}

	last := kinds[len(kinds)-1]
	n := 0
	for _, k := range kinds {
		if k == last {
			n++
		}
	}
	if n >= repeatThreshold {
		return true
	}

	if len(kinds) >= 4 {
		t := kinds[len(kinds)-4:]
		if t[0] == t[2] && t[1] == t[3] && t[0] != t[1] {
			return true
		}
	}
	return false
}

// Tracker keeps the most recent action kinds executed in a run.
type Tracker struct {
	window int
	kinds  []string
}

// NewTracker creates a Tracker holding at most windowSize kinds.
func NewTracker(windowSize int) *Tracker {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	return &Tracker{window: windowSize}
}

// Record appends kind, evicting the oldest entry when full.
func (t *Tracker) Record(kind string) {
	t.kinds = append(t.kinds, kind)
	if len(t.kinds) > t.window {
		t.kinds = append(t.kinds[:0:0], t.kinds[len(t.kinds)-t.window:]...)
	}
}

// Recent returns a copy of the recorded kinds, oldest first.
func (t *Tracker) Recent() []string {
	out := make([]string, len(t.kinds))
	copy(out, t.kinds)
	return out
}

// Looping applies IsLooping to the tracked window.
func (t *Tracker) Looping(repeatThreshold int) bool {
	return IsLooping(t.kinds, repeatThreshold, t.window)
}

// Reset forgets every recorded kind.
func (t *Tracker) Reset() {
	t.kinds = nil
}

// Signal combines the visit count of the current screen with the action
// pattern: a screen seen more than visitThreshold times, or a looping action
// pattern, means the crawl is stuck.
func Signal(visitCount, visitThreshold int, kinds []string, repeatThreshold, windowSize int) bool {
	if visitThreshold <= 0 {
		visitThreshold = DefaultVisitThreshold
	}
	return visitCount > visitThreshold || IsLooping(kinds, repeatThreshold, windowSize)
}

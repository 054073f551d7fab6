package action

import (
	"time"

	"github.com/devicelab-dev/screen-crawler/pkg/core"
)

// Element is an opaque handle to an on-screen element, owned by the driver.
type Element interface {
	// ID is the driver's handle id.
	ID() string
	// Label is a human-readable name (text, content description or
	// resource id) used in action descriptions. May be empty.
	Label() string
	// Bounds returns the element's current rectangle. Returns an error
	// wrapping core.ErrStaleTarget once the element is gone.
	Bounds() (core.Bounds, error)
}

// Driver is the device automation surface the executor calls through.
//
// Every method blocks until the device answers. A non-nil error means the
// call failed; errors wrapping core.ErrStaleTarget mark an invalidated element.
type Driver interface {
	Click(el Element) error
	TapCenter(el Element) error
	TapAt(x, y int, duration time.Duration) error
	SetText(el Element, text string, clickFirst, clearFirst bool) error
	Clear(el Element) error
	// InjectText types text into whatever currently has focus.
	InjectText(text string) error
	Swipe(x1, y1, x2, y2 int, duration time.Duration) error
	PressBack() error

	WindowSize() (core.WindowSize, error)
	// ActiveElement returns the focused element, or nil when nothing has focus.
	ActiveElement() (Element, error)
	IsKeyboardShown() (bool, error)
	HideKeyboard() error
	// WaitForOverlayDismiss waits up to timeout for a toast or similar
	// transient overlay to go away.
	WaitForOverlayDismiss(timeout time.Duration) error
}

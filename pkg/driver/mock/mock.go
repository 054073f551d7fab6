// Package mock provides a scriptable action.Driver for testing without a real device.
package mock

import (
	"fmt"
	"time"

	"github.com/devicelab-dev/screen-crawler/pkg/action"
	"github.com/devicelab-dev/screen-crawler/pkg/core"
)

// Driver method names, as recorded in Calls.
const (
	MethodClick                 = "Click"
	MethodTapCenter             = "TapCenter"
	MethodTapAt                 = "TapAt"
	MethodSetText               = "SetText"
	MethodClear                 = "Clear"
	MethodInjectText            = "InjectText"
	MethodSwipe                 = "Swipe"
	MethodPressBack             = "PressBack"
	MethodWindowSize            = "WindowSize"
	MethodActiveElement         = "ActiveElement"
	MethodIsKeyboardShown       = "IsKeyboardShown"
	MethodHideKeyboard          = "HideKeyboard"
	MethodWaitForOverlayDismiss = "WaitForOverlayDismiss"
)

// Call is one recorded driver call.
type Call struct {
	Method string
	Args   []interface{}
}

func (c Call) String() string {
	return fmt.Sprintf("%s%v", c.Method, c.Args)
}

// Element is a mock element handle.
type Element struct {
	Handle string
	Name   string
	Rect   core.Bounds
	// Stale makes Bounds fail with core.ErrStaleTarget.
	Stale bool
}

// NewElement creates an element with the given id and bounds.
func NewElement(id string, rect core.Bounds) *Element {
	return &Element{Handle: id, Rect: rect}
}

// ID implements action.Element.
func (e *Element) ID() string { return e.Handle }

// Label implements action.Element.
func (e *Element) Label() string { return e.Name }

// Bounds implements action.Element.
func (e *Element) Bounds() (core.Bounds, error) {
	if e.Stale {
		return core.Bounds{}, core.ErrStaleTarget.WithMessage("element " + e.Handle + " is stale")
	}
	return e.Rect, nil
}

// Config configures mock driver behavior.
type Config struct {
	// Window is reported by WindowSize. Defaults to 1080x1920.
	Window core.WindowSize
	// KeyboardShown is the initial soft keyboard state.
	KeyboardShown bool
	// NoFocusOnClick stops Click from making its element active.
	NoFocusOnClick bool
}

// Driver is a mock implementation of action.Driver that records every call.
//
// Calls succeed unless failed with Fail or FailTimes.
type Driver struct {
	Config Config

	active   action.Element
	keyboard bool
	fail     map[string]error
	failN    map[string]int
	calls    []Call
}

// New creates a new mock driver.
func New(cfg Config) *Driver {
	if cfg.Window.Width == 0 && cfg.Window.Height == 0 {
		cfg.Window = core.WindowSize{Width: 1080, Height: 1920}
	}
	return &Driver{
		Config:   cfg,
		keyboard: cfg.KeyboardShown,
		fail:     make(map[string]error),
		failN:    make(map[string]int),
	}
}

// Fail makes every call to method return err.
func (d *Driver) Fail(method string, err error) *Driver {
	d.fail[method] = err
	return d
}

// FailTimes makes the next n calls to method return err.
func (d *Driver) FailTimes(method string, n int, err error) *Driver {
	d.fail[method] = err
	d.failN[method] = n
	return d
}

// SetActive sets the element returned by ActiveElement.
func (d *Driver) SetActive(el action.Element) {
	d.active = el
}

// Calls returns every recorded call in order.
func (d *Driver) Calls() []Call {
	out := make([]Call, len(d.calls))
	copy(out, d.calls)
	return out
}

// Methods returns the recorded method names in order.
func (d *Driver) Methods() []string {
	out := make([]string, len(d.calls))
	for i, c := range d.calls {
		out[i] = c.Method
	}
	return out
}

// Count returns how many times method was called.
func (d *Driver) Count(method string) int {
	n := 0
	for _, c := range d.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Last returns the most recent call to method.
func (d *Driver) Last(method string) (Call, bool) {
	for i := len(d.calls) - 1; i >= 0; i-- {
		if d.calls[i].Method == method {
			return d.calls[i], true
		}
	}
	return Call{}, false
}

// Reset forgets recorded calls. Scripted failures are kept.
func (d *Driver) Reset() {
	d.calls = nil
}

func (d *Driver) record(method string, args ...interface{}) error {
	d.calls = append(d.calls, Call{Method: method, Args: args})
	err, ok := d.fail[method]
	if !ok {
		return nil
	}
	if n, limited := d.failN[method]; limited {
		if n <= 1 {
			delete(d.fail, method)
			delete(d.failN, method)
		} else {
			d.failN[method] = n - 1
		}
	}
	return err
}

func elementID(el action.Element) string {
	if el == nil {
		return ""
	}
	return el.ID()
}

// Click implements action.Driver.
func (d *Driver) Click(el action.Element) error {
	if err := d.record(MethodClick, elementID(el)); err != nil {
		return err
	}
	if !d.Config.NoFocusOnClick {
		d.active = el
	}
	return nil
}

// TapCenter implements action.Driver.
func (d *Driver) TapCenter(el action.Element) error {
	if err := d.record(MethodTapCenter, elementID(el)); err != nil {
		return err
	}
	if _, err := el.Bounds(); err != nil {
		return err
	}
	d.active = el
	return nil
}

// TapAt implements action.Driver.
func (d *Driver) TapAt(x, y int, duration time.Duration) error {
	return d.record(MethodTapAt, x, y, duration)
}

// SetText implements action.Driver.
func (d *Driver) SetText(el action.Element, text string, clickFirst, clearFirst bool) error {
	return d.record(MethodSetText, elementID(el), text, clickFirst, clearFirst)
}

// Clear implements action.Driver.
func (d *Driver) Clear(el action.Element) error {
	return d.record(MethodClear, elementID(el))
}

// InjectText implements action.Driver.
func (d *Driver) InjectText(text string) error {
	return d.record(MethodInjectText, text)
}

// Swipe implements action.Driver.
func (d *Driver) Swipe(x1, y1, x2, y2 int, duration time.Duration) error {
	return d.record(MethodSwipe, x1, y1, x2, y2, duration)
}

// PressBack implements action.Driver.
func (d *Driver) PressBack() error {
	return d.record(MethodPressBack)
}

// WindowSize implements action.Driver.
func (d *Driver) WindowSize() (core.WindowSize, error) {
	if err := d.record(MethodWindowSize); err != nil {
		return core.WindowSize{}, err
	}
	return d.Config.Window, nil
}

// ActiveElement implements action.Driver.
func (d *Driver) ActiveElement() (action.Element, error) {
	if err := d.record(MethodActiveElement); err != nil {
		return nil, err
	}
	return d.active, nil
}

// IsKeyboardShown implements action.Driver.
func (d *Driver) IsKeyboardShown() (bool, error) {
	if err := d.record(MethodIsKeyboardShown); err != nil {
		return false, err
	}
	return d.keyboard, nil
}

// HideKeyboard implements action.Driver.
func (d *Driver) HideKeyboard() error {
	if err := d.record(MethodHideKeyboard); err != nil {
		return err
	}
	d.keyboard = false
	return nil
}

// WaitForOverlayDismiss implements action.Driver.
func (d *Driver) WaitForOverlayDismiss(timeout time.Duration) error {
	return d.record(MethodWaitForOverlayDismiss, timeout)
}

var _ action.Driver = (*Driver)(nil)

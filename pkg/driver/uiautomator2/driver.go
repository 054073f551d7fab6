// Package uiautomator2 adapts a UIAutomator2 server and an adb shell to the
// action.Driver interface.
package uiautomator2

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
	"go.uber.org/zap"

	"github.com/devicelab-dev/screen-crawler/pkg/action"
	"github.com/devicelab-dev/screen-crawler/pkg/core"
	"github.com/devicelab-dev/screen-crawler/pkg/uiautomator2"
)

// ShellExecutor runs shell commands on a device.
// Implemented by device.AndroidDevice.
type ShellExecutor interface {
	Shell(cmd string) (string, error)
}

// UIA2Client defines the UIAutomator2 client operations the driver needs.
// Implemented by uiautomator2.Client.
type UIA2Client interface {
	FindElement(strategy, selector string) (*uiautomator2.Element, error)
	ActiveElement() (*uiautomator2.Element, error)

	Click(x, y int) error
	LongClick(x, y, durationMs int) error
	Back() error

	IsKeyboardShown() (bool, error)
	HideKeyboard() error
	WindowSize() (uiautomator2.WindowRect, error)
	GetDeviceInfo() (*uiautomator2.DeviceInfo, error)
	Screenshot() ([]byte, error)
	Source() (string, error)
}

// Driver implements action.Driver using UIAutomator2.
type Driver struct {
	client UIA2Client
	device ShellExecutor // for adb input commands; may be nil
	log    *zap.Logger

	// overlayPoll is the interval between overlay checks.
	overlayPoll time.Duration
}

// New creates a new UIAutomator2 driver.
func New(client UIA2Client, device ShellExecutor, log *zap.Logger) *Driver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Driver{
		client:      client,
		device:      device,
		log:         log.Named("driver"),
		overlayPoll: 200 * time.Millisecond,
	}
}

// Element is an action.Element backed by a UIAutomator2 element.
type Element struct {
	el    *uiautomator2.Element
	label string
}

// ID implements action.Element.
func (e *Element) ID() string { return e.el.ID() }

// Label implements action.Element.
func (e *Element) Label() string { return e.label }

// Bounds implements action.Element.
func (e *Element) Bounds() (core.Bounds, error) {
	r, err := e.el.Rect()
	if err != nil {
		return core.Bounds{}, wrap(err)
	}
	return core.Bounds{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}, nil
}

// wrap maps client errors onto the executor's error taxonomy.
func wrap(err error) error {
	if err == nil {
		return nil
	}
	if uiautomator2.IsStaleElement(err) {
		return core.ErrStaleTarget.WithCause(err)
	}
	return core.ErrDriverCall.WithCause(err)
}

func unwrap(el action.Element) (*Element, error) {
	e, ok := el.(*Element)
	if !ok || e == nil || e.el == nil {
		return nil, core.ErrDriverCall.WithMessage(fmt.Sprintf("element %T not created by this driver", el))
	}
	return e, nil
}

// Find resolves an element reference. References take the form
// "id=<resource-id>", "desc=<content-desc>", "text=<text>" or
// "xpath=<expr>"; a bare "//..." is an XPath and anything else a resource id.
// Find has the signature of action.Resolver.
func (d *Driver) Find(ref string) (action.Element, error) {
	strategy, selector := parseRef(ref)
	el, err := d.client.FindElement(strategy, selector)
	if err != nil {
		return nil, wrap(err)
	}
	return &Element{el: el, label: labelFor(el, ref)}, nil
}

func parseRef(ref string) (string, string) {
	if key, value, ok := strings.Cut(ref, "="); ok {
		switch key {
		case "id":
			return uiautomator2.StrategyID, value
		case "desc":
			return uiautomator2.StrategyAccessibilityID, value
		case "xpath":
			return uiautomator2.StrategyXPath, value
		case "text":
			return uiautomator2.StrategyUIAutomator, fmt.Sprintf("new UiSelector().text(%s)", strconv.Quote(value))
		}
	}
	if strings.HasPrefix(ref, "/") || strings.HasPrefix(ref, "(") {
		return uiautomator2.StrategyXPath, ref
	}
	return uiautomator2.StrategyID, ref
}

// labelFor picks a readable name: text, then content description, then the
// reference itself.
func labelFor(el *uiautomator2.Element, ref string) string {
	for _, attr := range []string{"text", "content-desc"} {
		if v, err := el.Attribute(attr); err == nil && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ref
}

// Click implements action.Driver.
func (d *Driver) Click(el action.Element) error {
	e, err := unwrap(el)
	if err != nil {
		return err
	}
	return wrap(e.el.Click())
}

// TapCenter implements action.Driver.
func (d *Driver) TapCenter(el action.Element) error {
	b, err := el.Bounds()
	if err != nil {
		return err
	}
	x, y := b.Center()
	return wrap(d.client.Click(x, y))
}

// TapAt implements action.Driver. A positive duration long-presses.
func (d *Driver) TapAt(x, y int, duration time.Duration) error {
	if duration > 0 {
		return wrap(d.client.LongClick(x, y, int(duration.Milliseconds())))
	}
	return wrap(d.client.Click(x, y))
}

// SetText implements action.Driver. A failing clear does not stop typing.
func (d *Driver) SetText(el action.Element, text string, clickFirst, clearFirst bool) error {
	e, err := unwrap(el)
	if err != nil {
		return err
	}
	if clickFirst {
		if err := e.el.Click(); err != nil {
			return wrap(err)
		}
	}
	if clearFirst {
		if err := e.el.Clear(); err != nil {
			d.log.Debug("clear before input failed", zap.String("element", e.ID()), zap.Error(err))
		}
	}
	return wrap(e.el.SendKeys(text))
}

// Clear implements action.Driver.
func (d *Driver) Clear(el action.Element) error {
	e, err := unwrap(el)
	if err != nil {
		return err
	}
	return wrap(e.el.Clear())
}

// InjectText implements action.Driver via "adb shell input text".
func (d *Driver) InjectText(text string) error {
	if d.device == nil {
		return core.ErrDriverCall.WithMessage("text injection requires device access")
	}
	// input text reads %s as a space.
	arg := strings.ReplaceAll(text, " ", "%s")
	if _, err := d.device.Shell("input text " + shellquote.Join(arg)); err != nil {
		return core.ErrDriverCall.WithCause(err)
	}
	return nil
}

// Swipe implements action.Driver via "adb shell input swipe".
func (d *Driver) Swipe(x1, y1, x2, y2 int, duration time.Duration) error {
	if d.device == nil {
		return core.ErrDriverCall.WithMessage("swipe with coordinates requires device access")
	}
	ms := duration.Milliseconds()
	if ms <= 0 {
		ms = 300
	}
	cmd := fmt.Sprintf("input swipe %d %d %d %d %d", x1, y1, x2, y2, ms)
	if _, err := d.device.Shell(cmd); err != nil {
		return core.ErrDriverCall.WithCause(err)
	}
	return nil
}

// PressBack implements action.Driver.
func (d *Driver) PressBack() error {
	return wrap(d.client.Back())
}

// WindowSize implements action.Driver. Falls back to the device info
// display size and then to "wm size".
func (d *Driver) WindowSize() (core.WindowSize, error) {
	if size, err := d.client.WindowSize(); err == nil && size.Width > 0 && size.Height > 0 {
		return core.WindowSize{Width: size.Width, Height: size.Height}, nil
	}
	if info, err := d.client.GetDeviceInfo(); err == nil {
		if w, h, ok := parseSize(info.RealDisplaySize); ok {
			return core.WindowSize{Width: w, Height: h}, nil
		}
	}
	if d.device == nil {
		return core.WindowSize{}, core.ErrDriverCall.WithMessage("no device connection available to get screen size")
	}
	out, err := d.device.Shell("wm size")
	if err != nil {
		return core.WindowSize{}, core.ErrDriverCall.WithCause(err)
	}
	// "Physical size: 1080x2400", possibly followed by "Override size: ..."
	lines := strings.Split(strings.TrimSpace(out), "\n")
	last := lines[len(lines)-1]
	if idx := strings.LastIndex(last, ":"); idx != -1 {
		last = last[idx+1:]
	}
	w, h, ok := parseSize(last)
	if !ok {
		return core.WindowSize{}, core.ErrDriverCall.WithMessage(fmt.Sprintf("unexpected wm size output: %s", out))
	}
	return core.WindowSize{Width: w, Height: h}, nil
}

// parseSize parses "1080x2400".
func parseSize(s string) (int, int, bool) {
	parts := strings.Split(strings.TrimSpace(s), "x")
	if len(parts) != 2 {
		return 0, 0, false
	}
	w, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	h, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil || w <= 0 || h <= 0 {
		return 0, 0, false
	}
	return w, h, true
}

// ActiveElement implements action.Driver.
func (d *Driver) ActiveElement() (action.Element, error) {
	el, err := d.client.ActiveElement()
	if err != nil {
		return nil, wrap(err)
	}
	if el == nil {
		return nil, nil
	}
	return &Element{el: el}, nil
}

// IsKeyboardShown implements action.Driver.
func (d *Driver) IsKeyboardShown() (bool, error) {
	shown, err := d.client.IsKeyboardShown()
	return shown, wrap(err)
}

// HideKeyboard implements action.Driver.
func (d *Driver) HideKeyboard() error {
	return wrap(d.client.HideKeyboard())
}

// toastClass marks a toast in the page source.
const toastClass = "android.widget.Toast"

// WaitForOverlayDismiss implements action.Driver by polling the page source
// until no toast is present.
func (d *Driver) WaitForOverlayDismiss(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		src, err := d.client.Source()
		if err != nil {
			return wrap(err)
		}
		if !strings.Contains(src, toastClass) {
			return nil
		}
		if time.Now().After(deadline) {
			return core.ErrDriverCall.WithMessage(fmt.Sprintf("toast still shown after %s", timeout))
		}
		d.log.Debug("waiting for toast to dismiss")
		time.Sleep(d.overlayPoll)
	}
}

// Capture returns the current screenshot and UI hierarchy.
func (d *Driver) Capture() ([]byte, string, error) {
	png, err := d.client.Screenshot()
	if err != nil {
		return nil, "", fmt.Errorf("screenshot: %w", err)
	}
	src, err := d.client.Source()
	if err != nil {
		return nil, "", fmt.Errorf("page source: %w", err)
	}
	return png, src, nil
}

var _ action.Driver = (*Driver)(nil)

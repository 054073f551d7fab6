package action

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/devicelab-dev/screen-crawler/pkg/core"
)

func (e *Executor) tapTiers(r TapCoords) []tier {
	return []tier{{TierTap, func() error {
		if err := e.drv.TapAt(r.X, r.Y, r.Duration); err != nil {
			return err
		}
		if r.Text == nil {
			return nil
		}
		e.sleep(e.opts.FocusDelay)
		return e.typeIntoFocused(*r.Text)
	}}}
}

// typeIntoFocused types into the active element, falling back to global
// injection when there is none or typing fails.
func (e *Executor) typeIntoFocused(text string) error {
	active, err := e.drv.ActiveElement()
	if err == nil && active != nil {
		if err = e.drv.SetText(active, text, false, true); err == nil {
			return nil
		}
	}
	if err == nil {
		err = core.ErrDriverCall.WithMessage("no focused element after tap")
	}
	if !e.opts.GlobalInputFallback {
		return err
	}
	e.log.Debug("typing into focused element failed, injecting globally", zap.Error(err))
	return e.drv.InjectText(text)
}

// clickTiers: element click, center tap, tap from the bounds attribute, tap
// from the bbox hint. A stale target skips straight to the coordinate tiers.
func (e *Executor) clickTiers(r Click) []tier {
	var tiers []tier
	if r.Target != nil {
		stale := false
		tiers = append(tiers,
			tier{TierElementClick, func() error {
				err := e.drv.Click(r.Target)
				stale = errors.Is(err, core.ErrStaleTarget)
				return err
			}},
			tier{TierCenterTap, func() error {
				if stale {
					return core.ErrStaleTarget.WithMessage("skipped, target is stale")
				}
				return e.drv.TapCenter(r.Target)
			}},
		)
	}
	if r.BoundsAttr != "" {
		tiers = append(tiers, tier{TierBoundsTap, func() error {
			b, err := core.ParseBoundsAttr(r.BoundsAttr)
			if err != nil {
				return err
			}
			x, y := b.Center()
			return e.drv.TapAt(x, y, 0)
		}})
	}
	if r.BBox != nil {
		tiers = append(tiers, tier{TierHintTap, func() error {
			b, err := e.hintRect(r.BBox)
			if err != nil {
				return err
			}
			x, y := b.Center()
			return e.drv.TapAt(x, y, 0)
		}})
	}
	return tiers
}

// inputTiers: focus and set text, then re-click and inject globally. A nil
// text is a clear with a single tier of its own.
func (e *Executor) inputTiers(r Input) []tier {
	if r.Text == nil {
		return []tier{{TierClear, func() error { return e.drv.Clear(r.Target) }}}
	}
	text := *r.Text

	tiers := []tier{{TierSetText, func() error {
		e.focus(r.Target)
		return e.drv.SetText(r.Target, text, false, true)
	}}}
	if e.opts.GlobalInputFallback {
		tiers = append(tiers, tier{TierGlobalInput, func() error {
			if err := e.drv.Click(r.Target); err != nil {
				e.log.Debug("refocus click failed", zap.Error(err))
				e.refocusTap(r)
			}
			e.sleep(e.opts.FocusDelay)
			return e.drv.InjectText(text)
		}})
	}
	return tiers
}

// refocusTap taps the input's last-known bounds, or its bbox hint when the
// bounds are missing or unusable.
func (e *Executor) refocusTap(r Input) {
	var rect core.Bounds
	if r.BoundsAttr != "" {
		if b, err := core.ParseBoundsAttr(r.BoundsAttr); err == nil && !b.IsEmpty() {
			rect = b
		}
	}
	if rect.IsEmpty() && r.BBox != nil {
		if b, err := e.hintRect(r.BBox); err == nil {
			rect = b
		}
	}
	if rect.IsEmpty() {
		return
	}
	x, y := rect.Center()
	if err := e.drv.TapAt(x, y, 0); err != nil {
		e.log.Debug("refocus tap failed", zap.Error(err))
	}
}

// focus clicks el and checks it became the active element, retrying once
// with a center tap.
func (e *Executor) focus(el Element) {
	if err := e.drv.Click(el); err != nil {
		e.log.Debug("focus click failed", zap.Error(err))
	}
	e.sleep(e.opts.FocusDelay)
	if e.focused(el) {
		return
	}
	e.log.Debug("focus not confirmed, tapping center", zap.String("element", el.ID()))
	if err := e.drv.TapCenter(el); err != nil {
		e.log.Debug("focus tap failed", zap.Error(err))
		return
	}
	e.sleep(e.opts.FocusDelay)
}

func (e *Executor) focused(el Element) bool {
	active, err := e.drv.ActiveElement()
	return err == nil && active != nil && active.ID() == el.ID()
}

// swipeTiers: inside the target's box, inside the bbox hint, full screen.
func (e *Executor) swipeTiers(r Swipe) []tier {
	var tiers []tier
	if r.Target != nil {
		tiers = append(tiers, tier{TierElementSwipe, func() error {
			b, err := r.Target.Bounds()
			if err != nil {
				return err
			}
			return e.swipeIn(b, r.Direction)
		}})
	}
	if r.BBox != nil {
		tiers = append(tiers, tier{TierHintSwipe, func() error {
			b, err := e.hintRect(r.BBox)
			if err != nil {
				return err
			}
			return e.swipeIn(b, r.Direction)
		}})
	}
	tiers = append(tiers, tier{TierScreenSwipe, func() error {
		win, err := e.drv.WindowSize()
		if err != nil {
			return err
		}
		if win.Width <= 0 || win.Height <= 0 {
			return core.ErrDriverCall.WithMessage(fmt.Sprintf("invalid window size %dx%d", win.Width, win.Height))
		}
		x1, y1, x2, y2 := screenSwipe(win, r.Direction, e.opts.ScrollAmplitude)
		return e.drv.Swipe(x1, y1, x2, y2, e.opts.SwipeDuration)
	}})
	return tiers
}

func (e *Executor) swipeIn(b core.Bounds, dir Direction) error {
	if b.IsEmpty() {
		return core.ErrDriverCall.WithMessage(fmt.Sprintf("empty swipe region %+v", b))
	}
	x1, y1, x2, y2 := insetSwipe(b, dir)
	return e.drv.Swipe(x1, y1, x2, y2, e.opts.SwipeDuration)
}

// insetSwipe maps a direction to start and end points inside b, keeping 20%
// away from the edges on both axes.
func insetSwipe(b core.Bounds, dir Direction) (x1, y1, x2, y2 int) {
	insetX := int(float64(b.Width) * 0.2)
	insetY := int(float64(b.Height) * 0.2)
	left, right := b.X+insetX, b.X+b.Width-insetX
	top, bottom := b.Y+insetY, b.Y+b.Height-insetY
	cx, cy := b.Center()

	switch dir {
	case Down:
		return cx, bottom, cx, top
	case Up:
		return cx, top, cx, bottom
	case Left:
		return right, cy, left, cy
	default:
		return left, cy, right, cy
	}
}

// screenSwipe maps a direction to a full-screen gesture covering amplitude
// of the relevant axis.
func screenSwipe(win core.WindowSize, dir Direction, amplitude float64) (x1, y1, x2, y2 int) {
	w, h := float64(win.Width), float64(win.Height)
	cx, cy := win.Width/2, win.Height/2
	at := func(size, frac float64) int { return int(math.Round(size * frac)) }

	switch dir {
	case Down:
		return cx, at(h, 0.8), cx, at(h, 0.8-amplitude)
	case Up:
		return cx, at(h, 0.2), cx, at(h, 0.2+amplitude)
	case Left:
		return at(w, 0.8), cy, at(w, 0.8-amplitude), cy
	default:
		return at(w, 0.2), cy, at(w, 0.2+amplitude), cy
	}
}

package action

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/devicelab-dev/screen-crawler/pkg/core"
)

// maxCoordinate bounds tap coordinates when the window size is unavailable.
const maxCoordinate = 5000

// Options tunes executor behavior.
type Options struct {
	// ToastWait is the longest wait for a transient overlay before acting.
	// Zero skips the wait.
	ToastWait time.Duration
	// AutoHideKeyboard hides the soft keyboard before non-input actions.
	AutoHideKeyboard bool
	// GlobalInputFallback enables device-level text injection when typing
	// into the element fails.
	GlobalInputFallback bool
	// SwipeDuration is the duration of coordinate swipes.
	SwipeDuration time.Duration
	// ScrollAmplitude is the fraction of the screen a full-screen swipe covers.
	ScrollAmplitude float64
	// FocusDelay is the pause after a focusing tap.
	FocusDelay time.Duration
	// KeyboardHideDelay is the pause after hiding the keyboard.
	KeyboardHideDelay time.Duration
}

// DefaultOptions returns the standard executor settings.
func DefaultOptions() Options {
	return Options{
		ToastWait:           1200 * time.Millisecond,
		AutoHideKeyboard:    true,
		GlobalInputFallback: true,
		SwipeDuration:       400 * time.Millisecond,
		ScrollAmplitude:     0.5,
		FocusDelay:          500 * time.Millisecond,
		KeyboardHideDelay:   200 * time.Millisecond,
	}
}

// Tier names the strategy that carried out an action.
type Tier string

// Tiers, in the order they are tried per kind.
const (
	TierTap          Tier = "tap"
	TierElementClick Tier = "element_click"
	TierCenterTap    Tier = "center_tap"
	TierBoundsTap    Tier = "bounds_tap"
	TierHintTap      Tier = "bbox_tap"
	TierSetText      Tier = "set_text"
	TierGlobalInput  Tier = "global_input"
	TierClear        Tier = "clear"
	TierElementSwipe Tier = "element_swipe"
	TierHintSwipe    Tier = "bbox_swipe"
	TierScreenSwipe  Tier = "screen_swipe"
	TierBack         Tier = "back"
)

// Outcome is the detailed result of one Execute call.
type Outcome struct {
	Success bool
	Phase   core.Phase
	// Tier is the strategy that succeeded; empty on failure.
	Tier Tier
	// Attempts counts tiers tried, including the successful one.
	Attempts int
	Err      error
}

// Executor runs action requests against a Driver with tiered fallbacks and
// tracks consecutive failures.
//
// It is not safe for concurrent use.
type Executor struct {
	drv  Driver
	opts Options
	log  *zap.Logger

	sleep func(time.Duration)

	failures  int
	lastError string
}

// NewExecutor creates an Executor. Zero SwipeDuration and ScrollAmplitude
// take their defaults.
func NewExecutor(drv Driver, opts Options, log *zap.Logger) *Executor {
	def := DefaultOptions()
	if opts.SwipeDuration <= 0 {
		opts.SwipeDuration = def.SwipeDuration
	}
	if opts.ScrollAmplitude <= 0 || opts.ScrollAmplitude >= 1 {
		opts.ScrollAmplitude = def.ScrollAmplitude
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{
		drv:   drv,
		opts:  opts,
		log:   log.Named("executor"),
		sleep: time.Sleep,
	}
}

// Execute runs req and reports whether any tier succeeded.
func (e *Executor) Execute(req Request) bool {
	return e.ExecuteDetailed(req).Success
}

// ExecuteDetailed runs req and reports which tier, if any, succeeded.
// Failure accounting is the same as Execute.
func (e *Executor) ExecuteDetailed(req Request) Outcome {
	out := e.run(req)
	e.account(req, out)
	return out
}

// ConsecutiveFailures returns the number of failed executions since the last
// success. The executor never refuses to run because of it.
func (e *Executor) ConsecutiveFailures() int {
	return e.failures
}

// LastError describes the most recent failure, or "" after a success.
func (e *Executor) LastError() string {
	return e.lastError
}

func (e *Executor) run(req Request) Outcome {
	if err := e.validate(req); err != nil {
		return Outcome{Phase: core.PhaseFailed, Err: err}
	}

	e.prepare(req)

	switch r := req.(type) {
	case TapCoords:
		return e.chain(r.Kind(), e.tapTiers(r))
	case Click:
		return e.chain(r.Kind(), e.clickTiers(r))
	case Input:
		return e.chain(r.Kind(), e.inputTiers(r))
	case Swipe:
		return e.chain(r.Kind(), e.swipeTiers(r))
	case Back:
		return e.chain(r.Kind(), []tier{{TierBack, e.drv.PressBack}})
	}
	return Outcome{Phase: core.PhaseFailed, Err: invalid("unsupported request %T", req)}
}

// validate checks req before any driver call that acts on the device.
func (e *Executor) validate(req Request) error {
	switch r := req.(type) {
	case nil:
		return invalid("nil request")
	case Invalid:
		if r.Err == nil {
			return invalid("invalid action")
		}
		if errors.Is(r.Err, core.ErrInvalidAction) {
			return r.Err
		}
		return core.ErrInvalidAction.WithCause(r.Err)
	case TapCoords:
		return e.validateTap(r)
	case Click:
		if r.Target == nil && r.BoundsAttr == "" && r.BBox == nil {
			return invalid("click needs an element or a bounding box")
		}
	case Input:
		if r.Target == nil {
			return invalid("input needs an element")
		}
	case Swipe:
		if !r.Direction.Valid() {
			return invalid("unknown swipe direction %q", r.Direction)
		}
	case Back:
	default:
		return invalid("unsupported request %T", req)
	}
	return nil
}

func (e *Executor) validateTap(r TapCoords) error {
	if r.X < 0 || r.Y < 0 {
		return core.ErrOutOfBounds.WithMessage(fmt.Sprintf("negative tap coordinates (%d, %d)", r.X, r.Y))
	}
	if r.Duration < 0 {
		return invalid("negative tap duration %s", r.Duration)
	}
	w, h := maxCoordinate, maxCoordinate
	if win, err := e.drv.WindowSize(); err != nil {
		e.log.Debug("window size unavailable, using fixed bound", zap.Error(err))
	} else {
		w, h = win.Width, win.Height
	}
	if r.X > w || r.Y > h {
		return core.ErrOutOfBounds.WithMessage(fmt.Sprintf("tap (%d, %d) outside %dx%d", r.X, r.Y, w, h))
	}
	return nil
}

// prepare clears transient obstructions. Failures are ignored.
func (e *Executor) prepare(req Request) {
	if e.opts.ToastWait > 0 {
		if err := e.drv.WaitForOverlayDismiss(e.opts.ToastWait); err != nil {
			e.log.Debug("overlay wait failed", zap.Error(err))
		}
	}
	if !e.opts.AutoHideKeyboard || req.Kind() == KindInput {
		return
	}
	shown, err := e.drv.IsKeyboardShown()
	if err != nil {
		e.log.Debug("keyboard state unavailable", zap.Error(err))
		return
	}
	if !shown {
		return
	}
	e.log.Debug("hiding keyboard before non-input action")
	if err := e.drv.HideKeyboard(); err != nil {
		e.log.Debug("hide keyboard failed", zap.Error(err))
		return
	}
	e.sleep(e.opts.KeyboardHideDelay)
}

// tier is one strategy in a fallback chain.
type tier struct {
	name Tier
	run  func() error
}

// chain runs tiers in order until one succeeds.
func (e *Executor) chain(kind Kind, tiers []tier) Outcome {
	var errs error
	for i, t := range tiers {
		e.log.Debug("attempting", zap.String("kind", string(kind)), zap.String("tier", string(t.name)))
		err := t.run()
		if err == nil {
			return Outcome{Success: true, Phase: core.PhaseSucceeded, Tier: t.name, Attempts: i + 1}
		}
		e.log.Debug("tier failed",
			zap.String("kind", string(kind)),
			zap.String("tier", string(t.name)),
			zap.String("category", core.CategoryOf(err).String()),
			zap.Error(err))
		errs = multierr.Append(errs, fmt.Errorf("%s: %w", t.name, err))
	}
	return Outcome{
		Phase:    core.PhaseFailed,
		Attempts: len(tiers),
		Err: core.ErrFallbacksExhausted.
			WithMessage(fmt.Sprintf("%s: all %d tiers failed", kind, len(tiers))).
			WithCause(errs),
	}
}

func (e *Executor) account(req Request, out Outcome) {
	desc := "nil request"
	if req != nil {
		desc = req.Describe()
	}

	if out.Success {
		if e.failures > 0 {
			e.log.Debug("resetting consecutive failures", zap.Int("from", e.failures))
		}
		e.failures = 0
		e.lastError = ""
		e.log.Info("action executed",
			zap.String("action", desc),
			zap.String("tier", string(out.Tier)),
			zap.Int("attempts", out.Attempts))
		return
	}

	e.failures++
	e.lastError = fmt.Sprintf("%s: %v", desc, out.Err)
	e.log.Warn("action failed",
		zap.String("action", desc),
		zap.String("category", core.CategoryOf(out.Err).String()),
		zap.Int("consecutiveFailures", e.failures),
		zap.Error(out.Err))
}

// hintRect resolves a bounding-box hint against the current window.
func (e *Executor) hintRect(b *BBox) (core.Bounds, error) {
	win, err := e.drv.WindowSize()
	if err != nil {
		return core.Bounds{}, err
	}
	if win.Width <= 0 || win.Height <= 0 {
		return core.Bounds{}, core.ErrDriverCall.WithMessage(fmt.Sprintf("invalid window size %dx%d", win.Width, win.Height))
	}
	return b.Rect(win), nil
}

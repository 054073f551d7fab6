package action_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/devicelab-dev/screen-crawler/pkg/action"
	"github.com/devicelab-dev/screen-crawler/pkg/core"
	"github.com/devicelab-dev/screen-crawler/pkg/driver/mock"
)

var errBoom = errors.New("boom")

// quiet disables pre-action effects and delays so tests see only tier calls.
func quiet() action.Options {
	return action.Options{GlobalInputFallback: true}
}

func newExecutor(drv action.Driver, opts action.Options) *action.Executor {
	return action.NewExecutor(drv, opts, zap.NewNop())
}

func strPtr(s string) *string { return &s }

func field() *mock.Element {
	return &mock.Element{Handle: "el-1", Name: "Email", Rect: core.Bounds{X: 100, Y: 200, Width: 400, Height: 100}}
}

// ============================================
// Validation
// ============================================

func TestTapCoords_NegativeMakesNoDriverCalls(t *testing.T) {
	drv := mock.New(mock.Config{KeyboardShown: true})
	e := newExecutor(drv, action.DefaultOptions())

	ok := e.Execute(action.TapCoords{X: -5, Y: 10})

	assert.False(t, ok)
	assert.Empty(t, drv.Calls())
	assert.Equal(t, 1, e.ConsecutiveFailures())
	assert.Contains(t, e.LastError(), "negative")
}

func TestTapCoords_OutsideWindow(t *testing.T) {
	drv := mock.New(mock.Config{})
	e := newExecutor(drv, quiet())

	out := e.ExecuteDetailed(action.TapCoords{X: 1081, Y: 10})

	assert.False(t, out.Success)
	assert.Equal(t, core.PhaseFailed, out.Phase)
	assert.ErrorIs(t, out.Err, core.ErrOutOfBounds)
	assert.Equal(t, []string{mock.MethodWindowSize}, drv.Methods())
}

func TestTapCoords_OnWindowEdgeIsValid(t *testing.T) {
	drv := mock.New(mock.Config{})
	e := newExecutor(drv, quiet())

	assert.True(t, e.Execute(action.TapCoords{X: 1080, Y: 1920}))
}

func TestTapCoords_UnknownWindowUsesFixedBound(t *testing.T) {
	drv := mock.New(mock.Config{}).Fail(mock.MethodWindowSize, errBoom)
	e := newExecutor(drv, quiet())

	assert.True(t, e.Execute(action.TapCoords{X: 3000, Y: 10}))
	assert.False(t, e.Execute(action.TapCoords{X: 6000, Y: 10}))
	assert.Equal(t, 1, drv.Count(mock.MethodTapAt))
}

func TestExecute_InvalidRequests(t *testing.T) {
	tests := []struct {
		name string
		req  action.Request
	}{
		{"nil", nil},
		{"invalid", action.Invalid{Err: errBoom}},
		{"click without target", action.Click{}},
		{"input without target", action.Input{Text: strPtr("x")}},
		{"bad direction", action.Swipe{Direction: "sideways"}},
		{"negative duration", action.TapCoords{X: 1, Y: 1, Duration: -time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drv := mock.New(mock.Config{})
			e := newExecutor(drv, action.DefaultOptions())

			out := e.ExecuteDetailed(tt.req)

			assert.False(t, out.Success)
			assert.Equal(t, core.ErrCategoryValidation, core.CategoryOf(out.Err))
			assert.NotContains(t, drv.Methods(), mock.MethodWaitForOverlayDismiss)
			assert.Equal(t, 1, e.ConsecutiveFailures())
		})
	}
}

// ============================================
// Tap
// ============================================

func TestTapCoords_Taps(t *testing.T) {
	drv := mock.New(mock.Config{})
	e := newExecutor(drv, quiet())

	out := e.ExecuteDetailed(action.TapCoords{X: 100, Y: 200, Duration: 500 * time.Millisecond})

	require.True(t, out.Success)
	assert.Equal(t, action.TierTap, out.Tier)
	call, _ := drv.Last(mock.MethodTapAt)
	assert.Equal(t, []interface{}{100, 200, 500 * time.Millisecond}, call.Args)
}

func TestTapCoords_TypesIntoFocusedElement(t *testing.T) {
	drv := mock.New(mock.Config{})
	el := field()
	drv.SetActive(el)
	e := newExecutor(drv, quiet())

	require.True(t, e.Execute(action.TapCoords{X: 10, Y: 10, Text: strPtr("hi")}))

	call, ok := drv.Last(mock.MethodSetText)
	require.True(t, ok)
	assert.Equal(t, []interface{}{"el-1", "hi", false, true}, call.Args)
	assert.Zero(t, drv.Count(mock.MethodInjectText))
}

func TestTapCoords_InjectsWhenNothingFocused(t *testing.T) {
	drv := mock.New(mock.Config{})
	e := newExecutor(drv, quiet())

	require.True(t, e.Execute(action.TapCoords{X: 10, Y: 10, Text: strPtr("hi")}))

	assert.Zero(t, drv.Count(mock.MethodSetText))
	call, _ := drv.Last(mock.MethodInjectText)
	assert.Equal(t, []interface{}{"hi"}, call.Args)
}

// ============================================
// Click
// ============================================

func TestClick_ElementClick(t *testing.T) {
	drv := mock.New(mock.Config{})
	e := newExecutor(drv, quiet())

	out := e.ExecuteDetailed(action.Click{Target: field()})

	assert.True(t, out.Success)
	assert.Equal(t, action.TierElementClick, out.Tier)
	assert.Equal(t, 1, out.Attempts)
	assert.Equal(t, []string{mock.MethodClick}, drv.Methods())
}

func TestClick_CenterTapAfterClickFails(t *testing.T) {
	drv := mock.New(mock.Config{})
	drv.FailTimes(mock.MethodPressBack, 1, errBoom)
	e := newExecutor(drv, quiet())
	require.False(t, e.Execute(action.Back{}))
	require.Equal(t, 1, e.ConsecutiveFailures())

	drv.FailTimes(mock.MethodClick, 1, errBoom)
	out := e.ExecuteDetailed(action.Click{Target: field()})

	assert.True(t, out.Success)
	assert.Equal(t, action.TierCenterTap, out.Tier)
	assert.Equal(t, 2, out.Attempts)
	assert.Zero(t, e.ConsecutiveFailures())
	assert.Empty(t, e.LastError())
}

func TestClick_StaleTargetSkipsToBoundsTap(t *testing.T) {
	drv := mock.New(mock.Config{}).Fail(mock.MethodClick, core.ErrStaleTarget)
	e := newExecutor(drv, quiet())

	out := e.ExecuteDetailed(action.Click{Target: field(), BoundsAttr: "[0,100][200,300]"})

	require.True(t, out.Success)
	assert.Equal(t, action.TierBoundsTap, out.Tier)
	assert.Zero(t, drv.Count(mock.MethodTapCenter))
	call, _ := drv.Last(mock.MethodTapAt)
	assert.Equal(t, []interface{}{100, 200, time.Duration(0)}, call.Args)
}

func TestClick_BBoxHint(t *testing.T) {
	tests := []struct {
		name   string
		bbox   action.BBox
		wantXY [2]int
	}{
		{
			name:   "normalized",
			bbox:   action.BBox{TopLeft: [2]float64{0.25, 0.5}, BottomRight: [2]float64{0.75, 1.0}},
			wantXY: [2]int{809, 960},
		},
		{
			name:   "absolute",
			bbox:   action.BBox{TopLeft: [2]float64{100, 200}, BottomRight: [2]float64{300, 400}},
			wantXY: [2]int{300, 200},
		},
		{
			name:   "clamped",
			bbox:   action.BBox{TopLeft: [2]float64{1800, 1000}, BottomRight: [2]float64{2500, 3000}},
			wantXY: [2]int{1039, 1859},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drv := mock.New(mock.Config{})
			e := newExecutor(drv, quiet())
			bbox := tt.bbox

			out := e.ExecuteDetailed(action.Click{BBox: &bbox})

			require.True(t, out.Success)
			assert.Equal(t, action.TierHintTap, out.Tier)
			call, _ := drv.Last(mock.MethodTapAt)
			assert.Equal(t, []interface{}{tt.wantXY[0], tt.wantXY[1], time.Duration(0)}, call.Args)
		})
	}
}

func TestClick_AllTiersFail(t *testing.T) {
	drv := mock.New(mock.Config{}).
		Fail(mock.MethodClick, errBoom).
		Fail(mock.MethodTapCenter, errBoom).
		Fail(mock.MethodTapAt, errBoom)
	e := newExecutor(drv, quiet())
	bbox := action.BBox{TopLeft: [2]float64{0, 0}, BottomRight: [2]float64{0.5, 0.5}}

	out := e.ExecuteDetailed(action.Click{Target: field(), BoundsAttr: "[0,0][10,10]", BBox: &bbox})

	assert.False(t, out.Success)
	assert.Equal(t, 4, out.Attempts)
	assert.ErrorIs(t, out.Err, core.ErrFallbacksExhausted)
	assert.Equal(t, 2, drv.Count(mock.MethodTapAt))
	assert.Equal(t, 1, e.ConsecutiveFailures())
	assert.Contains(t, e.LastError(), `click "Email"`)
}

func TestClick_MalformedBoundsFallsThrough(t *testing.T) {
	drv := mock.New(mock.Config{}).Fail(mock.MethodClick, core.ErrStaleTarget)
	e := newExecutor(drv, quiet())
	bbox := action.BBox{TopLeft: [2]float64{100, 200}, BottomRight: [2]float64{300, 400}}

	out := e.ExecuteDetailed(action.Click{Target: field(), BoundsAttr: "bogus", BBox: &bbox})

	require.True(t, out.Success)
	assert.Equal(t, action.TierHintTap, out.Tier)
	assert.Equal(t, 1, drv.Count(mock.MethodTapAt))
}

// ============================================
// Input
// ============================================

func TestInput_NilTextClearsOnly(t *testing.T) {
	drv := mock.New(mock.Config{})
	e := newExecutor(drv, quiet())

	out := e.ExecuteDetailed(action.Input{Target: field()})

	assert.True(t, out.Success)
	assert.Equal(t, action.TierClear, out.Tier)
	assert.Equal(t, []string{mock.MethodClear}, drv.Methods())
}

func TestInput_ClearFailureDoesNotType(t *testing.T) {
	drv := mock.New(mock.Config{}).Fail(mock.MethodClear, errBoom)
	e := newExecutor(drv, quiet())

	assert.False(t, e.Execute(action.Input{Target: field()}))
	assert.Equal(t, []string{mock.MethodClear}, drv.Methods())
}

func TestInput_SetsTextAfterVerifiedFocus(t *testing.T) {
	drv := mock.New(mock.Config{})
	e := newExecutor(drv, quiet())

	out := e.ExecuteDetailed(action.Input{Target: field(), Text: strPtr("a@b.c")})

	require.True(t, out.Success)
	assert.Equal(t, action.TierSetText, out.Tier)
	assert.Equal(t, []string{mock.MethodClick, mock.MethodActiveElement, mock.MethodSetText}, drv.Methods())
	call, _ := drv.Last(mock.MethodSetText)
	assert.Equal(t, []interface{}{"el-1", "a@b.c", false, true}, call.Args)
}

func TestInput_RetriesFocusWithCenterTap(t *testing.T) {
	drv := mock.New(mock.Config{NoFocusOnClick: true})
	e := newExecutor(drv, quiet())

	require.True(t, e.Execute(action.Input{Target: field(), Text: strPtr("x")}))

	assert.Equal(t, []string{
		mock.MethodClick, mock.MethodActiveElement, mock.MethodTapCenter, mock.MethodSetText,
	}, drv.Methods())
}

func TestInput_FallsBackToGlobalInjection(t *testing.T) {
	drv := mock.New(mock.Config{}).Fail(mock.MethodSetText, errBoom)
	e := newExecutor(drv, quiet())

	out := e.ExecuteDetailed(action.Input{Target: field(), Text: strPtr("secret")})

	require.True(t, out.Success)
	assert.Equal(t, action.TierGlobalInput, out.Tier)
	assert.Equal(t, 2, drv.Count(mock.MethodClick))
	call, _ := drv.Last(mock.MethodInjectText)
	assert.Equal(t, []interface{}{"secret"}, call.Args)
}

func TestInput_RefocusTapsBoundsWhenClickFails(t *testing.T) {
	drv := mock.New(mock.Config{}).
		Fail(mock.MethodClick, errBoom).
		Fail(mock.MethodSetText, errBoom)
	e := newExecutor(drv, quiet())

	out := e.ExecuteDetailed(action.Input{
		Target:     field(),
		Text:       strPtr("x"),
		BoundsAttr: "[0,100][200,300]",
		BBox:       &action.BBox{TopLeft: [2]float64{0.5, 0.5}, BottomRight: [2]float64{0.6, 0.6}},
	})

	require.True(t, out.Success)
	assert.Equal(t, action.TierGlobalInput, out.Tier)
	require.Equal(t, 1, drv.Count(mock.MethodTapAt))
	call, _ := drv.Last(mock.MethodTapAt)
	assert.Equal(t, []interface{}{100, 200, time.Duration(0)}, call.Args)
	assert.Zero(t, drv.Count(mock.MethodWindowSize))
}

func TestInput_RefocusFallsBackToBBoxWithMalformedBounds(t *testing.T) {
	drv := mock.New(mock.Config{}).
		Fail(mock.MethodClick, errBoom).
		Fail(mock.MethodSetText, errBoom)
	e := newExecutor(drv, quiet())

	out := e.ExecuteDetailed(action.Input{
		Target:     field(),
		Text:       strPtr("x"),
		BoundsAttr: "garbage",
		BBox:       &action.BBox{TopLeft: [2]float64{100, 0}, BottomRight: [2]float64{300, 200}},
	})

	require.True(t, out.Success)
	require.Equal(t, 1, drv.Count(mock.MethodTapAt))
	call, _ := drv.Last(mock.MethodTapAt)
	assert.Equal(t, []interface{}{100, 200, time.Duration(0)}, call.Args)
}

func TestInput_RefocusTapFailureIsLogged(t *testing.T) {
	obs, logs := observer.New(zapcore.DebugLevel)
	drv := mock.New(mock.Config{}).
		Fail(mock.MethodClick, errBoom).
		Fail(mock.MethodSetText, errBoom).
		Fail(mock.MethodTapAt, errBoom)
	e := action.NewExecutor(drv, quiet(), zap.New(obs))

	out := e.ExecuteDetailed(action.Input{Target: field(), Text: strPtr("x"), BoundsAttr: "[0,100][200,300]"})

	require.True(t, out.Success)
	assert.Equal(t, action.TierGlobalInput, out.Tier)
	tapped := logs.FilterMessage("refocus tap failed").All()
	require.Len(t, tapped, 1)
	assert.Equal(t, zapcore.DebugLevel, tapped[0].Level)
	assert.Equal(t, 1, drv.Count(mock.MethodInjectText))
}

func TestInput_GlobalInjectionDisabled(t *testing.T) {
	drv := mock.New(mock.Config{}).Fail(mock.MethodSetText, errBoom)
	e := newExecutor(drv, action.Options{})

	assert.False(t, e.Execute(action.Input{Target: field(), Text: strPtr("x")}))
	assert.Zero(t, drv.Count(mock.MethodInjectText))
}

// ============================================
// Swipe
// ============================================

func TestSwipe_FullScreen(t *testing.T) {
	tests := []struct {
		dir  action.Direction
		kind action.Kind
		want []interface{}
	}{
		{action.Down, action.KindScrollDown, []interface{}{540, 1536, 540, 576}},
		{action.Up, action.KindScrollUp, []interface{}{540, 384, 540, 1344}},
		{action.Left, action.KindSwipeLeft, []interface{}{864, 960, 324, 960}},
		{action.Right, action.KindSwipeRight, []interface{}{216, 960, 756, 960}},
	}
	for _, tt := range tests {
		t.Run(string(tt.dir), func(t *testing.T) {
			drv := mock.New(mock.Config{})
			e := newExecutor(drv, quiet())
			req := action.Swipe{Direction: tt.dir}

			out := e.ExecuteDetailed(req)

			require.True(t, out.Success)
			assert.Equal(t, tt.kind, req.Kind())
			assert.Equal(t, action.TierScreenSwipe, out.Tier)
			call, _ := drv.Last(mock.MethodSwipe)
			assert.Equal(t, append(tt.want, 400*time.Millisecond), call.Args)
		})
	}
}

func TestSwipe_InsideElement(t *testing.T) {
	drv := mock.New(mock.Config{})
	e := newExecutor(drv, quiet())
	list := mock.NewElement("list", core.Bounds{X: 0, Y: 100, Width: 1000, Height: 500})

	tests := []struct {
		dir  action.Direction
		want []interface{}
	}{
		{action.Down, []interface{}{500, 500, 500, 200}},
		{action.Up, []interface{}{500, 200, 500, 500}},
		{action.Left, []interface{}{800, 350, 200, 350}},
		{action.Right, []interface{}{200, 350, 800, 350}},
	}
	for _, tt := range tests {
		out := e.ExecuteDetailed(action.Swipe{Direction: tt.dir, Target: list})
		require.True(t, out.Success)
		assert.Equal(t, action.TierElementSwipe, out.Tier)
		call, _ := drv.Last(mock.MethodSwipe)
		assert.Equal(t, append(tt.want, 400*time.Millisecond), call.Args, tt.dir)
	}
}

func TestSwipe_StaleElementFallsBackToHint(t *testing.T) {
	drv := mock.New(mock.Config{})
	e := newExecutor(drv, quiet())
	list := &mock.Element{Handle: "list", Stale: true}
	bbox := action.BBox{TopLeft: [2]float64{100, 0}, BottomRight: [2]float64{600, 1000}}

	out := e.ExecuteDetailed(action.Swipe{Direction: action.Down, Target: list, BBox: &bbox})

	require.True(t, out.Success)
	assert.Equal(t, action.TierHintSwipe, out.Tier)
	assert.Equal(t, 2, out.Attempts)
	call, _ := drv.Last(mock.MethodSwipe)
	assert.Equal(t, []interface{}{500, 500, 500, 200, 400 * time.Millisecond}, call.Args)
}

// ============================================
// Back, pre-action effects, accounting
// ============================================

func TestBack_SinglePress(t *testing.T) {
	drv := mock.New(mock.Config{}).Fail(mock.MethodPressBack, errBoom)
	e := newExecutor(drv, quiet())

	out := e.ExecuteDetailed(action.Back{})

	assert.False(t, out.Success)
	assert.Equal(t, 1, out.Attempts)
	assert.Equal(t, []string{mock.MethodPressBack}, drv.Methods())
}

func TestExecute_PrepareHidesKeyboardForNonInput(t *testing.T) {
	drv := mock.New(mock.Config{KeyboardShown: true})
	e := newExecutor(drv, action.Options{ToastWait: time.Millisecond, AutoHideKeyboard: true})

	require.True(t, e.Execute(action.Back{}))

	assert.Equal(t, []string{
		mock.MethodWaitForOverlayDismiss, mock.MethodIsKeyboardShown, mock.MethodHideKeyboard, mock.MethodPressBack,
	}, drv.Methods())
}

func TestExecute_PrepareKeepsKeyboardForInput(t *testing.T) {
	drv := mock.New(mock.Config{KeyboardShown: true})
	e := newExecutor(drv, action.Options{AutoHideKeyboard: true})

	require.True(t, e.Execute(action.Input{Target: field(), Text: strPtr("x")}))

	assert.Zero(t, drv.Count(mock.MethodIsKeyboardShown))
	assert.Zero(t, drv.Count(mock.MethodHideKeyboard))
}

func TestExecute_PrepareFailuresIgnored(t *testing.T) {
	drv := mock.New(mock.Config{}).
		Fail(mock.MethodWaitForOverlayDismiss, errBoom).
		Fail(mock.MethodIsKeyboardShown, errBoom)
	e := newExecutor(drv, action.DefaultOptions())

	assert.True(t, e.Execute(action.Back{}))
}

func TestExecute_FailuresAccumulateWithoutRefusal(t *testing.T) {
	drv := mock.New(mock.Config{}).Fail(mock.MethodPressBack, errBoom)
	e := newExecutor(drv, quiet())

	for i := 1; i <= 3; i++ {
		assert.False(t, e.Execute(action.Back{}))
		assert.Equal(t, i, e.ConsecutiveFailures())
	}
	assert.False(t, e.Execute(action.Back{}))

	assert.Equal(t, 4, drv.Count(mock.MethodPressBack))
	assert.Equal(t, 4, e.ConsecutiveFailures())
	assert.Contains(t, e.LastError(), "back")
}

func TestExecute_LogsOutcome(t *testing.T) {
	obs, logs := observer.New(zapcore.InfoLevel)
	drv := mock.New(mock.Config{}).FailTimes(mock.MethodPressBack, 1, errBoom)
	e := action.NewExecutor(drv, quiet(), zap.New(obs))

	e.Execute(action.Back{})
	e.Execute(action.Back{})

	failed := logs.FilterMessage("action failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, zapcore.WarnLevel, failed[0].Level)
	assert.Equal(t, "exhausted", failed[0].ContextMap()["category"])
	assert.Equal(t, 1, logs.FilterMessage("action executed").Len())
}

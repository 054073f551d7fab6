package action

import (
	"fmt"
	"math"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/screen-crawler/pkg/core"
)

// Resolver maps an element reference from a descriptor to a live handle.
type Resolver func(ref string) (Element, error)

// descriptor is the structured action produced by the decision collaborator.
// JSON is valid YAML, so either encoding is accepted.
type descriptor struct {
	Type              string    `yaml:"type"`
	Element           string    `yaml:"element"`
	Text              *string   `yaml:"text"`
	IntendedInputText *string   `yaml:"intended_input_text"`
	Coordinates       []float64 `yaml:"coordinates"`
	DurationMs        *float64  `yaml:"duration_ms"`
	ElementInfo       struct {
		Bounds string `yaml:"bounds"`
	} `yaml:"element_info"`
	OriginalBBox *bboxField `yaml:"original_bbox"`
}

// bboxField is a box hint given either as {top_left, bottom_right} corners in
// [y, x] order or as an Android bounds string "[x1,y1][x2,y2]".
type bboxField struct {
	TopLeft     []float64
	BottomRight []float64
	// bounds is set when the hint was a bounds string.
	bounds *core.Bounds
	// unusable marks a bounds string that did not parse; the hint is dropped.
	unusable bool
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (f *bboxField) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		b, err := core.ParseBoundsAttr(value.Value)
		if err != nil || b.IsEmpty() {
			f.unusable = true
			return nil
		}
		f.bounds = &b
		return nil
	}
	var corners struct {
		TopLeft     []float64 `yaml:"top_left"`
		BottomRight []float64 `yaml:"bottom_right"`
	}
	if err := value.Decode(&corners); err != nil {
		return err
	}
	f.TopLeft, f.BottomRight = corners.TopLeft, corners.BottomRight
	return nil
}

// Decode builds a Request from an action descriptor such as
//
//	{"type": "click", "element": "el-7", "element_info": {"bounds": "[0,0][100,50]"}}
//
// Element references are looked up with resolve, which may be nil when the
// descriptor references no element. A click whose element cannot be resolved
// keeps its coordinate hints and executes without a target.
func Decode(data []byte, resolve Resolver) (Request, error) {
	var d descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, core.ErrInvalidAction.WithMessage("malformed action descriptor").WithCause(err)
	}

	bbox, err := d.bbox()
	if err != nil {
		return nil, err
	}

	switch Kind(d.Type) {
	case KindTapCoords:
		x, y, err := d.point()
		if err != nil {
			return nil, err
		}
		r := TapCoords{X: x, Y: y, Text: d.IntendedInputText}
		if d.DurationMs != nil {
			if *d.DurationMs < 0 {
				return nil, invalid("negative duration_ms %v", *d.DurationMs)
			}
			r.Duration = time.Duration(*d.DurationMs * float64(time.Millisecond))
		}
		return r, nil

	case KindClick:
		r := Click{BoundsAttr: d.ElementInfo.Bounds, BBox: bbox}
		el, err := d.target(resolve)
		if err != nil && r.BoundsAttr == "" && r.BBox == nil {
			return nil, err
		}
		r.Target = el
		if r.Target == nil && r.BoundsAttr == "" && r.BBox == nil {
			return nil, invalid("click needs an element or a bounding box")
		}
		return r, nil

	case KindInput:
		el, err := d.target(resolve)
		if err != nil {
			return nil, err
		}
		if el == nil {
			return nil, invalid("input needs an element")
		}
		return Input{Target: el, Text: d.Text, BoundsAttr: d.ElementInfo.Bounds, BBox: bbox}, nil

	case KindScrollDown, KindScrollUp, KindSwipeLeft, KindSwipeRight:
		r := Swipe{Direction: directionOf(Kind(d.Type)), BBox: bbox}
		// An unresolvable target degrades to the box or a full-screen gesture.
		if el, err := d.target(resolve); err == nil {
			r.Target = el
		}
		return r, nil

	case KindBack:
		return Back{}, nil

	case "":
		return nil, invalid("action descriptor has no type")
	}
	return nil, invalid("unknown action type %q", d.Type)
}

func (d descriptor) target(resolve Resolver) (Element, error) {
	if d.Element == "" {
		return nil, nil
	}
	if resolve == nil {
		return nil, invalid("element %q referenced but no resolver given", d.Element)
	}
	el, err := resolve(d.Element)
	if err != nil {
		return nil, core.ErrStaleTarget.WithMessage(fmt.Sprintf("resolve element %q", d.Element)).WithCause(err)
	}
	return el, nil
}

func (d descriptor) point() (int, int, error) {
	if len(d.Coordinates) != 2 {
		return 0, 0, invalid("tap_coords needs two coordinates, got %d", len(d.Coordinates))
	}
	var xy [2]int
	for i, v := range d.Coordinates {
		if v != math.Trunc(v) || math.IsInf(v, 0) || v > math.MaxInt32 || v < math.MinInt32 {
			return 0, 0, invalid("coordinate %v is not an integer", v)
		}
		xy[i] = int(v)
	}
	return xy[0], xy[1], nil
}

func (d descriptor) bbox() (*BBox, error) {
	if d.OriginalBBox == nil || d.OriginalBBox.unusable {
		return nil, nil
	}
	if b := d.OriginalBBox.bounds; b != nil {
		return &BBox{
			TopLeft:     [2]float64{float64(b.Y), float64(b.X)},
			BottomRight: [2]float64{float64(b.Y + b.Height), float64(b.X + b.Width)},
		}, nil
	}
	tl, br := d.OriginalBBox.TopLeft, d.OriginalBBox.BottomRight
	if len(tl) != 2 || len(br) != 2 {
		return nil, invalid("original_bbox corners need [y, x] pairs")
	}
	return &BBox{TopLeft: [2]float64{tl[0], tl[1]}, BottomRight: [2]float64{br[0], br[1]}}, nil
}

func directionOf(k Kind) Direction {
	switch k {
	case KindScrollDown:
		return Down
	case KindScrollUp:
		return Up
	case KindSwipeLeft:
		return Left
	case KindSwipeRight:
		return Right
	}
	return ""
}

func invalid(format string, args ...interface{}) error {
	return core.ErrInvalidAction.WithMessage(fmt.Sprintf(format, args...))
}

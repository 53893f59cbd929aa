package scene

import (
	"math"
	"sort"
)

type Interpolation int

const (
	InterpolationConstant Interpolation = iota
	InterpolationLinear
	InterpolationBezier
)

type Extrapolation int

const (
	ExtrapolationConstant Extrapolation = iota
	ExtrapolationCyclic
)

// Curve data paths understood by the exporter.
const (
	PathLocation           = "location"
	PathRotationEuler      = "rotation_euler"
	PathRotationQuaternion = "rotation_quaternion"
	PathScale              = "scale"
)

type Keyframe struct {
	Frame float32
	Value float32
}

// FCurve animates one component of a property.
// For rotation_quaternion index 0 is W, then X, Y, Z.
type FCurve struct {
	DataPath      string
	Index         int
	Interpolation Interpolation
	Extrapolation Extrapolation
	Keyframes     []Keyframe
}

type Action struct {
	Name   string
	Curves []*FCurve
	// Bone actions keep curves per bone name.
	Bones map[string][]*FCurve
}

func NewAction(name string) *Action {
	return &Action{Name: name}
}

func (a *Action) Find(dataPath string, index int) *FCurve {
	return findCurve(a.Curves, dataPath, index)
}

func (a *Action) FindBone(bone, dataPath string, index int) *FCurve {
	return findCurve(a.Bones[bone], dataPath, index)
}

func findCurve(curves []*FCurve, dataPath string, index int) *FCurve {
	for _, c := range curves {
		if c.DataPath == dataPath && c.Index == index {
			return c
		}
	}
	return nil
}

func (a *Action) AddCurve(c *FCurve) {
	a.Curves = append(a.Curves, c)
}

func (a *Action) AddBoneCurve(bone string, c *FCurve) {
	if a.Bones == nil {
		a.Bones = make(map[string][]*FCurve)
	}
	a.Bones[bone] = append(a.Bones[bone], c)
}

// Sort orders keyframes by frame.
func (c *FCurve) Sort() {
	sort.SliceStable(c.Keyframes, func(i, j int) bool {
		return c.Keyframes[i].Frame < c.Keyframes[j].Frame
	})
}

// Evaluate samples the curve at frame. Bezier segments are eased with
// flat handles, which is what auto clamped handles give on extremes.
func (c *FCurve) Evaluate(frame float32) float32 {
	kfs := c.Keyframes
	if len(kfs) == 0 {
		return 0
	}
	first, last := kfs[0], kfs[len(kfs)-1]
	if len(kfs) == 1 {
		return first.Value
	}

	if c.Extrapolation == ExtrapolationCyclic && last.Frame > first.Frame && (frame < first.Frame || frame > last.Frame) {
		period := last.Frame - first.Frame
		frame = first.Frame + float32(math.Mod(float64(frame-first.Frame), float64(period)))
		if frame < first.Frame {
			frame += period
		}
	}
	if frame <= first.Frame {
		return first.Value
	}
	if frame >= last.Frame {
		return last.Value
	}

	i := sort.Search(len(kfs), func(i int) bool { return kfs[i].Frame > frame })
	a, b := kfs[i-1], kfs[i]
	t := (frame - a.Frame) / (b.Frame - a.Frame)
	switch c.Interpolation {
	case InterpolationConstant:
		return a.Value
	case InterpolationBezier:
		t = t * t * (3 - 2*t)
	}
	return a.Value + (b.Value-a.Value)*t
}

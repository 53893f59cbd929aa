package m3g

import (
	"github.com/pkg/errors"
)

type AnimationController struct {
	Object3D
	Speed                 float32
	Weight                float32
	ActiveIntervalStart   int32
	ActiveIntervalEnd     int32
	ReferenceSequenceTime float32
	ReferenceWorldTime    int32
}

func NewAnimationController() *AnimationController {
	return &AnimationController{Speed: 1, Weight: 1}
}

func (ac *AnimationController) ObjectType() byte { return TypeAnimationController }

func (ac *AnimationController) References() []Object { return ac.Object3D.references() }

func (ac *AnimationController) Encode(w *Writer) {
	ac.Object3D.encode(w)
	w.Floats(ac.Speed, ac.Weight)
	w.Int32(ac.ActiveIntervalStart)
	w.Int32(ac.ActiveIntervalEnd)
	w.Float32(ac.ReferenceSequenceTime)
	w.Int32(ac.ReferenceWorldTime)
}

type AnimationTrack struct {
	Object3D
	KeyframeSequence *KeyframeSequence
	Controller       *AnimationController
	PropertyID       uint32
}

func NewAnimationTrack(seq *KeyframeSequence, property uint32, controller *AnimationController) *AnimationTrack {
	return &AnimationTrack{KeyframeSequence: seq, PropertyID: property, Controller: controller}
}

func (at *AnimationTrack) ObjectType() byte { return TypeAnimationTrack }

func (at *AnimationTrack) References() []Object {
	return append(nonNil(at.KeyframeSequence, at.Controller), at.Object3D.references()...)
}

func (at *AnimationTrack) Encode(w *Writer) {
	at.Object3D.encode(w)
	w.Ref(at.KeyframeSequence)
	w.Ref(at.Controller)
	w.Uint32(at.PropertyID)
}

type Keyframe struct {
	Time  int32
	Value []float32
}

type KeyframeSequence struct {
	Object3D
	Interpolation   byte
	RepeatMode      byte
	Duration        uint32
	ValidRangeFirst uint32
	ValidRangeLast  uint32
	ComponentCount  uint32
	Keyframes       []Keyframe
}

func NewKeyframeSequence(componentCount uint32, interpolation byte) *KeyframeSequence {
	return &KeyframeSequence{
		ComponentCount: componentCount,
		Interpolation:  interpolation,
		RepeatMode:     RepeatConstant,
	}
}

func (ks *KeyframeSequence) ObjectType() byte { return TypeKeyframeSequence }

func (ks *KeyframeSequence) References() []Object { return ks.Object3D.references() }

func (ks *KeyframeSequence) AddKeyframe(time int32, value ...float32) error {
	if uint32(len(value)) != ks.ComponentCount {
		return errors.Errorf("Keyframe has %d components, sequence expects %d", len(value), ks.ComponentCount)
	}
	ks.Keyframes = append(ks.Keyframes, Keyframe{Time: time, Value: value})
	ks.ValidRangeFirst = 0
	ks.ValidRangeLast = uint32(len(ks.Keyframes) - 1)
	return nil
}

// Encode writes raw keyframes. Values closer to zero than 1e-6 are written
// as positive zero because players choke on negative zero.
func (ks *KeyframeSequence) Encode(w *Writer) {
	ks.Object3D.encode(w)
	w.Byte(ks.Interpolation)
	w.Byte(ks.RepeatMode)
	w.Byte(0)
	w.Uint32(ks.Duration)
	w.Uint32(ks.ValidRangeFirst)
	w.Uint32(ks.ValidRangeLast)
	w.Uint32(ks.ComponentCount)
	w.Uint32(uint32(len(ks.Keyframes)))
	for _, kf := range ks.Keyframes {
		w.Int32(kf.Time)
		w.Floats(CleanValues(kf.Value)...)
	}
}

// CleanValues returns a copy of values with near zero values replaced by +0.
func CleanValues(values []float32) []float32 {
	result := make([]float32, len(values))
	for i, v := range values {
		if v >= 1e-6 || v <= -1e-6 {
			result[i] = v
		}
	}
	return result
}

package exporter

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/m3g_exporter/m3g"
	"github.com/mogaika/m3g_exporter/scene"
	"github.com/mogaika/m3g_exporter/utils"
)

type curveFinder func(dataPath string, index int) *scene.FCurve

// pose fills components an action does not animate.
type pose struct {
	translation mgl32.Vec3
	rotation    mgl32.Quat
	scale       mgl32.Vec3
}

func restPose() pose {
	return pose{rotation: mgl32.QuatIdent(), scale: mgl32.Vec3{1, 1, 1}}
}

func (t *Translator) translateObjectAction(obj *scene.Object, target m3g.Object) {
	if obj.Action == nil {
		return
	}
	var p pose
	p.translation, p.rotation, p.scale = utils.Decompose(obj.MatrixLocal())
	ctrl := t.controller(obj.Action, 1, ParseUserID(obj.Action.Name))
	if err := t.addTransformTracks(target.Base(), obj.Action.Find, p, ctrl, t.scene.FrameEnd); err != nil {
		logger.Errorf("action %q of %q not exported: %v", obj.Action.Name, obj.Name, err)
	}
}

// controller returns the single controller shared by every track of an action.
func (t *Translator) controller(action *scene.Action, weight float32, userID uint32) *m3g.AnimationController {
	if c, ok := t.controllers[action]; ok {
		return c
	}
	c := m3g.NewAnimationController()
	c.Name = action.Name
	c.UserID = userID
	c.Weight = weight
	t.controllers[action] = c
	return c
}

// addTransformTracks animates base with the transform curves find returns.
// Sequences last until frameEnd unless keys run longer.
func (t *Translator) addTransformTracks(base *m3g.Object3D, find curveFinder, rest pose, ctrl *m3g.AnimationController, frameEnd int) error {
	translation, err := t.vectorSequence(find, scene.PathLocation, rest.translation, frameEnd)
	if err != nil {
		return errors.Wrapf(err, "Location")
	}
	orientation, err := t.orientationSequence(find, rest.rotation, frameEnd)
	if err != nil {
		return errors.Wrapf(err, "Rotation")
	}
	scale, err := t.vectorSequence(find, scene.PathScale, rest.scale, frameEnd)
	if err != nil {
		return errors.Wrapf(err, "Scale")
	}

	if translation != nil {
		base.AddAnimationTrack(m3g.NewAnimationTrack(translation, m3g.PropertyTranslation, ctrl))
	}
	if orientation != nil {
		base.AddAnimationTrack(m3g.NewAnimationTrack(orientation, m3g.PropertyOrientation, ctrl))
	}
	if scale != nil {
		base.AddAnimationTrack(m3g.NewAnimationTrack(scale, m3g.PropertyScale, ctrl))
	}
	return nil
}

func findCurves(find curveFinder, dataPath string, count int) ([]*scene.FCurve, *scene.FCurve) {
	curves := make([]*scene.FCurve, count)
	var first *scene.FCurve
	for i := range curves {
		curves[i] = find(dataPath, i)
		if curves[i] != nil && len(curves[i].Keyframes) == 0 {
			curves[i] = nil
		}
		if first == nil && curves[i] != nil {
			first = curves[i]
		}
	}
	return curves, first
}

// keyFrames merges the key frames of all curves.
func keyFrames(curves []*scene.FCurve) []float32 {
	seen := make(map[float32]struct{})
	frames := make([]float32, 0)
	for _, c := range curves {
		if c == nil {
			continue
		}
		for _, kf := range c.Keyframes {
			if _, ok := seen[kf.Frame]; !ok {
				seen[kf.Frame] = struct{}{}
				frames = append(frames, kf.Frame)
			}
		}
	}
	sort.Slice(frames, func(i, j int) bool { return frames[i] < frames[j] })
	return frames
}

func (t *Translator) frameTime(frame float32) int32 {
	fps := t.scene.FPS
	if fps <= 0 {
		fps = 25
	}
	ms := math.Round(float64(frame) * 1000 / float64(fps))
	if ms < 0 {
		return 0
	}
	return int32(ms)
}

func vectorInterpolation(c *scene.FCurve) byte {
	switch c.Interpolation {
	case scene.InterpolationConstant:
		return m3g.InterpolationStep
	case scene.InterpolationLinear:
		return m3g.InterpolationLinear
	default:
		return m3g.InterpolationSpline
	}
}

// orientationInterpolation is SLERP for quaternion curves. Euler curves keep
// their own interpolation on the converted keys.
func orientationInterpolation(c *scene.FCurve, quaternion bool) byte {
	if quaternion {
		return m3g.InterpolationSlerp
	}
	return vectorInterpolation(c)
}

func evaluate(c *scene.FCurve, frame, rest float32) float32 {
	if c == nil {
		return rest
	}
	return c.Evaluate(frame)
}

func (t *Translator) vectorSequence(find curveFinder, dataPath string, rest mgl32.Vec3, frameEnd int) (*m3g.KeyframeSequence, error) {
	curves, first := findCurves(find, dataPath, 3)
	if first == nil {
		return nil, nil
	}
	seq := m3g.NewKeyframeSequence(3, vectorInterpolation(first))
	for _, frame := range keyFrames(curves) {
		err := seq.AddKeyframe(t.frameTime(frame),
			evaluate(curves[0], frame, rest[0]),
			evaluate(curves[1], frame, rest[1]),
			evaluate(curves[2], frame, rest[2]))
		if err != nil {
			return nil, err
		}
	}
	t.finishSequence(seq, curves, frameEnd)
	return seq, nil
}

// orientationSequence prefers quaternion curves over euler ones.
// Keys are written x, y, z, w and kept on one hemisphere so slerp takes the short way.
func (t *Translator) orientationSequence(find curveFinder, rest mgl32.Quat, frameEnd int) (*m3g.KeyframeSequence, error) {
	curves, first := findCurves(find, scene.PathRotationQuaternion, 4)
	quaternion := first != nil
	if !quaternion {
		curves, first = findCurves(find, scene.PathRotationEuler, 3)
		if first == nil {
			return nil, nil
		}
	}
	restEuler := utils.QuatToEuler(rest)

	seq := m3g.NewKeyframeSequence(4, orientationInterpolation(first, quaternion))
	var prev mgl32.Quat
	for i, frame := range keyFrames(curves) {
		var q mgl32.Quat
		if quaternion {
			q = mgl32.Quat{
				W: evaluate(curves[0], frame, rest.W),
				V: mgl32.Vec3{
					evaluate(curves[1], frame, rest.X()),
					evaluate(curves[2], frame, rest.Y()),
					evaluate(curves[3], frame, rest.Z()),
				},
			}.Normalize()
		} else {
			q = utils.EulerToQuat(mgl32.Vec3{
				evaluate(curves[0], frame, restEuler[0]),
				evaluate(curves[1], frame, restEuler[1]),
				evaluate(curves[2], frame, restEuler[2]),
			})
		}
		if i != 0 && prev.Dot(q) < 0 {
			q = q.Scale(-1)
		}
		prev = q
		if err := seq.AddKeyframe(t.frameTime(frame), q.X(), q.Y(), q.Z(), q.W); err != nil {
			return nil, err
		}
	}
	t.finishSequence(seq, curves, frameEnd)
	return seq, nil
}

func (t *Translator) finishSequence(seq *m3g.KeyframeSequence, curves []*scene.FCurve, frameEnd int) {
	for _, c := range curves {
		if c != nil && c.Extrapolation == scene.ExtrapolationCyclic {
			seq.RepeatMode = m3g.RepeatLoop
		}
	}
	duration := t.frameTime(float32(frameEnd))
	if n := len(seq.Keyframes); n != 0 && seq.Keyframes[n-1].Time > duration {
		duration = seq.Keyframes[n-1].Time
	}
	if duration < 1 {
		duration = 1
	}
	seq.Duration = uint32(duration)
}

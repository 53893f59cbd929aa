package gltfscene

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/mogaika/m3g_exporter/scene"
	"github.com/mogaika/m3g_exporter/utils"
)

// channel is one decoded animation sampler bound to a node property.
type channel struct {
	node          uint32
	path          gltf.TRSProperty
	interpolation gltf.Interpolation
	times         []float32
	values        [][]float32
}

// importAnimations creates one action per animation and target. Joint
// channels go to the armature action as bone curves relative to the rest pose.
func (imp *importer) importAnimations() error {
	lastFrame := 0
	for iAnim, anim := range imp.doc.Animations {
		name := anim.Name
		if name == "" {
			name = fmt.Sprintf("Action%d", iAnim)
		}
		actions := make(map[*scene.Object]*scene.Action)
		action := func(o *scene.Object) *scene.Action {
			if a, ok := actions[o]; ok {
				return a
			}
			actionName := name
			if len(actions) != 0 {
				actionName = name + "_" + o.Name
			}
			a := scene.NewAction(actionName)
			actions[o] = a
			imp.s.Actions = append(imp.s.Actions, a)
			if o.Action == nil {
				o.Action = a
			}
			return a
		}

		for iChannel, ch := range anim.Channels {
			c, err := imp.readChannel(anim, ch)
			if err != nil {
				return errors.Wrapf(err, "Animation %q channel %d", name, iChannel)
			}
			if c == nil {
				continue
			}
			if j, ok := imp.joints[c.node]; ok {
				rest := localMatrix(imp.doc.Nodes[c.node])
				for _, curve := range imp.curves(c, &rest) {
					action(j.armature).AddBoneCurve(j.bone.Name, curve)
				}
			} else if o, ok := imp.objects[c.node]; ok {
				for _, curve := range imp.curves(c, nil) {
					action(o).AddCurve(curve)
				}
			} else {
				logger.Debugf("animation %q targets node %d without object", name, c.node)
				continue
			}
			if n := len(c.times); n != 0 {
				if f := int(math.Ceil(float64(c.times[n-1] * imp.s.FPS))); f > lastFrame {
					lastFrame = f
				}
			}
		}
	}
	if len(imp.doc.Animations) != 0 {
		imp.s.FrameStart = 0
		imp.s.FrameEnd = lastFrame
	}
	return nil
}

func (imp *importer) readChannel(anim *gltf.Animation, ch *gltf.Channel) (*channel, error) {
	if ch.Target.Node == nil || ch.Sampler == nil {
		return nil, nil
	}
	if ch.Target.Path == gltf.TRSWeights {
		logger.Debugf("morph target weights are not supported")
		return nil, nil
	}
	if int(*ch.Sampler) >= len(anim.Samplers) {
		return nil, errors.Errorf("Sampler %d out of range", *ch.Sampler)
	}
	sampler := anim.Samplers[*ch.Sampler]
	if sampler.Input == nil || sampler.Output == nil {
		return nil, errors.Errorf("Sampler without input or output")
	}

	acr, err := imp.accessor(*sampler.Input)
	if err != nil {
		return nil, err
	}
	input, err := modeler.ReadAccessor(imp.doc, acr, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read times")
	}
	times, ok := input.([]float32)
	if !ok {
		return nil, errors.Errorf("Unexpected times type %T", input)
	}

	if acr, err = imp.accessor(*sampler.Output); err != nil {
		return nil, err
	}
	output, err := modeler.ReadAccessor(imp.doc, acr, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read values")
	}
	values := make([][]float32, 0)
	switch v := output.(type) {
	case [][3]float32:
		for i := range v {
			values = append(values, v[i][:])
		}
	case [][4]float32:
		for i := range v {
			values = append(values, v[i][:])
		}
	default:
		return nil, errors.Errorf("Unexpected values type %T", output)
	}

	return newChannel(*ch.Target.Node, ch.Target.Path, sampler.Interpolation, times, values)
}

// newChannel validates key counts. Cubic spline outputs hold in tangent,
// value and out tangent per key; only values are kept.
func newChannel(node uint32, path gltf.TRSProperty, interpolation gltf.Interpolation, times []float32, values [][]float32) (*channel, error) {
	if interpolation == gltf.InterpolationCubicSpline {
		if len(values) != len(times)*3 {
			return nil, errors.Errorf("Got %d cubic values for %d keys", len(values), len(times))
		}
		kept := make([][]float32, len(times))
		for i := range kept {
			kept[i] = values[i*3+1]
		}
		values = kept
	}
	if len(values) != len(times) {
		return nil, errors.Errorf("Got %d values for %d keys", len(values), len(times))
	}
	return &channel{node: node, path: path, interpolation: interpolation, times: times, values: values}, nil
}

// curves converts a channel into fcurves. With rest set, values are made
// relative to it the way pose bones are stored.
func (imp *importer) curves(c *channel, rest *mgl32.Mat4) []*scene.FCurve {
	var restT, restS mgl32.Vec3
	restR := mgl32.QuatIdent()
	if rest != nil {
		restT, restR, restS = utils.Decompose(*rest)
	}
	invR := restR.Inverse()

	var dataPath string
	var components int
	switch c.path {
	case gltf.TRSTranslation:
		dataPath, components = scene.PathLocation, 3
	case gltf.TRSRotation:
		dataPath, components = scene.PathRotationQuaternion, 4
	case gltf.TRSScale:
		dataPath, components = scene.PathScale, 3
	default:
		return nil
	}

	interpolation := scene.InterpolationLinear
	switch c.interpolation {
	case gltf.InterpolationStep:
		interpolation = scene.InterpolationConstant
	case gltf.InterpolationCubicSpline:
		interpolation = scene.InterpolationBezier
	}

	result := make([]*scene.FCurve, components)
	for i := range result {
		result[i] = &scene.FCurve{DataPath: dataPath, Index: i, Interpolation: interpolation}
	}

	for k, t := range c.times {
		v := c.values[k]
		var out []float32
		switch c.path {
		case gltf.TRSTranslation:
			p := mgl32.Vec3{v[0], v[1], v[2]}
			if rest != nil {
				p = invR.Rotate(p.Sub(restT))
				p = mgl32.Vec3{safeDiv(p[0], restS[0]), safeDiv(p[1], restS[1]), safeDiv(p[2], restS[2])}
			}
			out = p[:]
		case gltf.TRSRotation:
			q := mgl32.Quat{W: v[3], V: mgl32.Vec3{v[0], v[1], v[2]}}.Normalize()
			if rest != nil {
				q = invR.Mul(q)
			}
			// W first like rotation_quaternion curves
			out = []float32{q.W, q.V[0], q.V[1], q.V[2]}
		case gltf.TRSScale:
			s := mgl32.Vec3{v[0], v[1], v[2]}
			if rest != nil {
				s = mgl32.Vec3{safeDiv(s[0], restS[0]), safeDiv(s[1], restS[1]), safeDiv(s[2], restS[2])}
			}
			out = s[:]
		}
		frame := t * imp.s.FPS
		for i := range result {
			result[i].Keyframes = append(result[i].Keyframes, scene.Keyframe{Frame: frame, Value: out[i]})
		}
	}
	return result
}

func safeDiv(a, b float32) float32 {
	if b == 0 {
		return a
	}
	return a / b
}

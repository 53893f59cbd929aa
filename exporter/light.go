package exporter

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/m3g_exporter/m3g"
	"github.com/mogaika/m3g_exporter/scene"
)

func (t *Translator) translateCamera(obj *scene.Object) error {
	cam := obj.Camera
	if cam == nil {
		return errors.Errorf("Camera object without camera data")
	}
	c := m3g.NewCamera(obj.Name)
	switch cam.Projection {
	case scene.ProjectionOrthographic:
		c.ProjectionType = m3g.ProjectionParallel
		c.FovY = cam.OrthoHeight
	default:
		c.ProjectionType = m3g.ProjectionPerspective
		c.FovY = mgl32.RadToDeg(cam.YFov)
	}
	if cam.Aspect > 0 {
		c.AspectRatio = cam.Aspect
	}
	c.Near = cam.Near
	c.Far = cam.Far

	t.translateToNode(obj, c)
	t.translateObjectAction(obj, c)
	// last one wins
	t.world.ActiveCamera = c
	return nil
}

func (t *Translator) translateLight(obj *scene.Object) {
	light := obj.Light
	if light == nil {
		logger.Warningf("light %q has no light data", obj.Name)
		return
	}

	var mode byte
	switch light.Type {
	case scene.LightPoint:
		mode = m3g.LightOmni
	case scene.LightSpot:
		mode = m3g.LightSpot
	case scene.LightSun:
		mode = m3g.LightDirectional
	case scene.LightAmbient:
		mode = m3g.LightAmbient
	default:
		logger.Warningf("light %q of type %v is not supported", obj.Name, light.Type)
		return
	}

	l := m3g.NewLight(obj.Name, mode)
	l.Color = translateRGB(light.Color)
	l.Intensity = light.Energy
	if mode == m3g.LightOmni || mode == m3g.LightSpot {
		l.AttenuationConstant = 1
		if light.Distance > 0 {
			l.AttenuationLinear = 2 / light.Distance
		}
	}
	if mode == m3g.LightSpot {
		l.SpotAngle = mgl32.RadToDeg(light.SpotSize / 2)
		l.SpotExponent = light.SpotBlend * 128
	}

	t.translateToNode(obj, l)
	t.translateObjectAction(obj, l)
}

// Package javasrc writes an m3g object graph as a Java class that rebuilds
// it through the javax.microedition.m3g API.
package javasrc

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"

	"github.com/mogaika/m3g_exporter/m3g"
	"github.com/mogaika/m3g_exporter/utils"
)

type Options struct {
	ClassName string
	// Charmap of the output, nil writes UTF-8.
	Charmap *charmap.Charmap
	// ImageResource names the jar resource an image is loaded from.
	// Defaults to the object name with .png appended.
	ImageResource func(o m3g.Object) string
}

type writer struct {
	sb   strings.Builder
	list *m3g.ExportList
	opts Options
}

// Write emits the class. Objects are declared in dependency order so every
// variable exists before it is used.
func Write(out io.Writer, root *m3g.World, opts Options) error {
	if opts.ClassName == "" {
		return errors.Errorf("Class name is empty")
	}
	list, err := m3g.Prepare(root)
	if err != nil {
		return err
	}
	w := &writer{list: list, opts: opts}

	w.line(0, "import java.io.IOException;")
	w.line(0, "import javax.microedition.lcdui.Image;")
	w.line(0, "import javax.microedition.m3g.*;")
	w.line(0, "")
	w.line(0, "public final class %s {", opts.ClassName)
	w.line(1, "public static World getRoot(Canvas3D aCanvas) {")
	for _, o := range list.External {
		w.object(o)
	}
	for _, o := range list.Objects {
		w.object(o)
	}
	w.line(2, "return %s;", w.id(root))
	w.line(1, "}")
	w.line(0, "}")

	data, err := utils.EncodeString(opts.Charmap, w.sb.String())
	if err != nil {
		return errors.Wrapf(err, "Failed to encode source")
	}
	if _, err := out.Write(data); err != nil {
		return errors.Wrapf(err, "Failed to write source")
	}
	return nil
}

func (w *writer) line(tabs int, format string, args ...interface{}) {
	w.sb.WriteString(strings.Repeat("\t", tabs))
	if len(args) == 0 {
		w.sb.WriteString(format)
	} else {
		fmt.Fprintf(&w.sb, format, args...)
	}
	w.sb.WriteByte('\n')
}

func (w *writer) id(o m3g.Object) string {
	if idx := w.list.Index(o); idx != 0 {
		return "BL" + strconv.Itoa(int(idx))
	}
	return "null"
}

func float(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32) + "f"
}

func floats(vs []float32) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = float(v)
	}
	return strings.Join(parts, ", ")
}

func rgb(c m3g.ColorRGB) string {
	return fmt.Sprintf("0x00%02X%02X%02X", c[0], c[1], c[2])
}

func rgba(c m3g.ColorRGBA) string {
	return fmt.Sprintf("0x%02X%02X%02X%02X", c[3], c[0], c[1], c[2])
}

func boolean(b bool) string {
	return strconv.FormatBool(b)
}

// writeList writes values perLine to a line.
func (w *writer) writeList(values []string, perLine int) {
	for i := 0; i < len(values); i += perLine {
		end := i + perLine
		if end > len(values) {
			end = len(values)
		}
		suffix := ","
		if end == len(values) {
			suffix = ""
		}
		w.line(3, strings.Join(values[i:end], ",")+suffix)
	}
}

func (w *writer) comment(kind string, o m3g.Object) {
	name := ""
	if b := o.Base(); b != nil {
		name = strings.NewReplacer("\n", " ", "\r", " ").Replace(b.Name)
	}
	w.line(2, "")
	w.line(2, "//%s:%s", kind, name)
}

func (w *writer) object(o m3g.Object) {
	id := w.id(o)
	switch v := o.(type) {
	case *m3g.ExternalReference:
		w.comment("ExternalReference", o)
		w.image(id, m3g.FormatRGBA, v.URI)
		return
	case *m3g.Image2D:
		w.comment("Image2D", o)
		w.image(id, v.Format, w.imageResource(o))
	case *m3g.World:
		w.comment("World", o)
		w.line(2, "World %s = new World();", id)
		w.group(id, &v.Group)
		if v.Background != nil {
			w.line(2, "%s.setBackground(%s);", id, w.id(v.Background))
		}
		if v.ActiveCamera != nil {
			w.line(2, "%s.setActiveCamera(%s);", id, w.id(v.ActiveCamera))
		}
	case *m3g.Group:
		w.comment("Group", o)
		w.line(2, "Group %s = new Group();", id)
		w.group(id, v)
	case *m3g.Background:
		w.comment("Background", o)
		w.line(2, "Background %s = new Background();", id)
		w.line(2, "%s.setColor(%s);", id, rgba(v.Color))
		w.line(2, "%s.setDepthClearEnable(%s);", id, boolean(v.DepthClearEnabled))
		w.line(2, "%s.setColorClearEnable(%s);", id, boolean(v.ColorClearEnabled))
	case *m3g.Camera:
		w.comment("Camera", o)
		w.line(2, "Camera %s = new Camera();", id)
		w.node(id, &v.Node)
		w.camera(id, v)
	case *m3g.Light:
		w.comment("Light", o)
		w.line(2, "Light %s = new Light();", id)
		w.node(id, &v.Node)
		w.light(id, v)
	case *m3g.SkinnedMesh:
		w.comment("SkinnedMesh", o)
		w.mesh(id, "SkinnedMesh", &v.Mesh, ","+w.id(v.Skeleton))
		for _, t := range v.Transforms {
			w.line(2, "%s.addTransform((Node)%s,%d,%d,%d);", id, w.id(t.TransformNode), t.Weight, t.FirstVertex, t.VertexCount)
		}
	case *m3g.Mesh:
		w.comment("Mesh", o)
		w.mesh(id, "Mesh", v, "")
	case *m3g.VertexArray:
		w.comment("VertexArray", o)
		w.vertexArray(id, v)
	case *m3g.VertexBuffer:
		w.comment("VertexBuffer", o)
		w.vertexBuffer(id, v)
	case *m3g.TriangleStripArray:
		w.comment("TriangleStripArray", o)
		w.triangleStrips(id, v)
	case *m3g.Appearance:
		w.comment("Appearance", o)
		w.appearance(id, v)
	case *m3g.Material:
		w.comment("Material", o)
		w.line(2, "Material %s = new Material();", id)
		w.line(2, "%s.setColor(Material.AMBIENT, %s);", id, rgb(v.AmbientColor))
		w.line(2, "%s.setColor(Material.DIFFUSE, %s);", id, rgba(v.DiffuseColor))
		w.line(2, "%s.setColor(Material.EMISSIVE, %s);", id, rgb(v.EmissiveColor))
		w.line(2, "%s.setColor(Material.SPECULAR, %s);", id, rgb(v.SpecularColor))
		w.line(2, "%s.setShininess(%s);", id, float(v.Shininess))
		w.line(2, "%s.setVertexColorTrackingEnable(%s);", id, boolean(v.VertexColorTrackingEnabled))
	case *m3g.PolygonMode:
		w.comment("PolygonMode", o)
		w.line(2, "PolygonMode %s = new PolygonMode();", id)
		w.line(2, "%s.setCulling(%d);", id, v.Culling)
		w.line(2, "%s.setShading(%d);", id, v.Shading)
		w.line(2, "%s.setWinding(%d);", id, v.Winding)
		w.line(2, "%s.setTwoSidedLightingEnable(%s);", id, boolean(v.TwoSidedLightingEnabled))
		w.line(2, "%s.setLocalCameraLightingEnable(%s);", id, boolean(v.LocalCameraLightingEnabled))
		w.line(2, "%s.setPerspectiveCorrectionEnable(%s);", id, boolean(v.PerspectiveCorrectionEnabled))
	case *m3g.CompositingMode:
		w.comment("CompositingMode", o)
		w.line(2, "CompositingMode %s = new CompositingMode();", id)
		w.line(2, "%s.setBlending(%d);", id, v.Blending)
		w.line(2, "%s.setAlphaThreshold(%s);", id, float(float32(v.AlphaThreshold)/255))
		w.line(2, "%s.setDepthTestEnable(%s);", id, boolean(v.DepthTestEnabled))
		w.line(2, "%s.setDepthWriteEnable(%s);", id, boolean(v.DepthWriteEnabled))
		w.line(2, "%s.setColorWriteEnable(%s);", id, boolean(v.ColorWriteEnabled))
		w.line(2, "%s.setAlphaWriteEnable(%s);", id, boolean(v.AlphaWriteEnabled))
		w.line(2, "%s.setDepthOffset(%s, %s);", id, float(v.DepthOffsetFactor), float(v.DepthOffsetUnits))
	case *m3g.Fog:
		w.comment("Fog", o)
		w.line(2, "Fog %s = new Fog();", id)
		w.line(2, "%s.setMode(%d);", id, v.Mode)
		w.line(2, "%s.setColor(%s);", id, rgb(v.Color))
		if v.Mode == m3g.FogExponential {
			w.line(2, "%s.setDensity(%s);", id, float(v.Density))
		} else {
			w.line(2, "%s.setLinear(%s, %s);", id, float(v.Near), float(v.Far))
		}
	case *m3g.Texture2D:
		w.comment("Texture2D", o)
		w.line(2, "Texture2D %s = new Texture2D((Image2D)%s);", id, w.id(v.Image))
		w.line(2, "%s.setFiltering(%d,%d);", id, v.LevelFilter, v.ImageFilter)
		w.line(2, "%s.setWrapping(%d,%d);", id, v.WrappingS, v.WrappingT)
		w.line(2, "%s.setBlending(%d);", id, v.Blending)
		w.line(2, "%s.setBlendColor(%s);", id, rgb(v.BlendColor))
		w.transformable(id, &v.Transformable)
	case *m3g.AnimationController:
		w.comment("AnimationController", o)
		w.line(2, "AnimationController %s = new AnimationController();", id)
		w.line(2, "%s.setActiveInterval(%d, %d);", id, v.ActiveIntervalStart, v.ActiveIntervalEnd)
		w.line(2, "%s.setSpeed(%s, %d);", id, float(v.Speed), v.ReferenceWorldTime)
		w.line(2, "%s.setWeight(%s);", id, float(v.Weight))
		w.line(2, "%s.setPosition(%s, %d);", id, float(v.ReferenceSequenceTime), v.ReferenceWorldTime)
	case *m3g.AnimationTrack:
		w.comment("AnimationTrack", o)
		w.line(2, "AnimationTrack %s = new AnimationTrack(%s,%d);", id, w.id(v.KeyframeSequence), v.PropertyID)
		if v.Controller != nil {
			w.line(2, "%s.setController(%s);", id, w.id(v.Controller))
		}
	case *m3g.KeyframeSequence:
		w.comment("KeyframeSequence", o)
		w.keyframes(id, v)
	default:
		w.line(2, "// %s %s is not supported", m3g.TypeName(o.ObjectType()), id)
		return
	}
	w.object3D(id, o.Base())
}

func (w *writer) object3D(id string, base *m3g.Object3D) {
	if base == nil {
		return
	}
	if base.UserID != 0 {
		w.line(2, "%s.setUserID(%d);", id, base.UserID)
	}
	for _, t := range base.AnimationTracks {
		w.line(2, "%s.addAnimationTrack(%s);", id, w.id(t))
	}
}

func (w *writer) transformable(id string, t *m3g.Transformable) {
	if t.HasComponentTransform {
		w.line(2, "%s.setTranslation(%s);", id, floats(t.Translation[:]))
		w.line(2, "%s.setScale(%s);", id, floats(t.Scale[:]))
		w.line(2, "%s.setOrientation(%s, %s);", id, float(t.OrientationAngle), floats(t.OrientationAxis[:]))
	}
	if t.HasGeneralTransform {
		elements := make([]string, 16)
		for r := 0; r < 4; r++ {
			for c := 0; c < 4; c++ {
				elements[r*4+c] = float(t.Transform.At(r, c))
			}
		}
		w.line(2, "float[] %s_matrix = {", id)
		w.writeList(elements, 4)
		w.line(2, "};")
		w.line(2, "Transform %s_transform = new Transform();", id)
		w.line(2, "%s_transform.set(%s_matrix);", id, id)
		w.line(2, "%s.setTransform(%s_transform);", id, id)
	}
}

func (w *writer) node(id string, n *m3g.Node) {
	if !n.RenderingEnabled {
		w.line(2, "%s.setRenderingEnable(false);", id)
	}
	if !n.PickingEnabled {
		w.line(2, "%s.setPickingEnable(false);", id)
	}
	if n.AlphaFactor != 255 {
		w.line(2, "%s.setAlphaFactor(%s);", id, float(float32(n.AlphaFactor)/255))
	}
	if n.Scope != 0xffffffff {
		w.line(2, "%s.setScope(%d);", id, int32(n.Scope))
	}
	if n.HasAlignment {
		w.line(2, "%s.setAlignment(%s,%d,%s,%d);", id, w.id(n.ZReference), n.ZTarget, w.id(n.YReference), n.YTarget)
	}
	w.transformable(id, &n.Transformable)
}

func (w *writer) group(id string, g *m3g.Group) {
	w.node(id, &g.Node)
	for _, child := range g.Children {
		w.line(2, "%s.addChild((Node)%s);", id, w.id(child))
	}
}

func (w *writer) camera(id string, c *m3g.Camera) {
	switch c.ProjectionType {
	case m3g.ProjectionGeneric:
		w.line(2, "Transform %s_projection = new Transform();", id)
		w.line(2, "%s_projection.set(new float[] {%s});", id, floats(c.Projection[:]))
		w.line(2, "%s.setGeneric(%s_projection);", id, id)
	case m3g.ProjectionParallel:
		w.line(2, "%s.setParallel(%s,", id, float(c.FovY))
		w.line(4, "(float)aCanvas.getWidth()/(float)aCanvas.getHeight(),")
		w.line(4, "%s, %s);", float(c.Near), float(c.Far))
	default:
		w.line(2, "%s.setPerspective(%s, //Field of View", id, float(c.FovY))
		w.line(4, "(float)aCanvas.getWidth()/(float)aCanvas.getHeight(),")
		w.line(4, "%s, //Near Clipping Plane", float(c.Near))
		w.line(4, "%s); //Far Clipping Plane", float(c.Far))
	}
}

func (w *writer) light(id string, l *m3g.Light) {
	w.line(2, "%s.setMode(%d);", id, l.Mode)
	if l.Mode == m3g.LightOmni || l.Mode == m3g.LightSpot {
		w.line(2, "%s.setAttenuation(%s, %s, %s);", id,
			float(l.AttenuationConstant), float(l.AttenuationLinear), float(l.AttenuationQuadratic))
	}
	w.line(2, "%s.setColor(%s);", id, rgb(l.Color))
	w.line(2, "%s.setIntensity(%s);", id, float(l.Intensity))
	if l.Mode == m3g.LightSpot {
		w.line(2, "%s.setSpotAngle(%s);", id, float(l.SpotAngle))
		w.line(2, "%s.setSpotExponent(%s);", id, float(l.SpotExponent))
	}
}

func (w *writer) mesh(id, class string, m *m3g.Mesh, extra string) {
	if len(m.Submeshes) == 1 {
		s := m.Submeshes[0]
		w.line(2, "%s %s = new %s(%s,%s,%s%s);", class, id, class,
			w.id(m.VertexBuffer), w.id(s.IndexBuffer), w.id(s.Appearance), extra)
	} else {
		indices := make([]string, len(m.Submeshes))
		appearances := make([]string, len(m.Submeshes))
		for i, s := range m.Submeshes {
			indices[i] = w.id(s.IndexBuffer)
			appearances[i] = w.id(s.Appearance)
		}
		w.line(2, "IndexBuffer[] %s_indexArray = {%s};", id, strings.Join(indices, ","))
		w.line(2, "Appearance[] %s_appearanceArray = {%s};", id, strings.Join(appearances, ","))
		w.line(2, "%s %s = new %s(%s,%s_indexArray,%s_appearanceArray%s);", class, id, class,
			w.id(m.VertexBuffer), id, id, extra)
	}
	w.node(id, &m.Node)
}

func (w *writer) vertexArray(id string, va *m3g.VertexArray) {
	kind := "short"
	if va.ComponentSize == 1 {
		kind = "byte"
	}
	values := make([]string, len(va.Components))
	for i, c := range va.Components {
		values[i] = strconv.Itoa(int(c))
	}
	w.line(2, "%s[] %s_array = {", kind, id)
	w.writeList(values, 12)
	w.line(2, "};")
	w.line(2, "VertexArray %s = new VertexArray(%s_array.length/%d,%d,%d);",
		id, id, va.ComponentCount, va.ComponentCount, va.ComponentSize)
	w.line(2, "%s.set(0,%s_array.length/%d,%s_array);", id, id, va.ComponentCount, id)
}

func (w *writer) vertexBuffer(id string, vb *m3g.VertexBuffer) {
	w.line(2, "VertexBuffer %s = new VertexBuffer();", id)
	w.line(2, "%s.setDefaultColor(%s);", id, rgba(vb.DefaultColor))
	if vb.Positions != nil {
		w.line(2, "float %s_Bias[] = {%s};", id, floats(vb.PositionBias[:]))
		w.line(2, "%s.setPositions(%s,%s,%s_Bias);", id, w.id(vb.Positions), float(vb.PositionScale), id)
	}
	if vb.Normals != nil {
		w.line(2, "%s.setNormals(%s);", id, w.id(vb.Normals))
	}
	if vb.Colors != nil {
		w.line(2, "%s.setColors(%s);", id, w.id(vb.Colors))
	}
	for i, tc := range vb.TexCoords {
		w.line(2, "float %s_%d_TexBias[] = {%s};", id, i, floats(tc.Bias[:]))
		w.line(2, "%s.setTexCoords(%d,%s,%s,%s_%d_TexBias);", id, i, w.id(tc.Array), float(tc.Scale), id, i)
	}
}

func (w *writer) triangleStrips(id string, ts *m3g.TriangleStripArray) {
	lengths := make([]string, len(ts.StripLengths))
	for i, l := range ts.StripLengths {
		lengths[i] = strconv.Itoa(int(l))
	}
	indices := make([]string, len(ts.Indices))
	for i, idx := range ts.Indices {
		indices[i] = strconv.Itoa(int(idx))
	}
	w.line(2, "int[] %s_stripLength = {%s};", id, strings.Join(lengths, ","))
	w.line(2, "int[] %s_Indices = {", id)
	w.writeList(indices, 12)
	w.line(2, "};")
	w.line(2, "IndexBuffer %s = new TriangleStripArray(%s_Indices,%s_stripLength);", id, id, id)
}

func (w *writer) appearance(id string, a *m3g.Appearance) {
	w.line(2, "Appearance %s = new Appearance();", id)
	if a.Layer != 0 {
		w.line(2, "%s.setLayer(%d);", id, a.Layer)
	}
	if a.CompositingMode != nil {
		w.line(2, "%s.setCompositingMode(%s);", id, w.id(a.CompositingMode))
	}
	if a.Fog != nil {
		w.line(2, "%s.setFog(%s);", id, w.id(a.Fog))
	}
	if a.PolygonMode != nil {
		w.line(2, "%s.setPolygonMode(%s);", id, w.id(a.PolygonMode))
	}
	if a.Material != nil {
		w.line(2, "%s.setMaterial(%s);", id, w.id(a.Material))
	}
	for i, t := range a.Textures {
		w.line(2, "%s.setTexture(%d,%s);", id, i, w.id(t))
	}
}

func (w *writer) imageResource(o m3g.Object) string {
	if w.opts.ImageResource != nil {
		return w.opts.ImageResource(o)
	}
	return o.Base().Name + ".png"
}

func (w *writer) image(id string, format byte, resource string) {
	w.line(2, "Image %s_Image = null;", id)
	w.line(2, "try {")
	w.line(3, "%s_Image = Image.createImage(%s);", id, strconv.Quote("/"+resource))
	w.line(2, "} catch (IOException e) {")
	w.line(3, "e.printStackTrace();")
	w.line(2, "}")
	w.line(2, "Image2D %s = new Image2D(%d,%s_Image);", id, format, id)
}

func (w *writer) keyframes(id string, ks *m3g.KeyframeSequence) {
	w.line(2, "KeyframeSequence %s = new KeyframeSequence(%d, %d, %d);", id, len(ks.Keyframes), ks.ComponentCount, ks.Interpolation)
	for i, kf := range ks.Keyframes {
		w.line(2, "%s.setKeyframe(%d,%d, new float[] {%s});", id, i, kf.Time, floats(m3g.CleanValues(kf.Value)))
	}
	if len(ks.Keyframes) != 0 {
		w.line(2, "%s.setValidRange(%d,%d);", id, ks.ValidRangeFirst, ks.ValidRangeLast)
	}
	w.line(2, "%s.setDuration(%d);", id, ks.Duration)
	w.line(2, "%s.setRepeatMode(%d);", id, ks.RepeatMode)
}

package exporter

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/m3g_exporter/config"
	"github.com/mogaika/m3g_exporter/log"
	"github.com/mogaika/m3g_exporter/m3g"
	"github.com/mogaika/m3g_exporter/scene"
	"github.com/mogaika/m3g_exporter/utils"
)

var logger = log.New("exporter")

// Reporter receives progress while objects are translated.
type Reporter interface {
	Progress(done, total int, what string)
}

type nodeLink struct {
	obj  *scene.Object
	node m3g.Object
	// parent is the closest translated ancestor, nil for world children.
	parent *scene.Object
}

// Translator converts a scene into an m3g object graph rooted at a World.
// A translator is good for one scene.
type Translator struct {
	opts        config.Options
	scene       *scene.Scene
	world       *m3g.World
	links       []*nodeLink
	byObject    map[*scene.Object]*nodeLink
	images      *imageFactory
	appearances map[appearanceKey]*m3g.Appearance
	controllers map[*scene.Action]*m3g.AnimationController
	names       utils.RandomNameGenerator
	reporter    Reporter
}

func NewTranslator(s *scene.Scene, opts config.Options, reporter Reporter) *Translator {
	return &Translator{
		opts:        opts,
		scene:       s,
		byObject:    make(map[*scene.Object]*nodeLink),
		images:      newImageFactory(opts),
		appearances: make(map[appearanceKey]*m3g.Appearance),
		controllers: make(map[*scene.Action]*m3g.AnimationController),
		reporter:    reporter,
	}
}

// Images lists every image the graph references, for writers that need the files.
func (t *Translator) Images() map[m3g.Object]*scene.Image {
	return t.images.sources
}

func (t *Translator) Translate() (*m3g.World, error) {
	if t.world != nil {
		return nil, errors.Errorf("Scene %q already translated", t.scene.Name)
	}
	for _, o := range t.scene.Objects {
		if o.Name != "" {
			t.names.Reserve(o.Name)
		}
	}

	t.translateWorld()

	total := len(t.scene.Objects)
	for i, obj := range t.scene.Objects {
		if obj.Name == "" {
			obj.Name = t.names.RandomName()
		}
		if t.reporter != nil {
			t.reporter.Progress(i, total, obj.Name)
		}

		var err error
		switch obj.Type {
		case scene.ObjectCamera:
			err = t.translateCamera(obj)
		case scene.ObjectMesh:
			err = t.translateMesh(obj)
		case scene.ObjectLight:
			if t.opts.LightingEnabled {
				t.translateLight(obj)
			}
		case scene.ObjectEmpty:
			t.translateEmpty(obj)
		case scene.ObjectArmature:
			logger.Debugf("armature %q is exported through its skinned meshes", obj.Name)
		default:
			logger.Warningf("could not translate %q of type %v", obj.Name, obj.Type)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "Object %q", obj.Name)
		}
	}
	if t.reporter != nil {
		t.reporter.Progress(total, total, "parenting")
	}

	if err := t.translateParenting(); err != nil {
		return nil, err
	}
	return t.world, nil
}

func (t *Translator) translateWorld() {
	t.world = m3g.NewWorld(t.scene.Name)
	t.world.Background = m3g.NewBackground()

	w := t.scene.World
	if w == nil {
		return
	}
	t.world.Background.Color = translateRGBA(w.Color, 0)
	if t.opts.CreateAmbientLight && t.opts.LightingEnabled {
		color := w.AmbientColor
		if color == ([3]float32{}) {
			color = w.Color
		}
		light := m3g.NewLight("ambient", m3g.LightAmbient)
		light.Color = translateRGB(color)
		t.world.AddChild(light)
	}
}

func (t *Translator) translateEmpty(obj *scene.Object) {
	g := m3g.NewGroup(obj.Name)
	t.translateToNode(obj, g)
	t.translateObjectAction(obj, g)
}

// translateCore fills what every exported node shares.
func (t *Translator) translateCore(obj *scene.Object, base *m3g.Object3D) {
	base.Name = obj.Name
	base.UserID = ParseUserID(obj.Name)
	if len(obj.Properties) != 0 {
		ids := make([]uint32, 0, len(obj.Properties))
		for id := range obj.Properties {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			base.UserParameters = append(base.UserParameters, m3g.UserParameter{ID: id, Value: []byte(obj.Properties[id])})
		}
	}
}

func (t *Translator) translateToNode(obj *scene.Object, node m3g.Object) {
	t.translateCore(obj, node.Base())
	link := &nodeLink{obj: obj, node: node, parent: obj.Parent}
	t.links = append(t.links, link)
	t.byObject[obj] = link
}

// exportParent skips armatures and objects that produced no node.
func (t *Translator) exportParent(obj *scene.Object) *scene.Object {
	for p := obj.Parent; p != nil; p = p.Parent {
		if p.Type == scene.ObjectArmature {
			continue
		}
		if _, ok := t.byObject[p]; ok {
			return p
		}
	}
	return nil
}

func (t *Translator) translateParenting() error {
	// nodes that can not hold children get wrapped into a pivot group
	containers := make(map[*scene.Object]*m3g.Group)
	for _, link := range t.links {
		link.parent = t.exportParent(link.obj)
		if link.parent == nil {
			continue
		}
		if _, ok := t.byObject[link.parent].node.(*m3g.Group); ok {
			continue
		}
		if _, done := containers[link.parent]; !done {
			containers[link.parent] = t.pivot(t.byObject[link.parent])
		}
	}

	for _, link := range t.links {
		node := m3g.AsNode(link.node)
		if node == nil {
			return errors.Errorf("%q is not a node", link.obj.Name)
		}
		local := link.obj.MatrixWorld
		if link.parent != nil {
			local = link.parent.MatrixWorld.Inv().Mul4(link.obj.MatrixWorld)
		}
		target := node
		if pivot, ok := containers[link.obj]; ok {
			target = m3g.AsNode(pivot)
		}
		applyTransform(&target.Transformable, local, len(target.AnimationTracks) != 0)

		attachTo := &t.world.Group
		if link.parent != nil {
			if pivot, ok := containers[link.parent]; ok {
				attachTo = pivot
			} else {
				attachTo = t.byObject[link.parent].node.(*m3g.Group)
			}
		}
		if pivot, ok := containers[link.obj]; ok {
			attachTo.AddChild(pivot)
		} else {
			attachTo.AddChild(link.node)
		}
	}
	return nil
}

// pivot creates the group that takes over transform and animation of a leaf node.
func (t *Translator) pivot(link *nodeLink) *m3g.Group {
	node := m3g.AsNode(link.node)
	g := m3g.NewGroup(link.obj.Name + "_pivot")
	g.UserID = node.UserID
	g.AnimationTracks = node.AnimationTracks
	node.AnimationTracks = nil
	g.AddChild(link.node)
	return g
}

// applyTransform uses the general matrix for static nodes. Animated nodes get
// components instead, because animation tracks replace components but
// would be combined with a general matrix.
func applyTransform(tr *m3g.Transformable, local mgl32.Mat4, animated bool) {
	if animated {
		translation, rotation, scale := utils.Decompose(local)
		tr.SetComponents(translation, rotation, scale)
		tr.HasGeneralTransform = false
		return
	}
	tr.SetTransform(local)
}

func translateRGB(c [3]float32) m3g.ColorRGB {
	return m3g.ColorRGB{utils.FloatToByte(c[0]), utils.FloatToByte(c[1]), utils.FloatToByte(c[2])}
}

func translateRGBA(c [3]float32, alpha float32) m3g.ColorRGBA {
	return m3g.ColorRGBA{utils.FloatToByte(c[0]), utils.FloatToByte(c[1]), utils.FloatToByte(c[2]), utils.FloatToByte(alpha)}
}

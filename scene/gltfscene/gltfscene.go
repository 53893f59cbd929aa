// Package gltfscene builds an intermediate scene from glTF 2.0 documents.
package gltfscene

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"

	"github.com/mogaika/m3g_exporter/log"
	"github.com/mogaika/m3g_exporter/scene"
)

var logger = log.New("gltfscene")

type joint struct {
	armature *scene.Object
	bone     *scene.Bone
	skin     uint32
}

type importer struct {
	doc *gltf.Document
	dir string
	s   *scene.Scene

	parents []int
	worlds  []*mgl32.Mat4

	objects   map[uint32]*scene.Object
	joints    map[uint32]*joint
	armatures map[uint32]*scene.Object
	// armature parents are resolved once node objects exist
	armatureParents map[*scene.Object]int

	meshes    map[[2]int]*scene.Mesh
	materials map[uint32]*scene.Material
	textures  map[uint32]*scene.Texture
	images    map[uint32]*scene.Image

	defaultMat *scene.Material
}

// Load reads a .gltf or .glb file. Images referenced by uri are resolved
// relative to the file.
func Load(path string) (*scene.Scene, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to open %q", path)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return FromDocument(doc, name, filepath.Dir(path))
}

// FromDocument converts an already decoded document.
func FromDocument(doc *gltf.Document, name, dir string) (*scene.Scene, error) {
	imp := &importer{
		doc:       doc,
		dir:       dir,
		s:         scene.NewScene(name),
		parents:   make([]int, len(doc.Nodes)),
		worlds:    make([]*mgl32.Mat4, len(doc.Nodes)),
		objects:   make(map[uint32]*scene.Object),
		joints:    make(map[uint32]*joint),
		armatures: make(map[uint32]*scene.Object),

		armatureParents: make(map[*scene.Object]int),

		meshes:    make(map[[2]int]*scene.Mesh),
		materials: make(map[uint32]*scene.Material),
		textures:  make(map[uint32]*scene.Texture),
		images:    make(map[uint32]*scene.Image),
	}
	for i := range imp.parents {
		imp.parents[i] = -1
	}
	for i, node := range doc.Nodes {
		for _, child := range node.Children {
			if int(child) >= len(doc.Nodes) {
				return nil, errors.Errorf("Node %d has child %d out of range", i, child)
			}
			imp.parents[child] = i
		}
	}

	for iSkin := range doc.Skins {
		if err := imp.importSkin(uint32(iSkin)); err != nil {
			return nil, errors.Wrapf(err, "Skin %d", iSkin)
		}
	}
	for _, iNode := range imp.roots() {
		if err := imp.importNode(iNode); err != nil {
			return nil, err
		}
	}
	for armObj, parent := range imp.armatureParents {
		if parent >= 0 {
			armObj.Parent = imp.objects[uint32(parent)]
		}
	}
	if err := imp.importAnimations(); err != nil {
		return nil, err
	}

	logger.Infof("loaded %s", strings.TrimSpace(imp.s.Stats()))
	return imp.s, nil
}

// roots returns the nodes of the default scene, or every parentless node
// when the document has no scenes.
func (imp *importer) roots() []uint32 {
	if len(imp.doc.Scenes) != 0 {
		iScene := uint32(0)
		if imp.doc.Scene != nil && int(*imp.doc.Scene) < len(imp.doc.Scenes) {
			iScene = *imp.doc.Scene
		}
		return imp.doc.Scenes[iScene].Nodes
	}
	result := make([]uint32, 0)
	for i, parent := range imp.parents {
		if parent < 0 {
			result = append(result, uint32(i))
		}
	}
	return result
}

func nodeName(node *gltf.Node, index uint32, prefix string) string {
	if node.Name != "" {
		return node.Name
	}
	return fmt.Sprintf("%s%d", prefix, index)
}

func localMatrix(node *gltf.Node) mgl32.Mat4 {
	if m := node.MatrixOrDefault(); m != gltf.DefaultMatrix {
		return mgl32.Mat4(m)
	}
	t := node.TranslationOrDefault()
	r := node.RotationOrDefault()
	s := node.ScaleOrDefault()
	rotation := mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}}
	return mgl32.Translate3D(t[0], t[1], t[2]).
		Mul4(rotation.Normalize().Mat4()).
		Mul4(mgl32.Scale3D(s[0], s[1], s[2]))
}

func (imp *importer) world(iNode int) mgl32.Mat4 {
	if iNode < 0 {
		return mgl32.Ident4()
	}
	if imp.worlds[iNode] == nil {
		m := imp.world(imp.parents[iNode]).Mul4(localMatrix(imp.doc.Nodes[iNode]))
		imp.worlds[iNode] = &m
	}
	return *imp.worlds[iNode]
}

// parentObject finds the object of the closest ancestor that has one.
// Nodes below a joint are attached to the armature.
func (imp *importer) parentObject(iNode uint32) *scene.Object {
	for p := imp.parents[iNode]; p >= 0; p = imp.parents[p] {
		if j, ok := imp.joints[uint32(p)]; ok {
			return j.armature
		}
		if o, ok := imp.objects[uint32(p)]; ok {
			return o
		}
	}
	return nil
}

func (imp *importer) importNode(iNode uint32) error {
	if _, ok := imp.objects[iNode]; ok {
		return errors.Errorf("Node %d is reachable twice", iNode)
	}
	node := imp.doc.Nodes[iNode]

	if _, isJoint := imp.joints[iNode]; !isJoint {
		o := &scene.Object{
			Name:        nodeName(node, iNode, "node"),
			Type:        scene.ObjectEmpty,
			Parent:      imp.parentObject(iNode),
			MatrixWorld: imp.world(int(iNode)),
			Properties:  userProperties(node.Extras),
		}
		if err := imp.fillObject(o, node); err != nil {
			return errors.Wrapf(err, "Node %q", o.Name)
		}
		imp.objects[iNode] = o
		imp.s.AddObject(o)
	}

	for _, child := range node.Children {
		if err := imp.importNode(child); err != nil {
			return err
		}
	}
	return nil
}

func (imp *importer) fillObject(o *scene.Object, node *gltf.Node) error {
	switch {
	case node.Mesh != nil:
		skin := -1
		if node.Skin != nil {
			skin = int(*node.Skin)
		}
		mesh, err := imp.importMesh(*node.Mesh, skin)
		if err != nil {
			return err
		}
		o.Type = scene.ObjectMesh
		o.Mesh = mesh
		if skin >= 0 {
			// skinned vertices are in bind space, the mesh node transform is ignored
			arm := imp.armatures[uint32(skin)]
			o.Parent = arm
			o.MatrixWorld = arm.MatrixWorld
		}
	case node.Camera != nil:
		camera, err := imp.importCamera(*node.Camera)
		if err != nil {
			return err
		}
		o.Type = scene.ObjectCamera
		o.Camera = camera
	default:
		light, err := imp.importLight(node)
		if err != nil {
			return err
		}
		if light != nil {
			o.Type = scene.ObjectLight
			o.Light = light
		}
	}
	return nil
}

// importSkin creates an armature object for a skin. Bone rest matrices come
// from the joint node transforms.
func (imp *importer) importSkin(iSkin uint32) error {
	skin := imp.doc.Skins[iSkin]
	if len(skin.Joints) == 0 {
		return errors.Errorf("No joints")
	}
	inSkin := make(map[uint32]bool, len(skin.Joints))
	for _, j := range skin.Joints {
		if int(j) >= len(imp.doc.Nodes) {
			return errors.Errorf("Joint %d out of range", j)
		}
		inSkin[j] = true
	}

	root := skin.Joints[0]
	if skin.Skeleton != nil {
		root = *skin.Skeleton
	}
	for p := imp.parents[root]; p >= 0 && inSkin[uint32(p)]; p = imp.parents[p] {
		root = uint32(p)
	}
	armatureParent := imp.parents[root]

	name := skin.Name
	if name == "" {
		name = fmt.Sprintf("Armature%d", iSkin)
	}
	armWorld := imp.world(armatureParent)
	armObj := &scene.Object{
		Name:        name,
		Type:        scene.ObjectArmature,
		MatrixWorld: armWorld,
		Armature:    &scene.Armature{Name: name},
	}
	imp.armatures[iSkin] = armObj
	imp.armatureParents[armObj] = armatureParent
	imp.s.AddObject(armObj)

	armInv := armWorld.Inv()
	var addJoint func(j uint32) *scene.Bone
	addJoint = func(j uint32) *scene.Bone {
		if existing, ok := imp.joints[j]; ok {
			if existing.armature == armObj {
				return existing.bone
			}
			logger.Warningf("joint %d is shared by skins %d and %d, keeping the first", j, existing.skin, iSkin)
			return nil
		}
		var parent *scene.Bone
		if p := imp.parents[j]; p >= 0 && inSkin[uint32(p)] {
			parent = addJoint(uint32(p))
		}
		bone := armObj.Armature.AddBone(nodeName(imp.doc.Nodes[j], j, "bone"), parent, armInv.Mul4(imp.world(int(j))))
		imp.joints[j] = &joint{armature: armObj, bone: bone, skin: iSkin}
		return bone
	}
	for _, j := range skin.Joints {
		addJoint(j)
	}
	return nil
}

// userProperties keeps numeric extras keys as user parameters.
func userProperties(extras interface{}) map[uint32]string {
	m, ok := extras.(map[string]interface{})
	if !ok {
		return nil
	}
	result := make(map[uint32]string)
	for k, value := range m {
		id, err := strconv.ParseUint(k, 10, 32)
		if err != nil {
			continue
		}
		switch v := value.(type) {
		case string:
			result[uint32(id)] = v
		case float64:
			if v == math.Trunc(v) {
				result[uint32(id)] = strconv.FormatInt(int64(v), 10)
			} else {
				result[uint32(id)] = strconv.FormatFloat(v, 'g', -1, 32)
			}
		default:
			result[uint32(id)] = fmt.Sprint(v)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

package exporter

import (
	"math"

	"github.com/mogaika/m3g_exporter/m3g"
	"github.com/mogaika/m3g_exporter/scene"
)

type boneNodes struct {
	bone *scene.Bone
	// rest holds the rest pose, second carries animation and vertices.
	rest   *m3g.Group
	second *m3g.Group
}

// translateArmature builds the skeleton of a mesh deformed by armObj and
// binds the vertices collected by builder to its bones.
func (t *Translator) translateArmature(armObj, meshObj *scene.Object, vb *m3g.VertexBuffer, builder *vertexBuilder) (*m3g.SkinnedMesh, error) {
	arm := armObj.Armature

	skeleton := m3g.NewGroup(armObj.Name)
	skeleton.UserID = ParseUserID(armObj.Name)
	skeleton.SetTransform(meshObj.MatrixWorld.Inv().Mul4(armObj.MatrixWorld))

	nodes := make(map[*scene.Bone]*boneNodes, len(arm.Bones))
	ordered := make([]*boneNodes, 0, len(arm.Bones))
	var addBone func(b *scene.Bone, parent *m3g.Group)
	addBone = func(b *scene.Bone, parent *m3g.Group) {
		bn := &boneNodes{
			bone:   b,
			rest:   m3g.NewGroup(b.Name),
			second: m3g.NewGroup(b.Name + "_second"),
		}
		bn.rest.SetTransform(b.RelativeMatrix())
		bn.rest.AddChild(bn.second)
		parent.AddChild(bn.rest)
		nodes[b] = bn
		ordered = append(ordered, bn)
		for _, child := range b.Children {
			addBone(child, bn.second)
		}
	}
	for _, root := range arm.Roots() {
		addBone(root, skeleton)
	}

	skinned := m3g.NewSkinnedMesh(meshObj.Name, vb, skeleton)
	t.bindVertices(skinned, meshObj.Mesh, ordered, builder)
	t.translateBoneActions(armObj, ordered)
	return skinned, nil
}

// bindVertices adds one transform reference per run of consecutive vertices
// sharing a bone and a weight.
func (t *Translator) bindVertices(skinned *m3g.SkinnedMesh, mesh *scene.Mesh, bones []*boneNodes, builder *vertexBuilder) {
	unbound := 0
	weights := make([]map[int]int32, len(builder.sources))
	for i, src := range builder.sources {
		for _, gw := range mesh.Vertices[src].Groups {
			w := int32(math.Round(float64(gw.Weight) * 255))
			if w <= 0 || gw.Group < 0 || gw.Group >= len(mesh.VertexGroups) {
				continue
			}
			if weights[i] == nil {
				weights[i] = make(map[int]int32)
			}
			weights[i][gw.Group] += w
		}
		if weights[i] == nil {
			unbound++
		}
	}
	if unbound != 0 {
		logger.Warningf("mesh %q: %d vertices are not bound to any bone", mesh.Name, unbound)
	}

	for _, bn := range bones {
		group := mesh.VertexGroupIndex(bn.bone.Name)
		if group < 0 {
			continue
		}
		first, count := 0, 0
		var weight int32
		flush := func() {
			if count != 0 {
				skinned.AddTransform(bn.second, weight, uint32(first), uint32(count))
			}
			count = 0
		}
		for i := range builder.sources {
			w := weights[i][group]
			if w == 0 {
				flush()
				continue
			}
			if count != 0 && w == weight {
				count++
				continue
			}
			flush()
			first, count, weight = i, 1, w
		}
		flush()
	}
}

// translateBoneActions gives the armature action full weight. Other actions
// naming this armature are added with weight 0 when all actions are exported.
func (t *Translator) translateBoneActions(armObj *scene.Object, bones []*boneNodes) {
	type weighted struct {
		action *scene.Action
		weight float32
		userID uint32
		end    int
	}
	actions := make([]weighted, 0)
	if armObj.Action != nil {
		end := t.scene.FrameEnd
		if _, e, _, ok := ParseActionName(armObj.Action.Name); ok {
			end = e
		}
		actions = append(actions, weighted{armObj.Action, 1, ParseUserID(armObj.Action.Name), end})
	}
	if t.opts.ExportAllActions {
		armatureID := ParseUserID(armObj.Name)
		for _, action := range t.scene.Actions {
			if action == armObj.Action {
				continue
			}
			id, end, actionID, ok := ParseActionName(action.Name)
			if !ok || id != armatureID {
				continue
			}
			actions = append(actions, weighted{action, 0, actionID, end})
		}
	}

	for _, wa := range actions {
		ctrl := t.controller(wa.action, wa.weight, wa.userID)
		for _, bn := range bones {
			name := bn.bone.Name
			action := wa.action
			find := func(dataPath string, index int) *scene.FCurve {
				return action.FindBone(name, dataPath, index)
			}
			if err := t.addTransformTracks(bn.second.Base(), find, restPose(), ctrl, wa.end); err != nil {
				logger.Errorf("action %q of bone %q not exported: %v", wa.action.Name, name, err)
			}
		}
	}
}

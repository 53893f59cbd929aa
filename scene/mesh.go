package scene

import (
	"github.com/go-gl/mathgl/mgl32"
)

type GroupWeight struct {
	Group  int
	Weight float32
}

type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	Groups   []GroupWeight
}

// Face is a polygon. UVs and Colors hold one entry per corner when present.
type Face struct {
	Vertices []int
	UVs      []mgl32.Vec2
	Colors   []mgl32.Vec4
	Normal   mgl32.Vec3
	Smooth   bool
	Material int
}

type Mesh struct {
	Name      string
	Vertices  []Vertex
	Faces     []Face
	Materials []*Material
	// VertexGroups are named after the bones that deform them.
	VertexGroups []string
	DoubleSided  bool
}

func (m *Mesh) HasUVs() bool {
	for _, f := range m.Faces {
		if len(f.UVs) != 0 {
			return true
		}
	}
	return false
}

func (m *Mesh) HasColors() bool {
	for _, f := range m.Faces {
		if len(f.Colors) != 0 {
			return true
		}
	}
	return false
}

func (m *Mesh) VertexGroupIndex(name string) int {
	for i, g := range m.VertexGroups {
		if g == name {
			return i
		}
	}
	return -1
}

// CalcFaceNormals fills face normals from the first three corners (counter clockwise front).
func (m *Mesh) CalcFaceNormals() {
	for i := range m.Faces {
		f := &m.Faces[i]
		if len(f.Vertices) < 3 {
			continue
		}
		a := m.Vertices[f.Vertices[0]].Position
		b := m.Vertices[f.Vertices[1]].Position
		c := m.Vertices[f.Vertices[2]].Position
		n := b.Sub(a).Cross(c.Sub(a))
		if n.Len() > 0 {
			f.Normal = n.Normalize()
		}
	}
}

// CalcVertexNormals averages face normals into vertices that have none.
func (m *Mesh) CalcVertexNormals() {
	sums := make([]mgl32.Vec3, len(m.Vertices))
	for _, f := range m.Faces {
		for _, vi := range f.Vertices {
			sums[vi] = sums[vi].Add(f.Normal)
		}
	}
	for i := range m.Vertices {
		if m.Vertices[i].Normal.Len() == 0 && sums[i].Len() > 0 {
			m.Vertices[i].Normal = sums[i].Normalize()
		}
	}
}

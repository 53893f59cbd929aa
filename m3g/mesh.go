package m3g

import (
	"math"

	"github.com/pkg/errors"
)

type Submesh struct {
	IndexBuffer *TriangleStripArray
	Appearance  *Appearance
}

type Mesh struct {
	Node
	VertexBuffer *VertexBuffer
	Submeshes    []Submesh
}

func NewMesh(name string, vb *VertexBuffer) *Mesh {
	return &Mesh{Node: newNode(name), VertexBuffer: vb}
}

func (m *Mesh) ObjectType() byte { return TypeMesh }

func (m *Mesh) AddSubmesh(indices *TriangleStripArray, appearance *Appearance) {
	m.Submeshes = append(m.Submeshes, Submesh{IndexBuffer: indices, Appearance: appearance})
}

func (m *Mesh) references() []Object {
	result := nonNil(m.VertexBuffer)
	for _, s := range m.Submeshes {
		result = append(result, nonNil(s.IndexBuffer)...)
	}
	for _, s := range m.Submeshes {
		result = append(result, nonNil(s.Appearance)...)
	}
	return append(result, m.Node.references()...)
}

func (m *Mesh) References() []Object { return m.references() }

func (m *Mesh) encode(w *Writer) {
	m.Node.encode(w)
	w.Ref(m.VertexBuffer)
	w.Uint32(uint32(len(m.Submeshes)))
	for _, s := range m.Submeshes {
		w.Ref(s.IndexBuffer)
		w.Ref(s.Appearance)
	}
}

func (m *Mesh) Encode(w *Writer) { m.encode(w) }

// TransformReference binds a range of vertices to a skeleton node.
type TransformReference struct {
	TransformNode Object
	FirstVertex   uint32
	VertexCount   uint32
	Weight        int32
}

type SkinnedMesh struct {
	Mesh
	Skeleton   *Group
	Transforms []TransformReference
}

func NewSkinnedMesh(name string, vb *VertexBuffer, skeleton *Group) *SkinnedMesh {
	return &SkinnedMesh{Mesh: Mesh{Node: newNode(name), VertexBuffer: vb}, Skeleton: skeleton}
}

func (m *SkinnedMesh) ObjectType() byte { return TypeSkinnedMesh }

func (m *SkinnedMesh) AddTransform(node Object, weight int32, firstVertex, vertexCount uint32) {
	m.Transforms = append(m.Transforms, TransformReference{
		TransformNode: node,
		FirstVertex:   firstVertex,
		VertexCount:   vertexCount,
		Weight:        weight,
	})
}

func (m *SkinnedMesh) References() []Object {
	return append(nonNil(m.Skeleton), m.Mesh.references()...)
}

func (m *SkinnedMesh) Encode(w *Writer) {
	m.Mesh.encode(w)
	w.Ref(m.Skeleton)
	w.Uint32(uint32(len(m.Transforms)))
	for _, t := range m.Transforms {
		w.Ref(t.TransformNode)
		w.Uint32(t.FirstVertex)
		w.Uint32(t.VertexCount)
		w.Int32(t.Weight)
	}
}

const MaxVertexCount = 65535

// VertexArray keeps quantized integer components.
// ComponentSize 1 stores int8 values, 2 stores int16 values.
type VertexArray struct {
	Object3D
	ComponentSize  byte
	ComponentCount byte
	Encoding       byte
	Components     []int16
}

func NewVertexArray(componentCount, componentSize byte) *VertexArray {
	return &VertexArray{ComponentSize: componentSize, ComponentCount: componentCount}
}

func (va *VertexArray) ObjectType() byte { return TypeVertexArray }

func (va *VertexArray) References() []Object { return va.Object3D.references() }

func (va *VertexArray) VertexCount() int {
	if va.ComponentCount == 0 {
		return 0
	}
	return len(va.Components) / int(va.ComponentCount)
}

// Append adds one vertex, failing on values outside the component range.
func (va *VertexArray) Append(values ...int) error {
	if len(values) != int(va.ComponentCount) {
		return errors.Errorf("Vertex has %d components, array expects %d", len(values), va.ComponentCount)
	}
	lo, hi := va.limits()
	for _, v := range values {
		if v < lo || v > hi {
			return errors.Errorf("Component %d does not fit %d byte vertex array", v, va.ComponentSize)
		}
	}
	if va.VertexCount() >= MaxVertexCount {
		return errors.Errorf("Vertex array exceeds %d vertices", MaxVertexCount)
	}
	for _, v := range values {
		va.Components = append(va.Components, int16(v))
	}
	return nil
}

// AppendColor adds one vertex of unsigned 8 bit color channels.
func (va *VertexArray) AppendColor(channels ...byte) error {
	values := make([]int, len(channels))
	for i, c := range channels {
		values[i] = int(int8(c))
	}
	return va.Append(values...)
}

func (va *VertexArray) Vertex(i int) []int16 {
	cc := int(va.ComponentCount)
	return va.Components[i*cc : (i+1)*cc]
}

func (va *VertexArray) limits() (int, int) {
	if va.ComponentSize == 1 {
		return -128, 127
	}
	return -32768, 32767
}

func (va *VertexArray) Validate() error {
	if va.ComponentSize != 1 && va.ComponentSize != 2 {
		return errors.Errorf("Invalid component size %d", va.ComponentSize)
	}
	if va.ComponentCount < 2 || va.ComponentCount > 4 {
		return errors.Errorf("Invalid component count %d", va.ComponentCount)
	}
	if n := va.VertexCount(); n < 1 || n > MaxVertexCount {
		return errors.Errorf("Invalid vertex count %d", n)
	}
	return nil
}

func (va *VertexArray) Encode(w *Writer) {
	va.Object3D.encode(w)
	w.Byte(va.ComponentSize)
	w.Byte(va.ComponentCount)
	w.Byte(va.Encoding)
	w.Uint16(uint16(va.VertexCount()))
	for _, c := range va.Components {
		if va.ComponentSize == 1 {
			w.Byte(byte(int8(c)))
		} else {
			w.Int16(c)
		}
	}
}

type TexCoords struct {
	Array *VertexArray
	Bias  [3]float32
	Scale float32
}

type VertexBuffer struct {
	Object3D
	DefaultColor  ColorRGBA
	Positions     *VertexArray
	PositionBias  [3]float32
	PositionScale float32
	Normals       *VertexArray
	Colors        *VertexArray
	TexCoords     []TexCoords
}

func NewVertexBuffer(name string) *VertexBuffer {
	return &VertexBuffer{
		Object3D:      Object3D{Name: name},
		DefaultColor:  ColorRGBA{255, 255, 255, 255},
		PositionScale: 1,
	}
}

func (vb *VertexBuffer) ObjectType() byte { return TypeVertexBuffer }

func (vb *VertexBuffer) SetPositions(va *VertexArray, scale float32, bias [3]float32) {
	vb.Positions = va
	vb.PositionScale = scale
	vb.PositionBias = bias
}

func (vb *VertexBuffer) AddTexCoords(va *VertexArray, scale float32, bias [3]float32) {
	vb.TexCoords = append(vb.TexCoords, TexCoords{Array: va, Bias: bias, Scale: scale})
}

func (vb *VertexBuffer) References() []Object {
	result := nonNil(vb.Positions, vb.Normals, vb.Colors)
	for _, tc := range vb.TexCoords {
		result = append(result, nonNil(tc.Array)...)
	}
	return append(result, vb.Object3D.references()...)
}

func (vb *VertexBuffer) Encode(w *Writer) {
	vb.Object3D.encode(w)
	w.ColorRGBA(vb.DefaultColor)
	w.Ref(vb.Positions)
	w.Floats(vb.PositionBias[:]...)
	w.Float32(vb.PositionScale)
	w.Ref(vb.Normals)
	w.Ref(vb.Colors)
	w.Uint32(uint32(len(vb.TexCoords)))
	for _, tc := range vb.TexCoords {
		w.Ref(tc.Array)
		w.Floats(tc.Bias[:]...)
		w.Float32(tc.Scale)
	}
}

// TriangleStripArray is the only IndexBuffer kind of the format.
type TriangleStripArray struct {
	Object3D
	Indices      []uint32
	StripLengths []uint32
}

func NewTriangleStripArray() *TriangleStripArray {
	return &TriangleStripArray{}
}

func (ts *TriangleStripArray) ObjectType() byte { return TypeTriangleStripArray }

func (ts *TriangleStripArray) References() []Object { return ts.Object3D.references() }

func (ts *TriangleStripArray) AddStrip(indices ...uint32) {
	ts.Indices = append(ts.Indices, indices...)
	ts.StripLengths = append(ts.StripLengths, uint32(len(indices)))
}

// IndexEncoding picks the smallest explicit encoding the indices fit in.
func (ts *TriangleStripArray) IndexEncoding() byte {
	var max uint32
	for _, i := range ts.Indices {
		if i > max {
			max = i
		}
	}
	switch {
	case max <= 0xff:
		return IndexExplicit8
	case max <= 0xffff:
		return IndexExplicit16
	default:
		return IndexExplicit32
	}
}

func (ts *TriangleStripArray) Encode(w *Writer) {
	ts.Object3D.encode(w)
	encoding := ts.IndexEncoding()
	w.Byte(encoding)
	w.Uint32(uint32(len(ts.Indices)))
	for _, i := range ts.Indices {
		switch encoding {
		case IndexExplicit8:
			w.Byte(byte(i))
		case IndexExplicit16:
			w.Uint16(uint16(i))
		default:
			w.Uint32(i)
		}
	}
	w.Uint32(uint32(len(ts.StripLengths)))
	for _, l := range ts.StripLengths {
		w.Uint32(l)
	}
}

// AutoScale finds the bias and scale that map every component of values
// into the signed range of componentSize bytes with the highest precision.
// Bias is the center of the bounding box, scale is shared by all components.
func AutoScale(values []float32, componentCount, componentSize byte) (bias [3]float32, scale float32) {
	cc := int(componentCount)
	if len(values) < cc {
		return bias, 1
	}
	minimum := make([]float32, cc)
	maximum := make([]float32, cc)
	copy(minimum, values[:cc])
	copy(maximum, values[:cc])
	for i := 0; i+cc <= len(values); i += cc {
		for j := 0; j < cc; j++ {
			if v := values[i+j]; v < minimum[j] {
				minimum[j] = v
			} else if v > maximum[j] {
				maximum[j] = v
			}
		}
	}

	var maxRange float32
	for j := 0; j < cc && j < 3; j++ {
		bias[j] = minimum[j]*0.5 + maximum[j]*0.5
		if r := maximum[j] - minimum[j]; r > maxRange {
			maxRange = r
		}
	}
	if cc == 4 {
		if r := maximum[3] - minimum[3]; r > maxRange {
			maxRange = r
		}
	}
	if maxRange == 0 {
		return bias, 1
	}
	return bias, maxRange / float32(math.Pow(2, float64(8*componentSize))-3)
}

// Quantize converts float components to a vertex array using value = component*scale + bias.
func Quantize(values []float32, componentCount, componentSize byte, bias [3]float32, scale float32) (*VertexArray, error) {
	va := NewVertexArray(componentCount, componentSize)
	cc := int(componentCount)
	if len(values)%cc != 0 {
		return nil, errors.Errorf("%d values can't be split into %d components", len(values), cc)
	}
	vertex := make([]int, cc)
	for i := 0; i < len(values); i += cc {
		for j := 0; j < cc; j++ {
			var b float32
			if j < 3 {
				b = bias[j]
			}
			vertex[j] = int(math.Round(float64((values[i+j] - b) / scale)))
		}
		if err := va.Append(vertex...); err != nil {
			return nil, errors.Wrapf(err, "Vertex %d", i/cc)
		}
	}
	return va, nil
}

package m3g

import (
	"bytes"
	"encoding/binary"
	"math"
	"reflect"

	"github.com/go-gl/mathgl/mgl32"
)

// Writer accumulates the little endian payload of a single object.
// References are resolved through the index table built by AssignIndices.
type Writer struct {
	buf     bytes.Buffer
	indices map[Object]uint32
}

func newWriter(indices map[Object]uint32) *Writer {
	return &Writer{indices: indices}
}

func (w *Writer) Bytes() []byte { return w.buf.Bytes() }
func (w *Writer) Len() int      { return w.buf.Len() }

func (w *Writer) Byte(b byte) {
	w.buf.WriteByte(b)
}

func (w *Writer) Bool(b bool) {
	if b {
		w.buf.WriteByte(1)
	} else {
		w.buf.WriteByte(0)
	}
}

func (w *Writer) Uint16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

func (w *Writer) Int16(v int16) {
	w.Uint16(uint16(v))
}

func (w *Writer) Uint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *Writer) Int32(v int32) {
	w.Uint32(uint32(v))
}

func (w *Writer) Float32(v float32) {
	w.Uint32(math.Float32bits(v))
}

func (w *Writer) Floats(vs ...float32) {
	for _, v := range vs {
		w.Float32(v)
	}
}

func (w *Writer) Vec3(v mgl32.Vec3) {
	w.Floats(v[0], v[1], v[2])
}

// Matrix writes 16 floats in row major order.
func (w *Writer) Matrix(m mgl32.Mat4) {
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			w.Float32(m.At(row, col))
		}
	}
}

func (w *Writer) ColorRGB(c ColorRGB) {
	w.buf.Write(c[:])
}

func (w *Writer) ColorRGBA(c ColorRGBA) {
	w.buf.Write(c[:])
}

// String writes null terminated UTF-8.
func (w *Writer) String(s string) {
	w.buf.WriteString(s)
	w.buf.WriteByte(0)
}

// ByteArray writes a length prefixed byte array.
func (w *Writer) ByteArray(b []byte) {
	w.Uint32(uint32(len(b)))
	w.buf.Write(b)
}

func (w *Writer) Raw(b []byte) {
	w.buf.Write(b)
}

// Ref writes the object index of o, 0 for nil.
func (w *Writer) Ref(o Object) {
	if isNil(o) {
		w.Uint32(0)
		return
	}
	w.Uint32(w.indices[o])
}

// Refs writes a counted array of object indices.
func (w *Writer) Refs(objs []Object) {
	w.Uint32(uint32(len(objs)))
	for _, o := range objs {
		w.Ref(o)
	}
}

func isNil(o Object) bool {
	if o == nil {
		return true
	}
	v := reflect.ValueOf(o)
	return v.Kind() == reflect.Ptr && v.IsNil()
}

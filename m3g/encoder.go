package m3g

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"hash/adler32"
	"io"

	"github.com/pkg/errors"
)

// FileIdentifier opens every file: «JSR184»\r\n\x1a\n
var FileIdentifier = []byte{0xAB, 0x4A, 0x53, 0x52, 0x31, 0x38, 0x34, 0xBB, 0x0D, 0x0A, 0x1A, 0x0A}

const (
	CompressionNone = 0
	CompressionZlib = 1

	// header object id, external references and scene objects follow
	headerIndex = 1
)

type EncodeOptions struct {
	Authoring string
	// Compress scene sections with zlib. Header section is never compressed.
	Compress bool
	// ExternalContentSize is added to ApproximateContentSize.
	ExternalContentSize uint32
}

// ExportList is the ordered set of objects reachable from a root.
type ExportList struct {
	External []Object
	Objects  []Object
	indices  map[Object]uint32
}

// Collect walks the graph depth first so every object lands after all
// objects it references. Each object is listed once.
func Collect(root Object) ([]Object, error) {
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[Object]int)
	result := make([]Object, 0)

	var visit func(o Object) error
	visit = func(o Object) error {
		switch state[o] {
		case done:
			return nil
		case visiting:
			return errors.Errorf("Reference cycle through %s %q", TypeName(o.ObjectType()), objectName(o))
		}
		state[o] = visiting
		for _, ref := range o.References() {
			if isNil(ref) {
				continue
			}
			if err := visit(ref); err != nil {
				return err
			}
		}
		state[o] = done
		result = append(result, o)
		return nil
	}

	if isNil(root) {
		return nil, errors.Errorf("Nothing to export")
	}
	if err := visit(root); err != nil {
		return nil, err
	}
	return result, nil
}

// Prepare collects the graph and assigns object indices:
// 1 is the header, external references come next, then scene objects.
func Prepare(root Object) (*ExportList, error) {
	all, err := Collect(root)
	if err != nil {
		return nil, err
	}
	l := &ExportList{indices: make(map[Object]uint32, len(all))}
	for _, o := range all {
		if o.ObjectType() == TypeExternalReference {
			l.External = append(l.External, o)
		} else {
			l.Objects = append(l.Objects, o)
		}
	}
	index := uint32(headerIndex)
	for _, o := range l.External {
		index++
		l.indices[o] = index
	}
	for _, o := range l.Objects {
		index++
		l.indices[o] = index
	}
	return l, nil
}

// Index of o in the file, 0 when o is nil or not part of the list.
func (l *ExportList) Index(o Object) uint32 {
	if isNil(o) {
		return 0
	}
	return l.indices[o]
}

func (l *ExportList) encodeObjects(objs []Object) ([]byte, error) {
	var buf bytes.Buffer
	for _, o := range objs {
		if va, ok := o.(*VertexArray); ok {
			if err := va.Validate(); err != nil {
				return nil, errors.Wrapf(err, "Vertex array %q", va.Name)
			}
		}
		w := newWriter(l.indices)
		o.Encode(w)
		writeObject(&buf, o.ObjectType(), w.Bytes())
	}
	return buf.Bytes(), nil
}

func writeObject(buf *bytes.Buffer, objectType byte, data []byte) {
	var hdr [5]byte
	hdr[0] = objectType
	binary.LittleEndian.PutUint32(hdr[1:], uint32(len(data)))
	buf.Write(hdr[:])
	buf.Write(data)
}

// section frames object data: scheme, total length, uncompressed length, objects, adler32.
func section(objects []byte, compress bool) ([]byte, error) {
	scheme := byte(CompressionNone)
	payload := objects
	if compress {
		var zbuf bytes.Buffer
		zw := zlib.NewWriter(&zbuf)
		if _, err := zw.Write(objects); err != nil {
			return nil, errors.Wrapf(err, "Failed to compress section")
		}
		if err := zw.Close(); err != nil {
			return nil, errors.Wrapf(err, "Failed to compress section")
		}
		scheme = CompressionZlib
		payload = zbuf.Bytes()
	}

	var buf bytes.Buffer
	var hdr [9]byte
	hdr[0] = scheme
	binary.LittleEndian.PutUint32(hdr[1:], uint32(len(payload)+13))
	binary.LittleEndian.PutUint32(hdr[5:], uint32(len(objects)))
	buf.Write(hdr[:])
	buf.Write(payload)

	var sum [4]byte
	binary.LittleEndian.PutUint32(sum[:], adler32.Checksum(buf.Bytes()))
	buf.Write(sum[:])
	return buf.Bytes(), nil
}

func headerSection(hasExternal bool, totalSize, contentSize uint32, authoring string) []byte {
	w := newWriter(nil)
	w.Byte(1)
	w.Byte(0)
	w.Bool(hasExternal)
	w.Uint32(totalSize)
	w.Uint32(contentSize)
	w.String(authoring)

	var objects bytes.Buffer
	writeObject(&objects, TypeHeader, w.Bytes())
	s, _ := section(objects.Bytes(), false)
	return s
}

// Write emits the complete file.
func (l *ExportList) Write(out io.Writer, opts EncodeOptions) error {
	sections := make([][]byte, 0, 2)

	if len(l.External) != 0 {
		data, err := l.encodeObjects(l.External)
		if err != nil {
			return err
		}
		s, err := section(data, opts.Compress)
		if err != nil {
			return err
		}
		sections = append(sections, s)
	}

	data, err := l.encodeObjects(l.Objects)
	if err != nil {
		return err
	}
	s, err := section(data, opts.Compress)
	if err != nil {
		return err
	}
	sections = append(sections, s)

	// header size does not depend on the sizes it carries
	total := len(FileIdentifier) + len(headerSection(false, 0, 0, opts.Authoring))
	for _, s := range sections {
		total += len(s)
	}
	header := headerSection(len(l.External) != 0, uint32(total), uint32(total)+opts.ExternalContentSize, opts.Authoring)

	if _, err := out.Write(FileIdentifier); err != nil {
		return errors.Wrapf(err, "Failed to write identifier")
	}
	if _, err := out.Write(header); err != nil {
		return errors.Wrapf(err, "Failed to write header section")
	}
	for i, s := range sections {
		if _, err := out.Write(s); err != nil {
			return errors.Wrapf(err, "Failed to write section %d", i+1)
		}
	}
	return nil
}

// Encode collects everything reachable from root and writes an m3g file.
func Encode(out io.Writer, root Object, opts EncodeOptions) error {
	l, err := Prepare(root)
	if err != nil {
		return err
	}
	return l.Write(out, opts)
}

func objectName(o Object) string {
	if b := o.Base(); b != nil {
		return b.Name
	}
	if er, ok := o.(*ExternalReference); ok {
		return er.URI
	}
	return ""
}

package m3g

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"hash/adler32"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/mogaika/m3g_exporter/utils"
)

type Header struct {
	Version                [2]byte
	HasExternalReferences  bool
	TotalFileSize          uint32
	ApproximateContentSize uint32
	Authoring              string
}

// RawObject is an undecoded object of a parsed file.
type RawObject struct {
	Index uint32
	Type  byte
	Data  []byte
}

func (o *RawObject) TypeName() string { return TypeName(o.Type) }

// Reader returns a cursor over the object payload.
func (o *RawObject) Reader() *utils.BufStack {
	return utils.NewBufStack(o.TypeName(), o.Data)
}

// Object3DInfo is the part shared by every Object3D payload.
type Object3DInfo struct {
	UserID          uint32
	AnimationTracks []uint32
	UserParameters  []UserParameter
}

// ReadObject3D parses the Object3D prefix of the payload.
// External references and the header have none.
func (o *RawObject) ReadObject3D() (info Object3DInfo, err error) {
	if o.Type == TypeHeader || o.Type == TypeExternalReference {
		return info, errors.Errorf("%s has no Object3D data", o.TypeName())
	}
	err = catch(func() {
		info = readObject3D(o.Reader())
	})
	return info, err
}

func readObject3D(bs *utils.BufStack) (info Object3DInfo) {
	info.UserID = bs.ReadLU32()
	count := bs.ReadLU32()
	for i := uint32(0); i < count; i++ {
		info.AnimationTracks = append(info.AnimationTracks, bs.ReadLU32())
	}
	count = bs.ReadLU32()
	for i := uint32(0); i < count; i++ {
		id := bs.ReadLU32()
		size := bs.ReadLU32()
		info.UserParameters = append(info.UserParameters, UserParameter{ID: id, Value: bs.Read(int(size))})
	}
	return info
}

type Section struct {
	Compression        byte
	TotalLength        uint32
	UncompressedLength uint32
	Checksum           uint32
	Objects            []*RawObject
}

type File struct {
	Header   Header
	Sections []*Section
	layout   []*utils.BufStack
}

// Objects lists every object in index order, starting with the header.
func (f *File) Objects() []*RawObject {
	result := make([]*RawObject, 0)
	for _, s := range f.Sections {
		result = append(result, s.Objects...)
	}
	return result
}

// Object returns the object with the given index or nil.
func (f *File) Object(index uint32) *RawObject {
	for _, o := range f.Objects() {
		if o.Index == index {
			return o
		}
	}
	return nil
}

func (f *File) ObjectsOfType(t byte) []*RawObject {
	result := make([]*RawObject, 0)
	for _, o := range f.Objects() {
		if o.Type == t {
			result = append(result, o)
		}
	}
	return result
}

// Layout prints the byte layout of the parsed file.
func (f *File) Layout() string {
	var sb strings.Builder
	for _, l := range f.layout {
		sb.WriteString(l.StringTree())
	}
	return sb.String()
}

func catch(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
			} else {
				err = errors.Errorf("%v", r)
			}
		}
	}()
	fn()
	return nil
}

func Decode(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read file")
	}
	return DecodeBytes(data)
}

// DecodeBytes parses the file structure, verifies checksums and
// inflates compressed sections. Object payloads stay undecoded.
func DecodeBytes(data []byte) (*File, error) {
	f := &File{}
	err := catch(func() {
		root := utils.NewBufStack("file", data)
		f.layout = append(f.layout, root)

		if !bytes.Equal(root.SubBufHere("identifier", len(FileIdentifier)).Raw(), FileIdentifier) {
			panic(errors.Errorf("Not an m3g file: wrong identifier"))
		}

		index := uint32(headerIndex)
		for root.Remaining() > 0 {
			sectionIndex := len(f.Sections)
			total := int(root.LU32(root.Pos() + 1))
			sbs := root.SubBufHere("section", total).SetName(fmt.Sprintf("%d", sectionIndex))

			s := &Section{
				Compression:        sbs.ReadByte(),
				TotalLength:        sbs.ReadLU32(),
				UncompressedLength: sbs.ReadLU32(),
			}
			if s.TotalLength < 13 {
				panic(errors.Errorf("Section %d is too short: %d", sectionIndex, s.TotalLength))
			}
			payload := sbs.SubBufHere("objects", int(s.TotalLength)-13)
			s.Checksum = sbs.ReadLU32()
			if sum := adler32.Checksum(sbs.Raw()[:sbs.Size()-4]); sum != s.Checksum {
				panic(errors.Errorf("Section %d checksum mismatch: %.8x != %.8x", sectionIndex, sum, s.Checksum))
			}

			objects := payload
			switch s.Compression {
			case CompressionNone:
			case CompressionZlib:
				inflated, err := inflate(payload.Raw(), s.UncompressedLength)
				if err != nil {
					panic(errors.Wrapf(err, "Section %d", sectionIndex))
				}
				objects = utils.NewBufStack("inflated", inflated).SetName(fmt.Sprintf("section %d", sectionIndex))
				f.layout = append(f.layout, objects)
			default:
				panic(errors.Errorf("Section %d has unknown compression %d", sectionIndex, s.Compression))
			}
			if uint32(objects.Size()) != s.UncompressedLength {
				panic(errors.Errorf("Section %d uncompressed length mismatch: %d != %d",
					sectionIndex, objects.Size(), s.UncompressedLength))
			}

			for objects.Remaining() > 0 {
				t := objects.ReadByte()
				size := objects.ReadLU32()
				obs := objects.SubBufHere(TypeName(t), int(size))
				o := &RawObject{Index: index, Type: t, Data: obs.Raw()}
				obs.SetName(fmt.Sprintf("#%d", index))
				index++
				s.Objects = append(s.Objects, o)
			}
			f.Sections = append(f.Sections, s)
		}

		if len(f.Sections) == 0 || len(f.Sections[0].Objects) != 1 || f.Sections[0].Objects[0].Type != TypeHeader {
			panic(errors.Errorf("First section must hold only the header object"))
		}
		hbs := f.Sections[0].Objects[0].Reader()
		f.Header.Version[0] = hbs.ReadByte()
		f.Header.Version[1] = hbs.ReadByte()
		f.Header.HasExternalReferences = hbs.ReadBool()
		f.Header.TotalFileSize = hbs.ReadLU32()
		f.Header.ApproximateContentSize = hbs.ReadLU32()
		f.Header.Authoring = hbs.ReadZString()
		hbs.VerifySize()

		if f.Header.TotalFileSize != uint32(len(data)) {
			panic(errors.Errorf("Header claims %d bytes, file has %d", f.Header.TotalFileSize, len(data)))
		}
	})
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to decode m3g")
	}
	return f, nil
}

// inflate stops one byte past size so a stream longer than declared fails the
// length check without being fully expanded.
func inflate(data []byte, size uint32) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(io.LimitReader(zr, int64(size)+1))
}

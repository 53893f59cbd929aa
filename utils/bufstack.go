package utils

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"
)

// BufStack is a cursor over a byte slice that remembers the sub buffers
// carved out of it, so a decoded file can print its own layout.
// Reads past the end panic with the buffer as error value.
type BufStack struct {
	parent         *BufStack
	childs         []*BufStack
	buf            []byte
	relativeOffset int
	absoluteOffset int
	size           int
	pos            int
	kind           string
	name           string
}

func NewBufStack(kind string, b []byte) *BufStack {
	return &BufStack{
		buf:  b,
		size: len(b),
		kind: kind,
	}
}

func (bs *BufStack) addChild(childBs *BufStack) {
	index := sort.Search(len(bs.childs), func(i int) bool {
		return bs.childs[i].relativeOffset > childBs.relativeOffset
	})
	bs.childs = append(bs.childs, childBs)
	copy(bs.childs[index+1:], bs.childs[index:])
	bs.childs[index] = childBs
}

// SubBuf carves size bytes starting at offset.
func (bs *BufStack) SubBuf(kind string, offset, size int) *BufStack {
	if offset < 0 || size < 0 || offset+size > len(bs.buf) {
		panic(bs.errorf("sub buffer %q [0x%x:+0x%x] out of range", kind, offset, size))
	}
	childBs := &BufStack{
		parent:         bs,
		relativeOffset: offset,
		absoluteOffset: bs.absoluteOffset + offset,
		kind:           kind,
		buf:            bs.buf[offset : offset+size],
		size:           size,
	}
	bs.addChild(childBs)
	return childBs
}

// SubBufHere carves size bytes at the cursor and moves the cursor past them.
func (bs *BufStack) SubBufHere(kind string, size int) *BufStack {
	child := bs.SubBuf(kind, bs.pos, size)
	bs.pos += size
	return child
}

func (bs *BufStack) SetName(name string) *BufStack {
	bs.name = name
	return bs
}

func (bs *BufStack) Name() string      { return bs.name }
func (bs *BufStack) Size() int         { return bs.size }
func (bs *BufStack) Kind() string      { return bs.kind }
func (bs *BufStack) Parent() *BufStack { return bs.parent }
func (bs *BufStack) Pos() int          { return bs.pos }
func (bs *BufStack) Remaining() int    { return bs.size - bs.pos }
func (bs *BufStack) Raw() []byte       { return bs.buf[:bs.size] }

func (bs *BufStack) String() string {
	s := fmt.Sprintf("%s[o:0x%x,s:0x%x]", bs.kind, bs.absoluteOffset, bs.size)
	if bs.name != "" {
		s += " " + bs.name
	}
	return s
}

func (bs *BufStack) StringChain() string {
	s := bs.String()
	if bs.parent != nil {
		s += "::" + bs.parent.StringChain()
	}
	return s
}

type bufError struct {
	bs  *BufStack
	msg string
}

func (e *bufError) Error() string {
	return e.msg + " at " + e.bs.StringChain()
}

func (bs *BufStack) errorf(format string, args ...interface{}) error {
	return &bufError{bs: bs, msg: fmt.Sprintf(format, args...)}
}

func (bs *BufStack) stringTree(sb *strings.Builder, pad int) {
	sPad := strings.Repeat(".  ", pad)
	sb.WriteString(sPad + bs.String() + "\n")
	pos := 0
	for i, child := range bs.childs {
		if child.relativeOffset > pos {
			fmt.Fprintf(sb, "%s.  gap [o:0x%x,s:0x%x]\n", sPad, bs.absoluteOffset+pos, child.relativeOffset-pos)
		}
		child.stringTree(sb, pad+1)
		end := child.relativeOffset + child.size
		if i != len(bs.childs)-1 && end > bs.childs[i+1].relativeOffset {
			fmt.Fprintf(sb, "%s. [OVERLAP]\n", sPad)
		}
		pos = end
	}
	if len(bs.childs) != 0 && pos < bs.size {
		fmt.Fprintf(sb, "%s.  tail [o:0x%x,s:0x%x]\n", sPad, bs.absoluteOffset+pos, bs.size-pos)
	}
}

func (bs *BufStack) StringTree() string {
	var sb strings.Builder
	bs.stringTree(&sb, 0)
	return sb.String()
}

func (bs *BufStack) Read(amount int) []byte {
	if amount < 0 || bs.pos+amount > bs.size {
		panic(bs.errorf("read of %d bytes at 0x%x overruns buffer", amount, bs.pos))
	}
	oldPos := bs.pos
	bs.pos += amount
	return bs.buf[oldPos:bs.pos]
}

func (bs *BufStack) Skip(amount int) {
	bs.Read(amount)
}

func (bs *BufStack) ReadLU32() uint32 {
	return binary.LittleEndian.Uint32(bs.Read(4))
}

func (bs *BufStack) ReadLU16() uint16 {
	return binary.LittleEndian.Uint16(bs.Read(2))
}

func (bs *BufStack) ReadByte() byte {
	return bs.Read(1)[0]
}

func (bs *BufStack) ReadBool() bool {
	return bs.ReadByte() != 0
}

func (bs *BufStack) ReadLF() float32 {
	return math.Float32frombits(bs.ReadLU32())
}

func (bs *BufStack) ReadLFs(count int) []float32 {
	result := make([]float32, count)
	for i := range result {
		result[i] = bs.ReadLF()
	}
	return result
}

// ReadZString reads a null terminated string and consumes the terminator.
func (bs *BufStack) ReadZString() string {
	n := bytes.IndexByte(bs.buf[bs.pos:bs.size], 0)
	if n < 0 {
		panic(bs.errorf("unterminated string at 0x%x", bs.pos))
	}
	s := string(bs.buf[bs.pos : bs.pos+n])
	bs.pos += n + 1
	return s
}

func (bs *BufStack) VerifySize() {
	if bs.pos != bs.size {
		panic(bs.errorf("%d trailing bytes", bs.size-bs.pos))
	}
}

func (bs *BufStack) LU32(off int) uint32 {
	return binary.LittleEndian.Uint32(bs.buf[off:])
}

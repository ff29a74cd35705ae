package classfile

import (
	"fmt"

	"github.com/chazu/classkit/bytevec"
)

// AnnotationWriter is the AnnotationVisitor returned by the writers. It
// appends element_value structures to a buffer shared with its parent and
// keeps the parent's element count up to date.
type AnnotationWriter struct {
	cw    *Writer
	named bool // element values are preceded by their name
	out   *bytevec.ByteVector
	// countAt is the offset of the u2 element count in out, or -1 for an
	// annotation default, which holds a single unnamed value.
	countAt int
	count   int
}

var _ AnnotationVisitor = (*AnnotationWriter)(nil)

func newAnnotationWriter(cw *Writer, named bool, out *bytevec.ByteVector, countAt int) *AnnotationWriter {
	return &AnnotationWriter{cw: cw, named: named, out: out, countAt: countAt}
}

// newTopAnnotationWriter starts an annotation structure in its own buffer.
func newTopAnnotationWriter(cw *Writer, desc string) *AnnotationWriter {
	out := bytevec.New(32)
	out.PutShort(cw.pool.utf8(desc))
	out.PutShort(0)
	return newAnnotationWriter(cw, true, out, 2)
}

// element starts a new element value.
func (aw *AnnotationWriter) element(name string) {
	aw.count++
	if aw.countAt >= 0 {
		aw.out.SetShort(aw.countAt, aw.count)
	}
	if aw.named {
		aw.out.PutShort(aw.cw.pool.utf8(name))
	}
}

func (aw *AnnotationWriter) Visit(name string, value any) {
	aw.element(name)
	p := aw.cw.pool
	out := aw.out
	switch v := value.(type) {
	case string:
		out.Put12('s', p.utf8(v))
	case int8:
		out.Put12('B', p.integer(int32(v)).index)
	case bool:
		b := int32(0)
		if v {
			b = 1
		}
		out.Put12('Z', p.integer(b).index)
	case uint16:
		out.Put12('C', p.integer(int32(v)).index)
	case int16:
		out.Put12('S', p.integer(int32(v)).index)
	case int32:
		out.Put12('I', p.integer(v).index)
	case int:
		out.Put12('I', p.integer(int32(v)).index)
	case int64:
		out.Put12('J', p.long(v).index)
	case float32:
		out.Put12('F', p.float(v).index)
	case float64:
		out.Put12('D', p.double(v).index)
	case Type:
		out.Put12('c', p.utf8(v.Descriptor))
	case []int8:
		putArray(out, 'B', v, func(x int8) int { return p.integer(int32(x)).index })
	case []bool:
		putArray(out, 'Z', v, func(x bool) int {
			if x {
				return p.integer(1).index
			}
			return p.integer(0).index
		})
	case []uint16:
		putArray(out, 'C', v, func(x uint16) int { return p.integer(int32(x)).index })
	case []int16:
		putArray(out, 'S', v, func(x int16) int { return p.integer(int32(x)).index })
	case []int32:
		putArray(out, 'I', v, func(x int32) int { return p.integer(x).index })
	case []int64:
		putArray(out, 'J', v, func(x int64) int { return p.long(x).index })
	case []float32:
		putArray(out, 'F', v, func(x float32) int { return p.float(x).index })
	case []float64:
		putArray(out, 'D', v, func(x float64) int { return p.double(x).index })
	default:
		aw.cw.fail(fmt.Errorf("%w: annotation value %T", ErrUnsupportedConstant, value))
		// Keep the structure well formed.
		out.Put12('s', p.utf8(""))
	}
}

// putArray writes a primitive array element value.
func putArray[T any](out *bytevec.ByteVector, tag int, values []T, index func(T) int) {
	out.Put12('[', len(values))
	for _, v := range values {
		out.Put12(tag, index(v))
	}
}

func (aw *AnnotationWriter) VisitEnum(name, desc, value string) {
	aw.element(name)
	aw.out.Put12('e', aw.cw.pool.utf8(desc))
	aw.out.PutShort(aw.cw.pool.utf8(value))
}

func (aw *AnnotationWriter) VisitAnnotation(name, desc string) AnnotationVisitor {
	aw.element(name)
	aw.out.Put12('@', aw.cw.pool.utf8(desc))
	aw.out.PutShort(0)
	return newAnnotationWriter(aw.cw, true, aw.out, aw.out.Len()-2)
}

func (aw *AnnotationWriter) VisitArray(name string) AnnotationVisitor {
	aw.element(name)
	aw.out.Put12('[', 0)
	return newAnnotationWriter(aw.cw, false, aw.out, aw.out.Len()-2)
}

func (aw *AnnotationWriter) VisitEnd() {}

// annotationsBody returns the body of a Runtime(In)VisibleAnnotations
// attribute.
func annotationsBody(anns []*AnnotationWriter) []byte {
	b := bytevec.New(64)
	b.PutShort(len(anns))
	for _, aw := range anns {
		b.PutByteArray(aw.out.Bytes(), aw.out.Len())
	}
	return b.Bytes()
}

// parameterAnnotationsBody returns the body of a
// Runtime(In)VisibleParameterAnnotations attribute.
func parameterAnnotationsBody(params [][]*AnnotationWriter) []byte {
	b := bytevec.New(64)
	b.PutByte(len(params))
	for _, anns := range params {
		b.PutShort(len(anns))
		for _, aw := range anns {
			b.PutByteArray(aw.out.Bytes(), aw.out.Len())
		}
	}
	return b.Bytes()
}

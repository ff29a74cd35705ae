package classfile

import (
	"strings"

	"github.com/chazu/classkit/bytevec"
)

// ---------------------------------------------------------------------------
// Abstract types
// ---------------------------------------------------------------------------

// typeKind tells how the value field of an absType is interpreted.
type typeKind uint8

const (
	kindUnknown typeKind = iota // not computed yet
	kindBase                    // value is a base* constant
	kindObject                  // value is a type table index
	kindUninit                  // value is a type table index of an uninitialized entry
	kindLocal                   // value is an input local index
	kindStack                   // value is a position from the top of the input stack
)

// Base type values. The first seven double as verification type items.
const (
	baseTop        = 0
	baseInt        = 1
	baseFloat      = 2
	baseDouble     = 3
	baseLong       = 4
	baseNull       = 5
	baseUninitThis = 6
	baseBoolean    = 9
	baseByte       = 10
	baseChar       = 11
	baseShort      = 12
)

// absType is the symbolic type of a local variable or stack slot during
// frame computation. Output types of a block may be relative to its input
// (kindLocal, kindStack); dims then counts array dimensions added to (or,
// when negative, removed from) that input type.
type absType struct {
	kind typeKind
	dims int8
	// topIfLongOrDouble marks a relative type that must become TOP if it
	// resolves to LONG or DOUBLE: the slot was the second half of a value
	// that has been overwritten.
	topIfLongOrDouble bool
	value             int32
}

var (
	typeTop        = absType{kind: kindBase, value: baseTop}
	typeInt        = absType{kind: kindBase, value: baseInt}
	typeFloat      = absType{kind: kindBase, value: baseFloat}
	typeDouble     = absType{kind: kindBase, value: baseDouble}
	typeLong       = absType{kind: kindBase, value: baseLong}
	typeNull       = absType{kind: kindBase, value: baseNull}
	typeUninitThis = absType{kind: kindBase, value: baseUninitThis}
)

func baseType(v int32) absType      { return absType{kind: kindBase, value: v} }
func objectType(index int) absType  { return absType{kind: kindObject, value: int32(index)} }
func uninitType(index int) absType  { return absType{kind: kindUninit, value: int32(index)} }
func localType(local int) absType   { return absType{kind: kindLocal, value: int32(local)} }
func stackType(fromTop int) absType { return absType{kind: kindStack, value: int32(fromTop)} }

func (t absType) isLongOrDouble() bool {
	return t == typeLong || t == typeDouble
}

// isReference reports whether t is an object or array type.
func (t absType) isReference() bool {
	return t.kind == kindObject || t.dims != 0
}

func (t absType) withDims(d int) absType {
	t.dims += int8(d)
	return t
}

// arrayOf returns the type of arrays of t.
func (t absType) arrayOf() absType { return t.withDims(1) }

// elementOf returns the element type of the array type t.
func (t absType) elementOf() absType { return t.withDims(-1) }

// typeFromDescriptor returns the abstract type of a field descriptor or of
// the return type of a method descriptor. The zero absType stands for void.
func (w *Writer) typeFromDescriptor(desc string) absType {
	if strings.HasPrefix(desc, "(") {
		desc = returnDescriptor(desc)
	}
	switch desc[0] {
	case 'V':
		return absType{}
	case 'Z', 'C', 'B', 'S', 'I':
		return typeInt
	case 'F':
		return typeFloat
	case 'J':
		return typeLong
	case 'D':
		return typeDouble
	case 'L':
		return objectType(w.pool.addType(desc[1 : len(desc)-1]))
	}
	dims := 0
	for desc[dims] == '[' {
		dims++
	}
	var elem absType
	switch desc[dims] {
	case 'Z':
		elem = baseType(baseBoolean)
	case 'C':
		elem = baseType(baseChar)
	case 'B':
		elem = baseType(baseByte)
	case 'S':
		elem = baseType(baseShort)
	case 'I':
		elem = typeInt
	case 'F':
		elem = typeFloat
	case 'J':
		elem = typeLong
	case 'D':
		elem = typeDouble
	default:
		elem = objectType(w.pool.addType(desc[dims+1 : len(desc)-1]))
	}
	return elem.withDims(dims)
}

// typeFromFrameItem converts a VisitFrame entry to an abstract type.
func (w *Writer) typeFromFrameItem(v any) absType {
	switch x := v.(type) {
	case FrameItem:
		return baseType(int32(x))
	case string:
		if strings.HasPrefix(x, "[") {
			return w.typeFromDescriptor(x)
		}
		return objectType(w.pool.addType(x))
	case *Label:
		return uninitType(w.pool.addUninitializedType("", x.Offset()))
	default:
		panic("classfile: invalid frame entry")
	}
}

// arrayDescriptor renders a reference type with dimensions as a descriptor
// usable in a class constant.
func (w *Writer) arrayDescriptor(t absType) string {
	var sb strings.Builder
	for i := 0; i < int(t.dims); i++ {
		sb.WriteByte('[')
	}
	if t.kind == kindObject {
		sb.WriteByte('L')
		sb.WriteString(w.pool.typeName(int(t.value)))
		sb.WriteByte(';')
		return sb.String()
	}
	switch t.value {
	case baseInt:
		sb.WriteByte('I')
	case baseFloat:
		sb.WriteByte('F')
	case baseDouble:
		sb.WriteByte('D')
	case baseBoolean:
		sb.WriteByte('Z')
	case baseByte:
		sb.WriteByte('B')
	case baseChar:
		sb.WriteByte('C')
	case baseShort:
		sb.WriteByte('S')
	default:
		sb.WriteByte('J')
	}
	return sb.String()
}

// putVerificationType writes t as a verification_type_info structure.
func (w *Writer) putVerificationType(out *bytevec.ByteVector, t absType) {
	if t.dims != 0 {
		out.Put12(7, w.pool.class(w.arrayDescriptor(t)).index)
		return
	}
	switch t.kind {
	case kindObject:
		out.Put12(7, w.pool.class(w.pool.typeName(int(t.value))).index)
	case kindUninit:
		out.Put12(8, int(w.pool.types[t.value].intVal))
	default:
		out.PutByte(int(t.value))
	}
}

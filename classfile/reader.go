package classfile

import (
	"math"

	"github.com/chazu/classkit/bytevec"
)

// ---------------------------------------------------------------------------
// Reader
// ---------------------------------------------------------------------------

// Flags for Reader.Accept.
const (
	// SkipCode drops Code attributes: methods get no code events.
	SkipCode = 1 << iota

	// SkipDebug drops SourceFile, SourceDebugExtension, LocalVariableTable,
	// LocalVariableTypeTable and LineNumberTable.
	SkipDebug

	// SkipFrames drops StackMapTable and StackMap attributes.
	SkipFrames

	// ExpandFrames visits every frame as FNew with the full locals and
	// stack instead of in compressed form.
	ExpandFrames

	// ExpandPseudoInsns rewrites the pseudo branches a Writer leaves behind
	// when a jump offset overflowed into standard instruction sequences,
	// and signals where the rewritten code needs new frames.
	ExpandPseudoInsns
)

const classMagic = 0xCAFEBABE

// Reader parses a class file and pushes it into a ClassVisitor. Constant
// pool offsets are indexed once in NewReader; strings are decoded lazily and
// cached. A Reader may be accepted any number of times.
type Reader struct {
	b []byte

	// items holds the offset of each constant pool entry, just past its
	// tag byte. Index 0 and the slot after a long or double are unused.
	items []int

	utf8    []string
	decoded []bool

	// maxStringLength is the byte length of the longest UTF-8 entry. It
	// sizes the scratch buffer strings are decoded through.
	maxStringLength int
	scratch         []uint16

	// header is the offset of access_flags, just past the constant pool.
	header int

	// bootstrap holds the offset of each BootstrapMethods entry; bootstrapAt
	// is the offset of the attribute body, or 0.
	bootstrap     []int
	bootstrapAt   int
	bootstrapSize int
}

// NewReader indexes the class file b. It fails with ErrMalformed when the
// magic number or a constant pool tag is wrong, or the pool runs past the
// end of b.
func NewReader(b []byte) (r *Reader, err error) {
	defer recoverMalformed(&err)
	r = &Reader{b: b}
	if len(b) < 10 || uint32(r.ReadInt(0)) != classMagic {
		failMalformed("bad magic number")
	}
	n := r.ReadUnsignedShort(8)
	r.items = make([]int, n)
	r.utf8 = make([]string, n)
	r.decoded = make([]bool, n)
	off := 10
	for i := 1; i < n; i++ {
		r.items[i] = off + 1
		var size int
		switch tag := int(b[off]); tag {
		case tagField, tagMethod, tagInterfaceMethod, tagInt, tagFloat, tagNameType, tagInvokeDynamic:
			size = 5
		case tagLong, tagDouble:
			size = 9
			i++
		case tagUTF8:
			length := r.ReadUnsignedShort(off + 1)
			size = 3 + length
			r.maxStringLength = max(r.maxStringLength, length)
		case tagHandle:
			size = 4
		case tagClass, tagString, tagMethodType:
			size = 3
		default:
			failMalformed("unknown constant pool tag %d at offset %d", tag, off)
		}
		off += size
	}
	if off > len(b) {
		failMalformed("constant pool overruns the class file")
	}
	r.header = off
	r.scratch = make([]uint16, 0, r.maxStringLength)
	r.indexBootstrapMethods()
	return r, nil
}

// indexBootstrapMethods finds the BootstrapMethods attribute, which
// invokedynamic instructions and copyPool need before the class attributes
// are visited.
func (r *Reader) indexBootstrapMethods() {
	u := r.header + 8 + 2*r.ReadUnsignedShort(r.header+6)
	u = r.skipMembers(u)
	u = r.skipMembers(u)
	r.forEachAttribute(u, func(name string, body, length int) {
		if name != "BootstrapMethods" {
			return
		}
		r.bootstrapAt, r.bootstrapSize = body, length
		n := r.ReadUnsignedShort(body)
		r.bootstrap = make([]int, n)
		v := body + 2
		for i := range r.bootstrap {
			r.bootstrap[i] = v
			v += 4 + 2*r.ReadUnsignedShort(v+2)
		}
	})
}

// skipMembers returns the offset just past the fields or methods table at u.
func (r *Reader) skipMembers(u int) int {
	n := r.ReadUnsignedShort(u)
	u += 2
	for ; n > 0; n-- {
		u = r.forEachAttribute(u+6, nil)
	}
	return u
}

// forEachAttribute calls fn with the name, body offset and length of each
// attribute of the table at u, and returns the offset past the table.
func (r *Reader) forEachAttribute(u int, fn func(name string, body, length int)) int {
	n := r.ReadUnsignedShort(u)
	u += 2
	for ; n > 0; n-- {
		name := r.ReadUTF8(u)
		length := r.ReadInt(u + 2)
		if length < 0 || u+6+length > len(r.b) {
			failMalformed("attribute %s overruns the class file", name)
		}
		if fn != nil {
			fn(name, u+6, length)
		}
		u += 6 + length
	}
	return u
}

// ---------------------------------------------------------------------------
// Header accessors
// ---------------------------------------------------------------------------

// Bytes returns the class file the reader was created from.
func (r *Reader) Bytes() []byte { return r.b }

// Access returns the class access flags.
func (r *Reader) Access() int { return r.ReadUnsignedShort(r.header) }

// ClassName returns the internal name of the class.
func (r *Reader) ClassName() string { return r.ReadClass(r.header + 2) }

// SuperName returns the internal name of the super class, or "" for
// java/lang/Object.
func (r *Reader) SuperName() string { return r.ReadClass(r.header + 4) }

// Interfaces returns the internal names of the direct super interfaces.
func (r *Reader) Interfaces() []string {
	n := r.ReadUnsignedShort(r.header + 6)
	names := make([]string, n)
	for i := range names {
		names[i] = r.ReadClass(r.header + 8 + 2*i)
	}
	return names
}

// ItemCount returns the constant pool count.
func (r *Reader) ItemCount() int { return len(r.items) }

// ItemOffset returns the offset of constant pool entry i, just past its tag.
func (r *Reader) ItemOffset(i int) int { return r.items[i] }

// MaxStringLength returns the byte length of the longest UTF-8 constant.
func (r *Reader) MaxStringLength() int { return r.maxStringLength }

// ---------------------------------------------------------------------------
// Low level decoding
// ---------------------------------------------------------------------------

func (r *Reader) ReadByte(off int) int { return int(r.b[off]) }

func (r *Reader) ReadUnsignedShort(off int) int {
	return int(r.b[off])<<8 | int(r.b[off+1])
}

func (r *Reader) ReadShort(off int) int {
	return int(int16(r.ReadUnsignedShort(off)))
}

func (r *Reader) ReadInt(off int) int {
	b := r.b
	return int(int32(uint32(b[off])<<24 | uint32(b[off+1])<<16 | uint32(b[off+2])<<8 | uint32(b[off+3])))
}

func (r *Reader) ReadLong(off int) int64 {
	return int64(uint32(r.ReadInt(off)))<<32 | int64(uint32(r.ReadInt(off+4)))
}

// ReadUTF8 reads the constant pool index at off and returns that UTF-8
// entry, or "" for index 0.
func (r *Reader) ReadUTF8(off int) string {
	i := r.ReadUnsignedShort(off)
	if i == 0 {
		return ""
	}
	return r.utf8At(i)
}

func (r *Reader) utf8At(i int) string {
	if r.decoded[i] {
		return r.utf8[i]
	}
	off := r.items[i]
	if r.b[off-1] != tagUTF8 {
		failMalformed("constant %d is not a UTF-8 entry", i)
	}
	n := r.ReadUnsignedShort(off)
	r.scratch = bytevec.AppendUTF16(r.scratch[:0], r.b[off+2:off+2+n])
	s := bytevec.DecodeUTF16(r.scratch)
	r.utf8[i], r.decoded[i] = s, true
	return s
}

// ReadClass reads the constant pool index at off and returns the name of
// that class entry, or "" for index 0.
func (r *Reader) ReadClass(off int) string {
	i := r.ReadUnsignedShort(off)
	if i == 0 {
		return ""
	}
	return r.ReadUTF8(r.items[i])
}

// ReadConst returns the value of a loadable constant pool entry: int32,
// float32, int64, float64, string, Type or Handle.
func (r *Reader) ReadConst(i int) any {
	off := r.items[i]
	switch tag := r.b[off-1]; tag {
	case tagInt:
		return int32(r.ReadInt(off))
	case tagFloat:
		return math.Float32frombits(uint32(r.ReadInt(off)))
	case tagLong:
		return r.ReadLong(off)
	case tagDouble:
		return math.Float64frombits(uint64(r.ReadLong(off)))
	case tagClass:
		return ObjectType(r.ReadUTF8(off))
	case tagString:
		return r.ReadUTF8(off)
	case tagMethodType:
		return MethodType(r.ReadUTF8(off))
	case tagHandle:
		return r.readHandle(off)
	default:
		failMalformed("constant %d with tag %d is not loadable", i, tag)
		return nil
	}
}

func (r *Reader) readHandle(off int) Handle {
	ref := r.items[r.ReadUnsignedShort(off+1)]
	nt := r.items[r.ReadUnsignedShort(ref+2)]
	return Handle{
		Tag:   int(r.b[off]),
		Owner: r.ReadClass(ref),
		Name:  r.ReadUTF8(nt),
		Desc:  r.ReadUTF8(nt + 2),
		Itf:   r.b[ref-1] == tagInterfaceMethod,
	}
}

// ReadLabel returns the label of a bytecode offset, creating it if needed.
// It is meant for codecs of attributes inside a Code attribute.
func (r *Reader) ReadLabel(offset int, labels []*Label) *Label {
	if offset < 0 || offset >= len(labels) {
		failMalformed("bytecode offset %d out of range", offset)
	}
	l := labels[offset]
	if l == nil {
		l = &Label{}
		labels[offset] = l
	}
	l.status &^= labelDebug
	return l
}

// readDebugLabel returns the label of a bytecode offset for debug
// information. A label created here is not visited unless an instruction
// or a frame refers to it too.
func (r *Reader) readDebugLabel(offset int, labels []*Label) *Label {
	if offset < 0 || offset >= len(labels) {
		failMalformed("bytecode offset %d out of range", offset)
	}
	l := labels[offset]
	if l == nil {
		l = &Label{status: labelDebug}
		labels[offset] = l
	}
	return l
}

// ---------------------------------------------------------------------------
// Accept
// ---------------------------------------------------------------------------

type readContext struct {
	flags  int
	codecs []AttributeCodec
}

// Accept visits the class with cv. Attributes named by one of codecs are
// decoded with it; other unknown attributes are passed on with their raw
// content, except inside Code attributes where they are dropped because
// their offsets cannot be kept valid. flags is a combination of SkipCode,
// SkipDebug, SkipFrames, ExpandFrames and ExpandPseudoInsns.
func (r *Reader) Accept(cv ClassVisitor, codecs []AttributeCodec, flags int) (err error) {
	defer recoverMalformed(&err)
	ctx := &readContext{flags: flags, codecs: codecs}

	access := r.Access()
	name := r.ClassName()
	superName := r.SuperName()
	interfaces := r.Interfaces()
	fields := r.header + 8 + 2*len(interfaces)
	methods := r.skipMembers(fields)
	u := r.skipMembers(methods)

	var (
		signature, sourceFile, sourceDebug string
		outerOwner, outerName, outerDesc   string
		anns, ianns, innerClasses          int
		attrs                              []*Attribute
	)
	r.forEachAttribute(u, func(attr string, body, length int) {
		switch attr {
		case "SourceFile":
			if flags&SkipDebug == 0 {
				sourceFile = r.ReadUTF8(body)
			}
		case "SourceDebugExtension":
			if flags&SkipDebug == 0 {
				sourceDebug = bytevec.DecodeModifiedUTF8(r.b[body : body+length])
			}
		case "InnerClasses":
			innerClasses = body
		case "EnclosingMethod":
			outerOwner = r.ReadClass(body)
			if nt := r.ReadUnsignedShort(body + 2); nt != 0 {
				outerName = r.ReadUTF8(r.items[nt])
				outerDesc = r.ReadUTF8(r.items[nt] + 2)
			}
		case "Signature":
			signature = r.ReadUTF8(body)
		case "RuntimeVisibleAnnotations":
			anns = body
		case "RuntimeInvisibleAnnotations":
			ianns = body
		case "Deprecated":
			access |= AccDeprecated
		case "Synthetic":
			access |= AccSynthetic | accSyntheticAttribute
		case "BootstrapMethods":
			// Indexed by NewReader and rebuilt by the writer.
		default:
			attrs = append(attrs, r.readAttribute(ctx, attr, body, length, nil))
		}
	})

	cv.Visit(r.ReadInt(4), access, name, signature, superName, interfaces)
	if sourceFile != "" || sourceDebug != "" {
		cv.VisitSource(sourceFile, sourceDebug)
	}
	if outerOwner != "" {
		cv.VisitOuterClass(outerOwner, outerName, outerDesc)
	}
	if anns != 0 {
		r.readAnnotations(anns, func(desc string) AnnotationVisitor { return cv.VisitAnnotation(desc, true) })
	}
	if ianns != 0 {
		r.readAnnotations(ianns, func(desc string) AnnotationVisitor { return cv.VisitAnnotation(desc, false) })
	}
	for _, a := range attrs {
		cv.VisitAttribute(a)
	}
	if innerClasses != 0 {
		v := innerClasses + 2
		for n := r.ReadUnsignedShort(innerClasses); n > 0; n-- {
			cv.VisitInnerClass(r.ReadClass(v), r.ReadClass(v+2), r.ReadUTF8(v+4), r.ReadUnsignedShort(v+6))
			v += 8
		}
	}

	v := fields + 2
	for n := r.ReadUnsignedShort(fields); n > 0; n-- {
		v = r.readField(cv, ctx, v)
	}
	v = methods + 2
	for n := r.ReadUnsignedShort(methods); n > 0; n-- {
		v = r.readMethod(cv, ctx, v)
	}
	cv.VisitEnd()
	return nil
}

// readAttribute decodes a non-standard attribute with the codec of the same
// name, or keeps its raw content. It returns nil for a Code attribute
// nobody can decode.
func (r *Reader) readAttribute(ctx *readContext, name string, off, length int, labels []*Label) *Attribute {
	for _, c := range ctx.codecs {
		if c.Name() != name {
			continue
		}
		v, err := c.Decode(r, off, length, labels)
		if err != nil {
			failMalformed("attribute %s: %v", name, err)
		}
		return &Attribute{Name: name, Value: v, Codec: c}
	}
	if labels != nil {
		log.Debugf("dropping unknown code attribute %s", name)
		return nil
	}
	content := make([]byte, length)
	copy(content, r.b[off:off+length])
	return &Attribute{Name: name, Content: content}
}

func (r *Reader) readField(cv ClassVisitor, ctx *readContext, u int) int {
	access := r.ReadUnsignedShort(u)
	name := r.ReadUTF8(u + 2)
	desc := r.ReadUTF8(u + 4)

	var (
		signature   string
		value       any
		anns, ianns int
		attrs       []*Attribute
	)
	end := r.forEachAttribute(u+6, func(attr string, body, length int) {
		switch attr {
		case "ConstantValue":
			if i := r.ReadUnsignedShort(body); i != 0 {
				value = r.ReadConst(i)
			}
		case "Signature":
			signature = r.ReadUTF8(body)
		case "Deprecated":
			access |= AccDeprecated
		case "Synthetic":
			access |= AccSynthetic | accSyntheticAttribute
		case "RuntimeVisibleAnnotations":
			anns = body
		case "RuntimeInvisibleAnnotations":
			ianns = body
		default:
			attrs = append(attrs, r.readAttribute(ctx, attr, body, length, nil))
		}
	})

	fv := cv.VisitField(access, name, desc, signature, value)
	if fv == nil {
		return end
	}
	if anns != 0 {
		r.readAnnotations(anns, func(desc string) AnnotationVisitor { return fv.VisitAnnotation(desc, true) })
	}
	if ianns != 0 {
		r.readAnnotations(ianns, func(desc string) AnnotationVisitor { return fv.VisitAnnotation(desc, false) })
	}
	for _, a := range attrs {
		fv.VisitAttribute(a)
	}
	fv.VisitEnd()
	return end
}

func (r *Reader) readMethod(cv ClassVisitor, ctx *readContext, u int) int {
	access := r.ReadUnsignedShort(u)
	name := r.ReadUTF8(u + 2)
	desc := r.ReadUTF8(u + 4)
	firstAttribute := u + 6

	var (
		signature                  string
		exceptions                 []string
		code, annotationDefault    int
		anns, ianns, panns, ipanns int
		attrs                      []*Attribute
	)
	end := r.forEachAttribute(firstAttribute, func(attr string, body, length int) {
		switch attr {
		case "Code":
			if ctx.flags&SkipCode == 0 {
				code = body
			}
		case "Exceptions":
			exceptions = make([]string, r.ReadUnsignedShort(body))
			for i := range exceptions {
				exceptions[i] = r.ReadClass(body + 2 + 2*i)
			}
		case "Signature":
			signature = r.ReadUTF8(body)
		case "Deprecated":
			access |= AccDeprecated
		case "Synthetic":
			access |= AccSynthetic | accSyntheticAttribute
		case "AnnotationDefault":
			annotationDefault = body
		case "RuntimeVisibleAnnotations":
			anns = body
		case "RuntimeInvisibleAnnotations":
			ianns = body
		case "RuntimeVisibleParameterAnnotations":
			panns = body
		case "RuntimeInvisibleParameterAnnotations":
			ipanns = body
		default:
			attrs = append(attrs, r.readAttribute(ctx, attr, body, length, nil))
		}
	})

	mv := cv.VisitMethod(access, name, desc, signature, exceptions)
	if mv == nil {
		return end
	}

	// An unchanged method going straight into a writer that shares our
	// constant pool is copied without being parsed.
	if mw, ok := mv.(*MethodWriter); ok && ctx.flags&(SkipCode|SkipDebug|SkipFrames) == 0 &&
		mw.canCopy(r, desc, signature, access, exceptions) {
		mw.copied = r.b[firstAttribute:end]
		return end
	}

	if annotationDefault != 0 {
		if dv := mv.VisitAnnotationDefault(); dv != nil {
			r.readAnnotationValue(annotationDefault, "", dv)
			dv.VisitEnd()
		}
	}
	if anns != 0 {
		r.readAnnotations(anns, func(desc string) AnnotationVisitor { return mv.VisitAnnotation(desc, true) })
	}
	if ianns != 0 {
		r.readAnnotations(ianns, func(desc string) AnnotationVisitor { return mv.VisitAnnotation(desc, false) })
	}
	if panns != 0 {
		r.readParameterAnnotations(mv, panns, true)
	}
	if ipanns != 0 {
		r.readParameterAnnotations(mv, ipanns, false)
	}
	for _, a := range attrs {
		mv.VisitAttribute(a)
	}
	if code != 0 {
		mv.VisitCode()
		r.readCode(mv, ctx, access, name, desc, code)
	}
	mv.VisitEnd()
	return end
}

// ---------------------------------------------------------------------------
// Annotations
// ---------------------------------------------------------------------------

// readAnnotations reads a RuntimeVisibleAnnotations or
// RuntimeInvisibleAnnotations body, asking visit for a visitor per
// annotation.
func (r *Reader) readAnnotations(off int, visit func(desc string) AnnotationVisitor) {
	v := off + 2
	for n := r.ReadUnsignedShort(off); n > 0; n-- {
		v = r.readAnnotationValues(v+2, true, visit(r.ReadUTF8(v)))
	}
}

func (r *Reader) readParameterAnnotations(mv MethodVisitor, off int, visible bool) {
	n := r.ReadByte(off)
	v := off + 1
	for i := 0; i < n; i++ {
		count := r.ReadUnsignedShort(v)
		v += 2
		for ; count > 0; count-- {
			desc := r.ReadUTF8(v)
			v = r.readAnnotationValues(v+2, true, mv.VisitParameterAnnotation(i, desc, visible))
		}
	}
}

// readAnnotationValues reads a count followed by element values, named
// (annotation elements) or not (array elements), then ends av. A nil av
// skips the values. It returns the offset past the last value.
func (r *Reader) readAnnotationValues(v int, named bool, av AnnotationVisitor) int {
	n := r.ReadUnsignedShort(v)
	v += 2
	for ; n > 0; n-- {
		if named {
			v = r.readAnnotationValue(v+2, r.ReadUTF8(v), av)
		} else {
			v = r.readAnnotationValue(v, "", av)
		}
	}
	if av != nil {
		av.VisitEnd()
	}
	return v
}

// readAnnotationValue reads one element_value at v and returns the offset
// past it.
func (r *Reader) readAnnotationValue(v int, name string, av AnnotationVisitor) int {
	tag := r.b[v]
	if av == nil {
		switch tag {
		case 'e':
			return v + 5
		case '@':
			return r.readAnnotationValues(v+3, true, nil)
		case '[':
			return r.readAnnotationValues(v+1, false, nil)
		default:
			return v + 3
		}
	}
	v++
	switch tag {
	case 'I', 'J', 'F', 'D':
		av.Visit(name, r.ReadConst(r.ReadUnsignedShort(v)))
	case 'B':
		av.Visit(name, int8(r.ReadInt(r.items[r.ReadUnsignedShort(v)])))
	case 'Z':
		av.Visit(name, r.ReadInt(r.items[r.ReadUnsignedShort(v)]) != 0)
	case 'S':
		av.Visit(name, int16(r.ReadInt(r.items[r.ReadUnsignedShort(v)])))
	case 'C':
		av.Visit(name, uint16(r.ReadInt(r.items[r.ReadUnsignedShort(v)])))
	case 's':
		av.Visit(name, r.ReadUTF8(v))
	case 'c':
		av.Visit(name, Type{r.ReadUTF8(v)})
	case 'e':
		av.VisitEnum(name, r.ReadUTF8(v), r.ReadUTF8(v+2))
		return v + 4
	case '@':
		return r.readAnnotationValues(v+2, true, av.VisitAnnotation(name, r.ReadUTF8(v)))
	case '[':
		if arr, end, ok := r.readPrimitiveArray(v); ok {
			av.Visit(name, arr)
			return end
		}
		return r.readAnnotationValues(v, false, av.VisitArray(name))
	default:
		failMalformed("annotation element tag %q", tag)
	}
	return v + 2
}

// readPrimitiveArray reads a non-empty array of primitive element values as
// a Go slice. ok is false for empty arrays and arrays of other values.
func (r *Reader) readPrimitiveArray(v int) (arr any, end int, ok bool) {
	n := r.ReadUnsignedShort(v)
	if n == 0 {
		return nil, 0, false
	}
	v += 2
	elemTag := r.b[v]
	for i := 0; i < n; i++ {
		if r.b[v+3*i] != elemTag {
			return nil, 0, false
		}
	}
	value := func(i int) int { return r.ReadInt(r.items[r.ReadUnsignedShort(v+3*i+1)]) }
	switch elemTag {
	case 'B':
		a := make([]int8, n)
		for i := range a {
			a[i] = int8(value(i))
		}
		arr = a
	case 'Z':
		a := make([]bool, n)
		for i := range a {
			a[i] = value(i) != 0
		}
		arr = a
	case 'S':
		a := make([]int16, n)
		for i := range a {
			a[i] = int16(value(i))
		}
		arr = a
	case 'C':
		a := make([]uint16, n)
		for i := range a {
			a[i] = uint16(value(i))
		}
		arr = a
	case 'I':
		a := make([]int32, n)
		for i := range a {
			a[i] = int32(value(i))
		}
		arr = a
	case 'F':
		a := make([]float32, n)
		for i := range a {
			a[i] = math.Float32frombits(uint32(value(i)))
		}
		arr = a
	case 'J':
		a := make([]int64, n)
		for i := range a {
			a[i] = r.ReadLong(r.items[r.ReadUnsignedShort(v+3*i+1)])
		}
		arr = a
	case 'D':
		a := make([]float64, n)
		for i := range a {
			a[i] = math.Float64frombits(uint64(r.ReadLong(r.items[r.ReadUnsignedShort(v+3*i+1)])))
		}
		arr = a
	default:
		return nil, 0, false
	}
	return arr, v + 3*n, true
}

// ---------------------------------------------------------------------------
// Constant pool copy
// ---------------------------------------------------------------------------

// copyPool seeds p with the constant pool and bootstrap methods of the
// class, keeping every index, so unchanged methods can be copied verbatim.
func (r *Reader) copyPool(p *constantPool) {
	for i := 1; i < len(r.items); i++ {
		off := r.items[i]
		e := poolEntry{index: i, kind: int(r.b[off-1])}
		switch e.kind {
		case tagField, tagMethod, tagInterfaceMethod:
			nt := r.items[r.ReadUnsignedShort(off+2)]
			e.str1 = r.ReadClass(off)
			e.str2 = r.ReadUTF8(nt)
			e.str3 = r.ReadUTF8(nt + 2)
		case tagInt, tagFloat:
			e.intVal = int32(r.ReadInt(off))
		case tagLong, tagDouble:
			e.longVal = r.ReadLong(off)
		case tagUTF8:
			e.str1 = r.utf8At(i)
		case tagHandle:
			h := r.readHandle(off)
			e.intVal = h.key()
			e.str1, e.str2, e.str3 = h.Owner, h.Name, h.Desc
		case tagInvokeDynamic:
			nt := r.items[r.ReadUnsignedShort(off+2)]
			e.intVal = int32(r.ReadUnsignedShort(off))
			e.str1 = r.ReadUTF8(nt)
			e.str2 = r.ReadUTF8(nt + 2)
		case tagNameType:
			e.str1 = r.ReadUTF8(off)
			e.str2 = r.ReadUTF8(off + 2)
		default:
			e.str1 = r.ReadUTF8(off)
		}
		e.computeHash()
		p.put(&e)
		if e.kind == tagLong || e.kind == tagDouble {
			i++
		}
	}
	p.out = bytevec.New(r.header - 10)
	p.out.PutByteArray(r.b[10:r.header], r.header-10)
	p.next = len(r.items)

	if len(r.bootstrap) == 0 {
		return
	}
	p.bootstrap = bytevec.New(r.bootstrapSize)
	p.bootstrap.PutByteArray(r.b[r.bootstrapAt+2:r.bootstrapAt+r.bootstrapSize], r.bootstrapSize-2)
	p.bootstrapCount = len(r.bootstrap)
	for i, off := range r.bootstrap {
		size := 4 + 2*r.ReadUnsignedShort(off+2)
		e := poolEntry{kind: kindBootstrap, intVal: int32(i), str1: string(r.b[off : off+size])}
		e.computeHash()
		p.put(&e)
	}
}

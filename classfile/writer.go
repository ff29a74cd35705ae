package classfile

import (
	"fmt"

	"github.com/chazu/classkit/bytevec"
)

// Writer flags.
const (
	// ComputeMaxs computes the max stack and max locals of every method.
	// The values passed to VisitMaxs are ignored.
	ComputeMaxs = 1 << iota
	// ComputeFrames computes the stack map frames of every method, and
	// implies ComputeMaxs. Frames passed to VisitFrame are ignored.
	ComputeFrames
)

// ---------------------------------------------------------------------------
// Writer
// ---------------------------------------------------------------------------

// Writer is a ClassVisitor that produces a class file. A Writer builds one
// class; it must be discarded after ToBytes or after any failure.
type Writer struct {
	// CommonSuperClass returns the internal name of the common super class
	// of two classes. It is used when computing frames; nil means
	// "java/lang/Object" for any two distinct classes.
	CommonSuperClass func(a, b string) string

	pool    *constantPool
	reader  *Reader
	compute int

	version    int
	access     int
	thisName   string
	nameIndex  int
	superIndex int
	interfaces []int
	sigIndex   int

	sourceFile      int
	sourceDebug     []byte
	enclosingOwner  int
	enclosingMethod int
	visibleAnns     []*AnnotationWriter
	invisibleAnns   []*AnnotationWriter
	attrs           attributeList
	innerClasses    *bytevec.ByteVector
	innerClassCount int

	fields  []*FieldWriter
	methods []*MethodWriter

	// needsExpansion is set when a pseudo opcode was written; ToBytes then
	// rewrites the class from its own output.
	needsExpansion bool
	// hasFrames is set when frames were given by the caller.
	hasFrames bool

	result []byte
	err    error
}

var _ ClassVisitor = (*Writer)(nil)

// NewWriter returns a Writer for a class built from scratch.
func NewWriter(flags int) *Writer {
	return &Writer{
		pool:    newConstantPool(),
		compute: computeMode(flags),
	}
}

// NewWriterFromReader returns a Writer whose constant pool starts as a copy
// of the pool of r. Methods that r visits into this writer unchanged are
// copied as is instead of being decoded and re-encoded.
func NewWriterFromReader(r *Reader, flags int) *Writer {
	w := NewWriter(flags)
	w.reader = r
	r.copyPool(w.pool)
	return w
}

func computeMode(flags int) int {
	switch {
	case flags&ComputeFrames != 0:
		return computeFrames
	case flags&ComputeMaxs != 0:
		return computeMaxs
	default:
		return computeNothing
	}
}

// fail records the first error; later visits are still accepted but
// ToBytes returns the error.
func (w *Writer) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *Writer) mergedType(t, u int) int {
	return w.pool.mergedType(t, u, w.commonSuperClass)
}

func (w *Writer) commonSuperClass(a, b string) string {
	if w.CommonSuperClass != nil {
		return w.CommonSuperClass(a, b)
	}
	return "java/lang/Object"
}

// ---------------------------------------------------------------------------
// Constant interning for attribute codecs
// ---------------------------------------------------------------------------

// NewUTF8 returns the pool index of a UTF8 constant.
func (w *Writer) NewUTF8(s string) int { return w.pool.utf8(s) }

// NewClass returns the pool index of a class constant.
func (w *Writer) NewClass(internalName string) int { return w.pool.class(internalName).index }

// NewNameType returns the pool index of a NameAndType constant.
func (w *Writer) NewNameType(name, desc string) int { return w.pool.nameType(name, desc) }

// NewField returns the pool index of a field reference.
func (w *Writer) NewField(owner, name, desc string) int {
	return w.pool.field(owner, name, desc).index
}

// NewMethod returns the pool index of a method reference.
func (w *Writer) NewMethod(owner, name, desc string, itf bool) int {
	return w.pool.method(owner, name, desc, itf).index
}

// NewMethodType returns the pool index of a MethodType constant.
func (w *Writer) NewMethodType(desc string) int { return w.pool.methodType(desc).index }

// NewHandle returns the pool index of a MethodHandle constant.
func (w *Writer) NewHandle(h Handle) int { return w.pool.handle(h).index }

// NewInvokeDynamic returns the pool index of an InvokeDynamic constant.
func (w *Writer) NewInvokeDynamic(name, desc string, bsm Handle, bsmArgs ...any) int {
	return w.pool.invokeDynamic(name, desc, bsm, bsmArgs).index
}

// NewConst returns the pool index of an int32, float32, int64, float64,
// string, Type or Handle constant.
func (w *Writer) NewConst(value any) (int, error) {
	e, err := w.pool.constant(value)
	if err != nil {
		return 0, err
	}
	return e.index, nil
}

// ---------------------------------------------------------------------------
// ClassVisitor
// ---------------------------------------------------------------------------

func (w *Writer) Visit(version, access int, name, signature, superName string, interfaces []string) {
	w.version = version
	w.access = access
	w.thisName = name
	w.nameIndex = w.pool.class(name).index
	if signature != "" {
		w.sigIndex = w.pool.utf8(signature)
	}
	if superName != "" {
		w.superIndex = w.pool.class(superName).index
	}
	for _, itf := range interfaces {
		w.interfaces = append(w.interfaces, w.pool.class(itf).index)
	}
}

func (w *Writer) VisitSource(source, debug string) {
	if source != "" {
		w.sourceFile = w.pool.utf8(source)
	}
	if debug != "" {
		w.sourceDebug = bytevec.EncodeModifiedUTF8(debug)
	}
}

func (w *Writer) VisitOuterClass(owner, name, desc string) {
	w.enclosingOwner = w.pool.class(owner).index
	if name != "" && desc != "" {
		w.enclosingMethod = w.pool.nameType(name, desc)
	}
}

func (w *Writer) VisitAnnotation(desc string, visible bool) AnnotationVisitor {
	aw := newTopAnnotationWriter(w, desc)
	if visible {
		w.visibleAnns = append(w.visibleAnns, aw)
	} else {
		w.invisibleAnns = append(w.invisibleAnns, aw)
	}
	return aw
}

func (w *Writer) VisitAttribute(attr *Attribute) {
	w.attrs = append(w.attrs, attr)
}

// VisitInnerClass adds an InnerClasses entry. Entries are unique per inner
// class name; the class constant records the entry number.
func (w *Writer) VisitInnerClass(name, outerName, innerName string, access int) {
	if w.innerClasses == nil {
		w.innerClasses = bytevec.New(32)
	}
	e := w.pool.class(name)
	if e.aux != 0 {
		return
	}
	w.innerClassCount++
	w.innerClasses.PutShort(e.index)
	if outerName != "" {
		w.innerClasses.PutShort(w.pool.class(outerName).index)
	} else {
		w.innerClasses.PutShort(0)
	}
	if innerName != "" {
		w.innerClasses.PutShort(w.pool.utf8(innerName))
	} else {
		w.innerClasses.PutShort(0)
	}
	w.innerClasses.PutShort(access)
	e.aux = w.innerClassCount
}

func (w *Writer) VisitField(access int, name, desc, signature string, value any) FieldVisitor {
	fw := newFieldWriter(w, access, name, desc, signature, value)
	w.fields = append(w.fields, fw)
	return fw
}

func (w *Writer) VisitMethod(access int, name, desc, signature string, exceptions []string) MethodVisitor {
	mw := newMethodWriter(w, access, name, desc, signature, exceptions, w.compute)
	w.methods = append(w.methods, mw)
	return mw
}

func (w *Writer) VisitEnd() {}

// ---------------------------------------------------------------------------
// Serialization
// ---------------------------------------------------------------------------

// putCommonAttributes adds the Synthetic, Deprecated and Signature
// attributes shared by classes, fields and methods.
func (w *Writer) putCommonAttributes(attrs *attributeWriter, access, sigIndex int) {
	if w.needsSyntheticAttribute(access) {
		attrs.add(w, "Synthetic", nil)
	}
	if access&AccDeprecated != 0 {
		attrs.add(w, "Deprecated", nil)
	}
	if sigIndex != 0 {
		attrs.add(w, "Signature", []byte{byte(sigIndex >> 8), byte(sigIndex)})
	}
}

// ToBytes returns the class file. Everything after the constant pool is
// serialized first, so that every constant it refers to is interned before
// the pool is written.
func (w *Writer) ToBytes() ([]byte, error) {
	if w.result != nil || w.err != nil {
		return w.result, w.err
	}

	body := bytevec.New(1024)
	body.PutShort(w.access &^ syntheticMask(w.access))
	body.PutShort(w.nameIndex)
	body.PutShort(w.superIndex)
	body.PutShort(len(w.interfaces))
	for _, i := range w.interfaces {
		body.PutShort(i)
	}
	body.PutShort(len(w.fields))
	for _, fw := range w.fields {
		fw.put(body)
	}
	body.PutShort(len(w.methods))
	for _, mw := range w.methods {
		mw.put(body)
	}
	w.classAttributes().put(body)

	if w.pool.err != nil {
		w.fail(w.pool.err)
	}
	if w.err != nil {
		return nil, w.err
	}
	if w.pool.next > 0xFFFF {
		w.fail(fmt.Errorf("%w: %d constant pool entries", ErrClassTooLarge, w.pool.next))
		return nil, w.err
	}

	out := bytevec.New(10 + w.pool.out.Len() + body.Len())
	out.PutInt(0xCAFEBABE)
	out.PutInt(w.version)
	out.PutShort(w.pool.next)
	out.PutByteArray(w.pool.out.Bytes(), w.pool.out.Len())
	out.PutByteArray(body.Bytes(), body.Len())

	if w.needsExpansion {
		return w.expand(out.Bytes())
	}
	w.result = out.Bytes()
	return w.result, nil
}

func (w *Writer) classAttributes() *attributeWriter {
	var attrs attributeWriter
	if w.sigIndex != 0 {
		attrs.add(w, "Signature", []byte{byte(w.sigIndex >> 8), byte(w.sigIndex)})
	}
	if w.sourceFile != 0 {
		attrs.add(w, "SourceFile", []byte{byte(w.sourceFile >> 8), byte(w.sourceFile)})
	}
	if w.sourceDebug != nil {
		attrs.add(w, "SourceDebugExtension", w.sourceDebug)
	}
	if w.enclosingOwner != 0 {
		attrs.add(w, "EnclosingMethod", []byte{
			byte(w.enclosingOwner >> 8), byte(w.enclosingOwner),
			byte(w.enclosingMethod >> 8), byte(w.enclosingMethod),
		})
	}
	if w.access&AccDeprecated != 0 {
		attrs.add(w, "Deprecated", nil)
	}
	if w.needsSyntheticAttribute(w.access) {
		attrs.add(w, "Synthetic", nil)
	}
	if w.innerClasses != nil {
		b := bytevec.New(2 + w.innerClasses.Len())
		b.PutShort(w.innerClassCount)
		b.PutByteArray(w.innerClasses.Bytes(), w.innerClasses.Len())
		attrs.add(w, "InnerClasses", b.Bytes())
	}
	attrs.addAnnotations(w, "RuntimeVisibleAnnotations", w.visibleAnns)
	attrs.addAnnotations(w, "RuntimeInvisibleAnnotations", w.invisibleAnns)
	attrs.addList(w, w.attrs)
	// Last, since encoding the other attributes may add bootstrap methods.
	if p := w.pool; p.bootstrap != nil {
		b := bytevec.New(2 + p.bootstrap.Len())
		b.PutShort(p.bootstrapCount)
		b.PutByteArray(p.bootstrap.Bytes(), p.bootstrap.Len())
		attrs.add(w, "BootstrapMethods", b.Bytes())
	}
	return &attrs
}

// expand rewrites a class containing pseudo opcodes by reading it back with
// ExpandPseudoInsns. The constant pool is kept, so the second pass only
// appends to it. Offsets grow during expansion, which may require further
// passes.
func (w *Writer) expand(b []byte) ([]byte, error) {
	log.Debugf("expanding long branches in %s", w.thisName)
	r, err := NewReader(b)
	if err != nil {
		return nil, err
	}
	codecs := w.codecs()
	mode := w.compute
	flags := ExpandPseudoInsns
	switch {
	case mode == computeFrames:
		flags |= SkipFrames
	case w.hasFrames:
		flags |= ExpandFrames
		w.compute = computeInsertedFrames
	default:
		w.compute = computeNothing
	}
	w.reset()
	if err := r.Accept(w, codecs, flags); err != nil {
		return nil, err
	}
	w.compute = mode
	return w.ToBytes()
}

// reset clears everything but the constant pool.
func (w *Writer) reset() {
	w.reader = nil
	w.interfaces = nil
	w.sigIndex = 0
	w.superIndex = 0
	w.sourceFile = 0
	w.sourceDebug = nil
	w.enclosingOwner = 0
	w.enclosingMethod = 0
	w.visibleAnns = nil
	w.invisibleAnns = nil
	w.attrs = nil
	w.innerClasses = nil
	w.innerClassCount = 0
	w.fields = nil
	w.methods = nil
	w.needsExpansion = false
	w.hasFrames = false
	w.pool.clearInnerClassMarks()
}

// codecs returns the codecs of the decoded attributes written so far.
func (w *Writer) codecs() []AttributeCodec {
	var codecs []AttributeCodec
	seen := map[string]bool{}
	collect := func(l attributeList) {
		for _, a := range l {
			if a.Codec != nil && !seen[a.Codec.Name()] {
				seen[a.Codec.Name()] = true
				codecs = append(codecs, a.Codec)
			}
		}
	}
	collect(w.attrs)
	for _, fw := range w.fields {
		collect(fw.attrs)
	}
	for _, mw := range w.methods {
		collect(mw.attrs)
		collect(mw.codeAttrs)
	}
	return codecs
}

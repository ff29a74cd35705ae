package classfile

// ---------------------------------------------------------------------------
// Visitor interfaces
// ---------------------------------------------------------------------------
//
// A Reader pushes the structure of a class file into a ClassVisitor. A Writer
// is a ClassVisitor that serializes what it is told. Transformations sit in
// between as visitors that forward to a next visitor, usually by embedding
// one of the adapters in adapter.go.
//
// Optional string arguments (signatures, super class of java/lang/Object,
// source file names) use "" for absent. Visit methods returning a nested
// visitor may return nil to skip that part.

// ClassVisitor receives the events of one class, in this order:
// Visit, VisitSource?, VisitOuterClass?, (VisitAnnotation | VisitAttribute)*,
// (VisitInnerClass | VisitField | VisitMethod)*, VisitEnd.
type ClassVisitor interface {
	Visit(version, access int, name, signature, superName string, interfaces []string)
	VisitSource(source, debug string)
	VisitOuterClass(owner, name, desc string)
	VisitAnnotation(desc string, visible bool) AnnotationVisitor
	VisitAttribute(attr *Attribute)
	VisitInnerClass(name, outerName, innerName string, access int)
	VisitField(access int, name, desc, signature string, value any) FieldVisitor
	VisitMethod(access int, name, desc, signature string, exceptions []string) MethodVisitor
	VisitEnd()
}

// FieldVisitor receives the annotations and attributes of one field.
type FieldVisitor interface {
	VisitAnnotation(desc string, visible bool) AnnotationVisitor
	VisitAttribute(attr *Attribute)
	VisitEnd()
}

// MethodVisitor receives the events of one method. Code events come between
// VisitCode and VisitMaxs; labels passed to instructions must be visited
// exactly once with VisitLabel.
type MethodVisitor interface {
	VisitAnnotationDefault() AnnotationVisitor
	VisitAnnotation(desc string, visible bool) AnnotationVisitor
	VisitParameterAnnotation(parameter int, desc string, visible bool) AnnotationVisitor
	VisitAttribute(attr *Attribute)
	VisitCode()

	// VisitFrame visits a stack map frame. Locals and stack entries are a
	// FrameItem, an internal name string or the *Label of a NEW instruction.
	// For FChop only the length of local is meaningful: it is the number of
	// locals removed.
	VisitFrame(kind FrameKind, local []any, stack []any)

	VisitInsn(opcode int)
	VisitIntInsn(opcode, operand int)
	VisitVarInsn(opcode, local int)
	VisitTypeInsn(opcode int, typ string)
	VisitFieldInsn(opcode int, owner, name, desc string)
	VisitMethodInsn(opcode int, owner, name, desc string, itf bool)
	VisitInvokeDynamicInsn(name, desc string, bsm Handle, bsmArgs ...any)
	VisitJumpInsn(opcode int, label *Label)
	VisitLabel(label *Label)
	VisitLdcInsn(value any)
	VisitIincInsn(local, increment int)
	VisitTableSwitchInsn(min, max int, dflt *Label, labels ...*Label)
	VisitLookupSwitchInsn(dflt *Label, keys []int, labels []*Label)
	VisitMultiANewArrayInsn(desc string, dims int)
	VisitTryCatchBlock(start, end, handler *Label, typ string)
	VisitLocalVariable(name, desc, signature string, start, end *Label, index int)
	VisitLineNumber(line int, start *Label)
	VisitMaxs(maxStack, maxLocals int)
	VisitEnd()
}

// AnnotationVisitor receives the element values of one annotation or array.
// Primitive values use int8 (byte), bool, uint16 (char), int16, int32,
// int64, float32, float64; classes use Type; primitive arrays may be passed
// as a single Go slice of those element types.
type AnnotationVisitor interface {
	Visit(name string, value any)
	VisitEnum(name, desc, value string)
	VisitAnnotation(name, desc string) AnnotationVisitor
	VisitArray(name string) AnnotationVisitor
	VisitEnd()
}

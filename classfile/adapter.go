package classfile

// ---------------------------------------------------------------------------
// Forwarding adapters
// ---------------------------------------------------------------------------
//
// Each adapter forwards every event to Next. A transformer embeds an adapter
// and overrides only the methods it cares about, calling through to the
// embedded adapter (or Next) to continue the chain. A nil Next drops events.

// ClassAdapter forwards class events to Next.
type ClassAdapter struct {
	Next ClassVisitor
}

func (a *ClassAdapter) Visit(version, access int, name, signature, superName string, interfaces []string) {
	if a.Next != nil {
		a.Next.Visit(version, access, name, signature, superName, interfaces)
	}
}

func (a *ClassAdapter) VisitSource(source, debug string) {
	if a.Next != nil {
		a.Next.VisitSource(source, debug)
	}
}

func (a *ClassAdapter) VisitOuterClass(owner, name, desc string) {
	if a.Next != nil {
		a.Next.VisitOuterClass(owner, name, desc)
	}
}

func (a *ClassAdapter) VisitAnnotation(desc string, visible bool) AnnotationVisitor {
	if a.Next != nil {
		return a.Next.VisitAnnotation(desc, visible)
	}
	return nil
}

func (a *ClassAdapter) VisitAttribute(attr *Attribute) {
	if a.Next != nil {
		a.Next.VisitAttribute(attr)
	}
}

func (a *ClassAdapter) VisitInnerClass(name, outerName, innerName string, access int) {
	if a.Next != nil {
		a.Next.VisitInnerClass(name, outerName, innerName, access)
	}
}

func (a *ClassAdapter) VisitField(access int, name, desc, signature string, value any) FieldVisitor {
	if a.Next != nil {
		return a.Next.VisitField(access, name, desc, signature, value)
	}
	return nil
}

func (a *ClassAdapter) VisitMethod(access int, name, desc, signature string, exceptions []string) MethodVisitor {
	if a.Next != nil {
		return a.Next.VisitMethod(access, name, desc, signature, exceptions)
	}
	return nil
}

func (a *ClassAdapter) VisitEnd() {
	if a.Next != nil {
		a.Next.VisitEnd()
	}
}

// FieldAdapter forwards field events to Next.
type FieldAdapter struct {
	Next FieldVisitor
}

func (a *FieldAdapter) VisitAnnotation(desc string, visible bool) AnnotationVisitor {
	if a.Next != nil {
		return a.Next.VisitAnnotation(desc, visible)
	}
	return nil
}

func (a *FieldAdapter) VisitAttribute(attr *Attribute) {
	if a.Next != nil {
		a.Next.VisitAttribute(attr)
	}
}

func (a *FieldAdapter) VisitEnd() {
	if a.Next != nil {
		a.Next.VisitEnd()
	}
}

// MethodAdapter forwards method events to Next.
type MethodAdapter struct {
	Next MethodVisitor
}

func (a *MethodAdapter) VisitAnnotationDefault() AnnotationVisitor {
	if a.Next != nil {
		return a.Next.VisitAnnotationDefault()
	}
	return nil
}

func (a *MethodAdapter) VisitAnnotation(desc string, visible bool) AnnotationVisitor {
	if a.Next != nil {
		return a.Next.VisitAnnotation(desc, visible)
	}
	return nil
}

func (a *MethodAdapter) VisitParameterAnnotation(parameter int, desc string, visible bool) AnnotationVisitor {
	if a.Next != nil {
		return a.Next.VisitParameterAnnotation(parameter, desc, visible)
	}
	return nil
}

func (a *MethodAdapter) VisitAttribute(attr *Attribute) {
	if a.Next != nil {
		a.Next.VisitAttribute(attr)
	}
}

func (a *MethodAdapter) VisitCode() {
	if a.Next != nil {
		a.Next.VisitCode()
	}
}

func (a *MethodAdapter) VisitFrame(kind FrameKind, local []any, stack []any) {
	if a.Next != nil {
		a.Next.VisitFrame(kind, local, stack)
	}
}

func (a *MethodAdapter) VisitInsn(opcode int) {
	if a.Next != nil {
		a.Next.VisitInsn(opcode)
	}
}

func (a *MethodAdapter) VisitIntInsn(opcode, operand int) {
	if a.Next != nil {
		a.Next.VisitIntInsn(opcode, operand)
	}
}

func (a *MethodAdapter) VisitVarInsn(opcode, local int) {
	if a.Next != nil {
		a.Next.VisitVarInsn(opcode, local)
	}
}

func (a *MethodAdapter) VisitTypeInsn(opcode int, typ string) {
	if a.Next != nil {
		a.Next.VisitTypeInsn(opcode, typ)
	}
}

func (a *MethodAdapter) VisitFieldInsn(opcode int, owner, name, desc string) {
	if a.Next != nil {
		a.Next.VisitFieldInsn(opcode, owner, name, desc)
	}
}

func (a *MethodAdapter) VisitMethodInsn(opcode int, owner, name, desc string, itf bool) {
	if a.Next != nil {
		a.Next.VisitMethodInsn(opcode, owner, name, desc, itf)
	}
}

func (a *MethodAdapter) VisitInvokeDynamicInsn(name, desc string, bsm Handle, bsmArgs ...any) {
	if a.Next != nil {
		a.Next.VisitInvokeDynamicInsn(name, desc, bsm, bsmArgs...)
	}
}

func (a *MethodAdapter) VisitJumpInsn(opcode int, label *Label) {
	if a.Next != nil {
		a.Next.VisitJumpInsn(opcode, label)
	}
}

func (a *MethodAdapter) VisitLabel(label *Label) {
	if a.Next != nil {
		a.Next.VisitLabel(label)
	}
}

func (a *MethodAdapter) VisitLdcInsn(value any) {
	if a.Next != nil {
		a.Next.VisitLdcInsn(value)
	}
}

func (a *MethodAdapter) VisitIincInsn(local, increment int) {
	if a.Next != nil {
		a.Next.VisitIincInsn(local, increment)
	}
}

func (a *MethodAdapter) VisitTableSwitchInsn(min, max int, dflt *Label, labels ...*Label) {
	if a.Next != nil {
		a.Next.VisitTableSwitchInsn(min, max, dflt, labels...)
	}
}

func (a *MethodAdapter) VisitLookupSwitchInsn(dflt *Label, keys []int, labels []*Label) {
	if a.Next != nil {
		a.Next.VisitLookupSwitchInsn(dflt, keys, labels)
	}
}

func (a *MethodAdapter) VisitMultiANewArrayInsn(desc string, dims int) {
	if a.Next != nil {
		a.Next.VisitMultiANewArrayInsn(desc, dims)
	}
}

func (a *MethodAdapter) VisitTryCatchBlock(start, end, handler *Label, typ string) {
	if a.Next != nil {
		a.Next.VisitTryCatchBlock(start, end, handler, typ)
	}
}

func (a *MethodAdapter) VisitLocalVariable(name, desc, signature string, start, end *Label, index int) {
	if a.Next != nil {
		a.Next.VisitLocalVariable(name, desc, signature, start, end, index)
	}
}

func (a *MethodAdapter) VisitLineNumber(line int, start *Label) {
	if a.Next != nil {
		a.Next.VisitLineNumber(line, start)
	}
}

func (a *MethodAdapter) VisitMaxs(maxStack, maxLocals int) {
	if a.Next != nil {
		a.Next.VisitMaxs(maxStack, maxLocals)
	}
}

func (a *MethodAdapter) VisitEnd() {
	if a.Next != nil {
		a.Next.VisitEnd()
	}
}

// AnnotationAdapter forwards annotation events to Next.
type AnnotationAdapter struct {
	Next AnnotationVisitor
}

func (a *AnnotationAdapter) Visit(name string, value any) {
	if a.Next != nil {
		a.Next.Visit(name, value)
	}
}

func (a *AnnotationAdapter) VisitEnum(name, desc, value string) {
	if a.Next != nil {
		a.Next.VisitEnum(name, desc, value)
	}
}

func (a *AnnotationAdapter) VisitAnnotation(name, desc string) AnnotationVisitor {
	if a.Next != nil {
		return a.Next.VisitAnnotation(name, desc)
	}
	return nil
}

func (a *AnnotationAdapter) VisitArray(name string) AnnotationVisitor {
	if a.Next != nil {
		return a.Next.VisitArray(name)
	}
	return nil
}

func (a *AnnotationAdapter) VisitEnd() {
	if a.Next != nil {
		a.Next.VisitEnd()
	}
}

var (
	_ ClassVisitor      = (*ClassAdapter)(nil)
	_ FieldVisitor      = (*FieldAdapter)(nil)
	_ MethodVisitor     = (*MethodAdapter)(nil)
	_ AnnotationVisitor = (*AnnotationAdapter)(nil)
)

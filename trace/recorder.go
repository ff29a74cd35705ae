package trace

import (
	"fmt"

	"github.com/chazu/classkit/classfile"
)

// Recorder is a class visitor that builds a Trace. Events are forwarded to
// Next, so a Recorder can observe a transformation chain.
type Recorder struct {
	classfile.ClassAdapter
	t Trace
}

// New returns a Recorder forwarding to next, which may be nil.
func New(next classfile.ClassVisitor) *Recorder {
	return &Recorder{ClassAdapter: classfile.ClassAdapter{Next: next}}
}

// Trace returns the events recorded so far.
func (r *Recorder) Trace() *Trace {
	return &r.t
}

func (r *Recorder) add(kind string, args ...any) {
	r.t.Class = append(r.t.Class, Event{Kind: kind, Args: args})
}

func (r *Recorder) Visit(version, access int, name, signature, superName string, interfaces []string) {
	r.add("Class", version, access, name, signature, superName, interfaces)
	r.ClassAdapter.Visit(version, access, name, signature, superName, interfaces)
}

func (r *Recorder) VisitSource(source, debug string) {
	r.add("Source", source, debug)
	r.ClassAdapter.VisitSource(source, debug)
}

func (r *Recorder) VisitOuterClass(owner, name, desc string) {
	r.add("OuterClass", owner, name, desc)
	r.ClassAdapter.VisitOuterClass(owner, name, desc)
}

func (r *Recorder) VisitAnnotation(desc string, visible bool) classfile.AnnotationVisitor {
	r.add("Annotation", desc, visible)
	return &annotationRecorder{
		AnnotationAdapter: classfile.AnnotationAdapter{Next: r.ClassAdapter.VisitAnnotation(desc, visible)},
		add:               r.add,
	}
}

func (r *Recorder) VisitAttribute(attr *classfile.Attribute) {
	r.add("Attribute", attr.Name, attr.Content)
	r.ClassAdapter.VisitAttribute(attr)
}

func (r *Recorder) VisitInnerClass(name, outerName, innerName string, access int) {
	r.add("InnerClass", name, outerName, innerName, access)
	r.ClassAdapter.VisitInnerClass(name, outerName, innerName, access)
}

func (r *Recorder) VisitField(access int, name, desc, signature string, value any) classfile.FieldVisitor {
	r.t.Fields = append(r.t.Fields, Member{Decl: Event{Kind: "Field", Args: []any{access, name, desc, signature, constant(value)}}})
	return &fieldRecorder{
		FieldAdapter: classfile.FieldAdapter{Next: r.ClassAdapter.VisitField(access, name, desc, signature, value)},
		r:            r,
		index:        len(r.t.Fields) - 1,
	}
}

func (r *Recorder) VisitMethod(access int, name, desc, signature string, exceptions []string) classfile.MethodVisitor {
	r.t.Methods = append(r.t.Methods, Member{Decl: Event{Kind: "Method", Args: []any{access, name, desc, signature, exceptions}}})
	return &methodRecorder{
		MethodAdapter: classfile.MethodAdapter{Next: r.ClassAdapter.VisitMethod(access, name, desc, signature, exceptions)},
		r:             r,
		index:         len(r.t.Methods) - 1,
	}
}

// ---------------------------------------------------------------------------
// Fields and annotations
// ---------------------------------------------------------------------------

// Member recorders address their member by index: a transformer may visit
// several members at once, and appending a member can move the others.

type fieldRecorder struct {
	classfile.FieldAdapter
	r     *Recorder
	index int
}

func (f *fieldRecorder) add(kind string, args ...any) {
	member := &f.r.t.Fields[f.index]
	member.Events = append(member.Events, Event{Kind: kind, Args: args})
}

func (f *fieldRecorder) VisitAnnotation(desc string, visible bool) classfile.AnnotationVisitor {
	f.add("Annotation", desc, visible)
	return &annotationRecorder{
		AnnotationAdapter: classfile.AnnotationAdapter{Next: f.FieldAdapter.VisitAnnotation(desc, visible)},
		add:               f.add,
	}
}

func (f *fieldRecorder) VisitAttribute(attr *classfile.Attribute) {
	f.add("Attribute", attr.Name, attr.Content)
	f.FieldAdapter.VisitAttribute(attr)
}

// annotationRecorder adds its events to the class or member that owns the
// annotation.
type annotationRecorder struct {
	classfile.AnnotationAdapter
	add func(kind string, args ...any)
}

func (a *annotationRecorder) Visit(name string, value any) {
	a.add("Value", name, constant(value))
	a.AnnotationAdapter.Visit(name, value)
}

func (a *annotationRecorder) VisitEnum(name, desc, value string) {
	a.add("Enum", name, desc, value)
	a.AnnotationAdapter.VisitEnum(name, desc, value)
}

func (a *annotationRecorder) VisitAnnotation(name, desc string) classfile.AnnotationVisitor {
	a.add("Nested", name, desc)
	return &annotationRecorder{AnnotationAdapter: classfile.AnnotationAdapter{Next: a.AnnotationAdapter.VisitAnnotation(name, desc)}, add: a.add}
}

func (a *annotationRecorder) VisitArray(name string) classfile.AnnotationVisitor {
	a.add("Array", name)
	return &annotationRecorder{AnnotationAdapter: classfile.AnnotationAdapter{Next: a.AnnotationAdapter.VisitArray(name)}, add: a.add}
}

func (a *annotationRecorder) VisitEnd() {
	a.add("End")
	a.AnnotationAdapter.VisitEnd()
}

// constant converts a constant or annotation value into its trace form.
func constant(v any) any {
	switch v := v.(type) {
	case nil:
		return nil
	case string:
		return Const{Kind: "String", Value: v}
	case bool:
		return Const{Kind: "Boolean", Value: v}
	case int8:
		return Const{Kind: "Byte", Value: int64(v)}
	case int16:
		return Const{Kind: "Short", Value: int64(v)}
	case uint16:
		return Const{Kind: "Char", Value: int64(v)}
	case int32:
		return Const{Kind: "Int", Value: int64(v)}
	case int:
		return Const{Kind: "Int", Value: int64(v)}
	case int64:
		return Const{Kind: "Long", Value: v}
	case float32:
		return Const{Kind: "Float", Value: v}
	case float64:
		return Const{Kind: "Double", Value: v}
	case classfile.Type:
		return Const{Kind: "Type", Value: v.Descriptor}
	case classfile.Handle:
		return Const{Kind: "Handle", Value: []any{v.Tag, v.Owner, v.Name, v.Desc, v.Itf}}
	default:
		// Primitive arrays and anything else keep their printed form.
		return Const{Kind: fmt.Sprintf("%T", v), Value: fmt.Sprint(v)}
	}
}

// ---------------------------------------------------------------------------
// Methods
// ---------------------------------------------------------------------------

type methodRecorder struct {
	classfile.MethodAdapter
	r      *Recorder
	index  int
	labels map[*classfile.Label]int
}

func (m *methodRecorder) add(kind string, args ...any) {
	member := &m.r.t.Methods[m.index]
	member.Events = append(member.Events, Event{Kind: kind, Args: args})
}

func (m *methodRecorder) label(l *classfile.Label) string {
	if m.labels == nil {
		m.labels = make(map[*classfile.Label]int)
	}
	id, ok := m.labels[l]
	if !ok {
		id = len(m.labels)
		m.labels[l] = id
	}
	return fmt.Sprintf("L%d", id)
}

func (m *methodRecorder) annotation(next classfile.AnnotationVisitor) classfile.AnnotationVisitor {
	return &annotationRecorder{AnnotationAdapter: classfile.AnnotationAdapter{Next: next}, add: m.add}
}

func (m *methodRecorder) VisitAnnotationDefault() classfile.AnnotationVisitor {
	m.add("AnnotationDefault")
	return m.annotation(m.MethodAdapter.VisitAnnotationDefault())
}

func (m *methodRecorder) VisitAnnotation(desc string, visible bool) classfile.AnnotationVisitor {
	m.add("Annotation", desc, visible)
	return m.annotation(m.MethodAdapter.VisitAnnotation(desc, visible))
}

func (m *methodRecorder) VisitParameterAnnotation(parameter int, desc string, visible bool) classfile.AnnotationVisitor {
	m.add("ParameterAnnotation", parameter, desc, visible)
	return m.annotation(m.MethodAdapter.VisitParameterAnnotation(parameter, desc, visible))
}

func (m *methodRecorder) VisitAttribute(attr *classfile.Attribute) {
	m.add("Attribute", attr.Name, attr.Content)
	m.MethodAdapter.VisitAttribute(attr)
}

func (m *methodRecorder) VisitCode() {
	m.add("Code")
	m.MethodAdapter.VisitCode()
}

func (m *methodRecorder) items(values []any) []any {
	out := make([]any, len(values))
	for i, v := range values {
		switch v := v.(type) {
		case classfile.FrameItem:
			out[i] = int(v)
		case *classfile.Label:
			out[i] = "uninit " + m.label(v)
		default:
			out[i] = v
		}
	}
	return out
}

func (m *methodRecorder) VisitFrame(kind classfile.FrameKind, local []any, stack []any) {
	if kind == classfile.FChop {
		m.add("Frame", int(kind), len(local))
	} else {
		m.add("Frame", int(kind), m.items(local), m.items(stack))
	}
	m.MethodAdapter.VisitFrame(kind, local, stack)
}

func (m *methodRecorder) VisitInsn(opcode int) {
	m.add("Insn", opcode)
	m.MethodAdapter.VisitInsn(opcode)
}

func (m *methodRecorder) VisitIntInsn(opcode, operand int) {
	m.add("IntInsn", opcode, operand)
	m.MethodAdapter.VisitIntInsn(opcode, operand)
}

func (m *methodRecorder) VisitVarInsn(opcode, local int) {
	m.add("VarInsn", opcode, local)
	m.MethodAdapter.VisitVarInsn(opcode, local)
}

func (m *methodRecorder) VisitTypeInsn(opcode int, typ string) {
	m.add("TypeInsn", opcode, typ)
	m.MethodAdapter.VisitTypeInsn(opcode, typ)
}

func (m *methodRecorder) VisitFieldInsn(opcode int, owner, name, desc string) {
	m.add("FieldInsn", opcode, owner, name, desc)
	m.MethodAdapter.VisitFieldInsn(opcode, owner, name, desc)
}

func (m *methodRecorder) VisitMethodInsn(opcode int, owner, name, desc string, itf bool) {
	m.add("MethodInsn", opcode, owner, name, desc, itf)
	m.MethodAdapter.VisitMethodInsn(opcode, owner, name, desc, itf)
}

func (m *methodRecorder) VisitInvokeDynamicInsn(name, desc string, bsm classfile.Handle, bsmArgs ...any) {
	args := make([]any, len(bsmArgs))
	for i, a := range bsmArgs {
		args[i] = constant(a)
	}
	m.add("InvokeDynamicInsn", name, desc, constant(bsm), args)
	m.MethodAdapter.VisitInvokeDynamicInsn(name, desc, bsm, bsmArgs...)
}

func (m *methodRecorder) VisitJumpInsn(opcode int, label *classfile.Label) {
	m.add("JumpInsn", opcode, m.label(label))
	m.MethodAdapter.VisitJumpInsn(opcode, label)
}

func (m *methodRecorder) VisitLabel(label *classfile.Label) {
	m.add("Label", m.label(label))
	m.MethodAdapter.VisitLabel(label)
}

func (m *methodRecorder) VisitLdcInsn(value any) {
	m.add("LdcInsn", constant(value))
	m.MethodAdapter.VisitLdcInsn(value)
}

func (m *methodRecorder) VisitIincInsn(local, increment int) {
	m.add("IincInsn", local, increment)
	m.MethodAdapter.VisitIincInsn(local, increment)
}

func (m *methodRecorder) labelNames(labels []*classfile.Label) []string {
	names := make([]string, len(labels))
	for i, l := range labels {
		names[i] = m.label(l)
	}
	return names
}

func (m *methodRecorder) VisitTableSwitchInsn(min, max int, dflt *classfile.Label, labels ...*classfile.Label) {
	m.add("TableSwitchInsn", min, max, m.label(dflt), m.labelNames(labels))
	m.MethodAdapter.VisitTableSwitchInsn(min, max, dflt, labels...)
}

func (m *methodRecorder) VisitLookupSwitchInsn(dflt *classfile.Label, keys []int, labels []*classfile.Label) {
	m.add("LookupSwitchInsn", m.label(dflt), keys, m.labelNames(labels))
	m.MethodAdapter.VisitLookupSwitchInsn(dflt, keys, labels)
}

func (m *methodRecorder) VisitMultiANewArrayInsn(desc string, dims int) {
	m.add("MultiANewArrayInsn", desc, dims)
	m.MethodAdapter.VisitMultiANewArrayInsn(desc, dims)
}

func (m *methodRecorder) VisitTryCatchBlock(start, end, handler *classfile.Label, typ string) {
	m.add("TryCatchBlock", m.label(start), m.label(end), m.label(handler), typ)
	m.MethodAdapter.VisitTryCatchBlock(start, end, handler, typ)
}

func (m *methodRecorder) VisitLocalVariable(name, desc, signature string, start, end *classfile.Label, index int) {
	m.add("LocalVariable", name, desc, signature, m.label(start), m.label(end), index)
	m.MethodAdapter.VisitLocalVariable(name, desc, signature, start, end, index)
}

func (m *methodRecorder) VisitLineNumber(line int, start *classfile.Label) {
	m.add("LineNumber", line, m.label(start))
	m.MethodAdapter.VisitLineNumber(line, start)
}

func (m *methodRecorder) VisitMaxs(maxStack, maxLocals int) {
	m.add("Maxs", maxStack, maxLocals)
	m.MethodAdapter.VisitMaxs(maxStack, maxLocals)
}

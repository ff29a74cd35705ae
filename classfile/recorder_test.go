package classfile

import (
	"fmt"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// Recording visitors
// ---------------------------------------------------------------------------

// classRecorder keeps one line per class event and a methodRecorder per
// method, keyed by name and descriptor.
type classRecorder struct {
	ClassAdapter
	lines   []string
	methods map[string]*methodRecorder
}

func (c *classRecorder) add(format string, args ...any) {
	c.lines = append(c.lines, fmt.Sprintf(format, args...))
}

func (c *classRecorder) Visit(version, access int, name, signature, superName string, interfaces []string) {
	c.add("class %d %#x %s %q %s %v", version, access, name, signature, superName, interfaces)
}

func (c *classRecorder) VisitSource(source, debug string) {
	c.add("source %s %q", source, debug)
}

func (c *classRecorder) VisitOuterClass(owner, name, desc string) {
	c.add("outer %s %s%s", owner, name, desc)
}

func (c *classRecorder) VisitAnnotation(desc string, visible bool) AnnotationVisitor {
	c.add("@%s %v", desc, visible)
	return &annotationRecorder{lines: &c.lines}
}

func (c *classRecorder) VisitAttribute(attr *Attribute) {
	c.add("attr %s %x %v", attr.Name, attr.Content, attr.Value)
}

func (c *classRecorder) VisitInnerClass(name, outerName, innerName string, access int) {
	c.add("inner %s %s %s %#x", name, outerName, innerName, access)
}

func (c *classRecorder) VisitField(access int, name, desc, signature string, value any) FieldVisitor {
	c.add("field %#x %s %s %q %T(%v)", access, name, desc, signature, value, value)
	return nil
}

func (c *classRecorder) VisitMethod(access int, name, desc, signature string, exceptions []string) MethodVisitor {
	c.add("method %#x %s%s %q %v", access, name, desc, signature, exceptions)
	if c.methods == nil {
		c.methods = map[string]*methodRecorder{}
	}
	m := &methodRecorder{}
	c.methods[name+desc] = m
	return m
}

// methodRecorder keeps one line per code event. Labels are named L0, L1...
// in the order they are first seen.
type methodRecorder struct {
	MethodAdapter
	lines     []string
	labels    map[*Label]int
	maxStack  int
	maxLocals int
}

func (m *methodRecorder) add(format string, args ...any) {
	m.lines = append(m.lines, fmt.Sprintf(format, args...))
}

func (m *methodRecorder) label(l *Label) string {
	if m.labels == nil {
		m.labels = map[*Label]int{}
	}
	id, ok := m.labels[l]
	if !ok {
		id = len(m.labels)
		m.labels[l] = id
	}
	return fmt.Sprintf("L%d", id)
}

func (m *methodRecorder) items(values []any) string {
	s := make([]string, len(values))
	for i, v := range values {
		switch v := v.(type) {
		case *Label:
			s[i] = "uninit " + m.label(v)
		case FrameItem:
			s[i] = fmt.Sprint("item", int(v))
		default:
			s[i] = fmt.Sprint(v)
		}
	}
	return "[" + strings.Join(s, " ") + "]"
}

// code returns the instruction and label lines only.
func (m *methodRecorder) code() []string {
	var code []string
	for _, l := range m.lines {
		if !strings.HasPrefix(l, "frame") && !strings.HasPrefix(l, "line") {
			code = append(code, l)
		}
	}
	return code
}

// frames returns the frame lines only.
func (m *methodRecorder) frames() []string {
	var frames []string
	for _, l := range m.lines {
		if strings.HasPrefix(l, "frame") {
			frames = append(frames, l)
		}
	}
	return frames
}

func (m *methodRecorder) VisitAnnotationDefault() AnnotationVisitor {
	m.add("default")
	return &annotationRecorder{lines: &m.lines}
}

func (m *methodRecorder) VisitAnnotation(desc string, visible bool) AnnotationVisitor {
	m.add("@%s %v", desc, visible)
	return &annotationRecorder{lines: &m.lines}
}

func (m *methodRecorder) VisitParameterAnnotation(parameter int, desc string, visible bool) AnnotationVisitor {
	m.add("@param%d %s %v", parameter, desc, visible)
	return &annotationRecorder{lines: &m.lines}
}

func (m *methodRecorder) VisitFrame(kind FrameKind, local []any, stack []any) {
	if kind == FChop {
		m.add("frame %d %d", kind, len(local))
		return
	}
	m.add("frame %d %s %s", kind, m.items(local), m.items(stack))
}

func (m *methodRecorder) VisitInsn(opcode int) {
	m.add("%s", OpcodeName(opcode))
}

func (m *methodRecorder) VisitIntInsn(opcode, operand int) {
	m.add("%s %d", OpcodeName(opcode), operand)
}

func (m *methodRecorder) VisitVarInsn(opcode, local int) {
	m.add("%s %d", OpcodeName(opcode), local)
}

func (m *methodRecorder) VisitTypeInsn(opcode int, typ string) {
	m.add("%s %s", OpcodeName(opcode), typ)
}

func (m *methodRecorder) VisitFieldInsn(opcode int, owner, name, desc string) {
	m.add("%s %s.%s %s", OpcodeName(opcode), owner, name, desc)
}

func (m *methodRecorder) VisitMethodInsn(opcode int, owner, name, desc string, itf bool) {
	m.add("%s %s.%s%s %v", OpcodeName(opcode), owner, name, desc, itf)
}

func (m *methodRecorder) VisitInvokeDynamicInsn(name, desc string, bsm Handle, bsmArgs ...any) {
	m.add("invokedynamic %s%s %v %v", name, desc, bsm, bsmArgs)
}

func (m *methodRecorder) VisitJumpInsn(opcode int, label *Label) {
	m.add("%s %s", OpcodeName(opcode), m.label(label))
}

func (m *methodRecorder) VisitLabel(label *Label) {
	m.add("%s:", m.label(label))
}

func (m *methodRecorder) VisitLdcInsn(value any) {
	m.add("ldc %T(%v)", value, value)
}

func (m *methodRecorder) VisitIincInsn(local, increment int) {
	m.add("iinc %d %d", local, increment)
}

func (m *methodRecorder) VisitTableSwitchInsn(min, max int, dflt *Label, labels ...*Label) {
	names := make([]string, len(labels))
	for i, l := range labels {
		names[i] = m.label(l)
	}
	m.add("tableswitch %d %d %s %v", min, max, m.label(dflt), names)
}

func (m *methodRecorder) VisitLookupSwitchInsn(dflt *Label, keys []int, labels []*Label) {
	names := make([]string, len(labels))
	for i, l := range labels {
		names[i] = m.label(l)
	}
	m.add("lookupswitch %s %v %v", m.label(dflt), keys, names)
}

func (m *methodRecorder) VisitMultiANewArrayInsn(desc string, dims int) {
	m.add("multianewarray %s %d", desc, dims)
}

func (m *methodRecorder) VisitTryCatchBlock(start, end, handler *Label, typ string) {
	m.add("try %s %s %s %s", m.label(start), m.label(end), m.label(handler), typ)
}

func (m *methodRecorder) VisitLocalVariable(name, desc, signature string, start, end *Label, index int) {
	m.add("var %s %s %q %s %s %d", name, desc, signature, m.label(start), m.label(end), index)
}

func (m *methodRecorder) VisitLineNumber(line int, start *Label) {
	m.add("line %d %s", line, m.label(start))
}

func (m *methodRecorder) VisitMaxs(maxStack, maxLocals int) {
	m.maxStack, m.maxLocals = maxStack, maxLocals
}

// annotationRecorder appends name=value lines to a shared slice. Nested
// values are prefixed with the path of their parent.
type annotationRecorder struct {
	lines  *[]string
	prefix string
}

func (a *annotationRecorder) add(format string, args ...any) {
	*a.lines = append(*a.lines, a.prefix+fmt.Sprintf(format, args...))
}

func (a *annotationRecorder) Visit(name string, value any) {
	a.add("%s=%T(%v)", name, value, value)
}

func (a *annotationRecorder) VisitEnum(name, desc, value string) {
	a.add("%s=enum %s.%s", name, desc, value)
}

func (a *annotationRecorder) VisitAnnotation(name, desc string) AnnotationVisitor {
	a.add("%s=@%s", name, desc)
	return &annotationRecorder{lines: a.lines, prefix: a.prefix + name + "."}
}

func (a *annotationRecorder) VisitArray(name string) AnnotationVisitor {
	a.add("%s=[]", name)
	return &annotationRecorder{lines: a.lines, prefix: a.prefix + name + "[]."}
}

func (a *annotationRecorder) VisitEnd() {}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// buildClass writes test/Sample with the members added by body.
func buildClass(t *testing.T, flags int, body func(w *Writer)) []byte {
	t.Helper()
	w := NewWriter(flags)
	w.Visit(V1_8, AccPublic|AccSuper, "test/Sample", "", "java/lang/Object", nil)
	body(w)
	w.VisitEnd()
	b, err := w.ToBytes()
	if err != nil {
		t.Fatalf("ToBytes: %v", err)
	}
	return b
}

// record reads b into a classRecorder.
func record(t *testing.T, b []byte, flags int) *classRecorder {
	t.Helper()
	r, err := NewReader(b)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	c := &classRecorder{}
	if err := r.Accept(c, nil, flags); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	return c
}

func (c *classRecorder) method(t *testing.T, key string) *methodRecorder {
	t.Helper()
	m := c.methods[key]
	if m == nil {
		t.Fatalf("method %s not visited", key)
	}
	return m
}

func equalLines(t *testing.T, what string, got, want []string) {
	t.Helper()
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("%s:\ngot:\n  %s\nwant:\n  %s", what, strings.Join(got, "\n  "), strings.Join(want, "\n  "))
	}
}

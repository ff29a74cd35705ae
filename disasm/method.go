package disasm

import (
	"fmt"
	"strings"

	"github.com/chazu/classkit/classfile"
)

// methodPrinter renders code events. Labels are named L0, L1... in the order
// the listing first mentions them.
type methodPrinter struct {
	classfile.MethodAdapter
	p      *Printer
	labels map[*classfile.Label]int
}

func (m *methodPrinter) label(l *classfile.Label) string {
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

func (m *methodPrinter) insn(format string, args ...any) {
	m.p.line(2, format, args...)
}

func mnemonic(opcode int) string {
	if name := classfile.OpcodeName(opcode); name != "" {
		return strings.ToUpper(name)
	}
	return fmt.Sprintf("OPCODE_%d", opcode)
}

func (m *methodPrinter) VisitAnnotationDefault() classfile.AnnotationVisitor {
	m.p.line(1, "default=")
	return m.p.annotation(2, m.MethodAdapter.VisitAnnotationDefault())
}

func (m *methodPrinter) VisitAnnotation(desc string, visible bool) classfile.AnnotationVisitor {
	m.p.line(1, "%s", annotationHeader(desc, visible))
	return m.p.annotation(2, m.MethodAdapter.VisitAnnotation(desc, visible))
}

func (m *methodPrinter) VisitParameterAnnotation(parameter int, desc string, visible bool) classfile.AnnotationVisitor {
	m.p.line(1, "%s // parameter %d", annotationHeader(desc, visible), parameter)
	return m.p.annotation(2, m.MethodAdapter.VisitParameterAnnotation(parameter, desc, visible))
}

func (m *methodPrinter) VisitAttribute(attr *classfile.Attribute) {
	m.p.line(1, "ATTRIBUTE %s (%d bytes)", attr.Name, len(attr.Content))
	m.MethodAdapter.VisitAttribute(attr)
}

func (m *methodPrinter) VisitFrame(kind classfile.FrameKind, local []any, stack []any) {
	switch kind {
	case classfile.FNew:
		m.p.line(1, "FRAME NEW %s %s", m.items(local), m.items(stack))
	case classfile.FFull:
		m.p.line(1, "FRAME FULL %s %s", m.items(local), m.items(stack))
	case classfile.FAppend:
		m.p.line(1, "FRAME APPEND %s", m.items(local))
	case classfile.FChop:
		m.p.line(1, "FRAME CHOP %d", len(local))
	case classfile.FSame:
		m.p.line(1, "FRAME SAME")
	case classfile.FSame1:
		m.p.line(1, "FRAME SAME1 %s", m.items(stack))
	default:
		m.p.line(1, "FRAME %d", kind)
	}
	m.MethodAdapter.VisitFrame(kind, local, stack)
}

var itemNames = [...]string{"T", "I", "F", "D", "J", "N", "U"}

func (m *methodPrinter) items(values []any) string {
	s := make([]string, len(values))
	for i, v := range values {
		switch v := v.(type) {
		case classfile.FrameItem:
			if int(v) < len(itemNames) {
				s[i] = itemNames[v]
			} else {
				s[i] = fmt.Sprint(int(v))
			}
		case *classfile.Label:
			s[i] = "uninit " + m.label(v)
		default:
			s[i] = fmt.Sprint(v)
		}
	}
	return "[" + strings.Join(s, " ") + "]"
}

func (m *methodPrinter) VisitInsn(opcode int) {
	m.insn("%s", mnemonic(opcode))
	m.MethodAdapter.VisitInsn(opcode)
}

var arrayTypes = map[int]string{
	classfile.TBoolean: "T_BOOLEAN",
	classfile.TChar:    "T_CHAR",
	classfile.TFloat:   "T_FLOAT",
	classfile.TDouble:  "T_DOUBLE",
	classfile.TByte:    "T_BYTE",
	classfile.TShort:   "T_SHORT",
	classfile.TInt:     "T_INT",
	classfile.TLong:    "T_LONG",
}

func (m *methodPrinter) VisitIntInsn(opcode, operand int) {
	if opcode == classfile.OpNewarray {
		m.insn("%s %s", mnemonic(opcode), arrayTypes[operand])
	} else {
		m.insn("%s %d", mnemonic(opcode), operand)
	}
	m.MethodAdapter.VisitIntInsn(opcode, operand)
}

func (m *methodPrinter) VisitVarInsn(opcode, local int) {
	m.insn("%s %d", mnemonic(opcode), local)
	m.MethodAdapter.VisitVarInsn(opcode, local)
}

func (m *methodPrinter) VisitTypeInsn(opcode int, typ string) {
	m.insn("%s %s", mnemonic(opcode), typ)
	m.MethodAdapter.VisitTypeInsn(opcode, typ)
}

func (m *methodPrinter) VisitFieldInsn(opcode int, owner, name, desc string) {
	m.insn("%s %s.%s : %s", mnemonic(opcode), owner, name, desc)
	m.MethodAdapter.VisitFieldInsn(opcode, owner, name, desc)
}

func (m *methodPrinter) VisitMethodInsn(opcode int, owner, name, desc string, itf bool) {
	if itf && opcode != classfile.OpInvokeinterface {
		m.insn("%s %s.%s %s (itf)", mnemonic(opcode), owner, name, desc)
	} else {
		m.insn("%s %s.%s %s", mnemonic(opcode), owner, name, desc)
	}
	m.MethodAdapter.VisitMethodInsn(opcode, owner, name, desc, itf)
}

func (m *methodPrinter) VisitInvokeDynamicInsn(name, desc string, bsm classfile.Handle, bsmArgs ...any) {
	m.insn("INVOKEDYNAMIC %s%s [", name, desc)
	m.p.line(3, "// handle kind %#x : %s", bsm.Tag, handleKinds[bsm.Tag])
	m.p.line(3, "%s", handleString(bsm))
	if len(bsmArgs) > 0 {
		m.p.line(3, "// arguments:")
		for _, a := range bsmArgs {
			m.p.line(3, "%s", constString(a))
		}
	}
	m.insn("]")
	m.MethodAdapter.VisitInvokeDynamicInsn(name, desc, bsm, bsmArgs...)
}

func (m *methodPrinter) VisitJumpInsn(opcode int, label *classfile.Label) {
	m.insn("%s %s", mnemonic(opcode), m.label(label))
	m.MethodAdapter.VisitJumpInsn(opcode, label)
}

func (m *methodPrinter) VisitLabel(label *classfile.Label) {
	m.p.line(1, " %s", m.label(label))
	m.MethodAdapter.VisitLabel(label)
}

func (m *methodPrinter) VisitLdcInsn(value any) {
	m.insn("LDC %s", constString(value))
	m.MethodAdapter.VisitLdcInsn(value)
}

func (m *methodPrinter) VisitIincInsn(local, increment int) {
	m.insn("IINC %d %d", local, increment)
	m.MethodAdapter.VisitIincInsn(local, increment)
}

func (m *methodPrinter) VisitTableSwitchInsn(min, max int, dflt *classfile.Label, labels ...*classfile.Label) {
	m.insn("TABLESWITCH")
	for i, l := range labels {
		m.p.line(3, "%d: %s", min+i, m.label(l))
	}
	m.p.line(3, "default: %s", m.label(dflt))
	m.MethodAdapter.VisitTableSwitchInsn(min, max, dflt, labels...)
}

func (m *methodPrinter) VisitLookupSwitchInsn(dflt *classfile.Label, keys []int, labels []*classfile.Label) {
	m.insn("LOOKUPSWITCH")
	for i, l := range labels {
		m.p.line(3, "%d: %s", keys[i], m.label(l))
	}
	m.p.line(3, "default: %s", m.label(dflt))
	m.MethodAdapter.VisitLookupSwitchInsn(dflt, keys, labels)
}

func (m *methodPrinter) VisitMultiANewArrayInsn(desc string, dims int) {
	m.insn("MULTIANEWARRAY %s %d", desc, dims)
	m.MethodAdapter.VisitMultiANewArrayInsn(desc, dims)
}

func (m *methodPrinter) VisitTryCatchBlock(start, end, handler *classfile.Label, typ string) {
	m.insn("TRYCATCHBLOCK %s %s %s %s", m.label(start), m.label(end), m.label(handler), orNull(typ))
	m.MethodAdapter.VisitTryCatchBlock(start, end, handler, typ)
}

func (m *methodPrinter) VisitLocalVariable(name, desc, signature string, start, end *classfile.Label, index int) {
	m.insn("LOCALVARIABLE %s %s %s %s %d", name, desc, m.label(start), m.label(end), index)
	if signature != "" {
		m.p.line(2, "// signature %s", signature)
	}
	m.MethodAdapter.VisitLocalVariable(name, desc, signature, start, end, index)
}

func (m *methodPrinter) VisitLineNumber(line int, start *classfile.Label) {
	m.insn("LINENUMBER %d %s", line, m.label(start))
	m.MethodAdapter.VisitLineNumber(line, start)
}

func (m *methodPrinter) VisitMaxs(maxStack, maxLocals int) {
	m.insn("MAXSTACK = %d", maxStack)
	m.insn("MAXLOCALS = %d", maxLocals)
	m.MethodAdapter.VisitMaxs(maxStack, maxLocals)
}

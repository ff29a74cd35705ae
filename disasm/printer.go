// Package disasm renders class files as readable text listings.
package disasm

import (
	"fmt"
	"io"
	"strings"

	"github.com/chazu/classkit/classfile"
)

// Printer is a class visitor that renders every event it sees as a line of
// text. Events are also forwarded to Next, so a Printer can sit anywhere in
// a visitor chain.
type Printer struct {
	classfile.ClassAdapter
	sb *strings.Builder
}

// New returns a Printer forwarding to next, which may be nil.
func New(next classfile.ClassVisitor) *Printer {
	return &Printer{ClassAdapter: classfile.ClassAdapter{Next: next}, sb: &strings.Builder{}}
}

// Disassemble parses a class file and returns its listing.
func Disassemble(b []byte, flags int) (string, error) {
	r, err := classfile.NewReader(b)
	if err != nil {
		return "", err
	}
	p := New(nil)
	if err := r.Accept(p, nil, flags); err != nil {
		return "", err
	}
	return p.String(), nil
}

// String returns the listing so far.
func (p *Printer) String() string {
	return p.sb.String()
}

// WriteTo writes the listing to w.
func (p *Printer) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, p.sb.String())
	return int64(n), err
}

func (p *Printer) line(indent int, format string, args ...any) {
	p.sb.WriteString(strings.Repeat("  ", indent))
	fmt.Fprintf(p.sb, format, args...)
	p.sb.WriteByte('\n')
}

// ---------------------------------------------------------------------------
// Class events
// ---------------------------------------------------------------------------

func (p *Printer) Visit(version, access int, name, signature, superName string, interfaces []string) {
	major, minor := version&0xFFFF, version>>16
	p.line(0, "// class version %d.%d (%d)", major, minor, version)
	p.line(0, "// access flags %#x", access)
	if signature != "" {
		p.line(0, "// signature %s", signature)
	}
	var sb strings.Builder
	sb.WriteString(accessString(access, classFlags))
	switch {
	case access&classfile.AccAnnotation != 0:
		sb.WriteString("@interface ")
	case access&classfile.AccInterface != 0:
		sb.WriteString("interface ")
	case access&classfile.AccEnum != 0:
		sb.WriteString("enum ")
	default:
		sb.WriteString("class ")
	}
	sb.WriteString(name)
	if superName != "" && superName != "java/lang/Object" {
		sb.WriteString(" extends " + superName)
	}
	if len(interfaces) > 0 {
		sb.WriteString(" implements " + strings.Join(interfaces, ", "))
	}
	p.line(0, "%s {", sb.String())
	p.ClassAdapter.Visit(version, access, name, signature, superName, interfaces)
}

func (p *Printer) VisitSource(source, debug string) {
	if source != "" {
		p.line(1, "// compiled from: %s", source)
	}
	if debug != "" {
		p.line(1, "// debug info: %q", debug)
	}
	p.ClassAdapter.VisitSource(source, debug)
}

func (p *Printer) VisitOuterClass(owner, name, desc string) {
	p.line(1, "OUTERCLASS %s %s%s", owner, name, desc)
	p.ClassAdapter.VisitOuterClass(owner, name, desc)
}

func (p *Printer) VisitAnnotation(desc string, visible bool) classfile.AnnotationVisitor {
	p.line(1, "%s", annotationHeader(desc, visible))
	return p.annotation(2, p.ClassAdapter.VisitAnnotation(desc, visible))
}

func (p *Printer) VisitAttribute(attr *classfile.Attribute) {
	p.line(1, "ATTRIBUTE %s (%d bytes)", attr.Name, len(attr.Content))
	p.ClassAdapter.VisitAttribute(attr)
}

func (p *Printer) VisitInnerClass(name, outerName, innerName string, access int) {
	p.line(1, "// access flags %#x", access)
	p.line(1, "INNERCLASS %s %s %s", name, orNull(outerName), orNull(innerName))
	p.ClassAdapter.VisitInnerClass(name, outerName, innerName, access)
}

func (p *Printer) VisitField(access int, name, desc, signature string, value any) classfile.FieldVisitor {
	p.line(0, "")
	p.line(1, "// access flags %#x", access)
	if signature != "" {
		p.line(1, "// signature %s", signature)
	}
	if access&classfile.AccDeprecated != 0 {
		p.line(1, "@Deprecated")
	}
	decl := accessString(access, fieldFlags) + desc + " " + name
	if value != nil {
		decl += " = " + constString(value)
	}
	p.line(1, "%s", decl)
	next := p.ClassAdapter.VisitField(access, name, desc, signature, value)
	return &fieldPrinter{FieldAdapter: classfile.FieldAdapter{Next: next}, p: p}
}

func (p *Printer) VisitMethod(access int, name, desc, signature string, exceptions []string) classfile.MethodVisitor {
	p.line(0, "")
	p.line(1, "// access flags %#x", access)
	if signature != "" {
		p.line(1, "// signature %s", signature)
	}
	if access&classfile.AccDeprecated != 0 {
		p.line(1, "@Deprecated")
	}
	decl := accessString(access, methodFlags) + name + desc
	if len(exceptions) > 0 {
		decl += " throws " + strings.Join(exceptions, " ")
	}
	p.line(1, "%s", decl)
	next := p.ClassAdapter.VisitMethod(access, name, desc, signature, exceptions)
	return &methodPrinter{MethodAdapter: classfile.MethodAdapter{Next: next}, p: p}
}

func (p *Printer) VisitEnd() {
	p.line(0, "}")
	p.ClassAdapter.VisitEnd()
}

// ---------------------------------------------------------------------------
// Field events
// ---------------------------------------------------------------------------

type fieldPrinter struct {
	classfile.FieldAdapter
	p *Printer
}

func (f *fieldPrinter) VisitAnnotation(desc string, visible bool) classfile.AnnotationVisitor {
	f.p.line(1, "%s", annotationHeader(desc, visible))
	return f.p.annotation(2, f.FieldAdapter.VisitAnnotation(desc, visible))
}

func (f *fieldPrinter) VisitAttribute(attr *classfile.Attribute) {
	f.p.line(1, "ATTRIBUTE %s (%d bytes)", attr.Name, len(attr.Content))
	f.FieldAdapter.VisitAttribute(attr)
}

// ---------------------------------------------------------------------------
// Annotations
// ---------------------------------------------------------------------------

type annotationPrinter struct {
	classfile.AnnotationAdapter
	p      *Printer
	indent int
}

func (p *Printer) annotation(indent int, next classfile.AnnotationVisitor) *annotationPrinter {
	return &annotationPrinter{AnnotationAdapter: classfile.AnnotationAdapter{Next: next}, p: p, indent: indent}
}

func annotationHeader(desc string, visible bool) string {
	if visible {
		return "@" + desc + " // visible"
	}
	return "@" + desc + " // invisible"
}

func (a *annotationPrinter) element(name string) string {
	if name == "" {
		return ""
	}
	return name + " = "
}

func (a *annotationPrinter) Visit(name string, value any) {
	a.p.line(a.indent, "%s%s", a.element(name), constString(value))
	a.AnnotationAdapter.Visit(name, value)
}

func (a *annotationPrinter) VisitEnum(name, desc, value string) {
	a.p.line(a.indent, "%s%s.%s", a.element(name), desc, value)
	a.AnnotationAdapter.VisitEnum(name, desc, value)
}

func (a *annotationPrinter) VisitAnnotation(name, desc string) classfile.AnnotationVisitor {
	a.p.line(a.indent, "%s@%s", a.element(name), desc)
	return a.p.annotation(a.indent+1, a.AnnotationAdapter.VisitAnnotation(name, desc))
}

func (a *annotationPrinter) VisitArray(name string) classfile.AnnotationVisitor {
	a.p.line(a.indent, "%s[", a.element(name))
	return &arrayPrinter{annotationPrinter: a.p.annotation(a.indent+1, a.AnnotationAdapter.VisitArray(name)), open: a.indent}
}

// arrayPrinter closes the bracket opened by VisitArray.
type arrayPrinter struct {
	*annotationPrinter
	open int
}

func (a *arrayPrinter) VisitEnd() {
	a.p.line(a.open, "]")
	a.annotationPrinter.VisitEnd()
}

// ---------------------------------------------------------------------------
// Constants and flags
// ---------------------------------------------------------------------------

func constString(v any) string {
	switch v := v.(type) {
	case string:
		return fmt.Sprintf("%q", v)
	case int64:
		return fmt.Sprintf("%dL", v)
	case float32:
		return fmt.Sprintf("%vF", v)
	case float64:
		return fmt.Sprintf("%vD", v)
	case int8:
		return fmt.Sprintf("(byte)%d", v)
	case int16:
		return fmt.Sprintf("(short)%d", v)
	case uint16:
		return fmt.Sprintf("(char)%q", rune(v))
	case classfile.Type:
		if v.IsMethod() {
			return "MethodType " + v.Descriptor
		}
		return v.Descriptor + ".class"
	case classfile.Handle:
		return handleString(v)
	default:
		return fmt.Sprint(v)
	}
}

var handleKinds = map[int]string{
	classfile.HGetField:         "H_GETFIELD",
	classfile.HGetStatic:        "H_GETSTATIC",
	classfile.HPutField:         "H_PUTFIELD",
	classfile.HPutStatic:        "H_PUTSTATIC",
	classfile.HInvokeVirtual:    "H_INVOKEVIRTUAL",
	classfile.HInvokeStatic:     "H_INVOKESTATIC",
	classfile.HInvokeSpecial:    "H_INVOKESPECIAL",
	classfile.HNewInvokeSpecial: "H_NEWINVOKESPECIAL",
	classfile.HInvokeInterface:  "H_INVOKEINTERFACE",
}

func handleString(h classfile.Handle) string {
	s := fmt.Sprintf("%s %s.%s%s", handleKinds[h.Tag], h.Owner, h.Name, h.Desc)
	if h.Itf {
		s += " itf"
	}
	return s
}

func orNull(s string) string {
	if s == "" {
		return "null"
	}
	return s
}

type flagSet int

const (
	classFlags flagSet = iota
	fieldFlags
	methodFlags
)

// accessString renders the keyword form of access flags, each followed by a
// space. Bits shared between contexts are named per flag set.
func accessString(access int, set flagSet) string {
	var sb strings.Builder
	add := func(bit int, word string) {
		if access&bit != 0 {
			sb.WriteString(word)
			sb.WriteByte(' ')
		}
	}
	add(classfile.AccPublic, "public")
	add(classfile.AccPrivate, "private")
	add(classfile.AccProtected, "protected")
	add(classfile.AccFinal, "final")
	add(classfile.AccStatic, "static")
	switch set {
	case fieldFlags:
		add(classfile.AccVolatile, "volatile")
		add(classfile.AccTransient, "transient")
	case methodFlags:
		add(classfile.AccSynchronized, "synchronized")
		add(classfile.AccBridge, "bridge")
		add(classfile.AccVarargs, "varargs")
		add(classfile.AccNative, "native")
	}
	if set != classFlags || access&classfile.AccInterface == 0 {
		add(classfile.AccAbstract, "abstract")
	}
	add(classfile.AccStrict, "strictfp")
	add(classfile.AccSynthetic, "synthetic")
	return sb.String()
}

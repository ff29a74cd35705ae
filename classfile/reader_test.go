package classfile

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

var sampleBootstrap = Handle{
	Tag:   HInvokeStatic,
	Owner: "test/Boot",
	Name:  "bsm",
	Desc:  "(Ljava/lang/invoke/MethodHandles$Lookup;Ljava/lang/String;Ljava/lang/invoke/MethodType;Ljava/lang/String;I)Ljava/lang/invoke/CallSite;",
}

// visitRich adds members exercising most of the class file format.
func visitRich(w *Writer) {
	w.VisitSource("Sample.java", "debug-info")
	w.VisitOuterClass("test/Outer", "run", "()V")
	av := w.VisitAnnotation("Ltest/Marker;", true)
	av.Visit("i", int32(1))
	av.VisitEnd()
	w.VisitInnerClass("test/Sample$Inner", "test/Sample", "Inner", AccPublic|AccStatic)
	w.VisitInnerClass("test/Sample$Inner", "test/Sample", "Inner", AccPublic|AccStatic)

	w.VisitField(AccPublic|AccStatic|AccFinal, "MAX", "I", "", int32(42)).VisitEnd()
	w.VisitField(AccPrivate|AccDeprecated, "names", "Ljava/util/List;", "Ljava/util/List<Ljava/lang/String;>;", nil).VisitEnd()

	visitAbs(w)

	mv := w.VisitMethod(AccPublic|AccStatic, "pick", "(I)Ljava/lang/String;", "", []string{"java/io/IOException"})
	mv.VisitCode()
	start, end := &Label{}, &Label{}
	a, b, dflt := &Label{}, &Label{}, &Label{}
	mv.VisitLabel(start)
	mv.VisitLineNumber(10, start)
	mv.VisitVarInsn(OpIload, 0)
	mv.VisitTableSwitchInsn(1, 2, dflt, a, b)
	mv.VisitLabel(a)
	mv.VisitLdcInsn("one")
	mv.VisitInsn(OpAreturn)
	mv.VisitLabel(b)
	mv.VisitLdcInsn(Type{"Ljava/lang/String;"})
	mv.VisitMethodInsn(OpInvokevirtual, "java/lang/Class", "getName", "()Ljava/lang/String;", false)
	mv.VisitInsn(OpAreturn)
	mv.VisitLabel(dflt)
	mv.VisitVarInsn(OpIload, 0)
	mv.VisitLookupSwitchInsn(end, []int{-5, 100}, []*Label{a, b})
	mv.VisitLabel(end)
	mv.VisitInvokeDynamicInsn("get", "()Ljava/lang/String;", sampleBootstrap, "arg", int32(3))
	mv.VisitInsn(OpAreturn)
	mv.VisitLocalVariable("x", "I", "", start, end, 0)
	mv.VisitMaxs(0, 0)
	mv.VisitEnd()
}

func TestNewReaderRejectsMalformedInput(t *testing.T) {
	good := buildClass(t, ComputeFrames, visitRich)

	badMagic := append([]byte(nil), good...)
	badMagic[0] = 0xCB
	badTag := append([]byte(nil), good...)
	badTag[10] = 99

	tests := []struct {
		name string
		b    []byte
	}{
		{"empty", nil},
		{"short", good[:6]},
		{"bad magic", badMagic},
		{"bad pool tag", badTag},
		{"truncated pool", good[:20]},
		{"truncated body", good[:len(good)-25]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewReader(tt.b)
			if err == nil {
				err = r.Accept(&classRecorder{}, nil, 0)
			}
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("error = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestReaderHeader(t *testing.T) {
	b := buildClass(t, 0, func(w *Writer) {})
	r, err := NewReader(b)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if r.ClassName() != "test/Sample" {
		t.Errorf("ClassName = %q, want test/Sample", r.ClassName())
	}
	if r.SuperName() != "java/lang/Object" {
		t.Errorf("SuperName = %q, want java/lang/Object", r.SuperName())
	}
	if r.Access() != AccPublic|AccSuper {
		t.Errorf("Access = %#x, want %#x", r.Access(), AccPublic|AccSuper)
	}
	if len(r.Interfaces()) != 0 {
		t.Errorf("Interfaces = %v, want none", r.Interfaces())
	}
}

func TestReadClassEvents(t *testing.T) {
	c := record(t, buildClass(t, ComputeFrames, visitRich), 0)
	want := []string{
		`class 52 0x21 test/Sample "" java/lang/Object []`,
		`source Sample.java "debug-info"`,
		`outer test/Outer run()V`,
		`@Ltest/Marker; true`,
		`i=int32(1)`,
		`inner test/Sample$Inner test/Sample Inner 0x9`,
		`field 0x19 MAX I "" int32(42)`,
		`field 0x20002 names Ljava/util/List; "Ljava/util/List<Ljava/lang/String;>;" <nil>(<nil>)`,
		`method 0x9 abs(I)I "" []`,
		`method 0x9 pick(I)Ljava/lang/String; "" [java/io/IOException]`,
	}
	equalLines(t, "class events", c.lines, want)
}

func TestReadCode(t *testing.T) {
	c := record(t, buildClass(t, ComputeFrames, visitRich), 0)
	m := c.method(t, "pick(I)Ljava/lang/String;")

	code := m.code()
	if len(code) < 2 {
		t.Fatalf("code = %v", code)
	}
	indy := code[len(code)-3]
	if !strings.HasPrefix(indy, "invokedynamic get()Ljava/lang/String; test/Boot.bsm") || !strings.HasSuffix(indy, "[arg 3]") {
		t.Errorf("invokedynamic line = %q", indy)
	}
	code = append(code[:len(code)-3:len(code)-3], code[len(code)-2:]...)
	want := []string{
		"L0:",
		"iload 0",
		"tableswitch 1 2 L3 [L1 L2]",
		"L1:",
		"ldc string(one)",
		"areturn",
		"L2:",
		"ldc classfile.Type(Ljava/lang/String;)",
		"invokevirtual java/lang/Class.getName()Ljava/lang/String; false",
		"areturn",
		"L3:",
		"iload 0",
		"lookupswitch L4 [-5 100] [L1 L2]",
		"L4:",
		"areturn",
		`var x I "" L0 L4 0`,
	}
	equalLines(t, "pick code", code, want)

	var lines []string
	for _, l := range m.lines {
		if strings.HasPrefix(l, "line") {
			lines = append(lines, l)
		}
	}
	equalLines(t, "line numbers", lines, []string{"line 10 L0"})

	if len(m.frames()) != 4 {
		t.Errorf("frames = %v, want one per branch target", m.frames())
	}
	if m.maxStack != 1 || m.maxLocals != 1 {
		t.Errorf("maxs = (%d, %d), want (1, 1)", m.maxStack, m.maxLocals)
	}
}

func TestReadSkipFlags(t *testing.T) {
	b := buildClass(t, ComputeFrames, visitRich)

	c := record(t, b, SkipDebug)
	for _, l := range c.lines {
		if strings.HasPrefix(l, "source") {
			t.Errorf("SkipDebug visited %q", l)
		}
	}
	for _, l := range c.method(t, "pick(I)Ljava/lang/String;").lines {
		if strings.HasPrefix(l, "line") || strings.HasPrefix(l, "var") {
			t.Errorf("SkipDebug visited %q", l)
		}
	}

	c = record(t, b, SkipFrames)
	if f := c.method(t, "pick(I)Ljava/lang/String;").frames(); len(f) != 0 {
		t.Errorf("SkipFrames visited %v", f)
	}

	c = record(t, b, SkipCode)
	if l := c.method(t, "pick(I)Ljava/lang/String;").lines; len(l) != 0 {
		t.Errorf("SkipCode visited %v", l)
	}
	if len(c.lines) != 10 {
		t.Errorf("SkipCode class events = %d, want 10", len(c.lines))
	}
}

func TestRoundTripThroughWriter(t *testing.T) {
	b1 := buildClass(t, ComputeFrames, visitRich)
	r, err := NewReader(b1)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	w := NewWriter(0)
	if err := r.Accept(w, nil, 0); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	b2, err := w.ToBytes()
	if err != nil {
		t.Fatalf("ToBytes: %v", err)
	}

	c1, c2 := record(t, b1, 0), record(t, b2, 0)
	equalLines(t, "class events", c2.lines, c1.lines)
	for key, m1 := range c1.methods {
		m2 := c2.method(t, key)
		equalLines(t, key, m2.lines, m1.lines)
		if m1.maxStack != m2.maxStack || m1.maxLocals != m2.maxLocals {
			t.Errorf("%s maxs = (%d, %d), want (%d, %d)", key, m2.maxStack, m2.maxLocals, m1.maxStack, m1.maxLocals)
		}
	}
}

func TestCopyPoolReusesMethodBytes(t *testing.T) {
	b1 := buildClass(t, ComputeFrames, visitRich)
	r, err := NewReader(b1)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	w := NewWriterFromReader(r, 0)
	if err := r.Accept(w, nil, 0); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	for _, mw := range w.methods {
		if mw.copied == nil {
			t.Errorf("method %s was re-encoded, want copied", mw.name)
		}
	}
	b2, err := w.ToBytes()
	if err != nil {
		t.Fatalf("ToBytes: %v", err)
	}
	if !bytes.Equal(b1, b2) {
		t.Errorf("copied class differs: %d bytes, want %d", len(b2), len(b1))
	}

	// Skip flags change what the method sees, so nothing is copied.
	w = NewWriterFromReader(r, 0)
	if err := r.Accept(w, nil, SkipDebug); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	for _, mw := range w.methods {
		if mw.copied != nil {
			t.Errorf("method %s copied despite SkipDebug", mw.name)
		}
	}
}

func TestReadAnnotations(t *testing.T) {
	b := buildClass(t, 0, func(w *Writer) {
		av := w.VisitAnnotation("Ltest/All;", false)
		av.Visit("b", int8(2))
		av.Visit("z", true)
		av.Visit("c", uint16('x'))
		av.Visit("s", int16(3))
		av.Visit("j", int64(4))
		av.Visit("f", float32(1.5))
		av.Visit("d", 2.5)
		av.Visit("str", "hi")
		av.Visit("cls", Type{"Ljava/lang/String;"})
		av.VisitEnum("e", "La/E;", "A")
		nested := av.VisitAnnotation("nested", "Ltest/Inner;")
		nested.Visit("v", int32(7))
		nested.VisitEnd()
		av.Visit("ints", []int32{1, 2, 3})
		names := av.VisitArray("names")
		names.Visit("", "a")
		names.Visit("", "b")
		names.VisitEnd()
		av.VisitArray("empty").VisitEnd()
		av.VisitEnd()

		mv := w.VisitMethod(AccPublic|AccAbstract, "value", "(ILjava/lang/String;)V", "", nil)
		mv.VisitParameterAnnotation(1, "Ltest/NotNull;", true).VisitEnd()
		dv := mv.VisitAnnotationDefault()
		dv.Visit("", []bool{true, false})
		dv.VisitEnd()
		mv.VisitEnd()
	})

	c := record(t, b, 0)
	equalLines(t, "class annotations", c.lines[1:], []string{
		"@Ltest/All; false",
		"b=int8(2)",
		"z=bool(true)",
		"c=uint16(120)",
		"s=int16(3)",
		"j=int64(4)",
		"f=float32(1.5)",
		"d=float64(2.5)",
		"str=string(hi)",
		"cls=classfile.Type(Ljava/lang/String;)",
		"e=enum La/E;.A",
		"nested=@Ltest/Inner;",
		"nested.v=int32(7)",
		"ints=[]int32([1 2 3])",
		"names=[]",
		"names[].=string(a)",
		"names[].=string(b)",
		"empty=[]",
		`method 0x401 value(ILjava/lang/String;)V "" []`,
	})
	m := c.method(t, "value(ILjava/lang/String;)V")
	equalLines(t, "method annotations", m.lines, []string{
		"default",
		"=[]bool([true false])",
		"@param1 Ltest/NotNull; true",
	})
}

func TestReadUnknownAttribute(t *testing.T) {
	b := buildClass(t, 0, func(w *Writer) {
		w.VisitAttribute(&Attribute{Name: "Custom", Content: []byte{1, 2, 3}})
	})
	c := record(t, b, 0)
	equalLines(t, "class events", c.lines[1:], []string{"attr Custom 010203 <nil>"})
}

func TestReadConstModifiedUTF8(t *testing.T) {
	b := buildClass(t, 0, func(w *Writer) {
		w.VisitField(AccStatic|AccFinal, "S", "Ljava/lang/String;", "", "a\x00\U0001F600").VisitEnd()
	})
	c := record(t, b, 0)
	want := "field 0x18 S Ljava/lang/String; \"\" string(a\x00\U0001F600)"
	if c.lines[1] != want {
		t.Errorf("field = %q, want %q", c.lines[1], want)
	}
}

func TestUnpairedSurrogateSurvivesRewrite(t *testing.T) {
	const value = "x\xed\xa0\x80y"
	entry := []byte{1, 0, 5, 'x', 0xED, 0xA0, 0x80, 'y'}
	b1 := buildClass(t, 0, func(w *Writer) {
		w.VisitField(AccStatic|AccFinal, "S", "Ljava/lang/String;", "", value).VisitEnd()
	})
	if !bytes.Contains(b1, entry) {
		t.Fatalf("written pool lacks % X", entry)
	}
	r, err := NewReader(b1)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	w := NewWriter(0)
	if err := r.Accept(w, nil, 0); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	b2, err := w.ToBytes()
	if err != nil {
		t.Fatalf("ToBytes: %v", err)
	}
	if !bytes.Contains(b2, entry) {
		t.Errorf("rewritten pool lacks % X", entry)
	}
	c := record(t, b2, 0)
	if want := "field 0x18 S Ljava/lang/String; \"\" string(" + value + ")"; c.lines[1] != want {
		t.Errorf("field = %q, want %q", c.lines[1], want)
	}
}

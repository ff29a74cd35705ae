package classfile

import (
	"errors"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// Frames and max stack
// ---------------------------------------------------------------------------

// visitAbs emits static int abs(int x) { return x < 0 ? -x : x; }.
func visitAbs(w *Writer) {
	mv := w.VisitMethod(AccStatic, "abs", "(I)I", "", nil)
	mv.VisitCode()
	pos := &Label{}
	mv.VisitVarInsn(OpIload, 0)
	mv.VisitJumpInsn(OpIfge, pos)
	mv.VisitVarInsn(OpIload, 0)
	mv.VisitInsn(OpIneg)
	mv.VisitInsn(OpIreturn)
	mv.VisitLabel(pos)
	mv.VisitVarInsn(OpIload, 0)
	mv.VisitInsn(OpIreturn)
	mv.VisitMaxs(0, 0)
	mv.VisitEnd()
}

func TestComputeFramesSimpleBranch(t *testing.T) {
	b := buildClass(t, ComputeFrames, visitAbs)

	m := record(t, b, 0).method(t, "abs(I)I")
	equalLines(t, "code", m.code(), []string{
		"iload 0", "ifge L0", "iload 0", "ineg", "ireturn",
		"L0:", "iload 0", "ireturn",
	})
	equalLines(t, "frames", m.frames(), []string{"frame 3 [] []"})
	if m.maxStack != 1 || m.maxLocals != 1 {
		t.Errorf("maxs = (%d, %d), want (1, 1)", m.maxStack, m.maxLocals)
	}

	m = record(t, b, ExpandFrames).method(t, "abs(I)I")
	equalLines(t, "expanded frames", m.frames(), []string{"frame -1 [item1] []"})
}

func TestComputeFramesMergesToTop(t *testing.T) {
	// static void f(boolean b) { if (b) { int x = 1; } else { float x = 1; } return; }
	b := buildClass(t, ComputeFrames, func(w *Writer) {
		mv := w.VisitMethod(AccStatic, "f", "(Z)V", "", nil)
		mv.VisitCode()
		elseL, end := &Label{}, &Label{}
		mv.VisitVarInsn(OpIload, 0)
		mv.VisitJumpInsn(OpIfeq, elseL)
		mv.VisitInsn(OpIconst1)
		mv.VisitVarInsn(OpIstore, 1)
		mv.VisitJumpInsn(OpGoto, end)
		mv.VisitLabel(elseL)
		mv.VisitInsn(OpFconst1)
		mv.VisitVarInsn(OpFstore, 1)
		mv.VisitLabel(end)
		mv.VisitInsn(OpReturn)
		mv.VisitMaxs(0, 0)
		mv.VisitEnd()
	})
	m := record(t, b, ExpandFrames).method(t, "f(Z)V")
	// Local 1 is int on one path and float on the other: the merged frame
	// drops it.
	equalLines(t, "frames", m.frames(), []string{
		"frame -1 [item1] []",
		"frame -1 [item1] []",
	})
	if m.maxLocals != 2 {
		t.Errorf("maxLocals = %d, want 2", m.maxLocals)
	}
}

func TestMergeType(t *testing.T) {
	w := NewWriter(ComputeFrames)
	str := objectType(w.pool.addType("java/lang/String"))
	obj := objectType(w.pool.addType("java/lang/Object"))
	sb := objectType(w.pool.addType("java/lang/StringBuilder"))

	tests := []struct {
		name   string
		dst, t absType
		want   absType
		change bool
	}{
		{"same", typeInt, typeInt, typeInt, false},
		{"int float", typeInt, typeFloat, typeTop, true},
		{"unknown", absType{}, typeLong, typeLong, true},
		{"null into ref", str, typeNull, str, false},
		{"ref into null", typeNull, str, str, true},
		{"two classes", str, sb, obj, true},
		{"ref and int", str, typeInt, typeTop, true},
		{"arrays of classes", str.arrayOf(), sb.arrayOf(), obj.arrayOf(), true},
		{"arrays of primitives", typeInt.arrayOf(), typeFloat.arrayOf(), obj, true},
		{"array and class", str.arrayOf(), str, obj, true},
	}
	for _, tt := range tests {
		types := []absType{tt.dst}
		changed := mergeType(w, tt.t, types, 0)
		if types[0] != tt.want {
			t.Errorf("%s: merged = %+v, want %+v", tt.name, types[0], tt.want)
		}
		if changed != tt.change {
			t.Errorf("%s: changed = %v, want %v", tt.name, changed, tt.change)
		}
	}
}

func TestCommonSuperClassHook(t *testing.T) {
	w := NewWriter(ComputeFrames)
	w.CommonSuperClass = func(a, b string) string { return "java/lang/CharSequence" }
	types := []absType{objectType(w.pool.addType("java/lang/String"))}
	mergeType(w, objectType(w.pool.addType("java/lang/StringBuilder")), types, 0)
	if got := w.pool.typeName(int(types[0].value)); got != "java/lang/CharSequence" {
		t.Errorf("merged = %s, want java/lang/CharSequence", got)
	}
}

func TestComputeFramesUnreachableCode(t *testing.T) {
	b := buildClass(t, ComputeFrames, func(w *Writer) {
		mv := w.VisitMethod(AccStatic, "dead", "()V", "", nil)
		mv.VisitCode()
		dead, end := &Label{}, &Label{}
		mv.VisitJumpInsn(OpGoto, end)
		mv.VisitLabel(dead)
		mv.VisitInsn(OpIconst1)
		mv.VisitInsn(OpPop)
		mv.VisitLabel(end)
		mv.VisitInsn(OpReturn)
		mv.VisitMaxs(0, 0)
		mv.VisitEnd()
	})
	m := record(t, b, 0).method(t, "dead()V")
	equalLines(t, "code", m.code(), []string{
		"goto L0", "L1:", "nop", "athrow", "L0:", "return",
	})
	equalLines(t, "frames", m.frames(), []string{
		"frame 4 [] [java/lang/Throwable]",
		"frame 3 [] []",
	})
	if m.maxStack != 1 {
		t.Errorf("maxStack = %d, want 1", m.maxStack)
	}
}

func TestComputeFramesExceptionHandler(t *testing.T) {
	// static void f() { try { g(); } catch (Exception e) { } }
	b := buildClass(t, ComputeFrames, func(w *Writer) {
		mv := w.VisitMethod(AccStatic, "f", "()V", "", nil)
		mv.VisitCode()
		start, end, handler, done := &Label{}, &Label{}, &Label{}, &Label{}
		mv.VisitTryCatchBlock(start, end, handler, "java/lang/Exception")
		mv.VisitLabel(start)
		mv.VisitMethodInsn(OpInvokestatic, "test/Sample", "g", "()V", false)
		mv.VisitLabel(end)
		mv.VisitJumpInsn(OpGoto, done)
		mv.VisitLabel(handler)
		mv.VisitVarInsn(OpAstore, 0)
		mv.VisitLabel(done)
		mv.VisitInsn(OpReturn)
		mv.VisitMaxs(0, 0)
		mv.VisitEnd()
	})
	m := record(t, b, ExpandFrames).method(t, "f()V")
	equalLines(t, "frames", m.frames(), []string{
		"frame -1 [] [java/lang/Exception]",
		"frame -1 [] []",
	})
	if m.maxStack != 1 || m.maxLocals != 1 {
		t.Errorf("maxs = (%d, %d), want (1, 1)", m.maxStack, m.maxLocals)
	}
}

func TestComputeFramesConstructor(t *testing.T) {
	// Object o = new Object() with a branch before the constructor call.
	b := buildClass(t, ComputeFrames, func(w *Writer) {
		mv := w.VisitMethod(AccStatic, "make", "(Z)Ljava/lang/Object;", "", nil)
		mv.VisitCode()
		l := &Label{}
		mv.VisitTypeInsn(OpNew, "java/lang/Object")
		mv.VisitInsn(OpDup)
		mv.VisitVarInsn(OpIload, 0)
		mv.VisitJumpInsn(OpIfeq, l)
		mv.VisitLabel(l)
		mv.VisitMethodInsn(OpInvokespecial, "java/lang/Object", "<init>", "()V", false)
		mv.VisitInsn(OpAreturn)
		mv.VisitMaxs(0, 0)
		mv.VisitEnd()
	})
	m := record(t, b, ExpandFrames).method(t, "make(Z)Ljava/lang/Object;")
	frames := m.frames()
	if len(frames) != 1 {
		t.Fatalf("frames = %v, want one", frames)
	}
	// Both stack slots hold the value created by the NEW at offset 0.
	if strings.Count(frames[0], "uninit L") != 2 {
		t.Errorf("frame = %s, want two uninitialized stack entries", frames[0])
	}
	if m.maxStack != 3 {
		t.Errorf("maxStack = %d, want 3", m.maxStack)
	}
}

func TestStoreLocalKeepsConcreteNeighbours(t *testing.T) {
	w := NewWriter(ComputeFrames)
	str := objectType(w.pool.addType("java/lang/String"))

	f := newFrame(&Label{})
	f.set(0, str)
	f.storeLocal(1, typeInt, 1)
	if got := f.get(0); got != str {
		t.Errorf("object local after store above it = %+v, want %+v", got, str)
	}

	f.set(2, uninitType(w.pool.addUninitializedType("java/lang/Object", 0)))
	f.storeLocal(3, typeInt, 1)
	if got := f.get(2); got.topIfLongOrDouble {
		t.Errorf("uninitialized local after store above it = %+v, want it unmarked", got)
	}

	// A local still relative to the block input may hold the first half of
	// a long.
	f.storeLocal(5, typeInt, 1)
	if got := f.get(4); got.kind != kindLocal || !got.topIfLongOrDouble {
		t.Errorf("relative local after store above it = %+v, want marked", got)
	}
	f.inputLocals = []absType{typeInt, typeTop, typeTop, typeTop, typeLong, typeTop}
	if got := f.resolve(f.get(4)); got != typeTop {
		t.Errorf("marked long local resolved to %+v, want TOP", got)
	}
}

// frameCase is a method body and the frames expected when its frames are
// computed, read back compressed and expanded.
type frameCase struct {
	name     string
	desc     string
	body     func(mv MethodVisitor)
	frames   []string
	expanded []string
}

var frameCases = []frameCase{
	{
		// String s = "a"; int n; if (x == 0) { s = "b"; n = 0; } else { n = 1; } s.length();
		name: "object local kept across store above it",
		desc: "(I)V",
		body: func(mv MethodVisitor) {
			other, join := &Label{}, &Label{}
			mv.VisitLdcInsn("a")
			mv.VisitVarInsn(OpAstore, 1)
			mv.VisitVarInsn(OpIload, 0)
			mv.VisitJumpInsn(OpIfne, other)
			mv.VisitLdcInsn("b")
			mv.VisitVarInsn(OpAstore, 1)
			mv.VisitInsn(OpIconst0)
			mv.VisitVarInsn(OpIstore, 2)
			mv.VisitJumpInsn(OpGoto, join)
			mv.VisitLabel(other)
			mv.VisitInsn(OpIconst1)
			mv.VisitVarInsn(OpIstore, 2)
			mv.VisitLabel(join)
			mv.VisitVarInsn(OpAload, 1)
			mv.VisitMethodInsn(OpInvokevirtual, "java/lang/String", "length", "()I", false)
			mv.VisitInsn(OpPop)
			mv.VisitInsn(OpReturn)
		},
		frames: []string{
			"frame 1 [java/lang/String] []",
			"frame 1 [item1] []",
		},
		expanded: []string{
			"frame -1 [item1 java/lang/String] []",
			"frame -1 [item1 java/lang/String item1] []",
		},
	},
	{
		name: "append then chop",
		desc: "(I)V",
		body: func(mv MethodVisitor) {
			inner, outer := &Label{}, &Label{}
			mv.VisitVarInsn(OpIload, 0)
			mv.VisitJumpInsn(OpIfeq, outer)
			mv.VisitInsn(OpIconst0)
			mv.VisitVarInsn(OpIstore, 1)
			mv.VisitInsn(OpLconst0)
			mv.VisitVarInsn(OpLstore, 2)
			mv.VisitVarInsn(OpIload, 0)
			mv.VisitJumpInsn(OpIfeq, inner)
			mv.VisitInsn(OpNop)
			mv.VisitLabel(inner)
			mv.VisitInsn(OpNop)
			mv.VisitLabel(outer)
			mv.VisitInsn(OpReturn)
		},
		frames: []string{
			"frame 1 [item1 item4] []",
			"frame 2 2",
		},
		expanded: []string{
			"frame -1 [item1 item1 item4] []",
			"frame -1 [item1] []",
		},
	},
	{
		name: "same locals one stack item",
		desc: "(I)I",
		body: func(mv MethodVisitor) {
			zero, end := &Label{}, &Label{}
			mv.VisitVarInsn(OpIload, 0)
			mv.VisitJumpInsn(OpIfeq, zero)
			mv.VisitInsn(OpIconst1)
			mv.VisitJumpInsn(OpGoto, end)
			mv.VisitLabel(zero)
			mv.VisitInsn(OpIconst0)
			mv.VisitLabel(end)
			mv.VisitInsn(OpIreturn)
		},
		frames: []string{
			"frame 3 [] []",
			"frame 4 [] [item1]",
		},
	},
	{
		name: "full frame with new local and stack item",
		desc: "(I)I",
		body: func(mv MethodVisitor) {
			zero, end := &Label{}, &Label{}
			mv.VisitVarInsn(OpIload, 0)
			mv.VisitJumpInsn(OpIfeq, zero)
			mv.VisitInsn(OpIconst1)
			mv.VisitVarInsn(OpIstore, 1)
			mv.VisitInsn(OpIconst1)
			mv.VisitJumpInsn(OpGoto, end)
			mv.VisitLabel(zero)
			mv.VisitInsn(OpIconst0)
			mv.VisitVarInsn(OpIstore, 1)
			mv.VisitInsn(OpIconst0)
			mv.VisitLabel(end)
			mv.VisitInsn(OpIreturn)
		},
		frames: []string{
			"frame 3 [] []",
			"frame 0 [item1 item1] [item1]",
		},
	},
	{
		name: "store over second half of a long local",
		desc: "(I)V",
		body: func(mv MethodVisitor) {
			end := &Label{}
			mv.VisitInsn(OpLconst0)
			mv.VisitVarInsn(OpLstore, 1)
			mv.VisitInsn(OpIconst0)
			mv.VisitVarInsn(OpIstore, 2)
			mv.VisitVarInsn(OpIload, 0)
			mv.VisitJumpInsn(OpIfeq, end)
			mv.VisitInsn(OpNop)
			mv.VisitLabel(end)
			mv.VisitInsn(OpReturn)
		},
		frames:   []string{"frame 1 [item0 item1] []"},
		expanded: []string{"frame -1 [item1 item0 item1] []"},
	},
	{
		name: "store over second half of a long parameter",
		desc: "(J)V",
		body: func(mv MethodVisitor) {
			end := &Label{}
			mv.VisitInsn(OpIconst0)
			mv.VisitVarInsn(OpIstore, 1)
			mv.VisitVarInsn(OpIload, 1)
			mv.VisitJumpInsn(OpIfeq, end)
			mv.VisitInsn(OpNop)
			mv.VisitLabel(end)
			mv.VisitInsn(OpReturn)
		},
		frames: []string{"frame 0 [item0 item1] []"},
	},
	{
		name: "tableswitch targets",
		desc: "(I)I",
		body: func(mv MethodVisitor) {
			a, b, dflt := &Label{}, &Label{}, &Label{}
			mv.VisitVarInsn(OpIload, 0)
			mv.VisitTableSwitchInsn(0, 1, dflt, a, b)
			mv.VisitLabel(a)
			mv.VisitInsn(OpIconst1)
			mv.VisitInsn(OpIreturn)
			mv.VisitLabel(b)
			mv.VisitInsn(OpIconst2)
			mv.VisitInsn(OpIreturn)
			mv.VisitLabel(dflt)
			mv.VisitInsn(OpIconst0)
			mv.VisitInsn(OpIreturn)
		},
		frames: []string{"frame 3 [] []", "frame 3 [] []", "frame 3 [] []"},
	},
	{
		name: "lookupswitch targets with a value on the stack",
		desc: "(I)I",
		body: func(mv MethodVisitor) {
			a, b, dflt := &Label{}, &Label{}, &Label{}
			mv.VisitInsn(OpIconst2)
			mv.VisitVarInsn(OpIload, 0)
			mv.VisitLookupSwitchInsn(dflt, []int{10, 20}, []*Label{a, b})
			mv.VisitLabel(a)
			mv.VisitInsn(OpIreturn)
			mv.VisitLabel(b)
			mv.VisitInsn(OpIreturn)
			mv.VisitLabel(dflt)
			mv.VisitInsn(OpIreturn)
		},
		frames: []string{"frame 4 [] [item1]", "frame 4 [] [item1]", "frame 4 [] [item1]"},
	},
}

func TestComputeFramesCompression(t *testing.T) {
	for _, tt := range frameCases {
		t.Run(tt.name, func(t *testing.T) {
			b := buildClass(t, ComputeFrames, func(w *Writer) {
				mv := w.VisitMethod(AccStatic, "f", tt.desc, "", nil)
				mv.VisitCode()
				tt.body(mv)
				mv.VisitMaxs(0, 0)
				mv.VisitEnd()
			})
			equalLines(t, "frames", record(t, b, 0).method(t, "f"+tt.desc).frames(), tt.frames)
			if tt.expanded != nil {
				equalLines(t, "expanded frames", record(t, b, ExpandFrames).method(t, "f"+tt.desc).frames(), tt.expanded)
			}
		})
	}
}

func TestComputeMaxs(t *testing.T) {
	b := buildClass(t, ComputeMaxs, func(w *Writer) {
		mv := w.VisitMethod(AccStatic, "add", "(JJ)J", "", nil)
		mv.VisitCode()
		mv.VisitVarInsn(OpLload, 0)
		mv.VisitVarInsn(OpLload, 2)
		mv.VisitInsn(OpLadd)
		mv.VisitInsn(OpLreturn)
		mv.VisitMaxs(0, 0)
		mv.VisitEnd()
	})
	m := record(t, b, 0).method(t, "add(JJ)J")
	if m.maxStack != 4 || m.maxLocals != 4 {
		t.Errorf("maxs = (%d, %d), want (4, 4)", m.maxStack, m.maxLocals)
	}
}

func TestComputeMaxsSubroutine(t *testing.T) {
	b := buildClass(t, ComputeMaxs, func(w *Writer) {
		mv := w.VisitMethod(AccStatic, "fin", "()V", "", nil)
		mv.VisitCode()
		sub := &Label{}
		mv.VisitJumpInsn(OpJsr, sub)
		mv.VisitInsn(OpReturn)
		mv.VisitLabel(sub)
		mv.VisitVarInsn(OpAstore, 0)
		mv.VisitInsn(OpLconst0)
		mv.VisitInsn(OpPop2)
		mv.VisitVarInsn(OpRet, 0)
		mv.VisitMaxs(0, 0)
		mv.VisitEnd()
	})
	m := record(t, b, 0).method(t, "fin()V")
	// One slot for the return address plus the long pushed inside.
	if m.maxStack != 2 || m.maxLocals != 1 {
		t.Errorf("maxs = (%d, %d), want (2, 1)", m.maxStack, m.maxLocals)
	}
}

func TestComputeFramesRejectsSubroutines(t *testing.T) {
	w := NewWriter(ComputeFrames)
	w.Visit(V1_8, AccPublic, "test/Sample", "", "java/lang/Object", nil)
	mv := w.VisitMethod(AccStatic, "fin", "()V", "", nil)
	mv.VisitCode()
	sub := &Label{}
	mv.VisitJumpInsn(OpJsr, sub)
	mv.VisitInsn(OpReturn)
	mv.VisitLabel(sub)
	mv.VisitVarInsn(OpAstore, 0)
	mv.VisitVarInsn(OpRet, 0)
	mv.VisitMaxs(0, 0)
	mv.VisitEnd()
	w.VisitEnd()
	if _, err := w.ToBytes(); !errors.Is(err, ErrSubroutineFrames) {
		t.Errorf("ToBytes error = %v, want ErrSubroutineFrames", err)
	}
}

func TestOldVersionWritesStackMap(t *testing.T) {
	w := NewWriter(ComputeFrames)
	w.Visit(V1_5, AccPublic, "test/Old", "", "java/lang/Object", nil)
	visitAbs(w)
	w.VisitEnd()
	b, err := w.ToBytes()
	if err != nil {
		t.Fatalf("ToBytes: %v", err)
	}
	if !strings.Contains(string(b), "StackMap") || strings.Contains(string(b), "StackMapTable") {
		t.Error("want a StackMap attribute and no StackMapTable")
	}
	m := record(t, b, 0).method(t, "abs(I)I")
	equalLines(t, "frames", m.frames(), []string{"frame -1 [item1] []"})
}

// ---------------------------------------------------------------------------
// Long branches
// ---------------------------------------------------------------------------

// visitFar emits a branch over n NOPs, optionally with caller frames.
func visitFar(w *Writer, n int, frames bool) {
	mv := w.VisitMethod(AccStatic, "far", "(I)V", "", nil)
	mv.VisitCode()
	end := &Label{}
	mv.VisitVarInsn(OpIload, 0)
	mv.VisitJumpInsn(OpIfeq, end)
	for i := 0; i < n; i++ {
		mv.VisitInsn(OpNop)
	}
	mv.VisitLabel(end)
	if frames {
		mv.VisitFrame(FSame, nil, nil)
	}
	mv.VisitInsn(OpReturn)
	mv.VisitMaxs(1, 1)
	mv.VisitEnd()
}

func TestForwardJumpOverflowUsesPseudoOpcode(t *testing.T) {
	w := NewWriter(0)
	w.Visit(V1_8, AccPublic, "test/Sample", "", "java/lang/Object", nil)
	visitFar(w, 40000, false)
	mw := w.methods[0]
	if !w.needsExpansion {
		t.Error("needsExpansion = false after an out of range forward jump")
	}
	code := mw.code.Bytes()
	if int(code[1]) != pseudoOf(OpIfeq) {
		t.Errorf("opcode = %d, want pseudo %d", code[1], pseudoOf(OpIfeq))
	}
	if got := int(code[2])<<8 | int(code[3]); got != 40003 {
		t.Errorf("offset = %d, want 40003", got)
	}
}

func TestLongForwardJumpIsExpanded(t *testing.T) {
	b := buildClass(t, 0, func(w *Writer) { visitFar(w, 40000, false) })
	code := record(t, b, 0).method(t, "far(I)V").code()
	equalLines(t, "head", code[:4], []string{"iload 0", "ifne L0", "goto_w L1", "L0:"})
	equalLines(t, "tail", code[len(code)-2:], []string{"L1:", "return"})
	if nops := len(code) - 6; nops != 40000 {
		t.Errorf("nops = %d, want 40000", nops)
	}
}

func TestLongForwardJumpComputeFrames(t *testing.T) {
	b := buildClass(t, ComputeFrames, func(w *Writer) { visitFar(w, 40000, false) })
	m := record(t, b, ExpandFrames).method(t, "far(I)V")
	equalLines(t, "frames", m.frames(), []string{
		"frame -1 [item1] []",
		"frame -1 [item1] []",
	})
	equalLines(t, "head", m.code()[:3], []string{"iload 0", "ifne L0", "goto_w L1"})
}

func TestLongForwardJumpInsertsFrames(t *testing.T) {
	// No computation, but the caller gave frames: the expansion pass must
	// add the frame the new branch target needs.
	b := buildClass(t, 0, func(w *Writer) { visitFar(w, 40000, true) })
	m := record(t, b, 0).method(t, "far(I)V")
	equalLines(t, "frames", m.frames(), []string{"frame 3 [] []", "frame 3 [] []"})
	equalLines(t, "head", m.code()[:4], []string{"iload 0", "ifne L0", "goto_w L1", "L0:"})
}

func TestLongBackwardConditionalJump(t *testing.T) {
	b := buildClass(t, ComputeFrames, func(w *Writer) {
		mv := w.VisitMethod(AccStatic, "loop", "(I)V", "", nil)
		mv.VisitCode()
		top := &Label{}
		mv.VisitLabel(top)
		for i := 0; i < 40000; i++ {
			mv.VisitInsn(OpNop)
		}
		mv.VisitVarInsn(OpIload, 0)
		mv.VisitJumpInsn(OpIfne, top)
		mv.VisitInsn(OpReturn)
		mv.VisitMaxs(0, 0)
		mv.VisitEnd()
	})
	m := record(t, b, 0).method(t, "loop(I)V")
	code := m.code()
	equalLines(t, "tail", code[len(code)-5:], []string{"iload 0", "ifeq L1", "goto_w L0", "L1:", "return"})
	if n := len(m.frames()); n != 2 {
		t.Errorf("frames = %d, want 2", n)
	}
}

func TestCodeTooLarge(t *testing.T) {
	w := NewWriter(0)
	w.Visit(V1_8, AccPublic, "test/Sample", "", "java/lang/Object", nil)
	mv := w.VisitMethod(AccStatic, "big", "()V", "", nil)
	mv.VisitCode()
	for i := 0; i < 70000; i++ {
		mv.VisitInsn(OpNop)
	}
	mv.VisitInsn(OpReturn)
	mv.VisitMaxs(0, 0)
	mv.VisitEnd()
	w.VisitEnd()
	if _, err := w.ToBytes(); !errors.Is(err, ErrCodeTooLarge) {
		t.Errorf("ToBytes error = %v, want ErrCodeTooLarge", err)
	}
}

func TestLabelOffset(t *testing.T) {
	w := NewWriter(0)
	w.Visit(V1_8, AccPublic, "test/Sample", "", "java/lang/Object", nil)
	mv := w.VisitMethod(AccStatic, "f", "()V", "", nil)
	l := &Label{}
	mv.VisitInsn(OpNop)
	mv.VisitInsn(OpNop)
	mv.VisitLabel(l)
	if l.Offset() != 2 {
		t.Errorf("Offset() = %d, want 2", l.Offset())
	}

	defer func() {
		if recover() == nil {
			t.Error("Offset() of an unplaced label did not panic")
		}
	}()
	(&Label{}).Offset()
}

func TestLabelSharedBetweenMethodsPanics(t *testing.T) {
	w := NewWriter(0)
	w.Visit(V1_8, AccPublic, "test/Sample", "", "java/lang/Object", nil)
	l := &Label{}
	w.VisitMethod(AccStatic, "f", "()V", "", nil).VisitLabel(l)
	defer func() {
		if recover() == nil {
			t.Error("reusing a label in another method did not panic")
		}
	}()
	w.VisitMethod(AccStatic, "g", "()V", "", nil).VisitLabel(l)
}

func TestRemoveHandlerRange(t *testing.T) {
	at := func(pos int) *Label { return &Label{status: labelResolved, position: pos} }
	h := at(100)
	l0, l10, l20, l30 := at(0), at(10), at(20), at(30)

	// [0, 30) minus [10, 20) splits in two.
	hs := removeHandlerRange([]*handler{{start: l0, end: l30, handler: h}}, l10, l20)
	if len(hs) != 2 || hs[0].end != l10 || hs[1].start != l20 {
		t.Errorf("split = %v", hs)
	}

	// [10, 20) minus [0, 30) disappears.
	hs = removeHandlerRange([]*handler{{start: l10, end: l20, handler: h}}, l0, l30)
	if len(hs) != 0 {
		t.Errorf("covered handler kept: %v", hs)
	}

	// [0, 20) minus [10, end) is trimmed.
	hs = removeHandlerRange([]*handler{{start: l0, end: l20, handler: h}}, l10, nil)
	if len(hs) != 1 || hs[0].start != l0 || hs[0].end != l10 {
		t.Errorf("trimmed = %v", hs)
	}
}

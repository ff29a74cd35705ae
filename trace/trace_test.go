package trace

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/chazu/classkit/classfile"
)

// buildClass writes a small class whose abs method returns ret on the
// non-negative path.
func buildClass(t *testing.T, flags int, ret int) []byte {
	t.Helper()
	w := classfile.NewWriter(flags)
	w.Visit(classfile.V1_8, classfile.AccPublic|classfile.AccSuper, "test/Sample", "", "java/lang/Object", nil)
	w.VisitSource("Sample.java", "")
	av := w.VisitAnnotation("Ltest/Marker;", true)
	av.Visit("n", int32(1))
	av.Visit("ok", true)
	av.VisitEnd()
	w.VisitField(classfile.AccStatic|classfile.AccFinal, "LIMIT", "J", "", int64(10)).VisitEnd()

	mv := w.VisitMethod(classfile.AccStatic, "abs", "(I)I", "", nil)
	mv.VisitCode()
	pos := &classfile.Label{}
	mv.VisitVarInsn(classfile.OpIload, 0)
	mv.VisitJumpInsn(classfile.OpIfge, pos)
	mv.VisitVarInsn(classfile.OpIload, 0)
	mv.VisitInsn(classfile.OpIneg)
	mv.VisitInsn(classfile.OpIreturn)
	mv.VisitLabel(pos)
	mv.VisitLdcInsn(int32(ret))
	mv.VisitInsn(classfile.OpIreturn)
	mv.VisitMaxs(0, 0)
	mv.VisitEnd()
	w.VisitEnd()

	b, err := w.ToBytes()
	if err != nil {
		t.Fatalf("ToBytes: %v", err)
	}
	return b
}

// rewrite passes b through a fresh writer, which lays out a new constant
// pool.
func rewrite(t *testing.T, b []byte) []byte {
	t.Helper()
	r, err := classfile.NewReader(b)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	w := classfile.NewWriter(0)
	w.NewUTF8("an unrelated constant")
	if err := r.Accept(w, nil, 0); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	out, err := w.ToBytes()
	if err != nil {
		t.Fatalf("ToBytes: %v", err)
	}
	return out
}

func TestRecord(t *testing.T) {
	tr, err := Record(buildClass(t, classfile.ComputeFrames, 1000), 0)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if len(tr.Class) != 6 {
		t.Errorf("class events = %d, want 6", len(tr.Class))
	}
	if len(tr.Fields) != 1 || len(tr.Methods) != 1 {
		t.Fatalf("members = %d fields, %d methods, want 1 and 1", len(tr.Fields), len(tr.Methods))
	}
	if got := tr.Fields[0].Decl.Args[4]; got != (Const{Kind: "Long", Value: int64(10)}) {
		t.Errorf("field value = %v, want Long 10", got)
	}

	var kinds []string
	for _, e := range tr.Methods[0].Events {
		kinds = append(kinds, e.Kind)
	}
	want := "Code VarInsn JumpInsn VarInsn Insn Insn Label Frame LdcInsn Insn Maxs"
	if got := strings.Join(kinds, " "); got != want {
		t.Errorf("method events = %s, want %s", got, want)
	}
}

func TestDigestIgnoresPoolLayout(t *testing.T) {
	b := buildClass(t, classfile.ComputeFrames, 1000)
	moved := rewrite(t, b)
	if bytes.Equal(b, moved) {
		t.Fatal("rewrite kept the same bytes; the pool layout did not change")
	}

	d1, err := DigestClass(b, 0)
	if err != nil {
		t.Fatalf("DigestClass: %v", err)
	}
	d2, err := DigestClass(moved, 0)
	if err != nil {
		t.Fatalf("DigestClass: %v", err)
	}
	if d1 != d2 {
		t.Errorf("digest after rewrite = %s, want %s", d2, d1)
	}
}

func TestDigestDetectsChanges(t *testing.T) {
	d1, err := DigestClass(buildClass(t, classfile.ComputeFrames, 1000), 0)
	if err != nil {
		t.Fatalf("DigestClass: %v", err)
	}
	d2, err := DigestClass(buildClass(t, classfile.ComputeFrames, 1001), 0)
	if err != nil {
		t.Fatalf("DigestClass: %v", err)
	}
	if d1 == d2 {
		t.Errorf("different constants share digest %s", d1)
	}
	if len(d1.String()) != 64 {
		t.Errorf("digest string length = %d, want 64", len(d1.String()))
	}
}

func TestMarshalIsStable(t *testing.T) {
	tr, err := Record(buildClass(t, classfile.ComputeFrames, 1000), 0)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	b1, err := tr.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	back, err := Unmarshal(b1)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	b2, err := back.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !bytes.Equal(b1, b2) {
		t.Errorf("re-encoded trace differs: %d bytes, want %d", len(b2), len(b1))
	}

	if _, err := Unmarshal([]byte{0xFF}); err == nil {
		t.Error("Unmarshal of garbage succeeded")
	}
}

func TestDiff(t *testing.T) {
	a, err := Record(buildClass(t, classfile.ComputeFrames, 1000), 0)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	b, err := Record(buildClass(t, classfile.ComputeFrames, 1001), 0)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if d := Diff(a, a); d != "" {
		t.Errorf("Diff(a, a) = %q, want empty", d)
	}
	d := Diff(a, b)
	if !strings.Contains(d, "abs") || !strings.Contains(d, "LdcInsn") {
		t.Errorf("Diff = %q, want the ldc in abs", d)
	}
}

func TestRecorderForwards(t *testing.T) {
	b := buildClass(t, classfile.ComputeFrames, 1000)
	r, err := classfile.NewReader(b)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	w := classfile.NewWriter(0)
	rec := New(w)
	if err := r.Accept(rec, nil, 0); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	out, err := w.ToBytes()
	if err != nil {
		t.Fatalf("ToBytes: %v", err)
	}
	again, err := Record(out, 0)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if d := Diff(rec.Trace(), again); d != "" {
		t.Errorf("forwarded class differs: %s", d)
	}
}

func TestWithout(t *testing.T) {
	withFrames, err := Record(buildClass(t, classfile.ComputeFrames, 1000), 0)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	maxsOnly, err := Record(buildClass(t, classfile.ComputeMaxs, 1000), 0)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if Diff(withFrames, maxsOnly) == "" {
		t.Fatal("traces with and without frames compare equal")
	}
	if d := Diff(withFrames.Without("Frame", "Maxs"), maxsOnly.Without("Frame", "Maxs")); d != "" {
		t.Errorf("filtered traces differ: %s", d)
	}
	if n := len(withFrames.Methods[0].Events); n != 11 {
		t.Errorf("Without modified its receiver: %d events, want 11", n)
	}
}

func TestRecorderInterleavedMembers(t *testing.T) {
	rec := New(nil)
	rec.Visit(classfile.V1_8, classfile.AccPublic, "test/Sample", "", "java/lang/Object", nil)
	first := rec.VisitField(classfile.AccPrivate, "first", "I", "", nil)
	run := rec.VisitMethod(classfile.AccPublic, "run", "()V", "", nil)
	// Enough members to move the member slices.
	for i := 0; i < 32; i++ {
		rec.VisitField(classfile.AccPrivate, fmt.Sprintf("f%d", i), "I", "", nil).VisitEnd()
		rec.VisitMethod(classfile.AccPublic, fmt.Sprintf("m%d", i), "()V", "", nil).VisitEnd()
	}
	av := first.VisitAnnotation("Ltest/Marker;", true)
	av.Visit("n", int32(1))
	av.VisitEnd()
	first.VisitEnd()
	run.VisitAnnotation("Ltest/Marker;", false).VisitEnd()
	run.VisitEnd()
	rec.VisitEnd()

	tr := rec.Trace()
	kinds := func(events []Event) string {
		var s []string
		for _, e := range events {
			s = append(s, e.Kind)
		}
		return strings.Join(s, " ")
	}
	if got := kinds(tr.Fields[0].Events); got != "Annotation Value End" {
		t.Errorf("first field events = %s, want Annotation Value End", got)
	}
	if got := kinds(tr.Methods[0].Events); got != "Annotation End" {
		t.Errorf("run events = %s, want Annotation End", got)
	}
	if got := kinds(tr.Fields[1].Events); got != "" {
		t.Errorf("second field events = %s, want none", got)
	}
}

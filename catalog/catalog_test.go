package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/chazu/classkit/classfile"
)

// buildClass writes name extending super. Its run method creates a
// java/util/ArrayList and calls size on it.
func buildClass(t *testing.T, name, super string, interfaces ...string) []byte {
	t.Helper()
	w := classfile.NewWriter(classfile.ComputeFrames)
	w.Visit(classfile.V1_8, classfile.AccPublic|classfile.AccSuper, name, "", super, interfaces)
	w.VisitSource("Sample.java", "")
	w.VisitField(classfile.AccPrivate, "count", "I", "", nil).VisitEnd()

	mv := w.VisitMethod(classfile.AccPublic, "run", "()I", "", nil)
	mv.VisitCode()
	mv.VisitTypeInsn(classfile.OpNew, "java/util/ArrayList")
	mv.VisitInsn(classfile.OpDup)
	mv.VisitMethodInsn(classfile.OpInvokespecial, "java/util/ArrayList", "<init>", "()V", false)
	mv.VisitMethodInsn(classfile.OpInvokevirtual, "java/util/ArrayList", "size", "()I", false)
	mv.VisitVarInsn(classfile.OpAload, 0)
	mv.VisitFieldInsn(classfile.OpGetfield, name, "count", "I")
	mv.VisitInsn(classfile.OpIadd)
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

func openCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(context.Background(), filepath.Join(t.TempDir(), "db", "catalog.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestSummarize(t *testing.T) {
	s, err := Summarize(buildClass(t, "test/A", "java/lang/Object", "java/lang/Runnable"), "test/A.class")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if s.Name != "test/A" || s.Super != "java/lang/Object" || s.Path != "test/A.class" {
		t.Errorf("summary = %s extends %s at %s", s.Name, s.Super, s.Path)
	}
	if !reflect.DeepEqual(s.Interfaces, []string{"java/lang/Runnable"}) {
		t.Errorf("interfaces = %v, want [java/lang/Runnable]", s.Interfaces)
	}
	if s.Source != "Sample.java" {
		t.Errorf("source = %q, want Sample.java", s.Source)
	}
	if len(s.Digest) != 64 {
		t.Errorf("digest = %q, want 64 hex digits", s.Digest)
	}
	wantMembers := []Member{
		{Kind: "field", Access: classfile.AccPrivate, Name: "count", Desc: "I"},
		{Kind: "method", Access: classfile.AccPublic, Name: "run", Desc: "()I"},
	}
	if !reflect.DeepEqual(s.Members, wantMembers) {
		t.Errorf("members = %+v, want %+v", s.Members, wantMembers)
	}
	wantRefs := []Ref{
		{Kind: "class", Owner: "java/util/ArrayList"},
		{Kind: "method", Owner: "java/util/ArrayList", Name: "<init>", Desc: "()V"},
		{Kind: "method", Owner: "java/util/ArrayList", Name: "size", Desc: "()I"},
		{Kind: "field", Owner: "test/A", Name: "count", Desc: "I"},
	}
	if !reflect.DeepEqual(s.Refs, wantRefs) {
		t.Errorf("refs = %+v, want %+v", s.Refs, wantRefs)
	}
}

func TestSummarizeMalformed(t *testing.T) {
	if _, err := Summarize([]byte("not a class"), "x.class"); !errors.Is(err, classfile.ErrMalformed) {
		t.Errorf("error = %v, want ErrMalformed", err)
	}
}

func TestPutGet(t *testing.T) {
	ctx := context.Background()
	c := openCatalog(t)

	s, err := Summarize(buildClass(t, "test/A", "java/lang/Object", "java/lang/Runnable"), "test/A.class")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if err := c.Put(ctx, s); err != nil {
		t.Fatalf("Put: %v", err)
	}
	// A second Put replaces the first.
	if err := c.Put(ctx, s); err != nil {
		t.Fatalf("Put again: %v", err)
	}

	got, err := c.Get(ctx, "test/A")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !reflect.DeepEqual(got, s) {
		t.Errorf("Get = %+v, want %+v", got, s)
	}

	d, err := c.Digest(ctx, "test/A")
	if err != nil || d != s.Digest {
		t.Errorf("Digest = %q, %v, want %q", d, err, s.Digest)
	}

	if _, err := c.Get(ctx, "test/Missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := c.Digest(ctx, "test/Missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Digest(missing) error = %v, want ErrNotFound", err)
	}
}

func TestQueries(t *testing.T) {
	ctx := context.Background()
	c := openCatalog(t)

	for _, b := range [][]byte{
		buildClass(t, "test/A", "java/lang/Object", "java/lang/Runnable"),
		buildClass(t, "test/B", "test/A"),
		buildClass(t, "test/C", "test/A", "java/lang/Runnable", "java/io/Serializable"),
	} {
		s, err := Summarize(b, "")
		if err != nil {
			t.Fatalf("Summarize: %v", err)
		}
		if err := c.Put(ctx, s); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	tests := []struct {
		name  string
		query func() ([]string, error)
		want  []string
	}{
		{"classes", func() ([]string, error) { return c.Classes(ctx) }, []string{"test/A", "test/B", "test/C"}},
		{"subclasses", func() ([]string, error) { return c.Subclasses(ctx, "test/A") }, []string{"test/B", "test/C"}},
		{"implementors", func() ([]string, error) { return c.Implementors(ctx, "java/lang/Runnable") }, []string{"test/A", "test/C"}},
		{"users of ArrayList", func() ([]string, error) { return c.Users(ctx, "java/util/ArrayList") }, []string{"test/A", "test/B", "test/C"}},
		{"users of test/B", func() ([]string, error) { return c.Users(ctx, "test/B") }, []string{"test/B"}},
		{"no subclasses", func() ([]string, error) { return c.Subclasses(ctx, "test/C") }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.query()
			if err != nil {
				t.Fatalf("query: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalog.db")
	c, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s, err := Summarize(buildClass(t, "test/A", "java/lang/Object"), "")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if err := c.Put(ctx, s); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	c, err = Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer c.Close()
	names, err := c.Classes(ctx)
	if err != nil || !reflect.DeepEqual(names, []string{"test/A"}) {
		t.Errorf("Classes after reopen = %v, %v, want [test/A]", names, err)
	}
}

func TestCommonSuperClass(t *testing.T) {
	ctx := context.Background()
	c := openCatalog(t)

	for _, b := range [][]byte{
		buildClass(t, "test/A", "java/lang/Object"),
		buildClass(t, "test/B", "test/A"),
		buildClass(t, "test/C", "test/A"),
		buildClass(t, "test/D", "test/B"),
	} {
		s, err := Summarize(b, "")
		if err != nil {
			t.Fatalf("Summarize: %v", err)
		}
		if err := c.Put(ctx, s); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	chain, err := c.Ancestors(ctx, "test/D")
	if err != nil {
		t.Fatalf("Ancestors: %v", err)
	}
	if want := []string{"test/D", "test/B", "test/A", "java/lang/Object"}; !reflect.DeepEqual(chain, want) {
		t.Errorf("Ancestors(test/D) = %v, want %v", chain, want)
	}

	tests := []struct {
		a, b string
		want string
	}{
		{"test/D", "test/C", "test/A"},
		{"test/D", "test/B", "test/B"},
		{"test/B", "test/B", "test/B"},
		{"test/D", "test/Unknown", "java/lang/Object"},
	}
	for _, tt := range tests {
		if got := c.CommonSuperClass(ctx, tt.a, tt.b); got != tt.want {
			t.Errorf("CommonSuperClass(%s, %s) = %s, want %s", tt.a, tt.b, got, tt.want)
		}
	}
}

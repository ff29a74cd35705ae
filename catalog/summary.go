// Package catalog keeps an SQLite index of class files: their hierarchy,
// their members, the members their code refers to and their trace digest.
package catalog

import (
	"sort"

	"github.com/chazu/classkit/classfile"
	"github.com/chazu/classkit/trace"
)

// Summary is the catalog record of one class.
type Summary struct {
	Name       string
	Super      string
	Interfaces []string
	Access     int
	Version    int
	Source     string
	Path       string
	Digest     string
	Members    []Member
	Refs       []Ref
}

// Member is a field or method declared by a class.
type Member struct {
	Kind      string // "field" or "method"
	Access    int
	Name      string
	Desc      string
	Signature string
}

// Ref is a field, method or class used by the code of a class.
type Ref struct {
	Kind  string // "field", "method" or "class"
	Owner string
	Name  string
	Desc  string
}

// Summarize reads a class file and returns its summary. path is recorded
// as given.
func Summarize(b []byte, path string) (*Summary, error) {
	r, err := classfile.NewReader(b)
	if err != nil {
		return nil, err
	}
	rec := trace.New(nil)
	s := newSummarizer(rec)
	if err := r.Accept(s, nil, classfile.SkipDebug); err != nil {
		return nil, err
	}
	d, err := rec.Trace().Digest()
	if err != nil {
		return nil, err
	}
	s.sum.Path = path
	s.sum.Digest = d.String()
	s.finish()
	return &s.sum, nil
}

// summarizer collects a Summary while forwarding every event, so the trace
// recorder behind it sees the whole class in the same pass.
type summarizer struct {
	classfile.ClassAdapter
	sum  Summary
	refs map[Ref]bool
}

func newSummarizer(next classfile.ClassVisitor) *summarizer {
	return &summarizer{ClassAdapter: classfile.ClassAdapter{Next: next}, refs: make(map[Ref]bool)}
}

func (s *summarizer) finish() {
	for ref := range s.refs {
		s.sum.Refs = append(s.sum.Refs, ref)
	}
	sort.Slice(s.sum.Refs, func(i, j int) bool {
		a, b := s.sum.Refs[i], s.sum.Refs[j]
		if a.Owner != b.Owner {
			return a.Owner < b.Owner
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.Desc != b.Desc {
			return a.Desc < b.Desc
		}
		return a.Kind < b.Kind
	})
}

func (s *summarizer) Visit(version, access int, name, signature, superName string, interfaces []string) {
	s.sum.Name = name
	s.sum.Super = superName
	s.sum.Interfaces = append([]string(nil), interfaces...)
	s.sum.Access = access
	s.sum.Version = version
	s.ClassAdapter.Visit(version, access, name, signature, superName, interfaces)
}

func (s *summarizer) VisitSource(source, debug string) {
	s.sum.Source = source
	s.ClassAdapter.VisitSource(source, debug)
}

func (s *summarizer) VisitField(access int, name, desc, signature string, value any) classfile.FieldVisitor {
	s.sum.Members = append(s.sum.Members, Member{Kind: "field", Access: access, Name: name, Desc: desc, Signature: signature})
	return s.ClassAdapter.VisitField(access, name, desc, signature, value)
}

func (s *summarizer) VisitMethod(access int, name, desc, signature string, exceptions []string) classfile.MethodVisitor {
	s.sum.Members = append(s.sum.Members, Member{Kind: "method", Access: access, Name: name, Desc: desc, Signature: signature})
	return &refCollector{
		MethodAdapter: classfile.MethodAdapter{Next: s.ClassAdapter.VisitMethod(access, name, desc, signature, exceptions)},
		refs:          s.refs,
	}
}

// refCollector records the members and classes named by instructions.
type refCollector struct {
	classfile.MethodAdapter
	refs map[Ref]bool
}

func (c *refCollector) VisitTypeInsn(opcode int, typ string) {
	c.refs[Ref{Kind: "class", Owner: typ}] = true
	c.MethodAdapter.VisitTypeInsn(opcode, typ)
}

func (c *refCollector) VisitFieldInsn(opcode int, owner, name, desc string) {
	c.refs[Ref{Kind: "field", Owner: owner, Name: name, Desc: desc}] = true
	c.MethodAdapter.VisitFieldInsn(opcode, owner, name, desc)
}

func (c *refCollector) VisitMethodInsn(opcode int, owner, name, desc string, itf bool) {
	c.refs[Ref{Kind: "method", Owner: owner, Name: name, Desc: desc}] = true
	c.MethodAdapter.VisitMethodInsn(opcode, owner, name, desc, itf)
}

func (c *refCollector) VisitMultiANewArrayInsn(desc string, dims int) {
	c.refs[Ref{Kind: "class", Owner: desc}] = true
	c.MethodAdapter.VisitMultiANewArrayInsn(desc, dims)
}

func (c *refCollector) VisitTryCatchBlock(start, end, handler *classfile.Label, typ string) {
	if typ != "" {
		c.refs[Ref{Kind: "class", Owner: typ}] = true
	}
	c.MethodAdapter.VisitTryCatchBlock(start, end, handler, typ)
}

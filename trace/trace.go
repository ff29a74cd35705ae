// Package trace records the visit events of a class file as a structural
// trace. Traces are encoded as canonical CBOR, so two classes with the same
// events have byte-identical encodings and the same SHA-256 digest whatever
// their constant pool layout.
package trace

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/chazu/classkit/classfile"
	"github.com/fxamacker/cbor/v2"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("trace: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Trace is the event record of one class.
type Trace struct {
	Class   []Event  `cbor:"1,keyasint"`
	Fields  []Member `cbor:"2,keyasint,omitempty"`
	Methods []Member `cbor:"3,keyasint,omitempty"`
}

// Member holds the declaring event of a field or method and the events
// visited on it.
type Member struct {
	Decl   Event   `cbor:"1,keyasint"`
	Events []Event `cbor:"2,keyasint,omitempty"`
}

// Event is one visitor call: the method name without its Visit prefix and
// the arguments in order. Labels appear as L0, L1... in first-seen order
// within their method.
type Event struct {
	_    struct{} `cbor:",toarray"`
	Kind string
	Args []any
}

// Const is a typed constant value. Kind keeps the Go type apart where CBOR
// would merge it, e.g. int32 from int64.
type Const struct {
	_     struct{} `cbor:",toarray"`
	Kind  string
	Value any
}

// Digest is a SHA-256 trace digest.
type Digest [32]byte

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Marshal encodes t as canonical CBOR.
func (t *Trace) Marshal() ([]byte, error) {
	return cborEncMode.Marshal(t)
}

// Unmarshal decodes a trace encoded by Marshal.
func Unmarshal(data []byte) (*Trace, error) {
	var t Trace
	if err := cbor.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("trace: unmarshal: %w", err)
	}
	return &t, nil
}

// Digest returns the SHA-256 of the canonical encoding of t.
func (t *Trace) Digest() (Digest, error) {
	b, err := t.Marshal()
	if err != nil {
		return Digest{}, err
	}
	return sha256.Sum256(b), nil
}

// Record reads a class file and returns its trace. flags are reader flags;
// SkipDebug or SkipFrames leave the corresponding events out.
func Record(b []byte, flags int) (*Trace, error) {
	r, err := classfile.NewReader(b)
	if err != nil {
		return nil, err
	}
	rec := New(nil)
	if err := r.Accept(rec, nil, flags); err != nil {
		return nil, err
	}
	return rec.Trace(), nil
}

// DigestClass returns the trace digest of a class file.
func DigestClass(b []byte, flags int) (Digest, error) {
	t, err := Record(b, flags)
	if err != nil {
		return Digest{}, err
	}
	return t.Digest()
}

// Diff returns a description of the first difference between a and b, or
// "" if their encodings are equal.
func Diff(a, b *Trace) string {
	if d := diffEvents("class", a.Class, b.Class); d != "" {
		return d
	}
	if d := diffMembers("field", a.Fields, b.Fields); d != "" {
		return d
	}
	return diffMembers("method", a.Methods, b.Methods)
}

func diffMembers(what string, a, b []Member) string {
	for i := 0; i < len(a) && i < len(b); i++ {
		if d := diffEvents(what, []Event{a[i].Decl}, []Event{b[i].Decl}); d != "" {
			return d
		}
		where := fmt.Sprintf("%s %v", what, a[i].Decl.Args[1:3])
		if d := diffEvents(where, a[i].Events, b[i].Events); d != "" {
			return d
		}
	}
	if len(a) != len(b) {
		return fmt.Sprintf("%s count: %d vs %d", what, len(a), len(b))
	}
	return ""
}

func diffEvents(where string, a, b []Event) string {
	for i := 0; i < len(a) && i < len(b); i++ {
		ea, _ := cborEncMode.Marshal(a[i])
		eb, _ := cborEncMode.Marshal(b[i])
		if string(ea) != string(eb) {
			return fmt.Sprintf("%s event %d: %s%v vs %s%v", where, i, a[i].Kind, a[i].Args, b[i].Kind, b[i].Args)
		}
	}
	if len(a) != len(b) {
		return fmt.Sprintf("%s event count: %d vs %d", where, len(a), len(b))
	}
	return ""
}

// Without returns a copy of t with the named member event kinds removed,
// e.g. Without("Frame", "Maxs") to compare classes whose frames were
// recomputed.
func (t *Trace) Without(kinds ...string) *Trace {
	drop := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		drop[k] = true
	}
	filter := func(members []Member) []Member {
		out := make([]Member, len(members))
		for i, m := range members {
			out[i].Decl = m.Decl
			for _, e := range m.Events {
				if !drop[e.Kind] {
					out[i].Events = append(out[i].Events, e)
				}
			}
		}
		return out
	}
	return &Trace{Class: t.Class, Fields: filter(t.Fields), Methods: filter(t.Methods)}
}

package classfile

import (
	"fmt"
	"math"

	"github.com/chazu/classkit/bytevec"
)

// Label status bits.
const (
	labelDebug      = 1 << iota // only referenced from debug attributes
	labelResolved               // position is known
	labelPushed                 // reached by the max stack walk
	labelTarget                 // jump or handler target
	labelStore                  // a frame must be written for this block
	labelReachable              // reached by the frame fixed point
	labelJSR                    // block ends with a JSR
	labelRET                    // block ends with a RET
	labelSubroutine             // first block of a subroutine
	labelVisited                // belongs to at least one subroutine
	labelVisited2               // visited by the RET edge search
	labelQueued                 // present in a worklist
)

// edgeException marks an edge to an exception handler in max stack mode.
const edgeException = math.MaxInt32

// ---------------------------------------------------------------------------
// Label
// ---------------------------------------------------------------------------

// Label is a position in the bytecode of a method. A Label is created by the
// caller, passed to jump and switch instructions, and placed with
// VisitLabel. The zero value is ready to use. A Label belongs to the first
// method writer it is used with.
type Label struct {
	// Info is free for the caller.
	Info any

	owner    *MethodWriter
	status   int
	position int
	lines    []int // source lines starting here, recorded by the reader

	refs []labelRef

	// Basic block data, used when computing maxs or frames.
	inputStackTop  int
	outputStackMax int
	frame          *frame
	nextBlock      *Label // next basic block in code order
	edges          []edge
	subs           []uint64 // subroutine id bitset
}

// labelRef is a pending forward reference to an unresolved label.
type labelRef struct {
	source int // offset of the referencing instruction
	patch  int // offset of the operand to patch
	wide   bool
}

// edge is a control flow edge between basic blocks. In max stack mode info
// is the stack height at the jump, or edgeException. When computing frames
// caught is the exception type of handler edges and unknown otherwise.
type edge struct {
	info      int
	caught    absType
	successor *Label
}

// Offset returns the bytecode offset of the label. It panics if the label
// has not been placed yet.
func (l *Label) Offset() int {
	if l.status&labelResolved == 0 {
		panic("classfile: label offset is not resolved yet")
	}
	return l.position
}

func (l *Label) String() string {
	if l.status&labelResolved == 0 {
		return fmt.Sprintf("L@%p", l)
	}
	return fmt.Sprintf("L%d", l.position)
}

// first returns the label that starts the basic block l belongs to. Labels
// at the same offset share one frame.
func (l *Label) first() *Label {
	if l.frame == nil {
		return l
	}
	return l.frame.owner
}

// claim binds l to the method writer mw.
func (l *Label) claim(mw *MethodWriter) {
	if l.owner == nil {
		l.owner = mw
	} else if l.owner != mw {
		panic("classfile: label used by more than one method")
	}
}

// put writes the branch offset from source to l into out, or a placeholder
// plus a forward reference when l is not resolved yet.
func (l *Label) put(out *bytevec.ByteVector, source int, wide bool) {
	if l.status&labelResolved != 0 {
		if wide {
			out.PutInt(l.position - source)
		} else {
			out.PutShort(l.position - source)
		}
		return
	}
	l.refs = append(l.refs, labelRef{source: source, patch: out.Len(), wide: wide})
	if wide {
		out.PutInt(-1)
	} else {
		out.PutShort(-1)
	}
}

// resolve fixes the position of l and patches every forward reference in
// code. It reports whether a short reference had to be turned into a pseudo
// opcode because its offset does not fit in 16 bits.
func (l *Label) resolve(position int, code []byte) bool {
	widened := false
	l.status |= labelResolved
	l.position = position
	for _, r := range l.refs {
		offset := position - r.source
		if r.wide {
			code[r.patch] = byte(offset >> 24)
			code[r.patch+1] = byte(offset >> 16)
			code[r.patch+2] = byte(offset >> 8)
			code[r.patch+3] = byte(offset)
			continue
		}
		if offset < math.MinInt16 || offset > math.MaxInt16 {
			code[r.source] = byte(pseudoOf(int(code[r.source])))
			widened = true
		}
		code[r.patch] = byte(offset >> 8)
		code[r.patch+1] = byte(offset)
	}
	l.refs = nil
	return widened
}

// addEdge appends a successor edge.
func (l *Label) addEdge(info int, successor *Label) {
	l.edges = append(l.edges, edge{info: info, successor: successor})
}

// ---------------------------------------------------------------------------
// Subroutines (max stack mode only)
// ---------------------------------------------------------------------------

func (l *Label) inSubroutine(id int) bool {
	return l.status&labelVisited != 0 && l.subs[id/64]&(1<<(id%64)) != 0
}

func (l *Label) inSameSubroutine(block *Label) bool {
	if l.status&labelVisited == 0 || block.status&labelVisited == 0 {
		return false
	}
	for i := range l.subs {
		if l.subs[i]&block.subs[i] != 0 {
			return true
		}
	}
	return false
}

func (l *Label) addToSubroutine(id, n int) {
	if l.status&labelVisited == 0 {
		l.status |= labelVisited
		l.subs = make([]uint64, n/64+1)
	}
	l.subs[id/64] |= 1 << (id % 64)
}

// jsrTarget and jsrReturn return the two successors of a block ending with
// JSR: the subroutine and the instruction after the JSR.
func (l *Label) jsrTarget() *Label { return l.edges[0].successor }
func (l *Label) jsrReturn() *Label { return l.edges[1].successor }

// visitSubroutine walks the blocks reachable from l. With jsr == nil it
// marks them as belonging to subroutine id. Otherwise it adds an edge from
// every RET block of the subroutine called by jsr to the block following
// the JSR.
func (l *Label) visitSubroutine(jsr *Label, id, n int) {
	stack := []*Label{l}
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		b.status &^= labelQueued
		if jsr != nil {
			if b.status&labelVisited2 != 0 {
				continue
			}
			b.status |= labelVisited2
			if b.status&labelRET != 0 && !b.inSameSubroutine(jsr) {
				b.addEdge(b.inputStackTop, jsr.jsrReturn())
			}
		} else {
			if b.inSubroutine(id) {
				continue
			}
			b.addToSubroutine(id, n)
		}
		for i, e := range b.edges {
			// Subroutines called from b are walked separately.
			if b.status&labelJSR != 0 && i == 0 {
				continue
			}
			if e.successor.status&labelQueued == 0 {
				e.successor.status |= labelQueued
				stack = append(stack, e.successor)
			}
		}
	}
}

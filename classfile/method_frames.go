package classfile

import "github.com/chazu/classkit/bytevec"

// Compressed frame type tags.
const (
	sameFrame              = 0
	sameLocals1StackItem   = 64
	sameLocals1StackItemEx = 247
	chopFrame              = 248
	sameFrameExtended      = 251
	appendFrame            = 252
	fullFrame              = 255
)

// frameRecord is a frame in VisitFrame form (one entry per value) waiting to
// be compressed against the previous one.
type frameRecord struct {
	offset int
	locals []absType
	stack  []absType
}

// ---------------------------------------------------------------------------
// Frames given by the caller
// ---------------------------------------------------------------------------

func (mw *MethodWriter) VisitFrame(kind FrameKind, local []any, stack []any) {
	switch mw.compute {
	case computeFrames:
		return
	case computeInsertedFrames:
		mw.cw.hasFrames = true
		f := mw.currentBlock.frame
		if f == nil {
			// The implicit first frame, visited by the reader at offset 0.
			// Its local slice only carries the max_locals of the method.
			mw.maxLocals = max(mw.maxLocals, len(local))
			f = newFrame(mw.currentBlock)
			f.initInputFrame(mw.cw, mw.access, mw.desc, mw.maxLocals)
			mw.currentBlock.frame = f
			mw.writeComputedFrame(f)
			return
		}
		if kind == FNew {
			f.setInputFrame(mw.cw, local, stack, mw.maxLocals)
		}
		mw.writeComputedFrame(f)
		return
	}

	mw.cw.hasFrames = true
	if kind == FNew {
		if mw.previousFrame == nil {
			mw.implicitFirstFrame()
		}
		mw.currentLocals = len(local)
		rec := &frameRecord{offset: mw.code.Len()}
		for _, v := range local {
			rec.locals = append(rec.locals, mw.cw.typeFromFrameItem(v))
		}
		for _, v := range stack {
			rec.stack = append(rec.stack, mw.cw.typeFromFrameItem(v))
		}
		mw.endFrame(rec)
	} else {
		mw.putCompressedFrame(kind, local, stack)
	}
	mw.maxStack = max(mw.maxStack, len(stack))
	mw.maxLocals = max(mw.maxLocals, mw.currentLocals)
}

// putCompressedFrame writes a frame that is already in compressed form.
func (mw *MethodWriter) putCompressedFrame(kind FrameKind, local, stack []any) {
	var delta int
	if mw.stackMap == nil {
		mw.stackMap = bytevec.New(64)
		delta = mw.code.Len()
	} else {
		delta = mw.code.Len() - mw.previousFrameOffset - 1
		if delta < 0 {
			if kind == FSame {
				return
			}
			panic("classfile: two frames at the same offset")
		}
	}
	sm := mw.stackMap
	switch kind {
	case FFull:
		mw.currentLocals = len(local)
		sm.PutByte(fullFrame)
		sm.PutShort(delta)
		sm.PutShort(len(local))
		for _, v := range local {
			mw.putFrameItem(v)
		}
		sm.PutShort(len(stack))
		for _, v := range stack {
			mw.putFrameItem(v)
		}
	case FAppend:
		mw.currentLocals += len(local)
		sm.PutByte(sameFrameExtended + len(local))
		sm.PutShort(delta)
		for _, v := range local {
			mw.putFrameItem(v)
		}
	case FChop:
		mw.currentLocals -= len(local)
		sm.PutByte(sameFrameExtended - len(local))
		sm.PutShort(delta)
	case FSame:
		if delta < 64 {
			sm.PutByte(delta)
		} else {
			sm.PutByte(sameFrameExtended)
			sm.PutShort(delta)
		}
	case FSame1:
		if delta < 64 {
			sm.PutByte(sameLocals1StackItem + delta)
		} else {
			sm.PutByte(sameLocals1StackItemEx)
			sm.PutShort(delta)
		}
		mw.putFrameItem(stack[0])
	}
	mw.previousFrameOffset = mw.code.Len()
	mw.frameCount++
}

func (mw *MethodWriter) putFrameItem(v any) {
	switch x := v.(type) {
	case string:
		mw.stackMap.Put12(7, mw.cw.pool.class(x).index)
	case FrameItem:
		mw.stackMap.PutByte(int(x))
	case *Label:
		mw.stackMap.Put12(8, x.Offset())
	default:
		panic("classfile: invalid frame entry")
	}
}

// implicitFirstFrame records the frame described by the method descriptor,
// against which the first explicit frame is compressed.
func (mw *MethodWriter) implicitFirstFrame() {
	rec := &frameRecord{}
	if mw.access&AccStatic == 0 {
		if mw.access&accConstructor == 0 {
			rec.locals = append(rec.locals, objectType(mw.cw.pool.addType(mw.cw.thisName)))
		} else {
			rec.locals = append(rec.locals, typeUninitThis)
		}
	}
	for _, arg := range argumentDescriptors(mw.desc) {
		rec.locals = append(rec.locals, mw.cw.typeFromDescriptor(arg))
	}
	mw.endFrame(rec)
}

// ---------------------------------------------------------------------------
// Frame compression
// ---------------------------------------------------------------------------

// writeComputedFrame records the input state of f as a frame at the offset
// of its owner, dropping the TOP halves of long and double values and
// trailing TOP locals.
func (mw *MethodWriter) writeComputedFrame(f *frame) {
	rec := &frameRecord{offset: f.owner.position}
	nLocal, nTop := 0, 0
	for i := 0; i < len(f.inputLocals); i++ {
		t := f.inputLocals[i]
		if t == typeTop {
			nTop++
		} else {
			nLocal += nTop + 1
			nTop = 0
		}
		if t.isLongOrDouble() {
			i++
		}
	}
	for i := 0; nLocal > 0; i++ {
		t := f.inputLocals[i]
		rec.locals = append(rec.locals, t)
		if t.isLongOrDouble() {
			i++
		}
		nLocal--
	}
	for i := 0; i < len(f.inputStack); i++ {
		t := f.inputStack[i]
		rec.stack = append(rec.stack, t)
		if t.isLongOrDouble() {
			i++
		}
	}
	mw.endFrame(rec)
}

// endFrame writes rec compressed against the previous frame. The first
// frame of a method is implicit and only recorded.
func (mw *MethodWriter) endFrame(rec *frameRecord) {
	if mw.previousFrame != nil {
		if mw.stackMap == nil {
			mw.stackMap = bytevec.New(64)
		}
		mw.writeFrame(rec)
		mw.frameCount++
	}
	mw.previousFrame = rec
}

func (mw *MethodWriter) writeFrame(rec *frameRecord) {
	sm := mw.stackMap
	nLocal, nStack := len(rec.locals), len(rec.stack)
	if mw.cw.version&0xFFFF < V1_6 {
		sm.PutShort(rec.offset)
		sm.PutShort(nLocal)
		mw.writeTypes(rec.locals)
		sm.PutShort(nStack)
		mw.writeTypes(rec.stack)
		return
	}
	prev := mw.previousFrame
	prevLocals := len(prev.locals)
	delta := rec.offset
	if mw.frameCount > 0 {
		delta = rec.offset - prev.offset - 1
	}
	kind := fullFrame
	k := 0
	if nStack == 0 {
		k = nLocal - prevLocals
		switch {
		case k >= -3 && k <= -1:
			kind = chopFrame
			prevLocals = nLocal
		case k == 0:
			if delta < 64 {
				kind = sameFrame
			} else {
				kind = sameFrameExtended
			}
		case k >= 1 && k <= 3:
			kind = appendFrame
		}
	} else if nLocal == prevLocals && nStack == 1 {
		if delta < 64 {
			kind = sameLocals1StackItem
		} else {
			kind = sameLocals1StackItemEx
		}
	}
	if kind != fullFrame {
		for i := 0; i < prevLocals; i++ {
			if rec.locals[i] != prev.locals[i] {
				kind = fullFrame
				break
			}
		}
	}
	switch kind {
	case sameFrame:
		sm.PutByte(delta)
	case sameLocals1StackItem:
		sm.PutByte(sameLocals1StackItem + delta)
		mw.writeTypes(rec.stack[:1])
	case sameLocals1StackItemEx:
		sm.PutByte(sameLocals1StackItemEx)
		sm.PutShort(delta)
		mw.writeTypes(rec.stack[:1])
	case sameFrameExtended:
		sm.PutByte(sameFrameExtended)
		sm.PutShort(delta)
	case chopFrame:
		sm.PutByte(sameFrameExtended + k)
		sm.PutShort(delta)
	case appendFrame:
		sm.PutByte(sameFrameExtended + k)
		sm.PutShort(delta)
		mw.writeTypes(rec.locals[prevLocals:])
	default:
		sm.PutByte(fullFrame)
		sm.PutShort(delta)
		sm.PutShort(nLocal)
		mw.writeTypes(rec.locals)
		sm.PutShort(nStack)
		mw.writeTypes(rec.stack)
	}
}

func (mw *MethodWriter) writeTypes(types []absType) {
	for _, t := range types {
		mw.cw.putVerificationType(mw.stackMap, t)
	}
}

// ---------------------------------------------------------------------------
// VisitMaxs: max stack and frame computation
// ---------------------------------------------------------------------------

func (mw *MethodWriter) VisitMaxs(maxStack, maxLocals int) {
	if mw.cw.err != nil {
		return
	}
	switch mw.compute {
	case computeFrames:
		mw.computeFrames()
	case computeMaxs:
		mw.computeMaxStack()
	default:
		mw.maxStack = maxStack
		mw.maxLocals = maxLocals
	}
}

// computeFrames runs the data flow analysis to a fixed point, writes the
// frames of jump targets and replaces unreachable code.
func (mw *MethodWriter) computeFrames() {
	w := mw.cw
	for _, h := range mw.handlers {
		start, target, end := h.start.first(), h.handler.first(), h.end.first()
		caught := "java/lang/Throwable"
		if h.desc != "" {
			caught = h.desc
		}
		t := objectType(w.pool.addType(caught))
		target.status |= labelTarget
		for l := start; l != nil && l != end; l = l.nextBlock {
			l.edges = append(l.edges, edge{caught: t, successor: target})
		}
	}

	first := mw.firstBlock.frame
	first.initInputFrame(w, mw.access, mw.desc, mw.maxLocals)
	mw.writeComputedFrame(first)

	maxStack := 0
	worklist := []*Label{mw.firstBlock}
	mw.firstBlock.status |= labelQueued
	for len(worklist) > 0 {
		l := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		l.status &^= labelQueued
		f := l.frame
		if l.status&labelTarget != 0 {
			l.status |= labelStore
		}
		l.status |= labelReachable
		maxStack = max(maxStack, len(f.inputStack)+l.outputStackMax)
		for _, e := range l.edges {
			n := e.successor.first()
			if f.merge(w, n.frame, e.caught) && n.status&labelQueued == 0 {
				n.status |= labelQueued
				worklist = append(worklist, n)
			}
		}
	}

	for l := mw.firstBlock; l != nil; l = l.nextBlock {
		if l.status&labelStore != 0 {
			mw.writeComputedFrame(l.frame)
		}
		if l.status&labelReachable != 0 {
			continue
		}
		next := l.nextBlock
		start := l.position
		end := mw.code.Len() - 1
		if next != nil {
			end = next.position - 1
		}
		if end < start {
			continue
		}
		log.Debugf("replacing unreachable code [%d, %d] in %s%s", start, end, mw.name, mw.desc)
		maxStack = max(maxStack, 1)
		code := mw.code.Bytes()
		for i := start; i < end; i++ {
			code[i] = OpNop
		}
		code[end] = OpAthrow
		mw.endFrame(&frameRecord{
			offset: start,
			stack:  []absType{objectType(w.pool.addType("java/lang/Throwable"))},
		})
		mw.handlers = removeHandlerRange(mw.handlers, l, next)
	}
	mw.maxStack = maxStack
}

// computeMaxStack computes the maximum stack size from the stack heights
// recorded on the control flow graph edges.
func (mw *MethodWriter) computeMaxStack() {
	for _, h := range mw.handlers {
		for l := h.start; l != nil && l != h.end; l = l.nextBlock {
			l.addEdge(edgeException, h.handler)
		}
	}

	if mw.subroutines > 0 {
		// Find the blocks of the main code and of each subroutine, then
		// add the RET edges back to the instruction after each JSR.
		id := 0
		mw.firstBlock.visitSubroutine(nil, id, mw.subroutines)
		for l := mw.firstBlock; l != nil; l = l.nextBlock {
			if l.status&labelJSR != 0 {
				sub := l.jsrTarget()
				if sub.status&labelVisited == 0 {
					id++
					sub.visitSubroutine(nil, id, mw.subroutines)
				}
			}
		}
		for l := mw.firstBlock; l != nil; l = l.nextBlock {
			if l.status&labelJSR != 0 {
				for b := mw.firstBlock; b != nil; b = b.nextBlock {
					b.status &^= labelVisited2
				}
				l.jsrTarget().visitSubroutine(l, 0, mw.subroutines)
			}
		}
	}

	maxStack := 0
	stack := []*Label{mw.firstBlock}
	for len(stack) > 0 {
		l := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		start := l.inputStackTop
		maxStack = max(maxStack, start+l.outputStackMax)
		for i, e := range l.edges {
			// The return site of a JSR is reached through RET edges.
			if l.status&labelJSR != 0 && i == 1 {
				continue
			}
			n := e.successor
			if n.status&labelPushed != 0 {
				continue
			}
			if e.info == edgeException {
				n.inputStackTop = 1
			} else {
				n.inputStackTop = start + e.info
			}
			n.status |= labelPushed
			stack = append(stack, n)
		}
	}
	mw.maxStack = max(mw.maxStack, maxStack)
}

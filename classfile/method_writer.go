package classfile

import (
	"fmt"

	"github.com/chazu/classkit/bytevec"
)

// Computation modes of a method writer.
const (
	computeNothing        = iota // maxs and frames come from the caller
	computeMaxs                  // maxs computed from stack deltas
	computeFrames                // maxs and frames computed by abstract interpretation
	computeInsertedFrames        // frames only computed where the reader asks for one
)

// MethodWriter is the MethodVisitor returned by Writer.VisitMethod. It
// assembles the method_info structure, including the Code attribute.
type MethodWriter struct {
	cw *Writer

	access     int
	name       string
	desc       string
	nameIndex  int
	descIndex  int
	signature  string
	sigIndex   int
	exceptions []int

	// copied holds the attributes of an unchanged method read by the
	// reader the writer was created from; they are written verbatim.
	copied []byte

	annotationDefault  *bytevec.ByteVector
	visibleAnns        []*AnnotationWriter
	invisibleAnns      []*AnnotationWriter
	visibleParamAnns   [][]*AnnotationWriter
	invisibleParamAnns [][]*AnnotationWriter
	attrs              attributeList

	code          *bytevec.ByteVector
	maxStack      int
	maxLocals     int
	currentLocals int
	handlers      []*handler

	localVars         *bytevec.ByteVector
	localVarCount     int
	localVarTypes     *bytevec.ByteVector
	localVarTypeCount int
	lineNumbers       *bytevec.ByteVector
	lineNumberCount   int
	codeAttrs         attributeList

	// Stack map table being built.
	stackMap            *bytevec.ByteVector
	frameCount          int
	previousFrameOffset int
	previousFrame       *frameRecord

	// Control flow graph.
	compute       int
	firstBlock    *Label
	previousBlock *Label
	currentBlock  *Label
	stackSize     int
	maxStackSize  int
	subroutines   int
}

var _ MethodVisitor = (*MethodWriter)(nil)

func newMethodWriter(cw *Writer, access int, name, desc, signature string, exceptions []string, compute int) *MethodWriter {
	mw := &MethodWriter{
		cw:        cw,
		access:    access,
		name:      name,
		desc:      desc,
		nameIndex: cw.pool.utf8(name),
		descIndex: cw.pool.utf8(desc),
		signature: signature,
		code:      bytevec.New(64),
		compute:   compute,
	}
	if name == "<init>" {
		mw.access |= accConstructor
	}
	if signature != "" {
		mw.sigIndex = cw.pool.utf8(signature)
	}
	for _, e := range exceptions {
		mw.exceptions = append(mw.exceptions, cw.pool.class(e).index)
	}
	if compute != computeNothing {
		argSize, _ := argumentsAndReturnSizes(desc)
		if access&AccStatic != 0 {
			argSize--
		}
		mw.maxLocals = argSize
		mw.currentLocals = argSize
		mw.firstBlock = &Label{}
		mw.firstBlock.status |= labelPushed
		mw.VisitLabel(mw.firstBlock)
	}
	return mw
}

// ---------------------------------------------------------------------------
// Method attributes
// ---------------------------------------------------------------------------

func (mw *MethodWriter) VisitAnnotationDefault() AnnotationVisitor {
	mw.annotationDefault = bytevec.New(16)
	return newAnnotationWriter(mw.cw, false, mw.annotationDefault, -1)
}

func (mw *MethodWriter) VisitAnnotation(desc string, visible bool) AnnotationVisitor {
	aw := newTopAnnotationWriter(mw.cw, desc)
	if visible {
		mw.visibleAnns = append(mw.visibleAnns, aw)
	} else {
		mw.invisibleAnns = append(mw.invisibleAnns, aw)
	}
	return aw
}

func (mw *MethodWriter) VisitParameterAnnotation(parameter int, desc string, visible bool) AnnotationVisitor {
	aw := newTopAnnotationWriter(mw.cw, desc)
	grow := func(p [][]*AnnotationWriter) [][]*AnnotationWriter {
		n := max(len(argumentDescriptors(mw.desc)), parameter+1)
		for len(p) < n {
			p = append(p, nil)
		}
		p[parameter] = append(p[parameter], aw)
		return p
	}
	if visible {
		mw.visibleParamAnns = grow(mw.visibleParamAnns)
	} else {
		mw.invisibleParamAnns = grow(mw.invisibleParamAnns)
	}
	return aw
}

func (mw *MethodWriter) VisitAttribute(attr *Attribute) {
	if attr.IsCodeAttribute() {
		mw.codeAttrs = append(mw.codeAttrs, attr)
	} else {
		mw.attrs = append(mw.attrs, attr)
	}
}

func (mw *MethodWriter) VisitCode() {}

// ---------------------------------------------------------------------------
// Instructions
// ---------------------------------------------------------------------------

// computesTypes reports whether instructions are run through the frame
// engine rather than the stack delta table.
func (mw *MethodWriter) computesTypes() bool {
	return mw.compute == computeFrames || mw.compute == computeInsertedFrames
}

// execute runs one instruction through the frame of the current block.
func (mw *MethodWriter) execute(opcode, arg int, e *poolEntry) {
	f := mw.currentBlock.frame
	if mw.compute == computeInsertedFrames {
		f.executeCurrent(mw.cw, opcode, arg, e)
	} else {
		f.execute(mw.cw, opcode, arg, e)
	}
}

// grow applies a stack height change in max stack mode.
func (mw *MethodWriter) grow(delta int) {
	mw.stackSize += delta
	if mw.stackSize > mw.maxStackSize {
		mw.maxStackSize = mw.stackSize
	}
}

func (mw *MethodWriter) VisitInsn(opcode int) {
	mw.code.PutByte(opcode)
	if mw.currentBlock == nil {
		return
	}
	if mw.computesTypes() {
		mw.execute(opcode, 0, nil)
	} else {
		mw.grow(int(stackDeltas[opcode]))
	}
	if (opcode >= OpIreturn && opcode <= OpReturn) || opcode == OpAthrow {
		mw.noSuccessor()
	}
}

func (mw *MethodWriter) VisitIntInsn(opcode, operand int) {
	if mw.currentBlock != nil {
		if mw.computesTypes() {
			mw.execute(opcode, operand, nil)
		} else if opcode != OpNewarray {
			mw.grow(1)
		}
	}
	if opcode == OpSipush {
		mw.code.Put12(opcode, operand)
	} else {
		mw.code.Put11(opcode, operand)
	}
}

func (mw *MethodWriter) VisitVarInsn(opcode, local int) {
	if mw.currentBlock != nil {
		switch {
		case opcode == OpRet && mw.computesTypes():
			mw.cw.fail(fmt.Errorf("%w: RET in %s%s", ErrSubroutineFrames, mw.name, mw.desc))
		case mw.computesTypes():
			mw.execute(opcode, local, nil)
		case opcode == OpRet:
			mw.currentBlock.status |= labelRET
			mw.currentBlock.inputStackTop = mw.stackSize
			mw.noSuccessor()
		default:
			mw.grow(int(stackDeltas[opcode]))
		}
	}
	if mw.compute != computeNothing {
		n := local + 1
		if opcode == OpLload || opcode == OpDload || opcode == OpLstore || opcode == OpDstore {
			n++
		}
		mw.maxLocals = max(mw.maxLocals, n)
	}
	switch {
	case local < 4 && opcode != OpRet:
		if opcode < OpIstore {
			mw.code.PutByte(OpIload0 + (opcode-OpIload)<<2 + local)
		} else {
			mw.code.PutByte(OpIstore0 + (opcode-OpIstore)<<2 + local)
		}
	case local >= 256:
		mw.code.PutByte(OpWide)
		mw.code.Put12(opcode, local)
	default:
		mw.code.Put11(opcode, local)
	}
	// A store inside a try block starts a new block so that handlers see
	// the stored type.
	if opcode >= OpIstore && mw.compute == computeFrames && len(mw.handlers) > 0 {
		mw.VisitLabel(&Label{})
	}
}

func (mw *MethodWriter) VisitTypeInsn(opcode int, typ string) {
	e := mw.cw.pool.class(typ)
	if mw.currentBlock != nil {
		if mw.computesTypes() {
			mw.execute(opcode, mw.code.Len(), e)
		} else if opcode == OpNew {
			mw.grow(1)
		}
	}
	mw.code.Put12(opcode, e.index)
}

func (mw *MethodWriter) VisitFieldInsn(opcode int, owner, name, desc string) {
	e := mw.cw.pool.field(owner, name, desc)
	if mw.currentBlock != nil {
		if mw.computesTypes() {
			mw.execute(opcode, 0, e)
		} else {
			size := 1
			if desc[0] == 'J' || desc[0] == 'D' {
				size = 2
			}
			switch opcode {
			case OpGetstatic:
				mw.grow(size)
			case OpPutstatic:
				mw.grow(-size)
			case OpGetfield:
				mw.grow(size - 1)
			default:
				mw.grow(-size - 1)
			}
		}
	}
	mw.code.Put12(opcode, e.index)
}

// argSizes returns the cached argument and return sizes of a method
// reference entry.
func argSizes(e *poolEntry, desc string) (int, int) {
	if e.aux == 0 {
		a, r := argumentsAndReturnSizes(desc)
		e.aux = a<<2 | r
	}
	return e.aux >> 2, e.aux & 3
}

func (mw *MethodWriter) VisitMethodInsn(opcode int, owner, name, desc string, itf bool) {
	e := mw.cw.pool.method(owner, name, desc, itf)
	argSize, retSize := argSizes(e, desc)
	if mw.currentBlock != nil {
		if mw.computesTypes() {
			mw.execute(opcode, 0, e)
		} else {
			delta := retSize - argSize
			if opcode == OpInvokestatic {
				delta++
			}
			mw.grow(delta)
		}
	}
	if opcode == OpInvokeinterface {
		mw.code.Put12(opcode, e.index)
		mw.code.Put11(argSize, 0)
	} else {
		mw.code.Put12(opcode, e.index)
	}
}

func (mw *MethodWriter) VisitInvokeDynamicInsn(name, desc string, bsm Handle, bsmArgs ...any) {
	e := mw.cw.pool.invokeDynamic(name, desc, bsm, bsmArgs)
	if mw.currentBlock != nil {
		if mw.computesTypes() {
			mw.execute(OpInvokedynamic, 0, e)
		} else {
			argSize, retSize := argSizes(e, desc)
			mw.grow(retSize - argSize + 1)
		}
	}
	mw.code.Put12(OpInvokedynamic, e.index)
	mw.code.PutShort(0)
}

func (mw *MethodWriter) VisitJumpInsn(opcode int, label *Label) {
	label.claim(mw)
	wide := opcode >= OpGotoW
	if wide {
		opcode -= OpGotoW - OpGoto
	}
	var next *Label
	if mw.currentBlock != nil {
		switch mw.compute {
		case computeFrames:
			if opcode == OpJsr {
				mw.cw.fail(fmt.Errorf("%w: JSR in %s%s", ErrSubroutineFrames, mw.name, mw.desc))
				break
			}
			mw.execute(opcode, 0, nil)
			label.first().status |= labelTarget
			mw.addSuccessor(0, label)
			if opcode != OpGoto {
				next = &Label{}
			}
		case computeInsertedFrames:
			if opcode == OpJsr {
				mw.cw.fail(fmt.Errorf("%w: JSR in %s%s", ErrSubroutineFrames, mw.name, mw.desc))
				break
			}
			mw.execute(opcode, 0, nil)
		default:
			if opcode == OpJsr {
				if label.status&labelSubroutine == 0 {
					label.status |= labelSubroutine
					mw.subroutines++
				}
				mw.currentBlock.status |= labelJSR
				mw.addSuccessor(mw.stackSize+1, label)
				next = &Label{}
			} else {
				mw.stackSize += int(stackDeltas[opcode])
				mw.addSuccessor(mw.stackSize, label)
			}
		}
	}

	source := mw.code.Len()
	switch {
	case label.status&labelResolved != 0 && label.position-source < -32768:
		// Backward jump out of short range.
		switch opcode {
		case OpGoto:
			mw.code.PutByte(OpGotoW)
		case OpJsr:
			mw.code.PutByte(OpJsrW)
		default:
			if next != nil {
				next.status |= labelTarget
			}
			mw.code.PutByte(oppositeJump(opcode))
			mw.code.PutShort(8)
			// The instruction after the GOTO_W is a jump target: a pseudo
			// GOTO_W makes the final pass insert a frame there.
			mw.code.PutByte(pseudoGotoW)
			mw.cw.needsExpansion = true
		}
		label.put(mw.code, mw.code.Len()-1, true)
	case wide:
		mw.code.PutByte(opcode + OpGotoW - OpGoto)
		label.put(mw.code, source, true)
	default:
		mw.code.PutByte(opcode)
		label.put(mw.code, source, false)
	}

	if mw.currentBlock != nil {
		if next != nil {
			mw.VisitLabel(next)
		}
		if opcode == OpGoto {
			mw.noSuccessor()
		}
	}
}

func (mw *MethodWriter) VisitLabel(label *Label) {
	label.claim(mw)
	if label.resolve(mw.code.Len(), mw.code.Bytes()) {
		mw.cw.needsExpansion = true
	}
	if label.status&labelDebug != 0 {
		return
	}
	switch mw.compute {
	case computeFrames:
		if mw.currentBlock != nil {
			if label.position == mw.currentBlock.position {
				mw.currentBlock.status |= label.status & labelTarget
				label.frame = mw.currentBlock.frame
				return
			}
			mw.addSuccessor(0, label)
		}
		mw.currentBlock = label
		if label.frame == nil {
			label.frame = newFrame(label)
		}
		if mw.previousBlock != nil {
			if label.position == mw.previousBlock.position {
				mw.previousBlock.status |= label.status & labelTarget
				label.frame = mw.previousBlock.frame
				mw.currentBlock = mw.previousBlock
				return
			}
			mw.previousBlock.nextBlock = label
		}
		mw.previousBlock = label
	case computeInsertedFrames:
		if mw.currentBlock == nil {
			mw.currentBlock = label
		} else {
			mw.currentBlock.frame.owner = label
		}
	case computeMaxs:
		if mw.currentBlock != nil {
			mw.currentBlock.outputStackMax = mw.maxStackSize
			mw.addSuccessor(mw.stackSize, label)
		}
		mw.currentBlock = label
		mw.stackSize = 0
		mw.maxStackSize = 0
		if mw.previousBlock != nil {
			mw.previousBlock.nextBlock = label
		}
		mw.previousBlock = label
	}
}

func (mw *MethodWriter) VisitLdcInsn(value any) {
	e, err := mw.cw.pool.constant(value)
	if err != nil {
		mw.cw.fail(err)
		return
	}
	twoSlots := e.kind == tagLong || e.kind == tagDouble
	if mw.currentBlock != nil {
		if mw.computesTypes() {
			mw.execute(OpLdc, 0, e)
		} else if twoSlots {
			mw.grow(2)
		} else {
			mw.grow(1)
		}
	}
	switch {
	case twoSlots:
		mw.code.Put12(OpLdc2W, e.index)
	case e.index >= 256:
		mw.code.Put12(OpLdcW, e.index)
	default:
		mw.code.Put11(OpLdc, e.index)
	}
}

func (mw *MethodWriter) VisitIincInsn(local, increment int) {
	if mw.currentBlock != nil && mw.computesTypes() {
		mw.execute(OpIinc, local, nil)
	}
	if mw.compute != computeNothing {
		mw.maxLocals = max(mw.maxLocals, local+1)
	}
	if local > 255 || increment > 127 || increment < -128 {
		mw.code.PutByte(OpWide)
		mw.code.Put12(OpIinc, local)
		mw.code.PutShort(increment)
	} else {
		mw.code.PutByte(OpIinc)
		mw.code.Put11(local, increment)
	}
}

func (mw *MethodWriter) VisitTableSwitchInsn(min, max int, dflt *Label, labels ...*Label) {
	source := mw.code.Len()
	mw.code.PutByte(OpTableswitch)
	mw.code.PutByteArray(nil, (4-mw.code.Len()%4)%4)
	dflt.claim(mw)
	dflt.put(mw.code, source, true)
	mw.code.PutInt(min)
	mw.code.PutInt(max)
	for _, l := range labels {
		l.claim(mw)
		l.put(mw.code, source, true)
	}
	mw.visitSwitch(dflt, labels)
}

func (mw *MethodWriter) VisitLookupSwitchInsn(dflt *Label, keys []int, labels []*Label) {
	source := mw.code.Len()
	mw.code.PutByte(OpLookupswitch)
	mw.code.PutByteArray(nil, (4-mw.code.Len()%4)%4)
	dflt.claim(mw)
	dflt.put(mw.code, source, true)
	mw.code.PutInt(len(labels))
	for i, l := range labels {
		l.claim(mw)
		mw.code.PutInt(keys[i])
		l.put(mw.code, source, true)
	}
	mw.visitSwitch(dflt, labels)
}

func (mw *MethodWriter) visitSwitch(dflt *Label, labels []*Label) {
	if mw.currentBlock == nil {
		return
	}
	switch mw.compute {
	case computeFrames:
		mw.execute(OpLookupswitch, 0, nil)
		mw.addSuccessor(0, dflt)
		dflt.first().status |= labelTarget
		for _, l := range labels {
			mw.addSuccessor(0, l)
			l.first().status |= labelTarget
		}
	case computeInsertedFrames:
		mw.execute(OpLookupswitch, 0, nil)
	default:
		mw.stackSize--
		mw.addSuccessor(mw.stackSize, dflt)
		for _, l := range labels {
			mw.addSuccessor(mw.stackSize, l)
		}
	}
	mw.noSuccessor()
}

func (mw *MethodWriter) VisitMultiANewArrayInsn(desc string, dims int) {
	e := mw.cw.pool.class(desc)
	if mw.currentBlock != nil {
		if mw.computesTypes() {
			mw.execute(OpMultianewarray, dims, e)
		} else {
			mw.grow(1 - dims)
		}
	}
	mw.code.Put12(OpMultianewarray, e.index)
	mw.code.PutByte(dims)
}

func (mw *MethodWriter) VisitTryCatchBlock(start, end, handlerLabel *Label, typ string) {
	h := &handler{start: start, end: end, handler: handlerLabel, desc: typ}
	if typ != "" {
		h.typeIndex = mw.cw.pool.class(typ).index
	}
	mw.handlers = append(mw.handlers, h)
}

func (mw *MethodWriter) VisitLocalVariable(name, desc, signature string, start, end *Label, index int) {
	if signature != "" {
		if mw.localVarTypes == nil {
			mw.localVarTypes = bytevec.New(32)
		}
		mw.localVarTypeCount++
		mw.localVarTypes.PutShort(start.position)
		mw.localVarTypes.PutShort(end.position - start.position)
		mw.localVarTypes.PutShort(mw.cw.pool.utf8(name))
		mw.localVarTypes.PutShort(mw.cw.pool.utf8(signature))
		mw.localVarTypes.PutShort(index)
	}
	if mw.localVars == nil {
		mw.localVars = bytevec.New(32)
	}
	mw.localVarCount++
	mw.localVars.PutShort(start.position)
	mw.localVars.PutShort(end.position - start.position)
	mw.localVars.PutShort(mw.cw.pool.utf8(name))
	mw.localVars.PutShort(mw.cw.pool.utf8(desc))
	mw.localVars.PutShort(index)
	if mw.compute != computeNothing {
		n := index + 1
		if desc[0] == 'J' || desc[0] == 'D' {
			n++
		}
		mw.maxLocals = max(mw.maxLocals, n)
	}
}

func (mw *MethodWriter) VisitLineNumber(line int, start *Label) {
	if mw.lineNumbers == nil {
		mw.lineNumbers = bytevec.New(32)
	}
	mw.lineNumberCount++
	mw.lineNumbers.PutShort(start.position)
	mw.lineNumbers.PutShort(line)
}

func (mw *MethodWriter) VisitEnd() {}

// ---------------------------------------------------------------------------
// Control flow graph helpers
// ---------------------------------------------------------------------------

func (mw *MethodWriter) addSuccessor(info int, successor *Label) {
	mw.currentBlock.addEdge(info, successor)
}

// noSuccessor ends the current block after an instruction that does not
// fall through.
func (mw *MethodWriter) noSuccessor() {
	switch mw.compute {
	case computeFrames:
		l := &Label{owner: mw}
		l.frame = newFrame(l)
		l.resolve(mw.code.Len(), mw.code.Bytes())
		mw.previousBlock.nextBlock = l
		mw.previousBlock = l
		mw.currentBlock = nil
	case computeMaxs:
		mw.currentBlock.outputStackMax = mw.maxStackSize
		mw.currentBlock = nil
	}
}

// ---------------------------------------------------------------------------
// Serialization
// ---------------------------------------------------------------------------

// canCopy reports whether the attributes of a method read by r can be
// copied verbatim into this writer: r must be the reader the class writer
// was created from, and the header must be unchanged.
func (mw *MethodWriter) canCopy(r *Reader, desc, signature string, access int, exceptions []string) bool {
	if mw.cw.reader == nil || mw.cw.reader != r || desc != mw.desc || signature != mw.signature {
		return false
	}
	if (access^mw.access)&(AccDeprecated|AccSynthetic|accSyntheticAttribute) != 0 {
		return false
	}
	if len(exceptions) != len(mw.exceptions) {
		return false
	}
	for i, e := range exceptions {
		if mw.cw.pool.class(e).index != mw.exceptions[i] {
			return false
		}
	}
	return true
}

// syntheticMask returns the access bits that are written as attributes
// rather than flags.
func syntheticMask(access int) int {
	mask := AccDeprecated | accSyntheticAttribute | accConstructor
	if access&accSyntheticAttribute != 0 {
		mask |= AccSynthetic
	}
	return mask
}

// needsSyntheticAttribute reports whether a Synthetic attribute must be
// written for the given access flags.
func (w *Writer) needsSyntheticAttribute(access int) bool {
	return access&AccSynthetic != 0 &&
		(w.version&0xFFFF < V1_5 || access&accSyntheticAttribute != 0)
}

func (mw *MethodWriter) put(out *bytevec.ByteVector) {
	w := mw.cw
	out.PutShort(mw.access &^ syntheticMask(mw.access))
	out.PutShort(mw.nameIndex)
	out.PutShort(mw.descIndex)
	if mw.copied != nil {
		out.PutByteArray(mw.copied, len(mw.copied))
		return
	}

	var attrs attributeWriter
	if mw.code.Len() > 0 {
		attrs.add(w, "Code", mw.codeAttribute())
	}
	if len(mw.exceptions) > 0 {
		b := bytevec.New(2 + 2*len(mw.exceptions))
		b.PutShort(len(mw.exceptions))
		for _, e := range mw.exceptions {
			b.PutShort(e)
		}
		attrs.add(w, "Exceptions", b.Bytes())
	}
	w.putCommonAttributes(&attrs, mw.access, mw.sigIndex)
	if mw.annotationDefault != nil {
		attrs.add(w, "AnnotationDefault", mw.annotationDefault.Bytes())
	}
	attrs.addAnnotations(w, "RuntimeVisibleAnnotations", mw.visibleAnns)
	attrs.addAnnotations(w, "RuntimeInvisibleAnnotations", mw.invisibleAnns)
	attrs.addParameterAnnotations(w, "RuntimeVisibleParameterAnnotations", mw.visibleParamAnns)
	attrs.addParameterAnnotations(w, "RuntimeInvisibleParameterAnnotations", mw.invisibleParamAnns)
	attrs.addList(w, mw.attrs)
	attrs.put(out)
}

// codeAttribute returns the body of the Code attribute.
func (mw *MethodWriter) codeAttribute() []byte {
	w := mw.cw
	if mw.code.Len() > 65535 {
		w.fail(fmt.Errorf("%w: %s%s has %d bytes", ErrCodeTooLarge, mw.name, mw.desc, mw.code.Len()))
		return nil
	}
	b := bytevec.New(mw.code.Len() + 64)
	b.PutShort(mw.maxStack)
	b.PutShort(mw.maxLocals)
	b.PutInt(mw.code.Len())
	b.PutByteArray(mw.code.Bytes(), mw.code.Len())
	b.PutShort(len(mw.handlers))
	for _, h := range mw.handlers {
		b.PutShort(h.start.position)
		b.PutShort(h.end.position)
		b.PutShort(h.handler.position)
		b.PutShort(h.typeIndex)
	}

	var attrs attributeWriter
	counted := func(name string, count int, body *bytevec.ByteVector) {
		if body == nil {
			return
		}
		c := bytevec.New(2 + body.Len())
		c.PutShort(count)
		c.PutByteArray(body.Bytes(), body.Len())
		attrs.add(w, name, c.Bytes())
	}
	counted("LocalVariableTable", mw.localVarCount, mw.localVars)
	counted("LocalVariableTypeTable", mw.localVarTypeCount, mw.localVarTypes)
	counted("LineNumberTable", mw.lineNumberCount, mw.lineNumbers)
	if w.version&0xFFFF >= V1_6 {
		counted("StackMapTable", mw.frameCount, mw.stackMap)
	} else {
		counted("StackMap", mw.frameCount, mw.stackMap)
	}
	attrs.addList(w, mw.codeAttrs)
	attrs.put(b)
	return b.Bytes()
}

package classfile

// ---------------------------------------------------------------------------
// frame: per basic block abstract state
// ---------------------------------------------------------------------------

// frame holds the input state of a basic block, once known, and the effect
// of the block's instructions on it as output types relative to the input.
type frame struct {
	owner *Label

	inputLocals []absType // nil until the block is reached
	inputStack  []absType

	outputLocals   []absType
	outputStack    []absType
	outputStackTop int
	popped         int // input stack values consumed by the block

	// initializations lists the uninitialized values whose constructor is
	// called in the block.
	initializations []absType
}

func newFrame(owner *Label) *frame {
	return &frame{owner: owner}
}

// get returns the output type of a local variable.
func (f *frame) get(local int) absType {
	if local >= len(f.outputLocals) {
		return localType(local)
	}
	t := f.outputLocals[local]
	if t.kind == kindUnknown {
		t = localType(local)
		f.outputLocals[local] = t
	}
	return t
}

func (f *frame) set(local int, t absType) {
	if local >= len(f.outputLocals) {
		n := max(local+1, 2*len(f.outputLocals))
		grown := make([]absType, n)
		copy(grown, f.outputLocals)
		f.outputLocals = grown
	}
	f.outputLocals[local] = t
}

func (f *frame) push(t absType) {
	if f.outputStackTop >= len(f.outputStack) {
		grown := make([]absType, max(f.outputStackTop+1, 2*len(f.outputStack)))
		copy(grown, f.outputStack)
		f.outputStack = grown
	}
	f.outputStack[f.outputStackTop] = t
	f.outputStackTop++
	if size := f.outputStackTop - f.popped; f.owner != nil && size > f.owner.outputStackMax {
		f.owner.outputStackMax = size
	}
}

// pushDesc pushes a value of the given descriptor, or the return value of a
// method descriptor.
func (f *frame) pushDesc(w *Writer, desc string) {
	t := w.typeFromDescriptor(desc)
	if t.kind == kindUnknown {
		return
	}
	f.push(t)
	if t.isLongOrDouble() {
		f.push(typeTop)
	}
}

func (f *frame) pop() absType {
	if f.outputStackTop > 0 {
		f.outputStackTop--
		return f.outputStack[f.outputStackTop]
	}
	f.popped++
	return stackType(f.popped)
}

func (f *frame) popN(n int) {
	if f.outputStackTop >= n {
		f.outputStackTop -= n
		return
	}
	f.popped += n - f.outputStackTop
	f.outputStackTop = 0
}

// popDesc pops a value of the given descriptor, or the arguments of a
// method descriptor.
func (f *frame) popDesc(desc string) {
	switch desc[0] {
	case '(':
		args, _ := argumentsAndReturnSizes(desc)
		f.popN(args - 1)
	case 'J', 'D':
		f.popN(2)
	default:
		f.popN(1)
	}
}

// storeLocal sets a local and invalidates the value that previously
// overlapped it from the slot below.
func (f *frame) storeLocal(local int, t absType, size int) {
	f.set(local, t)
	if size == 2 {
		f.set(local+1, typeTop)
	}
	if local > 0 {
		prev := f.get(local - 1)
		if prev.isLongOrDouble() {
			f.set(local-1, typeTop)
		} else if prev.kind == kindLocal || prev.kind == kindStack {
			prev.topIfLongOrDouble = true
			f.set(local-1, prev)
		}
	}
}

// initInputFrame sets the input state of the first block of a method.
func (f *frame) initInputFrame(w *Writer, access int, desc string, maxLocals int) {
	f.inputLocals = make([]absType, maxLocals)
	f.inputStack = []absType{}
	i := 0
	if access&AccStatic == 0 {
		if access&accConstructor == 0 {
			f.inputLocals[i] = objectType(w.pool.addType(w.thisName))
		} else {
			f.inputLocals[i] = typeUninitThis
		}
		i++
	}
	for _, arg := range argumentDescriptors(desc) {
		t := w.typeFromDescriptor(arg)
		f.inputLocals[i] = t
		i++
		if t.isLongOrDouble() {
			f.inputLocals[i] = typeTop
			i++
		}
	}
	for ; i < maxLocals; i++ {
		f.inputLocals[i] = typeTop
	}
}

// setInputFrame replaces the input state with a frame given in VisitFrame
// form, where long and double values take a single entry.
func (f *frame) setInputFrame(w *Writer, local, stack []any, maxLocals int) {
	locals := make([]absType, 0, max(maxLocals, len(local)))
	for _, v := range local {
		t := w.typeFromFrameItem(v)
		locals = append(locals, t)
		if t.isLongOrDouble() {
			locals = append(locals, typeTop)
		}
	}
	for len(locals) < maxLocals {
		locals = append(locals, typeTop)
	}
	stackTypes := make([]absType, 0, len(stack))
	for _, v := range stack {
		t := w.typeFromFrameItem(v)
		stackTypes = append(stackTypes, t)
		if t.isLongOrDouble() {
			stackTypes = append(stackTypes, typeTop)
		}
	}
	f.inputLocals = locals
	f.inputStack = stackTypes
	f.outputLocals = nil
	f.outputStack = nil
	f.outputStackTop = 0
	f.popped = 0
	f.initializations = nil
}

// ---------------------------------------------------------------------------
// Instruction effects
// ---------------------------------------------------------------------------

// execute applies the effect of one instruction to the output state. arg is
// the local index, int operand, array type, NEW offset or dimension count;
// e is the pool entry of the instruction, if any. JSR and RET are rejected
// by the method writer before they get here.
func (f *frame) execute(w *Writer, opcode, arg int, e *poolEntry) {
	switch opcode {
	case OpNop, OpIneg, OpLneg, OpFneg, OpDneg, OpI2b, OpI2c, OpI2s, OpGoto, OpReturn:
	case OpAconstNull:
		f.push(typeNull)
	case OpIconstM1, OpIconst0, OpIconst1, OpIconst2, OpIconst3, OpIconst4, OpIconst5,
		OpBipush, OpSipush, OpIload:
		f.push(typeInt)
	case OpLconst0, OpLconst1, OpLload:
		f.push(typeLong)
		f.push(typeTop)
	case OpFconst0, OpFconst1, OpFconst2, OpFload:
		f.push(typeFloat)
	case OpDconst0, OpDconst1, OpDload:
		f.push(typeDouble)
		f.push(typeTop)
	case OpLdc:
		switch e.kind {
		case tagInt:
			f.push(typeInt)
		case tagLong:
			f.push(typeLong)
			f.push(typeTop)
		case tagFloat:
			f.push(typeFloat)
		case tagDouble:
			f.push(typeDouble)
			f.push(typeTop)
		case tagClass:
			f.push(objectType(w.pool.addType("java/lang/Class")))
		case tagString:
			f.push(objectType(w.pool.addType("java/lang/String")))
		case tagMethodType:
			f.push(objectType(w.pool.addType("java/lang/invoke/MethodType")))
		default:
			f.push(objectType(w.pool.addType("java/lang/invoke/MethodHandle")))
		}
	case OpAload:
		f.push(f.get(arg))
	case OpIaload, OpBaload, OpCaload, OpSaload:
		f.popN(2)
		f.push(typeInt)
	case OpLaload, OpD2l:
		f.popN(2)
		f.push(typeLong)
		f.push(typeTop)
	case OpFaload:
		f.popN(2)
		f.push(typeFloat)
	case OpDaload, OpL2d:
		f.popN(2)
		f.push(typeDouble)
		f.push(typeTop)
	case OpAaload:
		f.popN(1)
		f.push(f.pop().elementOf())
	case OpIstore, OpFstore, OpAstore:
		f.storeLocal(arg, f.pop(), 1)
	case OpLstore, OpDstore:
		f.popN(1)
		f.storeLocal(arg, f.pop(), 2)
	case OpIastore, OpBastore, OpCastore, OpSastore, OpFastore, OpAastore:
		f.popN(3)
	case OpLastore, OpDastore:
		f.popN(4)
	case OpPop, OpIfeq, OpIfne, OpIflt, OpIfge, OpIfgt, OpIfle, OpIreturn, OpFreturn,
		OpAreturn, OpTableswitch, OpLookupswitch, OpAthrow, OpMonitorenter,
		OpMonitorexit, OpIfnull, OpIfnonnull:
		f.popN(1)
	case OpPop2, OpIfIcmpeq, OpIfIcmpne, OpIfIcmplt, OpIfIcmpge, OpIfIcmpgt, OpIfIcmple,
		OpIfAcmpeq, OpIfAcmpne, OpLreturn, OpDreturn:
		f.popN(2)
	case OpDup:
		t1 := f.pop()
		f.push(t1)
		f.push(t1)
	case OpDupX1:
		t1, t2 := f.pop(), f.pop()
		f.push(t1)
		f.push(t2)
		f.push(t1)
	case OpDupX2:
		t1, t2, t3 := f.pop(), f.pop(), f.pop()
		f.push(t1)
		f.push(t3)
		f.push(t2)
		f.push(t1)
	case OpDup2:
		t1, t2 := f.pop(), f.pop()
		f.push(t2)
		f.push(t1)
		f.push(t2)
		f.push(t1)
	case OpDup2X1:
		t1, t2, t3 := f.pop(), f.pop(), f.pop()
		f.push(t2)
		f.push(t1)
		f.push(t3)
		f.push(t2)
		f.push(t1)
	case OpDup2X2:
		t1, t2, t3, t4 := f.pop(), f.pop(), f.pop(), f.pop()
		f.push(t2)
		f.push(t1)
		f.push(t4)
		f.push(t3)
		f.push(t2)
		f.push(t1)
	case OpSwap:
		t1, t2 := f.pop(), f.pop()
		f.push(t1)
		f.push(t2)
	case OpIadd, OpIsub, OpImul, OpIdiv, OpIrem, OpIand, OpIor, OpIxor, OpIshl, OpIshr,
		OpIushr, OpL2i, OpD2i, OpFcmpl, OpFcmpg:
		f.popN(2)
		f.push(typeInt)
	case OpLadd, OpLsub, OpLmul, OpLdiv, OpLrem, OpLand, OpLor, OpLxor:
		f.popN(4)
		f.push(typeLong)
		f.push(typeTop)
	case OpFadd, OpFsub, OpFmul, OpFdiv, OpFrem, OpL2f, OpD2f:
		f.popN(2)
		f.push(typeFloat)
	case OpDadd, OpDsub, OpDmul, OpDdiv, OpDrem:
		f.popN(4)
		f.push(typeDouble)
		f.push(typeTop)
	case OpLshl, OpLshr, OpLushr:
		f.popN(3)
		f.push(typeLong)
		f.push(typeTop)
	case OpIinc:
		f.set(arg, typeInt)
	case OpI2l, OpF2l:
		f.popN(1)
		f.push(typeLong)
		f.push(typeTop)
	case OpI2f:
		f.popN(1)
		f.push(typeFloat)
	case OpI2d, OpF2d:
		f.popN(1)
		f.push(typeDouble)
		f.push(typeTop)
	case OpF2i, OpArraylength, OpInstanceof:
		f.popN(1)
		f.push(typeInt)
	case OpLcmp, OpDcmpl, OpDcmpg:
		f.popN(4)
		f.push(typeInt)
	case OpGetstatic:
		f.pushDesc(w, e.str3)
	case OpPutstatic:
		f.popDesc(e.str3)
	case OpGetfield:
		f.popN(1)
		f.pushDesc(w, e.str3)
	case OpPutfield:
		f.popDesc(e.str3)
		f.pop()
	case OpInvokevirtual, OpInvokespecial, OpInvokestatic, OpInvokeinterface:
		f.popDesc(e.str3)
		if opcode != OpInvokestatic {
			receiver := f.pop()
			if opcode == OpInvokespecial && e.str2 == "<init>" {
				f.initializations = append(f.initializations, receiver)
			}
		}
		f.pushDesc(w, e.str3)
	case OpInvokedynamic:
		f.popDesc(e.str2)
		f.pushDesc(w, e.str2)
	case OpNew:
		f.push(uninitType(w.pool.addUninitializedType(e.str1, arg)))
	case OpNewarray:
		f.pop()
		switch arg {
		case TBoolean:
			f.push(baseType(baseBoolean).arrayOf())
		case TChar:
			f.push(baseType(baseChar).arrayOf())
		case TByte:
			f.push(baseType(baseByte).arrayOf())
		case TShort:
			f.push(baseType(baseShort).arrayOf())
		case TInt:
			f.push(typeInt.arrayOf())
		case TFloat:
			f.push(typeFloat.arrayOf())
		case TDouble:
			f.push(typeDouble.arrayOf())
		default:
			f.push(typeLong.arrayOf())
		}
	case OpAnewarray:
		f.pop()
		if e.str1[0] == '[' {
			f.pushDesc(w, "["+e.str1)
		} else {
			f.push(objectType(w.pool.addType(e.str1)).arrayOf())
		}
	case OpCheckcast:
		f.pop()
		if e.str1[0] == '[' {
			f.pushDesc(w, e.str1)
		} else {
			f.push(objectType(w.pool.addType(e.str1)))
		}
	default: // OpMultianewarray
		f.popN(arg)
		f.pushDesc(w, e.str1)
	}
}

// ---------------------------------------------------------------------------
// Merging
// ---------------------------------------------------------------------------

// resolve turns an output type into a concrete type using the input state.
func (f *frame) resolve(s absType) absType {
	var t absType
	switch s.kind {
	case kindLocal:
		t = f.inputLocals[s.value]
	case kindStack:
		t = f.inputStack[len(f.inputStack)-int(s.value)]
	default:
		return s
	}
	if s.topIfLongOrDouble && t.isLongOrDouble() {
		return typeTop
	}
	if s.dims != 0 {
		if t == typeNull {
			return typeNull
		}
		t.dims += s.dims
		if t.dims < 0 {
			return typeTop
		}
	}
	return t
}

// applyInit replaces t by its initialized type if a constructor was called
// on it in the block.
func (f *frame) applyInit(w *Writer, t absType) absType {
	var s absType
	switch {
	case t == typeUninitThis:
		s = objectType(w.pool.addType(w.thisName))
	case t.kind == kindUninit && t.dims == 0:
		s = objectType(w.pool.addType(w.pool.typeName(int(t.value))))
	default:
		return t
	}
	for _, u := range f.initializations {
		if f.resolve(u) == t {
			return s
		}
	}
	return t
}

// merge merges the output state of f into the input state of the successor
// frame dst. edgeType is the zero absType for normal edges and the caught
// type for exception handler edges. It reports whether dst changed.
func (f *frame) merge(w *Writer, dst *frame, edgeType absType) bool {
	changed := false
	nLocal := len(f.inputLocals)
	if dst.inputLocals == nil {
		dst.inputLocals = make([]absType, nLocal)
		changed = true
	}
	for i := 0; i < nLocal; i++ {
		var t absType
		if i < len(f.outputLocals) && f.outputLocals[i].kind != kindUnknown {
			t = f.resolve(f.outputLocals[i])
		} else {
			t = f.inputLocals[i]
		}
		if f.initializations != nil {
			t = f.applyInit(w, t)
		}
		changed = mergeType(w, t, dst.inputLocals, i) || changed
	}

	if edgeType.kind != kindUnknown {
		for i := 0; i < nLocal; i++ {
			changed = mergeType(w, f.inputLocals[i], dst.inputLocals, i) || changed
		}
		if dst.inputStack == nil {
			dst.inputStack = make([]absType, 1)
			changed = true
		}
		return mergeType(w, edgeType, dst.inputStack, 0) || changed
	}

	nInput := len(f.inputStack) - f.popped
	if dst.inputStack == nil {
		dst.inputStack = make([]absType, nInput+f.outputStackTop)
		changed = true
	}
	for i := 0; i < nInput; i++ {
		t := f.inputStack[i]
		if f.initializations != nil {
			t = f.applyInit(w, t)
		}
		changed = mergeType(w, t, dst.inputStack, i) || changed
	}
	for i := 0; i < f.outputStackTop; i++ {
		t := f.resolve(f.outputStack[i])
		if f.initializations != nil {
			t = f.applyInit(w, t)
		}
		changed = mergeType(w, t, dst.inputStack, nInput+i) || changed
	}
	return changed
}

// mergeType merges t into types[i] and reports whether types[i] changed.
// Identical types are kept; two references merge to their common super
// type (arrays of differing element types to an array of Object, or Object)
// and anything else becomes TOP.
func mergeType(w *Writer, t absType, types []absType, i int) bool {
	u := types[i]
	if u == t {
		return false
	}
	if t.kind == kindBase && t.value == baseNull {
		if u == typeNull {
			return false
		}
		t = typeNull
	}
	if u.kind == kindUnknown {
		types[i] = t
		return true
	}
	var v absType
	switch {
	case u.isReference():
		switch {
		case t == typeNull:
			return false
		case t.dims == u.dims && t.kind == u.kind:
			if u.kind == kindObject {
				v = objectType(w.mergedType(int(t.value), int(u.value))).withDims(int(t.dims))
			} else {
				v = objectType(w.pool.addType("java/lang/Object")).withDims(int(t.dims) - 1)
			}
		case t.isReference():
			v = objectType(w.pool.addType("java/lang/Object")).withDims(min(refDims(t), refDims(u)))
		default:
			v = typeTop
		}
	case u == typeNull:
		if t.isReference() {
			v = t
		} else {
			v = typeTop
		}
	default:
		v = typeTop
	}
	if u != v {
		types[i] = v
		return true
	}
	return false
}

// refDims returns the number of dimensions of a reference type that can be
// kept when merging with a reference of another shape: arrays of primitives
// lose one dimension since they only share Object with other arrays.
func refDims(t absType) int {
	if t.dims == 0 || t.kind == kindObject {
		return int(t.dims)
	}
	return int(t.dims) - 1
}

// ---------------------------------------------------------------------------
// currentFrame: instruction-by-instruction state
// ---------------------------------------------------------------------------

// executeCurrent applies one instruction and folds the result back into the
// input state, so that the frame always describes the state before the next
// instruction. It is used in inserted-frames mode, where frames are only
// needed at a few known offsets inside otherwise precomputed code.
func (f *frame) executeCurrent(w *Writer, opcode, arg int, e *poolEntry) {
	f.execute(w, opcode, arg, e)
	next := &frame{}
	f.merge(w, next, absType{})
	f.inputLocals = next.inputLocals
	f.inputStack = next.inputStack
	f.outputLocals = nil
	f.outputStack = nil
	f.outputStackTop = 0
	f.popped = 0
	f.initializations = nil
}

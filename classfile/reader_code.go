package classfile

import "slices"

// ---------------------------------------------------------------------------
// Code attribute
// ---------------------------------------------------------------------------

// readFrame is a stack map frame decoded ahead of the instructions.
type readFrame struct {
	offset int
	kind   FrameKind
	local  []any
	stack  []any
}

// readCode visits the Code attribute whose body starts at u. A first pass
// over the instructions and the debug and frame tables creates a label for
// every referenced offset; the second pass visits labels, frames and
// instructions in offset order.
func (r *Reader) readCode(mv MethodVisitor, ctx *readContext, access int, name, desc string, u int) {
	maxStack := r.ReadUnsignedShort(u)
	maxLocals := r.ReadUnsignedShort(u + 2)
	codeLength := r.ReadInt(u + 4)
	codeStart := u + 8
	codeEnd := codeStart + codeLength
	if codeLength <= 0 || codeEnd > len(r.b) {
		failMalformed("code length %d of %s%s", codeLength, name, desc)
	}
	labels := make([]*Label, codeLength+1)

	// First pass: branch targets.
	for u = codeStart; u < codeEnd; {
		offset := u - codeStart
		opcode := int(r.b[u])
		switch insnKinds[opcode] {
		case kindNoArg, kindImplVar:
			if opcode > pseudoGotoW {
				failMalformed("invalid opcode %d at offset %d", opcode, offset)
			}
			u++
		case kindLabel:
			r.ReadLabel(offset+r.ReadShort(u+1), labels)
			u += 3
		case kindPseudoLabel:
			r.ReadLabel(offset+r.ReadUnsignedShort(u+1), labels)
			u += 3
		case kindLabelW:
			r.ReadLabel(offset+r.ReadInt(u+1), labels)
			u += 5
		case kindWide:
			if int(r.b[u+1]) == OpIinc {
				u += 6
			} else {
				u += 4
			}
		case kindTableSwitch:
			u += 4 - offset&3
			r.ReadLabel(offset+r.ReadInt(u), labels)
			n := r.ReadInt(u+8) - r.ReadInt(u+4) + 1
			if n < 0 {
				failMalformed("tableswitch bounds at offset %d", offset)
			}
			for u += 12; n > 0; n-- {
				r.ReadLabel(offset+r.ReadInt(u), labels)
				u += 4
			}
		case kindLookupSwitch:
			u += 4 - offset&3
			r.ReadLabel(offset+r.ReadInt(u), labels)
			n := r.ReadInt(u + 4)
			if n < 0 {
				failMalformed("lookupswitch size at offset %d", offset)
			}
			for u += 8; n > 0; n-- {
				r.ReadLabel(offset+r.ReadInt(u+4), labels)
				u += 8
			}
		case kindVar, kindSByte, kindLdc:
			u += 2
		case kindShort, kindLdcW, kindFieldMeth, kindType, kindIinc:
			u += 3
		case kindItfMeth, kindIndyMeth:
			u += 5
		default:
			u += 4
		}
	}
	if u != codeEnd {
		failMalformed("last instruction of %s%s overruns the code", name, desc)
	}

	// Exception handlers are visited before the instructions: a writer
	// computing frames needs them when it sees the protected code.
	u = codeEnd
	for n := r.ReadUnsignedShort(u); n > 0; n-- {
		start := r.ReadLabel(r.ReadUnsignedShort(u+2), labels)
		end := r.ReadLabel(r.ReadUnsignedShort(u+4), labels)
		handler := r.ReadLabel(r.ReadUnsignedShort(u+6), labels)
		mv.VisitTryCatchBlock(start, end, handler, r.ReadClass(u+8))
		u += 8
	}
	u += 2

	var (
		varTable, varTypeTable int
		stackMap, frameCount   int
		compressedFrames       bool
		attrs                  []*Attribute
		skipDebug              = ctx.flags&SkipDebug != 0
		skipFrames             = ctx.flags&SkipFrames != 0
	)
	r.forEachAttribute(u, func(attr string, body, length int) {
		switch attr {
		case "LocalVariableTable":
			if skipDebug {
				return
			}
			varTable = body
			v := body + 2
			for n := r.ReadUnsignedShort(body); n > 0; n-- {
				start := r.ReadUnsignedShort(v)
				r.readDebugLabel(start, labels)
				r.readDebugLabel(start+r.ReadUnsignedShort(v+2), labels)
				v += 10
			}
		case "LocalVariableTypeTable":
			if !skipDebug {
				varTypeTable = body
			}
		case "LineNumberTable":
			if skipDebug {
				return
			}
			v := body + 2
			for n := r.ReadUnsignedShort(body); n > 0; n-- {
				l := r.readDebugLabel(r.ReadUnsignedShort(v), labels)
				l.lines = append(l.lines, r.ReadUnsignedShort(v+2))
				v += 4
			}
		case "StackMapTable", "StackMap":
			if !skipFrames {
				stackMap = body + 2
				frameCount = r.ReadUnsignedShort(body)
				compressedFrames = attr == "StackMapTable"
			}
		default:
			if a := r.readAttribute(ctx, attr, body, length, labels); a != nil {
				attrs = append(attrs, a)
			}
		}
	})

	var frames []readFrame
	if frameCount > 0 {
		locals := implicitLocals(r.ClassName(), access, name, desc)
		expand := ctx.flags&ExpandFrames != 0 || !compressedFrames
		frames = r.readFrames(stackMap, frameCount, compressedFrames, expand, locals, labels)
	}

	// Second pass: visit everything in offset order.
	insertFrames := ctx.flags&ExpandPseudoInsns != 0 && ctx.flags&ExpandFrames != 0 && !skipFrames
	if insertFrames {
		// The implicit first frame; the writer rebuilds it from the
		// descriptor and only needs max_locals.
		top := make([]any, maxLocals)
		for i := range top {
			top[i] = ItemTop
		}
		mv.VisitFrame(FNew, top, nil)
	}
	insertFrame := false
	nextFrame := 0
	for u = codeStart; u < codeEnd; {
		offset := u - codeStart
		if l := labels[offset]; l != nil {
			mv.VisitLabel(l)
			for _, line := range l.lines {
				mv.VisitLineNumber(line, l)
			}
		}
		for nextFrame < len(frames) && frames[nextFrame].offset == offset {
			f := frames[nextFrame]
			mv.VisitFrame(f.kind, f.local, f.stack)
			insertFrame = false
			nextFrame++
		}
		if insertFrame {
			if insertFrames {
				mv.VisitFrame(fInsert, nil, nil)
			}
			insertFrame = false
		}

		opcode := int(r.b[u])
		switch insnKinds[opcode] {
		case kindNoArg:
			mv.VisitInsn(opcode)
			u++
		case kindImplVar:
			if opcode > OpIstore {
				opcode -= OpIstore0
				mv.VisitVarInsn(OpIstore+opcode>>2, opcode&3)
			} else {
				opcode -= OpIload0
				mv.VisitVarInsn(OpIload+opcode>>2, opcode&3)
			}
			u++
		case kindLabel:
			mv.VisitJumpInsn(opcode, labels[offset+r.ReadShort(u+1)])
			u += 3
		case kindPseudoLabel:
			target := labels[offset+r.ReadUnsignedShort(u+1)]
			op := unpseudo(opcode)
			switch {
			case ctx.flags&ExpandPseudoInsns == 0:
				mv.VisitJumpInsn(op, target)
			case op == OpGoto || op == OpJsr:
				mv.VisitJumpInsn(op+OpGotoW-OpGoto, target)
			default:
				// IFxx far becomes IFNOTxx endif; GOTO_W far; endif:
				endif := r.ReadLabel(offset+3, labels)
				mv.VisitJumpInsn(oppositeJump(op), endif)
				mv.VisitJumpInsn(OpGotoW, target)
				insertFrame = true
			}
			u += 3
		case kindLabelW:
			target := labels[offset+r.ReadInt(u+1)]
			if opcode == pseudoGotoW {
				mv.VisitJumpInsn(OpGotoW, target)
				insertFrame = true
			} else {
				mv.VisitJumpInsn(opcode, target)
			}
			u += 5
		case kindWide:
			opcode = int(r.b[u+1])
			if opcode == OpIinc {
				mv.VisitIincInsn(r.ReadUnsignedShort(u+2), r.ReadShort(u+4))
				u += 6
			} else {
				mv.VisitVarInsn(opcode, r.ReadUnsignedShort(u+2))
				u += 4
			}
		case kindTableSwitch:
			u += 4 - offset&3
			dflt := labels[offset+r.ReadInt(u)]
			lo := r.ReadInt(u + 4)
			hi := r.ReadInt(u + 8)
			table := make([]*Label, hi-lo+1)
			u += 12
			for i := range table {
				table[i] = labels[offset+r.ReadInt(u)]
				u += 4
			}
			mv.VisitTableSwitchInsn(lo, hi, dflt, table...)
		case kindLookupSwitch:
			u += 4 - offset&3
			dflt := labels[offset+r.ReadInt(u)]
			n := r.ReadInt(u + 4)
			keys := make([]int, n)
			values := make([]*Label, n)
			u += 8
			for i := range keys {
				keys[i] = r.ReadInt(u)
				values[i] = labels[offset+r.ReadInt(u+4)]
				u += 8
			}
			mv.VisitLookupSwitchInsn(dflt, keys, values)
		case kindVar:
			mv.VisitVarInsn(opcode, r.ReadByte(u+1))
			u += 2
		case kindSByte:
			mv.VisitIntInsn(opcode, int(int8(r.b[u+1])))
			u += 2
		case kindShort:
			mv.VisitIntInsn(opcode, r.ReadShort(u+1))
			u += 3
		case kindLdc:
			mv.VisitLdcInsn(r.ReadConst(r.ReadByte(u + 1)))
			u += 2
		case kindLdcW:
			mv.VisitLdcInsn(r.ReadConst(r.ReadUnsignedShort(u + 1)))
			u += 3
		case kindFieldMeth, kindItfMeth:
			ref := r.items[r.ReadUnsignedShort(u+1)]
			itf := r.b[ref-1] == tagInterfaceMethod
			owner := r.ReadClass(ref)
			nt := r.items[r.ReadUnsignedShort(ref+2)]
			mname := r.ReadUTF8(nt)
			mdesc := r.ReadUTF8(nt + 2)
			if opcode < OpInvokevirtual {
				mv.VisitFieldInsn(opcode, owner, mname, mdesc)
			} else {
				mv.VisitMethodInsn(opcode, owner, mname, mdesc, itf)
			}
			if opcode == OpInvokeinterface {
				u += 5
			} else {
				u += 3
			}
		case kindIndyMeth:
			ref := r.items[r.ReadUnsignedShort(u+1)]
			bsmIndex := r.ReadUnsignedShort(ref)
			if bsmIndex >= len(r.bootstrap) {
				failMalformed("bootstrap method %d out of range", bsmIndex)
			}
			bsm := r.bootstrap[bsmIndex]
			handle, ok := r.ReadConst(r.ReadUnsignedShort(bsm)).(Handle)
			if !ok {
				failMalformed("bootstrap method %d is not a method handle", bsmIndex)
			}
			args := make([]any, r.ReadUnsignedShort(bsm+2))
			for i := range args {
				args[i] = r.ReadConst(r.ReadUnsignedShort(bsm + 4 + 2*i))
			}
			nt := r.items[r.ReadUnsignedShort(ref+2)]
			mv.VisitInvokeDynamicInsn(r.ReadUTF8(nt), r.ReadUTF8(nt+2), handle, args...)
			u += 5
		case kindType:
			mv.VisitTypeInsn(opcode, r.ReadClass(u+1))
			u += 3
		case kindIinc:
			mv.VisitIincInsn(r.ReadByte(u+1), int(int8(r.b[u+2])))
			u += 3
		default:
			mv.VisitMultiANewArrayInsn(r.ReadClass(u+1), r.ReadByte(u+3))
			u += 4
		}
	}
	if l := labels[codeLength]; l != nil {
		mv.VisitLabel(l)
		for _, line := range l.lines {
			mv.VisitLineNumber(line, l)
		}
	}

	if varTable != 0 {
		signatures := map[int]string{}
		if varTypeTable != 0 {
			v := varTypeTable + 2
			for n := r.ReadUnsignedShort(varTypeTable); n > 0; n-- {
				signatures[r.ReadUnsignedShort(v)<<16|r.ReadUnsignedShort(v+8)] = r.ReadUTF8(v + 6)
				v += 10
			}
		}
		v := varTable + 2
		for n := r.ReadUnsignedShort(varTable); n > 0; n-- {
			start := r.ReadUnsignedShort(v)
			length := r.ReadUnsignedShort(v + 2)
			index := r.ReadUnsignedShort(v + 8)
			mv.VisitLocalVariable(r.ReadUTF8(v+4), r.ReadUTF8(v+6), signatures[start<<16|index],
				labels[start], labels[start+length], index)
			v += 10
		}
	}
	for _, a := range attrs {
		mv.VisitAttribute(a)
	}
	mv.VisitMaxs(maxStack, maxLocals)
}

// implicitLocals returns the locals of the frame a method starts with, in
// VisitFrame form.
func implicitLocals(owner string, access int, name, desc string) []any {
	var locals []any
	if access&AccStatic == 0 {
		if name == "<init>" {
			locals = append(locals, ItemUninitializedThis)
		} else {
			locals = append(locals, owner)
		}
	}
	for _, arg := range argumentDescriptors(desc) {
		switch arg[0] {
		case 'Z', 'C', 'B', 'S', 'I':
			locals = append(locals, ItemInteger)
		case 'F':
			locals = append(locals, ItemFloat)
		case 'J':
			locals = append(locals, ItemLong)
		case 'D':
			locals = append(locals, ItemDouble)
		case '[':
			locals = append(locals, arg)
		default:
			locals = append(locals, arg[1:len(arg)-1])
		}
	}
	return locals
}

// readFrames decodes count frames of a StackMapTable (compressed) or
// StackMap attribute starting at v, creating the labels of frame offsets
// and uninitialized types. With expand, every frame is returned as FNew
// with the full locals, tracked from the implicit first frame locals.
func (r *Reader) readFrames(v, count int, compressed, expand bool, locals []any, labels []*Label) []readFrame {
	frames := make([]readFrame, 0, count)
	offset := -1
	items := func(n int) []any {
		if n == 0 {
			return nil
		}
		types := make([]any, n)
		for i := range types {
			types[i], v = r.readFrameItem(v, labels)
		}
		return types
	}
	for ; count > 0; count-- {
		f := readFrame{kind: FFull}
		if !compressed {
			offset = r.ReadUnsignedShort(v)
			v += 2
		} else {
			tag := int(r.b[v])
			v++
			delta := tag
			switch {
			case tag < sameLocals1StackItem:
				f.kind = FSame
			case tag < sameLocals1StackItem+64:
				delta = tag - sameLocals1StackItem
				f.kind = FSame1
				f.stack = items(1)
			case tag < sameLocals1StackItemEx:
				failMalformed("reserved stack map frame type %d", tag)
			default:
				delta = r.ReadUnsignedShort(v)
				v += 2
				switch {
				case tag == sameLocals1StackItemEx:
					f.kind = FSame1
					f.stack = items(1)
				case tag < sameFrameExtended:
					f.kind = FChop
					f.local = make([]any, sameFrameExtended-tag)
				case tag == sameFrameExtended:
					f.kind = FSame
				case tag < fullFrame:
					f.kind = FAppend
					f.local = items(tag - sameFrameExtended)
				}
			}
			offset += delta + 1
		}
		if f.kind == FFull {
			// Both the uncompressed StackMap entries and full_frame.
			n := r.ReadUnsignedShort(v)
			v += 2
			f.local = items(n)
			n = r.ReadUnsignedShort(v)
			v += 2
			f.stack = items(n)
		}
		f.offset = offset
		r.ReadLabel(offset, labels)

		switch f.kind {
		case FFull:
			locals = slices.Clone(f.local)
		case FAppend:
			locals = append(locals, f.local...)
		case FChop:
			if len(f.local) > len(locals) {
				failMalformed("chop frame at offset %d removes %d of %d locals", offset, len(f.local), len(locals))
			}
			locals = locals[:len(locals)-len(f.local)]
		}
		if expand {
			f = readFrame{offset: offset, kind: FNew, local: slices.Clone(locals), stack: f.stack}
		}
		frames = append(frames, f)
	}
	return frames
}

// readFrameItem decodes one verification_type_info at v.
func (r *Reader) readFrameItem(v int, labels []*Label) (any, int) {
	switch tag := int(r.b[v]); tag {
	case 0, 1, 2, 3, 4, 5, 6:
		return FrameItem(tag), v + 1
	case 7:
		return r.ReadClass(v + 1), v + 3
	case 8:
		return r.ReadLabel(r.ReadUnsignedShort(v+1), labels), v + 3
	default:
		failMalformed("verification type tag %d", tag)
		return nil, v
	}
}

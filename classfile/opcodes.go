package classfile

// ---------------------------------------------------------------------------
// Class file versions and access flags
// ---------------------------------------------------------------------------

// Class file versions: minor version in the high 16 bits, major in the low 16.
const (
	V1_1 = 3<<16 | 45
	V1_2 = 46
	V1_3 = 47
	V1_4 = 48
	V1_5 = 49
	V1_6 = 50
	V1_7 = 51
	V1_8 = 52
)

// Access flags for classes, fields and methods.
const (
	AccPublic       = 0x0001
	AccPrivate      = 0x0002
	AccProtected    = 0x0004
	AccStatic       = 0x0008
	AccFinal        = 0x0010
	AccSuper        = 0x0020
	AccSynchronized = 0x0020
	AccVolatile     = 0x0040
	AccBridge       = 0x0040
	AccVarargs      = 0x0080
	AccTransient    = 0x0080
	AccNative       = 0x0100
	AccInterface    = 0x0200
	AccAbstract     = 0x0400
	AccStrict       = 0x0800
	AccSynthetic    = 0x1000
	AccAnnotation   = 0x2000
	AccEnum         = 0x4000

	// AccDeprecated is a pseudo flag: it is written as a Deprecated attribute.
	AccDeprecated = 0x20000
)

// accSyntheticAttribute marks members whose synthetic status must be written
// as an attribute (class versions before 1.5).
const accSyntheticAttribute = 0x40000

// accConstructor is a private flag for <init> methods, used when computing
// the first frame of a method.
const accConstructor = 0x80000

// Array element types for OpNewarray.
const (
	TBoolean = 4
	TChar    = 5
	TFloat   = 6
	TDouble  = 7
	TByte    = 8
	TShort   = 9
	TInt     = 10
	TLong    = 11
)

// Method handle kinds.
const (
	HGetField         = 1
	HGetStatic        = 2
	HPutField         = 3
	HPutStatic        = 4
	HInvokeVirtual    = 5
	HInvokeStatic     = 6
	HInvokeSpecial    = 7
	HNewInvokeSpecial = 8
	HInvokeInterface  = 9
)

// ---------------------------------------------------------------------------
// Stack map frames as seen by visitors
// ---------------------------------------------------------------------------

// FrameKind is the type argument of MethodVisitor.VisitFrame.
type FrameKind int

const (
	FNew    FrameKind = -1 // expanded frame: full locals and stack
	FFull   FrameKind = 0  // compressed full frame
	FAppend FrameKind = 1  // same locals plus 1-3 new locals, empty stack
	FChop   FrameKind = 2  // same locals minus 1-3 locals, empty stack
	FSame   FrameKind = 3  // same locals, empty stack
	FSame1  FrameKind = 4  // same locals, one stack item

	// fInsert asks a writer in inserted-frames mode to emit the frame it
	// has been tracking at the current position.
	fInsert FrameKind = 256
)

// FrameItem is a primitive verification type in a VisitFrame local or
// stack slice. Reference types are given as internal name strings and
// uninitialized values as the *Label of their NEW instruction.
type FrameItem int

const (
	ItemTop               FrameItem = 0
	ItemInteger           FrameItem = 1
	ItemFloat             FrameItem = 2
	ItemDouble            FrameItem = 3
	ItemLong              FrameItem = 4
	ItemNull              FrameItem = 5
	ItemUninitializedThis FrameItem = 6
)

// ---------------------------------------------------------------------------
// Opcodes
// ---------------------------------------------------------------------------

const (
	OpNop             = 0
	OpAconstNull      = 1
	OpIconstM1        = 2
	OpIconst0         = 3
	OpIconst1         = 4
	OpIconst2         = 5
	OpIconst3         = 6
	OpIconst4         = 7
	OpIconst5         = 8
	OpLconst0         = 9
	OpLconst1         = 10
	OpFconst0         = 11
	OpFconst1         = 12
	OpFconst2         = 13
	OpDconst0         = 14
	OpDconst1         = 15
	OpBipush          = 16
	OpSipush          = 17
	OpLdc             = 18
	OpLdcW            = 19
	OpLdc2W           = 20
	OpIload           = 21
	OpLload           = 22
	OpFload           = 23
	OpDload           = 24
	OpAload           = 25
	OpIload0          = 26
	OpLload0          = 30
	OpFload0          = 34
	OpDload0          = 38
	OpAload0          = 42
	OpIaload          = 46
	OpLaload          = 47
	OpFaload          = 48
	OpDaload          = 49
	OpAaload          = 50
	OpBaload          = 51
	OpCaload          = 52
	OpSaload          = 53
	OpIstore          = 54
	OpLstore          = 55
	OpFstore          = 56
	OpDstore          = 57
	OpAstore          = 58
	OpIstore0         = 59
	OpLstore0         = 63
	OpFstore0         = 67
	OpDstore0         = 71
	OpAstore0         = 75
	OpIastore         = 79
	OpLastore         = 80
	OpFastore         = 81
	OpDastore         = 82
	OpAastore         = 83
	OpBastore         = 84
	OpCastore         = 85
	OpSastore         = 86
	OpPop             = 87
	OpPop2            = 88
	OpDup             = 89
	OpDupX1           = 90
	OpDupX2           = 91
	OpDup2            = 92
	OpDup2X1          = 93
	OpDup2X2          = 94
	OpSwap            = 95
	OpIadd            = 96
	OpLadd            = 97
	OpFadd            = 98
	OpDadd            = 99
	OpIsub            = 100
	OpLsub            = 101
	OpFsub            = 102
	OpDsub            = 103
	OpImul            = 104
	OpLmul            = 105
	OpFmul            = 106
	OpDmul            = 107
	OpIdiv            = 108
	OpLdiv            = 109
	OpFdiv            = 110
	OpDdiv            = 111
	OpIrem            = 112
	OpLrem            = 113
	OpFrem            = 114
	OpDrem            = 115
	OpIneg            = 116
	OpLneg            = 117
	OpFneg            = 118
	OpDneg            = 119
	OpIshl            = 120
	OpLshl            = 121
	OpIshr            = 122
	OpLshr            = 123
	OpIushr           = 124
	OpLushr           = 125
	OpIand            = 126
	OpLand            = 127
	OpIor             = 128
	OpLor             = 129
	OpIxor            = 130
	OpLxor            = 131
	OpIinc            = 132
	OpI2l             = 133
	OpI2f             = 134
	OpI2d             = 135
	OpL2i             = 136
	OpL2f             = 137
	OpL2d             = 138
	OpF2i             = 139
	OpF2l             = 140
	OpF2d             = 141
	OpD2i             = 142
	OpD2l             = 143
	OpD2f             = 144
	OpI2b             = 145
	OpI2c             = 146
	OpI2s             = 147
	OpLcmp            = 148
	OpFcmpl           = 149
	OpFcmpg           = 150
	OpDcmpl           = 151
	OpDcmpg           = 152
	OpIfeq            = 153
	OpIfne            = 154
	OpIflt            = 155
	OpIfge            = 156
	OpIfgt            = 157
	OpIfle            = 158
	OpIfIcmpeq        = 159
	OpIfIcmpne        = 160
	OpIfIcmplt        = 161
	OpIfIcmpge        = 162
	OpIfIcmpgt        = 163
	OpIfIcmple        = 164
	OpIfAcmpeq        = 165
	OpIfAcmpne        = 166
	OpGoto            = 167
	OpJsr             = 168
	OpRet             = 169
	OpTableswitch     = 170
	OpLookupswitch    = 171
	OpIreturn         = 172
	OpLreturn         = 173
	OpFreturn         = 174
	OpDreturn         = 175
	OpAreturn         = 176
	OpReturn          = 177
	OpGetstatic       = 178
	OpPutstatic       = 179
	OpGetfield        = 180
	OpPutfield        = 181
	OpInvokevirtual   = 182
	OpInvokespecial   = 183
	OpInvokestatic    = 184
	OpInvokeinterface = 185
	OpInvokedynamic   = 186
	OpNew             = 187
	OpNewarray        = 188
	OpAnewarray       = 189
	OpArraylength     = 190
	OpAthrow          = 191
	OpCheckcast       = 192
	OpInstanceof      = 193
	OpMonitorenter    = 194
	OpMonitorexit     = 195
	OpWide            = 196
	OpMultianewarray  = 197
	OpIfnull          = 198
	OpIfnonnull       = 199
	OpGotoW           = 200
	OpJsrW            = 201
)

// Pseudo opcodes written in place of a branch whose offset did not fit in a
// signed 16-bit field. Their operand is an unsigned 16-bit offset. They never
// survive into a finished class file: the writer re-reads its own output with
// ExpandPseudoInsns and rewrites them.
const (
	pseudoIfeq      = 202 // OpIfeq..OpJsr map to 202..217
	pseudoIfnull    = 218 // OpIfnull, OpIfnonnull map to 218, 219
	pseudoGoto      = pseudoIfeq + OpGoto - OpIfeq
	pseudoLastOp    = 219
	pseudoGotoW     = 220 // GOTO_W whose next instruction needs a frame
	pseudoOpDelta   = pseudoIfeq - OpIfeq
	pseudoNullDelta = pseudoIfnull - OpIfnull
)

// pseudoOf returns the pseudo opcode standing for the given short branch.
func pseudoOf(opcode int) int {
	if opcode <= OpJsr {
		return opcode + pseudoOpDelta
	}
	return opcode + pseudoNullDelta
}

// unpseudo returns the standard branch opcode a pseudo opcode stands for.
func unpseudo(opcode int) int {
	if opcode < pseudoIfnull {
		return opcode - pseudoOpDelta
	}
	return opcode - pseudoNullDelta
}

// oppositeJump returns the branch with the inverted condition.
func oppositeJump(opcode int) int {
	if opcode <= OpIfAcmpne {
		return ((opcode + 1) ^ 1) - 1
	}
	return opcode ^ 1
}

// ---------------------------------------------------------------------------
// Instruction layout kinds
// ---------------------------------------------------------------------------

type insnKind uint8

const (
	kindNoArg          insnKind = iota // no operand
	kindSByte                          // signed byte operand
	kindShort                          // signed short operand
	kindVar                            // local variable index (u1)
	kindImplVar                        // local variable index encoded in the opcode
	kindType                           // class constant (u2)
	kindFieldMeth                      // field or method reference (u2)
	kindItfMeth                        // interface method reference (u2 u1 u1)
	kindIndyMeth                       // invokedynamic (u2 u2)
	kindLabel                          // signed 16-bit branch offset
	kindLabelW                         // signed 32-bit branch offset
	kindLdc                            // u1 constant index
	kindLdcW                           // u2 constant index
	kindIinc                           // u1 local, s1 increment
	kindTableSwitch                    // tableswitch
	kindLookupSwitch                   // lookupswitch
	kindMultiANewArray                 // u2 class, u1 dims
	kindWide                           // wide prefix
	kindPseudoLabel                    // pseudo branch with unsigned 16-bit offset
)

// insnKinds maps every opcode to its operand layout.
var insnKinds = func() [256]insnKind {
	var t [256]insnKind
	set := func(kind insnKind, from, to int) {
		for op := from; op <= to; op++ {
			t[op] = kind
		}
	}
	t[OpBipush] = kindSByte
	t[OpNewarray] = kindSByte
	t[OpSipush] = kindShort
	t[OpLdc] = kindLdc
	set(kindLdcW, OpLdcW, OpLdc2W)
	set(kindVar, OpIload, OpAload)
	set(kindImplVar, OpIload0, OpAload0+3)
	set(kindVar, OpIstore, OpAstore)
	set(kindImplVar, OpIstore0, OpAstore0+3)
	t[OpRet] = kindVar
	t[OpIinc] = kindIinc
	set(kindLabel, OpIfeq, OpJsr)
	set(kindLabel, OpIfnull, OpIfnonnull)
	set(kindLabelW, OpGotoW, OpJsrW)
	t[OpTableswitch] = kindTableSwitch
	t[OpLookupswitch] = kindLookupSwitch
	set(kindFieldMeth, OpGetstatic, OpInvokestatic)
	t[OpInvokeinterface] = kindItfMeth
	t[OpInvokedynamic] = kindIndyMeth
	t[OpNew] = kindType
	t[OpAnewarray] = kindType
	t[OpCheckcast] = kindType
	t[OpInstanceof] = kindType
	t[OpWide] = kindWide
	t[OpMultianewarray] = kindMultiANewArray
	set(kindPseudoLabel, pseudoIfeq, pseudoLastOp)
	t[pseudoGotoW] = kindLabelW
	return t
}()

// stackDeltas holds the stack size variation of each opcode, in slots. It is
// meaningless for the field, method, ldc and multianewarray instructions,
// whose effect depends on their operand.
var stackDeltas = func() [256]int8 {
	var t [256]int8
	set := func(delta int8, ops ...int) {
		for _, op := range ops {
			t[op] = delta
		}
	}
	span := func(delta int8, from, to int) {
		for op := from; op <= to; op++ {
			t[op] = delta
		}
	}
	span(1, OpAconstNull, OpIconst5)
	set(2, OpLconst0, OpLconst1, OpDconst0, OpDconst1, OpLdc2W, OpLload, OpDload)
	span(1, OpFconst0, OpFconst2)
	set(1, OpBipush, OpSipush, OpLdc, OpLdcW, OpIload, OpFload, OpAload)
	span(1, OpIload0, OpIload0+3)
	span(2, OpLload0, OpLload0+3)
	span(1, OpFload0, OpFload0+3)
	span(2, OpDload0, OpDload0+3)
	span(1, OpAload0, OpAload0+3)
	set(-1, OpIaload, OpFaload, OpAaload, OpBaload, OpCaload, OpSaload)
	set(0, OpLaload, OpDaload)
	set(-1, OpIstore, OpFstore, OpAstore)
	set(-2, OpLstore, OpDstore)
	span(-1, OpIstore0, OpIstore0+3)
	span(-2, OpLstore0, OpLstore0+3)
	span(-1, OpFstore0, OpFstore0+3)
	span(-2, OpDstore0, OpDstore0+3)
	span(-1, OpAstore0, OpAstore0+3)
	set(-3, OpIastore, OpFastore, OpAastore, OpBastore, OpCastore, OpSastore)
	set(-4, OpLastore, OpDastore)
	set(-1, OpPop)
	set(-2, OpPop2)
	set(1, OpDup, OpDupX1, OpDupX2)
	set(2, OpDup2, OpDup2X1, OpDup2X2)
	for op := OpIadd; op <= OpDrem; op++ {
		switch (op - OpIadd) % 4 {
		case 0, 2:
			t[op] = -1
		default:
			t[op] = -2
		}
	}
	set(-1, OpIshl, OpLshl, OpIshr, OpLshr, OpIushr, OpLushr, OpIand, OpIor, OpIxor)
	set(-2, OpLand, OpLor, OpLxor)
	set(1, OpI2l, OpI2d, OpF2l, OpF2d)
	set(-1, OpL2i, OpL2f, OpD2i, OpD2f)
	set(-3, OpLcmp, OpDcmpl, OpDcmpg)
	set(-1, OpFcmpl, OpFcmpg)
	span(-1, OpIfeq, OpIfle)
	span(-2, OpIfIcmpeq, OpIfAcmpne)
	set(1, OpJsr, OpJsrW, OpNew)
	set(-1, OpTableswitch, OpLookupswitch, OpIreturn, OpFreturn, OpAreturn)
	set(-2, OpLreturn, OpDreturn)
	set(-1, OpAthrow, OpMonitorenter, OpMonitorexit, OpIfnull, OpIfnonnull)
	return t
}()

// opcodeNames holds the mnemonic of every standard opcode.
var opcodeNames = [...]string{
	"nop", "aconst_null", "iconst_m1", "iconst_0", "iconst_1", "iconst_2",
	"iconst_3", "iconst_4", "iconst_5", "lconst_0", "lconst_1", "fconst_0",
	"fconst_1", "fconst_2", "dconst_0", "dconst_1", "bipush", "sipush", "ldc",
	"ldc_w", "ldc2_w", "iload", "lload", "fload", "dload", "aload", "iload_0",
	"iload_1", "iload_2", "iload_3", "lload_0", "lload_1", "lload_2", "lload_3",
	"fload_0", "fload_1", "fload_2", "fload_3", "dload_0", "dload_1", "dload_2",
	"dload_3", "aload_0", "aload_1", "aload_2", "aload_3", "iaload", "laload",
	"faload", "daload", "aaload", "baload", "caload", "saload", "istore",
	"lstore", "fstore", "dstore", "astore", "istore_0", "istore_1", "istore_2",
	"istore_3", "lstore_0", "lstore_1", "lstore_2", "lstore_3", "fstore_0",
	"fstore_1", "fstore_2", "fstore_3", "dstore_0", "dstore_1", "dstore_2",
	"dstore_3", "astore_0", "astore_1", "astore_2", "astore_3", "iastore",
	"lastore", "fastore", "dastore", "aastore", "bastore", "castore", "sastore",
	"pop", "pop2", "dup", "dup_x1", "dup_x2", "dup2", "dup2_x1", "dup2_x2",
	"swap", "iadd", "ladd", "fadd", "dadd", "isub", "lsub", "fsub", "dsub",
	"imul", "lmul", "fmul", "dmul", "idiv", "ldiv", "fdiv", "ddiv", "irem",
	"lrem", "frem", "drem", "ineg", "lneg", "fneg", "dneg", "ishl", "lshl",
	"ishr", "lshr", "iushr", "lushr", "iand", "land", "ior", "lor", "ixor",
	"lxor", "iinc", "i2l", "i2f", "i2d", "l2i", "l2f", "l2d", "f2i", "f2l",
	"f2d", "d2i", "d2l", "d2f", "i2b", "i2c", "i2s", "lcmp", "fcmpl", "fcmpg",
	"dcmpl", "dcmpg", "ifeq", "ifne", "iflt", "ifge", "ifgt", "ifle",
	"if_icmpeq", "if_icmpne", "if_icmplt", "if_icmpge", "if_icmpgt",
	"if_icmple", "if_acmpeq", "if_acmpne", "goto", "jsr", "ret", "tableswitch",
	"lookupswitch", "ireturn", "lreturn", "freturn", "dreturn", "areturn",
	"return", "getstatic", "putstatic", "getfield", "putfield", "invokevirtual",
	"invokespecial", "invokestatic", "invokeinterface", "invokedynamic", "new",
	"newarray", "anewarray", "arraylength", "athrow", "checkcast", "instanceof",
	"monitorenter", "monitorexit", "wide", "multianewarray", "ifnull",
	"ifnonnull", "goto_w", "jsr_w",
}

// OpcodeName returns the mnemonic of a standard opcode, or "" if op is not one.
func OpcodeName(op int) string {
	if op < 0 || op >= len(opcodeNames) {
		return ""
	}
	return opcodeNames[op]
}

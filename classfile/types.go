package classfile

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Type: a descriptor used as an ldc operand or annotation class value
// ---------------------------------------------------------------------------

// Type wraps a field or method descriptor. Object and array types load as
// java/lang/Class constants, method types as java/lang/invoke/MethodType.
type Type struct {
	Descriptor string
}

// ObjectType returns the Type of the class with the given internal name.
func ObjectType(internalName string) Type {
	if strings.HasPrefix(internalName, "[") {
		return Type{internalName}
	}
	return Type{"L" + internalName + ";"}
}

// MethodType returns the Type of the given method descriptor.
func MethodType(desc string) Type {
	return Type{desc}
}

// IsMethod reports whether t is a method type.
func (t Type) IsMethod() bool {
	return strings.HasPrefix(t.Descriptor, "(")
}

// InternalName returns the name used in class constants: the internal name
// for object types and the descriptor for arrays.
func (t Type) InternalName() string {
	if strings.HasPrefix(t.Descriptor, "L") {
		return t.Descriptor[1 : len(t.Descriptor)-1]
	}
	return t.Descriptor
}

func (t Type) String() string {
	return t.Descriptor
}

// ---------------------------------------------------------------------------
// Handle: a method handle constant
// ---------------------------------------------------------------------------

// Handle is a reference to a field or method, used by ldc and as the
// bootstrap method of invokedynamic.
type Handle struct {
	Tag   int // one of the H* kinds
	Owner string
	Name  string
	Desc  string
	Itf   bool // the owner is an interface
}

func (h Handle) String() string {
	return fmt.Sprintf("%s.%s%s (%d)", h.Owner, h.Name, h.Desc, h.Tag)
}

// isInterfaceHandle reports whether the handle refers to an interface method.
func (h Handle) isInterfaceHandle() bool {
	return h.Itf || h.Tag == HInvokeInterface
}

// key packs the tag and interface bit for constant pool lookups.
func (h Handle) key() int32 {
	k := int32(h.Tag)
	if h.isInterfaceHandle() {
		k |= 0x100
	}
	return k
}

// ---------------------------------------------------------------------------
// Descriptor helpers
// ---------------------------------------------------------------------------

// argumentsAndReturnSizes returns the size in slots of the arguments of a
// method descriptor, plus one for the implicit receiver, and the size of its
// return value.
func argumentsAndReturnSizes(desc string) (argSize, retSize int) {
	argSize = 1
	i := 1
	for {
		c := desc[i]
		i++
		switch c {
		case ')':
			switch desc[i] {
			case 'V':
				return argSize, 0
			case 'J', 'D':
				return argSize, 2
			default:
				return argSize, 1
			}
		case 'L':
			for desc[i] != ';' {
				i++
			}
			i++
			argSize++
		case '[':
			for desc[i] == '[' {
				i++
			}
			if desc[i] == 'L' {
				for desc[i] != ';' {
					i++
				}
			}
			i++
			argSize++
		case 'J', 'D':
			argSize += 2
		default:
			argSize++
		}
	}
}

// argumentDescriptors splits a method descriptor into its argument descriptors.
func argumentDescriptors(desc string) []string {
	var args []string
	i := 1
	for desc[i] != ')' {
		start := i
		for desc[i] == '[' {
			i++
		}
		if desc[i] == 'L' {
			i = strings.IndexByte(desc[i:], ';') + i
		}
		i++
		args = append(args, desc[start:i])
	}
	return args
}

// returnDescriptor returns the return type part of a method descriptor.
func returnDescriptor(desc string) string {
	return desc[strings.IndexByte(desc, ')')+1:]
}

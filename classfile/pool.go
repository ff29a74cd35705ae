package classfile

import (
	"fmt"
	"hash/fnv"
	"math"

	"github.com/chazu/classkit/bytevec"
)

// Constant pool tags, as written in class files.
const (
	tagUTF8            = 1
	tagInt             = 3
	tagFloat           = 4
	tagLong            = 5
	tagDouble          = 6
	tagClass           = 7
	tagString          = 8
	tagField           = 9
	tagMethod          = 10
	tagInterfaceMethod = 11
	tagNameType        = 12
	tagHandle          = 15
	tagMethodType      = 16
	tagInvokeDynamic   = 18
)

// Entry kinds that never reach the serialized pool. They share the hash
// table so that frame types and bootstrap records are deduplicated the same
// way as constants.
const (
	kindTypeNormal = 30 + iota // type table entry for an internal name
	kindTypeUninit             // type table entry for a NEW at some offset
	kindTypeMerged             // cached common super type of two entries
	kindBootstrap              // bootstrap method record
)

// ---------------------------------------------------------------------------
// poolEntry: one hash-consed value
// ---------------------------------------------------------------------------

// poolEntry is a constant pool entry (or type table entry). Identity is
// structural: kind plus the payload fields relevant to that kind.
type poolEntry struct {
	index int
	kind  int

	intVal  int32
	longVal int64
	str1    string
	str2    string
	str3    string

	// aux is not part of the key. For class entries it records the index of
	// the class in the InnerClasses attribute; for method references the
	// cached argument and return sizes.
	aux int

	hash int
	next *poolEntry
}

func (e *poolEntry) computeHash() {
	h := fnv.New32a()
	var b [9]byte
	b[0] = byte(e.kind)
	switch e.kind {
	case tagInt, tagFloat, tagHandle, tagInvokeDynamic, kindTypeUninit:
		v := uint32(e.intVal)
		b[1], b[2], b[3], b[4] = byte(v>>24), byte(v>>16), byte(v>>8), byte(v)
	case tagLong, tagDouble, kindTypeMerged:
		v := uint64(e.longVal)
		for i := 0; i < 8; i++ {
			b[1+i] = byte(v >> (56 - 8*i))
		}
	}
	h.Write(b[:])
	h.Write([]byte(e.str1))
	h.Write([]byte{0})
	h.Write([]byte(e.str2))
	h.Write([]byte{0})
	h.Write([]byte(e.str3))
	e.hash = int(h.Sum32() & 0x7FFFFFFF)
}

// sameKey reports whether e and o denote the same value.
func (e *poolEntry) sameKey(o *poolEntry) bool {
	if e.kind != o.kind {
		return false
	}
	switch e.kind {
	case tagUTF8, tagString, tagClass, tagMethodType, kindTypeNormal, kindBootstrap:
		return e.str1 == o.str1
	case tagInt, tagFloat:
		return e.intVal == o.intVal
	case tagLong, tagDouble, kindTypeMerged:
		return e.longVal == o.longVal
	case tagNameType:
		return e.str1 == o.str1 && e.str2 == o.str2
	case tagInvokeDynamic, kindTypeUninit:
		return e.intVal == o.intVal && e.str1 == o.str1 && e.str2 == o.str2
	case tagHandle:
		return e.intVal == o.intVal && e.str1 == o.str1 && e.str2 == o.str2 && e.str3 == o.str3
	default: // field and method references
		return e.str1 == o.str1 && e.str2 == o.str2 && e.str3 == o.str3
	}
}

// ---------------------------------------------------------------------------
// constantPool: open-chaining hash table plus serialized pool bytes
// ---------------------------------------------------------------------------

const (
	initialBuckets = 256
	loadFactor     = 0.75
)

type constantPool struct {
	out   *bytevec.ByteVector // serialized pool entries
	next  int                 // next pool index; 0 is never assigned
	count int                 // entries in the hash table

	buckets   []*poolEntry
	threshold int

	// types is the type table used by frame computation, indexed by the
	// index field of type entries.
	types []*poolEntry

	bootstrap      *bytevec.ByteVector
	bootstrapCount int

	key poolEntry // scratch key for lookups

	err error
}

func newConstantPool() *constantPool {
	p := &constantPool{
		out:  bytevec.New(256),
		next: 1,
	}
	p.buckets = make([]*poolEntry, initialBuckets)
	p.threshold = int(loadFactor * initialBuckets)
	return p
}

func (p *constantPool) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}

// get returns the entry with the same key as k, or nil.
func (p *constantPool) get(k *poolEntry) *poolEntry {
	k.computeHash()
	for e := p.buckets[k.hash%len(p.buckets)]; e != nil; e = e.next {
		if e.hash == k.hash && e.sameKey(k) {
			return e
		}
	}
	return nil
}

// put links a copy of k into the table, growing it first when the load
// factor is exceeded.
func (p *constantPool) put(k *poolEntry) *poolEntry {
	if p.count+1 > p.threshold {
		p.rehash(len(p.buckets)*2 + 1)
	}
	p.count++
	e := *k
	i := e.hash % len(p.buckets)
	e.next = p.buckets[i]
	p.buckets[i] = &e
	return &e
}

func (p *constantPool) rehash(size int) {
	buckets := make([]*poolEntry, size)
	for _, e := range p.buckets {
		for e != nil {
			next := e.next
			i := e.hash % size
			e.next = buckets[i]
			buckets[i] = e
			e = next
		}
	}
	p.buckets = buckets
	p.threshold = int(loadFactor * float64(size))
}

// reset prepares the scratch key.
func (p *constantPool) reset(kind int) *poolEntry {
	p.key = poolEntry{kind: kind}
	return &p.key
}

// ---------------------------------------------------------------------------
// Interning
// ---------------------------------------------------------------------------

func (p *constantPool) utf8(s string) int {
	k := p.reset(tagUTF8)
	k.str1 = s
	if e := p.get(k); e != nil {
		return e.index
	}
	if n := bytevec.EncodedLen(s); n > bytevec.MaxUTF8Len {
		p.fail(fmt.Errorf("%w: %d bytes", ErrStringTooLong, n))
		return 0
	}
	p.out.PutByte(tagUTF8)
	_ = p.out.PutUTF8(s)
	return p.putNew(tagUTF8, func(k *poolEntry) { k.str1 = s }).index
}

func (p *constantPool) class(name string) *poolEntry {
	k := p.reset(tagClass)
	k.str1 = name
	if e := p.get(k); e != nil {
		return e
	}
	idx := p.utf8(name)
	p.out.Put12(tagClass, idx)
	return p.putNew(tagClass, func(k *poolEntry) { k.str1 = name })
}

func (p *constantPool) str(s string) *poolEntry {
	k := p.reset(tagString)
	k.str1 = s
	if e := p.get(k); e != nil {
		return e
	}
	idx := p.utf8(s)
	p.out.Put12(tagString, idx)
	return p.putNew(tagString, func(k *poolEntry) { k.str1 = s })
}

func (p *constantPool) methodType(desc string) *poolEntry {
	k := p.reset(tagMethodType)
	k.str1 = desc
	if e := p.get(k); e != nil {
		return e
	}
	idx := p.utf8(desc)
	p.out.Put12(tagMethodType, idx)
	return p.putNew(tagMethodType, func(k *poolEntry) { k.str1 = desc })
}

// putNew assigns the next index to a freshly serialized entry. The scratch
// key is rebuilt because nested interning may have clobbered it.
func (p *constantPool) putNew(kind int, fill func(k *poolEntry)) *poolEntry {
	k := p.reset(kind)
	fill(k)
	k.computeHash()
	k.index = p.next
	p.next++
	if kind == tagLong || kind == tagDouble {
		p.next++
	}
	return p.put(k)
}

func (p *constantPool) integer(v int32) *poolEntry {
	k := p.reset(tagInt)
	k.intVal = v
	if e := p.get(k); e != nil {
		return e
	}
	p.out.PutByte(tagInt)
	p.out.PutInt(int(v))
	return p.putNew(tagInt, func(k *poolEntry) { k.intVal = v })
}

func (p *constantPool) float(v float32) *poolEntry {
	bits := int32(math.Float32bits(v))
	k := p.reset(tagFloat)
	k.intVal = bits
	if e := p.get(k); e != nil {
		return e
	}
	p.out.PutByte(tagFloat)
	p.out.PutInt(int(bits))
	return p.putNew(tagFloat, func(k *poolEntry) { k.intVal = bits })
}

func (p *constantPool) long(v int64) *poolEntry {
	k := p.reset(tagLong)
	k.longVal = v
	if e := p.get(k); e != nil {
		return e
	}
	p.out.PutByte(tagLong)
	p.out.PutLong(v)
	return p.putNew(tagLong, func(k *poolEntry) { k.longVal = v })
}

func (p *constantPool) double(v float64) *poolEntry {
	bits := int64(math.Float64bits(v))
	k := p.reset(tagDouble)
	k.longVal = bits
	if e := p.get(k); e != nil {
		return e
	}
	p.out.PutByte(tagDouble)
	p.out.PutLong(bits)
	return p.putNew(tagDouble, func(k *poolEntry) { k.longVal = bits })
}

func (p *constantPool) nameType(name, desc string) int {
	k := p.reset(tagNameType)
	k.str1, k.str2 = name, desc
	if e := p.get(k); e != nil {
		return e.index
	}
	n := p.utf8(name)
	d := p.utf8(desc)
	p.out.PutByte(tagNameType)
	p.out.PutShort(n)
	p.out.PutShort(d)
	return p.putNew(tagNameType, func(k *poolEntry) { k.str1, k.str2 = name, desc }).index
}

func (p *constantPool) member(tag int, owner, name, desc string) *poolEntry {
	k := p.reset(tag)
	k.str1, k.str2, k.str3 = owner, name, desc
	if e := p.get(k); e != nil {
		return e
	}
	c := p.class(owner).index
	nt := p.nameType(name, desc)
	p.out.PutByte(tag)
	p.out.PutShort(c)
	p.out.PutShort(nt)
	return p.putNew(tag, func(k *poolEntry) { k.str1, k.str2, k.str3 = owner, name, desc })
}

func (p *constantPool) field(owner, name, desc string) *poolEntry {
	return p.member(tagField, owner, name, desc)
}

func (p *constantPool) method(owner, name, desc string, itf bool) *poolEntry {
	if itf {
		return p.member(tagInterfaceMethod, owner, name, desc)
	}
	return p.member(tagMethod, owner, name, desc)
}

func (p *constantPool) handle(h Handle) *poolEntry {
	k := p.reset(tagHandle)
	k.intVal = h.key()
	k.str1, k.str2, k.str3 = h.Owner, h.Name, h.Desc
	if e := p.get(k); e != nil {
		return e
	}
	var ref int
	if h.Tag <= HPutStatic {
		ref = p.field(h.Owner, h.Name, h.Desc).index
	} else {
		ref = p.method(h.Owner, h.Name, h.Desc, h.isInterfaceHandle()).index
	}
	p.out.Put11(tagHandle, h.Tag)
	p.out.PutShort(ref)
	return p.putNew(tagHandle, func(k *poolEntry) {
		k.intVal = h.key()
		k.str1, k.str2, k.str3 = h.Owner, h.Name, h.Desc
	})
}

// bootstrapMethod interns a bootstrap method record and returns its index
// in the BootstrapMethods attribute.
func (p *constantPool) bootstrapMethod(bsm Handle, args []any) int {
	rec := bytevec.New(16)
	rec.PutShort(p.handle(bsm).index)
	rec.PutShort(len(args))
	for _, a := range args {
		e, err := p.constant(a)
		if err != nil {
			p.fail(err)
			return 0
		}
		rec.PutShort(e.index)
	}
	k := p.reset(kindBootstrap)
	k.str1 = string(rec.Bytes())
	if e := p.get(k); e != nil {
		return int(e.intVal)
	}
	if p.bootstrap == nil {
		p.bootstrap = bytevec.New(64)
	}
	b := rec.Bytes()
	p.bootstrap.PutByteArray(b, len(b))
	idx := p.bootstrapCount
	p.bootstrapCount++
	k.intVal = int32(idx)
	p.put(k)
	return idx
}

func (p *constantPool) invokeDynamic(name, desc string, bsm Handle, args []any) *poolEntry {
	bsmIndex := p.bootstrapMethod(bsm, args)
	k := p.reset(tagInvokeDynamic)
	k.intVal = int32(bsmIndex)
	k.str1, k.str2 = name, desc
	if e := p.get(k); e != nil {
		return e
	}
	nt := p.nameType(name, desc)
	p.out.PutByte(tagInvokeDynamic)
	p.out.PutShort(bsmIndex)
	p.out.PutShort(nt)
	return p.putNew(tagInvokeDynamic, func(k *poolEntry) {
		k.intVal = int32(bsmIndex)
		k.str1, k.str2 = name, desc
	})
}

// constant interns an ldc operand, bootstrap argument or ConstantValue.
func (p *constantPool) constant(v any) (*poolEntry, error) {
	switch c := v.(type) {
	case int32:
		return p.integer(c), nil
	case int:
		return p.integer(int32(c)), nil
	case int8:
		return p.integer(int32(c)), nil
	case int16:
		return p.integer(int32(c)), nil
	case uint16:
		return p.integer(int32(c)), nil
	case bool:
		if c {
			return p.integer(1), nil
		}
		return p.integer(0), nil
	case float32:
		return p.float(c), nil
	case int64:
		return p.long(c), nil
	case float64:
		return p.double(c), nil
	case string:
		return p.str(c), nil
	case Type:
		if c.IsMethod() {
			return p.methodType(c.Descriptor), nil
		}
		return p.class(c.InternalName()), nil
	case Handle:
		return p.handle(c), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedConstant, v)
	}
}

// ---------------------------------------------------------------------------
// Type table (frame computation)
// ---------------------------------------------------------------------------

func (p *constantPool) addTypeEntry(k *poolEntry) int {
	k.computeHash()
	k.index = len(p.types)
	e := p.put(k)
	p.types = append(p.types, e)
	return e.index
}

// addType returns the type table index of an internal name.
func (p *constantPool) addType(name string) int {
	k := p.reset(kindTypeNormal)
	k.str1 = name
	if e := p.get(k); e != nil {
		return e.index
	}
	return p.addTypeEntry(k)
}

// addUninitializedType returns the type table index of the value created by
// the NEW instruction at offset.
func (p *constantPool) addUninitializedType(name string, offset int) int {
	k := p.reset(kindTypeUninit)
	k.str1 = name
	k.intVal = int32(offset)
	if e := p.get(k); e != nil {
		return e.index
	}
	return p.addTypeEntry(k)
}

// mergedType returns the type table index of the common super type of the
// two given type table entries, caching the result.
func (p *constantPool) mergedType(t, u int, common func(a, b string) string) int {
	if u < t {
		t, u = u, t
	}
	k := p.reset(kindTypeMerged)
	k.longVal = int64(t) | int64(u)<<32
	if e := p.get(k); e != nil {
		return e.aux
	}
	super := common(p.types[t].str1, p.types[u].str1)
	result := p.addType(super)
	k = p.reset(kindTypeMerged)
	k.longVal = int64(t) | int64(u)<<32
	k.aux = result
	k.computeHash()
	p.put(k)
	return result
}

// typeName returns the internal name of a type table entry.
func (p *constantPool) typeName(i int) string {
	return p.types[i].str1
}

// clearInnerClassMarks forgets which classes have an InnerClasses entry.
func (p *constantPool) clearInnerClassMarks() {
	for _, e := range p.buckets {
		for ; e != nil; e = e.next {
			if e.kind == tagClass {
				e.aux = 0
			}
		}
	}
}

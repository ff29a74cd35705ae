package classfile

import "github.com/chazu/classkit/bytevec"

// ---------------------------------------------------------------------------
// Attribute extension point
// ---------------------------------------------------------------------------

// Attribute is a non-standard attribute. Attributes the reader has no codec
// for keep their raw Content; attributes decoded by a codec carry the decoded
// Value and are re-encoded through the same codec when written.
type Attribute struct {
	Name    string
	Content []byte
	Value   any
	Codec   AttributeCodec
}

// AttributeCodec decodes and encodes one kind of non-standard attribute,
// selected by name. Decode receives the reader, the offset and length of the
// attribute body, and for attributes of a Code attribute the label table of
// the method (nil otherwise). Encode returns the body bytes; it may intern
// constants through the writer.
type AttributeCodec interface {
	Name() string
	Decode(r *Reader, off, length int, labels []*Label) (any, error)
	Encode(w *Writer, value any) ([]byte, error)
}

// IsCodeAttribute reports whether an attribute belongs to a Code attribute
// rather than to a class, field or method. Codecs signal this by implementing
// CodeAttributeCodec.
func (a *Attribute) IsCodeAttribute() bool {
	c, ok := a.Codec.(CodeAttributeCodec)
	return ok && c.IsCodeAttribute()
}

// CodeAttributeCodec is implemented by codecs of attributes that live inside
// a Code attribute.
type CodeAttributeCodec interface {
	AttributeCodec
	IsCodeAttribute() bool
}

// body returns the serialized body of the attribute.
func (a *Attribute) body(w *Writer) []byte {
	if a.Codec == nil {
		return a.Content
	}
	b, err := a.Codec.Encode(w, a.Value)
	if err != nil {
		w.fail(err)
		return nil
	}
	return b
}

// attributeList is an ordered list of attributes of one class, member or
// Code attribute.
type attributeList []*Attribute

// attributeWriter collects the attributes of one structure. Names are
// interned as attributes are added, so everything must be added before the
// constant pool is written.
type attributeWriter struct {
	names  []int
	bodies [][]byte
}

func (a *attributeWriter) add(w *Writer, name string, body []byte) {
	a.names = append(a.names, w.pool.utf8(name))
	a.bodies = append(a.bodies, body)
}

// addList adds non-standard attributes, encoding those that have a codec.
func (a *attributeWriter) addList(w *Writer, l attributeList) {
	for _, attr := range l {
		a.add(w, attr.Name, attr.body(w))
	}
}

func (a *attributeWriter) addAnnotations(w *Writer, name string, anns []*AnnotationWriter) {
	if len(anns) == 0 {
		return
	}
	a.add(w, name, annotationsBody(anns))
}

func (a *attributeWriter) addParameterAnnotations(w *Writer, name string, params [][]*AnnotationWriter) {
	if len(params) == 0 {
		return
	}
	a.add(w, name, parameterAnnotationsBody(params))
}

// put writes the attribute count followed by the attributes.
func (a *attributeWriter) put(out *bytevec.ByteVector) {
	out.PutShort(len(a.names))
	for i, b := range a.bodies {
		out.PutShort(a.names[i])
		out.PutInt(len(b))
		out.PutByteArray(b, len(b))
	}
}

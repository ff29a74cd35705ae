package classfile

import "github.com/chazu/classkit/bytevec"

// FieldWriter is the FieldVisitor returned by Writer.VisitField.
type FieldWriter struct {
	cw         *Writer
	access     int
	nameIndex  int
	descIndex  int
	sigIndex   int
	valueIndex int

	visibleAnns   []*AnnotationWriter
	invisibleAnns []*AnnotationWriter
	attrs         attributeList
}

var _ FieldVisitor = (*FieldWriter)(nil)

func newFieldWriter(cw *Writer, access int, name, desc, signature string, value any) *FieldWriter {
	fw := &FieldWriter{
		cw:        cw,
		access:    access,
		nameIndex: cw.pool.utf8(name),
		descIndex: cw.pool.utf8(desc),
	}
	if signature != "" {
		fw.sigIndex = cw.pool.utf8(signature)
	}
	if value != nil {
		e, err := cw.pool.constant(value)
		if err != nil {
			cw.fail(err)
		} else {
			fw.valueIndex = e.index
		}
	}
	return fw
}

func (fw *FieldWriter) VisitAnnotation(desc string, visible bool) AnnotationVisitor {
	aw := newTopAnnotationWriter(fw.cw, desc)
	if visible {
		fw.visibleAnns = append(fw.visibleAnns, aw)
	} else {
		fw.invisibleAnns = append(fw.invisibleAnns, aw)
	}
	return aw
}

func (fw *FieldWriter) VisitAttribute(attr *Attribute) {
	fw.attrs = append(fw.attrs, attr)
}

func (fw *FieldWriter) VisitEnd() {}

func (fw *FieldWriter) put(out *bytevec.ByteVector) {
	w := fw.cw
	out.PutShort(fw.access &^ syntheticMask(fw.access))
	out.PutShort(fw.nameIndex)
	out.PutShort(fw.descIndex)

	var attrs attributeWriter
	if fw.valueIndex != 0 {
		attrs.add(w, "ConstantValue", []byte{byte(fw.valueIndex >> 8), byte(fw.valueIndex)})
	}
	w.putCommonAttributes(&attrs, fw.access, fw.sigIndex)
	attrs.addAnnotations(w, "RuntimeVisibleAnnotations", fw.visibleAnns)
	attrs.addAnnotations(w, "RuntimeInvisibleAnnotations", fw.invisibleAnns)
	attrs.addList(w, fw.attrs)
	attrs.put(out)
}

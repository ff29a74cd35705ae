package classfile

// handler is an exception table entry.
type handler struct {
	start, end, handler *Label
	desc                string // caught type, "" for any
	typeIndex           int    // pool index of desc, 0 for any
}

// removeHandlerRange removes the code range [start, end) from every handler,
// splitting handlers that strictly contain it. end == nil means the end of
// the method.
func removeHandlerRange(hs []*handler, start, end *Label) []*handler {
	s := start.position
	e := int(^uint(0) >> 1)
	if end != nil {
		e = end.position
	}
	out := hs[:0:0]
	for _, h := range hs {
		hstart, hend := h.start.position, h.end.position
		if s >= hend || e <= hstart {
			out = append(out, h)
			continue
		}
		switch {
		case s <= hstart && e >= hend:
			// Fully covered: dropped.
		case s <= hstart:
			h.start = end
			out = append(out, h)
		case e >= hend:
			h.end = start
			out = append(out, h)
		default:
			tail := *h
			tail.start = end
			h.end = start
			out = append(out, h, &tail)
		}
	}
	return out
}

package mqc

// Decoder is the MQ arithmetic decoder (ISO/IEC 15444-1 C.3.2 / C.3.5).
//
// The input is copied with a 0xFF 0xFF sentinel appended, so bytein never
// indexes past the slice; once the sentinel is reached the decoder feeds
// synthesized 1-bits forever.
type Decoder struct {
	data    []byte
	bp      int // index of the last consumed byte
	dataLen int // segment length without the sentinel

	a  uint32
	c  uint32
	ct int

	contexts []uint8
}

// NewDecoder creates an MQ decoder over data with numContexts contexts in
// their initial state.
func NewDecoder(data []byte, numContexts int) *Decoder {
	d := &Decoder{
		data:     appendSentinel(data),
		dataLen:  len(data),
		contexts: make([]uint8, numContexts),
	}
	d.init()
	return d
}

// NewDecoderWithContexts creates an MQ decoder that inherits the context
// states of a previous segment. TERMALL segments are decoded this way:
// each gets a fresh arithmetic state but carries the contexts across.
func NewDecoderWithContexts(data []byte, prev []uint8) *Decoder {
	d := &Decoder{
		data:     appendSentinel(data),
		dataLen:  len(data),
		contexts: make([]uint8, len(prev)),
	}
	copy(d.contexts, prev)
	d.init()
	return d
}

// init implements INITDEC (C.3.5).
func (d *Decoder) init() {
	if d.dataLen == 0 {
		d.c = 0xFF << 16
	} else {
		d.c = uint32(d.data[0]) << 16
	}
	d.bytein()
	d.c <<= 7
	d.ct -= 7
	d.a = 0x8000
}

// Reinit resets the arithmetic registers on a new segment while keeping
// context states and read position untouched except for the new buffer.
func (d *Decoder) Reinit(data []byte) {
	d.data = appendSentinel(data)
	d.bp = 0
	d.dataLen = len(data)
	d.a = 0
	d.c = 0
	d.ct = 0
	d.init()
}

// Decode returns the next binary decision in the given context.
func (d *Decoder) Decode(contextID int) int {
	cx := &d.contexts[contextID]
	st := mqStates[*cx&ctxStateMask]
	mps := int(*cx >> ctxMPSShift)

	d.a -= st.qe

	var bit int
	if d.c>>16 < st.qe {
		// LPS exchange (C.3.2).
		if d.a < st.qe {
			d.a = st.qe
			bit = mps
			*cx = st.nmps | uint8(mps)<<ctxMPSShift
		} else {
			d.a = st.qe
			bit = 1 - mps
			newMPS := mps
			if st.sw == 1 {
				newMPS = 1 - mps
			}
			*cx = st.nlps | uint8(newMPS)<<ctxMPSShift
		}
		d.renorm()
		return bit
	}

	d.c -= st.qe << 16
	if d.a&0x8000 != 0 {
		return mps
	}
	if d.a < st.qe {
		bit = 1 - mps
		newMPS := mps
		if st.sw == 1 {
			newMPS = 1 - mps
		}
		*cx = st.nlps | uint8(newMPS)<<ctxMPSShift
	} else {
		bit = mps
		*cx = st.nmps | uint8(mps)<<ctxMPSShift
	}
	d.renorm()
	return bit
}

func (d *Decoder) renorm() {
	for d.a < 0x8000 {
		if d.ct == 0 {
			d.bytein()
		}
		d.a <<= 1
		d.c <<= 1
		d.ct--
	}
}

// bytein loads the next compressed byte into C, undoing bit stuffing: a
// byte following 0xFF contributes only 7 bits, and anything above 0x8F
// after 0xFF is a marker, at which point 1-bits are synthesized.
func (d *Decoder) bytein() {
	next := d.data[d.bp+1]
	if d.data[d.bp] == 0xFF {
		if next > 0x8F {
			d.c += 0xFF00
			d.ct = 8
		} else {
			d.bp++
			d.c += uint32(next) << 9
			d.ct = 7
		}
	} else {
		d.bp++
		d.c += uint32(next) << 8
		d.ct = 8
	}
}

// ResetContexts restores the initial context-state assignment.
func (d *Decoder) ResetContexts() {
	for i := range d.contexts {
		d.contexts[i] = 0
	}
}

// Contexts returns a copy of the context states, for carrying them into the
// next terminated segment.
func (d *Decoder) Contexts() []uint8 {
	out := make([]uint8, len(d.contexts))
	copy(out, d.contexts)
	return out
}

// ContextState returns the packed state byte of one context.
func (d *Decoder) ContextState(contextID int) uint8 {
	return d.contexts[contextID]
}

// SetContextState overrides one context's packed state byte.
func (d *Decoder) SetContextState(contextID int, state uint8) {
	d.contexts[contextID] = state
}

// RawDecoder reads uncoded bits from the lazy-region segments, honoring
// the stuffing rule after 0xFF bytes.
type RawDecoder struct {
	data []byte
	bp   int
	c    uint32
	ct   int
}

// NewRawDecoder creates a raw (bypass) decoder over data.
func NewRawDecoder(data []byte) *RawDecoder {
	return &RawDecoder{data: appendSentinel(data)}
}

// Decode returns the next raw bit.
func (r *RawDecoder) Decode() int {
	if r.ct == 0 {
		if r.c == 0xFF {
			next := r.data[r.bp]
			if next > 0x8F {
				r.c = 0xFF
				r.ct = 8
			} else {
				r.c = uint32(next)
				r.bp++
				r.ct = 7
			}
		} else {
			r.c = uint32(r.data[r.bp])
			r.bp++
			r.ct = 8
		}
	}
	r.ct--
	return int(r.c>>uint(r.ct)) & 0x01
}

package mqc

// Encoder is the MQ arithmetic encoder (ISO/IEC 15444-1 C.3.1).
//
// The output buffer keeps one dummy byte at index 0 so that byteout's
// carry propagation always has a predecessor to increment; callers only
// ever see buffer[start:].
type Encoder struct {
	buffer []byte
	start  int
	bp     int

	a  uint32 // probability interval register
	c  uint32 // code register
	ct int    // shift counter until next byteout

	contexts []uint8
}

// rawIdle marks the raw coder as not yet started; the first BypassEncode
// after BypassInit begins a fresh byte.
const rawIdle = -1

// NewEncoder creates an MQ encoder with numContexts contexts, all in their
// initial state (state 0, MPS 0).
func NewEncoder(numContexts int) *Encoder {
	return &Encoder{
		buffer:   make([]byte, 1, 1024),
		start:    1,
		bp:       0,
		a:        0x8000,
		ct:       12,
		contexts: make([]uint8, numContexts),
	}
}

// Encode codes one binary decision in the given context.
func (e *Encoder) Encode(bit int, contextID int) {
	cx := &e.contexts[contextID]
	st := mqStates[*cx&ctxStateMask]
	mps := int(*cx >> ctxMPSShift)

	e.a -= st.qe
	if bit == mps {
		if e.a&0x8000 != 0 {
			e.c += st.qe
			return
		}
		// Conditional exchange on the MPS path (C.3.2).
		if e.a < st.qe {
			e.a = st.qe
		} else {
			e.c += st.qe
		}
		*cx = st.nmps | uint8(mps)<<ctxMPSShift
		e.renorm()
		return
	}

	// LPS path with conditional exchange.
	if e.a < st.qe {
		e.c += st.qe
	} else {
		e.a = st.qe
	}
	newMPS := mps
	if st.sw == 1 {
		newMPS = 1 - mps
	}
	*cx = st.nlps | uint8(newMPS)<<ctxMPSShift
	e.renorm()
}

func (e *Encoder) renorm() {
	for e.a < 0x8000 {
		e.a <<= 1
		e.c <<= 1
		e.ct--
		if e.ct == 0 {
			e.byteout()
		}
	}
}

// byteout emits one byte of the code register, honoring the bit-stuffing
// rule: a byte following 0xFF carries only 7 payload bits.
func (e *Encoder) byteout() {
	e.grow(e.bp)
	if e.buffer[e.bp] == 0xFF {
		e.bp++
		e.grow(e.bp)
		e.buffer[e.bp] = byte(e.c >> 20)
		e.c &= 0xFFFFF
		e.ct = 7
		return
	}
	if e.c&0x8000000 != 0 {
		// Carry into the previous byte.
		e.buffer[e.bp]++
		if e.buffer[e.bp] == 0xFF {
			e.c &= 0x7FFFFFF
			e.bp++
			e.grow(e.bp)
			e.buffer[e.bp] = byte(e.c >> 20)
			e.c &= 0xFFFFF
			e.ct = 7
			return
		}
	}
	e.bp++
	e.grow(e.bp)
	e.buffer[e.bp] = byte(e.c >> 19)
	e.c &= 0x7FFFF
	e.ct = 8
}

// setbits fills the trailing bits of C with ones ahead of a flush.
func (e *Encoder) setbits() {
	limit := e.c + e.a
	e.c |= 0xFFFF
	if e.c >= limit {
		e.c -= 0x8000
	}
}

// Flush terminates the code stream and returns the encoded bytes. A coding
// pass must not end with 0xFF, so a trailing stuffed byte is dropped.
func (e *Encoder) Flush() []byte {
	e.FlushToOutput()
	return e.Bytes()
}

// FlushToOutput performs the normal termination without slicing out the
// result; used between terminated passes where encoding continues into the
// same buffer.
func (e *Encoder) FlushToOutput() {
	e.setbits()
	e.c <<= uint(e.ct)
	e.byteout()
	e.c <<= uint(e.ct)
	e.byteout()
	if e.buffer[e.bp] != 0xFF {
		e.bp++
	}
}

// FlushErterm performs the easy (predictable) termination used by the
// ERTERM/PTERM modes: the minimum number of bits is pushed out so the
// decoder can detect the termination point.
func (e *Encoder) FlushErterm() {
	k := 11 - e.ct + 1
	for k > 0 {
		e.c <<= uint(e.ct)
		e.ct = 0
		e.byteout()
		k -= e.ct
	}
	if e.buffer[e.bp] != 0xFF {
		e.byteout()
	}
}

// Bytes returns the encoded bytes produced so far.
func (e *Encoder) Bytes() []byte {
	if e.bp < e.start {
		return nil
	}
	return e.buffer[e.start:e.bp]
}

// NumBytes reports the number of bytes produced so far; Tier-1 samples it
// after every coding pass to build the rate column of the pass table.
func (e *Encoder) NumBytes() int {
	if e.bp < e.start {
		return 0
	}
	return e.bp - e.start
}

// Restart reinitializes the arithmetic state after a terminated pass while
// keeping the output buffer (RESTART mode switch).
func (e *Encoder) Restart() {
	e.a = 0x8000
	e.c = 0
	e.ct = 12
	if e.bp > e.start-1 {
		e.bp--
	}
	if e.bp >= 0 && e.bp < len(e.buffer) && e.buffer[e.bp] == 0xFF {
		e.ct = 13
	}
}

// BypassInit switches the encoder into raw (bypass) mode for the lazy
// coding passes.
func (e *Encoder) BypassInit() {
	// On a fresh encoder bp still sits on the dummy byte; raw bytes go
	// after it.
	if e.bp < e.start {
		e.bp = e.start
	}
	e.c = 0
	e.ct = rawIdle
}

// BypassEncode appends one raw bit, applying the stuffing rule after an
// 0xFF output byte.
func (e *Encoder) BypassEncode(bit int) {
	if e.ct == rawIdle {
		e.ct = 8
	}
	e.ct--
	e.c += uint32(bit) << uint(e.ct)
	if e.ct == 0 {
		e.grow(e.bp)
		e.buffer[e.bp] = byte(e.c)
		e.ct = 8
		if e.buffer[e.bp] == 0xFF {
			e.ct = 7
		}
		e.bp++
		e.c = 0
	}
}

// BypassPending reports the bytes a raw flush would still add; Tier-1 uses
// it for the rate of non-terminated lazy passes.
func (e *Encoder) BypassPending(erterm bool) int {
	if e.ct >= 0 && e.ct < 7 {
		return 1
	}
	if e.ct == 7 && (erterm || (e.bp > 0 && e.buffer[e.bp-1] != 0xFF)) {
		return 1
	}
	return 0
}

// BypassFlush terminates raw mode. With erterm the alternating 0/1 filler
// makes the termination point detectable; without it redundant trailing
// bytes are trimmed.
func (e *Encoder) BypassFlush(erterm bool) {
	if (e.ct >= 0 && e.ct < 7) || (e.ct == 7 && (erterm || (e.bp > 0 && e.buffer[e.bp-1] != 0xFF))) {
		fill := 0
		for e.ct > 0 {
			e.ct--
			e.c += uint32(fill) << uint(e.ct)
			fill = 1 - fill
		}
		e.grow(e.bp)
		e.buffer[e.bp] = byte(e.c)
		e.bp++
	} else if e.ct == 7 && e.bp > 0 && e.buffer[e.bp-1] == 0xFF {
		if !erterm {
			e.bp--
		}
	} else if e.ct == 8 && !erterm && e.bp > 1 && e.buffer[e.bp-1] == 0x7F && e.buffer[e.bp-2] == 0xFF {
		e.bp -= 2
	}
}

// SegmarkEncode emits the 0xA segmentation symbol at the end of a cleanup
// pass (SEGSYM mode switch).
func (e *Encoder) SegmarkEncode(uniContext int) {
	for i := 1; i < 5; i++ {
		e.Encode(i%2, uniContext)
	}
}

// ResetContexts restores the initial context-state assignment.
func (e *Encoder) ResetContexts() {
	for i := range e.contexts {
		e.contexts[i] = 0
	}
}

// ContextState returns the packed state byte of one context.
func (e *Encoder) ContextState(contextID int) uint8 {
	return e.contexts[contextID]
}

// SetContextState overrides one context's packed state byte.
func (e *Encoder) SetContextState(contextID int, state uint8) {
	e.contexts[contextID] = state
}

func (e *Encoder) grow(idx int) {
	if idx < len(e.buffer) {
		return
	}
	needed := idx + 1
	if needed <= cap(e.buffer) {
		e.buffer = e.buffer[:needed]
		return
	}
	newCap := 2 * cap(e.buffer)
	if newCap < needed {
		newCap = needed
	}
	buf := make([]byte, needed, newCap)
	copy(buf, e.buffer)
	e.buffer = buf
}

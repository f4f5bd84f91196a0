package codestream

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Writer serializes marker segments into a code stream.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter returns an empty writer.
func NewWriter() *Writer { return &Writer{} }

// Bytes returns the stream written so far.
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

// Len returns the current stream length.
func (w *Writer) Len() int { return w.buf.Len() }

func (w *Writer) u8(v uint8)   { w.buf.WriteByte(v) }
func (w *Writer) u16(v uint16) { binary.Write(&w.buf, binary.BigEndian, v) }
func (w *Writer) u32(v uint32) { binary.Write(&w.buf, binary.BigEndian, v) }

// segment writes a marker with its 2-byte length followed by the body.
func (w *Writer) segment(marker uint16, body []byte) {
	w.u16(marker)
	w.u16(uint16(len(body) + 2))
	w.buf.Write(body)
}

// WriteSOC emits the start-of-codestream delimiter.
func (w *Writer) WriteSOC() { w.u16(MarkerSOC) }

// WriteEOC emits the end-of-codestream delimiter.
func (w *Writer) WriteEOC() { w.u16(MarkerEOC) }

// WriteSOD emits the start-of-data delimiter.
func (w *Writer) WriteSOD() { w.u16(MarkerSOD) }

// WriteRaw appends packet bytes verbatim.
func (w *Writer) WriteRaw(data []byte) { w.buf.Write(data) }

// WriteSIZ emits the image-and-tile-size segment.
func (w *Writer) WriteSIZ(s *SIZ) error {
	if len(s.Components) == 0 || len(s.Components) > 16384 {
		return fmt.Errorf("codestream: SIZ with %d components", len(s.Components))
	}
	var b bytes.Buffer
	bw := func(v any) { binary.Write(&b, binary.BigEndian, v) }
	bw(s.Rsiz)
	bw(s.Xsiz)
	bw(s.Ysiz)
	bw(s.XOsiz)
	bw(s.YOsiz)
	bw(s.XTsiz)
	bw(s.YTsiz)
	bw(s.XTOsiz)
	bw(s.YTOsiz)
	bw(uint16(len(s.Components)))
	for _, c := range s.Components {
		b.WriteByte(c.Ssiz)
		b.WriteByte(c.XRsiz)
		b.WriteByte(c.YRsiz)
	}
	w.segment(MarkerSIZ, b.Bytes())
	return nil
}

func codBody(c *COD, withScod bool) []byte {
	var b bytes.Buffer
	if withScod {
		b.WriteByte(c.Scod)
		binary.Write(&b, binary.BigEndian, uint8(c.Progression))
		binary.Write(&b, binary.BigEndian, c.NumLayers)
		b.WriteByte(c.MCT)
	}
	b.WriteByte(c.NumLevels)
	b.WriteByte(c.CblkExpW)
	b.WriteByte(c.CblkExpH)
	b.WriteByte(c.CblkStyle)
	b.WriteByte(c.Transform)
	if c.Scod&ScodPrecincts != 0 {
		b.Write(c.PrecinctSizes)
	}
	return b.Bytes()
}

// WriteCOD emits the default coding style.
func (w *Writer) WriteCOD(c *COD) {
	w.segment(MarkerCOD, codBody(c, true))
}

// WriteCOC emits a per-component coding-style override.
func (w *Writer) WriteCOC(c *COC, numComponents int) {
	var b bytes.Buffer
	if numComponents < 257 {
		b.WriteByte(uint8(c.Component))
	} else {
		binary.Write(&b, binary.BigEndian, uint16(c.Component))
	}
	b.WriteByte(c.COD.Scod & ScodPrecincts)
	b.Write(codBody(&c.COD, false))
	w.segment(MarkerCOC, b.Bytes())
}

func qcdBody(q *QCD) []byte {
	var b bytes.Buffer
	b.WriteByte(q.Sqcd)
	if q.Style() == QuantNone {
		for _, s := range q.Steps {
			b.WriteByte(uint8(s))
		}
	} else {
		for _, s := range q.Steps {
			binary.Write(&b, binary.BigEndian, s)
		}
	}
	return b.Bytes()
}

// WriteQCD emits the default quantization: one byte expn<<3 per subband
// for the reversible style, two bytes expn<<11|mant otherwise.
func (w *Writer) WriteQCD(q *QCD) {
	w.segment(MarkerQCD, qcdBody(q))
}

// WriteQCC emits a per-component quantization override.
func (w *Writer) WriteQCC(q *QCC, numComponents int) {
	var b bytes.Buffer
	if numComponents < 257 {
		b.WriteByte(uint8(q.Component))
	} else {
		binary.Write(&b, binary.BigEndian, uint16(q.Component))
	}
	b.Write(qcdBody(&q.QCD))
	w.segment(MarkerQCC, b.Bytes())
}

// WriteRGN emits the ROI upshift of one component.
func (w *Writer) WriteRGN(r *RGN, numComponents int) {
	var b bytes.Buffer
	if numComponents < 257 {
		b.WriteByte(uint8(r.Component))
	} else {
		binary.Write(&b, binary.BigEndian, uint16(r.Component))
	}
	b.WriteByte(r.Style)
	b.WriteByte(r.Shift)
	w.segment(MarkerRGN, b.Bytes())
}

// WritePOC emits the progression-order-change list.
func (w *Writer) WritePOC(entries []POCEntry, numComponents int) {
	var b bytes.Buffer
	wide := numComponents >= 257
	for _, e := range entries {
		b.WriteByte(e.RSpoc)
		if wide {
			binary.Write(&b, binary.BigEndian, e.CSpoc)
		} else {
			b.WriteByte(uint8(e.CSpoc))
		}
		binary.Write(&b, binary.BigEndian, e.LYEpoc)
		b.WriteByte(e.REpoc)
		if wide {
			binary.Write(&b, binary.BigEndian, e.CEpoc)
		} else {
			b.WriteByte(uint8(e.CEpoc))
		}
		b.WriteByte(e.Ppoc)
	}
	w.segment(MarkerPOC, b.Bytes())
}

// WriteCOM emits a comment segment.
func (w *Writer) WriteCOM(c *COM) {
	var b bytes.Buffer
	binary.Write(&b, binary.BigEndian, c.Registration)
	b.Write(c.Data)
	w.segment(MarkerCOM, b.Bytes())
}

// WritePLT emits one packet-length segment payload (Zplt byte included).
func (w *Writer) WritePLT(payload []byte) {
	w.segment(MarkerPLT, payload)
}

// TLMEntry is one tile-part length record.
type TLMEntry struct {
	TileIndex int
	Length    uint32
}

// WriteTLM emits a tile-part length segment with 8-bit tile indices and
// 32-bit lengths.
func (w *Writer) WriteTLM(ztlm uint8, entries []TLMEntry) {
	var b bytes.Buffer
	b.WriteByte(ztlm)
	b.WriteByte(0x50) // ST=1 (8-bit Ttlm), SP=1 (32-bit Ptlm)
	for _, e := range entries {
		b.WriteByte(uint8(e.TileIndex))
		binary.Write(&b, binary.BigEndian, e.Length)
	}
	w.segment(MarkerTLM, b.Bytes())
}

// WriteSOT emits a start-of-tile-part header. Psot covers everything
// from the SOT marker through the end of the tile-part data.
func (w *Writer) WriteSOT(s *SOT) {
	w.u16(MarkerSOT)
	w.u16(10)
	w.u16(uint16(s.TileIndex))
	w.u32(s.Psot)
	w.u8(s.TPsot)
	w.u8(s.TNsot)
}

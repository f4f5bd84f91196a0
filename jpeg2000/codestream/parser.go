package codestream

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrCorrupt reports a malformed code stream.
var ErrCorrupt = errors.New("codestream: corrupt input")

// Parser walks a code stream byte slice.
type Parser struct {
	data []byte
	pos  int
}

// NewParser wraps a complete code stream.
func NewParser(data []byte) *Parser { return &Parser{data: data} }

// Parse reads the main header and every tile-part.
func (p *Parser) Parse() (*Codestream, error) {
	cs := &Codestream{}

	m, err := p.readMarker()
	if err != nil || m != MarkerSOC {
		return nil, fmt.Errorf("%w: missing SOC", ErrCorrupt)
	}
	if err := p.parseMainHeader(cs); err != nil {
		return nil, err
	}

	for {
		m, err := p.readMarker()
		if err != nil {
			return nil, fmt.Errorf("%w: unexpected end before EOC", ErrCorrupt)
		}
		switch m {
		case MarkerEOC:
			return cs, nil
		case MarkerSOT:
			tp, err := p.parseTilePart(cs)
			if err != nil {
				return nil, err
			}
			cs.TileParts = append(cs.TileParts, *tp)
		default:
			return nil, fmt.Errorf("%w: unexpected marker %s between tile-parts", ErrCorrupt, MarkerName(m))
		}
	}
}

func (p *Parser) parseMainHeader(cs *Codestream) error {
	m, err := p.readMarker()
	if err != nil || m != MarkerSIZ {
		return fmt.Errorf("%w: SIZ must follow SOC", ErrCorrupt)
	}
	if err := p.parseSIZ(&cs.SIZ); err != nil {
		return err
	}

	for {
		m, err := p.peekMarker()
		if err != nil {
			return fmt.Errorf("%w: truncated main header", ErrCorrupt)
		}
		if m == MarkerSOT || m == MarkerEOC {
			return nil
		}
		p.pos += 2
		body, err := p.readSegmentBody()
		if err != nil {
			return err
		}
		switch m {
		case MarkerCOD:
			if err := parseCOD(body, &cs.COD); err != nil {
				return err
			}
		case MarkerCOC:
			coc, err := parseCOC(body, len(cs.SIZ.Components))
			if err != nil {
				return err
			}
			cs.COCs = append(cs.COCs, *coc)
		case MarkerQCD:
			if err := parseQCD(body, &cs.QCD); err != nil {
				return err
			}
		case MarkerQCC:
			qcc, err := parseQCC(body, len(cs.SIZ.Components))
			if err != nil {
				return err
			}
			cs.QCCs = append(cs.QCCs, *qcc)
		case MarkerRGN:
			rgn, err := parseRGN(body, len(cs.SIZ.Components))
			if err != nil {
				return err
			}
			cs.RGNs = append(cs.RGNs, *rgn)
		case MarkerPOC:
			pocs, err := parsePOC(body, len(cs.SIZ.Components))
			if err != nil {
				return err
			}
			cs.POCs = append(cs.POCs, pocs...)
		case MarkerCOM:
			if len(body) < 2 {
				return fmt.Errorf("%w: short COM", ErrCorrupt)
			}
			cs.COMs = append(cs.COMs, COM{
				Registration: binary.BigEndian.Uint16(body),
				Data:         append([]byte(nil), body[2:]...),
			})
		case MarkerTLM, MarkerPLM, MarkerPPM, MarkerCRG:
			// Recognized but not needed by the core; skipped.
		default:
			// Unknown main-header segments are skipped by length.
		}
	}
}

func (p *Parser) parseTilePart(cs *Codestream) (*TilePart, error) {
	// SOT marker already consumed.
	body, err := p.readSegmentBody()
	if err != nil {
		return nil, err
	}
	if len(body) != 8 {
		return nil, fmt.Errorf("%w: SOT body is %d bytes", ErrCorrupt, len(body))
	}
	sotStart := p.pos - 12 // marker + length + body
	tp := &TilePart{SOT: SOT{
		TileIndex: int(binary.BigEndian.Uint16(body)),
		Psot:      binary.BigEndian.Uint32(body[2:]),
		TPsot:     body[6],
		TNsot:     body[7],
	}}

	for {
		m, err := p.readMarker()
		if err != nil {
			return nil, fmt.Errorf("%w: truncated tile-part header", ErrCorrupt)
		}
		if m == MarkerSOD {
			break
		}
		body, err := p.readSegmentBody()
		if err != nil {
			return nil, err
		}
		switch m {
		case MarkerCOD:
			cod := new(COD)
			if err := parseCOD(body, cod); err != nil {
				return nil, err
			}
			tp.COD = cod
		case MarkerCOC:
			coc, err := parseCOC(body, len(cs.SIZ.Components))
			if err != nil {
				return nil, err
			}
			tp.COCs = append(tp.COCs, *coc)
		case MarkerQCD:
			qcd := new(QCD)
			if err := parseQCD(body, qcd); err != nil {
				return nil, err
			}
			tp.QCD = qcd
		case MarkerQCC:
			qcc, err := parseQCC(body, len(cs.SIZ.Components))
			if err != nil {
				return nil, err
			}
			tp.QCCs = append(tp.QCCs, *qcc)
		case MarkerRGN:
			rgn, err := parseRGN(body, len(cs.SIZ.Components))
			if err != nil {
				return nil, err
			}
			tp.RGNs = append(tp.RGNs, *rgn)
		case MarkerPOC:
			pocs, err := parsePOC(body, len(cs.SIZ.Components))
			if err != nil {
				return nil, err
			}
			tp.POCs = append(tp.POCs, pocs...)
		case MarkerPLT:
			tp.PLT = append(tp.PLT, append([]byte(nil), body...))
		case MarkerPPT, MarkerCOM:
			// Skipped.
		default:
			// Unknown tile-header segments are skipped by length.
		}
	}

	// Packet data runs to the end of Psot, or to EOC when Psot is 0
	// (last tile-part of a stream of unknown length).
	var end int
	if tp.SOT.Psot == 0 {
		end = len(p.data) - 2
	} else {
		end = sotStart + int(tp.SOT.Psot)
	}
	if end < p.pos || end > len(p.data) {
		return nil, fmt.Errorf("%w: Psot %d overflows stream", ErrCorrupt, tp.SOT.Psot)
	}
	tp.Data = p.data[p.pos:end]
	p.pos = end
	return tp, nil
}

func (p *Parser) parseSIZ(s *SIZ) error {
	body, err := p.readSegmentBody()
	if err != nil {
		return err
	}
	if len(body) < 36 {
		return fmt.Errorf("%w: short SIZ", ErrCorrupt)
	}
	s.Rsiz = binary.BigEndian.Uint16(body)
	s.Xsiz = binary.BigEndian.Uint32(body[2:])
	s.Ysiz = binary.BigEndian.Uint32(body[6:])
	s.XOsiz = binary.BigEndian.Uint32(body[10:])
	s.YOsiz = binary.BigEndian.Uint32(body[14:])
	s.XTsiz = binary.BigEndian.Uint32(body[18:])
	s.YTsiz = binary.BigEndian.Uint32(body[22:])
	s.XTOsiz = binary.BigEndian.Uint32(body[26:])
	s.YTOsiz = binary.BigEndian.Uint32(body[30:])
	n := int(binary.BigEndian.Uint16(body[34:]))
	if n == 0 || len(body) < 36+3*n {
		return fmt.Errorf("%w: SIZ component list truncated", ErrCorrupt)
	}
	if s.XTsiz == 0 || s.YTsiz == 0 {
		return fmt.Errorf("%w: zero tile size", ErrCorrupt)
	}
	s.Components = make([]ComponentSize, n)
	for i := 0; i < n; i++ {
		c := &s.Components[i]
		c.Ssiz = body[36+3*i]
		c.XRsiz = body[37+3*i]
		c.YRsiz = body[38+3*i]
		if c.XRsiz == 0 || c.YRsiz == 0 {
			return fmt.Errorf("%w: component %d has zero subsampling", ErrCorrupt, i)
		}
	}
	return nil
}

func parseCOD(body []byte, c *COD) error {
	if len(body) < 9 {
		return fmt.Errorf("%w: short COD", ErrCorrupt)
	}
	c.Scod = body[0]
	c.Progression = body[1]
	c.NumLayers = binary.BigEndian.Uint16(body[2:])
	c.MCT = body[4]
	c.NumLevels = body[5]
	c.CblkExpW = body[6]
	c.CblkExpH = body[7]
	c.CblkStyle = body[8]
	if len(body) < 10 {
		return fmt.Errorf("%w: COD missing transform byte", ErrCorrupt)
	}
	c.Transform = body[9]
	if c.Scod&ScodPrecincts != 0 {
		c.PrecinctSizes = append([]byte(nil), body[10:]...)
	}
	if c.NumLayers == 0 {
		return fmt.Errorf("%w: COD with zero layers", ErrCorrupt)
	}
	return nil
}

func parseCOC(body []byte, numComponents int) (*COC, error) {
	idx := 0
	coc := &COC{}
	if numComponents < 257 {
		if len(body) < 1 {
			return nil, fmt.Errorf("%w: short COC", ErrCorrupt)
		}
		coc.Component = int(body[0])
		idx = 1
	} else {
		if len(body) < 2 {
			return nil, fmt.Errorf("%w: short COC", ErrCorrupt)
		}
		coc.Component = int(binary.BigEndian.Uint16(body))
		idx = 2
	}
	if len(body) < idx+6 {
		return nil, fmt.Errorf("%w: short COC", ErrCorrupt)
	}
	coc.COD.Scod = body[idx]
	coc.COD.NumLevels = body[idx+1]
	coc.COD.CblkExpW = body[idx+2]
	coc.COD.CblkExpH = body[idx+3]
	coc.COD.CblkStyle = body[idx+4]
	coc.COD.Transform = body[idx+5]
	if coc.COD.Scod&ScodPrecincts != 0 {
		coc.COD.PrecinctSizes = append([]byte(nil), body[idx+6:]...)
	}
	return coc, nil
}

func parseQCD(body []byte, q *QCD) error {
	if len(body) < 1 {
		return fmt.Errorf("%w: short QCD", ErrCorrupt)
	}
	q.Sqcd = body[0]
	rest := body[1:]
	if q.Style() == QuantNone {
		q.Steps = make([]uint16, len(rest))
		for i, b := range rest {
			q.Steps[i] = uint16(b)
		}
	} else {
		if len(rest)%2 != 0 {
			return fmt.Errorf("%w: odd QCD step bytes", ErrCorrupt)
		}
		q.Steps = make([]uint16, len(rest)/2)
		for i := range q.Steps {
			q.Steps[i] = binary.BigEndian.Uint16(rest[2*i:])
		}
	}
	return nil
}

func parseQCC(body []byte, numComponents int) (*QCC, error) {
	qcc := &QCC{}
	idx := 1
	if numComponents < 257 {
		if len(body) < 1 {
			return nil, fmt.Errorf("%w: short QCC", ErrCorrupt)
		}
		qcc.Component = int(body[0])
	} else {
		if len(body) < 2 {
			return nil, fmt.Errorf("%w: short QCC", ErrCorrupt)
		}
		qcc.Component = int(binary.BigEndian.Uint16(body))
		idx = 2
	}
	if err := parseQCD(body[idx:], &qcc.QCD); err != nil {
		return nil, err
	}
	return qcc, nil
}

func parseRGN(body []byte, numComponents int) (*RGN, error) {
	rgn := &RGN{}
	idx := 1
	if numComponents < 257 {
		if len(body) < 3 {
			return nil, fmt.Errorf("%w: short RGN", ErrCorrupt)
		}
		rgn.Component = int(body[0])
	} else {
		if len(body) < 4 {
			return nil, fmt.Errorf("%w: short RGN", ErrCorrupt)
		}
		rgn.Component = int(binary.BigEndian.Uint16(body))
		idx = 2
	}
	rgn.Style = body[idx]
	rgn.Shift = body[idx+1]
	return rgn, nil
}

func parsePOC(body []byte, numComponents int) ([]POCEntry, error) {
	wide := numComponents >= 257
	entrySize := 7
	if wide {
		entrySize = 9
	}
	if len(body)%entrySize != 0 {
		return nil, fmt.Errorf("%w: POC body %d bytes not a multiple of %d", ErrCorrupt, len(body), entrySize)
	}
	var out []POCEntry
	for i := 0; i < len(body); i += entrySize {
		e := POCEntry{RSpoc: body[i]}
		j := i + 1
		if wide {
			e.CSpoc = binary.BigEndian.Uint16(body[j:])
			j += 2
		} else {
			e.CSpoc = uint16(body[j])
			j++
		}
		e.LYEpoc = binary.BigEndian.Uint16(body[j:])
		j += 2
		e.REpoc = body[j]
		j++
		if wide {
			e.CEpoc = binary.BigEndian.Uint16(body[j:])
			j += 2
		} else {
			e.CEpoc = uint16(body[j])
			j++
		}
		e.Ppoc = body[j]
		out = append(out, e)
	}
	return out, nil
}

func (p *Parser) readMarker() (uint16, error) {
	if p.pos+2 > len(p.data) {
		return 0, ErrCorrupt
	}
	m := binary.BigEndian.Uint16(p.data[p.pos:])
	p.pos += 2
	return m, nil
}

func (p *Parser) peekMarker() (uint16, error) {
	if p.pos+2 > len(p.data) {
		return 0, ErrCorrupt
	}
	return binary.BigEndian.Uint16(p.data[p.pos:]), nil
}

func (p *Parser) readSegmentBody() ([]byte, error) {
	if p.pos+2 > len(p.data) {
		return nil, fmt.Errorf("%w: truncated segment length", ErrCorrupt)
	}
	l := int(binary.BigEndian.Uint16(p.data[p.pos:]))
	if l < 2 || p.pos+l > len(p.data) {
		return nil, fmt.Errorf("%w: segment length %d overflows stream", ErrCorrupt, l)
	}
	body := p.data[p.pos+2 : p.pos+l]
	p.pos += l
	return body, nil
}

// Package mqc implements the MQ adaptive binary arithmetic coder and the
// raw (bypass) coder of ISO/IEC 15444-1:2019 Annex C.
package mqc

// mqState is one row of the probability state machine (Table C.2).
// NMPS/NLPS are the successor states after coding the more/less probable
// symbol; sw indicates that the MPS sense flips on an LPS.
type mqState struct {
	qe   uint32
	nmps uint8
	nlps uint8
	sw   uint8
}

// mqStates holds the 47 probability states of Table C.2.
var mqStates = [47]mqState{
	{0x5601, 1, 1, 1}, {0x3401, 2, 6, 0}, {0x1801, 3, 9, 0}, {0x0AC1, 4, 12, 0},
	{0x0521, 5, 29, 0}, {0x0221, 38, 33, 0}, {0x5601, 7, 6, 1}, {0x5401, 8, 14, 0},
	{0x4801, 9, 14, 0}, {0x3801, 10, 14, 0}, {0x3001, 11, 17, 0}, {0x2401, 12, 18, 0},
	{0x1C01, 13, 20, 0}, {0x1601, 29, 21, 0}, {0x5601, 15, 14, 1}, {0x5401, 16, 14, 0},
	{0x5101, 17, 15, 0}, {0x4801, 18, 16, 0}, {0x3801, 19, 17, 0}, {0x3401, 20, 18, 0},
	{0x3001, 21, 19, 0}, {0x2801, 22, 19, 0}, {0x2401, 23, 20, 0}, {0x2201, 24, 21, 0},
	{0x1C01, 25, 22, 0}, {0x1801, 26, 23, 0}, {0x1601, 27, 24, 0}, {0x1401, 28, 25, 0},
	{0x1201, 29, 26, 0}, {0x1101, 30, 27, 0}, {0x0AC1, 31, 28, 0}, {0x09C1, 32, 29, 0},
	{0x08A1, 33, 30, 0}, {0x0521, 34, 31, 0}, {0x0441, 35, 32, 0}, {0x02A1, 36, 33, 0},
	{0x0221, 37, 34, 0}, {0x0141, 38, 35, 0}, {0x0111, 39, 36, 0}, {0x0085, 40, 37, 0},
	{0x0049, 41, 38, 0}, {0x0025, 42, 39, 0}, {0x0015, 43, 40, 0}, {0x0009, 44, 41, 0},
	{0x0005, 45, 42, 0}, {0x0001, 45, 43, 0}, {0x5601, 46, 46, 0},
}

// A context fits in one byte: bits 0..6 hold the state index, bit 7 holds
// the current MPS sense.
const (
	ctxStateMask = 0x7F
	ctxMPSShift  = 7
)

// StateTable exposes the Qe/NMPS/NLPS/switch columns for table validation.
func StateTable() (qe [47]uint32, nmps, nlps, sw [47]uint8) {
	for i, s := range mqStates {
		qe[i] = s.qe
		nmps[i] = s.nmps
		nlps[i] = s.nlps
		sw[i] = s.sw
	}
	return
}

// appendSentinel returns data with the 0xFF 0xFF artificial marker appended.
// The decoder synthesizes 1-bits past the end of the segment through it,
// which is the only legal way to run past the nominal length (C.3.4).
func appendSentinel(data []byte) []byte {
	buf := make([]byte, len(data)+2)
	copy(buf, data)
	buf[len(data)] = 0xFF
	buf[len(data)+1] = 0xFF
	return buf
}

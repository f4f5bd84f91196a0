package t2

import "fmt"

// Packet-length markers (Annex A.7.2/A.7.3). Each packet's byte count is
// stored as a 7-bit big-endian varint; a tile header can then be skipped
// through without parsing packet headers.

// PacketLengths accumulates per-packet byte counts while Tier-2 writes a
// tile part.
type PacketLengths struct {
	lengths []int
}

// Add records one packet's total length in bytes.
func (pl *PacketLengths) Add(n int) { pl.lengths = append(pl.lengths, n) }

// Count returns the number of recorded packets.
func (pl *PacketLengths) Count() int { return len(pl.lengths) }

// Lengths returns the recorded packet lengths.
func (pl *PacketLengths) Lengths() []int { return pl.lengths }

// Encode serializes the lengths as PLT marker-segment payloads, splitting
// at the 65535-byte marker-segment limit. Each payload starts with its
// Zplt index byte; the marker code and segment length are written by the
// code-stream layer.
func (pl *PacketLengths) Encode() [][]byte {
	const maxPayload = 65535 - 2 // Lplt counts itself but not the marker
	var out [][]byte
	cur := []byte{0} // Zplt
	for _, n := range pl.lengths {
		v := encodeVarint7(n)
		if len(cur)+len(v) > maxPayload {
			out = append(out, cur)
			cur = []byte{byte(len(out))}
		}
		cur = append(cur, v...)
	}
	out = append(out, cur)
	return out
}

// DecodePacketLengths parses a sequence of PLT payloads (with their Zplt
// prefix bytes) back into packet lengths. Payloads must arrive in Zplt
// order; a length split across payloads continues seamlessly.
func DecodePacketLengths(payloads [][]byte) ([]int, error) {
	var lengths []int
	acc := 0
	for i, p := range payloads {
		if len(p) == 0 {
			return nil, fmt.Errorf("t2: empty PLT payload")
		}
		if int(p[0]) != i {
			return nil, fmt.Errorf("t2: PLT payload out of order: Zplt %d at position %d", p[0], i)
		}
		for _, b := range p[1:] {
			acc = acc<<7 | int(b&0x7F)
			if b&0x80 == 0 {
				lengths = append(lengths, acc)
				acc = 0
			}
		}
	}
	if acc != 0 {
		return nil, fmt.Errorf("t2: PLT payload ends mid-length")
	}
	return lengths, nil
}

func encodeVarint7(n int) []byte {
	if n == 0 {
		return []byte{0}
	}
	var tmp [5]byte
	i := len(tmp)
	last := true
	for n > 0 {
		i--
		b := byte(n & 0x7F)
		if !last {
			b |= 0x80
		}
		tmp[i] = b
		last = false
		n >>= 7
	}
	return tmp[i:]
}

// Package codestream reads and writes the JPEG 2000 Part-1 code-stream
// marker segments the codec core needs: SOC, SIZ, COD, COC, QCD, QCC,
// RGN, POC, COM, PLT, SOT/SOD and EOC.
// Reference: ISO/IEC 15444-1:2019 Annex A.
package codestream

// Marker codes (Table A.1).
const (
	MarkerSOC uint16 = 0xFF4F // start of codestream
	MarkerSOT uint16 = 0xFF90 // start of tile-part
	MarkerSOD uint16 = 0xFF93 // start of data
	MarkerEOC uint16 = 0xFFD9 // end of codestream

	MarkerSIZ uint16 = 0xFF51 // image and tile size

	MarkerCOD uint16 = 0xFF52 // coding style default
	MarkerCOC uint16 = 0xFF53 // coding style component
	MarkerRGN uint16 = 0xFF5E // region of interest
	MarkerQCD uint16 = 0xFF5C // quantization default
	MarkerQCC uint16 = 0xFF5D // quantization component
	MarkerPOC uint16 = 0xFF5F // progression order change

	MarkerTLM uint16 = 0xFF55 // tile-part lengths
	MarkerPLM uint16 = 0xFF57 // packet lengths, main header
	MarkerPLT uint16 = 0xFF58 // packet lengths, tile-part header
	MarkerPPM uint16 = 0xFF60 // packed packet headers, main header
	MarkerPPT uint16 = 0xFF61 // packed packet headers, tile-part header

	MarkerCRG uint16 = 0xFF63 // component registration
	MarkerCOM uint16 = 0xFF64 // comment

	MarkerSOP uint16 = 0xFF91 // start of packet
	MarkerEPH uint16 = 0xFF92 // end of packet header
)

// Scod / coding-style flag bits (Table A.13).
const (
	ScodPrecincts = 0x01
	ScodSOP       = 0x02
	ScodEPH       = 0x04
)

// Quantization styles (Table A.28).
const (
	QuantNone          = 0 // reversible, exponents only
	QuantScalarDerived = 1
	QuantScalarExpound = 2
)

// MarkerName returns a mnemonic for diagnostics.
func MarkerName(m uint16) string {
	switch m {
	case MarkerSOC:
		return "SOC"
	case MarkerSOT:
		return "SOT"
	case MarkerSOD:
		return "SOD"
	case MarkerEOC:
		return "EOC"
	case MarkerSIZ:
		return "SIZ"
	case MarkerCOD:
		return "COD"
	case MarkerCOC:
		return "COC"
	case MarkerRGN:
		return "RGN"
	case MarkerQCD:
		return "QCD"
	case MarkerQCC:
		return "QCC"
	case MarkerPOC:
		return "POC"
	case MarkerTLM:
		return "TLM"
	case MarkerPLM:
		return "PLM"
	case MarkerPLT:
		return "PLT"
	case MarkerPPM:
		return "PPM"
	case MarkerPPT:
		return "PPT"
	case MarkerCRG:
		return "CRG"
	case MarkerCOM:
		return "COM"
	case MarkerSOP:
		return "SOP"
	case MarkerEPH:
		return "EPH"
	}
	return "UNKNOWN"
}

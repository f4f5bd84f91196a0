package codestream

import (
	"bytes"
	"testing"
)

func sampleSIZ() *SIZ {
	return &SIZ{
		Xsiz: 640, Ysiz: 480,
		XTsiz: 256, YTsiz: 256,
		Components: []ComponentSize{
			{Ssiz: 7, XRsiz: 1, YRsiz: 1},
			{Ssiz: 7, XRsiz: 1, YRsiz: 1},
			{Ssiz: 0x8F, XRsiz: 2, YRsiz: 2},
		},
	}
}

func TestRoundTripMainHeaderAndTile(t *testing.T) {
	w := NewWriter()
	w.WriteSOC()
	if err := w.WriteSIZ(sampleSIZ()); err != nil {
		t.Fatal(err)
	}
	cod := &COD{
		Scod:        ScodSOP | ScodEPH,
		Progression: 2,
		NumLayers:   3,
		MCT:         1,
		NumLevels:   5,
		CblkExpW:    4,
		CblkExpH:    4,
		CblkStyle:   0x25,
		Transform:   1,
	}
	w.WriteCOD(cod)
	qcd := &QCD{Sqcd: 2 << 5, Steps: []uint16{8 << 3, 9 << 3, 9 << 3, 10 << 3}}
	w.WriteQCD(qcd)
	w.WriteRGN(&RGN{Component: 1, Shift: 6}, 3)
	w.WritePOC([]POCEntry{{RSpoc: 0, CSpoc: 0, LYEpoc: 2, REpoc: 3, CEpoc: 3, Ppoc: 1}}, 3)
	w.WriteCOM(&COM{Registration: 1, Data: []byte("go-j2k")})

	packets := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	w.WriteSOT(&SOT{TileIndex: 0, Psot: uint32(12 + 2 + len(packets)), TPsot: 0, TNsot: 1})
	w.WriteSOD()
	w.WriteRaw(packets)
	w.WriteEOC()

	cs, err := NewParser(w.Bytes()).Parse()
	if err != nil {
		t.Fatal(err)
	}

	if cs.SIZ.Xsiz != 640 || cs.SIZ.Ysiz != 480 || len(cs.SIZ.Components) != 3 {
		t.Fatalf("SIZ mismatch: %+v", cs.SIZ)
	}
	if !cs.SIZ.Components[2].Signed() || cs.SIZ.Components[2].BitDepth() != 16 {
		t.Fatalf("component 2 precision lost: %+v", cs.SIZ.Components[2])
	}
	if cs.SIZ.NumTilesX() != 3 || cs.SIZ.NumTilesY() != 2 {
		t.Fatalf("tile grid %dx%d, want 3x2", cs.SIZ.NumTilesX(), cs.SIZ.NumTilesY())
	}
	if cs.COD.Progression != 2 || cs.COD.NumLayers != 3 || cs.COD.NumLevels != 5 || cs.COD.MCT != 1 {
		t.Fatalf("COD mismatch: %+v", cs.COD)
	}
	if cs.COD.CblkStyle != 0x25 || cs.COD.Transform != 1 {
		t.Fatalf("COD style lost: %+v", cs.COD)
	}
	if cs.QCD.GuardBits() != 2 || len(cs.QCD.Steps) != 4 || cs.QCD.Steps[3] != 10<<3 {
		t.Fatalf("QCD mismatch: %+v", cs.QCD)
	}
	if len(cs.RGNs) != 1 || cs.RGNs[0].Shift != 6 {
		t.Fatalf("RGN mismatch: %+v", cs.RGNs)
	}
	if len(cs.POCs) != 1 || cs.POCs[0].Ppoc != 1 {
		t.Fatalf("POC mismatch: %+v", cs.POCs)
	}
	if len(cs.COMs) != 1 || string(cs.COMs[0].Data) != "go-j2k" {
		t.Fatalf("COM mismatch: %+v", cs.COMs)
	}
	if len(cs.TileParts) != 1 {
		t.Fatalf("expected one tile-part, got %d", len(cs.TileParts))
	}
	if !bytes.Equal(cs.TileParts[0].Data, packets) {
		t.Fatalf("tile data mismatch: %v", cs.TileParts[0].Data)
	}
	if cs.ROIShift(&cs.TileParts[0], 1) != 6 || cs.ROIShift(nil, 0) != 0 {
		t.Fatal("ROI shift resolution wrong")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := NewParser([]byte{0x00, 0x01, 0x02}).Parse(); err == nil {
		t.Fatal("expected error for stream without SOC")
	}
	if _, err := NewParser(nil).Parse(); err == nil {
		t.Fatal("expected error for empty stream")
	}
}

func TestParseRejectsZeroSubsampling(t *testing.T) {
	w := NewWriter()
	w.WriteSOC()
	siz := sampleSIZ()
	siz.Components[0].XRsiz = 0
	_ = w.WriteSIZ(siz)
	w.WriteEOC()
	if _, err := NewParser(w.Bytes()).Parse(); err == nil {
		t.Fatal("expected error for zero subsampling")
	}
}

func TestTileCODOverride(t *testing.T) {
	cs := &Codestream{
		COD: COD{NumLevels: 5, CblkStyle: 0},
		COCs: []COC{{
			Component: 1,
			COD:       COD{NumLevels: 3, CblkStyle: 0x08, Transform: 1},
		}},
	}
	cod := cs.TileCOD(nil, 1)
	if cod.NumLevels != 3 || cod.Transform != 1 {
		t.Fatalf("COC override not applied: %+v", cod)
	}
	cod = cs.TileCOD(nil, 0)
	if cod.NumLevels != 5 {
		t.Fatalf("component 0 should keep the default: %+v", cod)
	}
}

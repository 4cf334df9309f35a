package mapdata

import "testing"

// segmentMap builds a two-segment document. withDims controls whether the
// layers carry declared bounding boxes, which must never change lookup
// results.
func segmentMap(withDims bool) *Map {
	raw := &RawMap{
		Size: &RawSize{X: 100, Y: 100},
		Layers: []RawLayer{
			{Type: "floor", CompressedPixels: []int{0, 0, 100}},
			{Type: "segment", CompressedPixels: []int{10, 10, 5, 10, 11, 5}, MetaData: RawLayerMeta{SegmentID: "1", Name: "Kitchen"}},
			{Type: "segment", CompressedPixels: []int{30, 10, 5}, MetaData: RawLayerMeta{SegmentID: "2", Name: "Hall"}},
		},
	}
	if withDims {
		raw.Layers[1].Dimensions = &RawDimensions{
			X: RawAxis{Min: 10, Max: 14, Mid: 12},
			Y: RawAxis{Min: 10, Max: 11, Mid: 10},
		}
		raw.Layers[2].Dimensions = &RawDimensions{
			X: RawAxis{Min: 30, Max: 34, Mid: 32},
			Y: RawAxis{Min: 10, Max: 10, Mid: 10},
		}
	}
	m, err := BuildMap(raw)
	if err != nil {
		panic(err)
	}
	return m
}

func TestSegmentAt(t *testing.T) {
	tests := []struct {
		point  Point
		wantID string
		wantOK bool
	}{
		{Point{12, 10}, "1", true},
		{Point{10, 11}, "1", true},
		{Point{30, 10}, "2", true},
		{Point{34, 10}, "2", true},
		{Point{50, 50}, "", false}, // no layer claims it
		{Point{15, 10}, "", false}, // just past the kitchen
		{Point{-1, -1}, "", false},
	}

	// Results must be identical with and without declared bounding boxes.
	for _, withDims := range []bool{false, true} {
		m := segmentMap(withDims)
		for _, tt := range tests {
			id, ok := m.SegmentAt(tt.point)
			if id != tt.wantID || ok != tt.wantOK {
				t.Errorf("withDims=%v SegmentAt(%v) = %q, %v, want %q, %v",
					withDims, tt.point, id, ok, tt.wantID, tt.wantOK)
			}
		}
	}
}

func TestSegmentAt_FirstMatchWins(t *testing.T) {
	// Overlapping segment claims are tolerated, not errors; the earlier
	// layer wins.
	raw := &RawMap{
		Layers: []RawLayer{
			{Type: "segment", CompressedPixels: []int{5, 5, 3}, MetaData: RawLayerMeta{SegmentID: "a"}},
			{Type: "segment", CompressedPixels: []int{6, 5, 3}, MetaData: RawLayerMeta{SegmentID: "b"}},
		},
	}
	m, err := BuildMap(raw)
	if err != nil {
		t.Fatalf("BuildMap: %v", err)
	}

	id, ok := m.SegmentAt(Point{6, 5})
	if !ok || id != "a" {
		t.Errorf("SegmentAt = %q, %v, want %q, true", id, ok, "a")
	}
	// A pixel only the second segment claims.
	id, ok = m.SegmentAt(Point{8, 5})
	if !ok || id != "b" {
		t.Errorf("SegmentAt = %q, %v, want %q, true", id, ok, "b")
	}
}

func TestSegmentByID(t *testing.T) {
	m := segmentMap(false)

	layer, ok := m.SegmentByID("2")
	if !ok {
		t.Fatal("segment 2 not found")
	}
	if layer.Name != "Hall" {
		t.Errorf("name = %q, want %q", layer.Name, "Hall")
	}

	if _, ok := m.SegmentByID("99"); ok {
		t.Error("segment 99 should not exist")
	}
	if _, ok := m.SegmentByID(""); ok {
		t.Error("empty id should never match")
	}
}

func TestSegments(t *testing.T) {
	m := segmentMap(false)
	segs := m.Segments()
	if len(segs) != 2 {
		t.Fatalf("segments = %d, want 2", len(segs))
	}
	if segs[0].SegmentID != "1" || segs[1].SegmentID != "2" {
		t.Errorf("segment order = %q, %q, want 1, 2", segs[0].SegmentID, segs[1].SegmentID)
	}
}

func TestLayerBoundingBox(t *testing.T) {
	m := segmentMap(false)

	layer, _ := m.SegmentByID("1")
	box, ok := layer.BoundingBox()
	if !ok {
		t.Fatal("bounding box missing for populated layer")
	}
	want := Dimensions{MinX: 10, MaxX: 14, MidX: 12, MinY: 10, MaxY: 11, MidY: 10}
	if box != want {
		t.Errorf("box = %+v, want %+v", box, want)
	}

	empty := &Layer{Kind: LayerFloor, Pixels: []Point{}}
	if _, ok := empty.BoundingBox(); ok {
		t.Error("empty layer should have no bounding box")
	}
}

func TestLayerContains(t *testing.T) {
	layer := &Layer{Pixels: []Point{{1, 1}, {2, 1}}}
	if !layer.Contains(Point{2, 1}) {
		t.Error("Contains(2,1) = false, want true")
	}
	if layer.Contains(Point{3, 1}) {
		t.Error("Contains(3,1) = true, want false")
	}
}

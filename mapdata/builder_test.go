package mapdata

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestBuildMap_SegmentLayer(t *testing.T) {
	raw := &RawMap{
		Layers: []RawLayer{{
			Type:             "segment",
			CompressedPixels: []int{10, 10, 5},
			MetaData:         RawLayerMeta{SegmentID: "3", Name: "Kitchen", Active: true},
		}},
	}

	m, err := BuildMap(raw)
	if err != nil {
		t.Fatalf("BuildMap: %v", err)
	}
	if len(m.Layers) != 1 {
		t.Fatalf("layers = %d, want 1", len(m.Layers))
	}

	layer := m.Layers[0]
	if layer.Kind != LayerSegment {
		t.Errorf("kind = %q, want %q", layer.Kind, LayerSegment)
	}
	if layer.SegmentID != "3" {
		t.Errorf("segment id = %q, want %q", layer.SegmentID, "3")
	}
	if layer.Name != "Kitchen" {
		t.Errorf("name = %q, want %q", layer.Name, "Kitchen")
	}
	if !layer.Active {
		t.Error("active = false, want true")
	}
	want := []Point{{10, 10}, {11, 10}, {12, 10}, {13, 10}, {14, 10}}
	if !reflect.DeepEqual(layer.Pixels, want) {
		t.Errorf("pixels = %v, want %v", layer.Pixels, want)
	}
}

func TestBuildMap_ExplicitPixelsWin(t *testing.T) {
	raw := &RawMap{
		Layers: []RawLayer{{
			Type:             "floor",
			Pixels:           []int{1, 2, 3, 4},
			CompressedPixels: []int{50, 50, 9},
		}},
	}

	m, err := BuildMap(raw)
	if err != nil {
		t.Fatalf("BuildMap: %v", err)
	}
	want := []Point{{1, 2}, {3, 4}}
	if !reflect.DeepEqual(m.Layers[0].Pixels, want) {
		t.Errorf("pixels = %v, want %v", m.Layers[0].Pixels, want)
	}
}

func TestBuildMap_EmptyLayer(t *testing.T) {
	raw := &RawMap{Layers: []RawLayer{{Type: "wall"}}}

	m, err := BuildMap(raw)
	if err != nil {
		t.Fatalf("BuildMap: %v", err)
	}
	if len(m.Layers[0].Pixels) != 0 {
		t.Errorf("pixels = %d, want 0", len(m.Layers[0].Pixels))
	}
	if m.Layers[0].Kind != LayerWall {
		t.Errorf("kind = %q, want %q", m.Layers[0].Kind, LayerWall)
	}
}

func TestBuildMap_UnknownLayerTag(t *testing.T) {
	raw := &RawMap{Layers: []RawLayer{{Type: "carpet", CompressedPixels: []int{0, 0, 1}}}}

	m, err := BuildMap(raw)
	if err != nil {
		t.Fatalf("BuildMap: %v", err)
	}
	if m.Layers[0].Kind != LayerUnknown {
		t.Errorf("kind = %q, want %q", m.Layers[0].Kind, LayerUnknown)
	}
	if m.Layers[0].RawType != "carpet" {
		t.Errorf("raw type = %q, want %q", m.Layers[0].RawType, "carpet")
	}
	if len(m.Layers[0].Pixels) != 1 {
		t.Errorf("pixels = %d, want 1 (unknown layers still decode)", len(m.Layers[0].Pixels))
	}
}

func TestBuildMap_LayerDimensions(t *testing.T) {
	raw := &RawMap{
		Layers: []RawLayer{{
			Type: "segment",
			Dimensions: &RawDimensions{
				X:          RawAxis{Min: 10, Max: 30, Mid: 20, Avg: 19},
				Y:          RawAxis{Min: 5, Max: 15, Mid: 10, Avg: 11},
				PixelCount: 120,
			},
		}},
	}

	m, err := BuildMap(raw)
	if err != nil {
		t.Fatalf("BuildMap: %v", err)
	}
	d := m.Layers[0].Dimensions
	if d == nil {
		t.Fatal("dimensions = nil, want value")
	}
	want := Dimensions{MinX: 10, MaxX: 30, MidX: 20, MinY: 5, MaxY: 15, MidY: 10}
	if *d != want {
		t.Errorf("dimensions = %+v, want %+v", *d, want)
	}
}

func TestBuildMap_GoToTarget(t *testing.T) {
	raw := &RawMap{Entities: []RawEntity{{Type: "go_to_target", Points: []int{100, 200}}}}

	m, err := BuildMap(raw)
	if err != nil {
		t.Fatalf("BuildMap: %v", err)
	}
	ent := m.Entities[0]
	if ent.Kind != EntityGoToTarget {
		t.Errorf("kind = %q, want %q", ent.Kind, EntityGoToTarget)
	}
	want := []Point{{100, 200}}
	if !reflect.DeepEqual(ent.Points, want) {
		t.Errorf("points = %v, want %v", ent.Points, want)
	}
}

func TestBuildMap_GoToTargetTooFewValues(t *testing.T) {
	raw := &RawMap{Entities: []RawEntity{{Type: "go_to_target", Points: []int{100}}}}

	_, err := BuildMap(raw)
	if !errors.Is(err, ErrMalformedGeometry) {
		t.Fatalf("err = %v, want ErrMalformedGeometry", err)
	}
}

func TestBuildMap_UnknownEntityTag(t *testing.T) {
	raw := &RawMap{Entities: []RawEntity{{Type: "some_future_kind", Points: []int{1}}}}

	m, err := BuildMap(raw)
	if err != nil {
		t.Fatalf("BuildMap: %v", err)
	}
	ent := m.Entities[0]
	if ent.Kind != EntityUnknown {
		t.Errorf("kind = %q, want %q", ent.Kind, EntityUnknown)
	}
	if ent.RawType != "some_future_kind" {
		t.Errorf("raw type = %q, want %q", ent.RawType, "some_future_kind")
	}
}

func TestBuildMap_InvalidSize(t *testing.T) {
	raw := &RawMap{Size: &RawSize{X: -1, Y: 10}}

	_, err := BuildMap(raw)
	if !errors.Is(err, ErrInvalidDimensions) {
		t.Fatalf("err = %v, want ErrInvalidDimensions", err)
	}
}

func TestBuildMap_VirtualWallArity(t *testing.T) {
	ok := &RawMap{Entities: []RawEntity{{Type: "virtual_wall", Points: []int{0, 0, 10, 0}}}}
	if _, err := BuildMap(ok); err != nil {
		t.Fatalf("two point wall: %v", err)
	}

	for _, points := range [][]int{{0, 0}, {0, 0, 1, 1, 2, 2}} {
		raw := &RawMap{Entities: []RawEntity{{Type: "virtual_wall", Points: points}}}
		if _, err := BuildMap(raw); !errors.Is(err, ErrMalformedGeometry) {
			t.Errorf("%d values: err = %v, want ErrMalformedGeometry", len(points), err)
		}
	}
}

func TestBuildMap_AreaArity(t *testing.T) {
	for _, tag := range []string{"no_go_area", "no_mop_area", "active_zone"} {
		ok := &RawMap{Entities: []RawEntity{{
			Type:   tag,
			Points: []int{0, 0, 10, 0, 10, 10, 0, 10},
		}}}
		if _, err := BuildMap(ok); err != nil {
			t.Errorf("%s with four corners: %v", tag, err)
		}

		short := &RawMap{Entities: []RawEntity{{Type: tag, Points: []int{0, 0, 10, 0, 10, 10}}}}
		if _, err := BuildMap(short); !errors.Is(err, ErrMalformedGeometry) {
			t.Errorf("%s with three corners: err = %v, want ErrMalformedGeometry", tag, err)
		}
	}
}

func TestBuildMap_RobotAngleFromMetaData(t *testing.T) {
	angle := 87.0
	raw := &RawMap{Entities: []RawEntity{{
		Type:     "robot_position",
		Points:   []int{25, 30},
		MetaData: RawEntityMeta{Angle: &angle},
	}}}

	m, err := BuildMap(raw)
	if err != nil {
		t.Fatalf("BuildMap: %v", err)
	}
	ent := m.Entities[0]
	if ent.Angle == nil || *ent.Angle != 87 {
		t.Errorf("angle = %v, want 87", ent.Angle)
	}
	if !reflect.DeepEqual(ent.Points, []Point{{25, 30}}) {
		t.Errorf("points = %v, want [{25 30}]", ent.Points)
	}
}

func TestBuildMap_RobotAngleFromTrailingValue(t *testing.T) {
	raw := &RawMap{Entities: []RawEntity{{Type: "robot_position", Points: []int{25, 30, 180}}}}

	m, err := BuildMap(raw)
	if err != nil {
		t.Fatalf("BuildMap: %v", err)
	}
	ent := m.Entities[0]
	if ent.Angle == nil || *ent.Angle != 180 {
		t.Errorf("angle = %v, want 180", ent.Angle)
	}
	if !reflect.DeepEqual(ent.Points, []Point{{25, 30}}) {
		t.Errorf("points = %v, want [{25 30}]", ent.Points)
	}
}

func TestBuildMap_RobotAngleMetaDataWins(t *testing.T) {
	angle := 90.0
	raw := &RawMap{Entities: []RawEntity{{
		Type:     "robot_position",
		Points:   []int{25, 30, 270},
		MetaData: RawEntityMeta{Angle: &angle},
	}}}

	m, err := BuildMap(raw)
	if err != nil {
		t.Fatalf("BuildMap: %v", err)
	}
	if got := m.Entities[0].Angle; got == nil || *got != 90 {
		t.Errorf("angle = %v, want 90 (metaData over trailing value)", got)
	}
}

func TestBuildMap_RobotWithoutAngle(t *testing.T) {
	raw := &RawMap{Entities: []RawEntity{{Type: "robot_position", Points: []int{25, 30}}}}

	m, err := BuildMap(raw)
	if err != nil {
		t.Fatalf("BuildMap: %v", err)
	}
	if m.Entities[0].Angle != nil {
		t.Errorf("angle = %v, want nil", m.Entities[0].Angle)
	}
}

func TestBuildMap_PathMayBeEmpty(t *testing.T) {
	raw := &RawMap{Entities: []RawEntity{
		{Type: "path", Points: []int{}},
		{Type: "predicted_path"},
	}}

	m, err := BuildMap(raw)
	if err != nil {
		t.Fatalf("BuildMap: %v", err)
	}
	if len(m.Entities) != 2 {
		t.Fatalf("entities = %d, want 2", len(m.Entities))
	}
	for i, ent := range m.Entities {
		if len(ent.Points) != 0 {
			t.Errorf("entity %d points = %d, want 0", i, len(ent.Points))
		}
	}
}

func TestBuildMap_MissingOptionalFields(t *testing.T) {
	m, err := BuildMap(&RawMap{})
	if err != nil {
		t.Fatalf("BuildMap: %v", err)
	}
	if m.Size != (Size{}) {
		t.Errorf("size = %+v, want zero", m.Size)
	}
	if m.PixelSizeMm != 0 {
		t.Errorf("pixel size = %v, want 0", m.PixelSizeMm)
	}
	if len(m.Layers) != 0 || len(m.Entities) != 0 {
		t.Errorf("layers = %d entities = %d, want 0 0", len(m.Layers), len(m.Entities))
	}
}

func TestBuildMap_WholeDocumentFailsOnBadEntity(t *testing.T) {
	raw := &RawMap{
		Layers:   []RawLayer{{Type: "floor", CompressedPixels: []int{0, 0, 3}}},
		Entities: []RawEntity{{Type: "charger_location", Points: []int{5}}},
	}

	m, err := BuildMap(raw)
	if !errors.Is(err, ErrMalformedGeometry) {
		t.Fatalf("err = %v, want ErrMalformedGeometry", err)
	}
	if m != nil {
		t.Error("map should be nil on decode failure, no partial documents")
	}
}

func TestBuildMap_NoAliasing(t *testing.T) {
	pixels := []int{1, 1, 2, 2}
	points := []int{7, 8}
	raw := &RawMap{
		Layers:   []RawLayer{{Type: "floor", Pixels: pixels}},
		Entities: []RawEntity{{Type: "go_to_target", Points: points}},
	}

	m, err := BuildMap(raw)
	if err != nil {
		t.Fatalf("BuildMap: %v", err)
	}

	// The caller may recycle its buffers after build.
	for i := range pixels {
		pixels[i] = -999
	}
	for i := range points {
		points[i] = -999
	}

	if !reflect.DeepEqual(m.Layers[0].Pixels, []Point{{1, 1}, {2, 2}}) {
		t.Errorf("layer pixels changed with input buffer: %v", m.Layers[0].Pixels)
	}
	if !reflect.DeepEqual(m.Entities[0].Points, []Point{{7, 8}}) {
		t.Errorf("entity points changed with input buffer: %v", m.Entities[0].Points)
	}
}

func TestParseMap_FullDocument(t *testing.T) {
	data := []byte(`{
		"__class": "ValetudoMap",
		"metaData": {"version": 2, "nonce": "abc"},
		"size": {"x": 1024, "y": 1024},
		"pixelSize": 50,
		"layers": [
			{"__class": "MapLayer", "type": "floor", "compressedPixels": [0,0,4]},
			{"__class": "MapLayer", "type": "wall", "pixels": [0,1,1,1]},
			{"__class": "MapLayer", "type": "segment", "compressedPixels": [2,2,2],
			 "metaData": {"segmentId": 7, "name": "Hall"},
			 "dimensions": {"x": {"min": 2, "max": 3, "mid": 2, "avg": 2},
			                "y": {"min": 2, "max": 2, "mid": 2, "avg": 2},
			                "pixelCount": 2}}
		],
		"entities": [
			{"__class": "PointMapEntity", "type": "robot_position", "points": [10, 12],
			 "metaData": {"angle": 45}},
			{"__class": "PointMapEntity", "type": "charger_location", "points": [3, 4]},
			{"__class": "PathMapEntity", "type": "path", "points": [1,1,2,2,3,3]}
		]
	}`)

	m, err := ParseMap(data)
	if err != nil {
		t.Fatalf("ParseMap: %v", err)
	}

	if m.Size.X != 1024 || m.Size.Y != 1024 {
		t.Errorf("size = %+v, want 1024x1024", m.Size)
	}
	if m.PixelSizeMm != 50 {
		t.Errorf("pixel size = %v, want 50", m.PixelSizeMm)
	}

	// Layer order is preserved as z-order.
	kinds := []LayerKind{LayerFloor, LayerWall, LayerSegment}
	if len(m.Layers) != 3 {
		t.Fatalf("layers = %d, want 3", len(m.Layers))
	}
	for i, want := range kinds {
		if m.Layers[i].Kind != want {
			t.Errorf("layer %d kind = %q, want %q", i, m.Layers[i].Kind, want)
		}
	}

	// Numeric segment ids decode to their string form.
	if m.Layers[2].SegmentID != "7" {
		t.Errorf("segment id = %q, want %q", m.Layers[2].SegmentID, "7")
	}

	robot, ok := m.EntityByKind(EntityRobotPosition)
	if !ok {
		t.Fatal("no robot_position entity")
	}
	if robot.Angle == nil || *robot.Angle != 45 {
		t.Errorf("robot angle = %v, want 45", robot.Angle)
	}

	path, ok := m.EntityByKind(EntityPath)
	if !ok {
		t.Fatal("no path entity")
	}
	if len(path.Points) != 3 {
		t.Errorf("path points = %d, want 3", len(path.Points))
	}
}

func TestParseMap_InvalidJSON(t *testing.T) {
	if _, err := ParseMap([]byte("not json")); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestSegmentID_StringAndNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"segmentId": "16"}`, "16"},
		{`{"segmentId": 16}`, "16"},
		{`{"segmentId": null}`, ""},
		{`{}`, ""},
	}
	for _, tt := range tests {
		var meta RawLayerMeta
		if err := json.Unmarshal([]byte(tt.in), &meta); err != nil {
			t.Errorf("%s: %v", tt.in, err)
			continue
		}
		if string(meta.SegmentID) != tt.want {
			t.Errorf("%s: segment id = %q, want %q", tt.in, meta.SegmentID, tt.want)
		}
	}
}

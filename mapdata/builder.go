package mapdata

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Decode failures. Either one fails the whole document: consumers never see
// a partially decoded map. Unknown layer and entity tags are not failures;
// they decode to the unknown kinds.
var (
	// ErrMalformedGeometry means an entity's point count violates its
	// kind's arity.
	ErrMalformedGeometry = errors.New("malformed geometry")

	// ErrInvalidDimensions means the declared map size is negative.
	ErrInvalidDimensions = errors.New("invalid dimensions")
)

// ParseMap decodes a firmware map JSON document into a Map.
func ParseMap(data []byte) (*Map, error) {
	var raw RawMap
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("map json: %w", err)
	}
	return BuildMap(&raw)
}

// BuildMap validates raw telemetry and assembles the typed model. The
// returned Map owns all of its slices; the caller may reuse or mutate raw
// afterwards without affecting the document.
func BuildMap(raw *RawMap) (*Map, error) {
	m := &Map{}

	if raw.Size != nil {
		if raw.Size.X < 0 || raw.Size.Y < 0 {
			return nil, fmt.Errorf("size %dx%d: %w", raw.Size.X, raw.Size.Y, ErrInvalidDimensions)
		}
		m.Size = Size{X: raw.Size.X, Y: raw.Size.Y}
	}
	if raw.PixelSize > 0 {
		m.PixelSizeMm = raw.PixelSize
	}

	m.Layers = make([]Layer, 0, len(raw.Layers))
	for i := range raw.Layers {
		m.Layers = append(m.Layers, buildLayer(&raw.Layers[i]))
	}

	m.Entities = make([]Entity, 0, len(raw.Entities))
	for i := range raw.Entities {
		ent, err := buildEntity(&raw.Entities[i])
		if err != nil {
			return nil, fmt.Errorf("entity %d (%s): %w", i, raw.Entities[i].Type, err)
		}
		m.Entities = append(m.Entities, ent)
	}

	return m, nil
}

func buildLayer(raw *RawLayer) Layer {
	layer := Layer{
		Kind:      layerKindOf(raw.Type),
		RawType:   raw.Type,
		SegmentID: string(raw.MetaData.SegmentID),
		Name:      raw.MetaData.Name,
		Active:    raw.MetaData.Active,
	}

	// Explicit pixels win over the compressed stream; neither present
	// means a valid empty layer.
	switch {
	case len(raw.Pixels) > 0:
		layer.Pixels = pairPoints(raw.Pixels)
	case len(raw.CompressedPixels) > 0:
		layer.Pixels = DecodeRuns(raw.CompressedPixels)
	default:
		layer.Pixels = []Point{}
	}

	if raw.Dimensions != nil {
		layer.Dimensions = &Dimensions{
			MinX: raw.Dimensions.X.Min,
			MaxX: raw.Dimensions.X.Max,
			MidX: raw.Dimensions.X.Mid,
			MinY: raw.Dimensions.Y.Min,
			MaxY: raw.Dimensions.Y.Max,
			MidY: raw.Dimensions.Y.Mid,
		}
	}
	return layer
}

func buildEntity(raw *RawEntity) (Entity, error) {
	ent := Entity{
		Kind:    entityKindOf(raw.Type),
		RawType: raw.Type,
	}

	if err := checkArity(ent.Kind, len(raw.Points)); err != nil {
		return Entity{}, err
	}

	values := raw.Points
	if ent.Kind == EntityRobotPosition {
		// The heading rides either in metaData.angle or as a bare third
		// value after the position pair; metaData wins when both appear.
		switch {
		case raw.MetaData.Angle != nil:
			angle := int(math.Round(*raw.MetaData.Angle))
			ent.Angle = &angle
		case len(values) >= 3:
			angle := values[2]
			ent.Angle = &angle
		}
		if len(values) > 2 {
			values = values[:2]
		}
	}

	ent.Points = pairPoints(values)
	return ent, nil
}

// checkArity enforces per-kind requirements on the flat value count. Fixed
// arity kinds (the single-point kinds, the two-point virtual wall) reject
// inconsistent counts; area kinds need at least four corners; paths may be
// empty. Unknown kinds carry whatever they carry.
func checkArity(kind EntityKind, n int) error {
	switch kind {
	case EntityRobotPosition, EntityChargerLocation, EntityGoToTarget:
		if n < 2 {
			return fmt.Errorf("%d point values, want at least 2: %w", n, ErrMalformedGeometry)
		}
	case EntityVirtualWall:
		if n != 4 {
			return fmt.Errorf("%d point values, want exactly 4: %w", n, ErrMalformedGeometry)
		}
	case EntityNoGoArea, EntityNoMopArea, EntityActiveZone:
		if n < 8 {
			return fmt.Errorf("%d point values, want at least 8: %w", n, ErrMalformedGeometry)
		}
	}
	return nil
}

// pairPoints folds a flat x0,y0,x1,y1,... list into points, dropping a
// dangling odd value.
func pairPoints(values []int) []Point {
	points := make([]Point, 0, len(values)/2)
	for i := 0; i+1 < len(values); i += 2 {
		points = append(points, Point{X: values[i], Y: values[i+1]})
	}
	return points
}

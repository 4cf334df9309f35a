// Package mapdata decodes robot map telemetry into a typed spatial model:
// classified pixel layers, point-based entities, and the pixel/physical
// coordinate transform used to build outgoing commands. The whole package is
// pure: no I/O, no logging, no retained state between calls.
package mapdata

// Point is a coordinate in map pixel space.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Size is the map extent in pixels. The zero Size means the document
// declared no dimensions (an empty, not-yet-mapped area).
type Size struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// LayerKind classifies a pixel layer.
type LayerKind string

// Layer kinds. The values are the firmware's wire tags, matched
// case-sensitively. LayerUnknown marks a tag this build does not understand;
// the original tag stays available in Layer.RawType.
const (
	LayerFloor   LayerKind = "floor"
	LayerWall    LayerKind = "wall"
	LayerSegment LayerKind = "segment"
	LayerUnknown LayerKind = "unknown"
)

func layerKindOf(tag string) LayerKind {
	switch LayerKind(tag) {
	case LayerFloor, LayerWall, LayerSegment:
		return LayerKind(tag)
	}
	return LayerUnknown
}

// EntityKind classifies a point-based map feature.
type EntityKind string

// Entity kinds, same tag convention as layer kinds.
const (
	EntityRobotPosition   EntityKind = "robot_position"
	EntityChargerLocation EntityKind = "charger_location"
	EntityPath            EntityKind = "path"
	EntityPredictedPath   EntityKind = "predicted_path"
	EntityVirtualWall     EntityKind = "virtual_wall"
	EntityNoGoArea        EntityKind = "no_go_area"
	EntityNoMopArea       EntityKind = "no_mop_area"
	EntityGoToTarget      EntityKind = "go_to_target"
	EntityActiveZone      EntityKind = "active_zone"
	EntityUnknown         EntityKind = "unknown"
)

func entityKindOf(tag string) EntityKind {
	switch EntityKind(tag) {
	case EntityRobotPosition, EntityChargerLocation, EntityPath,
		EntityPredictedPath, EntityVirtualWall, EntityNoGoArea,
		EntityNoMopArea, EntityGoToTarget, EntityActiveZone:
		return EntityKind(tag)
	}
	return EntityUnknown
}

// Dimensions is a layer bounding box in pixel coordinates, inclusive on all
// edges.
type Dimensions struct {
	MinX int `json:"minX"`
	MaxX int `json:"maxX"`
	MidX int `json:"midX"`
	MinY int `json:"minY"`
	MaxY int `json:"maxY"`
	MidY int `json:"midY"`
}

// Contains reports whether p falls inside the box.
func (d Dimensions) Contains(p Point) bool {
	return p.X >= d.MinX && p.X <= d.MaxX && p.Y >= d.MinY && p.Y <= d.MaxY
}

// Layer is one classified pixel region of the map.
type Layer struct {
	// Kind is the classification. RawType preserves the wire tag and
	// differs from Kind only when Kind is LayerUnknown.
	Kind    LayerKind `json:"kind"`
	RawType string    `json:"rawType"`

	// Pixels is always fully expanded; compressed runs never leak out of
	// the builder.
	Pixels []Point `json:"pixels"`

	// SegmentID is set only for segment layers that declared one. A
	// segment without an id decodes fine but cannot be addressed by
	// room cleaning commands.
	SegmentID string `json:"segmentId,omitempty"`
	Name      string `json:"name,omitempty"`
	Active    bool   `json:"active,omitempty"`

	// Dimensions is the bounding box declared by the firmware, when
	// present. BoundingBox computes one from Pixels otherwise.
	Dimensions *Dimensions `json:"dimensions,omitempty"`
}

// Entity is one point-based map feature. Interpretation of Points depends
// on Kind: a single point for robot_position, charger_location and
// go_to_target, polyline vertices for the path kinds, two endpoints for
// virtual_wall, and four corners for the area kinds.
type Entity struct {
	Kind    EntityKind `json:"kind"`
	RawType string     `json:"rawType"`

	Points []Point `json:"points"`

	// Angle is the heading in degrees, set only for robot_position.
	Angle *int `json:"angle,omitempty"`
}

// Map is one fully decoded telemetry snapshot. A Map is immutable once
// built: consumers read it and never modify it, and every snapshot produces
// a fresh document with no state carried over from the previous one.
type Map struct {
	// Size is the declared extent in pixels, zero when the document
	// carried none.
	Size Size `json:"size"`

	// PixelSizeMm is the physical edge length of one pixel in
	// millimeters, 0 when the document declared none. NewTransform
	// requires an explicit fallback for that case.
	PixelSizeMm float64 `json:"pixelSizeMm"`

	// Layers keeps the source order, which is also the render z-order
	// (floor beneath walls beneath segments).
	Layers []Layer `json:"layers"`

	// Entities keeps the source order for deterministic iteration.
	Entities []Entity `json:"entities"`
}

// Segments returns the segment layers in document order. The returned
// pointers share the Map's storage; treat them as read-only.
func (m *Map) Segments() []*Layer {
	var segs []*Layer
	for i := range m.Layers {
		if m.Layers[i].Kind == LayerSegment {
			segs = append(segs, &m.Layers[i])
		}
	}
	return segs
}

// SegmentByID returns the segment layer with the given id.
func (m *Map) SegmentByID(id string) (*Layer, bool) {
	if id == "" {
		return nil, false
	}
	for i := range m.Layers {
		l := &m.Layers[i]
		if l.Kind == LayerSegment && l.SegmentID == id {
			return l, true
		}
	}
	return nil, false
}

// EntityByKind returns the first entity of the given kind in document
// order.
func (m *Map) EntityByKind(kind EntityKind) (*Entity, bool) {
	for i := range m.Entities {
		if m.Entities[i].Kind == kind {
			return &m.Entities[i], true
		}
	}
	return nil, false
}

// EntitiesByKind returns every entity of the given kind, in document order.
func (m *Map) EntitiesByKind(kind EntityKind) []*Entity {
	var ents []*Entity
	for i := range m.Entities {
		if m.Entities[i].Kind == kind {
			ents = append(ents, &m.Entities[i])
		}
	}
	return ents
}

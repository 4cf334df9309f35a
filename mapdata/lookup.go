package mapdata

// Contains reports whether the layer's pixel set includes p.
func (l *Layer) Contains(p Point) bool {
	for _, px := range l.Pixels {
		if px == p {
			return true
		}
	}
	return false
}

// BoundingBox computes the pixel extent of the layer. ok is false for a
// layer with no pixels.
func (l *Layer) BoundingBox() (Dimensions, bool) {
	if len(l.Pixels) == 0 {
		return Dimensions{}, false
	}
	first := l.Pixels[0]
	d := Dimensions{MinX: first.X, MaxX: first.X, MinY: first.Y, MaxY: first.Y}
	for _, px := range l.Pixels[1:] {
		if px.X < d.MinX {
			d.MinX = px.X
		}
		if px.X > d.MaxX {
			d.MaxX = px.X
		}
		if px.Y < d.MinY {
			d.MinY = px.Y
		}
		if px.Y > d.MaxY {
			d.MaxY = px.Y
		}
	}
	d.MidX = (d.MinX + d.MaxX) / 2
	d.MidY = (d.MinY + d.MaxY) / 2
	return d, true
}

// SegmentAt finds the segment containing a pixel. Segment layers are tested
// in document order and the first hit wins; the firmware should not produce
// overlapping segments, but when it does the earlier layer is returned
// rather than treated as an error. A declared bounding box is used as a
// cheap reject before the pixel scan; since a box always covers its layer's
// pixels, results are identical with or without one.
func (m *Map) SegmentAt(p Point) (string, bool) {
	for i := range m.Layers {
		layer := &m.Layers[i]
		if layer.Kind != LayerSegment {
			continue
		}
		if layer.Dimensions != nil && !layer.Dimensions.Contains(p) {
			continue
		}
		if layer.Contains(p) {
			return layer.SegmentID, true
		}
	}
	return "", false
}

package mapdata

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Raw wire structs for the firmware map document. Field names match the
// firmware JSON verbatim; BuildMap turns these into the typed model.

type RawMap struct {
	Class     string      `json:"__class,omitempty"`
	MetaData  RawMapMeta  `json:"metaData,omitempty"`
	Size      *RawSize    `json:"size,omitempty"`
	PixelSize float64     `json:"pixelSize,omitempty"`
	Layers    []RawLayer  `json:"layers"`
	Entities  []RawEntity `json:"entities"`
}

type RawMapMeta struct {
	Version int    `json:"version,omitempty"`
	Nonce   string `json:"nonce,omitempty"`
}

type RawSize struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type RawLayer struct {
	Class string `json:"__class,omitempty"`
	Type  string `json:"type"`

	// Pixels is a flat x,y pair list; CompressedPixels is a flat x,y,count
	// run list. Firmware sends one or the other, occasionally neither.
	Pixels           []int `json:"pixels,omitempty"`
	CompressedPixels []int `json:"compressedPixels,omitempty"`

	MetaData   RawLayerMeta   `json:"metaData,omitempty"`
	Dimensions *RawDimensions `json:"dimensions,omitempty"`
}

type RawLayerMeta struct {
	SegmentID SegmentID `json:"segmentId,omitempty"`
	Name      string    `json:"name,omitempty"`
	Active    bool      `json:"active,omitempty"`
}

type RawDimensions struct {
	X          RawAxis `json:"x"`
	Y          RawAxis `json:"y"`
	PixelCount int     `json:"pixelCount,omitempty"`
}

type RawAxis struct {
	Min int `json:"min"`
	Max int `json:"max"`
	Mid int `json:"mid"`
	Avg int `json:"avg,omitempty"`
}

type RawEntity struct {
	Class    string        `json:"__class,omitempty"`
	Type     string        `json:"type"`
	Points   []int         `json:"points"`
	MetaData RawEntityMeta `json:"metaData,omitempty"`
}

type RawEntityMeta struct {
	Angle *float64 `json:"angle,omitempty"`
}

// SegmentID tolerates both wire encodings of a segment id: newer firmware
// sends a JSON string, older builds send a bare number.
type SegmentID string

func (s *SegmentID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("segmentId: %w", err)
		}
		*s = SegmentID(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("segmentId: %w", err)
	}
	*s = SegmentID(n.String())
	return nil
}

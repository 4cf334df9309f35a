package valetudo

import (
	"encoding/json"
	"fmt"
)

// State is the flattened view of the robot's attribute list.
type State struct {
	Status       string       `json:"status"`
	StatusFlag   string       `json:"status_flag"`
	BatteryLevel int          `json:"battery_level"`
	BatteryFlag  string       `json:"battery_flag"`
	FanSpeed     string       `json:"fan_speed"`
	WaterGrade   string       `json:"water_grade"`
	DockStatus   string       `json:"dock_status"`
	Attachments  []Attachment `json:"attachments,omitempty"`
}

type Attachment struct {
	Type     string `json:"type"`
	Attached bool   `json:"attached"`
}

// Attribute class names as they appear in the firmware's __class field.
const (
	classStatus          = "StatusStateAttribute"
	classBattery         = "BatteryStateAttribute"
	classPresetSelection = "PresetSelectionStateAttribute"
	classAttachment      = "AttachmentStateAttribute"
	classDockStatus      = "DockStatusStateAttribute"
)

type attrHeader struct {
	Class string `json:"__class"`
}

type statusAttribute struct {
	Value string `json:"value"`
	Flag  string `json:"flag"`
}

type batteryAttribute struct {
	Level int    `json:"level"`
	Flag  string `json:"flag"`
}

type presetAttribute struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type attachmentAttribute struct {
	Type     string `json:"type"`
	Attached bool   `json:"attached"`
}

type dockStatusAttribute struct {
	Value string `json:"value"`
}

// DecodeStateAttributes folds a raw attribute array into a State. Each
// element is inspected for its __class before the full decode; classes this
// build does not know are skipped, not rejected.
func DecodeStateAttributes(data []byte) (*State, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("valetudo attributes: %w", err)
	}

	st := &State{}
	for i, item := range raw {
		var header attrHeader
		if err := json.Unmarshal(item, &header); err != nil {
			return nil, fmt.Errorf("valetudo attribute %d header: %w", i, err)
		}
		switch header.Class {
		case classStatus:
			var a statusAttribute
			if err := json.Unmarshal(item, &a); err != nil {
				return nil, fmt.Errorf("valetudo attribute %d (%s): %w", i, header.Class, err)
			}
			st.Status = a.Value
			st.StatusFlag = a.Flag
		case classBattery:
			var a batteryAttribute
			if err := json.Unmarshal(item, &a); err != nil {
				return nil, fmt.Errorf("valetudo attribute %d (%s): %w", i, header.Class, err)
			}
			st.BatteryLevel = a.Level
			st.BatteryFlag = a.Flag
		case classPresetSelection:
			var a presetAttribute
			if err := json.Unmarshal(item, &a); err != nil {
				return nil, fmt.Errorf("valetudo attribute %d (%s): %w", i, header.Class, err)
			}
			switch a.Type {
			case "fan_speed":
				st.FanSpeed = a.Value
			case "water_grade":
				st.WaterGrade = a.Value
			}
		case classAttachment:
			var a attachmentAttribute
			if err := json.Unmarshal(item, &a); err != nil {
				return nil, fmt.Errorf("valetudo attribute %d (%s): %w", i, header.Class, err)
			}
			st.Attachments = append(st.Attachments, Attachment{Type: a.Type, Attached: a.Attached})
		case classDockStatus:
			var a dockStatusAttribute
			if err := json.Unmarshal(item, &a); err != nil {
				return nil, fmt.Errorf("valetudo attribute %d (%s): %w", i, header.Class, err)
			}
			st.DockStatus = a.Value
		}
	}
	return st, nil
}

// State fetches and decodes the robot's current attribute list.
func (c *Client) State() (*State, error) {
	data, err := c.getRaw("/api/v2/robot/state/attributes")
	if err != nil {
		return nil, err
	}
	return DecodeStateAttributes(data)
}

package valetudo

import (
	"errors"
	"fmt"
)

// ErrNotSupported reports a capability the connected firmware does not
// advertise. Callers match it with errors.Is.
var ErrNotSupported = errors.New("capability not supported")

// Capability names as advertised by GET /api/v2/robot/capabilities.
const (
	CapBasicControl    = "BasicControlCapability"
	CapGoToLocation    = "GoToLocationCapability"
	CapZoneCleaning    = "ZoneCleaningCapability"
	CapMapSegmentation = "MapSegmentationCapability"
	CapFanSpeedControl = "FanSpeedControlCapability"
	CapLocate          = "LocateCapability"
)

// Zone is an axis-aligned cleaning rectangle in physical millimetres.
type Zone struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

type actionRequest struct {
	Action string `json:"action"`
}

type coordinates struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type goToRequest struct {
	Action      string      `json:"action"`
	Coordinates coordinates `json:"coordinates"`
}

type zonePoints struct {
	PA coordinates `json:"pA"`
	PB coordinates `json:"pB"`
	PC coordinates `json:"pC"`
	PD coordinates `json:"pD"`
}

type zoneEntry struct {
	Points     zonePoints `json:"points"`
	Iterations int        `json:"iterations"`
}

type zoneCleanRequest struct {
	Action string      `json:"action"`
	Zones  []zoneEntry `json:"zones"`
}

type segmentActionRequest struct {
	Action     string   `json:"action"`
	SegmentIDs []string `json:"segment_ids"`
	Iterations int      `json:"iterations"`
}

type presetRequest struct {
	Name string `json:"name"`
}

// Supports reports whether the firmware advertises a capability. The
// capability list is fetched once and cached for the client's lifetime.
func (c *Client) Supports(capability string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.caps == nil {
		var list []string
		if err := c.get("/api/v2/robot/capabilities", &list); err != nil {
			return false, err
		}
		c.caps = make(map[string]bool, len(list))
		for _, name := range list {
			c.caps[name] = true
		}
	}
	return c.caps[capability], nil
}

func (c *Client) require(capability string) error {
	ok, err := c.Supports(capability)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", capability, ErrNotSupported)
	}
	return nil
}

func (c *Client) basicControl(action string) error {
	if err := c.require(CapBasicControl); err != nil {
		return err
	}
	return c.put("/api/v2/robot/capabilities/"+CapBasicControl, &actionRequest{Action: action}, nil)
}

// Start begins or resumes a full cleanup.
func (c *Client) Start() error { return c.basicControl("start") }

// Stop aborts the current operation.
func (c *Client) Stop() error { return c.basicControl("stop") }

// Pause halts the robot in place.
func (c *Client) Pause() error { return c.basicControl("pause") }

// Home sends the robot back to its dock.
func (c *Client) Home() error { return c.basicControl("home") }

// GoTo drives the robot to a point given in millimetres.
func (c *Client) GoTo(xMm, yMm float64) error {
	if err := c.require(CapGoToLocation); err != nil {
		return err
	}
	return c.put("/api/v2/robot/capabilities/"+CapGoToLocation,
		&goToRequest{Action: "goto", Coordinates: coordinates{X: xMm, Y: yMm}}, nil)
}

// CleanZones starts a zone cleanup. Zone corners may be given in any order;
// the firmware wants them as four named points, pA clockwise through pD.
func (c *Client) CleanZones(zones []Zone, iterations int) error {
	if err := c.require(CapZoneCleaning); err != nil {
		return err
	}
	if iterations < 1 {
		iterations = 1
	}
	req := zoneCleanRequest{Action: "clean", Zones: make([]zoneEntry, 0, len(zones))}
	for _, z := range zones {
		xMin, xMax := z.X1, z.X2
		if xMin > xMax {
			xMin, xMax = xMax, xMin
		}
		yMin, yMax := z.Y1, z.Y2
		if yMin > yMax {
			yMin, yMax = yMax, yMin
		}
		req.Zones = append(req.Zones, zoneEntry{
			Points: zonePoints{
				PA: coordinates{X: xMin, Y: yMin},
				PB: coordinates{X: xMax, Y: yMin},
				PC: coordinates{X: xMax, Y: yMax},
				PD: coordinates{X: xMin, Y: yMax},
			},
			Iterations: iterations,
		})
	}
	return c.put("/api/v2/robot/capabilities/"+CapZoneCleaning, &req, nil)
}

// CleanSegments starts a cleanup of the given segment IDs.
func (c *Client) CleanSegments(segmentIDs []string, iterations int) error {
	if err := c.require(CapMapSegmentation); err != nil {
		return err
	}
	if iterations < 1 {
		iterations = 1
	}
	return c.put("/api/v2/robot/capabilities/"+CapMapSegmentation,
		&segmentActionRequest{Action: "start_segment_action", SegmentIDs: segmentIDs, Iterations: iterations}, nil)
}

// FanSpeedPresets lists the suction presets the firmware accepts.
func (c *Client) FanSpeedPresets() ([]string, error) {
	if err := c.require(CapFanSpeedControl); err != nil {
		return nil, err
	}
	var presets []string
	if err := c.get("/api/v2/robot/capabilities/"+CapFanSpeedControl+"/presets", &presets); err != nil {
		return nil, err
	}
	return presets, nil
}

// SetFanSpeed selects a suction preset by name.
func (c *Client) SetFanSpeed(preset string) error {
	if err := c.require(CapFanSpeedControl); err != nil {
		return err
	}
	return c.put("/api/v2/robot/capabilities/"+CapFanSpeedControl+"/preset", &presetRequest{Name: preset}, nil)
}

// Locate makes the robot play its locate sound.
func (c *Client) Locate() error {
	if err := c.require(CapLocate); err != nil {
		return err
	}
	return c.put("/api/v2/robot/capabilities/"+CapLocate, &actionRequest{Action: "locate"}, nil)
}

package valetudo

// RobotInfo identifies the hardware behind a Valetudo install.
type RobotInfo struct {
	Manufacturer   string `json:"manufacturer"`
	ModelName      string `json:"modelName"`
	Implementation string `json:"implementation"`
}

// VersionInfo is the firmware's own release and commit.
type VersionInfo struct {
	Release string `json:"release"`
	Commit  string `json:"commit"`
}

func (c *Client) Info() (*RobotInfo, error) {
	var info RobotInfo
	if err := c.get("/api/v2/robot", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) Version() (*VersionInfo, error) {
	var v VersionInfo
	if err := c.get("/api/v2/valetudo/version", &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Capabilities returns the advertised capability list without caching.
func (c *Client) Capabilities() ([]string, error) {
	var list []string
	if err := c.get("/api/v2/robot/capabilities", &list); err != nil {
		return nil, err
	}
	return list, nil
}

package valetudo

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testServer(handler http.HandlerFunc) (*httptest.Server, *Client) {
	srv := httptest.NewServer(handler)
	client := NewClient(srv.URL, 5*time.Second)
	return srv, client
}

// serveCapabilities answers the capability probe and hands everything else
// to next.
func serveCapabilities(caps []string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v2/robot/capabilities" {
			json.NewEncoder(w).Encode(caps)
			return
		}
		next(w, r)
	}
}

var allCaps = []string{
	CapBasicControl, CapGoToLocation, CapZoneCleaning,
	CapMapSegmentation, CapFanSpeedControl, CapLocate,
}

func TestState(t *testing.T) {
	srv, client := testServer(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/robot/state/attributes" {
			t.Errorf("path = %q, want /api/v2/robot/state/attributes", r.URL.Path)
		}
		w.Write([]byte(`[
			{"__class":"StatusStateAttribute","value":"cleaning","flag":"segment"},
			{"__class":"BatteryStateAttribute","level":76,"flag":"discharging"},
			{"__class":"PresetSelectionStateAttribute","type":"fan_speed","value":"max"},
			{"__class":"PresetSelectionStateAttribute","type":"water_grade","value":"low"},
			{"__class":"AttachmentStateAttribute","type":"dustbin","attached":true},
			{"__class":"AttachmentStateAttribute","type":"mop","attached":false},
			{"__class":"DockStatusStateAttribute","value":"idle"},
			{"__class":"SomeFutureAttribute","value":42}
		]`))
	})
	defer srv.Close()

	st, err := client.State()
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if st.Status != "cleaning" {
		t.Errorf("Status = %q, want %q", st.Status, "cleaning")
	}
	if st.StatusFlag != "segment" {
		t.Errorf("StatusFlag = %q, want %q", st.StatusFlag, "segment")
	}
	if st.BatteryLevel != 76 {
		t.Errorf("BatteryLevel = %d, want 76", st.BatteryLevel)
	}
	if st.BatteryFlag != "discharging" {
		t.Errorf("BatteryFlag = %q, want %q", st.BatteryFlag, "discharging")
	}
	if st.FanSpeed != "max" {
		t.Errorf("FanSpeed = %q, want %q", st.FanSpeed, "max")
	}
	if st.WaterGrade != "low" {
		t.Errorf("WaterGrade = %q, want %q", st.WaterGrade, "low")
	}
	if st.DockStatus != "idle" {
		t.Errorf("DockStatus = %q, want %q", st.DockStatus, "idle")
	}
	if len(st.Attachments) != 2 {
		t.Fatalf("attachments = %d, want 2", len(st.Attachments))
	}
	if st.Attachments[0].Type != "dustbin" || !st.Attachments[0].Attached {
		t.Errorf("attachment 0 = %+v", st.Attachments[0])
	}
}

func TestState_BadJSON(t *testing.T) {
	srv, client := testServer(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"an array"}`))
	})
	defer srv.Close()

	if _, err := client.State(); err == nil {
		t.Fatal("expected error for non-array attributes")
	}
}

func TestMapJSON(t *testing.T) {
	raw := `{"__class":"ValetudoMap","size":{"x":100,"y":100}}`
	srv, client := testServer(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/robot/state/map" {
			t.Errorf("path = %q, want /api/v2/robot/state/map", r.URL.Path)
		}
		w.Write([]byte(raw))
	})
	defer srv.Close()

	data, err := client.MapJSON()
	if err != nil {
		t.Fatalf("MapJSON: %v", err)
	}
	if string(data) != raw {
		t.Errorf("data = %q, want original bytes", data)
	}
}

func TestCleanSegments(t *testing.T) {
	var gotBody segmentActionRequest
	srv, client := testServer(serveCapabilities(allCaps, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/robot/capabilities/MapSegmentationCapability" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Method != http.MethodPut {
			t.Errorf("method = %q, want PUT", r.Method)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
	}))
	defer srv.Close()

	if err := client.CleanSegments([]string{"7", "12"}, 2); err != nil {
		t.Fatalf("CleanSegments: %v", err)
	}
	if gotBody.Action != "start_segment_action" {
		t.Errorf("action = %q, want %q", gotBody.Action, "start_segment_action")
	}
	if len(gotBody.SegmentIDs) != 2 || gotBody.SegmentIDs[0] != "7" {
		t.Errorf("segment_ids = %v", gotBody.SegmentIDs)
	}
	if gotBody.Iterations != 2 {
		t.Errorf("iterations = %d, want 2", gotBody.Iterations)
	}
}

func TestCleanSegments_NotSupported(t *testing.T) {
	putCalled := false
	srv, client := testServer(serveCapabilities([]string{CapBasicControl}, func(w http.ResponseWriter, r *http.Request) {
		putCalled = true
	}))
	defer srv.Close()

	err := client.CleanSegments([]string{"7"}, 1)
	if !errors.Is(err, ErrNotSupported) {
		t.Fatalf("err = %v, want ErrNotSupported", err)
	}
	if putCalled {
		t.Error("capability endpoint should not be hit when unsupported")
	}
}

func TestGoTo(t *testing.T) {
	var gotBody goToRequest
	srv, client := testServer(serveCapabilities(allCaps, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/robot/capabilities/GoToLocationCapability" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
	}))
	defer srv.Close()

	if err := client.GoTo(2500, 1750); err != nil {
		t.Fatalf("GoTo: %v", err)
	}
	if gotBody.Action != "goto" {
		t.Errorf("action = %q, want %q", gotBody.Action, "goto")
	}
	if gotBody.Coordinates.X != 2500 || gotBody.Coordinates.Y != 1750 {
		t.Errorf("coordinates = %+v", gotBody.Coordinates)
	}
}

func TestCleanZones(t *testing.T) {
	var gotBody zoneCleanRequest
	srv, client := testServer(serveCapabilities(allCaps, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
	}))
	defer srv.Close()

	// Corners deliberately out of order; iterations below 1 should clamp
	err := client.CleanZones([]Zone{{X1: 500, Y1: 800, X2: 100, Y2: 200}}, 0)
	if err != nil {
		t.Fatalf("CleanZones: %v", err)
	}
	if gotBody.Action != "clean" {
		t.Errorf("action = %q, want %q", gotBody.Action, "clean")
	}
	if len(gotBody.Zones) != 1 {
		t.Fatalf("zones = %d, want 1", len(gotBody.Zones))
	}
	z := gotBody.Zones[0]
	if z.Points.PA.X != 100 || z.Points.PA.Y != 200 {
		t.Errorf("pA = %+v, want (100,200)", z.Points.PA)
	}
	if z.Points.PC.X != 500 || z.Points.PC.Y != 800 {
		t.Errorf("pC = %+v, want (500,800)", z.Points.PC)
	}
	if z.Iterations != 1 {
		t.Errorf("iterations = %d, want 1", z.Iterations)
	}
}

func TestBasicControl(t *testing.T) {
	var gotBody actionRequest
	srv, client := testServer(serveCapabilities(allCaps, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/robot/capabilities/BasicControlCapability" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
	}))
	defer srv.Close()

	if err := client.Home(); err != nil {
		t.Fatalf("Home: %v", err)
	}
	if gotBody.Action != "home" {
		t.Errorf("action = %q, want %q", gotBody.Action, "home")
	}
}

func TestSetFanSpeed(t *testing.T) {
	var gotBody presetRequest
	srv, client := testServer(serveCapabilities(allCaps, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/robot/capabilities/FanSpeedControlCapability/preset" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
	}))
	defer srv.Close()

	if err := client.SetFanSpeed("turbo"); err != nil {
		t.Fatalf("SetFanSpeed: %v", err)
	}
	if gotBody.Name != "turbo" {
		t.Errorf("name = %q, want %q", gotBody.Name, "turbo")
	}
}

func TestFanSpeedPresets(t *testing.T) {
	srv, client := testServer(serveCapabilities(allCaps, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/robot/capabilities/FanSpeedControlCapability/presets" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode([]string{"low", "medium", "high", "max"})
	}))
	defer srv.Close()

	presets, err := client.FanSpeedPresets()
	if err != nil {
		t.Fatalf("FanSpeedPresets: %v", err)
	}
	if len(presets) != 4 || presets[3] != "max" {
		t.Errorf("presets = %v", presets)
	}
}

func TestSupportsCachesCapabilities(t *testing.T) {
	probes := 0
	srv, client := testServer(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v2/robot/capabilities" {
			probes++
			json.NewEncoder(w).Encode([]string{CapLocate})
			return
		}
	})
	defer srv.Close()

	for i := 0; i < 3; i++ {
		ok, err := client.Supports(CapLocate)
		if err != nil {
			t.Fatalf("Supports: %v", err)
		}
		if !ok {
			t.Fatal("LocateCapability should be supported")
		}
	}
	if probes != 1 {
		t.Errorf("capability probes = %d, want 1", probes)
	}

	// Reconfigure drops the cache
	client.Reconfigure(srv.URL, 5*time.Second)
	client.Supports(CapLocate)
	if probes != 2 {
		t.Errorf("probes after reconfigure = %d, want 2", probes)
	}
}

func TestInfo(t *testing.T) {
	srv, client := testServer(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/robot" {
			t.Errorf("path = %q, want /api/v2/robot", r.URL.Path)
		}
		json.NewEncoder(w).Encode(RobotInfo{
			Manufacturer:   "Dreame",
			ModelName:      "L10 Pro",
			Implementation: "DreameL10ProValetudoRobot",
		})
	})
	defer srv.Close()

	info, err := client.Info()
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.ModelName != "L10 Pro" {
		t.Errorf("ModelName = %q, want %q", info.ModelName, "L10 Pro")
	}
}

func TestVersion(t *testing.T) {
	srv, client := testServer(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/valetudo/version" {
			t.Errorf("path = %q, want /api/v2/valetudo/version", r.URL.Path)
		}
		json.NewEncoder(w).Encode(VersionInfo{Release: "2024.08.0", Commit: "abcdef"})
	})
	defer srv.Close()

	v, err := client.Version()
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if v.Release != "2024.08.0" {
		t.Errorf("Release = %q, want %q", v.Release, "2024.08.0")
	}
}

func TestHTTPError(t *testing.T) {
	srv, client := testServer(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("robot is busy"))
	})
	defer srv.Close()

	_, err := client.MapJSON()
	if err == nil {
		t.Fatal("expected error for HTTP 503")
	}
	if !strings.Contains(err.Error(), "robot is busy") {
		t.Errorf("error should carry the response body, got %v", err)
	}
}

package main

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/b3nn0/bmp180d/sensors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"golang.org/x/net/websocket"
)

func get(t *testing.T, mux http.Handler, url string) (int, commandResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	var resp commandResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("GET %s: %v: %s", url, err, rec.Body.String())
	}
	return rec.Code, resp
}

func TestCommandEndpoints(t *testing.T) {
	attachEmulated(t)
	mux := newManagementMux()

	tests := []struct {
		url   string
		cmd   string
		value int32
		unit  string
		level string
	}{
		{"/readTemperature", "read_temperature", 150, "0.1C", ""},
		{"/readPressure?oss=0", "read_pressure", 69964, "Pa", ""},
		{"/readAltitude", "read_altitude", 13720, "m", ""},
		{"/getTemperatureLevel", "get_temperature_level", 0, "level", "Cold"},
		{"/command?cmd=1&oss=0", "read_pressure", 69964, "Pa", ""},
		{"/command?cmd=read_altitude", "read_altitude", 13720, "m", ""},
	}
	for _, tt := range tests {
		code, resp := get(t, mux, tt.url)
		if code != http.StatusOK || resp.Code != sensors.CodeOK {
			t.Errorf("%s: status %d code %q (%s)", tt.url, code, resp.Code, resp.Error)
			continue
		}
		if resp.Command != tt.cmd || resp.Value != tt.value || resp.Unit != tt.unit || resp.Level != tt.level {
			t.Errorf("%s: got %+v", tt.url, resp)
		}
	}
}

func TestCommandInvalidInput(t *testing.T) {
	bus := attachEmulated(t)
	mux := newManagementMux()
	before := bus.count()

	for _, url := range []string{
		"/readPressure?oss=4",
		"/readPressure?oss=-1",
		"/readPressure?oss=x",
		"/command?cmd=7",
		"/command?cmd=read_humidity",
	} {
		code, resp := get(t, mux, url)
		if code != http.StatusBadRequest || resp.Code != sensors.CodeInvalidInput {
			t.Errorf("%s: status %d code %q", url, code, resp.Code)
		}
	}
	if n := bus.count(); n != before {
		t.Errorf("invalid requests touched the bus %d times", n-before)
	}
}

func TestCommandUninitialized(t *testing.T) {
	setSensor(nil)
	code, resp := get(t, newManagementMux(), "/readTemperature")
	if code != http.StatusServiceUnavailable || resp.Code != sensors.CodeUninitialized {
		t.Errorf("status %d code %q, want 503 uninitialized", code, resp.Code)
	}
}

func TestCommandBusFailure(t *testing.T) {
	bus := attachEmulated(t)
	bus.setFail(true)

	before := testutil.ToFloat64(commandsTotal.WithLabelValues("read_pressure", sensors.CodeBusFailure))
	code, resp := get(t, newManagementMux(), "/readPressure")
	if code != http.StatusBadGateway || resp.Code != sensors.CodeBusFailure || resp.Error == "" {
		t.Errorf("status %d, response %+v", code, resp)
	}
	after := testutil.ToFloat64(commandsTotal.WithLabelValues("read_pressure", sensors.CodeBusFailure))
	if after != before+1 {
		t.Errorf("bus_failure counter went from %v to %v", before, after)
	}
}

func TestMetrics(t *testing.T) {
	attachEmulated(t)
	mux := newManagementMux()
	get(t, mux, "/readAltitude")

	if got := testutil.ToFloat64(currentPressure); got != 69964 {
		t.Errorf("pressure gauge = %v, want 69964", got)
	}
	if got := testutil.ToFloat64(currentAltitude); got != 13720 {
		t.Errorf("altitude gauge = %v, want 13720", got)
	}
	if got := testutil.ToFloat64(sensorConnected); got != 1 {
		t.Errorf("connected gauge = %v, want 1", got)
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, name := range []string{"bmp180_commands_total", "bmp180_temperature_celsius 15", "bmp180_connected 1"} {
		if !strings.Contains(body, name) {
			t.Errorf("/metrics lacks %q", name)
		}
	}
}

func TestStatusRequest(t *testing.T) {
	attachEmulated(t)
	mux := newManagementMux()
	get(t, mux, "/readPressure?oss=3")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/getStatus", nil))
	var s status
	if err := json.Unmarshal(rec.Body.Bytes(), &s); err != nil {
		t.Fatal(err)
	}
	if !s.BMPConnected || s.OSS != 3 || s.TemperatureStr == "" || s.PressureStr == "" {
		t.Errorf("status = %+v", s)
	}
}

func TestSettingsRequests(t *testing.T) {
	withConfig(t, "")
	storeSettings(defaultSettings())
	mux := newManagementMux()

	post := func(body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/setSettings", strings.NewReader(body)))
		return rec
	}

	if rec := post(`{"OSS": 2, "DEBUG": true, "ReplayFile": "/tmp/x"}`); rec.Code != http.StatusOK {
		t.Fatalf("setSettings: %d %s", rec.Code, rec.Body.String())
	}
	if cfg := getSettings(); cfg.OSS != 2 || !cfg.DEBUG {
		t.Errorf("settings not applied: %+v", cfg)
	}
	if cfg := getSettings(); cfg.ReplayFile != "" {
		t.Errorf("ReplayFile changed at runtime: %q", cfg.ReplayFile)
	}
	buf, err := os.ReadFile(configLocation)
	if err != nil || !strings.Contains(string(buf), `"OSS": 2`) {
		t.Errorf("settings not saved: %v %s", err, buf)
	}

	if rec := post(`{"OSS": 9}`); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid OSS accepted: %d", rec.Code)
	}
	if cfg := getSettings(); cfg.OSS != 2 {
		t.Errorf("rejected settings were applied: OSS %d", cfg.OSS)
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/setSettings", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /setSettings = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/getSettings", nil))
	var got settings
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil || got.OSS != 2 {
		t.Errorf("getSettings = %+v, %v", got, err)
	}
}

func TestConcurrentSettingsUpdates(t *testing.T) {
	withConfig(t, "")
	storeSettings(defaultSettings())
	mux := newManagementMux()
	log.SetOutput(io.Discard)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	done := make(chan struct{})
	var readers sync.WaitGroup
	readers.Add(1)
	go func() {
		defer readers.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			_ = getSettings().PollInterval
			logDbg("settings reader\n")
		}
	}()

	// Each request changes a different field; none may be lost.
	bodies := []string{`{"PollInterval": 250}`, `{"DEBUG": true}`, `{"OSS": 3}`, `{"TraceLog": false}`}
	var wg sync.WaitGroup
	for round := 0; round < 10; round++ {
		for _, body := range bodies {
			wg.Add(1)
			go func(body string) {
				defer wg.Done()
				rec := httptest.NewRecorder()
				mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/setSettings", strings.NewReader(body)))
				if rec.Code != http.StatusOK {
					t.Errorf("%s: %d %s", body, rec.Code, rec.Body.String())
				}
			}(body)
		}
	}
	wg.Wait()
	close(done)
	readers.Wait()

	cfg := getSettings()
	if cfg.PollInterval != 250 || !cfg.DEBUG || cfg.OSS != 3 {
		t.Errorf("lost update: %+v", cfg)
	}
	buf, err := os.ReadFile(configLocation)
	if err != nil {
		t.Fatal(err)
	}
	var saved settings
	if err := json.Unmarshal(buf, &saved); err != nil || saved != cfg {
		t.Errorf("saved settings %+v differ from current %+v (%v)", saved, cfg, err)
	}
}

func TestControlConnection(t *testing.T) {
	attachEmulated(t)
	srv := httptest.NewServer(newManagementMux())
	defer srv.Close()

	ws, err := websocket.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/control", "", srv.URL)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer ws.Close()

	requests := []commandRequest{
		{ID: 1, Command: "0"},
		{ID: 2, Command: "read_pressure", OSS: 5},
		{ID: 3, Command: "3"},
	}
	want := []struct {
		value int32
		code  string
	}{
		{150, sensors.CodeOK},
		{0, sensors.CodeInvalidInput},
		{0, sensors.CodeOK},
	}
	for i, req := range requests {
		if err := websocket.JSON.Send(ws, req); err != nil {
			t.Fatal(err)
		}
		var resp commandResponse
		if err := websocket.JSON.Receive(ws, &resp); err != nil {
			t.Fatal(err)
		}
		if resp.ID != req.ID || resp.Value != want[i].value || resp.Code != want[i].code {
			t.Errorf("request %d: got %+v", req.ID, resp)
		}
	}

	// A malformed request is answered, the connection stays usable.
	if _, err := io.WriteString(ws, "not json"); err != nil {
		t.Fatal(err)
	}
	var resp commandResponse
	if err := websocket.JSON.Receive(ws, &resp); err != nil || resp.Code != sensors.CodeInvalidInput {
		t.Errorf("malformed request: %+v, %v", resp, err)
	}
}

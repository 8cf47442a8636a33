package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/IM-Lab-france/fishfeeder/internal/config"
	"github.com/IM-Lab-france/fishfeeder/internal/device"
	"github.com/IM-Lab-france/fishfeeder/internal/feeder"
)

// fakeDevice records the calls the handlers make and returns scripted
// results.
type fakeDevice struct {
	status device.Status

	feedErr    error
	restartErr error
	applyErr   error

	feedCalls    []string
	restartCalls []string
	applied      []config.Update
}

func (f *fakeDevice) Status() device.Status { return f.status }

func (f *fakeDevice) RequestFeed(source string) error {
	f.feedCalls = append(f.feedCalls, source)
	return f.feedErr
}

func (f *fakeDevice) RequestRestart(source string) error {
	f.restartCalls = append(f.restartCalls, source)
	return f.restartErr
}

func (f *fakeDevice) ApplyConfig(source string, u config.Update) (config.DeviceConfig, error) {
	f.applied = append(f.applied, u)
	if f.applyErr != nil {
		return config.DeviceConfig{}, f.applyErr
	}
	return config.Defaults(), nil
}

func newTestServer(dev *fakeDevice) *Server {
	return New(&Config{Host: "127.0.0.1", Port: 8080}, dev)
}

func postForm(t *testing.T, h http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIndexServesEmbeddedPage(t *testing.T) {
	h := newTestServer(&fakeDevice{}).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Fish Feeder") {
		t.Error("page body does not look like the configuration page")
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/no-such-page", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown path, got %d", rec.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	dev := &fakeDevice{}
	dev.status.DeviceConfig = config.Defaults()
	dev.status.WifiState = "access_point"
	dev.status.ApSsid = "FishFeeder-1234"
	dev.status.ServoMinAngle = config.MinAngleDeg
	dev.status.ServoMaxAngle = config.MaxAngleDeg

	h := newTestServer(dev).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("unexpected content type %q", ct)
	}

	var doc map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("status is not valid JSON: %v", err)
	}
	if doc["wifiState"] != "access_point" {
		t.Errorf("wifiState = %v", doc["wifiState"])
	}
	if doc["apSsid"] != "FishFeeder-1234" {
		t.Errorf("apSsid = %v", doc["apSsid"])
	}
	if doc["mqttBase"] != "aquarium/feeder" {
		t.Errorf("mqttBase = %v", doc["mqttBase"])
	}
	if doc["servoMinAngle"] != float64(config.MinAngleDeg) {
		t.Errorf("servoMinAngle = %v", doc["servoMinAngle"])
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/status", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /status: expected 405, got %d", rec.Code)
	}
}

func TestFeedEndpoint(t *testing.T) {
	dev := &fakeDevice{}
	h := newTestServer(dev).Handler()

	rec := postForm(t, h, "/feed", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(dev.feedCalls) != 1 || dev.feedCalls[0] != "http" {
		t.Errorf("feed calls = %v", dev.feedCalls)
	}

	dev.feedErr = feeder.ErrBusy
	rec = postForm(t, h, "/feed", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("busy feeder: expected 409, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/feed", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /feed: expected 405, got %d", rec.Code)
	}
}

func TestRestartEndpoint(t *testing.T) {
	dev := &fakeDevice{}
	h := newTestServer(dev).Handler()

	rec := postForm(t, h, "/restart", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(dev.restartCalls) != 1 || dev.restartCalls[0] != "http" {
		t.Errorf("restart calls = %v", dev.restartCalls)
	}
}

func TestSaveWifi(t *testing.T) {
	dev := &fakeDevice{}
	h := newTestServer(dev).Handler()

	rec := postForm(t, h, "/saveWifi", url.Values{
		"ssid": {"HomeNet"},
		"pass": {"hunter22"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(dev.applied) != 1 {
		t.Fatalf("applied %d updates", len(dev.applied))
	}
	u := dev.applied[0]
	if u.WifiSSID == nil || *u.WifiSSID != "HomeNet" {
		t.Errorf("WifiSSID not carried: %+v", u)
	}
	if u.WifiPass == nil || *u.WifiPass != "hunter22" {
		t.Errorf("WifiPass not carried: %+v", u)
	}
	if u.TouchesMqtt() {
		t.Error("WiFi save must not touch MQTT fields")
	}
}

func TestSaveWifiValidationFailure(t *testing.T) {
	dev := &fakeDevice{applyErr: &config.ValidationError{Field: "pass", Reason: "too short"}}
	h := newTestServer(dev).Handler()

	rec := postForm(t, h, "/saveWifi", url.Values{
		"ssid": {"HomeNet"},
		"pass": {"short"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "pass") {
		t.Errorf("response does not name the failing field: %q", rec.Body.String())
	}
}

func TestSaveMqtt(t *testing.T) {
	dev := &fakeDevice{}
	h := newTestServer(dev).Handler()

	rec := postForm(t, h, "/saveMqtt", url.Values{
		"host": {"broker.lan"},
		"port": {"8883"},
		"base": {"tank/feeder"},
		"user": {"fish"},
		"pwd":  {"secret"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	u := dev.applied[0]
	if u.MqttHost == nil || *u.MqttHost != "broker.lan" {
		t.Errorf("MqttHost not carried: %+v", u)
	}
	if u.MqttPort == nil || *u.MqttPort != 8883 {
		t.Errorf("MqttPort not carried: %+v", u)
	}
	if u.MqttBase == nil || *u.MqttBase != "tank/feeder" {
		t.Errorf("MqttBase not carried: %+v", u)
	}
}

func TestSaveMqttBadPort(t *testing.T) {
	dev := &fakeDevice{}
	h := newTestServer(dev).Handler()

	rec := postForm(t, h, "/saveMqtt", url.Values{
		"host": {"broker.lan"},
		"port": {"not-a-port"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(dev.applied) != 0 {
		t.Error("malformed port must not reach the controller")
	}
}

func TestSaveServo(t *testing.T) {
	dev := &fakeDevice{}
	h := newTestServer(dev).Handler()

	rec := postForm(t, h, "/saveServo", url.Values{
		"openAngle":  {"120"},
		"closeAngle": {"-10"},
		"openDelay":  {"750"},
		"speed":      {"80"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	u := dev.applied[0]
	if u.ServoOpenAngleDeg == nil || *u.ServoOpenAngleDeg != 120 {
		t.Errorf("openAngle not carried: %+v", u)
	}
	if u.ServoCloseAngleDeg == nil || *u.ServoCloseAngleDeg != -10 {
		t.Errorf("closeAngle not carried: %+v", u)
	}
	if u.ServoOpenDelayMs == nil || *u.ServoOpenDelayMs != 750 {
		t.Errorf("openDelay not carried: %+v", u)
	}
	if u.ServoSpeedPercent == nil || *u.ServoSpeedPercent != 80 {
		t.Errorf("speed not carried: %+v", u)
	}
}

func TestSaveServoChangedField(t *testing.T) {
	dev := &fakeDevice{}
	h := newTestServer(dev).Handler()

	// The page autosubmits the whole form but names the edited field;
	// only that field may reach the controller.
	rec := postForm(t, h, "/saveServo", url.Values{
		"openAngle":    {"120"},
		"closeAngle":   {"0"},
		"openDelay":    {"600"},
		"speed":        {"100"},
		"changedField": {"openAngle"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	u := dev.applied[0]
	if u.ServoOpenAngleDeg == nil || *u.ServoOpenAngleDeg != 120 {
		t.Errorf("openAngle not carried: %+v", u)
	}
	if u.ServoCloseAngleDeg != nil || u.ServoOpenDelayMs != nil || u.ServoSpeedPercent != nil {
		t.Errorf("fields other than changedField carried: %+v", u)
	}
}

func TestSaveServoRejectsGarbage(t *testing.T) {
	dev := &fakeDevice{}
	h := newTestServer(dev).Handler()

	rec := postForm(t, h, "/saveServo", url.Values{"speed": {"fast"}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("non-numeric speed: expected 400, got %d", rec.Code)
	}

	rec = postForm(t, h, "/saveServo", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty form: expected 400, got %d", rec.Code)
	}
	if len(dev.applied) != 0 {
		t.Error("rejected forms must not reach the controller")
	}
}

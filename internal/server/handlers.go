package server

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/IM-Lab-france/fishfeeder/internal/config"
	"github.com/IM-Lab-france/fishfeeder/internal/feeder"
)

//go:embed index.html
var indexPage []byte

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexPage)
}

// handleStatus returns the full status document: current config plus the
// servo angle bounds and runtime state.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.dev.Status())
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if err := s.dev.RequestFeed("http"); err != nil {
		if errors.Is(err, feeder.ErrBusy) {
			writeText(w, http.StatusConflict, "Feed cycle already in progress")
			return
		}
		writeText(w, http.StatusServiceUnavailable, "Feed request failed: "+err.Error())
		return
	}
	writeText(w, http.StatusOK, "Feeding")
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if err := s.dev.RequestRestart("http"); err != nil {
		writeText(w, http.StatusServiceUnavailable, "Restart request failed: "+err.Error())
		return
	}
	writeText(w, http.StatusOK, "Restarting")
}

func (s *Server) handleSaveWifi(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if err := r.ParseMultipartForm(1 << 16); err != nil && err != http.ErrNotMultipart {
		writeText(w, http.StatusBadRequest, "Malformed form data")
		return
	}

	ssid := r.FormValue("ssid")
	pass := r.FormValue("pass")
	u := config.Update{WifiSSID: &ssid, WifiPass: &pass}

	s.apply(w, u, "WiFi configuration saved, reconnecting")
}

func (s *Server) handleSaveMqtt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if err := r.ParseMultipartForm(1 << 16); err != nil && err != http.ErrNotMultipart {
		writeText(w, http.StatusBadRequest, "Malformed form data")
		return
	}

	host := r.FormValue("host")
	base := r.FormValue("base")
	user := r.FormValue("user")
	pwd := r.FormValue("pwd")

	port, err := strconv.Atoi(r.FormValue("port"))
	if err != nil {
		writeText(w, http.StatusBadRequest, "invalid port: not a number")
		return
	}

	u := config.Update{
		MqttHost: &host,
		MqttPort: &port,
		MqttBase: &base,
		MqttUser: &user,
		MqttPass: &pwd,
	}

	s.apply(w, u, "MQTT configuration saved")
}

// servoFormFields maps form field names to update setters. The page may
// autosubmit a single edited field via changedField; in that case only
// that field is touched.
func (s *Server) handleSaveServo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if err := r.ParseMultipartForm(1 << 16); err != nil && err != http.ErrNotMultipart {
		writeText(w, http.StatusBadRequest, "Malformed form data")
		return
	}

	var u config.Update
	changed := r.FormValue("changedField")

	setField := func(name string, dst **int) error {
		if changed != "" && changed != name {
			return nil
		}
		raw := r.FormValue(name)
		if raw == "" {
			if changed == name {
				return fmt.Errorf("invalid %s: empty value", name)
			}
			return nil
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid %s: not a number", name)
		}
		*dst = &v
		return nil
	}

	for _, f := range []struct {
		name string
		dst  **int
	}{
		{"openAngle", &u.ServoOpenAngleDeg},
		{"closeAngle", &u.ServoCloseAngleDeg},
		{"openDelay", &u.ServoOpenDelayMs},
		{"speed", &u.ServoSpeedPercent},
	} {
		if err := setField(f.name, f.dst); err != nil {
			writeText(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	if u.Empty() {
		writeText(w, http.StatusBadRequest, "No servo fields provided")
		return
	}

	s.apply(w, u, "Servo parameters saved")
}

// apply funnels a form update into the controller's dispatch point and
// reports the outcome as plain text.
func (s *Server) apply(w http.ResponseWriter, u config.Update, okMsg string) {
	if _, err := s.dev.ApplyConfig("http", u); err != nil {
		if config.IsValidationError(err) {
			writeText(w, http.StatusBadRequest, err.Error())
			return
		}
		writeText(w, http.StatusServiceUnavailable, "Update failed: "+err.Error())
		return
	}
	writeText(w, http.StatusOK, okMsg)
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintln(w, msg)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeText(w, http.StatusMethodNotAllowed, "Method not allowed")
}

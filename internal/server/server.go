package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/IM-Lab-france/fishfeeder/internal/config"
	"github.com/IM-Lab-france/fishfeeder/internal/device"
	"github.com/IM-Lab-france/fishfeeder/internal/logging"
)

// Device is the control surface the HTTP interface drives. Every endpoint
// delegates here; handlers perform no effects of their own.
type Device interface {
	Status() device.Status
	RequestFeed(source string) error
	RequestRestart(source string) error
	ApplyConfig(source string, u config.Update) (config.DeviceConfig, error)
}

// Config holds the HTTP server configuration.
type Config struct {
	Host string
	Port int
	// Instance is the mDNS instance name announced for the configuration
	// page, normally the device's access point SSID. Empty disables
	// announcement.
	Instance string
}

// Server serves the configuration page, the JSON status endpoint, the
// form-encoded update endpoints, and the websocket status stream.
type Server struct {
	config *Config
	dev    Device

	httpServer *http.Server
	mdns       *zeroconf.Server
}

// New creates a server. The device is typically the *device.Controller.
func New(cfg *Config, dev Device) *Server {
	s := &Server{config: cfg, dev: dev}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/feed", s.handleFeed)
	mux.HandleFunc("/restart", s.handleRestart)
	mux.HandleFunc("/saveWifi", s.handleSaveWifi)
	mux.HandleFunc("/saveMqtt", s.handleSaveMqtt)
	mux.HandleFunc("/saveServo", s.handleSaveServo)
	mux.HandleFunc("/events", s.handleEvents)

	s.httpServer = &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:           logRequests(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the route table for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start listens and serves until Shutdown. It blocks.
func (s *Server) Start() error {
	logging.Info("Configuration interface listening",
		zap.String("addr", s.httpServer.Addr),
	)

	s.announce()

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown stops the listener and withdraws the mDNS announcement.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.mdns != nil {
		s.mdns.Shutdown()
		s.mdns = nil
	}
	return s.httpServer.Shutdown(ctx)
}

// announce registers the configuration page over mDNS so it is findable
// without knowing the device's address, in access point and station mode
// alike. Failure is logged and ignored: the page still works by IP.
func (s *Server) announce() {
	if s.config.Instance == "" {
		return
	}
	mdns, err := zeroconf.Register(
		s.config.Instance,
		"_http._tcp",
		"local.",
		s.config.Port,
		[]string{"path=/"},
		nil,
	)
	if err != nil {
		logging.Warn("mDNS announcement failed", zap.Error(err))
		return
	}
	s.mdns = mdns
	logging.Info("mDNS announcement registered",
		zap.String("instance", s.config.Instance),
		zap.Int("port", s.config.Port),
	)
}

// logRequests wraps the mux with debug-level request logging.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logging.LogHTTPRequest(r.RemoteAddr, r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

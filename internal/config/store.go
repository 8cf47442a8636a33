package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/IM-Lab-france/fishfeeder/internal/logging"
)

// DefaultPath is where the persisted record lives on the appliance.
const DefaultPath = "/var/lib/fishfeeder/config.yaml"

// Store owns the persisted DeviceConfig. Load is called once at boot;
// afterwards all reads go through Snapshot and all writes through Apply.
// The controller is the only caller of Apply, but the mutex keeps Snapshot
// safe from HTTP handler goroutines regardless.
type Store struct {
	mu      sync.Mutex
	path    string
	current DeviceConfig
}

// NewStore creates a store backed by the given file path. The file does not
// need to exist yet; Load falls back to defaults.
func NewStore(path string) *Store {
	return &Store{path: path, current: Defaults()}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the durable record. A missing or corrupt file is treated as a
// successful load of the compiled-in defaults; boot never fails on config.
func (s *Store) Load() DeviceConfig {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Warn("Config file unreadable, using defaults",
				zap.String("path", s.path),
				zap.Error(err),
			)
		}
		s.current = Defaults()
		return s.current
	}

	var cfg DeviceConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		logging.Warn("Config file corrupt, using defaults",
			zap.String("path", s.path),
			zap.Error(err),
		)
		s.current = Defaults()
		return s.current
	}

	// Loaded values went through validation when written, but the file can
	// be hand-edited. Out-of-range fields revert to their defaults rather
	// than poisoning the servo or broker settings.
	cfg = sanitize(cfg)

	s.current = cfg
	logging.Info("Configuration loaded", zap.String("path", s.path))
	return s.current
}

// Apply validates the touched fields of the update, merges them into the
// record, persists it, and returns the new full record. On validation
// failure the stored record is untouched and a *ValidationError describes
// the offending field. A storage write failure is logged and the in-memory
// record still updates; the next boot may revert to the last durable value.
func (s *Store) Apply(u Update) (DeviceConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := u.validate(); err != nil {
		return s.current, err
	}

	merged := u.merge(s.current)
	if merged == s.current {
		// Nothing changed; skip the durable write.
		return s.current, nil
	}

	s.current = merged
	if err := s.persist(merged); err != nil {
		logging.Error("Config persist failed, in-memory value kept",
			zap.String("path", s.path),
			zap.Error(err),
		)
	}
	return s.current, nil
}

// Snapshot returns a copy of the current config. Safe to call at any time.
func (s *Store) Snapshot() DeviceConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// persist writes the record atomically: temp file in the same directory,
// then rename over the target.
func (s *Store) persist(cfg DeviceConfig) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# Fish feeder configuration.\n" +
		"# Written by fishfeederd on every accepted change; edits made while\n" +
		"# the daemon is running will be overwritten.\n\n")
	data = append(header, data...)

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}

	return nil
}

// sanitize clamps hand-edited out-of-range values back to defaults.
func sanitize(cfg DeviceConfig) DeviceConfig {
	def := Defaults()
	if ValidateMqttPort(cfg.MqttPort) != nil {
		cfg.MqttPort = def.MqttPort
	}
	if ValidateAngle("openAngle", cfg.ServoOpenAngleDeg) != nil {
		cfg.ServoOpenAngleDeg = def.ServoOpenAngleDeg
	}
	if ValidateAngle("closeAngle", cfg.ServoCloseAngleDeg) != nil {
		cfg.ServoCloseAngleDeg = def.ServoCloseAngleDeg
	}
	if ValidateOpenDelay(cfg.ServoOpenDelayMs) != nil {
		cfg.ServoOpenDelayMs = def.ServoOpenDelayMs
	}
	if ValidateSpeed(cfg.ServoSpeedPercent) != nil {
		cfg.ServoSpeedPercent = def.ServoSpeedPercent
	}
	return cfg
}

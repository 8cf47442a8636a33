package config

import (
	"errors"
	"fmt"
)

// ValidationError reports a rejected configuration field. Field names match
// the form field names of the configuration page (ssid, port, openAngle,
// ...) so HTTP callers can attribute the failure directly.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidationError checks whether an error is a rejected-field error.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func newValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ValidateSSID validates a WiFi SSID. Empty is allowed (unconfigured);
// non-empty SSIDs must fit the 32-byte WiFi spec limit.
func ValidateSSID(ssid string) error {
	if len(ssid) > 32 {
		return newValidationError("ssid", "too long (max 32 chars): %d chars", len(ssid))
	}
	return nil
}

// ValidateWifiPass validates a WiFi passphrase. Empty means an open
// network; otherwise WPA2 requires 8-63 characters.
func ValidateWifiPass(pass string) error {
	if pass == "" {
		return nil
	}
	if len(pass) < 8 {
		return newValidationError("pass", "too short (min 8 chars): %d chars", len(pass))
	}
	if len(pass) > 63 {
		return newValidationError("pass", "too long (max 63 chars): %d chars", len(pass))
	}
	return nil
}

// ValidateMqttPort validates a broker TCP port.
func ValidateMqttPort(port int) error {
	if port < 1 || port > 65535 {
		return newValidationError("port", "must be 1-65535, got %d", port)
	}
	return nil
}

// ValidateAngle validates a servo angle against the mechanical range.
// The field parameter names the reporting field (openAngle or closeAngle).
func ValidateAngle(field string, deg int) error {
	if deg < MinAngleDeg || deg > MaxAngleDeg {
		return newValidationError(field, "must be %d to %d degrees, got %d", MinAngleDeg, MaxAngleDeg, deg)
	}
	return nil
}

// ValidateOpenDelay validates the hold duration at the open position.
func ValidateOpenDelay(ms int) error {
	if ms < 0 {
		return newValidationError("openDelay", "must be >= 0 ms, got %d", ms)
	}
	return nil
}

// ValidateSpeed validates the servo speed percentage.
func ValidateSpeed(percent int) error {
	if percent < 1 || percent > 100 {
		return newValidationError("speed", "must be 1-100 percent, got %d", percent)
	}
	return nil
}

// validate checks every touched field of the update. The first failing
// field rejects the whole update.
func (u Update) validate() error {
	if u.WifiSSID != nil {
		if err := ValidateSSID(*u.WifiSSID); err != nil {
			return err
		}
	}
	if u.WifiPass != nil {
		if err := ValidateWifiPass(*u.WifiPass); err != nil {
			return err
		}
	}
	if u.MqttPort != nil {
		if err := ValidateMqttPort(*u.MqttPort); err != nil {
			return err
		}
	}
	if u.ServoOpenAngleDeg != nil {
		if err := ValidateAngle("openAngle", *u.ServoOpenAngleDeg); err != nil {
			return err
		}
	}
	if u.ServoCloseAngleDeg != nil {
		if err := ValidateAngle("closeAngle", *u.ServoCloseAngleDeg); err != nil {
			return err
		}
	}
	if u.ServoOpenDelayMs != nil {
		if err := ValidateOpenDelay(*u.ServoOpenDelayMs); err != nil {
			return err
		}
	}
	if u.ServoSpeedPercent != nil {
		if err := ValidateSpeed(*u.ServoSpeedPercent); err != nil {
			return err
		}
	}
	return nil
}

package config

// Servo angle bounds. The feeder mechanism uses a continuous-rotation
// capable mount, so angles beyond a single turn are legal.
const (
	MinAngleDeg = -720
	MaxAngleDeg = 720
)

// DeviceConfig is the single persisted record of all tunables. It is owned
// by the Store; every other component works on value copies obtained via
// Snapshot or returned from Apply.
//
// The json tags match the field names the configuration page reads from
// /status, the yaml tags shape the on-disk record.
type DeviceConfig struct {
	WifiSSID string `yaml:"wifi_ssid" json:"wifiSsid"`
	WifiPass string `yaml:"wifi_pass" json:"wifiPass"`

	MqttHost string `yaml:"mqtt_host" json:"mqttHost"`
	MqttPort int    `yaml:"mqtt_port" json:"mqttPort"`
	MqttBase string `yaml:"mqtt_base" json:"mqttBase"`
	MqttUser string `yaml:"mqtt_user" json:"mqttUser"`
	MqttPass string `yaml:"mqtt_pass" json:"mqttPass"`

	ServoOpenAngleDeg  int `yaml:"servo_open_angle_deg" json:"servoOpenAngle"`
	ServoCloseAngleDeg int `yaml:"servo_close_angle_deg" json:"servoCloseAngle"`
	ServoOpenDelayMs   int `yaml:"servo_open_delay_ms" json:"servoOpenDelayMs"`
	ServoSpeedPercent  int `yaml:"servo_speed_percent" json:"servoSpeedPercent"`
}

// Defaults returns the compiled-in configuration used on first boot or when
// the persisted record is missing or unreadable. An empty WiFi SSID means
// unconfigured; the device then hosts its own access point.
func Defaults() DeviceConfig {
	return DeviceConfig{
		WifiSSID:           "",
		WifiPass:           "",
		MqttHost:           "192.168.1.140",
		MqttPort:           1883,
		MqttBase:           "aquarium/feeder",
		MqttUser:           "",
		MqttPass:           "",
		ServoOpenAngleDeg:  90,
		ServoCloseAngleDeg: 0,
		ServoOpenDelayMs:   600,
		ServoSpeedPercent:  100,
	}
}

// Update is a partial configuration change. Nil fields are untouched;
// non-nil fields are validated and merged as one atomic unit. If any
// touched field is out of range the whole update is rejected.
type Update struct {
	WifiSSID *string
	WifiPass *string

	MqttHost *string
	MqttPort *int
	MqttBase *string
	MqttUser *string
	MqttPass *string

	ServoOpenAngleDeg  *int
	ServoCloseAngleDeg *int
	ServoOpenDelayMs   *int
	ServoSpeedPercent  *int
}

// Empty reports whether the update touches no fields at all.
func (u Update) Empty() bool {
	return u.WifiSSID == nil && u.WifiPass == nil &&
		u.MqttHost == nil && u.MqttPort == nil && u.MqttBase == nil &&
		u.MqttUser == nil && u.MqttPass == nil &&
		u.ServoOpenAngleDeg == nil && u.ServoCloseAngleDeg == nil &&
		u.ServoOpenDelayMs == nil && u.ServoSpeedPercent == nil
}

// TouchesWifi reports whether the update changes WiFi credentials. The
// controller uses this to decide when to restart the connection attempt.
func (u Update) TouchesWifi() bool {
	return u.WifiSSID != nil || u.WifiPass != nil
}

// TouchesMqtt reports whether the update changes broker settings.
func (u Update) TouchesMqtt() bool {
	return u.MqttHost != nil || u.MqttPort != nil || u.MqttBase != nil ||
		u.MqttUser != nil || u.MqttPass != nil
}

// merge returns a copy of cfg with the update's non-nil fields applied.
func (u Update) merge(cfg DeviceConfig) DeviceConfig {
	if u.WifiSSID != nil {
		cfg.WifiSSID = *u.WifiSSID
	}
	if u.WifiPass != nil {
		cfg.WifiPass = *u.WifiPass
	}
	if u.MqttHost != nil {
		cfg.MqttHost = *u.MqttHost
	}
	if u.MqttPort != nil {
		cfg.MqttPort = *u.MqttPort
	}
	if u.MqttBase != nil {
		cfg.MqttBase = *u.MqttBase
	}
	if u.MqttUser != nil {
		cfg.MqttUser = *u.MqttUser
	}
	if u.MqttPass != nil {
		cfg.MqttPass = *u.MqttPass
	}
	if u.ServoOpenAngleDeg != nil {
		cfg.ServoOpenAngleDeg = *u.ServoOpenAngleDeg
	}
	if u.ServoCloseAngleDeg != nil {
		cfg.ServoCloseAngleDeg = *u.ServoCloseAngleDeg
	}
	if u.ServoOpenDelayMs != nil {
		cfg.ServoOpenDelayMs = *u.ServoOpenDelayMs
	}
	if u.ServoSpeedPercent != nil {
		cfg.ServoSpeedPercent = *u.ServoSpeedPercent
	}
	return cfg
}

// Copyright (c) 2026 higuchi-learn / freelen
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// EnvPrefix namespaces environment overrides: FREELEN_SERVER_URL overrides
// SERVER_URL from the config file.
const EnvPrefix = "FREELEN_"

// Config holds all application configuration values.
type Config struct {
	// Device
	DeviceID    string
	Role        string
	ProfileFile string

	// Match server
	ServerURL        string
	RequestTimeoutMs int
	TickIntervalMs   int // 0 = use the profile's interval

	// Sensor
	SensorSource   string // mpu6050, serial or mock
	I2CBus         string
	MPU6050Addr    uint16
	SerialPort     string
	SerialBaudRate uint
	SampleMaxAgeMs int

	// Outputs
	LEDPins          map[string]string // led id -> gpio name
	SpeakerPin       string
	ButtonPin        string
	ButtonDebounceMs int
	DisplayEnabled   bool

	// Network
	NetworkInterface    string
	NetworkJoinAttempts int
	NetworkReconnectMs  int
	NetworkReconnectCmd string

	// MQTT telemetry
	MQTTBroker   string
	MQTTClientID string
	TopicPrefix  string

	// Servers
	StatusServerPort int
	ArbiterPort      int

	// Logging
	LogLevel  string
	LogPretty bool

	EnvFile string
}

// Package-level singleton, set once by InitGlobal and read through Get.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns a Config with every optional key at its default.
func Default() *Config {
	return &Config{
		DeviceID:            "2",
		Role:                "player2",
		RequestTimeoutMs:    2500,
		SensorSource:        "mpu6050",
		I2CBus:              "",
		MPU6050Addr:         0x68,
		SerialBaudRate:      115200,
		SampleMaxAgeMs:      500,
		LEDPins:             map[string]string{},
		ButtonDebounceMs:    30,
		NetworkJoinAttempts: 10,
		NetworkReconnectMs:  5000,
		MQTTClientID:        "freelen-controller",
		TopicPrefix:         "freelen",
		LogLevel:            "info",
		LogPretty:           true,
		ArbiterPort:         8000,
	}
}

// Load reads the configuration file, applies the optional .env overlay and
// FREELEN_* environment overrides, and validates the result.
// An empty configPath skips the file and uses defaults.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		if err := cfg.loadFile(configPath); err != nil {
			return nil, err
		}
	}

	if cfg.EnvFile != "" {
		// existing environment variables win over the file
		if err := godotenv.Load(cfg.EnvFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", cfg.EnvFile, err)
		}
	}
	if err := cfg.applyEnv(os.Environ()); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(configPath string) error {
	file, err := os.Open(configPath)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if err := c.setValue(key, value); err != nil {
			return fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// applyEnv applies FREELEN_<KEY>=value entries from environ, in sorted order
// so errors are deterministic. Unknown keys are rejected like file keys.
func (c *Config) applyEnv(environ []string) error {
	var keys []string
	values := make(map[string]string)
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(k, EnvPrefix) {
			continue
		}
		key := strings.TrimPrefix(k, EnvPrefix)
		keys = append(keys, key)
		values[key] = v
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := c.setValue(k, strings.TrimSpace(values[k])); err != nil {
			return fmt.Errorf("env %s%s: %w", EnvPrefix, k, err)
		}
	}
	return nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// Device
	case "DEVICE_ID":
		c.DeviceID = value
	case "ROLE":
		c.Role = value
	case "PROFILE_FILE":
		c.ProfileFile = value

	// Match server
	case "SERVER_URL":
		c.ServerURL = value
	case "REQUEST_TIMEOUT_MS":
		c.RequestTimeoutMs, err = positiveInt(key, value)
	case "TICK_INTERVAL_MS":
		c.TickIntervalMs, err = nonNegativeInt(key, value)

	// Sensor
	case "SENSOR_SOURCE":
		switch value {
		case "mpu6050", "serial", "mock":
			c.SensorSource = value
		default:
			return fmt.Errorf("SENSOR_SOURCE must be mpu6050, serial or mock, got %q", value)
		}
	case "I2C_BUS":
		c.I2CBus = value
	case "MPU6050_ADDR":
		c.MPU6050Addr, err = i2cAddr(key, value)
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		var rate int
		rate, err = positiveInt(key, value)
		c.SerialBaudRate = uint(rate)
	case "SAMPLE_MAX_AGE_MS":
		c.SampleMaxAgeMs, err = positiveInt(key, value)

	// Outputs
	case "LED_PINS":
		c.LEDPins, err = parsePinMap(value)
	case "SPEAKER_PIN":
		c.SpeakerPin = value
	case "BUTTON_PIN":
		c.ButtonPin = value
	case "BUTTON_DEBOUNCE_MS":
		c.ButtonDebounceMs, err = positiveInt(key, value)
	case "DISPLAY_ENABLED":
		c.DisplayEnabled, err = parseBool(key, value)

	// Network
	case "NETWORK_INTERFACE":
		c.NetworkInterface = value
	case "NETWORK_RECONNECT_CMD":
		c.NetworkReconnectCmd = value
	case "NETWORK_JOIN_ATTEMPTS":
		c.NetworkJoinAttempts, err = positiveInt(key, value)
	case "NETWORK_RECONNECT_MS":
		c.NetworkReconnectMs, err = positiveInt(key, value)

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID":
		c.MQTTClientID = value
	case "TOPIC_PREFIX":
		c.TopicPrefix = strings.Trim(value, "/")

	// Servers
	case "STATUS_SERVER_PORT":
		c.StatusServerPort, err = nonNegativeInt(key, value)
	case "ARBITER_PORT":
		c.ArbiterPort, err = positiveInt(key, value)

	// Logging
	case "LOG_LEVEL":
		c.LogLevel = strings.ToLower(value)
	case "LOG_PRETTY":
		c.LogPretty, err = parseBool(key, value)

	case "ENV_FILE":
		c.EnvFile = value

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}
	return err
}

func positiveInt(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be > 0, got %d", key, n)
	}
	return n, nil
}

func nonNegativeInt(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s must be >= 0, got %d", key, n)
	}
	return n, nil
}

func i2cAddr(key, value string) (uint16, error) {
	addr, err := strconv.ParseUint(value, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if addr > 0x7F {
		return 0, fmt.Errorf("%s must be a 7-bit address, got %#x", key, addr)
	}
	return uint16(addr), nil
}

func parseBool(key, value string) (bool, error) {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return b, nil
}

// parsePinMap parses "stay:GPIO9,attack:GPIO10".
func parsePinMap(value string) (map[string]string, error) {
	pins := make(map[string]string)
	if value == "" {
		return pins, nil
	}
	for _, pair := range strings.Split(value, ",") {
		id, pin, ok := strings.Cut(strings.TrimSpace(pair), ":")
		id, pin = strings.TrimSpace(id), strings.TrimSpace(pin)
		if !ok || id == "" || pin == "" {
			return nil, fmt.Errorf("invalid LED_PINS entry %q, want id:pin", pair)
		}
		if _, dup := pins[id]; dup {
			return nil, fmt.Errorf("LED_PINS: duplicate id %q", id)
		}
		pins[id] = pin
	}
	return pins, nil
}

// validate checks cross-field requirements.
func (c *Config) validate() error {
	if c.DeviceID == "" {
		return fmt.Errorf("DEVICE_ID is required")
	}
	if c.Role == "" && c.ProfileFile == "" {
		return fmt.Errorf("ROLE or PROFILE_FILE is required")
	}
	if c.SensorSource == "serial" && c.SerialPort == "" {
		return fmt.Errorf("SERIAL_PORT is required when SENSOR_SOURCE=serial")
	}
	switch c.LogLevel {
	case "trace", "debug", "info", "warn", "error", "fatal", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.LogLevel)
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Only the first call has any effect.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance, or nil before InitGlobal.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}

package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type appConfig struct {
	serialDev       string
	baud            int
	serialReadTO    time.Duration
	logFormat       string
	logLevel        string
	metricsAddr     string
	eventBuffer     int
	eventPolicy     string
	logMetricsEvery time.Duration
	definitions     []string
	definitionsDir  string
	version         string
	systemID        int
	componentID     int
	mdnsEnable      bool
	mdnsName        string
	redisAddr       string
	redisEnable     bool
}

func parseFlags() (*appConfig, bool) {
	cfg := &appConfig{}
	serialDev := flag.String("serial", "/dev/ttyUSB0", "Serial device path")
	baud := flag.Int("baud", 57600, "Serial baud rate")
	serialReadTO := flag.Duration("serial-read-timeout", 50*time.Millisecond, "Serial read timeout")
	logFormat := flag.String("log-format", "text", "Log format: text|json")
	logLevel := flag.String("log-level", "info", "Log level: debug|info|warn|error")
	metricsAddr := flag.String("metrics-addr", "", "Metrics HTTP listen address (e.g., :9100); empty disables")
	eventBuffer := flag.Int("event-buffer", 512, "Per-subscriber event bus buffer (events)")
	eventPolicy := flag.String("event-policy", "drop", "Backpressure policy: drop|kick")
	logMetricsEvery := flag.Duration("log-metrics-interval", 0, "If >0, periodically log metrics counters")
	definitions := flag.String("definitions", "common,ardupilotmega", "Comma-separated definition document identifiers to load")
	definitionsDir := flag.String("definitions-dir", "./definitions", "Directory holding <id>.xml definition documents")
	protoVersion := flag.String("version", "v1.0", "Wire format version: v1.0|v0.9")
	systemID := flag.Int("system-id", 0, "Origin system id (0 = promiscuous receive, forbids sending)")
	componentID := flag.Int("component-id", 0, "Origin component id (0 = promiscuous receive, forbids sending)")
	mdnsEnable := flag.Bool("mdns-enable", false, "Enable mDNS/Avahi advertisement")
	mdnsName := flag.String("mdns-name", "", "mDNS instance name (default mavcodec-gateway-<hostname>)")
	redisAddr := flag.String("redis-addr", "localhost:6379", "Redis address for the decoded-message publish sink")
	redisEnable := flag.Bool("redis-enable", false, "Publish decoded messages to Redis channels named after the message")
	showVersion := flag.Bool("show-version", false, "Print version and exit")
	flag.Parse()

	// Track which flags were explicitly set to give them precedence over env.
	setFlags := map[string]struct{}{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = struct{}{} })
	cfg.serialDev = *serialDev
	cfg.baud = *baud
	cfg.serialReadTO = *serialReadTO
	cfg.logFormat = *logFormat
	cfg.logLevel = *logLevel
	cfg.metricsAddr = *metricsAddr
	cfg.eventBuffer = *eventBuffer
	cfg.eventPolicy = *eventPolicy
	cfg.logMetricsEvery = *logMetricsEvery
	cfg.definitions = splitCSV(*definitions)
	cfg.definitionsDir = *definitionsDir
	cfg.version = *protoVersion
	cfg.systemID = *systemID
	cfg.componentID = *componentID
	cfg.mdnsEnable = *mdnsEnable
	cfg.mdnsName = *mdnsName
	cfg.redisAddr = *redisAddr
	cfg.redisEnable = *redisEnable

	if err := applyEnvOverrides(cfg, setFlags); err != nil {
		fmt.Printf("environment override error: %v\n", err)
		return nil, *showVersion
	}
	if err := cfg.validate(); err != nil {
		fmt.Printf("configuration error: %v\n", err)
		return nil, *showVersion
	}
	return cfg, *showVersion
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// validate performs basic semantic validation of the parsed configuration.
// It does not attempt to open devices or listeners – only checks values/ranges.
func (c *appConfig) validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	switch c.logFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log-format: %s", c.logFormat)
	}
	switch c.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log-level: %s", c.logLevel)
	}
	switch c.version {
	case "v1.0", "v0.9":
	default:
		return fmt.Errorf("invalid version: %s", c.version)
	}
	switch c.eventPolicy {
	case "drop", "kick":
	default:
		return fmt.Errorf("invalid event-policy: %s", c.eventPolicy)
	}
	if c.eventBuffer <= 0 {
		return fmt.Errorf("event-buffer must be > 0 (got %d)", c.eventBuffer)
	}
	if c.baud <= 0 {
		return fmt.Errorf("baud must be > 0 (got %d)", c.baud)
	}
	if c.serialReadTO <= 0 {
		return fmt.Errorf("serial-read-timeout must be > 0")
	}
	if c.systemID < 0 || c.systemID > 255 {
		return fmt.Errorf("system-id must be in [0, 255] (got %d)", c.systemID)
	}
	if c.componentID < 0 || c.componentID > 255 {
		return fmt.Errorf("component-id must be in [0, 255] (got %d)", c.componentID)
	}
	if len(c.definitions) == 0 {
		return errors.New("definitions must name at least one document")
	}
	return nil
}

// applyEnvOverrides maps MAVCODEC_* environment variables to config fields
// unless a corresponding flag was explicitly set. Boolean & numeric parsing is lax:
// empty values ignored. Duration accepts Go time.ParseDuration format.
func applyEnvOverrides(c *appConfig, set map[string]struct{}) error {
	var firstErr error
	get := func(k string) (string, bool) { v, ok := os.LookupEnv(k); return strings.TrimSpace(v), ok }
	if _, ok := set["serial"]; !ok {
		if v, ok := get("MAVCODEC_SERIAL"); ok && v != "" {
			c.serialDev = v
		}
	}
	if _, ok := set["baud"]; !ok {
		if v, ok := get("MAVCODEC_BAUD"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.baud = n
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid MAVCODEC_BAUD: %w", err)
			}
		}
	}
	if _, ok := set["serial-read-timeout"]; !ok {
		if v, ok := get("MAVCODEC_SERIAL_READ_TIMEOUT"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				c.serialReadTO = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid MAVCODEC_SERIAL_READ_TIMEOUT: %w", err)
			}
		}
	}
	if _, ok := set["log-format"]; !ok {
		if v, ok := get("MAVCODEC_LOG_FORMAT"); ok && v != "" {
			c.logFormat = v
		}
	}
	if _, ok := set["log-level"]; !ok {
		if v, ok := get("MAVCODEC_LOG_LEVEL"); ok && v != "" {
			c.logLevel = v
		}
	}
	if _, ok := set["metrics-addr"]; !ok {
		if v, ok := get("MAVCODEC_METRICS"); ok {
			c.metricsAddr = v
		}
	}
	if _, ok := set["event-buffer"]; !ok {
		if v, ok := get("MAVCODEC_EVENT_BUFFER"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.eventBuffer = n
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid MAVCODEC_EVENT_BUFFER: %w", err)
			}
		}
	}
	if _, ok := set["event-policy"]; !ok {
		if v, ok := get("MAVCODEC_EVENT_POLICY"); ok && v != "" {
			c.eventPolicy = v
		}
	}
	if _, ok := set["definitions"]; !ok {
		if v, ok := get("MAVCODEC_DEFINITIONS"); ok && v != "" {
			c.definitions = splitCSV(v)
		}
	}
	if _, ok := set["definitions-dir"]; !ok {
		if v, ok := get("MAVCODEC_DEFINITIONS_DIR"); ok && v != "" {
			c.definitionsDir = v
		}
	}
	if _, ok := set["version"]; !ok {
		if v, ok := get("MAVCODEC_VERSION"); ok && v != "" {
			c.version = v
		}
	}
	if _, ok := set["system-id"]; !ok {
		if v, ok := get("MAVCODEC_SYSTEM_ID"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				c.systemID = n
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid MAVCODEC_SYSTEM_ID: %w", err)
			}
		}
	}
	if _, ok := set["component-id"]; !ok {
		if v, ok := get("MAVCODEC_COMPONENT_ID"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				c.componentID = n
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid MAVCODEC_COMPONENT_ID: %w", err)
			}
		}
	}
	if _, ok := set["mdns-enable"]; !ok {
		if v, ok := get("MAVCODEC_MDNS_ENABLE"); ok && v != "" {
			switch strings.ToLower(v) {
			case "1", "true", "yes", "on":
				c.mdnsEnable = true
			case "0", "false", "no", "off":
				c.mdnsEnable = false
			}
		}
	}
	if _, ok := set["mdns-name"]; !ok {
		if v, ok := get("MAVCODEC_MDNS_NAME"); ok && v != "" {
			c.mdnsName = v
		}
	}
	if _, ok := set["log-metrics-interval"]; !ok {
		if v, ok := get("MAVCODEC_LOG_METRICS_INTERVAL"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d >= 0 {
				c.logMetricsEvery = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid MAVCODEC_LOG_METRICS_INTERVAL: %w", err)
			}
		}
	}
	if _, ok := set["redis-addr"]; !ok {
		if v, ok := get("MAVCODEC_REDIS_ADDR"); ok && v != "" {
			c.redisAddr = v
		}
	}
	if _, ok := set["redis-enable"]; !ok {
		if v, ok := get("MAVCODEC_REDIS_ENABLE"); ok && v != "" {
			switch strings.ToLower(v) {
			case "1", "true", "yes", "on":
				c.redisEnable = true
			case "0", "false", "no", "off":
				c.redisEnable = false
			}
		}
	}
	return firstErr
}

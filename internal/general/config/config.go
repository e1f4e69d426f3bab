package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config carries everything the gateway needs at startup. Values come from
// CLI flags with environment-variable fallback (uppercase flag name with
// dashes replaced by underscores, e.g. --amqp-url / AMQP_URL).
type Config struct {
	AMQP struct {
		URL             string // broker URL, e.g. amqp://localhost:5672
		SendAddress     string // sender target address
		ReceiveAddress  string // receiver source address
		Username        string // link identity; also names the client cert files
		Password        string // only used for SASL PLAIN
		ProtocolVersion string // envelope protocolVersion property default
	}
	HTTP struct {
		Host string
		Port int
	}
	WebSocket struct {
		Port int // reserved; the WS endpoint shares the HTTP port
	}
	CertDir  string // directory with <username>.crt/.key and truststore.pem
	LogLevel string // debug | info | warn | error
	Sender   bool   // start the outbound (sender) half
	Receiver bool   // start the inbound (receiver) half
}

// Default returns a Config with every field at its documented default.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

// applyDefaults sets safe defaults for unset fields.
func applyDefaults(cfg *Config) {
	if cfg.AMQP.URL == "" {
		cfg.AMQP.URL = "amqp://localhost:5672"
	}
	if cfg.AMQP.SendAddress == "" {
		cfg.AMQP.SendAddress = "examples"
	}
	if cfg.AMQP.ReceiveAddress == "" {
		cfg.AMQP.ReceiveAddress = "examples"
	}
	if cfg.AMQP.Username == "" {
		cfg.AMQP.Username = "denm-gateway"
	}
	if cfg.AMQP.ProtocolVersion == "" {
		cfg.AMQP.ProtocolVersion = "DENM:1.2.2"
	}
	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.WebSocket.Port == 0 {
		cfg.WebSocket.Port = cfg.HTTP.Port
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

// Finalize applies defaults and validates. Call after flag parsing.
func (c *Config) Finalize() error {
	applyDefaults(c)
	return c.validate()
}

// validate checks required fields and basic ranges.
func (c *Config) validate() error {
	var problems []string

	if !strings.HasPrefix(c.AMQP.URL, "amqp://") && !strings.HasPrefix(c.AMQP.URL, "amqps://") {
		problems = append(problems, "amqp-url must start with amqp:// or amqps://")
	}
	if c.AMQP.Username == "" {
		problems = append(problems, "username is required")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		problems = append(problems, "http-port must be in 1..65535")
	}
	if c.WebSocket.Port <= 0 || c.WebSocket.Port > 65535 {
		problems = append(problems, "ws-port must be in 1..65535")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, "log-level must be one of debug|info|warn|error")
	}
	if !c.Sender && !c.Receiver {
		problems = append(problems, "at least one of --sender/--receiver must be enabled")
	}
	if c.CertDir != "" {
		if st, err := os.Stat(c.CertDir); err != nil || !st.IsDir() {
			problems = append(problems, fmt.Sprintf("cert-dir %q is not a readable directory", c.CertDir))
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// EnvString returns the environment fallback for a flag default.
func EnvString(name, fallback string) string {
	if v, ok := os.LookupEnv(name); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}

// EnvInt returns the environment fallback for an integer flag default.
func EnvInt(name string, fallback int) int {
	if v, ok := os.LookupEnv(name); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}

// EnvBool returns the environment fallback for a boolean flag default.
func EnvBool(name string, fallback bool) bool {
	if v, ok := os.LookupEnv(name); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return fallback
}

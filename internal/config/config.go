package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	SourcePostgres = "postgres"
	SourceSNMP     = "snmp"
	SourceFile     = "file"
)

type Config struct {
	HTTPAddr           string        `env:"HTTP_ADDR" validate:"required"`
	LogLevel           string        `env:"LOG_LEVEL" validate:"oneof=trace debug info warn warning error fatal panic"`
	DeviceSource       string        `env:"DEVICE_SOURCE" validate:"oneof=postgres snmp file"`
	DatabaseURL        string        `env:"DATABASE_URL" validate:"required_if=DeviceSource postgres"`
	DeviceFile         string        `env:"DEVICE_FILE" validate:"required_if=DeviceSource file"`
	SNMPTargets        string        `env:"SNMP_TARGETS" validate:"required_if=DeviceSource snmp"`
	SNMPCommunity      string        `env:"SNMP_COMMUNITY"`
	SNMPVersion        string        `env:"SNMP_VERSION" validate:"omitempty,oneof=1 v1 2c v2c"`
	SNMPPort           uint16        `env:"SNMP_PORT"`
	SNMPTimeout        time.Duration `env:"SNMP_TIMEOUT" validate:"gte=0"`
	SNMPRetries        int           `env:"SNMP_RETRIES" validate:"gte=0"`
	SNMPWorkers        int           `env:"SNMP_WORKERS" validate:"gte=0"`
	DNSServer          string        `env:"DNS_SERVER"`
	RefreshInterval    time.Duration `env:"REFRESH_INTERVAL" validate:"gt=0"`
	RefreshTimeout     time.Duration `env:"REFRESH_TIMEOUT" validate:"gt=0"`
	SessionIdleTimeout time.Duration `env:"SESSION_IDLE_TIMEOUT" validate:"gt=0"`
	SuggestLimit       int           `env:"SUGGEST_LIMIT" validate:"gt=0,lte=100"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("env")
	})
	return v
}

// FromEnv reads the configuration from the process environment.
func FromEnv() (Config, error) {
	return Load(os.Getenv)
}

// Load reads the configuration through getenv. Unset or empty variables take
// their defaults. DEVICE_SOURCE defaults to file when DEVICE_FILE is set, then
// postgres when DATABASE_URL is set, then snmp when SNMP_TARGETS is set.
func Load(getenv func(string) string) (Config, error) {
	env := func(key, fallback string) string {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return fallback
		}
		return v
	}

	cfg := Config{
		HTTPAddr:      env("HTTP_ADDR", ":8081"),
		LogLevel:      strings.ToLower(env("LOG_LEVEL", "info")),
		DatabaseURL:   env("DATABASE_URL", ""),
		DeviceFile:    env("DEVICE_FILE", ""),
		SNMPTargets:   env("SNMP_TARGETS", ""),
		SNMPCommunity: env("SNMP_COMMUNITY", "public"),
		SNMPVersion:   strings.ToLower(env("SNMP_VERSION", "2c")),
		DNSServer:     env("DNS_SERVER", ""),
	}
	cfg.DeviceSource = strings.ToLower(env("DEVICE_SOURCE", defaultSource(cfg)))
	if origins := env("CORS_ALLOWED_ORIGINS", ""); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
			}
		}
	}

	var errs []error
	duration := func(key string, fallback time.Duration) time.Duration {
		raw := env(key, "")
		if raw == "" {
			return fallback
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid duration %q", key, raw))
			return fallback
		}
		return d
	}
	integer := func(key string, fallback int) int {
		raw := env(key, "")
		if raw == "" {
			return fallback
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid integer %q", key, raw))
			return fallback
		}
		return n
	}

	cfg.SNMPTimeout = duration("SNMP_TIMEOUT", 900*time.Millisecond)
	cfg.SNMPRetries = integer("SNMP_RETRIES", 1)
	cfg.SNMPWorkers = integer("SNMP_WORKERS", 8)
	cfg.RefreshInterval = duration("REFRESH_INTERVAL", 30*time.Second)
	cfg.RefreshTimeout = duration("REFRESH_TIMEOUT", 20*time.Second)
	cfg.SessionIdleTimeout = duration("SESSION_IDLE_TIMEOUT", 30*time.Minute)
	cfg.SuggestLimit = integer("SUGGEST_LIMIT", 5)

	port := integer("SNMP_PORT", 161)
	if port <= 0 || port > 65535 {
		errs = append(errs, fmt.Errorf("SNMP_PORT: out of range %d", port))
	} else {
		cfg.SNMPPort = uint16(port)
	}

	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	if err := validate.Struct(cfg); err != nil {
		return Config{}, formatValidationError(err)
	}
	return cfg, nil
}

func defaultSource(cfg Config) string {
	switch {
	case cfg.DeviceFile != "":
		return SourceFile
	case cfg.DatabaseURL != "":
		return SourcePostgres
	case cfg.SNMPTargets != "":
		return SourceSNMP
	default:
		return SourceFile
	}
}

func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make([]error, 0, len(verrs))
	for _, e := range verrs {
		switch e.Tag() {
		case "required", "required_if":
			out = append(out, fmt.Errorf("%s: required", e.Field()))
		case "oneof":
			out = append(out, fmt.Errorf("%s: must be one of %s, got %q", e.Field(), strings.ReplaceAll(e.Param(), " ", ", "), e.Value()))
		default:
			out = append(out, fmt.Errorf("%s: failed %s=%s validation", e.Field(), e.Tag(), e.Param()))
		}
	}
	return errors.Join(out...)
}

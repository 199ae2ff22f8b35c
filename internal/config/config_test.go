package config

import (
	"strings"
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(envMap(map[string]string{"DEVICE_FILE": "devices.yaml"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPAddr != ":8081" || cfg.LogLevel != "info" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.DeviceSource != SourceFile {
		t.Fatalf("expected file source, got %q", cfg.DeviceSource)
	}
	if cfg.RefreshInterval != 30*time.Second || cfg.RefreshTimeout != 20*time.Second {
		t.Fatalf("unexpected refresh defaults %s/%s", cfg.RefreshInterval, cfg.RefreshTimeout)
	}
	if cfg.SessionIdleTimeout != 30*time.Minute || cfg.SuggestLimit != 5 {
		t.Fatalf("unexpected session defaults %+v", cfg)
	}
	if cfg.SNMPPort != 161 || cfg.SNMPCommunity != "public" || cfg.SNMPVersion != "2c" {
		t.Fatalf("unexpected snmp defaults %+v", cfg)
	}
}

func TestLoad_SourceInference(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"database url", map[string]string{"DATABASE_URL": "postgres://x"}, SourcePostgres},
		{"snmp targets", map[string]string{"SNMP_TARGETS": "10.0.0.1"}, SourceSNMP},
		{"file wins", map[string]string{"DATABASE_URL": "postgres://x", "DEVICE_FILE": "d.yaml"}, SourceFile},
		{"explicit", map[string]string{"DEVICE_SOURCE": "Postgres", "DATABASE_URL": "postgres://x", "DEVICE_FILE": "d.yaml"}, SourcePostgres},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load(envMap(tc.env))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.DeviceSource != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, cfg.DeviceSource)
			}
		})
	}
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := Load(envMap(map[string]string{
		"SNMP_TARGETS":         "10.0.0.1,10.0.0.2",
		"SNMP_PORT":            "1161",
		"SNMP_TIMEOUT":         "2s",
		"REFRESH_INTERVAL":     "1m",
		"SUGGEST_LIMIT":        "8",
		"CORS_ALLOWED_ORIGINS": "http://a.example, http://b.example ,",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SNMPPort != 1161 || cfg.SNMPTimeout != 2*time.Second || cfg.RefreshInterval != time.Minute || cfg.SuggestLimit != 8 {
		t.Fatalf("unexpected overrides %+v", cfg)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "http://b.example" {
		t.Fatalf("unexpected origins %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoad_Errors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"bad duration", map[string]string{"DEVICE_FILE": "d", "REFRESH_INTERVAL": "soon"}, "REFRESH_INTERVAL"},
		{"bad integer", map[string]string{"DEVICE_FILE": "d", "SUGGEST_LIMIT": "five"}, "SUGGEST_LIMIT"},
		{"port range", map[string]string{"DEVICE_FILE": "d", "SNMP_PORT": "70000"}, "SNMP_PORT"},
		{"unknown source", map[string]string{"DEVICE_SOURCE": "ldap"}, "DEVICE_SOURCE"},
		{"missing database url", map[string]string{"DEVICE_SOURCE": "postgres"}, "DATABASE_URL: required"},
		{"missing targets", map[string]string{"DEVICE_SOURCE": "snmp"}, "SNMP_TARGETS: required"},
		{"missing file", map[string]string{}, "DEVICE_FILE: required"},
		{"zero limit", map[string]string{"DEVICE_FILE": "d", "SUGGEST_LIMIT": "0"}, "SUGGEST_LIMIT"},
		{"bad log level", map[string]string{"DEVICE_FILE": "d", "LOG_LEVEL": "loud"}, "LOG_LEVEL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(envMap(tc.env))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error to mention %q, got %v", tc.want, err)
			}
		})
	}
}

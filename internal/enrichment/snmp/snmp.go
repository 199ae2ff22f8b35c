package snmp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"
)

// Config describes how devices are polled for topology data.
type Config struct {
	Community      string
	Version        string // "2c" (default) | "1"
	Port           uint16
	Timeout        time.Duration
	Retries        int
	MaxRepetitions uint32
}

// Target represents a device that can be queried via SNMP.
type Target struct {
	Address string
}

// SystemInfo holds the system group values the topology needs.
type SystemInfo struct {
	SysName          *string
	UptimeHundredths int64
}

// Client wraps a minimal SNMPv1/v2c implementation.
type Client struct {
	cfg Config
}

func NewClient(cfg Config) *Client {
	if strings.TrimSpace(cfg.Community) == "" {
		cfg.Community = "public"
	}
	if strings.TrimSpace(cfg.Version) == "" {
		cfg.Version = "2c"
	}
	if cfg.Port == 0 {
		cfg.Port = 161
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 900 * time.Millisecond
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.MaxRepetitions == 0 {
		cfg.MaxRepetitions = 10
	}
	return &Client{cfg: cfg}
}

func (c *Client) connect(ctx context.Context, target Target) (*gosnmp.GoSNMP, error) {
	version := strings.ToLower(strings.TrimSpace(c.cfg.Version))
	var snmpVersion gosnmp.SnmpVersion
	switch version {
	case "2c", "v2c", "":
		snmpVersion = gosnmp.Version2c
	case "1", "v1":
		snmpVersion = gosnmp.Version1
	default:
		return nil, fmt.Errorf("unsupported snmp version %q", c.cfg.Version)
	}

	s := &gosnmp.GoSNMP{
		Target:         target.Address,
		Port:           c.cfg.Port,
		Community:      c.cfg.Community,
		Version:        snmpVersion,
		Timeout:        c.cfg.Timeout,
		Retries:        c.cfg.Retries,
		MaxRepetitions: c.cfg.MaxRepetitions,
		Context:        ctx,
	}
	if err := s.Connect(); err != nil {
		return nil, err
	}
	return s, nil
}

const (
	oidSysUpTime0 = "1.3.6.1.2.1.1.3.0"
	oidSysName0   = "1.3.6.1.2.1.1.5.0"
)

func pduString(pdu gosnmp.SnmpPDU) (*string, bool) {
	switch v := pdu.Value.(type) {
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, true
		}
		return &s, true
	case []byte:
		s := strings.TrimSpace(string(v))
		if s == "" {
			return nil, true
		}
		return &s, true
	default:
		return nil, false
	}
}

func pduInt64(pdu gosnmp.SnmpPDU) (int64, bool) {
	switch v := pdu.Value.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case uint:
		return int64(v), true
	case uint32:
		return int64(v), true
	case int64:
		return v, true
	case uint64:
		return int64(v), true
	default:
		return 0, false
	}
}

func lastOIDInts(oid string, n int) ([]int, bool) {
	oid = strings.TrimSpace(oid)
	if oid == "" || n <= 0 {
		return nil, false
	}
	parts := strings.Split(oid, ".")
	if len(parts) < n {
		return nil, false
	}
	out := make([]int, 0, n)
	for i := len(parts) - n; i < len(parts); i++ {
		v, err := strconv.Atoi(parts[i])
		if err != nil {
			return nil, false
		}
		out = append(out, v)
	}
	return out, true
}

// GetSystem reads sysName.0 and sysUpTime.0 from target.
func (c *Client) GetSystem(ctx context.Context, target Target) (SystemInfo, error) {
	if c == nil {
		return SystemInfo{}, errors.New("snmp client is nil")
	}

	s, err := c.connect(ctx, target)
	if err != nil {
		return SystemInfo{}, err
	}
	defer s.Conn.Close()

	pkt, err := s.Get([]string{oidSysName0, oidSysUpTime0})
	if err != nil {
		return SystemInfo{}, err
	}
	return systemInfoFromPDUs(pkt.Variables), nil
}

func systemInfoFromPDUs(pdus []gosnmp.SnmpPDU) SystemInfo {
	var out SystemInfo
	for _, v := range pdus {
		switch strings.TrimPrefix(v.Name, ".") {
		case oidSysName0:
			out.SysName, _ = pduString(v)
		case oidSysUpTime0:
			if n, ok := pduInt64(v); ok && n > 0 {
				out.UptimeHundredths = n
			}
		}
	}
	return out
}

package snmp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"

	"topomap/internal/topology"
)

// HostnameResolver maps a polled address to a hostname. *rdns.Resolver satisfies it.
type HostnameResolver interface {
	LookupHostname(ctx context.Context, address string) (string, error)
}

var errNoSysName = errors.New("device did not report sysName")

// Source polls a fixed list of targets and turns each into a DeviceRecord.
type Source struct {
	log      zerolog.Logger
	client   *Client
	targets  []Target
	resolver HostnameResolver
	workers  int

	collect func(ctx context.Context, idx int64, target Target) (topology.DeviceRecord, error)
}

func NewSource(log zerolog.Logger, client *Client, targets []Target, resolver HostnameResolver, workers int) *Source {
	if workers <= 0 {
		workers = 8
	}
	s := &Source{
		log:      log,
		client:   client,
		targets:  targets,
		resolver: resolver,
		workers:  workers,
	}
	s.collect = s.collectDevice
	return s
}

func (s *Source) Name() string { return "snmp" }

// ListDevices polls every target. Unreachable targets are logged and skipped; the
// call only fails when no target answered. Results follow target order and carry
// DeviceIndex as their IdxDevice.
func (s *Source) ListDevices(ctx context.Context) ([]topology.DeviceRecord, error) {
	if len(s.targets) == 0 {
		return []topology.DeviceRecord{}, nil
	}

	results := make([]*topology.DeviceRecord, len(s.targets))
	errs := make([]error, len(s.targets))

	jobs := make(chan int)
	wg := sync.WaitGroup{}
	workers := min(s.workers, len(s.targets))
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if ctx.Err() != nil {
					errs[idx] = ctx.Err()
					continue
				}
				rec, err := s.collect(ctx, DeviceIndex(s.targets[idx]), s.targets[idx])
				if err != nil {
					errs[idx] = err
					continue
				}
				results[idx] = &rec
			}
		}()
	}

	for idx := range s.targets {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	out := make([]topology.DeviceRecord, 0, len(s.targets))
	var firstErr error
	for idx, rec := range results {
		if rec == nil {
			if firstErr == nil {
				firstErr = errs[idx]
			}
			s.log.Warn().Err(errs[idx]).Str("target", s.targets[idx].Address).Msg("snmp poll failed")
			continue
		}
		out = append(out, *rec)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("snmp: all %d targets failed: %w", len(s.targets), firstErr)
	}
	return out, nil
}

func (s *Source) collectDevice(ctx context.Context, idx int64, target Target) (topology.DeviceRecord, error) {
	sys, err := s.client.GetSystem(ctx, target)
	if err != nil {
		return topology.DeviceRecord{}, err
	}
	if sys.SysName == nil {
		return topology.DeviceRecord{}, errNoSysName
	}

	rec := topology.DeviceRecord{
		IdxDevice:        idx,
		SysName:          *sys.SysName,
		Hostname:         target.Address,
		UptimeHundredths: sys.UptimeHundredths,
	}

	if s.resolver != nil {
		if name, err := s.resolver.LookupHostname(ctx, target.Address); err == nil && name != "" {
			rec.Hostname = name
		} else if err != nil {
			s.log.Debug().Err(err).Str("target", target.Address).Msg("hostname lookup failed")
		}
	}

	neighbors, err := s.client.WalkNeighbors(ctx, target)
	if err != nil {
		s.log.Warn().Err(err).Str("target", target.Address).Msg("neighbor walk failed")
		return rec, nil
	}
	rec.Interfaces = neighborInterfaces(neighbors)
	return rec, nil
}

// neighborInterfaces maps each neighbor row to one InterfaceRecord. A device
// speaking both LLDP and CDP reports each link twice; CDP rows naming the same
// remote device and port as an LLDP row are dropped.
func neighborInterfaces(neighbors []Neighbor) []topology.InterfaceRecord {
	type linkKey struct{ device, port string }

	seenLLDP := make(map[linkKey]struct{})
	for _, n := range neighbors {
		if n.Source != "lldp" {
			continue
		}
		if name, port, ok := neighborLink(n); ok {
			seenLLDP[linkKey{name, port}] = struct{}{}
		}
	}

	out := make([]topology.InterfaceRecord, 0, len(neighbors))
	for _, n := range neighbors {
		name, port, ok := neighborLink(n)
		if !ok {
			continue
		}
		if n.Source == "cdp" {
			if _, dup := seenLLDP[linkKey{name, port}]; dup {
				continue
			}
		}
		rec := topology.InterfaceRecord{NeighborDeviceID: &name}
		if n.RemotePortName != nil {
			rec.NeighborPort = &port
		}
		out = append(out, rec)
	}
	return out
}

// neighborLink returns the cleaned remote device name and port of n.
func neighborLink(n Neighbor) (name, port string, ok bool) {
	if n.RemoteDeviceName == nil {
		return "", "", false
	}
	name = strings.TrimSpace(*n.RemoteDeviceName)
	if n.Source == "cdp" {
		name = cleanCDPDeviceID(name)
	}
	if name == "" {
		return "", "", false
	}
	if n.RemotePortName != nil {
		port = strings.TrimSpace(*n.RemotePortName)
	}
	return name, port, true
}

// DeviceIndex derives the device index of target from its address, so a device
// keeps its index when SNMP_TARGETS is reordered or extended. The result is
// always positive.
func DeviceIndex(target Target) int64 {
	return int64(xxhash.Sum64String(strings.ToLower(strings.TrimSpace(target.Address)))>>1) | 1
}

// ParseTargets splits a comma or whitespace separated address list.
func ParseTargets(raw string) []Target {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	out := make([]Target, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, Target{Address: f})
	}
	return out
}

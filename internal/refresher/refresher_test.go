package refresher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"topomap/internal/topology"
)

type fakeSource struct {
	listFn func(ctx context.Context) ([]topology.DeviceRecord, error)
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) ListDevices(ctx context.Context) ([]topology.DeviceRecord, error) {
	return f.listFn(ctx)
}

type fakeSink struct {
	mu        sync.Mutex
	published [][]topology.DeviceRecord
	notify    chan struct{}
}

func (f *fakeSink) PublishDevices(devices []topology.DeviceRecord) {
	f.mu.Lock()
	f.published = append(f.published, devices)
	f.mu.Unlock()
	if f.notify != nil {
		f.notify <- struct{}{}
	}
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

func strPtr(s string) *string { return &s }

func devices(uptime int64, neighbor string) []topology.DeviceRecord {
	return []topology.DeviceRecord{
		{IdxDevice: 1, SysName: "core", UptimeHundredths: uptime, Interfaces: []topology.InterfaceRecord{
			{NeighborDeviceID: strPtr(neighbor), NeighborPort: strPtr("Gi0/1")},
		}},
	}
}

func TestRunOnce_PublishesOnlyChanges(t *testing.T) {
	current := devices(100, "dist")
	src := &fakeSource{listFn: func(ctx context.Context) ([]topology.DeviceRecord, error) { return current, nil }}
	sink := &fakeSink{}
	r := New(zerolog.Nop(), src, sink, Options{}, nil)

	steps := []struct {
		name    string
		devices []topology.DeviceRecord
		want    string
	}{
		{"first poll", devices(100, "dist"), OutcomePublished},
		{"same devices", devices(100, "dist"), OutcomeUnchanged},
		{"uptime only", devices(900, "dist"), OutcomeUnchanged},
		{"new neighbor", devices(900, "edge"), OutcomePublished},
	}
	for _, step := range steps {
		current = step.devices
		got, err := r.RunOnce(context.Background())
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", step.name, err)
		}
		if got != step.want {
			t.Fatalf("%s: expected %s, got %s", step.name, step.want, got)
		}
	}
	if sink.count() != 2 {
		t.Fatalf("expected 2 publishes, got %d", sink.count())
	}
}

func TestRunOnce_PublishesEmptyListOnce(t *testing.T) {
	src := &fakeSource{listFn: func(ctx context.Context) ([]topology.DeviceRecord, error) { return nil, nil }}
	sink := &fakeSink{}
	r := New(zerolog.Nop(), src, sink, Options{}, nil)

	if got, _ := r.RunOnce(context.Background()); got != OutcomePublished {
		t.Fatalf("expected first empty list to be published, got %s", got)
	}
	if got, _ := r.RunOnce(context.Background()); got != OutcomeUnchanged {
		t.Fatalf("expected second empty list to be unchanged, got %s", got)
	}
}

func TestRunOnce_BreakerOpensAfterFailures(t *testing.T) {
	boom := errors.New("connection refused")
	calls := 0
	src := &fakeSource{listFn: func(ctx context.Context) ([]topology.DeviceRecord, error) {
		calls++
		return nil, boom
	}}
	r := New(zerolog.Nop(), src, &fakeSink{}, Options{FailureThreshold: 2, OpenTimeout: time.Hour}, nil)

	for i := 0; i < 2; i++ {
		got, err := r.RunOnce(context.Background())
		if !errors.Is(err, boom) || got != OutcomeFailed {
			t.Fatalf("run %d: expected failed with source error, got %s %v", i, got, err)
		}
	}

	got, err := r.RunOnce(context.Background())
	if err == nil || got != OutcomeRejected {
		t.Fatalf("expected rejected while breaker is open, got %s %v", got, err)
	}
	if calls != 2 {
		t.Fatalf("expected source not to be called while open, got %d calls", calls)
	}
}

func TestRunOnce_AppliesTimeout(t *testing.T) {
	src := &fakeSource{listFn: func(ctx context.Context) ([]topology.DeviceRecord, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	r := New(zerolog.Nop(), src, &fakeSink{}, Options{Timeout: 10 * time.Millisecond}, nil)

	_, err := r.RunOnce(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestRun_TriggerForcesRefresh(t *testing.T) {
	var mu sync.Mutex
	neighbor := "dist"
	src := &fakeSource{listFn: func(ctx context.Context) ([]topology.DeviceRecord, error) {
		mu.Lock()
		defer mu.Unlock()
		return devices(1, neighbor), nil
	}}
	sink := &fakeSink{notify: make(chan struct{}, 4)}
	r := New(zerolog.Nop(), src, sink, Options{Interval: time.Hour}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	select {
	case <-sink.notify:
	case <-time.After(5 * time.Second):
		t.Fatalf("expected initial publish")
	}

	mu.Lock()
	neighbor = "edge"
	mu.Unlock()
	r.Trigger()

	select {
	case <-sink.notify:
	case <-time.After(5 * time.Second):
		t.Fatalf("expected triggered publish")
	}

	cancel()
	<-done
}

func TestBackoffDuration(t *testing.T) {
	base := 10 * time.Second
	if got := backoffDuration(base, 0); got != base {
		t.Fatalf("expected base, got %s", got)
	}
	if got := backoffDuration(base, 2); got != 40*time.Second {
		t.Fatalf("expected 40s, got %s", got)
	}
	if got := backoffDuration(base, 50); got != maxBackoff {
		t.Fatalf("expected cap %s, got %s", maxBackoff, got)
	}
}

func TestFingerprint(t *testing.T) {
	a := devices(1, "dist")
	if Fingerprint(a) != Fingerprint(devices(5, "dist")) {
		t.Fatalf("expected uptime to be ignored")
	}
	if Fingerprint(a) == Fingerprint(devices(1, "edge")) {
		t.Fatalf("expected neighbor change to alter fingerprint")
	}

	nilPort := []topology.DeviceRecord{{SysName: "core", Interfaces: []topology.InterfaceRecord{{NeighborDeviceID: strPtr("x")}}}}
	emptyPort := []topology.DeviceRecord{{SysName: "core", Interfaces: []topology.InterfaceRecord{{NeighborDeviceID: strPtr("x"), NeighborPort: strPtr("")}}}}
	if Fingerprint(nilPort) == Fingerprint(emptyPort) {
		t.Fatalf("expected nil and empty port to differ")
	}

	// Field boundaries are length-prefixed.
	ab := []topology.DeviceRecord{{SysName: "ab", Hostname: "c"}}
	abc := []topology.DeviceRecord{{SysName: "a", Hostname: "bc"}}
	if Fingerprint(ab) == Fingerprint(abc) {
		t.Fatalf("expected shifted field boundaries to differ")
	}
}

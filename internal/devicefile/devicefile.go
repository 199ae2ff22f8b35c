package devicefile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"topomap/internal/topology"
)

type document struct {
	Devices []topology.DeviceRecord `yaml:"devices"`
}

// Decode reads a `devices:` document. JSON input is accepted as YAML.
func Decode(r io.Reader) ([]topology.DeviceRecord, error) {
	var doc document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return []topology.DeviceRecord{}, nil
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if doc.Devices == nil {
		return []topology.DeviceRecord{}, nil
	}
	return doc.Devices, nil
}

func Load(path string) ([]topology.DeviceRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Source re-reads a device file on every call.
type Source struct {
	path string
}

func NewSource(path string) *Source {
	return &Source{path: path}
}

func (s *Source) Name() string { return "file" }

func (s *Source) Path() string { return s.path }

func (s *Source) ListDevices(ctx context.Context) ([]topology.DeviceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	devices, err := Load(s.path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.path, err)
	}
	return devices, nil
}

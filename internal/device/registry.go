package device

import (
	"fmt"
	"strings"

	"github.com/nerrad567/jap-panel/internal/infrastructure/config"
)

// Registry is the immutable, ordered set of configured devices.
// It is built once at startup and safe for concurrent reads.
type Registry struct {
	devices []Device
	byName  map[string]int
}

// NewRegistry builds a registry preserving the order of devices.
// Names must be unique and non-empty and every address must be valid.
func NewRegistry(devices []Device) (*Registry, error) {
	r := &Registry{
		devices: make([]Device, 0, len(devices)),
		byName:  make(map[string]int, len(devices)),
	}
	for _, d := range devices {
		d.Name = strings.TrimSpace(d.Name)
		if d.Name == "" {
			return nil, &ValidationError{Field: FieldDevice, Reason: "name is required"}
		}
		if !d.Address.IsValid() || d.Address.Zone() != "" {
			return nil, &ValidationError{Field: FieldAddress, Value: d.Address.String(), Reason: "is not a valid IP address"}
		}
		if _, dup := r.byName[d.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateDevice, d.Name)
		}
		r.byName[d.Name] = len(r.devices)
		r.devices = append(r.devices, d)
	}
	return r, nil
}

// NewRegistryFromConfig validates each configured address and builds the registry.
func NewRegistryFromConfig(cfgs []config.DeviceConfig) (*Registry, error) {
	devices := make([]Device, 0, len(cfgs))
	for _, c := range cfgs {
		addr, ok := ValidateAddress(c.Address)
		if !ok {
			return nil, &ValidationError{Field: FieldAddress, Value: c.Address, Reason: "is not a valid IP address"}
		}
		devices = append(devices, Device{Name: c.Name, Address: addr})
	}
	return NewRegistry(devices)
}

// Lookup returns the device with the given name.
func (r *Registry) Lookup(name string) (Device, error) {
	if r == nil {
		return Device{}, ErrDeviceNotFound
	}
	i, ok := r.byName[strings.TrimSpace(name)]
	if !ok {
		return Device{}, ErrDeviceNotFound
	}
	return r.devices[i], nil
}

// List returns the devices in configuration order. The slice is a copy.
func (r *Registry) List() []Device {
	if r == nil {
		return nil
	}
	out := make([]Device, len(r.devices))
	copy(out, r.devices)
	return out
}

// Len returns the number of configured devices.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.devices)
}

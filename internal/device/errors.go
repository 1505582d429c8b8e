package device

import (
	"errors"
	"fmt"
)

// Domain errors for the device package.
//
//	if errors.Is(err, device.ErrValidation) {
//	    // reject the submission without contacting the device
//	}
var (
	// ErrValidation matches every input validation failure.
	ErrValidation = errors.New("device: invalid input")

	// ErrDeviceNotFound is returned when a device name is not configured.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrDuplicateDevice is returned when two devices share a name.
	ErrDuplicateDevice = errors.New("device: duplicate name")
)

// Input fields reported by ValidationError.
const (
	FieldDevice  = "device"
	FieldAddress = "address"
	FieldChannel = "channel"
	FieldVolume  = "volume"
)

// ValidationError describes one rejected input field.
// It matches ErrValidation under errors.Is.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

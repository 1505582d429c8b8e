// Package device holds the domain types of the JAP control panel and the
// input validator that guards every command.
//
// # Key Types
//
//   - Device: a configured unit (display name and IP address)
//   - State: channel, volume and volume capability as last read
//   - ControlInput / ControlRequest: a submission before and after validation
//   - Report: the aggregated result of a submission
//   - Registry: the ordered, read-only set of configured devices
//
// # Validation
//
// ValidateInteger and ValidateAddress return a (value, ok) pair and never
// panic. ParseControlInput combines them with the configured Limits and the
// Registry; its errors are *ValidationError values that match ErrValidation.
// Nothing in this package performs network I/O.
package device

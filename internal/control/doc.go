// Package control is the panel's control service. It renders the live
// state of configured devices and applies operator submissions to them.
//
// A submission moves through a fixed sequence:
//
//	Received → Validating → Rejected
//	                      → Dispatching → FullSuccess | PartialSuccess | Failed
//	→ Reported
//
// Validation happens before any command reaches a device. Dispatching always
// sends the channel first, then re-checks the device's volume capability and
// sends the volume only when the device supports it. Nothing is retried.
//
// Presentation layers (the REST API, the HTML panel and the MQTT command
// bridge) all go through Service, so every submission is logged, counted,
// audited and announced to listeners in the same way.
package control

// Package jap is the bridge to Just Add Power receivers and transmitters.
//
// Every device exposes a small REST API at http://<ip>/cgi-bin/api/. All
// responses are JSON envelopes of the form {"data": <value>}:
//
//	GET  details/channel               {"data": 2}
//	GET  details/audio/stereo/volume   {"data": "40"}
//	GET  details/device/model          {"data": "3G+AVP RX"}
//	POST command/channel               body "3"  -> {"data": "OK"}
//	POST command/audio/stereo/volume   body "5"  -> {"data": "OK"}
//
// Client layers four behaviours over one HTTP call:
//
//   - Call: raw exchange with a bounded timeout, typed errors, no retry
//   - GetChannel / GetVolume: reads that fall back to defaults
//   - SupportsVolume: model allow-list check that fails closed
//   - SetChannel / SetVolume: commands reported as a bool
//
// The "OK" acknowledgement never leaves this package.
package jap

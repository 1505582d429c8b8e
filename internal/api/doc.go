// Package api implements the HTTP REST API and WebSocket server for the
// JAP control panel.
//
// This package provides:
//   - REST endpoints to read live device state and submit control input
//   - A paginated view of the control audit trail
//   - A WebSocket hub broadcasting control reports and refreshed states
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//   - TLS support for deployments that terminate TLS on the panel host
//
// # Architecture
//
// Handlers never talk to devices directly. Every read and every submission
// goes through control.Service, which validates input, dispatches commands
// and reports the outcome. The hub is registered as a service listener, so
// submissions made through the HTML panel or MQTT are broadcast as well.
//
// # Graceful Degradation
//
// The server runs without the database (audit endpoints answer 503) and
// without MQTT. Unreachable devices never fail a request; they render with
// default values.
package api

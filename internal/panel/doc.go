// Package panel serves the operator-facing HTML control panel.
//
// GET / renders every configured device with a channel selector and, for
// devices that accept volume commands, a volume selector. Each device row
// is its own form; POST /control applies that form and re-renders the page
// with the per-field result message.
//
// Templates and the stylesheet are embedded with go:embed. The stylesheet
// can be served from a directory instead (dev mode, no recompile needed).
// All markup lives here; the control service only hands over data.
package panel

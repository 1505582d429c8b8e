package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/jap-panel/internal/audit"
	"github.com/nerrad567/jap-panel/internal/device"
)

// handleListDevices renders the live state of every configured device,
// in configuration order.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	states := s.control.RenderAll(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"devices": states, "count": len(states)})
}

// handleGetDevice renders the live state of one device.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	state, err := s.control.RenderDevice(r.Context(), deviceName(r))
	if errors.Is(err, device.ErrDeviceNotFound) {
		writeNotFound(w, "device not found")
		return
	}
	if err != nil {
		writeInternalError(w, "failed to read device")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleControlDevice applies a control submission to one device.
//
// Request body: {"channel": "3", "volume": "5"}; values may also be JSON
// numbers and volume may be omitted. The device comes from the path.
//
// The response is the submission report. Rejected input answers 400; any
// dispatched submission answers 200 with success true only when every
// command was acknowledged.
func (s *Server) handleControlDevice(w http.ResponseWriter, r *http.Request) {
	name := deviceName(r)
	if _, err := s.control.Registry().Lookup(name); err != nil {
		writeNotFound(w, "device not found")
		return
	}

	var in device.ControlInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	in.Device = name

	report := s.control.ApplyControl(r.Context(), in, audit.SourceAPI)

	status := http.StatusOK
	if report.Outcome == device.OutcomeRejected {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, report)
}

// deviceName returns the unescaped {name} path parameter.
func deviceName(r *http.Request) string {
	raw := chi.URLParam(r, "name")
	if name, err := url.PathUnescape(raw); err == nil {
		return name
	}
	return raw
}

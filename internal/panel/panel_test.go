package panel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nerrad567/jap-panel/internal/audit"
	"github.com/nerrad567/jap-panel/internal/device"
)

type fakeController struct {
	states []device.State
	limits device.Limits
	report device.Report

	applied []device.ControlInput
	sources []string
}

func (f *fakeController) RenderAll(context.Context) []device.State { return f.states }

func (f *fakeController) ApplyControl(_ context.Context, in device.ControlInput, source string) device.Report {
	f.applied = append(f.applied, in)
	f.sources = append(f.sources, source)
	return f.report
}

func (f *fakeController) Limits() device.Limits { return f.limits }

func newFake() *fakeController {
	return &fakeController{
		states: []device.State{
			{
				Device:         device.Device{Name: "Lobby", Address: netip.MustParseAddr("192.168.8.16")},
				Channel:        3,
				Volume:         20,
				SupportsVolume: true,
			},
			{
				Device:  device.Device{Name: "Bar <Left>", Address: netip.MustParseAddr("192.168.8.17")},
				Channel: 1,
			},
		},
		limits: device.Limits{MaxChannels: 5, MinVolume: 0, MaxVolume: 30, VolumeStep: 10},
	}
}

func newHandler(t *testing.T, ctrl Controller, staticDir string) http.Handler {
	t.Helper()
	h, err := Handler(Options{Title: "Test Panel", Controller: ctrl, StaticDir: staticDir})
	if err != nil {
		t.Fatalf("Handler() error: %v", err)
	}
	return h
}

func TestHandler_RequiresController(t *testing.T) {
	if _, err := Handler(Options{}); err == nil {
		t.Error("expected error without controller")
	}
}

func TestIndex_RendersDevices(t *testing.T) {
	h := newHandler(t, newFake(), "")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("GET /: got status %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}

	body := w.Body.String()
	for _, want := range []string{
		"<!DOCTYPE html>",
		"<title>Test Panel</title>",
		`value="Lobby"`,
		"192.168.8.16",
		`<option value="3" selected>3</option>`,
		`<option value="20" selected>20</option>`,
		`<option value="5">5</option>`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("GET /: body missing %q", want)
		}
	}
}

func TestIndex_VolumeSelectOnlyForCapableDevices(t *testing.T) {
	h := newHandler(t, newFake(), "")

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	body := w.Body.String()

	if n := strings.Count(body, `name="volume"`); n != 1 {
		t.Errorf("volume selects = %d, want 1", n)
	}
	if n := strings.Count(body, `name="channel"`); n != 2 {
		t.Errorf("channel selects = %d, want 2", n)
	}
}

func TestIndex_EscapesDeviceNames(t *testing.T) {
	h := newHandler(t, newFake(), "")

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	body := w.Body.String()

	if strings.Contains(body, "<Left>") {
		t.Error("device name was not escaped")
	}
	if !strings.Contains(body, "Bar &lt;Left&gt;") {
		t.Error("expected escaped device name")
	}
}

func TestIndex_NoDevices(t *testing.T) {
	h := newHandler(t, &fakeController{limits: device.Limits{MaxChannels: 1}}, "")

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if !strings.Contains(w.Body.String(), "No devices configured.") {
		t.Error("expected empty-state message")
	}
}

func TestControl_AppliesForm(t *testing.T) {
	ctrl := newFake()
	ctrl.report = device.Report{
		Device:  "Lobby",
		Outcome: device.OutcomeFullSuccess,
		Success: true,
		Message: "Channel: Successfully updated\nVolume: Successfully updated\n",
	}
	h := newHandler(t, ctrl, "")

	form := url.Values{"device": {"Lobby"}, "channel": {"4"}, "volume": {"10"}}
	req := httptest.NewRequest(http.MethodPost, "/control", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("POST /control: got status %d, want 200", w.Code)
	}
	if len(ctrl.applied) != 1 {
		t.Fatalf("ApplyControl calls = %d, want 1", len(ctrl.applied))
	}
	want := device.ControlInput{Device: "Lobby", Channel: "4", Volume: "10"}
	if ctrl.applied[0] != want {
		t.Errorf("input = %+v, want %+v", ctrl.applied[0], want)
	}
	if ctrl.sources[0] != audit.SourceWeb {
		t.Errorf("source = %q, want %q", ctrl.sources[0], audit.SourceWeb)
	}

	body := w.Body.String()
	for _, want := range []string{
		"result-full_success",
		"<p>Channel: Successfully updated</p>",
		"<p>Volume: Successfully updated</p>",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("POST /control: body missing %q", want)
		}
	}
}

func TestControl_ChannelOnlyForm(t *testing.T) {
	ctrl := newFake()
	ctrl.report = device.Report{Device: "Bar", Outcome: device.OutcomeFailed, Message: "Channel: Update failed\n"}
	h := newHandler(t, ctrl, "")

	form := url.Values{"device": {"Bar"}, "channel": {"2"}}
	req := httptest.NewRequest(http.MethodPost, "/control", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if got := ctrl.applied[0].Volume; got != "" {
		t.Errorf("volume = %q, want empty", got)
	}
	if !strings.Contains(w.Body.String(), "<p>Channel: Update failed</p>") {
		t.Error("expected failure message")
	}
}

func TestControl_MethodNotAllowed(t *testing.T) {
	h := newHandler(t, newFake(), "")

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/control", nil))

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /control: got status %d, want 405", w.Code)
	}
}

func TestStatic_Embedded(t *testing.T) {
	h := newHandler(t, newFake(), "")

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/static/panel.css", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("GET /static/panel.css: got status %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "form.device") {
		t.Error("unexpected stylesheet content")
	}
	if cc := w.Header().Get("Cache-Control"); !strings.Contains(cc, "no-cache") {
		t.Errorf("Cache-Control = %q", cc)
	}
}

func TestStatic_FilesystemMode(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "panel.css"), []byte("body { color: red; }"), 0o644); err != nil {
		t.Fatal(err)
	}
	h := newHandler(t, newFake(), dir)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/static/panel.css", nil))

	if !strings.Contains(w.Body.String(), "color: red") {
		t.Errorf("filesystem GET /static/panel.css = %q", w.Body.String())
	}
}

func TestStatic_InvalidDirFallsBackToEmbed(t *testing.T) {
	h := newHandler(t, newFake(), "/nonexistent/dir/that/does/not/exist")

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/static/panel.css", nil))

	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "form.device") {
		t.Errorf("invalid dir: got status %d, want embedded stylesheet", w.Code)
	}
}

func TestLines(t *testing.T) {
	got := lines("Channel: Successfully updated\n\nVolume: Update failed\n")
	if len(got) != 2 || got[0] != "Channel: Successfully updated" || got[1] != "Volume: Update failed" {
		t.Errorf("lines() = %q", got)
	}
	if lines("") != nil {
		t.Error("lines(\"\") should be empty")
	}
}

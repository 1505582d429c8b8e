package panel

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/jap-panel/internal/audit"
	"github.com/nerrad567/jap-panel/internal/device"
)

//go:embed templates/*.html static/*
var content embed.FS

// Form field names posted by the device forms.
const (
	fieldDevice  = "device"
	fieldChannel = "channel"
	fieldVolume  = "volume"
)

// Controller is the part of control.Service the panel drives.
type Controller interface {
	RenderAll(ctx context.Context) []device.State
	ApplyControl(ctx context.Context, in device.ControlInput, source string) device.Report
	Limits() device.Limits
}

// Logger is the logging interface used by the panel.
type Logger interface {
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Error(string, ...any) {}

// Options configures Handler.
type Options struct {
	Title      string
	Controller Controller

	// StaticDir, when it names an existing directory, replaces the
	// embedded static assets.
	StaticDir string

	Logger Logger
}

// Panel renders the control page.
type Panel struct {
	title  string
	ctrl   Controller
	tmpl   *template.Template
	logger Logger
}

// deviceView is one device row of the page.
type deviceView struct {
	device.State
	ChannelOptions []int
	VolumeOptions  []int // empty when the device has no volume control
}

// pageData is the root template value.
type pageData struct {
	Title   string
	Devices []deviceView
	Result  *device.Report
}

// Handler parses the embedded templates and returns the panel routes.
func Handler(opts Options) (http.Handler, error) {
	if opts.Controller == nil {
		return nil, fmt.Errorf("panel: controller is required")
	}

	tmpl, err := template.New("").Funcs(template.FuncMap{
		"lines": lines,
	}).ParseFS(content, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("panel: parsing templates: %w", err)
	}

	p := &Panel{
		title:  opts.Title,
		ctrl:   opts.Controller,
		tmpl:   tmpl,
		logger: opts.Logger,
	}
	if p.logger == nil {
		p.logger = noopLogger{}
	}

	static, err := staticFS(opts.StaticDir)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Get("/", p.handleIndex)
	r.Post("/control", p.handleControl)
	r.Handle("/static/*", noCache(http.StripPrefix("/static/", http.FileServer(static))))
	return r, nil
}

// staticFS returns dir when it exists, otherwise the embedded assets.
func staticFS(dir string) (http.FileSystem, error) {
	if dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return http.Dir(dir), nil
		}
	}
	sub, err := fs.Sub(content, "static")
	if err != nil {
		return nil, fmt.Errorf("panel: loading embedded static assets: %w", err)
	}
	return http.FS(sub), nil
}

func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, must-revalidate")
		next.ServeHTTP(w, r)
	})
}

func (p *Panel) handleIndex(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, nil)
}

// handleControl applies one device form. The page is re-rendered after the
// submission so the selectors show the device's state as it now reports it.
func (p *Panel) handleControl(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	in := device.ControlInput{
		Device:  r.PostForm.Get(fieldDevice),
		Channel: r.PostForm.Get(fieldChannel),
		Volume:  r.PostForm.Get(fieldVolume),
	}
	report := p.ctrl.ApplyControl(r.Context(), in, audit.SourceWeb)
	p.render(w, r, &report)
}

func (p *Panel) render(w http.ResponseWriter, r *http.Request, result *device.Report) {
	limits := p.ctrl.Limits()
	channels := limits.ChannelOptions()
	volumes := limits.VolumeOptions()

	states := p.ctrl.RenderAll(r.Context())
	data := pageData{
		Title:   p.title,
		Devices: make([]deviceView, len(states)),
		Result:  result,
	}
	for i, st := range states {
		data.Devices[i] = deviceView{State: st, ChannelOptions: channels}
		if st.SupportsVolume {
			data.Devices[i].VolumeOptions = volumes
		}
	}

	var buf bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&buf, "index.html", data); err != nil {
		p.logger.Error("rendering panel", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes()) //nolint:errcheck // client may have gone away
}

// lines splits a result message into its non-empty lines.
func lines(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

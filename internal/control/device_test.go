package control

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/jap-panel/internal/bridges/jap"
	"github.com/nerrad567/jap-panel/internal/device"
	"github.com/nerrad567/jap-panel/internal/infrastructure/config"
)

const apiPrefix = "/cgi-bin/api/"

// stubDevice simulates a JAP receiver. It answers the read endpoints from
// its fields and acknowledges commands with channelAck/volumeAck.
type stubDevice struct {
	mu         sync.Mutex
	model      string
	channel    int
	volume     int
	channelAck string
	volumeAck  string
	requests   []string // "METHOD endpoint body"
}

func newStubDevice(model string, channel, volume int) *stubDevice {
	return &stubDevice{model: model, channel: channel, volume: volume, channelAck: "OK", volumeAck: "OK"}
}

func (d *stubDevice) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body) //nolint:errcheck // test server
	endpoint := strings.TrimPrefix(r.URL.Path, apiPrefix)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.requests = append(d.requests, strings.TrimSpace(r.Method+" "+endpoint+" "+string(body)))

	w.Header().Set("Content-Type", "application/json")
	switch r.Method + " " + endpoint {
	case "GET details/channel":
		fmt.Fprintf(w, `{"data":%d}`, d.channel)
	case "GET details/audio/stereo/volume":
		fmt.Fprintf(w, `{"data":"%d"}`, d.volume)
	case "GET details/device/model":
		fmt.Fprintf(w, `{"data":%q}`, d.model)
	case "POST command/channel":
		if d.channelAck == "OK" {
			d.channel, _ = strconv.Atoi(string(body)) //nolint:errcheck // validated by the client
		}
		fmt.Fprintf(w, `{"data":%q}`, d.channelAck)
	case "POST command/audio/stereo/volume":
		if d.volumeAck == "OK" {
			d.volume, _ = strconv.Atoi(string(body)) //nolint:errcheck // validated by the client
		}
		fmt.Fprintf(w, `{"data":%q}`, d.volumeAck)
	default:
		http.NotFound(w, r)
	}
}

func (d *stubDevice) posts() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []string
	for _, r := range d.requests {
		if strings.HasPrefix(r, http.MethodPost) {
			out = append(out, r)
		}
	}
	return out
}

func (d *stubDevice) requestCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.requests)
}

func (d *stubDevice) requestList() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.requests...)
}

func (d *stubDevice) reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.requests = nil
}

// routedClient returns an HTTP client that dials target for every host,
// so devices can keep their configured LAN addresses in tests.
func routedClient(target string) *http.Client {
	dialer := &net.Dialer{Timeout: time.Second}
	return &http.Client{Transport: &http.Transport{
		DialContext: func(ctx context.Context, network, _ string) (net.Conn, error) {
			return dialer.DialContext(ctx, network, target)
		},
	}}
}

func testJAPConfig() config.JAPConfig {
	return config.JAPConfig{
		Timeout:           2 * time.Second,
		Port:              80,
		MaxChannels:       100,
		MinVolume:         0,
		MaxVolume:         100,
		VolumeStep:        5,
		VolumeModels:      []string{"3G+AVP RX"},
		RenderConcurrency: 4,
	}
}

// newHTTPService wires a Service to a real jap.Client talking to stub for
// a single device at 192.168.8.16 named "Lobby".
func newHTTPService(t *testing.T, stub http.Handler, opts Options) (*Service, device.Device) {
	t.Helper()
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)
	return newRoutedService(t, srv.Listener.Addr().String(), opts)
}

func newRoutedService(t *testing.T, target string, opts Options) (*Service, device.Device) {
	t.Helper()
	cfg := testJAPConfig()
	dev := device.Device{Name: "Lobby", Address: netip.MustParseAddr("192.168.8.16")}
	reg, err := device.NewRegistry([]device.Device{dev})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	opts.Client = jap.NewClient(jap.ClientOptions{Config: cfg, HTTPClient: routedClient(target)})
	opts.Registry = reg
	opts.Limits = device.LimitsFromConfig(cfg)
	svc, err := NewService(opts)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return svc, dev
}

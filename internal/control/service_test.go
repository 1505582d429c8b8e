package control

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/jap-panel/internal/audit"
	"github.com/nerrad567/jap-panel/internal/device"
)

// ─── End-to-end against a stub device ──────────────────────────────

func TestEndToEnd_VolumeCapableDevice(t *testing.T) {
	stub := newStubDevice("3G+AVP RX", 2, 40)
	svc, dev := newHTTPService(t, stub, Options{})
	ctx := context.Background()

	state := svc.RenderState(ctx, dev)
	if state.Channel != 2 || !state.SupportsVolume || state.Volume != 40 {
		t.Fatalf("RenderState() = %+v, want channel 2, volume 40, volume supported", state)
	}

	stub.reset()
	report := svc.ApplyControl(ctx, device.ControlInput{Device: "Lobby", Channel: "3", Volume: "5"}, audit.SourceWeb)

	wantPosts := []string{"POST command/channel 3", "POST command/audio/stereo/volume 5"}
	if got := stub.posts(); !reflect.DeepEqual(got, wantPosts) {
		t.Errorf("POSTs = %q, want %q", got, wantPosts)
	}
	if report.Outcome != device.OutcomeFullSuccess || !report.Success {
		t.Errorf("outcome = %s (success %v), want full_success", report.Outcome, report.Success)
	}
	if want := "Channel: Successfully updated\nVolume: Successfully updated\n"; report.Message != want {
		t.Errorf("Message = %q, want %q", report.Message, want)
	}

	if after := svc.RenderState(ctx, dev); after.Channel != 3 || after.Volume != 5 {
		t.Errorf("state after control = %+v, want channel 3 volume 5", after)
	}
}

func TestEndToEnd_ModelNotAllowListed(t *testing.T) {
	stub := newStubDevice("2G RX", 2, 40)
	svc, dev := newHTTPService(t, stub, Options{})
	ctx := context.Background()

	state := svc.RenderState(ctx, dev)
	if state.SupportsVolume {
		t.Error("SupportsVolume = true for a model outside the allow-list")
	}
	if state.Volume != 0 {
		t.Errorf("Volume = %d, want configured minimum 0 without volume support", state.Volume)
	}

	stub.reset()
	report := svc.ApplyControl(ctx, device.ControlInput{Device: "Lobby", Channel: "3", Volume: "5"}, audit.SourceWeb)

	if got := stub.posts(); !reflect.DeepEqual(got, []string{"POST command/channel 3"}) {
		t.Errorf("POSTs = %q, want only the channel command", got)
	}
	if report.Volume != nil {
		t.Errorf("Volume result = %+v, want none", report.Volume)
	}
	if report.Outcome != device.OutcomeFullSuccess {
		t.Errorf("Outcome = %s, want full_success", report.Outcome)
	}
	if report.Message != "Channel: Successfully updated\n" {
		t.Errorf("Message = %q", report.Message)
	}
}

func TestApplyControl_Idempotent(t *testing.T) {
	stub := newStubDevice("3G+AVP RX", 2, 40)
	svc, _ := newHTTPService(t, stub, Options{})
	in := device.ControlInput{Device: "Lobby", Channel: "3"}

	first := svc.ApplyControl(context.Background(), in, audit.SourceAPI)
	second := svc.ApplyControl(context.Background(), in, audit.SourceAPI)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated submission differs:\n first  %+v\n second %+v", first, second)
	}
	if len(stub.posts()) != 2 {
		t.Errorf("POSTs = %d, want one per submission", len(stub.posts()))
	}
}

func TestApplyControl_Outcomes(t *testing.T) {
	tests := []struct {
		name       string
		model      string
		channelAck string
		volumeAck  string
		volume     string
		outcome    device.Outcome
		message    string
	}{
		{
			name: "volume not acknowledged", model: "3G+AVP RX",
			channelAck: "OK", volumeAck: "FAIL", volume: "10",
			outcome: device.OutcomePartialSuccess,
			message: "Channel: Successfully updated\nVolume: Update failed\n",
		},
		{
			name: "channel not acknowledged", model: "3G+AVP RX",
			channelAck: "FAIL", volumeAck: "OK", volume: "10",
			outcome: device.OutcomePartialSuccess,
			message: "Channel: Update failed\nVolume: Successfully updated\n",
		},
		{
			name: "both fail", model: "3G+AVP RX",
			channelAck: "FAIL", volumeAck: "FAIL", volume: "10",
			outcome: device.OutcomeFailed,
			message: "Channel: Update failed\nVolume: Update failed\n",
		},
		{
			name: "channel only fails", model: "2G RX",
			channelAck: "FAIL", volumeAck: "OK", volume: "10",
			outcome: device.OutcomeFailed,
			message: "Channel: Update failed\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := newStubDevice(tt.model, 1, 0)
			stub.channelAck, stub.volumeAck = tt.channelAck, tt.volumeAck
			svc, _ := newHTTPService(t, stub, Options{})

			report := svc.ApplyControl(context.Background(),
				device.ControlInput{Device: "Lobby", Channel: "4", Volume: tt.volume}, audit.SourceWeb)

			if report.Outcome != tt.outcome {
				t.Errorf("Outcome = %s, want %s", report.Outcome, tt.outcome)
			}
			if report.Success {
				t.Error("Success = true, want false unless every command succeeded")
			}
			if report.Message != tt.message {
				t.Errorf("Message = %q, want %q", report.Message, tt.message)
			}
		})
	}
}

func TestApplyControl_RejectedBeforeNetwork(t *testing.T) {
	tests := []struct {
		name    string
		in      device.ControlInput
		message string
	}{
		{"unknown device", device.ControlInput{Device: "Bar", Channel: "3"}, "Invalid input: device is not a configured device"},
		{"channel zero", device.ControlInput{Device: "Lobby", Channel: "0"}, "Invalid input: channel must be a whole number between 1 and 100"},
		{"channel too high", device.ControlInput{Device: "Lobby", Channel: "101"}, "Invalid input: channel must be a whole number between 1 and 100"},
		{"channel not numeric", device.ControlInput{Device: "Lobby", Channel: "three"}, "Invalid input: channel must be a whole number between 1 and 100"},
		{"channel missing", device.ControlInput{Device: "Lobby", Volume: "5"}, "Invalid input: channel must be a whole number between 1 and 100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := newStubDevice("3G+AVP RX", 2, 40)
			svc, _ := newHTTPService(t, stub, Options{})

			report := svc.ApplyControl(context.Background(), tt.in, audit.SourceWeb)

			if report.Outcome != device.OutcomeRejected || report.Success {
				t.Errorf("Outcome = %s, want rejected", report.Outcome)
			}
			if report.Message != tt.message {
				t.Errorf("Message = %q, want %q", report.Message, tt.message)
			}
			if n := stub.requestCount(); n != 0 {
				t.Errorf("device received %d requests, want none", n)
			}
		})
	}
}

func TestApplyControl_InvalidVolume(t *testing.T) {
	t.Run("capable device rejects without commands", func(t *testing.T) {
		stub := newStubDevice("3G+AVP RX", 2, 40)
		svc, _ := newHTTPService(t, stub, Options{})

		report := svc.ApplyControl(context.Background(),
			device.ControlInput{Device: "Lobby", Channel: "3", Volume: "150"}, audit.SourceWeb)

		if report.Outcome != device.OutcomeRejected {
			t.Errorf("Outcome = %s, want rejected", report.Outcome)
		}
		if want := "Invalid input: volume must be a whole number between 0 and 100"; report.Message != want {
			t.Errorf("Message = %q, want %q", report.Message, want)
		}
		if posts := stub.posts(); len(posts) != 0 {
			t.Errorf("POSTs = %q, want none", posts)
		}
		// A bad volume is only an error for devices with volume support,
		// so exactly one model read precedes the rejection.
		if n := stub.requestCount(); n != 1 {
			t.Errorf("device received %d requests, want 1", n)
		}
		if got := stub.requestList(); !reflect.DeepEqual(got, []string{"GET details/device/model"}) {
			t.Errorf("requests = %q, want only the model read", got)
		}
	})

	t.Run("device without volume ignores it", func(t *testing.T) {
		stub := newStubDevice("2G RX", 2, 40)
		svc, _ := newHTTPService(t, stub, Options{})

		report := svc.ApplyControl(context.Background(),
			device.ControlInput{Device: "Lobby", Channel: "3", Volume: "loud"}, audit.SourceWeb)

		if report.Outcome != device.OutcomeFullSuccess {
			t.Errorf("Outcome = %s, want full_success", report.Outcome)
		}
		if got := stub.posts(); !reflect.DeepEqual(got, []string{"POST command/channel 3"}) {
			t.Errorf("POSTs = %q, want only the channel command", got)
		}
		want := []string{"GET details/device/model", "POST command/channel 3"}
		if got := stub.requestList(); !reflect.DeepEqual(got, want) {
			t.Errorf("requests = %q, want %q", got, want)
		}
	})
}

func TestRenderState_OutOfRangeReadsUseDefaults(t *testing.T) {
	tests := []struct {
		name    string
		channel int
		volume  int
		want    [2]int
	}{
		{"in range", 7, 35, [2]int{7, 35}},
		{"channel above maximum", 500, 35, [2]int{1, 35}},
		{"negative volume", 7, -7, [2]int{7, 0}},
		{"volume above maximum", 7, 140, [2]int{7, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := newStubDevice("3G+AVP RX", tt.channel, tt.volume)
			svc, dev := newHTTPService(t, stub, Options{})

			state := svc.RenderState(context.Background(), dev)
			if got := [2]int{state.Channel, state.Volume}; got != tt.want {
				t.Errorf("RenderState() channel, volume = %v, want %v", got, tt.want)
			}
			if !state.SupportsVolume {
				t.Error("SupportsVolume = false, want true")
			}
		})
	}
}

func TestUnreachableDevice(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	target := ln.Addr().String()
	ln.Close() //nolint:errcheck // closed so dials are refused

	svc, dev := newRoutedService(t, target, Options{})
	ctx := context.Background()

	state := svc.RenderState(ctx, dev)
	want := device.State{Device: dev, Channel: 1, Volume: 0, SupportsVolume: false}
	if state != want {
		t.Errorf("RenderState() = %+v, want defaults %+v", state, want)
	}

	report := svc.ApplyControl(ctx, device.ControlInput{Device: "Lobby", Channel: "3", Volume: "5"}, audit.SourceWeb)
	if report.Outcome != device.OutcomeFailed {
		t.Errorf("Outcome = %s, want failed", report.Outcome)
	}
	if report.Message != "Channel: Update failed\n" {
		t.Errorf("Message = %q", report.Message)
	}
}

// ─── Unit tests with a fake client ─────────────────────────────────

type fakeClient struct {
	mu       sync.Mutex
	channels map[netip.Addr]int
	volumes  map[netip.Addr]int
	capable  map[netip.Addr]bool
	delay    map[netip.Addr]time.Duration
	setErr   error
	calls    []string
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		channels: make(map[netip.Addr]int),
		volumes:  make(map[netip.Addr]int),
		capable:  make(map[netip.Addr]bool),
		delay:    make(map[netip.Addr]time.Duration),
	}
}

func (f *fakeClient) record(call string, addr netip.Addr) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call+" "+addr.String())
}

func (f *fakeClient) GetChannel(_ context.Context, addr netip.Addr) int {
	f.mu.Lock()
	d := f.delay[addr]
	f.mu.Unlock()
	time.Sleep(d)
	f.record("GetChannel", addr)
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.channels[addr]; ok {
		return ch
	}
	return 1
}

func (f *fakeClient) GetVolume(_ context.Context, addr netip.Addr) int {
	f.record("GetVolume", addr)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.volumes[addr]
}

func (f *fakeClient) SupportsVolume(_ context.Context, addr netip.Addr) bool {
	f.record("SupportsVolume", addr)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.capable[addr]
}

func (f *fakeClient) SetChannel(_ context.Context, addr netip.Addr, ch int) (bool, error) {
	f.record("SetChannel", addr)
	if f.setErr != nil {
		return false, f.setErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels[addr] = ch
	return true, nil
}

func (f *fakeClient) SetVolume(_ context.Context, addr netip.Addr, v int) (bool, error) {
	f.record("SetVolume", addr)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volumes[addr] = v
	return true, nil
}

func testLimits() device.Limits {
	return device.Limits{MaxChannels: 100, MinVolume: 0, MaxVolume: 100, VolumeStep: 5}
}

func testRegistry(t *testing.T, names ...string) *device.Registry {
	t.Helper()
	devices := make([]device.Device, len(names))
	for i, n := range names {
		devices[i] = device.Device{Name: n, Address: netip.AddrFrom4([4]byte{10, 0, 0, byte(i + 1)})}
	}
	reg, err := device.NewRegistry(devices)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	return reg
}

type recordingListener struct {
	mu      sync.Mutex
	states  []device.State
	reports []device.Report
}

func (l *recordingListener) StateRefreshed(s device.State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.states = append(l.states, s)
}

func (l *recordingListener) ControlApplied(r device.Report) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reports = append(l.reports, r)
}

type memoryAudit struct {
	entries []*audit.Entry
	err     error
}

func (m *memoryAudit) Create(_ context.Context, e *audit.Entry) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *memoryAudit) List(context.Context, audit.Filter) (*audit.ListResult, error) {
	return &audit.ListResult{}, nil
}

func TestNewService_Validation(t *testing.T) {
	if _, err := NewService(Options{Registry: testRegistry(t)}); !errors.Is(err, ErrNoClient) {
		t.Errorf("without client: error = %v, want ErrNoClient", err)
	}
	if _, err := NewService(Options{Client: newFakeClient()}); !errors.Is(err, ErrNoRegistry) {
		t.Errorf("without registry: error = %v, want ErrNoRegistry", err)
	}
}

func TestRenderAll_KeepsConfigurationOrder(t *testing.T) {
	client := newFakeClient()
	reg := testRegistry(t, "Lobby", "Bar", "Stage", "Office")
	for i, d := range reg.List() {
		client.channels[d.Address] = 10 + i
		// Earlier devices answer last.
		client.delay[d.Address] = time.Duration(len(reg.List())-i) * 10 * time.Millisecond
	}

	svc, err := NewService(Options{Client: client, Registry: reg, Limits: testLimits(), RenderConcurrency: 4})
	if err != nil {
		t.Fatal(err)
	}

	states := svc.RenderAll(context.Background())
	if len(states) != 4 {
		t.Fatalf("len(states) = %d, want 4", len(states))
	}
	for i, want := range []string{"Lobby", "Bar", "Stage", "Office"} {
		if states[i].Device.Name != want || states[i].Channel != 10+i {
			t.Errorf("states[%d] = %+v, want %s on channel %d", i, states[i], want, 10+i)
		}
	}
	if got := svc.Stats().Renders; got != 4 {
		t.Errorf("Stats().Renders = %d, want 4", got)
	}
}

func TestRenderState_SkipsVolumeReadWithoutSupport(t *testing.T) {
	client := newFakeClient()
	reg := testRegistry(t, "Lobby")
	dev := reg.List()[0]
	client.volumes[dev.Address] = 80

	limits := testLimits()
	limits.MinVolume = 10
	svc, _ := NewService(Options{Client: client, Registry: reg, Limits: limits})

	state := svc.RenderState(context.Background(), dev)
	if state.Volume != 10 {
		t.Errorf("Volume = %d, want configured minimum 10", state.Volume)
	}
	for _, c := range client.calls {
		if strings.HasPrefix(c, "GetVolume") {
			t.Errorf("unexpected volume read: %s", c)
		}
	}
}

func TestRenderDevice_Unknown(t *testing.T) {
	svc, _ := NewService(Options{Client: newFakeClient(), Registry: testRegistry(t, "Lobby"), Limits: testLimits()})
	if _, err := svc.RenderDevice(context.Background(), "Bar"); !errors.Is(err, device.ErrDeviceNotFound) {
		t.Errorf("RenderDevice() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestApplyControl_ChannelBeforeFreshCapabilityCheck(t *testing.T) {
	client := newFakeClient()
	reg := testRegistry(t, "Lobby")
	addr := reg.List()[0].Address
	client.capable[addr] = true
	svc, _ := NewService(Options{Client: client, Registry: reg, Limits: testLimits()})

	svc.ApplyControl(context.Background(), device.ControlInput{Device: "Lobby", Channel: "3", Volume: "5"}, audit.SourceAPI)

	want := []string{"SetChannel 10.0.0.1", "SupportsVolume 10.0.0.1", "SetVolume 10.0.0.1"}
	if !reflect.DeepEqual(client.calls, want) {
		t.Errorf("calls = %q, want %q", client.calls, want)
	}
}

func TestApplyControl_InvariantViolationFails(t *testing.T) {
	client := newFakeClient()
	client.setErr = errors.New("jap: invariant violation")
	svc, _ := NewService(Options{Client: client, Registry: testRegistry(t, "Lobby"), Limits: testLimits()})

	report := svc.ApplyControl(context.Background(), device.ControlInput{Device: "Lobby", Channel: "3"}, audit.SourceAPI)
	if report.Outcome != device.OutcomeFailed {
		t.Errorf("Outcome = %s, want failed", report.Outcome)
	}
}

func TestApplyControl_AuditListenersAndStats(t *testing.T) {
	client := newFakeClient()
	repo := &memoryAudit{}
	listener := &recordingListener{}
	svc, _ := NewService(Options{Client: client, Registry: testRegistry(t, "Lobby"), Limits: testLimits(), Audit: repo})
	svc.AddListener(listener)
	svc.AddListener(nil)
	ctx := context.Background()

	svc.ApplyControl(ctx, device.ControlInput{Device: "Lobby", Channel: "7"}, audit.SourceMQTT)
	svc.ApplyControl(ctx, device.ControlInput{Device: "Lobby", Channel: "x"}, audit.SourceWeb)

	if len(repo.entries) != 2 {
		t.Fatalf("audit entries = %d, want 2", len(repo.entries))
	}
	first := repo.entries[0]
	if first.Action != audit.ActionControl || first.EntityType != audit.EntityDevice ||
		first.EntityID != "Lobby" || first.Source != audit.SourceMQTT {
		t.Errorf("entry = %+v", first)
	}
	if first.Details["channel"] != "7" || first.Details["outcome"] != "full_success" {
		t.Errorf("details = %v", first.Details)
	}
	if repo.entries[1].Details["outcome"] != "rejected" {
		t.Errorf("second outcome = %v, want rejected", repo.entries[1].Details["outcome"])
	}

	if len(listener.reports) != 2 {
		t.Errorf("listener reports = %d, want 2", len(listener.reports))
	}

	stats := svc.Stats()
	if stats.FullSuccess != 1 || stats.Rejected != 1 || stats.Failed != 0 || stats.PartialSuccess != 0 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestApplyControl_AuditFailureDoesNotChangeReport(t *testing.T) {
	repo := &memoryAudit{err: errors.New("disk full")}
	svc, _ := NewService(Options{Client: newFakeClient(), Registry: testRegistry(t, "Lobby"), Limits: testLimits(), Audit: repo})

	report := svc.ApplyControl(context.Background(), device.ControlInput{Device: "Lobby", Channel: "2"}, audit.SourceAPI)
	if report.Outcome != device.OutcomeFullSuccess {
		t.Errorf("Outcome = %s, want full_success", report.Outcome)
	}
}

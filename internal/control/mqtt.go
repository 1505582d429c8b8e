package control

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nerrad567/jap-panel/internal/audit"
	"github.com/nerrad567/jap-panel/internal/device"
	"github.com/nerrad567/jap-panel/internal/infrastructure/mqtt"
)

// MQTTClient is the subset of *mqtt.Client used by CommandBridge.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	IsConnected() bool
}

// CommandBridge connects the service to MQTT. Submissions arrive as JSON
// control input on jappanel/command/{device}; every report is published on
// the device's result topic and every rendered state is retained on its
// state topic, whichever surface triggered them.
type CommandBridge struct {
	svc    *Service
	client MQTTClient
	qos    byte
	topics mqtt.Topics
	logger Logger

	// bySegment maps topic segments back to configured device names.
	bySegment map[string]string

	ctx context.Context
}

// NewCommandBridge creates a bridge between svc and client.
func NewCommandBridge(svc *Service, client MQTTClient, qos byte, logger Logger) *CommandBridge {
	if logger == nil {
		logger = noopLogger{}
	}
	b := &CommandBridge{
		svc:       svc,
		client:    client,
		qos:       qos,
		logger:    logger,
		bySegment: make(map[string]string, svc.Registry().Len()),
		ctx:       context.Background(),
	}
	for _, d := range svc.Registry().List() {
		b.bySegment[b.topics.Segment(d.Name)] = d.Name
	}
	return b
}

// Start subscribes to the command topics and registers the bridge as a
// service listener. ctx bounds the submissions the bridge applies.
func (b *CommandBridge) Start(ctx context.Context) error {
	b.ctx = ctx
	if err := b.client.Subscribe(b.topics.AllDeviceCommands(), b.qos, b.handleCommand); err != nil {
		return fmt.Errorf("subscribing to device commands: %w", err)
	}
	b.svc.AddListener(b)
	return nil
}

func (b *CommandBridge) handleCommand(topic string, payload []byte) error {
	seg, ok := b.topics.CommandDevice(topic)
	if !ok {
		return nil
	}
	name, ok := b.bySegment[seg]
	if !ok {
		b.logger.Warn("command for unknown device", "topic", topic)
		return nil
	}

	var in device.ControlInput
	if err := json.Unmarshal(payload, &in); err != nil {
		return fmt.Errorf("decoding command for %s: %w", name, err)
	}
	in.Device = name

	b.svc.ApplyControl(b.ctx, in, audit.SourceMQTT)
	return nil
}

// ControlApplied publishes report on the device's result topic.
func (b *CommandBridge) ControlApplied(report device.Report) {
	if report.Device == "" {
		return
	}
	b.publish(b.topics.DeviceResult(report.Device), report, false)
}

// StateRefreshed retains state on the device's state topic.
func (b *CommandBridge) StateRefreshed(state device.State) {
	b.publish(b.topics.DeviceState(state.Device.Name), state, true)
}

func (b *CommandBridge) publish(topic string, v any, retained bool) {
	if !b.client.IsConnected() {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		b.logger.Error("encoding mqtt payload", "topic", topic, "error", err)
		return
	}
	if err := b.client.Publish(topic, payload, b.qos, retained); err != nil {
		b.logger.Warn("publishing to mqtt", "topic", topic, "error", err)
	}
}

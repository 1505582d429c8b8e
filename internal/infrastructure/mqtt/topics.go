package mqtt

import (
	"fmt"
	"strings"
)

// Topic roots. Device topics carry a topic-safe form of the device name
// (see Topics.Segment).
const (
	TopicPrefix       = "jappanel"
	TopicPrefixCore   = TopicPrefix + "/core"
	TopicPrefixSystem = TopicPrefix + "/system"
)

// Topics provides builders for the panel's MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.DeviceCommand("Lobby Display") // jappanel/command/Lobby Display
type Topics struct{}

// Segment returns name in a form that is safe as a single topic level:
// the level separator and both wildcards are replaced with "-".
func (Topics) Segment(name string) string {
	return strings.NewReplacer("/", "-", "+", "-", "#", "-").Replace(strings.TrimSpace(name))
}

// DeviceCommand is where control submissions for one device are received.
//
// Example: jappanel/command/lobby
func (t Topics) DeviceCommand(device string) string {
	return fmt.Sprintf("%s/command/%s", TopicPrefix, t.Segment(device))
}

// AllDeviceCommands matches the command topic of every device.
//
// Pattern: jappanel/command/+
func (Topics) AllDeviceCommands() string {
	return TopicPrefix + "/command/+"
}

// DeviceResult carries the report of each submission for a device.
//
// Example: jappanel/core/device/lobby/result
func (t Topics) DeviceResult(device string) string {
	return fmt.Sprintf("%s/device/%s/result", TopicPrefixCore, t.Segment(device))
}

// DeviceState carries the last rendered state of a device (retained).
//
// Example: jappanel/core/device/lobby/state
func (t Topics) DeviceState(device string) string {
	return fmt.Sprintf("%s/device/%s/state", TopicPrefixCore, t.Segment(device))
}

// SystemStatus carries the panel's online/offline status and LWT.
//
// Example: jappanel/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// CommandDevice extracts the device segment from a command topic.
// It returns false for any other topic.
func (Topics) CommandDevice(topic string) (string, bool) {
	seg, ok := strings.CutPrefix(topic, TopicPrefix+"/command/")
	if !ok || seg == "" || strings.Contains(seg, "/") {
		return "", false
	}
	return seg, true
}

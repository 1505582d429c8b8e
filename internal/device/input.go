package device

import (
	"bytes"
	"encoding/json"
	"strings"
)

// UnmarshalJSON accepts channel and volume either as JSON strings or as
// JSON numbers, so {"channel": 3} and {"channel": "3"} decode alike.
// Validation of the resulting text is left to ParseControlInput.
func (in *ControlInput) UnmarshalJSON(data []byte) error {
	var raw struct {
		Device  string          `json:"device"`
		Channel json.RawMessage `json:"channel"`
		Volume  json.RawMessage `json:"volume"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	in.Device = raw.Device
	in.Channel = scalarText(raw.Channel)
	in.Volume = scalarText(raw.Volume)
	return nil
}

func scalarText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return strings.TrimSpace(string(raw))
}

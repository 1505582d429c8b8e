package jap

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"
)

// envelope is the {"data": ...} wrapper every device response uses.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

func decodeEnvelope(endpoint string, body []byte) (json.RawMessage, error) {
	var env envelope
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&env); err != nil {
		return nil, &ParseError{Endpoint: endpoint, Body: snippet(body), Err: err}
	}
	// The envelope must be the whole body.
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &ParseError{Endpoint: endpoint, Body: snippet(body), Err: errTrailingData}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, &ParseError{Endpoint: endpoint, Body: snippet(body), Err: errMissingData}
	}
	return env.Data, nil
}

// parseIntData extracts an int-like data value: a JSON number with no
// fractional part, or a string holding a whole number.
func parseIntData(endpoint string, body []byte) (int, error) {
	raw, err := decodeEnvelope(endpoint, body)
	if err != nil {
		return 0, err
	}

	var text string
	switch raw[0] {
	case '"':
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, &ParseError{Endpoint: endpoint, Body: snippet(body), Err: err}
		}
		text = strings.TrimSpace(text)
	default:
		text = string(raw)
	}

	if v, err := strconv.Atoi(text); err == nil {
		return v, nil
	}
	// Some firmware reports numbers as 2.0.
	if f, err := strconv.ParseFloat(text, 64); err == nil &&
		f == math.Trunc(f) && f >= math.MinInt32 && f <= math.MaxInt32 {
		return int(f), nil
	}
	return 0, &ParseError{Endpoint: endpoint, Body: snippet(body), Err: errNotInteger}
}

func parseStringData(endpoint string, body []byte) (string, error) {
	raw, err := decodeEnvelope(endpoint, body)
	if err != nil {
		return "", err
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", &ParseError{Endpoint: endpoint, Body: snippet(body), Err: errNotString}
	}
	return s, nil
}

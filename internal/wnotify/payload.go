package wnotify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Payload is a decoded incoming event. The "event" field names the event;
// every other field is passed through to handlers untouched.
//
// The service sends payloads shaped as
//
//	{"account": "...", "event": "...", "time": 1700000000, "data": {"k": ["v"]}}
type Payload map[string]any

// Event returns the event name, or "" when the field is missing or not a string.
func (p Payload) Event() string {
	s, _ := p["event"].(string)
	return s
}

// Account returns the private key the event was delivered to.
func (p Payload) Account() string {
	s, _ := p["account"].(string)
	return s
}

// Time returns the server-side timestamp of the event, or the zero time.
func (p Payload) Time() time.Time {
	switch v := p["time"].(type) {
	case float64:
		return time.Unix(int64(v), 0).UTC()
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return time.Unix(n, 0).UTC()
		}
	}
	return time.Time{}
}

// Data returns the query parameters the event was tracked with.
func (p Payload) Data() map[string][]string {
	raw, ok := p["data"].(map[string]any)
	if !ok {
		return nil
	}

	data := make(map[string][]string, len(raw))
	for k, v := range raw {
		switch vs := v.(type) {
		case []any:
			for _, item := range vs {
				if s, ok := item.(string); ok {
					data[k] = append(data[k], s)
				}
			}
		case string:
			data[k] = []string{vs}
		}
	}

	return data
}

// DecodePayload parses a watch response body. An empty body or a JSON null
// means no event and yields a nil payload.
func DecodePayload(body []byte) (Payload, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, nil
	}

	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}

	return p, nil
}

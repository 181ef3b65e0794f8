package wsrelay

import "encoding/json"

// Message is one inbound payload after the decode-or-passthrough step.
// A payload that parses as JSON is Structured and carries the decoded
// value; anything else passes through verbatim as Text.
type Message struct {
	Structured bool
	Value      any    // decoded JSON value, set when Structured
	Text       string // raw payload, set when !Structured
}

// decodePayload decodes raw as JSON, falling back to a verbatim text
// message. Decode failures are never surfaced to subscribers.
func decodePayload(raw []byte) Message {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return Message{Text: string(raw)}
	}
	return Message{Structured: true, Value: v}
}

// encodePayload prepares an outbound message. Strings and byte slices
// pass through unchanged; everything else is JSON-marshaled.
func encodePayload(v any) ([]byte, error) {
	switch p := v.(type) {
	case string:
		return []byte(p), nil
	case []byte:
		return p, nil
	case json.RawMessage:
		return p, nil
	}
	return json.Marshal(v)
}

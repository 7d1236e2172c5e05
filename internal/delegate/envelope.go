package delegate

import (
	"encoding/json"
	"strings"
)

// EnvelopeKind tags the recognized collaborator reply shapes.
type EnvelopeKind string

const (
	KindString   EnvelopeKind = "string"
	KindMessage  EnvelopeKind = "message"
	KindResponse EnvelopeKind = "response"
	KindUnknown  EnvelopeKind = "unknown"
)

// DiagnosticReply is returned whenever a collaborator reply cannot be
// normalized; it is user-visible, so it stays generic.
const DiagnosticReply = "Error processing collaborator response."

// Envelope is the normalized view of a collaborator reply.
type Envelope struct {
	Kind EnvelopeKind
	Text string
}

// envelopeBody covers the object variants: a body that is either a
// JSON-encoded string or a nested object carrying message/response.
type envelopeBody struct {
	Body json.RawMessage `json:"body"`
}

type innerBody struct {
	Message  string `json:"message"`
	Response string `json:"response"`
}

// Normalize folds the three documented reply shapes into one display string:
// a plain JSON string, an object with body.message, or an object whose body
// is itself a JSON-encoded string containing message or response. It is a
// total function: unrecognized shapes yield a diagnostic envelope, never an
// error or panic.
func Normalize(raw []byte) Envelope {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return Envelope{Kind: KindUnknown, Text: DiagnosticReply}
	}

	// Plain string reply.
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return Envelope{Kind: KindString, Text: s}
	}

	var outer envelopeBody
	if err := json.Unmarshal(raw, &outer); err != nil || len(outer.Body) == 0 {
		// Not JSON at all: treat the raw bytes as the display string.
		if err != nil && !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "[") {
			return Envelope{Kind: KindString, Text: trimmed}
		}
		// A JSON object without a body field: try message/response at the top level.
		var inner innerBody
		if err := json.Unmarshal(raw, &inner); err == nil {
			if e, ok := fromInner(inner); ok {
				return e
			}
		}
		return Envelope{Kind: KindUnknown, Text: DiagnosticReply}
	}

	bodyBytes := []byte(outer.Body)

	// Body may be a JSON-encoded string wrapping the real object.
	var bodyStr string
	if err := json.Unmarshal(bodyBytes, &bodyStr); err == nil {
		bodyBytes = []byte(bodyStr)
	}

	var inner innerBody
	if err := json.Unmarshal(bodyBytes, &inner); err != nil {
		// Body decoded to a bare string with no JSON inside.
		if bodyStr != "" {
			return Envelope{Kind: KindString, Text: bodyStr}
		}
		return Envelope{Kind: KindUnknown, Text: DiagnosticReply}
	}

	if e, ok := fromInner(inner); ok {
		return e
	}
	return Envelope{Kind: KindUnknown, Text: DiagnosticReply}
}

func fromInner(inner innerBody) (Envelope, bool) {
	if inner.Message != "" {
		return Envelope{Kind: KindMessage, Text: inner.Message}, true
	}
	if inner.Response != "" {
		return Envelope{Kind: KindResponse, Text: inner.Response}, true
	}
	return Envelope{}, false
}

package core

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dkeye/pinrelay/internal/domain"
)

// MessageType is the "type" field of every signaling envelope.
type MessageType string

// Inbound.
const (
	MsgCreateSession MessageType = "create-session"
	MsgJoinSession   MessageType = "join-session"
	MsgEndSession    MessageType = "end-session"
	MsgPing          MessageType = "ping"
)

// Relayed in both directions.
const (
	MsgOffer        MessageType = "offer"
	MsgAnswer       MessageType = "answer"
	MsgICECandidate MessageType = "ice-candidate"
	MsgTouchEvent   MessageType = "touch-event"
)

// Outbound only.
const (
	MsgSessionCreated     MessageType = "session-created"
	MsgSessionJoined      MessageType = "session-joined"
	MsgViewerJoined       MessageType = "viewer-joined"
	MsgSessionEnded       MessageType = "session-ended"
	MsgHostDisconnected   MessageType = "host-disconnected"
	MsgViewerDisconnected MessageType = "viewer-disconnected"
	MsgError              MessageType = "error"
	MsgPong               MessageType = "pong"
)

// Error texts sent to the originating connection.
const (
	ErrTextPINInUse       = "PIN already in use"
	ErrTextInvalidPIN     = "Invalid PIN"
	ErrTextViewerPresent  = "Session already has a viewer"
	ErrTextNoViewer       = "No viewer connected"
	ErrTextHostNotFound   = "Host not found"
	ErrTextTooManyJoins   = "Too many attempts"
	ErrTextBadPayload     = "Bad payload"
	ErrTextPINUnavailable = "No PIN available"
)

// Envelope is the wire shape of every message in both directions.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type PINPayload struct {
	PIN string `json:"pin"`
}

type OfferPayload struct {
	PIN   string          `json:"pin,omitempty"`
	Offer json.RawMessage `json:"offer"`
}

type AnswerPayload struct {
	PIN    string          `json:"pin,omitempty"`
	Answer json.RawMessage `json:"answer"`
}

type CandidatePayload struct {
	PIN       string          `json:"pin,omitempty"`
	Candidate json.RawMessage `json:"candidate"`
}

// TouchPayload keeps coordinates and action opaque; the host interprets them.
type TouchPayload struct {
	PIN    string          `json:"pin,omitempty"`
	X      json.RawMessage `json:"x"`
	Y      json.RawMessage `json:"y"`
	Action json.RawMessage `json:"action"`
}

type ViewerJoinedPayload struct {
	ViewerID domain.ConnID `json:"viewerId"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// Encode builds a wire frame from a type and an optional payload.
func Encode(t MessageType, payload any) (Frame, error) {
	env := Envelope{Type: t}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		env.Payload = raw
	}
	return json.Marshal(env)
}

// Decode parses the envelope; the payload stays raw until a handler needs it.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

// RawField is one payload member whose value is copied into the frame as is.
type RawField struct {
	Key   string
	Value json.RawMessage
}

// EncodeRaw builds a frame whose payload members are spliced in byte for
// byte, so relayed bodies reach the counterpart exactly as the sender wrote
// them. An empty value is written as null.
func EncodeRaw(t MessageType, fields ...RawField) (Frame, error) {
	typ, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString(`{"type":`)
	buf.Write(typ)
	buf.WriteString(`,"payload":{`)
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if len(f.Value) == 0 {
			buf.WriteString("null")
			continue
		}
		if !json.Valid(f.Value) {
			return nil, fmt.Errorf("field %q: invalid json", f.Key)
		}
		buf.Write(f.Value)
	}
	buf.WriteString("}}")
	return buf.Bytes(), nil
}

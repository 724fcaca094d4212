package models

import (
	"encoding/json"

	"github.com/d00mkeeps/ibhackathon/consts"
)

// Event is one outbound frame on the chat socket. Type selects which of the
// other fields are meaningful.
type Event struct {
	Type      string          `json:"type"`
	Data      any             `json:"data,omitempty"`
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
}

// ErrorPayload is the data of an error event.
type ErrorPayload struct {
	Code       string `json:"code,omitempty"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

// ClientEvent is one inbound frame.
type ClientEvent struct {
	Type      string          `json:"type"`
	Message   string          `json:"message,omitempty"`
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
}

func ConnectionStatusEvent() *Event {
	return &Event{Type: consts.EventConnectionStatus, Data: consts.StatusConnected}
}

// HeartbeatAckEvent echoes the client timestamp verbatim, or null when the
// heartbeat carried none.
func HeartbeatAckEvent(ts json.RawMessage) *Event {
	if len(ts) == 0 {
		ts = json.RawMessage("null")
	}
	return &Event{Type: consts.EventHeartbeatAck, Timestamp: ts}
}

func ContentEvent(text string) *Event {
	return &Event{Type: consts.EventContent, Data: text}
}

func CompleteEvent() *Event {
	return &Event{Type: consts.EventComplete}
}

func ErrorEvent(code, message string) *Event {
	return &Event{Type: consts.EventError, Data: ErrorPayload{Code: code, Message: message}}
}

func RateLimitEvent(retryAfter int) *Event {
	return &Event{Type: consts.EventError, Data: ErrorPayload{
		Code:       consts.ErrCodeRateLimit,
		Message:    "Rate limit exceeded. Please try again later.",
		RetryAfter: retryAfter,
	}}
}

// Text returns the fragment text of a content event.
func (e *Event) Text() string {
	if e == nil || e.Type != consts.EventContent {
		return ""
	}
	s, _ := e.Data.(string)
	return s
}

// Err returns the payload of an error event.
func (e *Event) Err() (ErrorPayload, bool) {
	if e == nil || e.Type != consts.EventError {
		return ErrorPayload{}, false
	}
	p, ok := e.Data.(ErrorPayload)
	return p, ok
}

// Package audit provides tamper-evident audit logging for CA operations.
//
// Audit events are appended to a JSONL file with SHA-256 hash chaining so
// removal or modification of an entry is detectable. Two rules hold
// everywhere: audit failure is operation failure, and secrets (private
// keys, passphrases) are never logged.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// EventType categorizes an audit event.
type EventType string

const (
	EventCACreated   EventType = "CA_CREATED"
	EventCALoaded    EventType = "CA_LOADED"
	EventKeyAccessed EventType = "KEY_ACCESSED"
	EventCertIssued  EventType = "CERT_ISSUED"
	EventAuthFailed  EventType = "AUTH_FAILED"
)

// Result is the outcome of an audited operation.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
)

// Actor identifies who performed the action.
type Actor struct {
	Type string `json:"type"` // "user", "system", "service"
	ID   string `json:"id"`
	Host string `json:"host,omitempty"`
}

// Object identifies what was acted upon.
type Object struct {
	Type    string `json:"type"` // "ca", "certificate", "key"
	Serial  string `json:"serial,omitempty"`
	Subject string `json:"subject,omitempty"`
	Name    string `json:"name,omitempty"` // CA name
}

// Context carries additional operation details.
type Context struct {
	CA        string `json:"ca,omitempty"`
	Algorithm string `json:"algorithm,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// Event is a single audit log entry.
type Event struct {
	EventType EventType `json:"event_type"`
	Timestamp string    `json:"timestamp"` // RFC3339 UTC
	Actor     Actor     `json:"actor"`
	Object    Object    `json:"object"`
	Context   Context   `json:"context,omitempty"`
	Result    Result    `json:"result"`
	HashPrev  string    `json:"hash_prev"`
	Hash      string    `json:"hash"`
}

// NewEvent creates an event stamped with the current time and local actor.
func NewEvent(eventType EventType, result Result) *Event {
	hostname, _ := os.Hostname()
	username := os.Getenv("USER")
	if username == "" {
		username = os.Getenv("USERNAME") // Windows
	}
	if username == "" {
		username = "unknown"
	}

	return &Event{
		EventType: eventType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Actor:     Actor{Type: "user", ID: username, Host: hostname},
		Result:    result,
	}
}

// WithActor overrides the actor field.
func (e *Event) WithActor(actor Actor) *Event {
	e.Actor = actor
	return e
}

// WithObject sets the object field.
func (e *Event) WithObject(obj Object) *Event {
	e.Object = obj
	return e
}

// WithContext sets the context field.
func (e *Event) WithContext(ctx Context) *Event {
	e.Context = ctx
	return e
}

// Validate checks that required fields are present.
func (e *Event) Validate() error {
	if e.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	if e.Timestamp == "" {
		return fmt.Errorf("timestamp is required")
	}
	if e.Actor.Type == "" || e.Actor.ID == "" {
		return fmt.Errorf("actor type and id are required")
	}
	if e.Result == "" {
		return fmt.Errorf("result is required")
	}
	return nil
}

// CanonicalJSON serializes the event without its Hash field, the form the
// hash is computed over.
func (e *Event) CanonicalJSON() ([]byte, error) {
	type eventForHash struct {
		EventType EventType `json:"event_type"`
		Timestamp string    `json:"timestamp"`
		Actor     Actor     `json:"actor"`
		Object    Object    `json:"object"`
		Context   Context   `json:"context,omitempty"`
		Result    Result    `json:"result"`
		HashPrev  string    `json:"hash_prev"`
	}
	return json.Marshal(eventForHash{
		EventType: e.EventType,
		Timestamp: e.Timestamp,
		Actor:     e.Actor,
		Object:    e.Object,
		Context:   e.Context,
		Result:    e.Result,
		HashPrev:  e.HashPrev,
	})
}

// JSON returns the full event as JSON.
func (e *Event) JSON() ([]byte, error) {
	return json.Marshal(e)
}

// Package queue defines the messages published about verification codes
// and the broker plumbing that carries them.
package queue

import (
    "encoding/json"
    "time"

    "github.com/google/uuid"
)

// CodeEventsQueue is the durable queue all code lifecycle messages go to.
const CodeEventsQueue = "code.events"

// Message type discriminators.
const (
    TypeCodeIssued = "code.issued"
    TypeCodeBound  = "code.bound"
)

// Event is implemented by every payload that can be published.
type Event interface {
    EventType() string
}

// CodeIssuedEvent is published after a code has been committed.  Only the
// first characters of the code travel on the bus.
type CodeIssuedEvent struct {
    CodePrefix string    `json:"code_prefix"`
    OwnerID    uint64    `json:"owner_id"`
    EventID    uint64    `json:"event_id"`
    Source     string    `json:"source"` // points or gateway
    IssuedAt   time.Time `json:"issued_at"`
}

func (CodeIssuedEvent) EventType() string { return TypeCodeIssued }

// CodeBoundEvent is published when a code is bound to an external account
// for the first time.
type CodeBoundEvent struct {
    CodePrefix string    `json:"code_prefix"`
    OwnerID    uint64    `json:"owner_id"`
    DeviceID   string    `json:"device_id,omitempty"`
    BoundAt    time.Time `json:"bound_at"`
}

func (CodeBoundEvent) EventType() string { return TypeCodeBound }

// Envelope is the JSON body of every message on CodeEventsQueue.
type Envelope struct {
    ID         string          `json:"id"`
    Type       string          `json:"type"`
    OccurredAt time.Time       `json:"occurred_at"`
    Payload    json.RawMessage `json:"payload"`
}

// NewEnvelope wraps ev with a fresh message ID.
func NewEnvelope(ev Event, now time.Time) (Envelope, error) {
    payload, err := json.Marshal(ev)
    if err != nil {
        return Envelope{}, err
    }
    return Envelope{
        ID:         uuid.NewString(),
        Type:       ev.EventType(),
        OccurredAt: now.UTC(),
        Payload:    payload,
    }, nil
}

package model

import "time"

// WebSocket control message types
const (
	WSMessageTypePing = "ping"
	WSMessageTypePong = "pong"
)

// WSMessage represents a generic WebSocket control message
type WSMessage struct {
	Type string `json:"type"`
}

// ProgressEvent is broadcast to job subscribers while a pipeline runs.
// Events are transient: they are never persisted or replayed.
type ProgressEvent struct {
	Kind      EventKind `json:"kind"`
	JobID     string    `json:"jobId"`
	StepID    StepID    `json:"stepId,omitempty"`
	Progress  int       `json:"progress"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

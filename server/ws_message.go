package server

import (
	"encoding/json"
	"time"

	"sdgateway/metrics"
)

// Message type constants for WebSocket communication. These define the
// real-time updates pushed to connected demo page clients.
const (
	// MessageTypeGenerationUpdate indicates a generation lifecycle change
	// (started, completed, error).
	MessageTypeGenerationUpdate = "generation_update"

	// MessageTypeGPUUpdate indicates GPU metrics have been refreshed.
	MessageTypeGPUUpdate = "gpu_update"

	// MessageTypeError indicates a server-side error message.
	MessageTypeError = "error"

	// MessageTypePing is a keep-alive message from the server.
	MessageTypePing = "ping"

	// MessageTypeInitial contains the initial state snapshot on connection.
	MessageTypeInitial = "initial"
)

// Generation status values used in GenerationUpdateData.
const (
	GenerationStatusStarted   = "started"
	GenerationStatusCompleted = "completed"
	GenerationStatusError     = "error"
)

// WSMessage is the envelope for all WebSocket messages. The Data field
// holds the type-specific payload.
type WSMessage struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// NewWSMessage creates a message with the current timestamp.
func NewWSMessage(msgType string, data interface{}) WSMessage {
	return WSMessage{
		Type:      msgType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// MarshalJSON serializes the message for sending over a WebSocket.
func (m WSMessage) MarshalJSON() ([]byte, error) {
	type Alias WSMessage
	return json.Marshal(Alias(m))
}

// GenerationUpdateData describes a generation lifecycle event.
type GenerationUpdateData struct {
	// ID is the generation record identifier.
	ID string `json:"id"`

	// Status is one of the GenerationStatus* values.
	Status string `json:"status"`

	// Prompt is the sanitized prompt text.
	Prompt string `json:"prompt"`

	// Backend names the backend serving the request.
	Backend string `json:"backend,omitempty"`

	// DurationMS is set on completion and error.
	DurationMS int64 `json:"duration_ms,omitempty"`

	// Error contains details when Status is "error".
	Error string `json:"error,omitempty"`
}

// GPUUpdateData carries a GPU metrics sample to clients.
type GPUUpdateData struct {
	Utilization   float64 `json:"utilization"`
	Temperature   float64 `json:"temperature"`
	MemoryUsed    int64   `json:"memory_used"`
	MemoryTotal   int64   `json:"memory_total"`
	MemoryPercent float64 `json:"memory_percent"`
}

// ErrorData contains error information sent to clients.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// InitialData is the state snapshot sent when a client connects.
type InitialData struct {
	Backend     string                   `json:"backend"`
	ModelLoaded bool                     `json:"model_loaded"`
	GPU         *GPUUpdateData           `json:"gpu,omitempty"`
	Stats       *metrics.GenerationStats `json:"stats,omitempty"`
}

// NewGenerationUpdateMessage creates a generation lifecycle message.
func NewGenerationUpdateMessage(data GenerationUpdateData) WSMessage {
	return NewWSMessage(MessageTypeGenerationUpdate, data)
}

// NewGPUUpdateMessage creates a GPU metrics update message.
func NewGPUUpdateMessage(m metrics.GPUMetrics) WSMessage {
	data := GPUUpdateData{
		Utilization: m.Utilization,
		Temperature: m.Temperature,
		MemoryUsed:  m.MemoryUsed,
		MemoryTotal: m.MemoryTotal,
	}
	if m.MemoryTotal > 0 {
		data.MemoryPercent = float64(m.MemoryUsed) / float64(m.MemoryTotal) * 100
	}
	return NewWSMessage(MessageTypeGPUUpdate, data)
}

// NewErrorMessage creates an error message.
func NewErrorMessage(code, message string) WSMessage {
	return NewWSMessage(MessageTypeError, ErrorData{Code: code, Message: message})
}

// NewPingMessage creates a keep-alive message.
func NewPingMessage() WSMessage {
	return NewWSMessage(MessageTypePing, nil)
}

// NewInitialMessage creates the initial state snapshot message.
func NewInitialMessage(data InitialData) WSMessage {
	return NewWSMessage(MessageTypeInitial, data)
}

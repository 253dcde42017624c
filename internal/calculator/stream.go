package calculator

import (
	"github.com/mitchelldurbincs/wargame/internal/monitoring"
	"github.com/mitchelldurbincs/wargame/internal/odds"
)

// MessageType tags a message of a streamed calculation.
type MessageType string

const (
	MessageProgress MessageType = "progress"
	MessageResult   MessageType = "result"
	MessageError    MessageType = "error"
)

// StreamMessage is one message of a streamed calculation: a progress
// snapshot, the final response, or an error for a bad request.
type StreamMessage struct {
	Type     MessageType           `json:"type"`
	Progress *odds.AggregateResult `json:"progress,omitempty"`
	Response *Response             `json:"response,omitempty"`
	Error    string                `json:"error,omitempty"`
}

// Stats is the service statistics payload.
type Stats struct {
	UptimeSeconds float64                        `json:"uptime_seconds"`
	Estimators    []monitoring.EstimatorSnapshot `json:"estimators"`
}

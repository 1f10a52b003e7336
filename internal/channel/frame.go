// Package channel owns the websocket session to the canvas relay: the join
// handshake, the framed wire protocol, and the correlation of outbound
// commands with asynchronous broadcast responses.
package channel

import (
	"encoding/json"
	"fmt"

	"github.com/user/posterforge/internal/types"
)

// FrameType tags the wire-level frame variants.
type FrameType string

const (
	FrameJoin      FrameType = "join"
	FrameMessage   FrameType = "message"
	FrameBroadcast FrameType = "broadcast"
	FrameSystem    FrameType = "system"
	FrameError     FrameType = "error"
)

// Inner is the payload carried by message, broadcast, and system frames.
//
// Result presence is significant: a broadcast whose inner message lacks a
// result key is the relay echoing our own request back, not an answer.
// Because Result is a RawMessage, an absent key leaves it nil while an
// explicit JSON null decodes to the 4-byte literal — so HasResult treats
// "result": null as a present (empty) result.
type Inner struct {
	ID      string          `json:"id,omitempty"`
	Command string          `json:"command,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// HasResult reports whether the result key was present on the wire.
func (m *Inner) HasResult() bool {
	return m.Result != nil
}

// Frame is the parsed tagged union of everything the relay can send.
// Inbound bytes are parsed into a Frame immediately on receipt so downstream
// logic switches on Type instead of probing object shape.
type Frame struct {
	ID      string    `json:"id,omitempty"`
	Type    FrameType `json:"type"`
	Channel string    `json:"channel,omitempty"`
	Message *Inner    `json:"message,omitempty"`
}

// ParseFrame decodes one wire frame, rejecting frames with no recognizable type.
func ParseFrame(data []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("unmarshal frame: %w", err)
	}
	switch f.Type {
	case FrameJoin, FrameMessage, FrameBroadcast, FrameSystem, FrameError:
		return &f, nil
	default:
		return nil, fmt.Errorf("unknown frame type %q", f.Type)
	}
}

// joinFrame builds the join handshake frame for a channel.
func joinFrame(channel string) *Frame {
	return &Frame{Type: FrameJoin, Channel: channel}
}

// requestFrame wraps a command in the outer message envelope. The outer id is
// a fresh random frame id; the inner id is the session's monotonic command id
// that the broadcast response will echo back.
func requestFrame(channel, commandID, command string, params json.RawMessage) *Frame {
	return &Frame{
		ID:      string(types.NewFrameID()),
		Type:    FrameMessage,
		Channel: channel,
		Message: &Inner{
			ID:      commandID,
			Command: command,
			Params:  params,
		},
	}
}

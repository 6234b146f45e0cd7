package wire

import (
	"encoding/json"
	"fmt"
)

// FrameType discriminates the frames exchanged over a session channel.
type FrameType string

const (
	// FrameCall is a synchronous call. Calls flow in both directions.
	FrameCall FrameType = "call"
	// FrameReply resolves the newest outstanding call on the session.
	FrameReply FrameType = "reply"
	// FrameTeardown is the one-way child->parent session terminator.
	FrameTeardown FrameType = "teardown"
)

// Frame is one newline-delimited JSON message on the channel.
type Frame struct {
	Type   FrameType       `json:"type"`
	Seq    uint64          `json:"seq,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`

	// Reply fields. Result is meaningless when OK is false.
	OK     bool            `json:"ok,omitempty"`
	Error  string          `json:"error,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

// ParseFrame parses a frame from one line of channel input.
func ParseFrame(data []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse frame: %w", err)
	}
	if f.Type == "" {
		return nil, fmt.Errorf("frame has no type")
	}
	return &f, nil
}

// Marshal converts a frame to JSON bytes.
func (f *Frame) Marshal() ([]byte, error) {
	return json.Marshal(f)
}

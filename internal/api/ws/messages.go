package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// MessageType names a frame on the command socket.
type MessageType string

// Inbound types.
const (
	TypeCommand MessageType = "command"
	TypeStop    MessageType = "stop"
	TypePing    MessageType = "ping"
)

// Outbound types.
const (
	TypeOutput          MessageType = "output"
	TypeError           MessageType = "error"
	TypeClose           MessageType = "close"
	TypeCommandComplete MessageType = "commandComplete"
	TypePong            MessageType = "pong"
)

// Request is a decoded inbound frame: CommandRequest, StopRequest or
// PingRequest.
type Request interface {
	requestType() MessageType
}

// CommandRequest asks the session to run Command. Cwd is an optional
// workspace-relative directory.
type CommandRequest struct {
	Command string
	Cwd     string
}

// StopRequest asks the session to terminate all of its processes.
type StopRequest struct{}

// PingRequest is an application-level keep-alive.
type PingRequest struct{}

func (CommandRequest) requestType() MessageType { return TypeCommand }
func (StopRequest) requestType() MessageType    { return TypeStop }
func (PingRequest) requestType() MessageType    { return TypePing }

// ProtocolError describes an inbound frame that could not be decoded.
type ProtocolError struct {
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid message: %s: %v", e.Reason, e.Err)
	}
	return "invalid message: " + e.Reason
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// envelope is the wire shape of every inbound frame.
type envelope struct {
	Type    MessageType `json:"type"`
	Command *string     `json:"command"`
	Cwd     string      `json:"cwd"`
}

// Decode parses and validates one inbound frame.
func Decode(data []byte) (Request, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, &ProtocolError{Reason: fmt.Sprintf("field %q has the wrong type", typeErr.Field), Err: err}
		}
		return nil, &ProtocolError{Reason: "not valid JSON", Err: err}
	}

	switch env.Type {
	case TypeCommand:
		if env.Command == nil || strings.TrimSpace(*env.Command) == "" {
			return nil, &ProtocolError{Reason: "command is required"}
		}
		return CommandRequest{Command: *env.Command, Cwd: env.Cwd}, nil
	case TypeStop:
		return StopRequest{}, nil
	case TypePing:
		return PingRequest{}, nil
	case "":
		return nil, &ProtocolError{Reason: "missing type"}
	default:
		return nil, &ProtocolError{Reason: fmt.Sprintf("unknown type %q", env.Type)}
	}
}

// Message is an outbound frame.
type Message struct {
	Type    MessageType `json:"type"`
	Content string      `json:"content,omitempty"`
	Command string      `json:"command,omitempty"`
	Code    *int        `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
}

// ScaffoldNote accompanies commandComplete.
const ScaffoldNote = "Project scaffolding finished. Refresh the file tree to see the new files."

func outputMessage(command, chunk string) Message {
	return Message{Type: TypeOutput, Content: chunk, Command: command}
}

func errorMessage(command, text string) Message {
	return Message{Type: TypeError, Content: text, Command: command}
}

func closeMessage(command string, code int) Message {
	return Message{Type: TypeClose, Command: command, Code: &code}
}

func completeMessage(command string, code int) Message {
	return Message{Type: TypeCommandComplete, Command: command, Code: &code, Message: ScaffoldNote}
}

func pongMessage() Message {
	return Message{Type: TypePong}
}

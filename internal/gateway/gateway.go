// Package gateway talks to the external reasoning service that selects tools
// and phrases replies. Responses are untrusted: callers must validate any
// tool call before acting on it.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleFunction  Role = "function"
)

// Message is one entry of the conversation sent to the reasoning service.
// Assistant messages may carry the ToolCall they made; function messages
// carry a tool result in Content and the tool name in Name.
type Message struct {
	Role     Role
	Name     string
	Content  string
	ToolCall *ToolCall
}

// Schema is a JSON-schema subset used to describe tool parameters.
type Schema struct {
	Type        string
	Description string
	Enum        []string
	Format      string
	Items       *Schema
	Properties  map[string]*Schema
	Required    []string
}

type ToolSpec struct {
	Name        string
	Description string
	Parameters  *Schema
}

type ToolMode int

const (
	// ToolModeAuto lets the model choose between a tool call and plain text.
	ToolModeAuto ToolMode = iota
	// ToolModeNone forbids tool calls.
	ToolModeNone
)

type Request struct {
	SystemPrompt string
	Tools        []ToolSpec
	ToolMode     ToolMode
	Messages     []Message
}

// ToolCall is a raw tool selection. Arguments holds whatever JSON the model
// produced: usually an object, sometimes a string containing an object.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
	// Signature is an opaque token some models require when the call is
	// replayed in a later request.
	Signature []byte
}

type Response struct {
	Content  string
	ToolCall *ToolCall
}

// Gateway completes one reasoning request.
type Gateway interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// RejectedError marks a request the reasoning service refused outright.
// Retrying it unchanged cannot succeed.
type RejectedError struct {
	Status int
	Err    error
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("reasoning request rejected (%d): %v", e.Status, e.Err)
}

func (e *RejectedError) Unwrap() error { return e.Err }

func isRejected(err error) bool {
	var rej *RejectedError
	return errors.As(err, &rej)
}

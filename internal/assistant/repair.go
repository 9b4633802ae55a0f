package assistant

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/eaglebank/assistant/internal/apperr"
	"github.com/eaglebank/assistant/internal/gateway"
)

// invocation is a tool selection after repair: a name and a JSON object of
// arguments, not yet validated against the tool's schema.
type invocation struct {
	Name      string
	Arguments json.RawMessage
	call      *gateway.ToolCall
}

// extractInvocation reads a tool selection out of an untrusted response. A
// structured tool call wins; otherwise content holding a JSON object with a
// string "name" is treated as a call. It returns nil when the response is
// plain text.
func extractInvocation(resp *gateway.Response) (*invocation, error) {
	if resp.ToolCall != nil {
		args, err := normalizeArguments(resp.ToolCall.Arguments)
		if err != nil {
			return nil, err
		}
		return &invocation{Name: resp.ToolCall.Name, Arguments: args, call: resp.ToolCall}, nil
	}

	var embedded struct {
		Name      any             `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(resp.Content)), &embedded); err != nil {
		return nil, nil
	}
	name, ok := embedded.Name.(string)
	if !ok || name == "" {
		return nil, nil
	}
	args, err := normalizeArguments(embedded.Arguments)
	if err != nil {
		return nil, err
	}
	return &invocation{Name: name, Arguments: args}, nil
}

// normalizeArguments accepts arguments as a JSON object or as a string that
// encodes one and returns the object form.
func normalizeArguments(raw json.RawMessage) (json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return json.RawMessage("{}"), nil
	}

	if raw[0] == '"' {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return nil, apperr.Upstream("reasoning service returned unparseable tool arguments", err)
		}
		encoded = strings.TrimSpace(encoded)
		if encoded == "" {
			return json.RawMessage("{}"), nil
		}
		raw = json.RawMessage(encoded)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, apperr.Upstream("reasoning service returned unparseable tool arguments", err)
	}
	if obj == nil {
		return nil, apperr.Upstream("reasoning service returned unparseable tool arguments", errors.New("arguments are not an object"))
	}
	return raw, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// Package hook decodes host hook events and encodes hook responses.
//
// The host runs the hook once per tool invocation, passes the event as JSON
// on stdin and reads the response from stdout. A hook must always exit 0 and
// print valid JSON, even when it has nothing to say.
package hook

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// DefaultEventName is used when the host does not name the event.
const DefaultEventName = "PostToolUse"

// maxInputBytes bounds how much of stdin is read.
const maxInputBytes = 8 << 20

// Input is the host event payload. Field names follow the host's snake_case
// schema; the camelCase aliases are accepted from older hosts.
type Input struct {
	SessionID     string          `json:"session_id"`
	Cwd           string          `json:"cwd"`
	HookEventName string          `json:"hook_event_name"`
	ToolName      string          `json:"tool_name"`
	ToolInput     json.RawMessage `json:"tool_input,omitempty"`
	ToolResponse  json.RawMessage `json:"tool_response,omitempty"`
	Error         string          `json:"error,omitempty"`

	SessionIDAlt        string `json:"sessionId,omitempty"`
	WorkingDirectoryAlt string `json:"workingDirectory,omitempty"`
}

// Decode reads one event. Empty input yields an empty Input.
func Decode(r io.Reader) (*Input, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxInputBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read hook input: %w", err)
	}
	in := &Input{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return in, nil
	}
	if err := json.Unmarshal(data, in); err != nil {
		return nil, fmt.Errorf("failed to parse hook input: %w", err)
	}
	if in.SessionID == "" {
		in.SessionID = in.SessionIDAlt
	}
	if in.Cwd == "" {
		in.Cwd = in.WorkingDirectoryAlt
	}
	return in, nil
}

// EventName returns the event name, defaulting to PostToolUse.
func (in *Input) EventName() string {
	if in.HookEventName == "" {
		return DefaultEventName
	}
	return in.HookEventName
}

// toolResponse is the subset of tool response shapes that carry failures.
type toolResponse struct {
	Error       string `json:"error"`
	Stderr      string `json:"stderr"`
	Stdout      string `json:"stdout"`
	Output      string `json:"output"`
	IsError     bool   `json:"is_error"`
	Interrupted bool   `json:"interrupted"`
	Success     *bool  `json:"success"`
	ExitCode    *int   `json:"exit_code"`
	ExitCodeAlt *int   `json:"exitCode"`
}

// Failure returns the error text and whether the event describes a failed
// tool invocation.
func (in *Input) Failure() (string, bool) {
	if strings.TrimSpace(in.Error) != "" {
		return in.Error, true
	}
	if len(in.ToolResponse) == 0 {
		return "", false
	}

	var asString string
	if err := json.Unmarshal(in.ToolResponse, &asString); err == nil {
		return "", false
	}

	var tr toolResponse
	if err := json.Unmarshal(in.ToolResponse, &tr); err != nil {
		return "", false
	}

	failed := tr.IsError || tr.Error != ""
	if tr.Success != nil && !*tr.Success {
		failed = true
	}
	for _, code := range []*int{tr.ExitCode, tr.ExitCodeAlt} {
		if code != nil && *code != 0 {
			failed = true
		}
	}
	if !failed {
		return "", false
	}

	var parts []string
	for _, s := range []string{tr.Error, tr.Stderr, tr.Output, tr.Stdout} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n"), true
}

// Output is the hook response.
type Output struct {
	HookSpecificOutput *SpecificOutput `json:"hookSpecificOutput,omitempty"`
}

// SpecificOutput carries text added to the agent's context.
type SpecificOutput struct {
	HookEventName     string `json:"hookEventName"`
	AdditionalContext string `json:"additionalContext"`
}

// Respond builds a response carrying message. An empty message yields an
// empty response.
func Respond(eventName, message string) Output {
	if message == "" {
		return Output{}
	}
	return Output{HookSpecificOutput: &SpecificOutput{
		HookEventName:     eventName,
		AdditionalContext: message,
	}}
}

// Encode writes the response as one JSON line.
func Encode(w io.Writer, out Output) error {
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to encode hook output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

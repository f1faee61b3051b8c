// Package mcp implements the client side of the automation daemon's protocol:
// the initialize handshake plus the resources/* and tools/* verbs, with typed
// helpers for the resources and tools this module actually drives. The daemon
// is a black box; payload parsing tolerates unknown fields throughout, and a
// payload lacking an expected field surfaces as ErrNoData, never a crash.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/axdrive/axdrive/pkg/rpc"
)

// ProtocolVersion is the daemon protocol revision this client negotiates.
const ProtocolVersion = "2024-11-05"

// Resource URIs served by the daemon.
const (
	URIApplications = "appmcp://resources/running_applications"
	URITree         = "app://app_accessibility_tree"
	URIScreenshot   = "app://app_screenshot"
)

// ErrNoData indicates a response arrived but lacked the expected payload.
// Recoverable: callers substitute a fallback rather than aborting.
var ErrNoData = errors.New("mcp: response carried no data")

// Caller is the request surface a session needs; *rpc.Client satisfies it.
type Caller interface {
	Call(ctx context.Context, method string, params any) (json.RawMessage, error)
	Notify(ctx context.Context, method string, params any) error
	Close() error
}

// ServerInfo captures what the daemon reports about itself at initialize.
type ServerInfo struct {
	ProtocolVersion string `json:"protocolVersion"`
	Server          struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"serverInfo"`
}

// Resource describes one entry from resources/list.
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MIMEType    string `json:"mimeType"`
}

// Tool describes one entry from tools/list.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Session is one initialized exchange with a spawned daemon. Not safe for
// concurrent use by multiple workflow runs; each run owns its own session.
type Session struct {
	caller Caller
	logger rpc.Logger
	info   *ServerInfo
}

// NewSession wraps an existing caller. Initialize must run before the typed
// helpers are used.
func NewSession(caller Caller, logger rpc.Logger) *Session {
	return &Session{caller: caller, logger: logger}
}

// Dial spawns the daemon command and returns an uninitialized session over
// its stdio. callTimeout bounds each request; zero keeps the rpc default.
func Dial(command string, args []string, callTimeout time.Duration, logger rpc.Logger) (*Session, error) {
	transport, err := rpc.Spawn(command, args, logger)
	if err != nil {
		return nil, err
	}
	client := rpc.NewClient(transport, logger)
	client.SetCallTimeout(callTimeout)
	return NewSession(client, logger), nil
}

// Initialize performs the handshake and the initialized notification.
func (s *Session) Initialize(ctx context.Context) (*ServerInfo, error) {
	params := map[string]any{
		"protocolVersion": ProtocolVersion,
		"capabilities": map[string]any{
			"roots":    map[string]any{"listChanged": true},
			"sampling": map[string]any{},
		},
		"clientInfo": map[string]any{
			"name":    "axdrive",
			"version": "1.0.0",
		},
	}
	result, err := s.caller.Call(ctx, "initialize", params)
	if err != nil {
		return nil, err
	}
	var info ServerInfo
	if err := json.Unmarshal(result, &info); err != nil {
		return nil, fmt.Errorf("mcp: decode initialize result: %w", err)
	}
	if err := s.caller.Notify(ctx, "notifications/initialized", nil); err != nil {
		return nil, err
	}
	s.info = &info
	return &info, nil
}

// ServerInfo returns what Initialize learned, or nil before the handshake.
func (s *Session) ServerInfo() *ServerInfo { return s.info }

// ListResources fetches the daemon's resource catalog.
func (s *Session) ListResources(ctx context.Context) ([]Resource, error) {
	result, err := s.caller.Call(ctx, "resources/list", nil)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Resources []Resource `json:"resources"`
	}
	if err := json.Unmarshal(result, &payload); err != nil {
		return nil, fmt.Errorf("mcp: decode resources/list: %w", err)
	}
	return payload.Resources, nil
}

// ReadResource reads uri and returns the JSON document embedded in the first
// content entry's text field. An empty or missing contents array is ErrNoData.
func (s *Session) ReadResource(ctx context.Context, uri string) ([]byte, error) {
	result, err := s.caller.Call(ctx, "resources/read", map[string]any{"uri": uri})
	if err != nil {
		return nil, err
	}
	var payload struct {
		Contents []struct {
			URI      string `json:"uri"`
			MIMEType string `json:"mimeType"`
			Text     string `json:"text"`
		} `json:"contents"`
	}
	if err := json.Unmarshal(result, &payload); err != nil {
		return nil, fmt.Errorf("mcp: decode resources/read: %w", err)
	}
	if len(payload.Contents) == 0 || payload.Contents[0].Text == "" {
		return nil, fmt.Errorf("mcp: read %s: %w", uri, ErrNoData)
	}
	return []byte(payload.Contents[0].Text), nil
}

// ListTools fetches the daemon's tool catalog.
func (s *Session) ListTools(ctx context.Context) ([]Tool, error) {
	result, err := s.caller.Call(ctx, "tools/list", nil)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Tools []Tool `json:"tools"`
	}
	if err := json.Unmarshal(result, &payload); err != nil {
		return nil, fmt.Errorf("mcp: decode tools/list: %w", err)
	}
	return payload.Tools, nil
}

// ToolError reports a tool call the daemon executed but flagged as failed.
type ToolError struct {
	Name string
	Text string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("mcp: tool %s failed: %s", e.Name, e.Text)
}

// ToolResult is the daemon's answer to tools/call.
type ToolResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	IsError bool `json:"isError"`
}

// Text returns the first text content entry, or empty.
func (r *ToolResult) Text() string {
	if len(r.Content) == 0 {
		return ""
	}
	return r.Content[0].Text
}

// CallTool invokes name with arguments. A result flagged isError becomes a
// *ToolError; protocol failures pass through from the rpc layer.
func (s *Session) CallTool(ctx context.Context, name string, arguments map[string]any) (*ToolResult, error) {
	params := map[string]any{"name": name, "arguments": arguments}
	result, err := s.caller.Call(ctx, "tools/call", params)
	if err != nil {
		return nil, err
	}
	var tr ToolResult
	if err := json.Unmarshal(result, &tr); err != nil {
		return nil, fmt.Errorf("mcp: decode tools/call: %w", err)
	}
	if tr.IsError {
		return nil, &ToolError{Name: name, Text: tr.Text()}
	}
	return &tr, nil
}

// Close tears down the underlying client and daemon process.
func (s *Session) Close() error {
	return s.caller.Close()
}

package rpc

import (
	"bytes"
	"encoding/json"
)

// Version is the JSON-RPC protocol version spoken on the wire.
const Version = "2.0"

// Request models a JSON-RPC request. A nil ID marks a notification.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response models a JSON-RPC response. Exactly one of Result/Error is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	// Method is set on server-initiated frames sharing the stream.
	Method string `json:"method,omitempty"`
}

// Error follows the JSON-RPC contract for structured failures.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// NewRequest builds a request envelope, marshaling params if present.
func NewRequest(id *int64, method string, params any) (*Request, error) {
	req := &Request{JSONRPC: Version, ID: id, Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, err
		}
		req.Params = raw
	}
	return req, nil
}

// EncodeLine renders req as one newline-terminated JSON document.
func EncodeLine(req *Request) ([]byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	return append(payload, '\n'), nil
}

// DecodeResponse parses one frame line into a Response.
func DecodeResponse(line []byte) (*Response, error) {
	line = bytes.TrimSpace(line)
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, &FramingError{Line: string(line), Err: err}
	}
	return &resp, nil
}

// DecodeRequest parses one frame line into a Request. Used by tests and by
// tooling that replays captured sessions.
func DecodeRequest(line []byte) (*Request, error) {
	line = bytes.TrimSpace(line)
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return nil, &FramingError{Line: string(line), Err: err}
	}
	return &req, nil
}

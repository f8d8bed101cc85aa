// Package transport implements the wire layer under the MCP client:
// JSON-RPC 2.0 framing over a child process's stdio, streamable HTTP, or
// SSE, behind one Transport interface.
package transport

import (
	"context"
	"encoding/json"
)

// JSONRPCRequest is an outgoing call that expects a response.
type JSONRPCRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      uint64      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// JSONRPCResponse answers one request, matched by ID. Exactly one of
// Result and Error is set.
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// JSONRPCError is the error member of a failed response.
type JSONRPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// JSONRPCNotification is a one-way message; it carries no ID and gets no
// response.
type JSONRPCNotification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// Transport is one live connection to an MCP server. Implementations pair
// requests with responses internally, so Send can be called from multiple
// goroutines.
type Transport interface {
	// Start establishes the connection (spawns the child process, opens
	// the HTTP session).
	Start(ctx context.Context) error

	// Send issues a request and blocks until its response arrives or ctx
	// is done.
	Send(ctx context.Context, req *JSONRPCRequest) (*JSONRPCResponse, error)

	// SendNotification fires a one-way message.
	SendNotification(ctx context.Context, notif *JSONRPCNotification) error

	// Close tears down the connection and frees its resources.
	Close() error

	// IsAlive reports whether the connection is still usable.
	IsAlive() bool

	// SetNotificationHandler installs the callback for server-initiated
	// notifications.
	SetNotificationHandler(handler NotificationHandler)
}

// NotificationHandler receives server-initiated notifications.
type NotificationHandler func(method string, params []byte)

// ParseAndDispatchNotification routes data to handler when it parses as a
// notification (a method with no response semantics). Reports whether it
// dispatched.
func ParseAndDispatchNotification(data []byte, handler NotificationHandler) bool {
	if handler == nil {
		return false
	}
	var notif struct {
		Method string          `json:"method"`
		Params json.RawMessage `json:"params"`
	}
	if err := json.Unmarshal(data, &notif); err != nil || notif.Method == "" {
		return false
	}
	handler(notif.Method, notif.Params)
	return true
}

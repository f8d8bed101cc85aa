package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	sseDefaultSendTimeout = 60 * time.Second
	sseDrainTimeout       = 2 * time.Second
)

// SSEConfig describes a legacy-SSE MCP endpoint.
type SSEConfig struct {
	URL     string
	Headers map[string]string
}

// SSETransport speaks the older two-channel SSE profile: a long-lived GET
// on /sse carries everything the server says, while each client message is
// POSTed to /message. Kept for servers that predate streamable HTTP.
type SSETransport struct {
	config  SSEConfig
	client  *http.Client
	baseURL string

	mu            sync.Mutex
	pending       map[uint64]chan *JSONRPCResponse
	alive         bool
	notifyHandler NotificationHandler
	cancel        context.CancelFunc
	readerDone    chan struct{}
}

// NewSSETransport builds a transport for config; Start opens the stream.
func NewSSETransport(config SSEConfig) *SSETransport {
	return &SSETransport{
		config: config,
		// The event stream stays open indefinitely; no client timeout.
		client:     &http.Client{Timeout: 0},
		pending:    make(map[uint64]chan *JSONRPCResponse),
		readerDone: make(chan struct{}),
	}
}

// Start opens the long-lived event stream and begins routing its events.
func (t *SSETransport) Start(ctx context.Context) error {
	t.baseURL = ExpandEnv(t.config.URL)
	t.config.Headers = ExpandEnvMap(t.config.Headers)

	if t.baseURL == "" {
		return fmt.Errorf("URL is required for SSE transport")
	}

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, joinURLPath(t.baseURL, "sse"), nil)
	if err != nil {
		return fmt.Errorf("failed to create SSE request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	for k, v := range t.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to SSE endpoint: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return fmt.Errorf("SSE connection failed with status %d", resp.StatusCode)
	}

	t.mu.Lock()
	t.alive = true
	t.mu.Unlock()

	go t.readStream(resp.Body)
	return nil
}

// readStream consumes the event stream until it closes, routing each
// complete event; on close, every pending call fails.
func (t *SSETransport) readStream(r io.ReadCloser) {
	defer close(t.readerDone)
	defer r.Close()

	reader := bufio.NewReader(r)
	var data string

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if data != "" {
				t.routeEvent(data)
			}
			data = ""
			continue
		}
		if after, found := strings.CutPrefix(line, "data:"); found {
			data = strings.TrimSpace(after)
		}
	}

	t.mu.Lock()
	t.alive = false
	for id, ch := range t.pending {
		close(ch)
		delete(t.pending, id)
	}
	t.mu.Unlock()
}

// routeEvent delivers one event payload: to the Send call waiting on its
// ID when it is a response, to the notification handler otherwise.
func (t *SSETransport) routeEvent(data string) {
	var resp JSONRPCResponse
	if err := json.Unmarshal([]byte(data), &resp); err != nil {
		ParseAndDispatchNotification([]byte(data), t.notifyHandler)
		return
	}
	if resp.ID == 0 && resp.Result == nil && resp.Error == nil {
		ParseAndDispatchNotification([]byte(data), t.notifyHandler)
		return
	}

	t.mu.Lock()
	ch, ok := t.pending[resp.ID]
	if ok {
		delete(t.pending, resp.ID)
	}
	t.mu.Unlock()
	if ok {
		ch <- &resp
	}
}

// postMessage delivers one client message to the /message endpoint; the
// reply, if any, arrives on the event stream, not in this response body.
func (t *SSETransport) postMessage(ctx context.Context, data []byte) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		joinURLPath(t.baseURL, "message"), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range t.config.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return nil
}

// Send posts req and waits for its response to come back on the stream.
func (t *SSETransport) Send(ctx context.Context, req *JSONRPCRequest) (*JSONRPCResponse, error) {
	if !t.IsAlive() {
		return nil, fmt.Errorf("transport is not connected")
	}

	respCh := make(chan *JSONRPCResponse, 1)
	t.mu.Lock()
	t.pending[req.ID] = respCh
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		delete(t.pending, req.ID)
		t.mu.Unlock()
	}()

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	if err := t.postMessage(ctx, data); err != nil {
		return nil, err
	}

	timeout := sseDefaultSendTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	select {
	case result := <-respCh:
		if result == nil {
			return nil, fmt.Errorf("connection closed")
		}
		return result, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("request timeout")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SendNotification posts a one-way message.
func (t *SSETransport) SendNotification(ctx context.Context, notif *JSONRPCNotification) error {
	if !t.IsAlive() {
		return fmt.Errorf("transport is not connected")
	}
	data, err := json.Marshal(notif)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	return t.postMessage(ctx, data)
}

// Close cancels the event stream and waits briefly for the reader to
// drain.
func (t *SSETransport) Close() error {
	t.mu.Lock()
	t.alive = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	select {
	case <-t.readerDone:
	case <-time.After(sseDrainTimeout):
	}
	return nil
}

// IsAlive reports whether the event stream is still open.
func (t *SSETransport) IsAlive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.alive
}

// SetNotificationHandler installs the server-notification callback.
func (t *SSETransport) SetNotificationHandler(handler NotificationHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.notifyHandler = handler
}

// joinURLPath appends one path segment to base, tolerating a trailing
// slash or the segment already being present.
func joinURLPath(base, segment string) string {
	if strings.HasSuffix(base, "/"+segment) {
		return base
	}
	if strings.HasSuffix(base, "/") {
		return base + segment
	}
	return base + "/" + segment
}

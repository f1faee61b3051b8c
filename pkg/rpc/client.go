package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultCallTimeout bounds a single call when no tighter deadline is set.
// Screenshot and tree captures are the slow path and land well inside this.
const DefaultCallTimeout = 15 * time.Second

// Client speaks line-framed JSON-RPC over a Transport. One client owns one
// daemon session: ids are strictly increasing from 1 and never reused, and
// the pending table demultiplexes out-of-order responses so concurrent calls
// may be in flight on the same stream.
type Client struct {
	transport Transport
	logger    Logger
	timeout   time.Duration

	nextID int64
	stray  atomic.Int64

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[int64]chan *Response
	closed  bool
	readErr error

	done chan struct{}
}

// NewClient wraps transport and starts the response reader.
func NewClient(transport Transport, logger Logger) *Client {
	c := &Client{
		transport: transport,
		logger:    logger,
		timeout:   DefaultCallTimeout,
		pending:   make(map[int64]chan *Response),
		done:      make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// SetCallTimeout overrides the per-call deadline. Zero restores the default.
func (c *Client) SetCallTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultCallTimeout
	}
	c.timeout = d
}

// StrayResponses reports how many responses arrived for ids no longer tracked.
func (c *Client) StrayResponses() int64 {
	return c.stray.Load()
}

// Call sends method with params and waits for the matching response. The
// result payload is returned raw; the caller decodes it. Fails with
// TransportError, FramingError, TimeoutError or RemoteError.
func (c *Client) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id := atomic.AddInt64(&c.nextID, 1)
	ch, err := c.register(id)
	if err != nil {
		return nil, err
	}

	req, err := NewRequest(&id, method, params)
	if err != nil {
		c.unregister(id)
		return nil, err
	}
	if err := c.writeRequest(req); err != nil {
		c.unregister(id)
		return nil, err
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, c.readError()
		}
		if resp.Error != nil {
			return nil, &RemoteError{Code: resp.Error.Code, Message: resp.Error.Message}
		}
		return resp.Result, nil
	case <-timer.C:
		// The id stays burned; a late response is counted as stray.
		c.unregister(id)
		return nil, &TimeoutError{Method: method, Timeout: c.timeout}
	case <-ctx.Done():
		c.unregister(id)
		return nil, ctx.Err()
	}
}

// Notify sends a request with no id. No response is awaited.
func (c *Client) Notify(ctx context.Context, method string, params any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	req, err := NewRequest(nil, method, params)
	if err != nil {
		return err
	}
	return c.writeRequest(req)
}

// Close fails all pending calls and tears the transport down.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	err := c.transport.Close()
	<-c.done
	return err
}

func (c *Client) register(id int64) (chan *Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClientClosed
	}
	if c.readErr != nil {
		return nil, c.readErr
	}
	ch := make(chan *Response, 1)
	c.pending[id] = ch
	return ch, nil
}

func (c *Client) unregister(id int64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Client) readError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr != nil {
		return c.readErr
	}
	return ErrClientClosed
}

func (c *Client) writeRequest(req *Request) error {
	line, err := EncodeLine(req)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.transport.Write(line); err != nil {
		var terr *TransportError
		if errors.As(err, &terr) {
			return err
		}
		return &TransportError{Op: "write", Err: err}
	}
	return nil
}

func (c *Client) readLoop() {
	defer close(c.done)
	reader := bufio.NewReader(c.transport)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			c.failPending(readFailure(line, err))
			return
		}
		if len(trimmed(line)) == 0 {
			continue
		}
		resp, err := DecodeResponse(line)
		if err != nil {
			c.failPending(err)
			return
		}
		c.dispatch(resp)
	}
}

// readFailure classifies the read-loop exit: a clean EOF on a frame boundary
// is a transport close, leftover bytes without a newline are a framing error.
func readFailure(partial []byte, err error) error {
	if len(trimmed(partial)) > 0 {
		return &FramingError{Line: string(partial), Err: io.ErrUnexpectedEOF}
	}
	return &TransportError{Op: "read", Err: err}
}

func trimmed(line []byte) []byte {
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line
}

func (c *Client) dispatch(resp *Response) {
	if resp.ID == nil {
		// Server-initiated notification sharing the stream; not ours to answer.
		if c.logger != nil {
			c.logger.Printf("ignoring server frame method=%q", resp.Method)
		}
		return
	}
	c.mu.Lock()
	ch, ok := c.pending[*resp.ID]
	if ok {
		delete(c.pending, *resp.ID)
	}
	c.mu.Unlock()
	if !ok {
		c.stray.Add(1)
		if c.logger != nil {
			c.logger.Printf("%v", &ProtocolMismatchError{ID: *resp.ID})
		}
		return
	}
	ch <- resp
}

func (c *Client) failPending(err error) {
	c.mu.Lock()
	c.readErr = err
	pending := c.pending
	c.pending = make(map[int64]chan *Response)
	c.mu.Unlock()
	for _, ch := range pending {
		close(ch)
	}
}

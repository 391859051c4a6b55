// Package probe is a minimal signaling client. pairctl drives a live
// server with it and the router tests use it end to end.
package probe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dkeye/Pairline/internal/protocol"
	"github.com/gorilla/websocket"
)

const (
	SignalPath = "/api/ws/signal"

	writeWait      = 10 * time.Second
	maxMessageSize = 64 * 1024
)

var ErrTimeout = errors.New("probe: timed out waiting for event")

type Client struct {
	conn  *websocket.Conn
	codec protocol.Codec

	mu sync.Mutex
}

// SignalURL turns a server base such as http://localhost:8080 into the
// WebSocket signaling endpoint.
func SignalURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http", "ws", "":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("server URL %q has no host", base)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + SignalPath
	return u.String(), nil
}

func Dial(ctx context.Context, wsURL string, codec protocol.Codec, header http.Header) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	conn.SetReadLimit(maxMessageSize)
	return &Client{conn: conn, codec: codec}, nil
}

// Send encodes v as the payload of kind. A nil v sends no payload.
func (c *Client) Send(kind protocol.Kind, v any) error {
	f, err := c.codec.Encode(kind, v)
	if err != nil {
		return err
	}
	return c.write(f)
}

// SendRaw sends payload as already encoded in the client's codec.
func (c *Client) SendRaw(kind protocol.Kind, payload []byte) error {
	f, err := c.codec.EncodeRaw(kind, payload)
	if err != nil {
		return err
	}
	return c.write(f)
}

// SendFrame writes bytes as they are, bypassing the codec.
func (c *Client) SendFrame(b []byte) error {
	return c.write(b)
}

func (c *Client) write(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	msgType := websocket.TextMessage
	if c.codec.Binary() {
		msgType = websocket.BinaryMessage
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(msgType, b)
}

// Next blocks for the next server event. After ErrTimeout the client is
// no longer usable.
func (c *Client) Next(timeout time.Duration) (protocol.Envelope, error) {
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		var ne interface{ Timeout() bool }
		if errors.As(err, &ne) && ne.Timeout() {
			return protocol.Envelope{}, ErrTimeout
		}
		return protocol.Envelope{}, err
	}
	return c.codec.Decode(data)
}

// Close sends a close frame and drops the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	c.mu.Unlock()
	return c.conn.Close()
}

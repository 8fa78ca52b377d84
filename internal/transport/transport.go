// Package transport carries input packets to the host agent over TCP. The
// envelope is deliberately thin: the packets themselves are the protocol,
// transport only frames them per channel.
package transport

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"
)

const (
	dialTimeout  = 5 * time.Second
	readPollTime = 100 * time.Millisecond

	// Envelope: 4-byte length, channel byte, flags byte, payload.
	envelopeHeader = 6
	maxPayload     = 1 << 16

	flagReliable = 0x01
)

// Host event channels delivered back to the client.
const (
	eventChannelRumble = 0x80
)

// RumbleHandler receives host haptic events: player number and the two
// motor amplitudes.
type RumbleHandler func(number int16, lowFreq, highFreq uint16)

// Client frames input packets toward the host agent and reads host events
// back. It implements the packet stream's Sender contract.
type Client struct {
	mu       sync.Mutex
	conn     net.Conn
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	onRumble RumbleHandler
}

// NewClient creates a disconnected client.
func NewClient() *Client {
	return &Client{stop: make(chan struct{})}
}

// OnRumble registers the haptic event handler. Must be set before Connect.
func (c *Client) OnRumble(fn RumbleHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onRumble = fn
}

// Connect establishes the connection and starts the host event loop.
func (c *Client) Connect(ctx context.Context, address string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return errors.New("already connected")
	}

	dialer := &net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("connect %s: %w", address, err)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		// Input packets are small and latency-bound.
		_ = tcp.SetNoDelay(true)
	}

	c.conn = conn
	c.stop = make(chan struct{})
	c.stopOnce = sync.Once{}

	c.wg.Add(1)
	go c.readLoop(conn)

	return nil
}

// Disconnect closes the connection and waits for the event loop.
func (c *Client) Disconnect() {
	c.stopOnce.Do(func() {
		close(c.stop)

		c.mu.Lock()
		if c.conn != nil {
			_ = c.conn.Close()
			c.conn = nil
		}
		c.mu.Unlock()

		c.wg.Wait()
	})
}

// IsConnected reports whether a connection is established.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Send frames one input packet. Reliable is carried as an envelope flag so
// the agent can pick its delivery path.
func (c *Client) Send(channel uint8, reliable bool, payload []byte) error {
	if len(payload) > maxPayload {
		return fmt.Errorf("payload too large: %d", len(payload))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return errors.New("not connected")
	}

	buf := make([]byte, envelopeHeader+len(payload))
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(payload)+2))
	buf[4] = channel
	if reliable {
		buf[5] = flagReliable
	}
	copy(buf[envelopeHeader:], payload)

	if _, err := c.conn.Write(buf); err != nil {
		return fmt.Errorf("write packet: %w", err)
	}
	return nil
}

// readLoop consumes host events until the connection drops or Disconnect.
func (c *Client) readLoop(conn net.Conn) {
	defer c.wg.Done()
	defer func() {
		c.mu.Lock()
		if c.conn == conn {
			_ = c.conn.Close()
			c.conn = nil
		}
		c.mu.Unlock()
	}()

	header := make([]byte, envelopeHeader)
	for {
		select {
		case <-c.stop:
			return
		default:
		}

		// Deadline keeps the stop channel responsive.
		_ = conn.SetReadDeadline(time.Now().Add(readPollTime))
		n, err := io.ReadFull(conn, header)
		if err != nil {
			// A timeout with partial data means we lost framing; drop
			// the connection rather than resync blind.
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() && n == 0 {
				continue
			}
			return
		}

		size := binary.BigEndian.Uint32(header[0:4])
		if size < 2 || size-2 > maxPayload {
			return
		}
		payload := make([]byte, size-2)
		_ = conn.SetReadDeadline(time.Now().Add(dialTimeout))
		if _, err := io.ReadFull(conn, payload); err != nil {
			return
		}

		c.dispatch(header[4], payload)
	}
}

func (c *Client) dispatch(channel uint8, payload []byte) {
	switch channel {
	case eventChannelRumble:
		if len(payload) < 6 {
			return
		}
		c.mu.Lock()
		fn := c.onRumble
		c.mu.Unlock()
		if fn != nil {
			fn(int16(binary.LittleEndian.Uint16(payload[0:2])),
				binary.LittleEndian.Uint16(payload[2:4]),
				binary.LittleEndian.Uint16(payload[4:6]))
		}
	}
}

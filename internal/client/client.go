package client

import (
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"coinrush/internal/netdelay"
	"coinrush/internal/protocol"
)

const (
	inboxDepth    = 64
	readChunkSize = 4096
)

// Options tunes the client network layer. Delays default to zero because
// the server usually simulates latency for both directions.
type Options struct {
	InputSendRate int // max input messages per second; also the staleness bound
	InboundDelay  time.Duration
	OutboundDelay time.Duration
}

func (o Options) normalized() Options {
	if o.InputSendRate <= 0 {
		o.InputSendRate = 10
	}
	return o
}

// Client is the stream connection to the server. A background reader feeds
// a bounded inbox; the frame loop drains it with Poll, which never blocks —
// an empty inbox is a normal, silent outcome.
type Client struct {
	conn net.Conn
	opts Options

	inbox    chan protocol.Raw
	closed   chan struct{}
	once     sync.Once
	inDelay  *netdelay.Delayer
	outDelay *netdelay.Delayer

	writeMu sync.Mutex

	lastKeys  protocol.InputKeys
	everSent  bool
	lastSend  time.Time
	sendEvery time.Duration
}

// Dial connects to the server's TCP endpoint and starts the reader.
func Dial(addr string, opts Options) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	opts = opts.normalized()
	c := &Client{
		conn:      conn,
		opts:      opts,
		inbox:     make(chan protocol.Raw, inboxDepth),
		closed:    make(chan struct{}),
		inDelay:   netdelay.New(opts.InboundDelay),
		outDelay:  netdelay.New(opts.OutboundDelay),
		sendEvery: time.Second / time.Duration(opts.InputSendRate),
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) readLoop() {
	var dec protocol.Decoder
	buf := make([]byte, readChunkSize)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			for _, raw := range dec.Feed(buf[:n]) {
				msg := raw
				c.inDelay.Do(func() {
					select {
					case c.inbox <- msg:
					default:
						// Inbox full: the oldest snapshot is the least
						// useful one, so drop the new arrival's
						// predecessor by draining once.
						select {
						case <-c.inbox:
						default:
						}
						select {
						case c.inbox <- msg:
						default:
						}
					}
				})
			}
		}
		if err != nil {
			c.once.Do(func() { close(c.closed) })
			return
		}
	}
}

// Join announces the client on a fresh connection.
func (c *Client) Join(name string) error {
	data, err := protocol.Encode(protocol.NewJoin(name))
	if err != nil {
		return err
	}
	return c.write(data)
}

// SendInput transmits the flags when they changed or when the minimum send
// interval elapsed, bounding input staleness without flooding. The outbound
// delay shim applies after the policy decision.
func (c *Client) SendInput(keys protocol.InputKeys, now time.Time) error {
	changed := !c.everSent || keys != c.lastKeys
	if !changed && now.Sub(c.lastSend) < c.sendEvery {
		return nil
	}

	data, err := protocol.Encode(protocol.NewInput(keys))
	if err != nil {
		return err
	}

	accepted := c.outDelay.Do(func() {
		if err := c.write(data); err != nil {
			log.Printf("client: send input failed: %v", err)
		}
	})
	if !accepted {
		// Dropped by a saturated shim; leave the tracking state alone so
		// the change is retried on the next call instead of waiting out
		// the staleness interval.
		return nil
	}

	c.lastKeys = keys
	c.everSent = true
	c.lastSend = now
	return nil
}

func (c *Client) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := c.conn.Write(data)
	return err
}

// Poll returns every message that has arrived since the last call without
// blocking.
func (c *Client) Poll() []protocol.Raw {
	var msgs []protocol.Raw
	for {
		select {
		case raw := <-c.inbox:
			msgs = append(msgs, raw)
		default:
			return msgs
		}
	}
}

// Closed reports whether the server side of the connection has gone away.
func (c *Client) Closed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// Close shuts the connection down. Reconnecting is the caller's business.
func (c *Client) Close() error {
	c.inDelay.Close()
	c.outDelay.Close()
	err := c.conn.Close()
	c.once.Do(func() { close(c.closed) })
	return err
}

package server

import (
	"bytes"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"coinrush/internal/netdelay"
	"coinrush/internal/protocol"
)

const (
	writeWait     = 10 * time.Second
	sendQueueSize = 64
	readChunkSize = 4096
)

// messageConn abstracts one framed duplex stream. Both the TCP line
// transport and the websocket transport satisfy it, so the hub never cares
// which one a client arrived on.
type messageConn interface {
	// ReadMessage blocks until one complete, well-formed message arrives.
	// Malformed frames are skipped, not surfaced as errors.
	ReadMessage() (protocol.Raw, error)
	// WriteMessage sends one encoded line (including the delimiter).
	WriteMessage(data []byte) error
	Close() error
	RemoteAddr() string
}

// session is one connected client: its conn, outbound queue, and latency
// shims. The player id is zero until a join is accepted.
type session struct {
	sid  uuid.UUID
	conn messageConn
	hub  *Hub

	send chan []byte
	done chan struct{}
	once sync.Once

	playerID uint64 // atomic; 0 = not joined
	dead     bool   // guarded by hub.mu; set on unregister
	inDelay  *netdelay.Delayer
	outDelay *netdelay.Delayer
}

func (h *Hub) newSession(conn messageConn) *session {
	return &session{
		sid:      uuid.New(),
		conn:     conn,
		hub:      h,
		send:     make(chan []byte, sendQueueSize),
		done:     make(chan struct{}),
		inDelay:  netdelay.New(h.cfg.InboundLatency),
		outDelay: netdelay.New(h.cfg.OutboundLatency),
	}
}

// deliver schedules one outbound message through the latency shim. It never
// blocks the caller; a saturated session is dropped instead of stalling the
// broadcast.
func (s *session) deliver(data []byte) {
	s.outDelay.Do(func() {
		select {
		case <-s.done:
		case s.send <- data:
		default:
			log.Printf("session %s: send queue full, dropping connection", s.sid)
			s.hub.Unregister(s)
		}
	})
}

func (s *session) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case data := <-s.send:
			if err := s.conn.WriteMessage(data); err != nil {
				log.Printf("session %s: write failed: %v", s.sid, err)
				s.hub.Unregister(s)
				return
			}
		}
	}
}

// close tears down the session exactly once.
func (s *session) close() {
	s.once.Do(func() {
		close(s.done)
		s.inDelay.Close()
		s.outDelay.Close()
		if err := s.conn.Close(); err != nil {
			log.Printf("session %s: close: %v", s.sid, err)
		}
	})
}

func (s *session) player() uint64 {
	return atomic.LoadUint64(&s.playerID)
}

func (s *session) setPlayer(id uint64) {
	atomic.StoreUint64(&s.playerID, id)
}

// tcpConn frames newline-delimited messages over a raw stream socket.
type tcpConn struct {
	conn  net.Conn
	dec   protocol.Decoder
	queue []protocol.Raw
	buf   [readChunkSize]byte
}

func newTCPConn(conn net.Conn) *tcpConn {
	return &tcpConn{conn: conn}
}

func (c *tcpConn) ReadMessage() (protocol.Raw, error) {
	for len(c.queue) == 0 {
		n, err := c.conn.Read(c.buf[:])
		if n > 0 {
			c.queue = append(c.queue, c.dec.Feed(c.buf[:n])...)
		}
		if err != nil && len(c.queue) == 0 {
			return protocol.Raw{}, err
		}
	}
	raw := c.queue[0]
	c.queue = c.queue[1:]
	return raw, nil
}

func (c *tcpConn) WriteMessage(data []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	_, err := c.conn.Write(data)
	return err
}

func (c *tcpConn) Close() error {
	return c.conn.Close()
}

func (c *tcpConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// wsConn carries one message per websocket text frame. Frames are run
// through the same codec as the TCP path so lenient-decode semantics match.
type wsConn struct {
	conn  *websocket.Conn
	dec   protocol.Decoder
	queue []protocol.Raw
}

func newWSConn(conn *websocket.Conn) *wsConn {
	return &wsConn{conn: conn}
}

func (c *wsConn) ReadMessage() (protocol.Raw, error) {
	for len(c.queue) == 0 {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return protocol.Raw{}, err
		}
		if !bytes.HasSuffix(data, []byte{'\n'}) {
			data = append(data, '\n')
		}
		c.queue = append(c.queue, c.dec.Feed(data)...)
	}
	raw := c.queue[0]
	c.queue = c.queue[1:]
	return raw, nil
}

func (c *wsConn) WriteMessage(data []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, bytes.TrimRight(data, "\n"))
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

func (c *wsConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

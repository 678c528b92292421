package server

import (
	"context"
	"errors"
	"log"
	"net"
)

// Listen binds the TCP listener. This is the only setup step whose failure
// is fatal to the process.
func Listen(addr string) (net.Listener, error) {
	return net.Listen("tcp", addr)
}

// ServeTCP accepts line-framed stream connections until the context is
// cancelled or the listener fails. Each connection gets its own session and
// read goroutine; accept errors from a closed listener are not surfaced.
func (h *Hub) ServeTCP(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		s := h.newSession(newTCPConn(conn))
		log.Printf("session %s: accepted tcp connection from %s", s.sid, conn.RemoteAddr())
		go h.serveSession(ctx, s)
	}
}

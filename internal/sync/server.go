package sync

import (
	"bufio"
	"context"
	"errors"
	"net"
)

// Server is a line-delimited JSON event feed over plain TCP.
type Server struct {
	Addr string
	Hub  *Hub
}

func NewServer(addr string, hub *Hub) *Server {
	return &Server{Addr: addr, Hub: hub}
}

// Run accepts clients until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.Hub.log.Info("tcp event feed listening", "addr", ln.Addr().String())
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			continue
		}

		if _, err := conn.Write(s.Hub.welcome("tcp")); err != nil {
			_ = conn.Close()
			continue
		}
		s.Hub.Add(conn)
		s.Hub.log.Info("feed client connected", "transport", "tcp", "remote", conn.RemoteAddr().String())

		go func(c net.Conn) {
			defer func() {
				s.Hub.Remove(c)
				s.Hub.log.Info("feed client disconnected", "transport", "tcp", "remote", c.RemoteAddr().String())
			}()

			// incoming lines are ignored
			sc := bufio.NewScanner(c)
			for sc.Scan() {
			}
		}(conn)
	}
}

package workload

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/weiihann/napkin/harness"
)

const (
	tcpMessage = 64
	tcpTimeout = time.Second
)

func tcpReadWrite(cfg Config) harness.Workload {
	return harness.Workload{
		Name:              "tcp_read_write",
		Label:             "Tcp Echo",
		BytesPerIteration: tcpMessage,
		Setup: func() (harness.State, error) {
			return newEchoState(cfg)
		},
	}
}

// echoState owns a loopback responder that serves exactly one client and a
// client connection to it. Close tears both down and joins the responder.
type echoState struct {
	ln        net.Listener
	conn      *net.TCPConn
	responder errgroup.Group
	msg       []byte
	buf       []byte
}

func newEchoState(cfg Config) (*echoState, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	s := &echoState{
		ln:  ln,
		msg: NewGenerator(cfg.Seed).Bytes(tcpMessage),
		buf: make([]byte, tcpMessage),
	}

	s.responder.Go(func() error {
		return serveEcho(ln)
	})

	conn, err := net.DialTCP("tcp", nil, ln.Addr().(*net.TCPAddr))
	if err != nil {
		ln.Close()
		return nil, errors.Join(fmt.Errorf("dial %s: %w", ln.Addr(), err), s.responder.Wait())
	}

	if err := conn.SetNoDelay(true); err != nil {
		s.conn = conn
		return nil, errors.Join(fmt.Errorf("set nodelay: %w", err), s.Close())
	}

	s.conn = conn

	return s, nil
}

// serveEcho accepts a single connection and writes back whatever it reads
// until the client goes away.
func serveEcho(ln net.Listener) error {
	conn, err := ln.Accept()
	if err != nil {
		if errors.Is(err, net.ErrClosed) {
			return nil
		}

		return fmt.Errorf("accept: %w", err)
	}
	defer conn.Close()

	if tc, ok := conn.(*net.TCPConn); ok {
		if err := tc.SetNoDelay(true); err != nil {
			return fmt.Errorf("responder nodelay: %w", err)
		}
	}

	buf := make([]byte, tcpMessage)

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			if _, werr := conn.Write(buf[:n]); werr != nil {
				return fmt.Errorf("echo write: %w", werr)
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return nil
			}

			return fmt.Errorf("echo read: %w", err)
		}
	}
}

func (s *echoState) Step() (bool, error) {
	if err := s.conn.SetDeadline(time.Now().Add(tcpTimeout)); err != nil {
		return false, fmt.Errorf("set deadline: %w", err)
	}

	if _, err := s.conn.Write(s.msg); err != nil {
		return false, fmt.Errorf("write: %w", err)
	}

	if _, err := io.ReadFull(s.conn, s.buf); err != nil {
		return false, fmt.Errorf("read: %w", err)
	}

	harness.Consume(s.buf[0])

	return true, nil
}

func (s *echoState) Close() error {
	return errors.Join(s.conn.Close(), s.ln.Close(), s.responder.Wait())
}

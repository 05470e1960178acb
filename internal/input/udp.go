package input

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	"armbridge/internal/pipeline"
)

// maxDatagram bounds one frame datagram.
const maxDatagram = 64 * 1024

type packetConn interface {
	ReadFrom(p []byte) (int, net.Addr, error)
	Close() error
}

type listenFunc func(network string, laddr *net.UDPAddr) (packetConn, error)

// UDPSource reads one frame per datagram.
type UDPSource struct {
	addr   string
	listen listenFunc
	stats  stats
}

func NewUDPSource(addr string) *UDPSource {
	return newUDPSource(addr, func(network string, laddr *net.UDPAddr) (packetConn, error) {
		return net.ListenUDP(network, laddr)
	})
}

func newUDPSource(addr string, listen listenFunc) *UDPSource {
	s := &UDPSource{addr: addr, listen: listen}
	s.stats.name = "udp " + addr
	s.stats.state = "stopped"
	return s
}

func (s *UDPSource) Snapshot() Snapshot { return s.stats.snapshot() }

func (s *UDPSource) Run(ctx context.Context, emit func(pipeline.Frame)) error {
	laddr, err := net.ResolveUDPAddr("udp", s.addr)
	if err != nil {
		return fmt.Errorf("resolve listen addr: %w", err)
	}
	conn, err := s.listen("udp", laddr)
	if err != nil {
		return fmt.Errorf("listen udp: %w", err)
	}
	s.stats.setState("listening", "")

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		_ = conn.Close()
	}()

	buf := make([]byte, maxDatagram)
	for {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.stats.setState("stopped", "")
				return nil
			}
			s.stats.setState("error", err.Error())
			return fmt.Errorf("read udp: %w", err)
		}
		if n == 0 {
			continue
		}
		f, err := Decode(buf[:n])
		if err != nil {
			s.stats.drop(err)
			log.Printf("input: udp %s: %v", s.addr, err)
			continue
		}
		s.stats.seen(time.Now())
		emit(f)
	}
}

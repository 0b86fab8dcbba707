package transport

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/getsentry/sentry-go"
	"github.com/sandertv/go-raknet"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

// maxPacketSize is the size of the buffer used to read from connections that cannot read whole packets.
const maxPacketSize = 1 << 16

// RakNet is a transport over a single reliable ordered RakNet connection.
type RakNet struct {
	conn net.Conn
	log  *logrus.Entry

	hMutex sync.RWMutex
	h      Handler

	closed atomic.Bool
	done   chan struct{}
}

// DialRakNet connects to the RakNet server listening on the address passed. Packets received are passed to h.
func DialRakNet(ctx context.Context, address string, h Handler, log *logrus.Logger) (*RakNet, error) {
	conn, err := raknet.DialContext(ctx, address)
	if err != nil {
		return nil, err
	}
	return newRakNet(conn, h, logEntry(log).WithField("remote", address)).start(), nil
}

// newRakNet wraps a connection without reading from it. The read loop is started by start, once the handler
// is in place.
func newRakNet(conn net.Conn, h Handler, log *logrus.Entry) *RakNet {
	if h == nil {
		h = nopHandler{}
	}
	return &RakNet{conn: conn, log: log, h: h, done: make(chan struct{})}
}

func (r *RakNet) start() *RakNet {
	go r.readLoop()
	return r
}

// Handle sets the handler of packets received.
func (r *RakNet) Handle(h Handler) {
	if h == nil {
		h = nopHandler{}
	}
	r.hMutex.Lock()
	r.h = h
	r.hMutex.Unlock()
}

// Deliver writes the packet to the connection. A failed write closes the connection.
func (r *RakNet) Deliver(p Packet) error {
	if r.closed.Load() {
		return net.ErrClosed
	}
	if _, err := r.conn.Write(p.Marshal(nil)); err != nil {
		r.log.Debugf("unable to write %s packet: %v", p.Kind, err)
		_ = r.shutdown()
		return net.ErrClosed
	}
	return nil
}

// Close closes the connection and waits for the read loop to stop. It must not be called from a Handler.
func (r *RakNet) Close() error {
	err := r.shutdown()
	<-r.done
	return err
}

func (r *RakNet) shutdown() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	return r.conn.Close()
}

// Done returns a channel closed once the connection stopped reading.
func (r *RakNet) Done() <-chan struct{} {
	return r.done
}

func (r *RakNet) readLoop() {
	defer close(r.done)
	defer sentry.Recover()

	reader, packets := r.conn.(interface{ ReadPacket() ([]byte, error) })
	buf := make([]byte, maxPacketSize)
	for {
		var (
			b   []byte
			err error
		)
		if packets {
			b, err = reader.ReadPacket()
		} else {
			var n int
			n, err = r.conn.Read(buf)
			b = buf[:n]
		}
		if err != nil {
			if !r.closed.Load() && !errors.Is(err, net.ErrClosed) {
				r.log.Debugf("connection closed: %v", err)
			}
			r.closed.Store(true)
			return
		}

		p, err := Unmarshal(b)
		if err != nil {
			r.log.Debugf("dropping malformed packet: %v", err)
			continue
		}
		r.handler().OnReceive(p)
	}
}

func (r *RakNet) handler() Handler {
	r.hMutex.RLock()
	defer r.hMutex.RUnlock()
	return r.h
}

// RakNetServer accepts RakNet connections from predicting clients. Packets are routed back to the connection
// that last sent a packet for the same character.
type RakNetServer struct {
	l   *raknet.Listener
	h   Handler
	log *logrus.Entry

	mu     sync.Mutex
	conns  []*RakNet
	routes map[string]*RakNet

	closed atomic.Bool
	done   chan struct{}
}

// ListenRakNet listens for RakNet connections on the address passed. Packets received from any client are
// passed to h.
func ListenRakNet(address string, h Handler, log *logrus.Logger) (*RakNetServer, error) {
	l, err := raknet.Listen(address)
	if err != nil {
		return nil, err
	}
	if h == nil {
		h = nopHandler{}
	}
	s := &RakNetServer{
		l:      l,
		h:      h,
		log:    logEntry(log).WithField("listener", l.Addr().String()),
		routes: make(map[string]*RakNet),
		done:   make(chan struct{}),
	}
	go s.acceptLoop()
	return s, nil
}

// Addr returns the address the server is listening on.
func (s *RakNetServer) Addr() net.Addr {
	return s.l.Addr()
}

// Deliver writes the packet to the client that owns its character. Packets for characters that no client has
// sent anything for yet are dropped.
func (s *RakNetServer) Deliver(p Packet) error {
	if s.closed.Load() {
		return net.ErrClosed
	}
	s.mu.Lock()
	conn, ok := s.routes[p.Character]
	s.mu.Unlock()
	if !ok {
		s.log.Debugf("dropping %s packet for unknown character %s", p.Kind, p.Character)
		return nil
	}
	if err := conn.Deliver(p); err != nil {
		s.unroute(conn)
	}
	return nil
}

// Close closes the listener and every connection accepted by it.
func (s *RakNetServer) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := s.l.Close()
	<-s.done

	s.mu.Lock()
	conns := s.conns
	s.conns, s.routes = nil, nil
	s.mu.Unlock()
	for _, c := range conns {
		_ = c.Close()
	}
	return err
}

func (s *RakNetServer) acceptLoop() {
	defer close(s.done)
	defer sentry.Recover()

	for {
		conn, err := s.l.Accept()
		if err != nil {
			if !s.closed.Load() {
				s.log.Errorf("unable to accept connection: %v", err)
			}
			return
		}
		c := s.serve(conn)

		s.mu.Lock()
		if s.closed.Load() {
			s.mu.Unlock()
			_ = c.Close()
			return
		}
		s.conns = append(s.conns, c)
		s.mu.Unlock()
	}
}

// serve starts reading from a connection accepted by the server. Every packet received routes its character to
// the connection before it is handled.
func (s *RakNetServer) serve(conn net.Conn) *RakNet {
	c := newRakNet(conn, nil, s.log.WithField("remote", conn.RemoteAddr().String()))
	c.h = HandlerFunc(func(p Packet) {
		s.route(p.Character, c)
		s.h.OnReceive(p)
	})
	return c.start()
}

func (s *RakNetServer) route(character string, c *RakNet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.routes != nil {
		s.routes[character] = c
	}
}

func (s *RakNetServer) unroute(c *RakNet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.routes {
		if r == c {
			delete(s.routes, id)
		}
	}
}

func logEntry(log *logrus.Logger) *logrus.Entry {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return logrus.NewEntry(log)
}

package transport

import (
	"net"
	"slices"
	"sync"
)

// Side is one end of a Loopback.
type Side uint8

const (
	SideClient Side = iota
	SideServer
)

func (s Side) other() Side {
	return 1 - s
}

// Loopback connects a client and a server in the same process. Packets delivered by one side are received by
// the other after a fixed number of calls to Advance, which lets tests and examples simulate latency
// deterministically.
type Loopback struct {
	mu       sync.Mutex
	latency  uint64
	tick     uint64
	queue    []queued
	handlers [2]Handler
	closed   bool
}

type queued struct {
	due  uint64
	to   Side
	data []byte
}

// NewLoopback returns a loopback delivering packets latency ticks after they were sent. Packets are never
// received before the next call to Advance, so a latency of zero behaves like a latency of one.
func NewLoopback(latency uint64) *Loopback {
	return &Loopback{latency: latency, handlers: [2]Handler{nopHandler{}, nopHandler{}}}
}

// Handle sets the handler receiving the packets sent to the side passed.
func (l *Loopback) Handle(side Side, h Handler) {
	if h == nil {
		h = nopHandler{}
	}
	l.mu.Lock()
	l.handlers[side] = h
	l.mu.Unlock()
}

// End returns the transport used by the side passed to send packets to the other side.
func (l *Loopback) End(side Side) Transport {
	return loopbackEnd{l: l, to: side.other()}
}

// Advance moves the loopback forward by one tick and hands every packet that became due to its handler, in the
// order the packets were sent. It returns the number of packets received.
func (l *Loopback) Advance() int {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return 0
	}
	l.tick++
	i := slices.IndexFunc(l.queue, func(q queued) bool { return q.due > l.tick })
	if i == -1 {
		i = len(l.queue)
	}
	due := slices.Clone(l.queue[:i])
	l.queue = slices.Delete(l.queue, 0, i)
	handlers := l.handlers
	l.mu.Unlock()

	n := 0
	for _, q := range due {
		p, err := Unmarshal(q.data)
		if err != nil {
			continue
		}
		handlers[q.to].OnReceive(p)
		n++
	}
	return n
}

// Pending returns the number of packets in flight.
func (l *Loopback) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Close drops all packets in flight. Every later Deliver fails.
func (l *Loopback) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.queue = nil
	return nil
}

func (l *Loopback) deliver(to Side, p Packet) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return net.ErrClosed
	}
	l.queue = append(l.queue, queued{due: l.tick + l.latency, to: to, data: p.Marshal(nil)})
	return nil
}

type loopbackEnd struct {
	l  *Loopback
	to Side
}

// Deliver ...
func (e loopbackEnd) Deliver(p Packet) error {
	return e.l.deliver(e.to, p)
}

// Close ...
func (e loopbackEnd) Close() error {
	return e.l.Close()
}

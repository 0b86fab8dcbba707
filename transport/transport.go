package transport

// Transport delivers packets to the other end of a connection. Delivery failures are handled by the
// transport itself: Deliver only returns an error once the transport can no longer deliver anything.
type Transport interface {
	Deliver(p Packet) error
	Close() error
}

// Handler handles packets received by a transport. OnReceive may be called from a goroutine owned by the
// transport.
type Handler interface {
	OnReceive(p Packet)
}

// HandlerFunc implements Handler.
type HandlerFunc func(p Packet)

// OnReceive ...
func (f HandlerFunc) OnReceive(p Packet) {
	f(p)
}

type nopHandler struct{}

func (nopHandler) OnReceive(Packet) {}

package transport

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/locomotion/movement"
	"github.com/sirupsen/logrus"
)

func TestPacketRoundTrip(t *testing.T) {
	in := movement.Input{Move: mgl64.Vec2{0.5, 1}, Yaw: 42, Jump: true}
	p := InputPacket("steve", 17, in)
	got, err := Unmarshal(p.Marshal(nil))
	if err != nil {
		t.Fatal(err)
	}
	if got.Kind != KindInput || got.Character != "steve" || got.Tick != 17 {
		t.Fatalf("unexpected packet %+v", got)
	}
	decoded, err := got.Input()
	if err != nil || decoded != in {
		t.Fatalf("expected input %+v, got %+v (%v)", in, decoded, err)
	}
	if _, err := got.State(); err == nil {
		t.Fatal("expected an input packet to refuse decoding a state")
	}

	s := movement.State{Tick: 9, Pos: mgl64.Vec3{1, 2, 3}, Mode: movement.ModeClimbing, Payload: movement.ClimbPayload{Normal: mgl64.Vec3{1, 0, 0}}}
	sp, err := StatePacket("steve", s)
	if err != nil {
		t.Fatal(err)
	}
	got, err = Unmarshal(sp.Marshal(nil))
	if err != nil {
		t.Fatal(err)
	}
	st, err := got.State()
	if err != nil || !st.Equal(s) || got.Tick != 9 {
		t.Fatalf("expected state %+v, got %+v (%v)", s, st, err)
	}
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	if _, err := Unmarshal([]byte{0xff, 0xff, 0xff}); err == nil {
		t.Fatal("expected malformed data to be rejected")
	}
	if _, err := Unmarshal((Packet{Kind: 9}).Marshal(nil)); err == nil {
		t.Fatal("expected unknown kinds to be rejected")
	}
}

func TestLoopbackLatency(t *testing.T) {
	l := NewLoopback(3)
	var received []Packet
	l.Handle(SideServer, HandlerFunc(func(p Packet) { received = append(received, p) }))

	client := l.End(SideClient)
	for tick := range uint64(3) {
		if err := client.Deliver(InputPacket("a", tick, movement.Input{})); err != nil {
			t.Fatal(err)
		}
	}
	for i := range 2 {
		if n := l.Advance(); n != 0 {
			t.Fatalf("advance %d: expected nothing to arrive yet, got %d", i, n)
		}
	}
	if n := l.Advance(); n != 3 || len(received) != 3 {
		t.Fatalf("expected 3 packets after 3 ticks, got %d", n)
	}
	for i, p := range received {
		if p.Tick != uint64(i) {
			t.Fatalf("expected packets in the order they were sent, got tick %d at %d", p.Tick, i)
		}
	}
	if l.Pending() != 0 {
		t.Fatal("expected no packets in flight")
	}
}

func TestLoopbackClose(t *testing.T) {
	l := NewLoopback(1)
	end := l.End(SideServer)
	_ = end.Deliver(InputPacket("a", 1, movement.Input{}))
	if err := end.Close(); err != nil {
		t.Fatal(err)
	}
	if err := end.Deliver(InputPacket("a", 2, movement.Input{})); !errors.Is(err, net.ErrClosed) {
		t.Fatalf("expected net.ErrClosed, got %v", err)
	}
	if l.Advance() != 0 || l.Pending() != 0 {
		t.Fatal("expected packets in flight to be dropped")
	}
}

func TestRakNetRoundTrip(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	inputs, states := make(chan Packet, 1), make(chan Packet, 1)
	server, err := ListenRakNet("127.0.0.1:0", HandlerFunc(func(p Packet) { inputs <- p }), log)
	if err != nil {
		t.Skipf("unable to listen on UDP: %v", err)
	}
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := DialRakNet(ctx, server.Addr().String(), HandlerFunc(func(p Packet) { states <- p }), log)
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	if err := client.Deliver(InputPacket("a", 5, movement.Input{Move: mgl64.Vec2{0, 1}})); err != nil {
		t.Fatal(err)
	}
	select {
	case p := <-inputs:
		s := movement.State{Tick: p.Tick, Mode: movement.ModeGrounded, Pos: mgl64.Vec3{float64(p.Tick), 0, 0}}
		sp, _ := StatePacket(p.Character, s)
		if err := server.Deliver(sp); err != nil {
			t.Fatal(err)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for the input")
	}
	select {
	case p := <-states:
		s, err := p.State()
		if err != nil || s.Tick != 5 || s.Pos.X() != 5 {
			t.Fatalf("unexpected state %+v (%v)", s, err)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for the authoritative state")
	}
}

func TestRakNetServerRoutesFirstPacket(t *testing.T) {
	received := make(chan Packet, 1)
	s := &RakNetServer{
		h:      HandlerFunc(func(p Packet) { received <- p }),
		log:    logEntry(nil),
		routes: make(map[string]*RakNet),
	}
	local, remote := net.Pipe()
	defer remote.Close()

	// The first packet is written before the connection is served, so it is the first thing read.
	go func() {
		_, _ = remote.Write(InputPacket("eve", 1, movement.Input{}).Marshal(nil))
	}()
	c := s.serve(local)
	defer c.Close()

	select {
	case p := <-received:
		if p.Character != "eve" || p.Tick != 1 {
			t.Fatalf("unexpected packet %+v", p)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("expected the first packet to reach the server handler")
	}
	s.mu.Lock()
	routed := s.routes["eve"]
	s.mu.Unlock()
	if routed != c {
		t.Fatal("expected the first packet to route its character to the connection")
	}

	states := make(chan []byte, 1)
	go func() {
		buf := make([]byte, maxPacketSize)
		n, _ := remote.Read(buf)
		states <- buf[:n]
	}()
	sp, _ := StatePacket("eve", movement.State{Tick: 1, Mode: movement.ModeGrounded})
	if err := s.Deliver(sp); err != nil {
		t.Fatal(err)
	}
	select {
	case b := <-states:
		if p, err := Unmarshal(b); err != nil || p.Kind != KindState || p.Tick != 1 {
			t.Fatalf("unexpected packet %+v (%v)", p, err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("expected the state to be routed back to the connection")
	}
}

package transport

import (
	"github.com/oomph-ac/locomotion/movement"
	"github.com/oomph-ac/locomotion/oerror"
	"google.golang.org/protobuf/encoding/protowire"
)

// Kind is the kind of data carried by a packet.
type Kind uint8

const (
	// KindInput carries the input a predicting character used for a tick.
	KindInput Kind = iota + 1
	// KindState carries the authoritative state of a character at a tick.
	KindState
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindState:
		return "state"
	default:
		return "unknown"
	}
}

// Packet is a single message exchanged between a predicting client and the authority.
type Packet struct {
	Kind      Kind
	Character string
	Tick      uint64
	Payload   []byte
}

const (
	fieldKind protowire.Number = iota + 1
	fieldCharacter
	fieldTick
	fieldPayload
)

// InputPacket returns a packet carrying the input used by a character for a tick.
func InputPacket(character string, tick uint64, in movement.Input) Packet {
	return Packet{Kind: KindInput, Character: character, Tick: tick, Payload: movement.EncodeInput(nil, in)}
}

// StatePacket returns a packet carrying the authoritative state of a character.
func StatePacket(character string, s movement.State) (Packet, error) {
	b, err := movement.Encode(nil, s)
	if err != nil {
		return Packet{}, err
	}
	return Packet{Kind: KindState, Character: character, Tick: s.Tick, Payload: b}, nil
}

// Input decodes the input carried by the packet.
func (p Packet) Input() (movement.Input, error) {
	if p.Kind != KindInput {
		return movement.Input{}, oerror.New("transport: %s packet does not carry an input", p.Kind)
	}
	return movement.DecodeInput(p.Payload)
}

// State decodes the state carried by the packet.
func (p Packet) State() (movement.State, error) {
	if p.Kind != KindState {
		return movement.State{}, oerror.New("transport: %s packet does not carry a state", p.Kind)
	}
	return movement.Decode(p.Payload)
}

// Marshal appends the wire encoding of the packet to b.
func (p Packet) Marshal(b []byte) []byte {
	b = protowire.AppendTag(b, fieldKind, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(p.Kind))
	b = protowire.AppendTag(b, fieldCharacter, protowire.BytesType)
	b = protowire.AppendString(b, p.Character)
	b = protowire.AppendTag(b, fieldTick, protowire.VarintType)
	b = protowire.AppendVarint(b, p.Tick)
	b = protowire.AppendTag(b, fieldPayload, protowire.BytesType)
	return protowire.AppendBytes(b, p.Payload)
}

// Unmarshal decodes a packet produced by Marshal. The payload of the packet returned does not alias b.
func Unmarshal(b []byte) (Packet, error) {
	var p Packet
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Packet{}, protowire.ParseError(n)
		}
		b = b[n:]

		switch {
		case num == fieldKind && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return Packet{}, protowire.ParseError(n)
			}
			p.Kind, b = Kind(v), b[n:]
		case num == fieldCharacter && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return Packet{}, protowire.ParseError(n)
			}
			p.Character, b = v, b[n:]
		case num == fieldTick && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return Packet{}, protowire.ParseError(n)
			}
			p.Tick, b = v, b[n:]
		case num == fieldPayload && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return Packet{}, protowire.ParseError(n)
			}
			p.Payload, b = append([]byte(nil), v...), b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return Packet{}, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	if p.Kind != KindInput && p.Kind != KindState {
		return Packet{}, oerror.New("transport: unknown packet kind %d", p.Kind)
	}
	return p, nil
}

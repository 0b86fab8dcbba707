package movement

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/locomotion/oerror"
	"github.com/zeebo/xxh3"
	"google.golang.org/protobuf/encoding/protowire"
)

// SnapshotVersion is the version written at the start of every encoded state.
const SnapshotVersion = 1

const (
	fieldVersion protowire.Number = iota + 1
	fieldTick
	fieldPos
	fieldVel
	fieldRotation
	fieldMode
	fieldOnGround
	fieldPayload
	fieldInput
)

const (
	inputFieldMove protowire.Number = iota + 1
	inputFieldYaw
	inputFieldPitch
	inputFieldFlags
)

const (
	inputFlagJump = 1 << iota
	inputFlagCrouch
	inputFlagSprint
)

// PayloadCodec encodes and decodes the payload of a single mode.
type PayloadCodec struct {
	Encode func(b []byte, p Payload) []byte
	Decode func(b []byte) (Payload, error)
}

var (
	codecMu       sync.RWMutex
	payloadCodecs = map[Mode]PayloadCodec{}
)

// RegisterPayloadCodec registers the codec used for payloads of the mode passed. It is meant to be called
// during startup, before any state carrying the mode is encoded.
func RegisterPayloadCodec(m Mode, c PayloadCodec) {
	codecMu.Lock()
	defer codecMu.Unlock()
	payloadCodecs[m] = c
}

// HasPayloadCodec returns true if a payload codec is registered for the mode.
func HasPayloadCodec(m Mode) bool {
	_, ok := payloadCodec(m)
	return ok
}

func payloadCodec(m Mode) (PayloadCodec, bool) {
	codecMu.RLock()
	defer codecMu.RUnlock()
	c, ok := payloadCodecs[m]
	return c, ok
}

func init() {
	RegisterPayloadCodec(ModeClimbing, PayloadCodec{
		Encode: func(b []byte, p Payload) []byte {
			return appendVec3(b, 1, p.(ClimbPayload).Normal)
		},
		Decode: func(b []byte) (Payload, error) {
			var p ClimbPayload
			err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
				if num == 1 {
					return consumeVec3(b, typ, &p.Normal)
				}
				return -1, nil
			})
			return p, err
		},
	})
	RegisterPayloadCodec(ModeMantling, PayloadCodec{
		Encode: func(b []byte, p Payload) []byte {
			m := p.(MantlePayload)
			b = appendVec3(b, 1, m.Start)
			b = appendVec3(b, 2, m.Target)
			b = protowire.AppendTag(b, 3, protowire.VarintType)
			b = protowire.AppendVarint(b, uint64(m.Elapsed))
			b = protowire.AppendTag(b, 4, protowire.VarintType)
			return protowire.AppendVarint(b, uint64(m.Duration))
		},
		Decode: func(b []byte) (Payload, error) {
			var p MantlePayload
			err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
				switch num {
				case 1:
					return consumeVec3(b, typ, &p.Start)
				case 2:
					return consumeVec3(b, typ, &p.Target)
				case 3, 4:
					v, n := protowire.ConsumeVarint(b)
					if n < 0 {
						return n, protowire.ParseError(n)
					}
					if num == 3 {
						p.Elapsed = uint32(v)
					} else {
						p.Duration = uint32(v)
					}
					return n, nil
				}
				return -1, nil
			})
			return p, err
		},
	})
	RegisterPayloadCodec(ModeSwimming, PayloadCodec{
		Encode: func(b []byte, p Payload) []byte {
			b = protowire.AppendTag(b, 1, protowire.Fixed64Type)
			return protowire.AppendFixed64(b, math.Float64bits(p.(SwimPayload).Immersion))
		},
		Decode: func(b []byte) (Payload, error) {
			var p SwimPayload
			err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
				if num == 1 {
					return consumeFloat(b, typ, &p.Immersion)
				}
				return -1, nil
			})
			return p, err
		},
	})
}

// Encode appends the canonical encoding of the state to b. Floats are written as their IEEE-754 bits so the
// encoding is bit-exact.
func Encode(b []byte, s State) ([]byte, error) {
	b = protowire.AppendTag(b, fieldVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, SnapshotVersion)
	b = protowire.AppendTag(b, fieldTick, protowire.VarintType)
	b = protowire.AppendVarint(b, s.Tick)
	b = appendVec3(b, fieldPos, s.Pos)
	b = appendVec3(b, fieldVel, s.Vel)
	b = appendVec3(b, fieldRotation, s.Rotation)
	b = protowire.AppendTag(b, fieldMode, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(s.Mode))
	b = protowire.AppendTag(b, fieldOnGround, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeBool(s.OnGround))

	if s.Payload != nil {
		c, ok := payloadCodec(s.Payload.Mode())
		if !ok {
			return b, oerror.Configuration("payload", "no codec registered for %s payloads", s.Payload.Mode())
		}
		b = protowire.AppendTag(b, fieldPayload, protowire.BytesType)
		b = protowire.AppendBytes(b, appendPayload(nil, s.Payload, c))
	}

	b = protowire.AppendTag(b, fieldInput, protowire.BytesType)
	return protowire.AppendBytes(b, appendInput(nil, s.Input)), nil
}

// Decode decodes a state previously produced by Encode.
func Decode(b []byte) (State, error) {
	var (
		s       State
		version uint64
	)
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldVersion, fieldTick, fieldMode, fieldOnGround:
			if typ != protowire.VarintType {
				return -1, nil
			}
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			switch num {
			case fieldVersion:
				version = v
			case fieldTick:
				s.Tick = v
			case fieldMode:
				s.Mode = Mode(v)
			case fieldOnGround:
				s.OnGround = protowire.DecodeBool(v)
			}
			return n, nil
		case fieldPos:
			return consumeVec3(b, typ, &s.Pos)
		case fieldVel:
			return consumeVec3(b, typ, &s.Vel)
		case fieldRotation:
			return consumeVec3(b, typ, &s.Rotation)
		case fieldPayload:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			p, err := decodePayload(v)
			s.Payload = p
			return n, err
		case fieldInput:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			in, err := decodeInput(v)
			s.Input = in
			return n, err
		}
		return -1, nil
	})
	if err != nil {
		return State{}, err
	}
	if version != SnapshotVersion {
		return State{}, oerror.New("movement: unsupported snapshot version %d", version)
	}
	return s, nil
}

// Checksum returns a hash of the canonical encoding of the state.
func Checksum(s State) uint64 {
	b, err := Encode(make([]byte, 0, 192), s)
	if err != nil {
		// Payloads without a codec still hash their scalar fields.
		return xxh3.Hash(b) ^ uint64(s.Mode)
	}
	return xxh3.Hash(b)
}

func appendPayload(b []byte, p Payload, c PayloadCodec) []byte {
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(p.Mode()))
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	return protowire.AppendBytes(b, c.Encode(nil, p))
}

func decodePayload(b []byte) (Payload, error) {
	var (
		m    Mode
		data []byte
	)
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m = Mode(v)
			return n, nil
		case 2:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			data = v
			return n, nil
		}
		return -1, nil
	})
	if err != nil {
		return nil, err
	}
	c, ok := payloadCodec(m)
	if !ok {
		return nil, oerror.New("movement: no payload codec registered for %s", m)
	}
	return c.Decode(data)
}

// EncodeInput appends the encoding of a single input to b.
func EncodeInput(b []byte, in Input) []byte {
	return appendInput(b, in)
}

// DecodeInput decodes an input previously produced by EncodeInput.
func DecodeInput(b []byte) (Input, error) {
	return decodeInput(b)
}

func appendInput(b []byte, in Input) []byte {
	b = protowire.AppendTag(b, inputFieldMove, protowire.BytesType)
	b = protowire.AppendBytes(b, appendFloats(nil, in.Move.X(), in.Move.Y()))
	b = protowire.AppendTag(b, inputFieldYaw, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, math.Float64bits(in.Yaw))
	b = protowire.AppendTag(b, inputFieldPitch, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, math.Float64bits(in.Pitch))

	var flags uint64
	if in.Jump {
		flags |= inputFlagJump
	}
	if in.Crouch {
		flags |= inputFlagCrouch
	}
	if in.Sprint {
		flags |= inputFlagSprint
	}
	b = protowire.AppendTag(b, inputFieldFlags, protowire.VarintType)
	return protowire.AppendVarint(b, flags)
}

func decodeInput(b []byte) (Input, error) {
	var in Input
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case inputFieldMove:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			f, err := consumeFloats(v, 2)
			if err != nil {
				return n, err
			}
			in.Move = mgl64.Vec2{f[0], f[1]}
			return n, nil
		case inputFieldYaw:
			return consumeFloat(b, typ, &in.Yaw)
		case inputFieldPitch:
			return consumeFloat(b, typ, &in.Pitch)
		case inputFieldFlags:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			in.Jump = v&inputFlagJump != 0
			in.Crouch = v&inputFlagCrouch != 0
			in.Sprint = v&inputFlagSprint != 0
			return n, nil
		}
		return -1, nil
	})
	return in, err
}

// consumeFields walks every field in b. The callback returns the number of bytes it consumed, or a negative
// number to have the field skipped.
func consumeFields(b []byte, f func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		n, err := f(num, typ, b)
		if err != nil {
			return err
		}
		if n < 0 {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
		}
		b = b[n:]
	}
	return nil
}

func appendFloats(b []byte, v ...float64) []byte {
	for _, f := range v {
		b = protowire.AppendFixed64(b, math.Float64bits(f))
	}
	return b
}

func consumeFloats(b []byte, count int) ([]float64, error) {
	out := make([]float64, count)
	for i := range out {
		v, n := protowire.ConsumeFixed64(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		out[i] = math.Float64frombits(v)
		b = b[n:]
	}
	return out, nil
}

func appendVec3(b []byte, num protowire.Number, v mgl64.Vec3) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, appendFloats(nil, v[0], v[1], v[2]))
}

func consumeVec3(b []byte, typ protowire.Type, dst *mgl64.Vec3) (int, error) {
	if typ != protowire.BytesType {
		return -1, nil
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return n, protowire.ParseError(n)
	}
	f, err := consumeFloats(v, 3)
	if err != nil {
		return n, err
	}
	*dst = mgl64.Vec3{f[0], f[1], f[2]}
	return n, nil
}

func consumeFloat(b []byte, typ protowire.Type, dst *float64) (int, error) {
	if typ != protowire.Fixed64Type {
		return -1, nil
	}
	v, n := protowire.ConsumeFixed64(b)
	if n < 0 {
		return n, protowire.ParseError(n)
	}
	*dst = math.Float64frombits(v)
	return n, nil
}

package movement

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestEncodeDecodeMantle(t *testing.T) {
	s := State{
		Tick:     77,
		Pos:      mgl64.Vec3{1.25, 2.5, -3.75},
		Vel:      mgl64.Vec3{0.1, 0.2, 0.3},
		Rotation: mgl64.Vec3{-10, 135.5, 0},
		Mode:     ModeMantling,
		Payload:  MantlePayload{Start: mgl64.Vec3{1, 2, 3}, Target: mgl64.Vec3{1, 3.5, 4}, Elapsed: 4, Duration: 12},
		Input:    Input{Move: mgl64.Vec2{0, 1}, Yaw: 135.5, Jump: true, Sprint: true},
	}
	b, err := Encode(nil, s)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := Decode(b)
	if err != nil {
		t.Fatal(err)
	}
	if !decoded.Equal(s) {
		t.Fatalf("decoded state differs:\n%+v\n%+v", decoded, s)
	}
	if Checksum(decoded) != Checksum(s) {
		t.Fatal("checksums of equal states differ")
	}
}

func TestChecksumDetectsSingleBit(t *testing.T) {
	s := State{Tick: 1, Pos: mgl64.Vec3{10, 0, 0}}
	o := s
	o.Pos[0] = 10.000000000000002
	if Checksum(s) == Checksum(o) {
		t.Fatal("expected checksum to change with the least significant bit")
	}
}

type glidePayload struct {
	Lift float64
}

func (glidePayload) Mode() Mode { return Custom(3) }

func TestCustomPayloadRequiresCodec(t *testing.T) {
	s := State{Mode: Custom(3), Payload: glidePayload{Lift: 2}}
	if _, err := Encode(nil, s); err == nil {
		t.Fatal("expected encoding an unregistered payload to fail")
	}
	RegisterPayloadCodec(Custom(3), PayloadCodec{
		Encode: func(b []byte, p Payload) []byte { return appendFloats(b, p.(glidePayload).Lift) },
		Decode: func(b []byte) (Payload, error) {
			f, err := consumeFloats(b, 1)
			if err != nil {
				return nil, err
			}
			return glidePayload{Lift: f[0]}, nil
		},
	})
	b, err := Encode(nil, s)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := Decode(b)
	if err != nil {
		t.Fatal(err)
	}
	if p, ok := PayloadOf[glidePayload](decoded); !ok || p.Lift != 2 {
		t.Fatalf("unexpected payload %v", decoded.Payload)
	}
}

func TestDecodeRejectsTruncated(t *testing.T) {
	b, _ := Encode(nil, State{Tick: 5, Mode: ModeSwimming, Payload: SwimPayload{Immersion: 0.8}})
	if _, err := Decode(b[:len(b)-3]); err == nil {
		t.Fatal("expected truncated snapshot to fail")
	}
}

func TestModeString(t *testing.T) {
	if ModeClimbing.String() != "Climbing" || Custom(7).String() != "Custom(7)" {
		t.Fatalf("unexpected names %s %s", ModeClimbing, Custom(7))
	}
	if id, ok := Custom(9).CustomID(); !ok || id != 9 {
		t.Fatal("expected custom id 9")
	}
	if ModeFalling.IsCustom() {
		t.Fatal("builtin mode reported as custom")
	}
}

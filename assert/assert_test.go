package assert

import (
	"errors"
	"testing"
)

func TestIsTruePanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected IsTrue(false) to panic")
		}
	}()
	IsTrue(false, "capacity must be positive, got %d", 0)
}

func TestIsTrueNoPanic(t *testing.T) {
	IsTrue(true, "never formatted")
}

func TestFaultFollowsBuild(t *testing.T) {
	err := errors.New("checksum mismatch")
	defer func() {
		r := recover()
		if Enabled && r == nil {
			t.Fatal("expected Fault to panic in development builds")
		}
		if !Enabled && r != nil {
			t.Fatalf("expected Fault not to panic in production builds, got %v", r)
		}
	}()
	if got := Fault(err); got != err {
		t.Fatalf("expected fault to be returned, got %v", got)
	}
}

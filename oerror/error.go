package oerror

import "fmt"

// Kind identifies the category of a locomotion error.
type Kind uint8

const (
	KindGeneric Kind = iota
	// KindConfiguration is fatal at startup: unregistered modes, invalid tolerances or capacities.
	KindConfiguration
	// KindStaleAuthority is returned when authoritative data refers to a tick no longer retained.
	KindStaleAuthority
	// KindDivergentReplay marks a replay that disagrees with an earlier local prediction.
	KindDivergentReplay
	// KindNonDeterminism marks a step function producing different outputs for identical inputs.
	KindNonDeterminism
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindStaleAuthority:
		return "stale authority"
	case KindDivergentReplay:
		return "divergent replay"
	case KindNonDeterminism:
		return "non-determinism"
	default:
		return "generic"
	}
}

// OomphError is the base error type returned by locomotion packages.
type OomphError struct {
	Kind Kind
	Err  string
}

// New returns a generic error formatted with the arguments passed.
func New(format string, args ...any) *OomphError {
	return &OomphError{Kind: KindGeneric, Err: fmt.Sprintf(format, args...)}
}

// NewOomphError returns an error of the given kind.
func NewOomphError(kind Kind, err string) *OomphError {
	return &OomphError{Kind: kind, Err: err}
}

func (e *OomphError) Error() string {
	if e.Kind == KindGeneric {
		return e.Err
	}
	return e.Kind.String() + ": " + e.Err
}

// Is reports whether target is an OomphError of the same kind, so errors.Is(err, &OomphError{Kind: k})
// matches on the category alone.
func (e *OomphError) Is(target error) bool {
	t, ok := target.(*OomphError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Err == "" || t.Err == e.Err)
}

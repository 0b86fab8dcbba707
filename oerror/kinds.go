package oerror

import (
	"errors"
	"fmt"
)

// ConfigurationError is raised when the locomotion setup is invalid. It is only ever returned while
// building mode sets, histories or engines, never while simulating.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "configuration: " + e.Reason
	}
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return &OomphError{Kind: KindConfiguration}
}

// Configuration returns a new ConfigurationError for the field passed.
func Configuration(field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// StaleAuthorityError is returned when an authoritative sample refers to a tick that has been evicted
// from, or was never recorded in, the local history.
type StaleAuthorityError struct {
	Tick   uint64
	Oldest uint64
	Latest uint64
}

func (e *StaleAuthorityError) Error() string {
	return fmt.Sprintf("stale authority: tick %d outside retained window [%d, %d]", e.Tick, e.Oldest, e.Latest)
}

func (e *StaleAuthorityError) Unwrap() error {
	return &OomphError{Kind: KindStaleAuthority}
}

// DivergentReplayWarning describes a replayed tick that no longer matches the prediction made before the
// correction. This is the correction mechanism working as intended.
type DivergentReplayWarning struct {
	Tick     uint64
	Distance float64
}

func (e *DivergentReplayWarning) Error() string {
	return fmt.Sprintf("divergent replay: tick %d moved %.4f from its earlier prediction", e.Tick, e.Distance)
}

func (e *DivergentReplayWarning) Unwrap() error {
	return &OomphError{Kind: KindDivergentReplay}
}

// NonDeterminismFault is raised when stepping identical inputs twice yields different outputs.
type NonDeterminismFault struct {
	Tick     uint64
	Mode     string
	Expected uint64
	Actual   uint64
}

func (e *NonDeterminismFault) Error() string {
	return fmt.Sprintf("non-determinism: tick %d (mode %s) checksum %016x != %016x", e.Tick, e.Mode, e.Actual, e.Expected)
}

func (e *NonDeterminismFault) Unwrap() error {
	return &OomphError{Kind: KindNonDeterminism}
}

// IsKind reports whether err carries the kind passed anywhere in its chain.
func IsKind(err error, kind Kind) bool {
	return errors.Is(err, &OomphError{Kind: kind})
}

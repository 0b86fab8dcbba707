package assert

import "github.com/oomph-ac/locomotion/oerror"

// IsTrue panics with the formatted message when ok is false. Use it for invariants that indicate a
// programming error rather than bad input.
func IsTrue(ok bool, message string, args ...interface{}) {
	if !ok {
		panic(oerror.New(message, args...))
	}
}

// Fault panics with err when Enabled is true and otherwise returns it untouched, letting production
// builds tolerate the fault and report it elsewhere.
func Fault(err error) error {
	if Enabled && err != nil {
		panic(err)
	}
	return err
}

//go:build !production
// +build !production

package assert

// Enabled is true in development builds, where faults such as non-deterministic step functions abort.
const Enabled = true

//go:build voxeldebug

package assert

// Enabled is true when invariant violations panic.
const Enabled = true

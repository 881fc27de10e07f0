// Package runtime provides the embedded C runtime shim linked into
// native binaries.
package runtime

import (
	_ "embed"
)

//go:embed native/kooix_runtime.c
var nativeRuntime []byte

// NativeRuntimeSource returns the C source of the runtime shim. The
// native link driver writes it next to the emitted object and compiles it
// alongside.
func NativeRuntimeSource() []byte {
	return nativeRuntime
}

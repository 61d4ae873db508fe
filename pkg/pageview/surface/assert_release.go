//go:build !pageviewdebug

package surface

// violation is a no-op in release builds; the caller logs and clamps.
func violation(string, ...interface{}) {}

const debugBuild = false

//go:build pageviewdebug

package surface

import "fmt"

func violation(format string, args ...interface{}) {
	panic(fmt.Sprintf("surface: "+format, args...))
}

const debugBuild = true

package isolate

import (
	"fmt"
	"runtime"
)

// curGID returns the current goroutine's id by parsing the stack header.
// Goroutine identity is only ever compared for equality; it is never used to
// reach into another goroutine.
func curGID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var gid uint64
	fmt.Sscanf(string(buf[:n]), "goroutine %d ", &gid)
	return gid
}

package scripting

import (
	"bytes"
	"runtime"
	"strconv"
)

var goroutinePrefix = []byte("goroutine ")

// currentGoroutineID parses the id from the header of the current stack,
// "goroutine 18 [running]:". It returns 0 if the header is unexpected.
func currentGoroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	line, ok := bytes.CutPrefix(buf[:n], goroutinePrefix)
	if !ok {
		return 0
	}
	if i := bytes.IndexByte(line, ' '); i > 0 {
		line = line[:i]
	}
	id, err := strconv.ParseInt(string(line), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

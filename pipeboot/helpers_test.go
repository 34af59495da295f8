package pipeboot

import (
	"os"
	"testing"
)

// osArgs swaps os.Args for the duration of a test and returns the previous
// value to restore via restoreOsArgs.
func osArgs(t *testing.T, args []string) []string {
	t.Helper()
	saved := os.Args
	os.Args = args
	return saved
}

func restoreOsArgs(saved []string) {
	os.Args = saved
}

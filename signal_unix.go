//go:build unix

package nodejs

import (
	"os"

	"golang.org/x/sys/unix"
)

var defaultStopSignals = []os.Signal{unix.SIGINT, unix.SIGTERM}

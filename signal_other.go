//go:build !unix

package nodejs

import "os"

var defaultStopSignals = []os.Signal{os.Interrupt}

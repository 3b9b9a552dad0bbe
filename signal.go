package nodejs

import (
	"os"
	"os/signal"

	"go.uber.org/zap"
)

// StopOnSignal stops the runtime the first time one of sigs arrives. With no
// signals it listens for the platform's interrupt and termination signals.
// The handler is removed once the runtime returns.
func (i *Instance) StopOnSignal(sigs ...os.Signal) {
	if len(sigs) == 0 {
		sigs = defaultStopSignals
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)

	go func() {
		defer signal.Stop(ch)
		select {
		case sig := <-ch:
			Logger().Debug("stopping runtime on signal", zap.Stringer("signal", sig))
			i.stopWhenRunning()
		case <-i.done:
		}
	}()
}

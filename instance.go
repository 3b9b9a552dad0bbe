package nodejs

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cryguy/nodejs/raw"
)

const stopRetryInterval = 10 * time.Millisecond

// Instance is a runtime started in the background by Start.
type Instance struct {
	group errgroup.Group
	done  chan struct{}
}

// Start runs the runtime on its own goroutine and returns once the start has
// been admitted by the process-wide guard. Cancelling ctx stops the runtime,
// waiting for its event loop to come up if it has not yet.
func Start(ctx context.Context, args Args, init func(*ModuleContext) error) (*Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := acquire(); err != nil {
		return nil, err
	}

	inst := &Instance{done: make(chan struct{})}
	inst.group.Go(func() error {
		defer close(inst.done)
		return runAcquired(func() error {
			return raw.RunModule(args, init)
		})
	})
	inst.group.Go(func() error {
		select {
		case <-ctx.Done():
			inst.stopWhenRunning()
		case <-inst.done:
		}
		return nil
	})

	return inst, nil
}

// stopWhenRunning retries Stop while the runtime is still bootstrapping.
func (i *Instance) stopWhenRunning() {
	ticker := time.NewTicker(stopRetryInterval)
	defer ticker.Stop()
	for {
		err := raw.Stop()
		if err == nil {
			return
		}
		if !errors.Is(err, ErrNotRunning) {
			Logger().Warn("stopping runtime", zap.Error(err))
			return
		}
		select {
		case <-i.done:
			return
		case <-ticker.C:
		}
	}
}

// Stop asks the runtime to exit its event loop without waiting for it.
func (i *Instance) Stop() error {
	return raw.Stop()
}

// Done is closed once the runtime has returned.
func (i *Instance) Done() <-chan struct{} {
	return i.done
}

// Wait blocks until the runtime has returned and reports its result.
func (i *Instance) Wait() error {
	return i.group.Wait()
}

//go:build unix

package nodejs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/cryguy/nodejs/internal/testutil"
)

func TestInstance_StopOnSignal(t *testing.T) {
	if !testutil.Isolate(t) {
		return
	}

	inst, err := Start(context.Background(), NewArgs(), func(ctx *ModuleContext) error {
		_, err := ctx.RunScript("setInterval(function() {}, 1000)")
		return err
	})
	require.NoError(t, err)
	inst.StopOnSignal(unix.SIGUSR1)

	require.NoError(t, unix.Kill(unix.Getpid(), unix.SIGUSR1))

	select {
	case <-inst.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("runtime did not stop on signal")
	}
	require.NoError(t, inst.Wait())
}

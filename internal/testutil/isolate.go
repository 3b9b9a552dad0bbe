// Package testutil holds helpers shared by tests that start the runtime.
package testutil

import (
	"os"
	"os/exec"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

const isolateEnv = "NODEJS_ISOLATED_TEST"

// Isolate runs the calling top-level test in a fresh child process. The
// runtime can only be started once per process, so every test that starts it
// must own a process.
//
// In the parent it re-executes the test binary limited to t.Name(), fails t
// if the child fails and returns false. In the child it returns true and the
// caller runs the test body:
//
//	if !testutil.Isolate(t) {
//		return
//	}
func Isolate(t *testing.T) bool {
	t.Helper()
	if os.Getenv(isolateEnv) == t.Name() {
		return true
	}

	cmd := exec.Command(os.Args[0], "-test.run=^"+regexp.QuoteMeta(t.Name())+"$", "-test.v", "-test.count=1")
	cmd.Env = append(os.Environ(), isolateEnv+"="+t.Name())
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "isolated test failed:\n%s", out)
	require.Contains(t, string(out), "--- PASS: "+t.Name(), "isolated test did not run:\n%s", out)
	return false
}

// Isolated reports whether the current process is an isolated child.
func Isolated() bool {
	return os.Getenv(isolateEnv) != ""
}

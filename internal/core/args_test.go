package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgs_Resolve(t *testing.T) {
	host := []string{"/usr/bin/app", "--flag"}

	tests := []struct {
		name string
		args Args
		want []string
	}{
		{"empty inserts invocation path", NewArgs(), []string{"/usr/bin/app"}},
		{"prepends invocation path", NewArgs().WithArgs("script.js"), []string{"/usr/bin/app", "script.js"}},
		{"keeps existing invocation path", NewArgs().WithArgs("/usr/bin/app", "script.js"), []string{"/usr/bin/app", "script.js"}},
		{"insertion disabled", NewArgs().WithArgs("-e", "1").InsertDefaultProcessArg(false), []string{"-e", "1"}},
		{"insertion disabled and empty", NewArgs().InsertDefaultProcessArg(false), []string{}},
		{"path elsewhere still prepends", NewArgs().WithArgs("x", "/usr/bin/app"), []string{"/usr/bin/app", "x", "/usr/bin/app"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.args.resolve(host)
			require.NoError(t, err)
			assert.Equal(t, len(tt.want), len(got))
			if len(tt.want) > 0 {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestArgs_ResolveWithoutHostArgs(t *testing.T) {
	_, err := NewArgs().resolve(nil)
	require.Error(t, err)

	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, KindEnvironment, e.Kind())
	assert.Equal(t, "Failed to get the first run argument (code: 1)", e.Error())
}

func TestArgs_ResolveRejectsNUL(t *testing.T) {
	_, err := NewArgs().WithArgs("ok", "bad\x00arg").resolve([]string{"/bin/app"})
	require.Error(t, err)

	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, KindEnvironment, e.Kind())
	assert.Contains(t, e.Message(), "argument 2")
}

func TestArgs_Immutable(t *testing.T) {
	src := []string{"a", "b"}
	base := NewArgs().WithArgs(src...)
	src[0] = "changed"

	assert.Equal(t, []string{"a", "b"}, base.Values())

	vals := base.Values()
	vals[1] = "changed"
	assert.Equal(t, []string{"a", "b"}, base.Values())

	off := base.InsertDefaultProcessArg(false)
	got, err := base.resolve([]string{"/bin/app"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/bin/app", "a", "b"}, got)

	got, err = off.resolve([]string{"/bin/app"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestProcessArgs(t *testing.T) {
	got, err := ProcessArgs().Resolve()
	require.NoError(t, err)
	assert.NotEmpty(t, got)
	assert.Equal(t, got, ProcessArgs().Values())
}

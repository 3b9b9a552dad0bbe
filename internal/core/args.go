package core

import (
	"fmt"
	"os"
	"strings"
)

// Args describes the argument vector the runtime should see. The zero value
// is not useful; start from NewArgs or ProcessArgs.
type Args struct {
	args                    []string
	insertDefaultProcessArg bool
}

// NewArgs returns an empty argument list. The host's invocation path is
// inserted as element zero when the list is resolved.
func NewArgs() Args {
	return Args{insertDefaultProcessArg: true}
}

// ProcessArgs uses the host process's own argv as the full argument list.
func ProcessArgs() Args {
	return NewArgs().WithArgs(os.Args...)
}

// WithArgs replaces the argument list.
func (a Args) WithArgs(args ...string) Args {
	a.args = append([]string(nil), args...)
	return a
}

// InsertDefaultProcessArg controls whether the invocation path is prepended
// when the list does not already start with it.
func (a Args) InsertDefaultProcessArg(insert bool) Args {
	a.insertDefaultProcessArg = insert
	return a
}

// Values returns a copy of the configured argument list.
func (a Args) Values() []string {
	return append([]string(nil), a.args...)
}

// Resolve produces the final argument vector.
func (a Args) Resolve() ([]string, error) {
	return a.resolve(os.Args)
}

func (a Args) resolve(hostArgs []string) ([]string, error) {
	if len(hostArgs) == 0 {
		return nil, EnvironmentError("Failed to get the first run argument")
	}
	first := hostArgs[0]

	args := append([]string(nil), a.args...)
	if a.insertDefaultProcessArg && (len(args) == 0 || args[0] != first) {
		args = append([]string{first}, args...)
	}

	for i, arg := range args {
		if strings.IndexByte(arg, 0) >= 0 {
			return nil, EnvironmentError(fmt.Sprintf("argument %d contains a NUL byte", i))
		}
	}
	return args, nil
}

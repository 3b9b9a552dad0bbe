package quickjs

import (
	"github.com/cryguy/nodejs/internal/core"
	"github.com/cryguy/nodejs/internal/host"
)

// NewLibrary returns the embedding ABI backed by fresh QuickJS VMs.
func NewLibrary() *host.Library {
	return host.New("quickjs", func() (core.Engine, error) {
		return New()
	})
}

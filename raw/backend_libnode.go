//go:build libnode

package raw

import (
	"github.com/cryguy/nodejs/internal/core"
	"github.com/cryguy/nodejs/internal/libnode"
)

func newLibrary() core.Library {
	return libnode.New()
}

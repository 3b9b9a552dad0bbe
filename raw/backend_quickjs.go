//go:build !v8 && !libnode

package raw

import (
	"github.com/cryguy/nodejs/internal/core"
	"github.com/cryguy/nodejs/internal/quickjs"
)

func newLibrary() core.Library {
	return quickjs.NewLibrary()
}

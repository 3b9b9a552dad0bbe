//go:build v8 && !libnode

package raw

import (
	"github.com/cryguy/nodejs/internal/core"
	"github.com/cryguy/nodejs/internal/v8engine"
)

func newLibrary() core.Library {
	return v8engine.NewLibrary()
}

package nodejs

import (
	"go.uber.org/zap"

	"github.com/cryguy/nodejs/internal/core"
)

// SetLogger configures the logger used by the runtime and its lifecycle
// functions. A nil logger restores the default no-op logger.
func SetLogger(l *zap.Logger) {
	core.SetLogger(l)
}

// Logger returns the configured logger.
func Logger() *zap.Logger {
	return core.Logger()
}

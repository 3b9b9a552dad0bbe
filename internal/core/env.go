package core

// Env is the plain-environment context handed to a RunEnv callback.
type Env struct {
	binding Binding
	handle  Handle
}

// NewEnv wraps a raw environment handle.
func NewEnv(binding Binding, handle Handle) *Env {
	return &Env{binding: binding, handle: handle}
}

// Handle returns the raw environment handle.
func (e *Env) Handle() Handle { return e.handle }

// RunScript evaluates JavaScript source and returns its JSON-converted result.
func (e *Env) RunScript(source string) (any, error) {
	return e.binding.RunScript(source)
}

// Throw raises err as a JavaScript exception.
func (e *Env) Throw(err error) {
	e.binding.Throw(err)
}

// ModuleContext is the module-registration context handed to a RunModule
// callback: an Env plus the exports object being registered.
type ModuleContext struct {
	*Env
	exports Handle
}

// NewModuleContext wraps raw environment and exports handles.
func NewModuleContext(binding Binding, env, exports Handle) *ModuleContext {
	return &ModuleContext{Env: NewEnv(binding, env), exports: exports}
}

// Exports returns the raw exports handle.
func (c *ModuleContext) Exports() Handle { return c.exports }

// Export sets exports[name] = value. value must be JSON-representable.
func (c *ModuleContext) Export(name string, value any) error {
	return c.binding.SetNamedProperty(c.exports, name, value)
}

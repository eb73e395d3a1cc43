package provision

import (
	"github.com/cuemby/burrow/pkg/environment"
	"github.com/cuemby/burrow/pkg/types"
)

// Provisioner is a single transformation step applied to an environment
// before the workspace starts. Provision mutates env in place or fails; it
// performs no I/O.
type Provisioner interface {
	Name() string
	Provision(identity types.RuntimeIdentity, env *environment.InternalEnvironment) error
}

// Func adapts a plain function to the Provisioner interface
type Func struct {
	name string
	fn   func(types.RuntimeIdentity, *environment.InternalEnvironment) error
}

// NewFunc creates a named provisioner from a function
func NewFunc(name string, fn func(types.RuntimeIdentity, *environment.InternalEnvironment) error) *Func {
	return &Func{name: name, fn: fn}
}

// Name returns the provisioner name
func (f *Func) Name() string {
	return f.name
}

// Provision calls the wrapped function
func (f *Func) Provision(identity types.RuntimeIdentity, env *environment.InternalEnvironment) error {
	return f.fn(identity, env)
}

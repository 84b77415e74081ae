// Package runtime defines the external collaborator interfaces the VM
// consumes but never implements itself: import resolution and bytecode
// image decoding. Keeping
// them here, rather than in package vm, lets the VM depend on an abstract
// Importer without pulling in any particular module-resolution policy, and
// lets this package stay independent of vm.Code's concrete shape (the
// compiled image representation is an intermediate Image value that the
// embedder — cmd/pyvm — turns into a *vm.Code; see Image below).
package runtime

import (
	"fmt"

	"github.com/wudi/pyvm/values"
)

// Importer resolves `__import__(name, globals, locals, fromlist, level)`.
// The VM calls this from IMPORT_NAME; a VM with no Importer configured
// reports every import as an ImportError rather than panicking.
type Importer interface {
	Import(name string, globals, locals map[string]*values.Value, fromlist []string, level int) (*values.Value, error)
}

// MapImporter is the trivial in-memory fake used by the CLI's run and repl
// commands: a fixed table of pre-built modules, no filesystem or
// network access, no package/relative-import resolution.
type MapImporter struct {
	Modules map[string]*values.Value
}

func NewMapImporter() *MapImporter {
	return &MapImporter{Modules: map[string]*values.Value{}}
}

func (mi *MapImporter) Register(name string, dict map[string]*values.Value) {
	mi.Modules[name] = values.ModuleValue(&values.Module{Name: name, Dict: dict})
}

func (mi *MapImporter) Import(name string, globals, locals map[string]*values.Value, fromlist []string, level int) (*values.Value, error) {
	mod, ok := mi.Modules[name]
	if !ok {
		return nil, fmt.Errorf("no module named %s", name)
	}
	return mod, nil
}
